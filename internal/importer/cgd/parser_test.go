package cgd_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type row struct {
	date   time.Time
	title  string
	amount string
	typ    transaction.Type
}

func TestParser_Parse(t *testing.T) {
	type testCase struct {
		name string
		csv  string
		want []row
	}

	tests := []testCase{
		{
			name: "conta export",
			csv: `Consultar saldos e movimentos à ordem - 31-01-2026;"=""0000"""
Nome cliente;JOHN DOE
NIF;"=""123"""

Dados da conta
Conta;0000 - EUR - Conta Extracto
Saldo contabilístico;1.000,00 EUR

Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;INSTITUTO GESTAO FINA;-588,74;48.825,46
09-01-2026;09-01-2026;TFI Wise;8.608,52;52.532,78
`,
			want: []row{
				{date(2026, 1, 30), "INSTITUTO GESTAO FINA", "588.74", transaction.TypeExpense},
				{date(2026, 1, 9), "TFI Wise", "8608.52", transaction.TypeIncome},
			},
		},
		{
			name: "extrato export",
			csv: `Consultar extrato - 15-02-2026 : 0829015676030
Nome empresa ;ACME UNIPESSOAL,LDA
Intervalo de ;01-02-2026 a 14-02-2026

Data mov. ;Data valor ;Origem ;Descrição ;Movimento ;Estorno ;Saldo contabilístico após movimento ;
13-02-2026;13-02-2026;"=""0003""";PAGAMENTO TSU ;-608,13;  ;41.393,66;
04-02-2026;04-02-2026;SIBS ;TFI Wise ;4.324,06;  ;51.302,85;
`,
			want: []row{
				{date(2026, 2, 13), "PAGAMENTO TSU", "608.13", transaction.TypeExpense},
				{date(2026, 2, 4), "TFI Wise", "4324.06", transaction.TypeIncome},
			},
		},
		{
			name: "cartão export with page footer",
			csv: `Consultar saldos e movimentos de cartões - 15-02-2026
Conta cartão ;4163 **** **** 8016 - EUR - Business Débito

Data ;Data valor ;Descrição ;Débito ;Crédito ;
16-12-2025 ;14-12-2025 ;PA GONDOMAR         GONDOMAR ;64,00 ; ;
18-12-2025 ;17-12-2025 ;REFUND AMAZON ;  ;25,00 ;
 ; ; ; ;Página 1/2 ;
`,
			want: []row{
				{date(2025, 12, 16), "PA GONDOMAR         GONDOMAR", "64.00", transaction.TypeExpense},
				{date(2025, 12, 18), "REFUND AMAZON", "25.00", transaction.TypeIncome},
			},
		},
		{
			name: "columns in a different order",
			csv: `Random;MetaData
Montante;Descrição;Data mov.;Ignored
-10,00;TEST_ORDER;30-01-2026;XXX
`,
			want: []row{
				{date(2026, 1, 30), "TEST_ORDER", "10.00", transaction.TypeExpense},
			},
		},
		{
			name: "thousands separators",
			csv: `Data mov.;Descrição;Montante
30-01-2026;BIG TRANSFER;-1.234.567,89
`,
			want: []row{
				{date(2026, 1, 30), "BIG TRANSFER", "1234567.89", transaction.TypeExpense},
			},
		},
		{
			name: "zero amounts and footer rows are skipped",
			csv: `Data mov.;Descrição;Montante
30-01-2026;TEST;-10,00
29-01-2026;NOTHING;0,00
Totais;;;;
`,
			want: []row{
				{date(2026, 1, 30), "TEST", "10.00", transaction.TypeExpense},
			},
		},
		{
			name: "header only",
			csv:  `Data mov.;Data-valor;Descrição;Montante`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := cgd.NewParser().Parse(strings.NewReader(tt.csv))
			require.NoError(t, err)
			require.Len(t, txs, len(tt.want))

			for i, want := range tt.want {
				got := txs[i]
				assert.Equal(t, want.date, got.Date)
				assert.Equal(t, want.title, got.Title)
				assert.Equal(t, want.amount, got.Amount.StringFixed(2))
				assert.Equal(t, want.typ, got.Type)
				assert.Equal(t, transaction.StatusPaid, got.Status)
			}
		})
	}
}

func TestParser_Latin1Encoding(t *testing.T) {
	utf8CSV := "Data mov.;Descrição;Montante\n30-01-2026;CAFÉ CENTRAL;-10,00\n"

	latin1Bytes, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	txs, err := cgd.NewParser().Parse(bytes.NewReader(latin1Bytes))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	assert.Equal(t, "CAFÉ CENTRAL", txs[0].Title)
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		wantErr error
	}

	tests := []testCase{
		{
			name:    "empty file",
			csv:     "",
			wantErr: cgd.ErrUnrecognizedFormat,
		},
		{
			name:    "unknown header",
			csv:     "Date;Payee;Amount\n2026-01-30;Coffee;-1.20\n",
			wantErr: cgd.ErrUnrecognizedFormat,
		},
		{
			name: "missing description",
			csv: `Data mov.;Descrição;Montante
30-01-2026;;-10,00
`,
			wantErr: cgd.ErrMalformedRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cgd.NewParser().Parse(strings.NewReader(tt.csv))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
