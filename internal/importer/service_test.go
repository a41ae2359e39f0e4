package importer_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/clock"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/storage/memory"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const statement = `Data mov.;Data-valor;Descrição;Montante;Saldo contabilístico após movimento
30-01-2026;30-01-2026;COMPRA CONTINENTE PORTO;-42,10;957,90
09-01-2026;09-01-2026;TFI Wise;1.000,00;1.000,00
`

type fixture struct {
	store    *memory.Store
	accounts *account.Service
	txs      *transaction.Service
	rules    *matching.Service
	svc      *importer.Service
	owner    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	txs := transaction.NewService(store.Transactions(), clock.Fixed(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	rules := matching.NewService(store.Rules())

	return &fixture{
		store:    store,
		accounts: account.NewService(store.Accounts()),
		txs:      txs,
		rules:    rules,
		svc:      importer.NewService(rules, txs),
		owner:    uuid.New(),
	}
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	groceries := f.store.AddCategory(f.owner, "Groceries")

	acc, err := f.accounts.Create(ctx, account.CreateParams{
		OwnerID:        f.owner,
		Name:           "CGD",
		Type:           account.TypeChecking,
		OpeningBalance: decimal.Zero,
	})
	require.NoError(t, err)

	_, err = f.rules.Learn(ctx, matching.LearnParams{
		OwnerID:    f.owner,
		RawPattern: "continente",
		Title:      "Supermarket",
		CategoryID: &groceries,
	})
	require.NoError(t, err)

	result, err := f.svc.Import(ctx, importer.Params{
		OwnerID:   f.owner,
		AccountID: acc.ID,
		Bank:      importer.BankCGD,
		File:      strings.NewReader(statement),
	})
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)

	created := result.Imported
	require.Len(t, created, 2)

	assert.Equal(t, "Supermarket", created[0].Title)
	assert.Equal(t, "COMPRA CONTINENTE PORTO", created[0].Notes)
	require.NotNil(t, created[0].CategoryID)
	assert.Equal(t, groceries, *created[0].CategoryID)
	assert.Equal(t, transaction.StatusPaid, created[0].Status)

	assert.Equal(t, "TFI Wise", created[1].Title)
	assert.Equal(t, "TFI Wise", created[1].Notes)
	assert.Nil(t, created[1].CategoryID)

	balance, err := f.accounts.Balance(ctx, f.owner, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "957.90", balance.StringFixed(2))
}

func TestService_Import_Duplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	acc, err := f.accounts.Create(ctx, account.CreateParams{
		OwnerID: f.owner,
		Name:    "CGD",
		Type:    account.TypeChecking,
	})
	require.NoError(t, err)

	params := importer.Params{OwnerID: f.owner, AccountID: acc.ID, Bank: importer.BankCGD}

	params.File = strings.NewReader(statement)
	first, err := f.svc.Import(ctx, params)
	require.NoError(t, err)
	require.Len(t, first.Imported, 2)

	// A rule learned in between renames the row but the statement text still matches.
	_, err = f.rules.Learn(ctx, matching.LearnParams{OwnerID: f.owner, RawPattern: "wise", Title: "Salary"})
	require.NoError(t, err)

	extended := statement + "31-01-2026;31-01-2026;PAGAMENTO EDP;-30,00;927,90\n"

	params.File = strings.NewReader(extended)
	second, err := f.svc.Import(ctx, params)
	require.NoError(t, err)

	assert.Empty(t, second.Imported)
	require.Len(t, second.Conflicts, 2)
	require.Len(t, second.New, 1)
	assert.Equal(t, "PAGAMENTO EDP", second.New[0].Title)

	for _, c := range second.Conflicts {
		assert.Equal(t, c.Incoming.Notes, c.Existing.Notes)
		assert.Equal(t, transaction.StatusPaid, c.Existing.Status)
	}

	balance, err := f.accounts.Balance(ctx, f.owner, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "957.90", balance.StringFixed(2), "nothing is booked while conflicts are open")

	booked, err := f.svc.Book(ctx, importer.BookParams{
		OwnerID:   f.owner,
		AccountID: acc.ID,
		Rows:      second.New,
	})
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, transaction.StatusPaid, booked[0].Status)

	balance, err = f.accounts.Balance(ctx, f.owner, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "927.90", balance.StringFixed(2))

	txs, err := f.txs.List(ctx, transaction.ListFilter{OwnerID: f.owner})
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestService_Import_SameRowOnAnotherAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []uuid.UUID

	for _, name := range []string{"CGD", "CGD Joint"} {
		acc, err := f.accounts.Create(ctx, account.CreateParams{OwnerID: f.owner, Name: name, Type: account.TypeChecking})
		require.NoError(t, err)

		ids = append(ids, acc.ID)
	}

	for _, id := range ids {
		result, err := f.svc.Import(ctx, importer.Params{
			OwnerID:   f.owner,
			AccountID: id,
			Bank:      importer.BankCGD,
			File:      strings.NewReader(statement),
		})
		require.NoError(t, err)
		assert.Empty(t, result.Conflicts)
		assert.Len(t, result.Imported, 2)
	}
}

func TestService_Import_Errors(t *testing.T) {
	ctx := context.Background()

	type testCase struct {
		name    string
		bank    importer.Bank
		file    string
		wantErr error
	}

	tests := []testCase{
		{
			name:    "unknown bank",
			bank:    "bpi",
			file:    statement,
			wantErr: importer.ErrUnknownBank,
		},
		{
			name:    "unknown account",
			bank:    importer.BankCGD,
			file:    statement,
			wantErr: transaction.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Import(ctx, importer.Params{
				OwnerID:   f.owner,
				AccountID: uuid.New(),
				Bank:      tt.bank,
				File:      strings.NewReader(tt.file),
			})
			require.ErrorIs(t, err, tt.wantErr)

			txs, err := f.txs.List(ctx, transaction.ListFilter{OwnerID: f.owner})
			require.NoError(t, err)
			assert.Empty(t, txs)
		})
	}
}

func TestService_Import_EmptyStatement(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Import(context.Background(), importer.Params{
		OwnerID:   f.owner,
		AccountID: uuid.New(),
		Bank:      importer.BankCGD,
		File:      strings.NewReader("Data mov.;Descrição;Montante\n"),
	})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
}

func TestParseBank(t *testing.T) {
	type testCase struct {
		name    string
		in      string
		want    importer.Bank
		wantErr error
	}

	tests := []testCase{
		{name: "Lowercase", in: "cgd", want: importer.BankCGD},
		{name: "TrimsAndFolds", in: "  CGD ", want: importer.BankCGD},
		{name: "Empty", in: " ", wantErr: importer.ErrUnknownBank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.ParseBank(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Banks(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []importer.Bank{importer.BankCGD}, f.svc.Banks())
}
