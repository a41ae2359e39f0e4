package transaction_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestApplyEffect(t *testing.T) {
	type testCase struct {
		name    string
		balance string
		amount  string
		txType  transaction.Type
		mode    transaction.Mode
		want    string
	}

	tests := []testCase{
		{name: "IncomeApply", balance: "100.00", amount: "25.50", txType: transaction.TypeIncome, mode: transaction.Apply, want: "125.50"},
		{name: "ExpenseApply", balance: "100.00", amount: "25.50", txType: transaction.TypeExpense, mode: transaction.Apply, want: "74.50"},
		{name: "IncomeRevert", balance: "100.00", amount: "25.50", txType: transaction.TypeIncome, mode: transaction.Revert, want: "74.50"},
		{name: "ExpenseRevert", balance: "100.00", amount: "25.50", txType: transaction.TypeExpense, mode: transaction.Revert, want: "125.50"},
		{name: "ExpenseBelowZero", balance: "10.00", amount: "30.00", txType: transaction.TypeExpense, mode: transaction.Apply, want: "-20.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transaction.ApplyEffect(
				decimal.RequireFromString(tt.balance),
				decimal.RequireFromString(tt.amount),
				tt.txType,
				tt.mode,
			)

			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestApplyEffect_RevertUndoesApply(t *testing.T) {
	start := decimal.RequireFromString("1234.56")
	amount := decimal.RequireFromString("0.07")

	for _, typ := range []transaction.Type{transaction.TypeIncome, transaction.TypeExpense} {
		applied := transaction.ApplyEffect(start, amount, typ, transaction.Apply)
		reverted := transaction.ApplyEffect(applied, amount, typ, transaction.Revert)

		assert.True(t, start.Equal(reverted), "type %s", typ)
	}
}

func TestSignedAmount(t *testing.T) {
	income := &transaction.Transaction{Amount: decimal.RequireFromString("10"), Type: transaction.TypeIncome}
	expense := &transaction.Transaction{Amount: decimal.RequireFromString("10"), Type: transaction.TypeExpense}

	assert.Equal(t, "10", transaction.SignedAmount(income).String())
	assert.Equal(t, "-10", transaction.SignedAmount(expense).String())
}
