package transaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func newPurchase(amount string, date time.Time) *transaction.Transaction {
	return &transaction.Transaction{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		AccountID: uuid.New(),
		Title:     "Laptop",
		Amount:    decimal.RequireFromString(amount),
		Type:      transaction.TypeExpense,
		Status:    transaction.StatusPaid,
		Date:      date,
		Tags:      []string{"tech"},
	}
}

func TestSplit_ThreeEvenInstallments(t *testing.T) {
	purchase := newPurchase("300.00", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))

	parent, children, err := transaction.Split(purchase, 3)
	require.NoError(t, err)
	require.Len(t, children, 2)

	assert.Equal(t, "100", parent.Amount.String())
	assert.Equal(t, &transaction.Installment{Number: 1, Total: 3}, parent.Installment)
	assert.Equal(t, transaction.StatusPaid, parent.Status)

	wantDates := []time.Time{
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	for i, child := range children {
		assert.Equal(t, "100", child.Amount.String())
		assert.Equal(t, i+2, child.Installment.Number)
		assert.Equal(t, 3, child.Installment.Total)
		require.NotNil(t, child.Installment.ParentID)
		assert.Equal(t, purchase.ID, *child.Installment.ParentID)
		assert.Equal(t, transaction.StatusPending, child.Status)
		assert.Equal(t, wantDates[i], child.Date)
		assert.Equal(t, purchase.AccountID, child.AccountID)
		assert.Equal(t, []string{"tech"}, child.Tags)
	}

	assert.Nil(t, purchase.Installment, "input must not be modified")
	assert.Equal(t, "300", purchase.Amount.String())
}

func TestSplit_RemainderStaysOnParent(t *testing.T) {
	purchase := newPurchase("100.00", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	parent, children, err := transaction.Split(purchase, 3)
	require.NoError(t, err)

	assert.Equal(t, "33.34", parent.Amount.StringFixed(2))

	sum := parent.Amount
	for _, child := range children {
		assert.Equal(t, "33.33", child.Amount.StringFixed(2))
		sum = sum.Add(child.Amount)
	}

	assert.True(t, purchase.Amount.Equal(sum))

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), children[0].Date)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), children[1].Date)
}

func TestSplit_TotalOneIsNoop(t *testing.T) {
	purchase := newPurchase("50.00", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	parent, children, err := transaction.Split(purchase, 1)
	require.NoError(t, err)

	assert.Empty(t, children)
	assert.Nil(t, parent.Installment)
	assert.True(t, purchase.Amount.Equal(parent.Amount))
}

func TestSplit_Errors(t *testing.T) {
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name    string
		tx      *transaction.Transaction
		total   int
		wantErr error
	}

	already := newPurchase("90.00", date)
	already.Installment = &transaction.Installment{Number: 1, Total: 3}

	recurring := newPurchase("90.00", date)
	recurring.Recurrence = &transaction.Recurrence{Frequency: calendar.Monthly}

	tests := []testCase{
		{name: "ZeroTotal", tx: newPurchase("90.00", date), total: 0, wantErr: transaction.ErrInvalidInstallmentCount},
		{name: "NegativeTotal", tx: newPurchase("90.00", date), total: -2, wantErr: transaction.ErrInvalidInstallmentCount},
		{name: "AlreadyInstallment", tx: already, total: 2, wantErr: transaction.ErrInvalidInstallmentCount},
		{name: "Recurring", tx: recurring, total: 2, wantErr: transaction.ErrInvalidInstallmentCount},
		{name: "ShareRoundsToZero", tx: newPurchase("0.05", date), total: 10, wantErr: transaction.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := transaction.Split(tt.tx, tt.total)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
