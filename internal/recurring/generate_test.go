package recurring_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/clock"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/storage/memory"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type fixture struct {
	owner     uuid.UUID
	account   *account.Account
	accounts  *account.Service
	txs       *transaction.Service
	templates *recurring.Service
}

func newFixture(t *testing.T, opts ...recurring.Option) *fixture {
	t.Helper()

	store := memory.New()
	clk := clock.Fixed(today)
	owner := uuid.New()

	accounts := account.NewService(store.Accounts())
	txs := transaction.NewService(store.Transactions(), clk)

	acc, err := accounts.Create(context.Background(), account.CreateParams{
		OwnerID:        owner,
		Name:           "Main",
		Type:           account.TypeChecking,
		OpeningBalance: decimal.RequireFromString("1000.00"),
	})
	require.NoError(t, err)

	return &fixture{
		owner:     owner,
		account:   acc,
		accounts:  accounts,
		txs:       txs,
		templates: recurring.NewService(store.Templates(), txs, clk, opts...),
	}
}

func (f *fixture) template(t *testing.T, title string, freq calendar.Frequency, start time.Time, end *time.Time) *recurring.Template {
	t.Helper()

	tmpl, err := f.templates.Create(context.Background(), recurring.CreateParams{
		OwnerID:   f.owner,
		AccountID: f.account.ID,
		Title:     title,
		Amount:    decimal.RequireFromString("10.00"),
		Type:      transaction.TypeExpense,
		Frequency: freq,
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)

	return tmpl
}

func TestGenerateNext_MonthEndSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl := f.template(t, "Rent", calendar.Monthly, date(2024, 1, 31), nil)

	want := []time.Time{date(2024, 2, 29), date(2024, 3, 31), date(2024, 4, 30)}

	for _, next := range want {
		_, err := f.templates.GenerateNext(ctx, f.owner, tmpl.ID)
		require.NoError(t, err)

		got, err := f.templates.Get(ctx, f.owner, tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, next, got.NextOccurrence)
	}

	txs, err := f.txs.List(ctx, transaction.ListFilter{OwnerID: f.owner, TemplateID: new(tmpl.ID)})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	for _, tx := range txs {
		assert.Equal(t, transaction.StatusOverdue, tx.Status)
	}

	bal, err := f.accounts.Balance(ctx, f.owner, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", bal.StringFixed(2), "generated transactions are pending")
}

func TestGenerateNext_StopsAtEndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl := f.template(t, "Course", calendar.Weekly, date(2024, 6, 1), new(date(2024, 6, 10)))

	for range 2 {
		_, err := f.templates.GenerateNext(ctx, f.owner, tmpl.ID)
		require.NoError(t, err)
	}

	_, err := f.templates.GenerateNext(ctx, f.owner, tmpl.ID)
	require.ErrorIs(t, err, recurring.ErrTemplateInactiveOrExpired)

	got, err := f.templates.Get(ctx, f.owner, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, date(2024, 6, 15), got.NextOccurrence)
}

func TestGenerateDue_CatchesUpEveryTemplate(t *testing.T) {
	f := newFixture(t, recurring.WithConcurrency(2))
	ctx := context.Background()

	monthly := f.template(t, "Rent", calendar.Monthly, date(2024, 1, 31), nil)
	weekly := f.template(t, "Groceries", calendar.Weekly, date(2024, 5, 20), nil)
	future := f.template(t, "Insurance", calendar.Yearly, date(2024, 9, 1), nil)
	paused := f.template(t, "Gym", calendar.Daily, date(2024, 6, 1), nil)
	require.NoError(t, f.templates.SetActive(ctx, f.owner, paused.ID, false))

	created, err := f.templates.GenerateDue(ctx, f.owner, time.Time{})
	require.NoError(t, err)

	// Rent: Jan 31 .. May 31. Groceries: May 20, 27, Jun 3, 10.
	assert.Len(t, created, 9)

	got, err := f.templates.Get(ctx, f.owner, monthly.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 30), got.NextOccurrence)

	got, err = f.templates.Get(ctx, f.owner, weekly.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 17), got.NextOccurrence)

	got, err = f.templates.Get(ctx, f.owner, future.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 9, 1), got.NextOccurrence)

	again, err := f.templates.GenerateDue(ctx, f.owner, today)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestSetActive_EndedTemplateStaysInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl := f.template(t, "Trial", calendar.Monthly, date(2024, 1, 1), new(date(2024, 1, 31)))

	_, err := f.templates.GenerateNext(ctx, f.owner, tmpl.ID)
	require.NoError(t, err)

	err = f.templates.SetActive(ctx, f.owner, tmpl.ID, true)
	require.ErrorIs(t, err, recurring.ErrTemplateInactiveOrExpired)

	got, err := f.templates.Get(ctx, f.owner, tmpl.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, date(2024, 2, 1), got.NextOccurrence)

	due, err := f.templates.GenerateDue(ctx, f.owner, today)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCreate_RejectsForeignReferences(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)
	ctx := context.Background()

	type testCase struct {
		name       string
		accountID  uuid.UUID
		categoryID *uuid.UUID
	}

	tests := []testCase{
		{name: "AccountOfAnotherOwner", accountID: other.account.ID},
		{name: "UnknownAccount", accountID: uuid.New()},
		{name: "UnknownCategory", accountID: f.account.ID, categoryID: new(uuid.New())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.templates.Create(ctx, recurring.CreateParams{
				OwnerID:    f.owner,
				AccountID:  tt.accountID,
				CategoryID: tt.categoryID,
				Title:      "Rent",
				Amount:     decimal.RequireFromString("800.00"),
				Type:       transaction.TypeExpense,
				Frequency:  calendar.Monthly,
				StartDate:  date(2024, 1, 31),
			})
			require.ErrorIs(t, err, transaction.ErrNotFound)
		})
	}

	all, err := f.templates.List(ctx, f.owner, false)
	require.NoError(t, err)
	assert.Empty(t, all)
}
