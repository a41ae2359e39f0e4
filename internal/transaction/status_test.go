package transaction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestResolveStatus(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name     string
		recorded transaction.Status
		date     time.Time
		want     transaction.Status
	}

	tests := []testCase{
		{name: "PaidInThePast", recorded: transaction.StatusPaid, date: today.AddDate(0, 0, -30), want: transaction.StatusPaid},
		{name: "PaidInTheFuture", recorded: transaction.StatusPaid, date: today.AddDate(0, 0, 30), want: transaction.StatusPaid},
		{name: "PendingYesterday", recorded: transaction.StatusPending, date: today.AddDate(0, 0, -1), want: transaction.StatusOverdue},
		{name: "PendingToday", recorded: transaction.StatusPending, date: today, want: transaction.StatusPending},
		{name: "PendingLaterToday", recorded: transaction.StatusPending, date: today.Add(23 * time.Hour), want: transaction.StatusPending},
		{name: "PendingTomorrow", recorded: transaction.StatusPending, date: today.AddDate(0, 0, 1), want: transaction.StatusPending},
		{name: "OverdueMovedToFuture", recorded: transaction.StatusOverdue, date: today.AddDate(0, 1, 0), want: transaction.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &transaction.Transaction{Status: tt.recorded}
			got := transaction.ResolveStatus(tx.Recorded(), tt.date, today)

			assert.Equal(t, tt.want, got)
		})
	}
}
