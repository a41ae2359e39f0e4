package transaction

import (
	"time"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

// ResolveStatus derives the effective status of a transaction. Paid is
// terminal. Anything else is overdue when its day is before today and pending
// otherwise, so a transaction dated today is still pending.
func ResolveStatus(recorded Status, date, today time.Time) Status {
	if recorded == StatusPaid {
		return StatusPaid
	}

	if calendar.Day(date).Before(calendar.Day(today)) {
		return StatusOverdue
	}

	return StatusPending
}

// resolve updates tx.Status in place.
func resolve(tx *Transaction, today time.Time) {
	tx.Status = ResolveStatus(tx.Recorded(), tx.Date, today)
}
