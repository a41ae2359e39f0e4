// Package calendar holds the date arithmetic shared by installments and
// recurring schedules. All dates are calendar days at midnight UTC.
package calendar

import (
	"fmt"
	"time"
)

// Frequency is the period between two occurrences of a recurring transaction.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}

	return false
}

// ParseFrequency validates s as a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency: %q", s)
	}

	return f, nil
}

// Day truncates t to its calendar day, keeping the year, month and day as
// seen in t's own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months to t. When the target month is shorter
// than t's day of month the result is clamped to the target month's last day,
// so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	t = Day(t)

	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()

	return time.Date(first.Year(), first.Month(), min(t.Day(), last), 0, 0, 0, 0, time.UTC)
}

// Occurrence returns the n-th occurrence (n >= 0) of a schedule anchored on start.
// Months and years are always counted from the anchor, never from the previous
// clamped occurrence, so a schedule starting on the 31st returns to the 31st
// whenever the month allows it.
func Occurrence(start time.Time, f Frequency, n int) time.Time {
	start = Day(start)

	switch f {
	case Daily:
		return start.AddDate(0, 0, n)
	case Weekly:
		return start.AddDate(0, 0, 7*n)
	case Monthly:
		return AddMonths(start, n)
	case Yearly:
		return AddMonths(start, 12*n)
	}

	panic(fmt.Sprintf("calendar: unknown frequency %q", f))
}

// Next returns the first occurrence of the schedule anchored on start that is
// strictly after the given day.
func Next(start time.Time, f Frequency, after time.Time) time.Time {
	start, after = Day(start), Day(after)
	if after.Before(start) {
		return start
	}

	var n int

	switch f {
	case Daily:
		n = int(after.Sub(start).Hours()/24) + 1
	case Weekly:
		n = int(after.Sub(start).Hours()/24)/7 + 1
	case Monthly:
		n = monthsBetween(start, after) + 1
	case Yearly:
		n = after.Year() - start.Year() + 1
	default:
		panic(fmt.Sprintf("calendar: unknown frequency %q", f))
	}

	// The estimate can land one period short around clamped month ends.
	next := Occurrence(start, f, max(n-1, 1))
	for !next.After(after) {
		n++
		next = Occurrence(start, f, n)
	}

	return next
}

// Window lists every occurrence of the schedule anchored on start that falls
// strictly after start and on or before end.
func Window(start, end time.Time, f Frequency) []time.Time {
	start, end = Day(start), Day(end)

	var dates []time.Time

	for n := 1; ; n++ {
		d := Occurrence(start, f, n)
		if d.After(end) {
			return dates
		}

		dates = append(dates, d)
	}
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
