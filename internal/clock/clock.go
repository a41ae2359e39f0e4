// Package clock provides the notion of "today" used by the ledger core.
// The core never reads the system clock directly.
package clock

import (
	"time"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

type Clock interface {
	// Today returns the current calendar day at midnight UTC.
	Today() time.Time
}

// System reads the wall clock in a fixed location.
type System struct {
	Location *time.Location
}

func NewSystem(tz string) (*System, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	return &System{Location: loc}, nil
}

func (s *System) Today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}

	return calendar.Day(time.Now().In(loc))
}

// Fixed always returns the same day. Useful in tests and for backfills.
type Fixed time.Time

func (f Fixed) Today() time.Time {
	return calendar.Day(time.Time(f))
}
