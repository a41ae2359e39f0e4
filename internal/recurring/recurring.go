package recurring

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	ErrNotFound                  = errors.New("template not found")
	ErrTemplateInactiveOrExpired = errors.New("template inactive or expired")
	ErrInvalidTemplate           = errors.New("invalid template")
)

// Template describes a transaction that repeats on a schedule. Occurrences are
// always computed from StartDate, so a template starting on the 31st lands on
// the last day of shorter months without drifting.
type Template struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	AccountID      uuid.UUID
	CategoryID     *uuid.UUID
	Title          string
	Amount         decimal.Decimal
	Type           transaction.Type
	Tags           []string
	Notes          string
	Frequency      calendar.Frequency
	StartDate      time.Time
	EndDate        *time.Time
	NextOccurrence time.Time
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// Expired reports whether date falls after the template's end date.
func (t *Template) Expired(date time.Time) bool {
	return t.EndDate != nil && calendar.Day(date).After(calendar.Day(*t.EndDate))
}

// Due reports whether the template still has an occurrence on or before asOf.
func (t *Template) Due(asOf time.Time) bool {
	return t.Active && !t.Expired(t.NextOccurrence) && !t.NextOccurrence.After(calendar.Day(asOf))
}

func (t *Template) Clone() *Template {
	c := *t

	if t.CategoryID != nil {
		c.CategoryID = new(*t.CategoryID)
	}

	if t.EndDate != nil {
		c.EndDate = new(*t.EndDate)
	}

	if t.UpdatedAt != nil {
		c.UpdatedAt = new(*t.UpdatedAt)
	}

	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}

	return &c
}

func (t *Template) validate() error {
	if !t.Amount.IsPositive() || !t.Amount.Equal(t.Amount.Round(2)) {
		return fmt.Errorf("%w: %s", transaction.ErrInvalidAmount, t.Amount)
	}

	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTemplate, t.Type)
	}

	if !t.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTemplate, t.Frequency)
	}

	if t.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account is required", ErrInvalidTemplate)
	}

	if t.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidTemplate)
	}

	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: ends %s before it starts %s", ErrInvalidTemplate,
			t.EndDate.Format(time.DateOnly), t.StartDate.Format(time.DateOnly))
	}

	return nil
}

// params builds the transaction for the template's next occurrence.
func (t *Template) params() transaction.CreateParams {
	return transaction.CreateParams{
		OwnerID:    t.OwnerID,
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Title:      t.Title,
		Amount:     t.Amount,
		Type:       t.Type,
		Status:     transaction.StatusPending,
		Date:       t.NextOccurrence,
		Tags:       t.Tags,
		Notes:      t.Notes,
		Recurrence: &transaction.Recurrence{
			Frequency:  t.Frequency,
			EndDate:    t.EndDate,
			TemplateID: new(t.ID),
		},
	}
}
