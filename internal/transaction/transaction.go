package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrAccountMismatch         = errors.New("account mismatch")
	ErrInvalidTransaction      = errors.New("invalid transaction")
)

// Type represents the direction of a transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Status is the lifecycle state of a transaction.
//
// Only paid and pending are ever chosen by a user. Overdue is derived from the
// date: a pending transaction dated before today is overdue.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusOverdue:
		return true
	}

	return false
}

// Transaction represents a single movement of money on one account.
type Transaction struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	AccountID   uuid.UUID
	CategoryID  *uuid.UUID
	Title       string
	Amount      decimal.Decimal // Always positive, two fractional digits
	Type        Type
	Status      Status
	Date        time.Time
	DueDate     *time.Time
	Installment *Installment
	Recurrence  *Recurrence
	Tags        []string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Installment places a transaction inside a split purchase. The first
// installment is the original transaction and has no ParentID.
type Installment struct {
	Number   int
	Total    int
	ParentID *uuid.UUID
}

// Recurrence marks a transaction as part of a recurring series, either
// materialized inline at creation time or generated from a template.
type Recurrence struct {
	Frequency  calendar.Frequency
	EndDate    *time.Time
	TemplateID *uuid.UUID
}

// Recorded returns the status last chosen by a user: paid or pending.
func (t *Transaction) Recorded() Status {
	if t.Status == StatusPaid {
		return StatusPaid
	}

	return StatusPending
}

func (t *Transaction) IsPaid() bool {
	return t.Status == StatusPaid
}

// Clone returns a deep copy of t.
func (t *Transaction) Clone() *Transaction {
	c := *t

	if t.CategoryID != nil {
		c.CategoryID = new(*t.CategoryID)
	}

	if t.DueDate != nil {
		c.DueDate = new(*t.DueDate)
	}

	if t.UpdatedAt != nil {
		c.UpdatedAt = new(*t.UpdatedAt)
	}

	if t.Installment != nil {
		inst := *t.Installment
		if inst.ParentID != nil {
			inst.ParentID = new(*inst.ParentID)
		}

		c.Installment = &inst
	}

	if t.Recurrence != nil {
		rec := *t.Recurrence
		if rec.EndDate != nil {
			rec.EndDate = new(*rec.EndDate)
		}

		if rec.TemplateID != nil {
			rec.TemplateID = new(*rec.TemplateID)
		}

		c.Recurrence = &rec
	}

	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}

	return &c
}

// validate checks the invariants every persisted transaction must hold.
func (t *Transaction) validate() error {
	if err := validateAmount(t.Amount); err != nil {
		return err
	}

	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}

	if t.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account is required", ErrInvalidTransaction)
	}

	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidTransaction)
	}

	if inst := t.Installment; inst != nil {
		if inst.Total < 1 || inst.Number < 1 || inst.Number > inst.Total {
			return fmt.Errorf("%w: installment %d/%d", ErrInvalidInstallmentCount, inst.Number, inst.Total)
		}
	}

	if rec := t.Recurrence; rec != nil && !rec.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTransaction, rec.Frequency)
	}

	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}

	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, amount)
	}

	return nil
}
