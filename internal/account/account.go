package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrInvalidAccount = errors.New("invalid account")
)

// Type is the kind of account.
type Type string

const (
	TypeChecking   Type = "checking"
	TypeSavings    Type = "savings"
	TypeCreditCard Type = "credit_card"
	TypeCash       Type = "cash"
	TypeInvestment Type = "investment"
)

func (t Type) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCreditCard, TypeCash, TypeInvestment:
		return true
	}

	return false
}

// Account is a place where money lives. Balance is only ever changed by the
// transaction lifecycle; it always equals OpeningBalance plus the signed sum of
// the account's paid transactions.
type Account struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Name           string
	Type           Type
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
