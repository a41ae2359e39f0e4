package transaction

import (
	"github.com/shopspring/decimal"
)

// Mode selects whether a transaction's effect is being added to or removed
// from a balance.
type Mode int

const (
	Apply Mode = iota
	Revert
)

// ApplyEffect returns balance after applying (or reverting) a transaction of
// the given amount and type. Income adds and expense subtracts; Revert inverts
// the sign. This is the only way a transaction's money reaches an account.
func ApplyEffect(balance, amount decimal.Decimal, t Type, mode Mode) decimal.Decimal {
	delta := amount
	if t == TypeExpense {
		delta = delta.Neg()
	}

	if mode == Revert {
		delta = delta.Neg()
	}

	return balance.Add(delta)
}

// SignedAmount is the amount as it counts towards a balance.
func SignedAmount(tx *Transaction) decimal.Decimal {
	return ApplyEffect(decimal.Zero, tx.Amount, tx.Type, Apply)
}
