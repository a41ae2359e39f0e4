package transaction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

// Split apportions parent across total monthly installments.
//
// Every child gets amount/total truncated to cents. Whatever is left over
// stays on the parent, which becomes installment 1/total. Child k is dated k-1
// calendar months after the parent (clamped to month end) and starts out
// pending. The returned parent is a copy; the input is never modified.
// A total of 1 returns the parent unchanged and no children.
func Split(parent *Transaction, total int) (*Transaction, []*Transaction, error) {
	if total < 1 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidInstallmentCount, total)
	}

	if parent.Installment != nil {
		return nil, nil, fmt.Errorf("%w: transaction is already installment %d/%d",
			ErrInvalidInstallmentCount, parent.Installment.Number, parent.Installment.Total)
	}

	if parent.Recurrence != nil {
		return nil, nil, fmt.Errorf("%w: recurring transactions cannot be split", ErrInvalidInstallmentCount)
	}

	updated := parent.Clone()
	if total == 1 {
		return updated, nil, nil
	}

	share := parent.Amount.Div(decimal.NewFromInt(int64(total))).Truncate(2)
	if !share.IsPositive() {
		return nil, nil, fmt.Errorf("%w: %s cannot be split into %d installments", ErrInvalidAmount, parent.Amount, total)
	}

	updated.Amount = parent.Amount.Sub(share.Mul(decimal.NewFromInt(int64(total - 1))))
	updated.Installment = &Installment{Number: 1, Total: total}

	children := make([]*Transaction, 0, total-1)

	for k := 2; k <= total; k++ {
		children = append(children, &Transaction{
			OwnerID:    parent.OwnerID,
			AccountID:  parent.AccountID,
			CategoryID: parent.CategoryID,
			Title:      parent.Title,
			Amount:     share,
			Type:       parent.Type,
			Status:     StatusPending,
			Date:       calendar.AddMonths(parent.Date, k-1),
			Installment: &Installment{
				Number:   k,
				Total:    total,
				ParentID: new(parent.ID),
			},
			Tags:  append([]string(nil), parent.Tags...),
			Notes: parent.Notes,
		})
	}

	return updated, children, nil
}
