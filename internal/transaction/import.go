package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

// ImportResult is the outcome of ImportBatch. When Conflicts is non-empty
// nothing was booked: New holds the rows without a match, and the caller
// decides which conflicting rows to book anyway through CreateBatch.
type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
}

// Conflict pairs a statement row with the transaction already booked for it.
type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

// StatementKey identifies a bank statement row on an account. Imported rows
// carry the bank's own text in Notes, which survives renaming by rules.
type StatementKey struct {
	AccountID uuid.UUID
	Date      string
	Amount    string
	Type      Type
	Text      string
}

func (p CreateParams) StatementKey() StatementKey {
	return StatementKey{
		AccountID: p.AccountID,
		Date:      calendar.Day(p.Date).Format(time.DateOnly),
		Amount:    p.Amount.StringFixed(2),
		Type:      p.Type,
		Text:      p.Notes,
	}
}

func (t *Transaction) StatementKey() StatementKey {
	return StatementKey{
		AccountID: t.AccountID,
		Date:      calendar.Day(t.Date).Format(time.DateOnly),
		Amount:    t.Amount.StringFixed(2),
		Type:      t.Type,
		Text:      t.Notes,
	}
}

// ImportBatch books statement rows unless some of them are already on the
// ledger. The accounts are locked first, so two imports into the same account
// cannot both miss each other's rows.
func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	result := &ImportResult{}

	err := s.within(ctx, func(uow UnitOfWork) error {
		ownerID := params[0].OwnerID
		accountIDs := make([]uuid.UUID, 0, len(params))

		for _, p := range params {
			if p.OwnerID != ownerID {
				return fmt.Errorf("%w: mixed owners in one import", ErrInvalidTransaction)
			}

			accountIDs = append(accountIDs, p.AccountID)
		}

		if _, err := s.lockAccounts(ctx, uow, ownerID, accountIDs...); err != nil {
			return err
		}

		duplicates, err := uow.FindDuplicates(ctx, ownerID, params)
		if err != nil {
			return fmt.Errorf("finding duplicates: %w", err)
		}

		booked := make(map[StatementKey]*Transaction, len(duplicates))
		for _, d := range duplicates {
			booked[d.StatementKey()] = d
		}

		for _, p := range params {
			if existing, ok := booked[p.StatementKey()]; ok {
				result.Conflicts = append(result.Conflicts, Conflict{Incoming: p, Existing: existing})
				continue
			}

			result.New = append(result.New, p)
		}

		if len(result.Conflicts) > 0 {
			return nil
		}

		for i, p := range params {
			txs, err := s.create(ctx, uow, p)
			if err != nil {
				return fmt.Errorf("creating transaction %d: %w", i, err)
			}

			result.Imported = append(result.Imported, txs...)
		}

		result.New = nil

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Conflicts) > 0 {
		today := s.clock.Today()
		for _, c := range result.Conflicts {
			resolve(c.Existing, today)
		}

		return result, nil
	}

	s.Notify(ctx, EventCreated, result.Imported...)

	return result, nil
}
