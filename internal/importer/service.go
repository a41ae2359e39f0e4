package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Suggester interface {
	Suggest(ctx context.Context, ownerID uuid.UUID, raw string) (*matching.Rule, error)
}

// Creator books statement rows. ImportBatch refuses to book when a row is
// already on the ledger; CreateBatch books whatever the user confirmed.
type Creator interface {
	ImportBatch(ctx context.Context, params []transaction.CreateParams) (*transaction.ImportResult, error)
	CreateBatch(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error)
}

type Service struct {
	parsers   map[Bank]Parser
	suggester Suggester
	creator   Creator
}

func NewService(suggester Suggester, creator Creator) *Service {
	return &Service{
		parsers: map[Bank]Parser{
			BankCGD: cgd.NewParser(),
		},
		suggester: suggester,
		creator:   creator,
	}
}

type Params struct {
	OwnerID   uuid.UUID
	AccountID uuid.UUID
	Bank      Bank
	File      io.Reader
}

// Import parses a statement, applies the owner's categorization rules and books
// every row as a paid transaction on the account. Nothing is created if any row
// fails, or if any row matches a transaction already booked from a statement:
// the result then lists the conflicts for the caller to resolve through Book.
func (s *Service) Import(ctx context.Context, params Params) (*transaction.ImportResult, error) {
	rows, err := s.Parse(params.Bank, params.File)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return &transaction.ImportResult{}, nil
	}

	matched := 0

	for i := range rows {
		rows[i].OwnerID = params.OwnerID
		rows[i].AccountID = params.AccountID
		rows[i].Notes = rows[i].Title

		ok, err := s.categorize(ctx, &rows[i])
		if err != nil {
			return nil, err
		}

		if ok {
			matched++
		}
	}

	result, err := s.creator.ImportBatch(ctx, rows)
	if err != nil {
		return nil, err
	}

	if len(result.Conflicts) > 0 {
		slog.InfoContext(ctx, "statement import has duplicates",
			"owner_id", params.OwnerID,
			"account_id", params.AccountID,
			"bank", params.Bank,
			"new", len(result.New),
			"conflicts", len(result.Conflicts),
		)

		return result, nil
	}

	slog.InfoContext(ctx, "statement imported",
		"owner_id", params.OwnerID,
		"account_id", params.AccountID,
		"bank", params.Bank,
		"rows", len(result.Imported),
		"matched", matched,
	)

	return result, nil
}

type BookParams struct {
	OwnerID   uuid.UUID
	AccountID uuid.UUID
	Rows      []transaction.CreateParams
}

// Book creates the statement rows the user kept after reviewing conflicts.
// Rows are booked as paid on the account without a duplicate check.
func (s *Service) Book(ctx context.Context, params BookParams) ([]*transaction.Transaction, error) {
	if len(params.Rows) == 0 {
		return nil, nil
	}

	rows := slices.Clone(params.Rows)
	for i := range rows {
		rows[i].OwnerID = params.OwnerID
		rows[i].AccountID = params.AccountID
		rows[i].Status = transaction.StatusPaid
	}

	txs, err := s.creator.CreateBatch(ctx, rows)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "statement rows booked",
		"owner_id", params.OwnerID,
		"account_id", params.AccountID,
		"rows", len(txs),
	)

	return txs, nil
}

// Banks lists the statement formats Import understands, sorted by name.
func (s *Service) Banks() []Bank {
	banks := slices.Collect(maps.Keys(s.parsers))
	slices.Sort(banks)

	return banks
}

// Parse reads a statement without touching the ledger.
func (s *Service) Parse(bank Bank, r io.Reader) ([]transaction.CreateParams, error) {
	parser, ok := s.parsers[bank]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBank, bank)
	}

	return parser.Parse(r)
}

// categorize swaps the raw statement text for the learned title and category.
func (s *Service) categorize(ctx context.Context, p *transaction.CreateParams) (bool, error) {
	rule, err := s.suggester.Suggest(ctx, p.OwnerID, p.Title)
	if err != nil {
		return false, fmt.Errorf("suggesting rule for %q: %w", p.Title, err)
	}

	if rule == nil {
		return false, nil
	}

	if rule.Title != "" {
		p.Title = rule.Title
	}

	if rule.CategoryID != nil {
		p.CategoryID = rule.CategoryID
	}

	return true, nil
}
