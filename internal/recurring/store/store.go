package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	accountstore "github.com/MrJamesThe3rd/tally/internal/account/store"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txstore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

type Store struct {
	db  *sql.DB
	txs *txstore.Store
}

func New(db *sql.DB) *Store {
	return &Store{db: db, txs: txstore.New(db)}
}

const columns = `
	r.id, r.owner_id, r.account_id, r.category_id, r.title, r.amount, r.type, r.tags, r.notes,
	r.frequency, r.start_date, r.end_date, r.next_occurrence, r.active, r.created_at, r.updated_at
`

func scanTemplate(s accountstore.Scanner) (*recurring.Template, error) {
	var t recurring.Template

	var typeStr, freqStr string

	var tags []string

	if err := s.Scan(
		&t.ID, &t.OwnerID, &t.AccountID, &t.CategoryID, &t.Title, &t.Amount, &typeStr,
		pgtype.NewMap().SQLScanner(&tags), &t.Notes,
		&freqStr, &t.StartDate, &t.EndDate, &t.NextOccurrence, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Type = transaction.Type(typeStr)
	t.Frequency = calendar.Frequency(freqStr)
	t.Tags = tags

	return &t, nil
}

func (s *Store) GetTemplate(ctx context.Context, ownerID, id uuid.UUID) (*recurring.Template, error) {
	query := `SELECT ` + columns + ` FROM recurring_templates r WHERE r.id = $1 AND r.owner_id = $2`

	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recurring.ErrNotFound
		}

		return nil, fmt.Errorf("getting template: %w", err)
	}

	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*recurring.Template, error) {
	query := `SELECT ` + columns + `
		FROM recurring_templates r
		WHERE r.owner_id = $1 AND ($2 = FALSE OR r.active)
		ORDER BY r.next_occurrence ASC, r.title ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var ts []*recurring.Template

	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}

		ts = append(ts, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template rows: %w", err)
	}

	return ts, nil
}

func (s *Store) Begin(ctx context.Context) (recurring.Tx, error) {
	uow, err := s.txs.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	return &tx{UnitOfWork: uow}, nil
}

// tx extends the transaction unit of work with template row locking.
type tx struct {
	*txstore.UnitOfWork
}

func (t *tx) CreateTemplate(ctx context.Context, tmpl *recurring.Template) error {
	query := `
		INSERT INTO recurring_templates (
			owner_id, account_id, category_id, title, amount, type, tags, notes,
			frequency, start_date, end_date, next_occurrence, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`

	tags := tmpl.Tags
	if tags == nil {
		tags = []string{}
	}

	err := t.Tx.QueryRowContext(ctx, query,
		tmpl.OwnerID,
		tmpl.AccountID,
		tmpl.CategoryID,
		tmpl.Title,
		tmpl.Amount,
		tmpl.Type,
		tags,
		tmpl.Notes,
		tmpl.Frequency,
		tmpl.StartDate,
		tmpl.EndDate,
		tmpl.NextOccurrence,
		tmpl.Active,
	).Scan(&tmpl.ID, &tmpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating template: %w", err)
	}

	return nil
}

func (t *tx) LockTemplate(ctx context.Context, ownerID, id uuid.UUID) (*recurring.Template, error) {
	query := `SELECT ` + columns + `
		FROM recurring_templates r
		WHERE r.id = $1 AND r.owner_id = $2
		FOR UPDATE`

	tmpl, err := scanTemplate(t.Tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recurring.ErrNotFound
		}

		return nil, fmt.Errorf("locking template: %w", err)
	}

	return tmpl, nil
}

func (t *tx) UpdateTemplate(ctx context.Context, tmpl *recurring.Template) error {
	query := `
		UPDATE recurring_templates
		SET next_occurrence = $1, active = $2, updated_at = NOW()
		WHERE id = $3 AND owner_id = $4
		RETURNING updated_at
	`

	err := t.Tx.QueryRowContext(ctx, query, tmpl.NextOccurrence, tmpl.Active, tmpl.ID, tmpl.OwnerID).Scan(&tmpl.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recurring.ErrNotFound
		}

		return fmt.Errorf("updating template: %w", err)
	}

	return nil
}

var _ recurring.Repository = (*Store)(nil)
