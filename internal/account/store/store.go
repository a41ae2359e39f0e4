package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/account"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Scanner is satisfied by both *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Columns is the column list expected by Scan, in order.
const Columns = `a.id, a.owner_id, a.name, a.type, a.opening_balance, a.current_balance, a.active, a.created_at, a.updated_at`

// Scan reads an account row selected with Columns.
func Scan(s Scanner) (*account.Account, error) {
	var acc account.Account

	var typeStr string

	if err := s.Scan(
		&acc.ID, &acc.OwnerID, &acc.Name, &typeStr,
		&acc.OpeningBalance, &acc.Balance, &acc.Active,
		&acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Type = account.Type(typeStr)

	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (owner_id, name, type, opening_balance, current_balance, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		acc.OwnerID,
		acc.Name,
		acc.Type,
		acc.OpeningBalance,
		acc.Balance,
		acc.Active,
	).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + Columns + ` FROM accounts a WHERE a.id = $1 AND a.owner_id = $2`

	acc, err := Scan(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	query := `SELECT ` + Columns + ` FROM accounts a WHERE a.owner_id = $1 ORDER BY a.name ASC`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accs []*account.Account

	for rows.Next() {
		acc, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accs = append(accs, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rows: %w", err)
	}

	return accs, nil
}

func (s *Store) SetAccountActive(ctx context.Context, ownerID, id uuid.UUID, active bool) error {
	query := `
		UPDATE accounts
		SET active = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3
	`

	res, err := s.db.ExecContext(ctx, query, active, id, ownerID)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrNotFound
	}

	return nil
}
