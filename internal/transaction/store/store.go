package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
	accountstore "github.com/MrJamesThe3rd/tally/internal/account/store"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Columns is the column list expected by Scan, in order.
const Columns = `
	t.id, t.owner_id, t.account_id, t.category_id, t.title, t.amount, t.type, t.status,
	t.date, t.due_date, t.installment_number, t.installment_total, t.installment_parent_id,
	t.recurrence_frequency, t.recurrence_end_date, t.template_id, t.tags, t.notes,
	t.created_at, t.updated_at
`

// Scan reads a transaction row selected with Columns.
func Scan(s accountstore.Scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr, statusStr string

	var instNumber, instTotal sql.NullInt32

	var instParent, templateID *uuid.UUID

	var frequency sql.NullString

	var recurrenceEnd *time.Time

	var tags []string

	if err := s.Scan(
		&tx.ID, &tx.OwnerID, &tx.AccountID, &tx.CategoryID, &tx.Title, &tx.Amount, &typeStr, &statusStr,
		&tx.Date, &tx.DueDate, &instNumber, &instTotal, &instParent,
		&frequency, &recurrenceEnd, &templateID, pgtype.NewMap().SQLScanner(&tags), &tx.Notes,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Status = transaction.Status(statusStr)
	tx.Tags = tags

	if instNumber.Valid && instTotal.Valid {
		tx.Installment = &transaction.Installment{
			Number:   int(instNumber.Int32),
			Total:    int(instTotal.Int32),
			ParentID: instParent,
		}
	}

	if frequency.Valid {
		tx.Recurrence = &transaction.Recurrence{
			Frequency:  calendar.Frequency(frequency.String),
			EndDate:    recurrenceEnd,
			TemplateID: templateID,
		}
	}

	return &tx, nil
}

// row flattens the optional parts of a transaction into column values.
type row struct {
	instNumber, instTotal *int
	instParent            *uuid.UUID
	frequency             *string
	recurrenceEnd         *time.Time
	templateID            *uuid.UUID
	tags                  []string
}

func flatten(tx *transaction.Transaction) row {
	r := row{tags: tx.Tags}
	if r.tags == nil {
		r.tags = []string{}
	}

	if inst := tx.Installment; inst != nil {
		r.instNumber = new(inst.Number)
		r.instTotal = new(inst.Total)
		r.instParent = inst.ParentID
	}

	if rec := tx.Recurrence; rec != nil {
		r.frequency = new(string(rec.Frequency))
		r.recurrenceEnd = rec.EndDate
		r.templateID = rec.TemplateID
	}

	return r
}

func (s *Store) GetTransaction(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + Columns + `
		FROM transactions t
		WHERE t.id = $1 AND t.owner_id = $2`

	tx, err := Scan(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// ListTransactions filters on stored columns only. The service filters by
// effective status after resolving it.
func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + Columns + `
		FROM transactions t
		WHERE t.owner_id = $1`

	args := []any{filter.OwnerID}

	argIdx := 2

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND t.account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	if filter.TemplateID != nil {
		query += fmt.Sprintf(" AND t.template_id = $%d", argIdx)

		args = append(args, *filter.TemplateID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND t.date >= $%d", argIdx)

		args = append(args, calendar.Day(*filter.StartDate))
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND t.date <= $%d", argIdx)

		args = append(args, calendar.Day(*filter.EndDate))
	}

	query += " ORDER BY t.date DESC, t.created_at DESC, t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func sweepLockKey(ownerID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("sweep"))
	h.Write([]byte{0})
	h.Write(ownerID[:])

	return int64(h.Sum64())
}

// MarkOverdue flips the owner's pending rows dated before asOf to overdue.
// Concurrent sweeps for one owner are serialized with an advisory lock.
func (s *Store) MarkOverdue(ctx context.Context, ownerID uuid.UUID, asOf time.Time) (int64, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning sweep: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", sweepLockKey(ownerID)); err != nil {
		return 0, fmt.Errorf("acquiring sweep lock: %w", err)
	}

	query := `
		UPDATE transactions
		SET status = 'overdue', updated_at = NOW()
		WHERE owner_id = $1 AND status = 'pending' AND date < $2
	`

	res, err := dbTx.ExecContext(ctx, query, ownerID, calendar.Day(asOf))
	if err != nil {
		return 0, fmt.Errorf("marking overdue: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting overdue: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing sweep: %w", err)
	}

	return n, nil
}

func (s *Store) Begin(ctx context.Context) (transaction.UnitOfWork, error) {
	uow, err := s.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	return uow, nil
}

// BeginTx is Begin with the concrete type, for stores that extend the unit of work.
func (s *Store) BeginTx(ctx context.Context) (*UnitOfWork, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &UnitOfWork{Tx: dbTx}, nil
}

// UnitOfWork runs every statement on one database transaction. Rows returned
// by the Lock methods stay locked (FOR UPDATE) until Commit or Rollback.
type UnitOfWork struct {
	Tx *sql.Tx
}

func (u *UnitOfWork) Commit() error   { return u.Tx.Commit() }
func (u *UnitOfWork) Rollback() error { return u.Tx.Rollback() }

func (u *UnitOfWork) LockAccount(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountstore.Columns + `
		FROM accounts a
		WHERE a.id = $1 AND a.owner_id = $2
		FOR UPDATE`

	acc, err := accountstore.Scan(u.Tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	return acc, nil
}

func (u *UnitOfWork) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET current_balance = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := u.Tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("setting account balance: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.ErrNotFound
	}

	return nil
}

func (u *UnitOfWork) LockTransaction(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + Columns + `
		FROM transactions t
		WHERE t.id = $1 AND t.owner_id = $2
		FOR UPDATE`

	tx, err := Scan(u.Tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("locking transaction: %w", err)
	}

	return tx, nil
}

func (u *UnitOfWork) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			owner_id, account_id, category_id, title, amount, type, status, date, due_date,
			installment_number, installment_total, installment_parent_id,
			recurrence_frequency, recurrence_end_date, template_id, tags, notes, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		RETURNING id, created_at
	`

	for _, tx := range txs {
		r := flatten(tx)

		err := u.Tx.QueryRowContext(ctx, query,
			tx.OwnerID,
			tx.AccountID,
			tx.CategoryID,
			tx.Title,
			tx.Amount,
			tx.Type,
			tx.Status,
			tx.Date,
			tx.DueDate,
			r.instNumber,
			r.instTotal,
			r.instParent,
			r.frequency,
			r.recurrenceEnd,
			r.templateID,
			r.tags,
			tx.Notes,
		).Scan(&tx.ID, &tx.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}

func (u *UnitOfWork) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1, category_id = $2, title = $3, amount = $4, type = $5, status = $6,
			date = $7, due_date = $8, installment_number = $9, installment_total = $10,
			installment_parent_id = $11, recurrence_frequency = $12, recurrence_end_date = $13,
			template_id = $14, tags = $15, notes = $16, updated_at = NOW()
		WHERE id = $17 AND owner_id = $18
		RETURNING updated_at
	`

	r := flatten(tx)

	err := u.Tx.QueryRowContext(ctx, query,
		tx.AccountID,
		tx.CategoryID,
		tx.Title,
		tx.Amount,
		tx.Type,
		tx.Status,
		tx.Date,
		tx.DueDate,
		r.instNumber,
		r.instTotal,
		r.instParent,
		r.frequency,
		r.recurrenceEnd,
		r.templateID,
		r.tags,
		tx.Notes,
		tx.ID,
		tx.OwnerID,
	).Scan(&tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transaction.ErrNotFound
		}

		return fmt.Errorf("updating transaction: %w", err)
	}

	return nil
}

// DeleteTransaction removes the row. Installments that referenced it keep
// their number and total but lose the parent link.
func (u *UnitOfWork) DeleteTransaction(ctx context.Context, ownerID, id uuid.UUID) error {
	res, err := u.Tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func (u *UnitOfWork) CategoryExists(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND owner_id = $2)`
	if err := u.Tx.QueryRowContext(ctx, query, id, ownerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category: %w", err)
	}

	return exists, nil
}

func (u *UnitOfWork) SumPaid(ctx context.Context, ownerID, accountID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE owner_id = $1 AND account_id = $2 AND status = 'paid'
	`

	var sum decimal.Decimal
	if err := u.Tx.QueryRowContext(ctx, query, ownerID, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing paid transactions: %w", err)
	}

	return sum, nil
}

// FindDuplicates narrows by account and date range in SQL and matches the
// statement keys in Go.
func (u *UnitOfWork) FindDuplicates(ctx context.Context, ownerID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	keys := make(map[transaction.StatementKey]struct{}, len(params))
	accountIDs := make([]string, 0, len(params))
	minDate, maxDate := params[0].Date, params[0].Date

	for _, p := range params {
		keys[p.StatementKey()] = struct{}{}
		accountIDs = append(accountIDs, p.AccountID.String())

		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	query := `SELECT ` + Columns + `
		FROM transactions t
		WHERE t.owner_id = $1 AND t.account_id = ANY($2::uuid[]) AND t.date BETWEEN $3 AND $4
		ORDER BY t.date ASC`

	rows, err := u.Tx.QueryContext(ctx, query, ownerID, accountIDs,
		calendar.Day(minDate), calendar.Day(maxDate))
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, ok := keys[tx.StatementKey()]; ok {
			duplicates = append(duplicates, tx)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

var _ transaction.Repository = (*Store)(nil)
