package transaction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/clock"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	Begin(ctx context.Context) (UnitOfWork, error)
	GetTransaction(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	MarkOverdue(ctx context.Context, ownerID uuid.UUID, asOf time.Time) (int64, error)
}

// Ledger gives the lifecycle access to account balances. A locked account
// stays locked until the unit of work that locked it ends.
type Ledger interface {
	LockAccount(ctx context.Context, ownerID, id uuid.UUID) (*account.Account, error)
	SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// UnitOfWork is one atomic database transaction. Nothing written through it
// is visible to others until Commit; Rollback after Commit is a no-op.
type UnitOfWork interface {
	Ledger

	LockTransaction(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, ownerID, id uuid.UUID) error
	CategoryExists(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	SumPaid(ctx context.Context, ownerID, accountID uuid.UUID) (decimal.Decimal, error)

	// FindDuplicates returns the owner's transactions whose StatementKey
	// matches one of params.
	FindDuplicates(ctx context.Context, ownerID uuid.UUID, params []CreateParams) ([]*Transaction, error)

	Commit() error
	Rollback() error
}

const defaultLookaheadMonths = 12

type Service struct {
	repo      Repository
	clock     clock.Clock
	publisher Publisher
	lookahead int
}

type Option func(*Service)

// WithPublisher sends lifecycle events to p after each successful commit.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLookahead sets how many months of an open-ended inline recurrence are
// materialized at creation time.
func WithLookahead(months int) Option {
	return func(s *Service) {
		if months > 0 {
			s.lookahead = months
		}
	}
}

func NewService(repo Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		clock:     clk,
		publisher: nopPublisher{},
		lookahead: defaultLookaheadMonths,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	OwnerID    uuid.UUID
	AccountID  uuid.UUID
	CategoryID *uuid.UUID
	Title      string
	Amount     decimal.Decimal
	Type       Type
	Status     Status // paid or pending; empty means pending
	Date       time.Time
	DueDate    *time.Time
	Tags       []string
	Notes      string

	// Installments > 1 splits the new transaction right after creating it.
	Installments int

	// Recurrence without a TemplateID materializes the series up to
	// Recurrence.EndDate, or the look-ahead window when that is nil.
	Recurrence *Recurrence
}

// UpdateParams is a patch: nil fields are left unchanged.
type UpdateParams struct {
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	Title      *string
	Amount     *decimal.Decimal
	Type       *Type
	Status     *Status
	Date       *time.Time
	DueDate    *time.Time
	Tags       []string
	Notes      *string
}

type ListFilter struct {
	OwnerID    uuid.UUID
	AccountID  *uuid.UUID
	Status     *Status
	StartDate  *time.Time
	EndDate    *time.Time
	TemplateID *uuid.UUID
}

// Reconciliation compares an account's stored balance with the balance its
// paid transactions imply.
type Reconciliation struct {
	AccountID uuid.UUID
	Stored    decimal.Decimal
	Expected  decimal.Decimal
}

func (r Reconciliation) Balanced() bool {
	return r.Stored.Equal(r.Expected)
}

// Create persists a new transaction and, when it is paid, applies it to its
// account. The returned transaction is the one described by params; any
// installments or recurring copies created alongside it are persisted too.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	var created []*Transaction

	err := s.within(ctx, func(uow UnitOfWork) error {
		var err error
		created, err = s.create(ctx, uow, params)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.Notify(ctx, EventCreated, created...)

	return created[0], nil
}

// CreateBatch creates every transaction in params in a single unit of work.
// Either all of them are created or none are.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	var created []*Transaction

	err := s.within(ctx, func(uow UnitOfWork) error {
		for i, p := range params {
			txs, err := s.create(ctx, uow, p)
			if err != nil {
				return fmt.Errorf("creating transaction %d: %w", i, err)
			}

			created = append(created, txs...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notify(ctx, EventCreated, created...)

	return created, nil
}

// CreateIn runs the create path inside a unit of work owned by the caller.
// The caller commits and is responsible for calling Notify afterwards.
func (s *Service) CreateIn(ctx context.Context, uow UnitOfWork, params CreateParams) ([]*Transaction, error) {
	return s.create(ctx, uow, params)
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	resolve(tx, s.clock.Today())

	return tx, nil
}

// List returns the owner's transactions with their effective status as of today.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	for _, tx := range txs {
		resolve(tx, today)
	}

	if filter.Status != nil {
		txs = slices.DeleteFunc(txs, func(tx *Transaction) bool { return tx.Status != *filter.Status })
	}

	return txs, nil
}

// Update patches a transaction. A paid transaction is reverted with its old
// values and reapplied with its new ones, even when the account changes.
func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, patch UpdateParams) (*Transaction, error) {
	var updated *Transaction

	err := s.within(ctx, func(uow UnitOfWork) error {
		old, err := uow.LockTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}

		updated = old.Clone()
		if err := patch.applyTo(updated); err != nil {
			return err
		}

		if updated.Installment != nil && updated.AccountID != old.AccountID {
			return fmt.Errorf("%w: installment %d/%d must stay on account %s",
				ErrAccountMismatch, old.Installment.Number, old.Installment.Total, old.AccountID)
		}

		return s.replace(ctx, uow, old, updated, true)
	})
	if err != nil {
		return nil, err
	}

	s.Notify(ctx, EventUpdated, updated)

	return updated, nil
}

// Delete reverts a paid transaction's effect and removes it.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var deleted *Transaction

	err := s.within(ctx, func(uow UnitOfWork) error {
		old, err := uow.LockTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if _, err := s.lockAccounts(ctx, uow, ownerID, old.AccountID); err != nil {
			return err
		}

		if old.IsPaid() {
			if err := s.post(ctx, uow, old, Revert); err != nil {
				return err
			}
		}

		deleted = old

		return uow.DeleteTransaction(ctx, ownerID, id)
	})
	if err != nil {
		return err
	}

	s.Notify(ctx, EventDeleted, deleted)

	return nil
}

// MarkPaid settles a transaction. Marking a paid transaction again is a no-op.
func (s *Service) MarkPaid(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error) {
	return s.setRecorded(ctx, ownerID, id, StatusPaid)
}

// MarkPending reopens a paid transaction and reverts its effect. The stored
// status becomes pending; whether it is overdue is decided on read or by the
// next sweep.
func (s *Service) MarkPending(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error) {
	return s.setRecorded(ctx, ownerID, id, StatusPending)
}

func (s *Service) setRecorded(ctx context.Context, ownerID, id uuid.UUID, status Status) (*Transaction, error) {
	var (
		result  *Transaction
		changed bool
	)

	err := s.within(ctx, func(uow UnitOfWork) error {
		old, err := uow.LockTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if old.Recorded() == status {
			result = old
			return nil
		}

		result = old.Clone()
		result.Status = status
		changed = true

		return s.replace(ctx, uow, old, result, status == StatusPaid)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		kind := EventPaid
		if status == StatusPending {
			kind = EventPending
		}

		s.Notify(ctx, kind, result)
	}

	view := result.Clone()
	resolve(view, s.clock.Today())

	return view, nil
}

// Split turns a transaction into the first of total monthly installments and
// creates the remaining ones.
func (s *Service) Split(ctx context.Context, ownerID, id uuid.UUID, total int) (*Transaction, []*Transaction, error) {
	var (
		parent   *Transaction
		children []*Transaction
	)

	err := s.within(ctx, func(uow UnitOfWork) error {
		old, err := uow.LockTransaction(ctx, ownerID, id)
		if err != nil {
			return err
		}

		parent, children, err = s.split(ctx, uow, old, total)

		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if len(children) > 0 {
		s.Notify(ctx, EventUpdated, parent)
		s.Notify(ctx, EventCreated, children...)
	}

	return parent, children, nil
}

// SweepOverdue marks every pending transaction of the owner dated before asOf
// as overdue. It never touches balances and repeating it changes nothing.
// A zero asOf means today.
func (s *Service) SweepOverdue(ctx context.Context, ownerID uuid.UUID, asOf time.Time) (int64, error) {
	if asOf.IsZero() {
		asOf = s.clock.Today()
	}

	n, err := s.repo.MarkOverdue(ctx, ownerID, calendar.Day(asOf))
	if err != nil {
		return 0, fmt.Errorf("sweeping overdue transactions: %w", err)
	}

	slog.InfoContext(ctx, "overdue sweep complete",
		"owner_id", ownerID,
		"as_of", asOf.Format(time.DateOnly),
		"marked", n)

	return n, nil
}

// Reconcile recomputes an account's balance from its paid transactions.
func (s *Service) Reconcile(ctx context.Context, ownerID, accountID uuid.UUID) (Reconciliation, error) {
	var rec Reconciliation

	err := s.within(ctx, func(uow UnitOfWork) error {
		accs, err := s.lockAccounts(ctx, uow, ownerID, accountID)
		if err != nil {
			return err
		}

		sum, err := uow.SumPaid(ctx, ownerID, accountID)
		if err != nil {
			return fmt.Errorf("summing paid transactions: %w", err)
		}

		acc := accs[accountID]
		rec = Reconciliation{
			AccountID: accountID,
			Stored:    acc.Balance,
			Expected:  acc.OpeningBalance.Add(sum),
		}

		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}

	return rec, nil
}

// Notify publishes one event per transaction. Failures are logged: by the time
// events are sent the change is already committed.
func (s *Service) Notify(ctx context.Context, kind EventKind, txs ...*Transaction) {
	now := time.Now().UTC()

	for _, tx := range txs {
		ev := Event{Kind: kind, OwnerID: tx.OwnerID, Transaction: tx, OccurredAt: now}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to publish transaction event",
				"kind", kind,
				"transaction_id", tx.ID,
				"error", err)
		}
	}
}

func (s *Service) within(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning unit of work: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("committing unit of work: %w", err)
	}

	return nil
}

func (s *Service) create(ctx context.Context, uow UnitOfWork, p CreateParams) ([]*Transaction, error) {
	if p.Installments < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInstallmentCount, p.Installments)
	}

	if p.Installments > 1 && p.Recurrence != nil {
		return nil, fmt.Errorf("%w: recurring transactions cannot be split", ErrInvalidInstallmentCount)
	}

	origin, err := p.build()
	if err != nil {
		return nil, err
	}

	if err := s.insert(ctx, uow, origin); err != nil {
		return nil, err
	}

	switch {
	case p.Installments > 1:
		parent, children, err := s.split(ctx, uow, origin, p.Installments)
		if err != nil {
			return nil, err
		}

		return append([]*Transaction{parent}, children...), nil

	case origin.Recurrence != nil && origin.Recurrence.TemplateID == nil:
		series, err := s.expand(origin)
		if err != nil {
			return nil, err
		}

		if err := s.insert(ctx, uow, series...); err != nil {
			return nil, err
		}

		return append([]*Transaction{origin}, series...), nil
	}

	return []*Transaction{origin}, nil
}

// insert is the single entry point for new transactions: it validates,
// resolves status, persists and applies the effect of paid ones.
func (s *Service) insert(ctx context.Context, uow UnitOfWork, txs ...*Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	today := s.clock.Today()
	ownerID := txs[0].OwnerID
	accountIDs := make([]uuid.UUID, 0, len(txs))

	for _, tx := range txs {
		if tx.OwnerID != ownerID {
			return fmt.Errorf("%w: mixed owners in one insert", ErrInvalidTransaction)
		}

		normalize(tx)

		if err := tx.validate(); err != nil {
			return err
		}

		if err := s.checkCategory(ctx, uow, tx); err != nil {
			return err
		}

		resolve(tx, today)

		accountIDs = append(accountIDs, tx.AccountID)
	}

	accs, err := s.lockAccounts(ctx, uow, ownerID, accountIDs...)
	if err != nil {
		return err
	}

	for _, acc := range accs {
		if !acc.Active {
			return fmt.Errorf("%w: account %s is inactive", ErrAccountMismatch, acc.ID)
		}
	}

	if err := uow.CreateTransactions(ctx, txs); err != nil {
		return fmt.Errorf("creating transactions: %w", err)
	}

	for _, tx := range txs {
		if !tx.IsPaid() {
			continue
		}

		if err := s.post(ctx, uow, tx, Apply); err != nil {
			return err
		}
	}

	return nil
}

// replace swaps old for updated: revert old if paid, persist, apply updated
// if paid. Both accounts are locked first.
func (s *Service) replace(ctx context.Context, uow UnitOfWork, old, updated *Transaction, resolveStatus bool) error {
	normalize(updated)

	if err := updated.validate(); err != nil {
		return err
	}

	if !sameID(old.CategoryID, updated.CategoryID) {
		if err := s.checkCategory(ctx, uow, updated); err != nil {
			return err
		}
	}

	if resolveStatus {
		resolve(updated, s.clock.Today())
	}

	accs, err := s.lockAccounts(ctx, uow, old.OwnerID, old.AccountID, updated.AccountID)
	if err != nil {
		return err
	}

	if updated.AccountID != old.AccountID && !accs[updated.AccountID].Active {
		return fmt.Errorf("%w: account %s is inactive", ErrAccountMismatch, updated.AccountID)
	}

	if old.IsPaid() {
		if err := s.post(ctx, uow, old, Revert); err != nil {
			return err
		}
	}

	if err := uow.UpdateTransaction(ctx, updated); err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	if updated.IsPaid() {
		if err := s.post(ctx, uow, updated, Apply); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) split(ctx context.Context, uow UnitOfWork, old *Transaction, total int) (*Transaction, []*Transaction, error) {
	parent, children, err := Split(old, total)
	if err != nil {
		return nil, nil, err
	}

	if len(children) == 0 {
		return parent, nil, nil
	}

	if err := s.replace(ctx, uow, old, parent, true); err != nil {
		return nil, nil, err
	}

	if err := s.insert(ctx, uow, children...); err != nil {
		return nil, nil, err
	}

	return parent, children, nil
}

// expand lists the future copies of an inline recurring transaction.
func (s *Service) expand(origin *Transaction) ([]*Transaction, error) {
	rec := origin.Recurrence

	end := calendar.AddMonths(origin.Date, s.lookahead)
	if rec.EndDate != nil {
		end = calendar.Day(*rec.EndDate)
		if end.Before(origin.Date) {
			return nil, fmt.Errorf("%w: recurrence ends %s, before %s",
				ErrInvalidTransaction, end.Format(time.DateOnly), origin.Date.Format(time.DateOnly))
		}
	}

	dates := calendar.Window(origin.Date, end, rec.Frequency)
	series := make([]*Transaction, 0, len(dates))

	for _, d := range dates {
		tx := origin.Clone()
		tx.ID = uuid.Nil
		tx.CreatedAt = time.Time{}
		tx.UpdatedAt = nil
		tx.Status = StatusPending
		tx.Date = d
		tx.DueDate = nil

		series = append(series, tx)
	}

	return series, nil
}

// post applies or reverts tx on its (already locked) account.
func (s *Service) post(ctx context.Context, uow UnitOfWork, tx *Transaction, mode Mode) error {
	acc, err := uow.LockAccount(ctx, tx.OwnerID, tx.AccountID)
	if err != nil {
		return accountErr(err, tx.AccountID)
	}

	balance := ApplyEffect(acc.Balance, tx.Amount, tx.Type, mode)
	if err := uow.SetAccountBalance(ctx, acc.ID, balance); err != nil {
		return fmt.Errorf("setting balance of account %s: %w", acc.ID, err)
	}

	return nil
}

// lockAccounts locks each distinct account once, in ascending id order, so two
// operations touching the same pair of accounts cannot deadlock.
func (s *Service) lockAccounts(ctx context.Context, uow UnitOfWork, ownerID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]*account.Account, error) {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	accs := make(map[uuid.UUID]*account.Account, len(ids))

	for _, id := range ids {
		acc, err := uow.LockAccount(ctx, ownerID, id)
		if err != nil {
			return nil, accountErr(err, id)
		}

		accs[id] = acc
	}

	return accs, nil
}

func (s *Service) checkCategory(ctx context.Context, uow UnitOfWork, tx *Transaction) error {
	if tx.CategoryID == nil {
		return nil
	}

	ok, err := uow.CategoryExists(ctx, tx.OwnerID, *tx.CategoryID)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: category %s", ErrNotFound, *tx.CategoryID)
	}

	return nil
}

func accountErr(err error, id uuid.UUID) error {
	if errors.Is(err, account.ErrNotFound) {
		return fmt.Errorf("%w: account %s", ErrNotFound, id)
	}

	return fmt.Errorf("locking account %s: %w", id, err)
}

// recordable reports whether s may be written by a caller. Overdue is only
// ever derived from the date.
func recordable(s Status) error {
	if s != StatusPaid && s != StatusPending {
		return fmt.Errorf("%w: status %q cannot be recorded, want paid or pending", ErrInvalidTransaction, s)
	}

	return nil
}

func (p CreateParams) build() (*Transaction, error) {
	status := StatusPending
	if p.Status != "" {
		if err := recordable(p.Status); err != nil {
			return nil, err
		}

		status = p.Status
	}

	tx := &Transaction{
		OwnerID:    p.OwnerID,
		AccountID:  p.AccountID,
		CategoryID: p.CategoryID,
		Title:      p.Title,
		Amount:     p.Amount,
		Type:       p.Type,
		Status:     status,
		Date:       p.Date,
		DueDate:    p.DueDate,
		Tags:       append([]string(nil), p.Tags...),
		Notes:      p.Notes,
	}

	if p.Recurrence != nil {
		rec := *p.Recurrence
		tx.Recurrence = &rec
	}

	return tx, nil
}

func (p UpdateParams) applyTo(tx *Transaction) error {
	if p.Status != nil {
		if err := recordable(*p.Status); err != nil {
			return err
		}

		tx.Status = *p.Status
	}

	if p.AccountID != nil {
		tx.AccountID = *p.AccountID
	}

	if p.CategoryID != nil {
		tx.CategoryID = new(*p.CategoryID)
	}

	if p.Title != nil {
		tx.Title = *p.Title
	}

	if p.Amount != nil {
		tx.Amount = *p.Amount
	}

	if p.Type != nil {
		tx.Type = *p.Type
	}

	if p.Date != nil {
		tx.Date = *p.Date
	}

	if p.DueDate != nil {
		tx.DueDate = new(*p.DueDate)
	}

	if p.Tags != nil {
		tx.Tags = append([]string(nil), p.Tags...)
	}

	if p.Notes != nil {
		tx.Notes = *p.Notes
	}

	return nil
}

func normalize(tx *Transaction) {
	tx.Date = calendar.Day(tx.Date)

	if tx.DueDate != nil {
		tx.DueDate = new(calendar.Day(*tx.DueDate))
	}

	if tx.Status == StatusOverdue {
		tx.Status = StatusPending
	}
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
