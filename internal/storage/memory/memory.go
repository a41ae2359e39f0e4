// Package memory is an in-process backend for every ledger port. State lives
// in maps guarded by one mutex. A unit of work takes the mutex, works on a
// private copy of the state and swaps it in on Commit, so an aborted unit of
// work leaves nothing behind.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var errFinished = errors.New("unit of work already finished")

type category struct {
	ownerID uuid.UUID
	name    string
}

type state struct {
	accounts     map[uuid.UUID]*account.Account
	categories   map[uuid.UUID]category
	transactions map[uuid.UUID]*transaction.Transaction
	templates    map[uuid.UUID]*recurring.Template
	rules        []*matching.Rule
}

func newState() *state {
	return &state{
		accounts:     make(map[uuid.UUID]*account.Account),
		categories:   make(map[uuid.UUID]category),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
		templates:    make(map[uuid.UUID]*recurring.Template),
	}
}

func (s *state) clone() *state {
	c := newState()

	for id, acc := range s.accounts {
		a := *acc
		c.accounts[id] = &a
	}

	for id, cat := range s.categories {
		c.categories[id] = cat
	}

	for id, tx := range s.transactions {
		c.transactions[id] = tx.Clone()
	}

	for id, t := range s.templates {
		c.templates[id] = t.Clone()
	}

	c.rules = slices.Clone(s.rules)

	return c
}

// Store holds the shared state. Use the Accounts, Transactions, Templates and
// Rules views to get a repository for each domain.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// AddCategory registers a category for the owner and returns its id.
func (s *Store) AddCategory(ownerID uuid.UUID, name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.st.categories[id] = category{ownerID: ownerID, name: name}

	return id
}

func (s *Store) Accounts() *AccountRepo         { return &AccountRepo{s} }
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s} }
func (s *Store) Templates() *TemplateRepo       { return &TemplateRepo{s} }
func (s *Store) Rules() *RuleRepo               { return &RuleRepo{s} }

func (s *Store) begin() *unitOfWork {
	s.mu.Lock()
	return &unitOfWork{store: s, st: s.st.clone()}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.st)
}

type AccountRepo struct{ s *Store }

func (r *AccountRepo) CreateAccount(_ context.Context, acc *account.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc.ID = uuid.New()
	acc.CreatedAt = r.s.now()

	c := *acc
	r.s.st.accounts[acc.ID] = &c

	return nil
}

func (r *AccountRepo) GetAccount(_ context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	var (
		acc *account.Account
		err error
	)

	r.s.read(func(st *state) {
		acc, err = st.account(ownerID, id)
	})

	return acc, err
}

func (r *AccountRepo) ListAccounts(_ context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var accs []*account.Account

	r.s.read(func(st *state) {
		for _, acc := range st.accounts {
			if acc.OwnerID == ownerID {
				c := *acc
				accs = append(accs, &c)
			}
		}
	})

	slices.SortFunc(accs, func(a, b *account.Account) int { return strings.Compare(a.Name, b.Name) })

	return accs, nil
}

func (r *AccountRepo) SetAccountActive(_ context.Context, ownerID, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc, ok := r.s.st.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return account.ErrNotFound
	}

	acc.Active = active
	acc.UpdatedAt = new(r.s.now())

	return nil
}

type TransactionRepo struct{ s *Store }

func (r *TransactionRepo) Begin(context.Context) (transaction.UnitOfWork, error) {
	return r.s.begin(), nil
}

func (r *TransactionRepo) GetTransaction(_ context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	var (
		tx  *transaction.Transaction
		err error
	)

	r.s.read(func(st *state) {
		tx, err = st.transaction(ownerID, id)
	})

	return tx, err
}

// ListTransactions returns matching transactions, newest first.
func (r *TransactionRepo) ListTransactions(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction

	r.s.read(func(st *state) {
		for _, tx := range st.transactions {
			if matchesFilter(tx, filter) {
				txs = append(txs, tx.Clone())
			}
		}
	})

	slices.SortFunc(txs, func(a, b *transaction.Transaction) int {
		return cmp.Or(
			b.Date.Compare(a.Date),
			b.CreatedAt.Compare(a.CreatedAt),
			strings.Compare(a.ID.String(), b.ID.String()),
		)
	})

	return txs, nil
}

func (r *TransactionRepo) MarkOverdue(_ context.Context, ownerID uuid.UUID, asOf time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64

	now := r.s.now()
	cutoff := calendar.Day(asOf)

	for _, tx := range r.s.st.transactions {
		if tx.OwnerID != ownerID || tx.Status != transaction.StatusPending || !tx.Date.Before(cutoff) {
			continue
		}

		tx.Status = transaction.StatusOverdue
		tx.UpdatedAt = new(now)
		n++
	}

	return n, nil
}

func matchesFilter(tx *transaction.Transaction, f transaction.ListFilter) bool {
	if tx.OwnerID != f.OwnerID {
		return false
	}

	if f.AccountID != nil && tx.AccountID != *f.AccountID {
		return false
	}

	if f.StartDate != nil && tx.Date.Before(calendar.Day(*f.StartDate)) {
		return false
	}

	if f.EndDate != nil && tx.Date.After(calendar.Day(*f.EndDate)) {
		return false
	}

	if f.TemplateID != nil && (tx.Recurrence == nil || tx.Recurrence.TemplateID == nil || *tx.Recurrence.TemplateID != *f.TemplateID) {
		return false
	}

	return true
}

type TemplateRepo struct{ s *Store }

func (r *TemplateRepo) Begin(context.Context) (recurring.Tx, error) {
	return r.s.begin(), nil
}

func (r *TemplateRepo) GetTemplate(_ context.Context, ownerID, id uuid.UUID) (*recurring.Template, error) {
	var (
		t   *recurring.Template
		err error
	)

	r.s.read(func(st *state) {
		t, err = st.template(ownerID, id)
	})

	return t, err
}

func (r *TemplateRepo) ListTemplates(_ context.Context, ownerID uuid.UUID, activeOnly bool) ([]*recurring.Template, error) {
	var ts []*recurring.Template

	r.s.read(func(st *state) {
		for _, t := range st.templates {
			if t.OwnerID == ownerID && (!activeOnly || t.Active) {
				ts = append(ts, t.Clone())
			}
		}
	})

	slices.SortFunc(ts, func(a, b *recurring.Template) int {
		return cmp.Or(a.NextOccurrence.Compare(b.NextOccurrence), strings.Compare(a.Title, b.Title))
	})

	return ts, nil
}

type RuleRepo struct{ s *Store }

func (r *RuleRepo) FindRule(_ context.Context, ownerID uuid.UUID, raw string) (*matching.Rule, error) {
	var best *matching.Rule

	r.s.read(func(st *state) {
		for _, rule := range st.rules {
			if rule.OwnerID != ownerID || !rule.Matches(raw) {
				continue
			}

			if best == nil || rule.Better(best) {
				best = rule
			}
		}
	})

	if best == nil {
		return nil, nil
	}

	c := *best

	return &c, nil
}

func (r *RuleRepo) CreateRule(_ context.Context, rule *matching.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rule.ID = uuid.New()
	rule.CreatedAt = r.s.now()

	c := *rule
	r.s.st.rules = append(r.s.st.rules, &c)

	return nil
}

// unitOfWork implements both transaction.UnitOfWork and recurring.Tx.
type unitOfWork struct {
	store *Store
	st    *state
	done  bool
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return errFinished
	}

	u.store.st = u.st
	u.done = true
	u.store.mu.Unlock()

	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}

	u.done = true
	u.store.mu.Unlock()

	return nil
}

func (u *unitOfWork) LockAccount(_ context.Context, ownerID, id uuid.UUID) (*account.Account, error) {
	return u.st.account(ownerID, id)
}

func (u *unitOfWork) SetAccountBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	acc, ok := u.st.accounts[id]
	if !ok {
		return account.ErrNotFound
	}

	acc.Balance = balance
	acc.UpdatedAt = new(u.store.now())

	return nil
}

func (u *unitOfWork) LockTransaction(_ context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	return u.st.transaction(ownerID, id)
}

func (u *unitOfWork) CreateTransactions(_ context.Context, txs []*transaction.Transaction) error {
	now := u.store.now()

	for _, tx := range txs {
		if tx.ID == uuid.Nil {
			tx.ID = uuid.New()
		}

		tx.CreatedAt = now
		u.st.transactions[tx.ID] = tx.Clone()
	}

	return nil
}

func (u *unitOfWork) UpdateTransaction(_ context.Context, tx *transaction.Transaction) error {
	stored, ok := u.st.transactions[tx.ID]
	if !ok || stored.OwnerID != tx.OwnerID {
		return transaction.ErrNotFound
	}

	tx.UpdatedAt = new(u.store.now())
	u.st.transactions[tx.ID] = tx.Clone()

	return nil
}

// DeleteTransaction detaches any installments that point at the deleted row.
func (u *unitOfWork) DeleteTransaction(_ context.Context, ownerID, id uuid.UUID) error {
	stored, ok := u.st.transactions[id]
	if !ok || stored.OwnerID != ownerID {
		return transaction.ErrNotFound
	}

	delete(u.st.transactions, id)

	for _, tx := range u.st.transactions {
		if tx.Installment != nil && tx.Installment.ParentID != nil && *tx.Installment.ParentID == id {
			tx.Installment.ParentID = nil
		}
	}

	return nil
}

func (u *unitOfWork) CategoryExists(_ context.Context, ownerID, id uuid.UUID) (bool, error) {
	cat, ok := u.st.categories[id]
	return ok && cat.ownerID == ownerID, nil
}

func (u *unitOfWork) SumPaid(_ context.Context, ownerID, accountID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero

	for _, tx := range u.st.transactions {
		if tx.OwnerID == ownerID && tx.AccountID == accountID && tx.IsPaid() {
			sum = sum.Add(transaction.SignedAmount(tx))
		}
	}

	return sum, nil
}

func (u *unitOfWork) FindDuplicates(_ context.Context, ownerID uuid.UUID, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	keys := make(map[transaction.StatementKey]struct{}, len(params))
	for _, p := range params {
		keys[p.StatementKey()] = struct{}{}
	}

	var duplicates []*transaction.Transaction

	for _, tx := range u.st.transactions {
		if tx.OwnerID != ownerID {
			continue
		}

		if _, ok := keys[tx.StatementKey()]; ok {
			duplicates = append(duplicates, tx.Clone())
		}
	}

	slices.SortFunc(duplicates, func(a, b *transaction.Transaction) int {
		return a.Date.Compare(b.Date)
	})

	return duplicates, nil
}

func (u *unitOfWork) CreateTemplate(_ context.Context, t *recurring.Template) error {
	t.ID = uuid.New()
	t.CreatedAt = u.store.now()
	u.st.templates[t.ID] = t.Clone()

	return nil
}

func (u *unitOfWork) LockTemplate(_ context.Context, ownerID, id uuid.UUID) (*recurring.Template, error) {
	return u.st.template(ownerID, id)
}

func (u *unitOfWork) UpdateTemplate(_ context.Context, t *recurring.Template) error {
	stored, ok := u.st.templates[t.ID]
	if !ok || stored.OwnerID != t.OwnerID {
		return recurring.ErrNotFound
	}

	t.UpdatedAt = new(u.store.now())
	u.st.templates[t.ID] = t.Clone()

	return nil
}

func (s *state) account(ownerID, id uuid.UUID) (*account.Account, error) {
	acc, ok := s.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return nil, account.ErrNotFound
	}

	c := *acc

	return &c, nil
}

func (s *state) transaction(ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	tx, ok := s.transactions[id]
	if !ok || tx.OwnerID != ownerID {
		return nil, transaction.ErrNotFound
	}

	return tx.Clone(), nil
}

func (s *state) template(ownerID, id uuid.UUID) (*recurring.Template, error) {
	t, ok := s.templates[id]
	if !ok || t.OwnerID != ownerID {
		return nil, recurring.ErrNotFound
	}

	return t.Clone(), nil
}

var (
	_ account.Repository     = (*AccountRepo)(nil)
	_ transaction.Repository = (*TransactionRepo)(nil)
	_ recurring.Repository   = (*TemplateRepo)(nil)
	_ matching.Repository    = (*RuleRepo)(nil)
)
