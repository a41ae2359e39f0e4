package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/clock"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=recurring
type Repository interface {
	Begin(ctx context.Context) (Tx, error)
	GetTemplate(ctx context.Context, ownerID, id uuid.UUID) (*Template, error)
	ListTemplates(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*Template, error)
}

// Tx is a transaction unit of work that can also lock and advance templates,
// so a generated transaction and its template move together.
type Tx interface {
	transaction.UnitOfWork

	CreateTemplate(ctx context.Context, t *Template) error
	LockTemplate(ctx context.Context, ownerID, id uuid.UUID) (*Template, error)
	UpdateTemplate(ctx context.Context, t *Template) error
}

// Lifecycle is the part of the transaction service the generator relies on.
type Lifecycle interface {
	CreateIn(ctx context.Context, uow transaction.UnitOfWork, params transaction.CreateParams) ([]*transaction.Transaction, error)
	Notify(ctx context.Context, kind transaction.EventKind, txs ...*transaction.Transaction)
}

const defaultConcurrency = 4

type Service struct {
	repo        Repository
	lifecycle   Lifecycle
	clock       clock.Clock
	concurrency int
}

type Option func(*Service)

// WithConcurrency bounds how many templates GenerateDue works on at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(repo Repository, lifecycle Lifecycle, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		lifecycle:   lifecycle,
		clock:       clk,
		concurrency: defaultConcurrency,
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
	Type       transaction.Type
	Tags       []string
	Notes      string
	Frequency  calendar.Frequency
	StartDate  time.Time
	EndDate    *time.Time
}

// Create stores a new active template whose first occurrence is its start date.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Template, error) {
	start := calendar.Day(params.StartDate)

	t := &Template{
		OwnerID:        params.OwnerID,
		AccountID:      params.AccountID,
		CategoryID:     params.CategoryID,
		Title:          params.Title,
		Amount:         params.Amount,
		Type:           params.Type,
		Tags:           append([]string(nil), params.Tags...),
		Notes:          params.Notes,
		Frequency:      params.Frequency,
		StartDate:      start,
		NextOccurrence: start,
		Active:         true,
	}

	if params.EndDate != nil {
		t.EndDate = new(calendar.Day(*params.EndDate))
	}

	if err := t.validate(); err != nil {
		return nil, err
	}

	err := s.within(ctx, func(tx Tx) error {
		if err := s.checkOwnership(ctx, tx, t); err != nil {
			return err
		}

		return tx.CreateTemplate(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// checkOwnership makes sure the template books into an active account and a
// category of its owner. Foreign ids read as missing.
func (s *Service) checkOwnership(ctx context.Context, tx Tx, t *Template) error {
	acc, err := tx.LockAccount(ctx, t.OwnerID, t.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fmt.Errorf("%w: account %s", transaction.ErrNotFound, t.AccountID)
		}

		return fmt.Errorf("locking account: %w", err)
	}

	if !acc.Active {
		return fmt.Errorf("%w: account %s is inactive", transaction.ErrAccountMismatch, acc.ID)
	}

	if t.CategoryID == nil {
		return nil
	}

	ok, err := tx.CategoryExists(ctx, t.OwnerID, *t.CategoryID)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: category %s", transaction.ErrNotFound, *t.CategoryID)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Template, error) {
	return s.repo.GetTemplate(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, activeOnly bool) ([]*Template, error) {
	return s.repo.ListTemplates(ctx, ownerID, activeOnly)
}

// SetActive pauses or resumes a template. A template that already ran past
// its end date stays inactive.
func (s *Service) SetActive(ctx context.Context, ownerID, id uuid.UUID, active bool) error {
	return s.within(ctx, func(tx Tx) error {
		t, err := tx.LockTemplate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if active && t.Expired(t.NextOccurrence) {
			return fmt.Errorf("%w: %s ended on %s", ErrTemplateInactiveOrExpired,
				t.ID, t.EndDate.Format(time.DateOnly))
		}

		if t.Active == active {
			return nil
		}

		t.Active = active

		return tx.UpdateTemplate(ctx, t)
	})
}

// GenerateNext creates the pending transaction for the template's next
// occurrence and advances the template, in one unit of work. A template whose
// next occurrence passes its end date is deactivated.
func (s *Service) GenerateNext(ctx context.Context, ownerID, templateID uuid.UUID) (*transaction.Transaction, error) {
	var created []*transaction.Transaction

	err := s.within(ctx, func(tx Tx) error {
		t, err := tx.LockTemplate(ctx, ownerID, templateID)
		if err != nil {
			return err
		}

		created, err = s.generate(ctx, tx, t)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.Notify(ctx, transaction.EventCreated, created...)

	return created[0], nil
}

// GenerateDue catches every active template of the owner up to asOf. Each
// template is handled in its own unit of work; templates are processed
// concurrently. A zero asOf means today.
func (s *Service) GenerateDue(ctx context.Context, ownerID uuid.UUID, asOf time.Time) ([]*transaction.Transaction, error) {
	if asOf.IsZero() {
		asOf = s.clock.Today()
	}

	asOf = calendar.Day(asOf)

	templates, err := s.repo.ListTemplates(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	var (
		mu      sync.Mutex
		created []*transaction.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, t := range templates {
		if !t.Due(asOf) {
			continue
		}

		g.Go(func() error {
			txs, err := s.catchUp(gctx, ownerID, t.ID, asOf)
			if err != nil {
				return fmt.Errorf("template %s: %w", t.ID, err)
			}

			mu.Lock()
			created = append(created, txs...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "recurring generation complete",
		"owner_id", ownerID,
		"as_of", asOf.Format(time.DateOnly),
		"created", len(created))

	return created, nil
}

func (s *Service) catchUp(ctx context.Context, ownerID, templateID uuid.UUID, asOf time.Time) ([]*transaction.Transaction, error) {
	var created []*transaction.Transaction

	err := s.within(ctx, func(tx Tx) error {
		t, err := tx.LockTemplate(ctx, ownerID, templateID)
		if err != nil {
			return err
		}

		for t.Due(asOf) {
			txs, err := s.generate(ctx, tx, t)
			if err != nil {
				return err
			}

			created = append(created, txs...)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.Notify(ctx, transaction.EventCreated, created...)

	return created, nil
}

// generate advances t in place.
func (s *Service) generate(ctx context.Context, tx Tx, t *Template) ([]*transaction.Transaction, error) {
	if !t.Active || t.Expired(t.NextOccurrence) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInactiveOrExpired, t.ID)
	}

	created, err := s.lifecycle.CreateIn(ctx, tx, t.params())
	if err != nil {
		return nil, err
	}

	next := calendar.Next(t.StartDate, t.Frequency, t.NextOccurrence)
	if !next.After(t.NextOccurrence) {
		return nil, fmt.Errorf("advancing template %s: next occurrence did not move past %s",
			t.ID, t.NextOccurrence.Format(time.DateOnly))
	}

	t.NextOccurrence = next
	if t.Expired(next) {
		t.Active = false
	}

	if err := tx.UpdateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("updating template: %w", err)
	}

	return created, nil
}

func (s *Service) within(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning unit of work: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing unit of work: %w", err)
	}

	return nil
}
