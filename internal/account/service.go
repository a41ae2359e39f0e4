package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, acc *Account) error
	GetAccount(ctx context.Context, ownerID, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*Account, error)
	SetAccountActive(ctx context.Context, ownerID, id uuid.UUID, active bool) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	OwnerID        uuid.UUID
	Name           string
	Type           Type
	OpeningBalance decimal.Decimal
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}

	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAccount, params.Type)
	}

	opening := params.OpeningBalance.Round(2)

	acc := &Account{
		OwnerID:        params.OwnerID,
		Name:           name,
		Type:           params.Type,
		OpeningBalance: opening,
		Balance:        opening,
		Active:         true,
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, ownerID)
}

// Balance returns the stored current balance of the account.
func (s *Service) Balance(ctx context.Context, ownerID, id uuid.UUID) (decimal.Decimal, error) {
	acc, err := s.repo.GetAccount(ctx, ownerID, id)
	if err != nil {
		return decimal.Zero, err
	}

	return acc.Balance, nil
}

func (s *Service) SetActive(ctx context.Context, ownerID, id uuid.UUID, active bool) error {
	return s.repo.SetAccountActive(ctx, ownerID, id, active)
}
