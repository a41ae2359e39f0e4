package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// FindRule returns the best rule for raw, or nil when none applies.
	FindRule(ctx context.Context, ownerID uuid.UUID, raw string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type LearnParams struct {
	OwnerID    uuid.UUID
	RawPattern string
	Title      string
	CategoryID *uuid.UUID
}

// Suggest finds the owner's preferred title and category for raw statement text.
// Returns nil if no rule matches.
func (s *Service) Suggest(ctx context.Context, ownerID uuid.UUID, raw string) (*Rule, error) {
	return s.repo.FindRule(ctx, ownerID, raw)
}

// Learn remembers a new rule for the owner.
func (s *Service) Learn(ctx context.Context, params LearnParams) (*Rule, error) {
	r := &Rule{
		OwnerID:    params.OwnerID,
		RawPattern: strings.TrimSpace(params.RawPattern),
		Title:      strings.TrimSpace(params.Title),
		CategoryID: params.CategoryID,
	}

	if r.RawPattern == "" {
		return nil, fmt.Errorf("%w: pattern is required", ErrInvalidRule)
	}

	if r.Title == "" && r.CategoryID == nil {
		return nil, fmt.Errorf("%w: a title or a category is required", ErrInvalidRule)
	}

	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}
