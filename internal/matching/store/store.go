package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/matching"
)

// strpos over lower() keeps the match literal: patterns may contain % or _.
const (
	findRuleQuery = `
		SELECT id, owner_id, raw_pattern, title, category_id, created_at
		FROM categorization_rules
		WHERE owner_id = $1
		  AND raw_pattern <> ''
		  AND strpos(lower($2), lower(raw_pattern)) > 0
		ORDER BY length(raw_pattern) DESC, created_at DESC
		LIMIT 1`

	insertRuleQuery = `
		INSERT INTO categorization_rules (owner_id, raw_pattern, title, category_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindRule returns nil, nil when no rule of the owner occurs in raw.
func (s *Store) FindRule(ctx context.Context, ownerID uuid.UUID, raw string) (*matching.Rule, error) {
	r, err := scanRule(s.db.QueryRowContext(ctx, findRuleQuery, ownerID, raw))

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("finding rule for owner %s: %w", ownerID, err)
	}

	return r, nil
}

func (s *Store) CreateRule(ctx context.Context, r *matching.Rule) error {
	row := s.db.QueryRowContext(ctx, insertRuleQuery, r.OwnerID, r.RawPattern, r.Title, r.CategoryID)
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return fmt.Errorf("creating rule %q: %w", r.RawPattern, err)
	}

	return nil
}

func scanRule(row *sql.Row) (*matching.Rule, error) {
	var (
		r        matching.Rule
		category uuid.NullUUID
	)

	if err := row.Scan(&r.ID, &r.OwnerID, &r.RawPattern, &r.Title, &category, &r.CreatedAt); err != nil {
		return nil, err
	}

	if category.Valid {
		r.CategoryID = &category.UUID
	}

	return &r, nil
}
