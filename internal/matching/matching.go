package matching

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRule = errors.New("invalid rule")

// Rule maps raw statement text to the title and category the owner prefers.
// A rule applies when its pattern occurs anywhere in the raw text, ignoring case.
type Rule struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	RawPattern string
	Title      string
	CategoryID *uuid.UUID
	CreatedAt  time.Time
}

func (r *Rule) Matches(raw string) bool {
	return r.RawPattern != "" && strings.Contains(strings.ToLower(raw), strings.ToLower(r.RawPattern))
}

// Better reports whether r should win over other when both match: longer
// patterns are more specific, and newer rules break ties.
func (r *Rule) Better(other *Rule) bool {
	if len(r.RawPattern) != len(other.RawPattern) {
		return len(r.RawPattern) > len(other.RawPattern)
	}

	return r.CreatedAt.After(other.CreatedAt)
}
