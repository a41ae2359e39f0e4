package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventUpdated EventKind = "transaction.updated"
	EventDeleted EventKind = "transaction.deleted"
	EventPaid    EventKind = "transaction.paid"
	EventPending EventKind = "transaction.pending"
)

// Event describes a committed change to a transaction.
type Event struct {
	Kind        EventKind
	OwnerID     uuid.UUID
	Transaction *Transaction
	OccurredAt  time.Time
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
