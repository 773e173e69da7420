// Package queue implements the queue allocation and progression engine:
// position assignment, the entry state machine, renumbering after departures
// and the time-driven notification sweep.
package queue

import (
	"context"
	"time"

	"github.com/fanline/fanline/internal/domain"
)

// Repository defines the storage interface for queue entries.
//
// Every write method is a single atomic unit against the store; the service
// serializes them per event, so position reads and the writes derived from
// them never interleave between two requests for the same event.
type Repository interface {
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)
	GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error)
	GetEntryByPaymentIntent(ctx context.Context, intentID string) (*domain.QueueEntry, error)

	// ListNonCancelled returns all entries of the event except cancelled ones,
	// ordered by position. Capacity counts against this set.
	ListNonCancelled(ctx context.Context, eventID string) ([]domain.QueueEntry, error)

	// ListWaiting returns the waiting pool of the event ordered by position.
	ListWaiting(ctx context.Context, eventID string) ([]domain.QueueEntry, error)

	// ListWaitingForActiveEvents returns every waiting entry whose event is
	// still active, paired with its event. Used by the sweep.
	ListWaitingForActiveEvents(ctx context.Context) ([]EntryWithEvent, error)

	ListUserEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error)

	InsertEntry(ctx context.Context, entry *domain.QueueEntry) error

	// ApplyTransition moves an entry between states. The update is guarded by
	// the expected source state: if the stored status no longer matches From,
	// nothing is written and ErrInvalidTransition is returned.
	ApplyTransition(ctx context.Context, t Transition) error

	// ApplyPositionUpdates rewrites positions and estimates in one
	// transaction. An empty slice is a no-op.
	ApplyPositionUpdates(ctx context.Context, updates []PositionUpdate) error

	// MarkNotified appends a notification tag to the entry's sent set.
	MarkNotified(ctx context.Context, entryID string, kind domain.NotificationKind) error

	// UpdatePaymentStatus records the gateway-reported state of the entry's
	// payment intent.
	UpdatePaymentStatus(ctx context.Context, u PaymentUpdate) error
}

// Transition enumerates exactly the fields a state change may touch.
type Transition struct {
	EntryID     string
	From        domain.EntryStatus
	To          domain.EntryStatus
	CalledAt    *time.Time
	CompletedAt *time.Time
}

// PositionUpdate enumerates exactly the fields renumbering may touch.
type PositionUpdate struct {
	EntryID           string
	Position          int
	EstimatedCallTime time.Time
}

// PaymentUpdate enumerates exactly the fields a gateway callback may touch.
type PaymentUpdate struct {
	EntryID    string
	Status     domain.PaymentStatus
	AmountPaid int64
}

// EntryWithEvent pairs a queue entry with its event configuration.
type EntryWithEvent struct {
	Entry domain.QueueEntry
	Event domain.Event
}

// Notifier delivers queue notifications. Implemented by the notifications
// package; delivery failures must not fail the queue operation that
// produced them.
type Notifier interface {
	Notify(ctx context.Context, input NotificationInput)
}

// NotificationInput is one notification to persist and push.
type NotificationInput struct {
	UserID  string
	EventID string
	EntryID string
	Kind    domain.NotificationKind
	Message string
}
