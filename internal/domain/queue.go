package domain

import "time"

// EntryStatus represents the lifecycle state of a queue entry.
type EntryStatus string

// Entry statuses.
const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusCalled    EntryStatus = "called"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusMissed    EntryStatus = "missed"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// IsValid checks if the entry status is valid.
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusWaiting, EntryStatusCalled, EntryStatusCompleted,
		EntryStatusMissed, EntryStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusMissed || s == EntryStatusCancelled
}

// IsLive reports whether the entry still holds a place in the queue.
// A user may hold at most one live entry per event; missed, cancelled and
// completed entries do not block a rejoin.
func (s EntryStatus) IsLive() bool {
	return s == EntryStatusWaiting || s == EntryStatusCalled
}

// PaymentStatus mirrors the state of an entry's payment intent at the
// external gateway.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// IsValid checks if the payment status is valid.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// QueueEntry represents one fan's place in an event queue.
//
// Position is unique among non-cancelled entries of the same event.
// EstimatedCallTime is derived from the position and the event's slot math;
// it is rewritten by renumbering and never authoritative on its own.
// NotificationsSent records which staged notifications have already gone out
// so that every trigger is at-most-once. Entries are never deleted; history
// is kept for refunds.
type QueueEntry struct {
	ID                string             `json:"id"`
	EventID           string             `json:"event_id"`
	UserID            string             `json:"user_id"`
	Position          int                `json:"position"`
	EstimatedCallTime time.Time          `json:"estimated_call_time"`
	Status            EntryStatus        `json:"status"`
	PaymentIntentID   *string            `json:"payment_intent_id,omitempty"`
	PaymentStatus     *PaymentStatus     `json:"payment_status,omitempty"`
	AmountPaid        int64              `json:"amount_paid"`
	JoinedAt          time.Time          `json:"joined_at"`
	CalledAt          *time.Time         `json:"called_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	NotificationsSent []NotificationKind `json:"notifications_sent"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// HasNotification reports whether the given kind was already sent for this entry.
func (e *QueueEntry) HasNotification(kind NotificationKind) bool {
	for _, k := range e.NotificationsSent {
		if k == kind {
			return true
		}
	}
	return false
}
