// Package notifications persists the per-fan notification feed and delivers
// push copies of each message through a retrying queue.
package notifications

import (
	"context"
	"time"

	"github.com/fanline/fanline/internal/domain"
)

// DeliveryStatus represents the state of a queued push delivery.
type DeliveryStatus string

// Delivery statuses.
const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
)

// Delivery is one queued push attempt for a stored notification.
type Delivery struct {
	ID             string
	NotificationID string
	UserID         string
	Kind           domain.NotificationKind
	Message        string
	EventID        string
	Status         DeliveryStatus
	Attempts       int
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SentAt         *time.Time
}

// Repository defines the storage interface for notifications and the push
// delivery queue.
type Repository interface {
	InsertNotification(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)

	EnqueueDelivery(ctx context.Context, d *Delivery) error

	// ClaimDeliveries atomically claims up to limit pending deliveries due at
	// or before now. Claimed rows are invisible to concurrent workers.
	ClaimDeliveries(ctx context.Context, limit int, now time.Time) ([]Delivery, error)

	MarkDeliverySent(ctx context.Context, id string, at time.Time) error

	// MarkDeliveryFailed schedules a retry, or buries the delivery when final
	// is set.
	MarkDeliveryFailed(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string, final bool) error
}

// PushMessage is the payload handed to a push sender.
type PushMessage struct {
	UserID  string
	EventID string
	Kind    domain.NotificationKind
	Message string
}

// Sender delivers push messages over one transport.
type Sender interface {
	Send(ctx context.Context, msg PushMessage) error
	Type() string
}
