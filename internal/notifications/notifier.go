package notifications

import (
	"context"
	"time"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
	"github.com/fanline/fanline/internal/queue"
)

// Notifier persists queue notifications to the fan's feed and enqueues a
// push delivery for each. It satisfies the queue engine's notifier contract:
// failures are logged, never returned, so a lost notification cannot fail
// the queue operation that produced it.
type Notifier struct {
	repo Repository
}

// NewNotifier creates a new Notifier.
func NewNotifier(repo Repository) *Notifier {
	return &Notifier{repo: repo}
}

// Notify stores the notification and queues its push copy.
func (n *Notifier) Notify(ctx context.Context, input queue.NotificationInput) {
	logger := ctxlog.FromContext(ctx)

	notification := &domain.Notification{
		UserID:  input.UserID,
		EventID: input.EventID,
		EntryID: input.EntryID,
		Kind:    input.Kind,
		Message: input.Message,
	}
	if err := n.repo.InsertNotification(ctx, notification); err != nil {
		logger.Error("storing notification failed",
			"user_id", input.UserID, "kind", input.Kind, "error", err)
		return
	}
	recordNotification(string(input.Kind))

	delivery := &Delivery{
		NotificationID: notification.ID,
		UserID:         input.UserID,
		Kind:           input.Kind,
		Message:        input.Message,
		EventID:        input.EventID,
		Status:         DeliveryStatusPending,
		NextAttemptAt:  time.Now(),
	}
	if err := n.repo.EnqueueDelivery(ctx, delivery); err != nil {
		logger.Error("enqueueing push delivery failed",
			"notification_id", notification.ID, "error", err)
	}
}
