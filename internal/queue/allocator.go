package queue

import (
	"time"

	"github.com/fanline/fanline/internal/domain"
)

// PaymentRef carries the payment intent a priced join was admitted with.
type PaymentRef struct {
	IntentID string
	Status   domain.PaymentStatus
}

// allocate computes the next free position for a new entry and derives its
// estimated call time from the event's slot math. existing must be every
// non-cancelled entry of the event; the caller holds the event's critical
// section so the count cannot move underneath us.
//
// Settlement is asynchronous: a priced join is admitted with payment status
// pending, the gateway webhook settles it later.
func allocate(event *domain.Event, existing []domain.QueueEntry, userID string, payment *PaymentRef, now time.Time) (*domain.QueueEntry, error) {
	if !event.IsActive {
		return nil, ErrEventInactive
	}

	if event.IsPriced() && payment == nil {
		return nil, ErrPaymentRequired
	}

	for i := range existing {
		if existing[i].UserID == userID && existing[i].Status.IsLive() {
			return nil, ErrAlreadyInQueue
		}
	}

	if len(existing) >= event.MaxCapacity {
		return nil, ErrCapacityExceeded
	}

	position := len(existing) + 1

	entry := &domain.QueueEntry{
		EventID:           event.ID,
		UserID:            userID,
		Position:          position,
		EstimatedCallTime: event.EstimatedCallTime(position),
		Status:            domain.EntryStatusWaiting,
		JoinedAt:          now,
		NotificationsSent: []domain.NotificationKind{},
	}

	if payment != nil {
		intentID := payment.IntentID
		status := payment.Status
		entry.PaymentIntentID = &intentID
		entry.PaymentStatus = &status
		entry.AmountPaid = event.Price
	}

	return entry, nil
}
