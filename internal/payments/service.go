package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/events"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
	"github.com/fanline/fanline/internal/queue"
)

// platformFeeRate is the share of each ticket kept by the platform.
var platformFeeRate = decimal.NewFromFloat(0.10)

// EventReader resolves events for pricing.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
}

// UserReader resolves organizers for payout routing.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// EntrySettler applies gateway-reported payment outcomes to queue entries
// and resolves entries for refunds.
type EntrySettler interface {
	ApplyPaymentUpdate(ctx context.Context, intentID string, status domain.PaymentStatus, amount int64) (*domain.QueueEntry, error)
	GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error)
}

// Service implements payment business logic.
type Service struct {
	gateway Gateway
	events  EventReader
	users   UserReader
	settler EntrySettler
}

// NewService creates a new payments service.
func NewService(gateway Gateway, events EventReader, users UserReader, settler EntrySettler) *Service {
	return &Service{
		gateway: gateway,
		events:  events,
		users:   users,
		settler: settler,
	}
}

// PlatformFee computes the platform's cut of a ticket price in cents,
// rounded half up.
func PlatformFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(platformFeeRate).Round(0).IntPart()
}

// CreateIntent authorizes a charge for one slot in the event's queue. The
// money is routed to the organizer's payout account minus the platform fee;
// the fan joins the queue with the returned intent and the webhook settles
// it later.
func (s *Service) CreateIntent(ctx context.Context, eventID, userID string) (*Intent, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		// Translate the collaborator's sentinel so the handler's mapping
		// table only has to know this module's errors.
		if errors.Is(err, events.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if !event.IsPriced() {
		return nil, ErrEventFree
	}

	organizer, err := s.users.GetUser(ctx, event.OrganizerID)
	if err != nil {
		return nil, fmt.Errorf("resolve organizer: %w", err)
	}
	if organizer.PayoutAccount == nil || *organizer.PayoutAccount == "" {
		return nil, ErrNoPayoutAccount
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentInput{
		Amount:        event.Price,
		Currency:      "usd",
		PlatformFee:   PlatformFee(event.Price),
		PayoutAccount: *organizer.PayoutAccount,
		EventID:       event.ID,
		UserID:        userID,
		// One authorization per fan per event; a retried request reuses the
		// gateway's previous answer instead of double-charging.
		IdempotencyKey: fmt.Sprintf("%s:%s", event.ID, userID),
	})
	if err != nil {
		return nil, err
	}

	recordIntent("created")
	return intent, nil
}

// WebhookEvent is one gateway callback after signature verification.
type WebhookEvent struct {
	Type     string
	IntentID string
	Amount   int64
}

// HandleWebhook settles a gateway callback against the queue entry holding
// the intent. Unknown event types are reported so the handler can
// acknowledge without acting.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	var status domain.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		status = domain.PaymentStatusSucceeded
	case "payment_intent.payment_failed":
		status = domain.PaymentStatusFailed
	case "charge.refunded":
		status = domain.PaymentStatusRefunded
	default:
		return ErrUnknownEventType
	}

	entry, err := s.settler.ApplyPaymentUpdate(ctx, event.IntentID, status, event.Amount)
	if err != nil {
		return fmt.Errorf("settle %s: %w", event.Type, err)
	}

	recordWebhook(event.Type)
	ctxlog.FromContext(ctx).Info("payment settled",
		"intent_id", event.IntentID,
		"status", status,
		"entry_id", entry.ID,
		"entry_status", entry.Status,
	)
	return nil
}

// RefundEntry asks the gateway to return the fan's money for one entry.
// Only the event's organizer may refund. The entry's payment state flips to
// refunded when the gateway's webhook confirms.
func (s *Service) RefundEntry(ctx context.Context, entryID, organizerID string) error {
	entry, err := s.settler.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, queue.ErrEntryNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	if entry.PaymentIntentID == nil {
		return ErrEventFree
	}

	event, err := s.events.GetEvent(ctx, entry.EventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if event.OrganizerID != organizerID {
		return ErrNotOrganizer
	}

	if err := s.gateway.CreateRefund(ctx, *entry.PaymentIntentID); err != nil {
		return err
	}
	recordIntent("refund_requested")
	return nil
}
