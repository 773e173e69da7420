package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
)

// Config holds queue progression policy.
type Config struct {
	// PositionNotifyDelta is the minimum position improvement that triggers
	// a position_update notification.
	PositionNotifyDelta int
	// MissedAfter is how long past the estimated call time a waiting entry
	// is considered to have missed its turn.
	MissedAfter time.Duration
	// ComingUpWindow and NextUpWindow are the staged warning horizons.
	ComingUpWindow time.Duration
	NextUpWindow   time.Duration
}

// DefaultConfig returns the default progression policy.
func DefaultConfig() Config {
	return Config{
		PositionNotifyDelta: 3,
		MissedAfter:         5 * time.Minute,
		ComingUpWindow:      15 * time.Minute,
		NextUpWindow:        5 * time.Minute,
	}
}

// Service owns queue allocation, the entry state machine, renumbering and
// the notification sweep. All mutations on one event run inside that event's
// critical section; events are independent.
type Service struct {
	repo     Repository
	notifier Notifier
	config   Config
	locks    *eventLocks
	clock    func() time.Time
}

// NewService creates a new queue service.
func NewService(repo Repository, notifier Notifier, config Config) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		config:   config,
		locks:    newEventLocks(),
		clock:    time.Now,
	}
}

// JoinInput holds data for joining a queue.
type JoinInput struct {
	EventID         string
	UserID          string
	PaymentIntentID *string
}

// Join admits a fan to the event's queue, assigns the next free position and
// derives the estimated call time. Priced events require a payment intent;
// the entry joins provisionally with payment status pending.
func (s *Service) Join(ctx context.Context, input JoinInput) (*domain.QueueEntry, error) {
	unlock := s.locks.acquire(input.EventID)
	defer unlock()

	event, err := s.repo.GetEvent(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListNonCancelled(ctx, input.EventID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	var payment *PaymentRef
	if input.PaymentIntentID != nil && *input.PaymentIntentID != "" {
		payment = &PaymentRef{
			IntentID: *input.PaymentIntentID,
			Status:   domain.PaymentStatusPending,
		}
	}

	entry, err := allocate(event, existing, input.UserID, payment, s.clock())
	if err != nil {
		recordJoin("rejected")
		return nil, err
	}

	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	recordJoin("accepted")

	s.notifier.Notify(ctx, NotificationInput{
		UserID:  entry.UserID,
		EventID: event.ID,
		EntryID: entry.ID,
		Kind:    domain.NotificationQueueJoined,
		Message: joinedMessage(event, entry.Position),
	})

	return entry, nil
}

// Cancel removes the caller's own waiting entry from the queue and
// renumbers the entries behind it.
func (s *Service) Cancel(ctx context.Context, entryID, userID string) (*domain.QueueEntry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(entry.EventID)
	defer unlock()

	// Re-read inside the critical section; the entry may have moved.
	entry, err = s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if entry.UserID != userID {
		return nil, ErrNotEntryOwner
	}
	if entry.Status != domain.EntryStatusWaiting {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.ApplyTransition(ctx, Transition{
		EntryID: entryID,
		From:    domain.EntryStatusWaiting,
		To:      domain.EntryStatusCancelled,
	}); err != nil {
		return nil, err
	}
	recordTransition(string(domain.EntryStatusCancelled))

	event, err := s.repo.GetEvent(ctx, entry.EventID)
	if err != nil {
		return nil, err
	}
	if err := s.renumber(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Error("renumbering failed after cancel",
			"event_id", event.ID, "error", err)
	}

	entry.Status = domain.EntryStatusCancelled
	return entry, nil
}

// CallNext transitions the lowest-position waiting entry to called. The
// organizer cannot pick an arbitrary entry; "next" is always the minimum
// position, so join order is preserved.
func (s *Service) CallNext(ctx context.Context, eventID, organizerID string) (*domain.QueueEntry, error) {
	unlock := s.locks.acquire(eventID)
	defer unlock()

	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrNotOrganizer
	}

	waiting, err := s.repo.ListWaiting(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list waiting: %w", err)
	}
	if len(waiting) == 0 {
		return nil, ErrQueueEmpty
	}

	next := waiting[0]
	now := s.clock()

	if err := s.repo.ApplyTransition(ctx, Transition{
		EntryID:  next.ID,
		From:     domain.EntryStatusWaiting,
		To:       domain.EntryStatusCalled,
		CalledAt: &now,
	}); err != nil {
		return nil, err
	}
	recordTransition(string(domain.EntryStatusCalled))

	s.notifier.Notify(ctx, NotificationInput{
		UserID:  next.UserID,
		EventID: eventID,
		EntryID: next.ID,
		Kind:    domain.NotificationYourTurn,
		Message: yourTurnMessage(event),
	})

	next.Status = domain.EntryStatusCalled
	next.CalledAt = &now
	return &next, nil
}

// Complete finishes a called entry and renumbers the remaining waiting pool.
func (s *Service) Complete(ctx context.Context, entryID, organizerID string) (*domain.QueueEntry, error) {
	entry, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(entry.EventID)
	defer unlock()

	entry, err = s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetEvent(ctx, entry.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrNotOrganizer
	}
	if entry.Status != domain.EntryStatusCalled {
		return nil, ErrInvalidTransition
	}

	now := s.clock()
	if err := s.repo.ApplyTransition(ctx, Transition{
		EntryID:     entryID,
		From:        domain.EntryStatusCalled,
		To:          domain.EntryStatusCompleted,
		CompletedAt: &now,
	}); err != nil {
		return nil, err
	}
	recordTransition(string(domain.EntryStatusCompleted))

	if err := s.renumber(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Error("renumbering failed after complete",
			"event_id", event.ID, "error", err)
	}

	entry.Status = domain.EntryStatusCompleted
	entry.CompletedAt = &now
	return entry, nil
}

// ApplyPaymentUpdate records a gateway-reported payment state for the entry
// holding the intent. A failed payment system-cancels a still-waiting entry;
// succeeded and refunded are recorded without touching the entry state.
func (s *Service) ApplyPaymentUpdate(ctx context.Context, intentID string, status domain.PaymentStatus, amount int64) (*domain.QueueEntry, error) {
	entry, err := s.repo.GetEntryByPaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(entry.EventID)
	defer unlock()

	entry, err = s.repo.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePaymentStatus(ctx, PaymentUpdate{
		EntryID:    entry.ID,
		Status:     status,
		AmountPaid: amount,
	}); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	if status == domain.PaymentStatusFailed && entry.Status == domain.EntryStatusWaiting {
		if err := s.repo.ApplyTransition(ctx, Transition{
			EntryID: entry.ID,
			From:    domain.EntryStatusWaiting,
			To:      domain.EntryStatusCancelled,
		}); err != nil {
			return nil, err
		}
		recordTransition(string(domain.EntryStatusCancelled))

		s.notifier.Notify(ctx, NotificationInput{
			UserID:  entry.UserID,
			EventID: entry.EventID,
			EntryID: entry.ID,
			Kind:    domain.NotificationQueueJoined,
			Message: "Your payment failed. Queue entry has been cancelled.",
		})

		event, err := s.repo.GetEvent(ctx, entry.EventID)
		if err != nil {
			return nil, err
		}
		if err := s.renumber(ctx, event); err != nil {
			ctxlog.FromContext(ctx).Error("renumbering failed after payment cancellation",
				"event_id", event.ID, "error", err)
		}
		entry.Status = domain.EntryStatusCancelled
	}

	ps := status
	entry.PaymentStatus = &ps
	entry.AmountPaid = amount
	return entry, nil
}

// EventQueue returns all non-cancelled entries of the event ordered by position.
func (s *Service) EventQueue(ctx context.Context, eventID string) ([]domain.QueueEntry, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListNonCancelled(ctx, eventID)
}

// UserEntries returns a user's entries across all events, cancelled excluded.
func (s *Service) UserEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error) {
	return s.repo.ListUserEntries(ctx, userID)
}

// GetEntry returns a single entry by id.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	return s.repo.GetEntry(ctx, entryID)
}

// renumber compacts the waiting pool and notifies entries whose position
// improved by at least the configured delta. Callers hold the event lock.
// A detected position conflict aborts the pass leaving prior positions
// intact.
func (s *Service) renumber(ctx context.Context, event *domain.Event) error {
	waiting, err := s.repo.ListWaiting(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("list waiting: %w", err)
	}

	changes, err := recompute(event, waiting, s.config.PositionNotifyDelta)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	updates := make([]PositionUpdate, 0, len(changes))
	for _, c := range changes {
		updates = append(updates, c.Update)
	}
	if err := s.repo.ApplyPositionUpdates(ctx, updates); err != nil {
		return fmt.Errorf("apply position updates: %w", err)
	}
	recordRenumberMoves(len(changes))

	for _, c := range changes {
		if !c.Notify {
			continue
		}
		s.notifier.Notify(ctx, NotificationInput{
			UserID:  c.Entry.UserID,
			EventID: event.ID,
			EntryID: c.Entry.ID,
			Kind:    domain.NotificationPositionUpdate,
			Message: positionUpdateMessage(c.NewPosition),
		})
	}

	return nil
}
