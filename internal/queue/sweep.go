package queue

import (
	"context"
	"errors"
	"time"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
)

// Sweep inspects every waiting entry of every active event against the
// reference time and emits staged warnings:
//
//	coming_up   estimated call time within (now+5m, now+15m]
//	next_up     estimated call time within (now, now+5m]
//	missed_turn estimated call time more than 5m in the past; the entry is
//	            moved to missed and the pool renumbered
//
// Each warning is sent at most once per entry: the entry's sent-set is
// checked before emitting and tagged after, so overlapping or repeated
// sweeps never duplicate a notification. Returns the number of entries
// inspected.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	logger := ctxlog.FromContext(ctx)

	items, err := s.repo.ListWaitingForActiveEvents(ctx)
	if err != nil {
		return 0, err
	}

	comingUpUntil := now.Add(s.config.ComingUpWindow)
	nextUpUntil := now.Add(s.config.NextUpWindow)
	missedBefore := now.Add(-s.config.MissedAfter)

	for _, item := range items {
		entry := item.Entry
		event := item.Event
		est := entry.EstimatedCallTime

		switch {
		case est.After(nextUpUntil) && !est.After(comingUpUntil):
			s.emitOnce(ctx, &event, &entry, domain.NotificationComingUp, comingUpMessage(&event))
		case est.After(now) && !est.After(nextUpUntil):
			s.emitOnce(ctx, &event, &entry, domain.NotificationNextUp, nextUpMessage(&event))
		case est.Before(missedBefore):
			if !entry.HasNotification(domain.NotificationMissedTurn) {
				s.miss(ctx, &event, &entry)
			}
		}
	}

	recordSweep(len(items), time.Since(start))
	logger.Debug("sweep finished", "inspected", len(items), "reference_time", now)
	return len(items), nil
}

// emitOnce sends a sweep warning unless the entry already carries its tag.
func (s *Service) emitOnce(ctx context.Context, event *domain.Event, entry *domain.QueueEntry, kind domain.NotificationKind, message string) {
	if entry.HasNotification(kind) {
		return
	}

	if err := s.repo.MarkNotified(ctx, entry.ID, kind); err != nil {
		ctxlog.FromContext(ctx).Error("marking entry notified failed",
			"entry_id", entry.ID, "kind", kind, "error", err)
		return
	}

	s.notifier.Notify(ctx, NotificationInput{
		UserID:  entry.UserID,
		EventID: event.ID,
		EntryID: entry.ID,
		Kind:    kind,
		Message: message,
	})
}

// miss moves an overdue waiting entry to missed, emits the missed_turn
// warning and renumbers the rest of the pool. Runs inside the event's
// critical section; the From guard makes a lost race harmless.
func (s *Service) miss(ctx context.Context, event *domain.Event, entry *domain.QueueEntry) {
	logger := ctxlog.FromContext(ctx)

	unlock := s.locks.acquire(event.ID)
	defer unlock()

	err := s.repo.ApplyTransition(ctx, Transition{
		EntryID: entry.ID,
		From:    domain.EntryStatusWaiting,
		To:      domain.EntryStatusMissed,
	})
	if errors.Is(err, ErrInvalidTransition) {
		// Someone called or cancelled the entry since we listed it.
		return
	}
	if err != nil {
		logger.Error("missed-turn transition failed", "entry_id", entry.ID, "error", err)
		return
	}
	recordTransition(string(domain.EntryStatusMissed))

	if err := s.repo.MarkNotified(ctx, entry.ID, domain.NotificationMissedTurn); err != nil {
		logger.Error("marking entry notified failed",
			"entry_id", entry.ID, "kind", domain.NotificationMissedTurn, "error", err)
	}

	s.notifier.Notify(ctx, NotificationInput{
		UserID:  entry.UserID,
		EventID: event.ID,
		EntryID: entry.ID,
		Kind:    domain.NotificationMissedTurn,
		Message: missedTurnMessage(event),
	})

	if err := s.renumber(ctx, event); err != nil {
		logger.Error("renumbering failed after missed turn",
			"event_id", event.ID, "error", err)
	}
}
