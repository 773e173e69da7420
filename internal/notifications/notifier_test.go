package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/queue"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	mu            sync.Mutex
	notifications []domain.Notification
	deliveries    map[string]*Delivery
	nextID        int

	insertErr  error
	enqueueErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{deliveries: make(map[string]*Delivery)}
}

func (m *mockRepository) InsertNotification(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	n.ID = fmt.Sprintf("notif-%d", m.nextID)
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockRepository) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for i := len(m.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *mockRepository) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) MarkRead(_ context.Context, notificationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == notificationID {
			if m.notifications[i].UserID != userID {
				return ErrNotRecipient
			}
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && !m.notifications[i].IsRead {
			m.notifications[i].IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *mockRepository) EnqueueDelivery(_ context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.nextID++
	d.ID = fmt.Sprintf("delivery-%d", m.nextID)
	stored := *d
	m.deliveries[stored.ID] = &stored
	return nil
}

func (m *mockRepository) ClaimDeliveries(_ context.Context, limit int, now time.Time) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Delivery
	for _, d := range m.deliveries {
		if len(out) >= limit {
			break
		}
		if d.Status == DeliveryStatusPending && !d.NextAttemptAt.After(now) {
			d.NextAttemptAt = now.Add(time.Minute)
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkDeliverySent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = DeliveryStatusSent
	d.SentAt = &at
	return nil
}

func (m *mockRepository) MarkDeliveryFailed(_ context.Context, id string, attempts int, nextAttempt time.Time, lastError string, final bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts = attempts
	d.NextAttemptAt = nextAttempt
	d.LastError = lastError
	if final {
		d.Status = DeliveryStatusFailed
	}
	return nil
}

// mockSender implements Sender for testing.
type mockSender struct {
	mu       sync.Mutex
	sent     []PushMessage
	failNext int
}

func (m *mockSender) Send(_ context.Context, msg PushMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errors.New("transport unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) Type() string { return "mock" }

func TestNotify_StoresAndEnqueues(t *testing.T) {
	repo := newMockRepository()
	notifier := NewNotifier(repo)

	notifier.Notify(context.Background(), queue.NotificationInput{
		UserID:  "fan-1",
		EventID: "event-1",
		EntryID: "entry-1",
		Kind:    domain.NotificationNextUp,
		Message: "You're next!",
	})

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, domain.NotificationNextUp, repo.notifications[0].Kind)
	assert.False(t, repo.notifications[0].IsRead)
	require.Len(t, repo.deliveries, 1)
	for _, d := range repo.deliveries {
		assert.Equal(t, DeliveryStatusPending, d.Status)
		assert.Equal(t, repo.notifications[0].ID, d.NotificationID)
	}
}

func TestNotify_SwallowsStoreErrors(t *testing.T) {
	repo := newMockRepository()
	repo.insertErr = errors.New("database down")
	notifier := NewNotifier(repo)

	// Must not panic or propagate; the queue operation goes on.
	notifier.Notify(context.Background(), queue.NotificationInput{
		UserID: "fan-1", EventID: "event-1", EntryID: "entry-1",
		Kind: domain.NotificationYourTurn, Message: "It's your turn!",
	})

	assert.Empty(t, repo.notifications)
	assert.Empty(t, repo.deliveries)
}

func TestNotify_EnqueueFailureKeepsFeedEntry(t *testing.T) {
	repo := newMockRepository()
	repo.enqueueErr = errors.New("queue table missing")
	notifier := NewNotifier(repo)

	notifier.Notify(context.Background(), queue.NotificationInput{
		UserID: "fan-1", EventID: "event-1", EntryID: "entry-1",
		Kind: domain.NotificationComingUp, Message: "Coming up!",
	})

	// The feed copy survives even when the push copy cannot be queued.
	assert.Len(t, repo.notifications, 1)
	assert.Empty(t, repo.deliveries)
}

func TestService_MarkReadOwnership(t *testing.T) {
	repo := newMockRepository()
	notifier := NewNotifier(repo)
	service := NewService(repo)
	notifier.Notify(context.Background(), queue.NotificationInput{
		UserID: "fan-1", EventID: "event-1", EntryID: "entry-1",
		Kind: domain.NotificationQueueJoined, Message: "joined",
	})
	id := repo.notifications[0].ID

	err := service.MarkRead(context.Background(), id, "fan-2")
	assert.ErrorIs(t, err, ErrNotRecipient)

	err = service.MarkRead(context.Background(), id, "fan-1")
	require.NoError(t, err)

	count, err := service.UnreadCount(context.Background(), "fan-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_FeedLimitClamped(t *testing.T) {
	repo := newMockRepository()
	notifier := NewNotifier(repo)
	service := NewService(repo)
	for i := 0; i < 60; i++ {
		notifier.Notify(context.Background(), queue.NotificationInput{
			UserID: "fan-1", EventID: "event-1", EntryID: fmt.Sprintf("entry-%d", i),
			Kind: domain.NotificationPositionUpdate, Message: "moved",
		})
	}

	feed, err := service.Feed(context.Background(), "fan-1", false, 0)

	require.NoError(t, err)
	assert.Len(t, feed, DefaultFeedLimit)
}
