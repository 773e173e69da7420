package events

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/domain"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	events     map[string]*domain.Event
	counts     map[string]int
	nextID     int
	takenCodes map[string]bool
	createErr  error
	// failCreates makes the next N create calls report a code collision.
	failCreates int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		events:     make(map[string]*domain.Event),
		counts:     make(map[string]int),
		takenCodes: make(map[string]bool),
	}
}

func (m *mockRepository) CreateEvent(_ context.Context, event *domain.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.failCreates > 0 {
		m.failCreates--
		return ErrCodeTaken
	}
	if m.takenCodes[event.Code] {
		return ErrCodeTaken
	}
	m.nextID++
	event.ID = fmt.Sprintf("event-%d", m.nextID)
	m.takenCodes[event.Code] = true
	stored := *event
	m.events[stored.ID] = &stored
	return nil
}

func (m *mockRepository) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	if e, ok := m.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepository) GetEventByCode(_ context.Context, code string) (*domain.Event, error) {
	for _, e := range m.events {
		if e.Code == strings.ToUpper(code) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) ListEvents(_ context.Context, filter Filter) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range m.events {
		if filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID {
			continue
		}
		if filter.ActiveOnly && !e.IsActive {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockRepository) UpdateEvent(_ context.Context, event *domain.Event) error {
	if _, ok := m.events[event.ID]; !ok {
		return ErrNotFound
	}
	stored := *event
	m.events[event.ID] = &stored
	return nil
}

func (m *mockRepository) SetActive(_ context.Context, id string, active bool) error {
	e, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	e.IsActive = active
	return nil
}

func (m *mockRepository) CountNonCancelled(_ context.Context, eventID string) (int, error) {
	return m.counts[eventID], nil
}

func validInput() CreateInput {
	return CreateInput{
		OrganizerID:  "organizer-1",
		Title:        "Signing Session",
		Location:     "Main Stage",
		StartTime:    time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
		SlotDuration: 5,
		MaxCapacity:  30,
	}
}

func TestCreate_GeneratesCode(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)

	event, err := service.Create(context.Background(), validInput())

	require.NoError(t, err)
	assert.Len(t, event.Code, 6)
	assert.True(t, event.IsActive)
	for _, c := range event.Code {
		assert.Contains(t, codeAlphabet, string(c))
	}
}

func TestCreate_DerivesCapacityFromSchedule(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	input := validInput()
	input.MaxCapacity = 0 // four hours of five-minute slots

	event, err := service.Create(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 48, event.MaxCapacity)
}

func TestCreate_InvalidSchedule(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	input := validInput()
	input.EndTime = input.StartTime

	event, err := service.Create(context.Background(), input)

	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestCreate_ScheduleShorterThanOneSlot(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	input := validInput()
	input.MaxCapacity = 0
	input.EndTime = input.StartTime.Add(2 * time.Minute)

	event, err := service.Create(context.Background(), input)

	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestCreate_RetriesOnCodeCollision(t *testing.T) {
	repo := newMockRepository()
	repo.failCreates = 2
	service := NewService(repo)

	event, err := service.Create(context.Background(), validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, event.Code)
	assert.Zero(t, repo.failCreates, "service retried through the collisions")
}

func TestCreate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := newMockRepository()
	repo.failCreates = codeRetries + 1
	service := NewService(repo)

	event, err := service.Create(context.Background(), validInput())

	assert.Nil(t, event)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestUpdate_RequiresOwner(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	event, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = service.Update(context.Background(), event.ID, "someone-else", UpdateInput{
		Title:        "Hijacked",
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		SlotDuration: 5,
		MaxCapacity:  10,
	})

	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSetActive_TogglesJoins(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	event, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)

	updated, err := service.SetActive(context.Background(), event.ID, "organizer-1", false)

	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.False(t, repo.events[event.ID].IsActive)
}

func TestGetWithStats(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	event, err := service.Create(context.Background(), validInput())
	require.NoError(t, err)
	repo.counts[event.ID] = 12

	stats, err := service.GetWithStats(context.Background(), event.ID)

	require.NoError(t, err)
	assert.Equal(t, 12, stats.QueueCount)
	assert.Equal(t, 18, stats.AvailableSlots)
}

func TestGetWithStats_NeverNegativeSlots(t *testing.T) {
	repo := newMockRepository()
	service := NewService(repo)
	input := validInput()
	input.MaxCapacity = 5
	event, err := service.Create(context.Background(), input)
	require.NoError(t, err)
	repo.counts[event.ID] = 9

	stats, err := service.GetWithStats(context.Background(), event.ID)

	require.NoError(t, err)
	assert.Equal(t, 0, stats.AvailableSlots)
}
