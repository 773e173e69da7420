package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/pkg/ctxlog"
)

// codeRetries bounds insert attempts on a share-code collision. With a
// 32-character alphabet and six positions collisions are vanishingly rare;
// the retry covers them without an upfront existence check.
const codeRetries = 5

// Service implements event business logic.
type Service struct {
	repo Repository
}

// NewService creates a new event service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput holds data for creating an event.
type CreateInput struct {
	OrganizerID           string
	Title                 string
	Description           string
	Location              string
	StartTime             time.Time
	EndTime               time.Time
	SlotDuration          int
	MaxCapacity           int // 0 derives capacity from the schedule
	PhysicalLineThreshold int
	Price                 int64
}

// UpdateInput holds the mutable fields of an event.
type UpdateInput struct {
	Title                 string
	Description           string
	Location              string
	StartTime             time.Time
	EndTime               time.Time
	SlotDuration          int
	MaxCapacity           int
	PhysicalLineThreshold int
	Price                 int64
}

// Create registers a new event with a fresh share code. When no capacity is
// given it defaults to the number of whole slots that fit the schedule.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Event, error) {
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidSchedule
	}

	capacity := input.MaxCapacity
	if capacity == 0 {
		slotLength := time.Duration(input.SlotDuration) * time.Minute
		capacity = int(input.EndTime.Sub(input.StartTime) / slotLength)
		if capacity < 1 {
			return nil, ErrInvalidSchedule
		}
	}

	event := &domain.Event{
		OrganizerID:           input.OrganizerID,
		Title:                 input.Title,
		Description:           input.Description,
		Location:              input.Location,
		StartTime:             input.StartTime,
		EndTime:               input.EndTime,
		SlotDuration:          input.SlotDuration,
		MaxCapacity:           capacity,
		PhysicalLineThreshold: input.PhysicalLineThreshold,
		Price:                 input.Price,
		IsActive:              true,
	}

	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		event.Code = code

		err = s.repo.CreateEvent(ctx, event)
		if err == nil {
			return event, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("create event: %w", err)
		}
		ctxlog.FromContext(ctx).Warn("share code collision, retrying", "code", code)
	}
	return nil, ErrCodeTaken
}

// Get retrieves an event by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.repo.GetEvent(ctx, id)
}

// GetByCode retrieves an event by its share code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	return s.repo.GetEventByCode(ctx, code)
}

// GetWithStats retrieves an event along with its current queue occupancy.
func (s *Service) GetWithStats(ctx context.Context, id string) (*domain.EventWithQueueStats, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountNonCancelled(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	available := event.MaxCapacity - count
	if available < 0 {
		available = 0
	}
	return &domain.EventWithQueueStats{
		Event:          *event,
		QueueCount:     count,
		AvailableSlots: available,
	}, nil
}

// List retrieves events matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx, filter)
}

// Update rewrites the mutable fields of an event. Only the organizer who
// created the event may change it.
func (s *Service) Update(ctx context.Context, id, organizerID string, input UpdateInput) (*domain.Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidSchedule
	}

	event.Title = input.Title
	event.Description = input.Description
	event.Location = input.Location
	event.StartTime = input.StartTime
	event.EndTime = input.EndTime
	event.SlotDuration = input.SlotDuration
	event.MaxCapacity = input.MaxCapacity
	event.PhysicalLineThreshold = input.PhysicalLineThreshold
	event.Price = input.Price

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// SetActive opens or closes the event for new joins. Deactivating also stops
// the notification sweep from touching the event's queue.
func (s *Service) SetActive(ctx context.Context, id, organizerID string, active bool) (*domain.Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, ErrNotOwner
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("set active: %w", err)
	}
	event.IsActive = active
	return event, nil
}
