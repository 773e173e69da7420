// Package events provides HTTP handlers and business logic for managing
// meet-and-greet events and their queue configuration.
package events

import (
	"context"

	"github.com/fanline/fanline/internal/domain"
)

// Filter narrows event listings.
type Filter struct {
	OrganizerID string
	ActiveOnly  bool
}

// Repository defines the storage interface for events.
type Repository interface {
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// GetEventByCode looks an event up by its share code. Codes are compared
	// case-insensitively.
	GetEventByCode(ctx context.Context, code string) (*domain.Event, error)

	ListEvents(ctx context.Context, filter Filter) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, event *domain.Event) error
	SetActive(ctx context.Context, id string, active bool) error

	// CountNonCancelled returns the number of entries occupying slots of the
	// event.
	CountNonCancelled(ctx context.Context, eventID string) (int, error)
}
