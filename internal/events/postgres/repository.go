// Package postgres provides the PostgreSQL implementation of the events repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/events"
)

// Repository implements the events.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const eventColumns = `
	id, organizer_id, title, description, location, code,
	start_time, end_time, slot_duration, max_capacity,
	physical_line_threshold, price, is_active, created_at, updated_at
`

// CreateEvent creates a new event.
func (r *Repository) CreateEvent(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (
			organizer_id, title, description, location, code,
			start_time, end_time, slot_duration, max_capacity,
			physical_line_threshold, price, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.Location,
		event.Code,
		event.StartTime,
		event.EndTime,
		event.SlotDuration,
		event.MaxCapacity,
		event.PhysicalLineThreshold,
		event.Price,
		event.IsActive,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return events.ErrCodeTaken
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by its ID.
func (r *Repository) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	// Non-UUID input would otherwise surface as a cast error from postgres.
	if uuid.Validate(id) != nil {
		return nil, events.ErrNotFound
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.getEvent(ctx, query, id)
}

// GetEventByCode retrieves an event by its share code, case-insensitively.
func (r *Repository) GetEventByCode(ctx context.Context, code string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE code = UPPER($1)`
	return r.getEvent(ctx, query, code)
}

func (r *Repository) getEvent(ctx context.Context, query string, arg any) (*domain.Event, error) {
	var event domain.Event
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.Code,
		&event.StartTime,
		&event.EndTime,
		&event.SlotDuration,
		&event.MaxCapacity,
		&event.PhysicalLineThreshold,
		&event.Price,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// ListEvents retrieves events matching the filter, soonest first.
func (r *Repository) ListEvents(ctx context.Context, filter events.Filter) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}

	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		query += fmt.Sprintf(" AND organizer_id = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND is_active"
	}
	query += " ORDER BY start_time"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var event domain.Event
		err := rows.Scan(
			&event.ID,
			&event.OrganizerID,
			&event.Title,
			&event.Description,
			&event.Location,
			&event.Code,
			&event.StartTime,
			&event.EndTime,
			&event.SlotDuration,
			&event.MaxCapacity,
			&event.PhysicalLineThreshold,
			&event.Price,
			&event.IsActive,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// UpdateEvent rewrites the mutable fields of an event.
func (r *Repository) UpdateEvent(ctx context.Context, event *domain.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, location = $3,
		    start_time = $4, end_time = $5, slot_duration = $6,
		    max_capacity = $7, physical_line_threshold = $8, price = $9,
		    updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.SlotDuration,
		event.MaxCapacity,
		event.PhysicalLineThreshold,
		event.Price,
		event.ID,
	).Scan(&event.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return events.ErrNotFound
		}
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// SetActive toggles whether the event accepts joins.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// CountNonCancelled returns the number of entries occupying slots of the event.
func (r *Repository) CountNonCancelled(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM queue_entries WHERE event_id = $1 AND status != 'cancelled'`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}
