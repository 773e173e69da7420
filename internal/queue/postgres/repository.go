// Package postgres provides the PostgreSQL implementation of the queue repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/queue"
)

// Repository implements the queue.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const entryColumns = `
	id, event_id, user_id, position, estimated_call_time, status,
	payment_intent_id, payment_status, amount_paid,
	joined_at, called_at, completed_at, notifications_sent,
	created_at, updated_at
`

const eventColumns = `
	id, organizer_id, title, description, location, code,
	start_time, end_time, slot_duration, max_capacity,
	physical_line_threshold, price, is_active, created_at, updated_at
`

// GetEvent retrieves an event by its ID.
func (r *Repository) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	// Non-UUID input would otherwise surface as a cast error from postgres.
	if uuid.Validate(eventID) != nil {
		return nil, queue.ErrEventNotFound
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// GetEntry retrieves a queue entry by its ID.
func (r *Repository) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	if uuid.Validate(entryID) != nil {
		return nil, queue.ErrEntryNotFound
	}

	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// GetEntryByPaymentIntent retrieves the entry holding the given payment intent.
func (r *Repository) GetEntryByPaymentIntent(ctx context.Context, intentID string) (*domain.QueueEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE payment_intent_id = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, intentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry by payment intent: %w", err)
	}
	return entry, nil
}

// ListNonCancelled retrieves all non-cancelled entries of an event ordered
// by position.
func (r *Repository) ListNonCancelled(ctx context.Context, eventID string) ([]domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE event_id = $1 AND status != 'cancelled'
		ORDER BY position
	`
	return r.listEntries(ctx, query, eventID)
}

// ListWaiting retrieves the waiting pool of an event ordered by position.
func (r *Repository) ListWaiting(ctx context.Context, eventID string) ([]domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE event_id = $1 AND status = 'waiting'
		ORDER BY position
	`
	return r.listEntries(ctx, query, eventID)
}

// ListUserEntries retrieves a user's entries across events, cancelled excluded,
// newest first.
func (r *Repository) ListUserEntries(ctx context.Context, userID string) ([]domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE user_id = $1 AND status != 'cancelled'
		ORDER BY joined_at DESC
	`
	return r.listEntries(ctx, query, userID)
}

// ListWaitingForActiveEvents retrieves every waiting entry whose event is
// still active, paired with the event.
func (r *Repository) ListWaitingForActiveEvents(ctx context.Context) ([]queue.EntryWithEvent, error) {
	query := `
		SELECT
			qe.id, qe.event_id, qe.user_id, qe.position, qe.estimated_call_time, qe.status,
			qe.payment_intent_id, qe.payment_status, qe.amount_paid,
			qe.joined_at, qe.called_at, qe.completed_at, qe.notifications_sent,
			qe.created_at, qe.updated_at,
			e.id, e.organizer_id, e.title, e.description, e.location, e.code,
			e.start_time, e.end_time, e.slot_duration, e.max_capacity,
			e.physical_line_threshold, e.price, e.is_active, e.created_at, e.updated_at
		FROM queue_entries qe
		JOIN events e ON e.id = qe.event_id
		WHERE qe.status = 'waiting' AND e.is_active
		ORDER BY e.id, qe.position
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list waiting for active events: %w", err)
	}
	defer rows.Close()

	var items []queue.EntryWithEvent
	for rows.Next() {
		var (
			item          queue.EntryWithEvent
			sent          []string
			paymentStatus *string
		)
		err := rows.Scan(
			&item.Entry.ID, &item.Entry.EventID, &item.Entry.UserID,
			&item.Entry.Position, &item.Entry.EstimatedCallTime, &item.Entry.Status,
			&item.Entry.PaymentIntentID, &paymentStatus, &item.Entry.AmountPaid,
			&item.Entry.JoinedAt, &item.Entry.CalledAt, &item.Entry.CompletedAt,
			&sent, &item.Entry.CreatedAt, &item.Entry.UpdatedAt,
			&item.Event.ID, &item.Event.OrganizerID, &item.Event.Title,
			&item.Event.Description, &item.Event.Location, &item.Event.Code,
			&item.Event.StartTime, &item.Event.EndTime, &item.Event.SlotDuration,
			&item.Event.MaxCapacity, &item.Event.PhysicalLineThreshold,
			&item.Event.Price, &item.Event.IsActive,
			&item.Event.CreatedAt, &item.Event.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry with event: %w", err)
		}
		item.Entry.NotificationsSent = toKinds(sent)
		item.Entry.PaymentStatus = toPaymentStatus(paymentStatus)
		items = append(items, item)
	}
	return items, rows.Err()
}

// InsertEntry creates a new queue entry.
func (r *Repository) InsertEntry(ctx context.Context, entry *domain.QueueEntry) error {
	query := `
		INSERT INTO queue_entries (
			event_id, user_id, position, estimated_call_time, status,
			payment_intent_id, payment_status, amount_paid, joined_at, notifications_sent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	var paymentStatus *string
	if entry.PaymentStatus != nil {
		s := string(*entry.PaymentStatus)
		paymentStatus = &s
	}

	err := r.db.QueryRow(ctx, query,
		entry.EventID,
		entry.UserID,
		entry.Position,
		entry.EstimatedCallTime,
		entry.Status,
		entry.PaymentIntentID,
		paymentStatus,
		entry.AmountPaid,
		entry.JoinedAt,
		fromKinds(entry.NotificationsSent),
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// ApplyTransition moves an entry between states. The write is guarded by the
// expected source state; a zero-row update means the stored state no longer
// matches and ErrInvalidTransition is returned.
func (r *Repository) ApplyTransition(ctx context.Context, t queue.Transition) error {
	query := `
		UPDATE queue_entries
		SET status = $1,
		    called_at = COALESCE($2, called_at),
		    completed_at = COALESCE($3, completed_at),
		    updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, t.To, t.CalledAt, t.CompletedAt, t.EntryID, t.From)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM queue_entries WHERE id = $1)`, t.EntryID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("apply transition: %w", err)
		}
		if !exists {
			return queue.ErrEntryNotFound
		}
		return queue.ErrInvalidTransition
	}
	return nil
}

// ApplyPositionUpdates rewrites positions and estimates in one transaction.
func (r *Repository) ApplyPositionUpdates(ctx context.Context, updates []queue.PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin position updates: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Park the moved entries on a high range first so the partial unique
	// index never sees two waiting entries on one slot mid-rewrite.
	query := `
		UPDATE queue_entries
		SET position = position + 1000000
		WHERE id = $1
	`
	for _, u := range updates {
		if _, err := tx.Exec(ctx, query, u.EntryID); err != nil {
			return fmt.Errorf("stage position update: %w", err)
		}
	}

	query = `
		UPDATE queue_entries
		SET position = $1, estimated_call_time = $2, updated_at = NOW()
		WHERE id = $3
	`
	for _, u := range updates {
		if _, err := tx.Exec(ctx, query, u.Position, u.EstimatedCallTime, u.EntryID); err != nil {
			return fmt.Errorf("apply position update: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit position updates: %w", err)
	}
	return nil
}

// MarkNotified appends a notification tag to the entry's sent set. Appending
// an already-present tag is a no-op.
func (r *Repository) MarkNotified(ctx context.Context, entryID string, kind domain.NotificationKind) error {
	query := `
		UPDATE queue_entries
		SET notifications_sent = array_append(notifications_sent, $1),
		    updated_at = NOW()
		WHERE id = $2 AND NOT ($1 = ANY(notifications_sent))
	`
	if _, err := r.db.Exec(ctx, query, string(kind), entryID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// UpdatePaymentStatus records the gateway-reported state of the entry's payment.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, u queue.PaymentUpdate) error {
	query := `
		UPDATE queue_entries
		SET payment_status = $1, amount_paid = $2, updated_at = NOW()
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, u.Status, u.AmountPaid, u.EntryID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) listEntries(ctx context.Context, query string, args ...any) ([]domain.QueueEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.QueueEntry, error) {
	var (
		entry         domain.QueueEntry
		sent          []string
		paymentStatus *string
	)
	err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.UserID,
		&entry.Position,
		&entry.EstimatedCallTime,
		&entry.Status,
		&entry.PaymentIntentID,
		&paymentStatus,
		&entry.AmountPaid,
		&entry.JoinedAt,
		&entry.CalledAt,
		&entry.CompletedAt,
		&sent,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.NotificationsSent = toKinds(sent)
	entry.PaymentStatus = toPaymentStatus(paymentStatus)
	return &entry, nil
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	err := row.Scan(
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
		return nil, err
	}
	return &event, nil
}

func toKinds(sent []string) []domain.NotificationKind {
	kinds := make([]domain.NotificationKind, 0, len(sent))
	for _, s := range sent {
		kinds = append(kinds, domain.NotificationKind(s))
	}
	return kinds
}

func fromKinds(kinds []domain.NotificationKind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func toPaymentStatus(s *string) *domain.PaymentStatus {
	if s == nil {
		return nil
	}
	ps := domain.PaymentStatus(*s)
	return &ps
}
