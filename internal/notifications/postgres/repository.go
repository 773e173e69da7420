// Package postgres provides the PostgreSQL implementation of the
// notifications repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fanline/fanline/internal/domain"
	"github.com/fanline/fanline/internal/notifications"
)

// Repository implements the notifications.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertNotification stores a notification in the fan's feed.
func (r *Repository) InsertNotification(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (user_id, event_id, entry_id, kind, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`
	err := r.db.QueryRow(ctx, query,
		n.UserID, n.EventID, n.EntryID, n.Kind, n.Message,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `
		SELECT id, user_id, event_id, entry_id, kind, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID, &n.UserID, &n.EventID, &n.EntryID,
			&n.Kind, &n.Message, &n.IsRead, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications for the user.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification as read if it belongs to the user.
func (r *Repository) MarkRead(ctx context.Context, notificationID, userID string) error {
	// Non-UUID input would otherwise surface as a cast error from postgres.
	if uuid.Validate(notificationID) != nil {
		return notifications.ErrNotFound
	}

	query := `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var owner string
		err := r.db.QueryRow(ctx,
			`SELECT user_id FROM notifications WHERE id = $1`, notificationID,
		).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return notifications.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		return notifications.ErrNotRecipient
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// EnqueueDelivery queues one push delivery.
func (r *Repository) EnqueueDelivery(ctx context.Context, d *notifications.Delivery) error {
	query := `
		INSERT INTO push_deliveries (
			notification_id, user_id, event_id, kind, message, status, next_attempt_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		d.NotificationID, d.UserID, d.EventID, d.Kind, d.Message, d.Status, d.NextAttemptAt,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}
	return nil
}

// ClaimDeliveries claims up to limit due pending deliveries with
// FOR UPDATE SKIP LOCKED so concurrent workers never grab the same row.
// Claimed rows get their next attempt pushed out as a lease; a crashed
// worker's claim simply becomes due again.
func (r *Repository) ClaimDeliveries(ctx context.Context, limit int, now time.Time) ([]notifications.Delivery, error) {
	query := `
		UPDATE push_deliveries
		SET next_attempt_at = $1 + INTERVAL '1 minute', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM push_deliveries
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, notification_id, user_id, event_id, kind, message,
		          status, attempts, next_attempt_at, last_error,
		          created_at, updated_at, sent_at
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim deliveries: %w", err)
	}
	defer rows.Close()

	var out []notifications.Delivery
	for rows.Next() {
		var d notifications.Delivery
		err := rows.Scan(
			&d.ID, &d.NotificationID, &d.UserID, &d.EventID, &d.Kind, &d.Message,
			&d.Status, &d.Attempts, &d.NextAttemptAt, &d.LastError,
			&d.CreatedAt, &d.UpdatedAt, &d.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkDeliverySent records a successful push.
func (r *Repository) MarkDeliverySent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE push_deliveries
		SET status = 'sent', sent_at = $1, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := r.db.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("mark delivery sent: %w", err)
	}
	return nil
}

// MarkDeliveryFailed reschedules a retry, or buries the delivery when final.
func (r *Repository) MarkDeliveryFailed(ctx context.Context, id string, attempts int, nextAttempt time.Time, lastError string, final bool) error {
	status := notifications.DeliveryStatusPending
	if final {
		status = notifications.DeliveryStatusFailed
	}
	query := `
		UPDATE push_deliveries
		SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4,
		    updated_at = NOW()
		WHERE id = $5
	`
	if _, err := r.db.Exec(ctx, query, status, attempts, nextAttempt, lastError, id); err != nil {
		return fmt.Errorf("mark delivery failed: %w", err)
	}
	return nil
}
