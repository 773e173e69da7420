// Package domain holds the shared types of the queueing model.
package domain

import "time"

// NotificationKind tags the stage of the queue lifecycle a notification
// belongs to.
type NotificationKind string

// Notification kinds.
const (
	NotificationQueueJoined    NotificationKind = "queue_joined"
	NotificationPositionUpdate NotificationKind = "position_update"
	NotificationComingUp       NotificationKind = "coming_up"
	NotificationNextUp         NotificationKind = "next_up"
	NotificationYourTurn       NotificationKind = "your_turn"
	NotificationMissedTurn     NotificationKind = "missed_turn"
)

// IsValid checks if the notification kind is valid.
func (k NotificationKind) IsValid() bool {
	switch k {
	case NotificationQueueJoined, NotificationPositionUpdate,
		NotificationComingUp, NotificationNextUp,
		NotificationYourTurn, NotificationMissedTurn:
		return true
	}
	return false
}

// Notification is an append-only record delivered to a fan's feed.
// Only the read flag is ever mutated after creation.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	EventID   string           `json:"event_id"`
	EntryID   string           `json:"entry_id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
