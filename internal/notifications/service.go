package notifications

import (
	"context"
	"fmt"

	"github.com/fanline/fanline/internal/domain"
)

// Feed listing bounds.
const (
	DefaultFeedLimit = 50
	MaxFeedLimit     = 200
)

// Service implements notification feed business logic.
type Service struct {
	repo Repository
}

// NewService creates a new notifications service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Feed returns the user's notifications, newest first.
func (s *Service) Feed(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit)
}

// UnreadCount returns the number of unread notifications for the user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) error {
	return s.repo.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead flags every unread notification of the user as read and
// returns how many were flipped.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return count, nil
}
