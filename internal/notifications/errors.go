package notifications

import "errors"

// Domain errors for the notifications module.
var (
	ErrNotFound     = errors.New("notification not found")
	ErrNotRecipient = errors.New("notification belongs to another user")
)
