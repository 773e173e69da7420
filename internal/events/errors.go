package events

import "errors"

// Domain errors for the events module.
var (
	ErrNotFound        = errors.New("event not found")
	ErrCodeTaken       = errors.New("event code already in use")
	ErrNotOwner        = errors.New("event belongs to another organizer")
	ErrInvalidSchedule = errors.New("event schedule is invalid")
)
