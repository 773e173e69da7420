package queue

import "errors"

// Precondition errors surfaced to callers. No retry, no partial state change.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEventInactive    = errors.New("event is not active")
	ErrPaymentRequired  = errors.New("payment is required for this event")
	ErrAlreadyInQueue   = errors.New("user already has a live entry in this queue")
	ErrCapacityExceeded = errors.New("queue is full")
	ErrEntryNotFound    = errors.New("queue entry not found")
	ErrQueueEmpty       = errors.New("no one is waiting in this queue")
	ErrNotEntryOwner    = errors.New("entry belongs to another user")
	ErrNotOrganizer     = errors.New("only the event organizer may do this")

	// ErrInvalidTransition is returned when a transition is requested from an
	// illegal source state.
	ErrInvalidTransition = errors.New("illegal entry state transition")

	// ErrPositionConflict signals a broken invariant (duplicate positions in
	// the waiting pool). Renumbering aborts without writes when it is found.
	ErrPositionConflict = errors.New("duplicate positions in waiting pool")
)
