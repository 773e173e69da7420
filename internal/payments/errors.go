package payments

import "errors"

// Domain errors for the payments module.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrEntryNotFound    = errors.New("queue entry not found")
	ErrEventFree        = errors.New("event does not require payment")
	ErrNoPayoutAccount  = errors.New("organizer has no payout account")
	ErrNotOrganizer     = errors.New("only the event organizer may do this")
	ErrGatewayRejected  = errors.New("payment gateway rejected the request")
	ErrInvalidSignature = errors.New("webhook signature is invalid")
	ErrUnknownEventType = errors.New("unhandled webhook event type")
)
