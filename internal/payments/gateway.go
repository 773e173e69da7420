// Package payments creates payment intents for priced events and settles
// gateway webhooks against the queue.
package payments

import "context"

// Intent is a payment authorization created at the gateway before a fan
// joins a priced queue.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
}

// IntentInput describes the charge to authorize. Funds flow to the
// organizer's connected account minus the platform fee.
type IntentInput struct {
	Amount         int64
	Currency       string
	PlatformFee    int64
	PayoutAccount  string
	EventID        string
	UserID         string
	IdempotencyKey string
}

// Gateway is the payment provider surface the service needs.
type Gateway interface {
	CreateIntent(ctx context.Context, input IntentInput) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
	CreateRefund(ctx context.Context, intentID string) error
}
