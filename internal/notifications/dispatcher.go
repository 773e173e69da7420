package notifications

import (
	"context"
	"fmt"

	"github.com/fanline/fanline/internal/pkg/ctxlog"
)

// Dispatcher routes queued deliveries to the registered push senders.
type Dispatcher struct {
	senders []Sender
}

// NewDispatcher creates a new delivery dispatcher.
func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// Dispatch pushes one delivery through every registered sender. A single
// failing transport fails the delivery so the worker retries it.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) error {
	msg := PushMessage{
		UserID:  delivery.UserID,
		EventID: delivery.EventID,
		Kind:    delivery.Kind,
		Message: delivery.Message,
	}

	for _, sender := range d.senders {
		if err := sender.Send(ctx, msg); err != nil {
			recordPush(sender.Type(), "error")
			return fmt.Errorf("send via %s: %w", sender.Type(), err)
		}
		recordPush(sender.Type(), "ok")
		ctxlog.FromContext(ctx).Debug("push delivered",
			"transport", sender.Type(), "user_id", delivery.UserID, "kind", delivery.Kind)
	}
	return nil
}
