// Package push delivers notifications to fans' devices over PubNub.
package push

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"
	"golang.org/x/time/rate"

	"github.com/fanline/fanline/internal/notifications"
)

// Config contains PubNub sender configuration.
type Config struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
	// RatePerSecond caps outbound publishes; PubNub throttles hard above
	// its plan limits.
	RatePerSecond float64
	Burst         int
}

// Sender publishes push messages to per-user PubNub channels.
type Sender struct {
	pn      *pubnub.PubNub
	limiter *rate.Limiter
}

// NewSender creates a PubNub push sender.
func NewSender(cfg Config) *Sender {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey

	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rps)
	}

	return &Sender{
		pn:      pubnub.NewPubNub(pnCfg),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Send publishes the message to the fan's channel. Blocks on the rate
// limiter when the publish budget is exhausted.
func (s *Sender) Send(ctx context.Context, msg notifications.PushMessage) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, _, err := s.pn.PublishWithContext(ctx).
		Channel(channelFor(msg.UserID)).
		Message(map[string]any{
			"type":     string(msg.Kind),
			"message":  msg.Message,
			"event_id": msg.EventID,
		}).
		Execute()
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Type returns the transport name.
func (s *Sender) Type() string {
	return "pubnub"
}

func channelFor(userID string) string {
	return "user-" + userID
}
