// Package stripe implements the payment gateway against the Stripe HTTP API.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fanline/fanline/internal/payments"
)

const (
	defaultBaseURL = "https://api.stripe.com/v1"
	defaultTimeout = 15 * time.Second

	// signatureTolerance bounds webhook timestamp skew; replayed payloads
	// older than this are rejected.
	signatureTolerance = 5 * time.Minute
)

// Config holds Stripe client configuration.
type Config struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string // override for tests
	Timeout       time.Duration
}

// Client implements payments.Gateway against the Stripe API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Stripe client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// CreateIntent creates a destination-charge payment intent: the charge
// settles on the organizer's connected account and the platform fee stays
// behind.
func (c *Client) CreateIntent(ctx context.Context, input payments.IntentInput) (*payments.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", input.Currency)
	form.Set("application_fee_amount", strconv.FormatInt(input.PlatformFee, 10))
	form.Set("transfer_data[destination]", input.PayoutAccount)
	form.Set("metadata[event_id]", input.EventID)
	form.Set("metadata[user_id]", input.UserID)
	form.Set("automatic_payment_methods[enabled]", "true")

	var intent intentPayload
	err := c.do(ctx, http.MethodPost, "/payment_intents", form, input.IdempotencyKey, &intent)
	if err != nil {
		return nil, err
	}
	return intent.toDomain(), nil
}

// RetrieveIntent fetches the current state of a payment intent.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (*payments.Intent, error) {
	var intent intentPayload
	err := c.do(ctx, http.MethodGet, "/payment_intents/"+intentID, nil, "", &intent)
	if err != nil {
		return nil, err
	}
	return intent.toDomain(), nil
}

// CreateRefund refunds the full charge behind the intent.
func (c *Client) CreateRefund(ctx context.Context, intentID string) error {
	form := url.Values{}
	form.Set("payment_intent", intentID)

	var out struct {
		ID string `json:"id"`
	}
	return c.do(ctx, http.MethodPost, "/refunds", form, "refund:"+intentID, &out)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, idempotencyKey string, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		_ = json.Unmarshal(payload, &apiErr)
		return fmt.Errorf("%w: %s %s (%s)", payments.ErrGatewayRejected,
			resp.Status, apiErr.Error.Message, apiErr.Error.Code)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type intentPayload struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

func (p *intentPayload) toDomain() *payments.Intent {
	return &payments.Intent{
		ID:           p.ID,
		ClientSecret: p.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
		Status:       p.Status,
	}
}

// VerifySignature checks the webhook signature header against the payload.
// The header carries a unix timestamp and one or more HMAC-SHA256 digests of
// "<timestamp>.<payload>".
func (c *Client) VerifySignature(payload []byte, header string, now time.Time) error {
	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return payments.ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return payments.ErrInvalidSignature
	}

	sent := time.Unix(timestamp, 0)
	if now.Sub(sent) > signatureTolerance || sent.Sub(now) > signatureTolerance {
		return payments.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(c.config.WebhookSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return payments.ErrInvalidSignature
}
