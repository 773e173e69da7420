package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanline/fanline/internal/payments"
)

func TestCreateIntent_SendsDestinationCharge(t *testing.T) {
	var gotForm map[string]string
	var gotAuth, gotIdempotency string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())

		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret","amount":2500,"currency":"usd","status":"requires_payment_method"}`)
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test", BaseURL: server.URL})

	intent, err := client.CreateIntent(context.Background(), payments.IntentInput{
		Amount:         2500,
		Currency:       "usd",
		PlatformFee:    250,
		PayoutAccount:  "acct_123",
		EventID:        "event-1",
		UserID:         "fan-1",
		IdempotencyKey: "event-1:fan-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)

	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "event-1:fan-1", gotIdempotency)
	assert.Equal(t, "2500", gotForm["amount"])
	assert.Equal(t, "250", gotForm["application_fee_amount"])
	assert.Equal(t, "acct_123", gotForm["transfer_data[destination]"])
	assert.Equal(t, "event-1", gotForm["metadata[event_id]"])
}

func TestCreateIntent_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined.","code":"card_declined"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test", BaseURL: server.URL})

	_, err := client.CreateIntent(context.Background(), payments.IntentInput{Amount: 100, Currency: "usd"})

	require.Error(t, err)
	assert.ErrorIs(t, err, payments.ErrGatewayRejected)
	assert.Contains(t, err.Error(), "card_declined")
}

func TestCreateRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_123", r.PostForm.Get("payment_intent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"re_123"}`)
	}))
	defer server.Close()

	client := NewClient(Config{SecretKey: "sk_test", BaseURL: server.URL})

	err := client.CreateRefund(context.Background(), "pi_123")

	require.NoError(t, err)
}

func signPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(at.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	client := NewClient(Config{WebhookSecret: "whsec_test"})
	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		header := signPayload("whsec_test", payload, now)
		assert.NoError(t, client.VerifySignature(payload, header, now))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := signPayload("whsec_other", payload, now)
		assert.ErrorIs(t, client.VerifySignature(payload, header, now), payments.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := signPayload("whsec_test", payload, now)
		err := client.VerifySignature([]byte(`{"type":"charge.refunded"}`), header, now)
		assert.ErrorIs(t, err, payments.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := signPayload("whsec_test", payload, now.Add(-10*time.Minute))
		assert.ErrorIs(t, client.VerifySignature(payload, header, now), payments.ErrInvalidSignature)
	})

	t.Run("garbage header", func(t *testing.T) {
		assert.ErrorIs(t, client.VerifySignature(payload, "nonsense", now), payments.ErrInvalidSignature)
	})
}
