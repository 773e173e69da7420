package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fanline/fanline/internal/pkg/ctxlog"
	"github.com/fanline/fanline/internal/pkg/httputil"
)

// maxWebhookBody bounds gateway payload size.
const maxWebhookBody = 1 << 20

// SignatureVerifier checks webhook payload authenticity.
type SignatureVerifier interface {
	VerifySignature(payload []byte, header string, now time.Time) error
}

// Handler handles HTTP requests for the payments module.
type Handler struct {
	service  *Service
	verifier SignatureVerifier
}

// NewHandler creates a new payments handler.
func NewHandler(service *Service, verifier SignatureVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

// RegisterFanRoutes registers routes available to any authenticated user.
func (h *Handler) RegisterFanRoutes(r chi.Router) {
	r.Post("/events/{eventID}/payment-intent", h.CreateIntent)
}

// RegisterOrganizerRoutes registers routes that require the organizer role.
func (h *Handler) RegisterOrganizerRoutes(r chi.Router) {
	r.Post("/queue/entries/{entryID}/refund", h.Refund)
}

// RegisterWebhookRoutes registers the unauthenticated gateway callback.
// Authenticity comes from the signature header, not a session.
func (h *Handler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.Webhook)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEventNotFound, Status: http.StatusNotFound},
	{Error: ErrEntryNotFound, Status: http.StatusNotFound},
	{Error: ErrEventFree, Status: http.StatusConflict},
	{Error: ErrNoPayoutAccount, Status: http.StatusConflict},
	{Error: ErrNotOrganizer, Status: http.StatusForbidden},
	{Error: ErrGatewayRejected, Status: http.StatusBadGateway, Message: "payment provider rejected the request"},
}

// CreateIntent handles POST /events/{eventID}/payment-intent request.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	intent, err := h.service.CreateIntent(r.Context(), eventID, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, map[string]any{
		"intent_id":     intent.ID,
		"client_secret": intent.ClientSecret,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})
}

// Refund handles POST /queue/entries/{entryID}/refund request.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	err := h.service.RefundEntry(r.Context(), entryID, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusAccepted, map[string]bool{"refund_requested": true})
}

// webhookPayload mirrors the slice of the gateway event we act on.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID             string `json:"id"`
			Amount         int64  `json:"amount"`
			AmountReceived int64  `json:"amount_received"`
			PaymentIntent  string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

// Webhook handles POST /webhooks/stripe request.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if err := h.verifier.VerifySignature(payload, r.Header.Get("Stripe-Signature"), time.Now()); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid signature")
		return
	}

	var event webhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	intentID := event.Data.Object.ID
	amount := event.Data.Object.AmountReceived
	if event.Data.Object.PaymentIntent != "" {
		// Charge events reference the intent indirectly.
		intentID = event.Data.Object.PaymentIntent
		amount = event.Data.Object.Amount
	}

	err = h.service.HandleWebhook(r.Context(), WebhookEvent{
		Type:     event.Type,
		IntentID: intentID,
		Amount:   amount,
	})
	if errors.Is(err, ErrUnknownEventType) {
		// Acknowledge types we do not act on so the gateway stops retrying.
		httputil.Success(w, http.StatusOK, map[string]bool{"ignored": true})
		return
	}
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("webhook settlement failed",
			"type", event.Type, "intent_id", intentID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "settlement failed")
		return
	}

	httputil.Success(w, http.StatusOK, map[string]bool{"received": true})
}
