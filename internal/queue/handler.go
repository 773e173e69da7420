package queue

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fanline/fanline/internal/pkg/httputil"
)

// Handler handles HTTP requests for the queue module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new queue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterFanRoutes registers routes available to any authenticated user.
func (h *Handler) RegisterFanRoutes(r chi.Router) {
	r.Post("/events/{eventID}/queue", h.Join)
	r.Get("/events/{eventID}/queue", h.EventQueue)
	r.Delete("/queue/entries/{entryID}", h.Cancel)
	r.Get("/queue/entries/{entryID}", h.GetEntry)
	r.Get("/me/queue", h.MyEntries)
}

// RegisterOrganizerRoutes registers routes that require the organizer role.
func (h *Handler) RegisterOrganizerRoutes(r chi.Router) {
	r.Post("/events/{eventID}/queue/call-next", h.CallNext)
	r.Post("/queue/entries/{entryID}/complete", h.Complete)
}

// JoinRequest represents the request body for joining a queue.
type JoinRequest struct {
	PaymentIntentID *string `json:"payment_intent_id" validate:"omitempty,min=1,max=255"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEventNotFound, Status: http.StatusNotFound},
	{Error: ErrEntryNotFound, Status: http.StatusNotFound},
	{Error: ErrEventInactive, Status: http.StatusConflict},
	{Error: ErrPaymentRequired, Status: http.StatusPaymentRequired},
	{Error: ErrAlreadyInQueue, Status: http.StatusConflict},
	{Error: ErrCapacityExceeded, Status: http.StatusConflict},
	{Error: ErrQueueEmpty, Status: http.StatusConflict},
	{Error: ErrNotEntryOwner, Status: http.StatusForbidden},
	{Error: ErrNotOrganizer, Status: http.StatusForbidden},
	{Error: ErrInvalidTransition, Status: http.StatusConflict},
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}

// Join handles POST /events/{eventID}/queue request.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req JoinRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}
	}

	entry, err := h.service.Join(r.Context(), JoinInput{
		EventID:         eventID,
		UserID:          httputil.GetUserID(r.Context()),
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, entry)
}

// Cancel handles DELETE /queue/entries/{entryID} request.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.service.Cancel(r.Context(), entryID, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// CallNext handles POST /events/{eventID}/queue/call-next request.
func (h *Handler) CallNext(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	entry, err := h.service.CallNext(r.Context(), eventID, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// Complete handles POST /queue/entries/{entryID}/complete request.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.service.Complete(r.Context(), entryID, httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// EventQueue handles GET /events/{eventID}/queue request.
func (h *Handler) EventQueue(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	entries, err := h.service.EventQueue(r.Context(), eventID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}

// GetEntry handles GET /queue/entries/{entryID} request.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.service.GetEntry(r.Context(), entryID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entry)
}

// MyEntries handles GET /me/queue request.
func (h *Handler) MyEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.UserEntries(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, entries)
}
