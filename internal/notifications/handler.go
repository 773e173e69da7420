package notifications

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fanline/fanline/internal/pkg/httputil"
)

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all HTTP routes for the notifications module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/me/notifications", h.Feed)
	r.Get("/me/notifications/unread-count", h.UnreadCount)
	r.Post("/me/notifications/read-all", h.MarkAllRead)
	r.Post("/notifications/{notificationID}/read", h.MarkRead)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotFound, Status: http.StatusNotFound},
	{Error: ErrNotRecipient, Status: http.StatusForbidden},
}

// Feed handles GET /me/notifications request.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	feed, err := h.service.Feed(r.Context(), httputil.GetUserID(r.Context()), unreadOnly, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, feed)
}

// UnreadCount handles GET /me/notifications/unread-count request.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int{"unread": count})
}

// MarkRead handles POST /notifications/{notificationID}/read request.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notificationID")

	err := h.service.MarkRead(r.Context(), notificationID, httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]bool{"read": true})
}

// MarkAllRead handles POST /me/notifications/read-all request.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.MarkAllRead(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int{"marked": count})
}
