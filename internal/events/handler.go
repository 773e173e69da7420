package events

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fanline/fanline/internal/pkg/httputil"
)

// Handler handles HTTP requests for the events module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new events handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes available to any authenticated user.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/events", h.List)
	r.Get("/events/{eventID}", h.Get)
	r.Get("/events/code/{code}", h.GetByCode)
}

// RegisterOrganizerRoutes registers routes that require the organizer role.
func (h *Handler) RegisterOrganizerRoutes(r chi.Router) {
	r.Post("/events", h.Create)
	r.Patch("/events/{eventID}", h.Update)
	r.Post("/events/{eventID}/activate", h.Activate)
	r.Post("/events/{eventID}/deactivate", h.Deactivate)
}

// CreateRequest represents the request body for creating an event.
type CreateRequest struct {
	Title                 string    `json:"title" validate:"required,min=1,max=255"`
	Description           string    `json:"description" validate:"max=4000"`
	Location              string    `json:"location" validate:"max=255"`
	StartTime             time.Time `json:"start_time" validate:"required"`
	EndTime               time.Time `json:"end_time" validate:"required"`
	SlotDuration          int       `json:"slot_duration" validate:"required,min=1,max=240"`
	MaxCapacity           int       `json:"max_capacity" validate:"min=0,max=10000"`
	PhysicalLineThreshold int       `json:"physical_line_threshold" validate:"min=0,max=1000"`
	Price                 int64     `json:"price" validate:"min=0"`
}

// UpdateRequest represents the request body for updating an event.
type UpdateRequest struct {
	Title                 string    `json:"title" validate:"required,min=1,max=255"`
	Description           string    `json:"description" validate:"max=4000"`
	Location              string    `json:"location" validate:"max=255"`
	StartTime             time.Time `json:"start_time" validate:"required"`
	EndTime               time.Time `json:"end_time" validate:"required"`
	SlotDuration          int       `json:"slot_duration" validate:"required,min=1,max=240"`
	MaxCapacity           int       `json:"max_capacity" validate:"required,min=1,max=10000"`
	PhysicalLineThreshold int       `json:"physical_line_threshold" validate:"min=0,max=1000"`
	Price                 int64     `json:"price" validate:"min=0"`
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotFound, Status: http.StatusNotFound},
	{Error: ErrCodeTaken, Status: http.StatusConflict},
	{Error: ErrNotOwner, Status: http.StatusForbidden},
	{Error: ErrInvalidSchedule, Status: http.StatusBadRequest},
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, errorMappings)
}

// Create handles POST /events request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	event, err := h.service.Create(r.Context(), CreateInput{
		OrganizerID:           httputil.GetUserID(r.Context()),
		Title:                 req.Title,
		Description:           req.Description,
		Location:              req.Location,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		SlotDuration:          req.SlotDuration,
		MaxCapacity:           req.MaxCapacity,
		PhysicalLineThreshold: req.PhysicalLineThreshold,
		Price:                 req.Price,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, event)
}

// Get handles GET /events/{eventID} request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.service.GetWithStats(r.Context(), eventID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, event)
}

// GetByCode handles GET /events/code/{code} request.
func (h *Handler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	event, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, event)
}

// List handles GET /events request.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}
	if organizer := r.URL.Query().Get("organizer_id"); organizer != "" {
		filter.OrganizerID = organizer
	}

	events, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, events)
}

// Update handles PATCH /events/{eventID} request.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	event, err := h.service.Update(r.Context(), eventID, httputil.GetUserID(r.Context()), UpdateInput{
		Title:                 req.Title,
		Description:           req.Description,
		Location:              req.Location,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		SlotDuration:          req.SlotDuration,
		MaxCapacity:           req.MaxCapacity,
		PhysicalLineThreshold: req.PhysicalLineThreshold,
		Price:                 req.Price,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, event)
}

// Activate handles POST /events/{eventID}/activate request.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles POST /events/{eventID}/deactivate request.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	eventID := chi.URLParam(r, "eventID")

	event, err := h.service.SetActive(r.Context(), eventID, httputil.GetUserID(r.Context()), active)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, event)
}
