package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/delivery/http/middleware"
	"oriyet/internal/domain"
)

// CreateEventRequest is the request body for POST /admin/events.
type CreateEventRequest struct {
	Title                string                 `json:"title" validate:"required,max=255"`
	Description          *string                `json:"description"`
	StartDate            time.Time              `json:"start_date" validate:"required"`
	EndDate              time.Time              `json:"end_date" validate:"required"`
	RegistrationDeadline *time.Time             `json:"registration_deadline"`
	MaxParticipants      *int                   `json:"max_participants" validate:"omitempty,gt=0"`
	IsFree               bool                   `json:"is_free"`
	Price                float64                `json:"price" validate:"gte=0"`
	Currency             string                 `json:"currency" validate:"omitempty,len=3"`
	EventType            domain.EventType       `json:"event_type" validate:"required,oneof=seminar workshop webinar bootcamp conference hackathon"`
	EventMode            domain.EventMode       `json:"event_mode" validate:"required,oneof=online offline hybrid"`
	IsPublished          bool                   `json:"is_published"`
	HasCertificate       bool                   `json:"has_certificate"`
	OnlinePlatform       *domain.OnlinePlatform `json:"online_platform" validate:"omitempty,oneof=zoom google_meet microsoft_teams other"`
	OnlineLink           *string                `json:"online_link" validate:"omitempty,url"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if !c.StartDate.IsZero() && !c.EndDate.After(c.StartDate) {
		errs = append(errs, "end_date must be after start_date")
	}
	return errs
}

func (c CreateEventRequest) event(createdBy string) *domain.Event {
	return &domain.Event{
		Title:                strings.TrimSpace(c.Title),
		Description:          c.Description,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		RegistrationDeadline: c.RegistrationDeadline,
		MaxParticipants:      c.MaxParticipants,
		IsFree:               c.IsFree,
		Price:                c.Price,
		Currency:             strings.ToUpper(c.Currency),
		EventType:            c.EventType,
		EventMode:            c.EventMode,
		IsPublished:          c.IsPublished,
		HasCertificate:       c.HasCertificate,
		OnlinePlatform:       c.OnlinePlatform,
		OnlineLink:           c.OnlineLink,
		CreatedBy:            createdBy,
	}
}

// UpdateEventRequest is the request body for PATCH /admin/events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title                *string                    `json:"title" validate:"omitempty,min=1,max=255"`
	Description          *string                    `json:"description"`
	StartDate            *time.Time                 `json:"start_date"`
	EndDate              *time.Time                 `json:"end_date"`
	RegistrationDeadline *time.Time                 `json:"registration_deadline"`
	MaxParticipants      *int                       `json:"max_participants" validate:"omitempty,gt=0"`
	IsFree               *bool                      `json:"is_free"`
	Price                *float64                   `json:"price" validate:"omitempty,gte=0"`
	Currency             *string                    `json:"currency" validate:"omitempty,len=3"`
	EventType            *domain.EventType          `json:"event_type" validate:"omitempty,oneof=seminar workshop webinar bootcamp conference hackathon"`
	EventMode            *domain.EventMode          `json:"event_mode" validate:"omitempty,oneof=online offline hybrid"`
	Status               *domain.EventStatus        `json:"event_status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	RegistrationStatus   *domain.RegistrationWindow `json:"registration_status" validate:"omitempty,oneof=open closed full"`
	IsPublished          *bool                      `json:"is_published"`
	HasCertificate       *bool                      `json:"has_certificate"`
	VideoLink            *string                    `json:"video_link" validate:"omitempty,url"`
	SessionSummary       *string                    `json:"session_summary"`
	OnlinePlatform       *domain.OnlinePlatform     `json:"online_platform" validate:"omitempty,oneof=zoom google_meet microsoft_teams other"`
	OnlineLink           *string                    `json:"online_link" validate:"omitempty,url"`
}

func (u UpdateEventRequest) update() *domain.EventUpdate {
	return &domain.EventUpdate{
		Title:                u.Title,
		Description:          u.Description,
		StartDate:            u.StartDate,
		EndDate:              u.EndDate,
		RegistrationDeadline: u.RegistrationDeadline,
		MaxParticipants:      u.MaxParticipants,
		IsFree:               u.IsFree,
		Price:                u.Price,
		Currency:             u.Currency,
		EventType:            u.EventType,
		EventMode:            u.EventMode,
		Status:               u.Status,
		RegistrationStatus:   u.RegistrationStatus,
		IsPublished:          u.IsPublished,
		HasCertificate:       u.HasCertificate,
		VideoLink:            u.VideoLink,
		SessionSummary:       u.SessionSummary,
		OnlinePlatform:       u.OnlinePlatform,
		OnlineLink:           u.OnlineLink,
	}
}

// EventSuccessResponse is the success response envelope for single-event endpoints.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// SweepSuccessResponse is the success response envelope for POST /admin/events/sweep (200).
type SweepSuccessResponse struct {
	Data  domain.SweepResult `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	now     func() time.Time
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		now:     time.Now,
	}
}

// ListEvents godoc
// @Summary List published events
// @Description Returns published events, newest start date first. Statuses are repaired on read.
// @Tags events
// @Produce json
// @Param event_status query string false "upcoming, ongoing, completed or cancelled"
// @Param search query string false "Title search"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_input"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter := domain.EventFilter{
		PublishedOnly: true,
		Search:        strings.TrimSpace(r.URL.Query().Get("search")),
	}
	if s := r.URL.Query().Get("event_status"); s != "" {
		status := domain.EventStatus(s)
		filter.Status = &status
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), filter, params)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// GetEvent godoc
// @Summary Get a published event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.GetEventByID(r.Context(), eventID)
	c.writePublished(w, r, event, err)
}

// GetEventBySlug godoc
// @Summary Get a published event by slug
// @Tags events
// @Produce json
// @Param slug path string true "Event slug"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/slug/{slug} [get]
func (c *EventController) GetEventBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slug")
		return
	}
	event, err := c.Service.GetEventBySlug(r.Context(), slug)
	c.writePublished(w, r, event, err)
}

// writePublished hides drafts from the public endpoints.
func (c *EventController) writePublished(w http.ResponseWriter, r *http.Request, event *domain.Event, err error) {
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if !event.IsPublished {
		helpers.WriteError(w, domain.NewError(domain.KindNotFound, "event not found"))
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// AdminGetEvent godoc
// @Summary Get any event by ID (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/events/{eventID} [get]
func (c *EventController) AdminGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := c.Service.GetEventByID(r.Context(), r.PathValue("eventID"))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create an event (admin)
// @Description The slug is generated from the title. New events start upcoming with registration open.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_input"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	event := req.event(userID)
	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEvent godoc
// @Summary Update an event (admin)
// @Description Partial update. A new title regenerates the slug.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid_input"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, req.update())
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data.status: deleted"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// SweepStatuses godoc
// @Summary Run the event status sweep now (admin)
// @Description Starts due events and completes ended ones, closing their registration.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.SweepSuccessResponse
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /admin/events/sweep [post]
func (c *EventController) SweepStatuses(w http.ResponseWriter, r *http.Request) {
	res, err := c.Service.SweepStatuses(r.Context(), c.now())
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		c.Logger.InfoContext(r.Context(), "manual status sweep", "admin_id", claims.UserID, "started", res.Started, "completed", res.Completed)
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}
