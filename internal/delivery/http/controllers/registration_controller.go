package controllers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/domain"
)

const maxOptionalBody = 64 << 10

// CancelRegistrationRequest is the optional request body for DELETE /events/{eventID}/registrations.
type CancelRegistrationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RegistrationSuccessResponse is the success response envelope for registration writes.
type RegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// RegistrationStatusSuccessResponse is the success response envelope for GET /events/{eventID}/registrations/me (200).
type RegistrationStatusSuccessResponse struct {
	Data  *domain.RegistrationStatusView `json:"data"`
	Error *helpers.APIError              `json:"error"`
}

// MyEventsSuccessResponse is the success response envelope for GET /attendee/events (200).
type MyEventsSuccessResponse struct {
	Data  *domain.MyEvents  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListRegistrationsResponse is the data payload for GET /admin/events/{eventID}/registrations.
type ListRegistrationsResponse struct {
	Items      []*domain.Registration `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListRegistrationsSuccessResponse is the success response envelope for GET /admin/events/{eventID}/registrations (200).
type ListRegistrationsSuccessResponse struct {
	Data  ListRegistrationsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterFree godoc
// @Summary Register for a free event
// @Description Confirms a seat immediately. Paid events must go through /payments/initiate.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: payment_required, registration_closed, event_unavailable, capacity_reached or already_registered"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) RegisterFree(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.RegisterFree(r.Context(), eventID, userID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// CancelRegistration godoc
// @Summary Cancel my registration
// @Description Cancels a pending or confirmed registration. A confirmed seat is released.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CancelRegistrationRequest false "Optional reason"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [delete]
func (c *RegistrationController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req CancelRegistrationRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	reg, err := c.Service.CancelRegistration(r.Context(), eventID, userID, req.Reason)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// decodeOptional is DecodeAndValidate for bodies that may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, dest any) bool {
	if r.Body == nil {
		return true
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxOptionalBody))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return helpers.DecodeAndValidate(w, r, dest)
}

// GetRegistrationStatus godoc
// @Summary Check my registration for an event
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationStatusSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/registrations/me [get]
func (c *RegistrationController) GetRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := c.Service.GetRegistrationStatus(r.Context(), eventID, userID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, view)
}

// ListMyEvents godoc
// @Summary List my registered events
// @Description Active registrations split into upcoming and past events.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyEventsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /attendee/events [get]
func (c *RegistrationController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// ListEventRegistrations godoc
// @Summary List registrations of an event (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "pending, confirmed or cancelled"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListRegistrationsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_input"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/events/{eventID}/registrations [get]
func (c *RegistrationController) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var status *domain.RegistrationStatus
	if s := r.URL.Query().Get("status"); s != "" {
		rs := domain.RegistrationStatus(s)
		status = &rs
	}
	params := helpers.ParsePagination(r)
	regs, total, err := c.Service.ListEventRegistrations(r.Context(), eventID, status, params)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListRegistrationsResponse{Items: regs, Pagination: meta})
}
