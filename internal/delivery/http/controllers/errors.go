package controllers

import (
	"log/slog"
	"net/http"

	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/delivery/http/middleware"
)

// respondError writes a service error. Only server-side failures are logged.
func respondError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := helpers.ErrorStatus(err); status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	helpers.WriteError(w, err)
}

// requireUser returns the authenticated user id or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", false
	}
	return userID, true
}

// StatusResponse is a data payload carrying a short status message.
type StatusResponse struct {
	Status string `json:"status"`
}
