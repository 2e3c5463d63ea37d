package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"oriyet/internal/delivery/http/helpers"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthResponse is the data payload for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type HealthController struct {
	Logger *slog.Logger
	Checks map[string]HealthCheck
}

func NewHealthController(logger *slog.Logger, checks map[string]HealthCheck) *HealthController {
	return &HealthController{
		Logger: logger,
		Checks: checks,
	}
}

// Health godoc
// @Summary Liveness and dependency check
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data.status: ok"
// @Failure 503 {object} helpers.APIResponse "data.status: degraded"
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	res := HealthResponse{Status: "ok", Checks: make(map[string]string, len(c.Checks))}
	for name, check := range c.Checks {
		if err := check(ctx); err != nil {
			c.Logger.WarnContext(ctx, "health check failed", "check", name, "err", err)
			res.Checks[name] = "unavailable"
			res.Status = "degraded"
			continue
		}
		res.Checks[name] = "ok"
	}
	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSONSuccess(w, status, res)
}
