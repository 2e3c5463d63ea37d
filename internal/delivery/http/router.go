package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"oriyet/internal/delivery/http/controllers"
	"oriyet/internal/delivery/http/middleware"
	"oriyet/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Payments      *controllers.PaymentController
	Certificates  *controllers.CertificateController
	Health        *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	admin := middleware.RequireRole(verifier, logger, domain.RoleAdmin)

	// Public
	mux.HandleFunc("GET /health", c.Health.Health)
	mux.HandleFunc("GET /events", c.Events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", c.Events.GetEvent)
	mux.HandleFunc("GET /events/slug/{slug}", c.Events.GetEventBySlug)
	mux.HandleFunc("GET /certificates/verify/{certificateID}", c.Certificates.VerifyCertificate)
	mux.HandleFunc("POST /payments/webhook", c.Payments.Webhook)

	// Attendee
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(c.Registrations.RegisterFree))
	mux.HandleFunc("DELETE /events/{eventID}/registrations", auth(c.Registrations.CancelRegistration))
	mux.HandleFunc("GET /events/{eventID}/registrations/me", auth(c.Registrations.GetRegistrationStatus))
	mux.HandleFunc("GET /attendee/events", auth(c.Registrations.ListMyEvents))
	mux.HandleFunc("POST /payments/initiate", auth(c.Payments.InitiatePayment))
	mux.HandleFunc("POST /payments/verify", auth(c.Payments.VerifyPayment))
	mux.HandleFunc("POST /payments/{transactionID}/cancel", auth(c.Payments.CancelPayment))
	mux.HandleFunc("GET /payments/{transactionID}", auth(c.Payments.GetTransaction))
	mux.HandleFunc("POST /certificates", auth(c.Certificates.IssueCertificate))

	// Admin
	mux.HandleFunc("POST /admin/events", admin(c.Events.CreateEvent))
	mux.HandleFunc("POST /admin/events/sweep", admin(c.Events.SweepStatuses))
	mux.HandleFunc("GET /admin/events/{eventID}", admin(c.Events.AdminGetEvent))
	mux.HandleFunc("PATCH /admin/events/{eventID}", admin(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /admin/events/{eventID}", admin(c.Events.DeleteEvent))
	mux.HandleFunc("GET /admin/events/{eventID}/registrations", admin(c.Registrations.ListEventRegistrations))
	mux.HandleFunc("GET /admin/payments", admin(c.Payments.ListPayments))
	mux.HandleFunc("POST /admin/payments/{transactionID}/refund", admin(c.Payments.RefundPayment))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
