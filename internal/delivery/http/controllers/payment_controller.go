package controllers

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"oriyet/internal/adapters/gateway"
	"oriyet/internal/delivery/http/helpers"
	"oriyet/internal/delivery/http/middleware"
	"oriyet/internal/domain"
)

const maxWebhookBody = 1 << 20

// InitiatePaymentRequest is the request body for POST /payments/initiate.
// Amount defaults to the event price when omitted.
type InitiatePaymentRequest struct {
	EventID string   `json:"event_id" validate:"required,uuid"`
	Amount  *float64 `json:"amount" validate:"omitempty,gt=0"`
}

// VerifyPaymentRequest is the request body for POST /payments/verify.
type VerifyPaymentRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

// RefundPaymentRequest is the request body for POST /admin/payments/{transactionID}/refund.
type RefundPaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Validate implements Validator.
func (r RefundPaymentRequest) Validate() []string {
	if strings.TrimSpace(r.Reason) == "" {
		return []string{"reason is required"}
	}
	return nil
}

// InitiatePaymentSuccessResponse is the success response envelope for POST /payments/initiate (201).
type InitiatePaymentSuccessResponse struct {
	Data  *domain.InitiatePaymentResult `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// VerifyPaymentSuccessResponse is the success response envelope for POST /payments/verify and the webhook (200).
type VerifyPaymentSuccessResponse struct {
	Data  *domain.VerifyPaymentResult `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// TransactionSuccessResponse is the success response envelope for GET /payments/{transactionID} (200).
type TransactionSuccessResponse struct {
	Data  *domain.PaymentTransaction `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// ListPaymentsResponse is the data payload for GET /admin/payments.
type ListPaymentsResponse struct {
	Items      []*domain.PaymentTransaction `json:"items"`
	Pagination helpers.PaginationMeta       `json:"pagination"`
}

// ListPaymentsSuccessResponse is the success response envelope for GET /admin/payments (200).
type ListPaymentsSuccessResponse struct {
	Data  ListPaymentsResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type PaymentController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
}

func NewPaymentController(logger *slog.Logger, svc domain.PaymentService) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
	}
}

// InitiatePayment godoc
// @Summary Start paying for an event
// @Description Creates or reuses a pending registration and a pending transaction, then returns the gateway checkout URL.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body InitiatePaymentRequest true "Event and optional amount"
// @Success 201 {object} controllers.InitiatePaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: not_payable, registration_closed, event_unavailable, capacity_reached, already_registered or amount_mismatch"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /payments/initiate [post]
func (c *PaymentController) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := c.Service.InitiatePayment(r.Context(), userID, domain.InitiatePaymentInput{
		EventID:   req.EventID,
		Amount:    req.Amount,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, res)
}

// VerifyPayment godoc
// @Summary Verify a payment after checkout
// @Description Asks the gateway for the invoice status and confirms the registration when completed. Safe to repeat.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body VerifyPaymentRequest true "Gateway invoice id"
// @Success 200 {object} controllers.VerifyPaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_metadata, amount_mismatch or capacity_reached"
// @Failure 403 {object} helpers.APIResponse "error.code: user_mismatch"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /payments/verify [post]
func (c *PaymentController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := c.Service.VerifyPayment(r.Context(), req.InvoiceID, userID)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// Webhook godoc
// @Summary Gateway payment webhook
// @Description Server-to-server notification from UddoktaPay, authenticated by the RT-UDDOKTAPAY-API-KEY header.
// @Tags payments
// @Accept json
// @Produce json
// @Param RT-UDDOKTAPAY-API-KEY header string true "Webhook API key"
// @Success 200 {object} controllers.VerifyPaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_metadata"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /payments/webhook [post]
func (c *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "could not read body")
		return
	}
	// An undecodable payload still goes through the key check first.
	payload, err := gateway.DecodeVerification(raw)
	if err != nil {
		c.Logger.WarnContext(r.Context(), "webhook payload rejected", "err", err)
		payload = nil
	}
	res, err := c.Service.HandleWebhook(r.Context(), r.Header.Get(gateway.APIKeyHeader), payload)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// CancelPayment godoc
// @Summary Cancel my pending payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} helpers.APIResponse "data.status: cancelled"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /payments/{transactionID}/cancel [post]
func (c *PaymentController) CancelPayment(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("transactionID")
	if transactionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing transactionID")
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.CancelPayment(r.Context(), transactionID, userID); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "cancelled"})
}

// RefundPayment godoc
// @Summary Refund a confirmed payment (admin)
// @Description Marks the payment refunded, cancels the registration, releases the seat and revokes certificates.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Transaction ID"
// @Param body body RefundPaymentRequest true "Refund reason"
// @Success 200 {object} helpers.APIResponse "data.status: refunded"
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_state"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/payments/{transactionID}/refund [post]
func (c *PaymentController) RefundPayment(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("transactionID")
	if transactionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing transactionID")
		return
	}
	var req RefundPaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	adminID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.RefundPayment(r.Context(), transactionID, adminID, strings.TrimSpace(req.Reason)); err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, StatusResponse{Status: "refunded"})
}

// GetTransaction godoc
// @Summary Get a payment transaction
// @Description Users see their own transactions; admins see all.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} controllers.TransactionSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /payments/{transactionID} [get]
func (c *PaymentController) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := r.PathValue("transactionID")
	if transactionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing transactionID")
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	txn, err := c.Service.GetTransaction(r.Context(), transactionID, claims.UserID, claims.HasRole(domain.RoleAdmin))
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, txn)
}

// ListPayments godoc
// @Summary List payment transactions (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Payment status code"
// @Param user_id query string false "Filter by user"
// @Param event_id query string false "Filter by event"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListPaymentsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: invalid_input"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/payments [get]
func (c *PaymentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PaymentFilter{
		UserID:  q.Get("user_id"),
		EventID: q.Get("event_id"),
	}
	if s := q.Get("status"); s != "" {
		status := domain.PaymentStatus(s)
		filter.Status = &status
	}
	params := helpers.ParsePagination(r)
	txns, total, err := c.Service.ListPayments(r.Context(), filter, params)
	if err != nil {
		respondError(c.Logger, w, r, err)
		return
	}
	if txns == nil {
		txns = []*domain.PaymentTransaction{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListPaymentsResponse{Items: txns, Pagination: meta})
}

// clientIP prefers the first X-Forwarded-For hop set by the proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
