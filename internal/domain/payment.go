package domain

import (
	"context"
	"encoding/json"
	"time"
)

// PaymentTransaction is one attempt to pay for a registration through the gateway.
// swagger:model PaymentTransaction
type PaymentTransaction struct {
	ID                   string          `json:"id"`
	TransactionID        string          `json:"transaction_id"`
	RegistrationID       string          `json:"registration_id"`
	EventID              string          `json:"event_id"`
	UserID               string          `json:"user_id"`
	Amount               float64         `json:"amount"`
	Currency             string          `json:"currency"`
	Gateway              string          `json:"gateway"`
	Status               PaymentStatus   `json:"status"`
	ExpiresAt            time.Time       `json:"expires_at"`
	PaymentURL           *string         `json:"payment_url,omitempty"`
	InvoiceID            *string         `json:"invoice_id,omitempty"`
	PaymentMethod        *string         `json:"payment_method,omitempty"`
	SenderNumber         *string         `json:"sender_number,omitempty"`
	GatewayTransactionID *string         `json:"gateway_transaction_id,omitempty"`
	GatewayResponse      json.RawMessage `json:"gateway_response,omitempty" swaggertype:"object"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	RefundedAt           *time.Time      `json:"refunded_at,omitempty"`
	RefundReason         *string         `json:"refund_reason,omitempty"`
	RefundedBy           *string         `json:"refunded_by,omitempty"`
	IPAddress            *string         `json:"ip_address,omitempty"`
	UserAgent            *string         `json:"user_agent,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PaymentUpdate is a partial update. Nil fields are left unchanged.
type PaymentUpdate struct {
	StatusID             *int64
	PaymentURL           *string
	InvoiceID            *string
	PaymentMethod        *string
	SenderNumber         *string
	GatewayTransactionID *string
	GatewayResponse      json.RawMessage
	PaidAt               *time.Time
	RefundedAt           *time.Time
	RefundReason         *string
	RefundedBy           *string
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Status  *PaymentStatus
	UserID  string
	EventID string
}

// PaymentMetadata is echoed back by the gateway and cross-checked before confirmation.
type PaymentMetadata struct {
	UserID         string `json:"user_id"`
	EventID        string `json:"event_id"`
	RegistrationID string `json:"registration_id,omitempty"`
	TransactionID  string `json:"transaction_id"`
}

// GatewayStatus is the gateway's verdict on a charge.
type GatewayStatus string

const (
	GatewayCompleted GatewayStatus = "COMPLETED"
	GatewayPending   GatewayStatus = "PENDING"
	GatewayError     GatewayStatus = "ERROR"
)

// ChargeRequest asks the gateway for a hosted checkout.
type ChargeRequest struct {
	FullName    string
	Email       string
	Amount      float64
	Metadata    PaymentMetadata
	RedirectURL string
	CancelURL   string
	WebhookURL  string
}

// Charge is the gateway's answer to ChargeRequest.
type Charge struct {
	PaymentURL string
}

// GatewayVerification is a verification result or webhook payload from the gateway.
type GatewayVerification struct {
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Amount        float64         `json:"amount"`
	InvoiceID     string          `json:"invoice_id"`
	Metadata      PaymentMetadata `json:"metadata"`
	PaymentMethod string          `json:"payment_method"`
	SenderNumber  string          `json:"sender_number"`
	TransactionID string          `json:"transaction_id"`
	Status        GatewayStatus   `json:"status"`
	Raw           json.RawMessage `json:"-"`
}

// PaymentGateway is the external checkout provider.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	Verify(ctx context.Context, invoiceID string) (*GatewayVerification, error)
}

// InitiatePaymentInput starts a paid registration.
type InitiatePaymentInput struct {
	EventID   string
	Amount    *float64
	IPAddress string
	UserAgent string
}

// InitiatePaymentResult is returned after a checkout was created.
type InitiatePaymentResult struct {
	PaymentURL     string    `json:"payment_url"`
	TransactionID  string    `json:"transaction_id"`
	RegistrationID string    `json:"registration_id"`
	Amount         float64   `json:"amount"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// VerifyPaymentResult summarises the outcome of a verification or webhook.
type VerifyPaymentResult struct {
	Success            bool          `json:"success"`
	Status             PaymentStatus `json:"status"`
	Message            string        `json:"message"`
	RegistrationNumber string        `json:"registration_number,omitempty"`
	EventTitle         string        `json:"event_title,omitempty"`
	AlreadyProcessed   bool          `json:"already_processed"`
}

// PaymentRepository defines storage operations for payment transactions.
type PaymentRepository interface {
	Create(ctx context.Context, txn *PaymentTransaction, statusID int64) error
	GetByTransactionID(ctx context.Context, transactionID string) (*PaymentTransaction, error)
	// GetByTransactionIDForUpdate locks the row for the rest of the enclosing transaction.
	GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*PaymentTransaction, error)
	// LatestForRegistration returns the newest transaction of the registration with the given status.
	LatestForRegistration(ctx context.Context, registrationID string, statusID int64) (*PaymentTransaction, error)
	Update(ctx context.Context, id string, update *PaymentUpdate) (*PaymentTransaction, error)
	// TransitionForRegistration moves every transaction of the registration from one status to another.
	TransitionForRegistration(ctx context.Context, registrationID string, fromStatusID, toStatusID int64) (int64, error)
	// ExpireOverdue moves transactions with the from status and expires_at before now to the to status.
	ExpireOverdue(ctx context.Context, now time.Time, fromStatusID, toStatusID int64) (int64, error)
	List(ctx context.Context, filter PaymentFilter, params PaginationParams) ([]*PaymentTransaction, int, error)
}

// PaymentService is the registration/payment orchestrator for paid events.
type PaymentService interface {
	InitiatePayment(ctx context.Context, userID string, input InitiatePaymentInput) (*InitiatePaymentResult, error)
	VerifyPayment(ctx context.Context, invoiceID, requesterID string) (*VerifyPaymentResult, error)
	HandleWebhook(ctx context.Context, apiKey string, payload *GatewayVerification) (*VerifyPaymentResult, error)
	ConfirmPayment(ctx context.Context, verification *GatewayVerification, requesterID string) (*VerifyPaymentResult, error)
	CancelPayment(ctx context.Context, transactionID, userID string) error
	RefundPayment(ctx context.Context, transactionID, adminID, reason string) error
	ExpirePendingPayments(ctx context.Context, now time.Time) (int64, error)
	GetTransaction(ctx context.Context, transactionID, userID string, isAdmin bool) (*PaymentTransaction, error)
	ListPayments(ctx context.Context, filter PaymentFilter, params PaginationParams) ([]*PaymentTransaction, int, error)
}

// PaymentValidator guards every payment state change.
type PaymentValidator interface {
	ValidateEvent(ctx context.Context, eventID string) (*Event, error)
	CheckExistingRegistrations(ctx context.Context, eventID, userID string) (*Registration, error)
	ValidateAmount(submitted, price float64) error
	ValidateMetadata(meta *PaymentMetadata, requesterID string) error
}
