package domain

import (
	"context"
	"time"
)

// Registration is a user's claim on a seat at an event.
// swagger:model Registration
type Registration struct {
	ID                 string             `json:"id"`
	EventID            string             `json:"event_id"`
	UserID             string             `json:"user_id"`
	RegistrationNumber string             `json:"registration_number"`
	Status             RegistrationStatus `json:"status"`
	PaymentStatus      PaymentStatus      `json:"payment_status"`
	PaymentAmount      *float64           `json:"payment_amount,omitempty"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason       *string            `json:"cancel_reason,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewRegistration returns a registration for the given pair. ID is set by the repository on create.
func NewRegistration(eventID, userID, number string, status RegistrationStatus, payment PaymentStatus, now time.Time) *Registration {
	return &Registration{
		EventID:            eventID,
		UserID:             userID,
		RegistrationNumber: number,
		Status:             status,
		PaymentStatus:      payment,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// RegistrationUpdate is a partial update. Nil fields are left unchanged.
type RegistrationUpdate struct {
	StatusID        *int64
	PaymentStatusID *int64
	PaymentAmount   *float64
	ConfirmedAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    *string
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// MyEvents splits a user's registrations by event timing.
type MyEvents struct {
	Upcoming []*RegistrationWithEvent `json:"upcoming"`
	Past     []*RegistrationWithEvent `json:"past"`
}

// RegistrationStatusView answers "am I registered" for one event.
type RegistrationStatusView struct {
	IsRegistered bool          `json:"is_registered"`
	Registration *Registration `json:"registration,omitempty"`
}

// RegistrationRepository defines storage operations for registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, reg *Registration, statusID, paymentStatusID int64) error
	GetByID(ctx context.Context, id string) (*Registration, error)
	// FindByEventAndUser returns the latest registration for the pair having one of statusIDs.
	FindByEventAndUser(ctx context.Context, eventID, userID string, statusIDs []int64) (*Registration, error)
	// DeleteByEventAndUser removes rows for the pair with the given status and reports how many went.
	DeleteByEventAndUser(ctx context.Context, eventID, userID string, statusID int64) (int64, error)
	Update(ctx context.Context, id string, update *RegistrationUpdate) (*Registration, error)
	ListByUserID(ctx context.Context, userID string, statusIDs []int64) ([]*Registration, error)
	ListByEventID(ctx context.Context, eventID string, statusID *int64, params PaginationParams) ([]*Registration, int, error)
}

// RegistrationService covers free registration, cancellation and attendee views.
type RegistrationService interface {
	RegisterFree(ctx context.Context, eventID, userID string) (*Registration, error)
	CancelRegistration(ctx context.Context, eventID, userID, reason string) (*Registration, error)
	GetRegistrationStatus(ctx context.Context, eventID, userID string) (*RegistrationStatusView, error)
	ListMyEvents(ctx context.Context, userID string) (*MyEvents, error)
	ListEventRegistrations(ctx context.Context, eventID string, status *RegistrationStatus, params PaginationParams) ([]*Registration, int, error)
}
