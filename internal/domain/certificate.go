package domain

import (
	"context"
	"time"
)

// Certificate proves attendance of a completed event. Revoked certificates stay
// in storage flagged invalid.
// swagger:model Certificate
type Certificate struct {
	ID                string     `json:"id"`
	CertificateID     string     `json:"certificate_id"`
	RegistrationID    string     `json:"registration_id"`
	UserID            string     `json:"user_id"`
	EventID           string     `json:"event_id"`
	IsValid           bool       `json:"is_valid"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	RevokeReason      *string    `json:"revoke_reason,omitempty"`
	VerificationCount int        `json:"verification_count"`
	LastVerifiedAt    *time.Time `json:"last_verified_at,omitempty"`
	IssuedAt          time.Time  `json:"issued_at"`
	EventTitle        string     `json:"event_title,omitempty"`
	RecipientName     string     `json:"recipient_name,omitempty"`
}

// CertificateRepository defines storage operations for certificates.
type CertificateRepository interface {
	Create(ctx context.Context, cert *Certificate) error
	GetByRegistrationID(ctx context.Context, registrationID string) (*Certificate, error)
	GetByCertificateID(ctx context.Context, certificateID string) (*Certificate, error)
	RecordVerification(ctx context.Context, id string, at time.Time) error
	// RevokeByRegistrationID flags every valid certificate of the registration invalid.
	RevokeByRegistrationID(ctx context.Context, registrationID, reason string, at time.Time) (int64, error)
}

// CertificateService issues and verifies certificates.
type CertificateService interface {
	IssueCertificate(ctx context.Context, registrationID, userID string) (*Certificate, error)
	VerifyCertificate(ctx context.Context, certificateID string) (*Certificate, error)
}
