package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oriyet/internal/domain"
)

type certificateService struct {
	certificateRepo  domain.CertificateRepository
	registrationRepo domain.RegistrationRepository
	eventRepo        domain.EventRepository
	logger           *slog.Logger
	contextTimeout   time.Duration
	now              func() time.Time
}

func NewCertificateService(
	certificateRepo domain.CertificateRepository,
	registrationRepo domain.RegistrationRepository,
	eventRepo domain.EventRepository,
	logger *slog.Logger,
	timeout time.Duration,
) domain.CertificateService {
	return &certificateService{
		certificateRepo:  certificateRepo,
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		logger:           logger,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

// IssueCertificate returns the certificate of a confirmed attendee of a completed
// event, creating it on first call.
func (s *certificateService) IssueCertificate(ctx context.Context, registrationID, userID string) (*domain.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	existing, err := s.certificateRepo.GetByRegistrationID(ctx, registrationID)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return nil, domain.NewError(domain.KindNotFound, "Registration not found")
		}
		if !existing.IsValid {
			return nil, domain.ErrCertificateRevoked
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, domain.Transient(fmt.Errorf("get certificate: %w", err))
	}

	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Registration not found")
		}
		return nil, domain.Transient(fmt.Errorf("get registration: %w", err))
	}
	if reg.UserID != userID {
		return nil, domain.NewError(domain.KindNotFound, "Registration not found")
	}
	event, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("get event: %w", err))
	}

	if !event.HasCertificate {
		return nil, domain.NewError(domain.KindInvalidState, "This event does not offer certificates")
	}
	if event.Status != domain.EventStatusCompleted {
		return nil, domain.NewError(domain.KindInvalidState, "Event has not been completed yet")
	}
	if reg.Status != domain.RegistrationConfirmed {
		return nil, domain.NewError(domain.KindInvalidState, "Your registration is not confirmed")
	}
	if reg.PaymentStatus != domain.PaymentConfirmed && reg.PaymentStatus != domain.PaymentNotRequired {
		return nil, domain.NewError(domain.KindForbidden, "Payment not completed")
	}

	now := s.now()
	certID, err := newCertificateID(now)
	if err != nil {
		return nil, fmt.Errorf("certificate id: %w", err)
	}
	cert := &domain.Certificate{
		CertificateID:  certID,
		RegistrationID: reg.ID,
		UserID:         userID,
		EventID:        event.ID,
		IsValid:        true,
		IssuedAt:       now,
		EventTitle:     event.Title,
	}
	if err := s.certificateRepo.Create(ctx, cert); err != nil {
		return nil, domain.Transient(fmt.Errorf("create certificate: %w", err))
	}
	s.logger.InfoContext(ctx, "certificate issued", "certificate_id", certID, "registration_id", reg.ID)
	return cert, nil
}

func (s *certificateService) VerifyCertificate(ctx context.Context, certificateID string) (*domain.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	certificateID = strings.ToUpper(strings.TrimSpace(certificateID))
	if certificateID == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "certificate id is required")
	}
	cert, err := s.certificateRepo.GetByCertificateID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Certificate not found")
		}
		return nil, domain.Transient(fmt.Errorf("get certificate: %w", err))
	}
	if !cert.IsValid {
		return nil, domain.ErrCertificateRevoked
	}

	now := s.now()
	if err := s.certificateRepo.RecordVerification(ctx, cert.ID, now); err != nil {
		s.logger.WarnContext(ctx, "record certificate verification", "certificate_id", cert.CertificateID, "err", err)
	} else {
		cert.VerificationCount++
		cert.LastVerifiedAt = &now
	}
	return cert, nil
}
