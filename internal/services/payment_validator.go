package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"oriyet/internal/domain"
)

// amountEpsilon is the largest tolerated difference between a paid amount and the price.
const amountEpsilon = 0.01

type paymentValidator struct {
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	paymentRepo      domain.PaymentRepository
	lookups          domain.LookupResolver
	logger           *slog.Logger
}

// NewPaymentValidator returns the guard run before every paid registration state change.
// Its writes join the caller's transaction when ctx carries one.
func NewPaymentValidator(
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	paymentRepo domain.PaymentRepository,
	lookups domain.LookupResolver,
	logger *slog.Logger,
) domain.PaymentValidator {
	return &paymentValidator{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		lookups:          lookups,
		logger:           logger,
	}
}

func (v *paymentValidator) ValidateEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := v.eventRepo.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "Event not found")
		}
		return nil, domain.Transient(fmt.Errorf("load event: %w", err))
	}

	if event.Price <= 0 {
		return nil, domain.ErrNotPayable
	}
	switch event.RegistrationStatus {
	case domain.RegistrationOpen:
	case domain.RegistrationFull:
		return nil, domain.ErrCapacityReached
	default:
		return nil, domain.ErrRegistrationClosed
	}
	if event.Status == domain.EventStatusCompleted || event.Status == domain.EventStatusCancelled {
		return nil, domain.NewError(domain.KindEventUnavailable, fmt.Sprintf("This event has been %s", event.Status))
	}
	if event.IsFull() {
		return nil, domain.ErrCapacityReached
	}
	return event, nil
}

// CheckExistingRegistrations clears the way for a new payment attempt. It returns the
// pending registration to reuse, or nil when a fresh one must be created.
func (v *paymentValidator) CheckExistingRegistrations(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	active, err := resolveCodes(ctx, v.lookups, domain.LookupRegistrationStatus,
		domain.RegistrationConfirmed, domain.RegistrationPending)
	if err != nil {
		return nil, err
	}

	existing, err := v.registrationRepo.FindByEventAndUser(ctx, eventID, userID, active)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Transient(fmt.Errorf("find registration: %w", err))
	}
	if existing != nil && existing.Status == domain.RegistrationConfirmed {
		return nil, domain.ErrAlreadyRegistered
	}

	if existing != nil {
		pending, err := resolveCode(ctx, v.lookups, domain.LookupPaymentStatus, domain.PaymentPending)
		if err != nil {
			return nil, err
		}
		expired, err := resolveCode(ctx, v.lookups, domain.LookupPaymentStatus, domain.PaymentExpired)
		if err != nil {
			return nil, err
		}
		n, err := v.paymentRepo.TransitionForRegistration(ctx, existing.ID, pending, expired)
		if err != nil {
			return nil, domain.Transient(fmt.Errorf("expire superseded payments: %w", err))
		}
		if n > 0 {
			v.logger.InfoContext(ctx, "superseded pending payments expired",
				"registration_id", existing.ID, "count", n)
		}
	}

	cancelled, err := resolveCode(ctx, v.lookups, domain.LookupRegistrationStatus, domain.RegistrationCancelled)
	if err != nil {
		return nil, err
	}
	if _, err := v.registrationRepo.DeleteByEventAndUser(ctx, eventID, userID, cancelled); err != nil {
		return nil, domain.Transient(fmt.Errorf("remove cancelled registration: %w", err))
	}
	return existing, nil
}

func (v *paymentValidator) ValidateAmount(submitted, price float64) error {
	if math.Abs(submitted-price) > amountEpsilon {
		return domain.ErrAmountMismatch
	}
	return nil
}

func (v *paymentValidator) ValidateMetadata(meta *domain.PaymentMetadata, requesterID string) error {
	if meta == nil || meta.TransactionID == "" || meta.EventID == "" {
		return domain.ErrInvalidMetadata
	}
	if requesterID != "" && meta.UserID != requesterID {
		return domain.ErrUserMismatch
	}
	return nil
}
