package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"oriyet/internal/domain"
)

type registrationService struct {
	tx               domain.Transactor
	eventRepo        domain.EventRepository
	registrationRepo domain.RegistrationRepository
	paymentRepo      domain.PaymentRepository
	certificateRepo  domain.CertificateRepository
	userRepo         domain.UserRepository
	lookups          domain.LookupResolver
	notifier         domain.NotificationDispatcher
	seats            seatLedger
	logger           *slog.Logger
	contextTimeout   time.Duration
	now              func() time.Time
}

func NewRegistrationService(
	tx domain.Transactor,
	eventRepo domain.EventRepository,
	registrationRepo domain.RegistrationRepository,
	paymentRepo domain.PaymentRepository,
	certificateRepo domain.CertificateRepository,
	userRepo domain.UserRepository,
	lookups domain.LookupResolver,
	notifier domain.NotificationDispatcher,
	logger *slog.Logger,
	timeout time.Duration,
) domain.RegistrationService {
	return &registrationService{
		tx:               tx,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		certificateRepo:  certificateRepo,
		userRepo:         userRepo,
		lookups:          lookups,
		notifier:         notifier,
		seats:            seatLedger{eventRepo: eventRepo},
		logger:           logger,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

// RegisterFree confirms a seat at a free event immediately.
func (s *registrationService) RegisterFree(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var (
		reg   *domain.Registration
		event *domain.Event
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err = s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewError(domain.KindNotFound, "Event not found")
			}
			return fmt.Errorf("lock event: %w", err)
		}
		now := s.now()
		if err := checkFreeRegistration(event, now); err != nil {
			return err
		}

		if _, err := s.registrationRepo.FindByEventAndUser(ctx, eventID, userID, []int64{ids.regPending, ids.regConfirmed}); err == nil {
			return domain.ErrAlreadyRegistered
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("find registration: %w", err)
		}
		if _, err := s.registrationRepo.DeleteByEventAndUser(ctx, eventID, userID, ids.regCancelled); err != nil {
			return fmt.Errorf("remove cancelled registration: %w", err)
		}

		if event, err = s.seats.take(ctx, eventID, ids); err != nil {
			return err
		}

		number, err := newRegistrationNumber(now)
		if err != nil {
			return fmt.Errorf("registration number: %w", err)
		}
		zero := 0.0
		reg = domain.NewRegistration(eventID, userID, number, domain.RegistrationConfirmed, domain.PaymentNotRequired, now)
		reg.PaymentAmount = &zero
		reg.ConfirmedAt = &now
		if err := s.registrationRepo.Create(ctx, reg, ids.regConfirmed, ids.payNotRequired); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Transient(err)
	}

	s.logger.InfoContext(ctx, "free registration confirmed", "event_id", eventID, "user_id", userID, "registration_id", reg.ID)
	if user, ok := recipient(ctx, s.userRepo, s.logger, userID); ok {
		batch := []domain.Notification{newNotification(domain.NotifyRegistrationConfirmed, user, reg, event, "")}
		if event.HasOnlineAccess() {
			batch = append(batch, newNotification(domain.NotifyOnlineAccess, user, reg, event, ""))
		}
		s.notifier.Dispatch(ctx, batch...)
	}
	return reg, nil
}

func checkFreeRegistration(event *domain.Event, now time.Time) error {
	if !event.IsFree || event.Price > 0 {
		return domain.ErrPaidEventRequiresPayment
	}
	if event.Status == domain.EventStatusCompleted || event.Status == domain.EventStatusCancelled {
		return domain.NewError(domain.KindEventUnavailable, fmt.Sprintf("This event has been %s", event.Status))
	}
	switch event.RegistrationStatus {
	case domain.RegistrationFull:
		return domain.NewError(domain.KindCapacityReached, "This event is full")
	case domain.RegistrationClosed:
		return domain.ErrRegistrationClosed
	}
	if event.RegistrationDeadline != nil && event.RegistrationDeadline.Before(now) {
		return domain.NewError(domain.KindRegistrationClosed, "Registration deadline has passed")
	}
	return nil
}

// CancelRegistration withdraws the caller's active registration. A confirmed seat
// is released and any certificate issued for it is revoked.
func (s *registrationService) CancelRegistration(ctx context.Context, eventID, userID, reason string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by attendee"
	}
	ids, err := loadLifecycleIDs(ctx, s.lookups)
	if err != nil {
		return nil, err
	}

	var (
		reg   *domain.Registration
		event *domain.Event
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err = s.eventRepo.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewError(domain.KindNotFound, "Event not found")
			}
			return fmt.Errorf("lock event: %w", err)
		}
		current, err := s.registrationRepo.FindByEventAndUser(ctx, eventID, userID, []int64{ids.regPending, ids.regConfirmed})
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewError(domain.KindNotFound, "Registration not found")
			}
			return fmt.Errorf("find registration: %w", err)
		}

		now := s.now()
		update := &domain.RegistrationUpdate{
			StatusID:     &ids.regCancelled,
			CancelledAt:  &now,
			CancelReason: &reason,
		}
		switch current.Status {
		case domain.RegistrationPending:
			if _, err := s.paymentRepo.TransitionForRegistration(ctx, current.ID, ids.payPending, ids.payCancelled); err != nil {
				return fmt.Errorf("cancel pending payments: %w", err)
			}
			update.PaymentStatusID = &ids.payCancelled
		case domain.RegistrationConfirmed:
			if event, err = s.seats.release(ctx, eventID, ids); err != nil {
				return fmt.Errorf("release seat: %w", err)
			}
			if _, err := s.certificateRepo.RevokeByRegistrationID(ctx, current.ID, "Registration cancelled", now); err != nil {
				return fmt.Errorf("revoke certificates: %w", err)
			}
		}
		if reg, err = s.registrationRepo.Update(ctx, current.ID, update); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Transient(err)
	}

	s.logger.InfoContext(ctx, "registration cancelled", "event_id", eventID, "user_id", userID, "registration_id", reg.ID)
	if user, ok := recipient(ctx, s.userRepo, s.logger, userID); ok {
		s.notifier.Dispatch(ctx, newNotification(domain.NotifyRegistrationCancelled, user, reg, event, reason))
	}
	return reg, nil
}

func (s *registrationService) GetRegistrationStatus(ctx context.Context, eventID, userID string) (*domain.RegistrationStatusView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	active, err := resolveCodes(ctx, s.lookups, domain.LookupRegistrationStatus, domain.RegistrationPending, domain.RegistrationConfirmed)
	if err != nil {
		return nil, err
	}
	reg, err := s.registrationRepo.FindByEventAndUser(ctx, eventID, userID, active)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.RegistrationStatusView{IsRegistered: false}, nil
		}
		return nil, domain.Transient(fmt.Errorf("find registration: %w", err))
	}
	return &domain.RegistrationStatusView{IsRegistered: true, Registration: reg}, nil
}

// ListMyEvents returns the caller's active registrations split at the event end date.
// Upcoming is ordered soonest first, past most recent first.
func (s *registrationService) ListMyEvents(ctx context.Context, userID string) (*domain.MyEvents, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	active, err := resolveCodes(ctx, s.lookups, domain.LookupRegistrationStatus, domain.RegistrationPending, domain.RegistrationConfirmed)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrationRepo.ListByUserID(ctx, userID, active)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("list registrations: %w", err))
	}

	out := &domain.MyEvents{Upcoming: []*domain.RegistrationWithEvent{}, Past: []*domain.RegistrationWithEvent{}}
	events := make(map[string]*domain.Event)
	now := s.now()
	for _, reg := range regs {
		event, ok := events[reg.EventID]
		if !ok {
			event, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, domain.Transient(fmt.Errorf("load event: %w", err))
			}
			events[reg.EventID] = event
		}
		item := &domain.RegistrationWithEvent{Registration: reg, Event: event}
		if event.EndDate.Before(now) {
			out.Past = append(out.Past, item)
		} else {
			out.Upcoming = append(out.Upcoming, item)
		}
	}
	slices.SortFunc(out.Upcoming, func(a, b *domain.RegistrationWithEvent) int {
		return a.Event.StartDate.Compare(b.Event.StartDate)
	})
	slices.SortFunc(out.Past, func(a, b *domain.RegistrationWithEvent) int {
		return b.Event.StartDate.Compare(a.Event.StartDate)
	})
	return out, nil
}

func (s *registrationService) ListEventRegistrations(ctx context.Context, eventID string, status *domain.RegistrationStatus, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var statusID *int64
	if status != nil {
		id, err := resolveCode(ctx, s.lookups, domain.LookupRegistrationStatus, *status)
		if err != nil {
			return nil, 0, err
		}
		statusID = &id
	}
	regs, total, err := s.registrationRepo.ListByEventID(ctx, eventID, statusID, params)
	if err != nil {
		return nil, 0, domain.Transient(fmt.Errorf("list event registrations: %w", err))
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, total, nil
}
