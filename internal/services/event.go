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

const (
	slugAttempts    = 3
	defaultCurrency = "BDT"
)

type eventService struct {
	eventRepo      domain.EventRepository
	lookups        domain.LookupResolver
	tx             domain.Transactor
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

func NewEventService(
	eventRepo domain.EventRepository,
	lookups domain.LookupResolver,
	tx domain.Transactor,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		lookups:        lookups,
		tx:             tx,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.CreatedBy == "" {
		return domain.NewError(domain.KindInvalidInput, "event creator is required")
	}
	if strings.TrimSpace(event.Title) == "" {
		return domain.NewError(domain.KindInvalidInput, "title is required")
	}
	if event.Status == "" {
		event.Status = domain.EventStatusUpcoming
	}
	if event.RegistrationStatus == "" {
		event.RegistrationStatus = domain.RegistrationOpen
		if event.Status == domain.EventStatusCompleted {
			event.RegistrationStatus = domain.RegistrationClosed
		}
	}
	if event.Currency == "" {
		event.Currency = defaultCurrency
	}
	if err := validateEventShape(event); err != nil {
		return err
	}

	refs, err := s.resolveRefs(ctx, event)
	if err != nil {
		return err
	}

	now := s.now()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.CurrentParticipants = 0

	for attempt := 0; attempt < slugAttempts; attempt++ {
		slug, err := newSlug(event.Title, now, attempt)
		if err != nil {
			return fmt.Errorf("generate slug: %w", err)
		}
		event.Slug = slug
		err = s.eventRepo.Create(ctx, event, refs)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateSlug) {
			return domain.Transient(fmt.Errorf("create event: %w", err))
		}
	}
	return domain.NewError(domain.KindInvalidState, "could not allocate a unique slug")
}

func validateEventShape(e *domain.Event) error {
	if e.Status == domain.EventStatusCompleted && e.RegistrationStatus != domain.RegistrationClosed {
		return domain.NewError(domain.KindInvalidInput, "a completed event must have registration_status closed")
	}
	if !e.EndDate.After(e.StartDate) {
		return domain.NewError(domain.KindInvalidInput, "end_date must be after start_date")
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.After(e.EndDate) {
		return domain.NewError(domain.KindInvalidInput, "registration_deadline must not be after end_date")
	}
	if e.MaxParticipants != nil && *e.MaxParticipants < 1 {
		return domain.NewError(domain.KindInvalidInput, "max_participants must be positive")
	}
	if e.Price < 0 {
		return domain.NewError(domain.KindInvalidInput, "price must not be negative")
	}
	if e.IsFree && e.Price > 0 {
		return domain.NewError(domain.KindInvalidInput, "free events cannot have a price")
	}
	if !e.IsFree && e.Price <= 0 {
		return domain.NewError(domain.KindInvalidInput, "paid events need a positive price")
	}
	if e.EventMode != domain.EventModeOffline && e.OnlinePlatform != nil && !e.OnlinePlatform.Valid() {
		return domain.NewError(domain.KindInvalidInput, "invalid online_platform")
	}
	return nil
}

func (s *eventService) resolveRefs(ctx context.Context, e *domain.Event) (domain.EventRefs, error) {
	var refs domain.EventRefs
	var err error
	if refs.EventTypeID, err = resolveCode(ctx, s.lookups, domain.LookupEventType, e.EventType); err != nil {
		return refs, err
	}
	if refs.EventModeID, err = resolveCode(ctx, s.lookups, domain.LookupEventMode, e.EventMode); err != nil {
		return refs, err
	}
	if refs.EventStatusID, err = resolveCode(ctx, s.lookups, domain.LookupEventStatus, e.Status); err != nil {
		return refs, err
	}
	if refs.RegistrationStatusID, err = resolveCode(ctx, s.lookups, domain.LookupRegistrationWindow, e.RegistrationStatus); err != nil {
		return refs, err
	}
	if e.OnlinePlatform != nil {
		id, err := resolveCode(ctx, s.lookups, domain.LookupOnlinePlatform, *e.OnlinePlatform)
		if err != nil {
			return refs, err
		}
		refs.OnlinePlatformID = &id
	}
	return refs, nil
}

func (s *eventService) GetEventByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Transient(fmt.Errorf("get event: %w", err))
	}
	return s.repairStatus(ctx, event, s.now())
}

func (s *eventService) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Transient(fmt.Errorf("get event by slug: %w", err))
	}
	return s.repairStatus(ctx, event, s.now())
}

// completedTransition is upcoming|ongoing -> completed with registration closed.
func (s *eventService) completedTransition(ctx context.Context) (domain.StatusTransition, error) {
	from, err := resolveCodes(ctx, s.lookups, domain.LookupEventStatus, domain.EventStatusUpcoming, domain.EventStatusOngoing)
	if err != nil {
		return domain.StatusTransition{}, err
	}
	to, err := resolveCode(ctx, s.lookups, domain.LookupEventStatus, domain.EventStatusCompleted)
	if err != nil {
		return domain.StatusTransition{}, err
	}
	closed, err := resolveCode(ctx, s.lookups, domain.LookupRegistrationWindow, domain.RegistrationClosed)
	if err != nil {
		return domain.StatusTransition{}, err
	}
	return domain.StatusTransition{FromStatusIDs: from, ToStatusID: to, RegistrationStatusID: &closed}, nil
}

// repairStatus completes an event read after its end date. The write is
// conditional on the stored status, so concurrent readers write at most once.
func (s *eventService) repairStatus(ctx context.Context, e *domain.Event, now time.Time) (*domain.Event, error) {
	if !e.Ended(now) {
		return e, nil
	}
	t, err := s.completedTransition(ctx)
	if err != nil {
		return nil, err
	}
	written, err := s.eventRepo.CompleteEnded(ctx, e.ID, now, t)
	if err != nil {
		return nil, domain.Transient(fmt.Errorf("complete ended event: %w", err))
	}
	if !written {
		// someone else moved it first
		fresh, err := s.eventRepo.GetByID(ctx, e.ID)
		if err != nil {
			return nil, domain.Transient(fmt.Errorf("reload event: %w", err))
		}
		return fresh, nil
	}
	s.logger.InfoContext(ctx, "event completed on read", "event_id", e.ID, "from", e.Status)
	e.Status = domain.EventStatusCompleted
	e.RegistrationStatus = domain.RegistrationClosed
	e.UpdatedAt = now
	return e, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, domain.NewError(domain.KindInvalidInput, "invalid event_status filter")
	}
	events, total, err := s.eventRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, domain.Transient(fmt.Errorf("list events: %w", err))
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// Completing an event closes its window unless the caller says otherwise.
	u := *update
	if u.Status != nil && *u.Status == domain.EventStatusCompleted && u.RegistrationStatus == nil {
		closed := domain.RegistrationClosed
		u.RegistrationStatus = &closed
	}
	update = &u

	var updated *domain.Event
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.eventRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		merged := *current
		applyEventUpdate(&merged, update)
		if err := validateEventShape(&merged); err != nil {
			return err
		}
		if merged.MaxParticipants != nil && *merged.MaxParticipants < current.CurrentParticipants {
			return domain.NewError(domain.KindInvalidInput,
				fmt.Sprintf("max_participants cannot be below current participants (%d)", current.CurrentParticipants))
		}

		patch, err := s.buildPatch(ctx, update)
		if err != nil {
			return err
		}
		if update.Title != nil && *update.Title != current.Title {
			slug, err := newSlug(*update.Title, s.now(), 0)
			if err != nil {
				return fmt.Errorf("generate slug: %w", err)
			}
			patch.Slug = &slug
		}

		updated, err = s.eventRepo.Update(ctx, id, patch)
		if errors.Is(err, domain.ErrDuplicateSlug) {
			slug, serr := newSlug(merged.Title, s.now(), 1)
			if serr != nil {
				return fmt.Errorf("generate slug: %w", serr)
			}
			patch.Slug = &slug
			updated, err = s.eventRepo.Update(ctx, id, patch)
		}
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Transient(err)
	}
	return updated, nil
}

func applyEventUpdate(e *domain.Event, u *domain.EventUpdate) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.RegistrationDeadline != nil {
		e.RegistrationDeadline = u.RegistrationDeadline
	}
	if u.MaxParticipants != nil {
		e.MaxParticipants = u.MaxParticipants
	}
	if u.IsFree != nil {
		e.IsFree = *u.IsFree
	}
	if u.Price != nil {
		e.Price = *u.Price
	}
	if u.EventMode != nil {
		e.EventMode = *u.EventMode
	}
	if u.OnlinePlatform != nil {
		e.OnlinePlatform = u.OnlinePlatform
	}
	if u.Status != nil {
		e.Status = *u.Status
	}
	if u.RegistrationStatus != nil {
		e.RegistrationStatus = *u.RegistrationStatus
	}
}

func (s *eventService) buildPatch(ctx context.Context, u *domain.EventUpdate) (*domain.EventPatch, error) {
	patch := &domain.EventPatch{
		Title:                u.Title,
		Description:          u.Description,
		StartDate:            u.StartDate,
		EndDate:              u.EndDate,
		RegistrationDeadline: u.RegistrationDeadline,
		MaxParticipants:      u.MaxParticipants,
		IsFree:               u.IsFree,
		Price:                u.Price,
		Currency:             u.Currency,
		IsPublished:          u.IsPublished,
		HasCertificate:       u.HasCertificate,
		VideoLink:            u.VideoLink,
		SessionSummary:       u.SessionSummary,
		OnlineLink:           u.OnlineLink,
	}
	var err error
	if u.EventType != nil {
		if patch.EventTypeID, err = optionalID(ctx, s.lookups, domain.LookupEventType, *u.EventType); err != nil {
			return nil, err
		}
	}
	if u.EventMode != nil {
		if patch.EventModeID, err = optionalID(ctx, s.lookups, domain.LookupEventMode, *u.EventMode); err != nil {
			return nil, err
		}
	}
	if u.Status != nil {
		if patch.EventStatusID, err = optionalID(ctx, s.lookups, domain.LookupEventStatus, *u.Status); err != nil {
			return nil, err
		}
	}
	if u.RegistrationStatus != nil {
		if patch.RegistrationStatusID, err = optionalID(ctx, s.lookups, domain.LookupRegistrationWindow, *u.RegistrationStatus); err != nil {
			return nil, err
		}
	}
	if u.OnlinePlatform != nil {
		if patch.OnlinePlatformID, err = optionalID(ctx, s.lookups, domain.LookupOnlinePlatform, *u.OnlinePlatform); err != nil {
			return nil, err
		}
	}
	return patch, nil
}

func optionalID[C domain.LookupCode](ctx context.Context, r domain.LookupResolver, d domain.LookupDomain, code C) (*int64, error) {
	id, err := resolveCode(ctx, r, d, code)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.Transient(fmt.Errorf("delete event: %w", err))
	}
	return nil
}

// SweepStatuses starts due events and completes ended ones in one transaction.
// Starting runs first so an event that both started and ended since the last
// sweep still lands on completed.
func (s *eventService) SweepStatuses(ctx context.Context, now time.Time) (domain.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	upcoming, err := resolveCode(ctx, s.lookups, domain.LookupEventStatus, domain.EventStatusUpcoming)
	if err != nil {
		return domain.SweepResult{}, err
	}
	ongoing, err := resolveCode(ctx, s.lookups, domain.LookupEventStatus, domain.EventStatusOngoing)
	if err != nil {
		return domain.SweepResult{}, err
	}
	complete, err := s.completedTransition(ctx)
	if err != nil {
		return domain.SweepResult{}, err
	}

	var res domain.SweepResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res.Started, err = s.eventRepo.StartDue(ctx, now, domain.StatusTransition{
			FromStatusIDs: []int64{upcoming},
			ToStatusID:    ongoing,
		})
		if err != nil {
			return fmt.Errorf("start due events: %w", err)
		}
		res.Completed, err = s.eventRepo.CompleteDue(ctx, now, complete)
		if err != nil {
			return fmt.Errorf("complete due events: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.SweepResult{}, domain.Transient(err)
	}
	if res.Started > 0 || res.Completed > 0 {
		s.logger.InfoContext(ctx, "event statuses swept", "started", res.Started, "completed", res.Completed)
	}
	return res, nil
}
