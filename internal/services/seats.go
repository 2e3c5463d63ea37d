package services

import (
	"context"
	"fmt"

	"oriyet/internal/domain"
)

// lifecycleIDs holds the resolved ids the registration and payment flows write.
type lifecycleIDs struct {
	regPending     int64
	regConfirmed   int64
	regCancelled   int64
	payPending     int64
	payConfirmed   int64
	payExpired     int64
	payFailed      int64
	payCancelled   int64
	payRefunded    int64
	payNotRequired int64
	windowOpen     int64
	windowFull     int64
}

func loadLifecycleIDs(ctx context.Context, r domain.LookupResolver) (lifecycleIDs, error) {
	var ids lifecycleIDs
	regs, err := resolveCodes(ctx, r, domain.LookupRegistrationStatus,
		domain.RegistrationPending, domain.RegistrationConfirmed, domain.RegistrationCancelled)
	if err != nil {
		return ids, err
	}
	pays, err := resolveCodes(ctx, r, domain.LookupPaymentStatus,
		domain.PaymentPending, domain.PaymentConfirmed, domain.PaymentExpired, domain.PaymentFailed,
		domain.PaymentCancelled, domain.PaymentRefunded, domain.PaymentNotRequired)
	if err != nil {
		return ids, err
	}
	windows, err := resolveCodes(ctx, r, domain.LookupRegistrationWindow, domain.RegistrationOpen, domain.RegistrationFull)
	if err != nil {
		return ids, err
	}
	ids.regPending, ids.regConfirmed, ids.regCancelled = regs[0], regs[1], regs[2]
	ids.payPending, ids.payConfirmed, ids.payExpired, ids.payFailed = pays[0], pays[1], pays[2], pays[3]
	ids.payCancelled, ids.payRefunded, ids.payNotRequired = pays[4], pays[5], pays[6]
	ids.windowOpen, ids.windowFull = windows[0], windows[1]
	return ids, nil
}

// seatLedger keeps current_participants and the open/full registration window in step.
// Callers run it inside a transaction.
type seatLedger struct {
	eventRepo domain.EventRepository
}

// take claims one seat. It fails with ErrCapacityReached when none is left and flips
// the window to full when the last seat went.
func (l seatLedger) take(ctx context.Context, eventID string, ids lifecycleIDs) (*domain.Event, error) {
	event, err := l.eventRepo.IncrementParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.IsFull() && event.RegistrationStatus == domain.RegistrationOpen {
		if err := l.eventRepo.SetRegistrationStatus(ctx, eventID, ids.windowFull); err != nil {
			return nil, fmt.Errorf("mark event full: %w", err)
		}
		event.RegistrationStatus = domain.RegistrationFull
	}
	return event, nil
}

// release gives a seat back and reopens a full event that is still active.
func (l seatLedger) release(ctx context.Context, eventID string, ids lifecycleIDs) (*domain.Event, error) {
	event, err := l.eventRepo.DecrementParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.RegistrationStatus == domain.RegistrationFull && event.Status.Active() && !event.IsFull() {
		if err := l.eventRepo.SetRegistrationStatus(ctx, eventID, ids.windowOpen); err != nil {
			return nil, fmt.Errorf("reopen event: %w", err)
		}
		event.RegistrationStatus = domain.RegistrationOpen
	}
	return event, nil
}
