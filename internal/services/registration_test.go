package services

import (
	"context"
	"testing"
	"time"

	"oriyet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeEvent(e *domain.Event) {
	e.Price = 0
	e.IsFree = true
}

func TestRegistrationService_RegisterFree(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1")
	env.addUser("u2")
	ev := env.addEvent(func(e *domain.Event) {
		freeEvent(e)
		e.MaxParticipants = intPtr(1)
	})

	reg, err := env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationConfirmed, reg.Status)
	assert.Equal(t, domain.PaymentNotRequired, reg.PaymentStatus)
	assert.Regexp(t, `^REG-[0-9A-Z]+-[0-9A-Z]{4}$`, reg.RegistrationNumber)
	require.NotNil(t, reg.ConfirmedAt)

	stored := env.store.event(ev.ID)
	assert.Equal(t, 1, stored.CurrentParticipants)
	assert.Equal(t, domain.RegistrationFull, stored.RegistrationStatus)
	assert.Equal(t, []domain.NotificationKind{domain.NotifyRegistrationConfirmed}, env.notifier.kinds())

	_, err = env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
	require.ErrorIs(t, err, domain.ErrCapacityReached)

	_, err = env.registrations.RegisterFree(context.Background(), ev.ID, "u2")
	require.ErrorIs(t, err, domain.ErrCapacityReached)
	assert.Empty(t, env.store.registrationsFor(ev.ID, "u2"))
}

func TestRegistrationService_RegisterFree_Rejections(t *testing.T) {
	past := testNow.Add(-time.Hour)
	tests := []struct {
		name    string
		mutate  func(e *domain.Event)
		wantErr error
	}{
		{"paid event", nil, domain.ErrPaidEventRequiresPayment},
		{"closed window", func(e *domain.Event) { freeEvent(e); e.RegistrationStatus = domain.RegistrationClosed }, domain.ErrRegistrationClosed},
		{"deadline passed", func(e *domain.Event) { freeEvent(e); e.RegistrationDeadline = &past }, domain.ErrRegistrationClosed},
		{"cancelled event", func(e *domain.Event) { freeEvent(e); e.Status = domain.EventStatusCancelled }, domain.ErrEventUnavailable},
		{"completed event", func(e *domain.Event) { freeEvent(e); e.Status = domain.EventStatusCompleted }, domain.ErrEventUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.addUser("u1")
			ev := env.addEvent(tt.mutate)

			_, err := env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.store.registrationsFor(ev.ID, "u1"))
			assert.Equal(t, 0, env.store.event(ev.ID).CurrentParticipants)
		})
	}

	t.Run("unknown event", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.registrations.RegisterFree(context.Background(), "missing", "u1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("already registered", func(t *testing.T) {
		env := newTestEnv()
		ev := env.addEvent(freeEvent)
		env.addRegistration(ev.ID, "u1", domain.RegistrationConfirmed, domain.PaymentNotRequired)

		_, err := env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
		require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
	})

	t.Run("cancelled registration is replaced", func(t *testing.T) {
		env := newTestEnv()
		env.addUser("u1")
		ev := env.addEvent(freeEvent)
		old := env.addRegistration(ev.ID, "u1", domain.RegistrationCancelled, domain.PaymentNotRequired)

		reg, err := env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
		require.NoError(t, err)
		regs := env.store.registrationsFor(ev.ID, "u1")
		require.Len(t, regs, 1)
		assert.Equal(t, reg.ID, regs[0].ID)
		assert.NotEqual(t, old.ID, reg.ID)
	})

	t.Run("write failure rolls the seat back", func(t *testing.T) {
		env := newTestEnv()
		ev := env.addEvent(freeEvent)
		env.store.failOn["commit"] = assert.AnError

		_, err := env.registrations.RegisterFree(context.Background(), ev.ID, "u1")
		require.ErrorIs(t, err, domain.ErrTransient)
		assert.Equal(t, 0, env.store.event(ev.ID).CurrentParticipants)
		assert.Empty(t, env.store.registrationsFor(ev.ID, "u1"))
		assert.Empty(t, env.notifier.kinds())
	})
}

func TestRegistrationService_CancelRegistration(t *testing.T) {
	t.Run("confirmed seat is released and the event reopens", func(t *testing.T) {
		env := newTestEnv()
		env.addUser("u1")
		ev := env.addEvent(func(e *domain.Event) {
			freeEvent(e)
			e.MaxParticipants = intPtr(1)
			e.CurrentParticipants = 1
			e.RegistrationStatus = domain.RegistrationFull
		})
		reg := env.addRegistration(ev.ID, "u1", domain.RegistrationConfirmed, domain.PaymentNotRequired)

		got, err := env.registrations.CancelRegistration(context.Background(), ev.ID, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RegistrationCancelled, got.Status)
		require.NotNil(t, got.CancelReason)
		assert.Equal(t, "Cancelled by attendee", *got.CancelReason)
		assert.Equal(t, domain.RegistrationCancelled, env.store.registration(reg.ID).Status)

		stored := env.store.event(ev.ID)
		assert.Equal(t, 0, stored.CurrentParticipants)
		assert.Equal(t, domain.RegistrationOpen, stored.RegistrationStatus)
		assert.Equal(t, []domain.NotificationKind{domain.NotifyRegistrationCancelled}, env.notifier.kinds())
	})

	t.Run("pending registration cancels its payments", func(t *testing.T) {
		env := newTestEnv()
		env.addUser("u1")
		ev := env.addEvent(nil)
		reg := env.addRegistration(ev.ID, "u1", domain.RegistrationPending, domain.PaymentPending)
		txn := env.addPayment(reg, 500, domain.PaymentPending, testNow.Add(time.Hour))

		got, err := env.registrations.CancelRegistration(context.Background(), ev.ID, "u1", "changed plans")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentCancelled, got.PaymentStatus)
		assert.Equal(t, domain.PaymentCancelled, env.store.payment(txn.TransactionID).Status)
		assert.Equal(t, 0, env.store.event(ev.ID).CurrentParticipants)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		env := newTestEnv()
		ev := env.addEvent(nil)

		_, err := env.registrations.CancelRegistration(context.Background(), ev.ID, "u1", "")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRegistrationService_GetRegistrationStatus(t *testing.T) {
	env := newTestEnv()
	ev := env.addEvent(nil)

	view, err := env.registrations.GetRegistrationStatus(context.Background(), ev.ID, "u1")
	require.NoError(t, err)
	assert.False(t, view.IsRegistered)

	env.addRegistration(ev.ID, "u1", domain.RegistrationPending, domain.PaymentPending)
	view, err = env.registrations.GetRegistrationStatus(context.Background(), ev.ID, "u1")
	require.NoError(t, err)
	assert.True(t, view.IsRegistered)
	require.NotNil(t, view.Registration)
	assert.Equal(t, domain.RegistrationPending, view.Registration.Status)
}

func TestRegistrationService_ListMyEvents(t *testing.T) {
	env := newTestEnv()
	soon := env.addEvent(func(e *domain.Event) { e.Title = "Soon" })
	later := env.addEvent(func(e *domain.Event) {
		e.Title = "Later"
		e.StartDate = testNow.Add(72 * time.Hour)
		e.EndDate = testNow.Add(74 * time.Hour)
	})
	done := env.addEvent(func(e *domain.Event) {
		e.Title = "Done"
		e.StartDate = testNow.Add(-72 * time.Hour)
		e.EndDate = testNow.Add(-70 * time.Hour)
	})
	dropped := env.addEvent(func(e *domain.Event) { e.Title = "Dropped" })

	env.addRegistration(later.ID, "u1", domain.RegistrationConfirmed, domain.PaymentConfirmed)
	env.addRegistration(soon.ID, "u1", domain.RegistrationPending, domain.PaymentPending)
	env.addRegistration(done.ID, "u1", domain.RegistrationConfirmed, domain.PaymentConfirmed)
	env.addRegistration(dropped.ID, "u1", domain.RegistrationCancelled, domain.PaymentCancelled)

	mine, err := env.registrations.ListMyEvents(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, mine.Upcoming, 2)
	assert.Equal(t, "Soon", mine.Upcoming[0].Event.Title)
	assert.Equal(t, "Later", mine.Upcoming[1].Event.Title)
	require.Len(t, mine.Past, 1)
	assert.Equal(t, "Done", mine.Past[0].Event.Title)

	empty, err := env.registrations.ListMyEvents(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty.Upcoming)
	assert.Empty(t, empty.Past)
}

func TestRegistrationService_ListEventRegistrations(t *testing.T) {
	env := newTestEnv()
	ev := env.addEvent(nil)
	env.addRegistration(ev.ID, "u1", domain.RegistrationConfirmed, domain.PaymentConfirmed)
	env.addRegistration(ev.ID, "u2", domain.RegistrationPending, domain.PaymentPending)

	confirmed := domain.RegistrationConfirmed
	regs, total, err := env.registrations.ListEventRegistrations(context.Background(), ev.ID, &confirmed, domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, regs, 1)
	assert.Equal(t, "u1", regs[0].UserID)

	bogus := domain.RegistrationStatus("waitlisted")
	_, _, err = env.registrations.ListEventRegistrations(context.Background(), ev.ID, &bogus, domain.PaginationParams{Page: 1, PageSize: 20})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
