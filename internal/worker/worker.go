package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"oriyet/internal/domain"
)

// Locker grants a short exclusive lease so only one replica runs a tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Task is one unit of periodic work.
type Task func(ctx context.Context, now time.Time) error

// Ticker runs a Task immediately and then on every interval until its context ends.
type Ticker struct {
	name     string
	interval time.Duration
	task     Task
	locker   Locker
	logger   *slog.Logger
	now      func() time.Time
}

func NewTicker(name string, interval time.Duration, task Task, locker Locker, logger *slog.Logger) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		task:     task,
		locker:   locker,
		logger:   logger.With("worker", name),
		now:      time.Now,
	}
}

// NewStatusSweeper moves due events to ongoing and ended ones to completed.
func NewStatusSweeper(events domain.EventService, interval time.Duration, locker Locker, logger *slog.Logger) *Ticker {
	return NewTicker("status-sweeper", interval, func(ctx context.Context, now time.Time) error {
		_, err := events.SweepStatuses(ctx, now)
		return err
	}, locker, logger)
}

// NewPaymentExpirer expires pending payments whose checkout window has passed.
func NewPaymentExpirer(payments domain.PaymentService, interval time.Duration, locker Locker, logger *slog.Logger) *Ticker {
	return NewTicker("payment-expirer", interval, func(ctx context.Context, now time.Time) error {
		_, err := payments.ExpirePendingPayments(ctx, now)
		return err
	}, locker, logger)
}

// Start blocks until ctx is cancelled.
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("worker started", "interval", t.interval)
	t.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("worker stopped")
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// Group runs tickers in the background and waits for them to stop.
type Group struct {
	wg sync.WaitGroup
}

// Go starts t in its own goroutine. It stops when ctx ends.
func (g *Group) Go(ctx context.Context, t *Ticker) {
	g.wg.Go(func() { t.Start(ctx) })
}

// Wait blocks until every started ticker has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// tick runs the task once under the lock. A tick that cannot get the lock is skipped.
func (t *Ticker) tick(ctx context.Context) {
	release, ok, err := t.locker.TryLock(ctx, t.name, t.interval)
	if err != nil {
		t.logger.WarnContext(ctx, "lock unavailable, skipping tick", "err", err)
		return
	}
	if !ok {
		t.logger.DebugContext(ctx, "another instance holds the lock")
		return
	}
	defer release()

	if err := t.task(ctx, t.now()); err != nil {
		t.logger.ErrorContext(ctx, "worker tick failed", "err", err)
	}
}
