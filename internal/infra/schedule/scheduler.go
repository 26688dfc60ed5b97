// Package schedule triggers a planned drain of the process on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	cron "github.com/netresearch/go-cron"

	"github.com/skillcoder/graceful-coordinator/internal/infra/metrics"
)

// Reason is passed to the trigger and shows up as the signal name in hooks and logs
const Reason = "SCHEDULE"

type triggerer interface {
	Trigger(ctx context.Context, reason string) bool
}

// Scheduler fires one shutdown trigger at the next cron occurrence.
type Scheduler struct {
	logger     *slog.Logger
	spec       string
	schedule   cron.Schedule
	trigger    triggerer
	now        func() time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    atomic.Bool
	inShutdown atomic.Bool
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New parses spec in timezone tz (UTC when empty).
func New(logger *slog.Logger, spec, tz string, trigger triggerer, opts ...Option) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySpec
	}

	schedule, err := parse(spec, tz)
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	s := &Scheduler{
		logger:   logger,
		spec:     spec,
		schedule: schedule,
		trigger:  trigger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Name returns the name of the scheduler component
func (s *Scheduler) Name() string {
	return "drain-scheduler"
}

// NextAfter returns the next occurrence strictly after t.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start waits for the next occurrence in a goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "drain scheduler is shutting down, skipping start")

		return nil
	}

	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("start drain scheduler: already started")
	}

	go s.run(ctx)

	return nil
}

// Shutdown stops waiting for the next occurrence.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)

	if !s.started.Load() {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before scheduler exited: %w", ctx.Err())
	case <-s.doneCh:
	}

	s.logger.InfoContext(ctx, "drain scheduler stopped")

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	defer metrics.SetNextScheduledDrain(time.Time{})

	now := s.now()
	next := s.schedule.Next(now)
	metrics.SetNextScheduledDrain(next)

	s.logger.InfoContext(ctx, "planned drain scheduled", "spec", s.spec, "at", next, "in", next.Sub(now))

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	select {
	case <-timer.C:
		// the drain shuts this scheduler down and waits for run, so it must not run here
		go s.fire(ctx)
	case <-s.stopCh:
	case <-ctx.Done():
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.logger.InfoContext(ctx, "planned drain due, triggering shutdown")

	accepted := s.trigger.Trigger(ctx, Reason)
	s.logger.InfoContext(ctx, "planned drain finished", "accepted", accepted)
}
