package appstate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// State represents the serving state consulted by the availability gate
type State string

const (
	// StateServing is the initial state: requests are admitted and health checks pass
	StateServing State = "serving"

	// StateStopping is the terminal state entered on the first shutdown trigger
	StateStopping State = "stopping"
)

// AppState holds the shutdown flag shared between the orchestrator (writer)
// and the request filter / health routes (readers).
//
// The flag flips at most once and never reverts.
type AppState struct {
	logger     *slog.Logger
	startedAt  time.Time
	stopping   atomic.Bool
	stoppingAt atomic.Pointer[time.Time]
}

// New creates a new AppState in the serving state
func New(logger *slog.Logger, appStart time.Time) *AppState {
	return &AppState{
		logger:    logger,
		startedAt: appStart,
	}
}

// SetStopping flips the state to stopping.
// It returns true only for the call that performed the transition.
func (s *AppState) SetStopping(ctx context.Context) bool {
	if !s.stopping.CompareAndSwap(false, true) {
		return false
	}

	now := time.Now()
	s.stoppingAt.Store(&now)

	s.logger.InfoContext(ctx, "application state changed",
		"from", StateServing,
		"to", StateStopping,
	)

	return true
}

// IsStopping reports whether the stopping transition has happened
func (s *AppState) IsStopping() bool {
	return s.stopping.Load()
}

// GetState returns the current state
func (s *AppState) GetState() State {
	if s.stopping.Load() {
		return StateStopping
	}

	return StateServing
}

// GetStartTime returns the time when the application started
func (s *AppState) GetStartTime() time.Time {
	return s.startedAt
}

// GetStoppingTime returns when the stopping transition happened, or nil while serving
func (s *AppState) GetStoppingTime() *time.Time {
	return s.stoppingAt.Load()
}

// GetUptime returns the duration since the application started
func (s *AppState) GetUptime() time.Duration {
	return time.Since(s.startedAt)
}
