package pinger

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skillcoder/graceful-coordinator/internal/infra/metrics"
)

const (
	// defaultPingTimeout is the default timeout for ping operations
	defaultPingTimeout = 1 * time.Second
)

type pingerInfo struct {
	pinger        Pinger
	readyCritical bool
	timeout       time.Duration
}

// Result is the outcome of the last ping of one pinger
type Result struct {
	LastRun       time.Time
	Latency       time.Duration
	LastError     error
	ReadyCritical bool
}

// Service runs registered pingers at an interval and answers readiness checks
// from their last results.
type Service struct {
	logger     *slog.Logger
	interval   time.Duration
	pingers    map[string]*pingerInfo
	results    map[string]Result
	mu         sync.RWMutex
	ready      chan struct{}
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    atomic.Bool
	inShutdown atomic.Bool
	wg         sync.WaitGroup
}

// New creates a new pinger service with the specified interval
func New(
	logger *slog.Logger,
	interval time.Duration,
) *Service {
	return &Service{
		logger:   logger,
		interval: interval,
		pingers:  make(map[string]*pingerInfo),
		results:  make(map[string]Result),
		ready:    make(chan struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the name of the pinger service component
func (s *Service) Name() string {
	return "pinger-service"
}

// Register registers a pinger under its name
func (s *Service) Register(pinger Pinger) error {
	if pinger == nil {
		return fmt.Errorf("register pinger: pinger cannot be nil")
	}

	name := pinger.Name()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pingers[name]; exists {
		return fmt.Errorf("register pinger %s: %w", name, ErrPingerAlreadyRegistered)
	}

	readyCritical := true

	if rc, ok := pinger.(readyCriticalPinger); ok {
		readyCritical = rc.PingerReadyCritical()
	}

	timeout := defaultPingTimeout

	if tp, ok := pinger.(timeoutPinger); ok {
		if custom := tp.PingerTimeout(); custom > 0 {
			timeout = custom
		}
	}

	s.pingers[name] = &pingerInfo{
		pinger:        pinger,
		readyCritical: readyCritical,
		timeout:       timeout,
	}

	s.logger.Info("pinger registered", "name", name, "readyCritical", readyCritical, "timeout", timeout)

	return nil
}

// Start starts the pinger loop in a goroutine
func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "pinger service is shutting down, skipping start")

		return nil
	}

	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("start pinger service: already started")
	}

	go s.run(ctx)

	return nil
}

// Ready returns a channel that is closed after the first round of pings
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Check reports the readiness of the registered pingers: nil when every
// ready-critical pinger succeeded on its last run.
func (s *Service) Check(ctx context.Context) error {
	if s.inShutdown.Load() {
		return ErrStopped
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("check pingers: %w", ctx.Err())
	case <-s.ready:
	default:
		return ErrNotReady
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(s.results)) {
		result := s.results[name]
		if result.ReadyCritical && result.LastError != nil {
			return fmt.Errorf("%s: %w", name, result.LastError)
		}
	}

	return nil
}

// Results returns a copy of the last result per pinger
func (s *Service) Results() map[string]Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.results)
}

// Shutdown stops the loop and waits for in-flight pings
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "pinger service is already shutting down, skipping shutdown")

		return nil
	}

	s.logger.InfoContext(ctx, "shutting down pinger service")
	close(s.stopCh)

	if !s.started.Load() {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before pinger loop exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "pinger loop exited")
	}

	s.wg.Wait()

	return nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", "pinger-run")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runPingers(ctx, logger)
	close(s.ready)

	for {
		select {
		case <-ticker.C:
			s.runPingers(ctx, logger)
		case <-s.stopCh:
			logger.InfoContext(ctx, "terminating pinger loop")

			return
		case <-ctx.Done():
			logger.InfoContext(ctx, "terminating pinger loop")

			return
		}
	}
}

// runPingers executes all registered pingers in parallel and waits for them
func (s *Service) runPingers(ctx context.Context, logger *slog.Logger) {
	s.mu.RLock()
	pingers := maps.Clone(s.pingers)
	s.mu.RUnlock()

	var wg sync.WaitGroup

	for name, info := range pingers {
		wg.Add(1)
		s.wg.Add(1)

		go func() {
			defer wg.Done()
			defer s.wg.Done()

			pingCtx, cancel := context.WithTimeout(ctx, info.timeout)
			defer cancel()

			start := time.Now()
			err := info.pinger.Ping(pingCtx)
			latency := time.Since(start)

			metrics.ObservePing(name, latency, err)
			s.record(name, info, start, latency, err)

			if err != nil {
				logger.DebugContext(ctx, "pinger error", "name", name, "latency", latency, "reason", err)
			}
		}()
	}

	wg.Wait()
}

func (s *Service) record(name string, info *pingerInfo, at time.Time, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[name] = Result{
		LastRun:       at,
		Latency:       latency,
		LastError:     err,
		ReadyCritical: info.readyCritical,
	}
}
