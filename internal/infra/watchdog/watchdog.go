// Package watchdog drains the process before the kernel OOM killer would.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/skillcoder/graceful-coordinator/internal/infra/metrics"
)

// Reason is passed to the trigger when memory usage crossed the threshold
const Reason = "MEMORY"

type memoryReader interface {
	MemoryUsageQuery(ctx context.Context) (*resource.Quantity, error)
	MemoryLimitQuery(ctx context.Context) (*resource.Quantity, error)
}

type triggerer interface {
	Trigger(ctx context.Context, reason string) bool
}

// Watchdog polls the pod memory usage and triggers a shutdown once it reaches the threshold.
type Watchdog struct {
	logger     *slog.Logger
	reader     memoryReader
	trigger    triggerer
	threshold  Threshold
	interval   time.Duration
	limitBytes atomic.Int64
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    atomic.Bool
	inShutdown atomic.Bool
}

// New creates a watchdog checking every interval.
func New(
	logger *slog.Logger,
	reader memoryReader,
	trigger triggerer,
	threshold Threshold,
	interval time.Duration,
) *Watchdog {
	return &Watchdog{
		logger:    logger.With("component", "memory-watchdog"),
		reader:    reader,
		trigger:   trigger,
		threshold: threshold,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Name returns the name of the watchdog component
func (w *Watchdog) Name() string {
	return "memory-watchdog"
}

// Start starts polling in a goroutine
func (w *Watchdog) Start(ctx context.Context) error {
	if w.inShutdown.Load() {
		w.logger.InfoContext(ctx, "memory watchdog is shutting down, skipping start")

		return nil
	}

	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("start memory watchdog: already started")
	}

	go w.run(ctx)

	return nil
}

// Shutdown stops polling
func (w *Watchdog) Shutdown(ctx context.Context) error {
	if !w.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	close(w.stopCh)

	if !w.started.Load() {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before watchdog exited: %w", ctx.Err())
	case <-w.doneCh:
	}

	w.logger.InfoContext(ctx, "memory watchdog stopped")

	return nil
}

// Check reads the current usage once and reports whether the threshold is reached.
func (w *Watchdog) Check(ctx context.Context) (bool, error) {
	thresholdBytes, err := w.thresholdBytes(ctx)
	if err != nil {
		return false, err
	}

	usage, err := w.reader.MemoryUsageQuery(ctx)
	if err != nil {
		return false, fmt.Errorf("check memory: %w", err)
	}

	usageBytes := usage.Value()
	metrics.SetMemoryUsageRatio(float64(usageBytes) / float64(thresholdBytes))

	w.logger.DebugContext(ctx, "memory checked",
		"usage", usage.String(),
		"threshold", w.threshold.String(),
		"thresholdBytes", thresholdBytes,
	)

	return usageBytes >= thresholdBytes, nil
}

// thresholdBytes resolves a relative threshold against the pod limit, once.
func (w *Watchdog) thresholdBytes(ctx context.Context) (int64, error) {
	if !w.threshold.IsRelative() {
		return w.threshold.Bytes(nil), nil
	}

	if cached := w.limitBytes.Load(); cached > 0 {
		return cached, nil
	}

	limit, err := w.reader.MemoryLimitQuery(ctx)
	if err != nil {
		return 0, fmt.Errorf("check memory: %w", err)
	}

	value := w.threshold.Bytes(limit)
	if value <= 0 {
		return 0, fmt.Errorf("check memory: %w: limit %s", ErrInvalidThreshold, limit.String())
	}

	w.limitBytes.Store(value)

	return value, nil
}

func (w *Watchdog) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "memory watchdog started", "threshold", w.threshold.String(), "interval", w.interval)

	for {
		select {
		case <-ticker.C:
			exceeded, err := w.Check(ctx)
			if err != nil {
				w.logger.WarnContext(ctx, "memory check failed", "reason", err)

				continue
			}

			if !exceeded {
				continue
			}

			// the drain shuts this watchdog down and waits for run, so it must not run here
			go w.fire(ctx)

			return
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watchdog) fire(ctx context.Context) {
	w.logger.WarnContext(ctx, "memory threshold reached, draining")

	accepted := w.trigger.Trigger(ctx, Reason)
	w.logger.InfoContext(ctx, "memory drain finished", "accepted", accepted)
}
