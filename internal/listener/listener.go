package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Stopper stops accepting new connections and closes idle ones without
// severing in-flight requests. It returns once the listener is drained.
type Stopper interface {
	Stop(ctx context.Context) error
}

// shutdowner is a native server with a graceful stop, e.g. *http.Server
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// closer is a raw socket server that can only be closed, e.g. net.Listener
type closer interface {
	Close() error
}

// New picks the Stopper matching the shape of handle.
//
// A *Capture is returned as is, a value with Shutdown(ctx) is wrapped in Graceful,
// a value with only Close() is wrapped in Closing. Anything else is a configuration error.
func New(logger *slog.Logger, handle any, drainTimeout time.Duration) (Stopper, error) {
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}

	switch h := handle.(type) {
	case nil:
		return nil, ErrNoServerHandle
	case *http.Server:
		if h == nil {
			return nil, ErrNoServerHandle
		}

		return NewGraceful(logger, h, drainTimeout), nil
	case *Capture:
		if h == nil {
			return nil, ErrNoServerHandle
		}

		h.setDrainTimeout(drainTimeout)

		return h, nil
	case shutdowner:
		return NewGraceful(logger, h, drainTimeout), nil
	case closer:
		return NewClosing(logger, h, drainTimeout), nil
	default:
		return nil, fmt.Errorf("%w: unsupported handle type %T", ErrNoServerHandle, handle)
	}
}

// Graceful stops a server that implements Shutdown(ctx).
type Graceful struct {
	logger  *slog.Logger
	server  shutdowner
	timeout time.Duration
}

var _ Stopper = (*Graceful)(nil)

// NewGraceful wraps a server with a native graceful shutdown.
func NewGraceful(logger *slog.Logger, server shutdowner, drainTimeout time.Duration) *Graceful {
	return &Graceful{
		logger:  logger,
		server:  server,
		timeout: drainTimeout,
	}
}

// Stop calls Shutdown bounded by the drain timeout; on timeout it forces
// closure when the server also implements Close.
func (g *Graceful) Stop(ctx context.Context) error {
	return stopGraceful(ctx, g.logger, g.server, g.timeout)
}

func stopGraceful(ctx context.Context, logger *slog.Logger, server shutdowner, timeout time.Duration) error {
	drainCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	err := server.Shutdown(drainCtx)
	if err == nil {
		logger.InfoContext(ctx, "listener drained", "duration", time.Since(start))

		return nil
	}

	if !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStopFailed, err)
	}

	logger.WarnContext(ctx, "listener drain timed out, forcing close",
		"timeout", timeout,
	)

	if c, ok := server.(closer); ok {
		if closeErr := c.Close(); closeErr != nil {
			logger.ErrorContext(ctx, "forced close failed", "reason", closeErr)
		}
	}

	return fmt.Errorf("%w after %s: %w", ErrStopTimeout, timeout, err)
}

// Closing stops a raw socket server that only exposes Close.
type Closing struct {
	logger  *slog.Logger
	server  closer
	timeout time.Duration
}

var _ Stopper = (*Closing)(nil)

// NewClosing wraps a raw socket server.
func NewClosing(logger *slog.Logger, server closer, drainTimeout time.Duration) *Closing {
	return &Closing{
		logger:  logger,
		server:  server,
		timeout: drainTimeout,
	}
}

// Stop closes the server and waits at most the drain timeout for Close to return.
func (c *Closing) Stop(ctx context.Context) error {
	done := make(chan error, 1)

	go func() {
		done <- c.server.Close()
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrStopFailed, err)
		}

		c.logger.InfoContext(ctx, "listener closed")

		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrStopTimeout, c.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStopFailed, ctx.Err())
	}
}
