package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Capture is for applications that only know how to start listening.
// The application starts through ListenAndServe, which records the underlying
// *http.Server so that Stop can close it later.
type Capture struct {
	logger  *slog.Logger
	mu      sync.Mutex
	server  *http.Server
	addr    net.Addr
	timeout time.Duration
	ready   chan struct{}
}

var _ Stopper = (*Capture)(nil)

// NewCapture creates a capturing adapter.
func NewCapture(logger *slog.Logger) *Capture {
	return &Capture{
		logger:  logger,
		timeout: DefaultDrainTimeout,
		ready:   make(chan struct{}),
	}
}

func (c *Capture) setDrainTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeout = timeout
}

// ListenAndServe listens on addr and serves handler, recording the server.
// It blocks until the server stops and returns nil after a graceful stop.
func (c *Capture) ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	lc := &net.ListenConfig{
		KeepAliveConfig: net.KeepAliveConfig{
			Enable: true,
		},
	}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}

	c.mu.Lock()
	if c.server != nil {
		c.mu.Unlock()
		_ = ln.Close()

		return fmt.Errorf("listen tcp %s: server already captured", addr)
	}

	c.server = server
	c.addr = ln.Addr()
	c.mu.Unlock()

	close(c.ready)

	c.logger.InfoContext(ctx, "captured server listening", "addr", ln.Addr().String())

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// Ready returns a channel that is closed once a server has been captured.
func (c *Capture) Ready() <-chan struct{} {
	return c.ready
}

// Addr returns the bound address, or nil before ListenAndServe was called.
func (c *Capture) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addr
}

// Stop drains the captured server. Without a captured server it returns nil at once.
func (c *Capture) Stop(ctx context.Context) error {
	c.mu.Lock()
	server := c.server
	timeout := c.timeout
	c.mu.Unlock()

	if server == nil {
		c.logger.InfoContext(ctx, "no server was captured, nothing to stop")

		return nil
	}

	return stopGraceful(ctx, c.logger, server, timeout)
}
