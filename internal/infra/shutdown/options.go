package shutdown

import (
	"context"
	"maps"
	"net/http"
	"os"
	"slices"
	"time"
)

// DefaultTimeout bounds the listener drain when no timeout is configured
const DefaultTimeout = 1000 * time.Millisecond

// Hook is a lifecycle callback invoked with the server handle and the name of
// the signal (or trigger) that started the shutdown.
type Hook func(ctx context.Context, server any, signal string) error

// Options is the user-facing configuration. Zero values mean "use the default".
type Options struct {
	// Signals to intercept; SIGINT and SIGTERM when empty
	Signals []os.Signal

	// Timeout bounds the listener drain only; 1s when zero
	Timeout time.Duration

	BeforeShutdown Hook
	OnSignal       Hook
	AfterShutdown  Hook

	// ServiceUnavailableWhileStopping rejects requests with 503 while stopping; true when nil
	ServiceUnavailableWhileStopping *bool

	// HealthChecks maps a GET route path to an optional custom check
	HealthChecks map[string]http.HandlerFunc
}

// Merge returns o overlaid with every field set in override.
// Health checks are merged per path, override wins.
func (o Options) Merge(override Options) Options {
	out := o

	if len(override.Signals) > 0 {
		out.Signals = override.Signals
	}

	if override.Timeout > 0 {
		out.Timeout = override.Timeout
	}

	if override.BeforeShutdown != nil {
		out.BeforeShutdown = override.BeforeShutdown
	}

	if override.OnSignal != nil {
		out.OnSignal = override.OnSignal
	}

	if override.AfterShutdown != nil {
		out.AfterShutdown = override.AfterShutdown
	}

	if override.ServiceUnavailableWhileStopping != nil {
		out.ServiceUnavailableWhileStopping = override.ServiceUnavailableWhileStopping
	}

	if len(override.HealthChecks) > 0 {
		checks := make(map[string]http.HandlerFunc, len(o.HealthChecks)+len(override.HealthChecks))
		maps.Copy(checks, o.HealthChecks)
		maps.Copy(checks, override.HealthChecks)
		out.HealthChecks = checks
	}

	return out
}

// Config is the resolved, immutable configuration
type Config struct {
	Signals                         []os.Signal
	Timeout                         time.Duration
	BeforeShutdown                  Hook
	OnSignal                        Hook
	AfterShutdown                   Hook
	ServiceUnavailableWhileStopping bool
	HealthChecks                    map[string]http.HandlerFunc
}

// Resolve applies defaults and copies mutable fields.
func (o Options) Resolve() Config {
	cfg := Config{
		Signals:                         slices.Clone(o.Signals),
		Timeout:                         o.Timeout,
		BeforeShutdown:                  o.BeforeShutdown,
		OnSignal:                        o.OnSignal,
		AfterShutdown:                   o.AfterShutdown,
		ServiceUnavailableWhileStopping: true,
		HealthChecks:                    maps.Clone(o.HealthChecks),
	}

	if len(cfg.Signals) == 0 {
		cfg.Signals = DefaultSignals()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.BeforeShutdown == nil {
		cfg.BeforeShutdown = Noop
	}

	if cfg.OnSignal == nil {
		cfg.OnSignal = Noop
	}

	if cfg.AfterShutdown == nil {
		cfg.AfterShutdown = Noop
	}

	if o.ServiceUnavailableWhileStopping != nil {
		cfg.ServiceUnavailableWhileStopping = *o.ServiceUnavailableWhileStopping
	}

	if cfg.HealthChecks == nil {
		cfg.HealthChecks = map[string]http.HandlerFunc{}
	}

	return cfg
}

// Bool returns a pointer to v, for ServiceUnavailableWhileStopping.
func Bool(v bool) *bool {
	return &v
}
