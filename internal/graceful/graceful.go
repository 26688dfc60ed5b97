// Package graceful wires the listener adapter, the availability gate and the
// shutdown orchestrator around one server.
package graceful

import (
	"fmt"
	"log/slog"

	"github.com/skillcoder/graceful-coordinator/internal/gate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/appstate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
	"github.com/skillcoder/graceful-coordinator/internal/listener"
)

// Initialize resolves opts, installs the request gate and health routes on router
// and subscribes to the configured signals.
//
// handle is the server to drain: an *http.Server, anything with Shutdown(ctx) or
// Close(), or a *listener.Capture the application starts through. An unrecognized
// handle fails with listener.ErrNoServerHandle before anything is registered.
//
// With chi, Initialize must be called before the application registers its routes.
func Initialize(
	logger *slog.Logger,
	router gate.Router,
	handle any,
	state *appstate.AppState,
	opts shutdown.Options,
	orchOpts ...shutdown.Option,
) (*shutdown.Orchestrator, error) {
	if state == nil {
		return nil, fmt.Errorf("initialize graceful shutdown: %w: state", shutdown.ErrMissingDependency)
	}

	cfg := opts.Resolve()

	stopper, err := listener.New(logger, handle, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("initialize graceful shutdown: %w", err)
	}

	if router != nil {
		gate.Install(logger, router, state, gate.Options{
			ServiceUnavailableWhileStopping: cfg.ServiceUnavailableWhileStopping,
			HealthChecks:                    cfg.HealthChecks,
		})
	}

	orch, err := shutdown.New(logger, state, stopper, handle, cfg, orchOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialize graceful shutdown: %w", err)
	}

	return orch, nil
}
