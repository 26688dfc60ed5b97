package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/skillcoder/graceful-coordinator/internal/adapters/outbound/k8s"
	"github.com/skillcoder/graceful-coordinator/internal/config"
	"github.com/skillcoder/graceful-coordinator/internal/gate"
	"github.com/skillcoder/graceful-coordinator/internal/graceful"
	"github.com/skillcoder/graceful-coordinator/internal/httpserver"
	"github.com/skillcoder/graceful-coordinator/internal/infra/appstate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/pinger"
	"github.com/skillcoder/graceful-coordinator/internal/infra/schedule"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
	"github.com/skillcoder/graceful-coordinator/internal/infra/tracing"
	"github.com/skillcoder/graceful-coordinator/internal/infra/watchdog"
)

const serviceName = "graceful-server"

type App struct {
	logger       *slog.Logger
	server       *httpserver.Server
	statusServer *httpserver.MetricsServer
	orchestrator *shutdown.Orchestrator
	components   []component
	ready        []<-chan struct{}
	readyCh      chan struct{}
}

// New wires the demo server, the graceful shutdown and the optional drain triggers.
// opts are merged over the config-derived shutdown options; non-zero fields win.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	appState *appstate.AppState,
	signals chan os.Signal,
	opts shutdown.Options,
	orchOpts ...shutdown.Option,
) (*App, error) {
	// signals was subscribed with the defaults before the config was known;
	// anything it buffered during startup is handled by the orchestrator
	subscribe := cfg.Signals
	if len(subscribe) == 0 {
		subscribe = shutdown.DefaultSignals()
	}

	if signals == nil {
		signals = shutdown.Notify(subscribe...)
	} else {
		signal.Stop(signals)
		signal.Notify(signals, subscribe...)
	}

	tracer, err := tracing.New(context.Background(), logger, tracing.Options{
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
		Sample:   cfg.TraceSample,
		Service:  serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	untraced := append([]string{cfg.ReadyPath}, cfg.HealthPaths...)

	server, err := httpserver.New(logger, cfg.HTTPPort, cfg.Router,
		httpserver.WithTracerProvider(tracer.TracerProvider()),
		httpserver.WithUntracedPaths(untraced...),
	)
	if err != nil {
		return nil, fmt.Errorf("new http server: %w", err)
	}

	metricsServer := httpserver.NewMetricsServer(logger, cfg.MetricsPort)
	pingers := pinger.New(logger, cfg.PingerInterval)

	for _, p := range []pinger.Pinger{server, metricsServer} {
		if err := pingers.Register(p); err != nil {
			return nil, fmt.Errorf("register pinger: %w", err)
		}
	}

	a := &App{
		logger:  logger,
		server:  server,
		readyCh: make(chan struct{}),
	}

	merged := cfg.ShutdownOptions().Merge(opts)

	if cfg.ReadyPath != "" {
		merged = merged.Merge(shutdown.Options{
			HealthChecks: map[string]http.HandlerFunc{cfg.ReadyPath: gate.ProbeCheck(pingers)},
		})
	}

	var kubeAdapter *k8s.Adapter

	if cfg.InCluster() && (cfg.DeregisterLabel != "" || cfg.MemoryThreshold != nil) {
		clients, err := newKubeClients(cfg)
		if err != nil {
			return nil, err
		}

		kubeAdapter = k8s.New(logger, clients.clientset, clients.metricsClientset, cfg.PodNamespace, cfg.PodName)
	}

	if kubeAdapter != nil && cfg.DeregisterLabel != "" {
		merged.BeforeShutdown = shutdown.Chain(deregisterHook(kubeAdapter, cfg.DeregisterLabel), merged.BeforeShutdown)
	}

	merged.AfterShutdown = shutdown.Chain(merged.AfterShutdown, a.shutdownComponents)

	orchOpts = append([]shutdown.Option{
		shutdown.WithSignalChannel(signals),
		shutdown.WithTracerProvider(tracer.TracerProvider()),
	}, orchOpts...)

	orch, err := graceful.Initialize(logger, server.Router(), server, appState, merged, orchOpts...)
	if err != nil {
		return nil, err
	}

	a.orchestrator = orch

	// status lives on the metrics port, which is not gated while draining
	server.RegisterRoutes(nil)
	metricsServer.RegisterStatus(appstate.HandleStatus(logger, appState, orch))
	a.statusServer = metricsServer

	// the tracer provider is stopped last to flush spans of the other components
	a.components = append(a.components, tracer, metricsServer, pingers)
	a.ready = append(a.ready, server.Ready(), metricsServer.Ready(), pingers.Ready())

	if cfg.RestartSchedule != "" {
		scheduler, err := schedule.New(logger, cfg.RestartSchedule, cfg.RestartTZ, orch)
		if err != nil {
			return nil, fmt.Errorf("new drain scheduler: %w", err)
		}

		a.components = append(a.components, scheduler)
	}

	if kubeAdapter != nil && cfg.MemoryThreshold != nil {
		a.components = append(a.components,
			watchdog.New(logger, kubeAdapter, orch, *cfg.MemoryThreshold, cfg.MemoryCheckInterval),
		)
	}

	return a, nil
}

// Orchestrator returns the shutdown orchestrator, for extra trigger sources.
func (a *App) Orchestrator() *shutdown.Orchestrator {
	return a.orchestrator
}

// Ready returns a channel closed once the server, the metrics server and the
// first round of pings are up.
func (a *App) Ready() <-chan struct{} {
	return a.readyCh
}

// Run starts every component and blocks until the shutdown sequence ends the
// process, or ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", a.server.Name(), err)
	}

	for _, c := range a.components {
		if err := c.Start(ctx); err != nil {
			a.logger.ErrorContext(ctx, "failed to start component", "component", c.Name(), "reason", err)
			_ = a.server.Close()
			_ = a.shutdownComponents(ctx, nil, "")

			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
	}

	go func() {
		select {
		case <-allChannelsClose(ctx, a.logger, a.ready...):
			a.logger.InfoContext(ctx, "application ready")
			close(a.readyCh)
		case <-ctx.Done():
		}
	}()

	return a.orchestrator.Run(ctx)
}

// shutdownComponents is the last afterShutdown hook: it stops the background
// components in reverse start order.
func (a *App) shutdownComponents(ctx context.Context, server any, signal string) error {
	shutdowners := make([]shutdown.Shutdowner, 0, len(a.components))
	for _, c := range a.components {
		shutdowners = append(shutdowners, c)
	}

	return shutdown.Components(a.logger, shutdowners...)(ctx, server, signal)
}

func deregisterHook(adapter *k8s.Adapter, label string) shutdown.Hook {
	return func(ctx context.Context, _ any, _ string) error {
		if err := adapter.RemoveLabelCommand(ctx, label); err != nil {
			return fmt.Errorf("deregister pod: %w", err)
		}

		return nil
	}
}

// allChannelsClose returns a channel closed once every input channel is closed,
// or right away when ctx is done.
func allChannelsClose(ctx context.Context, logger *slog.Logger, chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for i, ch := range chans {
			select {
			case <-ch:
			case <-ctx.Done():
				logger.DebugContext(ctx, "stopped waiting for readiness", "pending", len(chans)-i)

				return
			}
		}
	}()

	return out
}
