package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillcoder/graceful-coordinator/internal/infra/metrics"
)

const tracerName = "github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"

// Step names, used in logs, spans and metrics.
const (
	StepBeforeShutdown = "beforeShutdown"
	StepListenerStop   = "listenerStop"
	StepOnSignal       = "onSignal"
	StepAfterShutdown  = "afterShutdown"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Orchestrator runs the shutdown sequence exactly once:
// flip state, beforeShutdown, listener stop, onSignal, afterShutdown,
// unsubscribe signals, exit.
type Orchestrator struct {
	logger     *slog.Logger
	cfg        Config
	server     any
	stopper    Stopper
	state      stateFlipper
	quit       chan os.Signal
	subscribed bool
	exit       func(code int)
	tracer     trace.Tracer
	phase      atomic.Int32
	done       chan struct{}
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithExit replaces os.Exit as the terminal action.
func WithExit(exit func(code int)) Option {
	return func(o *Orchestrator) {
		o.exit = exit
	}
}

// WithSignalChannel makes the orchestrator read signals from ch instead of
// subscribing itself, e.g. a channel subscribed first thing in main. Signals
// already buffered in ch start the sequence once Run is called. Delivery to ch
// is stopped at the end of a successful sequence.
func WithSignalChannel(ch chan os.Signal) Option {
	return func(o *Orchestrator) {
		o.quit = ch
	}
}

// WithTracerProvider sets the provider for shutdown spans; the global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
	}
}

// New creates an orchestrator and subscribes to the configured signals.
// server is the opaque handle passed to every hook.
func New(
	logger *slog.Logger,
	state stateFlipper,
	stopper Stopper,
	server any,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if state == nil {
		return nil, fmt.Errorf("new orchestrator: %w: state", ErrMissingDependency)
	}

	if stopper == nil {
		return nil, fmt.Errorf("new orchestrator: %w: stopper", ErrMissingDependency)
	}

	o := &Orchestrator{
		logger:  logger,
		cfg:     cfg,
		server:  server,
		stopper: stopper,
		state:   state,
		exit:    os.Exit,
		tracer:  otel.Tracer(tracerName),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.quit == nil {
		o.quit = Notify(cfg.Signals...)
		o.subscribed = true
	}

	metrics.SetPhase(int(PhaseRunning))

	signalNames := make([]string, 0, len(cfg.Signals))
	for _, sig := range cfg.Signals {
		signalNames = append(signalNames, SignalName(sig))
	}

	logger.Info("graceful shutdown initialized",
		"signals", signalNames,
		"timeout", cfg.Timeout,
		"serviceUnavailableWhileStopping", cfg.ServiceUnavailableWhileStopping,
		"healthChecks", len(cfg.HealthChecks),
	)

	return o, nil
}

// Config returns the resolved configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	return Phase(o.phase.Load())
}

// PhaseName returns the current phase as text.
func (o *Orchestrator) PhaseName() string {
	return o.Phase().String()
}

// Done returns a channel closed once the sequence has finished, right before exit.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Run waits for a configured signal and runs the shutdown sequence.
// It returns after the sequence (only observable when exit is replaced)
// or when ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.logger.InfoContext(ctx, "terminating signal handler due to context done")

			return fmt.Errorf("run orchestrator: %w", ctx.Err())
		case <-o.done:
			return nil
		case sig := <-o.quit:
			o.trigger(ctx, "signal", SignalName(sig))
		}
	}
}

// Trigger starts the shutdown sequence on behalf of a non-signal source
// (schedule, watchdog). It returns false when a shutdown already started.
func (o *Orchestrator) Trigger(ctx context.Context, reason string) bool {
	return o.trigger(ctx, "trigger", reason)
}

func (o *Orchestrator) trigger(ctx context.Context, source, name string) bool {
	if !o.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseShuttingDown)) {
		metrics.RecordTrigger(source, false)
		o.logger.InfoContext(ctx, "shutdown already in progress, ignoring",
			"source", source,
			"signal", name,
		)

		return false
	}

	metrics.RecordTrigger(source, true)
	metrics.SetPhase(int(PhaseShuttingDown))

	// The sequence is not cancellable once started
	o.runSequence(context.WithoutCancel(ctx), source, name)

	return true
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

func (o *Orchestrator) runSequence(ctx context.Context, source, name string) {
	logger := o.logger.With(
		"shutdownID", uuid.NewString(),
		"signal", name,
	)

	ctx, span := o.tracer.Start(ctx, "graceful.shutdown",
		trace.WithAttributes(
			attribute.String("shutdown.source", source),
			attribute.String("shutdown.signal", name),
		),
	)

	logger.InfoContext(ctx, "received termination signal, starting cleanup", "source", source)

	o.state.SetStopping(ctx)

	steps := []step{
		{name: StepBeforeShutdown, run: o.hook(StepBeforeShutdown, o.cfg.BeforeShutdown, name)},
		{name: StepListenerStop, run: o.stopListener},
		{name: StepOnSignal, run: o.hook(StepOnSignal, o.cfg.OnSignal, name)},
		{name: StepAfterShutdown, run: o.hook(StepAfterShutdown, o.cfg.AfterShutdown, name)},
	}

	for _, s := range steps {
		if err := o.runStep(ctx, logger, s); err != nil {
			logger.ErrorContext(ctx, "error during shutdown", "step", s.name, "reason", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, s.name+" failed")
			span.End()

			o.terminate(ctx, logger, ExitFailure)

			return
		}
	}

	o.unsubscribe(ctx, logger)

	span.SetStatus(codes.Ok, "")
	span.End()

	o.terminate(ctx, logger, ExitSuccess)
}

func (o *Orchestrator) hook(stepName string, h Hook, signalName string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := h(ctx, o.server, signalName); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrHookFailed, stepName, err)
		}

		return nil
	}
}

func (o *Orchestrator) stopListener(ctx context.Context) error {
	if err := o.stopper.Stop(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrListenerStop, err)
	}

	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, logger *slog.Logger, s step) (err error) {
	ctx, span := o.tracer.Start(ctx, "graceful.shutdown."+s.name)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrHookFailed, s.name, r)
		}

		duration := time.Since(start)
		metrics.ObserveStep(s.name, duration, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			logger.InfoContext(ctx, "shutdown step completed", "step", s.name, "duration", duration)
		}

		span.End()
	}()

	return s.run(ctx)
}

func (o *Orchestrator) unsubscribe(ctx context.Context, logger *slog.Logger) {
	signal.Stop(o.quit)

	if o.subscribed {
		signal.Reset(o.cfg.Signals...)
	}

	for _, sig := range o.cfg.Signals {
		logger.DebugContext(ctx, "removed signal listeners", "signal", SignalName(sig))
	}
}

func (o *Orchestrator) terminate(ctx context.Context, logger *slog.Logger, code int) {
	o.phase.Store(int32(PhaseTerminated))
	metrics.SetPhase(int(PhaseTerminated))

	logger.InfoContext(ctx, "exit server process", "pid", os.Getpid(), "code", code)

	close(o.done)

	o.exit(code)
}
