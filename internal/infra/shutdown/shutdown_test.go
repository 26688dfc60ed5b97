package shutdown_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/skillcoder/graceful-coordinator/internal/infra/appstate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown/mocks"
)

const waitTimeout = 2 * time.Second

type stopperFunc func(ctx context.Context) error

func (f stopperFunc) Stop(ctx context.Context) error { return f(ctx) }

type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, name)
}

func (r *callRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

func (r *callRecorder) hook(name string, err error) shutdown.Hook {
	return func(context.Context, any, string) error {
		r.record(name)

		return err
	}
}

func (r *callRecorder) stopper(err error) shutdown.Stopper {
	return stopperFunc(func(context.Context) error {
		r.record(shutdown.StepListenerStop)

		return err
	})
}

type harness struct {
	orch   *shutdown.Orchestrator
	state  *appstate.AppState
	quit   chan os.Signal
	exits  chan int
	runErr chan error
}

func newHarness(
	t *testing.T,
	opts shutdown.Options,
	stopper shutdown.Stopper,
	extra ...shutdown.Option,
) *harness {
	t.Helper()

	logger := slog.Default()
	h := &harness{
		state:  appstate.New(logger, time.Now()),
		quit:   make(chan os.Signal, 4),
		exits:  make(chan int, 4),
		runErr: make(chan error, 1),
	}

	orchOpts := append([]shutdown.Option{
		shutdown.WithSignalChannel(h.quit),
		shutdown.WithExit(func(code int) { h.exits <- code }),
	}, extra...)

	orch, err := shutdown.New(logger, h.state, stopper, "server-handle", opts.Resolve(), orchOpts...)
	require.NoError(t, err)

	h.orch = orch

	return h
}

func (h *harness) run(ctx context.Context) {
	go func() {
		h.runErr <- h.orch.Run(ctx)
	}()
}

func (h *harness) waitExit(t *testing.T) int {
	t.Helper()

	select {
	case code := <-h.exits:
		return code
	case <-time.After(waitTimeout):
		t.Fatal("process exit was not requested")
	}

	return -1
}

func (h *harness) requireSingleExit(t *testing.T) {
	t.Helper()

	select {
	case code := <-h.exits:
		t.Fatalf("exit requested twice, second code %d", code)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	cfg := shutdown.Options{}.Resolve()
	state := appstate.New(logger, time.Now())
	stopper := stopperFunc(func(context.Context) error { return nil })
	quit := make(chan os.Signal, 1)

	_, err := shutdown.New(logger, nil, stopper, nil, cfg, shutdown.WithSignalChannel(quit))
	require.ErrorIs(t, err, shutdown.ErrMissingDependency)

	_, err = shutdown.New(logger, state, nil, nil, cfg, shutdown.WithSignalChannel(quit))
	require.ErrorIs(t, err, shutdown.ErrMissingDependency)
}

func TestOrchestrator_StepOrder(t *testing.T) {
	t.Parallel()

	rec := &callRecorder{}

	stopper := mocks.NewMockStopper(t)
	stopper.EXPECT().
		Stop(mock.Anything).
		Run(func(context.Context) { rec.record(shutdown.StepListenerStop) }).
		Return(nil).
		Once()

	h := newHarness(t, shutdown.Options{
		BeforeShutdown: rec.hook(shutdown.StepBeforeShutdown, nil),
		OnSignal:       rec.hook(shutdown.StepOnSignal, nil),
		AfterShutdown:  rec.hook(shutdown.StepAfterShutdown, nil),
	}, stopper)

	require.Equal(t, shutdown.PhaseRunning, h.orch.Phase())

	h.run(t.Context())
	h.quit <- syscall.SIGTERM

	require.Equal(t, shutdown.ExitSuccess, h.waitExit(t))
	require.Equal(t, []string{
		shutdown.StepBeforeShutdown,
		shutdown.StepListenerStop,
		shutdown.StepOnSignal,
		shutdown.StepAfterShutdown,
	}, rec.get())
	require.Equal(t, appstate.StateStopping, h.state.GetState())
	require.Equal(t, shutdown.PhaseTerminated, h.orch.Phase())
	require.Equal(t, "terminated", h.orch.PhaseName())

	select {
	case err := <-h.runErr:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("run did not return after the sequence")
	}
}

func TestOrchestrator_FailureShortCircuits(t *testing.T) {
	t.Parallel()

	giveErr := errors.New("boom")

	tests := []struct {
		name      string
		giveFail  string
		wantCalls []string
	}{
		{
			name:      "beforeShutdown failure skips everything else",
			giveFail:  shutdown.StepBeforeShutdown,
			wantCalls: []string{shutdown.StepBeforeShutdown},
		},
		{
			name:     "listener stop failure skips hooks after it",
			giveFail: shutdown.StepListenerStop,
			wantCalls: []string{
				shutdown.StepBeforeShutdown,
				shutdown.StepListenerStop,
			},
		},
		{
			name:     "onSignal failure skips afterShutdown",
			giveFail: shutdown.StepOnSignal,
			wantCalls: []string{
				shutdown.StepBeforeShutdown,
				shutdown.StepListenerStop,
				shutdown.StepOnSignal,
			},
		},
		{
			name:     "afterShutdown failure after all other steps ran",
			giveFail: shutdown.StepAfterShutdown,
			wantCalls: []string{
				shutdown.StepBeforeShutdown,
				shutdown.StepListenerStop,
				shutdown.StepOnSignal,
				shutdown.StepAfterShutdown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &callRecorder{}
			errFor := func(step string) error {
				if step == tt.giveFail {
					return giveErr
				}

				return nil
			}

			h := newHarness(t, shutdown.Options{
				BeforeShutdown: rec.hook(shutdown.StepBeforeShutdown, errFor(shutdown.StepBeforeShutdown)),
				OnSignal:       rec.hook(shutdown.StepOnSignal, errFor(shutdown.StepOnSignal)),
				AfterShutdown:  rec.hook(shutdown.StepAfterShutdown, errFor(shutdown.StepAfterShutdown)),
			}, rec.stopper(errFor(shutdown.StepListenerStop)))

			h.run(t.Context())
			h.quit <- syscall.SIGTERM

			require.Equal(t, shutdown.ExitFailure, h.waitExit(t))
			require.Equal(t, tt.wantCalls, rec.get())
			require.Equal(t, shutdown.PhaseTerminated, h.orch.Phase())
			h.requireSingleExit(t)
		})
	}
}

func TestOrchestrator_HookPanicIsFailure(t *testing.T) {
	t.Parallel()

	rec := &callRecorder{}

	h := newHarness(t, shutdown.Options{
		BeforeShutdown: func(context.Context, any, string) error {
			panic("hook exploded")
		},
		OnSignal: rec.hook(shutdown.StepOnSignal, nil),
	}, rec.stopper(nil))

	h.run(t.Context())
	h.quit <- syscall.SIGINT

	require.Equal(t, shutdown.ExitFailure, h.waitExit(t))
	require.Empty(t, rec.get())
}

func TestOrchestrator_HookArguments(t *testing.T) {
	t.Parallel()

	var (
		gotServer any
		gotSignal string
	)

	h := newHarness(t, shutdown.Options{
		OnSignal: func(_ context.Context, server any, signal string) error {
			gotServer = server
			gotSignal = signal

			return nil
		},
	}, stopperFunc(func(context.Context) error { return nil }))

	h.run(t.Context())
	h.quit <- syscall.SIGTERM

	require.Equal(t, shutdown.ExitSuccess, h.waitExit(t))
	require.Equal(t, "server-handle", gotServer)
	require.Equal(t, "SIGTERM", gotSignal)
}

func TestOrchestrator_RepeatedSignalsRunOnce(t *testing.T) {
	t.Parallel()

	var beforeCalls atomic.Int32

	entered := make(chan struct{})
	release := make(chan struct{})

	h := newHarness(t, shutdown.Options{
		BeforeShutdown: func(context.Context, any, string) error {
			if beforeCalls.Add(1) == 1 {
				close(entered)
			}

			<-release

			return nil
		},
	}, stopperFunc(func(context.Context) error { return nil }))

	h.run(t.Context())
	h.quit <- syscall.SIGTERM

	<-entered

	require.True(t, h.state.IsStopping())
	require.Equal(t, shutdown.PhaseShuttingDown, h.orch.Phase())

	h.quit <- syscall.SIGTERM
	h.quit <- syscall.SIGINT

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if h.orch.Trigger(t.Context(), "SCHEDULE") {
				accepted.Add(1)
			}
		}()
	}

	wg.Wait()
	close(release)

	require.Equal(t, shutdown.ExitSuccess, h.waitExit(t))
	require.Equal(t, int32(0), accepted.Load())
	require.Equal(t, int32(1), beforeCalls.Load())
	h.requireSingleExit(t)
}

func TestOrchestrator_Trigger(t *testing.T) {
	t.Parallel()

	var gotSignal string

	h := newHarness(t, shutdown.Options{
		AfterShutdown: func(_ context.Context, _ any, signal string) error {
			gotSignal = signal

			return nil
		},
	}, stopperFunc(func(context.Context) error { return nil }))

	require.True(t, h.orch.Trigger(t.Context(), "SCHEDULE"))
	require.Equal(t, shutdown.ExitSuccess, h.waitExit(t))
	require.Equal(t, "SCHEDULE", gotSignal)
	require.False(t, h.orch.Trigger(t.Context(), "SCHEDULE"))

	select {
	case <-h.orch.Done():
	default:
		t.Fatal("done channel must be closed after the sequence")
	}
}

func TestOrchestrator_SequenceIgnoresCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var afterErr error

	h := newHarness(t, shutdown.Options{
		BeforeShutdown: func(context.Context, any, string) error {
			cancel()

			return nil
		},
		AfterShutdown: func(ctx context.Context, _ any, _ string) error {
			afterErr = ctx.Err()

			return nil
		},
	}, stopperFunc(func(context.Context) error { return nil }))

	h.run(ctx)
	h.quit <- syscall.SIGTERM

	require.Equal(t, shutdown.ExitSuccess, h.waitExit(t))
	require.NoError(t, afterErr)
}

func TestOrchestrator_RunContextDone(t *testing.T) {
	t.Parallel()

	rec := &callRecorder{}
	h := newHarness(t, shutdown.Options{
		BeforeShutdown: rec.hook(shutdown.StepBeforeShutdown, nil),
	}, rec.stopper(nil))

	ctx, cancel := context.WithCancel(t.Context())
	h.run(ctx)
	cancel()

	select {
	case err := <-h.runErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		t.Fatal("run did not return on context cancel")
	}

	require.Empty(t, rec.get())
	require.Equal(t, shutdown.PhaseRunning, h.orch.Phase())
	require.False(t, h.state.IsStopping())
}

func TestOrchestrator_Spans(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	h := newHarness(t, shutdown.Options{
		OnSignal: func(context.Context, any, string) error { return errors.New("boom") },
	}, stopperFunc(func(context.Context) error { return nil }), shutdown.WithTracerProvider(tp))

	h.run(t.Context())
	h.quit <- syscall.SIGTERM

	require.Equal(t, shutdown.ExitFailure, h.waitExit(t))

	names := make([]string, 0, len(sr.Ended()))
	for _, span := range sr.Ended() {
		names = append(names, span.Name())
	}

	require.Equal(t, []string{
		"graceful.shutdown.beforeShutdown",
		"graceful.shutdown.listenerStop",
		"graceful.shutdown.onSignal",
		"graceful.shutdown",
	}, names)
}

// Not parallel: delivers a real signal to the test process.
func TestOrchestrator_RealSignal(t *testing.T) {
	logger := slog.Default()
	state := appstate.New(logger, time.Now())
	exits := make(chan int, 1)

	orch, err := shutdown.New(
		logger,
		state,
		stopperFunc(func(context.Context) error { return nil }),
		nil,
		shutdown.Options{Signals: []os.Signal{syscall.SIGUSR1}}.Resolve(),
		shutdown.WithExit(func(code int) { exits <- code }),
	)
	require.NoError(t, err)

	go func() {
		_ = orch.Run(t.Context())
	}()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case code := <-exits:
		require.Equal(t, shutdown.ExitSuccess, code)
	case <-time.After(waitTimeout):
		t.Fatal("real signal did not trigger shutdown")
	}

	require.True(t, state.IsStopping())
}

// Not parallel: delivers real signals to the test process.
func TestOrchestrator_UnsubscribesOnlyAfterSuccess(t *testing.T) {
	tests := []struct {
		name          string
		giveBeforeErr error
		wantCode      int
		wantDelivered bool
	}{
		{
			name:          "success stops delivery",
			wantCode:      shutdown.ExitSuccess,
			wantDelivered: false,
		},
		{
			name:          "failure keeps subscription",
			giveBeforeErr: errors.New("boom"),
			wantCode:      shutdown.ExitFailure,
			wantDelivered: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// keeps SIGUSR1 from terminating the test process
			keeper := make(chan os.Signal, 1)
			signal.Notify(keeper, syscall.SIGUSR1)
			t.Cleanup(func() { signal.Stop(keeper) })

			quit := shutdown.Notify(syscall.SIGUSR1)
			t.Cleanup(func() { signal.Stop(quit) })

			logger := slog.Default()
			exits := make(chan int, 1)

			orch, err := shutdown.New(
				logger,
				appstate.New(logger, time.Now()),
				stopperFunc(func(context.Context) error { return nil }),
				nil,
				shutdown.Options{
					Signals: []os.Signal{syscall.SIGUSR1},
					BeforeShutdown: func(context.Context, any, string) error {
						return tt.giveBeforeErr
					},
				}.Resolve(),
				shutdown.WithSignalChannel(quit),
				shutdown.WithExit(func(code int) { exits <- code }),
			)
			require.NoError(t, err)

			require.True(t, orch.Trigger(t.Context(), "TEST"))
			require.Equal(t, tt.wantCode, <-exits)

			require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

			select {
			case <-keeper:
			case <-time.After(waitTimeout):
				t.Fatal("signal was not delivered to the process")
			}

			delivered := false

			select {
			case <-quit:
				delivered = true
			case <-time.After(100 * time.Millisecond):
			}

			require.Equal(t, tt.wantDelivered, delivered)
		})
	}
}
