package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillcoder/graceful-coordinator/internal/gate"
)

// Server is the demo application server. It is drained by the graceful
// shutdown through its Shutdown and Close methods.
type Server struct {
	logger     *slog.Logger
	port       string
	router     gate.Router
	handler    http.Handler
	server     *http.Server
	mu         sync.Mutex
	addr       net.Addr
	ready      chan struct{}
	untraced   map[string]struct{}
	tracerOpts []otelhttp.Option
	inShutdown atomic.Bool
}

// Option customizes a Server
type Option func(*Server)

// WithTracerProvider sets the provider for request spans; the global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracerOpts = append(s.tracerOpts, otelhttp.WithTracerProvider(tp))
	}
}

// WithUntracedPaths excludes exact request paths, such as probes, from tracing.
func WithUntracedPaths(paths ...string) Option {
	return func(s *Server) {
		for _, path := range paths {
			s.untraced[path] = struct{}{}
		}
	}
}

// New creates the server and its router; routerKind is "chi" or "gorilla".
// Nothing listens until Start.
func New(logger *slog.Logger, port, routerKind string, opts ...Option) (*Server, error) {
	if port == "" {
		port = defaultPort
	}

	s := &Server{
		logger:   logger,
		port:     port,
		ready:    make(chan struct{}),
		untraced: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	switch routerKind {
	case RouterChi, "":
		router := chi.NewRouter()
		s.router = router
		s.handler = router
	case RouterGorilla:
		router := mux.NewRouter()
		s.router = gate.Gorilla(router)
		s.handler = router
	default:
		return nil, fmt.Errorf("new http server: %w: %q", ErrUnknownRouter, routerKind)
	}

	tracerOpts := append([]otelhttp.Option{
		otelhttp.WithFilter(s.traced),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	}, s.tracerOpts...)

	s.router.Use(
		otelhttp.NewMiddleware("http.server", tracerOpts...),
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	return s, nil
}

// Name returns the name of the server component
func (s *Server) Name() string {
	return "http-server"
}

// Router exposes the routing surface for the availability gate.
// With chi, middleware must be added before RegisterRoutes.
func (s *Server) Router() gate.Router {
	return s.router
}

// RegisterRoutes adds the application routes; status may be nil.
func (s *Server) RegisterRoutes(status http.HandlerFunc) {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/slow", s.handleSlow)

	if status != nil {
		s.router.Get("/-/status", status)
	}
}

// Start binds the port and serves in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "http server is shutting down, skipping start")

		return nil
	}

	server, ln, err := bind(ctx, s.port, s.handler)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	s.mu.Lock()
	s.server = server
	s.addr = ln.Addr()
	s.mu.Unlock()

	close(s.ready)

	go serve(ctx, s.logger.With("component", s.Name()), server, ln)

	return nil
}

// Ready returns a channel that is closed once the server listens
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Ping returns nil once the server listens.
func (s *Server) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		return nil
	default:
		return ErrNotReady
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "http server is already shutting down, skipping shutdown")

		return nil
	}

	server := s.httpServer()
	if server == nil {
		return nil
	}

	s.logger.InfoContext(ctx, "shutting down http server")

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.InfoContext(ctx, "http server closed properly")

	return nil
}

// Close severs every connection at once.
func (s *Server) Close() error {
	s.inShutdown.Store(true)

	server := s.httpServer()
	if server == nil {
		return nil
	}

	if err := server.Close(); err != nil {
		return fmt.Errorf("http server close: %w", err)
	}

	return nil
}

func (s *Server) traced(r *http.Request) bool {
	_, skip := s.untraced[r.URL.Path]

	return !skip
}

func (s *Server) httpServer() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.server
}
