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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves Prometheus metrics on a dedicated port. It keeps serving
// while the application drains and is shut down as a component afterwards.
type MetricsServer struct {
	logger     *slog.Logger
	port       string
	gatherer   prometheus.Gatherer
	status     http.HandlerFunc
	server     *http.Server
	mu         sync.Mutex
	addr       net.Addr
	ready      chan struct{}
	inShutdown atomic.Bool
}

// NewMetricsServer creates a metrics server for the default gatherer.
func NewMetricsServer(logger *slog.Logger, port string) *MetricsServer {
	if port == "" {
		port = defaultMetricsPort
	}

	return &MetricsServer{
		logger:   logger,
		port:     port,
		gatherer: prometheus.DefaultGatherer,
		ready:    make(chan struct{}),
	}
}

// Name returns the name of the metrics server component.
func (s *MetricsServer) Name() string {
	return "metrics-server"
}

// RegisterStatus serves status on GET /-/status; call before Start.
// This server keeps answering while the application server drains.
func (s *MetricsServer) RegisterStatus(status http.HandlerFunc) {
	s.status = status
}

// Ping returns nil when the server is ready to serve.
func (s *MetricsServer) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		return nil
	default:
		return fmt.Errorf("metrics server: %w", ErrNotReady)
	}
}

// Start binds the port and serves GET /metrics in a goroutine.
func (s *MetricsServer) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "metrics server is shutting down, skipping start")

		return nil
	}

	router := chi.NewRouter()
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	if s.status != nil {
		router.Get("/-/status", s.status)
	}

	server, ln, err := bind(ctx, s.port, router)
	if err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.mu.Lock()
	s.server = server
	s.addr = ln.Addr()
	s.mu.Unlock()

	close(s.ready)

	go serve(ctx, s.logger.With("component", s.Name()), server, ln)

	return nil
}

// Ready returns a channel that is closed when the metrics server is ready.
func (s *MetricsServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, nil before Start.
func (s *MetricsServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}

	s.logger.InfoContext(ctx, "metrics server closed properly")

	return nil
}
