package gate

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/skillcoder/graceful-coordinator/internal/infra/metrics"
)

// Response bodies are fixed; load balancers match on them.
const (
	okBody       = `{"status":"ok"}`
	stoppingBody = `{"status":"error","error":"server is shutting down"}`
)

type stoppingChecker interface {
	IsStopping() bool
}

// RejectWhileStopping returns a middleware that answers 503 with the stopping body
// for every request once the state is stopping, bypassing downstream handlers.
func RejectWhileStopping(logger *slog.Logger, state stoppingChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if state.IsStopping() {
				logger.DebugContext(r.Context(), "rejecting request, server is shutting down",
					"method", r.Method,
					"path", r.URL.Path,
				)
				metrics.RecordRejectedRequest()
				writeStopping(w)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HealthHandler returns the handler for one health-check route.
//
// While stopping it always answers 503 with the stopping body. While serving it
// delegates to check when set, otherwise answers 200 {"status":"ok"}.
func HealthHandler(
	logger *slog.Logger,
	path string,
	state stoppingChecker,
	check http.HandlerFunc,
) http.HandlerFunc {
	logger = logger.With("healthCheck", path)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if state.IsStopping() {
			logger.DebugContext(ctx, "health check, server is shutting down")
			metrics.RecordHealthCheck(path, metrics.HealthResultStopping)
			writeStopping(w)

			return
		}

		if check != nil {
			logger.DebugContext(ctx, "health check, delegating to custom check")
			metrics.RecordHealthCheck(path, metrics.HealthResultCustom)
			check(w, r)

			return
		}

		logger.DebugContext(ctx, "health check, server is running")
		metrics.RecordHealthCheck(path, metrics.HealthResultOK)
		writeJSON(w, http.StatusOK, okBody)
	}
}

// Options controls what Install registers
type Options struct {
	// ServiceUnavailableWhileStopping installs the RejectWhileStopping middleware
	ServiceUnavailableWhileStopping bool

	// HealthChecks maps a route path to an optional custom check; nil means default behaviour
	HealthChecks map[string]http.HandlerFunc
}

// Install registers the request filter (if enabled) and one GET route per health check.
// The middleware is registered before any route, as chi requires.
func Install(logger *slog.Logger, router Router, state stoppingChecker, opts Options) {
	if opts.ServiceUnavailableWhileStopping {
		router.Use(RejectWhileStopping(logger, state))
	}

	for _, path := range slices.Sorted(maps.Keys(opts.HealthChecks)) {
		check := opts.HealthChecks[path]
		router.Get(path, HealthHandler(logger, path, state, check))
		logger.Info("health check registered", "path", path, "custom", check != nil)
	}
}

// WriteOK writes 200 with the ok body; useful for custom checks that pass
func WriteOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okBody)
}

func writeStopping(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, stoppingBody)
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
