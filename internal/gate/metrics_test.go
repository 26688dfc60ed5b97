package gate_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/skillcoder/graceful-coordinator/internal/gate"
	"github.com/skillcoder/graceful-coordinator/internal/infra/appstate"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

	metricLoop:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metricLoop
				}
			}

			return m.GetCounter().GetValue()
		}
	}

	return 0
}

// Not parallel: the rejected-requests counter has no labels to isolate this test.
func TestGateMetrics(t *testing.T) {
	logger := slog.Default()
	state := appstate.New(logger, time.Now())
	path := "/metrics-test-health"

	rejectedBefore := counterValue(t, "graceful_rejected_requests_total", nil)
	okBefore := counterValue(t, "graceful_health_checks_total", map[string]string{"path": path, "result": "ok"})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	filter := gate.RejectWhileStopping(logger, state)(next)
	health := gate.HealthHandler(logger, path, state, nil)

	serve(t, health, http.MethodGet, path)
	serve(t, filter, http.MethodGet, "/x")

	state.SetStopping(t.Context())

	serve(t, health, http.MethodGet, path)
	serve(t, filter, http.MethodGet, "/x")
	serve(t, filter, http.MethodGet, "/y")

	require.InDelta(t, rejectedBefore+2, counterValue(t, "graceful_rejected_requests_total", nil), 0)
	require.InDelta(t, okBefore+1,
		counterValue(t, "graceful_health_checks_total", map[string]string{"path": path, "result": "ok"}), 0)
	require.InDelta(t, 1,
		counterValue(t, "graceful_health_checks_total", map[string]string{"path": path, "result": "stopping"}), 0)

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "graceful_health_checks_total")
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 2)
}
