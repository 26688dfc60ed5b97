package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Health check outcomes used as the "result" label.
const (
	HealthResultOK       = "ok"
	HealthResultStopping = "stopping"
	HealthResultCustom   = "custom"
)

// Shutdown step outcomes used as the "result" label.
const (
	StepResultSuccess = "success"
	StepResultFailure = "failure"
)

var rejectedRequestsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "graceful_rejected_requests_total",
		Help: "Total number of inbound requests answered with 503 because the server is shutting down.",
	},
)

var healthChecksTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "graceful_health_checks_total",
		Help: "Total number of health check requests by route and result.",
	},
	[]string{"path", "result"},
)

var shutdownTriggersTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "graceful_shutdown_triggers_total",
		Help: "Total number of shutdown triggers received, including ignored repeats.",
	},
	[]string{"source", "accepted"},
)

var shutdownPhase = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "graceful_shutdown_phase",
		Help: "Current orchestrator phase: 0 running, 1 shutting down, 2 terminated.",
	},
)

var shutdownStepDuration = promauto.With(prometheus.DefaultRegisterer).NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "graceful_shutdown_step_duration_seconds",
		Help:    "Duration of each shutdown sequence step.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"step", "result"},
)

// RecordRejectedRequest increments the counter of requests rejected while stopping.
func RecordRejectedRequest() {
	rejectedRequestsTotal.Inc()
}

// RecordHealthCheck counts one health check response.
func RecordHealthCheck(path, result string) {
	healthChecksTotal.WithLabelValues(path, result).Inc()
}

// RecordTrigger counts a shutdown trigger; accepted is false for triggers swallowed by the guard.
func RecordTrigger(source string, accepted bool) {
	value := "false"
	if accepted {
		value = "true"
	}

	shutdownTriggersTotal.WithLabelValues(source, value).Inc()
}

// SetPhase publishes the orchestrator phase.
func SetPhase(phase int) {
	shutdownPhase.Set(float64(phase))
}

// ObserveStep records how long a shutdown step took.
func ObserveStep(step string, duration time.Duration, err error) {
	result := StepResultSuccess
	if err != nil {
		result = StepResultFailure
	}

	shutdownStepDuration.WithLabelValues(step, result).Observe(duration.Seconds())
}

var pingDuration = promauto.With(prometheus.DefaultRegisterer).NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "graceful_pinger_duration_seconds",
		Help:    "Latency of readiness pinger checks.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"pinger", "result"},
)

var memoryUsageRatio = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "graceful_memory_usage_ratio",
		Help: "Last observed pod memory usage divided by the watchdog threshold.",
	},
)

var nextScheduledDrain = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "graceful_scheduled_drain_next_timestamp_seconds",
		Help: "Unix time of the next planned drain, 0 when none is scheduled.",
	},
)

// ObservePing records the latency of one pinger run.
func ObservePing(pinger string, duration time.Duration, err error) {
	result := StepResultSuccess
	if err != nil {
		result = StepResultFailure
	}

	pingDuration.WithLabelValues(pinger, result).Observe(duration.Seconds())
}

// SetMemoryUsageRatio publishes usage/threshold as seen by the memory watchdog.
func SetMemoryUsageRatio(ratio float64) {
	memoryUsageRatio.Set(ratio)
}

// SetNextScheduledDrain publishes the next planned drain time; the zero time clears it.
func SetNextScheduledDrain(at time.Time) {
	if at.IsZero() {
		nextScheduledDrain.Set(0)

		return
	}

	nextScheduledDrain.Set(float64(at.Unix()))
}
