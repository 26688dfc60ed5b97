package config

import "time"

// Env key constants. All configuration env vars use GRACEFUL_ prefix;
// duration values support explicit units (e.g. 5m, 40s, 2h).

// Log level: debug, info, warn, error.
const envKeyLogLevel = "GRACEFUL_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "GRACEFUL_LOG_FORMAT"

// Port of the application HTTP server.
const envKeyHTTPPort = "GRACEFUL_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "GRACEFUL_METRICS_PORT"

// Router implementation: chi or gorilla.
const envKeyRouter = "GRACEFUL_ROUTER"

// Comma separated signals that start the shutdown (e.g. SIGINT,SIGTERM or hup).
const envKeySignals = "GRACEFUL_SIGNALS"

// Drain timeout for the listener stop. Units: ms, s (e.g. 1500ms, 5s).
const (
	envKeyDrainTimeout = "GRACEFUL_DRAIN_TIMEOUT"
	envMinDrainTimeout = 10 * time.Millisecond
)

// Reject requests with 503 while stopping: true or false.
const envKeyServiceUnavailableWhileStopping = "GRACEFUL_SERVICE_UNAVAILABLE_WHILE_STOPPING"

// Comma separated health check paths answering 200 until the shutdown starts.
const envKeyHealthPaths = "GRACEFUL_HEALTH_PATHS"

// Readiness path backed by the pinger service; empty disables it.
const envKeyReadyPath = "GRACEFUL_READY_PATH"

// Pinger check interval. Units: s, m, h (e.g. 10s, 1m).
const (
	envKeyPingerInterval = "GRACEFUL_PINGER_INTERVAL"
	envMinPingerInterval = time.Second
)

// Cron expression of a planned drain (e.g. "0 4 * * *"); empty disables it.
const envKeyRestartSchedule = "GRACEFUL_RESTART_SCHEDULE"

// Timezone of the planned drain schedule (IANA, e.g. America/New_York).
const envKeyRestartTZ = "GRACEFUL_RESTART_TZ"

// Path to kubeconfig file. If unset, KUBECONFIG is used as fallback; in-cluster config otherwise.
const envKeyKubeConfig = "GRACEFUL_KUBECONFIG"

// Kubernetes API server URL. If unset, KUBERNETES_MASTER is used as fallback.
const envKeyKubeMaster = "GRACEFUL_KUBE_MASTER"

// Name and namespace of the pod this process runs in (downward API).
const (
	envKeyPodName      = "GRACEFUL_POD_NAME"
	envKeyPodNamespace = "GRACEFUL_POD_NAMESPACE"
)

// Pod label removed before the drain so Services stop routing to the pod; empty disables it.
const envKeyDeregisterLabel = "GRACEFUL_DEREGISTER_LABEL"

// Memory usage that triggers a drain: quantity (512Mi) or percentage of the limit (90%).
const envKeyMemoryThreshold = "GRACEFUL_MEMORY_THRESHOLD"

// Memory watchdog interval. Units: s, m, h (e.g. 15s).
const (
	envKeyMemoryCheckInterval = "GRACEFUL_MEMORY_CHECK_INTERVAL"
	envMinMemoryCheckInterval = time.Second
)

// OTLP gRPC collector endpoint (host:port); spans are not exported when empty.
const envKeyOTLPEndpoint = "GRACEFUL_OTLP_ENDPOINT"

// Disable TLS towards the OTLP collector: true or false.
const envKeyOTLPInsecure = "GRACEFUL_OTLP_INSECURE"

// Trace sampling ratio between 0 and 1.
const envKeyTraceSample = "GRACEFUL_TRACE_SAMPLE"

// Standard k8s env keys used as fallback when GRACEFUL_* are unset.
const (
	envKeyKubeConfigFallback = "KUBECONFIG"
	envKeyKubeMasterFallback = "KUBERNETES_MASTER"
)
