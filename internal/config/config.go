package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skillcoder/graceful-coordinator/internal/httpserver"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
	"github.com/skillcoder/graceful-coordinator/internal/infra/watchdog"
)

type Config struct {
	LogLevel    string
	LogFormat   string
	HTTPPort    string
	MetricsPort string
	Router      string

	Signals                         []os.Signal
	DrainTimeout                    time.Duration
	ServiceUnavailableWhileStopping bool
	HealthPaths                     []string
	ReadyPath                       string
	PingerInterval                  time.Duration

	RestartSchedule string
	RestartTZ       string

	KubeConfig      string
	KubeMaster      string
	PodName         string
	PodNamespace    string
	DeregisterLabel string

	// MemoryThreshold is nil when the memory watchdog is disabled
	MemoryThreshold     *watchdog.Threshold
	MemoryCheckInterval time.Duration

	OTLPEndpoint string
	OTLPInsecure bool
	TraceSample  float64
}

func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:       getEnvOrDefault(envKeyLogFormat, "json"),
		HTTPPort:        getEnvOrDefault(envKeyHTTPPort, "8080"),
		MetricsPort:     getEnvOrDefault(envKeyMetricsPort, "9090"),
		Router:          strings.ToLower(getEnvOrDefault(envKeyRouter, httpserver.RouterChi)),
		HealthPaths:     splitList(getEnvOrDefault(envKeyHealthPaths, "/health")),
		ReadyPath:       getEnvOrDefault(envKeyReadyPath, "/-/ready"),
		RestartSchedule: os.Getenv(envKeyRestartSchedule),
		RestartTZ:       os.Getenv(envKeyRestartTZ),
		KubeConfig:      getEnvOrFallback(envKeyKubeConfig, envKeyKubeConfigFallback),
		KubeMaster:      getEnvOrFallback(envKeyKubeMaster, envKeyKubeMasterFallback),
		PodName:         os.Getenv(envKeyPodName),
		PodNamespace:    os.Getenv(envKeyPodNamespace),
		DeregisterLabel: os.Getenv(envKeyDeregisterLabel),
		OTLPEndpoint:    os.Getenv(envKeyOTLPEndpoint),
	}

	if cfg.Router != httpserver.RouterChi && cfg.Router != httpserver.RouterGorilla {
		return nil, fmt.Errorf("parse %s: %w: %q", envKeyRouter, ErrInvalidValue, cfg.Router)
	}

	signals, err := shutdown.ParseSignals(splitList(getEnvOrDefault(envKeySignals, "SIGINT,SIGTERM")))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeySignals, err)
	}

	cfg.Signals = signals

	cfg.DrainTimeout, err = parseDuration(envKeyDrainTimeout, "1s", envMinDrainTimeout)
	if err != nil {
		return nil, err
	}

	cfg.ServiceUnavailableWhileStopping, err = strconv.ParseBool(
		getEnvOrDefault(envKeyServiceUnavailableWhileStopping, "true"),
	)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeyServiceUnavailableWhileStopping, err)
	}

	cfg.PingerInterval, err = parseDuration(envKeyPingerInterval, "10s", envMinPingerInterval)
	if err != nil {
		return nil, err
	}

	cfg.MemoryCheckInterval, err = parseDuration(envKeyMemoryCheckInterval, "15s", envMinMemoryCheckInterval)
	if err != nil {
		return nil, err
	}

	cfg.OTLPInsecure, err = strconv.ParseBool(getEnvOrDefault(envKeyOTLPInsecure, "false"))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeyOTLPInsecure, err)
	}

	cfg.TraceSample, err = strconv.ParseFloat(getEnvOrDefault(envKeyTraceSample, "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", envKeyTraceSample, err)
	}

	if cfg.TraceSample < 0 || cfg.TraceSample > 1 {
		return nil, fmt.Errorf("parse %s: %w: %v is outside [0, 1]", envKeyTraceSample, ErrInvalidValue, cfg.TraceSample)
	}

	if raw := os.Getenv(envKeyMemoryThreshold); raw != "" {
		threshold, err := watchdog.ParseThreshold(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", envKeyMemoryThreshold, err)
		}

		cfg.MemoryThreshold = &threshold
	}

	if (cfg.DeregisterLabel != "" || cfg.MemoryThreshold != nil) && !cfg.InCluster() {
		return nil, fmt.Errorf("%w: %s and %s are required for %s and %s",
			ErrInvalidValue, envKeyPodName, envKeyPodNamespace, envKeyDeregisterLabel, envKeyMemoryThreshold)
	}

	return cfg, nil
}

// InCluster reports whether the pod identity is known.
func (c *Config) InCluster() bool {
	return c.PodName != "" && c.PodNamespace != ""
}

// ShutdownOptions maps the config onto shutdown options; health paths get the default check.
func (c *Config) ShutdownOptions() shutdown.Options {
	checks := make(map[string]http.HandlerFunc, len(c.HealthPaths))
	for _, path := range c.HealthPaths {
		checks[path] = nil
	}

	return shutdown.Options{
		Signals:                         c.Signals,
		Timeout:                         c.DrainTimeout,
		ServiceUnavailableWhileStopping: shutdown.Bool(c.ServiceUnavailableWhileStopping),
		HealthChecks:                    checks,
	}
}

func parseDuration(key, defaultValue string, minValue time.Duration) (time.Duration, error) {
	value, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minValue {
		return 0, fmt.Errorf("parse %s: %w: %s is below minimum %s", key, ErrInvalidValue, value, minValue)
	}

	return value, nil
}

func splitList(value string) []string {
	var out []string

	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func getEnvOrFallback(key, fallbackKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return os.Getenv(fallbackKey)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}
