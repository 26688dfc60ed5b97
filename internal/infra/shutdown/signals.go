package shutdown

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var signalsByName = map[string]syscall.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGQUIT": syscall.SIGQUIT,
	"SIGTERM": syscall.SIGTERM,
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
}

// DefaultSignals are intercepted when no signals are configured
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// Notify returns a channel that will receive the given signals (SIGINT and SIGTERM when empty).
// This should be called as the first thing in main() before any other initialization.
func Notify(signals ...os.Signal) chan os.Signal {
	if len(signals) == 0 {
		signals = DefaultSignals()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	return ch
}

// ParseSignals resolves names like "SIGTERM" or "term" into signals.
func ParseSignals(names []string) ([]os.Signal, error) {
	out := make([]os.Signal, 0, len(names))
	seen := make(map[syscall.Signal]struct{}, len(names))

	for _, name := range names {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			continue
		}

		if !strings.HasPrefix(key, "SIG") {
			key = "SIG" + key
		}

		sig, ok := signalsByName[key]
		if !ok {
			return nil, fmt.Errorf("parse signal %q: %w", name, ErrUnknownSignal)
		}

		if _, dup := seen[sig]; dup {
			continue
		}

		seen[sig] = struct{}{}
		out = append(out, sig)
	}

	return out, nil
}

// SignalName returns the conventional name ("SIGTERM") of sig.
func SignalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		for name, known := range signalsByName {
			if known == s {
				return name
			}
		}
	}

	return sig.String()
}
