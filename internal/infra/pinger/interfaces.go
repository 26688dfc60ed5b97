package pinger

import (
	"context"
	"time"
)

// Pinger is a dependency probed for readiness
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// readyCriticalPinger opts a pinger out of gating readiness when it returns false.
type readyCriticalPinger interface {
	PingerReadyCritical() bool
}

// timeoutPinger overrides the per-ping timeout.
type timeoutPinger interface {
	PingerTimeout() time.Duration
}
