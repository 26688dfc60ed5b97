package shutdown

import "context"

// Shutdowner is the interface that components must implement for graceful shutdown
type Shutdowner interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// Stopper is the listener adapter port: stop accepting, drain, return.
type Stopper interface {
	Stop(ctx context.Context) error
}

// stateFlipper is the write side of the shared shutdown state
type stateFlipper interface {
	SetStopping(ctx context.Context) bool
}
