package listener

import "errors"

var (
	// ErrNoServerHandle is returned when no recognizable server handle was supplied
	ErrNoServerHandle = errors.New("no server instance found, cannot set up graceful shutdown")

	// ErrStopFailed wraps an error returned by the underlying stop operation
	ErrStopFailed = errors.New("listener stop failed")

	// ErrStopTimeout is returned when the drain timeout elapsed and closure was forced
	ErrStopTimeout = errors.New("listener drain timed out")
)
