package shutdown

import "errors"

var (
	// ErrHookFailed is returned when a lifecycle hook fails or panics
	ErrHookFailed = errors.New("shutdown hook failed")

	// ErrListenerStop is returned when the listener adapter fails to stop
	ErrListenerStop = errors.New("listener stop failed")

	// ErrUnknownSignal is returned when a configured signal name is not recognized
	ErrUnknownSignal = errors.New("unknown signal")

	// ErrMissingDependency is returned when New is called without a state or stopper
	ErrMissingDependency = errors.New("missing dependency")
)
