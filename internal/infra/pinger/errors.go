package pinger

import "errors"

var (
	// ErrPingerAlreadyRegistered is returned when attempting to register a pinger that already exists
	ErrPingerAlreadyRegistered = errors.New("pinger already registered")

	// ErrNotReady is returned by Check before the first round of pings completed
	ErrNotReady = errors.New("pingers have not run yet")

	// ErrStopped is returned by Check once the service was shut down
	ErrStopped = errors.New("pinger service stopped")
)
