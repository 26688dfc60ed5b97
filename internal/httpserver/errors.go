package httpserver

import "errors"

var (
	// ErrUnknownRouter is returned for a router name other than chi or gorilla
	ErrUnknownRouter = errors.New("unknown router")

	// ErrNotReady is returned by Ping before the listener is bound
	ErrNotReady = errors.New("server is not ready")
)
