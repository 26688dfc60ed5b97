package listener

import "time"

// DefaultDrainTimeout bounds how long Stop waits for connections to go idle.
const DefaultDrainTimeout = 1000 * time.Millisecond

const (
	readTimeout       = 3 * time.Second
	readHeaderTimeout = 3 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 12 // 4kb
)
