package httpserver

import "time"

const (
	defaultPort        = "8080"
	defaultMetricsPort = "9090"

	readTimeout       = 3 * time.Second
	readHeaderTimeout = 3 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 12 // 4kb

	// maxSlowDelay caps the delay accepted by the slow endpoint
	maxSlowDelay     = 30 * time.Second
	// defaultSlowDelay stays below the default drain timeout
	defaultSlowDelay = 500 * time.Millisecond
)

// Supported routers, also the values of the router setting
const (
	RouterChi     = "chi"
	RouterGorilla = "gorilla"
)
