package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// bind listens on port and builds a server for handler; nothing is served until serve.
func bind(ctx context.Context, port string, handler http.Handler) (*http.Server, net.Listener, error) {
	ln, err := listen(ctx, ":"+port)
	if err != nil {
		return nil, nil, err
	}

	return newHTTPServer(ln.Addr().String(), handler), ln, nil
}

// serve blocks until srv is shut down or closed.
func serve(ctx context.Context, logger *slog.Logger, srv *http.Server, ln net.Listener) {
	logger.InfoContext(ctx, "listening", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "serve failed", "reason", err)
	}
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}

func listen(ctx context.Context, addr string) (net.Listener, error) {
	lc := &net.ListenConfig{
		KeepAliveConfig: net.KeepAliveConfig{
			Enable: true,
		},
	}

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}

	return ln, nil
}
