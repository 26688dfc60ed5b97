package listener_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skillcoder/graceful-coordinator/internal/listener"
)

func TestCapture_StopWithoutListen(t *testing.T) {
	t.Parallel()

	c := listener.NewCapture(slog.Default())

	stopper, err := listener.New(slog.Default(), c, time.Second)
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() {
		done <- stopper.Stop(t.Context())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stop without a captured server must not block")
	}

	require.Nil(t, c.Addr())
}

func TestCapture_ListenAndServe(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	c := listener.NewCapture(logger)

	stopper, err := listener.New(logger, c, time.Second)
	require.NoError(t, err)

	served := make(chan error, 1)

	go func() {
		served <- c.ListenAndServe(t.Context(), "127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "hello")
		}))
	}()

	select {
	case <-c.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server was not captured")
	}

	resp, err := http.Get("http://" + c.Addr().String()) //nolint:noctx // test request
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "hello", string(body))

	require.NoError(t, stopper.Stop(t.Context()))

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not return after stop")
	}
}

func TestCapture_SecondListenFails(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	c := listener.NewCapture(logger)

	go func() {
		_ = c.ListenAndServe(t.Context(), "127.0.0.1:0", http.NotFoundHandler())
	}()

	<-c.Ready()

	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	err := c.ListenAndServe(t.Context(), "127.0.0.1:0", http.NotFoundHandler())
	require.Error(t, err)
}
