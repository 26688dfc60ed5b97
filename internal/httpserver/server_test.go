package httpserver_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/skillcoder/graceful-coordinator/internal/httpserver"
	"github.com/skillcoder/graceful-coordinator/internal/infra/shutdown"
)

func startServer(t *testing.T, routerKind string) *httpserver.Server {
	t.Helper()

	srv, err := httpserver.New(slog.Default(), "0", routerKind)
	require.NoError(t, err)

	srv.RegisterRoutes(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"state":"serving"}`))
	})

	require.NoError(t, srv.Start(t.Context()))

	t.Cleanup(func() {
		_ = srv.Close()
	})

	return srv
}

func get(t *testing.T, srv *httpserver.Server, path string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, baseURL(srv.Addr())+path, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty router defaults to chi", func(t *testing.T) {
		t.Parallel()

		srv, err := httpserver.New(slog.Default(), "", "")
		require.NoError(t, err)
		require.Equal(t, "http-server", srv.Name())
		require.NotNil(t, srv.Router())
		require.Nil(t, srv.Addr())
	})

	t.Run("unknown router", func(t *testing.T) {
		t.Parallel()

		_, err := httpserver.New(slog.Default(), "", "echo")
		require.ErrorIs(t, err, httpserver.ErrUnknownRouter)
	})
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	for _, routerKind := range []string{httpserver.RouterChi, httpserver.RouterGorilla} {
		t.Run(routerKind, func(t *testing.T) {
			t.Parallel()

			srv := startServer(t, routerKind)

			code, body := get(t, srv, "/")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"message":"hello"}`, body)

			code, body = get(t, srv, "/slow?delay=10ms")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"message":"done","delay":"10ms"}`, body)

			code, _ = get(t, srv, "/slow?delay=forever")
			require.Equal(t, http.StatusBadRequest, code)

			code, body = get(t, srv, "/-/status")
			require.Equal(t, http.StatusOK, code)
			require.JSONEq(t, `{"state":"serving"}`, body)
		})
	}
}

func TestServer_Ping(t *testing.T) {
	t.Parallel()

	srv, err := httpserver.New(slog.Default(), "0", httpserver.RouterChi)
	require.NoError(t, err)

	require.ErrorIs(t, srv.Ping(t.Context()), httpserver.ErrNotReady)

	require.NoError(t, srv.Start(t.Context()))

	t.Cleanup(func() {
		_ = srv.Close()
	})

	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatal("server did not become ready")
	}

	require.NoError(t, srv.Ping(t.Context()))
}

func TestServer_ShutdownDrainsInFlight(t *testing.T) {
	t.Parallel()

	srv := startServer(t, httpserver.RouterChi)

	type result struct {
		code int
		body string
	}

	done := make(chan result, 1)

	go func() {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet,
			baseURL(srv.Addr())+"/slow?delay=200ms", nil)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			done <- result{}

			return
		}

		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		done <- result{code: resp.StatusCode, body: string(body)}
	}()

	// let the slow request reach the handler
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	require.NoError(t, srv.Shutdown(ctx))

	got := <-done
	require.Equal(t, http.StatusOK, got.code)
	require.JSONEq(t, `{"message":"done","delay":"200ms"}`, got.body)

	// second call is a no-op
	require.NoError(t, srv.Shutdown(ctx))
}

func baseURL(addr net.Addr) string {
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.(*net.TCPAddr).Port))
}

func TestServer_Tracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	srv, err := httpserver.New(slog.Default(), "0", httpserver.RouterChi,
		httpserver.WithTracerProvider(tp),
		httpserver.WithUntracedPaths("/-/status"),
	)
	require.NoError(t, err)

	srv.RegisterRoutes(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	require.NoError(t, srv.Start(t.Context()))

	t.Cleanup(func() {
		_ = srv.Close()
	})

	code, _ := get(t, srv, "/")
	require.Equal(t, http.StatusOK, code)

	code, _ = get(t, srv, "/-/status")
	require.Equal(t, http.StatusOK, code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	require.Equal(t, []string{"GET /"}, names)
}

func TestServer_SlowDefaultDrainsInTime(t *testing.T) {
	t.Parallel()

	srv := startServer(t, httpserver.RouterChi)

	code, body := get(t, srv, "/slow")
	require.Equal(t, http.StatusOK, code)

	var resp struct {
		Delay string `json:"delay"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	delay, err := time.ParseDuration(resp.Delay)
	require.NoError(t, err)
	require.Less(t, delay, shutdown.DefaultTimeout)
}
