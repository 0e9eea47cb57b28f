package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "quakeingest/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	b, _ := io.ReadAll(rec.Body)
	return rec.Code, string(b)
}

func TestOps_HealthReadyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "quakeingest_test_total", Help: "t"})
	reg.MustRegister(c)
	c.Inc()

	var readyErr error
	srv := phttp.NewServer("127.0.0.1:0", phttp.Ops(func(context.Context) error { return readyErr }, reg))
	h := srv.Handler()

	code, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"healthy"}`, body)

	code, body = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ready"}`, body)

	readyErr = errors.New("pg: connection refused")
	code, body = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.JSONEq(t, `{"status":"not ready","error":"pg: connection refused"}`, body)

	code, body = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "quakeingest_test_total 1")
}

func TestServer_RecoversPanics(t *testing.T) {
	srv := phttp.NewServer("127.0.0.1:0", func(m *chi.Mux) {
		m.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	})
	code, _ := get(t, srv.Handler(), "/boom")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}

func TestServer_RunStopsOnContextCancel(t *testing.T) {
	srv := phttp.NewServer("127.0.0.1:0", phttp.Ops(nil, prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
