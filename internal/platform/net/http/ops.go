package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessFunc reports whether dependencies are reachable
type ReadinessFunc func(ctx context.Context) error

// Ops mounts /healthz, /readyz and /metrics. A nil gatherer serves the
// default Prometheus registry
func Ops(ready ReadinessFunc, g prometheus.Gatherer) func(*chi.Mux) {
	h := promhttp.Handler()
	if g != nil {
		h = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return func(m *chi.Mux) {
		m.Get("/healthz", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "healthy"})
		})
		m.Get("/readyz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if ready != nil {
				if err := ready(ctx); err != nil {
					writeJSON(w, stdhttp.StatusServiceUnavailable, map[string]string{
						"status": "not ready",
						"error":  err.Error(),
					})
					return
				}
			}
			writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ready"})
		})
		m.Method(stdhttp.MethodGet, "/metrics", h)
	}
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
