// Package metrics holds the Prometheus collectors for the backfill run
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quakeingest"

// Window outcomes
const (
	WindowOK      = "ok"
	WindowSkipped = "skipped" // upstream answered non-200
	WindowFailed  = "failed"  // transport or commit failure
)

// Backfill holds the counters, histograms and gauges for an ingestion run
type Backfill struct {
	Windows        *prometheus.CounterVec // labels: outcome={ok,skipped,failed}
	Features       *prometheus.CounterVec // labels: outcome={ingested,duplicate,skipped,failed}
	Dropped        prometheus.Counter
	WindowDuration prometheus.Histogram
	WindowRows     prometheus.Histogram
	Running        prometheus.Gauge
}

func newBackfill() *Backfill {
	return &Backfill{
		Windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Date windows processed by outcome.",
		}, []string{"outcome"}),
		Features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_total",
			Help:      "Event features handled by outcome.",
		}, []string{"outcome"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_dropped_total",
			Help:      "Response lines that could not be decoded and were skipped.",
		}),
		WindowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_duration_seconds",
			Help:      "Wall time to fetch, decode and commit one window.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		WindowRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "window_rows",
			Help:      "Features seen per window.",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		Running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backfill_running",
			Help:      "1 while a backfill run is active, 0 otherwise.",
		}),
	}
}

// New creates the backfill collectors and registers them with reg
func New(reg prometheus.Registerer) *Backfill {
	m := newBackfill()
	reg.MustRegister(
		m.Windows,
		m.Features,
		m.Dropped,
		m.WindowDuration,
		m.WindowRows,
		m.Running,
	)
	return m
}

// NewForTesting creates collectors on a fresh registry to avoid
// "already registered" panics when called from multiple tests
func NewForTesting() *Backfill {
	return New(prometheus.NewRegistry())
}

// Window records one finished window
func (m *Backfill) Window(outcome string, seconds float64, rows int) {
	if m == nil {
		return
	}
	m.Windows.WithLabelValues(outcome).Inc()
	m.WindowDuration.Observe(seconds)
	if outcome == WindowOK {
		m.WindowRows.Observe(float64(rows))
	}
}

// Feature counts one feature outcome
func (m *Backfill) Feature(outcome string) {
	if m == nil {
		return
	}
	m.Features.WithLabelValues(outcome).Inc()
}

// Drop counts one undecodable fragment
func (m *Backfill) Drop() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

// SetRunning flips the running gauge
func (m *Backfill) SetRunning(on bool) {
	if m == nil {
		return
	}
	if on {
		m.Running.Set(1)
		return
	}
	m.Running.Set(0)
}
