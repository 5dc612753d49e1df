// Package metrics provides observability for the dispatch module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatch module's Prometheus metrics.
type Metrics struct {
	// Leg results by leg ("evidence", "case") and result
	// ("ok", "failed", "duplicate", "in_flight").
	LegResults *prometheus.CounterVec

	// Overall dispatch latency.
	DispatchLatency prometheus.Histogram
}

// New creates and registers all dispatch metrics.
func New() *Metrics {
	return &Metrics{
		LegResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cddflow_dispatch_leg_results_total",
			Help: "Dispatch leg results by leg and result",
		}, []string{"leg", "result"}),

		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cddflow_dispatch_duration_seconds",
			Help:    "Duration of full dispatch including channel calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncLegResult records one leg result.
func (m *Metrics) IncLegResult(leg, result string) {
	if m != nil {
		m.LegResults.WithLabelValues(leg, result).Inc()
	}
}

// ObserveDispatchLatency records the total dispatch duration.
func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	if m != nil {
		m.DispatchLatency.Observe(d.Seconds())
	}
}
