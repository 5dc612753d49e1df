// Package metrics provides observability for the review module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the review module's Prometheus metrics.
type Metrics struct {
	// Completed reviews by effective decision and risk level.
	ReviewOutcomes *prometheus.CounterVec

	// Reviews rejected before dispatch, by error code.
	ReviewFailures *prometheus.CounterVec

	// Full review latency including dispatch.
	ReviewLatency prometheus.Histogram
}

// New creates and registers all review metrics.
func New() *Metrics {
	return &Metrics{
		ReviewOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cddflow_review_outcomes_total",
			Help: "Completed reviews by effective decision and risk level",
		}, []string{"decision", "risk_level"}),

		ReviewFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cddflow_review_failures_total",
			Help: "Reviews rejected before dispatch by error code",
		}, []string{"code"}),

		ReviewLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cddflow_review_duration_seconds",
			Help:    "Duration of full review evaluation including dispatch",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncOutcome records a completed review.
func (m *Metrics) IncOutcome(decision, riskLevel string) {
	if m != nil {
		m.ReviewOutcomes.WithLabelValues(decision, riskLevel).Inc()
	}
}

// IncFailure records a rejected review.
func (m *Metrics) IncFailure(code string) {
	if m != nil {
		m.ReviewFailures.WithLabelValues(code).Inc()
	}
}

// ObserveLatency records the total review duration.
func (m *Metrics) ObserveLatency(d time.Duration) {
	if m != nil {
		m.ReviewLatency.Observe(d.Seconds())
	}
}
