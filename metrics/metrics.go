// Package metrics provides Prometheus collectors for routed calls, frame
// latency and settlement activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcome labels.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusReadOnly = "read_only"
)

// Metrics holds the marketplace collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	calls         *prometheus.CounterVec
	frameDuration *prometheus.HistogramVec
	cuts          prometheus.Counter
	settlements   *prometheus.CounterVec
	feePayouts    *prometheus.CounterVec
	commitFailure prometheus.Counter
}

// New creates collectors under namespace ("market" when empty).
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "market"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "calls_total",
			Help:      "Total number of routed calls by selector and outcome",
		},
		[]string{"selector", "status"},
	)

	m.frameDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "frame_duration_seconds",
			Help:      "Time spent executing and committing one top-level call",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100us to ~1.6s
		},
		[]string{"status"},
	)

	m.cuts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "cuts_total",
			Help:      "Total number of applied diamond cuts",
		},
	)

	m.commitFailure = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "commit_failures_total",
			Help:      "Total number of frames whose store commit failed",
		},
	)

	m.settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "total",
			Help:      "Total number of settled exchanges by entry kind",
		},
		[]string{"kind"},
	)

	m.feePayouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "fee_payouts_total",
			Help:      "Total number of fee beneficiary payouts by payment token",
		},
		[]string{"token"},
	)

	m.registry.MustRegister(
		m.calls,
		m.frameDuration,
		m.cuts,
		m.commitFailure,
		m.settlements,
		m.feePayouts,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records a top-level call and its frame duration.
func (m *Metrics) ObserveCall(selector, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(selector, status).Inc()
	m.frameDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveCut records an applied diamond cut.
func (m *Metrics) ObserveCut() {
	if m == nil {
		return
	}
	m.cuts.Inc()
}

// ObserveCommitFailure records a store commit failure.
func (m *Metrics) ObserveCommitFailure() {
	if m == nil {
		return
	}
	m.commitFailure.Inc()
}

// ObserveSettlement records one settled exchange of the given entry kind.
func (m *Metrics) ObserveSettlement(kind string, payouts int, token string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(kind).Inc()
	if payouts > 0 {
		m.feePayouts.WithLabelValues(token).Add(float64(payouts))
	}
}
