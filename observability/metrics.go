package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	accerrors "nearaccount/core/errors"
)

type providerMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttled *prometheus.HistogramVec
}

var (
	providerMetricsOnce sync.Once
	providerRegistry    *providerMetrics
)

// ProviderMetrics returns the lazily-initialised registry used to record
// JSON-RPC provider activity.
func ProviderMetrics() *providerMetrics {
	providerMetricsOnce.Do(func() {
		providerRegistry = &providerMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nearaccount",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total JSON-RPC provider calls segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nearaccount",
				Subsystem: "provider",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC provider calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttled: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nearaccount",
				Subsystem: "provider",
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent waiting on the client-side rate limiter.",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			providerRegistry.requests,
			providerRegistry.latency,
			providerRegistry.throttled,
		)
	})
	return providerRegistry
}

// Outcome classifies an error into a stable label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, accerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, accerrors.ErrArithmetic):
		return "arithmetic"
	default:
		return "error"
	}
}

// Observe records a completed provider call.
func (m *providerMetrics) Observe(method string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method, Outcome(err)).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle records time spent blocked on the rate limiter.
func (m *providerMetrics) RecordThrottle(method string, waited time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.throttled.WithLabelValues(method).Observe(waited.Seconds())
}
