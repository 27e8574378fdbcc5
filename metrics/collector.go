// Package metrics exposes prometheus counters for the proxy. Labels carry
// only outcome classes, never request targets or origins.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for proxied requests.
const (
	OutcomeProxied       = "proxied"
	OutcomeRejected      = "rejected"
	OutcomeRateLimited   = "rate_limited"
	OutcomeUpstreamError = "upstream_error"
	OutcomeTimeout       = "timeout"
	OutcomeOverflow      = "size_overflow"
	OutcomeAborted       = "aborted"
)

// Collector holds the proxy's prometheus instruments.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	bytesRelayed    prometheus.Counter
	requestDuration prometheus.Histogram
}

// NewCollector creates the instruments and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cors_proxy",
			Name:      "requests_total",
			Help:      "Proxy requests by outcome.",
		}, []string{"outcome"}),
		bytesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cors_proxy",
			Name:      "relayed_bytes_total",
			Help:      "Total response bytes relayed to clients.",
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cors_proxy",
			Name:      "request_duration_seconds",
			Help:      "End-to-end proxy request duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.requestsTotal, c.bytesRelayed, c.requestDuration)
	return c
}

// RecordOutcome increments the request counter for one outcome class.
func (c *Collector) RecordOutcome(outcome string) {
	c.requestsTotal.WithLabelValues(outcome).Inc()
}

// RecordBytes adds n relayed body bytes.
func (c *Collector) RecordBytes(n int64) {
	if n > 0 {
		c.bytesRelayed.Add(float64(n))
	}
}

// ObserveDuration records one request duration in seconds.
func (c *Collector) ObserveDuration(seconds float64) {
	c.requestDuration.Observe(seconds)
}
