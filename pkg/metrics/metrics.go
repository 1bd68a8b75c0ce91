// Package metrics provides optional Prometheus instrumentation for the
// shared HTTP client. A nil *Collector disables all recording.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records per-router request counts and latencies.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer for the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "routingpy_requests_total",
				Help: "Number of requests issued to routing services.",
			},
			[]string{"router", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "routingpy_request_duration_seconds",
				Help:    "Latency of requests to routing services.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"router"},
		),
	}
	reg.MustRegister(c.requests, c.duration)
	return c
}

// Observe records one completed request. statusCode 0 means the request
// failed before a response was received.
func (c *Collector) Observe(router string, statusCode int, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	c.requests.WithLabelValues(router, status).Inc()
	c.duration.WithLabelValues(router).Observe(elapsed.Seconds())
}
