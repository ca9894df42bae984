package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes.
const (
	outcomeOK     = "ok"
	outcomeEmpty  = "empty"
	outcomeError  = "error"
	outcomeCached = "cached"
)

type metricsProvider struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func newMetricsProvider(registry prometheus.Registerer) *metricsProvider {
	if registry == nil {
		return nil
	}

	provider := &metricsProvider{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clearsight_gateway_requests_total",
				Help: "Total number of AI gateway requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clearsight_gateway_request_duration_seconds",
				Help:    "Backend latency of AI gateway requests by operation",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"operation"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clearsight_gateway_retries_total",
				Help: "Total number of retried backend calls by operation",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		provider.requests,
		provider.latency,
		provider.retries,
	)

	return provider
}

func (p *metricsProvider) observe(operation, outcome string, start time.Time) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(operation, outcome).Inc()
	if outcome != outcomeCached {
		p.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (p *metricsProvider) retried(operation string) {
	if p != nil {
		p.retries.WithLabelValues(operation).Inc()
	}
}
