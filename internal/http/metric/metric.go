package metric

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	InflightRequests prometheus.Gauge
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers the HTTP metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the HTTP metrics on reg. Collectors that are
// already registered are reused, so several servers in one process share them.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		InflightRequests: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stockroom",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Number of HTTP requests being served.",
		})),
		RequestsTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockroom",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"})),
		RequestDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stockroom",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
