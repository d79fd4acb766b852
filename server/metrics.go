package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/taxa/errors"
)

// unknownMethodLabel stands in for method names that did not resolve, so
// arbitrary client input never becomes a label value.
const unknownMethodLabel = "unknown"

// metrics holds the gateway collectors. Each server owns its registry.
type metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	namespaces prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxa",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC requests by operation and outcome kind.",
		}, []string{"method", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxa",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "RPC request latency by operation.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method"}),
		namespaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxa",
			Name:      "registered_namespaces",
			Help:      "Number of namespaces served.",
		}),
	}
}

// observe records one request. An empty kind means success.
func (m *metrics) observe(method string, kind errors.Kind, elapsed time.Duration) {
	outcome := string(kind)
	if outcome == "" {
		outcome = "ok"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
