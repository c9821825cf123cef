// Package metrics exposes Prometheus collectors for generation and discovery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"webgen_server/internal/llm"
)

type Metrics struct {
	registry *prometheus.Registry

	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	Extractions        *prometheus.CounterVec
	Probes             *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Generations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgen_generations_total",
				Help: "Generation calls by provider and outcome status",
			},
			[]string{"provider", "status"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webgen_generation_duration_seconds",
				Help:    "Wall time of generation calls",
				Buckets: []float64{1, 5, 15, 30, 60, 90, 120, 150, 180},
			},
			[]string{"provider"},
		),
		Extractions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgen_extractions_total",
				Help: "File extraction results by tier",
			},
			[]string{"tier"},
		),
		Probes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgen_local_probes_total",
				Help: "Local endpoint probes by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webgen_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
	}
}

func (m *Metrics) ObserveGeneration(provider, status string, elapsed time.Duration) {
	m.Generations.WithLabelValues(provider, status).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveExtraction(tier string) {
	m.Extractions.WithLabelValues(tier).Inc()
}

// ObserveProbe matches the llm.Resolver OnProbe hook.
func (m *Metrics) ObserveProbe(ep llm.BackendEndpoint, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Probes.WithLabelValues(ep.DisplayName, result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, code int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
