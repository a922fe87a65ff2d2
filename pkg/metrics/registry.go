// Package metrics exports Prometheus metrics for transformations, cache
// lookups and the HTTP API.
//
// A [Registry] implements every hook interface of
// [github.com/matzehuels/flowgraph/pkg/observability], so wiring it up is a
// matter of registering it at startup and serving [Registry.Handler]:
//
//	reg := metrics.DefaultRegistry()
//	observability.SetTransformHooks(reg)
//	observability.SetCacheHooks(reg)
//	observability.SetHTTPHooks(reg)
//	router.Handle("/metrics", reg.Handler())
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flowgraph"

// Registry holds all collectors.
type Registry struct {
	// Transform metrics
	TransformsTotal    *prometheus.CounterVec
	TransformDuration  *prometheus.HistogramVec
	TransformPasses    *prometheus.HistogramVec
	NodesRefinedTotal  *prometheus.CounterVec
	TransformsInFlight *prometheus.GaugeVec

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec
	CacheWriteBytes   *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPResponseSize     *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPErrorsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all collectors initialized, plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initTransformMetrics()
	r.initCacheMetrics()
	r.initHTTPMetrics()
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
