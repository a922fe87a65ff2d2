package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTransformMetrics() {
	f := promauto.With(r.registry)

	r.TransformsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Model transformations by operation and status",
		},
		[]string{"op", "status"},
	)

	r.TransformDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Model transformation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	r.TransformPasses = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_passes",
			Help:      "Passes per model transformation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"op"},
	)

	r.NodesRefinedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_refined_total",
			Help:      "Nodes lowered by refinement passes",
		},
		[]string{"op"},
	)

	r.TransformsInFlight = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transforms_in_flight",
			Help:      "Model transformations currently running",
		},
		[]string{"op"},
	)
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)

	r.CacheLookupsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by key type and result",
		},
		[]string{"key_type", "result"},
	)

	r.CacheWriteBytes = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_write_bytes",
			Help:      "Size of cache entries written",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"key_type"},
	)
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	r.HTTPResponseSize = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "route"},
	)

	r.HTTPRequestsInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	r.HTTPErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Failed HTTP requests by error code",
		},
		[]string{"route", "code"},
	)
}
