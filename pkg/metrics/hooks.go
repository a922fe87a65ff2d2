package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/matzehuels/flowgraph/pkg/observability"
)

var (
	_ observability.TransformHooks = (*Registry)(nil)
	_ observability.CacheHooks     = (*Registry)(nil)
	_ observability.HTTPHooks      = (*Registry)(nil)
)

func (r *Registry) OnTransformStart(_ context.Context, op string, _ int) {
	r.TransformsInFlight.WithLabelValues(op).Inc()
}

func (r *Registry) OnPassComplete(_ context.Context, op string, _, _, refined int, _ time.Duration) {
	r.NodesRefinedTotal.WithLabelValues(op).Add(float64(refined))
}

func (r *Registry) OnTransformComplete(_ context.Context, op string, passes int, d time.Duration, err error) {
	r.TransformsInFlight.WithLabelValues(op).Dec()
	r.TransformsTotal.WithLabelValues(op, status(err)).Inc()
	r.TransformDuration.WithLabelValues(op).Observe(d.Seconds())
	r.TransformPasses.WithLabelValues(op).Observe(float64(passes))
}

func (r *Registry) OnCacheHit(_ context.Context, keyType string) {
	r.CacheLookupsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (r *Registry) OnCacheMiss(_ context.Context, keyType string) {
	r.CacheLookupsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (r *Registry) OnCacheSet(_ context.Context, keyType string, size int) {
	r.CacheWriteBytes.WithLabelValues(keyType).Observe(float64(size))
}

func (r *Registry) OnRequest(context.Context, string, string) {
	r.HTTPRequestsInFlight.Inc()
}

func (r *Registry) OnResponse(_ context.Context, method, route string, statusCode, size int, d time.Duration) {
	r.HTTPRequestsInFlight.Dec()
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	r.HTTPResponseSize.WithLabelValues(method, route).Observe(float64(size))
}

func (r *Registry) OnError(_ context.Context, _, route, code string) {
	r.HTTPErrorsTotal.WithLabelValues(route, code).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
