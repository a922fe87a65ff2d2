// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional and the packages that emit events do not
// depend on any backend. Consumers register hooks at startup to receive
// events about model transformations, cache lookups and served requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Hook interfaces per event category
//   - No-op default implementations
//   - A global registry written once by main
//
// [github.com/matzehuels/flowgraph/pkg/metrics] implements every interface
// with Prometheus collectors.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    reg := metrics.DefaultRegistry()
//	    observability.SetTransformHooks(reg)
//	    observability.SetCacheHooks(reg)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Transform().OnTransformStart(ctx, "refine", m.Size())
//	// ... refine ...
//	observability.Transform().OnTransformComplete(ctx, "refine", passes, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Transform Hooks
// =============================================================================

// TransformHooks receives events from model transformations.
type TransformHooks interface {
	// OnTransformStart is called before the first pass of an operation.
	OnTransformStart(ctx context.Context, op string, nodeCount int)

	// OnPassComplete is called after every pass. refined is the number of
	// nodes lowered in the pass.
	OnPassComplete(ctx context.Context, op string, pass, nodeCount, refined int, duration time.Duration)

	// OnTransformComplete is called once the operation returns.
	OnTransformComplete(ctx context.Context, op string, passes int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnRequest records an incoming request. route is the matched pattern.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a finished response.
	OnResponse(ctx context.Context, method, route string, statusCode, size int, duration time.Duration)

	// OnError records a request that failed with an error code.
	OnError(ctx context.Context, method, route, code string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTransformHooks is a no-op implementation of TransformHooks.
type NoopTransformHooks struct{}

func (NoopTransformHooks) OnTransformStart(context.Context, string, int) {}
func (NoopTransformHooks) OnPassComplete(context.Context, string, int, int, int, time.Duration) {
}
func (NoopTransformHooks) OnTransformComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                           {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string)                     {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	transformHooks TransformHooks = NoopTransformHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	httpHooks      HTTPHooks      = NoopHTTPHooks{}
	hooksMu        sync.RWMutex
)

// SetTransformHooks registers custom transform hooks. A nil h is ignored.
func SetTransformHooks(h TransformHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		transformHooks = h
	}
}

// SetCacheHooks registers custom cache hooks. A nil h is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks. A nil h is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Transform returns the registered transform hooks.
func Transform() TransformHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return transformHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	transformHooks = NoopTransformHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
