package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopTransformHooks{}
	p.OnTransformStart(ctx, "refine", 4)
	p.OnPassComplete(ctx, "refine", 1, 6, 2, time.Millisecond)
	p.OnTransformComplete(ctx, "refine", 2, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "refine")
	c.OnCacheMiss(ctx, "refine")
	c.OnCacheSet(ctx, "artifact", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "/v1/refine")
	h.OnResponse(ctx, "POST", "/v1/refine", 200, 512, time.Second)
	h.OnError(ctx, "POST", "/v1/refine", "INVALID_INPUT")
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Transform().(NoopTransformHooks); !ok {
		t.Error("Transform() should return NoopTransformHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customTransform := &testTransformHooks{}
	SetTransformHooks(customTransform)
	if Transform() != customTransform {
		t.Error("SetTransformHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Transform().(NoopTransformHooks); !ok {
		t.Error("Reset() should restore NoopTransformHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := &testTransformHooks{}
	SetTransformHooks(custom)
	SetTransformHooks(nil)
	if Transform() != custom {
		t.Error("SetTransformHooks(nil) should be ignored")
	}
}

type testTransformHooks struct{ NoopTransformHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
