package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/cache"
	"github.com/matzehuels/flowgraph/pkg/metrics"
	"github.com/matzehuels/flowgraph/pkg/observability"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
	"github.com/matzehuels/flowgraph/pkg/store"
)

const normDoc = `{
  "name": "norm",
  "nodes": [
    {"id": "x", "kind": "input", "attrs": {"type": "real", "size": 3}},
    {"id": "n", "kind": "l2norm", "inputs": [{"port": "input", "from": "x:output"}]},
    {"id": "out", "kind": "output", "inputs": [{"port": "input", "from": "n:output"}]}
  ]
}`

func newTestServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	logger := log.New(io.Discard)
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	reg := metrics.NewRegistry()
	observability.SetHTTPHooks(reg)
	t.Cleanup(observability.Reset)
	srv := New(Options{
		Runner:  pipeline.NewRunner(cache.NewMemoryCache(), nil, logger),
		Store:   st,
		Logger:  logger,
		Metrics: reg,
	})
	return srv, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Build.GoVersion)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	assert.Equal(t, "abcscriptdef", sanitizeRequestID("abc<script>def"))
	assert.Len(t, sanitizeRequestID(strings.Repeat("a", 100)), 64)
}

func TestKinds(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/v1/kinds", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var kinds []KindResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	byKind := make(map[string]KindResponse)
	for _, k := range kinds {
		byKind[k.Kind] = k
	}
	assert.True(t, byKind["l2norm"].Refinable)
	assert.False(t, byKind["l2norm"].Compilable)
	assert.True(t, byKind["sum"].Compilable)
}

func TestRefine(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"document": ` + normDoc + `, "options": {"formats": ["yaml", "dot"]}}`

	rec := do(t, srv, http.MethodPost, "/v1/refine", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "norm", resp.Name)
	assert.NotEmpty(t, resp.Hash)
	assert.NotEqual(t, resp.Hash, resp.SourceHash)
	assert.True(t, resp.Stats.Compilable)
	assert.False(t, resp.Cache.TransformHit)
	assert.Contains(t, resp.Artifacts["yaml"], "kind: unary")
	assert.Contains(t, resp.Artifacts["dot"], "digraph")

	rec = do(t, srv, http.MethodPost, "/v1/refine", body)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Cache.TransformHit)
	assert.True(t, resp.Cache.ArtifactHit)
}

func TestCompile(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/v1/compile", `{"document": `+normDoc+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Program, "func norm("), resp.Program)
}

func TestCompileUnrefined(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/v1/compile",
		`{"document": `+normDoc+`, "options": {"max_iterations": 1}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_IMPLEMENTED", resp.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestCopy(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/v1/copy", `{"document": `+normDoc+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransformResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Document.Nodes, 3)
	assert.False(t, resp.Stats.Compilable)
}

func TestTransformErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"document":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", `{"doc": {}}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty", `{}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"both", `{"document": ` + normDoc + `, "model": "norm"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing model", `{"model": "nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"bad format", `{"document": ` + normDoc + `, "options": {"formats": ["png"]}}`, http.StatusBadRequest, "INVALID_FORMAT"},
		{"unknown kind", `{"document": {"nodes": [{"id": "f", "kind": "fft"}]}}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/refine", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestModels(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/v1/models/norm", normDoc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/v1/models", "")
	assert.JSONEq(t, `{"models": ["norm"]}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/v1/models/norm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"l2norm"`)

	rec = do(t, srv, http.MethodPost, "/v1/refine", `{"model": "norm"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPut, "/v1/models/bad", `{"nodes": [{"id": "f", "kind": "fft"}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/v1/models/norm", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, "/v1/models/norm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoStore(t *testing.T) {
	srv := New(Options{
		Runner:  pipeline.NewRunner(nil, nil, log.New(io.Discard)),
		Logger:  log.New(io.Discard),
		Metrics: metrics.NewRegistry(),
	})
	rec := do(t, srv, http.MethodGet, "/v1/models", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/v1/refine", `{"document": `+normDoc+`}`)
	do(t, srv, http.MethodGet, "/v1/models/missing", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `flowgraph_http_requests_total{method="POST",route="/v1/refine",status="200"} 1`)
	assert.Contains(t, body, `flowgraph_http_errors_total{code="NOT_FOUND",route="/v1/models/{name}"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor("INVALID_STATE"))
	assert.Equal(t, http.StatusBadRequest, statusFor("INVALID_NAME"))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}

func TestBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	big := bytes.Repeat([]byte(" "), MaxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/v1/refine", bytes.NewReader(append(big, []byte(`{}`)...)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
