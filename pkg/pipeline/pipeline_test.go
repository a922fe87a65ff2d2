package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/cache"
	"github.com/matzehuels/flowgraph/pkg/config"
	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/observability"
)

func normDoc() *pkgio.Document {
	return &pkgio.Document{
		Name: "norm",
		Nodes: []pkgio.Node{
			{ID: "x", Kind: "input", Attrs: map[string]any{"type": "real", "size": 3}},
			{ID: "a", Kind: "affine", Attrs: map[string]any{"scale": []float64{1, 2, 3}, "bias": []float64{0, 1, 0}},
				Inputs: []pkgio.Input{{Port: "input", From: "x:output"}}},
			{ID: "n", Kind: "l2norm", Inputs: []pkgio.Input{{Port: "input", From: "a:output"}}},
			{ID: "out", Kind: "output", Inputs: []pkgio.Input{{Port: "input", From: "n:output"}}},
			{ID: "m", Kind: "mean", Inputs: []pkgio.Input{{Port: "input", From: "x:output"}}},
			{ID: "out2", Kind: "output", Inputs: []pkgio.Input{{Port: "input", From: "m:output"}}},
		},
	}
}

func newRunner() (*Runner, *cache.MemoryCache) {
	c := cache.NewMemoryCache()
	return NewRunner(c, nil, log.New(io.Discard)), c
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"toml", false},
		{"yaml", false},
		{"dot", false},
		{"svg", false},
		{"program", false},
		{"png", true},
		{"JSON", true}, // case-sensitive
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, OpRefine, o.Operation)
	assert.Equal(t, []string{"json"}, o.Formats)
	assert.Equal(t, config.DefaultMaxIterations, o.Iterations())
	assert.NotNil(t, o.Logger)

	o = Options{MaxIterations: 3, Formats: []string{"program"}}
	require.NoError(t, o.ValidateAndSetDefaults())
	assert.Equal(t, 3, o.Iterations())
	assert.True(t, o.Compile, "program artifacts imply compilation")
}

func TestOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"operation", Options{Operation: "inline"}},
		{"format", Options{Formats: []string{"png"}}},
		{"iterations", Options{MaxIterations: -1}},
		{"output ref", Options{Outputs: []string{"n.output"}}},
		{"config", Options{Config: &config.Config{MaxIterations: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.opts.ValidateAndSetDefaults())
		})
	}
}

func TestRefineKeyOpts(t *testing.T) {
	refine := Options{}
	copyOpts := Options{Operation: OpCopy}
	require.NoError(t, refine.ValidateAndSetDefaults())
	require.NoError(t, copyOpts.ValidateAndSetDefaults())

	k := cache.NewDefaultKeyer()
	assert.NotEqual(t, k.RefineKey("h", refine.RefineKeyOpts()), k.RefineKey("h", copyOpts.RefineKeyOpts()))
	assert.Zero(t, copyOpts.RefineKeyOpts().MaxIterations, "copy ignores the policy")
}

func TestExecuteRefine(t *testing.T) {
	r, _ := newRunner()
	res, err := r.Execute(context.Background(), normDoc(), Options{Formats: []string{"yaml", "dot"}})
	require.NoError(t, err)

	assert.Equal(t, "norm", res.Name)
	assert.Equal(t, 6, res.Stats.SourceNodes)
	assert.Equal(t, 2, res.Stats.Transform.Passes)
	assert.Equal(t, 4, res.Stats.Transform.NodesRefined, "affine, l2norm and mean, then dot")
	assert.True(t, res.Stats.Compilable)
	assert.Empty(t, res.Stats.Uncompilable)
	assert.Equal(t, res.Model.Size(), len(res.Document.Nodes))
	assert.False(t, res.CacheInfo.TransformHit)
	assert.NotEqual(t, res.SourceHash, res.Hash)

	for _, kind := range []string{"affine", "l2norm", "dot", "mean"} {
		assert.NotContains(t, string(res.Artifacts["yaml"]), "kind: "+kind)
	}
	assert.True(t, strings.HasPrefix(string(res.Artifacts["dot"]), "digraph G {"))
}

func TestExecuteCached(t *testing.T) {
	r, c := newRunner()
	ctx := context.Background()
	opts := Options{Formats: []string{"json", "toml"}}

	first, err := r.Execute(ctx, normDoc(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len(), "one transform entry and two artifacts")

	second, err := r.Execute(ctx, normDoc(), opts)
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.TransformHit)
	assert.True(t, second.CacheInfo.ArtifactHit)
	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Artifacts, second.Artifacts)
	assert.Equal(t, first.Stats.Transform, second.Stats.Transform)

	fresh, err := r.Execute(ctx, normDoc(), Options{Formats: opts.Formats, Refresh: true})
	require.NoError(t, err)
	assert.False(t, fresh.CacheInfo.TransformHit)
	assert.Equal(t, first.Artifacts, fresh.Artifacts)

	other, err := r.Execute(ctx, normDoc(), Options{Formats: opts.Formats, MaxIterations: 1})
	require.NoError(t, err)
	assert.False(t, other.CacheInfo.TransformHit, "different policy")
}

func TestExecuteCopy(t *testing.T) {
	r, _ := newRunner()
	res, err := r.Execute(context.Background(), normDoc(), Options{Operation: OpCopy, Name: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", res.Name)
	assert.Equal(t, res.Stats.SourceNodes, res.Stats.Nodes)
	assert.Equal(t, 1, res.Stats.Transform.Passes)
	assert.False(t, res.Stats.Compilable)
	assert.Contains(t, res.Stats.Uncompilable, "l2norm")
	assert.Contains(t, string(res.Artifacts["json"]), `"name": "renamed"`)
}

func TestExecuteOutputs(t *testing.T) {
	r, _ := newRunner()
	res, err := r.Execute(context.Background(), normDoc(), Options{Outputs: []string{"m:output"}})
	require.NoError(t, err)
	// input, sum, constant, multiply
	assert.Equal(t, 4, res.Stats.Nodes)

	_, err = r.Execute(context.Background(), normDoc(), Options{Outputs: []string{"zz:output"}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument), "got %v", err)
	_, err = r.Execute(context.Background(), normDoc(), Options{Outputs: []string{"m:result"}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument), "got %v", err)
}

func TestExecuteCompile(t *testing.T) {
	r, _ := newRunner()
	res, err := r.Execute(context.Background(), normDoc(), Options{Formats: []string{"program"}})
	require.NoError(t, err)
	require.NotNil(t, res.Program)
	listing := string(res.Artifacts["program"])
	assert.True(t, strings.HasPrefix(listing, "func norm("), listing)
	assert.Contains(t, listing, "= sqrt ")

	_, err = r.Execute(context.Background(), normDoc(), Options{Compile: true, MaxIterations: 1})
	assert.True(t, errors.Is(err, errors.ErrCodeNotImplemented), "dot is left after one pass: %v", err)
}

func TestExecuteErrors(t *testing.T) {
	r, _ := newRunner()
	ctx := context.Background()

	_, err := r.Execute(ctx, nil, Options{})
	assert.Error(t, err)

	_, err = r.Execute(ctx, &pkgio.Document{Name: "empty"}, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)

	_, err = r.Execute(ctx, normDoc(), Options{Name: "bad/name"})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidName), "got %v", err)
}

func TestExecuteHooks(t *testing.T) {
	rec := &recordingHooks{}
	observability.SetTransformHooks(rec)
	observability.SetCacheHooks(rec)
	t.Cleanup(observability.Reset)

	r, _ := newRunner()
	_, err := r.Execute(context.Background(), normDoc(), Options{})
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), normDoc(), Options{})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"start refine", "pass 1", "pass 2", "done refine 2"}, rec.transform)
	assert.Equal(t, []string{"miss transform", "set transform", "miss artifact", "set artifact",
		"hit transform", "hit artifact"}, rec.cache)
}

type recordingHooks struct {
	mu        sync.Mutex
	transform []string
	cache     []string
}

func (h *recordingHooks) add(list *[]string, s string) {
	h.mu.Lock()
	*list = append(*list, s)
	h.mu.Unlock()
}

func (h *recordingHooks) OnTransformStart(_ context.Context, op string, _ int) {
	h.add(&h.transform, "start "+op)
}

func (h *recordingHooks) OnPassComplete(_ context.Context, _ string, pass, _, _ int, _ time.Duration) {
	h.add(&h.transform, "pass "+string(rune('0'+pass)))
}

func (h *recordingHooks) OnTransformComplete(_ context.Context, op string, passes int, _ time.Duration, _ error) {
	h.add(&h.transform, "done "+op+" "+string(rune('0'+passes)))
}

func (h *recordingHooks) OnCacheHit(_ context.Context, k string)       { h.add(&h.cache, "hit "+k) }
func (h *recordingHooks) OnCacheMiss(_ context.Context, k string)      { h.add(&h.cache, "miss "+k) }
func (h *recordingHooks) OnCacheSet(_ context.Context, k string, _ int) { h.add(&h.cache, "set "+k) }
