package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowgraph/pkg/cache"
	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/observability"
	"github.com/matzehuels/flowgraph/pkg/render/nodelink"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer means [cache.DefaultKeyer], a nil
// cache disables caching and a nil logger means log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load → transform → compile → export on doc.
func (r *Runner) Execute(ctx context.Context, doc *pkgio.Document, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if doc == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil document")
	}
	result := &Result{Name: firstNonEmpty(opts.Name, doc.Name, DefaultName)}
	if err := errors.ValidateName(result.Name); err != nil {
		return nil, err
	}

	// Stage 1: Load
	loadStart := time.Now()
	src, byID, err := pkgio.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	_, srcData, err := archive(result.Name, src)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Source = src
	result.SourceHash = cache.Hash(srcData)
	result.Stats.SourceNodes = src.Size()
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded model",
		"name", result.Name,
		"nodes", src.Size(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Transform
	tc := opts.Config.Context()
	transformStart := time.Now()
	out, err := r.TransformWithCacheInfo(ctx, result.Name, src, byID, result.SourceHash, tc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Operation, err)
	}
	result.Model = out.Model
	result.Document = out.Document
	result.Hash = out.Hash
	result.Stats.Nodes = out.Model.Size()
	result.Stats.Transform = out.Stats
	result.Stats.Uncompilable = uncompilableKinds(out.Model, tc)
	result.Stats.Compilable = len(result.Stats.Uncompilable) == 0
	result.Stats.TransformTime = time.Since(transformStart)
	result.CacheInfo.TransformHit = out.Hit

	r.Logger.Info("transformed model",
		"op", opts.Operation,
		"nodes", result.Stats.Nodes,
		"passes", out.Stats.Passes,
		"compilable", result.Stats.Compilable,
		"cached", out.Hit,
		"duration", result.Stats.TransformTime)

	// Stage 3: Compile
	if opts.Compile {
		prog, err := compiler.New(opts.Config.Compiler.Kinds...).Compile(result.Name, result.Model)
		if err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
		result.Program = prog
		r.Logger.Debug("compiled model", "instructions", len(prog.Instructions))
	}

	// Stage 4: Export
	exportStart := time.Now()
	artifacts, hit, err := r.ExportWithCacheInfo(ctx, result, tc, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ArtifactHit = hit

	r.Logger.Info("exported artifacts",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Transformed is the outcome of the transform stage.
type Transformed struct {
	Model    *model.Model
	Document *pkgio.Document
	Hash     string
	Stats    model.Stats
	Hit      bool
}

type cachedTransform struct {
	Document *pkgio.Document `json:"document"`
	Stats    model.Stats     `json:"stats"`
}

// TransformWithCacheInfo copies or refines src. byID resolves the output
// references of opts; srcHash keys the cache.
func (r *Runner) TransformWithCacheInfo(ctx context.Context, name string, src *model.Model, byID map[string]model.Node,
	srcHash string, tc *model.TransformContext, opts Options) (*Transformed, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	hooks := observability.Cache()
	key := r.Keyer.RefineKey(srcHash, opts.RefineKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if out, err := restore(data); err == nil {
				hooks.OnCacheHit(ctx, "transform")
				return out, nil
			}
		}
	}
	hooks.OnCacheMiss(ctx, "transform")

	input := src
	if len(opts.Outputs) > 0 {
		sub, err := extract(src, byID, opts.Outputs, tc)
		if err != nil {
			return nil, err
		}
		input = sub
	}

	m, stats, err := r.run(ctx, input, tc, opts)
	if err != nil {
		return nil, err
	}
	doc, data, err := archive(name, m)
	if err != nil {
		return nil, err
	}
	out := &Transformed{Model: m, Document: doc, Hash: cache.Hash(data), Stats: stats}

	if entry, err := json.Marshal(cachedTransform{Document: doc, Stats: stats}); err == nil {
		if err := r.Cache.Set(ctx, key, entry, TTLTransform); err == nil {
			hooks.OnCacheSet(ctx, "transform", len(entry))
		} else {
			r.Logger.Warn("cache write failed", "stage", "transform", "error", err)
		}
	}
	return out, nil
}

// run performs the transformation and reports it to the transform hooks.
func (r *Runner) run(ctx context.Context, m *model.Model, tc *model.TransformContext, opts Options) (*model.Model, model.Stats, error) {
	hooks := observability.Transform()
	hooks.OnTransformStart(ctx, opts.Operation, m.Size())
	start := time.Now()

	t := model.NewTransformer(
		model.WithLogger(opts.Logger),
		model.WithPassHook(func(p model.PassInfo) {
			hooks.OnPassComplete(ctx, p.Operation, p.Pass, p.NodeCount, p.Refined, p.Duration)
		}),
	)
	var out *model.Model
	var err error
	switch opts.Operation {
	case OpCopy:
		out, err = t.CopyModel(m, tc)
	default:
		out, err = t.RefineModel(m, tc, opts.Iterations())
	}
	hooks.OnTransformComplete(ctx, opts.Operation, t.Stats().Passes, time.Since(start), err)
	if err != nil {
		return nil, model.Stats{}, err
	}
	return out, t.Stats(), nil
}

// extract copies the part of m that the referenced outputs depend on into a
// new model.
func extract(m *model.Model, byID map[string]model.Node, refs []string, tc *model.TransformContext) (*model.Model, error) {
	ports, err := pkgio.ResolveOutputs(byID, refs)
	if err != nil {
		return nil, err
	}
	sub, err := model.NewSubmodel(m, ports)
	if err != nil {
		return nil, err
	}
	copied, err := model.NewTransformer().CopySubmodel(sub, tc)
	if err != nil {
		return nil, err
	}
	return copied.Model(), nil
}

func restore(data []byte) (*Transformed, error) {
	var entry cachedTransform
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Document == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cache entry without document")
	}
	m, _, err := pkgio.Build(entry.Document)
	if err != nil {
		return nil, err
	}
	// Re-archive so the document matches what a fresh run produces.
	doc, canonical, err := archive(entry.Document.Name, m)
	if err != nil {
		return nil, err
	}
	return &Transformed{Model: m, Document: doc, Hash: cache.Hash(canonical), Stats: entry.Stats, Hit: true}, nil
}

// ExportWithCacheInfo encodes the result in every requested format.
func (r *Runner) ExportWithCacheInfo(ctx context.Context, res *Result, tc *model.TransformContext, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()
	keyFor := func(format string) string {
		return r.Keyer.ArtifactKey(res.Hash, cache.ArtifactKeyOpts{Format: format, Compile: opts.Compile})
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, keyFor(format))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
	}
	hooks.OnCacheMiss(ctx, "artifact")

	for _, format := range opts.Formats {
		data, err := export(res, tc, format)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", format, err)
		}
		artifacts[format] = data
		if err := r.Cache.Set(ctx, keyFor(format), data, TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

func export(res *Result, tc *model.TransformContext, format string) ([]byte, error) {
	switch format {
	case FormatDOT, FormatSVG:
		dot, err := nodelink.ToDOT(res.Model, nodelink.Options{Detailed: true, Context: tc})
		if err != nil {
			return nil, err
		}
		if format == FormatDOT {
			return []byte(dot), nil
		}
		return nodelink.RenderSVG(dot)
	case FormatProgram:
		if res.Program == nil {
			return nil, errors.New(errors.ErrCodeInvalidState, "program requested without compiling")
		}
		return []byte(res.Program.String()), nil
	default:
		f, err := pkgio.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := pkgio.Encode(&buf, res.Document, f); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// archive returns the document of m and its canonical JSON encoding.
func archive(name string, m *model.Model) (*pkgio.Document, []byte, error) {
	doc, err := pkgio.FromModel(name, m)
	if err != nil {
		return nil, nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// uncompilableKinds lists the distinct kinds of the nodes tc's compiler
// rejects, sorted.
func uncompilableKinds(m *model.Model, tc *model.TransformContext) []string {
	var kinds []string
	for _, n := range model.UncompilableNodes(m, tc) {
		kinds = append(kinds, n.Kind())
	}
	slices.Sort(kinds)
	return slices.Compact(kinds)
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
