// Package pipeline runs the load → transform → compile → export pipeline
// shared by the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: build a model from a [pkgio.Document]
//  2. Transform: copy or refine it under a [config.Config] policy
//  3. Compile: optionally emit a program for the refined model
//  4. Export: encode the result as documents, diagrams or listings
//
// The transform and export stages are cached by content hash, so repeated
// requests for the same model and policy skip the work.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{
//	    MaxIterations: 5,
//	    Formats:       []string{"yaml", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	refined := result.Artifacts["yaml"]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowgraph/pkg/cache"
	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/config"
	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// =============================================================================
// Default Values
// =============================================================================

// Operations.
const (
	OpRefine = "refine"
	OpCopy   = "copy"
)

// Artifact formats besides the document formats of [pkgio.Formats].
const (
	FormatDOT     = "dot"
	FormatSVG     = "svg"
	FormatProgram = "program"
)

// DefaultName is used when neither the options nor the document name the
// model.
const DefaultName = "model"

// Cache lifetimes.
const (
	TTLTransform = 24 * time.Hour
	TTLArtifact  = 24 * time.Hour
)

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	string(pkgio.FormatJSON): true,
	string(pkgio.FormatTOML): true,
	string(pkgio.FormatYAML): true,
	FormatDOT:                true,
	FormatSVG:                true,
	FormatProgram:            true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. It is accepted as JSON by the server.
type Options struct {
	// Name overrides the document name.
	Name string `json:"name,omitempty"`

	// Operation is "refine" (default) or "copy".
	Operation string `json:"operation,omitempty"`

	// Config is the refinement policy. Nil means [config.Default].
	Config *config.Config `json:"config,omitempty"`

	// MaxIterations overrides the policy's pass limit when positive.
	MaxIterations int `json:"max_iterations,omitempty"`

	// Outputs restricts the run to the nodes these "<node>:<port>"
	// references depend on.
	Outputs []string `json:"outputs,omitempty"`

	// Compile emits a program for the result. It fails if a node is not
	// compilable.
	Compile bool `json:"compile,omitempty"`

	// Formats lists the artifacts to produce. Defaults to json.
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses cache reads.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	switch o.Operation {
	case "":
		o.Operation = OpRefine
	case OpRefine, OpCopy:
	default:
		return errors.New(errors.ErrCodeInvalidArgument, "invalid operation %q (must be refine or copy)", o.Operation)
	}
	if o.Config == nil {
		o.Config = config.Default()
	} else if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "max_iterations must not be negative")
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{string(pkgio.FormatJSON)}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if slices.Contains(o.Formats, FormatProgram) {
		o.Compile = true
	}
	for _, ref := range o.Outputs {
		if err := errors.ValidatePortRef(ref); err != nil {
			return err
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Iterations returns the effective pass limit.
func (o *Options) Iterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	if o.Config != nil {
		return o.Config.MaxIterations
	}
	return config.DefaultMaxIterations
}

// RefineKeyOpts returns the cache key options of the transform stage.
func (o *Options) RefineKeyOpts() cache.RefineKeyOpts {
	opts := cache.RefineKeyOpts{
		Operation: o.Operation,
		Outputs:   o.Outputs,
	}
	if o.Operation == OpRefine {
		opts.MaxIterations = o.Iterations()
		opts.Kinds = o.Config.Compiler.Kinds
		opts.Actions = o.Config.ActionStrings()
	}
	return opts
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, toml, yaml, dot, svg, program)", format)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	Name string

	// Source is the model built from the input document.
	Source *model.Model

	// Model is the transformed model.
	Model *model.Model

	// Document is the archived form of Model.
	Document *pkgio.Document

	// Program is set when compilation was requested.
	Program *compiler.Program

	// SourceHash and Hash are content hashes of the canonical documents.
	SourceHash string
	Hash       string

	// Artifacts holds the encoded outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SourceNodes   int           `json:"source_nodes"`
	Nodes         int           `json:"nodes"`
	Transform     model.Stats   `json:"transform"`
	Compilable    bool          `json:"compilable"`
	Uncompilable  []string      `json:"uncompilable,omitempty"` // kinds still left to refine
	LoadTime      time.Duration `json:"load_time"`
	TransformTime time.Duration `json:"transform_time"`
	ExportTime    time.Duration `json:"export_time"`
}

// CacheInfo tracks cache hits for each cached stage.
type CacheInfo struct {
	TransformHit bool `json:"transform_hit"`
	ArtifactHit  bool `json:"artifact_hit"`
}
