package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/observability"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
)

// transformOpts holds the flags shared by refine, copy and compile.
type transformOpts struct {
	output        string
	configPath    string
	formats       string
	name          string
	maxIterations int
	outputs       []string
	refresh       bool
	cache         cacheOpts
}

func (o *transformOpts) register(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", `output file (single format), base path (multiple) or "-" for stdout`)
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "refinement policy file (default: ./"+configFile+" if present)")
	cmd.Flags().StringVarP(&o.formats, "format", "f", "", "output format(s): json, toml, yaml, dot, svg, program (default: "+defaultFormat+")")
	cmd.Flags().StringVar(&o.name, "name", "", "model name (default: document name)")
	cmd.Flags().StringSliceVar(&o.outputs, "outputs", nil, "only keep what these node:port outputs depend on")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "ignore cached results")
	o.cache.register(cmd)
}

func (c *CLI) refineCommand() *cobra.Command {
	var opts transformOpts
	cmd := &cobra.Command{
		Use:   "refine [model]",
		Short: "Refine a model into primitive nodes",
		Long: `Refine a model into primitive nodes.

Every pass copies the model and lets each node decide, under the policy in
flowgraph.toml, whether to copy itself, refine into simpler nodes or stay as
it is. Passes repeat until every node is compilable or the iteration limit is
reached.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd.Context(), args[0], pipeline.OpRefine, false, opts)
		},
	}
	opts.register(cmd, "yaml")
	cmd.Flags().IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "maximum number of refinement passes (default: from policy)")
	return cmd
}

func (c *CLI) copyCommand() *cobra.Command {
	var opts transformOpts
	cmd := &cobra.Command{
		Use:   "copy [model]",
		Short: "Copy a model, renumbering its nodes",
		Long: `Copy a model without refining it.

The copy keeps only the nodes the outputs depend on (or those given with
--outputs) and renumbers them in dependency order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd.Context(), args[0], pipeline.OpCopy, false, opts)
		},
	}
	opts.register(cmd, "yaml")
	return cmd
}

func (c *CLI) compileCommand() *cobra.Command {
	var opts transformOpts
	cmd := &cobra.Command{
		Use:   "compile [model]",
		Short: "Refine a model and emit a program",
		Long: `Refine a model and emit a program for it.

Compilation fails when a node is still not compilable after the last pass.
Raise --max-iterations or change the policy to refine further.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.formats == "" {
				opts.formats = pipeline.FormatProgram
			}
			return c.runTransform(cmd.Context(), args[0], pipeline.OpRefine, true, opts)
		},
	}
	opts.register(cmd, pipeline.FormatProgram)
	cmd.Flags().IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "maximum number of refinement passes (default: from policy)")
	return cmd
}

// runTransform loads the model, runs the pipeline and writes its artifacts.
func (c *CLI) runTransform(ctx context.Context, input, op string, compile bool, opts transformOpts) error {
	doc, err := readDocument(input)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	formats := parseFormats(opts.formats)
	if len(formats) == 0 {
		formats = []string{string(pkgio.FormatYAML)}
	}

	popts := pipeline.Options{
		Name:          opts.name,
		Operation:     op,
		Config:        cfg,
		MaxIterations: opts.maxIterations,
		Outputs:       opts.outputs,
		Compile:       compile,
		Formats:       formats,
		Refresh:       opts.refresh,
		Logger:        c.Logger,
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Running %s...", op))
	spinner.Start()
	observability.SetTransformHooks(spinnerHooks{s: spinner})
	defer observability.Reset()
	prog := newProgress(c.Logger)

	res, err := runner.Execute(ctx, doc, popts)
	if err != nil {
		spinner.StopWithError(strings.ToUpper(op[:1]) + op[1:] + " failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("%s %s", opVerb(op), res.Name))

	if opts.output == "-" {
		if len(formats) != 1 {
			return fmt.Errorf("--output - needs exactly one format, got %d", len(formats))
		}
		_, err := os.Stdout.Write(res.Artifacts[formats[0]])
		return err
	}

	paths, err := writeArtifacts(res.Artifacts, formats, outputBase(input, op, opts.output, len(formats)))
	if err != nil {
		return err
	}

	printSuccess("%s complete", opVerb(op))
	for _, p := range paths {
		printFile(p)
	}
	printStats(res.Stats, res.CacheInfo.TransformHit)
	if !res.Stats.Compilable && op == pipeline.OpRefine {
		printWarning("Some nodes are not compilable yet: %s", strings.Join(res.Stats.Uncompilable, ", "))
		printNextStep("Inspect", appName+" inspect "+input+" --refined")
	}
	return nil
}

func opVerb(op string) string {
	switch op {
	case pipeline.OpCopy:
		return "Copied"
	default:
		return "Refined"
	}
}

// readDocument decodes the model file at path without building it.
func readDocument(path string) (*pkgio.Document, error) {
	format, err := pkgio.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := pkgio.Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// outputBase returns the output path for a single format, or the base path
// that format extensions are appended to.
func outputBase(input, op, output string, formats int) string {
	if output != "" {
		if formats > 1 {
			return strings.TrimSuffix(output, filepath.Ext(output))
		}
		return output
	}
	suffix := "refined"
	if op == pipeline.OpCopy {
		suffix = "copy"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + suffix
}

// writeArtifacts writes one file per format and returns the paths written.
// base is used unchanged when it already carries the extension of the only
// format.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path := base
		if len(formats) > 1 || filepath.Ext(base) != "."+extension(f) {
			path = base + "." + extension(f)
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func extension(format string) string {
	switch format {
	case pipeline.FormatProgram:
		return "txt"
	default:
		return format
	}
}
