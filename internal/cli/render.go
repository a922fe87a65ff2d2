package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowgraph/pkg/config"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/pipeline"
	"github.com/matzehuels/flowgraph/pkg/render/nodelink"
)

const defaultPNGScale = 2.0

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output        string
	formats       []string
	configPath    string
	detailed      bool
	refined       bool
	maxIterations int
	highlight     []string
	scale         float64
	cache         cacheOpts
}

func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: defaultPNGScale}

	cmd := &cobra.Command{
		Use:   "render [model]",
		Short: "Draw a model as a node-link diagram",
		Long: `Draw a model as a node-link diagram.

Nodes the policy cannot compile are shaded, splices are dashed and the nodes
that the --highlight outputs depend on are outlined. PDF and PNG output need
rsvg-convert on the PATH.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if len(opts.formats) == 0 {
				opts.formats = []string{"svg"}
			}
			for _, f := range opts.formats {
				if !validRenderFormat(f) {
					return fmt.Errorf("unknown format: %s (must be one of: svg, pdf, png, dot)", f)
				}
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), pdf, png, dot (comma-separated)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "refinement policy file (default: ./"+configFile+" if present)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node ids, attributes and port names")
	cmd.Flags().BoolVarP(&opts.refined, "refined", "r", false, "refine the model before drawing it")
	cmd.Flags().IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "maximum number of refinement passes with --refined")
	cmd.Flags().StringSliceVar(&opts.highlight, "highlight", nil, "outline what these node:port outputs depend on")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	opts.cache.register(cmd)

	return cmd
}

func validRenderFormat(f string) bool {
	switch f {
	case "svg", "pdf", "png", "dot":
		return true
	}
	return false
}

// runRender loads the model, optionally refines it and writes the diagrams.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	doc, err := readDocument(input)
	if err != nil {
		return err
	}
	if opts.refined {
		doc, err = c.refineDocument(ctx, doc, pipeline.Options{Config: cfg, MaxIterations: opts.maxIterations}, opts.cache)
		if err != nil {
			return err
		}
	}

	dot, err := diagram(doc, cfg, opts)
	if err != nil {
		return err
	}

	base := opts.output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	} else if len(opts.formats) > 1 {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	for _, format := range opts.formats {
		logger.Infof("Rendering %s", strings.ToUpper(format))
		data, err := renderFormat(dot, format, opts.scale)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		path := base
		if len(opts.formats) > 1 || filepath.Ext(base) != "."+format {
			path = base + "." + format
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	printSuccess("Rendered %d nodes", len(doc.Nodes))
	return nil
}

// diagram builds the DOT source of doc.
func diagram(doc *pkgio.Document, cfg *config.Config, opts renderOpts) (string, error) {
	m, byID, err := pkgio.Build(doc)
	if err != nil {
		return "", err
	}
	dopts := nodelink.Options{Detailed: opts.detailed, Context: cfg.Context()}
	if len(opts.highlight) > 0 {
		ports, err := pkgio.ResolveOutputs(byID, opts.highlight)
		if err != nil {
			return "", err
		}
		sub, err := model.NewSubmodel(m, ports)
		if err != nil {
			return "", err
		}
		dopts.Submodel = sub
	}
	return nodelink.ToDOT(m, dopts)
}

func renderFormat(dot, format string, scale float64) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		return nodelink.RenderSVG(dot)
	case "pdf":
		return nodelink.RenderPDF(dot)
	case "png":
		return nodelink.RenderPNG(dot, scale)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
