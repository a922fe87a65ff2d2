package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds node ids and archived attributes to the labels.
	Detailed bool

	// Context, when set, marks nodes it cannot compile.
	Context *model.TransformContext

	// Submodel, when set, outlines its member nodes.
	Submodel *model.Submodel
}

// ToDOT converts a model to Graphviz DOT source. Nodes appear in visit
// order. It fails if an input is unbound or the model has a cycle.
func ToDOT(m *model.Model, opts Options) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges []string
	err := m.Visit(func(n model.Node) error {
		fmt.Fprintf(&buf, "  %s [%s];\n", dotID(n), strings.Join(fmtAttrs(n, opts), ", "))
		for _, in := range n.Inputs() {
			src, err := in.ReferencedPort()
			if err != nil {
				return err
			}
			label := fmt.Sprintf("%s x%d", src.Type(), src.Size())
			if opts.Detailed {
				label = fmt.Sprintf("%s -> %s\n%s", src.Name(), in.Name(), label)
			}
			edges = append(edges, fmt.Sprintf("  %s -> %s [label=%q];\n", dotID(src.Node()), dotID(n), label))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func dotID(n model.Node) string { return "n" + n.ID().String() }

func fmtLabel(n model.Node, detailed bool) string {
	if !detailed {
		return n.Kind()
	}
	parts := []string{fmt.Sprintf("%s #%s", n.Kind(), n.ID())}
	if a, ok := n.(model.Archiver); ok {
		if attrs, err := a.Archive(); err == nil {
			for _, k := range slices.Sorted(maps.Keys(attrs)) {
				parts = append(parts, fmt.Sprintf("%s: %v", k, attrs[k]))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n model.Node, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
	style := "rounded,filled"
	if _, ok := n.(*model.SpliceNode); ok {
		style += ",dashed"
		attrs = append(attrs, "fillcolor=lightgrey")
	} else if opts.Context != nil && !opts.Context.IsNodeCompilable(n) {
		attrs = append(attrs, "fillcolor=\"#f8d0d0\"")
	}
	if opts.Submodel != nil && opts.Submodel.Contains(n) {
		style += ",bold"
		attrs = append(attrs, "penwidth=2")
	}
	return append(attrs, fmt.Sprintf("style=%q", style))
}

// RenderSVG renders DOT source to SVG using Graphviz.
// The result can be converted further with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the diagram scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders DOT source as PDF via SVG.
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders DOT source as PNG via SVG.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
