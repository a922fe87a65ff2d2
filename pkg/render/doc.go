// Package render turns models into pictures.
//
// # Overview
//
// The [nodelink] subpackage draws a model as a Graphviz diagram: one box per
// node, one arrow per bound input. This package holds the format conversion
// shared by every renderer.
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert SVG with the external rsvg-convert tool (from
// librsvg):
//
//	dot, _ := nodelink.ToDOT(m, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0) // 2x scale
//
// When rsvg-convert is not installed both return an UNSUPPORTED error.
//
// [nodelink]: github.com/matzehuels/flowgraph/pkg/render/nodelink
package render
