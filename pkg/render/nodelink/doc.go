// Package nodelink renders models as node-link diagrams.
//
// # Overview
//
// Every node becomes a rounded box labelled with its kind and every bound
// input becomes an arrow from the producing node. Arrows carry the type and
// width of the port they read.
//
//	dot, err := nodelink.ToDOT(m, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// # Styling
//
//   - Splice nodes are drawn dashed and grey.
//   - With [Options.Context] set, nodes the context cannot compile are
//     filled red, which shows what a refinement still has to lower.
//   - With [Options.Submodel] set, member nodes get a bold outline.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion goes through the parent render package
// and requires librsvg.
package nodelink
