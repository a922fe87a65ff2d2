// Package pkg provides the core libraries of flowgraph.
//
// # Overview
//
// Flowgraph represents numeric computations as dataflow models: nodes with
// typed, sized output ports, wired to the input ports of other nodes. A
// transformer copies models node by node and refines high-level nodes into
// primitive ones until a compiler can emit a program for the result.
//
// The pkg directory is organized into three areas:
//
//  1. The graph engine: [model], [nodes] and [compiler]
//  2. Serialization and presentation: [io] and [render/nodelink]
//  3. Orchestration: [config], [pipeline], [cache], [store] and [server]
//
// # Architecture
//
// The typical data flow:
//
//	Model document (JSON, TOML or YAML)
//	         ↓
//	    [io] package (decode, validate, rebuild the model)
//	         ↓
//	    [model] package (copy or refine under a [config] policy)
//	         ↓
//	    [compiler] package (emit a program)
//	         ↓
//	    documents, DOT/SVG diagrams, program listings
//
// [pipeline] runs these stages for the CLI and [server], caching transforms
// and artifacts by content hash in a [cache].
//
// # Quick Start
//
// Build a model, refine it and compile it:
//
//	m := model.NewModel()
//	x, _ := model.Add(m, nodes.NewInput(model.PortTypeReal, 3))
//	n, _ := model.Add(m, nodes.NewL2Norm(x.Output()))
//	model.Add(m, nodes.NewOutput(n.Output()))
//
//	tc := config.Default().Context()
//	refined, _ := model.NewTransformer().RefineModel(m, tc, 10)
//	prog, _ := compiler.New(nodes.CompilableKinds()...).Compile("norm", refined)
//	fmt.Print(prog)
//
// # Main Packages
//
// [model] - Ports, nodes, models, submodels and the transformer. This is the
// graph engine; it knows no concrete node kinds.
//
// [nodes] - The built-in node kinds and their registry, used to rebuild nodes
// from documents.
//
// [compiler] - Decides which nodes are primitive and emits a three-address
// program for a fully refined model.
//
// [io] - Model documents and their JSON, TOML and YAML encodings.
//
// [render/nodelink] - Node-link diagrams via Graphviz.
//
// [config] - The refinement policy: compilable kinds, per-kind actions and the
// pass limit.
//
// [pipeline] - The load → transform → compile → export pipeline.
//
// [cache] - File, memory and Redis caches with content-hash keys.
//
// [store] - Named model storage on disk or in MongoDB.
//
// [server] - The HTTP API.
//
// [observability] and [metrics] - Hooks for transforms, caches and HTTP
// requests, with a Prometheus implementation.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/model/...              # Specific package
//
// Redis and MongoDB tests run when FLOWGRAPH_TEST_REDIS_URL and
// FLOWGRAPH_TEST_MONGO_URI are set.
//
// [model]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/model
// [nodes]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/nodes
// [compiler]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/compiler
// [io]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/io
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/render/nodelink
// [config]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/store
// [server]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/observability
// [metrics]: https://pkg.go.dev/github.com/matzehuels/flowgraph/pkg/metrics
package pkg
