// Package io reads and writes models as JSON, TOML or YAML documents.
//
// # Document Format
//
// A document lists nodes in dependency order. Every node has an id, a kind,
// kind-specific attributes and the outputs its inputs read from:
//
//	{
//	  "name": "norm",
//	  "nodes": [
//	    {"id": "x", "kind": "input", "attrs": {"type": "real", "size": 3}},
//	    {"id": "n", "kind": "l2norm", "inputs": [{"port": "input", "from": "x:output"}]},
//	    {"id": "out", "kind": "output", "inputs": [{"port": "input", "from": "n:output"}]}
//	  ]
//	}
//
// The same structure is used for TOML (an array of [[nodes]] tables) and
// YAML. [FormatFromPath] picks the encoding from a file extension.
//
// # Validation
//
// Documents are checked with struct tags before a model is built: ids must
// be valid names, port references must have the form "node:port" and may
// only point at nodes defined earlier. Attribute errors are reported by the
// node kind when it is rebuilt.
//
// # Import and Export
//
// [ImportModel] and [ExportModel] work on files; [ReadModel], [WriteModel],
// [ParseModel] and [MarshalModel] on readers, writers and byte slices.
// Exported ids are derived from the node kind and position, so exporting a
// model, importing it and exporting again yields the same document.
package io
