package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

// Decode reads a document in the given format. It does not validate it.
func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	var err error
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown document format %q", f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", f)
	}
	return &doc, nil
}

// Build validates doc and rebuilds its model. It also returns the node of
// every document id.
func Build(doc *Document) (*model.Model, map[string]model.Node, error) {
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}

	m := model.NewModel()
	byID := make(map[string]model.Node, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		inputs, err := resolveInputs(nd, byID)
		if err != nil {
			return nil, nil, err
		}
		n, err := nodes.Unarchive(nd.Kind, nd.Attrs, inputs)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		if err := m.AddNode(n); err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		byID[nd.ID] = n
	}
	return m, byID, nil
}

// resolveInputs orders the inputs of nd by the port order of its kind.
// Kinds with a variable number of inputs keep document order.
func resolveInputs(nd Node, byID map[string]model.Node) ([]*model.OutputPort, error) {
	from := make(map[string]string, len(nd.Inputs))
	order := make([]string, 0, len(nd.Inputs))
	for _, in := range nd.Inputs {
		from[in.Port] = in.From
		order = append(order, in.Port)
	}
	if info, ok := nodes.Lookup(nd.Kind); ok && info.Inputs != nil {
		order = info.Inputs
	}

	ports := make([]*model.OutputPort, 0, len(order))
	for _, name := range order {
		ref, ok := from[name]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node %s: input %q is not bound", nd.ID, name)
		}
		delete(from, name)
		nodeID, portName, err := SplitPortRef(ref)
		if err != nil {
			return nil, err
		}
		src, ok := byID[nodeID]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node %s: unknown node %q", nd.ID, nodeID)
		}
		p := outputByName(src, portName)
		if p == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node %s: %s has no output %q", nd.ID, nodeID, portName)
		}
		ports = append(ports, p)
	}
	if len(from) > 0 {
		extra := slices.Sorted(maps.Keys(from))
		return nil, errors.New(errors.ErrCodeInvalidInput, "node %s: %s nodes have no input %q", nd.ID, nd.Kind, extra[0])
	}
	return ports, nil
}

// ResolveOutputs looks up "<node>:<port>" references among the nodes
// returned by [Build].
func ResolveOutputs(byID map[string]model.Node, refs []string) ([]*model.OutputPort, error) {
	ports := make([]*model.OutputPort, 0, len(refs))
	for _, ref := range refs {
		id, name, err := SplitPortRef(ref)
		if err != nil {
			return nil, err
		}
		n, ok := byID[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "output %q: unknown node %q", ref, id)
		}
		p := outputByName(n, name)
		if p == nil {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "output %q: %s has no output %q", ref, id, name)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func outputByName(n model.Node, name string) *model.OutputPort {
	for _, p := range n.Outputs() {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// ReadModel decodes and builds a model.
//
// ReadModel returns an error if the document is malformed, if a node id is
// duplicated, if an input refers to an unknown node or port, or if a node
// rejects its attributes. ReadModel does not close r.
func ReadModel(r io.Reader, f Format) (*model.Model, error) {
	doc, err := Decode(r, f)
	if err != nil {
		return nil, err
	}
	m, _, err := Build(doc)
	return m, err
}

// ParseModel is ReadModel on a byte slice.
func ParseModel(data []byte, f Format) (*model.Model, error) {
	return ReadModel(bytes.NewReader(data), f)
}

// ImportModel reads the model file at path. The format follows the
// extension.
func ImportModel(path string) (*model.Model, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	m, err := ReadModel(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
