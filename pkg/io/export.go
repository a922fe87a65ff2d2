package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// FromModel archives m. Nodes are written in visit order and get ids of the
// form "<kind>_<index>".
func FromModel(name string, m *model.Model) (*Document, error) {
	doc := &Document{Name: name}
	ids := make(map[model.NodeID]string, m.Size())
	err := m.Visit(func(n model.Node) error {
		a, ok := n.(model.Archiver)
		if !ok {
			return errors.New(errors.ErrCodeNotImplemented, "%s nodes cannot be archived", n.Kind())
		}
		attrs, err := a.Archive()
		if err != nil {
			return err
		}
		id := fmt.Sprintf("%s_%d", n.Kind(), len(doc.Nodes))
		nd := Node{ID: id, Kind: n.Kind()}
		if len(attrs) > 0 {
			nd.Attrs = map[string]any(attrs)
		}
		for _, in := range n.Inputs() {
			ref, err := in.ReferencedPort()
			if err != nil {
				return err
			}
			nd.Inputs = append(nd.Inputs, Input{Port: in.Name(), From: PortRef(ids[ref.Node().ID()], ref.Name())})
		}
		ids[n.ID()] = id
		doc.Nodes = append(doc.Nodes, nd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc *Document, f Format) error {
	var err error
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown document format %q", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}

// WriteModel archives m and writes it to w.
func WriteModel(w io.Writer, name string, m *model.Model, f Format) error {
	doc, err := FromModel(name, m)
	if err != nil {
		return err
	}
	return Encode(w, doc, f)
}

// MarshalModel is WriteModel into a byte slice.
func MarshalModel(name string, m *model.Model, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteModel(&buf, name, m, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportModel writes m to the file at path. The format follows the
// extension.
func ExportModel(name string, m *model.Model, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return WriteModel(file, name, m, f)
}
