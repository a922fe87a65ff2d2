package io

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// Document is the archived form of a model. Nodes are listed so that every
// input refers to a node that appears earlier.
type Document struct {
	Name  string `json:"name,omitempty" toml:"name,omitempty" yaml:"name,omitempty" validate:"omitempty,max=128"`
	Nodes []Node `json:"nodes" toml:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
}

// Node is one archived node.
type Node struct {
	ID     string         `json:"id" toml:"id" yaml:"id" validate:"required,nodeid"`
	Kind   string         `json:"kind" toml:"kind" yaml:"kind" validate:"required"`
	Attrs  map[string]any `json:"attrs,omitempty" toml:"attrs,omitempty" yaml:"attrs,omitempty"`
	Inputs []Input        `json:"inputs,omitempty" toml:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
}

// Input binds an input port to the output "<node>:<port>" named by From.
type Input struct {
	Port string `json:"port" toml:"port" yaml:"port" validate:"required"`
	From string `json:"from" toml:"from" yaml:"from" validate:"required,portref"`
}

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatJSON, FormatTOML, FormatYAML}

// ParseFormat accepts a format name, case-insensitively. "yml" is an alias
// for yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown document format %q", s)
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot tell the format of %q without an extension", path)
	}
	return ParseFormat(ext)
}

// SplitPortRef splits "<node>:<port>".
func SplitPortRef(ref string) (node, port string, err error) {
	if err := errors.ValidatePortRef(ref); err != nil {
		return "", "", err
	}
	i := strings.LastIndexByte(ref, ':')
	return ref[:i], ref[i+1:], nil
}

// PortRef formats a reference to an output port.
func PortRef(node, port string) string {
	return fmt.Sprintf("%s:%s", node, port)
}
