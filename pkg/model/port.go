package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// PortType is the element type carried by a port.
type PortType int

const (
	// PortTypeNone is the type of an unbound input port. It binds to any output.
	PortTypeNone PortType = iota
	// PortTypeSmallReal is a single precision real value.
	PortTypeSmallReal
	// PortTypeReal is a double precision real value.
	PortTypeReal
	// PortTypeInteger is a 32-bit integer value.
	PortTypeInteger
	// PortTypeBigInt is a 64-bit integer value.
	PortTypeBigInt
	// PortTypeCategorical is an enumerated value stored as an integer.
	PortTypeCategorical
	// PortTypeBoolean is a boolean value stored as 0 or 1.
	PortTypeBoolean
)

var portTypeNames = [...]string{
	PortTypeNone:        "none",
	PortTypeSmallReal:   "small_real",
	PortTypeReal:        "real",
	PortTypeInteger:     "integer",
	PortTypeBigInt:      "big_int",
	PortTypeCategorical: "categorical",
	PortTypeBoolean:     "boolean",
}

// String returns the lowercase name of the type.
func (t PortType) String() string {
	if t < 0 || int(t) >= len(portTypeNames) {
		return fmt.Sprintf("port_type(%d)", int(t))
	}
	return portTypeNames[t]
}

// ParsePortType is the inverse of [PortType.String].
func ParsePortType(s string) (PortType, error) {
	for i, name := range portTypeNames {
		if strings.EqualFold(name, s) {
			return PortType(i), nil
		}
	}
	return PortTypeNone, errors.New(errors.ErrCodeInvalidArgument, "unknown port type %q", s)
}

// PortID identifies a port by its owning node and its name. It is stable
// across copies of the port structs and is the key of every port map.
type PortID struct {
	Node NodeID
	Name string
}

// String formats the id as "node:name".
func (id PortID) String() string {
	return fmt.Sprintf("%d:%s", id.Node, id.Name)
}

// Port is the part shared by input and output ports.
type Port struct {
	node Node
	name string
	typ  PortType
	size int
}

// Node returns the owning node, or nil for a port not attached to a node.
func (p *Port) Node() Node { return p.node }

// Name returns the port name, unique within its node.
func (p *Port) Name() string { return p.name }

// Type returns the element type.
func (p *Port) Type() PortType { return p.typ }

// ID returns the stable identity of the port.
func (p *Port) ID() PortID {
	if p.node == nil {
		return PortID{Name: p.name}
	}
	return PortID{Node: p.node.ID(), Name: p.name}
}

// OutputPort produces values. It keeps the identities of the input ports
// that reference it; these are observers only and never keep the inputs
// alive.
type OutputPort struct {
	Port
	values   []float64
	refs     map[PortID]struct{}
	released bool
}

func newOutputPort(node Node, name string, typ PortType, size int) *OutputPort {
	return &OutputPort{
		Port:   Port{node: node, name: name, typ: typ, size: size},
		values: make([]float64, size),
		refs:   make(map[PortID]struct{}),
	}
}

// Size returns the number of values the port produces.
func (p *OutputPort) Size() int { return p.size }

// Values returns the last computed values. The slice is owned by the port.
func (p *OutputPort) Values() []float64 { return p.values }

// SetValues stores computed values. The length must equal the port size.
func (p *OutputPort) SetValues(values []float64) error {
	if len(values) != p.size {
		return errors.New(errors.ErrCodeInvalidArgument,
			"output %s has size %d, got %d values", p.ID(), p.size, len(values))
	}
	copy(p.values, values)
	return nil
}

// AddReference registers an input port as referencing this output.
func (p *OutputPort) AddReference(input PortID) { p.refs[input] = struct{}{} }

// RemoveReference deregisters an input port.
func (p *OutputPort) RemoveReference(input PortID) { delete(p.refs, input) }

// IsReferenced reports whether any input port references this output.
func (p *OutputPort) IsReferenced() bool { return len(p.refs) > 0 }

// ReferenceCount returns the number of referencing input ports.
func (p *OutputPort) ReferenceCount() int { return len(p.refs) }

// References returns the identities of the referencing input ports, sorted
// by node then name.
func (p *OutputPort) References() []PortID {
	ids := make([]PortID, 0, len(p.refs))
	for id := range p.refs {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, comparePortIDs)
	return ids
}

// IsReleased reports whether the owning node has been deleted from its model.
// Inputs still pointing at a released port hold a stale reference.
func (p *OutputPort) IsReleased() bool { return p.released }

func (p *OutputPort) release() { p.released = true }

// InputPort consumes the values of exactly one output port, or of none when
// it is unbound.
type InputPort struct {
	Port
	ref *OutputPort
}

func newInputPort(node Node, name string) *InputPort {
	return &InputPort{Port: Port{node: node, name: name}}
}

// Size returns the size of the referenced output, or 0 when unbound.
func (p *InputPort) Size() int {
	if p.ref == nil {
		return 0
	}
	return p.ref.size
}

// IsBound reports whether the port references an output.
func (p *InputPort) IsBound() bool { return p.ref != nil }

// Bind points the input at out, replacing any previous reference. An input
// that already has an element type only binds to outputs of the same type.
func (p *InputPort) Bind(out *OutputPort) error {
	if out == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "bind %s to nil output", p.ID())
	}
	if p.typ != PortTypeNone && p.typ != out.typ {
		return errors.New(errors.ErrCodeInvalidArgument,
			"bind %s: type %s does not match output %s of type %s", p.ID(), p.typ, out.ID(), out.typ)
	}
	if p.ref != nil {
		p.ref.RemoveReference(p.ID())
	}
	p.ref = out
	p.typ = out.typ
	out.AddReference(p.ID())
	return nil
}

// Unbind drops the reference. The input keeps its element type.
func (p *InputPort) Unbind() {
	if p.ref != nil {
		p.ref.RemoveReference(p.ID())
		p.ref = nil
	}
}

// ReferencedPort returns the output this input consumes. It fails with
// INVALID_STATE for an unbound input and for a reference to a released port.
func (p *InputPort) ReferencedPort() (*OutputPort, error) {
	if p.ref == nil {
		return nil, errors.New(errors.ErrCodeInvalidState, "input %s is not bound", p.ID())
	}
	if p.ref.released {
		return nil, errors.New(errors.ErrCodeInvalidState,
			"input %s holds a stale reference to deleted output %s", p.ID(), p.ref.ID())
	}
	return p.ref, nil
}

// Values returns the current values of the referenced output.
func (p *InputPort) Values() ([]float64, error) {
	ref, err := p.ReferencedPort()
	if err != nil {
		return nil, err
	}
	return ref.values, nil
}

func comparePortIDs(a, b PortID) int {
	if a.Node != b.Node {
		if a.Node < b.Node {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Name, b.Name)
}
