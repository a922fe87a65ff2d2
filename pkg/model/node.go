package model

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// NodeID is a process-wide unique node identifier. Ids increase
// monotonically in construction order.
type NodeID uint64

// String returns the decimal form of the id.
func (id NodeID) String() string { return strconv.FormatUint(uint64(id), 10) }

var lastNodeID atomic.Uint64

func nextNodeID() NodeID { return NodeID(lastNodeID.Add(1)) }

// Node is the contract every node kind implements. The transformer drives
// Copy and Refine; Compute is called by evaluators and is never invoked by
// the transformer.
type Node interface {
	// ID returns the process-wide unique id.
	ID() NodeID
	// Kind returns the registered kind name, e.g. "binary".
	Kind() string
	// Inputs returns the input ports in declaration order.
	Inputs() []*InputPort
	// Outputs returns the output ports in declaration order.
	Outputs() []*OutputPort
	// Validate reports construction errors and kind-specific shape errors.
	Validate() error

	// Copy adds an equivalent node to t's destination model and maps every
	// output port with [Transformer.MapNodeOutput].
	Copy(t *Transformer) error
	// Refine lowers the node into simpler nodes in t's destination model and
	// maps every output port. It returns false, without touching t, when the
	// node has no lowering; the transformer then copies it.
	Refine(t *Transformer) (bool, error)
	// Compute reads the input values and writes the output values.
	Compute() error
}

// NodeAdder is implemented by [Model] and [Transformer]: anything a node
// can be added to.
type NodeAdder interface {
	AddNode(n Node) error
}

// Add adds n to dst and returns it with its concrete type, so callers can
// keep working with the node's own ports:
//
//	sum, err := model.Add(t, nodes.NewSum(x))
func Add[T Node](dst NodeAdder, n T) (T, error) {
	if err := dst.AddNode(n); err != nil {
		var zero T
		return zero, err
	}
	return n, nil
}

// Attributes are the kind-specific values a node archives.
type Attributes map[string]any

// Archiver is implemented by node kinds that can be serialized. Kinds that
// only exist in runtime graphs return NOT_IMPLEMENTED.
type Archiver interface {
	Archive() (Attributes, error)
}

// NodeBase carries the identity and ports of a node. Node kinds embed it and
// call Init from their constructor before declaring ports:
//
//	n := &SumNode{}
//	n.Init(n, "sum")
//	n.input = n.AddInput("input", x)
//	n.output = n.AddOutput("output", x.Type(), 1)
//
// Declaration errors (duplicate port names, nil references) are deferred and
// reported by Validate, which [Model.AddNode] calls.
type NodeBase struct {
	id      NodeID
	kind    string
	self    Node
	inputs  []*InputPort
	outputs []*OutputPort
	err     error
	owner   *Model
}

// owned is implemented by every node that embeds NodeBase.
type owned interface {
	ownerModel() *Model
	setOwner(m *Model)
}

func (b *NodeBase) ownerModel() *Model { return b.owner }

func (b *NodeBase) setOwner(m *Model) { b.owner = m }

// Init assigns a fresh id and records the concrete node that owns the ports.
func (b *NodeBase) Init(self Node, kind string) {
	b.id = nextNodeID()
	b.kind = kind
	b.self = self
}

// ID returns the node id.
func (b *NodeBase) ID() NodeID { return b.id }

// Kind returns the node kind.
func (b *NodeBase) Kind() string { return b.kind }

// Inputs returns the input ports.
func (b *NodeBase) Inputs() []*InputPort { return b.inputs }

// Outputs returns the output ports.
func (b *NodeBase) Outputs() []*OutputPort { return b.outputs }

// Validate returns the first deferred declaration error.
func (b *NodeBase) Validate() error {
	if b.self == nil {
		return errors.New(errors.ErrCodeInvalidState, "node %d of kind %q was not initialized", b.id, b.kind)
	}
	return b.err
}

// Refine reports that the node has no lowering.
func (b *NodeBase) Refine(*Transformer) (bool, error) { return false, nil }

// AddInput declares an input port bound to ref. A nil ref leaves the port
// unbound.
func (b *NodeBase) AddInput(name string, ref *OutputPort) *InputPort {
	p := newInputPort(b.self, name)
	b.checkName(name)
	b.inputs = append(b.inputs, p)
	if ref != nil {
		if err := p.Bind(ref); err != nil {
			b.fail(err)
		}
	}
	return p
}

// AddOutput declares an output port.
func (b *NodeBase) AddOutput(name string, typ PortType, size int) *OutputPort {
	b.checkName(name)
	if size < 0 {
		b.fail(errors.New(errors.ErrCodeInvalidArgument, "output %q has negative size %d", name, size))
		size = 0
	}
	p := newOutputPort(b.self, name, typ, size)
	b.outputs = append(b.outputs, p)
	return p
}

// Input returns the input port with the given name.
func (b *NodeBase) Input(name string) (*InputPort, bool) {
	for _, p := range b.inputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Output returns the output port with the given name.
func (b *NodeBase) Output(name string) (*OutputPort, bool) {
	for _, p := range b.outputs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Fail records a kind-specific construction error, reported by Validate.
func (b *NodeBase) Fail(format string, args ...any) {
	b.fail(errors.New(errors.ErrCodeInvalidArgument, "%s node %d: %s", b.kind, b.id, fmt.Sprintf(format, args...)))
}

func (b *NodeBase) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *NodeBase) checkName(name string) {
	if name == "" {
		b.fail(errors.New(errors.ErrCodeInvalidArgument, "%s node %d: empty port name", b.kind, b.id))
		return
	}
	if _, ok := b.Input(name); ok {
		b.fail(errors.New(errors.ErrCodeInvalidArgument, "%s node %d: duplicate port %q", b.kind, b.id, name))
		return
	}
	if _, ok := b.Output(name); ok {
		b.fail(errors.New(errors.ErrCodeInvalidArgument, "%s node %d: duplicate port %q", b.kind, b.id, name))
	}
}

// Dependencies returns the distinct nodes whose outputs n consumes, in input
// order. Unbound inputs are skipped.
func Dependencies(n Node) []Node {
	var deps []Node
	seen := make(map[NodeID]bool)
	for _, in := range n.Inputs() {
		if in.ref == nil || in.ref.node == nil {
			continue
		}
		dep := in.ref.node
		if !seen[dep.ID()] {
			seen[dep.ID()] = true
			deps = append(deps, dep)
		}
	}
	return deps
}

// InputValues returns the current values of every input of n, in order.
func InputValues(n Node) ([][]float64, error) {
	values := make([][]float64, len(n.Inputs()))
	for i, in := range n.Inputs() {
		v, err := in.Values()
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
