package model

import (
	"github.com/matzehuels/flowgraph/pkg/errors"
)

// Submodel is a view on a model: the nodes needed to compute Outputs, cut
// at the free Inputs. A free input marks where the view ends; the output it
// references is supplied from outside when the submodel is grafted with
// [Transformer.CopySubmodelOnto].
type Submodel struct {
	model   *Model
	inputs  []*InputPort
	outputs []*OutputPort
	nodes   []Node
	members map[NodeID]bool
}

// NewSubmodel returns the full backward closure of outputs.
func NewSubmodel(m *Model, outputs []*OutputPort) (*Submodel, error) {
	return NewSubmodelWithInputs(m, nil, outputs)
}

// NewSubmodelWithInputs returns the closure of outputs that stops at the
// ports referenced by inputs. Every input must be bound and must belong to a
// node of the closure, and every other input of the closure must read from
// a member. The order of inputs is kept and is the order the graft ports
// must follow.
func NewSubmodelWithInputs(m *Model, inputs []*InputPort, outputs []*OutputPort) (*Submodel, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "submodel of nil model")
	}
	if len(outputs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "submodel needs at least one output")
	}

	roots := make([]Node, 0, len(outputs))
	for i, p := range outputs {
		if p == nil {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "submodel output %d is nil", i)
		}
		if err := m.checkOwned(p); err != nil {
			return nil, err
		}
		roots = append(roots, p.node)
	}

	stop := make(map[PortID]bool, len(inputs))
	seen := make(map[PortID]bool, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "submodel input %d is nil", i)
		}
		if seen[in.ID()] {
			return nil, errors.New(errors.ErrCodeInvalidArgument, "duplicate submodel input %s", in.ID())
		}
		seen[in.ID()] = true
		ref, err := in.ReferencedPort()
		if err != nil {
			return nil, err
		}
		stop[ref.ID()] = true
	}

	closure, err := m.order(roots, stop)
	if err != nil {
		return nil, err
	}
	members := make(map[NodeID]bool, len(closure))
	for _, n := range closure {
		members[n.ID()] = true
	}
	for _, in := range inputs {
		if in.node == nil || !members[in.node.ID()] {
			return nil, errors.New(errors.ErrCodeInvalidState, "free input %s not reachable from outputs", in.ID())
		}
	}
	// Every bound input of a member reads from a member or is free.
	for _, n := range closure {
		for _, in := range n.Inputs() {
			if in.ref == nil || seen[in.ID()] || (in.ref.node != nil && members[in.ref.node.ID()]) {
				continue
			}
			return nil, errors.New(errors.ErrCodeInvalidState,
				"input %s reads %s from outside the submodel and is not free", in.ID(), in.ref.ID())
		}
	}

	// Keep the model's visit order so graft copies match full copies.
	order, err := m.order(m.nodes, nil)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(closure))
	for _, n := range order {
		if members[n.ID()] {
			nodes = append(nodes, n)
		}
	}

	return &Submodel{
		model:   m,
		inputs:  append([]*InputPort(nil), inputs...),
		outputs: append([]*OutputPort(nil), outputs...),
		nodes:   nodes,
		members: members,
	}, nil
}

// Model returns the underlying model.
func (s *Submodel) Model() *Model { return s.model }

// Inputs returns the free inputs in canonical order.
func (s *Submodel) Inputs() []*InputPort { return s.inputs }

// Outputs returns the root outputs.
func (s *Submodel) Outputs() []*OutputPort { return s.outputs }

// NumInputs returns the number of free inputs.
func (s *Submodel) NumInputs() int { return len(s.inputs) }

// Size returns the number of member nodes.
func (s *Submodel) Size() int { return len(s.nodes) }

// Nodes returns the member nodes in dependency order.
func (s *Submodel) Nodes() []Node { return append([]Node(nil), s.nodes...) }

// Contains reports whether n is a member.
func (s *Submodel) Contains(n Node) bool { return n != nil && s.members[n.ID()] }

// Visit calls fn for every member in dependency order.
func (s *Submodel) Visit(fn func(Node) error) error {
	for _, n := range s.nodes {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}
