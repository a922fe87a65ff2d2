package model

import (
	"slices"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// Model owns a set of nodes. Nodes are kept in insertion order, which
// doubles as an approximation of topological order since a node can only
// reference outputs that already exist.
//
// The zero value is not usable - use [NewModel].
// Model is not safe for concurrent use.
type Model struct {
	nodes   []Node
	index   map[NodeID]Node
	splices map[string]*OutputPort
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		index:   make(map[NodeID]Node),
		splices: make(map[string]*OutputPort),
	}
}

// AddNode validates n and appends it. Every bound input of n must reference
// an output of a node already in the model. A rejected node has its inputs
// unbound, so its producers do not keep a reader outside the model.
func (m *Model) AddNode(n Node) error {
	if n == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "add nil node")
	}
	if _, ok := m.index[n.ID()]; ok {
		return errors.New(errors.ErrCodeInvalidArgument, "node %d (%s) is already in the model", n.ID(), n.Kind())
	}
	o, _ := n.(owned)
	if o != nil && o.ownerModel() != nil {
		return errors.New(errors.ErrCodeInvalidArgument, "node %d (%s) belongs to another model", n.ID(), n.Kind())
	}
	if err := m.accept(n); err != nil {
		for _, in := range n.Inputs() {
			in.Unbind()
		}
		return err
	}

	m.nodes = append(m.nodes, n)
	m.index[n.ID()] = n
	if o != nil {
		o.setOwner(m)
	}
	if s, ok := n.(*SpliceNode); ok {
		key := s.Elements().Key()
		if _, exists := m.splices[key]; !exists {
			m.splices[key] = s.output
		}
	}
	return nil
}

func (m *Model) accept(n Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	for _, in := range n.Inputs() {
		if in.ref == nil {
			continue
		}
		if err := m.checkOwned(in.ref); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArgument, err, "add %s node %d: input %s", n.Kind(), n.ID(), in.Name())
		}
	}
	return nil
}

func (m *Model) checkOwned(p *OutputPort) error {
	if p.released {
		return errors.New(errors.ErrCodeInvalidState, "output %s belongs to a deleted node", p.ID())
	}
	if p.node == nil || m.index[p.node.ID()] != p.node {
		return errors.New(errors.ErrCodeInvalidArgument, "output %s is not owned by this model", p.ID())
	}
	return nil
}

// Size returns the number of nodes.
func (m *Model) Size() int { return len(m.nodes) }

// Nodes returns the nodes in insertion order. The slice is a copy.
func (m *Model) Nodes() []Node { return slices.Clone(m.nodes) }

// Node returns the node with the given id.
func (m *Model) Node(id NodeID) (Node, bool) {
	n, ok := m.index[id]
	return n, ok
}

// Contains reports whether n is owned by the model.
func (m *Model) Contains(n Node) bool {
	if n == nil {
		return false
	}
	return m.index[n.ID()] == n
}

// NodesOfKind returns the nodes of the given kind in insertion order.
func (m *Model) NodesOfKind(kind string) []Node {
	var out []Node
	for _, n := range m.nodes {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// Visit calls fn for every node such that producers are visited before their
// consumers. Among independent nodes insertion order is kept. Visiting stops
// at the first error.
func (m *Model) Visit(fn func(Node) error) error {
	order, err := m.order(m.nodes, nil)
	if err != nil {
		return err
	}
	for _, n := range order {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// VisitSubset visits, in dependency order, only the nodes needed to compute
// the given outputs.
func (m *Model) VisitSubset(outputs []*OutputPort, fn func(Node) error) error {
	roots := make([]Node, 0, len(outputs))
	for _, p := range outputs {
		if p == nil {
			return errors.New(errors.ErrCodeInvalidArgument, "nil output port")
		}
		if err := m.checkOwned(p); err != nil {
			return err
		}
		roots = append(roots, p.node)
	}
	order, err := m.order(roots, nil)
	if err != nil {
		return err
	}
	for _, n := range order {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// order returns the backward closure of roots in dependency order. The walk
// does not cross into producers of ports listed in stop.
func (m *Model) order(roots []Node, stop map[PortID]bool) ([]Node, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[NodeID]int)
	order := make([]Node, 0, len(roots))

	var dfs func(n Node) error
	dfs = func(n Node) error {
		switch color[n.ID()] {
		case gray:
			return errors.New(errors.ErrCodeInvalidState, "model contains a cycle through %s node %d", n.Kind(), n.ID())
		case black:
			return nil
		}
		color[n.ID()] = gray
		for _, in := range n.Inputs() {
			if in.ref == nil || in.ref.node == nil || stop[in.ref.ID()] {
				continue
			}
			if err := dfs(in.ref.node); err != nil {
				return err
			}
		}
		color[n.ID()] = black
		order = append(order, n)
		return nil
	}

	for _, n := range roots {
		if err := dfs(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DeleteNode removes n from the model. Its inputs are unbound and its
// outputs are released; inputs elsewhere that still reference those outputs
// become stale and fail on use. Dependents are not deleted.
func (m *Model) DeleteNode(n Node) error {
	if !m.Contains(n) {
		return errors.New(errors.ErrCodeInvalidArgument, "node is not in the model")
	}
	for _, in := range n.Inputs() {
		in.Unbind()
	}
	for _, out := range n.Outputs() {
		out.release()
	}
	for key, p := range m.splices {
		if p.node == n {
			delete(m.splices, key)
		}
	}
	delete(m.index, n.ID())
	if o, ok := n.(owned); ok {
		o.setOwner(nil)
	}
	m.nodes = slices.DeleteFunc(m.nodes, func(x Node) bool { return x == n })
	return nil
}

// Validate checks the model invariants: every node validates, every bound
// input references a live output of this model with a matching type, and the
// graph is acyclic.
func (m *Model) Validate() error {
	for _, n := range m.nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		for _, in := range n.Inputs() {
			if in.ref == nil {
				continue
			}
			if err := m.checkOwned(in.ref); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidState, err, "%s node %d input %s", n.Kind(), n.ID(), in.Name())
			}
			if in.typ != in.ref.typ {
				return errors.New(errors.ErrCodeInvalidState,
					"input %s has type %s but references %s of type %s", in.ID(), in.typ, in.ref.ID(), in.ref.typ)
			}
		}
	}
	_, err := m.order(m.nodes, nil)
	return err
}

// SimplifyOutputs returns a single output port carrying elements. A list that
// is exactly one whole port returns that port. Otherwise a splice node is
// added; simplifying an equal fragment list again returns the same port.
func (m *Model) SimplifyOutputs(elements PortElements) (*OutputPort, error) {
	return m.simplify(elements, m.AddNode)
}

func (m *Model) simplify(elements PortElements, add func(Node) error) (*OutputPort, error) {
	if err := elements.Validate(); err != nil {
		return nil, err
	}
	elements = elements.Consolidate()
	for _, r := range elements {
		if err := m.checkOwned(r.Port); err != nil {
			return nil, err
		}
	}
	if elements.IsFullPortOutput() {
		return elements[0].Port, nil
	}
	key := elements.Key()
	if p, ok := m.splices[key]; ok && !p.released {
		return p, nil
	}
	splice := NewSpliceNode(elements)
	if err := add(splice); err != nil {
		return nil, err
	}
	m.splices[key] = splice.output
	return splice.output, nil
}
