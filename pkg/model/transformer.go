package model

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// NodeTransformFunc transforms one source node into the transformer's
// destination model. It must map every output of n it wants downstream
// nodes to see.
type NodeTransformFunc func(n Node, t *Transformer) error

// PassInfo describes one finished pass of a transformation.
type PassInfo struct {
	Operation  string
	Pass       int
	NodeCount  int
	Refined    int
	Compilable bool
	Duration   time.Duration
}

// Stats are the counters of the last operation.
type Stats struct {
	Passes       int `json:"passes"`
	NodesAdded   int `json:"nodes_added"`
	NodesRefined int `json:"nodes_refined"`
	NodesElided  int `json:"nodes_elided"`
	NodesDeleted int `json:"nodes_deleted"`
}

// Option configures a [Transformer].
type Option func(*Transformer)

// WithLogger sets the logger. Passes log at debug level, operations at info.
func WithLogger(logger *log.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithPassHook sets [Transformer.OnPass].
func WithPassHook(fn func(PassInfo)) Option {
	return func(t *Transformer) { t.OnPass = fn }
}

// Transformer copies, refines and grafts models. After an operation it
// answers which destination port corresponds to a source port.
//
// A Transformer holds the state of one operation at a time and must not be
// shared between goroutines. It can be reused sequentially; every operation
// starts from an empty port map.
type Transformer struct {
	model             *Model
	context           *TransformContext
	elements          portMap
	isModelCompilable bool
	isInPlace         bool

	refinedThisPass int
	stats           Stats
	logger          *log.Logger

	// OnPass, if set, is called after every pass of every operation.
	OnPass func(PassInfo)
}

// NewTransformer creates a transformer.
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// =============================================================================
// Model-level operations
// =============================================================================

// CopyModel returns a structurally identical copy of m with fresh node ids.
func (t *Transformer) CopyModel(m *Model, tc *TransformContext) (*Model, error) {
	return t.transform("copy", m, tc, copyNode)
}

// TransformModel builds a new model by calling fn for every node of m in
// dependency order.
func (t *Transformer) TransformModel(m *Model, tc *TransformContext, fn NodeTransformFunc) (*Model, error) {
	if fn == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil transform function")
	}
	return t.transform("transform", m, tc, fn)
}

func (t *Transformer) transform(op string, m *Model, tc *TransformContext, fn NodeTransformFunc) (*Model, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "%s of nil model", op)
	}
	start := time.Now()
	t.stats = Stats{}
	t.begin(NewModel(), tc, false)
	if err := m.Visit(t.visitor(fn)); err != nil {
		return nil, fmt.Errorf("%s model: %w", op, err)
	}
	t.endPass(op, 1, start)
	t.logger.Info("transformed model", "op", op, "nodes", t.model.Size(), "duration", time.Since(start))
	return t.model, nil
}

// CopySubmodel copies the nodes of sub into a new model. The submodel must
// not have free inputs.
func (t *Transformer) CopySubmodel(sub *Submodel, tc *TransformContext) (*Submodel, error) {
	if sub == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "copy of nil submodel")
	}
	if sub.NumInputs() != 0 {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"submodel has %d free inputs; use CopySubmodelOnto", sub.NumInputs())
	}
	return t.TransformSubmodelOnto(sub, NewModel(), nil, tc, copyNode)
}

// CopySubmodelOnto grafts a copy of sub into dest. The i-th free input of
// sub is fed from onto[i]. When dest is the submodel's own model the copy
// is in place: nodes whose inputs are unchanged are reused instead of
// duplicated.
func (t *Transformer) CopySubmodelOnto(sub *Submodel, dest *Model, onto []*OutputPort, tc *TransformContext) (*Submodel, error) {
	return t.TransformSubmodelOnto(sub, dest, onto, tc, copyNode)
}

// TransformSubmodelOnto is [Transformer.CopySubmodelOnto] with a custom
// transform function.
func (t *Transformer) TransformSubmodelOnto(sub *Submodel, dest *Model, onto []*OutputPort, tc *TransformContext, fn NodeTransformFunc) (*Submodel, error) {
	switch {
	case sub == nil:
		return nil, errors.New(errors.ErrCodeInvalidArgument, "transform of nil submodel")
	case dest == nil:
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil destination model")
	case fn == nil:
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil transform function")
	case len(onto) != sub.NumInputs():
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"submodel has %d free inputs, got %d graft ports", sub.NumInputs(), len(onto))
	}

	start := time.Now()
	t.stats = Stats{}
	t.begin(dest, tc, dest == sub.Model())
	for i, in := range sub.Inputs() {
		if err := t.seed(in, onto[i]); err != nil {
			return nil, err
		}
	}
	if err := sub.Visit(t.visitor(fn)); err != nil {
		return nil, fmt.Errorf("graft submodel: %w", err)
	}
	t.endPass("graft", 1, start)

	outputs := make([]*OutputPort, len(sub.Outputs()))
	for i, out := range sub.Outputs() {
		p, err := t.GetCorrespondingOutputs(out)
		if err != nil {
			return nil, err
		}
		outputs[i] = p
	}
	t.logger.Info("grafted submodel", "nodes", sub.Size(), "in_place", t.isInPlace, "duration", time.Since(start))
	return NewSubmodel(dest, outputs)
}

func (t *Transformer) seed(in *InputPort, onto *OutputPort) error {
	ref, err := in.ReferencedPort()
	if err != nil {
		return err
	}
	if onto == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "nil graft port for input %s", in.ID())
	}
	if err := t.model.checkOwned(onto); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, err, "graft port for input %s", in.ID())
	}
	if onto.Type() != ref.Type() || onto.Size() != ref.Size() {
		return errors.New(errors.ErrCodeInvalidArgument,
			"graft port %s (%s x%d) does not match %s (%s x%d)",
			onto.ID(), onto.Type(), onto.Size(), ref.ID(), ref.Type(), ref.Size())
	}
	if prev, ok := t.elements.get(ref.ID()); ok && prev != onto {
		return errors.New(errors.ErrCodeInvalidArgument,
			"inputs referencing %s are grafted onto both %s and %s", ref.ID(), prev.ID(), onto.ID())
	}
	t.elements[ref.ID()] = onto
	return nil
}

// RefineModel lowers m pass by pass. Each pass visits the previous pass's
// result and either copies or refines every node, as tc decides. It stops
// when a pass refines nothing, when every node is compilable, or after
// maxIterations passes. Port queries afterwards are answered against m.
func (t *Transformer) RefineModel(m *Model, tc *TransformContext, maxIterations int) (*Model, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "refine of nil model")
	}
	if maxIterations < 1 {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "maxIterations must be at least 1, got %d", maxIterations)
	}

	start := time.Now()
	t.stats = Stats{}
	current := m
	var composite portMap
	for pass := 1; pass <= maxIterations; pass++ {
		passStart := time.Now()
		t.begin(NewModel(), tc, false)
		err := current.Visit(t.visitor(func(n Node, t *Transformer) error {
			if tc.NodeAction(n) == NodeActionCompile {
				return t.CopyNode(n)
			}
			return t.RefineNode(n)
		}))
		if err != nil {
			return nil, fmt.Errorf("refine pass %d: %w", pass, err)
		}
		if composite == nil {
			composite = t.elements
		} else {
			composite = compose(composite, t.elements)
		}
		t.endPass("refine", pass, passStart)
		current = t.model
		if t.refinedThisPass == 0 || t.isModelCompilable {
			break
		}
	}
	t.elements = composite

	t.logger.Info("refined model",
		"passes", t.stats.Passes,
		"nodes", current.Size(),
		"refined", t.stats.NodesRefined,
		"compilable", t.isModelCompilable,
		"duration", time.Since(start))
	return current, nil
}

func (t *Transformer) begin(dest *Model, tc *TransformContext, inPlace bool) {
	t.model = dest
	t.context = tc
	t.elements = make(portMap)
	t.isModelCompilable = true
	t.isInPlace = inPlace
	t.refinedThisPass = 0
}

func (t *Transformer) endPass(op string, pass int, start time.Time) {
	t.stats.Passes++
	info := PassInfo{
		Operation:  op,
		Pass:       pass,
		NodeCount:  t.model.Size(),
		Refined:    t.refinedThisPass,
		Compilable: t.isModelCompilable,
		Duration:   time.Since(start),
	}
	t.logger.Debug("pass complete",
		"op", op,
		"pass", pass,
		"nodes", info.NodeCount,
		"refined", info.Refined,
		"compilable", info.Compilable)
	if t.OnPass != nil {
		t.OnPass(info)
	}
}

func (t *Transformer) visitor(fn NodeTransformFunc) func(Node) error {
	return func(n Node) error {
		if err := fn(n, t); err != nil {
			return fmt.Errorf("transform %s node %d: %w", n.Kind(), n.ID(), err)
		}
		return nil
	}
}

func copyNode(n Node, t *Transformer) error { return t.CopyNode(n) }

// =============================================================================
// Node-level operations
// =============================================================================

// CopyNode copies n into the destination. In an in-place graft a node whose
// inputs all map to themselves is not copied; its outputs map to themselves.
func (t *Transformer) CopyNode(n Node) error {
	if err := t.active(); err != nil {
		return err
	}
	if t.isInPlace && t.mapsToSelf(n) {
		for _, out := range n.Outputs() {
			if err := t.elements.set(out.ID(), out); err != nil {
				return err
			}
		}
		t.isModelCompilable = t.isModelCompilable && t.context.IsNodeCompilable(n)
		t.stats.NodesElided++
		return nil
	}
	if err := n.Copy(t); err != nil {
		return err
	}
	return t.checkMapped(n, "copy")
}

func (t *Transformer) mapsToSelf(n Node) bool {
	for _, in := range n.Inputs() {
		if in.ref == nil {
			continue
		}
		if p, ok := t.elements.get(in.ref.ID()); ok && p != in.ref {
			return false
		}
	}
	return true
}

// RefineNode lowers n. Nodes without a lowering are copied.
func (t *Transformer) RefineNode(n Node) error {
	if err := t.active(); err != nil {
		return err
	}
	refined, err := n.Refine(t)
	if err != nil {
		return err
	}
	if !refined {
		return t.CopyNode(n)
	}
	if err := t.checkMapped(n, "refinement"); err != nil {
		return err
	}
	t.refinedThisPass++
	t.stats.NodesRefined++
	return nil
}

// DeleteNode drops n. In place it is removed from the destination model;
// otherwise it is simply not copied. Dependents are left alone.
func (t *Transformer) DeleteNode(n Node) error {
	if err := t.active(); err != nil {
		return err
	}
	if t.isInPlace {
		if err := t.model.DeleteNode(n); err != nil {
			return err
		}
	}
	t.stats.NodesDeleted++
	return nil
}

// AddNode adds n to the destination model.
func (t *Transformer) AddNode(n Node) error {
	if err := t.active(); err != nil {
		return err
	}
	if err := t.model.AddNode(n); err != nil {
		return err
	}
	t.isModelCompilable = t.isModelCompilable && t.context.IsNodeCompilable(n)
	t.stats.NodesAdded++
	return nil
}

func (t *Transformer) active() error {
	if t.model == nil {
		return errors.New(errors.ErrCodeInvalidState, "transformer has no destination model")
	}
	return nil
}

func (t *Transformer) checkMapped(n Node, what string) error {
	for _, out := range n.Outputs() {
		if _, ok := t.elements.get(out.ID()); !ok {
			return errors.New(errors.ErrCodeInvalidState,
				"%s of %s node %d did not map output %s", what, n.Kind(), n.ID(), out.Name())
		}
	}
	return nil
}

// =============================================================================
// Port mapping
// =============================================================================

// MapNodeOutput records that newPort replaces oldPort. Mapping the same port
// twice is only allowed with the same target.
func (t *Transformer) MapNodeOutput(oldPort, newPort *OutputPort) error {
	if oldPort == nil || newPort == nil {
		return errors.New(errors.ErrCodeInvalidArgument, "map nil output port")
	}
	if t.elements == nil {
		return errors.New(errors.ErrCodeInvalidState, "no transformation in progress")
	}
	if oldPort.Type() != newPort.Type() || oldPort.Size() != newPort.Size() {
		return errors.New(errors.ErrCodeInvalidArgument,
			"cannot map %s (%s x%d) to %s (%s x%d)",
			oldPort.ID(), oldPort.Type(), oldPort.Size(), newPort.ID(), newPort.Type(), newPort.Size())
	}
	return t.elements.set(oldPort.ID(), newPort)
}

// GetCorrespondingOutputs returns the destination port for a source output.
func (t *Transformer) GetCorrespondingOutputs(port *OutputPort) (*OutputPort, error) {
	if port == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil output port")
	}
	p, ok := t.elements.get(port.ID())
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidState,
			"port %s not mapped; did you call CopyModel or RefineModel first?", port.ID())
	}
	if p.IsReleased() {
		return nil, errors.New(errors.ErrCodeInvalidState, "port %s maps to deleted output %s", port.ID(), p.ID())
	}
	return p, nil
}

// GetCorrespondingInputs returns the destination port a copy of the input
// should bind to.
func (t *Transformer) GetCorrespondingInputs(port *InputPort) (*OutputPort, error) {
	if port == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil input port")
	}
	ref, err := port.ReferencedPort()
	if err != nil {
		return nil, err
	}
	return t.GetCorrespondingOutputs(ref)
}

// GetCorrespondingOutputElements maps every fragment to its destination port.
func (t *Transformer) GetCorrespondingOutputElements(elements PortElements) (PortElements, error) {
	out := make(PortElements, len(elements))
	for i, r := range elements {
		p, err := t.GetCorrespondingOutputs(r.Port)
		if err != nil {
			return nil, err
		}
		out[i] = PortRange{Port: p, Start: r.Start, Count: r.Count}
	}
	return out, nil
}

// SimplifyOutputs is [Model.SimplifyOutputs] on the destination model. Splice
// nodes it creates count as added nodes.
func (t *Transformer) SimplifyOutputs(elements PortElements) (*OutputPort, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	return t.model.simplify(elements, t.AddNode)
}

// GetCorrespondingInputNode returns the destination node that replaced the
// source node n. n must be a source node without inputs, such as an input
// node, whose single output was mapped by the last operation.
func (t *Transformer) GetCorrespondingInputNode(n Node) (Node, error) {
	if n == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil node")
	}
	if len(n.Inputs()) != 0 || len(n.Outputs()) != 1 {
		return nil, errors.New(errors.ErrCodeInvalidArgument,
			"%s node %d is not a source node", n.Kind(), n.ID())
	}
	p, err := t.GetCorrespondingOutputs(n.Outputs()[0])
	if err != nil {
		return nil, err
	}
	dest := p.Node()
	if dest.Kind() != n.Kind() {
		return nil, errors.New(errors.ErrCodeInvalidState,
			"%s node %d maps to a %s node", n.Kind(), n.ID(), dest.Kind())
	}
	return dest, nil
}

// Reset forgets the last operation. Port queries fail until the next one.
func (t *Transformer) Reset() {
	t.model = nil
	t.context = nil
	t.elements = nil
	t.isModelCompilable = false
	t.isInPlace = false
	t.refinedThisPass = 0
	t.stats = Stats{}
}

// Model returns the destination model of the last operation.
func (t *Transformer) Model() *Model { return t.model }

// Context returns the context of the last operation.
func (t *Transformer) Context() *TransformContext { return t.context }

// IsInPlace reports whether the last operation grafted into its source model.
func (t *Transformer) IsInPlace() bool { return t.isInPlace }

// IsModelCompilable reports whether every node added by the last pass is
// accepted by the context's compiler.
func (t *Transformer) IsModelCompilable() bool { return t.isModelCompilable }

// Stats returns the counters of the last operation.
func (t *Transformer) Stats() Stats { return t.stats }
