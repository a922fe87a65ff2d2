package nodes

import (
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Kind names of the reference node kinds.
const (
	KindInput    = "input"
	KindConstant = "constant"
	KindOutput   = "output"
	KindUnary    = "unary"
	KindBinary   = "binary"
	KindSum      = "sum"
	KindDot      = "dot"
	KindL2Norm   = "l2norm"
	KindAffine   = "affine"
	KindMean     = "mean"
	KindSink     = "sink"
)

// InputNode is a model input. Its values are fed from outside with Feed.
type InputNode struct {
	model.NodeBase
	output *model.OutputPort
}

// NewInput creates an input producing size values of type typ.
func NewInput(typ model.PortType, size int) *InputNode {
	n := &InputNode{}
	n.Init(n, KindInput)
	if typ == model.PortTypeNone {
		n.Fail("input type must be set")
	}
	n.output = n.AddOutput("output", typ, size)
	return n
}

// Output returns the produced port.
func (n *InputNode) Output() *model.OutputPort { return n.output }

// Feed sets the values the input produces.
func (n *InputNode) Feed(values []float64) error { return n.output.SetValues(values) }

func (n *InputNode) Copy(t *model.Transformer) error {
	c, err := model.Add(t, NewInput(n.output.Type(), n.output.Size()))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

// Compute does nothing: input values are fed.
func (n *InputNode) Compute() error { return nil }

func (n *InputNode) Archive() (model.Attributes, error) {
	return model.Attributes{"type": n.output.Type().String(), "size": n.output.Size()}, nil
}

// ConstantNode produces fixed values.
type ConstantNode struct {
	model.NodeBase
	values []float64
	output *model.OutputPort
}

// NewConstant creates a constant of the given type.
func NewConstant(typ model.PortType, values ...float64) *ConstantNode {
	n := &ConstantNode{values: append([]float64(nil), values...)}
	n.Init(n, KindConstant)
	if len(values) == 0 {
		n.Fail("constant needs at least one value")
	}
	n.output = n.AddOutput("output", typ, len(values))
	return n
}

// Output returns the produced port.
func (n *ConstantNode) Output() *model.OutputPort { return n.output }

// Values returns the constant values.
func (n *ConstantNode) Values() []float64 { return n.values }

func (n *ConstantNode) Copy(t *model.Transformer) error {
	c, err := model.Add(t, NewConstant(n.output.Type(), n.values...))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *ConstantNode) Compute() error { return n.output.SetValues(n.values) }

func (n *ConstantNode) Archive() (model.Attributes, error) {
	return model.Attributes{"type": n.output.Type().String(), "values": n.values}, nil
}

// OutputNode marks a model result. It passes its input through.
type OutputNode struct {
	model.NodeBase
	input  *model.InputPort
	output *model.OutputPort
}

// NewOutput creates an output fed from x.
func NewOutput(x *model.OutputPort) *OutputNode {
	n := &OutputNode{}
	n.Init(n, KindOutput)
	n.input = bind(&n.NodeBase, "input", x)
	n.output = n.AddOutput("output", n.input.Type(), n.input.Size())
	return n
}

// Input returns the consumed port.
func (n *OutputNode) Input() *model.InputPort { return n.input }

// Output returns the result port.
func (n *OutputNode) Output() *model.OutputPort { return n.output }

func (n *OutputNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewOutput(x))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *OutputNode) Compute() error {
	v, err := n.input.Values()
	if err != nil {
		return err
	}
	return n.output.SetValues(v)
}

func (n *OutputNode) Archive() (model.Attributes, error) { return model.Attributes{}, nil }
