package nodes

import (
	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// AffineNode computes scale*x + bias elementwise. It refines to two
// constants, a multiply and an add.
type AffineNode struct {
	model.NodeBase
	scale  []float64
	bias   []float64
	input  *model.InputPort
	output *model.OutputPort
}

// NewAffine creates an affine transform of x. scale and bias must have the
// size of x.
func NewAffine(x *model.OutputPort, scale, bias []float64) *AffineNode {
	n := &AffineNode{
		scale: append([]float64(nil), scale...),
		bias:  append([]float64(nil), bias...),
	}
	n.Init(n, KindAffine)
	n.input = bind(&n.NodeBase, "input", x)
	if x != nil && (len(scale) != x.Size() || len(bias) != x.Size()) {
		n.Fail("scale and bias must have %d values, got %d and %d", x.Size(), len(scale), len(bias))
	}
	n.output = n.AddOutput("output", n.input.Type(), n.input.Size())
	return n
}

// Output returns the result port.
func (n *AffineNode) Output() *model.OutputPort { return n.output }

func (n *AffineNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewAffine(x, n.scale, n.bias))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *AffineNode) Refine(t *model.Transformer) (bool, error) {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return false, err
	}
	scale, err := model.Add(t, NewConstant(x.Type(), n.scale...))
	if err != nil {
		return false, err
	}
	bias, err := model.Add(t, NewConstant(x.Type(), n.bias...))
	if err != nil {
		return false, err
	}
	scaled, err := model.Add(t, NewBinary(OpMultiply, x, scale.Output()))
	if err != nil {
		return false, err
	}
	shifted, err := model.Add(t, NewBinary(OpAdd, scaled.Output(), bias.Output()))
	if err != nil {
		return false, err
	}
	return true, t.MapNodeOutput(n.output, shifted.Output())
}

func (n *AffineNode) Compute() error {
	x, err := n.input.Values()
	if err != nil {
		return err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*n.scale[i] + n.bias[i]
	}
	return n.output.SetValues(out)
}

func (n *AffineNode) Archive() (model.Attributes, error) {
	return model.Attributes{"scale": n.scale, "bias": n.bias}, nil
}

// SinkFunc receives the values that reach a sink.
type SinkFunc func(values []float64)

// SinkNode hands its input to a callback and passes it through. It only
// exists in runtime graphs and cannot be archived.
type SinkNode struct {
	model.NodeBase
	fn     SinkFunc
	input  *model.InputPort
	output *model.OutputPort
}

// NewSink creates a sink on x.
func NewSink(x *model.OutputPort, fn SinkFunc) *SinkNode {
	n := &SinkNode{fn: fn}
	n.Init(n, KindSink)
	n.input = bind(&n.NodeBase, "input", x)
	if fn == nil {
		n.Fail("sink needs a callback")
	}
	n.output = n.AddOutput("output", n.input.Type(), n.input.Size())
	return n
}

// Output returns the pass-through port.
func (n *SinkNode) Output() *model.OutputPort { return n.output }

func (n *SinkNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewSink(x, n.fn))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *SinkNode) Compute() error {
	v, err := n.input.Values()
	if err != nil {
		return err
	}
	n.fn(append([]float64(nil), v...))
	return n.output.SetValues(v)
}

func (n *SinkNode) Archive() (model.Attributes, error) {
	return nil, errors.New(errors.ErrCodeNotImplemented, "sink nodes cannot be archived")
}
