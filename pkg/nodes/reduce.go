package nodes

import (
	"math"

	"github.com/matzehuels/flowgraph/pkg/model"
)

// SumNode adds up the elements of a vector.
type SumNode struct {
	model.NodeBase
	input  *model.InputPort
	output *model.OutputPort
}

// NewSum creates a sum over x.
func NewSum(x *model.OutputPort) *SumNode {
	n := &SumNode{}
	n.Init(n, KindSum)
	n.input = bind(&n.NodeBase, "input", x)
	n.output = n.AddOutput("output", n.input.Type(), 1)
	return n
}

// Input returns the operand port.
func (n *SumNode) Input() *model.InputPort { return n.input }

// Output returns the scalar result port.
func (n *SumNode) Output() *model.OutputPort { return n.output }

func (n *SumNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewSum(x))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *SumNode) Compute() error {
	x, err := n.input.Values()
	if err != nil {
		return err
	}
	var s float64
	for _, v := range x {
		s += v
	}
	return n.output.SetValues([]float64{s})
}

func (n *SumNode) Archive() (model.Attributes, error) { return model.Attributes{}, nil }

// DotProductNode computes the dot product of two vectors. It refines to an
// elementwise multiply followed by a sum.
type DotProductNode struct {
	model.NodeBase
	inputA *model.InputPort
	inputB *model.InputPort
	output *model.OutputPort
}

// NewDotProduct creates a dot product of a and b.
func NewDotProduct(a, b *model.OutputPort) *DotProductNode {
	n := &DotProductNode{}
	n.Init(n, KindDot)
	n.inputA = bind(&n.NodeBase, "input_a", a)
	n.inputB = bind(&n.NodeBase, "input_b", b)
	sameShape(&n.NodeBase, a, b)
	n.output = n.AddOutput("output", n.inputA.Type(), 1)
	return n
}

// Output returns the scalar result port.
func (n *DotProductNode) Output() *model.OutputPort { return n.output }

func (n *DotProductNode) Copy(t *model.Transformer) error {
	a, b, err := correspondingPair(t, n.inputA, n.inputB)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewDotProduct(a, b))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *DotProductNode) Refine(t *model.Transformer) (bool, error) {
	a, b, err := correspondingPair(t, n.inputA, n.inputB)
	if err != nil {
		return false, err
	}
	product, err := model.Add(t, NewBinary(OpMultiply, a, b))
	if err != nil {
		return false, err
	}
	sum, err := model.Add(t, NewSum(product.Output()))
	if err != nil {
		return false, err
	}
	return true, t.MapNodeOutput(n.output, sum.Output())
}

func (n *DotProductNode) Compute() error {
	a, err := n.inputA.Values()
	if err != nil {
		return err
	}
	b, err := n.inputB.Values()
	if err != nil {
		return err
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return n.output.SetValues([]float64{s})
}

func (n *DotProductNode) Archive() (model.Attributes, error) { return model.Attributes{}, nil }

// L2NormNode computes the euclidean norm of a vector. It refines to a dot
// product with itself and a square root, which refines once more.
type L2NormNode struct {
	model.NodeBase
	input  *model.InputPort
	output *model.OutputPort
}

// NewL2Norm creates the norm of x.
func NewL2Norm(x *model.OutputPort) *L2NormNode {
	n := &L2NormNode{}
	n.Init(n, KindL2Norm)
	n.input = bind(&n.NodeBase, "input", x)
	requireReal(&n.NodeBase, "l2norm", x)
	n.output = n.AddOutput("output", n.input.Type(), 1)
	return n
}

// Output returns the scalar result port.
func (n *L2NormNode) Output() *model.OutputPort { return n.output }

func (n *L2NormNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewL2Norm(x))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *L2NormNode) Refine(t *model.Transformer) (bool, error) {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return false, err
	}
	dot, err := model.Add(t, NewDotProduct(x, x))
	if err != nil {
		return false, err
	}
	root, err := model.Add(t, NewUnary(OpSqrt, dot.Output()))
	if err != nil {
		return false, err
	}
	return true, t.MapNodeOutput(n.output, root.Output())
}

func (n *L2NormNode) Compute() error {
	x, err := n.input.Values()
	if err != nil {
		return err
	}
	var s float64
	for _, v := range x {
		s += v * v
	}
	return n.output.SetValues([]float64{math.Sqrt(s)})
}

func (n *L2NormNode) Archive() (model.Attributes, error) { return model.Attributes{}, nil }

// MeanNode averages the elements of a vector. It refines to a sum scaled by
// a constant.
type MeanNode struct {
	model.NodeBase
	input  *model.InputPort
	output *model.OutputPort
}

// NewMean creates the mean of x.
func NewMean(x *model.OutputPort) *MeanNode {
	n := &MeanNode{}
	n.Init(n, KindMean)
	n.input = bind(&n.NodeBase, "input", x)
	requireReal(&n.NodeBase, "mean", x)
	if x != nil && x.Size() == 0 {
		n.Fail("mean of an empty vector")
	}
	n.output = n.AddOutput("output", n.input.Type(), 1)
	return n
}

// Output returns the scalar result port.
func (n *MeanNode) Output() *model.OutputPort { return n.output }

func (n *MeanNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewMean(x))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *MeanNode) Refine(t *model.Transformer) (bool, error) {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return false, err
	}
	sum, err := model.Add(t, NewSum(x))
	if err != nil {
		return false, err
	}
	scale, err := model.Add(t, NewConstant(x.Type(), 1/float64(x.Size())))
	if err != nil {
		return false, err
	}
	mean, err := model.Add(t, NewBinary(OpMultiply, sum.Output(), scale.Output()))
	if err != nil {
		return false, err
	}
	return true, t.MapNodeOutput(n.output, mean.Output())
}

func (n *MeanNode) Compute() error {
	x, err := n.input.Values()
	if err != nil {
		return err
	}
	var s float64
	for _, v := range x {
		s += v
	}
	return n.output.SetValues([]float64{s * (1 / float64(len(x)))})
}

func (n *MeanNode) Archive() (model.Attributes, error) { return model.Attributes{}, nil }
