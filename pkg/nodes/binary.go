package nodes

import (
	"math"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// BinaryOp is an elementwise operation on two vectors of equal size.
type BinaryOp string

const (
	OpAdd      BinaryOp = "add"
	OpSubtract BinaryOp = "subtract"
	OpMultiply BinaryOp = "multiply"
	OpDivide   BinaryOp = "divide"
	OpMin      BinaryOp = "min"
	OpMax      BinaryOp = "max"
)

var binaryFuncs = map[BinaryOp]func(a, b float64) float64{
	OpAdd:      func(a, b float64) float64 { return a + b },
	OpSubtract: func(a, b float64) float64 { return a - b },
	OpMultiply: func(a, b float64) float64 { return a * b },
	OpDivide:   func(a, b float64) float64 { return a / b },
	OpMin:      math.Min,
	OpMax:      math.Max,
}

// ParseBinaryOp checks that s names a binary operation.
func ParseBinaryOp(s string) (BinaryOp, error) {
	op := BinaryOp(s)
	if _, ok := binaryFuncs[op]; !ok {
		return "", errors.New(errors.ErrCodeInvalidArgument, "unknown binary operation %q", s)
	}
	return op, nil
}

// BinaryOperationNode combines two vectors element by element.
type BinaryOperationNode struct {
	model.NodeBase
	op     BinaryOp
	inputA *model.InputPort
	inputB *model.InputPort
	output *model.OutputPort
}

// NewBinary creates a binary operation on a and b.
func NewBinary(op BinaryOp, a, b *model.OutputPort) *BinaryOperationNode {
	n := &BinaryOperationNode{op: op}
	n.Init(n, KindBinary)
	if _, ok := binaryFuncs[op]; !ok {
		n.Fail("unknown operation %q", op)
	}
	n.inputA = bind(&n.NodeBase, "input_a", a)
	n.inputB = bind(&n.NodeBase, "input_b", b)
	sameShape(&n.NodeBase, a, b)
	if op == OpDivide {
		requireReal(&n.NodeBase, "divide", a)
	}
	n.output = n.AddOutput("output", n.inputA.Type(), n.inputA.Size())
	return n
}

// Operation returns the operation.
func (n *BinaryOperationNode) Operation() BinaryOp { return n.op }

// InputA returns the left operand port.
func (n *BinaryOperationNode) InputA() *model.InputPort { return n.inputA }

// InputB returns the right operand port.
func (n *BinaryOperationNode) InputB() *model.InputPort { return n.inputB }

// Output returns the result port.
func (n *BinaryOperationNode) Output() *model.OutputPort { return n.output }

func (n *BinaryOperationNode) Copy(t *model.Transformer) error {
	a, err := t.GetCorrespondingInputs(n.inputA)
	if err != nil {
		return err
	}
	b, err := t.GetCorrespondingInputs(n.inputB)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewBinary(n.op, a, b))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *BinaryOperationNode) Compute() error {
	a, err := n.inputA.Values()
	if err != nil {
		return err
	}
	b, err := n.inputB.Values()
	if err != nil {
		return err
	}
	fn := binaryFuncs[n.op]
	out := make([]float64, len(a))
	for i := range a {
		out[i] = fn(a[i], b[i])
	}
	return n.output.SetValues(out)
}

func (n *BinaryOperationNode) Archive() (model.Attributes, error) {
	return model.Attributes{"op": string(n.op)}, nil
}
