package nodes

import (
	"math"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// UnaryOp is an elementwise operation on one vector.
type UnaryOp string

const (
	OpNegate     UnaryOp = "negate"
	OpAbs        UnaryOp = "abs"
	OpSqrt       UnaryOp = "sqrt"
	OpExp        UnaryOp = "exp"
	OpLog        UnaryOp = "log"
	OpSquare     UnaryOp = "square"
	OpLogicalNot UnaryOp = "not"
)

var unaryFuncs = map[UnaryOp]func(float64) float64{
	OpNegate: func(x float64) float64 { return -x },
	OpAbs:    math.Abs,
	OpSqrt:   math.Sqrt,
	OpExp:    math.Exp,
	OpLog:    math.Log,
	OpSquare: func(x float64) float64 { return x * x },
	OpLogicalNot: func(x float64) float64 {
		if x == 0 {
			return 1
		}
		return 0
	},
}

// ParseUnaryOp checks that s names a unary operation.
func ParseUnaryOp(s string) (UnaryOp, error) {
	op := UnaryOp(s)
	if _, ok := unaryFuncs[op]; !ok {
		return "", errors.New(errors.ErrCodeInvalidArgument, "unknown unary operation %q", s)
	}
	return op, nil
}

// UnaryOperationNode applies a unary operation to every element.
type UnaryOperationNode struct {
	model.NodeBase
	op     UnaryOp
	input  *model.InputPort
	output *model.OutputPort
}

// NewUnary creates a unary operation on x.
func NewUnary(op UnaryOp, x *model.OutputPort) *UnaryOperationNode {
	n := &UnaryOperationNode{op: op}
	n.Init(n, KindUnary)
	if _, ok := unaryFuncs[op]; !ok {
		n.Fail("unknown operation %q", op)
	}
	n.input = bind(&n.NodeBase, "input", x)
	switch op {
	case OpLogicalNot:
		if x != nil && x.Type() != model.PortTypeBoolean {
			n.Fail("logical not needs a boolean input, got %s", x.Type())
		}
	case OpSqrt, OpExp, OpLog:
		requireReal(&n.NodeBase, string(op), x)
	}
	n.output = n.AddOutput("output", n.input.Type(), n.input.Size())
	return n
}

// Operation returns the operation.
func (n *UnaryOperationNode) Operation() UnaryOp { return n.op }

// Input returns the operand port.
func (n *UnaryOperationNode) Input() *model.InputPort { return n.input }

// Output returns the result port.
func (n *UnaryOperationNode) Output() *model.OutputPort { return n.output }

func (n *UnaryOperationNode) Copy(t *model.Transformer) error {
	x, err := t.GetCorrespondingInputs(n.input)
	if err != nil {
		return err
	}
	c, err := model.Add(t, NewUnary(n.op, x))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, c.output)
}

func (n *UnaryOperationNode) Compute() error {
	x, err := n.input.Values()
	if err != nil {
		return err
	}
	fn := unaryFuncs[n.op]
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = fn(v)
	}
	return n.output.SetValues(out)
}

func (n *UnaryOperationNode) Archive() (model.Attributes, error) {
	return model.Attributes{"op": string(n.op)}, nil
}
