package nodes

import (
	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Primitive kinds emit a single instruction each. Refinable kinds do not
// implement compiler.Compilable and are lowered first.
var (
	_ compiler.Compilable = (*InputNode)(nil)
	_ compiler.Compilable = (*ConstantNode)(nil)
	_ compiler.Compilable = (*OutputNode)(nil)
	_ compiler.Compilable = (*UnaryOperationNode)(nil)
	_ compiler.Compilable = (*BinaryOperationNode)(nil)
	_ compiler.Compilable = (*SumNode)(nil)
	_ compiler.Compilable = (*SinkNode)(nil)
)

func (n *InputNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Arg(n.output)
}

func (n *ConstantNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Emit("const", n.output, nil, n.values...)
}

func (n *OutputNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	if err := f.Emit("copy", n.output, n.Inputs()); err != nil {
		return err
	}
	return f.Result(n.output)
}

func (n *UnaryOperationNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Emit(string(n.op), n.output, n.Inputs())
}

func (n *BinaryOperationNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Emit(string(n.op), n.output, n.Inputs())
}

func (n *SumNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Emit("sum", n.output, n.Inputs())
}

func (n *SinkNode) Compile(_ *compiler.Compiler, f *compiler.FunctionEmitter) error {
	return f.Emit("call_sink", n.output, n.Inputs())
}

// CompilableKinds lists the kinds that implement compiler.Compilable,
// including splice nodes.
func CompilableKinds() []string {
	return []string{KindInput, KindConstant, KindOutput, KindUnary, KindBinary, KindSum, KindSink, model.KindSplice}
}
