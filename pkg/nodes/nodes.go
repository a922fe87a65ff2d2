package nodes

import (
	"github.com/matzehuels/flowgraph/pkg/model"
)

func bind(n *model.NodeBase, name string, p *model.OutputPort) *model.InputPort {
	if p == nil {
		n.Fail("input %q is not connected", name)
	}
	return n.AddInput(name, p)
}

func sameShape(n *model.NodeBase, a, b *model.OutputPort) {
	if a == nil || b == nil {
		return
	}
	if a.Type() != b.Type() {
		n.Fail("operand types differ: %s and %s", a.Type(), b.Type())
	}
	if a.Size() != b.Size() {
		n.Fail("operand sizes differ: %d and %d", a.Size(), b.Size())
	}
}

// requireReal rejects integer and boolean operands of kinds whose result is
// not integral.
func requireReal(n *model.NodeBase, what string, p *model.OutputPort) {
	if p == nil {
		return
	}
	if t := p.Type(); t != model.PortTypeReal && t != model.PortTypeSmallReal {
		n.Fail("%s needs a real input, got %s", what, p.Type())
	}
}

func correspondingPair(t *model.Transformer, a, b *model.InputPort) (*model.OutputPort, *model.OutputPort, error) {
	x, err := t.GetCorrespondingInputs(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := t.GetCorrespondingInputs(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
