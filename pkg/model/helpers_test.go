package model_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/compiler"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

// mustAdd adds n to dst and fails the test on error.
func mustAdd[T model.Node](t *testing.T, dst model.NodeAdder, n T) T {
	t.Helper()
	added, err := model.Add(dst, n)
	require.NoError(t, err)
	return added
}

// shape describes a model independently of node ids: one line per node with
// its kind, attributes, the positions of the nodes it reads from and its
// output shapes.
func shape(t *testing.T, m *model.Model) []string {
	t.Helper()
	pos := make(map[model.NodeID]int)
	lines := make([]string, 0, m.Size())
	for i, n := range m.Nodes() {
		pos[n.ID()] = i
		var ins []string
		for _, in := range n.Inputs() {
			ref, err := in.ReferencedPort()
			require.NoError(t, err)
			ins = append(ins, fmt.Sprintf("%d.%s", pos[ref.Node().ID()], ref.Name()))
		}
		var outs []string
		for _, out := range n.Outputs() {
			outs = append(outs, fmt.Sprintf("%s:%s:%d", out.Name(), out.Type(), out.Size()))
		}
		var attrs model.Attributes
		if a, ok := n.(model.Archiver); ok {
			attrs, _ = a.Archive()
		}
		lines = append(lines, fmt.Sprintf("%s%v(%s)->%s", n.Kind(), attrs, strings.Join(ins, ","), strings.Join(outs, ",")))
	}
	return lines
}

func primitiveContext() *model.TransformContext {
	return model.NewTransformContext(compiler.New(nodes.CompilableKinds()...))
}

// normModel builds out = l2norm(affine(x)) for a real input of size 3.
func normModel(t *testing.T) (*model.Model, *nodes.L2NormNode) {
	t.Helper()
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))
	a := mustAdd(t, m, nodes.NewAffine(x.Output(), []float64{1, 2, 3}, []float64{0, 1, 0}))
	norm := mustAdd(t, m, nodes.NewL2Norm(a.Output()))
	mustAdd(t, m, nodes.NewOutput(norm.Output()))
	return m, norm
}
