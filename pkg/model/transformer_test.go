package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

func TestCopyModel(t *testing.T) {
	m, norm := normModel(t)

	tr := model.NewTransformer()
	c, err := tr.CopyModel(m, primitiveContext())
	require.NoError(t, err)

	assert.Equal(t, shape(t, m), shape(t, c))
	for _, n := range c.Nodes() {
		assert.False(t, m.Contains(n), "copy shares node %d", n.ID())
	}

	p, err := tr.GetCorrespondingOutputs(norm.Output())
	require.NoError(t, err)
	assert.True(t, c.Contains(p.Node()))
	assert.Equal(t, nodes.KindL2Norm, p.Node().Kind())

	want, err := nodes.Evaluate(m, []float64{1, 2, 3})
	require.NoError(t, err)
	got, err := nodes.Evaluate(c, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, model.Stats{Passes: 1, NodesAdded: m.Size()}, tr.Stats())
	assert.False(t, tr.IsModelCompilable())
}

func TestCopyModelWithSplice(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))
	y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	joined, err := m.SimplifyOutputs(model.PortElements{
		{Port: y.Output(), Start: 1, Count: 1},
		{Port: x.Output(), Start: 0, Count: 2},
	})
	require.NoError(t, err)
	mustAdd(t, m, nodes.NewOutput(joined))

	tr := model.NewTransformer()
	c, err := tr.CopyModel(m, nil)
	require.NoError(t, err)
	assert.Equal(t, shape(t, m), shape(t, c))

	got, err := nodes.Evaluate(c, []float64{1, 2, 3}, []float64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{5, 1, 2}}, got)

	// The copied splice is registered, so simplifying the same fragments in
	// the copy reuses it.
	cx, err := tr.GetCorrespondingOutputs(x.Output())
	require.NoError(t, err)
	cy, err := tr.GetCorrespondingOutputs(y.Output())
	require.NoError(t, err)
	again, err := c.SimplifyOutputs(model.PortElements{
		{Port: cy, Start: 1, Count: 1},
		{Port: cx, Start: 0, Count: 2},
	})
	require.NoError(t, err)
	cj, err := tr.GetCorrespondingOutputs(joined)
	require.NoError(t, err)
	assert.Same(t, cj, again)
}

func TestTransformModel(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	neg := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))
	mustAdd(t, m, nodes.NewOutput(neg.Output()))

	t.Run("delete without dependents", func(t *testing.T) {
		tr := model.NewTransformer()
		c, err := tr.TransformModel(m, nil, func(n model.Node, t *model.Transformer) error {
			if n.Kind() == nodes.KindOutput {
				return t.DeleteNode(n)
			}
			return t.CopyNode(n)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, c.Size())
		assert.Equal(t, 1, tr.Stats().NodesDeleted)
	})

	t.Run("delete with dependents", func(t *testing.T) {
		tr := model.NewTransformer()
		_, err := tr.TransformModel(m, nil, func(n model.Node, t *model.Transformer) error {
			if n.Kind() == nodes.KindUnary {
				return t.DeleteNode(n)
			}
			return t.CopyNode(n)
		})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidState), "got %v", err)
	})

	t.Run("remap conflict", func(t *testing.T) {
		tr := model.NewTransformer()
		_, err := tr.TransformModel(m, nil, func(n model.Node, t *model.Transformer) error {
			if err := t.CopyNode(n); err != nil {
				return err
			}
			if n.Kind() != nodes.KindInput {
				return nil
			}
			other, err := model.Add(t, nodes.NewInput(model.PortTypeReal, 2))
			if err != nil {
				return err
			}
			return t.MapNodeOutput(x.Output(), other.Output())
		})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidState), "got %v", err)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		tr := model.NewTransformer()
		_, err := tr.TransformModel(m, nil, func(n model.Node, t *model.Transformer) error {
			if n.Kind() != nodes.KindInput {
				return t.CopyNode(n)
			}
			other, err := model.Add(t, nodes.NewInput(model.PortTypeReal, 5))
			if err != nil {
				return err
			}
			return t.MapNodeOutput(x.Output(), other.Output())
		})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument), "got %v", err)
	})

	t.Run("nil function", func(t *testing.T) {
		_, err := model.NewTransformer().TransformModel(m, nil, nil)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	})
}

func TestRefineModel(t *testing.T) {
	m, norm := normModel(t)

	var passes []model.PassInfo
	tr := model.NewTransformer(model.WithPassHook(func(p model.PassInfo) { passes = append(passes, p) }))
	r, err := tr.RefineModel(m, primitiveContext(), 10)
	require.NoError(t, err)

	// affine and l2norm refine in pass one, the dot product from l2norm in
	// pass two, after which every node is compilable.
	require.Len(t, passes, 2)
	assert.Equal(t, 2, passes[0].Refined)
	assert.False(t, passes[0].Compilable)
	assert.Equal(t, 1, passes[1].Refined)
	assert.True(t, passes[1].Compilable)
	assert.True(t, tr.IsModelCompilable())
	assert.Equal(t, 2, tr.Stats().Passes)

	for _, kind := range []string{nodes.KindAffine, nodes.KindL2Norm, nodes.KindDot} {
		assert.Empty(t, r.NodesOfKind(kind), kind)
	}

	// Queries are answered against the original model.
	p, err := tr.GetCorrespondingOutputs(norm.Output())
	require.NoError(t, err)
	assert.True(t, r.Contains(p.Node()))
	assert.Equal(t, nodes.KindUnary, p.Node().Kind())

	want, err := nodes.Evaluate(m, []float64{1, -2, 0.5})
	require.NoError(t, err)
	got, err := nodes.Evaluate(r, []float64{1, -2, 0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, want[0], got[0], 1e-12)
}

func TestRefineModelFixedPoint(t *testing.T) {
	m, _ := normModel(t)
	tc := primitiveContext()

	tr := model.NewTransformer()
	refined, err := tr.RefineModel(m, tc, 10)
	require.NoError(t, err)

	again, err := tr.RefineModel(refined, tc, 10)
	require.NoError(t, err)
	assert.Equal(t, shape(t, refined), shape(t, again))
	assert.Equal(t, 1, tr.Stats().Passes)
	assert.Zero(t, tr.Stats().NodesRefined)
}

func TestRefineModelWithoutCompiler(t *testing.T) {
	m, _ := normModel(t)

	tr := model.NewTransformer()
	_, err := tr.RefineModel(m, model.NewTransformContext(nil), 10)
	require.NoError(t, err)
	// Nothing is compilable, so refinement runs until a pass refines nothing.
	assert.Equal(t, 3, tr.Stats().Passes)
	assert.False(t, tr.IsModelCompilable())
}

func TestRefineModelOverrides(t *testing.T) {
	m, norm := normModel(t)
	keepNorm := func(n model.Node) model.NodeAction {
		if n.Kind() == nodes.KindL2Norm {
			return model.NodeActionCompile
		}
		return model.NodeActionAbstain
	}

	tr := model.NewTransformer()
	r, err := tr.RefineModel(m, model.NewTransformContext(nil, keepNorm), 10)
	require.NoError(t, err)
	assert.Len(t, r.NodesOfKind(nodes.KindL2Norm), 1)
	assert.Empty(t, r.NodesOfKind(nodes.KindAffine))

	p, err := tr.GetCorrespondingOutputs(norm.Output())
	require.NoError(t, err)
	assert.Equal(t, nodes.KindL2Norm, p.Node().Kind())
}

func TestRefineModelInvalidIterations(t *testing.T) {
	m, _ := normModel(t)
	for _, n := range []int{0, -1} {
		_, err := model.NewTransformer().RefineModel(m, nil, n)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument), "maxIterations=%d", n)
	}
}

func TestUnmappedPort(t *testing.T) {
	_, norm := normModel(t)

	tr := model.NewTransformer()
	_, err := tr.GetCorrespondingOutputs(norm.Output())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
	assert.Contains(t, err.Error(), "did you call CopyModel or RefineModel first?")

	other := model.NewModel()
	x := mustAdd(t, other, nodes.NewInput(model.PortTypeReal, 1))
	_, err = tr.CopyModel(other, nil)
	require.NoError(t, err)

	_, err = tr.GetCorrespondingOutputs(norm.Output())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
	_, err = tr.GetCorrespondingOutputs(x.Output())
	assert.NoError(t, err)

	_, err = tr.GetCorrespondingOutputs(nil)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
}

func TestTransformerWithoutOperation(t *testing.T) {
	tr := model.NewTransformer()
	err := tr.AddNode(nodes.NewInput(model.PortTypeReal, 1))
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))

	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 1))
	err = tr.MapNodeOutput(x.Output(), x.Output())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
}

func TestTransformContext(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	dot := mustAdd(t, m, nodes.NewDotProduct(x.Output(), x.Output()))

	always := func(a model.NodeAction) model.NodeActionFunc {
		return func(model.Node) model.NodeAction { return a }
	}

	tests := []struct {
		name string
		tc   *model.TransformContext
		node model.Node
		want model.NodeAction
	}{
		{"compilable default", primitiveContext(), x, model.NodeActionCompile},
		{"refinable default", primitiveContext(), dot, model.NodeActionRefine},
		{"no compiler", model.NewTransformContext(nil), x, model.NodeActionRefine},
		{"override", model.NewTransformContext(nil, always(model.NodeActionCompile)), dot, model.NodeActionCompile},
		{"last decision wins", model.NewTransformContext(nil,
			always(model.NodeActionCompile), always(model.NodeActionRefine), always(model.NodeActionAbstain)),
			dot, model.NodeActionRefine},
		{"all abstain", model.NewTransformContext(primitiveContext().Compiler(), always(model.NodeActionAbstain)),
			x, model.NodeActionCompile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tc.NodeAction(tt.node))
		})
	}

	assert.False(t, model.NewTransformContext(nil).IsNodeCompilable(x))
	assert.True(t, primitiveContext().IsNodeCompilable(x))
	assert.False(t, primitiveContext().IsNodeCompilable(dot))
}

func TestParseNodeAction(t *testing.T) {
	for _, a := range []model.NodeAction{model.NodeActionAbstain, model.NodeActionRefine, model.NodeActionCompile} {
		got, err := model.ParseNodeAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := model.ParseNodeAction("explode")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
}

func TestCorrespondingInputNodeAndReset(t *testing.T) {
	m, norm := normModel(t)
	x := m.NodesOfKind(nodes.KindInput)[0]

	tr := model.NewTransformer()
	refined, err := tr.RefineModel(m, primitiveContext(), 10)
	require.NoError(t, err)

	in, err := tr.GetCorrespondingInputNode(x)
	require.NoError(t, err)
	assert.Equal(t, nodes.KindInput, in.Kind())
	assert.True(t, refined.Contains(in))

	_, err = tr.GetCorrespondingInputNode(norm)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))

	tr.Reset()
	assert.Nil(t, tr.Model())
	assert.Equal(t, model.Stats{}, tr.Stats())
	_, err = tr.GetCorrespondingInputNode(x)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
}

func TestUncompilableNodes(t *testing.T) {
	m, norm := normModel(t)
	tc := primitiveContext()

	left := model.UncompilableNodes(m, tc)
	require.Len(t, left, 2)
	assert.Equal(t, nodes.KindAffine, left[0].Kind())
	assert.Same(t, model.Node(norm), left[1])

	refined, err := model.NewTransformer().RefineModel(m, tc, 10)
	require.NoError(t, err)
	assert.Empty(t, model.UncompilableNodes(refined, tc))
}
