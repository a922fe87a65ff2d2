package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
	"github.com/matzehuels/flowgraph/pkg/nodes"
)

func TestModelAddNode(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	neg := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))

	assert.Equal(t, 2, m.Size())
	assert.True(t, m.Contains(neg))
	assert.True(t, x.Output().IsReferenced())
	assert.Equal(t, []model.PortID{{Node: neg.ID(), Name: "input"}}, x.Output().References())

	t.Run("duplicate", func(t *testing.T) {
		err := m.AddNode(neg)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("foreign port", func(t *testing.T) {
		other := model.NewModel()
		err := other.AddNode(nodes.NewUnary(nodes.OpAbs, x.Output()))
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
		assert.Equal(t, 0, other.Size())
	})

	t.Run("construction error", func(t *testing.T) {
		y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))
		err := m.AddNode(nodes.NewBinary(nodes.OpAdd, x.Output(), y.Output()))
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	})

	t.Run("nil", func(t *testing.T) {
		assert.True(t, errors.Is(m.AddNode(nil), errors.ErrCodeInvalidArgument))
	})
}

func TestModelVisitOrder(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	a := mustAdd(t, m, nodes.NewBinary(nodes.OpAdd, y.Output(), x.Output()))
	b := mustAdd(t, m, nodes.NewUnary(nodes.OpAbs, x.Output()))

	var got []model.NodeID
	require.NoError(t, m.Visit(func(n model.Node) error {
		got = append(got, n.ID())
		return nil
	}))
	assert.Equal(t, []model.NodeID{x.ID(), y.ID(), a.ID(), b.ID()}, got)

	t.Run("subset", func(t *testing.T) {
		var sub []model.NodeID
		require.NoError(t, m.VisitSubset([]*model.OutputPort{b.Output()}, func(n model.Node) error {
			sub = append(sub, n.ID())
			return nil
		}))
		assert.Equal(t, []model.NodeID{x.ID(), b.ID()}, sub)
	})

	t.Run("rebound input visits producer first", func(t *testing.T) {
		c := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))
		d := mustAdd(t, m, nodes.NewUnary(nodes.OpSquare, y.Output()))
		require.NoError(t, c.Input().Bind(d.Output()))

		var order []model.NodeID
		require.NoError(t, m.Visit(func(n model.Node) error {
			order = append(order, n.ID())
			return nil
		}))
		assert.Less(t, indexOf(order, d.ID()), indexOf(order, c.ID()))
	})
}

func indexOf(ids []model.NodeID, id model.NodeID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

func TestModelValidateCycle(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 1))
	neg := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))
	abs := mustAdd(t, m, nodes.NewUnary(nodes.OpAbs, neg.Output()))
	require.NoError(t, m.Validate())

	require.NoError(t, neg.Input().Bind(abs.Output()))
	err := m.Validate()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState), "got %v", err)
	assert.True(t, errors.Is(m.Visit(func(model.Node) error { return nil }), errors.ErrCodeInvalidState))
}

func TestModelDeleteNode(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	neg := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))
	out := mustAdd(t, m, nodes.NewOutput(neg.Output()))

	require.NoError(t, m.DeleteNode(neg))
	assert.Equal(t, 2, m.Size())
	assert.False(t, m.Contains(neg))
	assert.False(t, x.Output().IsReferenced())
	assert.True(t, neg.Output().IsReleased())

	// The output node is not deleted with its producer; its reference is stale.
	assert.True(t, m.Contains(out))
	_, err := out.Input().ReferencedPort()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
	assert.True(t, errors.Is(m.Validate(), errors.ErrCodeInvalidState))

	assert.True(t, errors.Is(m.DeleteNode(neg), errors.ErrCodeInvalidArgument))
}

func TestModelNodesOfKind(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	mustAdd(t, m, nodes.NewSum(x.Output()))
	y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 1))

	got := m.NodesOfKind(nodes.KindInput)
	require.Len(t, got, 2)
	assert.Equal(t, x.ID(), got[0].ID())
	assert.Equal(t, y.ID(), got[1].ID())
	assert.Empty(t, m.NodesOfKind("nope"))
}

func TestSimplifyOutputs(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))
	y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))

	t.Run("full port", func(t *testing.T) {
		p, err := m.SimplifyOutputs(model.ElementsOf(x.Output()))
		require.NoError(t, err)
		assert.Same(t, x.Output(), p)
		assert.Equal(t, 2, m.Size())
	})

	t.Run("adjacent fragments merge", func(t *testing.T) {
		p, err := m.SimplifyOutputs(model.PortElements{
			{Port: x.Output(), Start: 0, Count: 1},
			{Port: x.Output(), Start: 1, Count: 2},
		})
		require.NoError(t, err)
		assert.Same(t, x.Output(), p)
		assert.Equal(t, 2, m.Size())
	})

	t.Run("idempotent", func(t *testing.T) {
		elements := model.PortElements{
			{Port: x.Output(), Start: 1, Count: 2},
			{Port: y.Output(), Start: 0, Count: 1},
		}
		first, err := m.SimplifyOutputs(elements)
		require.NoError(t, err)
		size := m.Size()
		second, err := m.SimplifyOutputs(elements)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, size, m.Size())
		assert.Equal(t, 3, first.Size())
		assert.Len(t, m.NodesOfKind(model.KindSplice), 1)

		got, err := nodes.Evaluate(m, []float64{1, 2, 3}, []float64{4, 5})
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, []float64{2, 3, 4}, first.Values())
	})

	t.Run("bad elements", func(t *testing.T) {
		_, err := m.SimplifyOutputs(model.PortElements{{Port: x.Output(), Start: 2, Count: 2}})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
		_, err = m.SimplifyOutputs(nil)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	})
}

func TestPortElementsKey(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))

	a := model.PortElements{{Port: x.Output(), Start: 0, Count: 1}}
	b := model.PortElements{{Port: x.Output(), Start: 0, Count: 1}}
	c := model.PortElements{{Port: x.Output(), Start: 1, Count: 1}}
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, 1, a.Size())
	assert.False(t, a.IsFullPortOutput())
	assert.True(t, model.ElementsOf(x.Output()).IsFullPortOutput())
}

func TestPortType(t *testing.T) {
	for _, typ := range []model.PortType{
		model.PortTypeNone, model.PortTypeSmallReal, model.PortTypeReal, model.PortTypeInteger,
		model.PortTypeBigInt, model.PortTypeCategorical, model.PortTypeBoolean,
	} {
		got, err := model.ParsePortType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := model.ParsePortType("complex")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
}

func TestInputPortBind(t *testing.T) {
	m := model.NewModel()
	r := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 1))
	b := mustAdd(t, m, nodes.NewInput(model.PortTypeBoolean, 1))
	not := mustAdd(t, m, nodes.NewUnary(nodes.OpLogicalNot, b.Output()))

	err := not.Input().Bind(r.Output())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	assert.Same(t, b.Output(), mustRef(t, not.Input()))

	not.Input().Unbind()
	assert.False(t, not.Input().IsBound())
	assert.False(t, b.Output().IsReferenced())
	_, err = not.Input().ReferencedPort()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidState))
}

func TestRejectedNodeReleasesInputs(t *testing.T) {
	m := model.NewModel()
	x := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 2))
	y := mustAdd(t, m, nodes.NewInput(model.PortTypeReal, 3))

	add := nodes.NewBinary(nodes.OpAdd, x.Output(), y.Output())
	err := m.AddNode(add)
	require.True(t, errors.Is(err, errors.ErrCodeInvalidArgument), "got %v", err)
	assert.Equal(t, 2, m.Size())
	assert.False(t, x.Output().IsReferenced())
	assert.False(t, y.Output().IsReferenced())
	for _, in := range add.Inputs() {
		assert.False(t, in.IsBound())
	}

	// A foreign input is released the same way.
	other := model.NewModel()
	abs := nodes.NewUnary(nodes.OpAbs, x.Output())
	require.Error(t, other.AddNode(abs))
	assert.False(t, x.Output().IsReferenced())

	// A node owned by another model keeps its wiring.
	neg := mustAdd(t, m, nodes.NewUnary(nodes.OpNegate, x.Output()))
	err = other.AddNode(neg)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidArgument))
	assert.Contains(t, err.Error(), "belongs to another model")
	assert.Same(t, x.Output(), mustRef(t, neg.Input()))
	assert.Equal(t, []model.PortID{{Node: neg.ID(), Name: "input"}}, x.Output().References())
	require.NoError(t, m.Validate())
}

func mustRef(t *testing.T, in *model.InputPort) *model.OutputPort {
	t.Helper()
	p, err := in.ReferencedPort()
	require.NoError(t, err)
	return p
}
