package compiler

import (
	"fmt"
	"slices"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Compilable is implemented by node kinds the compiler can emit directly.
type Compilable interface {
	Compile(c *Compiler, f *FunctionEmitter) error
}

// Compiler turns fully refined models into programs. It implements
// [model.Compiler], so it can drive refinement through a
// [model.TransformContext].
type Compiler struct {
	kinds map[string]bool
}

var _ model.Compiler = (*Compiler)(nil)

// New creates a compiler. With kinds given, only nodes of those kinds are
// compilable even if they implement [Compilable].
func New(kinds ...string) *Compiler {
	c := &Compiler{}
	if len(kinds) > 0 {
		c.kinds = make(map[string]bool, len(kinds))
		for _, k := range kinds {
			c.kinds[k] = true
		}
	}
	return c
}

// Kinds returns the allow-list, sorted, or nil when every compilable kind is
// accepted.
func (c *Compiler) Kinds() []string {
	if c.kinds == nil {
		return nil
	}
	out := make([]string, 0, len(c.kinds))
	for k := range c.kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// IsNodeCompilable reports whether n can be emitted.
func (c *Compiler) IsNodeCompilable(n model.Node) bool {
	if n == nil {
		return false
	}
	if c.kinds != nil && !c.kinds[n.Kind()] {
		return false
	}
	switch n.(type) {
	case *model.SpliceNode, Compilable:
		return true
	}
	return false
}

// Compile emits a program for m. Every node must be compilable.
func (c *Compiler) Compile(name string, m *model.Model) (*Program, error) {
	f := newFunctionEmitter(name)
	err := m.Visit(func(n model.Node) error {
		if !c.IsNodeCompilable(n) {
			return errors.New(errors.ErrCodeNotImplemented, "%s node %d is not compilable", n.Kind(), n.ID())
		}
		var err error
		switch n := n.(type) {
		case *model.SpliceNode:
			err = compileSplice(n, f)
		case Compilable:
			err = n.Compile(c, f)
		}
		if err != nil {
			return fmt.Errorf("compile %s node %d: %w", n.Kind(), n.ID(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f.program, nil
}

func compileSplice(n *model.SpliceNode, f *FunctionEmitter) error {
	imm := make([]float64, 0, 2*len(n.Ranges()))
	for _, r := range n.Ranges() {
		imm = append(imm, float64(r.Start), float64(r.Count))
	}
	return f.Emit("splice", n.Output(), n.Inputs(), imm...)
}
