package model

import (
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// NodeAction tells the transformer what to do with a node during refinement.
type NodeAction int

const (
	// NodeActionAbstain defers to the next rule.
	NodeActionAbstain NodeAction = iota
	// NodeActionRefine lowers the node.
	NodeActionRefine
	// NodeActionCompile keeps the node as is.
	NodeActionCompile
)

var nodeActionNames = [...]string{
	NodeActionAbstain: "abstain",
	NodeActionRefine:  "refine",
	NodeActionCompile: "compile",
}

func (a NodeAction) String() string {
	if a < 0 || int(a) >= len(nodeActionNames) {
		return "unknown"
	}
	return nodeActionNames[a]
}

// ParseNodeAction is the inverse of [NodeAction.String].
func ParseNodeAction(s string) (NodeAction, error) {
	for i, name := range nodeActionNames {
		if strings.EqualFold(name, s) {
			return NodeAction(i), nil
		}
	}
	return NodeActionAbstain, errors.New(errors.ErrCodeInvalidArgument, "unknown node action %q", s)
}

// NodeActionFunc overrides the action for a node. Returning
// NodeActionAbstain leaves the decision to other rules.
type NodeActionFunc func(Node) NodeAction

// Compiler decides which nodes the backend can consume directly.
type Compiler interface {
	IsNodeCompilable(n Node) bool
}

// TransformContext is the policy a transformation runs under: the compiler
// the result is meant for and a list of per-node action overrides.
type TransformContext struct {
	compiler  Compiler
	overrides []NodeActionFunc
}

// NewTransformContext creates a context. A nil compiler makes every node
// non-compilable.
func NewTransformContext(compiler Compiler, fns ...NodeActionFunc) *TransformContext {
	tc := &TransformContext{compiler: compiler}
	for _, fn := range fns {
		tc.AddNodeActionFunc(fn)
	}
	return tc
}

// Compiler returns the attached compiler, possibly nil.
func (tc *TransformContext) Compiler() Compiler { return tc.compiler }

// IsNodeCompilable asks the compiler. It is false without one.
func (tc *TransformContext) IsNodeCompilable(n Node) bool {
	if tc == nil || tc.compiler == nil {
		return false
	}
	return tc.compiler.IsNodeCompilable(n)
}

// AddNodeActionFunc appends an override. Nil functions are ignored.
func (tc *TransformContext) AddNodeActionFunc(fn NodeActionFunc) {
	if fn != nil {
		tc.overrides = append(tc.overrides, fn)
	}
}

// NodeAction returns the action for n. Every override is consulted in
// registration order and the last one that does not abstain wins. Without
// a decision the node is compiled when the compiler accepts it and refined
// otherwise.
func (tc *TransformContext) NodeAction(n Node) NodeAction {
	action := NodeActionAbstain
	if tc != nil {
		for _, fn := range tc.overrides {
			if a := fn(n); a != NodeActionAbstain {
				action = a
			}
		}
	}
	if action != NodeActionAbstain {
		return action
	}
	if tc.IsNodeCompilable(n) {
		return NodeActionCompile
	}
	return NodeActionRefine
}

// UncompilableNodes returns the nodes of m that tc's compiler rejects, in
// creation order.
func UncompilableNodes(m *Model, tc *TransformContext) []Node {
	var out []Node
	for _, n := range m.Nodes() {
		if !tc.IsNodeCompilable(n) {
			out = append(out, n)
		}
	}
	return out
}
