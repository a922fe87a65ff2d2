package nodes

import (
	"fmt"

	"github.com/matzehuels/flowgraph/pkg/errors"
	"github.com/matzehuels/flowgraph/pkg/model"
)

// Evaluate feeds inputs to the input nodes of m, in insertion order, computes
// every node and returns the values of the output nodes, in insertion order.
func Evaluate(m *model.Model, inputs ...[]float64) ([][]float64, error) {
	ins := m.NodesOfKind(KindInput)
	if len(inputs) != len(ins) {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "model has %d inputs, got %d values", len(ins), len(inputs))
	}
	for i, n := range ins {
		if err := n.(*InputNode).Feed(inputs[i]); err != nil {
			return nil, err
		}
	}
	err := m.Visit(func(n model.Node) error {
		if err := n.Compute(); err != nil {
			return fmt.Errorf("compute %s node %d: %w", n.Kind(), n.ID(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	outs := m.NodesOfKind(KindOutput)
	results := make([][]float64, len(outs))
	for i, n := range outs {
		results[i] = append([]float64(nil), n.(*OutputNode).Output().Values()...)
	}
	return results, nil
}
