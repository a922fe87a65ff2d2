package model

import (
	"fmt"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// KindSplice is the kind name of [SpliceNode].
const KindSplice = "splice"

// SpliceRange is the part of one splice input that ends up in the output.
type SpliceRange struct {
	Start int
	Count int
}

// SpliceNode concatenates fragments of several output ports into one output
// named "output". It is what [Model.SimplifyOutputs] adds for fragment lists
// that are not a single whole port.
type SpliceNode struct {
	NodeBase
	ranges []SpliceRange
	output *OutputPort
}

// NewSpliceNode creates a splice with one input per fragment.
func NewSpliceNode(elements PortElements) *SpliceNode {
	n := &SpliceNode{}
	n.Init(n, KindSplice)
	if err := elements.Validate(); err != nil {
		n.fail(err)
	}
	size := 0
	for i, r := range elements {
		n.AddInput(fmt.Sprintf("input_%d", i), r.Port)
		n.ranges = append(n.ranges, SpliceRange{Start: r.Start, Count: r.Count})
		size += r.Count
	}
	n.output = n.AddOutput("output", elements.Type(), size)
	return n
}

// Output returns the concatenated output port.
func (n *SpliceNode) Output() *OutputPort { return n.output }

// Ranges returns the per-input ranges.
func (n *SpliceNode) Ranges() []SpliceRange { return n.ranges }

// Elements returns the fragment list the splice concatenates.
func (n *SpliceNode) Elements() PortElements {
	elements := make(PortElements, len(n.ranges))
	for i, in := range n.Inputs() {
		elements[i] = PortRange{Port: in.ref, Start: n.ranges[i].Start, Count: n.ranges[i].Count}
	}
	return elements
}

// Copy adds a splice over the corresponding fragments of the destination.
func (n *SpliceNode) Copy(t *Transformer) error {
	elements, err := t.GetCorrespondingOutputElements(n.Elements())
	if err != nil {
		return err
	}
	splice, err := Add(t, NewSpliceNode(elements))
	if err != nil {
		return err
	}
	return t.MapNodeOutput(n.output, splice.output)
}

// Compute concatenates the input fragments.
func (n *SpliceNode) Compute() error {
	values := make([]float64, 0, n.output.Size())
	for i, in := range n.Inputs() {
		v, err := in.Values()
		if err != nil {
			return err
		}
		r := n.ranges[i]
		if r.Start+r.Count > len(v) {
			return errors.New(errors.ErrCodeInvalidState, "splice input %s has %d values, need %d", in.ID(), len(v), r.Start+r.Count)
		}
		values = append(values, v[r.Start:r.Start+r.Count]...)
	}
	return n.output.SetValues(values)
}

// Archive stores the ranges as [start, count] pairs.
func (n *SpliceNode) Archive() (Attributes, error) {
	ranges := make([][]int, len(n.ranges))
	for i, r := range n.ranges {
		ranges[i] = []int{r.Start, r.Count}
	}
	return Attributes{"ranges": ranges}, nil
}
