package model

import (
	"fmt"
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
)

// PortRange is a fragment of an output port: Count values starting at Start.
type PortRange struct {
	Port  *OutputPort
	Start int
	Count int
}

// FullRange returns the range covering every value of p.
func FullRange(p *OutputPort) PortRange {
	return PortRange{Port: p, Start: 0, Count: p.Size()}
}

// IsFullPort reports whether the range covers the whole port.
func (r PortRange) IsFullPort() bool {
	return r.Port != nil && r.Start == 0 && r.Count == r.Port.Size()
}

// String formats the range as "node:port[start:end]".
func (r PortRange) String() string {
	return fmt.Sprintf("%s[%d:%d]", r.Port.ID(), r.Start, r.Start+r.Count)
}

// PortElements is an ordered list of output-port fragments.
type PortElements []PortRange

// ElementsOf returns the elements that concatenate the given ports in full.
func ElementsOf(ports ...*OutputPort) PortElements {
	elements := make(PortElements, 0, len(ports))
	for _, p := range ports {
		elements = append(elements, FullRange(p))
	}
	return elements
}

// Size returns the total number of values.
func (e PortElements) Size() int {
	n := 0
	for _, r := range e {
		n += r.Count
	}
	return n
}

// Type returns the element type shared by every fragment.
func (e PortElements) Type() PortType {
	if len(e) == 0 || e[0].Port == nil {
		return PortTypeNone
	}
	return e[0].Port.Type()
}

// IsFullPortOutput reports whether the elements are exactly one whole port.
func (e PortElements) IsFullPortOutput() bool {
	return len(e) == 1 && e[0].IsFullPort()
}

// Validate checks that every fragment is in bounds and that all fragments
// share one element type.
func (e PortElements) Validate() error {
	if len(e) == 0 {
		return errors.New(errors.ErrCodeInvalidArgument, "empty port elements")
	}
	typ := e.Type()
	for i, r := range e {
		if r.Port == nil {
			return errors.New(errors.ErrCodeInvalidArgument, "element %d has no port", i)
		}
		if r.Start < 0 || r.Count <= 0 || r.Start+r.Count > r.Port.Size() {
			return errors.New(errors.ErrCodeInvalidArgument,
				"element %d range [%d:%d] out of bounds for %s (size %d)",
				i, r.Start, r.Start+r.Count, r.Port.ID(), r.Port.Size())
		}
		if r.Port.Type() != typ {
			return errors.New(errors.ErrCodeInvalidArgument,
				"element %d has type %s, want %s", i, r.Port.Type(), typ)
		}
	}
	return nil
}

// Consolidate merges adjacent fragments of the same port.
func (e PortElements) Consolidate() PortElements {
	out := make(PortElements, 0, len(e))
	for _, r := range e {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Port == r.Port && last.Start+last.Count == r.Start {
				last.Count += r.Count
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Key returns a value identity for the fragment list: two lists with the
// same ports and ranges in the same order have the same key.
func (e PortElements) Key() string {
	var b strings.Builder
	for i, r := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.String())
	}
	return b.String()
}
