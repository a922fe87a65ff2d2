package model

import (
	"github.com/matzehuels/flowgraph/pkg/errors"
)

// portMap maps the outputs of a source model to their equivalents in a
// destination model. It is filled during one transformation and only read
// afterwards.
type portMap map[PortID]*OutputPort

func (pm portMap) set(old PortID, p *OutputPort) error {
	if prev, ok := pm[old]; ok && prev != p {
		return errors.New(errors.ErrCodeInvalidState,
			"output %s is already mapped to %s, cannot remap to %s", old, prev.ID(), p.ID())
	}
	pm[old] = p
	return nil
}

func (pm portMap) get(old PortID) (*OutputPort, bool) {
	p, ok := pm[old]
	return p, ok
}

// compose returns the map old -> next[prev[old]]. Entries whose intermediate
// port is not mapped by next are dropped.
func compose(prev, next portMap) portMap {
	out := make(portMap, len(prev))
	for old, mid := range prev {
		if p, ok := next[mid.ID()]; ok {
			out[old] = p
		}
	}
	return out
}
