package cache

// ScopedKeyer wraps a Keyer with a prefix so that several tenants can
// share one backend.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "server:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// the default one.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// RefineKey returns the prefixed refinement key.
func (k *ScopedKeyer) RefineKey(modelHash string, opts RefineKeyOpts) string {
	return k.prefix + k.inner.RefineKey(modelHash, opts)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(refinedHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(refinedHash, opts)
}
