package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte blobs under string keys.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A ttl of zero means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys for pipeline stages.
type Keyer interface {
	// RefineKey identifies the refinement of the model with the given hash.
	RefineKey(modelHash string, opts RefineKeyOpts) string

	// ArtifactKey identifies an export of a refined model.
	ArtifactKey(refinedHash string, opts ArtifactKeyOpts) string
}

// RefineKeyOpts holds everything besides the model that changes the result
// of a refinement.
type RefineKeyOpts struct {
	Operation     string   `json:"operation"`
	MaxIterations int      `json:"max_iterations"`
	Kinds         []string `json:"kinds,omitempty"`
	Actions       []string `json:"actions,omitempty"`
	Outputs       []string `json:"outputs,omitempty"`
}

// ArtifactKeyOpts describes an exported artifact.
type ArtifactKeyOpts struct {
	Format  string `json:"format"`
	Compile bool   `json:"compile,omitempty"`
}

// DefaultKeyer produces keys of the form "<stage>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) RefineKey(modelHash string, opts RefineKeyOpts) string {
	return hashKey("refine", modelHash, opts)
}

func (DefaultKeyer) ArtifactKey(refinedHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", refinedHash, opts)
}

var _ Keyer = DefaultKeyer{}
