// Package store keeps named model documents.
//
// Two backends are provided: [FileStore] writes one JSON file per model and
// [MongoStore] keeps documents in a MongoDB collection. Both validate names
// with [errors.ValidateName] and report unknown models with
// [errors.ErrCodeNotFound].
package store

import (
	"bytes"
	"context"

	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
)

// Store persists model documents by name.
type Store interface {
	// Get returns the document stored under name.
	Get(ctx context.Context, name string) (*pkgio.Document, error)

	// Put validates doc and stores it under name, replacing any previous
	// version.
	Put(ctx context.Context, name string, doc *pkgio.Document) error

	// List returns the stored names in ascending order.
	List(ctx context.Context) ([]string, error)

	// Delete removes name. Deleting a missing model is not an error.
	Delete(ctx context.Context, name string) error

	Close(ctx context.Context) error
}

func notFound(name string) error {
	return errors.New(errors.ErrCodeNotFound, "model %q not found", name)
}

// prepare validates the name and the document and returns its JSON form.
func prepare(name string, doc *pkgio.Document) ([]byte, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	stored := *doc
	stored.Name = name
	var buf bytes.Buffer
	if err := pkgio.Encode(&buf, &stored, pkgio.FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*pkgio.Document, error) {
	return pkgio.Decode(bytes.NewReader(data), pkgio.FormatJSON)
}
