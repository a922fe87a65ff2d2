package store

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/flowgraph/pkg/errors"
	pkgio "github.com/matzehuels/flowgraph/pkg/io"
)

// FileStore keeps one "<name>.json" file per model in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store in dir, creating the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Get(_ context.Context, name string) (*pkgio.Document, error) {
	if err := errors.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Put writes through a temporary file so readers never see partial data.
func (s *FileStore) Put(_ context.Context, name string, doc *pkgio.Document) error {
	data, err := prepare(name, doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func (s *FileStore) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if ok && !e.IsDir() && errors.ValidateName(name) == nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := errors.ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) Close(context.Context) error { return nil }

var _ Store = (*FileStore)(nil)
