// Package artifact loads a vectorizer and a classifier as one validated,
// immutable pair and publishes it to concurrent readers.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is wrapped when a store has no artifact under a ref.
var ErrNotFound = errors.New("artifact not found")

// Store returns serialized artifacts by reference.
type Store interface {
	LoadVectorizer(ctx context.Context, ref string) ([]byte, error)
	LoadClassifier(ctx context.Context, ref string) ([]byte, error)
}

// FileStore reads artifacts from files below a root directory. Refs are
// slash-separated paths relative to the root.
type FileStore struct {
	root string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

func (s *FileStore) LoadVectorizer(ctx context.Context, ref string) ([]byte, error) {
	return s.read(ctx, ref)
}

func (s *FileStore) LoadClassifier(ctx context.Context, ref string) ([]byte, error) {
	return s.read(ctx, ref)
}

func (s *FileStore) read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(ref)))
	if ref == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("artifact ref %q must be a relative path inside the store", ref)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", ref, err)
	}
	return data, nil
}
