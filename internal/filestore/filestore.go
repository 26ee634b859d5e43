// Package filestore keeps uploaded order files on local disk until the
// import pipeline consumes them.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tmendes/orderimport/internal/importer"
)

// Store saves and re-opens import source files. References are opaque
// names issued by Save and never contain path separators, so a stored
// reference cannot escape the directory.
type Store struct {
	dir string
}

// New creates the storage directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create file store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save streams r to disk and returns the reference for later Open
// calls. A failed write leaves nothing behind.
func (s *Store) Save(r io.Reader) (string, error) {
	ref := uuid.New().String() + ".txt"
	path := filepath.Join(s.dir, ref)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create stored file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write stored file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close stored file: %w", err)
	}
	return ref, nil
}

// Open returns the stored file for sequential reading. A reference that
// does not resolve yields importer.ErrFileNotFound.
func (s *Store) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if ref == "" || ref != filepath.Base(ref) {
		return nil, fmt.Errorf("%w: invalid reference %q", importer.ErrFileNotFound, ref)
	}

	f, err := os.Open(filepath.Join(s.dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", importer.ErrFileNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}
