package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"chatgate/internal/domain"
)

// FileDocument is a DocumentStore backed by a single file. Writes go to a
// temporary file in the same directory which then replaces the target.
type FileDocument struct {
	path string
}

var _ domain.DocumentStore = (*FileDocument)(nil)

// NewFileDocument returns a FileDocument for path. Nothing is touched on disk
// until the first Write.
func NewFileDocument(path string) *FileDocument {
	return &FileDocument{path: path}
}

// Name returns the file path.
func (f *FileDocument) Name() string {
	return f.path
}

// Read returns the file contents.
func (f *FileDocument) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.path, domain.ErrNotFound)
	}
	return data, err
}

// Write replaces the file contents, creating the parent directory if needed.
func (f *FileDocument) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
