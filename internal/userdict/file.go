package userdict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the dictionary in a JSON file. Writes go to a temporary
// file in the same directory which is then renamed over the target.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by path. The file is created on the
// first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Ping checks that the directory holding the file exists.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("userdict: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("userdict: %s is not a directory", dir)
	}
	return nil
}

// Load implements [Store].
func (s *FileStore) Load(_ context.Context) (*UserDictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("userdict: read %s: %w", s.path, err)
	}

	d := New()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("userdict: decode %s: %w", s.path, err)
	}
	d.Normalize()
	return d, nil
}

// Save implements [Store].
func (s *FileStore) Save(_ context.Context, d *UserDictionary) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("userdict: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("userdict: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".userdict-*.tmp")
	if err != nil {
		return fmt.Errorf("userdict: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("userdict: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("userdict: write: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("userdict: replace %s: %w", s.path, err)
	}
	return nil
}
