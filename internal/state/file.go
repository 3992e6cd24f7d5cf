package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists state as JSON files in a local directory. Saves are
// atomic: the file is written to a temporary path and renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed state store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, stack string) (*State, error) {
	data, err := os.ReadFile(f.path(stack))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read state for stack %s: %w", stack, err)
	}
	return Decode(data)
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, stack string, s *State) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, stack+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(stack)); err != nil {
		return fmt.Errorf("failed to replace state for stack %s: %w", stack, err)
	}
	return nil
}

func (f *FileStore) path(stack string) string {
	return filepath.Join(f.dir, stack+".json")
}
