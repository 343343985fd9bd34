package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores artifacts on the local filesystem. Writes go to a temp file
// in the target directory followed by a rename, so a crash mid-write leaves
// the previous artifact intact.
type Local struct{}

func (Local) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (Local) Write(_ context.Context, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storage: rename to %s: %w", path, err)
	}
	return nil
}
