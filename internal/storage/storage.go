// Package storage abstracts where snapshot artifacts live. Paths are plain
// filesystem paths or s3:// URLs; both sides of the trainer read and write
// through the same Store interface so resume works identically against
// local disk and object storage.
package storage

import (
	"context"
	"strings"
)

// Store reads and writes whole artifacts at a path. A missing artifact is
// reported with an error satisfying errors.Is(err, fs.ErrNotExist), which
// callers treat as an expected condition, not a failure. Write replaces the
// artifact wholesale; a reader never observes a partial write.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}

// Open picks a store implementation from the path scheme.
func Open(ctx context.Context, path string) (Store, error) {
	if strings.HasPrefix(path, "s3://") {
		return NewS3(ctx)
	}
	return Local{}, nil
}
