package storage

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

// Mem is an in-memory store used by tests and by single-run tooling that
// never needs durability.
type Mem struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMem() *Mem {
	return &Mem{objects: make(map[string][]byte)}
}

func (m *Mem) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("storage: %s: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *Mem) Write(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), data...)
	return nil
}
