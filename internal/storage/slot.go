// Package storage persists project snapshots in a local key-value slot.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

var ErrNotFound = errors.New("slot key not found")

// Slot is a durable key-value store. Put fully overwrites any prior value.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the slot backend named by driver, rooted at path.
func Open(driver, path string) (Slot, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(path)
	case "file":
		return OpenFileSlot(path)
	case "memory":
		return NewMemSlot(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// DefaultPath is the backend location under a project directory.
func DefaultPath(projectDir, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(projectDir, rel)
}

// MemSlot keeps values in memory.
type MemSlot struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemSlot() *MemSlot {
	return &MemSlot{data: map[string][]byte{}}
}

func (m *MemSlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, v...), nil
}

func (m *MemSlot) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte{}, value...)
	m.mu.Unlock()
	return nil
}

func (m *MemSlot) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemSlot) Close() error { return nil }
