// Package history keeps the capped, newest-first list of past analyses
// and persists it as a single record in a durable backend.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/truthlens/internal/model"
)

// Backend persists one opaque record per key. Writes replace the whole
// record, so a failed write leaves the previous value intact.
type Backend interface {
	// Load returns the stored record, or nil, nil when none exists
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// MemoryBackend keeps records in process memory. History does not
// survive a restart.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

// Load returns a copy of the record for key
func (b *MemoryBackend) Load(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.records[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// Store replaces the record for key
func (b *MemoryBackend) Store(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[key] = append([]byte(nil), data...)
	return nil
}

// Remove deletes the record for key
func (b *MemoryBackend) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, key)
	return nil
}

// Close is a no-op
func (b *MemoryBackend) Close() error {
	return nil
}

// NewBackend builds the backend selected by cfg
func NewBackend(ctx context.Context, cfg model.HistoryConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "sqlite":
		b, err := NewSQLiteBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "s3":
		b, err := NewS3Backend(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "memory", "none":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s (supported: sqlite, s3, memory)", cfg.Backend)
	}
}
