// Package history records every prediction served by the process.
package history

import (
	"context"
	"log"
	"sync"

	"github.com/kartoza/deepfake-detection/internal/detector"
)

// Store persists prediction results, newest first
type Store interface {
	Append(ctx context.Context, r *detector.PredictionResult) error
	List(ctx context.Context, limit, offset int) ([]*detector.PredictionResult, int, error)
	Reset(ctx context.Context) error
	Close() error
}

// Observer adapts a Store to detector.Observer. Append failures are
// logged and never reach the caller of Analyze.
func Observer(s Store) detector.Observer {
	return detector.ObserverFunc(func(ctx context.Context, r *detector.PredictionResult) {
		if err := s.Append(ctx, r); err != nil {
			log.Printf("Warning: failed to record prediction %s: %v", r.ID, err)
		}
	})
}

// MemoryStore keeps the history in a slice for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	results []*detector.PredictionResult
}

// NewMemoryStore creates an empty in-memory history
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a result
func (m *MemoryStore) Append(_ context.Context, r *detector.PredictionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	return nil
}

// List returns a page of results, newest first, and the total count
func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]*detector.PredictionResult, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.results)
	page := make([]*detector.PredictionResult, 0)
	for i := total - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, m.results[i])
	}
	return page, total, nil
}

// Reset drops every result
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = nil
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
