package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session records in process memory.
// Records vanish on restart; use PostgresStore for durable sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	rec, ok := m.records[id]
	m.mu.RUnlock()

	if !ok || !rec.ExpiresAt.After(m.now()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = rec
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Sweep removes expired records and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.records {
		if !rec.ExpiresAt.After(now) {
			delete(m.records, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored records, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// RunJanitor sweeps expired records every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
