package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepEvery = 64

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process. Expired windows are swept every
// sweepEvery hits.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*window
	hits    int
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *MemoryStore) Hit(_ context.Context, key string, length time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.hits++
	if m.hits%sweepEvery == 0 {
		m.sweep(now)
	}

	entry, ok := m.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &window{resetAt: now.Add(length)}
		m.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt, nil
}

func (m *MemoryStore) sweep(now time.Time) {
	for key, entry := range m.entries {
		if !now.Before(entry.resetAt) {
			delete(m.entries, key)
		}
	}
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
