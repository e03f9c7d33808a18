package tba

import (
	"context"
	"sync"
	"time"
)

// CacheEntry is one cached upstream response.
type CacheEntry struct {
	Key          string
	LastModified *time.Time
	Payload      []byte
	RetrievedAt  time.Time
	ExpiresAt    *time.Time
}

// Fresh reports whether the entry may be served without asking upstream:
// either it was retrieved within minFresh or its upstream expiry has not passed.
func (e *CacheEntry) Fresh(now time.Time, minFresh time.Duration) bool {
	if !e.RetrievedAt.Add(minFresh).Before(now) {
		return true
	}
	return e.ExpiresAt != nil && !e.ExpiresAt.Before(now)
}

// Usable reports whether the entry carries a payload worth revalidating.
// Entries without one are treated as misses.
func (e *CacheEntry) Usable() bool {
	return e != nil && len(e.Payload) > 0 && !e.RetrievedAt.IsZero()
}

// CacheStore persists upstream responses keyed by path stub.
// Get returns (nil, nil) on a miss. Concurrent writers are last-writer-wins.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Put(ctx context.Context, entry CacheEntry) error
	Touch(ctx context.Context, key string, retrievedAt time.Time, expiresAt *time.Time) error
}

// MemoryCache is a process-local CacheStore.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	e.Payload = append([]byte(nil), e.Payload...)
	return &e, nil
}

func (m *MemoryCache) Put(_ context.Context, entry CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Payload = append([]byte(nil), entry.Payload...)
	m.entries[entry.Key] = entry
	return nil
}

func (m *MemoryCache) Touch(_ context.Context, key string, retrievedAt time.Time, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	e.RetrievedAt = retrievedAt
	e.ExpiresAt = expiresAt
	m.entries[key] = e
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
