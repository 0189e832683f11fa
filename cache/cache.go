package cache

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
)

// Entry is one cached result with its creation timestamp.
type Entry struct {
	Value     any
	CreatedAt time.Time
}

// Cache stores tool results keyed by argument fingerprint.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Expiry: the cache itself never expires entries; the owning tool judges
//   freshness against Entry.CreatedAt.
// - Errors: Get never errors; it returns (zero, false) on miss.
type Cache interface {
	// Get retrieves a cached entry. Returns (zero, false) on miss.
	Get(key string) (Entry, bool)

	// Put stores a value under the key, overwriting any existing entry and
	// stamping it with the current time.
	Put(key string, value any)

	// Delete removes an entry. Idempotent - no error on miss.
	Delete(key string)

	// Len returns the number of live entries.
	Len() int
}

// ValidateKey checks if a key is usable for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Memory is an in-memory cache implementation.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get retrieves a cached entry. Returns (zero, false) on miss.
func (m *Memory) Get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok
}

// Put stores a value under the key with the current timestamp.
func (m *Memory) Put(key string, value any) {
	m.mu.Lock()
	m.entries[key] = Entry{Value: value, CreatedAt: m.now().UTC()}
	m.mu.Unlock()
}

// Delete removes an entry. Idempotent.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// SetClock overrides the timestamp source. Intended for tests.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Ensure Memory implements Cache
var _ Cache = (*Memory)(nil)
