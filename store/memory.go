package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/pageops/page"
)

// Memory is an in-memory store implementation.
type Memory struct {
	mu sync.RWMutex
	// prefix -> version -> record
	records map[string]map[int]Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[int]Record)}
}

// Get retrieves the record for addr. An unversioned address resolves to the
// highest stored version for its prefix.
func (m *Memory) Get(_ context.Context, addr page.Address) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.records[addr.Prefix()]
	if !ok {
		return Record{}, false, nil
	}

	if addr.Version != page.DefaultVersion {
		rec, ok := versions[addr.Version]
		return rec, ok, nil
	}

	var latest Record
	maxV, found := 0, false
	for v, rec := range versions {
		if !found || v > maxV {
			latest, maxV, found = rec, v, true
		}
	}
	return latest, found, nil
}

// Put stores a record, overwriting any existing record for the same version.
func (m *Memory) Put(_ context.Context, rec Record) error {
	if rec.Address.Version == page.DefaultVersion {
		return fmt.Errorf("%w: %s", ErrUnversioned, rec.Address)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := rec.Address.Prefix()
	versions, ok := m.records[prefix]
	if !ok {
		versions = make(map[int]Record)
		m.records[prefix] = versions
	}
	versions[rec.Address.Version] = rec
	return nil
}

// Delete removes the record for addr. Idempotent - no error on miss.
func (m *Memory) Delete(_ context.Context, addr page.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if versions, ok := m.records[addr.Prefix()]; ok {
		delete(versions, addr.Version)
		if len(versions) == 0 {
			delete(m.records, addr.Prefix())
		}
	}
	return nil
}

// LatestVersion returns the highest stored version for the address prefix.
func (m *Memory) LatestVersion(_ context.Context, addr page.Address) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, ok := m.records[addr.Prefix()]
	if !ok || len(versions) == 0 {
		return 0, false, nil
	}
	max, found := 0, false
	for v := range versions {
		if !found || v > max {
			max, found = v, true
		}
	}
	return max, found, nil
}

// MarkInvalid flips the record's validity flag.
func (m *Memory) MarkInvalid(_ context.Context, addr page.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions, ok := m.records[addr.Prefix()]
	if ok {
		if rec, ok := versions[addr.Version]; ok {
			rec.Valid = false
			versions[addr.Version] = rec
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, addr)
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)
