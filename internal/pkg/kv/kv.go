// Package kv provides the key-value backends that persist explorer state:
// bookmarks, custom filters, the cached API credential and geocode results.
package kv

import (
	"context"
	"sync"
)

// Keys used by the explorer.
const (
	KeyBookmarks     = "memoryExplorer.bookmarks"
	KeyCustomFilters = "memoryExplorer.customFilters.v1"
	KeyAPIKey        = "memoryExplorer.openaiKey"
	KeyGeoCache      = "memoryExplorer.geoCache.v1"
)

// Store is a string key-value store. Get reports ok=false for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}
