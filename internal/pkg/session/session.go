// Package session keeps live per-client values keyed by random ids and
// evicts the ones left idle too long.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTTL = 2 * time.Hour

type entry[T any] struct {
	value    T
	lastSeen time.Time
}

// Registry maps session ids to values. Get refreshes the idle timer.
type Registry[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*entry[T]
}

func NewRegistry[T any](ttl time.Duration) *Registry[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry[T]{ttl: ttl, now: time.Now, entries: map[string]*entry[T]{}}
}

// SetClock replaces the time source. Intended for tests.
func (r *Registry[T]) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Add stores v under a fresh id.
func (r *Registry[T]) Add(v T) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.entries[id] = &entry[T]{value: v, lastSeen: r.now()}
	r.mu.Unlock()
	return id
}

func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || r.now().Sub(e.lastSeen) > r.ttl {
		var zero T
		return zero, false
	}
	e.lastSeen = r.now()
	return e.value, true
}

func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Each calls fn for every value present when it was called. fn runs
// without the registry lock held, so it may be slow or call back into r.
func (r *Registry[T]) Each(fn func(id string, v T)) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	values := make([]T, 0, len(r.entries))
	for id, e := range r.entries {
		ids = append(ids, id)
		values = append(values, e.value)
	}
	r.mu.Unlock()

	for i, id := range ids {
		fn(id, values[i])
	}
}

// Evict drops entries idle longer than the ttl and returns them.
func (r *Registry[T]) Evict() map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	evicted := map[string]T{}
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.ttl {
			evicted[id] = e.value
			delete(r.entries, id)
		}
	}
	return evicted
}
