package cache

import (
	"context"
	"sync"
)

// Memory is a size-capped in-process cache. When it is full one arbitrary
// entry is dropped to make room; it is not an LRU.
type Memory[V any] struct {
	mu    sync.Mutex
	max   int
	items map[string]V
}

func NewMemory[V any](maxEntries int) *Memory[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory[V]{max: maxEntries, items: make(map[string]V)}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *Memory[V]) Set(_ context.Context, key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.max {
		for k := range m.items {
			delete(m.items, k)
			break
		}
	}
	m.items[key] = value
}

func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
