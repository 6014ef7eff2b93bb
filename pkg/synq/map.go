package synq

import (
	"sync"
)

// Map is a generic map that is safe for concurrent use.
// It uses sync.RWMutex for managing concurrent access.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewMap creates a new concurrent map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value stored in the map for a key.
// The ok result indicates whether value was found in the map.
func (cm *Map[K, V]) Load(key K) (value V, ok bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	value, ok = cm.m[key]
	return
}

// Store sets the value for a key.
func (cm *Map[K, V]) Store(key K, value V) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.m[key] = value
}

// LoadOrInsert returns the value stored in the map for a key, or inserts a new value if the key is not present.
func (cm *Map[K, V]) LoadOrInsert(key K, value V) (actual V, loaded bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if v, ok := cm.m[key]; ok {
		return v, true
	}

	cm.m[key] = value
	return value, false
}

// Delete removes the key from the map.
func (cm *Map[K, V]) Delete(key K) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	delete(cm.m, key)
}

func (cm *Map[K, V]) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.m)
}

// Copy returns a copy of the map's contents.
// Use with caution, as this function copies the entire map.
func (cm *Map[K, V]) Copy() map[K]V {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	dest := make(map[K]V, len(cm.m))
	for k, v := range cm.m {
		dest[k] = v
	}

	return dest
}

func (cm *Map[K, V]) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.m = make(map[K]V)
}

// Iter iterates over the key-value pairs in the map, applying the provided
// function f to each pair. Keys are collected under a read lock first, then
// values are fetched one at a time, so f may safely modify the map without
// deadlocking. The view is fuzzy: keys added after collection are missed and
// deleted keys are skipped.
func (cm *Map[K, V]) Iter(f func(key K, value V) bool) {
	cm.mu.RLock()
	keys := make([]K, 0, len(cm.m))
	for k := range cm.m {
		keys = append(keys, k)
	}
	cm.mu.RUnlock()

	for _, k := range keys {
		cm.mu.RLock()
		v, ok := cm.m[k]
		cm.mu.RUnlock()
		if !ok {
			continue // Key was deleted
		}
		if !f(k, v) {
			break
		}
	}
}
