package moreatomic

import "sync"

// Map is a thread-safe map that lazily creates values with a constructor.
type Map[K comparable, V any] struct {
	mu   sync.RWMutex
	smap map[K]V
	ctor func() V
}

func NewMap[K comparable, V any](ctor func() V) *Map[K, V] {
	return &Map[K, V]{
		smap: map[K]V{},
		ctor: ctor,
	}
}

// Reset swaps the internal map out with a fresh one, dropping the old map.
func (sm *Map[K, V]) Reset() {
	sm.mu.Lock()
	sm.smap = map[K]V{}
	sm.mu.Unlock()
}

// LoadOrStore loads an existing value or stores a new value created from the
// constructor. loaded is true if the value already existed.
func (sm *Map[K, V]) LoadOrStore(k K) (v V, loaded bool) {
	sm.mu.RLock()
	v, ok := sm.smap[k]
	sm.mu.RUnlock()

	if ok {
		return v, true
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	// Another goroutine may have stored it in between.
	v, ok = sm.smap[k]
	if !ok {
		v = sm.ctor()
		sm.smap[k] = v
	}

	return v, ok
}

// Load loads the value with the key.
func (sm *Map[K, V]) Load(k K) (v V, ok bool) {
	sm.mu.RLock()
	v, ok = sm.smap[k]
	sm.mu.RUnlock()
	return
}

// Delete removes the key.
func (sm *Map[K, V]) Delete(k K) {
	sm.mu.Lock()
	delete(sm.smap, k)
	sm.mu.Unlock()
}

// Len returns the number of stored keys.
func (sm *Map[K, V]) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.smap)
}

// Range calls fn for each key and value in a snapshot of the map. Range stops
// if fn returns false.
func (sm *Map[K, V]) Range(fn func(K, V) bool) {
	sm.mu.RLock()
	keys := make([]K, 0, len(sm.smap))
	values := make([]V, 0, len(sm.smap))
	for k, v := range sm.smap {
		keys = append(keys, k)
		values = append(values, v)
	}
	sm.mu.RUnlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}
