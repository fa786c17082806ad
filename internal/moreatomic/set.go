package moreatomic

import "sync"

// Set is a thread-safe set of comparable IDs.
type Set[K comparable] struct {
	set map[K]struct{}
	mut sync.Mutex
}

// NewSet creates a new Set.
func NewSet[K comparable]() *Set[K] {
	return &Set[K]{
		set: make(map[K]struct{}),
	}
}

// Add adds the passed ID to the set.
func (s *Set[K]) Add(id K) {
	s.mut.Lock()
	s.set[id] = struct{}{}
	s.mut.Unlock()
}

// Contains checks whether the passed ID is present in the set.
func (s *Set[K]) Contains(id K) (ok bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	_, ok = s.set[id]
	return
}

// Delete deletes the passed ID from the set and returns true if the element
// is present. If not, Delete is a no-op and returns false.
func (s *Set[K]) Delete(id K) bool {
	s.mut.Lock()
	defer s.mut.Unlock()

	if _, ok := s.set[id]; ok {
		delete(s.set, id)
		return true
	}

	return false
}

// Len returns the number of elements.
func (s *Set[K]) Len() int {
	s.mut.Lock()
	defer s.mut.Unlock()

	return len(s.set)
}

// Items returns a snapshot of the set in no particular order.
func (s *Set[K]) Items() []K {
	s.mut.Lock()
	defer s.mut.Unlock()

	items := make([]K, 0, len(s.set))
	for id := range s.set {
		items = append(items, id)
	}
	return items
}

// Clear deletes all elements from the set.
func (s *Set[K]) Clear() {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.set = make(map[K]struct{})
}
