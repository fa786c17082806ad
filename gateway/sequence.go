package gateway

import "go.uber.org/atomic"

// Sequence is the last dispatch sequence number of a session.
type Sequence struct {
	v atomic.Int64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

// Set stores seq if it is newer than the current sequence.
func (s *Sequence) Set(seq int64) {
	for {
		old := s.v.Load()
		if seq <= old || s.v.CompareAndSwap(old, seq) {
			return
		}
	}
}

func (s *Sequence) Get() int64 { return s.v.Load() }
func (s *Sequence) Reset()     { s.v.Store(0) }
