// Package backoff provides a doubling backoff counter for reconnect delays.
package backoff

import (
	"math"
	"sync"
	"time"
)

const factor = 2

// Backoff is a time.Duration counter, starting at Min. Every call to Next
// returns the current delay and doubles it, but it never exceeds Max. The
// delay for attempt k (1-based) is min(Min * 2^(k-1), Max).
//
// Backoff is safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	min, max time.Duration
	attempt  int
}

// NewBackoff creates a new backoff counter.
func NewBackoff(min, max time.Duration) *Backoff {
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max}
}

// Next returns the delay for the next attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempt++
	return b.ForAttempt(b.attempt)
}

// Attempt returns the number of times Next was called since the last Reset.
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.attempt
}

// Reset restarts the counter, so the next delay is Min again.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}

// ForAttempt returns the delay for a specific attempt without changing the
// counter. The first attempt is 1.
func (b *Backoff) ForAttempt(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if b.min >= b.max {
		return b.max
	}

	// Past this point the multiplication would overflow anyway.
	if attempt > 62 {
		return b.max
	}

	dur := float64(b.min) * math.Pow(factor, float64(attempt-1))
	if dur > float64(b.max) {
		return b.max
	}

	return time.Duration(dur)
}
