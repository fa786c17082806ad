// Package heart keeps the bookkeeping of a gateway heartbeat: when the last
// beat was sent, when it was acknowledged, and the resulting latency.
package heart

import (
	"time"

	"go.uber.org/atomic"
)

// AtomicTime is a thread-safe UnixNano timestamp.
type AtomicTime struct {
	unixnano atomic.Int64
}

func (t *AtomicTime) Get() int64 {
	return t.unixnano.Load()
}

func (t *AtomicTime) Set(time time.Time) {
	t.unixnano.Store(time.UnixNano())
}

func (t *AtomicTime) Time() time.Time {
	return time.Unix(0, t.Get())
}

// IsZero returns true if the time was never set.
func (t *AtomicTime) IsZero() bool {
	return t.Get() == 0
}

// Monitor records heartbeats. An unacknowledged beat is only reported, it
// never stops the monitor.
type Monitor struct {
	SentBeat AtomicTime
	EchoBeat AtomicTime

	latency atomic.Duration
	missed  atomic.Int32
	pending atomic.Bool
}

// Sent records a sent beat at the given time. If the previous beat was never
// acknowledged, it counts as missed.
func (m *Monitor) Sent(now time.Time) {
	if m.pending.Swap(true) {
		m.missed.Inc()
	}
	m.SentBeat.Set(now)
}

// Echo records an acknowledgement and updates the latency.
func (m *Monitor) Echo(now time.Time) {
	m.EchoBeat.Set(now)

	if !m.pending.Swap(false) {
		return
	}

	m.missed.Store(0)
	if sent := m.SentBeat.Time(); !m.SentBeat.IsZero() && now.After(sent) {
		m.latency.Store(now.Sub(sent))
	}
}

// Latency returns the round trip time of the last acknowledged beat.
func (m *Monitor) Latency() time.Duration {
	return m.latency.Load()
}

// Missed returns the number of consecutive unacknowledged beats.
func (m *Monitor) Missed() int {
	return int(m.missed.Load())
}

// Reset clears everything, for use when a new connection starts.
func (m *Monitor) Reset() {
	m.SentBeat.Set(time.Unix(0, 0))
	m.EchoBeat.Set(time.Unix(0, 0))
	m.pending.Store(false)
	m.missed.Store(0)
}
