package lazytime

import (
	"context"
	"time"
)

// Timer is a time.Timer whose channel is drained on Stop and Reset, so a
// stale tick is never read after rearming it. The zero value is stopped.
type Timer struct {
	C <-chan time.Time

	timer *time.Timer
}

// Reset stops the timer and arms it to fire after d.
func (t *Timer) Reset(d time.Duration) {
	if t.timer != nil {
		t.Stop()
		t.timer.Reset(d)
		return
	}

	t.timer = time.NewTimer(d)
	t.C = t.timer.C
}

// Stop stops the timer and drops a pending tick.
func (t *Timer) Stop() {
	if t.timer != nil && !t.timer.Stop() {
		select {
		case <-t.timer.C:
		default:
		}
	}
}

// Wait blocks until the timer fires. A timer that was never armed only
// returns once ctx is done.
func (t *Timer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
