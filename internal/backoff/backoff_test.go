package backoff

import (
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	const max = 60 * time.Second
	b := NewBackoff(2*time.Second, max)

	for k := 1; k <= 10; k++ {
		expect := 2 * time.Second * time.Duration(1<<uint(k-1))
		if expect > max {
			expect = max
		}

		if got := b.Next(); got != expect {
			t.Fatalf("attempt %d: expected %v, got %v", k, expect, got)
		}
	}

	b.Reset()

	if got := b.Next(); got != 2*time.Second {
		t.Fatal("Expected backoff to restart at 2s, got", got)
	}
	if got := b.Next(); got != 4*time.Second {
		t.Fatal("Expected second attempt to be 4s, got", got)
	}
}

func TestBackoffBounds(t *testing.T) {
	b := NewBackoff(2*time.Second, time.Second)
	if got := b.Next(); got != 2*time.Second {
		t.Fatal("Max below min should clamp to min, got", got)
	}

	b = NewBackoff(time.Second, time.Hour)
	if got := b.ForAttempt(1000); got != time.Hour {
		t.Fatal("Large attempt should clamp to max, got", got)
	}
	if got := b.ForAttempt(0); got != time.Second {
		t.Fatal("Attempt 0 should be treated as the first, got", got)
	}
}
