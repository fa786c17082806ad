package rate

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-csync"
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/utils/metrics"
)

// ExtraDelay is added to every reset time parsed from the headers. Reset
// timestamps are rounded by the server and requests sent exactly on the
// boundary are often still limited.
const ExtraDelay = 250 * time.Millisecond

// Error is returned when a request is rate limited and the caller opted out
// of waiting, either through WithoutQueue or a context deadline that is
// shorter than the limit.
type Error struct {
	Bucket     string
	Global     bool
	RetryAfter time.Duration
}

func (err *Error) Error() string {
	scope := "route " + err.Bucket
	if err.Global {
		scope = "global"
	}
	return "rate limited on " + scope + ", retry after " + err.RetryAfter.String()
}

type contextKey uint8

const dontWaitKey contextKey = iota

// WithoutQueue returns a context that makes the Limiter fail with an *Error
// instead of waiting out a rate limit.
func WithoutQueue(ctx context.Context) context.Context {
	return context.WithValue(ctx, dontWaitKey, true)
}

func queued(ctx context.Context) bool {
	dontWait, _ := ctx.Value(dontWaitKey).(bool)
	return !dontWait
}

// Limiter tracks the rate limit buckets of the REST API. Requests sharing a
// bucket are serialized between Acquire and Release.
type Limiter struct {
	// Prefix is trimmed off paths before computing the bucket key.
	Prefix   string
	Strategy Strategy

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Now is the clock used for every window computation.
	Now func() time.Time

	mu      sync.Mutex
	global  time.Time
	buckets map[string]*bucket
}

type bucket struct {
	lock   csync.Mutex
	key    string
	window Window
}

// NewLimiter creates a limiter for the given strategy. If strategy is nil,
// BotStrategy is used.
func NewLimiter(prefix string, strategy Strategy) *Limiter {
	if strategy == nil {
		strategy = BotStrategy{}
	}

	return &Limiter{
		Prefix:   prefix,
		Strategy: strategy,
		Logger:   zap.NewNop(),
		Now:      time.Now,
		buckets:  map[string]*bucket{},
	}
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// BucketKey returns the key of the bucket the request falls into.
func (l *Limiter) BucketKey(method, path string) string {
	return BucketKey(method, strings.TrimPrefix(path, l.Prefix))
}

func (l *Limiter) getBucket(method, path string, store bool) *bucket {
	key := l.BucketKey(method, path)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok && store {
		b = &bucket{key: key, window: Window{Remaining: -1}}
		l.buckets[key] = b
	}

	return b
}

// delayLocked returns how long a request to b has to wait. l.mu must be held.
func (l *Limiter) delayLocked(b *bucket, now time.Time) (time.Duration, bool) {
	var route Window
	if b != nil {
		route = b.window
	} else {
		route = Window{Remaining: -1}
	}

	return l.Strategy.Delay(now, route, l.global)
}

// RateLimit returns how long a request to the route would currently have to
// wait. It returns 0 if the request may be sent right away.
func (l *Limiter) RateLimit(method, path string) time.Duration {
	b := l.getBucket(method, path, false)

	l.mu.Lock()
	defer l.mu.Unlock()

	d, _ := l.delayLocked(b, l.now())
	return d
}

// HandleResponse records the rate limit information carried by a response.
// It returns the delay reported by the response if it indicates that a limit
// was hit, or 0 otherwise.
func (l *Limiter) HandleResponse(method, path string, status int, h http.Header, body []byte) time.Duration {
	b := l.getBucket(method, path, true)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	hit, err := l.Strategy.Observe(now, &b.window, Response{
		Status: status,
		Header: h,
		Body:   body,
	})
	if err != nil {
		l.logger().Warn("malformed rate limit response",
			zap.String("bucket", b.key), zap.Error(err))
	}

	if hit.Delay <= 0 {
		return 0
	}

	if hit.Global {
		if until := now.Add(hit.Delay); until.After(l.global) {
			l.global = until
		}
		l.Metrics.IncRateLimit("global")
	} else {
		l.Metrics.IncRateLimit(b.key)
	}

	l.logger().Debug("rate limit hit",
		zap.String("bucket", b.key),
		zap.Bool("global", hit.Global),
		zap.Duration("retry_after", hit.Delay))

	return hit.Delay
}

func (l *Limiter) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Acquire locks the bucket of the given route and waits until a request may
// be sent through it. The bucket stays locked until Release is called. The
// bucket is never left locked when an error is returned.
func (l *Limiter) Acquire(ctx context.Context, method, path string) error {
	b := l.getBucket(method, path, true)

	if err := b.lock.CLock(ctx); err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := l.now()
		delay, global := l.delayLocked(b, now)
		if delay <= 0 {
			if b.window.Remaining > 0 {
				b.window.Remaining--
			}
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		rerr := &Error{Bucket: b.key, Global: global, RetryAfter: delay}

		if !queued(ctx) {
			b.lock.Unlock()
			return rerr
		}

		if deadline, ok := ctx.Deadline(); ok && delay > time.Until(deadline) {
			b.lock.Unlock()
			return rerr
		}

		timer := time.NewTimer(delay)

		select {
		case <-ctx.Done():
			timer.Stop()
			b.lock.Unlock()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Release records the response of a request started with Acquire and
// unlocks the route's bucket. A nil header only unlocks.
func (l *Limiter) Release(method, path string, status int, h http.Header, body []byte) time.Duration {
	b := l.getBucket(method, path, false)
	if b == nil {
		return 0
	}

	defer b.lock.Unlock()

	if h == nil && status == 0 {
		return 0
	}

	return l.HandleResponse(method, path, status, h, body)
}

// Reset forgets every bucket and the global window. It must not be called
// while requests are between Acquire and Release.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.global = time.Time{}
	l.buckets = map[string]*bucket{}
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid seconds %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}
