package rate

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/utils/json"
)

// Window is the known state of a route bucket.
type Window struct {
	// Remaining is the number of requests left before Reset. It is -1 when
	// unknown.
	Remaining int
	Reset     time.Time
}

func (w Window) blocked(now time.Time) bool {
	return w.Remaining == 0 && w.Reset.After(now)
}

// Response is the part of an HTTP response a Strategy reads.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Hit describes a rate limit reported by a response.
type Hit struct {
	Delay  time.Duration
	Global bool
}

// Strategy decides how the route and global windows are derived from
// responses and in which order they are consulted.
type Strategy interface {
	// Delay returns how long a request must wait given its route window and
	// the end of the global window, and whether the global window is the one
	// blocking it.
	Delay(now time.Time, route Window, global time.Time) (time.Duration, bool)
	// Observe updates route from a response and returns the hit it reports,
	// if any.
	Observe(now time.Time, route *Window, resp Response) (Hit, error)
}

// BotStrategy is used with bot tokens. The server sends predictive
// X-RateLimit headers with every response, and the global window takes
// precedence over route windows.
type BotStrategy struct{}

var _ Strategy = BotStrategy{}

func (BotStrategy) Delay(now time.Time, route Window, global time.Time) (time.Duration, bool) {
	if global.After(now) {
		return global.Sub(now), true
	}
	if route.blocked(now) {
		return route.Reset.Sub(now), false
	}
	return 0, false
}

func (BotStrategy) Observe(now time.Time, route *Window, resp Response) (Hit, error) {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			keep(errors.Wrapf(err, "invalid remaining %q", v))
		} else {
			route.Remaining = n
		}
	}

	switch {
	case resp.Header.Get("X-RateLimit-Reset-After") != "":
		v := resp.Header.Get("X-RateLimit-Reset-After")
		d, err := parseSeconds(v)
		if err != nil {
			keep(err)
			break
		}
		route.Reset = now.Add(d).Add(ExtraDelay)

	case resp.Header.Get("X-RateLimit-Reset") != "":
		v := resp.Header.Get("X-RateLimit-Reset")
		unix, err := strconv.ParseFloat(v, 64)
		if err != nil {
			keep(errors.Wrapf(err, "invalid reset %q", v))
			break
		}
		sec := int64(unix)
		nsec := int64((unix - float64(sec)) * float64(time.Second))
		route.Reset = time.Unix(sec, nsec).Add(ExtraDelay)
	}

	if resp.Status != http.StatusTooManyRequests {
		return Hit{}, firstErr
	}

	hit, err := observeLimited(now, route, resp)
	if err != nil {
		keep(err)
	}
	return hit, firstErr
}

// ClientStrategy is used with user tokens. Responses carry no predictive
// headers, so only 429 responses open windows, and the route window is
// consulted before the global one.
type ClientStrategy struct{}

var _ Strategy = ClientStrategy{}

func (ClientStrategy) Delay(now time.Time, route Window, global time.Time) (time.Duration, bool) {
	if route.Reset.After(now) {
		return route.Reset.Sub(now), false
	}
	if global.After(now) {
		return global.Sub(now), true
	}
	return 0, false
}

func (ClientStrategy) Observe(now time.Time, route *Window, resp Response) (Hit, error) {
	if resp.Status != http.StatusTooManyRequests {
		return Hit{}, nil
	}
	return observeLimited(now, route, resp)
}

type limitedBody struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// observeLimited reads a 429 response. The JSON body is authoritative; the
// Retry-After header is the fallback.
func observeLimited(now time.Time, route *Window, resp Response) (Hit, error) {
	var hit Hit
	var err error

	var body limitedBody
	if len(resp.Body) > 0 {
		if jerr := json.Unmarshal(resp.Body, &body); jerr != nil {
			err = errors.Wrap(jerr, "failed to decode 429 body")
		}
	}

	hit.Global = body.Global || resp.Header.Get("X-RateLimit-Global") != ""

	switch {
	case body.RetryAfter > 0:
		hit.Delay = time.Duration(body.RetryAfter * float64(time.Second))
	case resp.Header.Get("Retry-After") != "":
		d, herr := parseSeconds(resp.Header.Get("Retry-After"))
		if herr != nil && err == nil {
			err = herr
		}
		hit.Delay = d
	}

	if hit.Delay <= 0 {
		// A 429 without any delay still has to block the route briefly.
		hit.Delay = time.Second
	}

	if !hit.Global {
		route.Remaining = 0
		route.Reset = now.Add(hit.Delay)
	}

	return hit, err
}
