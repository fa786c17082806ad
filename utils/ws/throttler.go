package ws

import (
	"time"

	gorate "github.com/beefsack/go-rate"
	"golang.org/x/time/rate"
)

const (
	// CommandLimit is the number of gateway commands allowed per
	// CommandWindow.
	CommandLimit = 120
	// CommandReserve is the part of CommandLimit held back for heartbeats and
	// handshakes, which never wait on the command window.
	CommandReserve = 4
	// CommandWindow is the rolling window of CommandLimit.
	CommandWindow = time.Minute
)

// NewCommandWindow returns a rolling window limiter for regular gateway
// commands. Its Try method reports how long to wait when the window is full.
func NewCommandWindow() *gorate.RateLimiter {
	return gorate.New(CommandLimit-CommandReserve, CommandWindow)
}

// NewDialLimiter returns a rate limiter for throttling new gateway connections.
func NewDialLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(5*time.Second), 1)
}

// NewIdentityLimiter returns a rate limiter for throttling gateway Identify
// commands.
func NewIdentityLimiter() *rate.Limiter {
	return NewDialLimiter() // same
}

// NewGlobalIdentityLimiter returns a rate limiter for throttling global
// gateway Identify commands.
func NewGlobalIdentityLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(24*time.Hour), 1000)
}
