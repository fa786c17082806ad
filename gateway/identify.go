package gateway

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cordlink/cordlink/utils/ws"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// DefaultIdentity is used as the default identity when initializing a new
// Gateway.
var DefaultIdentity = IdentifyProperties{
	OS:      runtime.GOOS,
	Browser: "cordlink",
	Device:  "cordlink",
}

// DefaultPresence is used as the default presence when initializing a new
// Gateway.
var DefaultPresence *UpdatePresenceCommand

type IdentifyProperties struct {
	// Required
	OS      string `json:"os"`      // GOOS
	Browser string `json:"browser"` // cordlink
	Device  string `json:"device"`  // cordlink

	// Optional
	BrowserUserAgent string `json:"browser_user_agent,omitempty"`
	BrowserVersion   string `json:"browser_version,omitempty"`
	OSVersion        string `json:"os_version,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
	ReferringDomain  string `json:"referring_domain,omitempty"`
}

// Shard is a type for two numbers that represent the Bot's shard
// configuration. The first number is the shard's ID, which could be obtained
// through the ShardID method. The second number is the total number of shards,
// which could be obtained through the NumShards method.
type Shard [2]int

// DefaultShard returns the default shard configuration of 1 shard total, in
// which the current shard ID is 0.
func DefaultShard() *Shard {
	return &Shard{0, 1}
}

// ShardID returns the current shard's ID. It uses the first number.
func (s Shard) ShardID() int {
	return s[0]
}

// NumShards returns the total number of shards. It uses the second number.
func (s Shard) NumShards() int {
	return s[1]
}

// DefaultIdentifier creates a new default Identifier for the token. Bot
// tokens, which are prefixed with "Bot ", are sent with DefaultIntents; user
// tokens never carry intents.
func DefaultIdentifier(token string) *Identifier {
	cmd := IdentifyCommand{
		Token:      token,
		Properties: DefaultIdentity,
		Shard:      DefaultShard(),
		Presence:   DefaultPresence,

		Compress:       true,
		LargeThreshold: 50,
	}

	if IsBotToken(token) {
		cmd.AddIntents(DefaultIntents)
	}

	return NewIdentifier(cmd)
}

// IsBotToken returns true if the token is a bot token.
func IsBotToken(token string) bool {
	return strings.HasPrefix(token, "Bot ")
}

// Identifier is a wrapper around IdentifyCommand to add in appropriate rate
// limiters.
type Identifier struct {
	IdentifyCommand

	IdentifyShortLimit  *rate.Limiter `json:"-"`
	IdentifyGlobalLimit *rate.Limiter `json:"-"`

	mu      sync.Mutex
	penalty time.Time
}

// NewIdentifier creates a new identifier with the given command and
// appropriate rate limiters.
func NewIdentifier(data IdentifyCommand) *Identifier {
	return &Identifier{
		IdentifyCommand:     data,
		IdentifyShortLimit:  ws.NewIdentityLimiter(),
		IdentifyGlobalLimit: ws.NewGlobalIdentityLimiter(),
	}
}

// IsBot returns true if the identifier carries a bot token.
func (id *Identifier) IsBot() bool {
	return IsBotToken(id.Token)
}

// Penalize delays the next Identify by d. It is used when the server reports
// that the previous Identify was rate limited.
func (id *Identifier) Penalize(d time.Duration) {
	id.mu.Lock()
	id.penalty = time.Now().Add(d)
	id.mu.Unlock()
}

// Wait waits for the rate limiters to pass. If a limiter is nil, then it will
// not be used to wait.
func (id *Identifier) Wait(ctx context.Context) error {
	id.mu.Lock()
	penalty := time.Until(id.penalty)
	id.penalty = time.Time{}
	id.mu.Unlock()

	if penalty > 0 {
		timer := time.NewTimer(penalty)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "can't wait for identify penalty")
		case <-timer.C:
		}
	}

	if id.IdentifyShortLimit != nil {
		if err := id.IdentifyShortLimit.Wait(ctx); err != nil {
			return errors.Wrap(err, "can't wait for short limit")
		}
	}

	if id.IdentifyGlobalLimit != nil {
		if err := id.IdentifyGlobalLimit.Wait(ctx); err != nil {
			return errors.Wrap(err, "can't wait for global limit")
		}
	}

	return nil
}
