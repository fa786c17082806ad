package gateway

import (
	"sync"
	"time"

	"github.com/cordlink/cordlink/discord"
)

// DefaultVoiceRetryInterval is the minimum time between two voice state
// updates sent for the same guild.
const DefaultVoiceRetryInterval = 2 * time.Second

// ConnectionStage is the stage of a pending voice connection request.
type ConnectionStage uint8

const (
	// StageConnect joins or moves to the target channel.
	StageConnect ConnectionStage = iota
	// StageReconnect leaves voice, then joins the target channel again.
	StageReconnect
	// StageDisconnect leaves voice in the guild.
	StageDisconnect
)

func (s ConnectionStage) String() string {
	switch s {
	case StageConnect:
		return "connect"
	case StageReconnect:
		return "reconnect"
	case StageDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// ConnectionRequest is a pending voice join, move or leave in a guild. It is
// resent until the matching VOICE_STATE_UPDATE for the current user arrives.
type ConnectionRequest struct {
	GuildID discord.GuildID
	// ChannelID is null for StageDisconnect.
	ChannelID discord.ChannelID
	Stage     ConnectionStage

	SelfMute bool
	SelfDeaf bool

	NextAttempt time.Time
}

func (r ConnectionRequest) command() UpdateVoiceStateCommand {
	cmd := UpdateVoiceStateCommand{
		GuildID:  r.GuildID,
		SelfMute: r.SelfMute,
		SelfDeaf: r.SelfDeaf,
	}

	// Reconnect leaves first.
	if r.Stage == StageConnect {
		cmd.ChannelID = r.ChannelID
	} else {
		cmd.ChannelID = discord.NullChannelID
	}

	return cmd
}

// voiceQueue holds at most one ConnectionRequest per guild.
type voiceQueue struct {
	mu       sync.Mutex
	interval time.Duration
	requests map[discord.GuildID]*ConnectionRequest
}

func newVoiceQueue(interval time.Duration) *voiceQueue {
	if interval <= 0 {
		interval = DefaultVoiceRetryInterval
	}

	return &voiceQueue{
		interval: interval,
		requests: make(map[discord.GuildID]*ConnectionRequest),
	}
}

// put replaces the guild's request. The replacement keeps the previous
// request's next attempt time, so a guild never sees more than one update per
// interval.
func (q *voiceQueue) put(req ConnectionRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.requests[req.GuildID]; ok && old.NextAttempt.After(req.NextAttempt) {
		req.NextAttempt = old.NextAttempt
	}

	q.requests[req.GuildID] = &req
}

func (q *voiceQueue) get(guildID discord.GuildID) (ConnectionRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[guildID]
	if !ok {
		return ConnectionRequest{}, false
	}
	return *req, true
}

func (q *voiceQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.requests)
}

// due returns the request with the earliest next attempt if that attempt is
// due. Otherwise, it returns how long until the earliest one is. A zero wait
// with ok false means the queue is empty.
func (q *voiceQueue) due(now time.Time) (req ConnectionRequest, wait time.Duration, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var earliest *ConnectionRequest
	for _, r := range q.requests {
		if earliest == nil || r.NextAttempt.Before(earliest.NextAttempt) {
			earliest = r
		}
	}

	if earliest == nil {
		return ConnectionRequest{}, 0, false
	}

	if wait = earliest.NextAttempt.Sub(now); wait > 0 {
		return ConnectionRequest{}, wait, false
	}

	return *earliest, 0, true
}

// attempted pushes the guild's next attempt back by one interval.
func (q *voiceQueue) attempted(guildID discord.GuildID, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if r, ok := q.requests[guildID]; ok {
		r.NextAttempt = now.Add(q.interval)
	}
}

// observe applies a VOICE_STATE_UPDATE of the current user. It returns true
// if a request was fulfilled.
func (q *voiceQueue) observe(state discord.VoiceState) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.requests[state.GuildID]
	if !ok {
		return false
	}

	switch r.Stage {
	case StageConnect:
		if state.ChannelID == r.ChannelID {
			delete(q.requests, state.GuildID)
			return true
		}
	case StageReconnect:
		if !state.InChannel() {
			// Left; now join again.
			r.Stage = StageConnect
		}
	case StageDisconnect:
		if !state.InChannel() {
			delete(q.requests, state.GuildID)
			return true
		}
	}

	return false
}

// removeChannel drops requests that target the deleted channel.
func (q *voiceQueue) removeChannel(channelID discord.ChannelID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for guildID, r := range q.requests {
		if r.Stage != StageDisconnect && r.ChannelID == channelID {
			delete(q.requests, guildID)
		}
	}
}

func (q *voiceQueue) removeGuild(guildID discord.GuildID) {
	q.mu.Lock()
	delete(q.requests, guildID)
	q.mu.Unlock()
}
