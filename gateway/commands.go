package gateway

import (
	"strconv"

	"github.com/cordlink/cordlink/discord"
)

// Rules: UPDATE_VOICE_STATE -> UpdateVoiceStateCommand

// IdentifyCommand is a command for Op 2. It is the struct for a data that's
// sent over in an Identify command.
type IdentifyCommand struct {
	Token      string             `json:"token"`
	Properties IdentifyProperties `json:"properties"`

	Compress       bool `json:"compress,omitempty"`        // true
	LargeThreshold uint `json:"large_threshold,omitempty"` // 50

	Shard *Shard `json:"shard,omitempty"` // [ shard_id, num_shards ]

	Presence *UpdatePresenceCommand `json:"presence,omitempty"`

	// Intents are only sent for bot accounts.
	Intents *Intents `json:"intents,omitempty"`
}

// SetShard sets the shard configuration for this identify command.
func (i *IdentifyCommand) SetShard(id, num int) {
	if i.Shard == nil {
		i.Shard = new(Shard)
	}
	i.Shard[0], i.Shard[1] = id, num
}

// AddIntents adds the intents to the identify command.
func (i *IdentifyCommand) AddIntents(intents Intents) {
	if i.Intents == nil {
		i.Intents = &intents
		return
	}
	*i.Intents |= intents
}

// HasIntents reports whether the identify command carries every given
// intent. A command without intents is treated as carrying all of them.
func (i *IdentifyCommand) HasIntents(intents Intents) bool {
	if i.Intents == nil {
		return true
	}
	return i.Intents.Has(intents)
}

// ResumeCommand is a command for Op 6. It describes the Resume send command.
// This is not to be confused with ResumedEvent, which is an event that Discord
// sends us.
type ResumeCommand struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int64  `json:"seq"`
}

// HeartbeatCommand is a command for Op 1. It is the last sequence number to
// be sent. The server sends the same op to ask for an immediate heartbeat.
type HeartbeatCommand int64

// RequestGuildMembersCommand is a command for Op 8. Either UserIDs or Query
// must be filled.
type RequestGuildMembersCommand struct {
	GuildIDs []discord.GuildID `json:"guild_id"`
	UserIDs  []discord.UserID  `json:"user_ids,omitempty"`

	// Query is the prefix to match. An empty query with a zero limit
	// requests every member.
	Query     *string `json:"query,omitempty"`
	Limit     uint    `json:"limit"`
	Presences bool    `json:"presences"`
	Nonce     string  `json:"nonce,omitempty"`
}

// GuildSyncCommand is a command for Op 12. It asks the server to send the
// complete member list of the given guilds. User accounts only.
type GuildSyncCommand []discord.GuildID

// UpdateVoiceStateCommand is a command for Op 4. A null ChannelID leaves
// voice in the guild.
type UpdateVoiceStateCommand struct {
	GuildID   discord.GuildID   `json:"guild_id"`
	ChannelID discord.ChannelID `json:"channel_id"` // nullable
	SelfMute  bool              `json:"self_mute"`
	SelfDeaf  bool              `json:"self_deaf"`
}

// UpdatePresenceCommand is a command for Op 3. It updates the current
// user's presence.
type UpdatePresenceCommand struct {
	Since discord.Milliseconds `json:"since"` // 0 if not idle

	// Activities can be null or an empty slice.
	Activities []Activity `json:"activities"`

	Status PresenceStatus `json:"status"`
	AFK    bool           `json:"afk"`
}

// MarshalJSON encodes a zero sequence as null, which the server expects
// before the first dispatch.
func (c HeartbeatCommand) MarshalJSON() ([]byte, error) {
	if c == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(int64(c), 10)), nil
}
