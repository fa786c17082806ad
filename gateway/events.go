package gateway

import "github.com/cordlink/cordlink/discord"

// Rules: VOICE_STATE_UPDATE -> VoiceStateUpdateEvent

// https://discord.com/developers/docs/topics/gateway#connecting-and-resuming
type (
	HelloEvent struct {
		HeartbeatInterval discord.Milliseconds `json:"heartbeat_interval"`
	}

	// ReadyEvent is the first dispatch of a new session.
	ReadyEvent struct {
		Version int `json:"v"`

		User      discord.User `json:"user"`
		SessionID string       `json:"session_id"`

		// ResumeGatewayURL is the address to use when resuming this session.
		ResumeGatewayURL string `json:"resume_gateway_url,omitempty"`

		// Guilds are either unavailable stubs (bots) or complete guild
		// payloads (user accounts).
		Guilds          []GuildCreateEvent     `json:"guilds"`
		PrivateChannels []discord.Channel      `json:"private_channels"`
		Relationships   []discord.Relationship `json:"relationships,omitempty"`

		Shard *Shard `json:"shard,omitempty"`
	}

	ResumedEvent struct{}

	// InvalidSessionEvent indicates if the event is resumable.
	InvalidSessionEvent bool

	ReconnectEvent struct{}

	HeartbeatAckEvent struct{}
)

// https://discord.com/developers/docs/topics/gateway#channels
type (
	ChannelCreateEvent struct {
		discord.Channel
	}
	ChannelUpdateEvent struct {
		discord.Channel
	}
	ChannelDeleteEvent struct {
		discord.Channel
	}
)

// https://discord.com/developers/docs/topics/gateway#guilds
type (
	GuildCreateEvent struct {
		discord.Guild

		Joined discord.Timestamp `json:"joined_at,omitempty"`

		VoiceStates []discord.VoiceState `json:"voice_states,omitempty"`
		Members     []discord.Member     `json:"members,omitempty"`
		Channels    []discord.Channel    `json:"channels,omitempty"`
		Presences   []Presence           `json:"presences,omitempty"`
	}
	GuildUpdateEvent struct {
		discord.Guild
	}
	GuildDeleteEvent struct {
		ID discord.GuildID `json:"id"`
		// Unavailable if false == removed
		Unavailable bool `json:"unavailable"`
	}

	GuildEmojisUpdateEvent struct {
		GuildID discord.GuildID `json:"guild_id"`
		Emojis  []discord.Emoji `json:"emojis"`
	}

	GuildMemberAddEvent struct {
		discord.Member
		GuildID discord.GuildID `json:"guild_id"`
	}
	GuildMemberRemoveEvent struct {
		GuildID discord.GuildID `json:"guild_id"`
		User    discord.User    `json:"user"`
	}
	GuildMemberUpdateEvent struct {
		discord.Member
		GuildID discord.GuildID `json:"guild_id"`
	}

	// GuildMembersChunkEvent is sent when Guild Request Members is called.
	GuildMembersChunkEvent struct {
		GuildID discord.GuildID  `json:"guild_id"`
		Members []discord.Member `json:"members"`

		ChunkIndex int `json:"chunk_index"`
		ChunkCount int `json:"chunk_count"`

		// Whatever's not found goes here
		NotFound []discord.UserID `json:"not_found,omitempty"`

		// Only filled if requested
		Presences []Presence `json:"presences,omitempty"`
		Nonce     string     `json:"nonce,omitempty"`
	}

	// GuildSyncEvent is the answer to a GuildSync command. It is only sent
	// to user accounts.
	GuildSyncEvent struct {
		ID        discord.GuildID  `json:"id"`
		Large     bool             `json:"large"`
		Members   []discord.Member `json:"members"`
		Presences []Presence       `json:"presences,omitempty"`
	}

	GuildRoleCreateEvent struct {
		GuildID discord.GuildID `json:"guild_id"`
		Role    discord.Role    `json:"role"`
	}
	GuildRoleUpdateEvent struct {
		GuildID discord.GuildID `json:"guild_id"`
		Role    discord.Role    `json:"role"`
	}
	GuildRoleDeleteEvent struct {
		GuildID discord.GuildID `json:"guild_id"`
		RoleID  discord.RoleID  `json:"role_id"`
	}
)

// https://discord.com/developers/docs/topics/gateway#messages
type (
	MessageCreateEvent struct {
		discord.Message
		Member *discord.Member `json:"member,omitempty"`
	}
	MessageUpdateEvent struct {
		discord.Message
		Member *discord.Member `json:"member,omitempty"`
	}
	MessageDeleteEvent struct {
		ID        discord.MessageID `json:"id"`
		ChannelID discord.ChannelID `json:"channel_id"`
		GuildID   discord.GuildID   `json:"guild_id,omitempty"`
	}
	MessageDeleteBulkEvent struct {
		IDs       []discord.MessageID `json:"ids"`
		ChannelID discord.ChannelID   `json:"channel_id"`
		GuildID   discord.GuildID     `json:"guild_id,omitempty"`
	}
)

// https://discord.com/developers/docs/topics/gateway#presence
type (
	PresenceUpdateEvent struct {
		Presence
	}
	TypingStartEvent struct {
		ChannelID discord.ChannelID `json:"channel_id"`
		UserID    discord.UserID    `json:"user_id"`
		GuildID   discord.GuildID   `json:"guild_id,omitempty"`
	}
	UserUpdateEvent struct {
		discord.User
	}
)

// https://discord.com/developers/docs/topics/gateway#voice
type (
	VoiceStateUpdateEvent struct {
		discord.VoiceState
	}
	VoiceServerUpdateEvent struct {
		Token    string          `json:"token"`
		GuildID  discord.GuildID `json:"guild_id"`
		Endpoint string          `json:"endpoint"`
	}
)

// Relationship events are only sent to user accounts.
type (
	RelationshipAddEvent struct {
		discord.Relationship
	}
	RelationshipRemoveEvent struct {
		discord.Relationship
	}
)

// Internal events. These are emitted by the Gateway into its own Op stream,
// so they are ordered with the dispatches around them.
type (
	// SessionInvalidatedEvent is emitted when the server refused to resume the
	// session. All session state has been reset and the next handshake is a
	// fresh Identify, so any cached entity must be dropped.
	SessionInvalidatedEvent struct{}

	// ShutdownEvent is emitted when the server closed the connection with a
	// code that makes reconnecting pointless.
	ShutdownEvent struct {
		Code CloseCode
	}
)
