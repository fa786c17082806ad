package state

import (
	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
)

// Session lifecycle events.
type (
	// ReadyEvent is fired once the initial load of a fresh session is
	// complete: every guild from READY is either set up or was declared
	// unavailable.
	ReadyEvent struct {
		*gateway.ReadyEvent
		// Unavailable lists the guilds that did not arrive before the load
		// timed out.
		Unavailable []discord.GuildID
	}

	// ResumedEvent is fired when a session was resumed. Nothing is reloaded.
	ResumedEvent struct{}

	// ShutdownEvent is fired when the session stopped for good.
	ShutdownEvent struct {
		Code gateway.CloseCode
		// Discarded is the number of buffered events that never became
		// processable.
		Discarded int
	}
)

// Events that originated from GUILD_CREATE.
type (
	// GuildReadyEvent gets fired for every guild the bot/user is in, as found
	// in the Ready event, once the guild is fully set up.
	//
	// Guilds that are unavailable when connecting will not trigger a
	// GuildReadyEvent until they become available again.
	GuildReadyEvent struct {
		*gateway.GuildCreateEvent
	}

	// GuildAvailableEvent gets fired when a guild becomes available again,
	// after being previously declared unavailable through a
	// GuildUnavailableEvent.
	GuildAvailableEvent struct {
		*gateway.GuildCreateEvent
	}

	// GuildJoinEvent gets fired if the bot/user joins a guild.
	GuildJoinEvent struct {
		*gateway.GuildCreateEvent
	}
)

// Events that originated from GUILD_DELETE and GUILD_UPDATE.
type (
	// GuildLeaveEvent gets fired if the bot/user left a guild, was removed
	// or the owner deleted the guild.
	GuildLeaveEvent struct {
		*gateway.GuildDeleteEvent
		// Guild is the last cached shell of the guild.
		Guild discord.Guild
	}

	// GuildUnavailableEvent gets fired if a guild becomes unavailable.
	GuildUnavailableEvent struct {
		*gateway.GuildDeleteEvent
	}

	GuildUpdateEvent struct {
		Old discord.Guild
		New discord.Guild
	}
)

type (
	RoleCreateEvent struct {
		GuildID discord.GuildID
		Role    discord.Role
	}

	RoleUpdateEvent struct {
		GuildID discord.GuildID
		// Old is nil if the role was not cached.
		Old *discord.Role
		New discord.Role
	}

	RoleDeleteEvent struct {
		GuildID discord.GuildID
		RoleID  discord.RoleID
		// Role is nil if the role was not cached.
		Role *discord.Role
	}

	EmojisUpdateEvent struct {
		GuildID discord.GuildID
		Old     []discord.Emoji
		New     []discord.Emoji
	}
)

type (
	MemberJoinEvent struct {
		GuildID discord.GuildID
		Member  discord.Member
	}

	MemberLeaveEvent struct {
		GuildID discord.GuildID
		User    discord.User
		// Member is nil if the member was not cached.
		Member *discord.Member
	}

	MemberUpdateEvent struct {
		GuildID discord.GuildID
		// Old is nil if the member was not cached.
		Old *discord.Member
		New discord.Member
	}

	// MemberRoleAddEvent is fired for every role a member update added. Role
	// is nil if the role is not cached.
	MemberRoleAddEvent struct {
		GuildID discord.GuildID
		Member  discord.Member
		RoleID  discord.RoleID
		Role    *discord.Role
	}

	// MemberRoleRemoveEvent is fired for every role a member update removed.
	MemberRoleRemoveEvent struct {
		GuildID discord.GuildID
		Member  discord.Member
		RoleID  discord.RoleID
		Role    *discord.Role
	}
)

type (
	ChannelCreateEvent struct {
		Channel discord.Channel
	}

	ChannelUpdateEvent struct {
		// Old is nil if the channel was not cached.
		Old *discord.Channel
		New discord.Channel
	}

	ChannelDeleteEvent struct {
		Channel discord.Channel
	}
)

type (
	MessageReceivedEvent struct {
		Message discord.Message
		// Member is only set for guild messages.
		Member *discord.Member
	}

	MessageUpdateEvent struct {
		// Old is nil if the message was not cached.
		Old *discord.Message
		New discord.Message
	}

	MessageDeleteEvent struct {
		ID        discord.MessageID
		ChannelID discord.ChannelID
		GuildID   discord.GuildID
		// Message is nil if the message was not cached.
		Message *discord.Message
	}
)

type (
	VoiceJoinEvent struct {
		State discord.VoiceState
	}

	VoiceLeaveEvent struct {
		// State is the last state before leaving.
		State discord.VoiceState
	}

	VoiceMoveEvent struct {
		Old discord.VoiceState
		New discord.VoiceState
	}
)

type (
	SelfUpdateEvent struct {
		Old discord.User
		New discord.User
	}

	FriendAddEvent struct {
		User discord.User
	}

	FriendRemoveEvent struct {
		User discord.User
	}
)
