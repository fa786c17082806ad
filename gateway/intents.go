package gateway

import (
	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/ws"
)

// Intents for the new Discord API feature, documented at
// https://discord.com/developers/docs/topics/gateway#gateway-intents.
type Intents uint32

const (
	IntentGuilds Intents = 1 << iota
	IntentGuildMembers
	IntentGuildModeration
	IntentGuildEmojis
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping
	IntentMessageContent
)

// DefaultIntents are the intents needed to keep the entity cache complete.
// IntentGuildMembers is privileged and must be enabled in the Developer
// Portal, otherwise the server closes the connection with 4014.
const DefaultIntents = IntentGuilds | IntentGuildMembers | IntentGuildEmojis |
	IntentGuildVoiceStates | IntentGuildMessages | IntentDirectMessages

// PrivilegedIntents contains a list of privileged intents that Discord requires
// bots to have these intents explicitly enabled in the Developer Portal.
var PrivilegedIntents = []Intents{
	IntentGuildPresences,
	IntentGuildMembers,
	IntentMessageContent,
}

// Has returns true if i has the given intents.
func (i Intents) Has(intents Intents) bool {
	return discord.HasFlag(uint64(i), uint64(intents))
}

// IsPrivileged returns true for each of the boolean that indicates the type of
// the privilege.
func (i Intents) IsPrivileged() (presences, member bool) {
	// Keep this in sync with PrivilegedIntents.
	return i.Has(IntentGuildPresences), i.Has(IntentGuildMembers)
}

// EventIntents maps event types to intents.
var EventIntents = map[ws.EventType]Intents{
	"GUILD_CREATE":      IntentGuilds,
	"GUILD_UPDATE":      IntentGuilds,
	"GUILD_DELETE":      IntentGuilds,
	"GUILD_ROLE_CREATE": IntentGuilds,
	"GUILD_ROLE_UPDATE": IntentGuilds,
	"GUILD_ROLE_DELETE": IntentGuilds,
	"CHANNEL_CREATE":    IntentGuilds,
	"CHANNEL_UPDATE":    IntentGuilds,
	"CHANNEL_DELETE":    IntentGuilds,

	"GUILD_MEMBER_ADD":    IntentGuildMembers,
	"GUILD_MEMBER_REMOVE": IntentGuildMembers,
	"GUILD_MEMBER_UPDATE": IntentGuildMembers,

	"GUILD_EMOJIS_UPDATE": IntentGuildEmojis,

	"VOICE_STATE_UPDATE": IntentGuildVoiceStates,

	"PRESENCE_UPDATE": IntentGuildPresences,

	"MESSAGE_CREATE":      IntentGuildMessages | IntentDirectMessages,
	"MESSAGE_UPDATE":      IntentGuildMessages | IntentDirectMessages,
	"MESSAGE_DELETE":      IntentGuildMessages | IntentDirectMessages,
	"MESSAGE_DELETE_BULK": IntentGuildMessages,

	"TYPING_START": IntentGuildMessageTyping | IntentDirectMessageTyping,
}

// IntentsForEvent returns the intents needed to receive the given event.
// Events not bound to an intent return 0.
func IntentsForEvent(t ws.EventType) Intents {
	return EventIntents[t]
}
