// Package defaultstore provides thread-safe store implementations that store
// state values in memory.
package defaultstore

import "github.com/cordlink/cordlink/state/store"

// DefaultMaxMessages is the per-channel message limit used by New.
const DefaultMaxMessages = 100

// New creates a new cabinet instance of defaultstore. For Message, it creates a
// Message store with a limit of DefaultMaxMessages messages.
func New() *store.Cabinet {
	return &store.Cabinet{
		MeStore:           NewMe(),
		ChannelStore:      NewChannel(),
		EmojiStore:        NewEmoji(),
		GuildStore:        NewGuild(),
		MemberStore:       NewMember(),
		MessageStore:      NewMessage(DefaultMaxMessages),
		RelationshipStore: NewRelationship(),
		RoleStore:         NewRole(),
		UserStore:         NewUser(),
		VoiceStateStore:   NewVoiceState(),
	}
}
