// Package store contains interfaces of the state's storage and its
// implementations.
//
// Getter Methods
//
// Getters return copies. Methods that return with a slice must copy the
// whole slice, like defaultstore implementations do, so that callers never
// observe later mutation.
//
// Getter methods should not care about returning slices in order, unless
// explicitly stated against.
//
// ErrNotFound Rules
//
// If a getter method cannot find something, it should return ErrNotFound.
// Callers including State may check if the error is ErrNotFound to do something
// else, such as buffering the event that referenced it.
//
// Remove Methods
//
// Remove methods should return a nil error if the item it wants to delete is
// not found.
package store

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/discord"
)

// ErrNotFound is an error that a store can use to return when something isn't
// in the storage.
var ErrNotFound = errors.New("item not found in store")

// Cabinet combines all store interfaces into one but allows swapping individual
// stores out for another. Since the struct only consists of interfaces, it can
// be copied around.
type Cabinet struct {
	MeStore
	ChannelStore
	EmojiStore
	GuildStore
	MemberStore
	MessageStore
	RelationshipStore
	RoleStore
	UserStore
	VoiceStateStore
}

// Reset resets everything inside the container.
func (sc *Cabinet) Reset() error {
	var errs ResetErrors

	errs.append(sc.MeStore.Reset())
	errs.append(sc.ChannelStore.Reset())
	errs.append(sc.EmojiStore.Reset())
	errs.append(sc.GuildStore.Reset())
	errs.append(sc.MemberStore.Reset())
	errs.append(sc.MessageStore.Reset())
	errs.append(sc.RelationshipStore.Reset())
	errs.append(sc.RoleStore.Reset())
	errs.append(sc.UserStore.Reset())
	errs.append(sc.VoiceStateStore.Reset())

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ResetErrors represents the multiple errors when a Cabinet is being reset. A
// ResetErrors value must have at least 1 error.
type ResetErrors []error

// Error formats ResetErrors, showing the number of errors and the last error.
func (errs ResetErrors) Error() string {
	return fmt.Sprintf(
		"encountered %d reset errors (last: %v)",
		len(errs), errs[len(errs)-1],
	)
}

// Unwrap returns the last error in the list.
func (errs ResetErrors) Unwrap() error {
	return errs[len(errs)-1]
}

// append adds the error only if it is not nil.
func (errs *ResetErrors) append(err error) {
	if err != nil {
		*errs = append(*errs, err)
	}
}

// Resetter is an interface to reset the store.
type Resetter interface {
	// Reset resets the store to a new valid instance.
	Reset() error
}

// MeStore is the store interface for the current user.
type MeStore interface {
	Resetter

	Me() (*discord.User, error)
	MyselfSet(me discord.User) error
}

// ChannelStore is the store interface for all channels.
type ChannelStore interface {
	Resetter

	// Channel searches for both DM and guild channels.
	Channel(discord.ChannelID) (*discord.Channel, error)
	// PrivateChannelOf searches for the DM channel with the given recipient.
	PrivateChannelOf(recipient discord.UserID) (*discord.Channel, error)

	// Channels returns only channels from a guild.
	Channels(discord.GuildID) ([]discord.Channel, error)
	// PrivateChannels returns all private channels from the state.
	PrivateChannels() ([]discord.Channel, error)

	// Both ChannelSet and ChannelRemove should switch on Type to know if it's a
	// private channel or not.

	ChannelSet(c *discord.Channel, update bool) error
	ChannelRemove(*discord.Channel) error
}

// EmojiStore is the store interface for all emojis.
type EmojiStore interface {
	Resetter

	Emoji(discord.GuildID, discord.EmojiID) (*discord.Emoji, error)
	Emojis(discord.GuildID) ([]discord.Emoji, error)

	// EmojiSet should delete all old emojis before setting new ones. The given
	// emojis slice will be a complete list of all emojis.
	EmojiSet(guildID discord.GuildID, emojis []discord.Emoji) error
	EmojiRemove(guildID discord.GuildID) error
}

// GuildStore is the store interface for all guilds. Guilds are stored as
// shells, without roles and emojis.
type GuildStore interface {
	Resetter

	Guild(discord.GuildID) (*discord.Guild, error)
	Guilds() ([]discord.Guild, error)

	GuildSet(g *discord.Guild, update bool) error
	GuildRemove(id discord.GuildID) error
}

// MemberStore is the store interface for all members.
type MemberStore interface {
	Resetter

	Member(discord.GuildID, discord.UserID) (*discord.Member, error)
	Members(discord.GuildID) ([]discord.Member, error)
	// MemberGuilds returns the guilds the user is a cached member of.
	MemberGuilds(discord.UserID) []discord.GuildID

	MemberSet(guildID discord.GuildID, m *discord.Member, update bool) error
	MemberRemove(discord.GuildID, discord.UserID) error
	// MembersRemove drops every member of the guild.
	MembersRemove(discord.GuildID) error
}

// MessageStore is the store interface for all messages.
type MessageStore interface {
	Resetter

	// MaxMessages returns the maximum number of messages kept per channel.
	MaxMessages() int

	Message(discord.ChannelID, discord.MessageID) (*discord.Message, error)
	// Messages should return messages ordered from latest to earliest.
	Messages(discord.ChannelID) ([]discord.Message, error)

	// MessageSet either updates or adds a new message.
	//
	// A new message can be added, by setting update to false. Depending on
	// timestamp of the message, it will either be prepended or appended.
	//
	// If update is set to true, MessageSet will check if a message with the
	// id of the passed message is stored, and update it if so. Otherwise, if
	// there is no such message, it will be discarded.
	MessageSet(m *discord.Message, update bool) error
	MessageRemove(discord.ChannelID, discord.MessageID) error
	// MessagesRemove drops every message of the channel.
	MessagesRemove(discord.ChannelID) error
}

// RelationshipStore is the store interface for the relationships of a user
// account. Bots have none.
type RelationshipStore interface {
	Resetter

	Relationship(discord.UserID) (*discord.Relationship, error)
	Relationships() ([]discord.Relationship, error)

	RelationshipSet(r *discord.Relationship) error
	RelationshipRemove(discord.UserID) error
}

// UserStore is the store interface for all known users. A fake user is one
// that is only kept because something still references it, such as a
// message author, while no guild or DM ties it to the current user anymore.
type UserStore interface {
	Resetter

	User(discord.UserID) (*discord.User, error)
	Users() ([]discord.User, error)
	// IsFake returns true if the user is stored and is fake.
	IsFake(discord.UserID) bool

	// UserSet stores the user. A real user is never demoted to a fake one
	// through UserSet; use UserDemote.
	UserSet(u *discord.User, fake bool) error
	// UserDemote marks a stored user as fake.
	UserDemote(discord.UserID) error
	UserRemove(discord.UserID) error
}

// RoleStore is the store interface for all member roles.
type RoleStore interface {
	Resetter

	Role(discord.GuildID, discord.RoleID) (*discord.Role, error)
	Roles(discord.GuildID) ([]discord.Role, error)

	RoleSet(guildID discord.GuildID, r *discord.Role, update bool) error
	RoleRemove(discord.GuildID, discord.RoleID) error
	// RolesRemove drops every role of the guild.
	RolesRemove(discord.GuildID) error
}

// VoiceStateStore is the store interface for all voice states.
type VoiceStateStore interface {
	Resetter

	VoiceState(discord.GuildID, discord.UserID) (*discord.VoiceState, error)
	VoiceStates(discord.GuildID) ([]discord.VoiceState, error)

	VoiceStateSet(guildID discord.GuildID, s *discord.VoiceState, update bool) error
	VoiceStateRemove(discord.GuildID, discord.UserID) error
	// VoiceStatesRemove drops every voice state of the guild.
	VoiceStatesRemove(discord.GuildID) error
}
