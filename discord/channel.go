package discord

import (
	"strconv"
	"strings"
	"time"
)

// Channel represents a guild or DM channel within Discord.
type Channel struct {
	ID      ChannelID   `json:"id"`
	Type    ChannelType `json:"type"`
	GuildID GuildID     `json:"guild_id,omitempty"`

	Name     string `json:"name,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Position int    `json:"position,omitempty"`
	NSFW     bool   `json:"nsfw,omitempty"`

	// Permissions are the explicit permission overrides for members and roles.
	Permissions []Overwrite `json:"permission_overwrites,omitempty"`
	// CategoryID is the id of the parent category. It may reference a
	// category that is not cached yet.
	CategoryID ChannelID `json:"parent_id,omitempty"`

	LastMessageID  MessageID `json:"last_message_id,omitempty"`
	VoiceBitrate   uint      `json:"bitrate,omitempty"`
	VoiceUserLimit uint      `json:"user_limit,omitempty"`

	// DMRecipients are the recipients of the DM.
	DMRecipients []User `json:"recipients,omitempty"`
}

func (ch Channel) CreatedAt() time.Time {
	return ch.ID.Time()
}

func (ch Channel) Mention() string {
	return "<#" + ch.ID.String() + ">"
}

// IsPrivate returns true for DM and group DM channels.
func (ch Channel) IsPrivate() bool {
	return ch.Type == DirectMessage || ch.Type == GroupDM
}

// Equal returns true if both channels carry identical content.
func (ch Channel) Equal(other Channel) bool {
	if ch.ID != other.ID || ch.Type != other.Type || ch.GuildID != other.GuildID ||
		ch.Name != other.Name || ch.Topic != other.Topic || ch.Position != other.Position ||
		ch.NSFW != other.NSFW || ch.CategoryID != other.CategoryID ||
		ch.LastMessageID != other.LastMessageID || ch.VoiceBitrate != other.VoiceBitrate ||
		ch.VoiceUserLimit != other.VoiceUserLimit {
		return false
	}
	if len(ch.Permissions) != len(other.Permissions) || len(ch.DMRecipients) != len(other.DMRecipients) {
		return false
	}
	for i := range ch.Permissions {
		if ch.Permissions[i] != other.Permissions[i] {
			return false
		}
	}
	for i := range ch.DMRecipients {
		if ch.DMRecipients[i] != other.DMRecipients[i] {
			return false
		}
	}
	return true
}

type ChannelType uint8

const (
	GuildText ChannelType = iota
	DirectMessage
	GuildVoice
	GroupDM
	GuildCategory
	GuildNews
	GuildStore
	_
	_
	_
	GuildNewsThread
	GuildPublicThread
	GuildPrivateThread
	GuildStageVoice
)

// Overwrite is a permission overwrite of a channel.
type Overwrite struct {
	// ID is the role or user id.
	ID    Snowflake     `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permissions   `json:"allow"`
	Deny  Permissions   `json:"deny"`
}

// OverwriteType indicates the entity being overwritten: role or member.
type OverwriteType uint8

const (
	OverwriteRole OverwriteType = iota
	OverwriteMember
)

// UnmarshalJSON accepts a string-quoted number, a regular number, and the
// legacy "role"/"member" strings still seen in GUILD_CREATE.
func (otype *OverwriteType) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	switch s {
	case "role":
		*otype = OverwriteRole
		return nil
	case "member":
		*otype = OverwriteMember
		return nil
	}

	u, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return err
	}

	*otype = OverwriteType(u)
	return nil
}
