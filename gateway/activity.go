package gateway

import "github.com/cordlink/cordlink/discord"

// PresenceStatus is the online status shown to other users.
type PresenceStatus string

const (
	UnknownStatus      PresenceStatus = ""
	OnlineStatus       PresenceStatus = "online"
	DoNotDisturbStatus PresenceStatus = "dnd"
	IdleStatus         PresenceStatus = "idle"
	InvisibleStatus    PresenceStatus = "invisible"
	OfflineStatus      PresenceStatus = "offline"
)

type Activity struct {
	Name string       `json:"name"`
	Type ActivityType `json:"type"`
	URL  string       `json:"url,omitempty"`

	CreatedAt     discord.Milliseconds `json:"created_at,omitempty"`
	ApplicationID discord.Snowflake    `json:"application_id,omitempty"`
	Details       string               `json:"details,omitempty"`
	State         string               `json:"state,omitempty"` // party status
	Emoji         *discord.Emoji       `json:"emoji,omitempty"`
}

type ActivityType uint8

const (
	// Playing $name
	GameActivity ActivityType = iota
	// Streaming $details
	StreamingActivity
	// Listening to $name
	ListeningActivity
	// Watching $name
	WatchingActivity
	// $emoji $name
	CustomActivity
	// Competing in $name
	CompetingActivity
)

// Presence is a user's presence in a guild.
type Presence struct {
	User    discord.User    `json:"user"`
	GuildID discord.GuildID `json:"guild_id,omitempty"`

	Status     PresenceStatus `json:"status"`
	Activities []Activity     `json:"activities,omitempty"`
}
