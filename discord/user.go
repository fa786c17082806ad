package discord

import "time"

type User struct {
	ID            UserID `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        Hash   `json:"avatar"`

	// may be ommited
	Bot bool `json:"bot,omitempty"`
	// may be ommited
	DiscordSystem bool `json:"system,omitempty"`
}

// Hash is an image hash.
type Hash = string

// CreatedAt returns a time object representing when the user was created.
func (u User) CreatedAt() time.Time {
	return u.ID.Time()
}

// Mention returns a mention of the user.
func (u User) Mention() string {
	return "<@" + u.ID.String() + ">"
}

// Tag returns a tag of the user.
func (u User) Tag() string {
	return u.Username + "#" + u.Discriminator
}

// RelationshipType is the type of a relationship between the current user
// and another user. Only user accounts have relationships.
type RelationshipType uint8

const (
	_ RelationshipType = iota
	FriendRelationship
	BlockedRelationship
	IncomingFriendRequest
	SentFriendRequest
)

type Relationship struct {
	UserID UserID           `json:"id"`
	User   User             `json:"user"`
	Type   RelationshipType `json:"type"`
}
