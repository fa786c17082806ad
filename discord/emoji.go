package discord

// Emoji is a custom guild emoji. The ID is null for Unicode emojis.
type Emoji struct {
	ID      EmojiID  `json:"id"`
	Name    string   `json:"name"`
	RoleIDs []RoleID `json:"roles,omitempty"`

	RequireColons bool `json:"require_colons,omitempty"`
	Managed       bool `json:"managed,omitempty"`
	Animated      bool `json:"animated,omitempty"`
	Available     bool `json:"available,omitempty"`
}

// APIString returns a string usable for sending the emoji as part of a
// reaction route.
func (e Emoji) APIString() string {
	if !e.ID.IsValid() {
		return e.Name
	}
	return e.Name + ":" + e.ID.String()
}
