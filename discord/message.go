package discord

type Message struct {
	ID        MessageID `json:"id"`
	ChannelID ChannelID `json:"channel_id"`
	GuildID   GuildID   `json:"guild_id,omitempty"`

	Author  User   `json:"author"`
	Content string `json:"content"`

	Timestamp       Timestamp `json:"timestamp,omitempty"`
	EditedTimestamp Timestamp `json:"edited_timestamp,omitempty"`

	TTS             bool     `json:"tts"`
	MentionEveryone bool     `json:"mention_everyone"`
	Mentions        []User   `json:"mentions"`
	MentionRoleIDs  []RoleID `json:"mention_roles"`
	Pinned          bool     `json:"pinned"`
}
