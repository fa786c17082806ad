package discord

// Guild is the cached shell of a guild. Roles and emojis are carried in the
// payload but stored separately by the cache.
type Guild struct {
	ID      GuildID `json:"id"`
	Name    string  `json:"name"`
	Icon    Hash    `json:"icon"`
	OwnerID UserID  `json:"owner_id"`

	VoiceRegion  string    `json:"region,omitempty"`
	AFKChannelID ChannelID `json:"afk_channel_id,omitempty"`

	Roles  []Role  `json:"roles,omitempty"`
	Emojis []Emoji `json:"emojis,omitempty"`

	// MemberCount is the total member count advertised by the server. It is
	// only sent with GUILD_CREATE.
	MemberCount uint64 `json:"member_count,omitempty"`
	Large       bool   `json:"large,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`

	Description string `json:"description,omitempty"`
}

// Shell returns a copy of the guild without its role and emoji lists.
func (g Guild) Shell() Guild {
	g.Roles = nil
	g.Emojis = nil
	return g
}

// ShellEqual returns true if both guilds have identical shells. Roles and
// emojis are not compared.
func (g Guild) ShellEqual(other Guild) bool {
	return g.ID == other.ID && g.Name == other.Name && g.Icon == other.Icon &&
		g.OwnerID == other.OwnerID && g.VoiceRegion == other.VoiceRegion &&
		g.AFKChannelID == other.AFKChannelID && g.MemberCount == other.MemberCount &&
		g.Large == other.Large && g.Unavailable == other.Unavailable &&
		g.Description == other.Description
}

// Role is a guild role. Roles are comparable, so two roles with identical
// content compare equal.
type Role struct {
	ID   RoleID `json:"id"`
	Name string `json:"name"`

	Color    uint32 `json:"color"`
	Hoist    bool   `json:"hoist"`
	Position int    `json:"position"`

	Permissions Permissions `json:"permissions"`

	Managed     bool `json:"managed"`
	Mentionable bool `json:"mentionable"`
}

func (r Role) Mention() string {
	return "<@&" + r.ID.String() + ">"
}

type Member struct {
	User    User     `json:"user"`
	Nick    string   `json:"nick,omitempty"`
	RoleIDs []RoleID `json:"roles"`

	Joined       Timestamp `json:"joined_at"`
	BoostedSince Timestamp `json:"premium_since,omitempty"`

	Deaf bool `json:"deaf"`
	Mute bool `json:"mute"`
}

func (m Member) Mention() string {
	return "<@!" + m.User.ID.String() + ">"
}

// HasRole returns true if the member has the given role.
func (m Member) HasRole(id RoleID) bool {
	for _, roleID := range m.RoleIDs {
		if roleID == id {
			return true
		}
	}
	return false
}

// Equal returns true if both members carry identical content.
func (m Member) Equal(other Member) bool {
	if m.User != other.User || m.Nick != other.Nick || m.Deaf != other.Deaf || m.Mute != other.Mute {
		return false
	}
	if m.Joined.Time() != other.Joined.Time() || m.BoostedSince.Time() != other.BoostedSince.Time() {
		return false
	}
	if len(m.RoleIDs) != len(other.RoleIDs) {
		return false
	}
	for _, id := range m.RoleIDs {
		if !other.HasRole(id) {
			return false
		}
	}
	return true
}

// RoleDiff returns the roles present in newer but not in m, and the roles
// present in m but not in newer.
func (m Member) RoleDiff(newer Member) (added, removed []RoleID) {
	for _, id := range newer.RoleIDs {
		if !m.HasRole(id) {
			added = append(added, id)
		}
	}
	for _, id := range m.RoleIDs {
		if !newer.HasRole(id) {
			removed = append(removed, id)
		}
	}
	return
}
