package api

import (
	"github.com/cordlink/cordlink/discord"
)

var EndpointGuilds = Endpoint + "guilds/"

// Guild returns the guild object for the given id. MemberCount is not filled;
// use GuildWithCount for it.
func (c *Client) Guild(id discord.GuildID) (*discord.Guild, error) {
	var g *discord.Guild
	return g, c.RequestJSON(&g, "GET", EndpointGuilds+id.String())
}

// GuildWithCount returns the guild object for the given id with the
// approximate member count filled in.
func (c *Client) GuildWithCount(id discord.GuildID) (*discord.Guild, error) {
	var g struct {
		discord.Guild
		ApproximateMembers uint64 `json:"approximate_member_count"`
	}

	err := c.RequestJSON(&g, "GET", EndpointGuilds+id.String()+"?with_counts=true")
	if err != nil {
		return nil, err
	}

	if g.MemberCount == 0 {
		g.MemberCount = g.ApproximateMembers
	}

	return &g.Guild, nil
}

// Roles returns the list of roles in the guild.
func (c *Client) Roles(guildID discord.GuildID) ([]discord.Role, error) {
	var roles []discord.Role
	return roles, c.RequestJSON(&roles, "GET", EndpointGuilds+guildID.String()+"/roles")
}
