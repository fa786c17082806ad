package api

import (
	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/httputil"
)

// MaxMemberFetchLimit is the largest page the members endpoint returns.
const MaxMemberFetchLimit = 1000

// Member fetches one member of a guild.
func (c *Client) Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error) {
	var m *discord.Member
	return m, c.RequestJSON(&m, "GET", EndpointGuilds+guildID.String()+"/members/"+userID.String())
}

// Members fetches up to limit members of a guild, lowest IDs first. A limit of
// 0 fetches all of them, one request per MaxMemberFetchLimit members.
func (c *Client) Members(guildID discord.GuildID, limit uint) ([]discord.Member, error) {
	return c.MembersAfter(guildID, 0, limit)
}

// MembersAfter is Members, but only for members with an ID above after. The
// members fetched so far are returned along with an error.
func (c *Client) MembersAfter(
	guildID discord.GuildID, after discord.UserID, limit uint) ([]discord.Member, error) {

	var all []discord.Member

	for limit == 0 || uint(len(all)) < limit {
		page := uint(MaxMemberFetchLimit)
		if left := limit - uint(len(all)); limit > 0 && left < page {
			page = left
		}

		members, err := c.memberPage(guildID, after, page)
		all = append(all, members...)
		if err != nil {
			return all, err
		}

		// A short page is the last one.
		if uint(len(members)) < page || len(members) == 0 {
			break
		}

		after = members[len(members)-1].User.ID
	}

	return all, nil
}

func (c *Client) memberPage(
	guildID discord.GuildID, after discord.UserID, limit uint) ([]discord.Member, error) {

	query := struct {
		After discord.UserID `schema:"after,omitempty"`
		Limit uint           `schema:"limit"`
	}{after, limit}

	var members []discord.Member
	return members, c.RequestJSON(
		&members, "GET",
		EndpointGuilds+guildID.String()+"/members",
		httputil.WithSchema(c, query),
	)
}
