package defaultstore

import (
	"sync"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/internal/moreatomic"
	"github.com/cordlink/cordlink/state/store"
)

type Member struct {
	guilds *moreatomic.Map[discord.GuildID, *guildMembers]
}

type guildMembers struct {
	mut     sync.RWMutex
	members map[discord.UserID]discord.Member
}

var _ store.MemberStore = (*Member)(nil)

func NewMember() *Member {
	return &Member{
		guilds: moreatomic.NewMap[discord.GuildID](func() *guildMembers {
			return &guildMembers{
				members: make(map[discord.UserID]discord.Member, 1),
			}
		}),
	}
}

func (s *Member) Reset() error {
	s.guilds.Reset()
	return nil
}

func (s *Member) Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error) {
	gm, ok := s.guilds.Load(guildID)
	if !ok {
		return nil, store.ErrNotFound
	}

	gm.mut.RLock()
	defer gm.mut.RUnlock()

	m, ok := gm.members[userID]
	if ok {
		return &m, nil
	}

	return nil, store.ErrNotFound
}

func (s *Member) Members(guildID discord.GuildID) ([]discord.Member, error) {
	gm, ok := s.guilds.Load(guildID)
	if !ok {
		return nil, store.ErrNotFound
	}

	gm.mut.RLock()
	defer gm.mut.RUnlock()

	var members = make([]discord.Member, 0, len(gm.members))
	for _, m := range gm.members {
		members = append(members, m)
	}

	return members, nil
}

func (s *Member) MemberGuilds(userID discord.UserID) []discord.GuildID {
	var guildIDs []discord.GuildID

	s.guilds.Range(func(guildID discord.GuildID, gm *guildMembers) bool {
		gm.mut.RLock()
		_, ok := gm.members[userID]
		gm.mut.RUnlock()

		if ok {
			guildIDs = append(guildIDs, guildID)
		}
		return true
	})

	return guildIDs
}

func (s *Member) MemberSet(guildID discord.GuildID, m *discord.Member, update bool) error {
	gm, _ := s.guilds.LoadOrStore(guildID)

	gm.mut.Lock()
	if _, ok := gm.members[m.User.ID]; !ok || update {
		gm.members[m.User.ID] = *m
	}
	gm.mut.Unlock()

	return nil
}

func (s *Member) MemberRemove(guildID discord.GuildID, userID discord.UserID) error {
	gm, ok := s.guilds.Load(guildID)
	if !ok {
		return nil
	}

	gm.mut.Lock()
	delete(gm.members, userID)
	gm.mut.Unlock()

	return nil
}

func (s *Member) MembersRemove(guildID discord.GuildID) error {
	s.guilds.Delete(guildID)
	return nil
}
