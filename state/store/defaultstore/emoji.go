package defaultstore

import (
	"sync"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/internal/moreatomic"
	"github.com/cordlink/cordlink/state/store"
)

type Emoji struct {
	guilds *moreatomic.Map[discord.GuildID, *emojis]
}

type emojis struct {
	mut    sync.RWMutex
	emojis []discord.Emoji
}

var _ store.EmojiStore = (*Emoji)(nil)

func NewEmoji() *Emoji {
	return &Emoji{
		guilds: moreatomic.NewMap[discord.GuildID](func() *emojis {
			return &emojis{}
		}),
	}
}

func (s *Emoji) Reset() error {
	s.guilds.Reset()
	return nil
}

func (s *Emoji) Emoji(guildID discord.GuildID, emojiID discord.EmojiID) (*discord.Emoji, error) {
	es, ok := s.guilds.Load(guildID)
	if !ok {
		return nil, store.ErrNotFound
	}

	es.mut.RLock()
	defer es.mut.RUnlock()

	for _, emoji := range es.emojis {
		if emoji.ID == emojiID {
			return &emoji, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Emoji) Emojis(guildID discord.GuildID) ([]discord.Emoji, error) {
	es, ok := s.guilds.Load(guildID)
	if !ok {
		return nil, store.ErrNotFound
	}

	es.mut.RLock()
	defer es.mut.RUnlock()

	return append([]discord.Emoji(nil), es.emojis...), nil
}

func (s *Emoji) EmojiSet(guildID discord.GuildID, allEmojis []discord.Emoji) error {
	es, _ := s.guilds.LoadOrStore(guildID)

	cpy := append([]discord.Emoji(nil), allEmojis...)

	es.mut.Lock()
	es.emojis = cpy
	es.mut.Unlock()

	return nil
}

func (s *Emoji) EmojiRemove(guildID discord.GuildID) error {
	s.guilds.Delete(guildID)
	return nil
}
