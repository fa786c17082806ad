package defaultstore

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/state/store"
)

type Channel struct {
	mut sync.RWMutex

	// All indices below are guarded by mut.

	channels map[discord.ChannelID]discord.Channel
	privates map[discord.UserID]discord.ChannelID
	guildChs map[discord.GuildID][]discord.ChannelID
}

var _ store.ChannelStore = (*Channel)(nil)

func NewChannel() *Channel {
	return &Channel{
		channels: map[discord.ChannelID]discord.Channel{},
		privates: map[discord.UserID]discord.ChannelID{},
		guildChs: map[discord.GuildID][]discord.ChannelID{},
	}
}

func (s *Channel) Reset() error {
	s.mut.Lock()
	defer s.mut.Unlock()

	s.channels = map[discord.ChannelID]discord.Channel{}
	s.privates = map[discord.UserID]discord.ChannelID{}
	s.guildChs = map[discord.GuildID][]discord.ChannelID{}

	return nil
}

func (s *Channel) Channel(id discord.ChannelID) (*discord.Channel, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &ch, nil
}

func (s *Channel) PrivateChannelOf(recipient discord.UserID) (*discord.Channel, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	id, ok := s.privates[recipient]
	if !ok {
		return nil, store.ErrNotFound
	}

	cpy := s.channels[id]
	return &cpy, nil
}

// Channels returns a list of Guild channels randomly ordered.
func (s *Channel) Channels(guildID discord.GuildID) ([]discord.Channel, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	chIDs, ok := s.guildChs[guildID]
	if !ok {
		return nil, store.ErrNotFound
	}

	var channels = make([]discord.Channel, 0, len(chIDs))
	for _, chID := range chIDs {
		if ch, ok := s.channels[chID]; ok {
			channels = append(channels, ch)
		}
	}

	return channels, nil
}

// PrivateChannels returns a list of Direct Message channels randomly ordered.
func (s *Channel) PrivateChannels() ([]discord.Channel, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	groupDMs := s.guildChs[0]

	if len(s.privates) == 0 && len(groupDMs) == 0 {
		return nil, store.ErrNotFound
	}

	var channels = make([]discord.Channel, 0, len(s.privates)+len(groupDMs))
	for _, chID := range s.privates {
		if ch, ok := s.channels[chID]; ok {
			channels = append(channels, ch)
		}
	}
	for _, chID := range groupDMs {
		if ch, ok := s.channels[chID]; ok {
			channels = append(channels, ch)
		}
	}

	return channels, nil
}

// ChannelSet sets the Direct Message or Guild channel into the state.
func (s *Channel) ChannelSet(channel *discord.Channel, update bool) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if _, ok := s.channels[channel.ID]; ok && !update {
		return nil
	}

	switch channel.Type {
	case discord.DirectMessage:
		if len(channel.DMRecipients) != 1 {
			return errors.Errorf("DirectMessage channel %d doesn't have 1 recipient", channel.ID)
		}
		s.channels[channel.ID] = *channel
		s.privates[channel.DMRecipients[0].ID] = channel.ID
		return nil
	case discord.GroupDM:
		s.channels[channel.ID] = *channel
		s.guildChs[0] = addChannelID(s.guildChs[0], channel.ID)
		return nil
	}

	if !channel.GuildID.IsValid() {
		return errors.New("invalid guildID for guild channel")
	}

	s.channels[channel.ID] = *channel
	s.guildChs[channel.GuildID] = addChannelID(s.guildChs[channel.GuildID], channel.ID)
	return nil
}

func (s *Channel) ChannelRemove(channel *discord.Channel) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	delete(s.channels, channel.ID)

	switch channel.Type {
	case discord.DirectMessage:
		if len(channel.DMRecipients) != 1 {
			return errors.Errorf("DirectMessage channel %d doesn't have 1 recipient", channel.ID)
		}
		delete(s.privates, channel.DMRecipients[0].ID)
		return nil
	case discord.GroupDM:
		s.guildChs[0] = removeChannelID(s.guildChs[0], channel.ID)
		return nil
	}

	s.guildChs[channel.GuildID] = removeChannelID(s.guildChs[channel.GuildID], channel.ID)
	if len(s.guildChs[channel.GuildID]) == 0 {
		delete(s.guildChs, channel.GuildID)
	}
	return nil
}

func addChannelID(channels []discord.ChannelID, id discord.ChannelID) []discord.ChannelID {
	for _, ch := range channels {
		if ch == id {
			return channels
		}
	}
	if channels == nil {
		channels = make([]discord.ChannelID, 0, 5)
	}
	return append(channels, id)
}

// removeChannelID removes the channel from the slice without keeping order.
func removeChannelID(channels []discord.ChannelID, id discord.ChannelID) []discord.ChannelID {
	for i, ch := range channels {
		if ch == id {
			channels[i] = channels[len(channels)-1]
			channels = channels[:len(channels)-1]
			break
		}
	}
	return channels
}
