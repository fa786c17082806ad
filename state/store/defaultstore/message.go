package defaultstore

import (
	"sync"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/internal/moreatomic"
	"github.com/cordlink/cordlink/state/store"
)

// Message keeps up to maxMsgs messages per channel, ordered from latest to
// earliest.
type Message struct {
	channels *moreatomic.Map[discord.ChannelID, *messages]
	maxMsgs  int
}

var _ store.MessageStore = (*Message)(nil)

type messages struct {
	mut      sync.RWMutex
	messages []discord.Message
}

func NewMessage(maxMsgs int) *Message {
	return &Message{
		channels: moreatomic.NewMap[discord.ChannelID](func() *messages {
			return &messages{}
		}),
		maxMsgs: maxMsgs,
	}
}

func (s *Message) Reset() error {
	s.channels.Reset()
	return nil
}

func (s *Message) MaxMessages() int {
	return s.maxMsgs
}

func (s *Message) Message(chID discord.ChannelID, mID discord.MessageID) (*discord.Message, error) {
	msgs, ok := s.channels.Load(chID)
	if !ok {
		return nil, store.ErrNotFound
	}

	msgs.mut.RLock()
	defer msgs.mut.RUnlock()

	for _, m := range msgs.messages {
		if m.ID == mID {
			return &m, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Message) Messages(channelID discord.ChannelID) ([]discord.Message, error) {
	msgs, ok := s.channels.Load(channelID)
	if !ok {
		return nil, store.ErrNotFound
	}

	msgs.mut.RLock()
	defer msgs.mut.RUnlock()

	return append([]discord.Message(nil), msgs.messages...), nil
}

func (s *Message) MessageSet(message *discord.Message, update bool) error {
	if s.maxMsgs <= 0 {
		return nil
	}

	if update {
		msgs, ok := s.channels.Load(message.ChannelID)
		if !ok {
			return nil
		}

		msgs.mut.Lock()
		defer msgs.mut.Unlock()

		// Recent messages are the likeliest to be edited, so search from the
		// front.
		for i := range msgs.messages {
			if msgs.messages[i].ID == message.ID {
				msgs.messages[i] = *message
				break
			}
		}

		return nil
	}

	msgs, _ := s.channels.LoadOrStore(message.ChannelID)

	msgs.mut.Lock()
	defer msgs.mut.Unlock()

	if len(msgs.messages) == 0 {
		msgs.messages = append(make([]discord.Message, 0, 1), *message)
		return nil
	}

	switch insertPosition(message, msgs.messages) {
	case insertFront:
		if len(msgs.messages) >= s.maxMsgs {
			// Full; the oldest message falls off the back.
			copy(msgs.messages[1:], msgs.messages[:s.maxMsgs-1])
			msgs.messages = msgs.messages[:s.maxMsgs]
			msgs.messages[0] = *message
		} else {
			msgs.messages = append([]discord.Message{*message}, msgs.messages...)
		}
	case insertBack:
		if len(msgs.messages) < s.maxMsgs {
			msgs.messages = append(msgs.messages, *message)
		}
	}

	return nil
}

type position uint8

const (
	insertNone position = iota
	insertFront
	insertBack
)

// insertPosition decides where the message goes in messages, which are ordered
// from latest to earliest by snowflake time. Snowflake times are used for
// their millisecond precision. A message that already exists, or that would
// land in the middle, is not inserted. Equal times at either end favor
// insertion.
func insertPosition(target *discord.Message, messages []discord.Message) position {
	var (
		targetTime = target.ID.Time()
		firstTime  = messages[0].ID.Time()
		lastTime   = messages[len(messages)-1].ID.Time()
	)

	switch {
	case targetTime.After(firstTime):
		return insertFront
	case targetTime.Before(lastTime):
		return insertBack
	}

	if targetTime.Equal(firstTime) {
		for i := 0; i < len(messages) && targetTime.Equal(messages[i].ID.Time()); i++ {
			if messages[i].ID == target.ID {
				return insertNone
			}
		}
		return insertFront
	}

	if targetTime.Equal(lastTime) {
		for i := len(messages) - 1; i >= 0 && targetTime.Equal(messages[i].ID.Time()); i-- {
			if messages[i].ID == target.ID {
				return insertNone
			}
		}
		return insertBack
	}

	return insertNone
}

func (s *Message) MessageRemove(channelID discord.ChannelID, messageID discord.MessageID) error {
	msgs, ok := s.channels.Load(channelID)
	if !ok {
		return nil
	}

	msgs.mut.Lock()
	defer msgs.mut.Unlock()

	for i, m := range msgs.messages {
		if m.ID == messageID {
			msgs.messages = append(msgs.messages[:i], msgs.messages[i+1:]...)
			return nil
		}
	}

	return nil
}

func (s *Message) MessagesRemove(channelID discord.ChannelID) error {
	s.channels.Delete(channelID)
	return nil
}
