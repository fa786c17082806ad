package defaultstore

import (
	"sync"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/state/store"
)

type Relationship struct {
	mut           sync.RWMutex
	relationships map[discord.UserID]discord.Relationship
}

var _ store.RelationshipStore = (*Relationship)(nil)

func NewRelationship() *Relationship {
	return &Relationship{
		relationships: map[discord.UserID]discord.Relationship{},
	}
}

func (s *Relationship) Reset() error {
	s.mut.Lock()
	s.relationships = map[discord.UserID]discord.Relationship{}
	s.mut.Unlock()

	return nil
}

func (s *Relationship) Relationship(id discord.UserID) (*discord.Relationship, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &r, nil
}

func (s *Relationship) Relationships() ([]discord.Relationship, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	rs := make([]discord.Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		rs = append(rs, r)
	}

	return rs, nil
}

func (s *Relationship) RelationshipSet(r *discord.Relationship) error {
	s.mut.Lock()
	s.relationships[r.UserID] = *r
	s.mut.Unlock()

	return nil
}

func (s *Relationship) RelationshipRemove(id discord.UserID) error {
	s.mut.Lock()
	delete(s.relationships, id)
	s.mut.Unlock()

	return nil
}
