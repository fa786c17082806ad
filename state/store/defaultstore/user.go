package defaultstore

import (
	"sync"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/state/store"
)

type User struct {
	mut   sync.RWMutex
	users map[discord.UserID]userEntry
}

type userEntry struct {
	user discord.User
	fake bool
}

var _ store.UserStore = (*User)(nil)

func NewUser() *User {
	return &User{
		users: map[discord.UserID]userEntry{},
	}
}

func (s *User) Reset() error {
	s.mut.Lock()
	s.users = map[discord.UserID]userEntry{}
	s.mut.Unlock()

	return nil
}

func (s *User) User(id discord.UserID) (*discord.User, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	e, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &e.user, nil
}

func (s *User) Users() ([]discord.User, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if len(s.users) == 0 {
		return nil, store.ErrNotFound
	}

	users := make([]discord.User, 0, len(s.users))
	for _, e := range s.users {
		users = append(users, e.user)
	}

	return users, nil
}

func (s *User) IsFake(id discord.UserID) bool {
	s.mut.RLock()
	defer s.mut.RUnlock()

	return s.users[id].fake
}

func (s *User) UserSet(u *discord.User, fake bool) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	if old, ok := s.users[u.ID]; ok && !old.fake {
		fake = false
	}

	s.users[u.ID] = userEntry{user: *u, fake: fake}
	return nil
}

func (s *User) UserDemote(id discord.UserID) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	e, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}

	e.fake = true
	s.users[id] = e
	return nil
}

func (s *User) UserRemove(id discord.UserID) error {
	s.mut.Lock()
	delete(s.users, id)
	s.mut.Unlock()

	return nil
}
