package state

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/state/store"
)

// Retention is what happens to a user that shares no cached guild with the
// current user anymore.
type Retention uint8

const (
	// RetainUser keeps the user as it is.
	RetainUser Retention = iota
	// DemoteUser keeps the user as a fake, so references such as message
	// authors still resolve.
	DemoteUser
	// ForgetUser removes the user.
	ForgetUser
)

func (r Retention) String() string {
	switch r {
	case RetainUser:
		return "retain"
	case DemoteUser:
		return "demote"
	case ForgetUser:
		return "forget"
	default:
		return "unknown"
	}
}

// UserRetention decides the Retention of a user. It is called with the
// dispatch lock held, so it must only read from the Cabinet.
type UserRetention func(s *State, id discord.UserID) Retention

// DefaultUserRetention keeps users with an open DM channel and, for user
// accounts, friends. Everyone else is demoted.
func DefaultUserRetention(s *State, id discord.UserID) Retention {
	if _, err := s.Cabinet.PrivateChannelOf(id); err == nil {
		return RetainUser
	}

	if !s.IsBot() {
		r, err := s.Cabinet.Relationship(id)
		if err == nil && r.Type == discord.FriendRelationship {
			return RetainUser
		}
	}

	return DemoteUser
}

// releaseUser applies the retention policy to a user once something that tied
// it to the current user is gone.
func (s *State) releaseUser(id discord.UserID) {
	if me, err := s.Cabinet.Me(); err == nil && me.ID == id {
		return
	}

	if len(s.Cabinet.MemberGuilds(id)) > 0 {
		return
	}

	policy := s.UserRetention
	if policy == nil {
		policy = DefaultUserRetention
	}

	var err error

	switch r := policy(s, id); r {
	case DemoteUser:
		err = s.Cabinet.UserDemote(id)
	case ForgetUser:
		err = s.Cabinet.UserRemove(id)
	default:
		return
	}

	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.stateErr(err, "failed to release user")
		return
	}

	s.Logger.Debug("released user", zap.Stringer("user", id))
}
