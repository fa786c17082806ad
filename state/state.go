// Package state keeps an entity cache in sync with the gateway. It sits
// between the session's read loop and the handler: every dispatch is applied
// to the Cabinet first, then handed to subscribers along with the higher
// level events in events.go.
//
// Dispatches that reference an entity the cache does not know yet are kept in
// an EventCache and replayed once the entity arrives. During the initial load,
// which ends once every guild announced in READY is cached, dispatches are held
// back so that subscribers only ever see a populated cache.
package state

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/internal/moreatomic"
	"github.com/cordlink/cordlink/session"
	"github.com/cordlink/cordlink/state/store"
	"github.com/cordlink/cordlink/state/store/defaultstore"
	"github.com/cordlink/cordlink/utils/metrics"
	"github.com/cordlink/cordlink/utils/ws"
)

// DefaultLoadTimeout is how long the initial load waits for missing guilds.
const DefaultLoadTimeout = time.Minute

// Commander sends the gateway commands the state needs while populating a
// guild. *gateway.Gateway satisfies it.
type Commander interface {
	RequestGuildMembers(gateway.RequestGuildMembersCommand) (nonce string, err error)
	GuildSync(guildIDs ...discord.GuildID) error
}

// State is a cache of gateway entities. It embeds Session, so handlers are
// added to the State itself. Getters look into the Cabinet first and fall
// back to the REST API.
type State struct {
	*session.Session
	Cabinet *store.Cabinet

	// Commander defaults to the session's gateway.
	Commander Commander
	// UserRetention decides what happens to a user that no guild or DM ties
	// to the current user anymore.
	UserRetention UserRetention
	// LoadTimeout bounds the initial load. Guilds still missing then are
	// treated as unavailable.
	LoadTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	events   *EventCache
	handlers map[ws.EventType]eventHandler

	// dispatchMu serializes event processing. Everything below is guarded by
	// it.
	dispatchMu sync.Mutex
	setups     map[discord.GuildID]*GuildSnapshot
	load       *initialLoad
	deferred   []func()

	unavailable *moreatomic.Set[discord.GuildID]
	unready     *moreatomic.Set[discord.GuildID]

	// guildLocks serialize mutations of a guild's entities between the event
	// path and REST fallbacks.
	guildLocks *moreatomic.Map[discord.GuildID, *sync.Mutex]
}

// New creates a session for the token and a State over it with the default
// store.
func New(token string) (*State, error) {
	ses, err := session.New(token)
	if err != nil {
		return nil, err
	}

	return NewFromSession(ses, defaultstore.New()), nil
}

// NewFromSession creates a State that takes over the session's Op handling.
func NewFromSession(ses *session.Session, cabinet *store.Cabinet) *State {
	s := &State{
		Session:       ses,
		Cabinet:       cabinet,
		Commander:     ses.Gateway,
		UserRetention: DefaultUserRetention,
		LoadTimeout:   DefaultLoadTimeout,
		events:        NewEventCache(DefaultMaxPending),
		setups:        map[discord.GuildID]*GuildSnapshot{},
		unavailable:   moreatomic.NewSet[discord.GuildID](),
		unready:       moreatomic.NewSet[discord.GuildID](),
		guildLocks: moreatomic.NewMap[discord.GuildID](func() *sync.Mutex {
			return &sync.Mutex{}
		}),
	}

	s.SetLogger(ses.Logger)
	s.registerHandlers()

	ses.SetOpHandler(s.HandleOp)
	return s
}

// SetLogger sets the logger of the State and its event cache.
func (s *State) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}

	s.Logger = l.Named("state")
	s.events.Logger = s.Logger
}

// Events returns the cache of pending dispatches.
func (s *State) Events() *EventCache {
	return s.events
}

// Unavailable returns true if the guild is known to be in an outage.
func (s *State) Unavailable(id discord.GuildID) bool {
	return s.unavailable.Contains(id)
}

func (s *State) lockGuild(id discord.GuildID) func() {
	mu, _ := s.guildLocks.LoadOrStore(id)
	mu.Lock()
	return mu.Unlock
}

// withGuild runs fn with the guild locked.
func (s *State) withGuild(id discord.GuildID, fn func()) {
	unlock := s.lockGuild(id)
	defer unlock()

	fn()
}

func (s *State) stateErr(err error, wrap string) {
	if err != nil {
		s.Logger.Warn("cache error", zap.Error(errors.Wrap(err, wrap)))
	}
}

////

// Me returns the current user.
func (s *State) Me() (*discord.User, error) {
	u, err := s.Cabinet.Me()
	if err == nil {
		return u, nil
	}

	u, err = s.Session.Me()
	if err != nil {
		return nil, err
	}

	s.stateErr(s.Cabinet.MyselfSet(*u), "failed to set self")
	return u, nil
}

// User returns a known user. Users fetched over REST are stored as fake.
func (s *State) User(id discord.UserID) (*discord.User, error) {
	u, err := s.Cabinet.User(id)
	if err == nil {
		return u, nil
	}

	u, err = s.Session.User(id)
	if err != nil {
		return nil, err
	}

	s.stateErr(s.Cabinet.UserSet(u, true), "failed to set fetched user")
	return u, nil
}

func (s *State) Guild(id discord.GuildID) (*discord.Guild, error) {
	g, err := s.Cabinet.Guild(id)
	if err == nil {
		return g, nil
	}

	g, err = s.Session.GuildWithCount(id)
	if err != nil {
		return nil, err
	}

	unlock := s.lockGuild(id)
	defer unlock()

	s.stateErr(s.Cabinet.GuildSet(g, false), "failed to set fetched guild")

	if g.Roles != nil {
		for i := range g.Roles {
			s.stateErr(s.Cabinet.RoleSet(id, &g.Roles[i], false), "failed to set fetched role")
		}
	}
	if g.Emojis != nil {
		s.stateErr(s.Cabinet.EmojiSet(id, g.Emojis), "failed to set fetched emojis")
	}

	return g, nil
}

func (s *State) Channel(id discord.ChannelID) (*discord.Channel, error) {
	c, err := s.Cabinet.Channel(id)
	if err == nil {
		return c, nil
	}

	c, err = s.Session.Channel(id)
	if err != nil {
		return nil, err
	}

	if c.GuildID.IsValid() {
		unlock := s.lockGuild(c.GuildID)
		defer unlock()
	}

	s.stateErr(s.Cabinet.ChannelSet(c, false), "failed to set fetched channel")
	return c, nil
}

func (s *State) Channels(guildID discord.GuildID) ([]discord.Channel, error) {
	c, err := s.Cabinet.Channels(guildID)
	if err == nil {
		return c, nil
	}

	c, err = s.Session.Channels(guildID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockGuild(guildID)
	defer unlock()

	for i := range c {
		c[i].GuildID = guildID
		s.stateErr(s.Cabinet.ChannelSet(&c[i], false), "failed to set fetched channel")
	}

	return c, nil
}

// PrivateChannels only returns cached DM channels.
func (s *State) PrivateChannels() ([]discord.Channel, error) {
	return s.Cabinet.PrivateChannels()
}

func (s *State) Role(guildID discord.GuildID, roleID discord.RoleID) (*discord.Role, error) {
	r, err := s.Cabinet.Role(guildID, roleID)
	if err == nil {
		return r, nil
	}

	roles, err := s.Roles(guildID)
	if err != nil {
		return nil, err
	}

	for i := range roles {
		if roles[i].ID == roleID {
			return &roles[i], nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *State) Roles(guildID discord.GuildID) ([]discord.Role, error) {
	r, err := s.Cabinet.Roles(guildID)
	if err == nil && len(r) > 0 {
		return r, nil
	}

	r, err = s.Session.Roles(guildID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockGuild(guildID)
	defer unlock()

	for i := range r {
		s.stateErr(s.Cabinet.RoleSet(guildID, &r[i], false), "failed to set fetched role")
	}

	return r, nil
}

// Member returns a guild member. A member fetched over REST makes its user
// real.
func (s *State) Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error) {
	m, err := s.Cabinet.Member(guildID, userID)
	if err == nil {
		return m, nil
	}

	m, err = s.Session.Member(guildID, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockGuild(guildID)
	defer unlock()

	s.stateErr(s.Cabinet.MemberSet(guildID, m, false), "failed to set fetched member")
	s.stateErr(s.Cabinet.UserSet(&m.User, false), "failed to set fetched member user")

	return m, nil
}

// Members returns the cached members of the guild. Guilds are fully
// populated once loaded, so this never fetches.
func (s *State) Members(guildID discord.GuildID) ([]discord.Member, error) {
	return s.Cabinet.Members(guildID)
}

func (s *State) Message(channelID discord.ChannelID, id discord.MessageID) (*discord.Message, error) {
	return s.Cabinet.Message(channelID, id)
}

func (s *State) Messages(channelID discord.ChannelID) ([]discord.Message, error) {
	return s.Cabinet.Messages(channelID)
}

func (s *State) VoiceState(guildID discord.GuildID, userID discord.UserID) (*discord.VoiceState, error) {
	return s.Cabinet.VoiceState(guildID, userID)
}
