package state

import (
	"time"

	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/utils/ws"
)

// GuildSnapshot is a guild whose GUILD_CREATE has been applied while its
// member list is still being requested. Other events of the guild wait until
// the setup completes.
type GuildSnapshot struct {
	Payload *gateway.GuildCreateEvent

	// Expected is the member count advertised by the payload. Received counts
	// members from chunks answering our own request.
	Expected int
	Received int
	Nonce    string

	onComplete func()
}

// setupGuild stores a guild in two passes. The first pass stores everything
// that references nothing else. The second pass, which runs once every member
// is known, stores permission overwrites and voice states, which reference
// roles and members.
func (s *State) setupGuild(ev *gateway.GuildCreateEvent, onComplete func()) {
	s.firstPass(ev)

	if len(ev.Members) >= int(ev.MemberCount) {
		s.secondPass(ev)
		onComplete()
		return
	}

	snap := &GuildSnapshot{
		Payload:    ev,
		Expected:   int(ev.MemberCount),
		onComplete: onComplete,
	}

	query := ""

	nonce, err := s.Commander.RequestGuildMembers(gateway.RequestGuildMembersCommand{
		GuildIDs: []discord.GuildID{ev.ID},
		Query:    &query,
		Limit:    0,
	})
	if err != nil {
		s.Logger.Warn("failed to request guild members, using partial list",
			zap.Stringer("guild", ev.ID),
			zap.Error(err))

		s.secondPass(ev)
		onComplete()
		return
	}

	snap.Nonce = nonce
	s.setups[ev.ID] = snap

	if !s.IsBot() {
		if err := s.Commander.GuildSync(ev.ID); err != nil {
			s.Logger.Warn("failed to sync guild",
				zap.Stringer("guild", ev.ID),
				zap.Error(err))
		}
	}

	s.Logger.Debug("requested guild members",
		zap.Stringer("guild", ev.ID),
		zap.Int("inline", len(ev.Members)),
		zap.Int("expected", snap.Expected))
}

func (s *State) firstPass(ev *gateway.GuildCreateEvent) {
	unlock := s.lockGuild(ev.ID)
	defer unlock()

	guild := ev.Guild.Shell()
	guild.Unavailable = false
	s.stateErr(s.Cabinet.GuildSet(&guild, true), "failed to set guild")

	s.stateErr(s.Cabinet.RolesRemove(ev.ID), "failed to clear roles")
	for i := range ev.Roles {
		s.stateErr(s.Cabinet.RoleSet(ev.ID, &ev.Roles[i], true), "failed to set role")
	}

	s.stateErr(s.Cabinet.EmojiSet(ev.ID, ev.Emojis), "failed to set emojis")

	for _, ch := range ev.Channels {
		ch.GuildID = ev.ID
		ch.Permissions = nil
		s.stateErr(s.Cabinet.ChannelSet(&ch, true), "failed to set channel")
	}

	// The payload replaces whatever an earlier session or an outage left
	// behind. Voice states come back with the second pass.
	s.stateErr(s.Cabinet.VoiceStatesRemove(ev.ID), "failed to clear voice states")
	s.stateErr(s.Cabinet.MembersRemove(ev.ID), "failed to clear members")
	s.storeMembers(ev.ID, ev.Members)
}

func (s *State) secondPass(ev *gateway.GuildCreateEvent) {
	unlock := s.lockGuild(ev.ID)
	defer unlock()

	for _, ch := range ev.Channels {
		if len(ch.Permissions) == 0 {
			continue
		}

		ch.GuildID = ev.ID
		ch.Permissions = s.knownOverwrites(ev.ID, ch.Permissions)
		s.stateErr(s.Cabinet.ChannelSet(&ch, true), "failed to set channel overwrites")
	}

	for _, vs := range ev.VoiceStates {
		if _, err := s.Cabinet.Member(ev.ID, vs.UserID); err != nil {
			s.Logger.Debug("dropping voice state of unknown member",
				zap.Stringer("guild", ev.ID),
				zap.Stringer("user", vs.UserID))
			continue
		}

		vs.GuildID = ev.ID
		s.stateErr(s.Cabinet.VoiceStateSet(ev.ID, &vs, true), "failed to set voice state")
	}
}

// knownOverwrites drops overwrites of roles and members that are not cached.
func (s *State) knownOverwrites(guildID discord.GuildID, in []discord.Overwrite) []discord.Overwrite {
	out := make([]discord.Overwrite, 0, len(in))

	for _, ow := range in {
		var err error

		switch ow.Type {
		case discord.OverwriteRole:
			_, err = s.Cabinet.Role(guildID, discord.RoleID(ow.ID))
		case discord.OverwriteMember:
			_, err = s.Cabinet.Member(guildID, discord.UserID(ow.ID))
		}

		if err == nil {
			out = append(out, ow)
		}
	}

	return out
}

// storeMembers stores the members and makes their users real. The guild must
// be locked.
func (s *State) storeMembers(guildID discord.GuildID, members []discord.Member) {
	for i := range members {
		m := &members[i]
		s.stateErr(s.Cabinet.MemberSet(guildID, m, true), "failed to set member")
		s.stateErr(s.Cabinet.UserSet(&m.User, false), "failed to set member user")
	}
}

func (s *State) finishSetup(snap *GuildSnapshot) {
	delete(s.setups, snap.Payload.ID)

	s.secondPass(snap.Payload)
	snap.onComplete()
}

// guildCreated emits the event telling why a guild appeared, once it is fully
// cached.
func (s *State) guildCreated(ev *gateway.GuildCreateEvent) {
	switch {
	// this guild was unavailable, but has come back online
	case s.unavailable.Delete(ev.ID):
		s.Handler.Call(&GuildAvailableEvent{GuildCreateEvent: ev})

	// the guild was already unavailable when connecting to the gateway, or is
	// part of the initial load
	case s.unready.Delete(ev.ID) || s.loading(ev.ID):
		s.Handler.Call(&GuildReadyEvent{GuildCreateEvent: ev})

	// we don't know this guild, hence we just joined it
	default:
		s.Handler.Call(&GuildJoinEvent{GuildCreateEvent: ev})
	}

	s.release(guildKey(ev.ID))
	s.guildLoaded(ev.ID)
}

////

// initialLoad tracks the guilds announced by READY until they are cached.
type initialLoad struct {
	ready *gateway.ReadyEvent

	pending map[discord.GuildID]struct{}
	// embedded are the complete guilds sent within READY that are still in
	// setup.
	embedded map[discord.GuildID]struct{}

	buffer []ws.Op
	// creates are the GUILD_CREATEs held while embedded guilds are set up.
	// They are replayed as soon as embedded is empty, not with buffer.
	creates []ws.Op

	timer *time.Timer
}

func (l *initialLoad) hold(op ws.Op) {
	op.Raw = op.Raw.Copy()

	if op.Type == "GUILD_CREATE" {
		l.creates = append(l.creates, op)
	} else {
		l.buffer = append(l.buffer, op)
	}
}

func (l *initialLoad) held() int {
	return len(l.creates) + len(l.buffer)
}

// holds returns true if the dispatch must wait for the load to complete.
func (l *initialLoad) holds(t ws.EventType) bool {
	switch t {
	case "READY", "RESUMED", "GUILD_MEMBERS_CHUNK", "GUILD_SYNC":
		return false
	case "GUILD_CREATE":
		return len(l.embedded) > 0
	default:
		return true
	}
}

func (s *State) startLoad(ev *gateway.ReadyEvent) *initialLoad {
	s.stopLoad()

	load := &initialLoad{
		ready:    ev,
		pending:  make(map[discord.GuildID]struct{}, len(ev.Guilds)),
		embedded: map[discord.GuildID]struct{}{},
	}

	if s.LoadTimeout > 0 {
		load.timer = time.AfterFunc(s.LoadTimeout, func() { s.forceLoad(load) })
	}

	s.load = load
	return load
}

// stopLoad abandons the load and returns the number of discarded events.
func (s *State) stopLoad() int {
	load := s.load
	if load == nil {
		return 0
	}

	s.load = nil

	if load.timer != nil {
		load.timer.Stop()
	}

	return load.held()
}

func (s *State) loading(id discord.GuildID) bool {
	if s.load == nil {
		return false
	}

	_, ok := s.load.pending[id]
	return ok
}

func (s *State) guildLoaded(id discord.GuildID) {
	if s.load == nil {
		return
	}

	load := s.load

	if _, ok := load.embedded[id]; ok {
		delete(load.embedded, id)

		if len(load.embedded) == 0 && len(load.creates) > 0 {
			s.later(func() { s.replayCreates(load) })
		}
	}

	if _, ok := load.pending[id]; !ok {
		return
	}

	delete(s.load.pending, id)
	s.later(s.checkLoad)
}

// replayCreates dispatches the GUILD_CREATEs held while embedded guilds were
// being set up.
func (s *State) replayCreates(load *initialLoad) {
	if s.load != load {
		return
	}

	creates := load.creates
	load.creates = nil

	for _, op := range creates {
		s.dispatch(op)
	}

	s.updateBuffered()
}

func (s *State) checkLoad() {
	if s.load != nil && len(s.load.pending) == 0 {
		s.finishLoad(nil)
	}
}

func (s *State) forceLoad(load *initialLoad) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	if s.load != load {
		return
	}

	for id, snap := range s.setups {
		s.Logger.Warn("guild setup timed out, completing with partial members",
			zap.Stringer("guild", id),
			zap.Int("received", snap.Received),
			zap.Int("expected", snap.Expected))

		s.finishSetup(snap)
	}

	// Completed setups replay the GUILD_CREATEs held for them, which may
	// complete the load on their own.
	s.flush()
	if s.load != load {
		return
	}

	missing := make([]discord.GuildID, 0, len(load.pending))
	for id := range load.pending {
		missing = append(missing, id)
		s.unready.Delete(id)
		s.unavailable.Add(id)
	}

	s.Logger.Warn("initial load timed out", zap.Int("missing", len(missing)))

	s.finishLoad(missing)
	s.flush()
}

func (s *State) finishLoad(unavailable []discord.GuildID) {
	load := s.load
	s.load = nil

	if load.timer != nil {
		load.timer.Stop()
	}

	s.markConnected()

	s.Logger.Info("initial load complete",
		zap.Int("guilds", len(load.ready.Guilds)),
		zap.Int("unavailable", len(unavailable)),
		zap.Int("buffered", load.held()))

	s.Handler.Call(&ReadyEvent{
		ReadyEvent:  load.ready,
		Unavailable: unavailable,
	})

	for _, op := range load.creates {
		s.dispatch(op)
	}
	for _, op := range load.buffer {
		s.dispatch(op)
	}

	s.updateBuffered()
}
