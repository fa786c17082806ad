package state

import (
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/utils/ws"
)

// eventHandler applies one dispatch to the cache. A non-nil key means the
// event references an entity that is not cached, and the event must wait for
// it. A handler that returns a key must not have touched the cache.
type eventHandler func(ws.Event) *CacheKey

func register[T ws.Event](s *State, fn func(T) *CacheKey) {
	var zero T
	s.handlers[zero.EventType()] = func(ev ws.Event) *CacheKey {
		return fn(ev.(T))
	}
}

func (s *State) registerHandlers() {
	s.handlers = map[ws.EventType]eventHandler{}

	register(s, s.onReady)
	register(s, s.onResumed)

	register(s, s.onGuildCreate)
	register(s, s.onGuildUpdate)
	register(s, s.onGuildDelete)
	register(s, s.onMembersChunk)
	register(s, s.onGuildSync)
	register(s, s.onRoleCreate)
	register(s, s.onRoleUpdate)
	register(s, s.onRoleDelete)
	register(s, s.onEmojisUpdate)
	register(s, s.onMemberAdd)
	register(s, s.onMemberUpdate)
	register(s, s.onMemberRemove)

	register(s, s.onChannelCreate)
	register(s, s.onChannelUpdate)
	register(s, s.onChannelDelete)

	register(s, s.onMessageCreate)
	register(s, s.onMessageUpdate)
	register(s, s.onMessageDelete)
	register(s, s.onMessageDeleteBulk)

	register(s, s.onVoiceStateUpdate)
	register(s, s.onUserUpdate)
	register(s, s.onRelationshipAdd)
	register(s, s.onRelationshipRemove)
}

// HandleOp applies one Op read from the gateway. The session calls it from its
// read loop.
func (s *State) HandleOp(op ws.Op) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	switch ev := op.Data.(type) {
	case *gateway.SessionInvalidatedEvent:
		s.reset()
		s.Handler.Call(ev)
		return

	case *gateway.ShutdownEvent:
		n := s.stopLoad() + s.events.Clear()
		if n > 0 {
			s.Logger.Info("discarding buffered events", zap.Int("count", n))
		}
		s.updateBuffered()

		s.Handler.Call(ev)
		s.Handler.Call(&ShutdownEvent{Code: ev.Code, Discarded: n})
		return
	}

	if op.Data == nil {
		return
	}

	if op.Code != gateway.DispatchOP {
		s.Handler.Call(op.Data)
		return
	}

	s.Metrics.IncDispatch(string(op.Type))

	if s.load != nil && s.load.holds(op.Type) {
		s.load.hold(op)
		s.updateBuffered()
		return
	}

	s.dispatch(op)
}

// setupEvents are the dispatches that complete a guild setup, so they cannot
// wait for it.
var setupEvents = map[ws.EventType]bool{
	"GUILD_MEMBERS_CHUNK": true,
	"GUILD_SYNC":          true,
}

func (s *State) dispatch(op ws.Op) {
	if id, ok := eventGuildID(op.Data); ok && !setupEvents[op.Type] {
		if _, locked := s.setups[id]; locked {
			s.push(*guildKey(id), op)
			return
		}
	}

	h, ok := s.handlers[op.Type]
	if !ok {
		s.Handler.Call(op.Data)
		return
	}

	key, ok := s.apply(h, op)
	if !ok {
		s.flush()
		return
	}

	if key != nil {
		s.push(*key, op)
		return
	}

	s.Handler.Call(op.Data)
	s.flush()
}

// apply runs the handler. A panicking handler is logged and its event
// dropped, so one bad payload cannot take down the read loop.
func (s *State) apply(h eventHandler, op ws.Op) (key *CacheKey, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Logger.Error("event handler panicked",
				zap.String("event", string(op.Type)),
				zap.Int64("seq", op.Sequence),
				zap.Any("panic", rec),
				zap.Stack("stack"))

			key, ok = nil, false
		}
	}()

	return h(op.Data), true
}

func (s *State) push(key CacheKey, op ws.Op) {
	op.Raw = op.Raw.Copy()

	s.Logger.Debug("buffering event",
		zap.Stringer("key", key),
		zap.String("event", string(op.Type)),
		zap.Int64("seq", op.Sequence))

	s.events.Push(key, op)
	s.updateBuffered()
}

// later queues fn to run once the current dispatch has been delivered to the
// handler.
func (s *State) later(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// release replays the events waiting for key once the current dispatch has
// been delivered.
func (s *State) release(key *CacheKey) {
	s.later(func() { s.replay(*key) })
}

func (s *State) flush() {
	for len(s.deferred) > 0 {
		fn := s.deferred[0]
		s.deferred = s.deferred[1:]
		fn()
	}
}

func (s *State) replay(key CacheKey) {
	pending := s.events.Drain(key)
	if len(pending) == 0 {
		return
	}

	s.Logger.Debug("replaying buffered events",
		zap.Stringer("key", key),
		zap.Int("count", len(pending)))

	for _, p := range pending {
		ev, err := gateway.OpUnmarshalers.Decode(gateway.DispatchOP, p.Type, p.Raw)
		if err != nil {
			s.Logger.Warn("dropping undecodable buffered event",
				zap.String("event", string(p.Type)),
				zap.Int64("seq", p.Sequence),
				zap.Error(err))
			s.Metrics.IncMalformed()
			continue
		}

		s.dispatch(ws.Op{
			Code:     gateway.DispatchOP,
			Data:     ev,
			Type:     p.Type,
			Sequence: p.Sequence,
			Raw:      p.Raw,
		})
	}

	s.updateBuffered()
}

func (s *State) updateBuffered() {
	n := s.events.Len()
	if s.load != nil {
		n += s.load.held()
	}
	s.Metrics.SetBuffered(n)
}

// reset drops everything the previous session cached.
func (s *State) reset() {
	n := s.stopLoad() + s.events.Clear()
	s.setups = map[discord.GuildID]*GuildSnapshot{}
	s.deferred = nil
	s.unavailable.Clear()
	s.unready.Clear()
	s.guildLocks.Reset()

	s.stateErr(s.Cabinet.Reset(), "failed to reset cache")
	s.updateBuffered()

	s.Logger.Info("session invalidated, cache reset", zap.Int("discarded", n))
}

func (s *State) markConnected() {
	if s.Gateway != nil && !s.Gateway.MarkConnected() {
		s.Logger.Debug("gateway not loading, connected status unchanged",
			zap.Stringer("status", s.Gateway.Status()))
	}
}

// eventGuildID returns the guild the dispatch belongs to.
func eventGuildID(ev ws.Event) (discord.GuildID, bool) {
	var id discord.GuildID

	switch ev := ev.(type) {
	case *gateway.GuildCreateEvent:
		id = ev.ID
	case *gateway.GuildUpdateEvent:
		id = ev.ID
	case *gateway.GuildDeleteEvent:
		id = ev.ID
	case *gateway.GuildEmojisUpdateEvent:
		id = ev.GuildID
	case *gateway.GuildMemberAddEvent:
		id = ev.GuildID
	case *gateway.GuildMemberRemoveEvent:
		id = ev.GuildID
	case *gateway.GuildMemberUpdateEvent:
		id = ev.GuildID
	case *gateway.GuildMembersChunkEvent:
		id = ev.GuildID
	case *gateway.GuildSyncEvent:
		id = ev.ID
	case *gateway.GuildRoleCreateEvent:
		id = ev.GuildID
	case *gateway.GuildRoleUpdateEvent:
		id = ev.GuildID
	case *gateway.GuildRoleDeleteEvent:
		id = ev.GuildID
	case *gateway.ChannelCreateEvent:
		id = ev.GuildID
	case *gateway.ChannelUpdateEvent:
		id = ev.GuildID
	case *gateway.ChannelDeleteEvent:
		id = ev.GuildID
	case *gateway.MessageCreateEvent:
		id = ev.GuildID
	case *gateway.MessageUpdateEvent:
		id = ev.GuildID
	case *gateway.MessageDeleteEvent:
		id = ev.GuildID
	case *gateway.MessageDeleteBulkEvent:
		id = ev.GuildID
	case *gateway.PresenceUpdateEvent:
		id = ev.GuildID
	case *gateway.TypingStartEvent:
		id = ev.GuildID
	case *gateway.VoiceStateUpdateEvent:
		id = ev.GuildID
	case *gateway.VoiceServerUpdateEvent:
		id = ev.GuildID
	}

	return id, id.IsValid()
}
