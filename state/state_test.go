package state

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/session"
	"github.com/cordlink/cordlink/state/store"
	"github.com/cordlink/cordlink/state/store/defaultstore"
	"github.com/cordlink/cordlink/utils/json"
	"github.com/cordlink/cordlink/utils/ws"
)

type fakeCommander struct {
	mu       sync.Mutex
	requests []gateway.RequestGuildMembersCommand
	syncs    []discord.GuildID
}

func (c *fakeCommander) RequestGuildMembers(cmd gateway.RequestGuildMembersCommand) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, cmd)
	return "nonce" + strconv.Itoa(len(c.requests)), nil
}

func (c *fakeCommander) GuildSync(ids ...discord.GuildID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncs = append(c.syncs, ids...)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *recorder) all() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]interface{}(nil), r.events...)
}

func eventsOf[T any](r *recorder) []T {
	var out []T
	for _, ev := range r.all() {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// indexOf returns the position of the first event of type T, or -1.
func indexOf[T any](r *recorder) int {
	for i, ev := range r.all() {
		if _, ok := ev.(T); ok {
			return i
		}
	}
	return -1
}

type harness struct {
	*State
	t   *testing.T
	cmd *fakeCommander
	rec *recorder
	seq int64
}

func newHarness(t *testing.T, token string) *harness {
	return newHarnessWithCabinet(t, token, defaultstore.New())
}

func newHarnessWithCabinet(t *testing.T, token string, cabinet *store.Cabinet) *harness {
	gw := gateway.NewCustom("wss://gateway.discord.gg", token, nil)

	ses := session.NewWithGateway(gw, nil)
	ses.Handler.Synchronous = true

	s := NewFromSession(ses, cabinet)
	s.SetLogger(zaptest.NewLogger(t))
	s.LoadTimeout = 0

	h := &harness{
		State: s,
		t:     t,
		cmd:   &fakeCommander{},
		rec:   &recorder{},
	}
	s.Commander = h.cmd

	s.AddHandler(func(ev interface{}) {
		h.rec.mu.Lock()
		h.rec.events = append(h.rec.events, ev)
		h.rec.mu.Unlock()
	})

	return h
}

func (h *harness) send(ev ws.Event) {
	h.t.Helper()

	raw, err := json.Marshal(ev)
	if err != nil {
		h.t.Fatal("failed to marshal event:", err)
	}

	h.seq++
	h.HandleOp(ws.Op{
		Code:     gateway.DispatchOP,
		Data:     ev,
		Type:     ev.EventType(),
		Sequence: h.seq,
		Raw:      raw,
	})
}

// ready sends a READY for a bot with the given guilds unavailable.
func (h *harness) ready(guildIDs ...discord.GuildID) {
	h.t.Helper()

	guilds := make([]gateway.GuildCreateEvent, len(guildIDs))
	for i, id := range guildIDs {
		guilds[i].ID = id
		guilds[i].Unavailable = true
	}

	h.send(&gateway.ReadyEvent{
		Version:   9,
		User:      discord.User{ID: 1, Username: "me", Bot: true},
		SessionID: "session",
		Guilds:    guilds,
	})
}

func member(id discord.UserID, roles ...discord.RoleID) discord.Member {
	return discord.Member{
		User:    discord.User{ID: id, Username: "user" + id.String()},
		RoleIDs: roles,
	}
}

func TestGuildSetupInline(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready(10)

	if indexOf[*ReadyEvent](h.rec) != -1 {
		t.Fatal("ready emitted before the guild arrived")
	}

	h.send(&gateway.GuildCreateEvent{
		Guild: discord.Guild{
			ID:          10,
			Name:        "guild",
			MemberCount: 2,
			Roles:       []discord.Role{{ID: 5, Name: "mod"}},
		},
		Members: []discord.Member{member(11, 5), member(12)},
		Channels: []discord.Channel{{
			ID:   100,
			Type: discord.GuildText,
			Permissions: []discord.Overwrite{
				{ID: 5, Type: discord.OverwriteRole},
				{ID: 11, Type: discord.OverwriteMember},
				{ID: 99, Type: discord.OverwriteMember},
			},
		}},
		VoiceStates: []discord.VoiceState{
			{UserID: 11, ChannelID: 101},
			{UserID: 99, ChannelID: 101},
		},
	})

	if len(h.cmd.requests) != 0 {
		t.Fatal("members requested for a complete guild")
	}

	ch, err := h.Cabinet.Channel(100)
	if err != nil {
		t.Fatal("channel not cached:", err)
	}
	if len(ch.Permissions) != 2 {
		t.Fatal("unexpected overwrites:", ch.Permissions)
	}

	states, _ := h.Cabinet.VoiceStates(10)
	if len(states) != 1 || states[0].UserID != 11 {
		t.Fatal("unexpected voice states:", states)
	}

	readyAt := indexOf[*GuildReadyEvent](h.rec)
	loadedAt := indexOf[*ReadyEvent](h.rec)

	if readyAt == -1 || loadedAt == -1 || readyAt > loadedAt {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}

	if ev := eventsOf[*ReadyEvent](h.rec)[0]; len(ev.Unavailable) != 0 {
		t.Fatal("unexpected unavailable guilds:", ev.Unavailable)
	}
}

func TestGuildSetupChunked(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready(10)

	h.send(&gateway.GuildCreateEvent{
		Guild:   discord.Guild{ID: 10, MemberCount: 3},
		Members: []discord.Member{member(11)},
		Channels: []discord.Channel{{
			ID:          100,
			Type:        discord.GuildText,
			Permissions: []discord.Overwrite{{ID: 12, Type: discord.OverwriteMember}},
		}},
		VoiceStates: []discord.VoiceState{{UserID: 12, ChannelID: 101}},
	})

	if len(h.cmd.requests) != 1 || h.cmd.requests[0].GuildIDs[0] != 10 {
		t.Fatal("unexpected member requests:", h.cmd.requests)
	}
	if len(h.cmd.syncs) != 0 {
		t.Fatal("guild sync sent by a bot")
	}

	ch, _ := h.Cabinet.Channel(100)
	if len(ch.Permissions) != 0 {
		t.Fatal("overwrites applied before members arrived")
	}
	if states, _ := h.Cabinet.VoiceStates(10); len(states) != 0 {
		t.Fatal("voice states applied before members arrived")
	}

	// Held back by the initial load.
	h.send(&gateway.MessageCreateEvent{
		Message: discord.Message{ID: 1000, ChannelID: 100, GuildID: 10, Author: discord.User{ID: 11}},
	})

	if indexOf[*MessageReceivedEvent](h.rec) != -1 {
		t.Fatal("message delivered during the initial load")
	}

	h.send(&gateway.GuildMembersChunkEvent{
		GuildID:    10,
		Members:    []discord.Member{member(11), member(12), member(13)},
		ChunkIndex: 0,
		ChunkCount: 1,
		Nonce:      "nonce1",
	})

	ch, _ = h.Cabinet.Channel(100)
	if len(ch.Permissions) != 1 {
		t.Fatal("overwrites missing after chunk:", ch.Permissions)
	}
	if states, _ := h.Cabinet.VoiceStates(10); len(states) != 1 {
		t.Fatal("voice state missing after chunk")
	}

	readyAt := indexOf[*GuildReadyEvent](h.rec)
	loadedAt := indexOf[*ReadyEvent](h.rec)
	messageAt := indexOf[*MessageReceivedEvent](h.rec)

	if readyAt == -1 || readyAt > loadedAt || loadedAt > messageAt {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}
}

func TestSetupBuffersGuildEvents(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()

	if indexOf[*ReadyEvent](h.rec) == -1 {
		t.Fatal("empty load did not complete")
	}

	h.send(&gateway.GuildCreateEvent{
		Guild:   discord.Guild{ID: 20, MemberCount: 2},
		Members: []discord.Member{member(21)},
	})

	h.send(&gateway.GuildRoleCreateEvent{GuildID: 20, Role: discord.Role{ID: 7, Name: "new"}})

	if n := h.Events().Pending(*guildKey(20)); n != 1 {
		t.Fatal("role event not held for the guild setup:", n)
	}

	// Someone else's request.
	h.send(&gateway.GuildMembersChunkEvent{
		GuildID: 20, Members: []discord.Member{member(22)}, ChunkCount: 1, Nonce: "other",
	})

	if indexOf[*GuildJoinEvent](h.rec) != -1 {
		t.Fatal("foreign chunk completed the setup")
	}

	h.send(&gateway.GuildMembersChunkEvent{
		GuildID: 20, Members: []discord.Member{member(21), member(22)}, ChunkCount: 1, Nonce: "nonce1",
	})

	joinAt := indexOf[*GuildJoinEvent](h.rec)
	roleAt := indexOf[*RoleCreateEvent](h.rec)

	if joinAt == -1 || roleAt == -1 || joinAt > roleAt {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}

	if _, err := h.Cabinet.Role(20, 7); err != nil {
		t.Fatal("replayed role not cached:", err)
	}
	if h.Events().Len() != 0 {
		t.Fatal("events left buffered:", h.Events().Len())
	}
}

func joinGuild(h *harness, id discord.GuildID, members ...discord.Member) {
	h.send(&gateway.GuildCreateEvent{
		Guild:    discord.Guild{ID: id, Name: "guild", MemberCount: uint64(len(members))},
		Members:  members,
		Channels: []discord.Channel{{ID: discord.ChannelID(id) * 10, Type: discord.GuildText}},
	})
}

func TestRoleUpdateIdempotent(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 30, member(31))

	update := &gateway.GuildRoleUpdateEvent{GuildID: 30, Role: discord.Role{ID: 8, Name: "role", Color: 0xff}}
	h.send(update)
	h.send(update)

	if n := len(eventsOf[*RoleUpdateEvent](h.rec)); n != 1 {
		t.Fatal("unexpected number of role updates:", n)
	}

	update = &gateway.GuildRoleUpdateEvent{GuildID: 30, Role: discord.Role{ID: 8, Name: "renamed", Color: 0xff}}
	h.send(update)

	evs := eventsOf[*RoleUpdateEvent](h.rec)
	if len(evs) != 2 || evs[1].Old == nil || evs[1].Old.Name != "role" {
		t.Fatalf("unexpected role updates: %#v", evs)
	}
}

func TestMemberRoleEvents(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 30, member(31, 5))

	h.send(&gateway.GuildRoleCreateEvent{GuildID: 30, Role: discord.Role{ID: 6, Name: "six"}})
	h.send(&gateway.GuildMemberUpdateEvent{GuildID: 30, Member: member(31, 6)})

	added := eventsOf[*MemberRoleAddEvent](h.rec)
	removed := eventsOf[*MemberRoleRemoveEvent](h.rec)

	if len(added) != 1 || added[0].RoleID != 6 || added[0].Role == nil || added[0].Role.Name != "six" {
		t.Fatalf("unexpected role add events: %#v", added)
	}
	if len(removed) != 1 || removed[0].RoleID != 5 || removed[0].Role != nil {
		t.Fatalf("unexpected role remove events: %#v", removed)
	}

	h.send(&gateway.GuildMemberUpdateEvent{GuildID: 30, Member: member(31, 6)})

	if n := len(eventsOf[*MemberUpdateEvent](h.rec)); n != 1 {
		t.Fatal("unchanged member emitted an update:", n)
	}
}

func TestChannelPendingReplay(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 40, member(41))

	h.send(&gateway.MessageCreateEvent{
		Message: discord.Message{ID: 1, ChannelID: 401, GuildID: 40, Author: discord.User{ID: 41}},
	})

	if n := h.Events().Pending(*channelKey(401)); n != 1 {
		t.Fatal("message not held for its channel:", n)
	}

	h.send(&gateway.ChannelCreateEvent{
		Channel: discord.Channel{ID: 401, GuildID: 40, Type: discord.GuildText},
	})

	createAt := indexOf[*ChannelCreateEvent](h.rec)
	messageAt := indexOf[*MessageReceivedEvent](h.rec)

	if createAt == -1 || messageAt == -1 || createAt > messageAt {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}

	if _, err := h.Cabinet.Message(401, 1); err != nil {
		t.Fatal("replayed message not cached:", err)
	}
}

func TestMessageUpdateDelta(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 40, member(41))

	h.send(&gateway.MessageCreateEvent{
		Message: discord.Message{ID: 1, ChannelID: 400, GuildID: 40, Author: discord.User{ID: 41}, Content: "hi"},
	})

	edited := discord.Timestamp(time.Now().UTC().Truncate(time.Second))

	h.send(&gateway.MessageUpdateEvent{
		Message: discord.Message{ID: 1, ChannelID: 400, GuildID: 40, EditedTimestamp: edited},
	})

	m, err := h.Cabinet.Message(400, 1)
	if err != nil {
		t.Fatal("message not cached:", err)
	}
	if m.Content != "hi" || m.Author.ID != 41 || !m.EditedTimestamp.IsValid() {
		t.Fatalf("partial update clobbered the message: %#v", m)
	}

	evs := eventsOf[*MessageUpdateEvent](h.rec)
	if len(evs) != 1 || evs[0].Old == nil || evs[0].Old.EditedTimestamp.IsValid() {
		t.Fatalf("unexpected update events: %#v", evs)
	}
}

func TestVoiceEvents(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 50, member(51))

	state := discord.VoiceState{GuildID: 50, UserID: 51, ChannelID: 500}
	h.send(&gateway.VoiceStateUpdateEvent{VoiceState: state})

	state.ChannelID = 501
	h.send(&gateway.VoiceStateUpdateEvent{VoiceState: state})

	state.SelfMute = true
	h.send(&gateway.VoiceStateUpdateEvent{VoiceState: state})

	state.ChannelID = 0
	h.send(&gateway.VoiceStateUpdateEvent{VoiceState: state})

	if n := len(eventsOf[*VoiceJoinEvent](h.rec)); n != 1 {
		t.Fatal("unexpected joins:", n)
	}
	if moves := eventsOf[*VoiceMoveEvent](h.rec); len(moves) != 1 || moves[0].Old.ChannelID != 500 {
		t.Fatalf("unexpected moves: %#v", moves)
	}
	if leaves := eventsOf[*VoiceLeaveEvent](h.rec); len(leaves) != 1 || !leaves[0].State.SelfMute {
		t.Fatalf("unexpected leaves: %#v", leaves)
	}
	if _, err := h.Cabinet.VoiceState(50, 51); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("voice state kept after leaving:", err)
	}
}

func TestUnknownGuildDeleteDiscardedOnShutdown(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()

	h.send(&gateway.GuildDeleteEvent{ID: 99})

	if indexOf[*GuildLeaveEvent](h.rec) != -1 {
		t.Fatal("leave emitted for an unknown guild")
	}
	if n := h.Events().Pending(*guildKey(99)); n != 1 {
		t.Fatal("delete not held:", n)
	}

	h.HandleOp(ws.Op{
		Code: gateway.InternalOP,
		Data: &gateway.ShutdownEvent{Code: gateway.CloseAuthenticationFailed},
		Type: (*gateway.ShutdownEvent)(nil).EventType(),
	})

	shutdowns := eventsOf[*ShutdownEvent](h.rec)
	if len(shutdowns) != 1 || shutdowns[0].Discarded != 1 {
		t.Fatalf("unexpected shutdown events: %#v", shutdowns)
	}
	if shutdowns[0].Code != gateway.CloseAuthenticationFailed {
		t.Fatal("unexpected shutdown code:", shutdowns[0].Code)
	}

	if h.Events().Len() != 0 {
		t.Fatal("events kept after shutdown")
	}
	if indexOf[*gateway.ShutdownEvent](h.rec) == -1 {
		t.Fatal("gateway shutdown not forwarded")
	}
}

func TestSessionInvalidatedResets(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 60, member(61))

	h.HandleOp(ws.Op{
		Code: gateway.InternalOP,
		Data: &gateway.SessionInvalidatedEvent{},
		Type: (*gateway.SessionInvalidatedEvent)(nil).EventType(),
	})

	if _, err := h.Cabinet.Guild(60); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("guild kept after invalidation:", err)
	}
	if _, err := h.Cabinet.Me(); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("self kept after invalidation:", err)
	}
	if indexOf[*gateway.SessionInvalidatedEvent](h.rec) == -1 {
		t.Fatal("invalidation not forwarded")
	}
}

// userReady sends a READY for a user account with one complete guild.
func userReady(h *harness) {
	h.send(&gateway.ReadyEvent{
		User: discord.User{ID: 1, Username: "me"},
		PrivateChannels: []discord.Channel{{
			ID:           500,
			Type:         discord.DirectMessage,
			DMRecipients: []discord.User{{ID: 11}},
		}},
		Relationships: []discord.Relationship{{
			UserID: 12,
			User:   discord.User{ID: 12},
			Type:   discord.FriendRelationship,
		}},
		Guilds: []gateway.GuildCreateEvent{{
			Guild: discord.Guild{ID: 1000, Name: "guild", MemberCount: 4},
			Members: []discord.Member{
				{User: discord.User{ID: 1, Username: "me"}},
				member(11), member(12), member(13),
			},
			Channels: []discord.Channel{{ID: 100, Type: discord.GuildText}},
		}},
	})
}

func TestUserRetention(t *testing.T) {
	h := newHarness(t, "user-token")
	userReady(h)

	if indexOf[*GuildReadyEvent](h.rec) == -1 || indexOf[*ReadyEvent](h.rec) == -1 {
		t.Fatalf("embedded guild not loaded: %#v", h.rec.all())
	}

	h.send(&gateway.GuildDeleteEvent{ID: 1000})

	leaves := eventsOf[*GuildLeaveEvent](h.rec)
	if len(leaves) != 1 || leaves[0].Guild.Name != "guild" {
		t.Fatalf("unexpected leave events: %#v", leaves)
	}

	tests := []struct {
		id   discord.UserID
		fake bool
	}{
		{1, false},  // self
		{11, false}, // open DM
		{12, false}, // friend
		{13, true},
	}

	for _, test := range tests {
		if _, err := h.Cabinet.User(test.id); err != nil {
			t.Errorf("user %d dropped: %v", test.id, err)
		}
		if fake := h.Cabinet.IsFake(test.id); fake != test.fake {
			t.Errorf("user %d: fake = %v, expected %v", test.id, fake, test.fake)
		}
	}

	if _, err := h.Cabinet.Channel(100); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("channel kept after leaving:", err)
	}
}

func TestUserRetentionForget(t *testing.T) {
	h := newHarness(t, "user-token")
	h.UserRetention = func(*State, discord.UserID) Retention { return ForgetUser }
	userReady(h)

	h.send(&gateway.GuildDeleteEvent{ID: 1000})

	if _, err := h.Cabinet.User(13); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("user kept by a forgetting policy:", err)
	}
	if _, err := h.Cabinet.User(1); err != nil {
		t.Fatal("self forgotten:", err)
	}
}

func TestGuildUnavailable(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 70, member(71))

	h.send(&gateway.GuildDeleteEvent{ID: 70, Unavailable: true})

	if !h.Unavailable(70) {
		t.Fatal("guild not marked unavailable")
	}
	if g, err := h.Cabinet.Guild(70); err != nil || !g.Unavailable {
		t.Fatal("guild not kept as unavailable:", err)
	}

	joinGuild(h, 70, member(71))

	if indexOf[*GuildAvailableEvent](h.rec) == -1 {
		t.Fatal("guild did not become available")
	}
	if h.Unavailable(70) {
		t.Fatal("guild still unavailable")
	}
}

func TestLoadTimeout(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.LoadTimeout = 20 * time.Millisecond
	h.ready(80, 81)

	joinGuild(h, 80, member(82))

	deadline := time.Now().Add(2 * time.Second)
	for indexOf[*ReadyEvent](h.rec) == -1 {
		if time.Now().After(deadline) {
			t.Fatal("load never timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ev := eventsOf[*ReadyEvent](h.rec)[0]
	if len(ev.Unavailable) != 1 || ev.Unavailable[0] != 81 {
		t.Fatal("unexpected unavailable guilds:", ev.Unavailable)
	}

	joinGuild(h, 81, member(82))

	if indexOf[*GuildAvailableEvent](h.rec) == -1 {
		t.Fatal("late guild not announced as available")
	}
}

func TestSelfUpdate(t *testing.T) {
	h := newHarness(t, "Bot token")

	// Held until self is known.
	h.send(&gateway.UserUpdateEvent{User: discord.User{ID: 1, Username: "renamed", Bot: true}})

	if n := h.Events().Pending(*userKey(1)); n != 1 {
		t.Fatal("user update not held:", n)
	}

	h.ready()

	updates := eventsOf[*SelfUpdateEvent](h.rec)
	if len(updates) != 1 || updates[0].Old.Username != "me" || updates[0].New.Username != "renamed" {
		t.Fatalf("unexpected self updates: %#v", updates)
	}

	me, _ := h.Cabinet.Me()
	if me.Username != "renamed" {
		t.Fatal("self not updated:", me.Username)
	}
}

func TestLoadReplaysHeldGuildCreate(t *testing.T) {
	h := newHarness(t, "Bot token")

	h.send(&gateway.ReadyEvent{
		User:      discord.User{ID: 1, Username: "me", Bot: true},
		SessionID: "session",
		Guilds: []gateway.GuildCreateEvent{
			{
				Guild:   discord.Guild{ID: 10, Name: "embedded", MemberCount: 3},
				Members: []discord.Member{member(11)},
			},
			{Guild: discord.Guild{ID: 20, Unavailable: true}},
		},
	})

	// Held while guild 10 waits for its members.
	h.send(&gateway.GuildCreateEvent{
		Guild:   discord.Guild{ID: 20, Name: "late", MemberCount: 1},
		Members: []discord.Member{member(21)},
	})

	if indexOf[*GuildReadyEvent](h.rec) != -1 {
		t.Fatal("guild ready before the embedded guild was set up")
	}

	h.send(&gateway.GuildMembersChunkEvent{
		GuildID:    10,
		Members:    []discord.Member{member(11), member(12), member(13)},
		ChunkCount: 1,
		Nonce:      "nonce1",
	})

	readies := eventsOf[*GuildReadyEvent](h.rec)
	if len(readies) != 2 || readies[0].ID != 10 || readies[1].ID != 20 {
		t.Fatalf("unexpected guild ready events: %#v", readies)
	}

	if n := len(eventsOf[*GuildAvailableEvent](h.rec)); n != 0 {
		t.Fatal("held guild announced as available:", n)
	}

	loaded := eventsOf[*ReadyEvent](h.rec)
	if len(loaded) != 1 {
		t.Fatal("initial load did not complete")
	}
	if len(loaded[0].Unavailable) != 0 {
		t.Fatal("unexpected unavailable guilds:", loaded[0].Unavailable)
	}

	// Both guilds are announced before the load completes.
	var last int
	for i, ev := range h.rec.all() {
		if ready, ok := ev.(*GuildReadyEvent); ok && ready.ID == 20 {
			last = i
		}
	}
	if last > indexOf[*ReadyEvent](h.rec) {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}

	if _, err := h.Cabinet.Member(20, 21); err != nil {
		t.Fatal("held guild not cached:", err)
	}
}

func TestGuildCreateReplacesMembers(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.ready()
	joinGuild(h, 70, member(71), member(72))

	h.send(&gateway.GuildDeleteEvent{ID: 70, Unavailable: true})
	joinGuild(h, 70, member(71))

	if _, err := h.Cabinet.Member(70, 71); err != nil {
		t.Fatal("member lost:", err)
	}
	if _, err := h.Cabinet.Member(70, 72); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("member missing from the payload kept:", err)
	}

	members, _ := h.Cabinet.Members(70)
	if len(members) != 1 {
		t.Fatal("unexpected members:", members)
	}
}

func TestGuildSyncCompletesSetup(t *testing.T) {
	h := newHarness(t, "user-token")

	h.send(&gateway.ReadyEvent{
		User: discord.User{ID: 1, Username: "me"},
		Guilds: []gateway.GuildCreateEvent{{
			Guild:   discord.Guild{ID: 2000, Name: "large", MemberCount: 3},
			Members: []discord.Member{member(11)},
			Channels: []discord.Channel{{
				ID:          200,
				Type:        discord.GuildText,
				Permissions: []discord.Overwrite{{ID: 12, Type: discord.OverwriteMember}},
			}},
			VoiceStates: []discord.VoiceState{{UserID: 13, ChannelID: 201}},
		}},
	})

	if len(h.cmd.syncs) != 1 || h.cmd.syncs[0] != 2000 {
		t.Fatal("unexpected guild syncs:", h.cmd.syncs)
	}
	if indexOf[*GuildReadyEvent](h.rec) != -1 {
		t.Fatal("guild ready before the sync")
	}

	h.send(&gateway.GuildSyncEvent{
		ID:      2000,
		Large:   true,
		Members: []discord.Member{member(11), member(12), member(13)},
	})

	readyAt := indexOf[*GuildReadyEvent](h.rec)
	loadedAt := indexOf[*ReadyEvent](h.rec)

	if readyAt == -1 || loadedAt == -1 || readyAt > loadedAt {
		t.Fatalf("unexpected event order: %#v", h.rec.all())
	}

	ch, _ := h.Cabinet.Channel(200)
	if len(ch.Permissions) != 1 {
		t.Fatal("overwrites missing after sync:", ch.Permissions)
	}
	if states, _ := h.Cabinet.VoiceStates(2000); len(states) != 1 {
		t.Fatal("voice state missing after sync")
	}

	// The member request answers after the sync completed the setup.
	h.send(&gateway.GuildMembersChunkEvent{
		GuildID:    2000,
		Members:    []discord.Member{member(11), member(12), member(13)},
		ChunkCount: 1,
		Nonce:      "nonce1",
	})

	if n := len(eventsOf[*GuildReadyEvent](h.rec)); n != 1 {
		t.Fatal("guild announced again:", n)
	}
}

// faultyMembers panics when storing one user, the way a broken store or a
// bad payload would.
type faultyMembers struct {
	store.MemberStore
	user discord.UserID
}

func (m faultyMembers) MemberSet(guildID discord.GuildID, member *discord.Member, update bool) error {
	if member.User.ID == m.user {
		panic("cannot store member")
	}
	return m.MemberStore.MemberSet(guildID, member, update)
}

// faultyRoles panics when storing a role with the given name.
type faultyRoles struct {
	store.RoleStore
	name string
}

func (r faultyRoles) RoleSet(guildID discord.GuildID, role *discord.Role, update bool) error {
	if role.Name == r.name {
		panic("cannot store role")
	}
	return r.RoleStore.RoleSet(guildID, role, update)
}

func TestPanickingHandlerDropsEvent(t *testing.T) {
	cabinet := defaultstore.New()
	cabinet.MemberStore = faultyMembers{cabinet.MemberStore, 99}
	cabinet.RoleStore = faultyRoles{cabinet.RoleStore, "boom"}

	h := newHarnessWithCabinet(t, "Bot token", cabinet)
	h.ready()
	joinGuild(h, 30, member(31), member(32))

	h.send(&gateway.GuildRoleCreateEvent{GuildID: 30, Role: discord.Role{ID: 8, Name: "boom"}})

	if n := len(eventsOf[*RoleCreateEvent](h.rec)); n != 0 {
		t.Fatal("domain event of a failed handler delivered:", n)
	}
	if n := len(eventsOf[*gateway.GuildRoleCreateEvent](h.rec)); n != 0 {
		t.Fatal("raw event of a failed handler delivered:", n)
	}

	// The chunk handler fails while the guild is locked.
	h.send(&gateway.GuildMembersChunkEvent{
		GuildID:    30,
		Members:    []discord.Member{member(99)},
		ChunkCount: 1,
	})

	if n := len(eventsOf[*gateway.GuildMembersChunkEvent](h.rec)); n != 0 {
		t.Fatal("raw chunk of a failed handler delivered:", n)
	}

	// Later events of the same guild still go through.
	h.send(&gateway.GuildRoleCreateEvent{GuildID: 30, Role: discord.Role{ID: 9, Name: "fine"}})
	h.send(&gateway.GuildMemberRemoveEvent{GuildID: 30, User: discord.User{ID: 32}})

	if evs := eventsOf[*RoleCreateEvent](h.rec); len(evs) != 1 || evs[0].Role.ID != 9 {
		t.Fatalf("unexpected role events: %#v", evs)
	}
	if evs := eventsOf[*MemberLeaveEvent](h.rec); len(evs) != 1 || evs[0].User.ID != 32 {
		t.Fatalf("unexpected leave events: %#v", evs)
	}

	if _, err := h.Cabinet.Role(30, 9); err != nil {
		t.Fatal("role after the failure not cached:", err)
	}
	if h.Events().Len() != 0 {
		t.Fatal("events left buffered:", h.Events().Len())
	}
}

func TestLoadTimeoutReplaysHeldGuildCreate(t *testing.T) {
	h := newHarness(t, "Bot token")
	h.LoadTimeout = 20 * time.Millisecond

	h.send(&gateway.ReadyEvent{
		User: discord.User{ID: 1, Username: "me", Bot: true},
		Guilds: []gateway.GuildCreateEvent{
			{
				Guild:   discord.Guild{ID: 10, MemberCount: 3},
				Members: []discord.Member{member(11)},
			},
			{Guild: discord.Guild{ID: 20, Unavailable: true}},
		},
	})

	h.send(&gateway.GuildCreateEvent{
		Guild:   discord.Guild{ID: 20, MemberCount: 1},
		Members: []discord.Member{member(21)},
	})

	// The chunks for guild 10 never come.
	deadline := time.Now().Add(2 * time.Second)
	for indexOf[*ReadyEvent](h.rec) == -1 {
		if time.Now().After(deadline) {
			t.Fatal("load never timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if ev := eventsOf[*ReadyEvent](h.rec)[0]; len(ev.Unavailable) != 0 {
		t.Fatal("guild that arrived in time reported unavailable:", ev.Unavailable)
	}
	if n := len(eventsOf[*GuildReadyEvent](h.rec)); n != 2 {
		t.Fatal("unexpected number of guild ready events:", n)
	}
	if n := len(eventsOf[*GuildAvailableEvent](h.rec)); n != 0 {
		t.Fatal("held guild announced as available:", n)
	}
}
