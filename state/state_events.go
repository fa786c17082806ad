package state

import (
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/gateway"
)

func (s *State) onReady(ev *gateway.ReadyEvent) *CacheKey {
	s.stateErr(s.Cabinet.MyselfSet(ev.User), "failed to set self")
	s.stateErr(s.Cabinet.UserSet(&ev.User, false), "failed to set self user")

	for i := range ev.PrivateChannels {
		ch := &ev.PrivateChannels[i]
		s.stateErr(s.Cabinet.ChannelSet(ch, true), "failed to set private channel")

		for j := range ch.DMRecipients {
			s.stateErr(s.Cabinet.UserSet(&ch.DMRecipients[j], false), "failed to set recipient")
		}
	}

	for i := range ev.Relationships {
		r := &ev.Relationships[i]
		s.stateErr(s.Cabinet.RelationshipSet(r), "failed to set relationship")
		s.stateErr(s.Cabinet.UserSet(&r.User, false), "failed to set relationship user")
	}

	load := s.startLoad(ev)

	for i := range ev.Guilds {
		g := &ev.Guilds[i]
		load.pending[g.ID] = struct{}{}

		// store this so we know when we need to dispatch a belated
		// GuildReadyEvent
		if g.Unavailable {
			s.unready.Add(g.ID)

			stub := g.Guild.Shell()
			s.stateErr(s.Cabinet.GuildSet(&stub, false), "failed to set unavailable guild")
			continue
		}

		load.embedded[g.ID] = struct{}{}
		s.setupGuild(g, func() { s.guildCreated(g) })
	}

	s.Logger.Info("session ready",
		zap.Stringer("user", ev.User.ID),
		zap.Int("guilds", len(ev.Guilds)),
		zap.Int("private_channels", len(ev.PrivateChannels)))

	s.release(userKey(ev.User.ID))
	s.later(s.checkLoad)

	return nil
}

func (s *State) onResumed(*gateway.ResumedEvent) *CacheKey {
	s.markConnected()
	s.Handler.Call(&ResumedEvent{})
	return nil
}

////

func (s *State) hasGuild(id discord.GuildID) bool {
	_, err := s.Cabinet.Guild(id)
	return err == nil
}

func (s *State) onGuildCreate(ev *gateway.GuildCreateEvent) *CacheKey {
	s.setupGuild(ev, func() { s.guildCreated(ev) })
	return nil
}

func (s *State) onGuildUpdate(ev *gateway.GuildUpdateEvent) *CacheKey {
	old, err := s.Cabinet.Guild(ev.ID)
	if err != nil {
		return guildKey(ev.ID)
	}

	unlock := s.lockGuild(ev.ID)
	defer unlock()

	guild := ev.Guild.Shell()
	guild.Unavailable = old.Unavailable
	// member_count is only sent with GUILD_CREATE.
	if guild.MemberCount == 0 {
		guild.MemberCount = old.MemberCount
	}

	if ev.Roles != nil {
		s.syncRoles(ev.ID, ev.Roles)
	}
	if ev.Emojis != nil {
		s.stateErr(s.Cabinet.EmojiSet(ev.ID, ev.Emojis), "failed to set emojis")
	}

	if old.ShellEqual(guild) {
		return nil
	}

	s.stateErr(s.Cabinet.GuildSet(&guild, true), "failed to update guild")
	s.Handler.Call(&GuildUpdateEvent{Old: *old, New: guild})

	return nil
}

// syncRoles replaces the roles of the guild. The guild must be locked.
func (s *State) syncRoles(guildID discord.GuildID, roles []discord.Role) {
	current, _ := s.Cabinet.Roles(guildID)

	keep := make(map[discord.RoleID]struct{}, len(roles))
	for i := range roles {
		keep[roles[i].ID] = struct{}{}
		s.stateErr(s.Cabinet.RoleSet(guildID, &roles[i], true), "failed to set role")
	}

	for _, r := range current {
		if _, ok := keep[r.ID]; !ok {
			s.stateErr(s.Cabinet.RoleRemove(guildID, r.ID), "failed to remove role")
		}
	}
}

func (s *State) onGuildDelete(ev *gateway.GuildDeleteEvent) *CacheKey {
	old, err := s.Cabinet.Guild(ev.ID)
	if err != nil {
		return guildKey(ev.ID)
	}

	// store this so we can later dispatch a GuildAvailableEvent, once the
	// guild becomes available again.
	if ev.Unavailable {
		guild := *old
		guild.Unavailable = true
		s.stateErr(s.Cabinet.GuildSet(&guild, true), "failed to mark guild unavailable")

		s.unavailable.Add(ev.ID)
		s.Handler.Call(&GuildUnavailableEvent{GuildDeleteEvent: ev})
		return nil
	}

	// it might have been unavailable before we left
	s.unavailable.Delete(ev.ID)
	s.unready.Delete(ev.ID)

	s.removeGuild(ev.ID)
	s.Handler.Call(&GuildLeaveEvent{GuildDeleteEvent: ev, Guild: *old})

	return nil
}

// removeGuild drops the guild and everything scoped to it.
func (s *State) removeGuild(id discord.GuildID) {
	var members []discord.Member

	s.withGuild(id, func() {
		members, _ = s.Cabinet.Members(id)

		channels, _ := s.Cabinet.Channels(id)
		for i := range channels {
			s.stateErr(s.Cabinet.MessagesRemove(channels[i].ID), "failed to remove messages")
			s.stateErr(s.Cabinet.ChannelRemove(&channels[i]), "failed to remove channel")
		}

		s.stateErr(s.Cabinet.VoiceStatesRemove(id), "failed to remove voice states")
		s.stateErr(s.Cabinet.MembersRemove(id), "failed to remove members")
		s.stateErr(s.Cabinet.RolesRemove(id), "failed to remove roles")
		s.stateErr(s.Cabinet.EmojiRemove(id), "failed to remove emojis")
		s.stateErr(s.Cabinet.GuildRemove(id), "failed to remove guild")
	})

	s.guildLocks.Delete(id)

	for _, m := range members {
		s.releaseUser(m.User.ID)
	}
}

func (s *State) onMembersChunk(ev *gateway.GuildMembersChunkEvent) *CacheKey {
	snap := s.setups[ev.GuildID]
	if snap == nil && !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	s.withGuild(ev.GuildID, func() { s.storeMembers(ev.GuildID, ev.Members) })

	if snap == nil {
		return nil
	}

	// Chunks answering someone else's request don't count.
	if snap.Nonce != "" && ev.Nonce != snap.Nonce {
		return nil
	}

	snap.Received += len(ev.Members)

	if ev.ChunkIndex >= ev.ChunkCount-1 || snap.Received >= snap.Expected {
		s.finishSetup(snap)
	}

	return nil
}

func (s *State) onGuildSync(ev *gateway.GuildSyncEvent) *CacheKey {
	snap := s.setups[ev.ID]
	if snap == nil && !s.hasGuild(ev.ID) {
		return guildKey(ev.ID)
	}

	s.withGuild(ev.ID, func() { s.storeMembers(ev.ID, ev.Members) })

	if snap != nil {
		s.finishSetup(snap)
	}

	return nil
}

////

func (s *State) onRoleCreate(ev *gateway.GuildRoleCreateEvent) *CacheKey {
	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	s.stateErr(s.Cabinet.RoleSet(ev.GuildID, &ev.Role, true), "failed to set role")
	s.Handler.Call(&RoleCreateEvent{GuildID: ev.GuildID, Role: ev.Role})

	return nil
}

func (s *State) onRoleUpdate(ev *gateway.GuildRoleUpdateEvent) *CacheKey {
	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	old, err := s.Cabinet.Role(ev.GuildID, ev.Role.ID)
	if err != nil {
		old = nil
	} else if *old == ev.Role {
		return nil
	}

	s.stateErr(s.Cabinet.RoleSet(ev.GuildID, &ev.Role, true), "failed to update role")
	s.Handler.Call(&RoleUpdateEvent{GuildID: ev.GuildID, Old: old, New: ev.Role})

	return nil
}

func (s *State) onRoleDelete(ev *gateway.GuildRoleDeleteEvent) *CacheKey {
	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	old, err := s.Cabinet.Role(ev.GuildID, ev.RoleID)
	if err != nil {
		old = nil
	}

	s.stateErr(s.Cabinet.RoleRemove(ev.GuildID, ev.RoleID), "failed to remove role")
	s.Handler.Call(&RoleDeleteEvent{GuildID: ev.GuildID, RoleID: ev.RoleID, Role: old})

	return nil
}

func (s *State) onEmojisUpdate(ev *gateway.GuildEmojisUpdateEvent) *CacheKey {
	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	old, _ := s.Cabinet.Emojis(ev.GuildID)
	if emojisEqual(old, ev.Emojis) {
		return nil
	}

	s.stateErr(s.Cabinet.EmojiSet(ev.GuildID, ev.Emojis), "failed to set emojis")
	s.Handler.Call(&EmojisUpdateEvent{GuildID: ev.GuildID, Old: old, New: ev.Emojis})

	return nil
}

func emojisEqual(a, b []discord.Emoji) bool {
	if len(a) != len(b) {
		return false
	}

	byID := make(map[discord.EmojiID]discord.Emoji, len(a))
	for _, e := range a {
		byID[e.ID] = e
	}

	for _, e := range b {
		o, ok := byID[e.ID]
		if !ok || o.Name != e.Name || o.Managed != e.Managed || o.Animated != e.Animated ||
			o.Available != e.Available || o.RequireColons != e.RequireColons ||
			len(o.RoleIDs) != len(e.RoleIDs) {
			return false
		}
		for i := range o.RoleIDs {
			if o.RoleIDs[i] != e.RoleIDs[i] {
				return false
			}
		}
	}

	return true
}

////

func (s *State) onMemberAdd(ev *gateway.GuildMemberAddEvent) *CacheKey {
	guild, err := s.Cabinet.Guild(ev.GuildID)
	if err != nil {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	s.storeMembers(ev.GuildID, []discord.Member{ev.Member})

	guild.MemberCount++
	s.stateErr(s.Cabinet.GuildSet(guild, true), "failed to update member count")

	s.Handler.Call(&MemberJoinEvent{GuildID: ev.GuildID, Member: ev.Member})
	return nil
}

func (s *State) onMemberUpdate(ev *gateway.GuildMemberUpdateEvent) *CacheKey {
	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	old, err := s.Cabinet.Member(ev.GuildID, ev.User.ID)
	if err != nil {
		old = nil
	} else if old.Equal(ev.Member) {
		return nil
	}

	s.storeMembers(ev.GuildID, []discord.Member{ev.Member})
	s.Handler.Call(&MemberUpdateEvent{GuildID: ev.GuildID, Old: old, New: ev.Member})

	if old == nil {
		return nil
	}

	added, removed := old.RoleDiff(ev.Member)

	for _, id := range added {
		s.Handler.Call(&MemberRoleAddEvent{
			GuildID: ev.GuildID,
			Member:  ev.Member,
			RoleID:  id,
			Role:    s.cachedRole(ev.GuildID, id),
		})
	}

	for _, id := range removed {
		s.Handler.Call(&MemberRoleRemoveEvent{
			GuildID: ev.GuildID,
			Member:  ev.Member,
			RoleID:  id,
			Role:    s.cachedRole(ev.GuildID, id),
		})
	}

	return nil
}

func (s *State) cachedRole(guildID discord.GuildID, id discord.RoleID) *discord.Role {
	r, err := s.Cabinet.Role(guildID, id)
	if err != nil {
		return nil
	}
	return r
}

func (s *State) onMemberRemove(ev *gateway.GuildMemberRemoveEvent) *CacheKey {
	guild, err := s.Cabinet.Guild(ev.GuildID)
	if err != nil {
		return guildKey(ev.GuildID)
	}

	var old *discord.Member

	s.withGuild(ev.GuildID, func() {
		if m, err := s.Cabinet.Member(ev.GuildID, ev.User.ID); err == nil {
			old = m
		}

		s.stateErr(s.Cabinet.MemberRemove(ev.GuildID, ev.User.ID), "failed to remove member")
		s.stateErr(s.Cabinet.VoiceStateRemove(ev.GuildID, ev.User.ID), "failed to remove voice state")

		if guild.MemberCount > 0 {
			guild.MemberCount--
			s.stateErr(s.Cabinet.GuildSet(guild, true), "failed to update member count")
		}
	})

	s.releaseUser(ev.User.ID)
	s.Handler.Call(&MemberLeaveEvent{GuildID: ev.GuildID, User: ev.User, Member: old})

	return nil
}

////

func (s *State) onChannelCreate(ev *gateway.ChannelCreateEvent) *CacheKey {
	if ev.GuildID.IsValid() {
		if !s.hasGuild(ev.GuildID) {
			return guildKey(ev.GuildID)
		}

		unlock := s.lockGuild(ev.GuildID)
		defer unlock()
	}

	s.setChannel(&ev.Channel)
	s.Handler.Call(&ChannelCreateEvent{Channel: ev.Channel})

	s.release(channelKey(ev.ID))
	return nil
}

func (s *State) setChannel(ch *discord.Channel) {
	if ch.GuildID.IsValid() {
		ch.Permissions = s.knownOverwrites(ch.GuildID, ch.Permissions)
	}

	s.stateErr(s.Cabinet.ChannelSet(ch, true), "failed to set channel")

	for i := range ch.DMRecipients {
		s.stateErr(s.Cabinet.UserSet(&ch.DMRecipients[i], false), "failed to set recipient")
	}
}

func (s *State) onChannelUpdate(ev *gateway.ChannelUpdateEvent) *CacheKey {
	if ev.GuildID.IsValid() {
		if !s.hasGuild(ev.GuildID) {
			return guildKey(ev.GuildID)
		}

		unlock := s.lockGuild(ev.GuildID)
		defer unlock()
	}

	old, err := s.Cabinet.Channel(ev.ID)
	if err != nil {
		old = nil
	} else if old.Equal(ev.Channel) {
		return nil
	}

	s.setChannel(&ev.Channel)
	s.Handler.Call(&ChannelUpdateEvent{Old: old, New: ev.Channel})

	if old == nil {
		s.release(channelKey(ev.ID))
	}

	return nil
}

func (s *State) onChannelDelete(ev *gateway.ChannelDeleteEvent) *CacheKey {
	if ev.GuildID.IsValid() {
		if !s.hasGuild(ev.GuildID) {
			return guildKey(ev.GuildID)
		}

		unlock := s.lockGuild(ev.GuildID)
		defer unlock()
	}

	s.stateErr(s.Cabinet.MessagesRemove(ev.ID), "failed to remove messages")
	s.stateErr(s.Cabinet.ChannelRemove(&ev.Channel), "failed to remove channel")

	s.Handler.Call(&ChannelDeleteEvent{Channel: ev.Channel})

	if ev.Channel.IsPrivate() {
		for _, u := range ev.DMRecipients {
			s.releaseUser(u.ID)
		}
	}

	return nil
}

////

// messageKey returns the entity a guild message waits for, or nil if its
// guild and channel are cached. DM messages never wait: bots are not sent
// CHANNEL_CREATE for DMs.
func (s *State) messageKey(guildID discord.GuildID, channelID discord.ChannelID) *CacheKey {
	if !guildID.IsValid() {
		return nil
	}
	if !s.hasGuild(guildID) {
		return guildKey(guildID)
	}
	if _, err := s.Cabinet.Channel(channelID); err != nil {
		return channelKey(channelID)
	}
	return nil
}

// learnPrivateChannel caches the DM channel a message from another user
// arrived in, if it is not cached yet.
func (s *State) learnPrivateChannel(channelID discord.ChannelID, author discord.User) {
	if _, err := s.Cabinet.Channel(channelID); err == nil {
		return
	}
	if me, err := s.Cabinet.Me(); err != nil || me.ID == author.ID {
		return
	}

	s.setChannel(&discord.Channel{
		ID:           channelID,
		Type:         discord.DirectMessage,
		DMRecipients: []discord.User{author},
	})
}

func (s *State) onMessageCreate(ev *gateway.MessageCreateEvent) *CacheKey {
	if key := s.messageKey(ev.GuildID, ev.ChannelID); key != nil {
		return key
	}

	if !ev.GuildID.IsValid() {
		s.learnPrivateChannel(ev.ChannelID, ev.Author)
	}

	var member *discord.Member

	if ev.GuildID.IsValid() && ev.Member != nil {
		m := *ev.Member
		m.User = ev.Author
		member = &m

		s.withGuild(ev.GuildID, func() { s.storeMembers(ev.GuildID, []discord.Member{m}) })
	} else {
		// Authors are fake unless a guild or DM ties them to us, which makes
		// them real on their own.
		s.stateErr(s.Cabinet.UserSet(&ev.Author, true), "failed to set author")
	}

	s.stateErr(s.Cabinet.MessageSet(&ev.Message, false), "failed to add message")
	s.Handler.Call(&MessageReceivedEvent{Message: ev.Message, Member: member})

	return nil
}

func (s *State) onMessageUpdate(ev *gateway.MessageUpdateEvent) *CacheKey {
	if key := s.messageKey(ev.GuildID, ev.ChannelID); key != nil {
		return key
	}

	old, err := s.Cabinet.Message(ev.ChannelID, ev.ID)
	if err != nil {
		s.Handler.Call(&MessageUpdateEvent{New: ev.Message})
		return nil
	}

	updated := *old
	applyMessageUpdate(&updated, ev.Message)

	s.stateErr(s.Cabinet.MessageSet(&updated, true), "failed to update message")
	s.Handler.Call(&MessageUpdateEvent{Old: old, New: updated})

	return nil
}

// applyMessageUpdate copies the fields present in a partial MESSAGE_UPDATE
// payload onto dst.
func applyMessageUpdate(dst *discord.Message, src discord.Message) {
	if src.Content != "" {
		dst.Content = src.Content
	}
	if src.EditedTimestamp.IsValid() {
		dst.EditedTimestamp = src.EditedTimestamp
	}
	if src.Timestamp.IsValid() {
		dst.Timestamp = src.Timestamp
	}
	if src.Author.ID.IsValid() {
		dst.Author = src.Author
	}
	if src.Mentions != nil {
		dst.Mentions = src.Mentions
	}
	if src.MentionRoleIDs != nil {
		dst.MentionRoleIDs = src.MentionRoleIDs
	}
}

func (s *State) onMessageDelete(ev *gateway.MessageDeleteEvent) *CacheKey {
	if key := s.messageKey(ev.GuildID, ev.ChannelID); key != nil {
		return key
	}

	s.deleteMessage(ev.GuildID, ev.ChannelID, ev.ID)
	return nil
}

func (s *State) onMessageDeleteBulk(ev *gateway.MessageDeleteBulkEvent) *CacheKey {
	if key := s.messageKey(ev.GuildID, ev.ChannelID); key != nil {
		return key
	}

	for _, id := range ev.IDs {
		s.deleteMessage(ev.GuildID, ev.ChannelID, id)
	}

	return nil
}

func (s *State) deleteMessage(guildID discord.GuildID, channelID discord.ChannelID, id discord.MessageID) {
	old, err := s.Cabinet.Message(channelID, id)
	if err != nil {
		old = nil
	}

	s.stateErr(s.Cabinet.MessageRemove(channelID, id), "failed to remove message")

	s.Handler.Call(&MessageDeleteEvent{
		ID:        id,
		ChannelID: channelID,
		GuildID:   guildID,
		Message:   old,
	})
}

////

func (s *State) onVoiceStateUpdate(ev *gateway.VoiceStateUpdateEvent) *CacheKey {
	// Private calls aren't cached.
	if !ev.GuildID.IsValid() {
		return nil
	}

	if !s.hasGuild(ev.GuildID) {
		return guildKey(ev.GuildID)
	}

	unlock := s.lockGuild(ev.GuildID)
	defer unlock()

	if ev.Member != nil {
		m := *ev.Member
		s.storeMembers(ev.GuildID, []discord.Member{m})
	}

	state := ev.VoiceState
	state.Member = nil

	old, err := s.Cabinet.VoiceState(ev.GuildID, ev.UserID)
	if err != nil {
		old = nil
	}

	switch {
	case !state.ChannelID.IsValid():
		s.stateErr(s.Cabinet.VoiceStateRemove(ev.GuildID, ev.UserID), "failed to remove voice state")
		if old != nil {
			s.Handler.Call(&VoiceLeaveEvent{State: *old})
		}

	case old == nil || !old.ChannelID.IsValid():
		s.stateErr(s.Cabinet.VoiceStateSet(ev.GuildID, &state, true), "failed to set voice state")
		s.Handler.Call(&VoiceJoinEvent{State: state})

	case old.ChannelID != state.ChannelID:
		s.stateErr(s.Cabinet.VoiceStateSet(ev.GuildID, &state, true), "failed to set voice state")
		s.Handler.Call(&VoiceMoveEvent{Old: *old, New: state})

	default:
		s.stateErr(s.Cabinet.VoiceStateSet(ev.GuildID, &state, true), "failed to set voice state")
	}

	return nil
}

func (s *State) onUserUpdate(ev *gateway.UserUpdateEvent) *CacheKey {
	me, err := s.Cabinet.Me()
	if err != nil {
		return userKey(ev.ID)
	}

	if *me == ev.User {
		return nil
	}

	s.stateErr(s.Cabinet.MyselfSet(ev.User), "failed to set self")
	s.stateErr(s.Cabinet.UserSet(&ev.User, false), "failed to set self user")

	s.Handler.Call(&SelfUpdateEvent{Old: *me, New: ev.User})
	return nil
}

func (s *State) onRelationshipAdd(ev *gateway.RelationshipAddEvent) *CacheKey {
	old, err := s.Cabinet.Relationship(ev.UserID)
	wasFriend := err == nil && old.Type == discord.FriendRelationship

	s.stateErr(s.Cabinet.RelationshipSet(&ev.Relationship), "failed to set relationship")
	s.stateErr(s.Cabinet.UserSet(&ev.User, false), "failed to set relationship user")

	if ev.Type == discord.FriendRelationship && !wasFriend {
		s.Handler.Call(&FriendAddEvent{User: ev.User})
	}

	return nil
}

func (s *State) onRelationshipRemove(ev *gateway.RelationshipRemoveEvent) *CacheKey {
	old, err := s.Cabinet.Relationship(ev.UserID)
	wasFriend := err == nil && old.Type == discord.FriendRelationship

	s.stateErr(s.Cabinet.RelationshipRemove(ev.UserID), "failed to remove relationship")

	if wasFriend {
		user := ev.User
		if !user.ID.IsValid() {
			user = old.User
		}
		s.Handler.Call(&FriendRemoveEvent{User: user})
	}

	s.releaseUser(ev.UserID)
	return nil
}
