package gateway

import "github.com/cordlink/cordlink/utils/ws"

// OpUnmarshalers contains the Op unmarshalers for every inbound gateway
// event.
var OpUnmarshalers = ws.NewOpUnmarshalers()

func init() {
	OpUnmarshalers.Add(
		func() ws.Event { return new(HelloEvent) },
		func() ws.Event { return new(InvalidSessionEvent) },
		func() ws.Event { return new(ReconnectEvent) },
		func() ws.Event { return new(HeartbeatAckEvent) },
		func() ws.Event { return new(HeartbeatCommand) },
		func() ws.Event { return new(ReadyEvent) },
		func() ws.Event { return new(ResumedEvent) },
		func() ws.Event { return new(ChannelCreateEvent) },
		func() ws.Event { return new(ChannelUpdateEvent) },
		func() ws.Event { return new(ChannelDeleteEvent) },
		func() ws.Event { return new(GuildCreateEvent) },
		func() ws.Event { return new(GuildUpdateEvent) },
		func() ws.Event { return new(GuildDeleteEvent) },
		func() ws.Event { return new(GuildEmojisUpdateEvent) },
		func() ws.Event { return new(GuildMemberAddEvent) },
		func() ws.Event { return new(GuildMemberRemoveEvent) },
		func() ws.Event { return new(GuildMemberUpdateEvent) },
		func() ws.Event { return new(GuildMembersChunkEvent) },
		func() ws.Event { return new(GuildSyncEvent) },
		func() ws.Event { return new(GuildRoleCreateEvent) },
		func() ws.Event { return new(GuildRoleUpdateEvent) },
		func() ws.Event { return new(GuildRoleDeleteEvent) },
		func() ws.Event { return new(MessageCreateEvent) },
		func() ws.Event { return new(MessageUpdateEvent) },
		func() ws.Event { return new(MessageDeleteEvent) },
		func() ws.Event { return new(MessageDeleteBulkEvent) },
		func() ws.Event { return new(PresenceUpdateEvent) },
		func() ws.Event { return new(TypingStartEvent) },
		func() ws.Event { return new(UserUpdateEvent) },
		func() ws.Event { return new(VoiceStateUpdateEvent) },
		func() ws.Event { return new(VoiceServerUpdateEvent) },
		func() ws.Event { return new(RelationshipAddEvent) },
		func() ws.Event { return new(RelationshipRemoveEvent) },
	)
}

// Op implements Event. It always returns HelloOP.
func (*HelloEvent) Op() ws.OpCode { return HelloOP }

// EventType implements Event.
func (*HelloEvent) EventType() ws.EventType { return "" }

// Op implements Event. It always returns InvalidSessionOP.
func (*InvalidSessionEvent) Op() ws.OpCode { return InvalidSessionOP }

// EventType implements Event.
func (*InvalidSessionEvent) EventType() ws.EventType { return "" }

// Op implements Event. It always returns ReconnectOP.
func (*ReconnectEvent) Op() ws.OpCode { return ReconnectOP }

// EventType implements Event.
func (*ReconnectEvent) EventType() ws.EventType { return "" }

// Op implements Event. It always returns HeartbeatAckOP.
func (*HeartbeatAckEvent) Op() ws.OpCode { return HeartbeatAckOP }

// EventType implements Event.
func (*HeartbeatAckEvent) EventType() ws.EventType { return "" }

// Op implements Event. It always returns HeartbeatOP.
func (*HeartbeatCommand) Op() ws.OpCode { return HeartbeatOP }

// EventType implements Event.
func (*HeartbeatCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns 0.
func (*ReadyEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*ReadyEvent) EventType() ws.EventType { return "READY" }

// Op implements Event. It always returns 0.
func (*ResumedEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*ResumedEvent) EventType() ws.EventType { return "RESUMED" }

// Op implements Event. It always returns 0.
func (*ChannelCreateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*ChannelCreateEvent) EventType() ws.EventType { return "CHANNEL_CREATE" }

// Op implements Event. It always returns 0.
func (*ChannelUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*ChannelUpdateEvent) EventType() ws.EventType { return "CHANNEL_UPDATE" }

// Op implements Event. It always returns 0.
func (*ChannelDeleteEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*ChannelDeleteEvent) EventType() ws.EventType { return "CHANNEL_DELETE" }

// Op implements Event. It always returns 0.
func (*GuildCreateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildCreateEvent) EventType() ws.EventType { return "GUILD_CREATE" }

// Op implements Event. It always returns 0.
func (*GuildUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildUpdateEvent) EventType() ws.EventType { return "GUILD_UPDATE" }

// Op implements Event. It always returns 0.
func (*GuildDeleteEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildDeleteEvent) EventType() ws.EventType { return "GUILD_DELETE" }

// Op implements Event. It always returns 0.
func (*GuildEmojisUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildEmojisUpdateEvent) EventType() ws.EventType { return "GUILD_EMOJIS_UPDATE" }

// Op implements Event. It always returns 0.
func (*GuildMemberAddEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildMemberAddEvent) EventType() ws.EventType { return "GUILD_MEMBER_ADD" }

// Op implements Event. It always returns 0.
func (*GuildMemberRemoveEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildMemberRemoveEvent) EventType() ws.EventType { return "GUILD_MEMBER_REMOVE" }

// Op implements Event. It always returns 0.
func (*GuildMemberUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildMemberUpdateEvent) EventType() ws.EventType { return "GUILD_MEMBER_UPDATE" }

// Op implements Event. It always returns 0.
func (*GuildMembersChunkEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildMembersChunkEvent) EventType() ws.EventType { return "GUILD_MEMBERS_CHUNK" }

// Op implements Event. It always returns 0.
func (*GuildSyncEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildSyncEvent) EventType() ws.EventType { return "GUILD_SYNC" }

// Op implements Event. It always returns 0.
func (*GuildRoleCreateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildRoleCreateEvent) EventType() ws.EventType { return "GUILD_ROLE_CREATE" }

// Op implements Event. It always returns 0.
func (*GuildRoleUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildRoleUpdateEvent) EventType() ws.EventType { return "GUILD_ROLE_UPDATE" }

// Op implements Event. It always returns 0.
func (*GuildRoleDeleteEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*GuildRoleDeleteEvent) EventType() ws.EventType { return "GUILD_ROLE_DELETE" }

// Op implements Event. It always returns 0.
func (*MessageCreateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*MessageCreateEvent) EventType() ws.EventType { return "MESSAGE_CREATE" }

// Op implements Event. It always returns 0.
func (*MessageUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*MessageUpdateEvent) EventType() ws.EventType { return "MESSAGE_UPDATE" }

// Op implements Event. It always returns 0.
func (*MessageDeleteEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*MessageDeleteEvent) EventType() ws.EventType { return "MESSAGE_DELETE" }

// Op implements Event. It always returns 0.
func (*MessageDeleteBulkEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*MessageDeleteBulkEvent) EventType() ws.EventType { return "MESSAGE_DELETE_BULK" }

// Op implements Event. It always returns 0.
func (*PresenceUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*PresenceUpdateEvent) EventType() ws.EventType { return "PRESENCE_UPDATE" }

// Op implements Event. It always returns 0.
func (*TypingStartEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*TypingStartEvent) EventType() ws.EventType { return "TYPING_START" }

// Op implements Event. It always returns 0.
func (*UserUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*UserUpdateEvent) EventType() ws.EventType { return "USER_UPDATE" }

// Op implements Event. It always returns 0.
func (*VoiceStateUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*VoiceStateUpdateEvent) EventType() ws.EventType { return "VOICE_STATE_UPDATE" }

// Op implements Event. It always returns 0.
func (*VoiceServerUpdateEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*VoiceServerUpdateEvent) EventType() ws.EventType { return "VOICE_SERVER_UPDATE" }

// Op implements Event. It always returns 0.
func (*RelationshipAddEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*RelationshipAddEvent) EventType() ws.EventType { return "RELATIONSHIP_ADD" }

// Op implements Event. It always returns 0.
func (*RelationshipRemoveEvent) Op() ws.OpCode { return DispatchOP }

// EventType implements Event.
func (*RelationshipRemoveEvent) EventType() ws.EventType { return "RELATIONSHIP_REMOVE" }

// Op implements Event. It always returns IdentifyOP.
func (*IdentifyCommand) Op() ws.OpCode { return IdentifyOP }

// EventType implements Event.
func (*IdentifyCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns ResumeOP.
func (*ResumeCommand) Op() ws.OpCode { return ResumeOP }

// EventType implements Event.
func (*ResumeCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns RequestGuildMembersOP.
func (*RequestGuildMembersCommand) Op() ws.OpCode { return RequestGuildMembersOP }

// EventType implements Event.
func (*RequestGuildMembersCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns GuildSyncOP.
func (*GuildSyncCommand) Op() ws.OpCode { return GuildSyncOP }

// EventType implements Event.
func (*GuildSyncCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns UpdateVoiceStateOP.
func (*UpdateVoiceStateCommand) Op() ws.OpCode { return UpdateVoiceStateOP }

// EventType implements Event.
func (*UpdateVoiceStateCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns UpdatePresenceOP.
func (*UpdatePresenceCommand) Op() ws.OpCode { return UpdatePresenceOP }

// EventType implements Event.
func (*UpdatePresenceCommand) EventType() ws.EventType { return "" }

// Op implements Event. It always returns InternalOP.
func (*SessionInvalidatedEvent) Op() ws.OpCode { return InternalOP }

// EventType implements Event.
func (*SessionInvalidatedEvent) EventType() ws.EventType { return "__gateway.SessionInvalidatedEvent" }

// Op implements Event. It always returns InternalOP.
func (*ShutdownEvent) Op() ws.OpCode { return InternalOP }

// EventType implements Event.
func (*ShutdownEvent) EventType() ws.EventType { return "__gateway.ShutdownEvent" }
