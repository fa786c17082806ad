package gateway

import "github.com/cordlink/cordlink/utils/ws"

// Gateway op codes. Op codes below zero are internal to the library.
const (
	DispatchOP            ws.OpCode = 0  // recv
	HeartbeatOP           ws.OpCode = 1  // send/recv
	IdentifyOP            ws.OpCode = 2  // send
	UpdatePresenceOP      ws.OpCode = 3  // send
	UpdateVoiceStateOP    ws.OpCode = 4  // send
	ResumeOP              ws.OpCode = 6  // send
	ReconnectOP           ws.OpCode = 7  // recv
	RequestGuildMembersOP ws.OpCode = 8  // send
	InvalidSessionOP      ws.OpCode = 9  // recv
	HelloOP               ws.OpCode = 10 // recv
	HeartbeatAckOP        ws.OpCode = 11 // recv
	GuildSyncOP           ws.OpCode = 12 // send, user accounts only
)

// InternalOP is the op code of events that the library synthesizes itself.
// They never travel over the wire.
const InternalOP ws.OpCode = -1
