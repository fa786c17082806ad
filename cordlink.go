// Package cordlink contains a set of modular packages that keep a Discord
// session and a local cache of it.
//
// Session
//
// Package session combines the REST client of package api with the gateway
// session of package gateway. It delivers every event as is, which is enough
// for programs that keep no state.
//
// State
//
// Package state abstracts on top of session and keeps a cache of guilds,
// channels, members, messages and voice states. Events are only delivered
// once everything they reference is cached, and are translated into
// higher-level events such as GuildJoinEvent or MemberRoleAddEvent.
//
// Low level packages
//
// Package gateway is the websocket state machine: identify, resume,
// heartbeats and reconnects. Package api is the REST client with its rate
// limiter in api/rate. Both can be used on their own.
package cordlink

import (
	// Packages that most should use.
	_ "github.com/cordlink/cordlink/session"
	_ "github.com/cordlink/cordlink/state"

	// Low level packages.
	_ "github.com/cordlink/cordlink/api"
	_ "github.com/cordlink/cordlink/gateway"
)
