package gateway

import (
	"fmt"

	"github.com/cordlink/cordlink/utils/ws"
	"github.com/pkg/errors"
)

// CloseCode is a websocket close code sent by the gateway.
type CloseCode int

// https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-gateway-close-event-codes
const (
	CloseNormal               CloseCode = 1000
	CloseGoingAway            CloseCode = 1001
	CloseAbnormal             CloseCode = 1006
	CloseUnknownError         CloseCode = 4000
	CloseUnknownOpcode        CloseCode = 4001
	CloseDecodeError          CloseCode = 4002
	CloseNotAuthenticated     CloseCode = 4003
	CloseAuthenticationFailed CloseCode = 4004
	CloseAlreadyAuthenticated CloseCode = 4005
	CloseInvalidSequence      CloseCode = 4007
	CloseRateLimited          CloseCode = 4008
	CloseSessionTimeout       CloseCode = 4009
	CloseInvalidShard         CloseCode = 4010
	CloseShardingRequired     CloseCode = 4011
	CloseInvalidAPIVersion    CloseCode = 4012
	CloseInvalidIntents       CloseCode = 4013
	CloseDisallowedIntents    CloseCode = 4014
)

// CloseAction is what the gateway does after a close code.
type CloseAction uint8

const (
	// Reconnect reconnects and resumes if a session exists.
	Reconnect CloseAction = iota
	// Invalidate drops the session and reconnects with a fresh Identify.
	Invalidate
	// Terminate stops the gateway for good.
	Terminate
)

type closeCodeInfo struct {
	meaning string
	action  CloseAction
}

var closeCodes = map[CloseCode]closeCodeInfo{
	CloseNormal:               {"normal closure", Reconnect},
	CloseGoingAway:            {"going away", Reconnect},
	CloseAbnormal:             {"abnormal closure", Reconnect},
	CloseUnknownError:         {"unknown error", Reconnect},
	CloseUnknownOpcode:        {"unknown opcode", Reconnect},
	CloseDecodeError:          {"decode error", Reconnect},
	CloseNotAuthenticated:     {"not authenticated", Reconnect},
	CloseAuthenticationFailed: {"authentication failed", Terminate},
	CloseAlreadyAuthenticated: {"already authenticated", Reconnect},
	CloseInvalidSequence:      {"invalid sequence", Invalidate},
	CloseRateLimited:          {"rate limited", Reconnect},
	CloseSessionTimeout:       {"session timed out", Invalidate},
	CloseInvalidShard:         {"invalid shard", Terminate},
	CloseShardingRequired:     {"sharding required", Terminate},
	CloseInvalidAPIVersion:    {"invalid API version", Terminate},
	CloseInvalidIntents:       {"invalid intents", Terminate},
	CloseDisallowedIntents:    {"disallowed intents", Terminate},
}

// Action returns what the gateway does after receiving c. Unknown codes
// reconnect.
func (c CloseCode) Action() CloseAction {
	return closeCodes[c].action
}

// IsFatal returns true if c terminates the gateway.
func (c CloseCode) IsFatal() bool {
	return c.Action() == Terminate
}

func (c CloseCode) String() string {
	if info, ok := closeCodes[c]; ok {
		return fmt.Sprintf("%d (%s)", int(c), info.meaning)
	}
	return fmt.Sprintf("%d", int(c))
}

// FatalCloseCodes returns the close codes that terminate the gateway, as
// expected by ws.GatewayOpts.
func FatalCloseCodes() []int {
	var codes []int
	for code, info := range closeCodes {
		if info.action == Terminate {
			codes = append(codes, int(code))
		}
	}
	return codes
}

// CloseCodeOf returns the close code carried by err, or -1 if err is not a
// websocket close.
func CloseCodeOf(err error) CloseCode {
	var closeErr *ws.CloseEvent
	if errors.As(err, &closeErr) {
		return CloseCode(closeErr.Code)
	}
	return -1
}
