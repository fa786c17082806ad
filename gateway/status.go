package gateway

import "fmt"

// Status is the lifecycle status of a gateway session.
type Status uint32

const (
	// Disconnected is the status before the first connect and after the
	// connection is lost.
	Disconnected Status = iota
	// Connecting means the websocket is being dialed.
	Connecting
	// Identifying means the websocket is up and the handshake is pending.
	Identifying
	// AwaitingLoginConfirmation means an Identify or Resume was queued and
	// READY or RESUMED is expected next.
	AwaitingLoginConfirmation
	// LoadingSubsystems means the session is authenticated and the initial
	// guild payloads are being loaded.
	LoadingSubsystems
	// Connected is the steady state.
	Connected
	// WaitingToReconnect means the gateway sleeps on its reconnect backoff.
	WaitingToReconnect
	// AttemptingToReconnect means the backoff delay has passed.
	AttemptingToReconnect
	// Shutdown is final.
	Shutdown
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Identifying:
		return "Identifying"
	case AwaitingLoginConfirmation:
		return "AwaitingLoginConfirmation"
	case LoadingSubsystems:
		return "LoadingSubsystems"
	case Connected:
		return "Connected"
	case WaitingToReconnect:
		return "WaitingToReconnect"
	case AttemptingToReconnect:
		return "AttemptingToReconnect"
	case Shutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Status(%d)", uint32(s))
	}
}

// IsAuthenticated returns true once the server confirmed the session.
func (s Status) IsAuthenticated() bool {
	return s == LoadingSubsystems || s == Connected
}

// StatusObserver is called on every status transition.
type StatusObserver func(old, new Status)
