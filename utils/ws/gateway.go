package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cordlink/cordlink/internal/backoff"
	"github.com/cordlink/cordlink/internal/lazytime"
	"github.com/pkg/errors"
)

// ConnectionError is given to the user if the gateway fails to connect to the
// gateway for any reason, including during an initial connection or a
// reconnection. To check for this error, use the errors.As function.
type ConnectionError struct {
	Err error
}

// Unwrap unwraps the ConnectionError.
func (err ConnectionError) Unwrap() error { return err.Err }

// Error formats the error.
func (err ConnectionError) Error() string {
	return fmt.Sprintf("error reconnecting: %s", err.Err)
}

// BackgroundErrorEvent describes an error that the gateway event loop might
// stumble upon while it's running, including payloads that could not be
// decoded.
type BackgroundErrorEvent struct {
	Err error

	// OriginalCode and OriginalType describe the payload that failed to
	// decode, if any.
	OriginalCode OpCode
	OriginalType EventType
	// Malformed is true if the payload could not be decoded. Unknown but
	// well-formed events are not malformed.
	Malformed bool
}

var _ Event = (*BackgroundErrorEvent)(nil)

// Unwrap returns err.Err.
func (err *BackgroundErrorEvent) Unwrap() error { return err.Err }

// Error formats the BackgroundErrorEvent.
func (err *BackgroundErrorEvent) Error() string {
	return "background gateway error: " + err.Err.Error()
}

// Op implements Op. It returns -1.
func (err *BackgroundErrorEvent) Op() OpCode { return -1 }

// EventType implements Op. It returns an opaque unique string.
func (err *BackgroundErrorEvent) EventType() EventType {
	return "__ws.BackgroundErrorEvent"
}

// Phase describes where the event loop is in its connection lifecycle.
type Phase uint8

const (
	// PhaseConnecting is entered right before dialing.
	PhaseConnecting Phase = iota
	// PhaseConnected is entered once the dial succeeded.
	PhaseConnected
	// PhaseWaiting is entered while sleeping before a reconnect attempt.
	PhaseWaiting
	// PhaseAttempting is entered after the reconnect delay has passed.
	PhaseAttempting
	// PhaseDisconnected is entered when the loop exits.
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseWaiting:
		return "waiting"
	case PhaseAttempting:
		return "attempting"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// GatewayOpts describes the gateway event loop options.
type GatewayOpts struct {
	// MinReconnectDelay and MaxReconnectDelay bound the reconnect backoff.
	// The delay before attempt k is min(Min * 2^(k-1), Max). The backoff is
	// only reset by ResetBackoff, which the handler calls once the session is
	// confirmed.
	MinReconnectDelay time.Duration
	MaxReconnectDelay time.Duration

	// FatalCloseCodes is a list of close codes that will cause the gateway to
	// exit out if it stumbles on one of these.
	FatalCloseCodes []int

	// DialTimeout is the timeout to wait for each websocket dial before failing
	// it and retrying. Default is 0.
	DialTimeout time.Duration

	// ReconnectAttempt is the maximum number of consecutive attempts made to
	// reconnect before aborting the whole gateway. If this set to 0,
	// unlimited attempts will be made. Default is 0.
	ReconnectAttempt int

	// AlwaysCloseGracefully, if true, will always make the Gateway close
	// gracefully once the context given to Connect is cancelled. A graceful
	// close ends the session on the server.
	AlwaysCloseGracefully bool
}

// DefaultGatewayOpts is the default event loop options.
var DefaultGatewayOpts = GatewayOpts{
	MinReconnectDelay:     2 * time.Second,
	MaxReconnectDelay:     15 * time.Minute,
	DialTimeout:           0,
	ReconnectAttempt:      0,
	AlwaysCloseGracefully: true,
}

// ErrorIsFatalClose returns true if the error is a fatal close error. It uses
// opts.FatalCloseCodes to check for the codes.
func (opts GatewayOpts) ErrorIsFatalClose(err error) bool {
	var closeErr *CloseEvent
	if !errors.As(err, &closeErr) {
		return false
	}

	for _, code := range opts.FatalCloseCodes {
		if code == closeErr.Code {
			return true
		}
	}

	return false
}

// Gateway describes an instance that handles the Discord gateway. It is
// basically an abstracted concurrent event loop that the user could signal to
// start connecting to the Discord gateway server.
type Gateway struct {
	ws *Websocket

	reconnect chan struct{}
	heart     lazytime.Ticker
	srcOp     <-chan Op // from WS
	outer     outerState
	lastError error
	backoff   *backoff.Backoff
	dialed    bool

	opts GatewayOpts
}

// outerState holds gateway state that the caller may change concurrently.
// The event loop must never access the outerState directly except through
// its channel copy.
type outerState struct {
	sync.Mutex
	ch      chan Op
	started bool
}

// Handler describes a gateway handler. It describes the core that governs the
// behavior of the gateway event loop. All methods are called from the event
// loop goroutine.
type Handler interface {
	// OnOp is called by the gateway event loop on every new Op. If the returned
	// boolean is false, then the loop fatally exits.
	OnOp(context.Context, Op) (canContinue bool)
	// SendHeartbeat is called by the gateway event loop everytime a heartbeat
	// needs to be sent over.
	SendHeartbeat(context.Context)
	// OnPhase is called when the loop enters a new connection phase.
	OnPhase(Phase)
	// Close closes the handler.
	Close() error
}

// NewGateway creates a new Gateway with a custom gateway URL and a pre-existing
// Identifier. If opts is nil, then DefaultOpts is used.
func NewGateway(ws *Websocket, opts *GatewayOpts) *Gateway {
	if opts == nil {
		opts = &DefaultGatewayOpts
	}

	return &Gateway{
		ws:      ws,
		opts:    *opts,
		backoff: backoff.NewBackoff(opts.MinReconnectDelay, opts.MaxReconnectDelay),
	}
}

// Opts returns a copy of the gateway options. The options can only be changed
// during construction, so a copy is a must.
func (g *Gateway) Opts() *GatewayOpts {
	cpy := g.opts
	return &cpy
}

// Websocket returns the underlying Websocket.
func (g *Gateway) Websocket() *Websocket {
	return g.ws
}

// HasStarted returns true if the gateway event loop is currently spinning.
func (g *Gateway) HasStarted() bool {
	g.outer.Lock()
	defer g.outer.Unlock()

	return g.outer.started
}

// Connect starts the background goroutine that tries its best to maintain a
// stable connection to the Websocket gateway. To the user, the gateway should
// appear to be working seamlessly. The returned channel is closed once the
// loop exits, either because ctx expired or because of a fatal error.
func (g *Gateway) Connect(ctx context.Context, h Handler) <-chan Op {
	g.outer.Lock()
	defer g.outer.Unlock()

	if !g.outer.started {
		g.outer.started = true
		g.outer.ch = make(chan Op, 1)
		go g.spin(ctx, h)
	}

	return g.outer.ch
}

// LastError returns the last error that the gateway has received. It must
// only be called after the channel returned by Connect is closed.
func (g *Gateway) LastError() error {
	return g.lastError
}

// finalize closes the gateway permanently.
func (g *Gateway) finalize(h Handler) {
	g.heart.Stop()

	var err error

	if g.opts.AlwaysCloseGracefully {
		err = g.ws.CloseGracefully()
	} else {
		err = g.ws.Close()
	}

	// Errors while finalizing are reported without replacing lastError,
	// which holds the reason the loop stopped.
	if err != nil && !errors.Is(err, ErrWebsocketClosed) {
		g.Emit(&BackgroundErrorEvent{Err: errors.Wrap(err, "failed to finalize websocket")})
	}

	h.OnPhase(PhaseDisconnected)

	if err := h.Close(); err != nil {
		g.Emit(&BackgroundErrorEvent{Err: err})
	}

	g.outer.Lock()
	close(g.outer.ch)
	g.outer.started = false
	g.outer.Unlock()
}

// QueueReconnect queues a reconnection in the gateway loop. Queueing more than
// one reconnection before the loop picks it up is a no-op.
func (g *Gateway) QueueReconnect() {
	select {
	case g.reconnect <- struct{}{}:
	default:
	}
}

// ResetHeartbeat resets the heartbeat to be the given duration. It must only
// be called from the Handler.
func (g *Gateway) ResetHeartbeat(d time.Duration) {
	g.heart.Reset(d)
}

// ResetBackoff restarts the reconnect backoff at its minimum delay.
func (g *Gateway) ResetBackoff() {
	g.backoff.Reset()
}

// Backoff returns the reconnect backoff counter.
func (g *Gateway) Backoff() *backoff.Backoff {
	return g.backoff
}

// Emit sends an internal event into the event channel. It must only be
// called from the Handler, so the event is ordered relative to other Ops.
func (g *Gateway) Emit(ev Event) {
	g.outer.ch <- Op{
		Code: ev.Op(),
		Type: ev.EventType(),
		Data: ev,
	}
}

// SendError sends the given error wrapped in a BackgroundErrorEvent into the
// event channel.
func (g *Gateway) SendError(err error) {
	g.Emit(&BackgroundErrorEvent{Err: err})
	g.lastError = err
}

// SendErrorWrap is a convenient function over SendError.
func (g *Gateway) SendErrorWrap(err error, message string) {
	g.SendError(fmt.Errorf("%s: %w", message, err))
}

func (g *Gateway) spin(ctx context.Context, h Handler) {
	// Always close the event channel once we exit.
	defer g.finalize(h)

	g.reconnect = make(chan struct{}, 1)
	g.reconnect <- struct{}{}

	for {
		select {
		case <-ctx.Done():
			return

		case op, ok := <-g.srcOp:
			if !ok {
				// The connection is gone; its CloseEvent was already handled.
				g.srcOp = nil
				continue
			}

			if data, isClose := op.Data.(*CloseEvent); isClose {
				g.heart.Stop()

				if g.opts.ErrorIsFatalClose(data) {
					// Let the handler observe the close before exiting.
					h.OnOp(ctx, op)
					g.outer.ch <- op
					g.lastError = data
					return
				}
			}

			ok = h.OnOp(ctx, op)
			g.outer.ch <- op
			if !ok {
				return
			}

		case <-g.heart.C:
			h.SendHeartbeat(ctx)

		case <-g.reconnect:
			if !g.reconnectLoop(ctx, h) {
				return
			}
		}
	}
}

// reconnectLoop closes the current connection and dials until it succeeds.
// The very first dial only waits on the dial limiter. Any later dial waits
// for the backoff delay instead. It returns false if the loop should exit.
func (g *Gateway) reconnectLoop(ctx context.Context, h Handler) bool {
	g.heart.Stop()

	// Close the previous connection if it's not already. Ignore the
	// already closed error.
	if err := g.ws.Close(); err != nil && !errors.Is(err, ErrWebsocketClosed) {
		g.SendErrorWrap(err, "error closing before reconnecting")
	}

	// Invalidate our srcOp.
	g.srcOp = nil

	var retryTimer lazytime.Timer
	defer retryTimer.Stop()

	var err error

	for try := 0; g.opts.ReconnectAttempt == 0 || try < g.opts.ReconnectAttempt; try++ {
		// A dial that waited out the backoff skips the dial limiter.
		paced := g.dialed || try > 0

		if paced {
			h.OnPhase(PhaseWaiting)

			delay := g.backoff.Next()
			WSDebug("Gateway: waiting", delay, "before reconnecting")

			retryTimer.Reset(delay)
			if err := retryTimer.Wait(ctx); err != nil {
				g.SendError(ConnectionError{err})
				return false
			}

			h.OnPhase(PhaseAttempting)
		}

		h.OnPhase(PhaseConnecting)

		g.srcOp, err = g.dial(ctx, paced)
		if err == nil {
			g.dialed = true
			h.OnPhase(PhaseConnected)
			return true
		}

		// Exit if the context expired.
		if ctx.Err() != nil {
			g.SendError(ConnectionError{ctx.Err()})
			return false
		}

		// Signal an error before retrying.
		g.SendError(ConnectionError{err})
	}

	err = fmt.Errorf("failed to reconnect after max attempts: %w", err)
	g.SendError(ConnectionError{err})
	return false
}

func (g *Gateway) dial(ctx context.Context, paced bool) (<-chan Op, error) {
	if g.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.DialTimeout)
		defer cancel()
	}

	if paced {
		return g.ws.dialPaced(ctx)
	}
	return g.ws.Dial(ctx)
}
