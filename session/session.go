// Package session abstracts around the REST API and the Gateway, managing both
// at once. It offers a handler interface similar to that in discordgo for
// Gateway events.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/api"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/handler"
	"github.com/cordlink/cordlink/utils/ws"
)

// ErrAlreadyOpen is returned by Open on a running session.
var ErrAlreadyOpen = errors.New("session is already open")

// Closed is an event that's sent to Session's handler once the gateway event
// loop has stopped for good.
//
// Usage
//
//    ses.AddHandler(func(*session.Closed) {})
//
type Closed struct {
	Error error
}

// StatusChangeEvent is sent to the handler every time the gateway session
// changes status.
type StatusChangeEvent struct {
	Old gateway.Status
	New gateway.Status
}

// OpHandler receives every Op read from the gateway. It runs on the session's
// read loop, so Ops are seen in arrival order.
type OpHandler func(op ws.Op)

// Session manages both the API and Gateway. As such, Session inherits all of
// API's methods, as well has the Handler used for Gateway.
type Session struct {
	*api.Client
	Gateway *gateway.Gateway

	// Command handler with inherited methods.
	*handler.Handler

	Logger *zap.Logger

	opMu      sync.RWMutex
	opHandler OpHandler

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a session for the token. It fetches the gateway URL over REST.
func New(token string) (*Session, error) {
	return NewWithClient(api.NewClient(token), nil)
}

// NewWithClient creates a session that shares the given REST client. The
// gateway URL is fetched through it. If opts is nil, gateway.DefaultOptions is
// used.
func NewWithClient(client *api.Client, opts *gateway.Options) (*Session, error) {
	url, err := client.GatewayURL()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gateway endpoint")
	}

	return NewWithGateway(gateway.NewCustom(url, client.Token, opts), client), nil
}

// NewWithGateway creates a session from an existing gateway and REST client.
// A nil client is replaced with one using the gateway's token.
func NewWithGateway(gw *gateway.Gateway, client *api.Client) *Session {
	if client == nil {
		client = api.NewClient(gw.Identifier().Token)
	}

	s := &Session{
		Client:  client,
		Gateway: gw,
		Handler: handler.New(),
		Logger:  zap.NewNop(),
	}

	gw.OnStatus(func(old, new gateway.Status) {
		s.Handler.Call(&StatusChangeEvent{Old: old, New: new})
	})

	return s
}

// SetOpHandler replaces the default Op handling, which calls the Handler with
// the Op's event. Passing nil restores the default.
func (s *Session) SetOpHandler(fn OpHandler) {
	s.opMu.Lock()
	s.opHandler = fn
	s.opMu.Unlock()
}

// HandleOp handles one Op as the read loop would.
func (s *Session) HandleOp(op ws.Op) {
	s.opMu.RLock()
	fn := s.opHandler
	s.opMu.RUnlock()

	if fn != nil {
		fn(op)
		return
	}

	if op.Data != nil {
		s.Handler.Call(op.Data)
	}
}

// Open starts the gateway and the read loop. It does not wait for the session
// to be ready; subscribe to the ready event for that.
func (s *Session) Open(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrAlreadyOpen
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	ops := s.Gateway.Connect(ctx)
	go s.readLoop(ops, s.done)

	return nil
}

func (s *Session) readLoop(ops <-chan ws.Op, done chan struct{}) {
	defer close(done)

	for op := range ops {
		s.HandleOp(op)
	}

	err := s.Gateway.LastError()
	s.Logger.Info("gateway event loop stopped", zap.Error(err))
	s.Handler.Call(&Closed{Error: err})
}

// Done returns a channel that is closed once the read loop has stopped. It
// returns nil if the session was never opened.
func (s *Session) Done() <-chan struct{} {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.done
}

// Close stops the gateway and waits for the read loop to drain. The gateway
// saves or clears its resume state on the way out.
func (s *Session) Close() error {
	s.runMu.Lock()
	cancel := s.cancel
	done := s.done
	s.runMu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	return nil
}
