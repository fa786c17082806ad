// Package ws provides abstractions around the Websocket, including rate
// limits and a reconnecting event loop.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// WSError is the default error handler.
	WSError = func(err error) {}
	// WSDebug is used for extra debug logging. This is expected to behave
	// similarly to log.Println().
	WSDebug = func(v ...interface{}) {}
)

// UseLogger routes WSError and WSDebug to the given logger.
func UseLogger(l *zap.Logger) {
	sugar := l.Named("ws").Sugar()

	WSError = func(err error) { sugar.Errorw("websocket error", zap.Error(err)) }
	WSDebug = func(v ...interface{}) { sugar.Debug(fmt.Sprintln(v...)) }
}

// Websocket is a wrapper around a websocket Conn with thread safety and dial
// throttling. Outbound command throttling is done by the caller.
type Websocket struct {
	mutex sync.Mutex
	conn  Connection
	addr  string

	dialLimiter *rate.Limiter
}

// NewWebsocket creates a default Websocket with the given address.
func NewWebsocket(c Codec, addr string) *Websocket {
	return NewCustomWebsocket(NewConn(c), addr)
}

// NewCustomWebsocket creates a new undialed Websocket.
func NewCustomWebsocket(conn Connection, addr string) *Websocket {
	return &Websocket{
		conn:        conn,
		addr:        addr,
		dialLimiter: NewDialLimiter(),
	}
}

// SetDialLimiter replaces the dial limiter. A nil limiter disables dial
// throttling.
func (ws *Websocket) SetDialLimiter(l *rate.Limiter) {
	if l == nil {
		l = rate.NewLimiter(rate.Inf, 1)
	}

	ws.mutex.Lock()
	ws.dialLimiter = l
	ws.mutex.Unlock()
}

// Addr returns the address the Websocket dials.
func (ws *Websocket) Addr() string {
	return ws.addr
}

// Dial waits until the rate limiter allows then dials the websocket.
func (ws *Websocket) Dial(ctx context.Context) (<-chan Op, error) {
	ws.mutex.Lock()
	limiter := ws.dialLimiter
	ws.mutex.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		// Expired, fatal error
		return nil, errors.Wrap(err, "failed to wait for dial rate limiter")
	}

	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	return ws.conn.Dial(ctx, ws.addr)
}

// dialPaced dials without waiting on the dial limiter. The dial still takes
// a slot from it, so a later Dial waits as usual. The caller spaces these
// dials itself.
func (ws *Websocket) dialPaced(ctx context.Context) (<-chan Op, error) {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	ws.dialLimiter.ReserveN(time.Now(), 1)

	return ws.conn.Dial(ctx, ws.addr)
}

// Send sends b over the Websocket.
func (ws *Websocket) Send(ctx context.Context, b []byte) error {
	ws.mutex.Lock()
	conn := ws.conn
	ws.mutex.Unlock()

	return conn.Send(ctx, b)
}

// Close closes the websocket connection without ending the session. It
// assumes that the Websocket is closed even when it returns an error. If the
// Websocket was already closed before, ErrWebsocketClosed will be returned.
func (ws *Websocket) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	return ws.conn.Close(false)
}

// CloseGracefully is similar to Close, but a proper close frame is sent to
// Discord, invalidating the internal session ID and voiding resumes.
func (ws *Websocket) CloseGracefully() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	return ws.conn.Close(true)
}
