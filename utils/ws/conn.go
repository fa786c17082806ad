package ws

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cordlink/cordlink/utils/zlib"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const rwBufferSize = 1 << 15 // 32KB

// ErrWebsocketClosed is returned if the websocket is already closed.
var ErrWebsocketClosed = errors.New("websocket is closed")

// Connection is an interface that abstracts around a generic Websocket driver.
// The implementation doesn't have to be safe for concurrent use.
type Connection interface {
	// Dial dials the address (string). Context needs to be passed in for
	// timeout. This method should also be re-usable after Close is called.
	Dial(context.Context, string) (<-chan Op, error)

	// Send allows the caller to send bytes.
	Send(context.Context, []byte) error

	// Close should close the websocket connection. The Connection must still
	// be reusable even if Close returns an error. If gracefully is true, then
	// the implementation must send a normal closure frame, which ends the
	// session on the server. Otherwise the session must stay resumable.
	Close(gracefully bool) error
}

// Conn is the default Websocket connection, built on gorilla/websocket.
// Binary messages are treated as a zlib stream.
type Conn struct {
	dialer websocket.Dialer
	codec  Codec

	// conn is used for synchronizing the conn instance itself. Any use of conn
	// must copy conn out.
	conn *connMutex
	// mut is used for synchronizing the conn field.
	mut sync.Mutex

	// CloseTimeout is the timeout for graceful closing. It's defaulted to 5s.
	CloseTimeout time.Duration
}

type connMutex struct {
	*websocket.Conn
	wrmut  chan struct{}
	cancel context.CancelFunc
}

var _ Connection = (*Conn)(nil)

// NewConn creates a new default websocket connection with a default dialer.
func NewConn(codec Codec) *Conn {
	return NewConnWithDialer(codec, websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   rwBufferSize,
		WriteBufferSize:  rwBufferSize,
	})
}

// NewConnWithDialer creates a new default websocket connection with a custom
// dialer.
func NewConnWithDialer(codec Codec, dialer websocket.Dialer) *Conn {
	return &Conn{
		dialer:       dialer,
		codec:        codec,
		CloseTimeout: 5 * time.Second,
	}
}

// Dial starts a new connection and returns the listening channel for it. If the
// websocket is already dialed, then the connection is closed first.
func (c *Conn) Dial(ctx context.Context, addr string) (<-chan Op, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	// Ensure that the connection is already closed.
	if c.conn != nil {
		c.conn.close(c.CloseTimeout, false)
	}

	conn, _, err := c.dialer.DialContext(ctx, addr, c.codec.Headers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial WS")
	}

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan Op, 1)
	go readLoop(ctx, conn, newFrameReader(c.codec), events)

	c.conn = &connMutex{
		wrmut:  make(chan struct{}, 1),
		Conn:   conn,
		cancel: cancel,
	}

	return events, nil
}

// Close implements Connection.
func (c *Conn) Close(gracefully bool) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	err := c.conn.close(c.CloseTimeout, gracefully)
	c.conn = nil
	return err
}

func (c *connMutex) close(timeout time.Duration, gracefully bool) error {
	if c == nil || c.Conn == nil {
		WSDebug("Conn: Close is called on already closed connection")
		return ErrWebsocketClosed
	}

	WSDebug("Conn: Close is called; shutting down the Websocket connection.")

	if gracefully {
		// Have a deadline before closing.
		deadline := time.Now().Add(timeout)

		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()

		select {
		case c.wrmut <- struct{}{}:
			// Lock acquired. We can now safely set the deadline and write.
			c.SetWriteDeadline(deadline)

			WSDebug("Conn: Graceful closing requested, sending close frame.")

			if err := c.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			); err != nil {
				WSError(err)
			}

			// Release the lock.
			<-c.wrmut

		case <-ctx.Done():
			// We couldn't acquire the lock. Resort to just closing the
			// connection directly.
		}
	}

	// Close the WS.
	err := c.Conn.Close()

	if err != nil {
		WSDebug("Conn: Websocket closed; error:", err)
	} else {
		WSDebug("Conn: Websocket closed successfully")
	}

	c.Conn = nil

	c.cancel()
	c.cancel = nil

	return err
}

// resetDeadline is used to reset the write deadline after using the context's.
var resetDeadline = time.Time{}

// Send implements Connection.
func (c *Conn) Send(ctx context.Context, b []byte) error {
	c.mut.Lock()
	conn := c.conn
	c.mut.Unlock()

	if conn == nil || conn.Conn == nil {
		return ErrWebsocketClosed
	}

	select {
	case conn.wrmut <- struct{}{}:
		defer func() { <-conn.wrmut }()

		if d, ok := ctx.Deadline(); ok {
			conn.SetWriteDeadline(d)
			defer conn.SetWriteDeadline(resetDeadline)
		}

		return conn.WriteMessage(websocket.TextMessage, b)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, fr *frameReader, opCh chan<- Op) {
	// Clean up the events channel in the end.
	defer close(opCh)

	for {
		op, err := readMessage(conn, fr)
		if err != nil {
			WSDebug("Conn: fatal Conn error:", err)

			closeEv := &CloseEvent{
				Err:  err,
				Code: -1,
			}

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				closeEv.Code = closeErr.Code
				closeEv.Err = fmt.Errorf("%d %s", closeErr.Code, closeErr.Text)
			}

			sendOp(ctx, opCh, closeEvOp(closeEv))
			return
		}

		// Incomplete zlib frames produce no Op.
		if op == nil {
			continue
		}

		if !sendOp(ctx, opCh, *op) {
			return
		}
	}
}

func readMessage(conn *websocket.Conn, fr *frameReader) (*Op, error) {
	t, r, err := conn.NextReader()
	if err != nil {
		return nil, err
	}

	switch t {
	case websocket.BinaryMessage:
		return fr.binary(r)
	case websocket.TextMessage:
		return fr.text(r)
	default:
		return nil, nil
	}
}

func sendOp(ctx context.Context, ch chan<- Op, op Op) bool {
	select {
	case ch <- op:
		return true
	case <-ctx.Done():
		return false
	}
}

func closeEvOp(ev *CloseEvent) Op {
	return Op{
		Code: ev.Op(),
		Type: ev.EventType(),
		Data: ev,
	}
}

// frameReader turns websocket messages into Ops. It owns the zlib-stream
// context of a single connection and is not thread-safe.
type frameReader struct {
	codec Codec
	zlib  *zlib.Inflator
}

// maxPendingFrame caps how many compressed bytes may be buffered while
// waiting for the sync-flush suffix.
const maxPendingFrame = 1 << 26 // 64MB

func newFrameReader(codec Codec) *frameReader {
	return &frameReader{
		codec: codec,
		zlib:  zlib.NewInflator(),
	}
}

// binary accumulates a compressed fragment. It returns a nil Op until the
// accumulated bytes end with the zlib suffix.
func (f *frameReader) binary(r io.Reader) (*Op, error) {
	if _, err := io.Copy(f.zlib, r); err != nil {
		return nil, errors.Wrap(err, "failed to read binary frame")
	}

	if !f.zlib.CanFlush() {
		if f.zlib.Buffered() > maxPendingFrame {
			return nil, errors.New("partial zlib frame exceeds size limit")
		}
		return nil, nil
	}

	b, err := f.zlib.Flush()
	if err != nil {
		// A corrupted stream cannot be recovered without a new connection.
		return nil, errors.Wrap(err, "failed to inflate")
	}

	op := f.codec.Decode(b)
	return &op, nil
}

func (f *frameReader) text(r io.Reader) (*Op, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read text frame")
	}

	op := f.codec.Decode(b)
	return &op, nil
}
