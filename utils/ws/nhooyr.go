package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
)

// resumableCloseCode is sent when closing without ending the session. Any
// code other than 1000 and 1001 keeps the session resumable.
const resumableCloseCode = websocket.StatusCode(4000)

// NhooyrConn is a Connection built on nhooyr.io/websocket. It behaves like
// Conn and is interchangeable with it.
type NhooyrConn struct {
	codec Codec
	opts  websocket.DialOptions

	mut    sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

var _ Connection = (*NhooyrConn)(nil)

// NewNhooyrConn creates a new nhooyr.io/websocket connection.
func NewNhooyrConn(codec Codec) *NhooyrConn {
	return &NhooyrConn{
		codec: codec,
		opts: websocket.DialOptions{
			HTTPHeader:      codec.Headers,
			CompressionMode: websocket.CompressionDisabled,
		},
	}
}

// Dial implements Connection.
func (c *NhooyrConn) Dial(ctx context.Context, addr string) (<-chan Op, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.conn != nil {
		c.closeLocked(false)
	}

	conn, _, err := websocket.Dial(ctx, addr, &c.opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial WS")
	}

	// Gateway payloads such as GUILD_CREATE easily exceed the default 32KB.
	conn.SetReadLimit(maxPendingFrame)

	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan Op, 1)
	go nhooyrReadLoop(ctx, conn, newFrameReader(c.codec), events)

	c.conn = conn
	c.cancel = cancel

	return events, nil
}

// Send implements Connection.
func (c *NhooyrConn) Send(ctx context.Context, b []byte) error {
	c.mut.Lock()
	conn := c.conn
	c.mut.Unlock()

	if conn == nil {
		return ErrWebsocketClosed
	}

	return conn.Write(ctx, websocket.MessageText, b)
}

// Close implements Connection.
func (c *NhooyrConn) Close(gracefully bool) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	return c.closeLocked(gracefully)
}

func (c *NhooyrConn) closeLocked(gracefully bool) error {
	if c.conn == nil {
		return ErrWebsocketClosed
	}

	code := resumableCloseCode
	if gracefully {
		code = websocket.StatusNormalClosure
	}

	err := c.conn.Close(code, "")

	c.cancel()
	c.conn = nil
	c.cancel = nil

	WSDebug("NhooyrConn: Websocket closed; error:", err)
	return err
}

func nhooyrReadLoop(ctx context.Context, conn *websocket.Conn, fr *frameReader, opCh chan<- Op) {
	defer close(opCh)

	for {
		op, err := nhooyrReadMessage(ctx, conn, fr)
		if err != nil {
			closeEv := &CloseEvent{
				Err:  err,
				Code: -1,
			}

			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) {
				closeEv.Code = int(closeErr.Code)
				closeEv.Err = fmt.Errorf("%d %s", closeErr.Code, closeErr.Reason)
			}

			sendOp(ctx, opCh, closeEvOp(closeEv))
			return
		}

		if op == nil {
			continue
		}

		if !sendOp(ctx, opCh, *op) {
			return
		}
	}
}

func nhooyrReadMessage(ctx context.Context, conn *websocket.Conn, fr *frameReader) (*Op, error) {
	t, r, err := conn.Reader(ctx)
	if err != nil {
		return nil, err
	}

	if t == websocket.MessageBinary {
		return fr.binary(r)
	}
	return fr.text(r)
}
