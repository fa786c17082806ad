package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// clientOp is a payload sent by the client under test.
type clientOp struct {
	Code int             `json:"op"`
	Data json.RawMessage `json:"d"`
}

// fakeConn is the server side of one gateway connection.
type fakeConn struct {
	t    *testing.T
	conn *websocket.Conn
	ops  chan clientOp
}

func (c *fakeConn) send(payload string) {
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		c.t.Error("failed to write:", err)
	}
}

func (c *fakeConn) close(code int) {
	msg := websocket.FormatCloseMessage(code, "bye")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// expect waits for the next client op that is not a heartbeat, unless code
// is a heartbeat itself. It runs on the server goroutine, so failures are
// reported with Errorf and a false return.
func (c *fakeConn) expect(code int) (clientOp, bool) {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case op, ok := <-c.ops:
			if !ok {
				c.t.Errorf("connection closed while waiting for op %d", code)
				return clientOp{}, false
			}
			if op.Code == int(HeartbeatOP) && code != int(HeartbeatOP) {
				continue
			}
			if op.Code != code {
				c.t.Errorf("expected op %d, got op %d: %s", code, op.Code, op.Data)
				return op, false
			}
			return op, true
		case <-timeout:
			c.t.Errorf("timed out waiting for op %d", code)
			return clientOp{}, false
		}
	}
}

// wait blocks until the client goes away.
func (c *fakeConn) wait() {
	for range c.ops {
	}
}

// fakeGateway runs script once per incoming connection. n counts from 0.
func fakeGateway(t *testing.T, script func(c *fakeConn, n int)) *httptest.Server {
	t.Helper()

	var (
		mu    sync.Mutex
		count int
	)

	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("compress") != "zlib-stream" || r.URL.Query().Get("encoding") != "json" {
			t.Errorf("unexpected gateway query %q", r.URL.RawQuery)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error("failed to upgrade:", err)
			return
		}
		defer conn.Close()

		mu.Lock()
		n := count
		count++
		mu.Unlock()

		c := &fakeConn{t: t, conn: conn, ops: make(chan clientOp, 64)}

		go func() {
			defer close(c.ops)
			for {
				_, b, err := conn.ReadMessage()
				if err != nil {
					return
				}

				var op clientOp
				if err := json.Unmarshal(b, &op); err != nil {
					t.Error("client sent invalid JSON:", err)
					return
				}
				c.ops <- op
			}
		}()

		script(c, n)
	}))

	t.Cleanup(srv.Close)
	return srv
}

func fakeURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// newTestGateway creates a Gateway with fast reconnects and no dial
// throttling.
func newTestGateway(t *testing.T, srv *httptest.Server, token string, store ResumeStore) *Gateway {
	return newTestGatewayWithLogger(t, srv, token, store, nil)
}

func newTestGatewayWithLogger(t *testing.T, srv *httptest.Server, token string, store ResumeStore, logger *zap.Logger) *Gateway {
	opts := DefaultOptions
	opts.Logger = logger
	opts.MinReconnectDelay = 10 * time.Millisecond
	opts.MaxReconnectDelay = 100 * time.Millisecond
	opts.ResumeStore = store

	g := NewCustom(fakeURL(srv), token, &opts)
	g.Websocket().SetDialLimiter(nil)
	g.Identifier().IdentifyShortLimit = nil

	return g
}

const readyPayload = `{"op":0,"s":1,"t":"READY","d":{` +
	`"v":9,"session_id":"session","user":{"id":"42","username":"bot"},` +
	`"guilds":[],"private_channels":[]}}`
