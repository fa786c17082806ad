package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/cordlink/cordlink/api"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/utils/httputil"
	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
	"github.com/cordlink/cordlink/utils/ws"
)

// fakeServer accepts one gateway connection, logs the client in and then
// closes the connection with an authentication failure.
func fakeServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error("failed to upgrade:", err)
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"op":10,"d":{"heartbeat_interval":41250}}`))

		// Wait for the identify, skipping heartbeats.
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				t.Error("client went away:", err)
				return
			}
			if strings.HasPrefix(string(b), `{"op":2`) {
				break
			}
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"op":0,"s":1,"t":"READY","d":{`+
			`"v":9,"session_id":"session","user":{"id":"42","username":"bot"},`+
			`"guilds":[],"private_channels":[]}}`))

		time.Sleep(50 * time.Millisecond)

		msg := websocket.FormatCloseMessage(4004, "bye")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	}))

	t.Cleanup(srv.Close)
	return srv
}

func newTestSession(t *testing.T, gatewayURL string) *Session {
	mock := httpdriver.NewMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		return httpdriver.NewMockResponse(200, nil, api.BotData{URL: gatewayURL}), nil
	})

	httpClient := httputil.NewClient()
	httpClient.Client = mock

	opts := gateway.DefaultOptions
	opts.Logger = zaptest.NewLogger(t)
	opts.MinReconnectDelay = 10 * time.Millisecond
	opts.MaxReconnectDelay = 100 * time.Millisecond

	s, err := NewWithClient(api.NewCustomClient("Bot token", httpClient), &opts)
	if err != nil {
		t.Fatal("failed to create session:", err)
	}

	s.Gateway.Websocket().SetDialLimiter(nil)
	s.Gateway.Identifier().IdentifyShortLimit = nil

	return s
}

func TestSessionLifecycle(t *testing.T) {
	srv := fakeServer(t)
	s := newTestSession(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	ready := make(chan *gateway.ReadyEvent, 1)
	closed := make(chan *Closed, 1)
	statuses := make(chan gateway.Status, 32)

	s.Synchronous = true
	s.AddHandler(func(ev *gateway.ReadyEvent) { ready <- ev })
	s.AddHandler(func(ev *Closed) { closed <- ev })
	s.AddHandler(func(ev *StatusChangeEvent) { statuses <- ev.New })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Open(ctx); err != nil {
		t.Fatal("failed to open:", err)
	}

	if err := s.Open(ctx); err != ErrAlreadyOpen {
		t.Fatal("second Open did not fail:", err)
	}

	select {
	case ev := <-ready:
		if ev.User.Username != "bot" {
			t.Fatal("unexpected user:", ev.User.Username)
		}
	case <-ctx.Done():
		t.Fatal("ready not received")
	}

	select {
	case ev := <-closed:
		if gateway.CloseCodeOf(ev.Error) != gateway.CloseAuthenticationFailed {
			t.Fatal("unexpected close error:", ev.Error)
		}
	case <-ctx.Done():
		t.Fatal("session was not closed")
	}

	<-s.Done()

	var sawLoading bool
drain:
	for {
		select {
		case status := <-statuses:
			if status == gateway.LoadingSubsystems {
				sawLoading = true
			}
		default:
			break drain
		}
	}

	if !sawLoading {
		t.Fatal("status never reached LoadingSubsystems")
	}
	if status := s.Gateway.Status(); status != gateway.Shutdown {
		t.Fatal("unexpected final status:", status)
	}

	if err := s.Close(); err != nil {
		t.Fatal("Close failed:", err)
	}
}

func TestSetOpHandler(t *testing.T) {
	s := newTestSession(t, "ws://127.0.0.1:0")

	var got []ws.EventType
	s.SetOpHandler(func(op ws.Op) { got = append(got, op.Type) })

	s.HandleOp(ws.Op{Code: gateway.DispatchOP, Type: "TYPING_START", Data: &gateway.TypingStartEvent{}})

	if len(got) != 1 || got[0] != "TYPING_START" {
		t.Fatal("op not routed to the op handler:", got)
	}

	called := make(chan struct{}, 1)
	s.Synchronous = true
	s.AddHandler(func(*gateway.TypingStartEvent) { called <- struct{}{} })

	s.SetOpHandler(nil)
	s.HandleOp(ws.Op{Code: gateway.DispatchOP, Type: "TYPING_START", Data: &gateway.TypingStartEvent{}})

	select {
	case <-called:
	default:
		t.Fatal("default op handling did not call the handler")
	}
}
