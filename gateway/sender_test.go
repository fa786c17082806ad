package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	gorate "github.com/beefsack/go-rate"
	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/ws"
	"go.uber.org/zap"
)

func newTestSender(limit int) *sender {
	s := newSender(nil, ws.NewCodec(OpUnmarshalers), newVoiceQueue(2*time.Second), zap.NewNop())
	s.window = gorate.New(limit, time.Hour)
	return s
}

func TestSenderHoldsCommandsUntilAuthenticated(t *testing.T) {
	s := newTestSender(10)
	now := time.Now()

	s.send(&UpdatePresenceCommand{Status: IdleStatus})

	if _, _, ok := s.next(now); ok {
		t.Fatal("command sent before authentication")
	}

	hb := HeartbeatCommand(1)
	s.sendPriority(&hb, nil)

	f, _, ok := s.next(now)
	if !ok || f.lane != priorityLane {
		t.Fatalf("expected the heartbeat, got %#v", f)
	}

	s.setAuthenticated(true)

	f, _, ok = s.next(now)
	if !ok || f.lane != commandLane {
		t.Fatalf("expected the presence update, got %#v", f)
	}
}

func TestSenderCommandWindow(t *testing.T) {
	s := newTestSender(2)
	s.setAuthenticated(true)
	now := time.Now()

	for i := 0; i < 3; i++ {
		s.send(&UpdatePresenceCommand{Status: OnlineStatus})
	}

	for i := 0; i < 2; i++ {
		if _, _, ok := s.next(now); !ok {
			t.Fatalf("command %d held back", i)
		}
	}

	_, wait, ok := s.next(now)
	if ok {
		t.Fatal("third command passed a window of two")
	}
	if wait <= 0 || wait > time.Hour {
		t.Fatal("unexpected wait:", wait)
	}

	// Priority frames bypass the exhausted window.
	hb := HeartbeatCommand(5)
	s.sendPriority(&hb, nil)

	if f, _, ok := s.next(now); !ok || f.lane != priorityLane {
		t.Fatal("heartbeat held back by the command window")
	}

	if s.pending() != 1 {
		t.Fatal("expected one pending command, got", s.pending())
	}
}

func TestSenderDisconnected(t *testing.T) {
	s := newTestSender(10)
	s.setAuthenticated(true)

	cmd := IdentifyCommand{Token: "token"}
	s.sendPriority(&cmd, nil)
	s.send(&UpdatePresenceCommand{})

	s.disconnected()

	if _, _, ok := s.next(time.Now()); ok {
		t.Fatal("frame sent while disconnected")
	}

	if s.pending() != 1 {
		t.Fatal("command dropped on disconnect")
	}
}

func TestSenderPrepareError(t *testing.T) {
	s := newTestSender(10)

	var sent []ws.Event
	s.onSent = func(ev ws.Event) { sent = append(sent, ev) }

	cmd := IdentifyCommand{Token: "token"}
	f := frame{
		ev:   &cmd,
		lane: priorityLane,
		prepare: func(context.Context) error {
			return errors.New("limiter closed")
		},
	}

	// The frame is dropped before reaching the nil websocket.
	s.write(context.Background(), f)

	if len(sent) != 0 {
		t.Fatal("frame reported as sent")
	}
}

func TestSenderVoiceThrottle(t *testing.T) {
	s := newTestSender(10)
	s.setAuthenticated(true)
	now := time.Now()

	s.voice.put(ConnectionRequest{
		GuildID:   1,
		ChannelID: 2,
		Stage:     StageConnect,
	})

	f, _, ok := s.next(now)
	if !ok {
		t.Fatal("voice request not sent")
	}

	cmd, isVoice := f.ev.(*UpdateVoiceStateCommand)
	if !isVoice || cmd.GuildID != 1 || cmd.ChannelID != 2 {
		t.Fatalf("unexpected voice frame: %#v", f.ev)
	}

	_, wait, ok := s.next(now.Add(time.Second))
	if ok {
		t.Fatal("voice request resent within the retry interval")
	}
	if wait != time.Second {
		t.Fatal("unexpected wait:", wait)
	}

	if _, _, ok := s.next(now.Add(2 * time.Second)); !ok {
		t.Fatal("voice request not retried after the interval")
	}

	// A replacement keeps the guild's schedule.
	s.voice.put(ConnectionRequest{GuildID: 1, ChannelID: 3, Stage: StageConnect})

	if _, _, ok := s.next(now.Add(3 * time.Second)); ok {
		t.Fatal("replacement request skipped the retry interval")
	}

	s.voice.observe(discord.VoiceState{GuildID: 1, ChannelID: 3, UserID: 9})

	if s.voice.len() != 0 {
		t.Fatal("fulfilled request still queued")
	}
}
