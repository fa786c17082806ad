package gateway

import (
	"context"
	"sync"
	"time"

	gorate "github.com/beefsack/go-rate"
	"github.com/cordlink/cordlink/internal/lazytime"
	"github.com/cordlink/cordlink/utils/ws"
	"go.uber.org/zap"
)

type lane uint8

const (
	priorityLane lane = iota
	commandLane
)

type frame struct {
	ev   ws.Event
	lane lane
	// fromQueue is true for frames generated by the voice queue, which
	// regenerates them on its own.
	fromQueue bool
	// prepare is called right before the frame is written. An error drops
	// the frame.
	prepare func(context.Context) error
}

// sender is the single writer of a Gateway. Priority frames (handshakes and
// heartbeats) are written as soon as possible. Command frames are held until
// the session is authenticated and pass through the rolling command window.
type sender struct {
	ws     *ws.Websocket
	codec  ws.Codec
	window *gorate.RateLimiter
	voice  *voiceQueue
	logger *zap.Logger

	// onSent is called after every successful write.
	onSent func(ws.Event)

	sendTimeout time.Duration

	mu       sync.Mutex
	priority []frame
	commands []frame
	authed   bool

	wake chan struct{}
}

func newSender(sock *ws.Websocket, codec ws.Codec, voice *voiceQueue, logger *zap.Logger) *sender {
	return &sender{
		ws:          sock,
		codec:       codec,
		window:      ws.NewCommandWindow(),
		voice:       voice,
		logger:      logger,
		onSent:      func(ws.Event) {},
		sendTimeout: 10 * time.Second,
		wake:        make(chan struct{}, 1),
	}
}

func (s *sender) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// sendPriority queues a frame on the priority lane.
func (s *sender) sendPriority(ev ws.Event, prepare func(context.Context) error) {
	s.mu.Lock()
	s.priority = append(s.priority, frame{ev: ev, lane: priorityLane, prepare: prepare})
	s.mu.Unlock()

	s.notify()
}

// send queues a frame on the command lane. It never blocks.
func (s *sender) send(ev ws.Event) {
	s.mu.Lock()
	s.commands = append(s.commands, frame{ev: ev, lane: commandLane})
	s.mu.Unlock()

	s.notify()
}

// wakeup makes the loop look at the voice queue again.
func (s *sender) wakeup() { s.notify() }

// setAuthenticated opens or holds the command lane.
func (s *sender) setAuthenticated(authed bool) {
	s.mu.Lock()
	s.authed = authed
	s.mu.Unlock()

	s.notify()
}

// disconnected holds the command lane and drops pending priority frames. The
// next handshake regenerates them.
func (s *sender) disconnected() {
	s.mu.Lock()
	s.authed = false
	s.priority = nil
	s.mu.Unlock()
}

// pending returns the number of queued command frames.
func (s *sender) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.commands)
}

// next pops the next frame to write. If there is none, it returns how long
// the loop may sleep, where 0 means until woken up.
func (s *sender) next(now time.Time) (f frame, wait time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.priority) > 0 {
		f = s.priority[0]
		s.priority[0] = frame{}
		s.priority = s.priority[1:]
		return f, 0, true
	}

	if !s.authed {
		return frame{}, 0, false
	}

	req, voiceWait, voiceDue := s.voice.due(now)
	if !voiceDue && len(s.commands) == 0 {
		return frame{}, voiceWait, false
	}

	allowed, remaining := s.window.Try()
	if !allowed {
		if voiceWait > 0 && voiceWait < remaining {
			remaining = voiceWait
		}
		return frame{}, remaining, false
	}

	if voiceDue {
		s.voice.attempted(req.GuildID, now)
		cmd := req.command()
		return frame{ev: &cmd, lane: commandLane, fromQueue: true}, 0, true
	}

	f = s.commands[0]
	s.commands[0] = frame{}
	s.commands = s.commands[1:]
	return f, 0, true
}

// requeue puts a command frame that failed to write back to the front.
func (s *sender) requeue(f frame) {
	s.mu.Lock()
	s.commands = append([]frame{f}, s.commands...)
	s.authed = false
	s.mu.Unlock()
}

func (s *sender) run(ctx context.Context) {
	var timer lazytime.Timer
	defer timer.Stop()

	for {
		f, wait, ok := s.next(time.Now())
		if ok {
			s.write(ctx, f)
			continue
		}

		if wait > 0 {
			timer.Reset(wait)
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

func (s *sender) write(ctx context.Context, f frame) {
	if f.prepare != nil {
		if err := f.prepare(ctx); err != nil {
			s.logger.Warn("dropping frame", zap.Int("op", int(f.ev.Op())), zap.Error(err))
			return
		}
	}

	b, err := s.codec.Encode(f.ev)
	if err != nil {
		s.logger.Error("cannot encode frame", zap.Int("op", int(f.ev.Op())), zap.Error(err))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.ws.Send(sendCtx, b); err != nil {
		s.logger.Debug("cannot write frame", zap.Int("op", int(f.ev.Op())), zap.Error(err))

		if f.lane == commandLane && !f.fromQueue {
			s.requeue(f)
		}
		return
	}

	s.onSent(f.ev)
}
