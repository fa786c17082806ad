// Package gateway handles the Discord gateway session: the identify and
// resume handshakes, heartbeats, reconnects and outbound command throttling.
//
// A Gateway is a ws.Handler driven by the ws.Gateway event loop. Every Op it
// receives, including a few internal ones such as SessionInvalidatedEvent, is
// forwarded in order through the channel returned by Connect.
package gateway

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/internal/backoff"
	"github.com/cordlink/cordlink/internal/heart"
	"github.com/cordlink/cordlink/utils/metrics"
	"github.com/cordlink/cordlink/utils/ws"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultVersion is the gateway API version.
const DefaultVersion = 9

var (
	// ErrShutdown is returned when sending through a Gateway that is shut
	// down.
	ErrShutdown = errors.New("gateway is shut down")
	// ErrUserOnly is returned for commands that bot accounts cannot send.
	ErrUserOnly = errors.New("command is only available to user accounts")
)

// Options configures a Gateway.
type Options struct {
	ws.GatewayOpts

	// Version is the gateway API version. It defaults to DefaultVersion.
	Version int

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// ResumeStore, if not nil, keeps the session id and sequence so that a
	// restarted process can resume.
	ResumeStore ResumeStore
	// ResumeCheckpoint is the number of dispatches between two saves of the
	// resume state.
	ResumeCheckpoint int

	// IdentifyRateLimitDelay is the extra delay before the next Identify
	// once the server rejected one for being sent too fast.
	IdentifyRateLimitDelay time.Duration
	// VoiceRetryInterval is the minimum delay between two voice state
	// updates in the same guild.
	VoiceRetryInterval time.Duration

	// Transport creates the websocket connection. It defaults to ws.NewConn.
	Transport func(ws.Codec) ws.Connection
}

// DefaultOptions is the default Gateway options.
var DefaultOptions = Options{
	GatewayOpts:            ws.DefaultGatewayOpts,
	Version:                DefaultVersion,
	ResumeCheckpoint:       100,
	IdentifyRateLimitDelay: 5 * time.Second,
	VoiceRetryInterval:     DefaultVoiceRetryInterval,
}

// AddGatewayParams appends the encoding, compression and version parameters
// to the gateway URL.
func AddGatewayParams(gatewayURL string, version int) string {
	if version == 0 {
		version = DefaultVersion
	}

	param := url.Values{
		"encoding": {"json"},
		"compress": {"zlib-stream"},
		"v":        {strconv.Itoa(version)},
	}

	if i := strings.IndexByte(gatewayURL, '?'); i > -1 {
		gatewayURL = gatewayURL[:i]
	}

	return strings.TrimSuffix(gatewayURL, "/") + "/?" + param.Encode()
}

// NewNonce returns a new nonce for member chunk requests.
func NewNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Gateway is a gateway session.
type Gateway struct {
	gateway    *ws.Gateway
	sender     *sender
	voice      *voiceQueue
	identifier *Identifier

	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics

	sessionID atomic.String
	sequence  *Sequence
	selfID    atomic.Int64
	interval  atomic.Duration
	heart     heart.Monitor

	statusMu  sync.Mutex
	status    atomic.Uint32
	observers []StatusObserver

	runMu      sync.Mutex
	stopSender context.CancelFunc

	// event loop only
	dispatched int
	identified bool
}

var _ ws.Handler = (*Gateway)(nil)

// NewCustom creates a new Gateway for the given URL and token. If opts is nil,
// DefaultOptions is used.
func NewCustom(gatewayURL, token string, opts *Options) *Gateway {
	return NewCustomWithIdentifier(gatewayURL, DefaultIdentifier(token), opts)
}

// NewCustomWithIdentifier creates a new Gateway with a custom gateway URL and a
// pre-existing Identifier.
func NewCustomWithIdentifier(gatewayURL string, id *Identifier, opts *Options) *Gateway {
	if opts == nil {
		opts = &DefaultOptions
	}

	o := *opts
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ResumeCheckpoint <= 0 {
		o.ResumeCheckpoint = DefaultOptions.ResumeCheckpoint
	}
	if o.Transport == nil {
		o.Transport = func(c ws.Codec) ws.Connection { return ws.NewConn(c) }
	}

	codec := ws.NewCodec(OpUnmarshalers)
	sock := ws.NewCustomWebsocket(o.Transport(codec), AddGatewayParams(gatewayURL, o.Version))

	wsopts := o.GatewayOpts
	wsopts.FatalCloseCodes = FatalCloseCodes()

	logger := o.Logger.Named("gateway")
	voice := newVoiceQueue(o.VoiceRetryInterval)

	g := &Gateway{
		gateway:    ws.NewGateway(sock, &wsopts),
		sender:     newSender(sock, codec, voice, logger),
		voice:      voice,
		identifier: id,
		opts:       o,
		logger:     logger,
		metrics:    o.Metrics,
		sequence:   NewSequence(),
	}

	g.sender.onSent = g.onSent
	return g
}

// Connect starts the event loop and returns the channel of every Op. The
// channel is closed once ctx expires or the server closes the session for
// good. Calling Connect on a running Gateway returns the same channel.
func (g *Gateway) Connect(ctx context.Context) <-chan ws.Op {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	if g.gateway.HasStarted() {
		return g.gateway.Connect(ctx, g)
	}

	g.loadResume(ctx)

	senderCtx, cancel := context.WithCancel(context.Background())
	g.stopSender = cancel
	go g.sender.run(senderCtx)

	return g.gateway.Connect(ctx, g)
}

// Close implements ws.Handler. It is called once the event loop exits.
func (g *Gateway) Close() error {
	g.runMu.Lock()
	if g.stopSender != nil {
		g.stopSender()
		g.stopSender = nil
	}
	g.runMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A graceful close ends the session on the server.
	if g.opts.AlwaysCloseGracefully {
		g.clearResume(ctx)
	} else {
		g.saveResume(ctx)
	}

	return nil
}

// OnStatus registers an observer for status transitions. Observers are
// called in order while the transition is being made, so they must not call
// back into anything that changes the status.
func (g *Gateway) OnStatus(fn StatusObserver) {
	g.statusMu.Lock()
	g.observers = append(g.observers, fn)
	g.statusMu.Unlock()
}

// Status returns the current session status.
func (g *Gateway) Status() Status {
	return Status(g.status.Load())
}

func (g *Gateway) setStatus(status Status) {
	g.statusMu.Lock()
	defer g.statusMu.Unlock()

	g.transitionLocked(status)
}

func (g *Gateway) transitionLocked(status Status) {
	old := Status(g.status.Load())
	if old == status {
		return
	}

	g.status.Store(uint32(status))
	g.metrics.SetStatus(int(status))
	g.logger.Debug("status changed", zap.Stringer("old", old), zap.Stringer("new", status))

	for _, fn := range g.observers {
		fn(old, status)
	}
}

// MarkConnected moves an authenticated session to Connected. It is called
// once the initial load is complete. It returns false if the session is not
// loading anymore.
func (g *Gateway) MarkConnected() bool {
	g.statusMu.Lock()
	defer g.statusMu.Unlock()

	if g.Status() != LoadingSubsystems {
		return false
	}

	g.transitionLocked(Connected)
	return true
}

// SessionID returns the session id. It is empty until READY.
func (g *Gateway) SessionID() string { return g.sessionID.Load() }

// Sequence returns the last dispatch sequence.
func (g *Gateway) Sequence() int64 { return g.sequence.Get() }

// SelfID returns the id of the current user. It is null until READY.
func (g *Gateway) SelfID() discord.UserID { return discord.UserID(g.selfID.Load()) }

// HeartbeatInterval returns the interval sent by the last HELLO.
func (g *Gateway) HeartbeatInterval() time.Duration { return g.interval.Load() }

// Latency returns the round trip of the last acknowledged heartbeat.
func (g *Gateway) Latency() time.Duration { return g.heart.Latency() }

// MissedHeartbeats returns the number of heartbeats not acknowledged yet.
func (g *Gateway) MissedHeartbeats() int { return g.heart.Missed() }

// Identifier returns the identifier used for new sessions.
func (g *Gateway) Identifier() *Identifier { return g.identifier }

// IsBot returns true if the session belongs to a bot account.
func (g *Gateway) IsBot() bool { return g.identifier.IsBot() }

// Websocket returns the underlying websocket.
func (g *Gateway) Websocket() *ws.Websocket { return g.gateway.Websocket() }

// Backoff returns the reconnect backoff.
func (g *Gateway) Backoff() *backoff.Backoff { return g.gateway.Backoff() }

// LastError returns the error that stopped the event loop. It must only be
// called after the channel returned by Connect is closed.
func (g *Gateway) LastError() error { return g.gateway.LastError() }

// Reconnect queues a reconnect. The session is resumed.
func (g *Gateway) Reconnect() { g.gateway.QueueReconnect() }

// PendingCommands returns the number of commands waiting to be sent.
func (g *Gateway) PendingCommands() int { return g.sender.pending() }

// Send queues a command. Commands are only written once the session is
// authenticated and are throttled to the gateway's command rate limit. Send
// never blocks.
func (g *Gateway) Send(cmd ws.Event) error {
	if g.Status() == Shutdown {
		return ErrShutdown
	}

	g.sender.send(cmd)
	return nil
}

// RequestGuildMembers requests member chunks. A nonce is generated if cmd has
// none, and it is returned.
func (g *Gateway) RequestGuildMembers(cmd RequestGuildMembersCommand) (string, error) {
	if cmd.Nonce == "" {
		cmd.Nonce = NewNonce()
	}
	return cmd.Nonce, g.Send(&cmd)
}

// GuildSync asks for the complete member list of the guilds. User accounts
// only.
func (g *Gateway) GuildSync(guildIDs ...discord.GuildID) error {
	if g.IsBot() {
		return ErrUserOnly
	}

	cmd := GuildSyncCommand(guildIDs)
	return g.Send(&cmd)
}

// UpdatePresence updates the current user's presence.
func (g *Gateway) UpdatePresence(cmd UpdatePresenceCommand) error {
	return g.Send(&cmd)
}

// RequestVoice queues a voice connection request, replacing any pending one
// for the same guild. The request is resent at most once per
// VoiceRetryInterval until the server confirms it.
func (g *Gateway) RequestVoice(req ConnectionRequest) error {
	if g.Status() == Shutdown {
		return ErrShutdown
	}

	if req.Stage == StageDisconnect {
		req.ChannelID = discord.NullChannelID
	}

	g.voice.put(req)
	g.sender.wakeup()
	return nil
}

// JoinVoice joins or moves to the voice channel.
func (g *Gateway) JoinVoice(guildID discord.GuildID, channelID discord.ChannelID, mute, deaf bool) error {
	return g.RequestVoice(ConnectionRequest{
		GuildID:   guildID,
		ChannelID: channelID,
		Stage:     StageConnect,
		SelfMute:  mute,
		SelfDeaf:  deaf,
	})
}

// LeaveVoice leaves voice in the guild.
func (g *Gateway) LeaveVoice(guildID discord.GuildID) error {
	return g.RequestVoice(ConnectionRequest{
		GuildID: guildID,
		Stage:   StageDisconnect,
	})
}

// VoiceRequest returns the pending voice request of the guild.
func (g *Gateway) VoiceRequest(guildID discord.GuildID) (ConnectionRequest, bool) {
	return g.voice.get(guildID)
}

// OnOp implements ws.Handler.
func (g *Gateway) OnOp(ctx context.Context, op ws.Op) bool {
	if op.Code == DispatchOP && op.Sequence > 0 {
		g.sequence.Set(op.Sequence)
		g.checkpoint(ctx)
	}

	switch data := op.Data.(type) {
	case *ws.CloseEvent:
		g.handleClose(ctx, data)

	case *ws.BackgroundErrorEvent:
		if data.Malformed {
			g.metrics.IncMalformed()
			g.logger.Warn("dropping malformed payload",
				zap.String("event", string(data.OriginalType)), zap.Error(data.Err))
		} else {
			g.logger.Debug("background error", zap.Error(data.Err))
		}

	case *HelloEvent:
		g.handleHello(data)

	case *HeartbeatCommand:
		// The server asks for a heartbeat right away.
		g.SendHeartbeat(ctx)

	case *HeartbeatAckEvent:
		g.heart.Echo(time.Now())
		g.metrics.SetLatency(g.heart.Latency())

	case *ReconnectEvent:
		g.logger.Info("server requested a reconnect")
		g.gateway.QueueReconnect()

	case *InvalidSessionEvent:
		if !*data {
			if g.identified && g.Status() == AwaitingLoginConfirmation {
				g.logger.Warn("identify was rate limited",
					zap.Duration("delay", g.opts.IdentifyRateLimitDelay))
				g.identifier.Penalize(g.opts.IdentifyRateLimitDelay)
			}
			g.invalidate(ctx)
		}
		g.gateway.QueueReconnect()

	case *ReadyEvent:
		g.sessionID.Store(data.SessionID)
		g.selfID.Store(int64(data.User.ID))
		g.authenticated(ctx)

	case *ResumedEvent:
		g.authenticated(ctx)

	case *VoiceStateUpdateEvent:
		if data.UserID == g.SelfID() {
			if g.voice.observe(data.VoiceState) {
				g.logger.Debug("voice request fulfilled", zap.Stringer("guild", data.GuildID))
			}
			g.sender.wakeup()
		}

	case *ChannelDeleteEvent:
		g.voice.removeChannel(data.ID)

	case *GuildDeleteEvent:
		if !data.Unavailable {
			g.voice.removeGuild(data.ID)
		}
	}

	return true
}

// SendHeartbeat implements ws.Handler.
func (g *Gateway) SendHeartbeat(ctx context.Context) {
	cmd := HeartbeatCommand(g.sequence.Get())
	g.sender.sendPriority(&cmd, nil)
	g.heart.Sent(time.Now())
}

// OnPhase implements ws.Handler.
func (g *Gateway) OnPhase(phase ws.Phase) {
	switch phase {
	case ws.PhaseConnecting:
		g.setStatus(Connecting)
	case ws.PhaseConnected:
		g.setStatus(Identifying)
	case ws.PhaseWaiting:
		g.sender.disconnected()
		g.metrics.IncReconnect()
		g.setStatus(WaitingToReconnect)
	case ws.PhaseAttempting:
		g.setStatus(AttemptingToReconnect)
	case ws.PhaseDisconnected:
		g.sender.disconnected()
		g.setStatus(Shutdown)
	}
}

func (g *Gateway) handleHello(hello *HelloEvent) {
	interval := hello.HeartbeatInterval.Duration()

	g.interval.Store(interval)
	g.heart.Reset()
	g.gateway.ResetHeartbeat(interval)
	g.setStatus(Identifying)

	if sessionID := g.sessionID.Load(); sessionID != "" {
		g.identified = false
		g.sender.sendPriority(&ResumeCommand{
			Token:     g.identifier.Token,
			SessionID: sessionID,
			Sequence:  g.sequence.Get(),
		}, nil)
	} else {
		g.identified = true
		cmd := g.identifier.IdentifyCommand
		g.sender.sendPriority(&cmd, g.identifier.Wait)
	}

	g.setStatus(AwaitingLoginConfirmation)
}

func (g *Gateway) handleClose(ctx context.Context, ev *ws.CloseEvent) {
	g.sender.disconnected()

	code := CloseCode(ev.Code)

	switch code.Action() {
	case Terminate:
		g.logger.Error("gateway closed for good", zap.Stringer("code", code))
		g.setStatus(Shutdown)
		g.clearResume(ctx)
		g.gateway.Emit(&ShutdownEvent{Code: code})
		return

	case Invalidate:
		g.logger.Warn("session lost", zap.Stringer("code", code))
		g.invalidate(ctx)

	default:
		g.logger.Info("gateway closed", zap.Stringer("code", code), zap.Error(ev.Err))
		g.saveResume(ctx)
	}

	g.gateway.QueueReconnect()
}

// invalidate forgets the session so that the next handshake is an Identify.
func (g *Gateway) invalidate(ctx context.Context) {
	g.sessionID.Store("")
	g.sequence.Reset()
	g.clearResume(ctx)
	g.gateway.Emit(&SessionInvalidatedEvent{})
}

func (g *Gateway) authenticated(ctx context.Context) {
	g.gateway.ResetBackoff()
	g.setStatus(LoadingSubsystems)
	g.sender.setAuthenticated(true)

	g.dispatched = 0
	g.saveResume(ctx)
}

func (g *Gateway) onSent(ev ws.Event) {
	switch ev.(type) {
	case *IdentifyCommand:
		g.logger.Debug("identify sent")
	case *ResumeCommand:
		g.logger.Debug("resume sent")
	}
}

func (g *Gateway) checkpoint(ctx context.Context) {
	if g.opts.ResumeStore == nil {
		return
	}

	g.dispatched++
	if g.dispatched >= g.opts.ResumeCheckpoint {
		g.dispatched = 0
		g.saveResume(ctx)
	}
}

func (g *Gateway) loadResume(ctx context.Context) {
	if g.opts.ResumeStore == nil || g.sessionID.Load() != "" {
		return
	}

	state, err := g.opts.ResumeStore.LoadResume(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoResumeState) {
			g.logger.Warn("cannot load resume state", zap.Error(err))
		}
		return
	}

	g.sessionID.Store(state.SessionID)
	g.sequence.Set(state.Sequence)
	g.logger.Info("loaded resume state", zap.String("session_id", state.SessionID))
}

func (g *Gateway) saveResume(ctx context.Context) {
	sessionID := g.sessionID.Load()
	if g.opts.ResumeStore == nil || sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := g.opts.ResumeStore.SaveResume(ctx, ResumeState{
		SessionID: sessionID,
		Sequence:  g.sequence.Get(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		g.logger.Warn("cannot save resume state", zap.Error(err))
	}
}

func (g *Gateway) clearResume(ctx context.Context) {
	if g.opts.ResumeStore == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := g.opts.ResumeStore.ClearResume(ctx); err != nil {
		g.logger.Warn("cannot clear resume state", zap.Error(err))
	}
}
