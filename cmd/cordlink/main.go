// Command cordlink connects an account to the gateway, keeps its cache and
// logs what happens to it. Deleted messages are printed from the cache.
//
// To run, put the token in $DISCORD_TOKEN (a .env file works) and do
// `go run ./cmd/cordlink -c cordlink.yaml`.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cordlink/cordlink/api"
	"github.com/cordlink/cordlink/gateway"
	"github.com/cordlink/cordlink/gateway/mongostore"
	"github.com/cordlink/cordlink/handler"
	"github.com/cordlink/cordlink/session"
	"github.com/cordlink/cordlink/state"
	"github.com/cordlink/cordlink/state/store/defaultstore"
	"github.com/cordlink/cordlink/utils/httputil"
	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
	"github.com/cordlink/cordlink/utils/metrics"
	"github.com/cordlink/cordlink/utils/ws"
)

var configFile = flag.String("c", "cordlink.yaml", "path to the config file")

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		color.Red("cordlink: %v", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		color.Red("cordlink: %v", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("cordlink stopped", zap.Error(err))
	}
}

func newLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log_level")
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = level

	return zcfg.Build()
}

func run(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	var m *metrics.Metrics

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg, "cordlink")

		stop := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stop()
	}

	opts := gateway.DefaultOptions
	opts.Logger = logger
	opts.Metrics = m

	if cfg.Transport == "nhooyr" {
		opts.Transport = func(codec ws.Codec) ws.Connection {
			return ws.NewNhooyrConn(codec)
		}
	}

	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return errors.Wrap(err, "failed to connect to mongo")
		}
		defer client.Disconnect(context.Background())

		coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		opts.ResumeStore = mongostore.New(coll, sessionKey(cfg.Token))
	}

	httpClient := httputil.NewClient()
	httpClient.Logger = logger.Named("http")
	httpClient.Metrics = m

	if cfg.HTTPDriver == "fasthttp" {
		httpClient.Client = httpdriver.NewFastClient()
	}

	ses, err := session.NewWithClient(api.NewCustomClient(cfg.Token, httpClient), &opts)
	if err != nil {
		return err
	}
	ses.Logger = logger

	cabinet := defaultstore.New()
	cabinet.MessageStore = defaultstore.NewMessage(cfg.MaxMessages)

	s := state.NewFromSession(ses, cabinet)
	s.LoadTimeout = cfg.LoadTimeout
	s.Metrics = m
	// Handlers read the cache, so they must run before the next event
	// changes it.
	s.Synchronous = true

	addHandlers(s, cfg, logger)

	// Subscribe before opening, the load may finish before Open returns.
	ready, cancelReady := handler.ChanFor[*state.ReadyEvent](s.Handler, nil)
	defer cancelReady()

	if err := s.Open(ctx); err != nil {
		return errors.Wrap(err, "failed to connect")
	}

	select {
	case ev := <-ready:
		logger.Info("ready",
			zap.String("user", ev.User.Tag()),
			zap.Int("guilds", len(ev.Guilds)),
			zap.Int("unavailable", len(ev.Unavailable)))
		cancelReady()
	case <-ctx.Done():
		logger.Info("shutting down before ready")
		return s.Close()
	case <-s.Done():
		return s.Gateway.LastError()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return s.Close()
	case <-s.Done():
		return s.Gateway.LastError()
	}
}

func addHandlers(s *state.State, cfg *Config, logger *zap.Logger) {
	deleted := color.New(color.FgRed, color.Bold)
	joined := color.New(color.FgGreen)

	s.AddHandler(func(ev *session.StatusChangeEvent) {
		logger.Info("gateway status changed",
			zap.Stringer("old", ev.Old),
			zap.Stringer("new", ev.New))
	})

	s.AddHandler(func(ev *state.ResumedEvent) {
		logger.Info("session resumed")
	})

	s.AddHandler(func(ev *state.ShutdownEvent) {
		logger.Warn("session shut down",
			zap.Int("code", int(ev.Code)),
			zap.Int("discarded", ev.Discarded))
	})

	s.AddHandler(func(ev *state.GuildReadyEvent) {
		logger.Debug("guild ready", zap.String("guild", ev.Name))
	})

	s.AddHandler(func(ev *state.GuildJoinEvent) {
		joined.Printf("joined %s (%d members)\n", ev.Name, len(ev.Members))
	})

	s.AddHandler(func(ev *state.GuildLeaveEvent) {
		logger.Info("left guild", zap.String("guild", ev.Guild.Name))
	})

	s.AddHandler(func(ev *state.GuildUnavailableEvent) {
		logger.Warn("guild unavailable", zap.Stringer("guild", ev.ID))
	})

	s.AddHandler(func(ev *state.MemberJoinEvent) {
		joined.Printf("%s joined %s\n", ev.Member.User.Tag(), ev.GuildID)
	})

	s.AddHandler(func(ev *state.MessageDeleteEvent) {
		if ev.Message == nil {
			logger.Debug("uncached message deleted", zap.Stringer("id", ev.ID))
			return
		}

		deleted.Printf("%s deleted: %s\n", ev.Message.Author.Tag(), ev.Message.Content)
	})

	if cfg.Dump {
		s.AddHandler(func(ev interface{}) {
			pp.Println(ev)
		})
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// sessionKey is the resume store key of a token. The token itself is never
// stored.
func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
