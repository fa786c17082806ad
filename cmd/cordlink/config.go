package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/cordlink/cordlink/state"
	"github.com/cordlink/cordlink/state/store/defaultstore"
)

// Config is the file format of cordlink.yaml.
type Config struct {
	// Token is the account token. Bot tokens need the "Bot " prefix. It is
	// overridden by $DISCORD_TOKEN.
	Token string `yaml:"token"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console or json

	MaxMessages int           `yaml:"max_messages"`
	LoadTimeout time.Duration `yaml:"load_timeout"`

	Transport  string `yaml:"transport"`   // gorilla or nhooyr
	HTTPDriver string `yaml:"http_driver"` // default or fasthttp

	// MetricsAddr, if not empty, serves Prometheus metrics on /metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	Mongo MongoConfig `yaml:"mongo"`

	// Dump pretty-prints every dispatch to stdout.
	Dump bool `yaml:"dump"`
}

// MongoConfig configures the resume store. Resuming across restarts is
// disabled if URI is empty.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "console",
		MaxMessages: defaultstore.DefaultMaxMessages,
		LoadTimeout: state.DefaultLoadTimeout,
		Transport:   "gorilla",
		HTTPDriver:  "default",
		Mongo: MongoConfig{
			Database:   "cordlink",
			Collection: "sessions",
		},
	}
}

// loadConfig reads the config file and the .env file. A missing config file
// is not an error, since the token may come from the environment.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Token = token
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("no token given, set $DISCORD_TOKEN or token")
	}

	switch c.Transport {
	case "gorilla", "nhooyr":
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}

	switch c.HTTPDriver {
	case "default", "fasthttp":
	default:
		return errors.Errorf("unknown http_driver %q", c.HTTPDriver)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return errors.Errorf("unknown log_format %q", c.LogFormat)
	}

	if c.MaxMessages < 0 {
		return errors.New("max_messages must not be negative")
	}

	return nil
}
