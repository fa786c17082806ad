// Package api provides an interface to interact with the Discord REST API. It
// handles rate limiting, as well as authorizing and more.
package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cordlink/cordlink/api/rate"
	"github.com/cordlink/cordlink/utils/httputil"
	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
)

var (
	BaseEndpoint = "https://discord.com"
	APIVersion   = "9"
	APIPath      = "/api/v" + APIVersion

	Endpoint           = BaseEndpoint + APIPath + "/"
	EndpointGateway    = Endpoint + "gateway"
	EndpointGatewayBot = EndpointGateway + "/bot"
)

var UserAgent = "DiscordBot (https://github.com/cordlink/cordlink, v0.1.0)"

// DefaultConcurrency bounds the number of queued requests executed at once.
const DefaultConcurrency = 8

type Client struct {
	*httputil.Client
	Limiter *rate.Limiter
	Token   string

	pool *semaphore.Weighted

	gatewayMu  *sync.Mutex
	gatewayURL *string
}

// NewClient creates a client for the given token. Bot tokens must be
// prefixed with "Bot "; any other token uses the client rate limit strategy.
func NewClient(token string) *Client {
	return NewCustomClient(token, httputil.NewClient())
}

// NewCustomClient creates a client around an existing HTTP client. The HTTP
// client's Limiter and request hooks are replaced.
func NewCustomClient(token string, httpClient *httputil.Client) *Client {
	var strategy rate.Strategy = rate.ClientStrategy{}
	if IsBotToken(token) {
		strategy = rate.BotStrategy{}
	}

	limiter := rate.NewLimiter(BaseEndpoint+APIPath, strategy)
	limiter.Logger = httpClient.Logger
	limiter.Metrics = httpClient.Metrics

	c := &Client{
		Client:     httpClient,
		Limiter:    limiter,
		Token:      token,
		pool:       semaphore.NewWeighted(DefaultConcurrency),
		gatewayMu:  new(sync.Mutex),
		gatewayURL: new(string),
	}

	c.Client.Limiter = limiter
	c.Client.OnRequest = append(c.Client.OnRequest, c.InjectRequest)

	return c
}

// IsBotToken returns true if the token is a bot token.
func IsBotToken(token string) bool {
	return strings.HasPrefix(token, "Bot ")
}

// IsBot returns true if the client authenticates as a bot.
func (c *Client) IsBot() bool {
	return IsBotToken(c.Token)
}

// InjectRequest is a middleware that adds the authorization and user agent
// headers.
func (c *Client) InjectRequest(r httpdriver.Request) error {
	header := http.Header{
		"User-Agent": {UserAgent},
	}
	if c.Token != "" {
		header.Set("Authorization", c.Token)
	}

	r.AddHeader(header)
	return nil
}

// WithContext returns a shallow copy of Client with the given context. It's
// used for method timeouts and such. This method is thread-safe.
func (c *Client) WithContext(ctx context.Context) *Client {
	cpy := *c
	cpy.Client = c.Client.WithContext(ctx)
	return &cpy
}
