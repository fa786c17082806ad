package api

import (
	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/httputil"
)

// BotData contains the GatewayURL as well as extra metadata on how to
// shard bots.
type BotData struct {
	URL        string             `json:"url"`
	Shards     int                `json:"shards,omitempty"`
	StartLimit *SessionStartLimit `json:"session_start_limit"`
}

// SessionStartLimit is the information on the current session start limit. It's
// used in BotData.
type SessionStartLimit struct {
	Total          int                  `json:"total"`
	Remaining      int                  `json:"remaining"`
	ResetAfter     discord.Milliseconds `json:"reset_after"`
	MaxConcurrency int                  `json:"max_concurrency"`
}

// BotURL fetches the Gateway URL along with extra metadata. The token
// passed in will NOT be prefixed with Bot.
func (c *Client) BotURL() (*BotData, error) {
	var g *BotData
	return g, c.RequestJSON(&g, "GET", EndpointGatewayBot)
}

// Gateway asks Discord for a Websocket URL to the Gateway. It needs no
// authorization.
func (c *Client) Gateway() (string, error) {
	var g BotData
	return g.URL, c.RequestJSON(&g, "GET", EndpointGateway)
}

// GatewayURL returns the cached Gateway URL, fetching it the first time.
// Bots use the bot endpoint.
func (c *Client) GatewayURL() (string, error) {
	c.gatewayMu.Lock()
	defer c.gatewayMu.Unlock()

	if *c.gatewayURL != "" {
		return *c.gatewayURL, nil
	}

	var url string

	if c.IsBot() {
		data, err := c.BotURL()
		if err != nil {
			return "", errors.Wrap(err, "failed to get bot gateway")
		}
		url = data.URL
	} else {
		u, err := c.Gateway()
		if err != nil {
			return "", errors.Wrap(err, "failed to get gateway")
		}
		url = u
	}

	if url == "" {
		return "", errors.New("gateway URL is empty")
	}

	*c.gatewayURL = url
	return url, nil
}

// ResetGatewayURL forgets the cached Gateway URL so the next GatewayURL call
// fetches it again.
func (c *Client) ResetGatewayURL() {
	c.gatewayMu.Lock()
	*c.gatewayURL = ""
	c.gatewayMu.Unlock()
}

// GatewayURL asks Discord for a Websocket URL to the Gateway using a fresh
// unauthorized client.
func GatewayURL() (string, error) {
	var g BotData
	return g.URL, httputil.NewClient().RequestJSON(&g, "GET", EndpointGateway)
}
