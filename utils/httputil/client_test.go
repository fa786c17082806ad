package httputil

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/api/rate"
	"github.com/cordlink/cordlink/discord"
	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
)

func newMockClient(h httpdriver.MockHandler) (*Client, *httpdriver.MockClient) {
	mock := httpdriver.NewMockClient(h)

	c := NewClient()
	c.Client = mock
	return c, mock
}

func TestServerErrorRetries(t *testing.T) {
	c, mock := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		return httpdriver.NewMockResponse(502, nil, nil), nil
	})

	start := time.Now()

	_, err := c.Request("GET", "https://discord.com/api/v9/users/@me")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 502 {
		t.Fatal("expected a 502 HTTPError, got", err)
	}

	if n := len(mock.Requests()); n != 4 {
		t.Fatalf("expected 1 attempt and 3 retries, got %d requests", n)
	}

	// 50ms + 100ms + 150ms
	if since := time.Since(start); since < 300*time.Millisecond {
		t.Fatal("retries did not back off linearly:", since)
	}
}

func TestServerErrorRecovers(t *testing.T) {
	var calls int

	c, _ := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		calls++
		if calls < 3 {
			return httpdriver.NewMockResponse(500, nil, nil), nil
		}
		return httpdriver.NewMockResponse(200, nil, map[string]string{"id": "1"}), nil
	})

	var v struct {
		ID discord.UserID `json:"id"`
	}

	if err := c.RequestJSON(&v, "GET", "https://discord.com/api/v9/users/1"); err != nil {
		t.Fatal("request failed:", err)
	}

	if v.ID != 1 {
		t.Fatal("unexpected decoded id:", v.ID)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	c, mock := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		return httpdriver.NewMockResponse(404, nil, map[string]interface{}{
			"code":    10004,
			"message": "Unknown Guild",
		}), nil
	})

	_, err := c.Request("GET", "https://discord.com/api/v9/guilds/1")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatal("expected an HTTPError, got", err)
	}

	if httpErr.Code != 10004 || httpErr.Message != "Unknown Guild" {
		t.Fatalf("unexpected decoded error: %#v", httpErr)
	}

	if n := len(mock.Requests()); n != 1 {
		t.Fatal("4xx was retried:", n)
	}
}

func TestRateLimitWithoutQueue(t *testing.T) {
	c, mock := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		h := http.Header{}
		h.Set("Retry-After", "5")
		return httpdriver.NewMockResponse(429, h, map[string]interface{}{
			"message":     "You are being rate limited.",
			"retry_after": 5.0,
			"global":      false,
		}), nil
	})

	c.Limiter = rate.NewLimiter("https://discord.com/api/v9", rate.BotStrategy{})
	c = c.WithContext(rate.WithoutQueue(context.Background()))

	_, err := c.Request("POST", "https://discord.com/api/v9/channels/1/messages")

	var rerr *rate.Error
	if !errors.As(err, &rerr) {
		t.Fatal("expected a rate limit error, got", err)
	}

	if rerr.RetryAfter <= 4*time.Second || rerr.RetryAfter > 5*time.Second {
		t.Fatal("unexpected retry after:", rerr.RetryAfter)
	}

	if n := len(mock.Requests()); n != 1 {
		t.Fatal("unexpected number of requests:", n)
	}
}

func TestRateLimitRetry(t *testing.T) {
	var calls int

	c, _ := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		calls++
		if calls == 1 {
			return httpdriver.NewMockResponse(429, nil, map[string]interface{}{
				"retry_after": 0.05,
			}), nil
		}
		return httpdriver.NewMockResponse(204, nil, nil), nil
	})

	c.Limiter = rate.NewLimiter("https://discord.com/api/v9", rate.ClientStrategy{})

	start := time.Now()

	if err := c.FastRequest("DELETE", "https://discord.com/api/v9/channels/1/messages/2"); err != nil {
		t.Fatal("request failed:", err)
	}

	if since := time.Since(start); since < 50*time.Millisecond {
		t.Fatal("retry did not wait out the limit:", since)
	}
}

func TestRateLimitRetriesExhausted(t *testing.T) {
	c, mock := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		return httpdriver.NewMockResponse(429, nil, map[string]interface{}{
			"retry_after": 0.001,
		}), nil
	})

	_, err := c.Request("GET", "https://discord.com/api/v9/gateway")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 429 {
		t.Fatal("expected a 429 HTTPError, got", err)
	}

	if n := len(mock.Requests()); n != 1+RateLimitRetries {
		t.Fatal("unexpected number of requests:", n)
	}
}

func TestRequestHeaders(t *testing.T) {
	c, mock := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		return httpdriver.NewMockResponse(200, nil, []int{}), nil
	})

	c.OnRequest = append(c.OnRequest, WithHeaders(http.Header{
		"Authorization": {"Bot token"},
	}))

	var params = struct {
		After discord.UserID `schema:"after,omitempty"`
		Limit uint           `schema:"limit"`
	}{
		After: 5,
		Limit: 1000,
	}

	var members []int
	err := c.RequestJSON(&members, "GET", "https://discord.com/api/v9/guilds/1/members",
		WithSchema(c, params))
	if err != nil {
		t.Fatal("request failed:", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bot token")
	header.Set("Accept-Encoding", "gzip")

	expect := httpdriver.NewMockRequest("GET",
		"https://discord.com/api/v9/guilds/1/members?after=5&limit=1000", header, nil)

	httpdriver.ExpectMockRequest(t.Fatalf, expect, mock.Requests()[0])
}

func TestJSONBodyReplayed(t *testing.T) {
	var bodies [][]byte

	c, _ := newMockClient(func(r *httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		bodies = append(bodies, r.Body)
		if len(bodies) == 1 {
			return httpdriver.NewMockResponse(503, nil, nil), nil
		}
		return httpdriver.NewMockResponse(200, nil, nil), nil
	})

	err := c.FastRequest("POST", "https://discord.com/api/v9/channels/1/messages",
		WithJSONBody(map[string]string{"content": "hi"}))
	if err != nil {
		t.Fatal("request failed:", err)
	}

	if len(bodies) != 2 || !bytes.Equal(bodies[0], bodies[1]) || len(bodies[0]) == 0 {
		t.Fatalf("body not replayed: %q", bodies)
	}
}

func TestGzipBody(t *testing.T) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	gz.Write([]byte(`{"url":"wss://gateway.discord.gg"}`))
	gz.Close()

	c, _ := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		h := http.Header{}
		h.Set("Content-Encoding", "gzip")
		return &httpdriver.MockResponse{
			StatusCode: 200,
			Header:     h,
			Body:       buf.Bytes(),
		}, nil
	})

	var v struct {
		URL string `json:"url"`
	}

	if err := c.RequestJSON(&v, "GET", "https://discord.com/api/v9/gateway"); err != nil {
		t.Fatal("request failed:", err)
	}

	if v.URL != "wss://gateway.discord.gg" {
		t.Fatal("unexpected URL:", v.URL)
	}
}

func TestTransportErrorRetried(t *testing.T) {
	var calls int

	c, _ := newMockClient(func(*httpdriver.MockRequest) (*httpdriver.MockResponse, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection reset")
		}
		return httpdriver.NewMockResponse(200, nil, nil), nil
	})

	if _, err := c.Request("GET", "https://discord.com/api/v9/gateway"); err != nil {
		t.Fatal("request failed:", err)
	}

	if calls != 2 {
		t.Fatal("transport error not retried:", calls)
	}
}
