// Package httputil provides abstractions around the common needs of HTTP. It
// also allows swapping in and out the HTTP client.
package httputil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
	"github.com/cordlink/cordlink/utils/json"
	"github.com/cordlink/cordlink/utils/metrics"
)

// StatusTooManyRequests is the HTTP status code discord sends on rate-limiting.
const StatusTooManyRequests = 429

// Retries is the default number of additional attempts made after a server
// error or a failure to reach the server.
var Retries = 3

// RateLimitRetries is the default number of additional attempts made after
// 429 responses.
var RateLimitRetries = 5

// RetryDelay is multiplied by the attempt number to get the delay before
// retrying a failed attempt.
var RetryDelay = 50 * time.Millisecond

// Limiter gates requests by route. *rate.Limiter implements it.
type Limiter interface {
	// Acquire blocks until a request to the route may be sent. The route stays
	// reserved until Release.
	Acquire(ctx context.Context, method, path string) error
	// Release records the response and frees the route. It returns the
	// delay reported by the response, if any.
	Release(method, path string, status int, h http.Header, body []byte) time.Duration
}

type Client struct {
	httpdriver.Client
	SchemaEncoder

	// Limiter, if not nil, wraps every attempt. Waiting out a 429 is left to
	// its next Acquire.
	Limiter Limiter

	// OnRequest, if not nil, will be copied and prefixed on each Request.
	OnRequest []RequestOption

	// OnResponse is called after every attempt. Response might be nil if Do()
	// errors out. The error returned will override Do's if it's not nil.
	OnResponse []ResponseFunc

	Retries          int
	RateLimitRetries int

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	context context.Context
}

func NewClient() *Client {
	return &Client{
		Client:           httpdriver.NewClient(),
		SchemaEncoder:    NewSchema(),
		Retries:          Retries,
		RateLimitRetries: RateLimitRetries,
		Logger:           zap.NewNop(),
		context:          context.Background(),
	}
}

// Copy returns a shallow copy of the client.
func (c *Client) Copy() *Client {
	cl := new(Client)
	*cl = *c
	return cl
}

// WithContext returns a client copy of the client with the given context.
func (c *Client) WithContext(ctx context.Context) *Client {
	c = c.Copy()
	c.context = ctx
	return c
}

// Context is a shared context for all future calls. It's Background by
// default.
func (c *Client) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Response is a fully read response. Gzip bodies are already decoded.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

var _ httpdriver.Response = (*Response)(nil)

func (r *Response) GetStatus() int {
	return r.Status
}

func (r *Response) GetHeader() http.Header {
	return r.Header
}

func (r *Response) GetBody() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(r.Body))
}

func readResponse(r httpdriver.Response) (*Response, error) {
	body := r.GetBody()
	defer body.Close()

	header := r.GetHeader()
	if header == nil {
		header = http.Header{}
	}

	var src io.Reader = body

	if header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.Wrap(err, "invalid gzip body")
		}
		defer gz.Close()
		src = gz
	}

	b, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}

	return &Response{
		Status: r.GetStatus(),
		Header: header,
		Body:   b,
	}, nil
}

func (c *Client) applyOptions(r httpdriver.Request, extra []RequestOption) error {
	for _, opt := range c.OnRequest {
		if err := opt(r); err != nil {
			return err
		}
	}
	for _, opt := range extra {
		if err := opt(r); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) FastRequest(method, url string, opts ...RequestOption) error {
	_, err := c.Request(method, url, opts...)
	return err
}

func (c *Client) RequestJSON(to interface{}, method, url string, opts ...RequestOption) error {
	opts = PrependOptions(opts, JSONRequest)

	r, err := c.Request(method, url, opts...)
	if err != nil {
		return err
	}

	// No content, working as intended (tm)
	if r.Status == httpdriver.NoContent || to == nil {
		return nil
	}

	if err := json.Unmarshal(r.Body, to); err != nil {
		return JSONError{err}
	}

	return nil
}

func (c *Client) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.Context().Done():
		return c.Context().Err()
	case <-timer.C:
		return nil
	}
}

// Request sends a request. Server errors and transport failures are retried
// up to Retries times, sleeping RetryDelay times the attempt number between
// attempts. 429 responses are retried up to RateLimitRetries times.
func (c *Client) Request(method, url string, opts ...RequestOption) (*Response, error) {
	ctx := c.Context()

	var (
		resp     *Response
		doErr    error
		failures int
		limited  int
	)

	for {
		if c.Limiter != nil {
			if err := c.Limiter.Acquire(ctx, method, url); err != nil {
				return nil, err
			}
		}

		var q httpdriver.Request
		q, resp, doErr = c.do(ctx, method, url, opts)

		var delay time.Duration

		if c.Limiter != nil {
			if resp != nil {
				delay = c.Limiter.Release(method, url, resp.Status, resp.Header, resp.Body)
			} else {
				c.Limiter.Release(method, url, 0, nil, nil)
			}
		}

		if q != nil {
			for _, fn := range c.OnResponse {
				if err := fn(q, resp); err != nil {
					return nil, err
				}
			}
		}

		switch {
		case doErr != nil:
			if _, ok := doErr.(RequestError); !ok {
				// Option and decoding errors won't be fixed by retrying.
				return nil, doErr
			}
			if ctx.Err() != nil {
				return nil, doErr
			}

		case resp.Status == StatusTooManyRequests:
			if limited >= c.RateLimitRetries {
				return nil, newHTTPError(resp)
			}
			limited++

			c.logger().Debug("rate limited, retrying",
				zap.String("method", method),
				zap.String("url", url),
				zap.Duration("retry_after", delay),
				zap.Int("attempt", limited))

			if c.Limiter == nil {
				if err := c.sleep(retryAfter(resp)); err != nil {
					return nil, err
				}
			}
			continue

		case resp.Status >= 500:

		case resp.Status < 200 || resp.Status > 299:
			return nil, newHTTPError(resp)

		default:
			return resp, nil
		}

		if failures >= c.Retries {
			if doErr != nil {
				return nil, doErr
			}
			return nil, newHTTPError(resp)
		}
		failures++

		c.logger().Debug("request failed, retrying",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", failures),
			zap.Error(doErr))

		if err := c.sleep(RetryDelay * time.Duration(failures)); err != nil {
			return nil, err
		}
	}
}

// do makes a single attempt.
func (c *Client) do(ctx context.Context, method, url string, opts []RequestOption) (httpdriver.Request, *Response, error) {
	q, err := c.Client.NewRequest(ctx, method, url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create request")
	}

	q.AddHeader(http.Header{
		"Accept-Encoding": {"gzip"},
	})

	if err := c.applyOptions(q, opts); err != nil {
		return nil, nil, errors.Wrap(err, "failed to apply options")
	}

	start := time.Now()

	r, err := c.Client.Do(q)
	if err != nil {
		c.Metrics.RecordRequest(method, 0, time.Since(start))
		return q, nil, RequestError{err}
	}

	resp, err := readResponse(r)
	if err != nil {
		return q, nil, RequestError{err}
	}

	c.Metrics.RecordRequest(method, resp.Status, time.Since(start))
	return q, resp, nil
}

// retryAfter reads the delay of a 429 response without a limiter.
func retryAfter(resp *Response) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}

	if json.Unmarshal(resp.Body, &body) == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}

	return time.Second
}

func newHTTPError(resp *Response) *HTTPError {
	httpErr := &HTTPError{
		Status: resp.Status,
		Body:   resp.Body,
	}

	// Optionally unmarshal the error.
	json.Unmarshal(httpErr.Body, &httpErr)

	return httpErr
}
