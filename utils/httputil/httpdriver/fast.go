package httpdriver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// FastClient implements Client on top of fasthttp. fasthttp does not take
// contexts, so the context deadline, or Timeout if there is none, bounds each
// request instead.
type FastClient struct {
	Client  *fasthttp.Client
	Timeout time.Duration
}

var _ Client = (*FastClient)(nil)

// NewFastClient creates a fasthttp-backed client with a timeout of
// DefaultTimeout.
func NewFastClient() *FastClient {
	return &FastClient{
		Client: &fasthttp.Client{
			MaxIdleConnDuration: time.Minute,
			ReadTimeout:         DefaultTimeout,
			WriteTimeout:        DefaultTimeout,
		},
		Timeout: DefaultTimeout,
	}
}

func (c *FastClient) NewRequest(ctx context.Context, method, url string) (Request, error) {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(method)
	req.SetRequestURI(url)

	if len(req.URI().Host()) == 0 {
		fasthttp.ReleaseRequest(req)
		return nil, errors.Errorf("invalid URL %q: missing host", url)
	}

	return &FastRequest{req: req, ctx: ctx}, nil
}

func (c *FastClient) Do(req Request) (Response, error) {
	r := req.(*FastRequest)
	defer r.release()

	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := r.ctx.Deadline(); ok {
		err = c.Client.DoDeadline(r.req, resp, deadline)
	} else {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		err = c.Client.DoTimeout(r.req, resp, timeout)
	}
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	resp.Header.VisitAll(func(k, v []byte) {
		header.Add(string(k), string(v))
	})

	return &FastResponse{
		Status: resp.StatusCode(),
		Header: header,
		// resp is released on return.
		Body: append([]byte(nil), resp.Body()...),
	}, nil
}

// FastRequest wraps a pooled fasthttp.Request. It is released after Do.
type FastRequest struct {
	req  *fasthttp.Request
	ctx  context.Context
	body io.ReadCloser
}

var _ Request = (*FastRequest)(nil)

func (r *FastRequest) release() {
	if r.body != nil {
		r.body.Close()
	}
	fasthttp.ReleaseRequest(r.req)
}

func (r *FastRequest) GetMethod() string {
	return string(r.req.Header.Method())
}

func (r *FastRequest) GetURL() string {
	return r.req.URI().String()
}

func (r *FastRequest) GetPath() string {
	return string(r.req.URI().Path())
}

func (r *FastRequest) GetContext() context.Context {
	return r.ctx
}

func (r *FastRequest) AddHeader(header http.Header) {
	for key, values := range header {
		for _, v := range values {
			r.req.Header.Add(key, v)
		}
	}
}

func (r *FastRequest) AddQuery(values url.Values) {
	args := r.req.URI().QueryArgs()
	for k, vs := range values {
		for _, v := range vs {
			args.Add(k, v)
		}
	}
}

func (r *FastRequest) WithBody(body io.ReadCloser) {
	r.body = body
	r.req.SetBodyStream(body, -1)
}

// FastResponse is a fully read fasthttp response.
type FastResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

var _ Response = (*FastResponse)(nil)

func (r *FastResponse) GetStatus() int {
	return r.Status
}

func (r *FastResponse) GetHeader() http.Header {
	return r.Header
}

func (r *FastResponse) GetBody() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(r.Body))
}
