package api

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/cordlink/cordlink/utils/httputil"
	"github.com/cordlink/cordlink/utils/json"
)

// Request describes a REST call executed through Queue.
type Request struct {
	Method  string
	URL     string
	Options []httputil.RequestOption
	// Into, if not nil, receives the decoded JSON body of a successful
	// response before onSuccess is called.
	Into interface{}
}

// Pending is a request queued with Queue.
type Pending struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	canceled bool
	finished bool

	resp *httputil.Response
	err  error
}

// Cancel aborts the request. If the request has not completed yet, neither
// callback will be called. It returns false if the request had already
// completed.
func (p *Pending) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return false
	}

	p.canceled = true
	p.cancel()
	return true
}

// Wait blocks until the request completes or is canceled, then returns its
// result. The callbacks of a completed request have returned by then.
func (p *Pending) Wait() (*httputil.Response, error) {
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.canceled {
		return nil, context.Canceled
	}
	return p.resp, p.err
}

// Done returns a channel closed once the request completes.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// finish records the result and reports whether the callbacks may run.
func (p *Pending) finish(resp *httputil.Response, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resp = resp
	p.err = err
	p.finished = true
	return !p.canceled
}

// Queue executes the request on the client's worker pool. Exactly one of
// onSuccess and onFailure is called on the pool, unless the request is
// canceled first. Either callback may be nil.
func (c *Client) Queue(
	ctx context.Context, req Request,
	onSuccess func(*httputil.Response), onFailure func(error)) *Pending {

	ctx, cancel := context.WithCancel(ctx)

	p := &Pending{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		defer cancel()

		if err := c.pool.Acquire(ctx, 1); err != nil {
			if p.finish(nil, err) && onFailure != nil {
				onFailure(err)
			}
			return
		}
		defer c.pool.Release(1)

		resp, err := c.WithContext(ctx).Request(req.Method, req.URL, req.Options...)
		if err == nil && req.Into != nil && len(resp.Body) > 0 {
			if jerr := json.Unmarshal(resp.Body, req.Into); jerr != nil {
				err = errors.Wrap(jerr, "failed to decode response")
				resp = nil
			}
		}

		if !p.finish(resp, err) {
			return
		}

		if err != nil {
			if onFailure != nil {
				onFailure(err)
			}
			return
		}

		if onSuccess != nil {
			onSuccess(resp)
		}
	}()

	return p
}
