package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/cordlink/cordlink/utils/httputil/httpdriver"
	"github.com/cordlink/cordlink/utils/json"
)

// RequestOption modifies a request before it is sent. Options run again on
// every retry, so they must not consume state.
type RequestOption func(httpdriver.Request) error

// ResponseFunc is called after every attempt with the fully read response.
// resp is nil if the request failed to be sent.
type ResponseFunc func(req httpdriver.Request, resp *Response) error

func PrependOptions(opts []RequestOption, prepend ...RequestOption) []RequestOption {
	if len(opts) == 0 {
		return prepend
	}
	return append(prepend, opts...)
}

func JSONRequest(r httpdriver.Request) error {
	r.AddHeader(http.Header{
		"Content-Type": {"application/json"},
	})
	return nil
}

func WithHeaders(headers http.Header) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddHeader(headers)
		return nil
	}
}

func WithContentType(ctype string) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddHeader(http.Header{
			"Content-Type": {ctype},
		})
		return nil
	}
}

func WithQuery(values url.Values) RequestOption {
	return func(r httpdriver.Request) error {
		r.AddQuery(values)
		return nil
	}
}

func WithSchema(schema SchemaEncoder, v interface{}) RequestOption {
	return func(r httpdriver.Request) error {
		params, err := schema.Encode(v)
		if err != nil {
			return err
		}
		r.AddQuery(params)
		return nil
	}
}

// WithBody sends a fixed body. The bytes are reused across retries.
func WithBody(body []byte) RequestOption {
	return func(r httpdriver.Request) error {
		r.WithBody(io.NopCloser(bytes.NewReader(body)))
		return nil
	}
}

// WithJSONBody encodes v once and sends it as the JSON body of every attempt.
func WithJSONBody(v interface{}) RequestOption {
	if v == nil {
		return func(httpdriver.Request) error {
			return nil
		}
	}

	b, err := json.Marshal(v)

	return func(r httpdriver.Request) error {
		if err != nil {
			return JSONError{err}
		}

		r.AddHeader(http.Header{
			"Content-Type": {"application/json"},
		})
		r.WithBody(io.NopCloser(bytes.NewReader(b)))
		return nil
	}
}
