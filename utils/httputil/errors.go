package httputil

import (
	"fmt"

	"github.com/cordlink/cordlink/utils/json"
)

// JSONError is returned if a response body cannot be decoded.
type JSONError struct {
	err error
}

func (j JSONError) Error() string { return "cannot decode response: " + j.err.Error() }
func (j JSONError) Unwrap() error { return j.err }

// RequestError is returned if the server could not be reached. Only these
// errors are retried.
type RequestError struct {
	err error
}

func (r RequestError) Error() string { return "request failed: " + r.err.Error() }
func (r RequestError) Unwrap() error { return r.err }

// ErrorCode is the JSON error code Discord sends along with 4xx statuses.
type ErrorCode uint

// HTTPError is returned for responses with a status of 400 or above. The
// error fields are filled if the body is a Discord error object.
type HTTPError struct {
	Status int    `json:"-"`
	Body   []byte `json:"-"`

	Code    ErrorCode `json:"code"`
	Errors  json.Raw  `json:"errors,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (err HTTPError) Error() string {
	msg := fmt.Sprintf("HTTP %d", err.Status)

	if err.Code > 0 {
		msg += fmt.Sprintf(" (code %d)", err.Code)
	}

	switch {
	case err.Message != "" && err.Errors != nil:
		return msg + ": " + err.Message + ": " + string(err.Errors)
	case err.Message != "":
		return msg + ": " + err.Message
	case len(err.Body) > 0 && err.Code == 0:
		return msg + ": " + string(err.Body)
	default:
		return msg
	}
}
