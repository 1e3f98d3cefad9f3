package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNoAPIKey is returned before any network traffic when the client has no
// API key configured. Callers can tell it apart from transport failures.
var ErrNoAPIKey = errors.New("api: no api key configured")

// APIError is a non-2xx response from the service. Message carries the
// server's own error field when the body had one, the HTTP status text
// otherwise.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: server returned %d: %s", e.StatusCode, e.Message)
}

// TimeoutError reports a request that exceeded the client timeout or its
// context deadline. It wraps the underlying transport error.
type TimeoutError struct {
	URL string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("api: request to %s timed out: %v", e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout marks the error as a timeout for net.Error style checks.
func (e *TimeoutError) Timeout() bool { return true }

// isTimeout reports whether err is a deadline or transport timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
