package aeroperk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError is a failure reported by the AeroPerk API, either through a non-2xx
// status or through "success": false.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Type       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("aeroperk api %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("aeroperk api %d: %s", e.StatusCode, e.Message)
}

// TransportError is a call that never got an API response. Its message is
// safe to show to users; the wrapped error keeps the URL and the cause.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return "AeroPerk API timed out"
	case errors.Is(e.Err, context.Canceled):
		return "AeroPerk API request was cancelled"
	default:
		return "AeroPerk API is unreachable"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(err error) *TransportError {
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	return &TransportError{Timeout: timeout, Err: err}
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not come
// from an API response (timeouts, connection failures).
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ErrorMessage returns the text to show a user for err: the backend's message
// for API errors, a short summary for transport failures, err.Error() otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Error()
	}
	return err.Error()
}

func newAPIError(status int, env *envelope) *APIError {
	e := &APIError{StatusCode: status}

	if raw := bytes.TrimSpace(env.Error); len(raw) > 0 && !isNull(raw) {
		if raw[0] == '"' {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				e.Message = s
			}
		} else {
			var detail struct {
				Message string `json:"message"`
				Code    string `json:"code"`
				Type    string `json:"type"`
			}
			if json.Unmarshal(raw, &detail) == nil {
				e.Message = detail.Message
				e.Code = detail.Code
				e.Type = detail.Type
			}
		}
	}

	// the top-level message wins, matching what the web app shows
	if env.Message != "" {
		e.Message = env.Message
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return e
}
