package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/waabox/autofixdeck/internal/domain"
)

// Kind classifies a failed request.
type Kind int

const (
	KindGeneric Kind = iota
	KindConnection
	KindTimeout
	KindServiceUnavailable
	KindNotFound
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "generic"
	}
}

// Error is returned for every failed request. It unwraps to the matching domain sentinel,
// so callers can use errors.Is(err, domain.ErrNotFound) without importing this package.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	var errs []error
	if s := e.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindConnection:
		return domain.ErrConnection
	case KindTimeout:
		return domain.ErrTimeout
	case KindServiceUnavailable:
		return domain.ErrServiceUnavailable
	case KindNotFound:
		return domain.ErrNotFound
	case KindForbidden:
		return domain.ErrForbidden
	case KindUnauthorized:
		return domain.ErrUnauthorized
	}
	return nil
}

const (
	connectionMessage = "Cannot connect to backend service. Please check if the server is running and accessible."
	timeoutMessage    = "Request timeout. The server may be overloaded or unresponsive."
)

// errorFromResponse builds an Error from a non-2xx response. It prefers the JSON
// "message" or "detail" field and falls back to "HTTP <status>: <statusText>".
func errorFromResponse(resp *http.Response) *Error {
	detail := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if msg := messageFromBody(b); msg != "" {
			detail = msg
		}
	}

	code := resp.StatusCode
	switch {
	case code == 0 || code >= 500:
		return &Error{
			Kind:       KindServiceUnavailable,
			StatusCode: code,
			Message:    fmt.Sprintf("Backend service unavailable. Please check if the server is running. (%s)", detail),
		}
	case code == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: code, Message: "Resource not found: " + detail}
	case code == http.StatusForbidden:
		return &Error{Kind: KindForbidden, StatusCode: code, Message: "Access denied: " + detail}
	case code == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, StatusCode: code, Message: "Authentication failed: " + detail}
	default:
		return &Error{Kind: KindGeneric, StatusCode: code, Message: detail}
	}
}

// messageFromBody extracts message or detail from a JSON error body.
// FastAPI validation errors carry a list in detail; those are rendered as JSON.
func messageFromBody(b []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{body.Message, body.Detail} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}

// classifyTransport converts a transport-level failure into a connection or timeout Error.
// Context cancellation is returned unchanged so callers can tell it apart from failures.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: timeoutMessage, cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: timeoutMessage, cause: err}
	}
	return &Error{Kind: KindConnection, Message: connectionMessage, cause: err}
}
