package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNetwork wraps transport failures: the request never got a response.
	ErrNetwork = errors.New("network error")
	// ErrUnexpectedStatus is a 2xx that isn't the one the operation requires,
	// e.g. a delete answered with 200 instead of 204.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	// Reason is the reason phrase the server sent on the status line.
	Reason string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message())
}

// Message is what the user sees: the backend's detail, or the status text
// when there is none.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Reason != "" {
		return e.Reason
	}
	if txt := http.StatusText(e.StatusCode); txt != "" {
		return txt
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

func (e *Error) Unauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// Message renders any error from this package for display.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

// parseError builds an *Error from a response. detail may be a string or, for
// validation failures, arbitrary JSON which is passed through compact.
func parseError(resp *http.Response, body []byte) *Error {
	e := &Error{StatusCode: resp.StatusCode, Reason: reasonPhrase(resp)}
	var raw struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw.Detail) == 0 {
		return e
	}
	var s string
	if err := json.Unmarshal(raw.Detail, &s); err == nil {
		e.Detail = s
		return e
	}
	if bytes.Equal(raw.Detail, []byte("null")) {
		return e
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw.Detail); err == nil {
		e.Detail = buf.String()
	}
	return e
}

// reasonPhrase is resp.Status without its leading code.
func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, code))
}
