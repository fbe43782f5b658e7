package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoToken is returned for protected calls made without a session.
	ErrNoToken = errors.New("not logged in")
	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches any 404 response.
	ErrNotFound = errors.New("not found")
	// ErrMalformedResponse is returned when a 2xx body cannot be adapted.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend API error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend API error: %d %s - %s", e.Status, http.StatusText(e.Status), e.Detail)
}

// Is lets errors.Is match status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Message returns a short text fit for showing to the user.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.Status)
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	return &APIError{Status: resp.StatusCode, Detail: parseDetail(body)}
}

// parseDetail understands {"detail": "..."}, {"detail": [{"msg": "..."}]}
// and {"error": "..."} bodies, falling back to short plain text.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if d := decodeDetail(payload.Detail); d != "" {
			return d
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

func decodeDetail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// UserMessage converts any client error into a short user-facing string.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoToken):
		return "Session expired, please log in again"
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, ErrMalformedResponse):
		return "Unexpected response from server"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Request timed out or was cancelled"
	}
	return "Server unreachable"
}
