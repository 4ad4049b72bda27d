package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// User-facing messages for ambient failures. These mirror what the
// notification layer shows; domain validation messages come from the
// server body instead.
const (
	MsgSessionExpired = "Session expired. Please log in again."
	MsgForbidden      = "You do not have permission to access this resource."
	MsgServerError    = "Server error. Please try again later."
	MsgGeneric        = "An error occurred."
	MsgNetwork        = "Network error. Please check your connection."
)

// staleTokenMarker is the body message the server sends with a 403 when
// the submitted anti-forgery token no longer matches.
const staleTokenMarker = "invalid csrf token"

// Error is a response-shaped failure: every failed call yields one,
// carrying at least a status and a message. Status 0 means the request
// never produced a response (network failure or timeout).
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: no response: %s", e.Message)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Transport reports whether the failure happened before any response
// arrived.
func (e *Error) Transport() bool { return e.Status == 0 }

// serverMessage extracts the "message" field from a JSON error body.
// Returns "" when the body isn't JSON or has no message.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

// isStaleToken matches the server's stale-anti-forgery-token rejection.
// The comparison is case-insensitive and whitespace-tolerant because the
// backend has been observed to pad the message.
func isStaleToken(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), staleTokenMarker)
}
