package session

import (
	"fmt"

	"identity-mcp/pkg/logging"
)

// SessionNotFoundError is returned for an ID the Manager does not hold.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return "session not found: " + logging.TruncateSessionID(e.SessionID)
}

// InvalidSessionIDError is returned for a malformed session ID.
type InvalidSessionIDError struct {
	Reason string
}

func (e *InvalidSessionIDError) Error() string {
	return "invalid session ID: " + e.Reason
}

// SessionLimitExceededError is returned when MaxSessions sessions are open.
type SessionLimitExceededError struct {
	Limit   int
	Current int
}

func (e *SessionLimitExceededError) Error() string {
	return fmt.Sprintf("session limit exceeded: %d/%d sessions", e.Current, e.Limit)
}
