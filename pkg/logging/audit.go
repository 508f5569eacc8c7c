package logging

import (
	"context"
	"log/slog"
)

// sessionIDPrefixLength is how much of a session ID is shown in logs.
const sessionIDPrefixLength = 8

// AuditEvent describes a security-relevant action.
type AuditEvent struct {
	// Action is what happened, e.g. "session_created" or "credential_reload".
	Action string
	// Outcome is "success", "failure" or "denied".
	Outcome string
	// SessionID is truncated with TruncateSessionID before it is logged.
	SessionID string
	// Target names the affected object (operation name, upstream host, ...).
	Target string
	// Details is a short free-form explanation. Never put credentials here.
	Details string
}

// Audit logs an audit event at INFO level with an [AUDIT] prefix.
func Audit(event AuditEvent) {
	logger := Logger()

	attrs := []slog.Attr{
		slog.String("subsystem", "Audit"),
		slog.String("action", event.Action),
		slog.String("outcome", event.Outcome),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", TruncateSessionID(event.SessionID)))
	}
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.Details != "" {
		attrs = append(attrs, slog.String("details", event.Details))
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "[AUDIT] "+event.Action, attrs...)
}

// TruncateSessionID shortens a session ID for logging.
func TruncateSessionID(sessionID string) string {
	if len(sessionID) <= sessionIDPrefixLength {
		return sessionID
	}
	return sessionID[:sessionIDPrefixLength] + "..."
}
