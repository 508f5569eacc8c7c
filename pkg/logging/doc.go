// Package logging provides the structured, subsystem-tagged logger used across
// identity-mcp.
//
// It is a thin layer over log/slog. Every entry carries a subsystem attribute
// so lines from the session manager, dispatcher and OAuth proxy can be told
// apart in aggregated output:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("Dispatcher", "Invoking %s", name)
//	logging.Error("OAuthProxy", err, "Token relay failed")
//
// # Output
//
// The stdio transport uses stdout for protocol frames, so the local mode
// initializes logging on stderr. The hosted mode logs to stdout and may use
// JSON output for log shippers.
//
// # Audit Logging
//
// Security-relevant events (session creation and termination, credential
// reloads, rejected requests) go through Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:    "session_created",
//	    Outcome:   "success",
//	    SessionID: logging.TruncateSessionID(sessionID),
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix for easy
// filtering. Tokens and client secrets are never logged.
package logging
