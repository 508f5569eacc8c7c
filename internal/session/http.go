package session

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"identity-mcp/internal/credential"
	"identity-mcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// maxBodyBytes bounds a POSTed JSON-RPC message.
const maxBodyBytes = 4 << 20

// HeaderSessionID carries the session ID on requests and responses.
const HeaderSessionID = server.HeaderKeySessionID

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// ServeHTTP routes one /mcp request. Authentication is checked by the
// caller; the bearer token is still compared with the session's.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	sessionID := r.Header.Get(HeaderSessionID)

	var body []byte
	if r.Method == http.MethodPost {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSONRPCError(w, http.StatusRequestEntityTooLarge, mcp.INVALID_REQUEST, "request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	initialize := r.Method == http.MethodPost && isInitialize(body)

	if sessionID == "" {
		if !initialize {
			writeJSONRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "Bad Request: no valid session ID provided")
			return
		}
		m.initialize(w, r, token)
		return
	}

	if err := ValidateSessionID(sessionID); err != nil {
		writeJSONRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, err.Error())
		return
	}

	sess, err := m.Get(sessionID)
	if err != nil {
		if initialize {
			m.initialize(w, r, token)
			return
		}
		logging.Debug(subsystem, "Rejected %s for unknown session %s", r.Method, logging.TruncateSessionID(sessionID))
		writeJSONRPCError(w, http.StatusNotFound, mcp.INVALID_REQUEST, "Session not found")
		return
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(sess.Credential.BearerToken)) != 1 {
		logging.Audit(logging.AuditEvent{
			Action:    "session_access",
			Outcome:   "denied",
			SessionID: logging.TruncateSessionID(sess.ID),
			Details:   "bearer token does not match the session",
		})
		writeJSONRPCError(w, http.StatusForbidden, mcp.INVALID_REQUEST, "Forbidden: bearer token does not match the session")
		return
	}

	m.forward(w, r, sess, body)
}

// initialize creates a session for an initialize request and hands the
// request to the session's transport. The session is dropped again if
// initialization fails.
func (m *Manager) initialize(w http.ResponseWriter, r *http.Request, token string) {
	sess, err := m.Create(credential.FromBearer(token, m.cfg.Domain))
	if err != nil {
		var limitErr *SessionLimitExceededError
		if errors.As(err, &limitErr) {
			writeJSONRPCError(w, http.StatusServiceUnavailable, mcp.INTERNAL_ERROR, "Too many open sessions, try again later")
			return
		}
		logging.Error(subsystem, err, "Failed to create session")
		writeJSONRPCError(w, http.StatusInternalServerError, mcp.INTERNAL_ERROR, "Failed to create session")
		return
	}

	// Clients may send a stale ID with a fresh initialize.
	r.Header.Del(HeaderSessionID)

	sw := &statusWriter{ResponseWriter: w}
	m.serve(sw, r, sess)

	if sw.status >= http.StatusBadRequest || sw.Header().Get(HeaderSessionID) != sess.ID {
		logging.Warn(subsystem, "Initialization failed for session %s (status %d)", logging.TruncateSessionID(sess.ID), sw.status)
		_ = m.close(sess.ID, reasonFailed)
	}
}

// forward answers unknown tool calls directly and passes everything else to
// the session's transport.
func (m *Manager) forward(w http.ResponseWriter, r *http.Request, sess *Session, body []byte) {
	if r.Method == http.MethodPost {
		sess.touch(m.now())
		if resp, ok := sess.Dispatcher.Intercept(r.Context(), body); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(append(resp, '\n'))
			return
		}
	}
	m.serve(w, r, sess)
}

// serve runs the transport with a request context that also ends when the
// session closes, so GET streams do not outlive their session.
func (m *Manager) serve(w http.ResponseWriter, r *http.Request, sess *Session) {
	sess.touch(m.now())
	sess.inflight.Add(1)
	defer func() {
		sess.inflight.Add(-1)
		sess.touch(m.now())
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(sess.ctx, cancel)
	defer stop()

	sess.handler.ServeHTTP(w, r.WithContext(ctx))
}

func isInitialize(body []byte) bool {
	var msg struct {
		Method mcp.MCPMethod `json:"method"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return false
	}
	return msg.Method == mcp.MethodInitialize
}

func writeJSONRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(nil),
		Error: mcp.JSONRPCErrorDetails{
			Code:    code,
			Message: message,
		},
	})
}
