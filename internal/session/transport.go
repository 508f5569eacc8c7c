package session

import (
	"errors"
	"net/http"
	"sync/atomic"

	"identity-mcp/pkg/logging"
)

var errForeignSessionID = errors.New("session ID does not belong to this transport")

// singleIDManager is the mcp-go session ID manager of one session's
// transport. It only ever knows the one ID the Manager generated.
type singleIDManager struct {
	id          string
	terminated  atomic.Bool
	onTerminate func()
}

func (m *singleIDManager) Generate() string {
	return m.id
}

func (m *singleIDManager) Validate(sessionID string) (bool, error) {
	if sessionID != m.id {
		return false, errForeignSessionID
	}
	return m.terminated.Load(), nil
}

func (m *singleIDManager) Terminate(sessionID string) (bool, error) {
	if sessionID != m.id {
		return false, errForeignSessionID
	}
	if m.terminated.CompareAndSwap(false, true) && m.onTerminate != nil {
		m.onTerminate()
	}
	return false, nil
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// mcpLogger routes mcp-go transport logs into the subsystem logger.
type mcpLogger struct{}

func (mcpLogger) Infof(format string, v ...any) {
	logging.Debug("MCPTransport", format, v...)
}

func (mcpLogger) Errorf(format string, v ...any) {
	logging.Warn("MCPTransport", format, v...)
}
