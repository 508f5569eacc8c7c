package session

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"identity-mcp/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logging.Init(logging.LevelInfo, logging.FormatText, buf)
	t.Cleanup(func() { logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr) })
	return buf
}

func TestManager_LogsOnlyTruncatedSessionIDs(t *testing.T) {
	logs := captureLogs(t)
	m := newTestManager(t)

	id := initializeSession(t, m, "token-a")

	// A mismatched bearer is audited as denied.
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, mcpRequest(http.MethodPost, id, "token-b", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, m.Close(id))

	out := logs.String()
	assert.Contains(t, out, "[AUDIT] session_create")
	assert.Contains(t, out, "[AUDIT] session_access")
	assert.Contains(t, out, "[AUDIT] session_close")
	assert.Contains(t, out, logging.TruncateSessionID(id))
	assert.NotContains(t, out, id)
}
