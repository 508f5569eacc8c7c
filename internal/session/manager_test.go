package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/management"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`

type staticFactory struct{}

func (staticFactory) Client(context.Context, management.Credentials) (management.API, error) {
	return nil, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, mods ...func(*Config)) *Manager {
	t.Helper()
	reg, err := capability.NewRegistry([]capability.Capability{
		{
			Name:     "ping",
			ReadOnly: true,
			Handler: func(context.Context, capability.Request) (*management.Response, error) {
				return management.Normalize([]byte(`{"pong":true}`)), nil
			},
		},
		{
			Name:           "create_item",
			RequiredScopes: []string{"create:items"},
			Handler: func(context.Context, capability.Request) (*management.Response, error) {
				return nil, nil
			},
		},
	})
	require.NoError(t, err)

	cfg := Config{
		ServerName: "identity-mcp-test",
		Version:    "0.0.1",
		Registry:   reg,
		Factory:    staticFactory{},
		Domain:     "tenant.example.com",
	}
	for _, mod := range mods {
		mod(&cfg)
	}
	m := NewManager(cfg)
	t.Cleanup(m.Stop)
	return m
}

func mcpRequest(method, sessionID, token, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, "/mcp", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, "/mcp", nil)
	}
	r.Header.Set("Accept", "application/json, text/event-stream")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	if sessionID != "" {
		r.Header.Set(HeaderSessionID, sessionID)
	}
	return r
}

func initializeSession(t *testing.T, m *Manager, token string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, mcpRequest(http.MethodPost, "", token, initializeBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, id)
	return id
}

func randomID(t *testing.T) string {
	t.Helper()
	b := make([]byte, 16)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager(t)

	id := initializeSession(t, m, "tok")
	assert.Equal(t, 1, m.Len())

	sess, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Credential.BearerToken)
	assert.Equal(t, "tenant.example.com", sess.Credential.Domain)

	t.Run("GET routes to the session stream", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodGet, id, "tok", "").WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	})

	t.Run("tools/list shows the session view", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodPost, id, "tok", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ping"`)
		assert.NotContains(t, rec.Body.String(), `"create_item"`)
	})

	t.Run("tools/call dispatches", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodPost, id, "tok", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"ping","arguments":{}}}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `pong`)
	})

	t.Run("unknown tool is an error result", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodPost, id, "tok", `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"create_item"}}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"isError":true`)
		assert.Contains(t, rec.Body.String(), "create_item")
		assert.NotContains(t, rec.Body.String(), `"error"`)
	})

	t.Run("DELETE closes the session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodDelete, id, "tok", ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, m.Len())
		<-sess.Done()

		rec = httptest.NewRecorder()
		m.ServeHTTP(rec, mcpRequest(http.MethodPost, id, "tok", `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	m := newTestManager(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := initializeSession(t, m, "tok")
		assert.False(t, seen[id], "duplicate session ID")
		seen[id] = true
	}
	assert.Equal(t, 20, m.Len())
}

func TestManager_Routing(t *testing.T) {
	m := newTestManager(t)
	id := initializeSession(t, m, "tok")

	tests := []struct {
		name       string
		method     string
		sessionID  string
		token      string
		body       string
		wantStatus int
	}{
		{
			name:       "GET without session",
			method:     http.MethodGet,
			token:      "tok",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "DELETE without session",
			method:     http.MethodDelete,
			token:      "tok",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST non-initialize without session",
			method:     http.MethodPost,
			token:      "tok",
			body:       `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown random session",
			method:     http.MethodPost,
			sessionID:  randomID(t),
			token:      "tok",
			body:       `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "GET unknown random session",
			method:     http.MethodGet,
			sessionID:  randomID(t),
			token:      "tok",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "oversized session ID",
			method:     http.MethodGet,
			sessionID:  strings.Repeat("a", MaxSessionIDLength+1),
			token:      "tok",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "token mismatch",
			method:     http.MethodPost,
			sessionID:  id,
			token:      "someone-else",
			body:       `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.ServeHTTP(rec, mcpRequest(tt.method, tt.sessionID, tt.token, tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"jsonrpc":"2.0"`)
		})
	}

	// None of the rejected requests created or dropped a session.
	assert.Equal(t, 1, m.Len())
}

func TestManager_InitializeWithUnknownIDCreatesSession(t *testing.T) {
	m := newTestManager(t)
	stale := randomID(t)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, mcpRequest(http.MethodPost, stale, "tok", initializeBody))

	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(HeaderSessionID)
	assert.NotEmpty(t, id)
	assert.NotEqual(t, stale, id)
	assert.Equal(t, 1, m.Len())
}

func TestManager_FailedInitializeUnregisters(t *testing.T) {
	m := newTestManager(t)

	r := mcpRequest(http.MethodPost, "", "tok", initializeBody)
	r.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, m.Len())
}

func TestManager_MaxSessions(t *testing.T) {
	m := newTestManager(t, func(c *Config) { c.MaxSessions = 2 })

	initializeSession(t, m, "a")
	initializeSession(t, m, "b")

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, mcpRequest(http.MethodPost, "", "c", initializeBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	_, err := m.Create(credential.FromBearer("d", "tenant.example.com"))
	var limitErr *SessionLimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 2, limitErr.Limit)
}

func TestManager_ScopesNarrowTools(t *testing.T) {
	m := newTestManager(t)

	sess, err := m.Create(&credential.Credential{
		BearerToken: "tok",
		Domain:      "tenant.example.com",
		Scopes:      []string{"create:items"},
	})
	require.NoError(t, err)
	assert.True(t, sess.Dispatcher.View().Exposes("create_item"))

	sess, err = m.Create(credential.FromBearer("opaque", "tenant.example.com"))
	require.NoError(t, err)
	assert.False(t, sess.Dispatcher.View().Exposes("create_item"))
	assert.True(t, sess.Dispatcher.View().Exposes("ping"))
}

func TestManager_CloseUnknown(t *testing.T) {
	m := newTestManager(t)

	err := m.Close("nope")
	var notFound *SessionNotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = m.Get("nope")
	assert.True(t, errors.As(err, &notFound))

	_, err = m.Create(nil)
	assert.Error(t, err)
}

func TestManager_EvictsIdleSessions(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, func(c *Config) {
		c.IdleTimeout = 10 * time.Minute
		c.Now = clk.Now
	})

	idle, err := m.Create(credential.FromBearer("a", "tenant.example.com"))
	require.NoError(t, err)
	clk.Advance(6 * time.Minute)
	active, err := m.Create(credential.FromBearer("b", "tenant.example.com"))
	require.NoError(t, err)

	assert.Equal(t, 0, m.evictIdle())

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, m.evictIdle())

	_, err = m.Get(idle.ID)
	assert.Error(t, err)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)
	<-idle.Done()

	// A session with an open stream is never evicted.
	active.inflight.Add(1)
	clk.Advance(time.Hour)
	assert.Equal(t, 0, m.evictIdle())
	active.inflight.Add(-1)
	assert.Equal(t, 1, m.evictIdle())
}

func TestManager_StopClosesSessions(t *testing.T) {
	m := newTestManager(t)

	sess, err := m.Create(credential.FromBearer("a", "tenant.example.com"))
	require.NoError(t, err)

	m.Stop()
	m.Stop()

	assert.Equal(t, 0, m.Len())
	select {
	case <-sess.Done():
	default:
		t.Fatal("session not closed by Stop")
	}
}

func TestValidateSessionID(t *testing.T) {
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID(strings.Repeat("x", MaxSessionIDLength+1)))
	assert.NoError(t, ValidateSessionID("6f1c0a5e-8d1a-4a55-9f4e-1b2c3d4e5f60"))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Basic abc", ""},
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, BearerToken(r), tt.header)
	}
}
