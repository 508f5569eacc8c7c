package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/dispatcher"
	"identity-mcp/internal/metrics"
	"identity-mcp/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
)

const subsystem = "SessionManager"

const (
	// MaxSessionIDLength bounds the Mcp-Session-Id header accepted from clients.
	MaxSessionIDLength = 256

	// DefaultMaxSessions is used when Config.MaxSessions is negative.
	DefaultMaxSessions = 10000

	// DefaultIdleTimeout is used when Config.IdleTimeout is not positive.
	DefaultIdleTimeout = 30 * time.Minute

	// minCleanupInterval keeps very short idle timeouts from spinning the
	// cleanup loop.
	minCleanupInterval = time.Second
)

// Close reasons reported to the metrics recorder.
const (
	reasonClient   = "client"
	reasonIdle     = "idle"
	reasonFailed   = "failed"
	reasonShutdown = "shutdown"
)

// Config wires a Manager.
type Config struct {
	// ServerName and Version are announced in the initialize result.
	ServerName string
	Version    string

	Registry *capability.Registry
	Filter   capability.Filter
	Factory  dispatcher.ClientFactory

	// Domain and Audience are the configured tenant values.
	Domain   string
	Audience string

	// OperationTimeout bounds every tool call.
	OperationTimeout time.Duration
	// IdleTimeout evicts sessions without traffic for this long.
	IdleTimeout time.Duration
	// MaxSessions limits concurrent sessions. Zero means unlimited.
	MaxSessions int
	// HeartbeatInterval, when positive, keeps GET streams alive.
	HeartbeatInterval time.Duration

	Recorder metrics.Recorder
	Now      func() time.Time
}

// Session is one hosted MCP session.
type Session struct {
	ID string
	// Credential was captured from the bearer token at creation and never
	// changes. Re-authentication requires a new session.
	Credential *credential.Credential
	Dispatcher *dispatcher.Dispatcher
	CreatedAt  time.Time

	handler      http.Handler
	idm          *singleIDManager
	ctx          context.Context
	cancel       context.CancelFunc
	lastActivity atomic.Int64
	inflight     atomic.Int32
}

// LastActivity returns when the session last received a request.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Manager holds the process's hosted sessions.
//
// NewManager starts a background goroutine that evicts idle sessions.
// Callers must call Stop when done.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg         Config
	idleTimeout time.Duration
	maxSessions int
	recorder    metrics.Recorder
	now         func() time.Time

	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a Manager and starts its idle-eviction loop.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		cfg:         cfg,
		idleTimeout: cfg.IdleTimeout,
		maxSessions: cfg.MaxSessions,
		recorder:    cfg.Recorder,
		now:         cfg.Now,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	if m.maxSessions < 0 {
		m.maxSessions = DefaultMaxSessions
	}
	if m.recorder == nil {
		m.recorder = metrics.NoOpRecorder{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.cfg.ServerName == "" {
		m.cfg.ServerName = "identity-mcp"
	}

	go m.cleanupLoop()

	return m
}

// ValidateSessionID checks the shape of a client-supplied session ID.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return &InvalidSessionIDError{Reason: "session ID cannot be empty"}
	}
	if len(sessionID) > MaxSessionIDLength {
		return &InvalidSessionIDError{Reason: fmt.Sprintf("session ID exceeds maximum length of %d", MaxSessionIDLength)}
	}
	return nil
}

// Create registers a new session bound to cred. The session's tools are the
// registry narrowed by the configured filter and cred's granted scopes.
func (m *Manager) Create(cred *credential.Credential) (*Session, error) {
	if cred == nil {
		return nil, fmt.Errorf("cannot create a session without a credential")
	}
	id := uuid.NewString()

	disp := dispatcher.New(dispatcher.Config{
		View:      m.cfg.Registry.View(m.cfg.Filter, cred.Scopes),
		Source:    credential.NewStaticSource(cred),
		Factory:   m.cfg.Factory,
		Domain:    m.cfg.Domain,
		Audience:  m.cfg.Audience,
		Timeout:   m.cfg.OperationTimeout,
		Recorder:  m.recorder,
		SessionID: id,
		Now:       m.now,
	})

	mcpServer := server.NewMCPServer(
		m.cfg.ServerName,
		m.cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	disp.Register(mcpServer)

	idm := &singleIDManager{id: id}
	idm.onTerminate = func() {
		if err := m.close(id, reasonClient); err != nil {
			logging.Debug(subsystem, "Terminate for %s: %v", logging.TruncateSessionID(id), err)
		}
	}

	opts := []server.StreamableHTTPOption{
		server.WithSessionIdManager(idm),
		server.WithLogger(mcpLogger{}),
	}
	if m.cfg.HeartbeatInterval > 0 {
		opts = append(opts, server.WithHeartbeatInterval(m.cfg.HeartbeatInterval))
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := m.now()
	sess := &Session{
		ID:         id,
		Credential: cred,
		Dispatcher: disp,
		CreatedAt:  now,
		handler:    server.NewStreamableHTTPServer(mcpServer, opts...),
		idm:        idm,
		ctx:        ctx,
		cancel:     cancel,
	}
	sess.touch(now)

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		current := len(m.sessions)
		m.mu.Unlock()
		cancel()
		logging.Warn(subsystem, "Rejected new session: limit of %d reached", m.maxSessions)
		return nil, &SessionLimitExceededError{Limit: m.maxSessions, Current: current}
	}
	m.sessions[id] = sess
	total := len(m.sessions)
	m.mu.Unlock()

	m.recorder.SessionOpened(context.Background())
	logging.Info(subsystem, "Created session %s with %d tools (%d open)",
		logging.TruncateSessionID(id), len(disp.View().List()), total)
	logging.Audit(logging.AuditEvent{
		Action:    "session_create",
		Outcome:   "success",
		SessionID: logging.TruncateSessionID(id),
		Details:   fmt.Sprintf("scopes=%d", len(cred.Scopes)),
	})

	return sess, nil
}

// Get returns the open session with the given ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}
	return sess, nil
}

// Close removes the session. Later requests with its ID are treated as
// unknown.
func (m *Manager) Close(sessionID string) error {
	return m.close(sessionID, reasonClient)
}

func (m *Manager) close(sessionID, reason string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return &SessionNotFoundError{SessionID: sessionID}
	}

	m.finish(sess, reason)
	return nil
}

// finish releases a session already removed from the map.
func (m *Manager) finish(sess *Session, reason string) {
	sess.idm.terminated.Store(true)
	sess.cancel()

	m.recorder.SessionClosed(context.Background(), reason)
	logging.Info(subsystem, "Closed session %s (%s)", logging.TruncateSessionID(sess.ID), reason)
	logging.Audit(logging.AuditEvent{
		Action:    "session_close",
		Outcome:   "success",
		SessionID: logging.TruncateSessionID(sess.ID),
		Details:   "reason=" + reason,
	})
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stop ends the eviction loop and closes every session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		<-m.cleanupDone

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, sess := range sessions {
			m.finish(sess, reasonShutdown)
		}
		logging.Debug(subsystem, "Session manager stopped")
	})
}

// cleanupLoop periodically evicts idle sessions.
func (m *Manager) cleanupLoop() {
	defer close(m.cleanupDone)

	interval := m.idleTimeout / 2
	if interval < minCleanupInterval {
		interval = minCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopCleanup:
			return
		}
	}
}

// evictIdle closes sessions idle for longer than the idle timeout. Sessions
// with a request in flight, such as an open GET stream, are kept.
func (m *Manager) evictIdle() int {
	now := m.now()

	var idle []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.inflight.Load() > 0 {
			continue
		}
		if now.Sub(sess.LastActivity()) > m.idleTimeout {
			delete(m.sessions, id)
			idle = append(idle, sess)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		m.finish(sess, reasonIdle)
	}
	if len(idle) > 0 {
		logging.Info(subsystem, "Evicted %d idle sessions", len(idle))
	}
	return len(idle)
}
