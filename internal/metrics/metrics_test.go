package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestProvider(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	assert.NotNil(t, p.MeterProvider())
	assert.NotNil(t, p.Handler())
	assert.NoError(t, p.Shutdown(context.Background()))

	empty := &Provider{}
	assert.NoError(t, empty.Shutdown(context.Background()))
}

func TestRecorder(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	r, err := NewRecorder(p.MeterProvider(), "identity_mcp")
	require.NoError(t, err)

	ctx := context.Background()
	r.RecordDispatch(ctx, "auth0_list_applications", OutcomeSuccess, 20*time.Millisecond)
	r.RecordDispatch(ctx, "auth0_list_applications", OutcomeUpstream, 5*time.Millisecond)
	r.SessionOpened(ctx)
	r.SessionOpened(ctx)
	r.SessionClosed(ctx, "idle")

	out := scrape(t, p)
	assert.Regexp(t, `identity_mcp_tool_calls_total\{[^}]*outcome="success"[^}]*tool="auth0_list_applications"[^}]*\} 1`, out)
	assert.Regexp(t, `identity_mcp_tool_calls_total\{[^}]*outcome="upstream_error"[^}]*\} 1`, out)
	assert.Regexp(t, `identity_mcp_sessions_active(_[a-z]+)?\{[^}]*\} 1`, out)
	assert.Regexp(t, `identity_mcp_sessions_closed_total\{[^}]*reason="idle"[^}]*\} 1`, out)
}

func TestNoOpRecorder(t *testing.T) {
	var r Recorder = NoOpRecorder{}
	r.RecordDispatch(context.Background(), "x", OutcomeSuccess, time.Second)
	r.SessionOpened(context.Background())
	r.SessionClosed(context.Background(), "client")
}

func TestHTTPMiddleware(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)

	h := HTTPMiddleware(p.MeterProvider(), "identity_mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte("ok"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, path := range []string{"/health", "/health", "/nope/123"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	out := scrape(t, p)
	assert.Regexp(t, `identity_mcp_http_requests_total\{[^}]*route="/health"[^}]*status_code="200"[^}]*\} 2`, out)
	assert.Regexp(t, `identity_mcp_http_requests_total\{[^}]*route="other"[^}]*status_code="404"[^}]*\} 1`, out)
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/mcp", "/mcp"},
		{"/mcp/", "/mcp"},
		{"/.well-known/oauth-protected-resource", "/.well-known/oauth-protected-resource"},
		{"/users/42", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, routeLabel(tt.path), tt.path)
	}
}
