package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity-mcp/internal/config"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/management"
)

const testDomain = "tenant.example.com"

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Domain:                  testDomain,
		ClientID:                "client-123",
		ClientSecret:            "secret",
		Audience:                "https://" + testDomain + "/api/v2/",
		AudiencePolicy:          config.AudienceIfAbsent,
		Host:                    "127.0.0.1",
		Port:                    config.DefaultPort,
		SessionIdleTimeout:      config.DefaultSessionIdleTimeout,
		MaxSessions:             config.DefaultMaxSessions,
		OperationTimeout:        5 * time.Second,
		ConnectTimeout:          5 * time.Second,
		RateLimitRequestsPerSec: config.DefaultRateLimitPerSec,
		RateLimitBurst:          config.DefaultRateLimitBurst,
		MetricsNamespace:        config.DefaultMetricsNamespace,
		LogLevel:                "info",
		LogFormat:               "text",
		CredentialDir:           t.TempDir(),
	}
}

func testConfig(t *testing.T, settings *config.Config) *Config {
	t.Helper()
	cfg := NewConfig(false, "", "test")
	cfg.Settings = settings
	cfg.LogOutput = io.Discard
	return cfg
}

func TestNewApplication_MissingSettings(t *testing.T) {
	settings := testSettings(t)
	settings.Domain = ""
	settings.ClientSecret = ""

	_, err := NewApplication(testConfig(t, settings), config.ModeServe)
	var missing *config.MissingError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"TENANT_DOMAIN", "OAUTH_CLIENT_SECRET"}, missing.Names)
}

func TestNewApplication_LocalNeedsOnlyDomain(t *testing.T) {
	settings := testSettings(t)
	settings.ClientID = ""
	settings.ClientSecret = ""

	a, err := NewApplication(testConfig(t, settings), config.ModeLocal)
	require.NoError(t, err)
	assert.Nil(t, a.Services().Metrics, "metrics are hosted-only")
	assert.NotZero(t, a.Services().Registry.Len())
}

func TestNewApplication_OverridesAndFilter(t *testing.T) {
	settings := testSettings(t)
	settings.MetricsEnabled = true

	cfg := testConfig(t, settings)
	cfg.Debug = true
	cfg.Override(func(c *config.Config) {
		c.ReadOnly = true
		c.Tools = []string{"auth0_*_applications", "auth0_create_application"}
	})

	a, err := NewApplication(cfg, config.ModeServe)
	require.NoError(t, err)
	defer func() { _ = a.Services().Shutdown(context.Background()) }()

	assert.Equal(t, "debug", a.Settings().LogLevel)
	assert.True(t, a.Services().Filter.ReadOnlyOnly)
	assert.NotNil(t, a.Services().Metrics)

	for _, c := range a.Services().Registry.List(a.Services().Filter) {
		assert.True(t, c.ReadOnly, c.Name)
	}
}

type rpcLine struct {
	ID     json.RawMessage `json:"id"`
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"result"`
	Error *struct {
		Code int `json:"code"`
	} `json:"error"`
}

func parseLines(t *testing.T, out string) map[string]rpcLine {
	t.Helper()
	byID := make(map[string]rpcLine)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var msg rpcLine
		require.NoError(t, json.Unmarshal([]byte(line), &msg), line)
		if len(msg.ID) > 0 {
			byID[string(msg.ID)] = msg
		}
	}
	return byID
}

func TestRunLocal_StdioRoundTrip(t *testing.T) {
	var gotAuth, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"client_id":"abc123","name":"Dashboard"}]`))
	}))
	defer upstream.Close()

	settings := testSettings(t)
	settings.ClientID = ""
	settings.ClientSecret = ""

	store, err := credential.NewStore(settings.CredentialDir)
	require.NoError(t, err)
	require.NoError(t, store.Save(&credential.Credential{Domain: testDomain, BearerToken: "stored-token"}))

	cfg := testConfig(t, settings)
	cfg.FactoryOptions = []management.FactoryOption{
		management.WithBaseURL(func(string) string { return upstream.URL + "/api/v2/" }),
	}
	a, err := NewApplication(cfg, config.ModeLocal)
	require.NoError(t, err)

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"auth0_list_applications","arguments":{"per_page":5}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"auth0_does_not_exist","arguments":{}}}`,
	}, "\n") + "\n"

	var out strings.Builder
	require.NoError(t, a.runLocal(context.Background(), strings.NewReader(in), &out))

	byID := parseLines(t, out.String())
	require.Contains(t, byID, "1")
	require.Nil(t, byID["1"].Error)

	require.Contains(t, byID, "2")
	var names []string
	for _, tool := range byID["2"].Result.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "auth0_list_applications")

	require.Contains(t, byID, "3")
	assert.False(t, byID["3"].Result.IsError)
	require.NotEmpty(t, byID["3"].Result.Content)
	assert.Contains(t, byID["3"].Result.Content[0].Text, "abc123")
	assert.Equal(t, "Bearer stored-token", gotAuth)
	assert.Equal(t, "per_page=5", gotQuery)

	require.Contains(t, byID, "4")
	assert.Nil(t, byID["4"].Error, "unknown tools are tool errors, not protocol errors")
	assert.True(t, byID["4"].Result.IsError)
	assert.Contains(t, byID["4"].Result.Content[0].Text, "auth0_does_not_exist")
}

func TestRunLocal_NoCredentialAborts(t *testing.T) {
	settings := testSettings(t)
	settings.ClientID = ""
	settings.ClientSecret = ""

	a, err := NewApplication(testConfig(t, settings), config.ModeLocal)
	require.NoError(t, err)

	err = a.runLocal(context.Background(), strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestRunServe(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	settings := testSettings(t)
	settings.PublicURL = "http://" + l.Addr().String()
	cfg := testConfig(t, settings)
	cfg.Listener = l

	a, err := NewApplication(cfg, config.ModeServe)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	base := "http://" + l.Addr().String()
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(base + "/health")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	resp, err = http.Post(base+"/mcp", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), base+"/.well-known/oauth-protected-resource")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
