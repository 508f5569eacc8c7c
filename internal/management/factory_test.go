package management

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_BearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"client_id":"a"}`)
	}))
	defer srv.Close()

	f := NewFactory(
		WithBaseURL(func(string) string { return srv.URL + "/api/v2/" }),
		WithHTTPClient(srv.Client()),
	)

	client, err := f.Client(context.Background(), Credentials{Domain: "acme.auth0.com", Token: "tok-123"})
	require.NoError(t, err)

	resp, err := client.Do(context.Background(), Call{Method: http.MethodGet, Path: "clients/a"})
	require.NoError(t, err)
	assert.Equal(t, KindObject, resp.Kind)
}

func TestFactory_ClientCredentials(t *testing.T) {
	var tokenRequests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "https://acme.auth0.com/api/v2/", r.PostForm.Get("audience"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"cc-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/api/v2/clients", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cc-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFactory(
		WithBaseURL(func(string) string { return srv.URL + "/api/v2/" }),
		WithTokenURL(func(string) string { return srv.URL + "/oauth/token" }),
		WithHTTPClient(srv.Client()),
	)

	creds := Credentials{
		Domain:       "acme.auth0.com",
		ClientID:     "cid",
		ClientSecret: "secret",
		Audience:     "https://acme.auth0.com/api/v2/",
	}
	client, err := f.Client(context.Background(), creds)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := client.Do(context.Background(), Call{Method: http.MethodGet, Path: "clients"})
		require.NoError(t, err)
		assert.Equal(t, KindList, resp.Kind)
	}
	assert.Equal(t, int32(1), tokenRequests.Load(), "token should be cached by the token source")
}

func TestFactory_Memoizes(t *testing.T) {
	f := NewFactory(WithMaxCachedClients(2))
	ctx := context.Background()

	a1, err := f.Client(ctx, Credentials{Domain: "acme.auth0.com", Token: "a"})
	require.NoError(t, err)
	a2, err := f.Client(ctx, Credentials{Domain: "acme.auth0.com", Token: "a"})
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	b, err := f.Client(ctx, Credentials{Domain: "acme.auth0.com", Token: "b"})
	require.NoError(t, err)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, f.Len())

	_, err = f.Client(ctx, Credentials{Domain: "other.auth0.com", Token: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len(), "memo should reset when full")
}

func TestFactory_NoCredential(t *testing.T) {
	f := NewFactory()

	_, err := f.Client(context.Background(), Credentials{Domain: "acme.auth0.com"})
	assert.ErrorIs(t, err, ErrNoCredential)

	_, err = f.Client(context.Background(), Credentials{Domain: "acme.auth0.com", ClientID: "only-id"})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestFactory_RateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	f := NewFactory(
		WithBaseURL(func(string) string { return srv.URL + "/api/v2/" }),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0.5, 1),
	)
	client, err := f.Client(context.Background(), Credentials{Domain: "acme.auth0.com", Token: "tok"})
	require.NoError(t, err)

	_, err = client.Do(context.Background(), Call{Method: http.MethodGet, Path: "tenants/settings"})
	require.NoError(t, err)

	// The next token is two seconds away; a shorter deadline fails without a request.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Do(ctx, Call{Method: http.MethodGet, Path: "tenants/settings"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), err)
	assert.Equal(t, int32(1), calls.Load())

	// Clients for other credentials have their own budget.
	other, err := f.Client(context.Background(), Credentials{Domain: "acme.auth0.com", Token: "tok-2"})
	require.NoError(t, err)
	_, err = other.Do(context.Background(), Call{Method: http.MethodGet, Path: "tenants/settings"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
