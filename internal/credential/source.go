package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"identity-mcp/pkg/logging"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// Source provides the credential a dispatcher calls the management API with.
type Source interface {
	// Current returns the held credential without any I/O. It may be nil.
	Current() *Credential
	// Reload re-reads the credential from its origin, refreshing it when
	// possible, and returns the new value.
	Reload(ctx context.Context) (*Credential, error)
}

// StaticSource holds a credential captured once, e.g. from a hosted
// session's bearer token. Reload returns the same value.
type StaticSource struct {
	cred *Credential
}

// NewStaticSource wraps c.
func NewStaticSource(c *Credential) *StaticSource {
	return &StaticSource{cred: c}
}

func (s *StaticSource) Current() *Credential {
	return s.cred
}

func (s *StaticSource) Reload(context.Context) (*Credential, error) {
	return s.cred, nil
}

// StoreSourceOption configures a StoreSource.
type StoreSourceOption func(*StoreSource)

// WithFallback sets the credential used when the store holds none for the
// domain, typically a client pair from the environment.
func WithFallback(c *Credential) StoreSourceOption {
	return func(s *StoreSource) {
		s.fallback = c
	}
}

// WithTokenURL overrides the token endpoint used for refreshing.
func WithTokenURL(url string) StoreSourceOption {
	return func(s *StoreSource) {
		s.tokenURL = url
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) StoreSourceOption {
	return func(s *StoreSource) {
		s.httpClient = client
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreSourceOption {
	return func(s *StoreSource) {
		s.now = now
	}
}

// StoreSource serves the local transport's process-wide credential.
type StoreSource struct {
	store      *Store
	domain     string
	fallback   *Credential
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time

	current atomic.Pointer[Credential]
	group   singleflight.Group
}

// NewStoreSource creates a source for domain backed by store. The source is
// empty until the first Reload.
func NewStoreSource(store *Store, domain string, opts ...StoreSourceOption) *StoreSource {
	s := &StoreSource{
		store:    store,
		domain:   domain,
		tokenURL: "https://" + domain + "/oauth/token",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StoreSource) Current() *Credential {
	return s.current.Load()
}

// Invalidate drops the held credential so the next validation forces a
// Reload. It is called when the store file changes on disk.
func (s *StoreSource) Invalidate() {
	s.current.Store(nil)
	logging.Debug("CredentialSource", "Cached credential for %s invalidated", s.domain)
}

// Reload reads the store, refreshes an expired token when a refresh token or
// client pair allows it, writes the refreshed credential back, and replaces
// the held value. Concurrent calls share one reload.
func (s *StoreSource) Reload(ctx context.Context) (*Credential, error) {
	v, err, shared := s.group.Do("reload", func() (any, error) {
		return s.reload(ctx)
	})
	if shared {
		logging.Debug("CredentialSource", "Joined in-flight credential reload for %s", s.domain)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

func (s *StoreSource) reload(ctx context.Context) (*Credential, error) {
	cred, fromStore, err := s.load()
	if err != nil {
		return nil, err
	}

	if cred != nil && s.needsToken(cred) {
		refreshed, err := s.refresh(ctx, cred)
		if err != nil {
			logging.Audit(logging.AuditEvent{
				Action:  "credential_reload",
				Outcome: "failure",
				Target:  s.domain,
				Details: err.Error(),
			})
			// Keep the stale value so validation reports it as expired.
			s.current.Store(cred)
			return cred, nil
		}
		cred = refreshed
		if fromStore {
			if err := s.store.Save(cred); err != nil {
				logging.Warn("CredentialSource", "Refreshed credential could not be written back: %v", err)
			}
		}
	}

	s.current.Store(cred)
	logging.Audit(logging.AuditEvent{
		Action:  "credential_reload",
		Outcome: "success",
		Target:  s.domain,
		Details: fmt.Sprintf("present=%t", cred != nil),
	})
	return cred, nil
}

// load returns the stored credential, or the fallback when none is stored.
func (s *StoreSource) load() (*Credential, bool, error) {
	if s.store != nil {
		cred, err := s.store.Load(s.domain)
		switch {
		case err == nil:
			if cred.Domain == "" {
				cred.Domain = s.domain
			}
			return cred, true, nil
		case !errors.Is(err, ErrNotStored):
			return nil, false, err
		}
	}
	return s.fallback, false, nil
}

// needsToken reports whether a new access token should be requested: the
// current one is expired, or only a client pair is held.
func (s *StoreSource) needsToken(c *Credential) bool {
	if c.HasBearer() {
		return IsExpired(c, s.now()) && (c.RefreshToken != "" || c.HasClientPair())
	}
	return c.HasClientPair()
}

func (s *StoreSource) refresh(ctx context.Context, c *Credential) (*Credential, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	var (
		tok *oauth2.Token
		err error
	)
	if c.RefreshToken != "" {
		cfg := &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  s.tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
		// An already-expired token forces the source to use the refresh token.
		tok, err = cfg.TokenSource(ctx, &oauth2.Token{
			RefreshToken: c.RefreshToken,
			Expiry:       time.Unix(1, 0),
		}).Token()
	} else {
		cfg := clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     s.tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		if c.Audience != "" {
			cfg.EndpointParams = map[string][]string{"audience": {c.Audience}}
		}
		tok, err = cfg.Token(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	logging.Info("CredentialSource", "Obtained a new access token for %s (expires %s)",
		c.Domain, tok.Expiry.Format(time.RFC3339))
	return c.WithToken(tok), nil
}
