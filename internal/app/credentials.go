package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"identity-mcp/internal/config"
	"identity-mcp/internal/credential"
	"identity-mcp/pkg/auth"
)

// environmentCredential returns the client pair configured in the
// environment, or nil.
func environmentCredential(s *config.Config) *credential.Credential {
	if s.ClientID == "" || s.ClientSecret == "" {
		return nil
	}
	return &credential.Credential{
		Domain:       s.Domain,
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Audience:     s.Audience,
	}
}

// LoginOptions configures Login.
type LoginOptions struct {
	ClientID     string
	ClientSecret string
	// Audience defaults to the configured management audience.
	Audience string
	// Verify requests an access token before storing anything.
	Verify bool
	// TokenURL overrides the tenant's token endpoint for verification.
	TokenURL string
	// HTTPClient is used for the verification token request.
	HTTPClient *http.Client
}

// Login stores a client-credential pair for the configured tenant. With
// Verify set, the pair must yield an access token, which is stored with it.
func Login(ctx context.Context, settings *config.Config, opts LoginOptions) (*credential.Credential, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New("both a client ID and a client secret are required")
	}

	store, err := credential.NewStore(settings.CredentialDir)
	if err != nil {
		return nil, err
	}

	cred := &credential.Credential{
		Domain:       settings.Domain,
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Audience:     opts.Audience,
	}
	if cred.Audience == "" {
		cred.Audience = settings.Audience
	}

	if opts.Verify {
		tokenURL := opts.TokenURL
		if tokenURL == "" {
			tokenURL = settings.TokenURL()
		}
		sourceOpts := []credential.StoreSourceOption{
			credential.WithFallback(cred),
			credential.WithTokenURL(tokenURL),
		}
		if opts.HTTPClient != nil {
			sourceOpts = append(sourceOpts, credential.WithHTTPClient(opts.HTTPClient))
		}
		verified, err := credential.NewStoreSource(nil, settings.Domain, sourceOpts...).Reload(ctx)
		if err != nil {
			return nil, err
		}
		if !verified.HasBearer() {
			return nil, fmt.Errorf("the client pair was rejected by %s; nothing was stored", tokenURL)
		}
		cred = verified
	}

	if err := store.Save(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Logout removes the stored credential for the configured tenant, or every
// stored credential when all is set. It returns how many were removed.
func Logout(settings *config.Config, all bool) (int, error) {
	store, err := credential.NewStore(settings.CredentialDir)
	if err != nil {
		return 0, err
	}
	if all {
		return store.Clear()
	}
	if _, err := store.Load(settings.Domain); err != nil {
		if errors.Is(err, credential.ErrNotStored) {
			return 0, nil
		}
		return 0, err
	}
	if err := store.Delete(settings.Domain); err != nil {
		return 0, err
	}
	return 1, nil
}

// Status reports the credential local mode would start with, without
// refreshing it.
func Status(settings *config.Config, now time.Time) (auth.StatusResponse, error) {
	status := auth.StatusResponse{
		Domain: settings.Domain,
		Source: auth.SourceNone,
	}

	store, err := credential.NewStore(settings.CredentialDir)
	if err != nil {
		return status, err
	}

	cred, err := store.Load(settings.Domain)
	switch {
	case err == nil:
		status.Source = auth.SourceStore
	case errors.Is(err, credential.ErrNotStored):
		cred = environmentCredential(settings)
		if cred != nil {
			status.Source = auth.SourceEnvironment
		}
	default:
		return status, err
	}

	if cred == nil {
		status.Reason = fmt.Sprintf("no credential stored for %s; run `%s login`", settings.Domain, ServerName)
		return status, nil
	}

	status.Mode = cred.Mode()
	status.ExpiresAt = cred.ExpiresAt
	status.Scopes = cred.Scopes

	if err := credential.Validate(cred, now); err != nil {
		status.Reason = err.Error()
		if credential.ReasonOf(err) == credential.ReasonExpiredToken && (cred.RefreshToken != "" || cred.HasClientPair()) {
			status.Reason += " (it will be refreshed on next use)"
		}
		return status, nil
	}
	status.Authenticated = true
	return status, nil
}
