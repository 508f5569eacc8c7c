package credential

import (
	"strings"
	"time"

	"identity-mcp/pkg/oauth"

	"golang.org/x/oauth2"
)

// Credential modes reported by Mode.
const (
	ModeToken             = "token"
	ModeClientCredentials = "client_credentials"
)

// Credential authorizes calls to one tenant's management API. Either
// BearerToken or the ClientID/ClientSecret pair is set.
type Credential struct {
	BearerToken  string
	RefreshToken string
	Domain       string
	ClientID     string
	ClientSecret string
	// Audience is requested when minting tokens from the client pair.
	Audience string
	// Scopes are the scopes granted to BearerToken.
	Scopes []string
	// ExpiresAt is zero when the token carries no expiry.
	ExpiresAt time.Time
}

// HasBearer reports whether a bearer token is present.
func (c *Credential) HasBearer() bool {
	return c != nil && c.BearerToken != ""
}

// HasClientPair reports whether a complete client-credential pair is present.
func (c *Credential) HasClientPair() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// Mode returns ModeToken when a bearer token is present, else
// ModeClientCredentials.
func (c *Credential) Mode() string {
	if c.HasBearer() {
		return ModeToken
	}
	return ModeClientCredentials
}

// FromBearer builds a credential from a presented bearer token. Expiry and
// scopes come from the token's claims when it is a JWT.
func FromBearer(token, domain string) *Credential {
	c := &Credential{
		BearerToken: token,
		Domain:      domain,
	}
	if claims, err := ParseClaims(token); err == nil {
		c.ExpiresAt = claims.ExpiresAt
		c.Scopes = claims.Scopes
	}
	return c
}

// WithToken returns a copy of c carrying tok. Scopes come from the token
// response's scope field, then from the token's claims.
func (c *Credential) WithToken(tok *oauth2.Token) *Credential {
	next := *c
	next.BearerToken = tok.AccessToken
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	next.ExpiresAt = tok.Expiry
	next.Scopes = nil

	if scope, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(scope) != "" {
		next.Scopes = oauth.ParseScope(scope)
	}

	if claims, err := ParseClaims(tok.AccessToken); err == nil {
		if next.ExpiresAt.IsZero() {
			next.ExpiresAt = claims.ExpiresAt
		}
		next.Scopes = oauth.MergeScopes(next.Scopes, claims.Scopes)
	}
	return &next
}
