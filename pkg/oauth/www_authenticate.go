package oauth

import (
	"fmt"
	"strings"
)

// AuthChallenge represents the parameters of a Bearer WWW-Authenticate header.
type AuthChallenge struct {
	// Scheme is the authentication scheme (typically "Bearer").
	Scheme string

	// Realm is the protection realm.
	Realm string

	// ResourceMetadataURL points at the RFC 9728 protected resource metadata.
	ResourceMetadataURL string

	// Scope is the space-separated list of required OAuth scopes.
	Scope string

	// Error is the error code (invalid_token, insufficient_scope, ...).
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// String renders the challenge as a WWW-Authenticate header value.
//
//	Bearer resource_metadata="https://mcp.example.com/.well-known/oauth-protected-resource", error="invalid_token"
func (c AuthChallenge) String() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}

	var params []string
	add := func(key, value string) {
		if value != "" {
			params = append(params, fmt.Sprintf(`%s="%s"`, key, strings.ReplaceAll(value, `"`, `'`)))
		}
	}
	add("realm", c.Realm)
	add("resource_metadata", c.ResourceMetadataURL)
	add("scope", c.Scope)
	add("error", c.Error)
	add("error_description", c.ErrorDescription)

	if len(params) == 0 {
		return scheme
	}
	return scheme + " " + strings.Join(params, ", ")
}
