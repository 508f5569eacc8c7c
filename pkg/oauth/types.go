package oauth

import (
	"strings"
)

// Scopes every authorization request is widened with.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// AuthorizationServerMetadata represents OAuth 2.0 Authorization Server Metadata as defined in RFC 8414.
type AuthorizationServerMetadata struct {
	// Issuer is the authorization server's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint"`

	// RegistrationEndpoint is the URL for dynamic client registration.
	RegistrationEndpoint string `json:"registration_endpoint,omitempty"`

	// JwksURI is the URL of the JSON Web Key Set.
	JwksURI string `json:"jwks_uri,omitempty"`

	// ScopesSupported lists the OAuth 2.0 scope values supported.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResponseTypesSupported lists the response_type values supported.
	ResponseTypesSupported []string `json:"response_types_supported"`

	// ResponseModesSupported lists the response_mode values supported.
	ResponseModesSupported []string `json:"response_modes_supported,omitempty"`

	// GrantTypesSupported lists the grant types supported.
	GrantTypesSupported []string `json:"grant_types_supported,omitempty"`

	// TokenEndpointAuthMethodsSupported lists the client authentication methods.
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods.
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`

	// IDTokenSigningAlgValuesSupported lists the JWS algorithms used for ID tokens.
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// ProtectedResourceMetadata represents OAuth 2.0 Protected Resource Metadata as defined in RFC 9728.
type ProtectedResourceMetadata struct {
	// Resource is the protected resource's identifier.
	Resource string `json:"resource"`

	// AuthorizationServers lists issuers that can issue tokens for this resource.
	AuthorizationServers []string `json:"authorization_servers"`

	// ScopesSupported lists the scopes used to request access to the resource.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// BearerMethodsSupported lists how bearer tokens may be presented.
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`

	// ResourceName is a human-readable name of the resource.
	ResourceName string `json:"resource_name,omitempty"`
}

// ClientRegistrationResponse is the RFC 7591 dynamic client registration response.
type ClientRegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ErrorResponse is the RFC 6749 section 5.2 error body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ParseScope splits a space-delimited scope string.
func ParseScope(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

// MergeScopes returns the union of the given scope lists in first-seen order,
// without duplicates or empty entries.
func MergeScopes(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, list := range lists {
		for _, scope := range list {
			scope = strings.TrimSpace(scope)
			if scope == "" {
				continue
			}
			if _, ok := seen[scope]; ok {
				continue
			}
			seen[scope] = struct{}{}
			merged = append(merged, scope)
		}
	}
	return merged
}

// HasAllScopes reports whether granted contains every scope in required.
func HasAllScopes(granted, required []string) bool {
	return len(MissingScopes(granted, required)) == 0
}

// MissingScopes returns the entries of required that are not in granted.
func MissingScopes(granted, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	var missing []string
	for _, s := range required {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}
