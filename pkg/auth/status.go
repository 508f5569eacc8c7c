package auth

import "time"

// Credential sources reported by StatusResponse.Source.
const (
	SourceStore       = "store"
	SourceEnvironment = "environment"
	SourceNone        = "none"
)

// StatusResponse describes the credential held by a local identity-mcp
// process. It is rendered by the status command and logged at startup.
type StatusResponse struct {
	// Authenticated is true when the credential passes validation.
	Authenticated bool `json:"authenticated"`

	// Domain is the tenant the credential belongs to.
	Domain string `json:"domain"`

	// Source is where the credential was loaded from.
	Source string `json:"source"`

	// Mode is "token" or "client_credentials".
	Mode string `json:"mode,omitempty"`

	// ExpiresAt is zero when the credential carries no expiry.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Scopes are the scopes granted to the credential.
	Scopes []string `json:"scopes,omitempty"`

	// Reason explains why Authenticated is false.
	Reason string `json:"reason,omitempty"`
}

// ExpiresIn returns the time remaining before expiry, or zero when the
// credential has no expiry or is already expired.
func (s StatusResponse) ExpiresIn(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() || !s.ExpiresAt.After(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
