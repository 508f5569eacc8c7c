package credential

import (
	"time"
)

// ExpiryMargin treats tokens expiring this soon as already expired.
const ExpiryMargin = 30 * time.Second

// Reason explains why a credential failed validation.
type Reason string

const (
	ReasonMissing       Reason = "missing"
	ReasonExpiredToken  Reason = "expired_token"
	ReasonMissingDomain Reason = "missing_domain"
)

// ValidationError is returned by Validate.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return "no credential is available; authenticate with `identity-mcp login` or re-authenticate the client"
	case ReasonExpiredToken:
		return "the access token has expired; re-authenticate to obtain a new one"
	case ReasonMissingDomain:
		return "no tenant domain is configured; set TENANT_DOMAIN"
	default:
		return "invalid credential: " + string(e.Reason)
	}
}

// ReasonOf extracts the Reason from a Validate error, or "" if err is not one.
func ReasonOf(err error) Reason {
	if ve, ok := err.(*ValidationError); ok {
		return ve.Reason
	}
	return ""
}

// Validate checks that c is present, has a domain, and has not expired at
// now. A client-credential pair without a bearer token is valid; a token is
// minted from it on use.
func Validate(c *Credential, now time.Time) error {
	if c == nil || (!c.HasBearer() && !c.HasClientPair()) {
		return &ValidationError{Reason: ReasonMissing}
	}
	if c.Domain == "" {
		return &ValidationError{Reason: ReasonMissingDomain}
	}
	if c.HasBearer() && IsExpired(c, now) {
		return &ValidationError{Reason: ReasonExpiredToken}
	}
	return nil
}

// IsExpired reports whether c's token expires within ExpiryMargin of now.
// Tokens without an expiry never expire.
func IsExpired(c *Credential, now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(ExpiryMargin).Before(c.ExpiresAt)
}
