package credential

import (
	"fmt"
	"strings"
	"time"

	"identity-mcp/pkg/oauth"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields identity-mcp cares about.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	// Scopes merges the "scope" string claim and the "permissions" array claim.
	Scopes []string
}

// ParseClaims decodes a JWT without verifying its signature. The result is
// only used for local expiry checks and capability filtering.
func ParseClaims(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, fmt.Errorf("token is not a JWT")
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mapClaims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.Issuer, _ = mapClaims.GetIssuer()
	if aud, err := mapClaims.GetAudience(); err == nil {
		claims.Audience = aud
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	var scope []string
	if s, ok := mapClaims["scope"].(string); ok {
		scope = oauth.ParseScope(s)
	}
	var permissions []string
	if perms, ok := mapClaims["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				permissions = append(permissions, s)
			}
		}
	}
	claims.Scopes = oauth.MergeScopes(scope, permissions)

	return claims, nil
}
