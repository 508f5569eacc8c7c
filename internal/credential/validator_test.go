package credential

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred *Credential
		want Reason
	}{
		{name: "nil", cred: nil, want: ReasonMissing},
		{name: "empty", cred: &Credential{Domain: "acme.auth0.com"}, want: ReasonMissing},
		{name: "half a client pair", cred: &Credential{Domain: "acme.auth0.com", ClientID: "id"}, want: ReasonMissing},
		{name: "no domain", cred: &Credential{BearerToken: "tok"}, want: ReasonMissingDomain},
		{
			name: "expired",
			cred: &Credential{BearerToken: "tok", Domain: "acme.auth0.com", ExpiresAt: now.Add(-time.Minute)},
			want: ReasonExpiredToken,
		},
		{
			name: "expires within margin",
			cred: &Credential{BearerToken: "tok", Domain: "acme.auth0.com", ExpiresAt: now.Add(10 * time.Second)},
			want: ReasonExpiredToken,
		},
		{
			name: "valid",
			cred: &Credential{BearerToken: "tok", Domain: "acme.auth0.com", ExpiresAt: now.Add(time.Hour)},
		},
		{
			name: "no expiry",
			cred: &Credential{BearerToken: "tok", Domain: "acme.auth0.com"},
		},
		{
			name: "client pair only",
			cred: &Credential{ClientID: "id", ClientSecret: "secret", Domain: "acme.auth0.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cred, now)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.want, ve.Reason)
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}

func TestValidationError_Messages(t *testing.T) {
	assert.Contains(t, (&ValidationError{Reason: ReasonExpiredToken}).Error(), "re-authenticate")
	assert.Contains(t, (&ValidationError{Reason: ReasonMissing}).Error(), "re-authenticate")
	assert.Contains(t, (&ValidationError{Reason: ReasonMissingDomain}).Error(), "TENANT_DOMAIN")
	assert.Equal(t, Reason(""), ReasonOf(errors.New("other")))
}

func TestCredential_Mode(t *testing.T) {
	assert.Equal(t, ModeToken, (&Credential{BearerToken: "x", ClientID: "a", ClientSecret: "b"}).Mode())
	assert.Equal(t, ModeClientCredentials, (&Credential{ClientID: "a", ClientSecret: "b"}).Mode())
	assert.False(t, (*Credential)(nil).HasBearer())
	assert.False(t, (*Credential)(nil).HasClientPair())
}
