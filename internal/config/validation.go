package config

import (
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
)

// Validate checks required values for the given mode and then the format of
// every optional value. Missing values are reported before format errors.
func (c *Config) Validate(mode Mode) error {
	var missing []string
	if c.Domain == "" {
		missing = append(missing, "TENANT_DOMAIN")
	}
	if mode == ModeServe {
		if c.ClientID == "" {
			missing = append(missing, "OAUTH_CLIENT_ID")
		}
		if c.ClientSecret == "" {
			missing = append(missing, "OAUTH_CLIENT_SECRET")
		}
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}

	err := validation.ValidateStruct(c,
		validation.Field(&c.Domain, is.Host.Error("TENANT_DOMAIN must be a host name")),
		validation.Field(&c.Audience, is.URL.Error("MANAGEMENT_AUDIENCE must be a URL")),
		validation.Field(&c.PublicURL, is.URL.Error("PUBLIC_SERVER_URL must be a URL")),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.AudiencePolicy,
			validation.In(AudienceIfAbsent, AudienceOverride).Error("AUDIENCE_POLICY must be if-absent or override")),
		validation.Field(&c.MaxSessions, validation.Required.Error("MAX_SESSIONS must be positive"), validation.Min(1)),
		validation.Field(&c.RateLimitRequestsPerSec, validation.Min(0)),
		validation.Field(&c.RateLimitBurst, validation.Min(0)),
		validation.Field(&c.RegistrationsPerIP, validation.Min(0)),
		validation.Field(&c.ManagementRateLimit, validation.Min(0.0)),
		validation.Field(&c.ManagementRateBurst, validation.Min(0)),
		validation.Field(&c.OperationTimeout, validation.Min(int64(0)).Exclusive()),
		validation.Field(&c.ConnectTimeout, validation.Min(int64(0)).Exclusive()),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In("text", "json")),
	)
	if err != nil {
		return &InvalidError{Err: err}
	}
	return nil
}
