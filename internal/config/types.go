package config

import (
	"time"
)

// AudiencePolicy controls how the OAuth proxy treats the audience parameter
// of an authorization request.
type AudiencePolicy string

const (
	// AudienceIfAbsent sets the management audience only when the caller did not send one.
	AudienceIfAbsent AudiencePolicy = "if-absent"
	// AudienceOverride always replaces the caller's audience.
	AudienceOverride AudiencePolicy = "override"
)

// Mode selects which required settings Validate enforces.
type Mode int

const (
	// ModeLocal is the stdio transport; only the tenant domain is required.
	ModeLocal Mode = iota
	// ModeServe is the hosted HTTP transport; OAuth client settings are required too.
	ModeServe
)

// Config holds all identity-mcp settings.
type Config struct {
	// Domain is the identity-platform tenant host, e.g. "acme.eu.auth0.com".
	Domain string
	// ClientID is the pre-provisioned OAuth client handed out by /register.
	ClientID string
	// ClientSecret belongs to ClientID. It is only used in local client-credential mode.
	ClientSecret string
	// Audience is the management API audience. Defaults to https://<domain>/api/v2/.
	Audience string
	// AudiencePolicy selects how /authorize rewrites the audience.
	AudiencePolicy AudiencePolicy

	// PublicURL is the externally reachable base URL. Derived from request headers when empty.
	PublicURL string
	// Host is the listen address.
	Host string
	// Port is the listen port.
	Port int

	// ReadOnly hides every capability that mutates tenant state.
	ReadOnly bool
	// Tools is the capability allow-list. Entries may be glob patterns.
	Tools []string

	// SessionIdleTimeout evicts hosted sessions without traffic for this long.
	SessionIdleTimeout time.Duration
	// MaxSessions bounds concurrently open hosted sessions.
	MaxSessions int
	// OperationTimeout bounds a single management API call.
	OperationTimeout time.Duration
	// ConnectTimeout bounds local startup (credential load and validation).
	ConnectTimeout time.Duration

	// RateLimitRequestsPerSec is the per-client rate on the OAuth proxy
	// endpoints. Zero disables the limit.
	RateLimitRequestsPerSec int
	// RateLimitBurst is the per-client burst on the OAuth proxy endpoints.
	RateLimitBurst int
	// RegistrationsPerIP bounds /register calls per client IP within the
	// registration window. Zero disables the limit.
	RegistrationsPerIP int
	// TrustProxy keys rate limits on X-Forwarded-For. Enable only behind a
	// reverse proxy that sets the header.
	TrustProxy bool

	// ManagementRateLimit paces management API calls per credential
	// (calls per second). Zero disables pacing.
	ManagementRateLimit float64
	// ManagementRateBurst is the burst allowed above ManagementRateLimit.
	ManagementRateBurst int

	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool
	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string

	// CredentialDir holds the local Credential Store.
	CredentialDir string
}

// Profile is the YAML document accepted by --config. Zero values leave the
// built-in default in place.
type Profile struct {
	Domain             string         `yaml:"domain,omitempty"`
	ClientID           string         `yaml:"clientId,omitempty"`
	ClientSecret       string         `yaml:"clientSecret,omitempty"`
	Audience           string         `yaml:"audience,omitempty"`
	AudiencePolicy     AudiencePolicy `yaml:"audiencePolicy,omitempty"`
	PublicURL          string         `yaml:"publicUrl,omitempty"`
	Host               string         `yaml:"host,omitempty"`
	Port               int            `yaml:"port,omitempty"`
	ReadOnly           bool           `yaml:"readOnly,omitempty"`
	Tools              []string       `yaml:"tools,omitempty"`
	SessionIdleTimeout time.Duration  `yaml:"sessionIdleTimeout,omitempty"`
	MaxSessions        int            `yaml:"maxSessions,omitempty"`
	OperationTimeout   time.Duration  `yaml:"operationTimeout,omitempty"`
	ConnectTimeout     time.Duration  `yaml:"connectTimeout,omitempty"`
	RateLimitPerSec    int            `yaml:"rateLimitPerSec,omitempty"`
	RateLimitBurst     int            `yaml:"rateLimitBurst,omitempty"`
	RegistrationsPerIP int            `yaml:"registrationsPerIp,omitempty"`
	TrustProxy         bool           `yaml:"trustProxy,omitempty"`
	ManagementRate     float64        `yaml:"managementRateLimit,omitempty"`
	ManagementBurst    int            `yaml:"managementRateBurst,omitempty"`
	MetricsEnabled     bool           `yaml:"metricsEnabled,omitempty"`
	MetricsNamespace   string         `yaml:"metricsNamespace,omitempty"`
	LogLevel           string         `yaml:"logLevel,omitempty"`
	LogFormat          string         `yaml:"logFormat,omitempty"`
	CredentialDir      string         `yaml:"credentialDir,omitempty"`
}

// ManagementBaseURL returns the management API root for the tenant.
func (c *Config) ManagementBaseURL() string {
	return "https://" + c.Domain + "/api/v2/"
}

// AuthorizeURL returns the upstream authorization endpoint.
func (c *Config) AuthorizeURL() string {
	return "https://" + c.Domain + "/authorize"
}

// TokenURL returns the upstream token endpoint.
func (c *Config) TokenURL() string {
	return "https://" + c.Domain + "/oauth/token"
}

// JWKSURL returns the upstream JSON Web Key Set location.
func (c *Config) JWKSURL() string {
	return "https://" + c.Domain + "/.well-known/jwks.json"
}
