package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultPort               = 3000
	DefaultHost               = "0.0.0.0"
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultMaxSessions        = 10000
	DefaultOperationTimeout   = 30 * time.Second
	DefaultConnectTimeout     = 10 * time.Second
	DefaultRateLimitPerSec    = 5
	DefaultRateLimitBurst     = 10
	DefaultRegistrationsPerIP = 10
	DefaultManagementRate     = 10.0
	DefaultManagementBurst    = 20
	DefaultMetricsNamespace   = "identity_mcp"

	userConfigDir = ".config/identity-mcp"
)

// DefaultProfile returns the built-in defaults as a profile.
func DefaultProfile() Profile {
	return Profile{
		AudiencePolicy:     AudienceIfAbsent,
		Host:               DefaultHost,
		Port:               DefaultPort,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
		MaxSessions:        DefaultMaxSessions,
		OperationTimeout:   DefaultOperationTimeout,
		ConnectTimeout:     DefaultConnectTimeout,
		RateLimitPerSec:    DefaultRateLimitPerSec,
		RateLimitBurst:     DefaultRateLimitBurst,
		RegistrationsPerIP: DefaultRegistrationsPerIP,
		ManagementRate:     DefaultManagementRate,
		ManagementBurst:    DefaultManagementBurst,
		MetricsNamespace:   DefaultMetricsNamespace,
		LogLevel:           "info",
		LogFormat:          "text",
		CredentialDir:      DefaultCredentialDir(),
	}
}

// DefaultCredentialDir returns ~/.config/identity-mcp, or a relative
// directory when the home directory cannot be determined.
func DefaultCredentialDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return userConfigDir
	}
	return filepath.Join(homeDir, userConfigDir)
}
