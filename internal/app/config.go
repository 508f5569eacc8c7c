package app

import (
	"io"
	"net"

	"identity-mcp/internal/config"
	"identity-mcp/internal/management"
)

// ServerName is announced to MCP clients in the initialize result.
const ServerName = "identity-mcp"

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of LOG_LEVEL.
	Debug bool

	// ProfilePath is the optional YAML profile passed with --config.
	ProfilePath string

	// Version is reported by /health and in the MCP initialize result.
	Version string

	// Overrides apply command-line flags on top of the loaded settings.
	Overrides []func(*config.Config)

	// Settings, when set, is used instead of loading from the environment.
	Settings *config.Config

	// LogOutput overrides the mode's default log destination.
	LogOutput io.Writer

	// Listener, when set, is used by hosted mode instead of listening on
	// HOST:PORT.
	Listener net.Listener

	// FactoryOptions are passed to the management client factory.
	FactoryOptions []management.FactoryOption
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, profilePath, version string) *Config {
	return &Config{
		Debug:       debug,
		ProfilePath: profilePath,
		Version:     version,
	}
}

// Override registers fn to run on the loaded settings before validation.
func (c *Config) Override(fn func(*config.Config)) *Config {
	c.Overrides = append(c.Overrides, fn)
	return c
}
