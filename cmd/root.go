package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"identity-mcp/internal/app"
	"identity-mcp/internal/config"
	"identity-mcp/internal/credential"
	"identity-mcp/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable credential is available.
	ExitCodeAuthRequired = 2
	// ExitCodeConfig indicates missing or invalid configuration.
	ExitCodeConfig = 3
)

// Persistent flags shared by every command.
var (
	// profilePath is an optional YAML profile. Environment variables
	// override its values.
	profilePath string

	// debug enables verbose logging across the application.
	debug bool
)

// rootCmd represents the base command for identity-mcp.
var rootCmd = &cobra.Command{
	Use:   "identity-mcp",
	Short: "Expose identity-platform management operations to AI agents over MCP",
	Long: `identity-mcp exposes administrative operations against an identity platform
tenant (applications, APIs, actions, logs, forms) to AI-agent clients through
the Model Context Protocol.

It runs in one of two modes:

  identity-mcp run     one session over stdio, for a local agent
  identity-mcp serve   multi-session streamable HTTP at /mcp, with an OAuth
                       proxy and discovery documents for remote agents

Configuration comes from the environment (TENANT_DOMAIN, OAUTH_CLIENT_ID,
OAUTH_CLIENT_SECRET, ...), an optional .env file and an optional --config
YAML profile.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "identity-mcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var missing *config.MissingError
	if errors.As(err, &missing) {
		return ExitCodeConfig
	}

	var invalid *config.InvalidError
	if errors.As(err, &invalid) {
		return ExitCodeConfig
	}

	var credErr *credential.ValidationError
	if errors.As(err, &credErr) {
		return ExitCodeAuthRequired
	}

	return ExitCodeError
}

// newAppConfig builds the application configuration from the persistent
// flags.
func newAppConfig() *app.Config {
	return app.NewConfig(debug, profilePath, GetVersion())
}

// loadSettings loads settings without starting anything, for the offline
// commands. The tenant domain is always required.
func loadSettings(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg := newAppConfig()
	for _, o := range overrides {
		cfg.Override(o)
	}
	settings, err := app.LoadSettings(cfg)
	if err != nil {
		return nil, err
	}
	initCLILogging(os.Stderr, settings)
	if settings.Domain == "" {
		return nil, &config.MissingError{Names: []string{"TENANT_DOMAIN"}}
	}
	return settings, nil
}

// initCLILogging sets up text logging for the offline commands. --debug
// wins over LOG_LEVEL.
func initCLILogging(w io.Writer, settings *config.Config) {
	level := logging.ParseLevel(settings.LogLevel)
	if debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, w)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "config", "", "YAML profile with default settings (environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}
