package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"identity-mcp/internal/config"
	"identity-mcp/pkg/logging"
)

const subsystem = "Bootstrap"

// Application represents the main application structure that bootstraps and
// runs identity-mcp in one mode.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "", version)
//	application, err := app.NewApplication(cfg, config.ModeServe)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	settings *config.Config
	mode     config.Mode
	services *Services
}

// NewApplication loads and validates settings for mode, initializes logging
// and builds the shared services.
func NewApplication(cfg *Config, mode config.Mode) (*Application, error) {
	settings, err := LoadSettings(cfg)
	if err != nil {
		return nil, err
	}

	initLogging(cfg, settings, mode)

	if err := settings.Validate(mode); err != nil {
		return nil, err
	}

	services, err := InitializeServices(cfg, settings, mode)
	if err != nil {
		logging.Error(subsystem, err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logging.Info(subsystem, "identity-mcp %s starting for tenant %s (%d tools exposed)",
		cfg.Version, settings.Domain, len(services.Registry.List(services.Filter)))

	return &Application{
		config:   cfg,
		settings: settings,
		mode:     mode,
		services: services,
	}, nil
}

// LoadSettings loads settings as NewApplication does, without validating
// them or touching logging. The CLI's offline commands use it directly.
func LoadSettings(cfg *Config) (*config.Config, error) {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load(cfg.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		settings = loaded
	}
	for _, override := range cfg.Overrides {
		override(settings)
	}
	if cfg.Debug {
		settings.LogLevel = "debug"
	}
	return settings, nil
}

func initLogging(cfg *Config, settings *config.Config, mode config.Mode) {
	var output io.Writer = os.Stdout
	if mode == config.ModeLocal {
		output = os.Stderr
	}
	if cfg.LogOutput != nil {
		output = cfg.LogOutput
	}
	logging.Init(logging.ParseLevel(settings.LogLevel), logging.Format(settings.LogFormat), output)
}

// Settings returns the validated settings.
func (a *Application) Settings() *config.Config {
	return a.settings
}

// Services returns the shared services.
func (a *Application) Services() *Services {
	return a.services
}

// Run executes the application until ctx is cancelled, SIGINT or SIGTERM
// arrives, or the transport fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.services.Shutdown(shutdownCtx); err != nil {
			logging.Warn(subsystem, "Service shutdown: %v", err)
		}
	}()

	if a.mode == config.ModeLocal {
		return a.runLocal(ctx, os.Stdin, os.Stdout)
	}
	return a.runServe(ctx)
}
