package app

import (
	"context"
	"fmt"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/internal/config"
	"identity-mcp/internal/management"
	"identity-mcp/internal/metrics"
	"identity-mcp/pkg/logging"
)

// Services holds the components shared by every session.
type Services struct {
	// Registry is the full capability catalog.
	Registry *capability.Registry

	// Filter is the deployment policy (TOOLS allow-list, READ_ONLY).
	Filter capability.Filter

	// Factory builds management API clients, memoized per credential.
	Factory *management.Factory

	// Metrics is nil unless metrics are enabled in hosted mode.
	Metrics *metrics.Provider

	// Recorder receives dispatch and session observations.
	Recorder metrics.Recorder
}

// InitializeServices builds the shared services for mode.
func InitializeServices(cfg *Config, settings *config.Config, mode config.Mode) (*Services, error) {
	registry, err := capability.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load capability catalog: %w", err)
	}

	filter := capability.Filter{
		AllowedNames: settings.Tools,
		ReadOnlyOnly: settings.ReadOnly,
	}
	if len(registry.List(filter)) == 0 {
		logging.Warn(subsystem, "The tool filter excludes every capability; clients will see no tools")
	}
	for _, name := range settings.Tools {
		if _, err := registry.Resolve(name); err != nil && !isPattern(name) {
			logging.Warn(subsystem, "TOOLS entry %q does not name a known capability", name)
		}
	}

	opts := []management.FactoryOption{
		management.WithUserAgent(ServerName + "/" + cfg.Version),
		management.WithRateLimit(settings.ManagementRateLimit, settings.ManagementRateBurst),
	}
	opts = append(opts, cfg.FactoryOptions...)

	services := &Services{
		Registry: registry,
		Filter:   filter,
		Factory:  management.NewFactory(opts...),
		Recorder: metrics.NoOpRecorder{},
	}

	if mode == config.ModeServe && settings.MetricsEnabled {
		provider, err := metrics.NewProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics provider: %w", err)
		}
		recorder, err := metrics.NewRecorder(provider.MeterProvider(), settings.MetricsNamespace)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
		}
		services.Metrics = provider
		services.Recorder = recorder
		logging.Info(subsystem, "Metrics enabled under namespace %q", settings.MetricsNamespace)
	}

	return services, nil
}

// Shutdown flushes the metrics provider, if any.
func (s *Services) Shutdown(ctx context.Context) error {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.Shutdown(ctx)
}

func isPattern(name string) bool {
	for _, r := range name {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

const (
	shutdownTimeout          = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
)
