package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"identity-mcp/pkg/logging"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load resolves the configuration from defaults, the optional YAML profile at
// profilePath, a discovered .env file, and the process environment.
// It does not check required values; call Validate for that.
func Load(profilePath string) (*Config, error) {
	loadDotEnv()

	profile, err := LoadProfile(profilePath)
	if err != nil {
		return nil, err
	}

	return fromEnv(profile), nil
}

// LoadProfile reads a YAML profile on top of the built-in defaults.
// An empty path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Profile{}, fmt.Errorf("config profile %s does not exist", path)
		}
		return Profile{}, fmt.Errorf("failed to read config profile %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration profile from %s", path)
	return profile, nil
}

func fromEnv(p Profile) *Config {
	domain := NormalizeDomain(env.GetString("TENANT_DOMAIN", p.Domain))

	cfg := &Config{
		Domain:         domain,
		ClientID:       env.GetString("OAUTH_CLIENT_ID", p.ClientID),
		ClientSecret:   env.GetString("OAUTH_CLIENT_SECRET", p.ClientSecret),
		Audience:       env.GetString("MANAGEMENT_AUDIENCE", p.Audience),
		AudiencePolicy: AudiencePolicy(env.GetString("AUDIENCE_POLICY", string(p.AudiencePolicy))),

		PublicURL: strings.TrimSuffix(env.GetString("PUBLIC_SERVER_URL", p.PublicURL), "/"),
		Host:      env.GetString("HOST", p.Host),
		Port:      env.GetInt("PORT", p.Port),

		ReadOnly: env.GetBool("READ_ONLY", p.ReadOnly),
		Tools:    splitList(env.GetString("TOOLS", strings.Join(p.Tools, ","))),

		SessionIdleTimeout: env.GetDuration("SESSION_IDLE_TIMEOUT", seconds(p.SessionIdleTimeout), time.Second),
		MaxSessions:        env.GetInt("MAX_SESSIONS", p.MaxSessions),
		OperationTimeout:   env.GetDuration("OPERATION_TIMEOUT", seconds(p.OperationTimeout), time.Second),
		ConnectTimeout:     env.GetDuration("CONNECT_TIMEOUT", seconds(p.ConnectTimeout), time.Second),

		RateLimitRequestsPerSec: env.GetInt("RATE_LIMIT_REQUESTS_PER_SEC", p.RateLimitPerSec),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", p.RateLimitBurst),
		RegistrationsPerIP:      env.GetInt("RATE_LIMIT_REGISTRATIONS_PER_IP", p.RegistrationsPerIP),
		TrustProxy:              env.GetBool("TRUST_PROXY", p.TrustProxy),

		ManagementRateLimit: env.GetFloat64("MANAGEMENT_RATE_LIMIT", p.ManagementRate),
		ManagementRateBurst: env.GetInt("MANAGEMENT_RATE_BURST", p.ManagementBurst),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", p.MetricsEnabled),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", p.MetricsNamespace),

		LogLevel:  strings.ToLower(env.GetString("LOG_LEVEL", p.LogLevel)),
		LogFormat: strings.ToLower(env.GetString("LOG_FORMAT", p.LogFormat)),

		CredentialDir: env.GetString("CREDENTIAL_DIR", p.CredentialDir),
	}

	if cfg.Audience == "" && cfg.Domain != "" {
		cfg.Audience = cfg.ManagementBaseURL()
	}

	return cfg
}

// NormalizeDomain strips a scheme and trailing slashes so that
// "https://acme.auth0.com/" and "acme.auth0.com" are the same tenant.
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// loadDotEnv walks from the working directory up to the filesystem root and
// loads the first .env file it finds. Existing environment variables win.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				logging.Warn("ConfigLoader", "Failed to load %s: %v", envPath, err)
			}
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
