package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"identity-mcp/internal/config"
	"identity-mcp/internal/metrics"
	"identity-mcp/internal/session"
	"identity-mcp/pkg/logging"
	"identity-mcp/pkg/oauth"
)

const subsystem = "HTTPServer"

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultUpstreamTimeout bounds a /token relay.
	DefaultUpstreamTimeout = 30 * time.Second

	// maxProxyBodyBytes bounds /token and /register request bodies.
	maxProxyBodyBytes = 1 << 20

	// discoveryCacheControl is set on both metadata documents.
	discoveryCacheControl = "public, max-age=3600"
)

// Config configures the HTTP surface.
type Config struct {
	// Domain is the tenant domain reported by /health.
	Domain string
	// ClientID is returned by /register.
	ClientID string
	// Audience is the management API audience injected into /authorize.
	Audience string
	// AudiencePolicy selects how /authorize treats a caller-supplied audience.
	AudiencePolicy config.AudiencePolicy
	// PublicURL is the externally reachable base URL. When empty it is
	// derived per request from X-Forwarded-Proto, X-Forwarded-Host and Host.
	PublicURL string
	// RequiredScopes are added to every authorization request and advertised
	// in discovery.
	RequiredScopes []string
	// Version is reported by /health.
	Version string

	// Upstream endpoints.
	AuthorizeURL string
	TokenURL     string
	JWKSURL      string

	// RateLimit (requests per second) and RateBurst configure the per-IP
	// limiter on /authorize, /token and /register. A zero RateLimit disables
	// limiting.
	RateLimit int
	RateBurst int
	// RegistrationsPerIP bounds /register calls per IP within the
	// registration window. Zero disables the limit.
	RegistrationsPerIP int
	// TrustProxy keys rate limits on the first X-Forwarded-For hop instead
	// of the peer address.
	TrustProxy bool

	// HTTPClient performs the /token relay. Defaults to a client with
	// DefaultUpstreamTimeout.
	HTTPClient *http.Client

	// Metrics, when set, serves /metrics and instruments every request.
	Metrics          *metrics.Provider
	MetricsNamespace string
}

// HTTPServer serves the OAuth proxy, discovery documents and MCP sessions.
type HTTPServer struct {
	cfg        Config
	sessions   http.Handler
	limiters   *limiters
	httpClient *http.Client
	httpServer *http.Server
}

// New creates the HTTP surface. sessions handles authenticated /mcp traffic.
func New(cfg Config, sessions http.Handler) (*HTTPServer, error) {
	if sessions == nil {
		return nil, fmt.Errorf("a session handler is required")
	}
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("upstream authorize and token URLs are required")
	}
	if cfg.AudiencePolicy == "" {
		cfg.AudiencePolicy = config.AudienceIfAbsent
	}
	if cfg.PublicURL != "" {
		cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
		if err := validateHTTPSRequirement(cfg.PublicURL); err != nil {
			return nil, err
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}

	return &HTTPServer{
		cfg:        cfg,
		sessions:   sessions,
		limiters:   newLimiters(cfg),
		httpClient: client,
	}, nil
}

// Handler returns the complete HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	get := []string{http.MethodGet, http.MethodHead}
	discovery := []string{http.MethodGet}

	mux.Handle("/.well-known/oauth-authorization-server",
		allowedMethods(discovery, http.HandlerFunc(s.serveAuthorizationServerMetadata)))
	mux.Handle("/.well-known/oauth-protected-resource",
		allowedMethods(discovery, http.HandlerFunc(s.serveProtectedResourceMetadata)))
	// Some clients append the resource path to the well-known URI (RFC 9728 section 3.1).
	mux.Handle("/.well-known/oauth-protected-resource/mcp",
		allowedMethods(discovery, http.HandlerFunc(s.serveProtectedResourceMetadata)))

	mux.Handle("/register", s.limitIP(s.limitRegistration(
		allowedMethods([]string{http.MethodPost}, http.HandlerFunc(s.serveRegister)))))
	mux.Handle("/authorize", s.limitIP(
		allowedMethods([]string{http.MethodGet}, http.HandlerFunc(s.serveAuthorize))))
	mux.Handle("/token", s.limitIP(
		allowedMethods([]string{http.MethodPost}, http.HandlerFunc(s.serveToken))))

	mux.Handle("/mcp", allowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete},
		s.requireBearer(s.sessions)))

	mux.Handle("/health", allowedMethods(get, http.HandlerFunc(s.serveHealth)))

	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", allowedMethods(get, s.cfg.Metrics.Handler()))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeOAuthError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})

	var h http.Handler = mux
	if s.cfg.Metrics != nil {
		h = metrics.HTTPMiddleware(s.cfg.Metrics.MeterProvider(), s.cfg.MetricsNamespace, h)
	}
	return corsMiddleware(h)
}

// Serve accepts connections on l until Shutdown is called.
func (s *HTTPServer) Serve(l net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	logging.Info(subsystem, "Listening on %s", l.Addr())
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and stops the rate limiters.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	defer s.limiters.stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *HTTPServer) limitIP(next http.Handler) http.Handler {
	if s.limiters.ip == nil {
		return next
	}
	return rateLimitMiddleware(s.limiters.ip, s.limiters.trustProxy, next)
}

func (s *HTTPServer) limitRegistration(next http.Handler) http.Handler {
	if s.limiters.registration == nil {
		return next
	}
	return rateLimitMiddleware(s.limiters.registration, s.limiters.trustProxy, next)
}

func (s *HTTPServer) serveHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
		"domain":  s.cfg.Domain,
	})
}

// requireBearer answers requests without a bearer token with 401 and a
// challenge pointing at the protected resource metadata.
func (s *HTTPServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.BearerToken(r) == "" {
			challenge := oauth.AuthChallenge{
				ResourceMetadataURL: s.publicURL(r) + "/.well-known/oauth-protected-resource",
			}
			w.Header().Set("WWW-Authenticate", challenge.String())
			writeOAuthError(w, http.StatusUnauthorized, "unauthorized",
				"missing bearer token; obtain one through the OAuth flow")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// publicURL returns the configured public URL or derives it from the
// request's forwarding headers.
func (s *HTTPServer) publicURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}

	host := r.Host
	if fwd := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// validateHTTPSRequirement rejects plain-HTTP public URLs except on loopback.
func validateHTTPSRequirement(publicURL string) error {
	u, err := url.Parse(publicURL)
	if err != nil {
		return fmt.Errorf("invalid public URL: %w", err)
	}
	if u.Scheme == "https" {
		return nil
	}
	if u.Scheme != "http" {
		return fmt.Errorf("public URL must use https, got %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("public URL must use https for non-loopback hosts, got %s", publicURL)
}
