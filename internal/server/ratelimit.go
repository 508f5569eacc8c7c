package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/giantswarm/mcp-oauth/security"

	"identity-mcp/pkg/logging"
)

// limiters holds the OAuth proxy rate limiters. A nil field disables that
// limit.
type limiters struct {
	ip           *security.RateLimiter
	registration *security.ClientRegistrationRateLimiter
	trustProxy   bool
	stopOnce     sync.Once
}

func newLimiters(cfg Config) *limiters {
	l := &limiters{trustProxy: cfg.TrustProxy}
	logger := logging.Logger()
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		l.ip = security.NewRateLimiter(cfg.RateLimit, burst, logger)
	}
	if cfg.RegistrationsPerIP > 0 {
		l.registration = security.NewClientRegistrationRateLimiterWithConfig(
			cfg.RegistrationsPerIP,
			security.DefaultRegistrationWindow,
			security.DefaultMaxRegistrationEntries,
			logger,
		)
	}
	return l
}

// stop ends the limiters' cleanup goroutines.
func (l *limiters) stop() {
	l.stopOnce.Do(func() {
		if l.ip != nil {
			l.ip.Stop()
		}
		if l.registration != nil {
			l.registration.Stop()
		}
	})
}

// clientIP returns the peer address. The first X-Forwarded-For hop is used
// only when the server runs behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := firstHeaderValue(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
