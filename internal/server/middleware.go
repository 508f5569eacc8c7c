package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"identity-mcp/pkg/logging"
	"identity-mcp/pkg/oauth"
)

const (
	corsAllowMethods  = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders  = "Authorization, Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID"
	corsExposeHeaders = "Mcp-Session-Id, WWW-Authenticate"
)

// corsMiddleware sets permissive CORS headers on every response and answers
// preflight requests with 204.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allowedMethods rejects every other verb with a JSON 405.
func allowedMethods(methods []string, next http.Handler) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		writeOAuthError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			r.Method+" is not supported on "+r.URL.Path)
	})
}

// allower is satisfied by the security package's rate limiters.
type allower interface {
	Allow(identifier string) bool
}

// rateLimitMiddleware rejects clients that exceed their per-IP limit.
func rateLimitMiddleware(limiter allower, trustProxy bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, trustProxy)
		if !limiter.Allow(ip) {
			logging.Debug(subsystem, "Rate limited %s %s from %s", r.Method, r.URL.Path, ip)
			w.Header().Set("Retry-After", "1")
			writeOAuthError(w, http.StatusTooManyRequests, "too_many_requests",
				"rate limit exceeded, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, oauth.ErrorResponse{Error: code, ErrorDescription: description})
}
