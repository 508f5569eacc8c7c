package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"identity-mcp/internal/config"
	"identity-mcp/pkg/logging"
	"identity-mcp/pkg/oauth"
)

// authorizeRedirect rewrites the caller's authorization query for the
// upstream authorization server.
func (s *HTTPServer) authorizeRedirect(query url.Values) (string, error) {
	target, err := url.Parse(s.cfg.AuthorizeURL)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}

	if s.cfg.Audience != "" {
		if s.cfg.AudiencePolicy == config.AudienceOverride || q.Get("audience") == "" {
			q.Set("audience", s.cfg.Audience)
		}
	}

	scopes := oauth.MergeScopes(
		oauth.ParseScope(q.Get("scope")),
		s.cfg.RequiredScopes,
		[]string{oauth.ScopeOpenID, oauth.ScopeOfflineAccess},
	)
	q.Set("scope", strings.Join(scopes, " "))

	target.RawQuery = q.Encode()
	return target.String(), nil
}

func (s *HTTPServer) serveAuthorize(w http.ResponseWriter, r *http.Request) {
	location, err := s.authorizeRedirect(r.URL.Query())
	if err != nil {
		logging.Error(subsystem, err, "Invalid upstream authorize URL %q", s.cfg.AuthorizeURL)
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "authorization endpoint is misconfigured")
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// readBody reads a request body of at most maxProxyBodyBytes. Oversized
// bodies are answered with 413 and never forwarded in part.
func readBody(w http.ResponseWriter, r *http.Request, errorCode string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProxyBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeOAuthError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body exceeds 1 MiB")
			return nil, false
		}
		writeOAuthError(w, http.StatusBadRequest, errorCode, "could not read request body")
		return nil, false
	}
	return body, true
}

// serveToken relays the token request to the upstream token endpoint and
// the upstream answer back to the caller, both unmodified.
func (s *HTTPServer) serveToken(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, "invalid_request")
	if !ok {
		return
	}

	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.cfg.TokenURL, bytes.NewReader(body))
	if err != nil {
		logging.Error(subsystem, err, "Invalid upstream token URL %q", s.cfg.TokenURL)
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "token endpoint is misconfigured")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		upstreamReq.Header.Set("Content-Type", ct)
	}
	upstreamReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(upstreamReq)
	if err != nil {
		logging.Warn(subsystem, "Token relay to %s failed: %v", upstreamReq.URL.Host, err)
		logging.Audit(logging.AuditEvent{
			Action:  "token_relay",
			Outcome: "failure",
			Target:  upstreamReq.URL.Host,
			Details: err.Error(),
		})
		writeOAuthError(w, http.StatusBadGateway, "bad_gateway",
			"could not reach the authorization server: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Debug(subsystem, "Token relay copy interrupted: %v", err)
	}
}
