package server

import (
	"encoding/json"
	"net/http"
	"time"

	"identity-mcp/pkg/oauth"
)

const resourceName = "identity-mcp management API"

func (s *HTTPServer) scopesSupported() []string {
	return oauth.MergeScopes([]string{oauth.ScopeOpenID, oauth.ScopeOfflineAccess}, s.cfg.RequiredScopes)
}

// AuthorizationServerMetadata builds the RFC 8414 document for publicURL.
func (s *HTTPServer) AuthorizationServerMetadata(publicURL string) oauth.AuthorizationServerMetadata {
	return oauth.AuthorizationServerMetadata{
		Issuer:                            publicURL,
		AuthorizationEndpoint:             publicURL + "/authorize",
		TokenEndpoint:                     publicURL + "/token",
		RegistrationEndpoint:              publicURL + "/register",
		JwksURI:                           s.cfg.JWKSURL,
		ScopesSupported:                   s.scopesSupported(),
		ResponseTypesSupported:            []string{"code"},
		ResponseModesSupported:            []string{"query"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_post", "client_secret_basic", "none"},
		CodeChallengeMethodsSupported:     []string{"S256"},
		IDTokenSigningAlgValuesSupported:  []string{"RS256"},
	}
}

// ProtectedResourceMetadata builds the RFC 9728 document for publicURL.
func (s *HTTPServer) ProtectedResourceMetadata(publicURL string) oauth.ProtectedResourceMetadata {
	return oauth.ProtectedResourceMetadata{
		Resource:               publicURL + "/mcp",
		AuthorizationServers:   []string{publicURL},
		ScopesSupported:        s.scopesSupported(),
		BearerMethodsSupported: []string{"header"},
		ResourceName:           resourceName,
	}
}

func (s *HTTPServer) serveAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", discoveryCacheControl)
	writeJSON(w, http.StatusOK, s.AuthorizationServerMetadata(s.publicURL(r)))
}

func (s *HTTPServer) serveProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", discoveryCacheControl)
	writeJSON(w, http.StatusOK, s.ProtectedResourceMetadata(s.publicURL(r)))
}

type registrationRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
	Scope        string   `json:"scope"`
}

// serveRegister answers dynamic client registration with the pre-provisioned
// client. No upstream application is created.
func (s *HTTPServer) serveRegister(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	body, ok := readBody(w, r, "invalid_client_metadata")
	if !ok {
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "request body is not valid JSON")
			return
		}
	}

	writeJSON(w, http.StatusCreated, oauth.ClientRegistrationResponse{
		ClientID:                s.cfg.ClientID,
		ClientIDIssuedAt:        time.Now().Unix(),
		ClientName:              req.ClientName,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
		Scope:                   req.Scope,
	})
}
