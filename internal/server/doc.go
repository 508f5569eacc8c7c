// Package server provides the hosted HTTP surface of identity-mcp.
//
// It fronts the identity platform's own authorization server instead of
// running one, so MCP clients can discover and complete an OAuth flow
// against this server's public URL:
//
//   - /.well-known/oauth-authorization-server - Authorization Server Metadata (RFC 8414)
//   - /.well-known/oauth-protected-resource - Protected Resource Metadata (RFC 9728)
//   - /register - Dynamic Client Registration (RFC 7591), answered with the pre-provisioned client
//   - /authorize - redirect to the upstream authorize endpoint with scopes and audience rewritten
//   - /token - byte-for-byte relay to the upstream token endpoint
//   - /mcp - MCP streamable-HTTP sessions (requires a Bearer token)
//   - /health - liveness, version and tenant domain
//   - /metrics - Prometheus metrics, when enabled
//
// Every response carries permissive CORS headers and OPTIONS is answered
// with 204. Unknown paths get a JSON 404.
package server
