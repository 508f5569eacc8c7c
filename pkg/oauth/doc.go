// Package oauth holds the OAuth 2.0 document types and small helpers shared by
// the hosted server and the CLI.
//
// # Core Components
//
//   - AuthorizationServerMetadata: RFC 8414 discovery document
//   - ProtectedResourceMetadata: RFC 9728 discovery document
//   - ClientRegistrationResponse: RFC 7591 registration response
//   - AuthChallenge: Bearer WWW-Authenticate header rendering
//   - MergeScopes / MissingScopes: scope set arithmetic
package oauth
