// Package management is the client for the identity platform's management API.
//
// Every call goes through API.Do, which returns either a normalized *Response
// or a typed *APIError. Callers switch on APIError.StatusClass instead of
// inspecting status codes or message text.
//
// Factory builds authenticated clients from either a bearer token or a
// client-credential pair and memoizes them per credential shape.
package management
