// Package session manages hosted MCP sessions.
//
// A session is created by a POST carrying an MCP initialize request without a
// known Mcp-Session-Id. Each session owns its own dispatcher, bound to the
// bearer token presented at creation, and its own mcp-go server and
// streamable-HTTP transport. Pairs are never shared, so one session's
// credential cannot influence another session's tool resolution.
//
// The Manager registers a session before the initialize response is written,
// so a client can never hold an ID the Manager does not know. Sessions end
// when the client sends DELETE, when initialization fails, when they stay
// idle longer than the idle timeout, or when the Manager stops.
package session
