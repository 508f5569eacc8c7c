// Package app wires identity-mcp's components together and runs one of its
// two transports.
//
// # Bootstrap
//
// NewApplication performs the whole startup sequence:
//
//  1. Load settings from the environment, an optional .env file and an
//     optional YAML profile, then apply command-line overrides.
//  2. Initialize logging. In local mode the protocol owns stdout, so logs go
//     to stderr; in hosted mode they go to stdout.
//  3. Validate the settings for the selected mode. A *config.MissingError
//     lists every missing variable at once.
//  4. Build the shared services: the capability registry with the
//     deployment filter, the management client factory and, when enabled,
//     the metrics provider.
//
// # Modes
//
// Local mode (identity-mcp run) serves a single MCP session over stdio. The
// credential comes from the credential store, falling back to a client pair
// from the environment, and is loaded within CONNECT_TIMEOUT. A store
// watcher drops the cached credential whenever the store file changes so the
// next tool call re-reads it.
//
// Hosted mode (identity-mcp serve) listens on HOST:PORT and serves the OAuth
// proxy, the discovery documents and multi-session streamable HTTP at /mcp.
// The process reports READY and STOPPING to systemd when started as a
// notify service.
//
// Both modes stop on SIGINT or SIGTERM.
package app
