// Package dispatcher resolves and invokes tool calls for one MCP session.
//
// A Dispatcher is bound to a capability view (the catalog narrowed by
// deployment policy and the credential's grant), a credential source and a
// management client factory. Every call goes through the same pipeline:
//
//  1. resolve the tool name in the view
//  2. validate the credential, reloading it once on failure
//  3. check that a tenant domain is configured
//  4. validate the arguments and invoke the handler under a timeout
//  5. translate any failure into a single-line error result
//
// Failures never escape as protocol errors. Every outcome is an
// *mcp.CallToolResult, with IsError set when the call did not succeed.
//
// Intercept answers JSON-RPC tools/call messages for names the session does
// not expose, so unknown tools also produce an error result rather than a
// JSON-RPC fault from the MCP server.
package dispatcher
