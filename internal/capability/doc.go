// Package capability is the static catalog of operations identity-mcp can
// perform against the management API.
//
// A Capability has a unique name, a JSON input schema, the scopes a caller's
// grant must contain, and a read-only flag. The Registry is built once at
// startup and never mutated. Callers narrow it in two steps:
//
//   - List(Filter) applies deployment policy: an allow-list (exact names or
//     glob patterns) intersected with the read-only flag.
//   - View(Filter, scopes) additionally drops capabilities whose required
//     scopes are not all granted. A View is what a session's dispatcher sees.
//
// The built-in catalog lives in catalog.yaml. Each entry maps tool arguments
// onto a management API request (method, path template, query and body
// fields), so adding an operation needs no Go code.
package capability
