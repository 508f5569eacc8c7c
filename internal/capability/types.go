package capability

import (
	"context"
	"encoding/json"

	"identity-mcp/internal/management"

	"github.com/getkin/kin-openapi/openapi3"
)

// Request is the scoped context a handler runs with. The dispatcher fills it
// after the credential and the arguments have been validated.
type Request struct {
	Token      string
	Domain     string
	Parameters map[string]any
	// Client is authenticated for Token and Domain.
	Client management.API
}

// Handler performs one capability.
type Handler func(ctx context.Context, req Request) (*management.Response, error)

// Capability describes one callable operation. It is immutable once the
// registry is built.
type Capability struct {
	Name           string
	Title          string
	Description    string
	InputSchema    json.RawMessage
	RequiredScopes []string
	ReadOnly       bool
	Handler        Handler

	schema *openapi3.Schema
}
