package dispatcher

import (
	"context"

	"identity-mcp/internal/capability"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolFor converts a capability to its MCP tool definition.
func ToolFor(c capability.Capability) mcp.Tool {
	tool := mcp.NewToolWithRawSchema(c.Name, c.Description, c.InputSchema)
	tool.Annotations = mcp.ToolAnnotation{
		Title:           c.Title,
		ReadOnlyHint:    mcp.ToBoolPtr(c.ReadOnly),
		DestructiveHint: mcp.ToBoolPtr(!c.ReadOnly),
		IdempotentHint:  mcp.ToBoolPtr(c.ReadOnly),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return tool
}

// Tools returns the session's visible tools, in catalog order, each bound to
// Dispatch.
func (d *Dispatcher) Tools() []server.ServerTool {
	caps := d.view.List()
	tools := make([]server.ServerTool, 0, len(caps))
	for _, c := range caps {
		tools = append(tools, server.ServerTool{
			Tool:    ToolFor(c),
			Handler: d.handle,
		})
	}
	return tools
}

// Register adds the session's tools to s.
func (d *Dispatcher) Register(s *server.MCPServer) {
	if tools := d.Tools(); len(tools) > 0 {
		s.AddTools(tools...)
	}
}

func (d *Dispatcher) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return d.Dispatch(ctx, Envelope{
		OperationName: req.Params.Name,
		Arguments:     req.GetArguments(),
	}), nil
}
