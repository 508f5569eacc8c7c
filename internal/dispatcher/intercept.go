package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

type toolCallMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *mcp.RequestId  `json:"id"`
	Method  string          `json:"method"`
	Params  *toolCallParams `json:"params"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Intercept inspects one raw JSON-RPC message. When it is a tools/call
// request for a name the session does not expose, Intercept dispatches it and
// returns the encoded JSON-RPC response carrying the error result. Every
// other message is left to the MCP server and ok is false.
func (d *Dispatcher) Intercept(ctx context.Context, raw []byte) (resp []byte, ok bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	if !bytes.Contains(trimmed, []byte(string(mcp.MethodToolsCall))) {
		return nil, false
	}

	var msg toolCallMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, false
	}
	if msg.Method != string(mcp.MethodToolsCall) || msg.ID == nil || msg.ID.IsNil() || msg.Params == nil {
		return nil, false
	}
	if d.view.Exposes(msg.Params.Name) {
		return nil, false
	}

	result := d.Dispatch(ctx, Envelope{
		OperationName: msg.Params.Name,
		Arguments:     msg.Params.Arguments,
	})
	out, err := json.Marshal(mcp.NewJSONRPCResultResponse(*msg.ID, result))
	if err != nil {
		return nil, false
	}
	return out, true
}
