package formatting

import (
	"encoding/json"
	"io"
	"time"

	"identity-mcp/pkg/auth"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct{}

func (f *JSONFormatter) FormatTools(w io.Writer, tools []ToolRow) error {
	if tools == nil {
		tools = []ToolRow{}
	}
	return writeJSON(w, tools)
}

func (f *JSONFormatter) FormatStatus(w io.Writer, status auth.StatusResponse, _ time.Time) error {
	return writeJSON(w, status)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
