package formatting

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"identity-mcp/pkg/auth"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatTools(w io.Writer, tools []ToolRow) error {
	if tools == nil {
		tools = []ToolRow{}
	}
	return writeYAML(w, tools)
}

// FormatStatus writes the status with the same keys as the JSON output.
func (f *YAMLFormatter) FormatStatus(w io.Writer, status auth.StatusResponse, _ time.Time) error {
	doc := map[string]any{
		"authenticated": status.Authenticated,
		"domain":        status.Domain,
		"source":        status.Source,
	}
	if status.Mode != "" {
		doc["mode"] = status.Mode
	}
	if !status.ExpiresAt.IsZero() {
		doc["expires_at"] = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if len(status.Scopes) > 0 {
		doc["scopes"] = status.Scopes
	}
	if status.Reason != "" {
		doc["reason"] = status.Reason
	}
	return writeYAML(w, doc)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
