// Package formatting renders CLI output for the tools and status commands
// as tables, JSON or YAML.
package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"identity-mcp/internal/capability"
	"identity-mcp/pkg/auth"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat maps a --output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
	Wide   bool // Show full descriptions
}

// ToolRow is one capability as shown by the tools command.
type ToolRow struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description" yaml:"description"`
	ReadOnly    bool     `json:"readOnly" yaml:"readOnly"`
	Scopes      []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// ToolRows converts capabilities to rows, keeping catalog order.
func ToolRows(caps []capability.Capability) []ToolRow {
	rows := make([]ToolRow, 0, len(caps))
	for _, c := range caps {
		rows = append(rows, ToolRow{
			Name:        c.Name,
			Title:       c.Title,
			Description: c.Description,
			ReadOnly:    c.ReadOnly,
			Scopes:      append([]string(nil), c.RequiredScopes...),
		})
	}
	return rows
}

// Formatter renders command output.
type Formatter interface {
	FormatTools(w io.Writer, tools []ToolRow) error
	FormatStatus(w io.Writer, status auth.StatusResponse, now time.Time) error
}

// NewFormatter returns the formatter for options.Format.
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{options: options}
	}
}
