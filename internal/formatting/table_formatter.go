package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"identity-mcp/pkg/auth"
	pkgstrings "identity-mcp/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatTools prints one row per tool.
func (f *TableFormatter) FormatTools(w io.Writer, tools []ToolRow) error {
	if len(tools) == 0 {
		_, err := fmt.Fprintln(w, f.paint(text.FgYellow, "No tools are exposed with the current configuration"))
		return err
	}

	t := f.createTable(w)
	t.AppendHeader(table.Row{"NAME", "ACCESS", "SCOPES", "DESCRIPTION"})

	for _, tool := range tools {
		access := f.paint(text.FgGreen, "read")
		if !tool.ReadOnly {
			access = f.paint(text.FgYellow, "write")
		}
		desc := tool.Description
		if !f.options.Wide {
			desc = pkgstrings.TruncateDescription(desc, pkgstrings.DefaultDescriptionMaxLen)
		}
		t.AppendRow(table.Row{tool.Name, access, strings.Join(tool.Scopes, " "), desc})
	}
	t.AppendFooter(table.Row{"", "", "TOTAL", len(tools)})

	t.Render()
	return nil
}

// FormatStatus prints the credential status as key-value rows.
func (f *TableFormatter) FormatStatus(w io.Writer, status auth.StatusResponse, now time.Time) error {
	t := f.createTable(w)

	state := f.paint(text.FgGreen, "authenticated")
	if !status.Authenticated {
		state = f.paint(text.FgRed, "not authenticated")
	}

	t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Domain"), valueOrDash(status.Domain)})
	t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Status"), state})
	t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Source"), valueOrDash(status.Source)})
	if status.Mode != "" {
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Mode"), status.Mode})
	}
	if !status.ExpiresAt.IsZero() {
		expiry := status.ExpiresAt.Local().Format(time.RFC3339)
		if left := status.ExpiresIn(now); left > 0 {
			expiry += fmt.Sprintf(" (in %s)", left.Round(time.Second))
		} else {
			expiry += " " + f.paint(text.FgRed, "(expired)")
		}
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Expires"), expiry})
	}
	if len(status.Scopes) > 0 {
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Scopes"), strings.Join(status.Scopes, "\n")})
	}
	if status.Reason != "" {
		t.AppendRow(table.Row{f.paint(text.FgHiCyan, "Reason"), status.Reason})
	}

	t.Render()
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
