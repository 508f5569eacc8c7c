package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"identity-mcp/internal/app"
	"identity-mcp/internal/capability"
	"identity-mcp/internal/formatting"
)

var (
	toolsOutput  string
	toolsAll     bool
	toolsWide    bool
	toolsNoColor bool
	toolsSchema  string
	toolsPolicy  policyFlags
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools exposed with the current configuration",
	Long: `Lists the capability catalog after applying TOOLS and READ_ONLY (or the
--tools and --read-only flags). Scope filtering happens per session and is
not applied here; the SCOPES column shows what each tool needs.

Use --schema NAME to print a tool's input schema.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseFormat(toolsOutput)
	if err != nil {
		return err
	}

	registry, err := capability.NewDefaultRegistry()
	if err != nil {
		return err
	}

	if toolsSchema != "" {
		c, err := registry.Resolve(toolsSchema)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatting.PrettyJSON(c.InputSchema))
		return nil
	}

	filter := capability.Filter{}
	if !toolsAll {
		cfg := newAppConfig().Override(toolsPolicy.apply(cmd))
		settings, err := app.LoadSettings(cfg)
		if err != nil {
			return err
		}
		initCLILogging(cmd.ErrOrStderr(), settings)
		filter = capability.Filter{AllowedNames: settings.Tools, ReadOnlyOnly: settings.ReadOnly}
	}

	formatter := formatting.NewFormatter(formatting.Options{
		Format: format,
		Color:  !toolsNoColor && isTerminal(cmd),
		Wide:   toolsWide,
	})
	return formatter.FormatTools(cmd.OutOrStdout(), formatting.ToolRows(registry.List(filter)))
}

// isTerminal reports whether the command writes to a character device.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVarP(&toolsOutput, "output", "o", "table", "Output format: table, json or yaml")
	toolsCmd.Flags().BoolVar(&toolsAll, "all", false, "Ignore TOOLS and READ_ONLY and list the whole catalog")
	toolsCmd.Flags().BoolVar(&toolsWide, "wide", false, "Do not truncate descriptions")
	toolsCmd.Flags().BoolVar(&toolsNoColor, "no-color", false, "Disable colored output")
	toolsCmd.Flags().StringVar(&toolsSchema, "schema", "", "Print the input schema of the named tool")
	toolsPolicy.register(toolsCmd)
}

