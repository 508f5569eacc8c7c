package cmd

import (
	"github.com/spf13/cobra"

	"identity-mcp/internal/app"
	"identity-mcp/internal/config"
)

// policyFlags are the capability filter flags shared by run, serve and tools.
type policyFlags struct {
	readOnly bool
	tools    []string
}

func (p *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.readOnly, "read-only", false, "Expose only capabilities that do not modify the tenant (READ_ONLY)")
	cmd.Flags().StringSliceVar(&p.tools, "tools", nil, "Comma-separated allow-list of tool names or glob patterns (TOOLS)")
}

// apply overrides the loaded settings with the flags the user set.
func (p *policyFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		if cmd.Flags().Changed("read-only") {
			c.ReadOnly = p.readOnly
		}
		if cmd.Flags().Changed("tools") {
			c.Tools = p.tools
		}
	}
}

// runApplication builds the application for mode and runs it.
func runApplication(cmd *cobra.Command, mode config.Mode, overrides ...func(*config.Config)) error {
	cfg := newAppConfig()
	for _, o := range overrides {
		cfg.Override(o)
	}

	application, err := app.NewApplication(cfg, mode)
	if err != nil {
		return err
	}
	return application.Run(cmd.Context())
}
