package cmd

import (
	"github.com/spf13/cobra"

	"identity-mcp/internal/config"
)

var runPolicy policyFlags

// runCmd starts the local stdio transport.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve MCP over stdio for a local agent",
	Long: `Serves a single MCP session over stdin and stdout. Logs go to stderr.

The credential is read from the credential store (see 'identity-mcp login'),
falling back to OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET from the environment.
Expired tokens are refreshed when a refresh token or client pair allows it,
and changes to the store are picked up without a restart.

Example agent configuration:

  {
    "command": "identity-mcp",
    "args": ["run", "--read-only"],
    "env": { "TENANT_DOMAIN": "acme.eu.auth0.com" }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApplication(cmd, config.ModeLocal, runPolicy.apply(cmd))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runPolicy.register(runCmd)
}
