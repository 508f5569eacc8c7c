package cmd

import (
	"github.com/spf13/cobra"

	"identity-mcp/internal/config"
)

var (
	serveHost      string
	servePort      int
	servePublicURL string
	servePolicy    policyFlags
)

// serveCmd starts the hosted transport.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over streamable HTTP with an OAuth proxy for remote agents",
	Long: `Starts the hosted HTTP server. It serves:

  /mcp                                      streamable-HTTP MCP sessions (bearer token required)
  /authorize, /token, /register             OAuth 2.0 proxy to the tenant
  /.well-known/oauth-authorization-server   authorization server metadata
  /.well-known/oauth-protected-resource     protected resource metadata
  /health                                   liveness
  /metrics                                  Prometheus metrics (METRICS_ENABLED=true)

Every session is bound to the bearer token that initialized it and only sees
the tools its token's scopes allow.

Required configuration: TENANT_DOMAIN, OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	return runApplication(cmd, config.ModeServe, servePolicy.apply(cmd), func(c *config.Config) {
		if cmd.Flags().Changed("host") {
			c.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			c.Port = servePort
		}
		if cmd.Flags().Changed("public-url") {
			c.PublicURL = servePublicURL
		}
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost, "Listen address (HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Listen port (PORT)")
	serveCmd.Flags().StringVar(&servePublicURL, "public-url", "", "Externally reachable base URL (PUBLIC_SERVER_URL)")
	servePolicy.register(serveCmd)
}
