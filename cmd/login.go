package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"identity-mcp/internal/app"
	pkgstrings "identity-mcp/pkg/strings"
)

var (
	loginClientID     string
	loginClientSecret string
	loginAudience     string
	loginNoVerify     bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a client-credential pair for local mode",
	Long: `Stores a machine-to-machine client pair for TENANT_DOMAIN in the credential
store used by 'identity-mcp run'. By default the pair is verified by
requesting an access token first; nothing is stored if that fails.

The client ID and secret default to OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET.
A running 'identity-mcp run' picks up the new credential automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		opts := app.LoginOptions{
			ClientID:     loginClientID,
			ClientSecret: loginClientSecret,
			Audience:     loginAudience,
			Verify:       !loginNoVerify,
		}
		if opts.ClientID == "" {
			opts.ClientID = settings.ClientID
		}
		if opts.ClientSecret == "" {
			opts.ClientSecret = settings.ClientSecret
		}

		cred, err := app.Login(cmd.Context(), settings, opts)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Stored %s credential for %s\n", cred.Mode(), cred.Domain)
		fmt.Fprintf(out, "Client secret: %s\n", pkgstrings.MaskSecret(cred.ClientSecret, 4))
		if !cred.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Access token valid until %s\n", cred.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var logoutAll bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := app.LoadSettings(newAppConfig())
		if err != nil {
			return err
		}
		if !logoutAll && settings.Domain == "" {
			return fmt.Errorf("TENANT_DOMAIN is not set; use --all to remove every stored credential")
		}

		removed, err := app.Logout(settings, logoutAll)
		if err != nil {
			return err
		}
		if removed == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No stored credential to remove")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stored credential(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVar(&loginClientID, "client-id", "", "Client ID (defaults to OAUTH_CLIENT_ID)")
	loginCmd.Flags().StringVar(&loginClientSecret, "client-secret", "", "Client secret (defaults to OAUTH_CLIENT_SECRET)")
	loginCmd.Flags().StringVar(&loginAudience, "audience", "", "Token audience (defaults to MANAGEMENT_AUDIENCE)")
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "Store the pair without requesting a token")

	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Remove credentials for every tenant")
}
