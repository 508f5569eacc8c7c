package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"identity-mcp/internal/app"
	"identity-mcp/internal/credential"
	"identity-mcp/internal/formatting"
	"identity-mcp/pkg/auth"
)

var (
	statusOutput  string
	statusNoColor bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the credential local mode would use",
	Long: `Shows where the credential for TENANT_DOMAIN comes from (credential store
or environment), its mode, expiry and granted scopes. Exits with code 2 when
no credential is available at all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := formatting.ParseFormat(statusOutput)
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}

		now := time.Now()
		status, err := app.Status(settings, now)
		if err != nil {
			return err
		}

		formatter := formatting.NewFormatter(formatting.Options{
			Format: format,
			Color:  !statusNoColor && isTerminal(cmd),
		})
		if err := formatter.FormatStatus(cmd.OutOrStdout(), status, now); err != nil {
			return err
		}
		if !status.Authenticated && status.Source == auth.SourceNone {
			cmd.SilenceErrors = true
			return &credential.ValidationError{Reason: credential.ReasonMissing}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format: table, json or yaml")
	statusCmd.Flags().BoolVar(&statusNoColor, "no-color", false, "Disable colored output")
}
