package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/aicommons/internal/output"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the registered providers",
	Long: `List built-in and configured providers with their protocol, credential
variable and base URL.

Examples:
  aicommons providers
  aicommons providers -f table`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	return output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format)).WriteProviders(reg.Providers())
}
