package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bimmerbailey/aicommons/internal/output"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Show how an identifier resolves to a provider and model",
	Long: `Resolve an alias or qualified identifier without contacting any provider.

Examples:
  aicommons resolve default_chat
  aicommons resolve openrouter/anthropic/claude-3.7-sonnet -f json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadAliases(cfg)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	identifier := args[0]
	resolved, err := table.Resolve(identifier)
	if err != nil {
		return err
	}
	target, err := reg.Determine(resolved)
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format)).WriteResolution(output.Resolution{
		Identifier:    identifier,
		Resolved:      resolved,
		Provider:      target.Provider.Name,
		Protocol:      string(target.Provider.Protocol),
		Model:         target.Model,
		BaseURL:       target.BaseURL,
		CredentialEnv: target.Provider.CredentialEnv,
	})
}
