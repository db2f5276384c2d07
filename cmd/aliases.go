package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/aicommons/internal/aliases"
	"github.com/bimmerbailey/aicommons/internal/config"
	"github.com/bimmerbailey/aicommons/internal/output"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Inspect, validate, merge and watch alias tables",
}

var aliasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aliases and the provider each one resolves to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := writeAliasReport(cmd, false)
		return err
	},
}

var aliasesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every alias resolves to a registered provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		broken, err := writeAliasReport(cmd, true)
		if err != nil {
			return err
		}
		if broken > 0 {
			return fmt.Errorf("%d alias(es) do not resolve", broken)
		}
		return nil
	},
}

var aliasesMergeCmd = &cobra.Command{
	Use:   "merge <file|glob>...",
	Short: "Merge alias files, later files taking precedence",
	Long: `Merge alias files into one table. When an alias appears in more than one
file the last one wins. Matches of a single glob are merged in sorted order.

Examples:
  aicommons aliases merge base.yaml overrides.yaml -o model-aliases.yaml
  aicommons aliases merge "teams/*.yaml" --with-defaults`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAliasesMerge,
}

var aliasesWatchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-validate an alias file every time it changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAliasesWatch,
}

func init() {
	aliasesMergeCmd.Flags().StringP("output", "o", "", "write the merged table to this file instead of stdout")
	aliasesMergeCmd.Flags().Bool("with-defaults", false, "start from the bundled alias table")

	aliasesCmd.AddCommand(aliasesListCmd, aliasesValidateCmd, aliasesMergeCmd, aliasesWatchCmd)
	rootCmd.AddCommand(aliasesCmd)
}

// aliasRows resolves every alias in table against reg.
func aliasRows(table *aliases.Table, reg *registry.Registry) []output.AliasRow {
	entries := table.Entries()
	rows := make([]output.AliasRow, 0, len(entries))
	for _, name := range table.Names() {
		row := output.AliasRow{Alias: name, Target: entries[name]}
		target, err := reg.Determine(row.Target)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Provider = target.Provider.Name
			row.Model = target.Model
		}
		rows = append(rows, row)
	}
	return rows
}

func countBroken(rows []output.AliasRow) int {
	n := 0
	for _, r := range rows {
		if r.Error != "" {
			n++
		}
	}
	return n
}

// writeAliasReport prints the configured table. With onlyBroken set, text
// output lists just the failing rows followed by a summary.
func writeAliasReport(cmd *cobra.Command, onlyBroken bool) (int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return 0, err
	}
	table, err := loadAliases(cfg)
	if err != nil {
		return 0, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return 0, err
	}

	rows := aliasRows(table, reg)
	broken := countBroken(rows)
	format := output.ParseFormat(cfg.Format)
	w := output.New(cmd.OutOrStdout(), format).WithColor(output.ParseColorMode(viper.GetString("color")))

	if onlyBroken && format == output.FormatText {
		failing := make([]output.AliasRow, 0, broken)
		for _, r := range rows {
			if r.Error != "" {
				failing = append(failing, r)
			}
		}
		if err := w.WriteAliases(failing); err != nil {
			return broken, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d aliases checked, %d broken\n", len(rows), broken)
		return broken, nil
	}

	return broken, w.WriteAliases(rows)
}

func runAliasesMerge(cmd *cobra.Command, args []string) error {
	outPath, _ := cmd.Flags().GetString("output")
	withDefaults, _ := cmd.Flags().GetBool("with-defaults")

	files, err := config.ExpandPaths(args)
	if err != nil {
		return err
	}

	merged := aliases.New(nil)
	if withDefaults {
		defaults, err := aliases.Default()
		if err != nil {
			return err
		}
		merged = defaults
	}

	for _, file := range files {
		table, err := aliases.LoadFile(file)
		switch {
		case errors.Is(err, aliases.ErrEmpty):
			// An empty source contributes nothing to the merge.
			continue
		case err != nil:
			return err
		}
		merged = merged.Merge(table)
	}

	if outPath == "" {
		if err := merged.WriteYAML(cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to write merged aliases: %w", err)
		}
		return nil
	}

	if err := writeAliasFile(outPath, merged); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Merged %d file(s) into %s (%d aliases)\n", len(files), outPath, merged.Len())
	return nil
}

// writeAliasFile writes table to path. A failed close is reported, since
// that is where buffered writes surface.
func writeAliasFile(path string, table *aliases.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := table.WriteYAML(f); err != nil {
		return fmt.Errorf("failed to write merged aliases: %w", err)
	}
	return nil
}

func runAliasesWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.AliasesFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return errors.New("no alias file to watch: pass a path or set aliases_file")
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	out := cmd.OutOrStdout()
	colorize := output.ParseColorMode(viper.GetString("color"))
	w := output.New(out, output.FormatText).WithColor(colorize)

	logger.Info("watching alias file", "path", path)
	return aliases.Watch(cmd.Context(), path, func(table *aliases.Table, err error) {
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			return
		}
		rows := aliasRows(table, reg)
		broken := countBroken(rows)
		for _, r := range rows {
			if r.Error != "" {
				_ = w.WriteAliases([]output.AliasRow{r})
			}
		}
		fmt.Fprintf(out, "%s: %d aliases, %d broken\n", path, len(rows), broken)
	})
}
