package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/aicommons/internal/aliases"
	"github.com/bimmerbailey/aicommons/internal/config"
	"github.com/bimmerbailey/aicommons/internal/llm"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aicommons",
	Short: "One client for many LLM providers",
	Long: `aicommons resolves a model alias or a qualified provider/model identifier,
picks the matching provider, and sends a chat completion through it.

Examples:
  aicommons complete "Summarize the Go memory model in one sentence"
  aicommons complete -m openai/gpt-4o -s "Answer in French" "hello"
  echo "explain this diff" | aicommons complete -m claude
  aicommons resolve default_chat
  aicommons aliases validate
  aicommons providers -f table`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aicommons.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("aliases", "", "alias file replacing the bundled table")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto, always, never)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("aliases_file", rootCmd.PersistentFlags().Lookup("aliases"))
	_ = viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".aicommons")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AICOMMONS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("model", "default_chat")
	viper.SetDefault("temperature", 0.0)
	viper.SetDefault("max_tokens", 0)
	viper.SetDefault("timeout", llm.DefaultTimeout.String())
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("debug", false)
	viper.SetDefault("openrouter.referer", llm.DefaultReferer)
	viper.SetDefault("openrouter.title", llm.DefaultTitle)

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig unmarshals and validates the merged flag, env and file settings.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

// loadAliases returns the configured alias table, or the bundled one.
func loadAliases(cfg *config.Config) (*aliases.Table, error) {
	if cfg.AliasesFile == "" {
		return aliases.Default()
	}
	return aliases.LoadFile(cfg.AliasesFile)
}
