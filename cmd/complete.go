package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/bimmerbailey/aicommons/internal/client"
	"github.com/bimmerbailey/aicommons/internal/llm"
	"github.com/bimmerbailey/aicommons/internal/metrics"
	"github.com/bimmerbailey/aicommons/internal/output"
	"github.com/bimmerbailey/aicommons/internal/textutil"
)

var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Send a prompt to the resolved model and print the reply",
	Long: `Send a single chat completion and print the generated text.

The prompt is taken from the arguments, or read from stdin when stdin is
not a terminal. The model is an alias from the alias table or a qualified
provider/model identifier.

Examples:
  aicommons complete "Write a haiku about goroutines"
  aicommons complete -m deepseek/deepseek-chat -t 0.7 "Name three sorting algorithms"
  aicommons complete -m openrouter/meta-llama/llama-3.1-70b-instruct --param top_p=0.9 "hi"
  git diff | aicommons complete -m claude -s "Write a commit message" --strip-fences`,
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringP("model", "m", "", "model alias or provider/model identifier (default from config)")
	completeCmd.Flags().StringP("system", "s", "", "system prompt")
	completeCmd.Flags().Float64P("temperature", "t", 0, "sampling temperature (default from config)")
	completeCmd.Flags().Int("max-tokens", 0, "maximum response tokens (default from config)")
	completeCmd.Flags().String("api-key", "", "API key, overriding the provider's environment variable")
	completeCmd.Flags().Bool("api-key-stdin", false, "read the API key from the terminal (or the first stdin line)")
	completeCmd.Flags().StringArray("param", nil, "extra provider parameter as key=value (repeatable)")
	completeCmd.Flags().Bool("strip-fences", false, "remove a surrounding markdown code fence from the reply")
	completeCmd.Flags().Bool("metrics", false, "print request metrics to stderr in Prometheus text format")

	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	model := cfg.Model
	if m, _ := flags.GetString("model"); m != "" {
		model = m
	}
	if flags.Changed("temperature") {
		cfg.Temperature, _ = flags.GetFloat64("temperature")
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens, _ = flags.GetInt("max-tokens")
	}
	system, _ := flags.GetString("system")
	apiKey, _ := flags.GetString("api-key")
	keyFromStdin, _ := flags.GetBool("api-key-stdin")
	rawParams, _ := flags.GetStringArray("param")
	stripFences, _ := flags.GetBool("strip-fences")
	withMetrics, _ := flags.GetBool("metrics")

	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	tty := terminalFile(in)
	interactive := tty != nil
	reader := bufio.NewReader(in)

	if keyFromStdin {
		apiKey, err = readSecret(reader, tty, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}

	prompt, err := readPrompt(args, reader, interactive)
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
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())

	opts := []client.Option{
		client.WithAliases(table),
		client.WithRegistry(reg),
		client.WithAPIKey(apiKey),
		client.WithTemperature(cfg.Temperature),
		client.WithMaxTokens(cfg.MaxTokens),
		client.WithParams(params),
		client.WithTimeout(timeout),
		client.WithIdentification(cfg.OpenRouter.Referer, cfg.OpenRouter.Title),
		client.WithLogger(logger),
	}

	var collector *metrics.Collector
	if withMetrics {
		collector = metrics.New()
		opts = append(opts, client.WithObserver(collector))
	}

	c, err := client.New(model, opts...)
	if err != nil {
		return err
	}

	text, err := c.Complete(cmd.Context(), buildMessages(system, prompt))
	if collector != nil {
		if werr := collector.WriteText(cmd.ErrOrStderr()); werr != nil {
			logger.Warn("failed to write metrics", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if stripFences {
		text = textutil.StripCodeFence(text)
	}

	if output.ParseFormat(cfg.Format) == output.FormatJSON {
		return output.New(cmd.OutOrStdout(), output.FormatJSON).WriteJSON(map[string]interface{}{
			"identifier": model,
			"resolved":   c.ResolvedID(),
			"provider":   c.Provider(),
			"model":      c.Model(),
			"text":       text,
		})
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
	return err
}

// buildMessages returns the optional system message followed by the prompt.
func buildMessages(system, prompt string) []llm.Message {
	var messages []llm.Message
	if strings.TrimSpace(system) != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
}

// parseParams turns key=value pairs into typed values. Values are decoded as
// YAML scalars or flow sequences, so 0.9 is a float, 42 an int, true a bool
// and [a, b] a list.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", pair, err)
		}
		if value == nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

// readPrompt joins the arguments, or reads the whole of stdin when there are
// none and stdin is not a terminal.
func readPrompt(args []string, in io.Reader, interactive bool) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if interactive {
		return "", errors.New("no prompt given: pass it as an argument or pipe it on stdin")
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}

// readSecret prompts for the key on a terminal without echo, otherwise it
// consumes the first line of stdin.
func readSecret(in *bufio.Reader, tty *os.File, prompt io.Writer) (string, error) {
	if tty != nil {
		fmt.Fprint(prompt, "API key: ")
		key, err := term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read api key: %w", err)
		}
		return strings.TrimSpace(string(key)), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("api key on stdin is empty")
	}
	return key, nil
}

// terminalFile returns in as a file when it is a terminal, nil otherwise.
func terminalFile(in io.Reader) *os.File {
	if f, ok := in.(*os.File); ok && output.IsTerminal(f) {
		return f
	}
	return nil
}
