package llm

import (
	"fmt"
	"strings"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/registry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// resolveAPIKey applies the credential precedence: explicit override, then
// the descriptor's environment variable, then failure. An empty result with
// a nil error means the provider runs without a key.
func resolveAPIKey(p registry.Provider, override string, env EnvLookup) (string, error) {
	apiKey := strings.TrimSpace(override)
	source := "override"

	if apiKey == "" && p.CredentialEnv != "" {
		if v, ok := env(p.CredentialEnv); ok {
			apiKey = strings.TrimSpace(v)
			source = p.CredentialEnv
		}
	}

	if apiKey == "" {
		if p.CredentialOptional {
			return "", nil
		}
		return "", clienterr.APIKey(p.Name, "%s not set or provided", p.CredentialEnv)
	}

	if p.KeyPrefix != "" && !strings.HasPrefix(apiKey, p.KeyPrefix) {
		return "", clienterr.APIKey(p.Name,
			"invalid api key format from %s: expected prefix %q", source, p.KeyPrefix)
	}

	return apiKey, nil
}

// newOpenAIModel creates a langchaingo client for any OpenAI-protocol endpoint.
func newOpenAIModel(target registry.Target, apiKey string, opts Options) (llms.Model, error) {
	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(target.Model),
		openai.WithHTTPClient(opts.httpClient()),
	}

	if target.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(target.BaseURL))
	}

	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return model, nil
}

// newAnthropicModel creates a langchaingo client for the Anthropic messages API.
func newAnthropicModel(target registry.Target, apiKey string, opts Options) (llms.Model, error) {
	clientOpts := []anthropic.Option{
		anthropic.WithToken(apiKey),
		anthropic.WithModel(target.Model),
		anthropic.WithHTTPClient(opts.httpClient()),
	}

	if target.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(target.BaseURL))
	}

	model, err := anthropic.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return model, nil
}
