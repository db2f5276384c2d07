// Package config provides configuration types and helpers for aicommons.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bimmerbailey/aicommons/internal/llm"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

// Config holds the application-wide configuration.
type Config struct {
	// Model is the identifier used when --model is not given: an alias or
	// a qualified provider/model string.
	Model string `mapstructure:"model"`

	// AliasesFile replaces the bundled alias table when set.
	AliasesFile string `mapstructure:"aliases_file"`

	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Timeout bounds one completion round trip, e.g. "60s", "2m", "1m30s".
	Timeout string `mapstructure:"timeout"`

	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
	Verbose  bool   `mapstructure:"verbose"`
	Debug    bool   `mapstructure:"debug"`

	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`

	// Providers are added to the built-in registry.
	Providers []ProviderConfig `mapstructure:"providers"`
}

// OpenRouterConfig holds the identification headers sent to OpenRouter.
type OpenRouterConfig struct {
	Referer string `mapstructure:"referer"` // HTTP-Referer
	Title   string `mapstructure:"title"`   // X-Title
}

// ProviderConfig declares an extra provider descriptor.
type ProviderConfig struct {
	Name               string            `mapstructure:"name"`
	Prefix             string            `mapstructure:"prefix"`
	Protocol           string            `mapstructure:"protocol"` // openai, anthropic, openrouter, ollama
	CredentialEnv      string            `mapstructure:"credential_env"`
	CredentialOptional bool              `mapstructure:"credential_optional"`
	KeyPrefix          string            `mapstructure:"key_prefix"`
	BaseURL            string            `mapstructure:"base_url"`
	Headers            map[string]string `mapstructure:"headers"`
	LegacyMaxTokens    bool              `mapstructure:"legacy_max_tokens"`
}

// Descriptor converts the configured entry into a registry descriptor.
func (p ProviderConfig) Descriptor() registry.Provider {
	return registry.Provider{
		Name:               p.Name,
		Prefix:             p.Prefix,
		Protocol:           registry.Protocol(strings.ToLower(p.Protocol)),
		CredentialEnv:      p.CredentialEnv,
		CredentialOptional: p.CredentialOptional,
		KeyPrefix:          p.KeyPrefix,
		BaseURL:            p.BaseURL,
		Headers:            p.Headers,
		LegacyMaxTokens:    p.LegacyMaxTokens,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.LogLevel != "" {
		if _, ok := ParseLevel(c.LogLevel); !ok {
			return fmt.Errorf("unknown log_level %q", c.LogLevel)
		}
	}
	for i, p := range c.Providers {
		if err := p.Descriptor().Validate(); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout, falling back to llm.DefaultTimeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return llm.DefaultTimeout, nil
	}
	d, err := ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return d, nil
}

// Registry returns the built-in registry extended with the configured providers.
func (c *Config) Registry() (*registry.Registry, error) {
	if len(c.Providers) == 0 {
		return registry.Default(), nil
	}
	extra := make([]registry.Provider, len(c.Providers))
	for i, p := range c.Providers {
		extra[i] = p.Descriptor()
	}
	return registry.Default().With(extra...)
}

// Level picks the log level: Debug and Verbose win over LogLevel, and the
// default is slog.LevelError so library chatter stays off the terminal.
func (c *Config) Level() slog.Level {
	switch {
	case c.Debug:
		return slog.LevelDebug
	case c.Verbose:
		return slog.LevelInfo
	}
	if lvl, ok := ParseLevel(c.LogLevel); ok {
		return lvl
	}
	return slog.LevelError
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelError, false
	}
}
