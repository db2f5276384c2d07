package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/llm"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug lowercase", "debug", slog.LevelDebug, true},
		{"info lowercase", "info", slog.LevelInfo, true},
		{"warn lowercase", "warn", slog.LevelWarn, true},
		{"warning lowercase", "warning", slog.LevelWarn, true},
		{"error lowercase", "error", slog.LevelError, true},

		{"DEBUG uppercase", "DEBUG", slog.LevelDebug, true},
		{"WARNING uppercase", "WARNING", slog.LevelWarn, true},
		{"Info mixed", "Info", slog.LevelInfo, true},
		{"padded", "  error ", slog.LevelError, true},

		{"dbg abbrev", "dbg", slog.LevelDebug, true},
		{"inf abbrev", "inf", slog.LevelInfo, true},
		{"err abbrev", "err", slog.LevelError, true},

		{"empty string", "", slog.LevelError, false},
		{"invalid", "loud", slog.LevelError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestConfigLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want slog.Level
	}{
		{"default", Config{}, slog.LevelError},
		{"log level", Config{LogLevel: "warn"}, slog.LevelWarn},
		{"verbose", Config{Verbose: true, LogLevel: "warn"}, slog.LevelInfo},
		{"debug beats verbose", Config{Verbose: true, Debug: true}, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Level(); got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := ProviderConfig{Prefix: "local", Protocol: "openai", CredentialOptional: true, BaseURL: "http://127.0.0.1:8000/v1"}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero value", Config{}, ""},
		{"full", Config{Temperature: 0.7, MaxTokens: 256, Timeout: "90s", LogLevel: "info", Providers: []ProviderConfig{valid}}, ""},
		{"negative temperature", Config{Temperature: -0.1}, "temperature"},
		{"negative max tokens", Config{MaxTokens: -1}, "max_tokens"},
		{"bad timeout", Config{Timeout: "soon"}, "invalid timeout"},
		{"zero timeout", Config{Timeout: "0s"}, "positive"},
		{"bad log level", Config{LogLevel: "chatty"}, "log_level"},
		{"bad provider", Config{Providers: []ProviderConfig{{Prefix: "x", Protocol: "smtp"}}}, "providers[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutDuration(t *testing.T) {
	cfg := Config{}
	d, err := cfg.TimeoutDuration()
	if err != nil || d != llm.DefaultTimeout {
		t.Errorf("TimeoutDuration() = %v, %v; want default", d, err)
	}

	cfg.Timeout = "1m30s"
	d, err = cfg.TimeoutDuration()
	if err != nil || d != 90*time.Second {
		t.Errorf("TimeoutDuration() = %v, %v; want 90s", d, err)
	}
}

func TestRegistry(t *testing.T) {
	cfg := Config{}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}
	if reg != registry.Default() {
		t.Error("no configured providers should return the default registry")
	}

	cfg.Providers = []ProviderConfig{{
		Prefix:        "openai/azure",
		Protocol:      "OpenAI",
		CredentialEnv: "AZURE_OPENAI_KEY",
		BaseURL:       "https://example.openai.azure.com/v1",
	}}
	reg, err = cfg.Registry()
	if err != nil {
		t.Fatalf("Registry() error = %v", err)
	}

	target, err := reg.Determine("openai/azure/gpt-4o")
	if err != nil {
		t.Fatalf("Determine() error = %v", err)
	}
	if target.Provider.Name != "openai/azure" || target.Model != "gpt-4o" {
		t.Errorf("Determine() = %s %s, want configured provider", target.Provider.Name, target.Model)
	}
	if target.Provider.Protocol != registry.ProtocolOpenAI {
		t.Errorf("protocol = %q, want lowercased openai", target.Provider.Protocol)
	}

	cfg.Providers = []ProviderConfig{{Prefix: "openai", Protocol: "openai", CredentialEnv: "X"}}
	if _, err := cfg.Registry(); !errors.Is(err, clienterr.ErrConfiguration) {
		t.Errorf("duplicate prefix should be a configuration error, got %v", err)
	}
}

// TestUnmarshalFromViper verifies the mapstructure tags against a YAML file.
func TestUnmarshalFromViper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".aicommons.yaml")
	content := `
model: claude
temperature: 0.4
max_tokens: 512
timeout: 2m
openrouter:
  referer: https://example.com
  title: demo
providers:
  - prefix: lmstudio
    protocol: openai
    credential_optional: true
    base_url: http://localhost:1234/v1
    legacy_max_tokens: true
    headers:
      X-Team: ml
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if cfg.Model != "claude" || cfg.Temperature != 0.4 || cfg.MaxTokens != 512 {
		t.Errorf("unexpected core fields: %+v", cfg)
	}
	if cfg.OpenRouter.Title != "demo" || cfg.OpenRouter.Referer != "https://example.com" {
		t.Errorf("unexpected openrouter section: %+v", cfg.OpenRouter)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].BaseURL != "http://localhost:1234/v1" {
		t.Fatalf("unexpected providers: %+v", cfg.Providers)
	}
	if !cfg.Providers[0].Descriptor().LegacyMaxTokens {
		t.Error("legacy_max_tokens should reach the descriptor")
	}
	// viper lowercases map keys.
	if cfg.Providers[0].Headers["x-team"] != "ml" {
		t.Errorf("headers = %v", cfg.Providers[0].Headers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
