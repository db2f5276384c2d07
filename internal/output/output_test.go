package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/bimmerbailey/aicommons/internal/registry"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"JSON":  FormatJSON,
		"table": FormatTable,
		"text":  FormatText,
		"":      FormatText,
		"xml":   FormatText,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func testProviders() []registry.Provider {
	return []registry.Provider{registry.Ollama, registry.OpenRouter}
}

func TestWriteProviders(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatText).WriteProviders(testProviders()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "openrouter (openrouter) OPENROUTER_API_KEY https://openrouter.ai/api/v1") {
			t.Errorf("unexpected text output:\n%s", out)
		}
		if !strings.Contains(out, "OLLAMA_API_KEY (optional)") {
			t.Errorf("optional credential not marked:\n%s", out)
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatTable).WriteProviders(testProviders()); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header, rule and 2 rows, got %d lines:\n%s", len(lines), buf.String())
		}
		if !strings.HasPrefix(lines[0], "PREFIX") {
			t.Errorf("missing header: %q", lines[0])
		}
		if !strings.Contains(lines[2], "-") {
			t.Errorf("ollama key prefix should render as dash: %q", lines[2])
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatJSON).WriteProviders(testProviders()); err != nil {
			t.Fatal(err)
		}
		var decoded []registry.Provider
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(decoded) != 2 || decoded[1].KeyPrefix != "sk-or-v1-" {
			t.Errorf("unexpected decoded providers: %+v", decoded)
		}
	})
}

func TestWriteAliases(t *testing.T) {
	rows := []AliasRow{
		{Alias: "default_chat", Target: "openrouter/openai/gpt-4o", Provider: "openrouter", Model: "openai/gpt-4o"},
		{Alias: "broken", Target: "acme/x", Error: "unknown provider"},
	}

	t.Run("text with color", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatText).WithColor(ColorAlways).WriteAliases(rows); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "default_chat -> openrouter/openai/gpt-4o\n") {
			t.Errorf("ok row should be plain:\n%s", out)
		}
		if !strings.Contains(out, colorRed+"broken -> acme/x (unknown provider)"+colorReset) {
			t.Errorf("broken row should be red:\n%q", out)
		}
	})

	t.Run("text without color", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatText).WriteAliases(rows); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "\033[") {
			t.Errorf("buffer output must not be colored in auto mode")
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := New(&buf, FormatTable).WriteAliases(rows); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "ok") || !strings.Contains(out, "unknown provider") {
			t.Errorf("status column missing:\n%s", out)
		}
	})
}

func TestWriteResolution(t *testing.T) {
	r := Resolution{
		Identifier:    "default_chat",
		Resolved:      "openrouter/openai/gpt-4o",
		Provider:      "openrouter",
		Protocol:      "openrouter",
		Model:         "openai/gpt-4o",
		BaseURL:       "https://openrouter.ai/api/v1",
		CredentialEnv: "OPENROUTER_API_KEY",
	}

	var buf bytes.Buffer
	if err := New(&buf, FormatText).WriteResolution(r); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"default_chat", "openai/gpt-4o", "OPENROUTER_API_KEY"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := New(&buf, FormatJSON).WriteResolution(r); err != nil {
		t.Fatal(err)
	}
	var decoded Resolution
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded != r {
		t.Errorf("json round trip = %+v, %v", decoded, err)
	}
}
