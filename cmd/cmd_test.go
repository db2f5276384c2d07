package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimmerbailey/aicommons/internal/aliases"
	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/llm"
)

// writeConfig writes a config file in a fresh directory and points HOME at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, ".aicommons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"top_p=0.9", "seed=42", "json=true", "stop=[END, STOP]", "user=alice", "note="})
	require.NoError(t, err)

	assert.Equal(t, 0.9, params["top_p"])
	assert.Equal(t, 42, params["seed"])
	assert.Equal(t, true, params["json"])
	assert.Equal(t, []any{"END", "STOP"}, params["stop"])
	assert.Equal(t, "alice", params["user"])
	assert.Equal(t, "", params["note"])

	for _, bad := range []string{"novalue", "=1", "x=[unterminated"} {
		_, err := parseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestBuildMessages(t *testing.T) {
	assert.Equal(t,
		[]llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		buildMessages("  ", "hi"))
	assert.Equal(t,
		[]llm.Message{{Role: llm.RoleSystem, Content: "be brief"}, {Role: llm.RoleUser, Content: "hi"}},
		buildMessages("be brief", "hi"))
}

func TestReadPrompt(t *testing.T) {
	got, err := readPrompt([]string{"hello", "world"}, strings.NewReader("ignored"), false)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = readPrompt(nil, strings.NewReader("  from stdin\n"), false)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readPrompt(nil, strings.NewReader(""), false)
	assert.Error(t, err)

	_, err = readPrompt(nil, strings.NewReader("x"), true)
	assert.Error(t, err)
}

func TestReadSecretFromPipe(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("sk-piped-key\nthe prompt\n"))
	key, err := readSecret(in, nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "sk-piped-key", key)

	prompt, err := readPrompt(nil, in, false)
	require.NoError(t, err)
	assert.Equal(t, "the prompt", prompt)

	_, err = readSecret(bufio.NewReader(strings.NewReader("\n")), nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	cfg := writeConfig(t, "format: text\n")

	out, _, err := execute(t, "", "resolve", "default_chat", "--config", cfg, "-f", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "openrouter/openai/gpt-4o", got["resolved"])
	assert.Equal(t, "openrouter", got["provider"])
	assert.Equal(t, "openai/gpt-4o", got["model"])
	assert.Equal(t, "OPENROUTER_API_KEY", got["credential_env"])

	_, _, err = execute(t, "", "resolve", "nobody/model", "--config", cfg, "-f", "text")
	assert.ErrorIs(t, err, clienterr.ErrUnknownProvider)

	_, _, err = execute(t, "", "resolve", "not-an-alias", "--config", cfg, "-f", "text")
	assert.ErrorIs(t, err, clienterr.ErrModelAlias)
}

func TestProvidersCommand(t *testing.T) {
	cfg := writeConfig(t, `
providers:
  - prefix: lmstudio
    protocol: openai
    credential_optional: true
    base_url: http://localhost:1234/v1
`)

	out, _, err := execute(t, "", "providers", "--config", cfg, "-f", "table")
	require.NoError(t, err)
	for _, want := range []string{"PREFIX", "openai", "deepseek", "anthropic", "openrouter", "ollama", "lmstudio"} {
		assert.Contains(t, out, want)
	}
}

func TestAliasesMergeSkipsEmptySource(t *testing.T) {
	cfg := writeConfig(t, "format: text\n")
	dir := t.TempDir()

	base := filepath.Join(dir, "base.yaml")
	empty := filepath.Join(dir, "empty.yaml")
	merged := filepath.Join(dir, "merged.yaml")
	require.NoError(t, os.WriteFile(base, []byte("fast: openai/gpt-4o-mini\n"), 0o600))
	require.NoError(t, os.WriteFile(empty, []byte("# nothing yet\n"), 0o600))

	_, _, err := execute(t, "", "aliases", "merge", base, empty, "-o", merged, "--config", cfg)
	require.NoError(t, err)

	table, err := aliases.LoadFile(merged)
	require.NoError(t, err)
	assert.Equal(t, []string{"fast"}, table.Names())
}

func TestWriteAliasFileReportsFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	table := aliases.New(map[string]string{"fast": "openai/gpt-4o-mini"})
	assert.Error(t, writeAliasFile("/dev/full", table))
	assert.Error(t, writeAliasFile(filepath.Join(t.TempDir(), "missing", "out.yaml"), table))
}

func TestAliasesMergeAndValidate(t *testing.T) {
	cfg := writeConfig(t, "format: text\n")
	dir := t.TempDir()

	base := filepath.Join(dir, "base.yaml")
	override := filepath.Join(dir, "override.yaml")
	merged := filepath.Join(dir, "merged.yaml")
	require.NoError(t, os.WriteFile(base, []byte("fast: openai/gpt-4o-mini\nsmart: openai/gpt-4\n"), 0o600))
	require.NoError(t, os.WriteFile(override, []byte("smart: anthropic/claude-3-7-sonnet-20250219\nbroken: nowhere/model\n"), 0o600))

	_, stderr, err := execute(t, "", "aliases", "merge", base, override, "-o", merged, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Merged 2 file(s)")

	table, err := aliases.LoadFile(merged)
	require.NoError(t, err)
	target, _ := table.Lookup("smart")
	assert.Equal(t, "anthropic/claude-3-7-sonnet-20250219", target, "later file wins")
	assert.Equal(t, 3, table.Len())

	out, _, err := execute(t, "", "aliases", "validate", "--aliases", merged, "--config", cfg, "-f", "text", "--color", "never")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 alias(es)")
	assert.Contains(t, out, "broken -> nowhere/model")
	assert.Contains(t, out, "3 aliases checked, 1 broken")

	out, _, err = execute(t, "", "aliases", "list", "--aliases", merged, "--config", cfg, "-f", "json")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 3)

	// Reset the persistent flag for later tests.
	_, _, err = execute(t, "", "aliases", "list", "--aliases", "", "--config", cfg, "-f", "text")
	require.NoError(t, err)
}

func TestCompleteCommandEndToEnd(t *testing.T) {
	var gotAuth, gotTitle string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{\"choices\":[{\"message\":{\"content\":\"```text\\nfenced reply\\n```\"}}]}"))
	}))
	defer server.Close()

	cfg := writeConfig(t, `
temperature: 0.2
openrouter:
  title: cmd-test
providers:
  - prefix: mock
    protocol: openrouter
    credential_env: MOCK_API_KEY
    base_url: `+server.URL+`
`)
	t.Setenv("MOCK_API_KEY", "mock-secret")

	out, stderr, err := execute(t, "the prompt from stdin",
		"complete", "-m", "mock/some/model", "-s", "be brief", "--param", "top_p=0.5",
		"--strip-fences", "--metrics", "--config", cfg, "-f", "json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "fenced reply", got["text"])
	assert.Equal(t, "mock", got["provider"])
	assert.Equal(t, "some/model", got["model"])

	assert.Equal(t, "Bearer mock-secret", gotAuth)
	assert.Equal(t, "cmd-test", gotTitle)
	assert.Equal(t, "some/model", gotBody["model"])
	assert.Equal(t, 0.2, gotBody["temperature"])
	assert.Equal(t, 0.5, gotBody["top_p"])
	msgs, _ := gotBody["messages"].([]any)
	assert.Len(t, msgs, 2)

	assert.Contains(t, stderr, `aicommons_requests_total{model="some/model",provider="mock",status="ok"} 1`)
}

func TestCompleteCommandMissingKey(t *testing.T) {
	cfg := writeConfig(t, "format: text\n")
	t.Setenv("OPENROUTER_API_KEY", "")

	_, _, err := execute(t, "", "complete", "-m", "default_chat", "--config", cfg, "-f", "text", "hello")
	assert.ErrorIs(t, err, clienterr.ErrAPIKey)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "aicommons dev"))
}
