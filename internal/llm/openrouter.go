package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/registry"
	"github.com/bimmerbailey/aicommons/internal/textutil"
)

// Identification defaults sent to OpenRouter.
const (
	DefaultReferer = "http://localhost"
	DefaultTitle   = "aicommons"
)

const (
	completionsPath = "/chat/completions"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20

	// maxErrorBody caps the upstream body echoed into error messages.
	maxErrorBody = 512
)

// httpProvider speaks the OpenAI-style chat completions wire format over a
// plain HTTP POST. Headers and body are built per call.
type httpProvider struct {
	target  registry.Target
	client  *http.Client
	env     EnvLookup
	headers map[string]string
	logger  *slog.Logger
	apiKey  string
	ready   bool
}

func newHTTPProvider(target registry.Target, opts Options, logger *slog.Logger) *httpProvider {
	referer := opts.Referer
	if referer == "" {
		referer = DefaultReferer
	}
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}

	headers := map[string]string{
		"HTTP-Referer": referer,
		"X-Title":      title,
	}
	for k, v := range target.Provider.Headers {
		headers[k] = v
	}

	return &httpProvider{
		target:  target,
		client:  opts.httpClient(),
		env:     opts.env(),
		headers: headers,
		logger:  logger,
	}
}

func (p *httpProvider) Authenticate(override string) error {
	apiKey, err := resolveAPIKey(p.target.Provider, override, p.env)
	if err != nil {
		return err
	}
	p.apiKey = apiKey
	p.ready = true
	return nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

// Complete posts one chat completion request and extracts the first
// choice's message content.
func (p *httpProvider) Complete(ctx context.Context, req Request) (string, error) {
	name := p.target.Provider.Name
	if !p.ready {
		return "", notAuthenticated(name)
	}
	if err := req.Validate(); err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "invalid request")
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "failed to encode request")
	}

	url := strings.TrimRight(p.target.BaseURL, "/") + completionsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "failed to build request")
	}

	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	p.logger.Debug("sending chat request",
		"request_id", req.ID,
		"provider", name,
		"model", req.Model,
		"messages", len(req.Messages),
		"url", url,
	)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "%s api request failed", name)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Error("chat request failed", "request_id", req.ID, "status", resp.StatusCode, "model", req.Model)
		return "", clienterr.HTTPStatus(name, req.Model, resp.StatusCode, errorDetail(raw))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "%s api returned invalid json: %s", name, truncate(string(raw)))
	}
	if parsed.Error != nil {
		return "", clienterr.APIRequest(name, req.Model, nil, "%s api error: %s", name, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", clienterr.APIRequest(name, req.Model, nil, "%s api response missing expected data: %s", name, truncate(string(raw)))
	}

	content := parsed.Choices[0].Message.Content
	if content == nil {
		return "", clienterr.APIRequest(name, req.Model, nil, "api returned non-text content or empty message")
	}

	return *content, nil
}

// buildPayload merges extra params under the core fields; core fields win.
func buildPayload(req Request) map[string]any {
	payload := make(map[string]any, len(req.Params)+4)
	for k, v := range req.Params {
		payload[k] = v
	}
	payload["model"] = req.Model
	payload["messages"] = req.Messages
	payload["temperature"] = req.Temperature
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	return payload
}

// errorDetail prefers the structured error message of an OpenAI-style error
// body and falls back to the raw text.
func errorDetail(raw []byte) string {
	var body struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return truncate(body.Error.Message)
	}
	return truncate(strings.TrimSpace(string(raw)))
}

// truncate redacts credentials from upstream text and caps its length.
func truncate(s string) string {
	s = textutil.Redact(s)
	if len(s) <= maxErrorBody {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:maxErrorBody], len(s))
}
