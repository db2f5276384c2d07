package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/llm/ollama"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

// Provider is the contract every backend adapter satisfies.
//
// Authenticate must succeed before Complete is called. Implementations hold
// their credential privately and never expose it.
type Provider interface {
	// Authenticate resolves the API key, preferring override over the
	// descriptor's environment variable, and prepares the backend client.
	// It performs no network I/O.
	Authenticate(override string) error

	// Complete performs exactly one round trip and returns the generated
	// text unchanged. Round-trip failures are reported as
	// clienterr.KindAPIRequest; a call before Authenticate yields
	// clienterr.KindNotReady.
	Complete(ctx context.Context, req Request) (string, error)
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	// Role identifies the message sender: "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// Request is one completion call as seen by an adapter.
type Request struct {
	// ID correlates log lines and, where the backend accepts it, the upstream request.
	ID string

	// Model is the api-facing model name (provider prefix already removed).
	Model string

	Messages []Message

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int

	// Params carries extra backend parameters such as top_p or stop.
	Params map[string]any
}

// Validate checks the request before anything is sent.
func (r Request) Validate() error {
	if r.Model == "" {
		return errors.New("model cannot be empty")
	}
	if len(r.Messages) == 0 {
		return errors.New("messages cannot be empty")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	if r.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %v", r.Temperature)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", r.MaxTokens)
	}
	return nil
}

// EnvLookup returns the value of an environment variable and whether it was set.
type EnvLookup func(name string) (string, bool)

// DefaultTimeout bounds a single completion round trip.
const DefaultTimeout = 60 * time.Second

// Options configures adapter construction.
type Options struct {
	// Env is consulted for credentials. Defaults to os.LookupEnv.
	Env EnvLookup

	// HTTPClient is used for every outbound call. When nil a client with
	// Timeout is created per adapter.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Referer and Title identify the calling application to providers that
	// ask for it (OpenRouter's HTTP-Referer and X-Title headers).
	Referer string
	Title   string
}

func (o Options) env() EnvLookup {
	if o.Env != nil {
		return o.Env
	}
	return os.LookupEnv
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// New constructs the adapter variant for target's protocol.
// The returned Provider still needs Authenticate before use.
func New(target registry.Target, opts Options, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	protocol := target.Provider.Protocol
	logger.Debug("creating llm provider", "provider", target.Provider.Name, "protocol", protocol)

	switch protocol {
	case registry.ProtocolOpenAI, registry.ProtocolAnthropic:
		return newSDKProvider(target, opts, logger), nil

	case registry.ProtocolOpenRouter:
		return newHTTPProvider(target, opts, logger), nil

	case registry.ProtocolOllama:
		return &ollamaProviderAdapter{target: target, opts: opts, logger: logger}, nil

	case "":
		return nil, clienterr.UnknownProvider(target.Provider.Prefix + registry.Separator + target.Model)

	default:
		return nil, &clienterr.Error{
			Kind:     clienterr.KindUnknownProvider,
			Provider: target.Provider.Name,
			Message:  fmt.Sprintf("unsupported protocol %q", protocol),
		}
	}
}

// ollamaProviderAdapter adapts ollama.Provider to the Provider interface.
// The ollama package keeps its own types to avoid an import cycle.
type ollamaProviderAdapter struct {
	target   registry.Target
	opts     Options
	logger   *slog.Logger
	provider *ollama.Provider
}

func (a *ollamaProviderAdapter) Authenticate(override string) error {
	apiKey, err := resolveAPIKey(a.target.Provider, override, a.opts.env())
	if err != nil {
		return err
	}

	provider, err := ollama.New(ollama.Config{
		Host:       a.target.BaseURL,
		APIKey:     apiKey,
		HTTPClient: a.opts.httpClient(),
	}, a.logger)
	if err != nil {
		return clienterr.APIKey(a.target.Provider.Name, "failed to initialize ollama client: %v", err)
	}
	a.provider = provider
	return nil
}

func (a *ollamaProviderAdapter) Complete(ctx context.Context, req Request) (string, error) {
	name := a.target.Provider.Name
	if a.provider == nil {
		return "", notAuthenticated(name)
	}
	if err := req.Validate(); err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "invalid request")
	}

	ollamaMessages := make([]ollama.Message, len(req.Messages))
	for i, msg := range req.Messages {
		ollamaMessages[i] = ollama.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := a.provider.Chat(ctx, ollamaMessages, &ollama.ChatOptions{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Params:      req.Params,
	})
	if err != nil {
		var statusErr ollama.StatusError
		if errors.As(err, &statusErr) {
			return "", &clienterr.Error{
				Kind:       clienterr.KindAPIRequest,
				Provider:   name,
				Model:      req.Model,
				StatusCode: statusErr.StatusCode,
				Message:    "ollama request failed",
				Cause:      err,
			}
		}
		return "", clienterr.APIRequest(name, req.Model, err, "ollama request failed")
	}

	return resp.Content, nil
}

func notAuthenticated(provider string) error {
	return &clienterr.Error{
		Kind:     clienterr.KindNotReady,
		Provider: provider,
		Message:  "provider used before Authenticate",
	}
}
