// Package client is the public entry point for completions: construct a
// Client with a model identifier, then call Complete.
//
// Construction runs alias resolution, provider determination and credential
// acquisition in that order. Any failure leaves the Client in StateFailed
// and New returns the error; a failed Client refuses every call.
package client

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bimmerbailey/aicommons/internal/aliases"
	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/llm"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

// State is the lifecycle stage of a Client.
type State int

const (
	StateUninitialized State = iota
	StateResolved
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolved:
		return "resolved"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client owns one resolved provider adapter. It is immutable after New and
// safe for concurrent use when the adapter is.
type Client struct {
	state      State
	err        error
	identifier string
	resolved   string
	target     registry.Target
	provider   llm.Provider

	temperature float64
	maxTokens   int
	params      map[string]any

	logger   *slog.Logger
	observer Observer
}

// New resolves identifier and prepares the matching provider adapter.
//
// The returned Client is always non-nil. On error it is in StateFailed and
// its Err method reports the same error.
func New(identifier string, opts ...Option) (*Client, error) {
	s := settings{factory: llm.New}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		state:       StateUninitialized,
		identifier:  identifier,
		temperature: s.temperature,
		maxTokens:   s.maxTokens,
		params:      s.params,
		logger:      s.logger,
		observer:    s.observer,
	}

	if err := c.resolve(s); err != nil {
		return c.fail(err)
	}
	if err := c.authenticate(s); err != nil {
		return c.fail(err)
	}
	return c, nil
}

func (c *Client) resolve(s settings) error {
	if s.temperature < 0 {
		return clienterr.Configuration(nil, "temperature must not be negative, got %v", s.temperature)
	}
	if s.maxTokens < 0 {
		return clienterr.Configuration(nil, "max tokens must not be negative, got %d", s.maxTokens)
	}

	table := s.aliases
	if table == nil {
		t, err := aliases.Default()
		if err != nil {
			return err
		}
		table = t
	}
	reg := s.registry
	if reg == nil {
		reg = registry.Default()
	}

	resolved, err := table.Resolve(c.identifier)
	if err != nil {
		return err
	}
	target, err := reg.Determine(resolved)
	if err != nil {
		return err
	}

	c.resolved = resolved
	c.target = target
	c.state = StateResolved
	c.logger.Debug("resolved model identifier",
		"identifier", c.identifier,
		"resolved", resolved,
		"provider", target.Provider.Name,
		"model", target.Model,
	)
	return nil
}

func (c *Client) authenticate(s settings) error {
	name := c.target.Provider.Name

	provider, err := s.factory(c.target, s.adapterOpts, c.logger)
	if err != nil {
		return asAPIKeyError(name, err, "failed to create provider adapter")
	}
	if provider == nil {
		return clienterr.APIKey(name, "provider factory returned no adapter")
	}
	if err := provider.Authenticate(s.apiKey); err != nil {
		return asAPIKeyError(name, err, "authentication failed")
	}

	c.provider = provider
	c.state = StateReady
	c.logger.Info("client ready",
		"provider", c.target.Provider.Name,
		"model", c.target.Model,
		"credential_env", c.target.Provider.CredentialEnv,
		"api_key", "redacted",
	)
	return nil
}

// asAPIKeyError keeps taxonomy errors as they are and wraps anything else
// from an injected factory or adapter.
func asAPIKeyError(provider string, err error, msg string) error {
	if clienterr.KindOf(err) != "" {
		return err
	}
	return &clienterr.Error{Kind: clienterr.KindAPIKey, Provider: provider, Message: msg, Cause: err}
}

func (c *Client) fail(err error) (*Client, error) {
	c.state = StateFailed
	c.err = err
	c.provider = nil
	c.logger.Error("client construction failed", "identifier", c.identifier, "error", err)
	return c, err
}

// State reports the lifecycle stage. A nil Client is uninitialized.
func (c *Client) State() State {
	if c == nil {
		return StateUninitialized
	}
	return c.state
}

// Err returns the construction error of a failed Client.
func (c *Client) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}

// Provider returns the resolved provider name.
func (c *Client) Provider() string { return c.target.Provider.Name }

// Model returns the api-facing model name, with the provider prefix removed.
func (c *Client) Model() string { return c.target.Model }

// ResolvedID returns the fully qualified identifier after alias resolution.
func (c *Client) ResolvedID() string { return c.resolved }

// Target returns the resolved target.
func (c *Client) Target() registry.Target { return c.target }

// Complete sends messages to the resolved provider and returns the generated
// text exactly as the provider produced it. Call options apply to this call
// only.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts ...CallOption) (string, error) {
	if c == nil || c.state != StateReady || c.provider == nil {
		e := &clienterr.Error{Kind: clienterr.KindNotReady, Message: "client is not ready"}
		if c != nil {
			e.Provider = c.target.Provider.Name
			e.Cause = c.err
		}
		return "", e
	}

	req := llm.Request{
		ID:          uuid.NewString(),
		Model:       c.target.Model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Params:      make(map[string]any, len(c.params)),
	}
	for k, v := range c.params {
		req.Params[k] = v
	}
	for _, opt := range opts {
		opt(&req)
	}

	c.logger.Debug("calling provider",
		"request_id", req.ID,
		"provider", c.target.Provider.Name,
		"model", req.Model,
		"temperature", req.Temperature,
		"max_tokens", req.MaxTokens,
	)

	start := time.Now()
	text, err := c.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil && clienterr.KindOf(err) == "" {
		// Adapters outside this module may return foreign errors.
		err = clienterr.APIRequest(c.target.Provider.Name, req.Model, err, "completion failed")
	}

	if c.observer != nil {
		c.observer.ObserveCompletion(c.target.Provider.Name, req.Model, elapsed, string(clienterr.KindOf(err)))
	}

	if err != nil {
		c.logger.Error("completion failed", "request_id", req.ID, "provider", c.target.Provider.Name, "error", err)
		return "", err
	}

	c.logger.Debug("completion succeeded", "request_id", req.ID, "elapsed", elapsed, "chars", len(text))
	return text, nil
}
