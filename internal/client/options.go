package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bimmerbailey/aicommons/internal/aliases"
	"github.com/bimmerbailey/aicommons/internal/llm"
	"github.com/bimmerbailey/aicommons/internal/registry"
)

// ProviderFactory builds the adapter for a resolved target. llm.New is used
// unless WithProviderFactory replaces it.
type ProviderFactory func(target registry.Target, opts llm.Options, logger *slog.Logger) (llm.Provider, error)

// Observer is notified once per Complete call. kind is empty on success and
// the clienterr.Kind of the failure otherwise.
type Observer interface {
	ObserveCompletion(provider, model string, elapsed time.Duration, kind string)
}

type settings struct {
	aliases     *aliases.Table
	registry    *registry.Registry
	apiKey      string
	temperature float64
	maxTokens   int
	params      map[string]any
	adapterOpts llm.Options
	logger      *slog.Logger
	observer    Observer
	factory     ProviderFactory
}

// Option configures a Client at construction time.
type Option func(*settings)

// WithAliases sets the alias table. The embedded default table is used otherwise.
func WithAliases(t *aliases.Table) Option {
	return func(s *settings) { s.aliases = t }
}

// WithRegistry sets the provider registry. registry.Default is used otherwise.
func WithRegistry(r *registry.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithAPIKey sets an explicit credential that takes precedence over the
// provider's environment variable.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(s *settings) { s.temperature = t }
}

// WithMaxTokens sets the default response length limit. Zero leaves it to
// the provider.
func WithMaxTokens(n int) Option {
	return func(s *settings) { s.maxTokens = n }
}

// WithParams sets default extra parameters sent with every call.
func WithParams(params map[string]any) Option {
	return func(s *settings) {
		s.params = make(map[string]any, len(params))
		for k, v := range params {
			s.params[k] = v
		}
	}
}

// WithEnv replaces the environment lookup used for credentials.
func WithEnv(env llm.EnvLookup) Option {
	return func(s *settings) { s.adapterOpts.Env = env }
}

// WithHTTPClient sets the HTTP client shared by the adapter.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.adapterOpts.HTTPClient = c }
}

// WithTimeout bounds each round trip when no HTTP client is supplied.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.adapterOpts.Timeout = d }
}

// WithIdentification sets the referer and title sent to providers that
// want the calling application identified.
func WithIdentification(referer, title string) Option {
	return func(s *settings) {
		s.adapterOpts.Referer = referer
		s.adapterOpts.Title = title
	}
}

// WithLogger sets the logger. Output is discarded otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithObserver registers an observer for completion outcomes.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithProviderFactory replaces adapter construction.
func WithProviderFactory(f ProviderFactory) Option {
	return func(s *settings) { s.factory = f }
}

// CallOption overrides a client default for a single Complete call.
type CallOption func(*llm.Request)

// Temperature overrides the temperature for one call.
func Temperature(t float64) CallOption {
	return func(r *llm.Request) { r.Temperature = t }
}

// MaxTokens overrides the response length limit for one call.
func MaxTokens(n int) CallOption {
	return func(r *llm.Request) { r.MaxTokens = n }
}

// Param sets one extra backend parameter for one call.
func Param(key string, value any) CallOption {
	return func(r *llm.Request) { r.Params[key] = value }
}
