// Package registry maps qualified model identifiers to provider descriptors.
//
// The registry is the single source of truth for which base URL and which
// credential variable a request uses. Protocol families that serve several
// endpoints (OpenAI and DeepSeek both speak the OpenAI protocol) are modelled
// as separate descriptors sharing a Protocol, so adapters never pick URLs or
// environment variables on their own.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
)

// Protocol identifies which adapter variant speaks to a provider.
type Protocol string

const (
	// ProtocolOpenAI is served by the SDK adapter over the OpenAI chat API.
	ProtocolOpenAI Protocol = "openai"
	// ProtocolAnthropic is served by the SDK adapter over the Anthropic messages API.
	ProtocolAnthropic Protocol = "anthropic"
	// ProtocolOpenRouter is served by the raw HTTP adapter.
	ProtocolOpenRouter Protocol = "openrouter"
	// ProtocolOllama is served by the Ollama API client.
	ProtocolOllama Protocol = "ollama"
)

// Valid reports whether p is a known protocol.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolOpenAI, ProtocolAnthropic, ProtocolOpenRouter, ProtocolOllama:
		return true
	}
	return false
}

// Separator splits the provider prefix from the model name.
const Separator = "/"

// Provider describes one backend endpoint. Descriptors are values and are
// never modified after the registry is built.
type Provider struct {
	// Name is the display name, usually equal to Prefix.
	Name string `json:"name"`

	// Prefix is matched against identifiers as Prefix + "/". It may itself
	// contain "/" to carve a finer-grained endpoint out of a family.
	Prefix string `json:"prefix"`

	Protocol Protocol `json:"protocol"`

	// CredentialEnv names the environment variable holding the API key.
	CredentialEnv string `json:"credential_env,omitempty"`

	// CredentialOptional allows the adapter to run without a key.
	CredentialOptional bool `json:"credential_optional,omitempty"`

	// KeyPrefix, when set, is required at the start of the API key.
	KeyPrefix string `json:"key_prefix,omitempty"`

	// BaseURL is the API root for this endpoint.
	BaseURL string `json:"base_url,omitempty"`

	// Headers are extra request headers the provider requires.
	Headers map[string]string `json:"headers,omitempty"`

	// LegacyMaxTokens sends the length limit as max_tokens instead of
	// max_completion_tokens. OpenAI-compatible endpoints other than
	// api.openai.com only read the older field.
	LegacyMaxTokens bool `json:"legacy_max_tokens,omitempty"`
}

// Validate checks that the descriptor can be registered.
func (p Provider) Validate() error {
	if p.Prefix == "" {
		return fmt.Errorf("provider %q: prefix is required", p.Name)
	}
	if strings.HasPrefix(p.Prefix, Separator) || strings.HasSuffix(p.Prefix, Separator) {
		return fmt.Errorf("provider %q: prefix %q must not start or end with %q", p.Name, p.Prefix, Separator)
	}
	if !p.Protocol.Valid() {
		return fmt.Errorf("provider %q: unknown protocol %q", p.Name, p.Protocol)
	}
	if p.CredentialEnv == "" && !p.CredentialOptional {
		return fmt.Errorf("provider %q: credential_env is required unless credential_optional is set", p.Name)
	}
	return nil
}

// Target is the outcome of resolving a qualified identifier.
type Target struct {
	Provider Provider
	// Model is the identifier with the provider prefix and separator removed.
	Model   string
	BaseURL string
}

// Registry holds provider descriptors indexed for longest-prefix matching.
// It is immutable and safe for concurrent use.
type Registry struct {
	// byLength holds descriptors sorted by descending prefix length.
	byLength []Provider
	byPrefix map[string]Provider
}

// New builds a registry. Duplicate prefixes are rejected so that resolution
// can never be ambiguous.
func New(providers ...Provider) (*Registry, error) {
	r := &Registry{byPrefix: make(map[string]Provider, len(providers))}

	for _, p := range providers {
		if p.Name == "" {
			p.Name = p.Prefix
		}
		if err := p.Validate(); err != nil {
			return nil, clienterr.Configuration(err, "invalid provider descriptor")
		}
		if _, dup := r.byPrefix[p.Prefix]; dup {
			return nil, clienterr.Configuration(nil, "provider prefix %q registered twice", p.Prefix)
		}
		p.Headers = copyHeaders(p.Headers)
		r.byPrefix[p.Prefix] = p
		r.byLength = append(r.byLength, p)
	}

	sort.SliceStable(r.byLength, func(i, j int) bool {
		if len(r.byLength[i].Prefix) != len(r.byLength[j].Prefix) {
			return len(r.byLength[i].Prefix) > len(r.byLength[j].Prefix)
		}
		return r.byLength[i].Prefix < r.byLength[j].Prefix
	})

	return r, nil
}

// With returns a new registry containing the receiver's descriptors plus extra.
func (r *Registry) With(extra ...Provider) (*Registry, error) {
	all := append(r.Providers(), extra...)
	return New(all...)
}

// Determine resolves a qualified identifier to its provider, stripping the
// longest matching prefix. It performs no I/O.
func (r *Registry) Determine(identifier string) (Target, error) {
	if r != nil {
		for _, p := range r.byLength {
			head := p.Prefix + Separator
			if !strings.HasPrefix(identifier, head) {
				continue
			}
			model := identifier[len(head):]
			if model == "" {
				break
			}
			return Target{Provider: p.clone(), Model: model, BaseURL: p.BaseURL}, nil
		}
	}
	return Target{}, clienterr.UnknownProvider(identifier)
}

// Lookup returns the descriptor registered under prefix.
func (r *Registry) Lookup(prefix string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	p, ok := r.byPrefix[prefix]
	return p.clone(), ok
}

// Providers returns the descriptors sorted by prefix.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, 0, len(r.byPrefix))
	for _, p := range r.byPrefix {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out
}

func (p Provider) clone() Provider {
	p.Headers = copyHeaders(p.Headers)
	return p
}

func copyHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	cp := make(map[string]string, len(h))
	for k, v := range h {
		cp[k] = v
	}
	return cp
}
