// Package llm holds the backend adapters behind a single Provider interface.
//
// # Architecture
//
// New is a factory keyed on the registry.Protocol of a resolved target.
// There are three adapter families:
//
//	┌──────────────────┐
//	│ llm package      │  ← Provider interface, New() factory
//	└──────┬───────────┘
//	       │
//	       ├──────────────────┬─────────────────────┐
//	       │                  │                     │
//	┌──────▼───────┐  ┌───────▼────────┐  ┌─────────▼──────┐
//	│ sdkProvider  │  │ httpProvider   │  │ llm/ollama     │
//	│ (langchaingo │  │ (raw POST,     │  │ (ollama api    │
//	│ openai,      │  │ OpenRouter)    │  │ client)        │
//	│ anthropic)   │  │                │  │                │
//	└──────────────┘  └────────────────┘  └────────────────┘
//
// The ollama subpackage defines its own types to avoid an import cycle; the
// ollamaProviderAdapter in this package bridges them.
//
// # Usage
//
//	target, _ := registry.Default().Determine("openai/gpt-4o")
//	provider, err := llm.New(target, llm.Options{}, logger)
//	if err != nil {
//	    return err
//	}
//	if err := provider.Authenticate(""); err != nil {
//	    return err // clienterr.KindAPIKey
//	}
//	text, err := provider.Complete(ctx, llm.Request{
//	    Model:    target.Model,
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
//	})
//
// # Credentials
//
// Authenticate resolves the key from the override argument, then from the
// descriptor's CredentialEnv, and checks the descriptor's KeyPrefix. The key
// never leaves the adapter and never appears in an error message.
//
// # Error Handling
//
// Every error returned is a *clienterr.Error. Upstream failures (transport,
// non-2xx status, malformed payloads, cancellation) are KindAPIRequest with
// the underlying error reachable through errors.Unwrap; StatusCode is set
// when the backend answered with an HTTP error.
package llm
