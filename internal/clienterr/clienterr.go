// Package clienterr defines the error taxonomy shared by every layer of the
// completion client.
//
// All failures surfaced to callers are *Error values carrying one Kind.
// Use errors.Is against the exported sentinels to branch on the kind:
//
//	if errors.Is(err, clienterr.ErrAPIKey) {
//	    // prompt for a key
//	}
package clienterr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a client failure.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindModelAlias      Kind = "model_alias"
	KindUnknownProvider Kind = "unknown_provider"
	KindAPIKey          Kind = "api_key"
	KindAPIRequest      Kind = "api_request"
	KindNotReady        Kind = "not_ready"
)

// Error is the single error type returned across package boundaries.
type Error struct {
	Kind       Kind
	Provider   string
	Model      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(":")
	}
	b.WriteString(string(e.Kind))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrConfiguration   = &Error{Kind: KindConfiguration, Message: "configuration error"}
	ErrModelAlias      = &Error{Kind: KindModelAlias, Message: "model alias not found"}
	ErrUnknownProvider = &Error{Kind: KindUnknownProvider, Message: "unknown provider"}
	ErrAPIKey          = &Error{Kind: KindAPIKey, Message: "api key missing or invalid"}
	ErrAPIRequest      = &Error{Kind: KindAPIRequest, Message: "api request failed"}
	ErrNotReady        = &Error{Kind: KindNotReady, Message: "client is not ready"}
)

// Configuration returns a KindConfiguration error.
func Configuration(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ModelAlias returns a KindModelAlias error for the given alias.
func ModelAlias(alias string) *Error {
	return &Error{Kind: KindModelAlias, Message: fmt.Sprintf("model alias %q not found", alias)}
}

// UnknownProvider returns a KindUnknownProvider error for the given identifier.
func UnknownProvider(identifier string) *Error {
	return &Error{
		Kind:    KindUnknownProvider,
		Message: fmt.Sprintf("could not determine provider for model id %q", identifier),
	}
}

// APIKey returns a KindAPIKey error attributed to provider.
func APIKey(provider string, format string, args ...any) *Error {
	return &Error{Kind: KindAPIKey, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// APIRequest returns a KindAPIRequest error wrapping cause.
func APIRequest(provider, model string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:     KindAPIRequest,
		Provider: provider,
		Model:    model,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}

// HTTPStatus returns a KindAPIRequest error for a non-2xx upstream response.
func HTTPStatus(provider, model string, status int, body string) *Error {
	return &Error{
		Kind:       KindAPIRequest,
		Provider:   provider,
		Model:      model,
		StatusCode: status,
		Message:    fmt.Sprintf("upstream returned status %d: %s", status, body),
	}
}

// KindOf reports the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
