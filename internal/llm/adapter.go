package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bimmerbailey/aicommons/internal/clienterr"
	"github.com/bimmerbailey/aicommons/internal/registry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// anthropicDefaultMaxTokens is sent when the caller leaves MaxTokens unset;
// the messages API refuses requests without a limit.
const anthropicDefaultMaxTokens = 4096

// sdkProvider implements Provider on top of a langchaingo llms.Model. The
// model client is built once in Authenticate for the resolved base URL and
// credential pair.
type sdkProvider struct {
	target registry.Target
	opts   Options
	logger *slog.Logger
	model  llms.Model
}

func newSDKProvider(target registry.Target, opts Options, logger *slog.Logger) *sdkProvider {
	return &sdkProvider{target: target, opts: opts, logger: logger}
}

func (a *sdkProvider) Authenticate(override string) error {
	name := a.target.Provider.Name

	apiKey, err := resolveAPIKey(a.target.Provider, override, a.opts.env())
	if err != nil {
		return err
	}

	var model llms.Model
	switch a.target.Provider.Protocol {
	case registry.ProtocolAnthropic:
		model, err = newAnthropicModel(a.target, apiKey, a.opts)
	default:
		model, err = newOpenAIModel(a.target, apiKey, a.opts)
	}
	if err != nil {
		return &clienterr.Error{
			Kind:     clienterr.KindAPIKey,
			Provider: name,
			Message:  "failed to initialize client",
			Cause:    err,
		}
	}

	a.model = model
	a.logger.Info("initialized sdk provider",
		"provider", name,
		"model", a.target.Model,
		"base_url", a.target.BaseURL,
	)
	return nil
}

// Complete sends messages and returns the text of the first choice.
func (a *sdkProvider) Complete(ctx context.Context, req Request) (string, error) {
	name := a.target.Provider.Name
	if a.model == nil {
		return "", notAuthenticated(name)
	}
	if err := req.Validate(); err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "invalid request")
	}

	callOpts, err := a.convertOptions(req)
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "invalid request")
	}

	a.logger.Debug("sending chat request",
		"request_id", req.ID,
		"provider", name,
		"model", req.Model,
		"messages", len(req.Messages),
		"temperature", req.Temperature,
	)

	resp, err := a.model.GenerateContent(ctx, convertMessages(req.Messages), callOpts...)
	if err != nil {
		return "", clienterr.APIRequest(name, req.Model, err, "%s", classifySDKError(ctx, err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", clienterr.APIRequest(name, req.Model, nil, "api returned an empty response")
	}

	return resp.Choices[0].Content, nil
}

// --- Conversion Helpers ---

func convertMessages(messages []Message) []llms.MessageContent {
	result := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		result[i] = llms.TextParts(convertRole(msg.Role), msg.Content)
	}
	return result
}

func convertRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleUser:
		return llms.ChatMessageTypeHuman
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeGeneric
	}
}

func (a *sdkProvider) convertOptions(req Request) ([]llms.CallOption, error) {
	result := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 && a.target.Provider.Protocol == registry.ProtocolAnthropic {
		maxTokens = anthropicDefaultMaxTokens
	}
	if maxTokens > 0 {
		result = append(result, llms.WithMaxTokens(maxTokens))
		if a.target.Provider.LegacyMaxTokens {
			result = append(result, openai.WithLegacyMaxTokensField())
		}
	}

	supported := sdkParams[a.target.Provider.Protocol]

	// Sorted so that the first unsupported key reported is stable.
	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !supported[key] {
			return nil, fmt.Errorf("unsupported parameter %q for %s", key, a.target.Provider.Protocol)
		}
		opt, err := paramOption(key, req.Params[key])
		if err != nil {
			return nil, err
		}
		result = append(result, opt)
	}

	return result, nil
}

// sdkParams lists, per protocol, the extra parameters langchaingo copies
// into the request body. Anything else would be accepted as a call option
// and then silently left off the wire.
var sdkParams = map[registry.Protocol]map[string]bool{
	registry.ProtocolOpenAI: {
		"seed":              true,
		"n":                 true,
		"presence_penalty":  true,
		"frequency_penalty": true,
		"stop":              true,
		"json":              true,
	},
	registry.ProtocolAnthropic: {
		"top_p": true,
		"stop":  true,
	},
}

// paramOption maps an extra parameter onto the matching langchaingo call option.
func paramOption(key string, value any) (llms.CallOption, error) {
	switch key {
	case "top_p":
		if f, ok := toFloat(value); ok {
			return llms.WithTopP(f), nil
		}
	case "seed":
		if n, ok := toInt(value); ok {
			return llms.WithSeed(n), nil
		}
	case "n":
		if n, ok := toInt(value); ok {
			return llms.WithN(n), nil
		}
	case "presence_penalty":
		if f, ok := toFloat(value); ok {
			return llms.WithPresencePenalty(f), nil
		}
	case "frequency_penalty":
		if f, ok := toFloat(value); ok {
			return llms.WithFrequencyPenalty(f), nil
		}
	case "stop":
		if words, ok := toStrings(value); ok {
			return llms.WithStopWords(words), nil
		}
	case "json":
		if b, ok := value.(bool); ok {
			if b {
				return llms.WithJSONMode(), nil
			}
			return func(*llms.CallOptions) {}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported parameter %q", key)
	}
	return nil, fmt.Errorf("parameter %q has unexpected type %T", key, value)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case string:
		return []string{s}, true
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

// classifySDKError describes a langchaingo failure for the wrapping error's
// message. The original error stays reachable through Unwrap.
func classifySDKError(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled) || llms.IsCanceledError(err):
		return "request canceled"
	case llms.IsRateLimitError(err):
		return "rate limit exceeded"
	case llms.IsAuthenticationError(err):
		return "authentication failed (check API key)"
	case llms.IsTokenLimitError(err):
		return "context too long"
	case llms.IsProviderUnavailableError(err):
		return "provider unavailable"
	default:
		return "request failed"
	}
}
