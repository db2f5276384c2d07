package registry

import "sync"

// Built-in descriptors.
var (
	OpenAI = Provider{
		Name:          "openai",
		Prefix:        "openai",
		Protocol:      ProtocolOpenAI,
		CredentialEnv: "OPENAI_API_KEY",
		KeyPrefix:     "sk-",
		BaseURL:       "https://api.openai.com/v1",
	}

	DeepSeek = Provider{
		Name:            "deepseek",
		Prefix:          "deepseek",
		Protocol:        ProtocolOpenAI,
		CredentialEnv:   "DEEPSEEK_API_KEY",
		KeyPrefix:       "sk-",
		BaseURL:         "https://api.deepseek.com/v1",
		LegacyMaxTokens: true,
	}

	Anthropic = Provider{
		Name:          "anthropic",
		Prefix:        "anthropic",
		Protocol:      ProtocolAnthropic,
		CredentialEnv: "ANTHROPIC_API_KEY",
		KeyPrefix:     "sk-ant-",
		BaseURL:       "https://api.anthropic.com/v1",
	}

	OpenRouter = Provider{
		Name:          "openrouter",
		Prefix:        "openrouter",
		Protocol:      ProtocolOpenRouter,
		CredentialEnv: "OPENROUTER_API_KEY",
		KeyPrefix:     "sk-or-v1-",
		BaseURL:       "https://openrouter.ai/api/v1",
	}

	Ollama = Provider{
		Name:               "ollama",
		Prefix:             "ollama",
		Protocol:           ProtocolOllama,
		CredentialEnv:      "OLLAMA_API_KEY",
		CredentialOptional: true,
		BaseURL:            "http://localhost:11434",
	}
)

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry of built-in providers.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(OpenAI, DeepSeek, Anthropic, OpenRouter, Ollama)
		if err != nil {
			panic("registry: invalid built-in providers: " + err.Error())
		}
		defaultReg = r
	})
	return defaultReg
}
