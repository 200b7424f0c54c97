package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// providerKeyEnv maps a provider to the environment variable holding its key.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"groq":   "GROQ_API_KEY",
	"gemini": "GEMINI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
}

// CreateAdapter creates an LLM adapter based on the model configuration
func CreateAdapter(ctx context.Context, modelStr, apiKey, baseURL string, timeout time.Duration) (Adapter, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid model format: %s (expected provider:model)", modelStr)
	}

	provider := parts[0]
	config := AdapterConfig{
		Provider: provider,
		Model:    parts[1],
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Timeout:  timeout,
	}
	if config.APIKey == "" {
		if env, ok := providerKeyEnv[provider]; ok {
			config.APIKey = os.Getenv(env)
		}
	}

	switch provider {
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not provided (set OPENAI_API_KEY or run `playground config set api_key ...`)")
		}
		return NewOpenAIAdapter(config), nil

	case "groq":
		if config.BaseURL == "" {
			config.BaseURL = groqBaseURL
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("Groq API key not provided (set GROQ_API_KEY)")
		}
		return NewOpenAIAdapter(config), nil

	case "claude":
		if config.BaseURL == "" {
			config.BaseURL = anthropicBaseURL
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key not provided (set ANTHROPIC_API_KEY)")
		}
		return NewOpenAIAdapter(config), nil

	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = ollamaBaseURL
		}
		return NewOpenAIAdapter(config), nil

	case "gemini":
		if config.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key not provided (set GEMINI_API_KEY)")
		}
		return NewGeminiAdapter(ctx, config)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, groq, claude, ollama, gemini)", provider)
	}
}

// GetProviderFromModel extracts the provider from a model string
func GetProviderFromModel(modelStr string) string {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) == 2 {
		return parts[0]
	}
	return "unknown"
}

// GetModelFromModel extracts the model name from a model string
func GetModelFromModel(modelStr string) string {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return modelStr
}
