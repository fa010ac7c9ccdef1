// Package ai provides a unified interface to the inference providers used to
// propose charts.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Message represents a single message in a conversation with an AI model.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// InferOptions configures a single inference call.
type InferOptions struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// InferResult holds the response from an inference call.
type InferResult struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"inputTokens,omitempty"`
	OutputTokens int    `json:"outputTokens,omitempty"`
}

// Provider defines the interface that all AI backends must implement.
type Provider interface {
	// Infer sends a prompt and returns the complete response.
	Infer(ctx context.Context, system string, messages []Message, opts InferOptions) (*InferResult, error)

	// Name returns the provider identifier.
	Name() string
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint (Ollama host, OpenAI-compatible
	// gateway, test server).
	BaseURL string
	// Attempts is the number of tries for retryable failures. Zero means one.
	Attempts int
	Timeout  time.Duration
}

// NewProvider creates a provider instance from opts. Missing API keys fall
// back to the provider's usual environment variable.
func NewProvider(opts Options) (Provider, error) {
	c := newClient(opts.Timeout, opts.Attempts)
	switch strings.ToLower(opts.Provider) {
	case "anthropic", "":
		key := firstNonEmpty(opts.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set; get a key at https://console.anthropic.com/settings/keys")
		}
		return NewAnthropicProvider(key, opts.Model, opts.BaseURL, c), nil
	case "openai":
		key := firstNonEmpty(opts.APIKey, os.Getenv("OPENAI_API_KEY"))
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIProvider(key, opts.Model, opts.BaseURL, c), nil
	case "ollama":
		host := firstNonEmpty(opts.BaseURL, os.Getenv("OLLAMA_HOST"), defaultOllamaHost)
		return NewOllamaProvider(host, opts.Model, c), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (supported: anthropic, openai, ollama)", opts.Provider)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
