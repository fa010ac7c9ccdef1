package ai

import (
	"context"
	"strings"
)

const (
	defaultOllamaModel = "llama3.1"
	defaultOllamaHost  = "http://localhost:11434"
)

// OllamaProvider implements the Provider interface for local Ollama models.
type OllamaProvider struct {
	host  string
	model string
	c     *client
}

// NewOllamaProvider creates a new Ollama provider with the given host and model.
func NewOllamaProvider(host, model string, c *client) *OllamaProvider {
	if model == "" {
		model = defaultOllamaModel
	}
	if host == "" {
		host = defaultOllamaHost
	}
	if c == nil {
		c = newClient(0, 0)
	}
	return &OllamaProvider{host: strings.TrimRight(host, "/"), model: model, c: c}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Model           string `json:"model"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Infer sends a prompt to Ollama and returns the complete response.
func (p *OllamaProvider) Infer(ctx context.Context, system string, messages []Message, opts InferOptions) (*InferResult, error) {
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	msgs := make([]ollamaMessage, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		msgs = append(msgs, ollamaMessage(m))
	}

	reqBody := ollamaRequest{Model: model, Messages: msgs, Format: "json"}

	var apiResp ollamaResponse
	if err := p.c.postJSON(ctx, p.Name(), p.host+"/api/chat", nil, reqBody, &apiResp); err != nil {
		return nil, err
	}

	return &InferResult{
		Content:      apiResp.Message.Content,
		Model:        model,
		InputTokens:  apiResp.PromptEvalCount,
		OutputTokens: apiResp.EvalCount,
	}, nil
}
