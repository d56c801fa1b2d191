package llm

import (
	"context"

	"github.com/lepinkainen/bookmind/internal/errors"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

// OllamaClient implements Generator using the Ollama generate API.
type OllamaClient struct {
	transport
	model string
}

var (
	_ Generator       = (*OllamaClient)(nil)
	_ SystemCompleter = (*OllamaClient)(nil)
)

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(baseURL, model string, opts ...Option) *OllamaClient {
	if model == "" {
		model = defaultOllamaModel
	}
	opts = append([]Option{WithBaseURL(baseURL)}, opts...)
	return &OllamaClient{
		transport: newTransport(defaultOllamaBaseURL, opts),
		model:     model,
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete produces a non-streamed response for prompt.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, c.system, prompt)
}

// CompleteWithSystem passes system through Ollama's system field.
func (c *OllamaClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	req := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
		Stream: false,
	}

	var resp ollamaGenerateResponse
	if err := c.postJSON(ctx, c.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", errors.NewProviderUnavailableError("ollama", err)
	}

	return resp.Response, nil
}
