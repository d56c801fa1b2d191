package llm

import (
	"context"
	"strings"

	"github.com/lepinkainen/bookmind/internal/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	transport
	apiKey string
	model  string
}

var (
	_ Generator       = (*OpenAIClient)(nil)
	_ SystemCompleter = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a chat completions client.
func NewOpenAIClient(apiKey, model string, opts ...Option) *OpenAIClient {
	if model == "" {
		model = "gpt-4-turbo"
	}
	return &OpenAIClient{
		transport: newTransport(defaultOpenAIBaseURL, opts),
		apiKey:    apiKey,
		model:     model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as the user message, preceded by the configured
// system prompt when one is set.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, c.system, prompt)
}

// CompleteWithSystem sends system as the system message and prompt as the
// user message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.NewConfigurationMissingError("OPENAI_API_KEY")
	}

	req := chatRequest{Model: c.model}
	if strings.TrimSpace(system) != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.postJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", errors.NewProviderUnavailableError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewMalformedResponseError("no choices in completion")
	}

	return resp.Choices[0].Message.Content, nil
}
