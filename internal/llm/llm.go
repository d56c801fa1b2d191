// Package llm provides text generation backends: an OpenAI-compatible chat
// client, an Ollama client and wrappers that bound calls with timeouts and a
// circuit breaker.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SystemCompleter is implemented by generators that can send a separate
// system instruction alongside the user prompt.
type SystemCompleter interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Func adapts a plain function to the Generator interface.
type Func func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f Func) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var _ Generator = Func(nil)

// CompleteWithSystem sends system and prompt to g. Generators without native
// system message support receive the instruction prepended to the prompt.
func CompleteWithSystem(ctx context.Context, g Generator, system, prompt string) (string, error) {
	if system == "" {
		return g.Complete(ctx, prompt)
	}
	if sc, ok := g.(SystemCompleter); ok {
		return sc.CompleteWithSystem(ctx, system, prompt)
	}
	return g.Complete(ctx, system+"\n\n"+prompt)
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to g by timeout. A non-positive timeout
// returns g unchanged.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 || g == nil {
		return g
	}
	return &timeoutGenerator{next: g, timeout: timeout}
}

func (t *timeoutGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt)
}

func (t *timeoutGenerator) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return CompleteWithSystem(ctx, t.next, system, prompt)
}

// New builds a generator for provider ("openai" or "ollama").
func New(provider, model, baseURL, apiKey string, httpTimeout time.Duration) (Generator, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, model, WithBaseURL(baseURL), WithHTTPTimeout(httpTimeout)), nil
	case "ollama":
		return NewOllamaClient(baseURL, model, WithHTTPTimeout(httpTimeout)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
