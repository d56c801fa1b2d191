package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/extract"
	"github.com/lepinkainen/bookmind/internal/llm"
)

// SystemPrompt instructs the model to return the analysis JSON object.
const SystemPrompt = `You are a literary analysis expert. Analyze the book description provided and return a JSON object with:

1. sentiment: The emotional tone of the book (e.g., "hopeful", "dark", "humorous", "melancholic")
2. themes: An array of 3-5 main themes or topics in the book
3. complexity: A float from 0.0 to 1.0 representing the reading complexity (0.0 = very easy, 1.0 = very complex)

Base your analysis on the book's title, author, and description.

Return ONLY a JSON object like:
` + "```json" + `
{
  "sentiment": "hopeful",
  "themes": ["identity", "resilience", "family dynamics", "social change"],
  "complexity": 0.7
}
` + "```"

// LLMAnalyzer asks a text generator for the analysis.
type LLMAnalyzer struct {
	gen llm.Generator
}

var _ Analyzer = (*LLMAnalyzer)(nil)

// NewLLMAnalyzer creates an analyzer backed by gen.
func NewLLMAnalyzer(gen llm.Generator) *LLMAnalyzer {
	return &LLMAnalyzer{gen: gen}
}

type llmResult struct {
	Sentiment  *string  `json:"sentiment"`
	Themes     []string `json:"themes"`
	Complexity *float64 `json:"complexity"`
}

// Analyze never fails: generator or parse errors yield DefaultResult and
// missing fields are defaulted individually.
func (a *LLMAnalyzer) Analyze(ctx context.Context, b book.Book) (Result, error) {
	if a.gen == nil {
		return DefaultResult(), nil
	}
	out, err := llm.CompleteWithSystem(ctx, a.gen, SystemPrompt, bookText(b))
	if err != nil {
		slog.Warn("LLM analysis failed, using defaults", "title", b.Title, "error", err)
		return DefaultResult(), nil
	}

	var parsed llmResult
	if err := extract.Object(out, &parsed); err != nil {
		slog.Warn("Could not parse LLM analysis, using defaults", "title", b.Title, "error", err)
		return DefaultResult(), nil
	}

	res := DefaultResult()
	if parsed.Sentiment != nil {
		res.Sentiment = *parsed.Sentiment
	}
	if len(parsed.Themes) > 0 {
		res.Themes = parsed.Themes
	}
	if parsed.Complexity != nil {
		res.Complexity = *parsed.Complexity
	}
	return res.normalize(), nil
}

func bookText(b book.Book) string {
	return fmt.Sprintf("Title: %s\nAuthor: %s\nDescription: %s\nGenres: %s",
		b.Title, b.Author, b.Description, strings.Join(b.Genres, ", "))
}
