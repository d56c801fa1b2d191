// Package recommend turns a free-text query into ranked book
// recommendations using a primary and a fallback text generator.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/errors"
	"github.com/lepinkainen/bookmind/internal/extract"
	"github.com/lepinkainen/bookmind/internal/llm"
)

// FallbackSystemPrompt describes the expected JSON schema to the fallback
// generator.
const FallbackSystemPrompt = `You are a book recommendation expert. When a user asks for book recommendations,
provide 3-5 relevant book suggestions in JSON format. Each book should include:

- title (string): The book title
- author (string): The book author
- description (string): A brief description of the book
- isbn (string, optional): ISBN if known
- genres (array of strings): Book genres
- reasoning (string): Why this book matches the user's interests

Respond with only a JSON array of books. Format the response like:
` + "```json" + `
[
  {
    "title": "Book Title",
    "author": "Book Author",
    "description": "Book description...",
    "isbn": "1234567890",
    "genres": ["Fantasy", "Adventure"],
    "reasoning": "This book matches your interest in..."
  }
]
` + "```"

// FormatQuery wraps the user's query in the recommendation prompt.
func FormatQuery(query string) string {
	return fmt.Sprintf(`I'm looking for book recommendations. Here's what I'm interested in:
%s

Please recommend books that match my interests.`, query)
}

// Score is the relevance assigned to the recommendation at rank i.
func Score(i int) float64 {
	return math.Max(0, 1.0-0.1*float64(i))
}

// Provider generates recommendations. It never fails: generator and parse
// errors degrade to the next tier and finally to an empty list.
type Provider struct {
	primary     llm.Generator
	fallback    llm.Generator
	categorizer *Categorizer
	now         func() time.Time
	newID       func() string
}

// NewProvider creates a provider. Either generator may be nil.
func NewProvider(primary, fallback llm.Generator, categorizer *Categorizer) *Provider {
	if categorizer == nil {
		categorizer = NewCategorizer(nil)
	}
	return &Provider{
		primary:     primary,
		fallback:    fallback,
		categorizer: categorizer,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Generate returns at most n recommendations for query, best first.
func (p *Provider) Generate(ctx context.Context, query string, n int) []book.Recommendation {
	if n <= 0 {
		return []book.Recommendation{}
	}
	prompt := FormatQuery(query)

	var records []record
	if p.primary != nil {
		out, err := p.primary.Complete(ctx, prompt)
		if err == nil {
			records, err = parseRecords(out)
		}
		if len(records) == 0 {
			slog.Warn("Primary recommender gave no usable records, using fallback",
				"failure", failureClass(err), "error", err)
		}
	}

	if len(records) == 0 && p.fallback != nil {
		out, err := llm.CompleteWithSystem(ctx, p.fallback, FallbackSystemPrompt, prompt)
		if err == nil {
			records, err = parseRecords(out)
		}
		if len(records) == 0 {
			slog.Warn("Fallback recommender gave no usable records",
				"failure", failureClass(err), "error", err)
		}
	}

	recs := make([]book.Recommendation, 0, min(n, len(records)))
	for _, r := range records {
		if len(recs) == n {
			break
		}
		b := r.toBook()
		b.Genres = p.categorizer.Categorize(b)

		reasoning := strings.TrimSpace(r.Reasoning)
		if reasoning == "" {
			reasoning = book.DefaultReasoning
		}
		recs = append(recs, book.Recommendation{
			ID:             p.newID(),
			Book:           b,
			RelevanceScore: Score(len(recs)),
			Reasoning:      reasoning,
			CreatedAt:      p.now(),
		})
	}

	slog.Debug("Generated recommendations", "query", query, "count", len(recs))
	return recs
}

// record is one generator-produced book entry.
type record struct {
	Title         flexString `json:"title"`
	Author        flexString `json:"author"`
	Description   flexString `json:"description"`
	ISBN          flexString `json:"isbn"`
	Genres        []string   `json:"genres"`
	Pages         flexInt    `json:"pages"`
	PublishedYear flexInt    `json:"published_year"`
	CoverURL      flexString `json:"cover_url"`
	SourceURL     flexString `json:"goodreads_url"`
	Reasoning     string     `json:"reasoning"`
}

func (r record) toBook() book.Book {
	b := book.Book{
		Title:         strings.TrimSpace(string(r.Title)),
		Author:        strings.TrimSpace(string(r.Author)),
		Description:   string(r.Description),
		ISBN:          strings.TrimSpace(string(r.ISBN)),
		Genres:        r.Genres,
		Pages:         int(r.Pages),
		PublishedYear: int(r.PublishedYear),
		CoverURL:      string(r.CoverURL),
		SourceURL:     string(r.SourceURL),
	}
	if b.Title == "" {
		b.Title = book.UnknownTitle
	}
	if b.Author == "" {
		b.Author = book.UnknownAuthor
	}
	return b
}

// failureClass names the kind of generator failure for logging.
func failureClass(err error) string {
	switch {
	case err == nil:
		return "no records"
	case errors.IsConfigurationMissingError(err):
		return "configuration missing"
	case errors.IsRateLimitError(err):
		return "rate limited"
	case errors.IsProviderUnavailableError(err):
		return "provider unavailable"
	case errors.IsMalformedResponseError(err):
		return "malformed response"
	}
	return "other"
}

// parseRecords extracts the JSON array from a generator response. Entries
// that are not objects, fail to decode, or lack both title and author are
// skipped.
func parseRecords(text string) ([]record, error) {
	var raw []json.RawMessage
	if err := extract.Array(text, &raw); err != nil {
		return nil, err
	}

	records := make([]record, 0, len(raw))
	for _, item := range raw {
		var r record
		if err := json.Unmarshal(item, &r); err != nil {
			slog.Debug("Skipping undecodable recommendation", "error", err)
			continue
		}
		if strings.TrimSpace(string(r.Title)) == "" && strings.TrimSpace(string(r.Author)) == "" {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or numeric string; anything else is zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := n.Int64(); err == nil && v > 0 {
			*f = flexInt(v)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v > 0 {
			*f = flexInt(v)
		}
	}
	return nil
}
