// Package analysis computes and caches sentiment, themes, complexity and
// reading time for books.
package analysis

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/cache"
)

const (
	// WordsPerPage is the assumed density of a printed page.
	WordsPerPage = 300
	// descriptionExpansion estimates book length from blurb length.
	descriptionExpansion = 75
)

// Reading speeds in words per minute by complexity band.
const (
	speedEasy   = 250
	speedMedium = 200
	speedHard   = 150
)

// Result is the raw output of an Analyzer.
type Result struct {
	Sentiment  string   `json:"sentiment"`
	Themes     []string `json:"themes"`
	Complexity float64  `json:"complexity"`
}

// DefaultResult is used when analysis is unavailable.
func DefaultResult() Result {
	return Result{
		Sentiment:  "neutral",
		Themes:     []string{"general fiction"},
		Complexity: 0.5,
	}
}

// normalize fills missing fields with defaults and clamps ranges.
func (r Result) normalize() Result {
	def := DefaultResult()
	if strings.TrimSpace(r.Sentiment) == "" {
		r.Sentiment = def.Sentiment
	}

	themes := make([]string, 0, len(r.Themes))
	for _, t := range r.Themes {
		if t = strings.TrimSpace(t); t != "" {
			themes = append(themes, t)
		}
	}
	if len(themes) == 0 {
		themes = def.Themes
	}
	if len(themes) > book.MaxThemes {
		themes = themes[:book.MaxThemes]
	}
	r.Themes = themes

	if math.IsNaN(r.Complexity) {
		r.Complexity = def.Complexity
	}
	r.Complexity = math.Max(0, math.Min(1, r.Complexity))
	return r
}

// Analyzer produces sentiment, themes and complexity for a book.
type Analyzer interface {
	Analyze(ctx context.Context, b book.Book) (Result, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, b book.Book) (Result, error)

// Analyze calls f(ctx, b).
func (f AnalyzerFunc) Analyze(ctx context.Context, b book.Book) (Result, error) {
	return f(ctx, b)
}

// ReadingTimeMinutes estimates reading time. When pages is unknown the
// length is extrapolated from the description.
func ReadingTimeMinutes(pages int, description string, complexity float64) int {
	p := float64(pages)
	if pages <= 0 {
		words := len(strings.Fields(description))
		p = float64(words*descriptionExpansion) / WordsPerPage
	}

	var speed int
	switch {
	case complexity < 0.3:
		speed = speedEasy
	case complexity < 0.7:
		speed = speedMedium
	default:
		speed = speedHard
	}

	return int(math.Floor(p * WordsPerPage / float64(speed)))
}

// Cache is a read-through cache of analyses. Books with an ISBN are stored
// in the analysis_cache table; books without one are always computed.
// Concurrent requests for the same book share one computation.
type Cache struct {
	db       *cache.CacheDB
	analyzer Analyzer
	group    singleflight.Group
}

// NewCache creates an analysis cache. A nil db disables persistence.
func NewCache(db *cache.CacheDB, analyzer Analyzer) *Cache {
	return &Cache{db: db, analyzer: analyzer}
}

// GetOrCompute returns the analysis for b, computing and persisting it on
// a miss. When the analyzer fails the default analysis is returned and not
// persisted. Only an invalid book is an error. The returned value is a
// private copy.
func (c *Cache) GetOrCompute(ctx context.Context, b book.Book) (*book.Analysis, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	v, err, shared := c.group.Do(b.IdentityKey(), func() (any, error) {
		if !b.HasISBN() {
			a, _ := c.compute(ctx, b)
			return a, nil
		}
		var defaulted bool
		a, fromCache, err := cache.GetOrFetchWithPolicy(c.db, cache.AnalysisTable, strings.TrimSpace(b.ISBN),
			func() (book.Analysis, error) {
				var a book.Analysis
				a, defaulted = c.compute(ctx, b)
				return a, nil
			},
			func(book.Analysis) bool { return !defaulted },
		)
		if fromCache {
			slog.Debug("Analysis cache hit", "isbn", b.ISBN, "title", b.Title)
		}
		return a, err
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared in-flight analysis", "key", b.IdentityKey())
	}

	a := v.(book.Analysis)
	return a.WithSimilarBooks(a.SimilarBooks), nil
}

// compute runs the analyzer. A failing analyzer yields the default result
// and reports defaulted so the value is not persisted.
func (c *Cache) compute(ctx context.Context, b book.Book) (a book.Analysis, defaulted bool) {
	res, err := c.analyzer.Analyze(ctx, b)
	if err != nil {
		slog.Warn("Analysis failed, using defaults", "title", b.Title, "error", err)
		res, defaulted = DefaultResult(), true
	}
	res = res.normalize()

	return book.Analysis{
		Book:                        b.Clone(),
		Sentiment:                   res.Sentiment,
		Themes:                      res.Themes,
		Complexity:                  res.Complexity,
		EstimatedReadingTimeMinutes: ReadingTimeMinutes(b.Pages, b.Description, res.Complexity),
		SimilarBooks:                []book.Book{},
	}, defaulted
}
