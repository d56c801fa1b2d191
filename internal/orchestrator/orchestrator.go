// Package orchestrator composes the recommender, analyzer, similarity index
// and trending aggregator into the three user-facing workflows. Nothing
// fails past this boundary: the worst outcome is an empty or partially
// enriched result.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/bookmind/internal/book"
)

// Similarity lookup sizes.
const (
	RecommendationSimilarK = 3
	AnalyzeSimilarK        = 5
)

// DefaultWorkers bounds concurrent enrichment.
const DefaultWorkers = 4

// Recommender produces ranked recommendations and never fails.
type Recommender interface {
	Generate(ctx context.Context, query string, n int) []book.Recommendation
}

// Analyzer returns a private copy of a book's analysis.
type Analyzer interface {
	GetOrCompute(ctx context.Context, b book.Book) (*book.Analysis, error)
}

// Indexer stores books and answers nearest-neighbour queries.
type Indexer interface {
	Upsert(ctx context.Context, b book.Book) error
	QuerySimilar(ctx context.Context, b book.Book, k int) ([]book.Book, error)
	GetByIdentity(ctx context.Context, key string) (*book.Book, error)
}

// TrendingSource returns deduplicated trending books and never fails.
type TrendingSource interface {
	Fetch(ctx context.Context, genre string, limit int) []book.Book
}

// HistoryRecorder keeps every recommendation handed out.
type HistoryRecorder interface {
	Append(recs []book.Recommendation) error
}

// GenreEntry is one explored book with its analysis, nil when enrichment failed.
type GenreEntry struct {
	Book     book.Book      `json:"book"`
	Analysis *book.Analysis `json:"analysis"`
}

// BookReport is the outcome of analyzing a single book. Err holds the
// failure description when Analysis is nil.
type BookReport struct {
	Book     book.Book      `json:"book"`
	Analysis *book.Analysis `json:"analysis"`
	Err      string         `json:"error,omitempty"`
}

// Orchestrator runs the recommendation workflows.
type Orchestrator struct {
	recommender Recommender
	analyzer    Analyzer
	index       Indexer
	trending    TrendingSource
	history     HistoryRecorder
	workers     int
	now         func() time.Time
	newID       func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the number of candidates enriched concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithHistory records every non-empty recommendation list.
func WithHistory(h HistoryRecorder) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// New creates an orchestrator from its collaborators.
func New(recommender Recommender, analyzer Analyzer, index Indexer, trending TrendingSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		recommender: recommender,
		analyzer:    analyzer,
		index:       index,
		trending:    trending,
		workers:     DefaultWorkers,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetRecommendations returns at most n recommendations for query in rank
// order. When the recommender yields nothing, trending books stand in.
func (o *Orchestrator) GetRecommendations(ctx context.Context, query string, n int) []book.Recommendation {
	if n <= 0 {
		return []book.Recommendation{}
	}
	slog.Info("Getting recommendations", "query", query, "count", n)

	recs := o.recommender.Generate(ctx, query, n)
	if len(recs) == 0 {
		slog.Info("No recommendations generated, using trending books")
		recs = o.fromTrending(ctx, n)
	}
	if len(recs) > n {
		recs = recs[:n]
	}

	enriched := make([]book.Recommendation, len(recs))
	o.forEach(ctx, len(recs), func(ctx context.Context, i int) {
		rec := recs[i]
		if b, _, err := o.enrich(ctx, rec.Book, RecommendationSimilarK); err != nil {
			slog.Warn("Enriching recommendation failed", "title", rec.Book.Title, "error", err)
		} else {
			rec.Book = b
		}
		enriched[i] = rec
	})

	if o.history != nil && len(enriched) > 0 {
		if err := o.history.Append(enriched); err != nil {
			slog.Warn("Saving recommendation history failed", "error", err)
		}
	}
	slog.Info("Recommendations ready", "count", len(enriched))
	return enriched
}

// ExploreGenre returns trending books for genre with their analyses.
func (o *Orchestrator) ExploreGenre(ctx context.Context, genre string, limit int) []GenreEntry {
	if limit <= 0 {
		return []GenreEntry{}
	}
	slog.Info("Exploring genre", "genre", genre, "limit", limit)

	books := o.trending.Fetch(ctx, genre, limit)
	if len(books) > limit {
		books = books[:limit]
	}

	entries := make([]GenreEntry, len(books))
	o.forEach(ctx, len(books), func(ctx context.Context, i int) {
		entries[i] = GenreEntry{Book: books[i]}
		b, a, err := o.enrich(ctx, books[i], RecommendationSimilarK)
		if err != nil {
			slog.Warn("Enriching genre book failed", "title", books[i].Title, "error", err)
			return
		}
		entries[i] = GenreEntry{Book: b, Analysis: a}
	})
	return entries
}

// AnalyzeBook analyzes a single book. A stored copy found by ISBN replaces
// b but keeps the caller's ISBN.
func (o *Orchestrator) AnalyzeBook(ctx context.Context, b book.Book) BookReport {
	working := b
	if b.HasISBN() {
		stored, err := o.index.GetByIdentity(ctx, b.IdentityKey())
		switch {
		case err != nil:
			slog.Warn("Index lookup failed", "isbn", b.ISBN, "error", err)
		case stored != nil:
			working = stored.Clone()
			working.ISBN = b.ISBN
		}
	}

	enriched, a, err := o.enrich(ctx, working, AnalyzeSimilarK)
	if err != nil {
		slog.Warn("Book analysis failed", "title", working.Title, "error", err)
		return BookReport{Book: working, Err: err.Error()}
	}
	return BookReport{Book: enriched, Analysis: a}
}

func (o *Orchestrator) fromTrending(ctx context.Context, n int) []book.Recommendation {
	books := o.trending.Fetch(ctx, "", n)
	recs := make([]book.Recommendation, 0, len(books))
	for _, b := range books {
		recs = append(recs, book.Recommendation{
			ID:             o.newID(),
			Book:           b,
			RelevanceScore: book.TrendingScore,
			Reasoning:      book.TrendingReasoning,
			CreatedAt:      o.now(),
		})
	}
	return recs
}

// enrich analyzes b, finds k similar books, merges themes into the genres
// and indexes ISBN-bearing books. On error b is returned unchanged.
func (o *Orchestrator) enrich(ctx context.Context, b book.Book, k int) (book.Book, *book.Analysis, error) {
	a, err := o.analyzer.GetOrCompute(ctx, b)
	if err != nil {
		return b, nil, err
	}

	similar, err := o.index.QuerySimilar(ctx, b, k)
	if err != nil {
		return b, nil, err
	}

	enriched := b.Clone()
	enriched.MergeGenres(a.Themes)
	a = a.WithSimilarBooks(similar)
	a.Book = enriched.Clone()

	if enriched.HasISBN() {
		if err := o.index.Upsert(ctx, enriched); err != nil {
			return b, nil, err
		}
	}
	return enriched, a, nil
}

// forEach runs fn for every index on at most o.workers goroutines.
func (o *Orchestrator) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
