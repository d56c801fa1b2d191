package trending

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/ratelimit"
)

// FeedInterval is the minimum delay between two feed requests.
const FeedInterval = time.Second

// Aggregator merges trending books from several sources.
type Aggregator struct {
	general     []Source
	genres      map[string]Source
	bestsellers Source
	limiter     *ratelimit.Limiter
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithGeneralSources replaces the sources consulted without a genre.
func WithGeneralSources(sources ...Source) Option {
	return func(a *Aggregator) {
		a.general = sources
	}
}

// WithGenreSource sets the source used for genre.
func WithGenreSource(genre string, s Source) Option {
	return func(a *Aggregator) {
		a.genres[genre] = s
	}
}

// WithBestsellers sets the source used to top up general results.
func WithBestsellers(s Source) Option {
	return func(a *Aggregator) {
		a.bestsellers = s
	}
}

// WithLimiter sets the limiter spacing feed requests.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.limiter = l
		}
	}
}

// NewAggregator creates an aggregator with no sources; add them with options.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		genres:  make(map[string]Source),
		limiter: ratelimit.Every("trending-feeds", FeedInterval),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewDefaultAggregator wires the Goodreads shelves and the NYT list.
func NewDefaultAggregator(nytAPIKey string, httpTimeout time.Duration) *Aggregator {
	client := &http.Client{Timeout: httpTimeout}

	opts := make([]Option, 0, len(GenreShelves)+2)
	general := make([]Source, 0, len(GeneralShelves))
	for _, shelf := range GeneralShelves {
		general = append(general, ShelfFeed(shelf, "", client))
	}
	opts = append(opts, WithGeneralSources(general...))
	for genre, shelf := range GenreShelves {
		opts = append(opts, WithGenreSource(genre, ShelfFeed(shelf, genre, client)))
	}
	opts = append(opts, WithBestsellers(NewNYTBestsellers(nytAPIKey, "", client)))

	return NewAggregator(opts...)
}

// Genres lists the genres with a dedicated source.
func (a *Aggregator) Genres() []string {
	out := make([]string, 0, len(a.genres))
	for g := range a.genres {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Fetch returns up to limit deduplicated trending books. A known genre
// reads only that genre's source; otherwise each general source is asked
// for limit/2 books until limit is reached, then bestsellers top up.
// Source failures are logged and contribute nothing.
func (a *Aggregator) Fetch(ctx context.Context, genre string, limit int) []book.Book {
	if limit <= 0 {
		return []book.Book{}
	}

	var collected []book.Book
	if s, ok := a.genres[genre]; ok && genre != "" {
		collected = a.fetchFrom(ctx, s, limit)
	} else {
		half := max(1, limit/2)
		for _, s := range a.general {
			if ctx.Err() != nil {
				break
			}
			collected = append(collected, a.fetchFrom(ctx, s, half)...)
			if len(collected) >= limit {
				break
			}
		}
		if len(collected) < limit && a.bestsellers != nil {
			collected = append(collected, a.fetchFrom(ctx, a.bestsellers, half)...)
		}
	}

	books := Dedup(collected, limit)
	slog.Debug("Trending books collected", "genre", genre, "raw", len(collected), "unique", len(books))
	return books
}

func (a *Aggregator) fetchFrom(ctx context.Context, s Source, limit int) []book.Book {
	if !enabled(s) {
		slog.Debug("Skipping disabled trending source", "source", s.Name())
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		slog.Warn("Trending fetch cancelled", "source", s.Name(), "error", err)
		return nil
	}

	books, err := s.Fetch(ctx, limit)
	if err != nil {
		slog.Warn("Trending source failed", "source", s.Name(), "error", err)
		return nil
	}
	if len(books) > limit {
		books = books[:limit]
	}
	slog.Debug("Fetched trending books", "source", s.Name(), "count", len(books))
	return books
}
