package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lepinkainen/bookmind/internal/analysis"
	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/cache"
	"github.com/lepinkainen/bookmind/internal/config"
	"github.com/lepinkainen/bookmind/internal/embedding"
	"github.com/lepinkainen/bookmind/internal/llm"
	"github.com/lepinkainen/bookmind/internal/notify"
	"github.com/lepinkainen/bookmind/internal/orchestrator"
	"github.com/lepinkainen/bookmind/internal/recommend"
	"github.com/lepinkainen/bookmind/internal/similarity"
	"github.com/lepinkainen/bookmind/internal/store"
	"github.com/lepinkainen/bookmind/internal/trending"
)

// workflows is the part of the orchestrator the commands drive.
type workflows interface {
	GetRecommendations(ctx context.Context, query string, n int) []book.Recommendation
	ExploreGenre(ctx context.Context, genre string, limit int) []orchestrator.GenreEntry
	AnalyzeBook(ctx context.Context, b book.Book) orchestrator.BookReport
}

type searcher interface {
	Search(ctx context.Context, text string, k int) ([]similarity.Match, error)
	Count(ctx context.Context) (int, error)
}

// app holds the wired components for one command invocation.
type app struct {
	cfg      config.Config
	flows    workflows
	trending orchestrator.TrendingSource
	genres   []string
	index    searcher
	cache    *cache.CacheDB
	lists    *store.ReadingLists
	history  *store.History
	notifier notify.Notifier
	closers  []func() error
}

// Close releases every database handle.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return stdErrors.Join(errs...)
}

// openApp builds the application from configuration; tests replace it.
var openApp = func() (*app, error) {
	return buildApp(config.Load())
}

func buildApp(cfg config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	a := &app{
		cfg:      cfg,
		lists:    store.NewReadingLists(cfg.ReadingListFile),
		history:  store.NewHistory(cfg.HistoryFile),
		notifier: notify.NewPushover(cfg.PushoverUser, cfg.PushoverToken),
	}

	cacheDB, err := cache.Open(cfg.CacheDBFile, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	a.cache = cacheDB
	a.closers = append(a.closers, cacheDB.Close)

	embedder, err := embedding.New(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, stdErrors.Join(err, a.Close())
	}
	index, err := similarity.Open(cfg.IndexDBFile, embedding.NewCached(embedder, cacheDB))
	if err != nil {
		return nil, stdErrors.Join(err, a.Close())
	}
	a.index = index
	a.closers = append(a.closers, index.Close)

	categorizer, err := recommend.LoadCategorizer(cfg.GenresFile)
	if err != nil {
		return nil, stdErrors.Join(err, a.Close())
	}

	provider := recommend.NewProvider(
		generator("primary", cfg.Primary, cfg),
		generator("fallback", cfg.Fallback, cfg),
		categorizer,
	)
	analyzer := analysis.NewCache(cacheDB, analysis.NewLLMAnalyzer(generator("analyzer", cfg.Analyzer, cfg)))
	agg := trending.NewDefaultAggregator(cfg.NYTAPIKey, cfg.HTTPTimeout)
	a.trending = agg
	a.genres = agg.Genres()

	a.flows = orchestrator.New(provider, analyzer, index, agg,
		orchestrator.WithWorkers(cfg.Workers),
		orchestrator.WithHistory(a.history),
	)
	return a, nil
}

// generator builds a timeout-bounded, circuit-broken generator. An
// unusable configuration yields nil, which the provider skips.
func generator(name string, lc config.LLMConfig, cfg config.Config) llm.Generator {
	g, err := llm.New(lc.Provider, lc.Model, lc.BaseURL, lc.APIKey, cfg.HTTPTimeout)
	if err != nil {
		slog.Warn("Generator disabled", "role", name, "error", err)
		return nil
	}
	return llm.NewBreaker(name, llm.WithTimeout(g, cfg.GeneratorTimeout), llm.DefaultBreakerSettings)
}

// withApp opens the application, runs fn and closes it.
func withApp(fn func(a *app) error) (err error) {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
