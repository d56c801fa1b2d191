package orchestrator

import (
	"context"
	stdErrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookmind/internal/analysis"
	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/embedding"
	"github.com/lepinkainen/bookmind/internal/llm"
	"github.com/lepinkainen/bookmind/internal/recommend"
	"github.com/lepinkainen/bookmind/internal/similarity"
	"github.com/lepinkainen/bookmind/internal/testutil"
)

type fakeTrending struct {
	books  []book.Book
	genres []string
}

func (f *fakeTrending) Fetch(_ context.Context, genre string, limit int) []book.Book {
	f.genres = append(f.genres, genre)
	if len(f.books) > limit {
		return f.books[:limit]
	}
	return f.books
}

type fakeIndex struct {
	mu       sync.Mutex
	stored   map[string]book.Book
	upserted []string
	similar  []book.Book
	queryErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{stored: make(map[string]book.Book)}
}

func (f *fakeIndex) Upsert(_ context.Context, b book.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[b.IdentityKey()] = b
	f.upserted = append(f.upserted, b.IdentityKey())
	return nil
}

func (f *fakeIndex) QuerySimilar(_ context.Context, _ book.Book, k int) ([]book.Book, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.similar) > k {
		return f.similar[:k], nil
	}
	return f.similar, nil
}

func (f *fakeIndex) GetByIdentity(_ context.Context, key string) (*book.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.stored[key]; ok {
		return &b, nil
	}
	return nil, nil
}

type recordingHistory struct {
	recs []book.Recommendation
}

func (h *recordingHistory) Append(recs []book.Recommendation) error {
	h.recs = append(h.recs, recs...)
	return nil
}

func themesAnalyzer(themes ...string) analysis.Analyzer {
	return analysis.AnalyzerFunc(func(_ context.Context, b book.Book) (analysis.Result, error) {
		return analysis.Result{Sentiment: "positive", Themes: themes, Complexity: 0.5}, nil
	})
}

type analyzerFunc func(ctx context.Context, b book.Book) (*book.Analysis, error)

func (f analyzerFunc) GetOrCompute(ctx context.Context, b book.Book) (*book.Analysis, error) {
	return f(ctx, b)
}

// failingFor fails enrichment of the named book and analyzes the rest.
func failingFor(title string) Analyzer {
	c := analysis.NewCache(nil, analysis.AnalyzerFunc(func(context.Context, book.Book) (analysis.Result, error) {
		return analysis.Result{Sentiment: "neutral", Themes: []string{"adventure"}, Complexity: 0.4}, nil
	}))
	return analyzerFunc(func(ctx context.Context, b book.Book) (*book.Analysis, error) {
		if b.Title == title {
			return nil, stdErrors.New("analyzer down")
		}
		return c.GetOrCompute(ctx, b)
	})
}

func staticRecommender(recs ...book.Recommendation) Recommender {
	return recommenderFunc(func(context.Context, string, int) []book.Recommendation { return recs })
}

type recommenderFunc func(ctx context.Context, query string, n int) []book.Recommendation

func (f recommenderFunc) Generate(ctx context.Context, query string, n int) []book.Recommendation {
	return f(ctx, query, n)
}

func newIndex(t *testing.T) *similarity.Index {
	t.Helper()
	idx, err := similarity.Open(filepath.Join(t.TempDir(), "index.db"), embedding.NewHashEmbedder(64))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestGetRecommendations_PrimaryFailsFallbackAnswers(t *testing.T) {
	primary := llm.Func(func(context.Context, string) (string, error) {
		return "", stdErrors.New("connection refused")
	})
	fallback := llm.Func(func(context.Context, string) (string, error) {
		return `[{"title":"Dune","author":"Frank Herbert","isbn":"9780441172719","description":"Desert planet.","genres":["science_fiction"],"reasoning":"Classic space epic."}]`, nil
	})
	provider := recommend.NewProvider(primary, fallback, nil)
	o := New(provider, analysis.NewCache(nil, themesAnalyzer("politics")), newIndex(t), &fakeTrending{})

	recs := o.GetRecommendations(context.Background(), "epic science fiction", 5)

	require.Len(t, recs, 1)
	assert.Equal(t, 1.0, recs[0].RelevanceScore)
	assert.Equal(t, "Classic space epic.", recs[0].Reasoning)
	assert.Equal(t, []string{"science_fiction", "politics"}, recs[0].Book.Genres)
}

func TestGetRecommendations_BothEmptyUsesTrending(t *testing.T) {
	empty := llm.Func(func(context.Context, string) (string, error) { return "no idea", nil })
	provider := recommend.NewProvider(empty, empty, nil)
	trending := &fakeTrending{books: []book.Book{
		testutil.SampleBook("Fourth Wing", "Rebecca Yarros", "9781649374042"),
		testutil.SampleBook("Iron Flame", "Rebecca Yarros", ""),
	}}
	o := New(provider, analysis.NewCache(nil, themesAnalyzer()), newFakeIndex(), trending)

	recs := o.GetRecommendations(context.Background(), "anything", 5)

	require.Len(t, recs, 2)
	for i, rec := range recs {
		assert.Equal(t, trending.books[i].Title, rec.Book.Title)
		assert.Equal(t, book.TrendingScore, rec.RelevanceScore)
		assert.Equal(t, book.TrendingReasoning, rec.Reasoning)
		assert.NotEmpty(t, rec.ID)
	}
	assert.Equal(t, []string{""}, trending.genres)
}

func TestGetRecommendations_EnrichmentFailureKeepsCandidate(t *testing.T) {
	recs := []book.Recommendation{
		{Book: testutil.SampleBook("A", "X", "111"), RelevanceScore: 1.0, Reasoning: "r"},
		{Book: testutil.SampleBook("B", "X", "222"), RelevanceScore: 0.9, Reasoning: "r"},
		{Book: testutil.SampleBook("C", "X", ""), RelevanceScore: 0.8, Reasoning: "r"},
	}
	index := newFakeIndex()
	o := New(staticRecommender(recs...), failingFor("B"), index, &fakeTrending{})

	got := o.GetRecommendations(context.Background(), "q", 3)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"fiction", "adventure"}, got[0].Book.Genres)
	assert.Equal(t, []string{"fiction"}, got[1].Book.Genres, "failed candidate returned unenhanced")
	assert.Equal(t, []string{"fiction", "adventure"}, got[2].Book.Genres)

	assert.ElementsMatch(t, []string{"111"}, index.upserted, "only ISBN-bearing enriched books are indexed")
}

func TestGetRecommendations_SimilarityFailureKeepsCandidate(t *testing.T) {
	index := newFakeIndex()
	index.queryErr = stdErrors.New("index locked")
	rec := book.Recommendation{Book: testutil.SampleBook("A", "X", "111"), RelevanceScore: 1, Reasoning: "r"}
	o := New(staticRecommender(rec), analysis.NewCache(nil, themesAnalyzer("t")), index, &fakeTrending{})

	got := o.GetRecommendations(context.Background(), "q", 1)

	require.Len(t, got, 1)
	assert.Equal(t, rec.Book, got[0].Book)
	assert.Empty(t, index.upserted)
}

func TestGetRecommendations_PreservesRankOrder(t *testing.T) {
	var recs []book.Recommendation
	for i := 0; i < 12; i++ {
		recs = append(recs, book.Recommendation{
			Book:           testutil.SampleBook(fmt.Sprintf("Book %02d", i), "X", ""),
			RelevanceScore: recommend.Score(i),
			Reasoning:      "r",
		})
	}
	slowFirst := analysis.AnalyzerFunc(func(_ context.Context, b book.Book) (analysis.Result, error) {
		if b.Title == "Book 00" {
			time.Sleep(30 * time.Millisecond)
		}
		return analysis.DefaultResult(), nil
	})
	o := New(staticRecommender(recs...), analysis.NewCache(nil, slowFirst), newFakeIndex(), &fakeTrending{}, WithWorkers(4))

	got := o.GetRecommendations(context.Background(), "q", 10)

	require.Len(t, got, 10)
	for i := range got {
		assert.Equal(t, fmt.Sprintf("Book %02d", i), got[i].Book.Title)
		if i > 0 {
			assert.LessOrEqual(t, got[i].RelevanceScore, got[i-1].RelevanceScore)
		}
	}
}

func TestGetRecommendations_ParallelEnrichmentWithRealIndex(t *testing.T) {
	idx := newIndex(t)
	ctx := context.Background()
	for i := range 50 {
		require.NoError(t, idx.Upsert(ctx, book.Book{
			Title:       fmt.Sprintf("Seed %d", i),
			Author:      "Seeder",
			ISBN:        fmt.Sprintf("978100000%04d", i),
			Description: "ships, stars and desert politics",
		}))
	}

	var recs []book.Recommendation
	for i := range 12 {
		recs = append(recs, book.Recommendation{
			Book: book.Book{
				Title:       fmt.Sprintf("Candidate %d", i),
				Author:      "Writer",
				ISBN:        fmt.Sprintf("978200000%04d", i),
				Description: "desert politics among the stars",
				Genres:      []string{"fiction"},
			},
			RelevanceScore: recommend.Score(i),
			Reasoning:      "r",
		})
	}
	o := New(staticRecommender(recs...), analysis.NewCache(nil, themesAnalyzer("politics")), idx, &fakeTrending{}, WithWorkers(4))

	got := o.GetRecommendations(ctx, "q", 12)

	require.Len(t, got, 12)
	for _, r := range got {
		assert.Equal(t, []string{"fiction", "politics"}, r.Book.Genres, "%s was not enriched", r.Book.Title)
	}
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 62, n)
}

func TestExploreGenre_AnalyzerFailureYieldsDefaultAnalysis(t *testing.T) {
	trending := &fakeTrending{books: []book.Book{testutil.SampleBook("Dracula", "Bram Stoker", "9780486411095")}}
	down := analysis.AnalyzerFunc(func(context.Context, book.Book) (analysis.Result, error) {
		return analysis.Result{}, stdErrors.New("model down")
	})
	o := New(staticRecommender(), analysis.NewCache(nil, down), newIndex(t), trending)

	entries := o.ExploreGenre(context.Background(), "horror", 5)

	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Analysis)
	assert.Equal(t, "neutral", entries[0].Analysis.Sentiment)
	assert.Equal(t, []string{"general fiction"}, entries[0].Analysis.Themes)
	assert.Equal(t, 0.5, entries[0].Analysis.Complexity)
}

func TestGetRecommendations_BoundedWorkers(t *testing.T) {
	var active, peak atomic.Int32
	analyzer := analysis.AnalyzerFunc(func(_ context.Context, b book.Book) (analysis.Result, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return analysis.DefaultResult(), nil
	})
	var recs []book.Recommendation
	for i := 0; i < 8; i++ {
		recs = append(recs, book.Recommendation{Book: testutil.SampleBook(fmt.Sprintf("B%d", i), "X", ""), Reasoning: "r"})
	}
	o := New(staticRecommender(recs...), analysis.NewCache(nil, analyzer), newFakeIndex(), &fakeTrending{}, WithWorkers(2))

	o.GetRecommendations(context.Background(), "q", 8)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGetRecommendations_RecordsHistory(t *testing.T) {
	history := &recordingHistory{}
	rec := book.Recommendation{Book: testutil.SampleBook("A", "X", ""), RelevanceScore: 1, Reasoning: "r"}
	o := New(staticRecommender(rec), analysis.NewCache(nil, themesAnalyzer()), newFakeIndex(), &fakeTrending{}, WithHistory(history))

	got := o.GetRecommendations(context.Background(), "q", 3)
	assert.Equal(t, got, history.recs)

	empty := New(staticRecommender(), analysis.NewCache(nil, themesAnalyzer()), newFakeIndex(), &fakeTrending{}, WithHistory(history))
	assert.Empty(t, empty.GetRecommendations(context.Background(), "q", 3))
	assert.Len(t, history.recs, 1)
}

func TestExploreGenre(t *testing.T) {
	trending := &fakeTrending{books: []book.Book{
		testutil.SampleBook("Dracula", "Bram Stoker", ""),
		testutil.SampleBook("Carrie", "Stephen King", "9780307743664"),
	}}
	index := newFakeIndex()
	index.similar = []book.Book{testutil.SampleBook("Salem's Lot", "Stephen King", "1")}
	o := New(staticRecommender(), failingFor("Dracula"), index, trending)

	entries := o.ExploreGenre(context.Background(), "horror", 10)

	require.Len(t, entries, 2)
	assert.Equal(t, []string{"horror"}, trending.genres)
	assert.Equal(t, "Dracula", entries[0].Book.Title)
	assert.Nil(t, entries[0].Analysis)
	require.NotNil(t, entries[1].Analysis)
	assert.Equal(t, "Salem's Lot", entries[1].Analysis.SimilarBooks[0].Title)
	assert.Contains(t, entries[1].Book.Genres, "adventure")
}

func TestAnalyzeBook_UsesStoredCopyKeepsCallerISBN(t *testing.T) {
	index := newFakeIndex()
	stored := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")
	stored.Description = "Stored description."
	stored.ISBN = "0441172717"
	index.stored["9780441172719"] = stored

	o := New(staticRecommender(), analysis.NewCache(nil, themesAnalyzer("power")), index, &fakeTrending{})
	report := o.AnalyzeBook(context.Background(), book.Book{Title: "Dune", Author: "F. Herbert", ISBN: "9780441172719"})

	require.Empty(t, report.Err)
	require.NotNil(t, report.Analysis)
	assert.Equal(t, "9780441172719", report.Book.ISBN)
	assert.Equal(t, "Stored description.", report.Book.Description)
	assert.Equal(t, "Frank Herbert", report.Book.Author)
	assert.Equal(t, []string{"power"}, report.Analysis.Themes)
	assert.Equal(t, "9780441172719", report.Analysis.Book.ISBN)
}

func TestAnalyzeBook_SimilarBooksExcludeSelf(t *testing.T) {
	index := newIndex(t)
	for _, b := range testutil.SampleShelf() {
		require.NoError(t, index.Upsert(context.Background(), b))
	}
	dune := testutil.SampleShelf()[0]
	o := New(staticRecommender(), analysis.NewCache(nil, themesAnalyzer("ecology")), index, &fakeTrending{})

	report := o.AnalyzeBook(context.Background(), dune)

	require.NotNil(t, report.Analysis)
	assert.Len(t, report.Analysis.SimilarBooks, 4)
	for _, s := range report.Analysis.SimilarBooks {
		assert.NotEqual(t, dune.IdentityKey(), s.IdentityKey())
	}
}

func TestAnalyzeBook_FailureReportsError(t *testing.T) {
	o := New(staticRecommender(), failingFor("Broken"), newFakeIndex(), &fakeTrending{})

	report := o.AnalyzeBook(context.Background(), testutil.SampleBook("Broken", "X", ""))

	assert.Nil(t, report.Analysis)
	assert.Contains(t, report.Err, "analyzer down")
	assert.Equal(t, "Broken", report.Book.Title)
}

func TestZeroLimits(t *testing.T) {
	o := New(staticRecommender(), analysis.NewCache(nil, themesAnalyzer()), newFakeIndex(), &fakeTrending{})

	assert.Empty(t, o.GetRecommendations(context.Background(), "q", 0))
	assert.Empty(t, o.ExploreGenre(context.Background(), "g", 0))
}
