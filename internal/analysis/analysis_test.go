package analysis

import (
	"context"
	stdErrors "errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/cache"
	"github.com/lepinkainen/bookmind/internal/testutil"
)

type countingAnalyzer struct {
	calls atomic.Int32
	delay time.Duration
	res   Result
	err   error
}

func (c *countingAnalyzer) Analyze(ctx context.Context, b book.Book) (Result, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.res, c.err
}

func openCache(t *testing.T) *cache.CacheDB {
	t.Helper()
	env := testutil.NewTestEnv(t)
	db, err := cache.Open(filepath.Join(env.RootDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReadingTimeMinutes(t *testing.T) {
	testCases := []struct {
		name        string
		pages       int
		description string
		complexity  float64
		expected    int
	}{
		{name: "medium complexity", pages: 300, complexity: 0.5, expected: 450},
		{name: "easy", pages: 300, complexity: 0.1, expected: 360},
		{name: "hard", pages: 300, complexity: 0.9, expected: 600},
		{name: "boundary 0.3 is medium", pages: 100, complexity: 0.3, expected: 150},
		{name: "boundary 0.7 is hard", pages: 100, complexity: 0.7, expected: 200},
		{name: "from description", description: "one two three four", complexity: 0.5, expected: 1},
		{name: "no pages no description", complexity: 0.5, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ReadingTimeMinutes(tc.pages, tc.description, tc.complexity))
		})
	}
}

func TestGetOrCompute_CachesISBNBooks(t *testing.T) {
	analyzer := &countingAnalyzer{res: Result{Sentiment: "hopeful", Themes: []string{"quest"}, Complexity: 0.5}}
	c := NewCache(openCache(t), analyzer)
	b := testutil.SampleBook("The Hobbit", "J.R.R. Tolkien", "9780547928227")
	b.Pages = 300

	first, err := c.GetOrCompute(context.Background(), b)
	require.NoError(t, err)
	second, err := c.GetOrCompute(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, int32(1), analyzer.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, 450, first.EstimatedReadingTimeMinutes)
	assert.Equal(t, "hopeful", first.Sentiment)
	assert.Empty(t, first.SimilarBooks)
}

func TestGetOrCompute_ISBNlessAlwaysComputed(t *testing.T) {
	analyzer := &countingAnalyzer{res: DefaultResult()}
	c := NewCache(openCache(t), analyzer)
	b := testutil.SampleBook("Dracula", "Bram Stoker", "")

	for range 3 {
		_, err := c.GetOrCompute(context.Background(), b)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), analyzer.calls.Load())
}

func TestGetOrCompute_SingleFlightPerKey(t *testing.T) {
	analyzer := &countingAnalyzer{res: DefaultResult(), delay: 50 * time.Millisecond}
	c := NewCache(openCache(t), analyzer)
	b := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrCompute(context.Background(), b)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), analyzer.calls.Load())
}

func TestGetOrCompute_ReturnsPrivateCopies(t *testing.T) {
	c := NewCache(openCache(t), &countingAnalyzer{res: Result{Themes: []string{"a", "b"}}})
	b := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")

	first, err := c.GetOrCompute(context.Background(), b)
	require.NoError(t, err)
	first.Themes[0] = "mutated"
	withSimilar := first.WithSimilarBooks([]book.Book{testutil.SampleBook("Other", "Author", "1")})
	require.Len(t, withSimilar.SimilarBooks, 1)

	second, err := c.GetOrCompute(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "a", second.Themes[0])
	assert.Empty(t, second.SimilarBooks)
	assert.Empty(t, first.SimilarBooks)
}

func TestGetOrCompute_AnalyzerErrorYieldsDefault(t *testing.T) {
	analyzer := &countingAnalyzer{err: stdErrors.New("model down")}
	db := openCache(t)
	c := NewCache(db, analyzer)
	b := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")
	b.Pages = 300

	a, err := c.GetOrCompute(context.Background(), b)

	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "neutral", a.Sentiment)
	assert.Equal(t, []string{"general fiction"}, a.Themes)
	assert.Equal(t, 0.5, a.Complexity)
	assert.Equal(t, 450, a.EstimatedReadingTimeMinutes)
	assert.Equal(t, "Dune", a.Book.Title)

	_, found, err := db.Get(cache.AnalysisTable, "9780441172719", time.Hour)
	require.NoError(t, err)
	assert.False(t, found, "defaulted analysis must not be persisted")

	analyzer.err = nil
	analyzer.res = Result{Sentiment: "positive", Themes: []string{"power"}, Complexity: 0.8}
	a, err = c.GetOrCompute(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, "positive", a.Sentiment)
	assert.Equal(t, int32(2), analyzer.calls.Load())
}

func TestGetOrCompute_AnalyzerErrorWithoutISBN(t *testing.T) {
	c := NewCache(nil, &countingAnalyzer{err: stdErrors.New("model down")})

	a, err := c.GetOrCompute(context.Background(), testutil.SampleBook("Circe", "Madeline Miller", ""))

	require.NoError(t, err)
	assert.Equal(t, DefaultResult().Themes, a.Themes)
}

func TestGetOrCompute_NormalizesResult(t *testing.T) {
	analyzer := &countingAnalyzer{res: Result{
		Themes:     []string{"a", "b", " ", "c", "d", "e", "f"},
		Complexity: 1.7,
	}}
	c := NewCache(nil, analyzer)

	a, err := c.GetOrCompute(context.Background(), testutil.SampleBook("T", "A", ""))

	require.NoError(t, err)
	assert.Equal(t, "neutral", a.Sentiment)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, a.Themes)
	assert.Equal(t, 1.0, a.Complexity)
}

func TestGetOrCompute_InvalidBook(t *testing.T) {
	c := NewCache(nil, &countingAnalyzer{})

	_, err := c.GetOrCompute(context.Background(), book.Book{Title: "Only title"})

	assert.ErrorIs(t, err, book.ErrInvalidBook)
}
