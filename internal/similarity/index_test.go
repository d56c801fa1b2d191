package similarity

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/embedding"
	"github.com/lepinkainen/bookmind/internal/testutil"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	env := testutil.NewTestEnv(t)
	idx, err := Open(filepath.Join(env.RootDir(), "index.db"), embedding.NewHashEmbedder(128))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *Index, books ...book.Book) {
	t.Helper()
	for _, b := range books {
		require.NoError(t, idx.Upsert(context.Background(), b))
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}

	out, err := decodeVector(encodeVector(in))

	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 0})
	assert.Error(t, err)
	_, err = decodeVector(encodeVector(in)[:9])
	assert.Error(t, err)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 2.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 2.0, cosineDistance([]float32{1}, []float32{1, 0}))
}

func TestQuerySimilar_ExcludesSelfRightAfterUpsert(t *testing.T) {
	idx := newTestIndex(t)
	shelf := testutil.SampleShelf()
	seed(t, idx, shelf...)

	for _, b := range shelf {
		similar, err := idx.QuerySimilar(context.Background(), b, 3)
		require.NoError(t, err)
		assert.Len(t, similar, 3)
		for _, s := range similar {
			assert.NotEqual(t, b.IdentityKey(), s.IdentityKey(), "query for %s returned itself", b.Title)
		}
	}
}

func TestQuerySimilar_FewerThanK(t *testing.T) {
	idx := newTestIndex(t)
	shelf := testutil.SampleShelf()
	seed(t, idx, shelf[0], shelf[1])

	similar, err := idx.QuerySimilar(context.Background(), shelf[0], 5)

	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, shelf[1].Title, similar[0].Title)
}

func TestQuerySimilar_EmptyIndexAndZeroK(t *testing.T) {
	idx := newTestIndex(t)
	b := testutil.SampleBook("Alone", "Nobody", "")

	similar, err := idx.QuerySimilar(context.Background(), b, 3)
	require.NoError(t, err)
	assert.Empty(t, similar)

	similar, err = idx.QuerySimilar(context.Background(), b, 0)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestUpsert_ReplacesSameIdentity(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	b := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")
	seed(t, idx, b)
	b.Description = "Revised blurb."
	b.Pages = 412
	seed(t, idx, b)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := idx.GetByIdentity(ctx, "9780441172719")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Revised blurb.", stored.Description)
	assert.Equal(t, 412, stored.Pages)
}

func TestUpsert_RejectsInvalidBook(t *testing.T) {
	idx := newTestIndex(t)

	err := idx.Upsert(context.Background(), book.Book{Title: "No author"})

	assert.ErrorIs(t, err, book.ErrInvalidBook)
}

func TestGetByIdentity_Absent(t *testing.T) {
	idx := newTestIndex(t)

	b, err := idx.GetByIdentity(context.Background(), "0000000000")

	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSearch_RanksSharedVocabularyFirst(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx, testutil.SampleShelf()...)

	matches, err := idx.Search(context.Background(), "vampire haunted castle supernatural", 2)

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "Dracula", matches[0].Book.Title)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
}

func TestUpsert_ConcurrentWriters(t *testing.T) {
	idx := newTestIndex(t)
	shelf := testutil.SampleShelf()

	var wg sync.WaitGroup
	for _, b := range shelf {
		wg.Add(1)
		go func(b book.Book) {
			defer wg.Done()
			assert.NoError(t, idx.Upsert(context.Background(), b))
		}(b)
	}
	wg.Wait()

	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(shelf), n)
}

func TestIndex_ConcurrentReadersAndWriters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	for n := range 200 {
		seed(t, idx, book.Book{
			Title:       fmt.Sprintf("Book %d", n),
			Author:      "Author",
			ISBN:        fmt.Sprintf("978000000%04d", n),
			Description: fmt.Sprintf("story number %d about ships and stars", n),
		})
	}

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := range 50 {
				b := book.Book{
					Title:       fmt.Sprintf("Worker %d book %d", w, n),
					Author:      "Writer",
					ISBN:        fmt.Sprintf("979%d%09d", w, n),
					Description: "ships and stars",
				}
				_, err := idx.QuerySimilar(ctx, b, 3)
				assert.NoError(t, err)
				assert.NoError(t, idx.Upsert(ctx, b))
				_, err = idx.GetByIdentity(ctx, b.IdentityKey())
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, n)
}
