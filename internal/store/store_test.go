package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/testutil"
)

func rec(title string, score float64) book.Recommendation {
	return book.Recommendation{
		ID:             "id-" + title,
		Book:           testutil.SampleBook(title, "Author", ""),
		RelevanceScore: score,
		Reasoning:      book.DefaultReasoning,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHistory_AppendAndAll(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := NewHistory(env.Path("data", "recommendations.json"))

	all, err := h.All()
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, h.Append([]book.Recommendation{rec("A", 1.0), rec("B", 0.9)}))
	require.NoError(t, h.Append([]book.Recommendation{rec("C", 1.0)}))
	require.NoError(t, h.Append(nil))

	all, err = h.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Book.Title)
	assert.Equal(t, "C", all[2].Book.Title)
	assert.True(t, all[0].CreatedAt.Equal(rec("A", 1).CreatedAt))

	recent, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].Book.Title)
}

func TestHistory_FileSchema(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := NewHistory(env.Path("history.json"))
	require.NoError(t, h.Append([]book.Recommendation{rec("A", 0.8)}))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(env.ReadFile("history.json"), &raw))
	require.Len(t, raw, 1)
	assert.Contains(t, raw[0], "relevance_score")
	assert.Contains(t, raw[0], "timestamp")
	assert.Contains(t, raw[0]["book"], "title")
}

func TestHistory_ConcurrentAppends(t *testing.T) {
	env := testutil.NewTestEnv(t)
	h := NewHistory(env.Path("history.json"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Append([]book.Recommendation{rec("X", 1)}))
		}()
	}
	wg.Wait()

	all, err := h.All()
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestHistory_CorruptFile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("history.json", "{not json")
	h := NewHistory(env.Path("history.json"))

	_, err := h.All()
	assert.Error(t, err)
	assert.Error(t, h.Append([]book.Recommendation{rec("A", 1)}))
}

func TestReadingLists_MoveBetweenShelves(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lists := NewReadingLists(env.Path("reading_lists.json"))
	dune := testutil.SampleBook("Dune", "Frank Herbert", "9780441172719")

	require.NoError(t, lists.Add(dune, book.ShelfToRead))
	require.NoError(t, lists.Add(dune, book.ShelfInProgress))

	got, err := lists.Get()
	require.NoError(t, err)
	assert.Empty(t, got.ToRead)
	require.Len(t, got.InProgress, 1)
	assert.Equal(t, "Dune", got.InProgress[0].Title)
	assert.Empty(t, got.Completed)

	// a fresh store reads the same file
	reopened, err := NewReadingLists(env.Path("reading_lists.json")).Get()
	require.NoError(t, err)
	assert.Equal(t, got, reopened)
}

func TestReadingLists_NoDuplicates(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lists := NewReadingLists(env.Path("reading_lists.json"))
	emma := testutil.SampleBook("Emma", "Jane Austen", "")

	require.NoError(t, lists.Add(emma, book.ShelfToRead))
	require.NoError(t, lists.Add(emma, book.ShelfToRead))

	got, err := lists.Get()
	require.NoError(t, err)
	assert.Len(t, got.ToRead, 1)
}

func TestReadingLists_Remove(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lists := NewReadingLists(env.Path("reading_lists.json"))
	emma := testutil.SampleBook("Emma", "Jane Austen", "")

	require.NoError(t, lists.Add(emma, book.ShelfCompleted))

	err := lists.Remove(emma, book.ShelfToRead)
	assert.ErrorIs(t, err, book.ErrBookNotFound)

	require.NoError(t, lists.Remove(emma, book.ShelfCompleted))
	got, err := lists.Get()
	require.NoError(t, err)
	assert.Empty(t, got.Completed)
}

func TestReadingLists_Validation(t *testing.T) {
	env := testutil.NewTestEnv(t)
	lists := NewReadingLists(env.Path("reading_lists.json"))

	assert.ErrorIs(t, lists.Add(book.Book{Title: "No author"}, book.ShelfToRead), book.ErrInvalidBook)
	assert.ErrorIs(t, lists.Add(testutil.SampleBook("A", "B", ""), book.Shelf("wishlist")), book.ErrUnknownShelf)
	assert.False(t, env.FileExists("reading_lists.json"))
}

func TestReadingLists_EmptyFileHasThreeShelves(t *testing.T) {
	env := testutil.NewTestEnv(t)
	got, err := NewReadingLists(env.Path("missing.json")).Get()

	require.NoError(t, err)
	assert.NotNil(t, got.ToRead)
	assert.NotNil(t, got.InProgress)
	assert.NotNil(t, got.Completed)
}
