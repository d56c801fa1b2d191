package store

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/csvutil"
	"github.com/lepinkainen/bookmind/internal/fileutil"
)

// ShelvedBook is a book together with the shelf it belongs on.
type ShelvedBook struct {
	Book  book.Book
	Shelf book.Shelf
}

// goodreadsShelves maps Goodreads exclusive shelves to reading lists.
var goodreadsShelves = map[string]book.Shelf{
	"to-read":           book.ShelfToRead,
	"currently-reading": book.ShelfInProgress,
	"read":              book.ShelfCompleted,
}

// LoadGoodreadsExport reads a Goodreads library export CSV. Rows on custom
// exclusive shelves are skipped.
func LoadGoodreadsExport(path string) ([]ShelvedBook, error) {
	rows, err := csvutil.ProcessCSV(path, parseGoodreadsRow, csvutil.ProcessorOptions{
		RequiredColumns: []string{"Title", "Author", "Exclusive Shelf"},
		SkipInvalid:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("reading Goodreads export: %w", err)
	}

	books := make([]ShelvedBook, 0, len(rows))
	for _, r := range rows {
		if r.Shelf != "" {
			books = append(books, r)
		}
	}
	return books, nil
}

func parseGoodreadsRow(r csvutil.Row) (ShelvedBook, error) {
	b := book.Book{
		Title:  r.Get("Title"),
		Author: r.Get("Author"),
		Genres: []string{},
	}
	if err := b.Validate(); err != nil {
		return ShelvedBook{}, fmt.Errorf("%w: %q", err, b.Title)
	}

	b.ISBN = sanitizeISBNValue(r.Get("ISBN13"))
	if b.ISBN == "" {
		b.ISBN = sanitizeISBNValue(r.Get("ISBN"))
	}
	b.Pages = parseIntField(r.Get("Number of Pages"))
	b.PublishedYear = parseIntField(r.Get("Original Publication Year"))
	if b.PublishedYear == 0 {
		b.PublishedYear = parseIntField(r.Get("Year Published"))
	}
	if id := r.Get("Book Id"); id != "" {
		b.SourceURL = "https://www.goodreads.com/book/show/" + id
	}

	shelf, ok := goodreadsShelves[strings.ToLower(r.Get("Exclusive Shelf"))]
	if !ok {
		slog.Debug("Skipping book on custom shelf", "title", b.Title, "shelf", r.Get("Exclusive Shelf"))
	}
	return ShelvedBook{Book: b, Shelf: shelf}, nil
}

// Import adds every entry to its shelf in a single write. Later entries
// win when the same book appears twice.
func (r *ReadingLists) Import(entries []ShelvedBook) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, e := range entries {
		if err := list.Add(e.Book, e.Shelf); err != nil {
			return 0, err
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := fileutil.WriteJSONFile(list, r.path); err != nil {
		return 0, fmt.Errorf("saving reading lists: %w", err)
	}
	return added, nil
}

func sanitizeISBNValue(value string) string {
	trimmed := strings.TrimSuffix(value, "\"")
	trimmed = strings.TrimPrefix(trimmed, "=\"")
	return strings.TrimSpace(trimmed)
}

func parseIntField(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}
