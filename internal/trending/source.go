// Package trending discovers popular books from community feeds and
// bestseller lists.
package trending

import (
	"context"
	"net/http"
	"strings"

	"github.com/lepinkainen/bookmind/internal/book"
)

// Source yields up to limit books.
type Source interface {
	Name() string
	Fetch(ctx context.Context, limit int) ([]book.Book, error)
}

// Toggle is implemented by sources that need credentials. A source
// reporting Enabled() == false is skipped.
type Toggle interface {
	Enabled() bool
}

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

func enabled(s Source) bool {
	if t, ok := s.(Toggle); ok {
		return t.Enabled()
	}
	return true
}

// Dedup keeps the first occurrence of each book, comparing ISBN (when
// present) and the lowercase "title by author" key, and stops at limit.
func Dedup(books []book.Book, limit int) []book.Book {
	out := make([]book.Book, 0, min(len(books), max(limit, 0)))
	seenISBN := make(map[string]bool)
	seenName := make(map[string]bool)

	for _, b := range books {
		if len(out) >= limit {
			break
		}
		isbn := strings.TrimSpace(b.ISBN)
		name := b.TitleAuthorKey()
		if isbn != "" && seenISBN[isbn] {
			continue
		}
		if seenName[name] {
			continue
		}
		out = append(out, b)
		if isbn != "" {
			seenISBN[isbn] = true
		}
		seenName[name] = true
	}
	return out
}
