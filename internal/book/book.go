// Package book defines the book records shared by every bookmind component:
// books, recommendations, analyses and reading lists, together with the
// identity rules used for caching, indexing and deduplication.
package book

import (
	"strings"
	"time"
)

// DefaultReasoning is used when a recommendation record carries no reasoning.
const DefaultReasoning = "This book matches your interests."

// TrendingReasoning is the reasoning attached to trending books used as a
// stand-in when no recommender produced anything usable.
const TrendingReasoning = "This is a trending book that might interest you."

// TrendingScore is the fixed relevance of a trending stand-in recommendation.
const TrendingScore = 0.5

// Placeholders for records missing a title or author.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// Book is a single book with its metadata.
type Book struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description"`
	ISBN          string   `json:"isbn,omitempty"`
	Genres        []string `json:"genres"`
	Pages         int      `json:"pages,omitempty"`
	PublishedYear int      `json:"published_year,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`
}

// HasISBN reports whether the book carries a non-empty ISBN.
func (b Book) HasISBN() bool {
	return strings.TrimSpace(b.ISBN) != ""
}

// IdentityKey returns the key two books must share to be treated as the same
// book: the ISBN when present, otherwise the lowercase "title by author".
func (b Book) IdentityKey() string {
	if b.HasISBN() {
		return strings.TrimSpace(b.ISBN)
	}
	return b.TitleAuthorKey()
}

// TitleAuthorKey returns the lowercase "title by author" form of the book.
func (b Book) TitleAuthorKey() string {
	return strings.ToLower(b.Title + " by " + b.Author)
}

// Clone returns a copy of the book that shares no slices with the original.
func (b Book) Clone() Book {
	c := b
	if b.Genres != nil {
		c.Genres = append([]string(nil), b.Genres...)
	}
	return c
}

// MergeGenres appends every entry of extra that is not already present,
// keeping the existing display order first.
func (b *Book) MergeGenres(extra []string) {
	seen := make(map[string]bool, len(b.Genres)+len(extra))
	merged := make([]string, 0, len(b.Genres)+len(extra))
	for _, g := range b.Genres {
		if !seen[g] {
			seen[g] = true
			merged = append(merged, g)
		}
	}
	for _, g := range extra {
		if !seen[g] {
			seen[g] = true
			merged = append(merged, g)
		}
	}
	b.Genres = merged
}

// Recommendation is a ranked book suggestion with the reason it was made.
type Recommendation struct {
	ID             string    `json:"id"`
	Book           Book      `json:"book"`
	RelevanceScore float64   `json:"relevance_score"`
	Reasoning      string    `json:"reasoning"`
	CreatedAt      time.Time `json:"timestamp"`
}

// Analysis holds the sentiment, themes and reading effort of a book.
type Analysis struct {
	Book                        Book     `json:"book"`
	Sentiment                   string   `json:"sentiment"`
	Themes                      []string `json:"themes"`
	Complexity                  float64  `json:"complexity"`
	EstimatedReadingTimeMinutes int      `json:"estimated_reading_time"`
	SimilarBooks                []Book   `json:"similar_books"`
}

// WithSimilarBooks returns a copy of the analysis with similar books attached.
// Entries sharing the analyzed book's identity key are dropped and at most
// MaxSimilarBooks are kept.
func (a Analysis) WithSimilarBooks(similar []Book) *Analysis {
	c := a
	c.Themes = append([]string(nil), a.Themes...)
	self := a.Book.IdentityKey()
	c.SimilarBooks = make([]Book, 0, len(similar))
	for _, s := range similar {
		if s.IdentityKey() == self {
			continue
		}
		c.SimilarBooks = append(c.SimilarBooks, s)
		if len(c.SimilarBooks) == MaxSimilarBooks {
			break
		}
	}
	return &c
}

const (
	// MaxThemes is the upper bound of themes kept on an analysis.
	MaxThemes = 5
	// MaxSimilarBooks is the upper bound of similar books kept on an analysis.
	MaxSimilarBooks = 5
)
