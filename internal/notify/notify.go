// Package notify delivers short push notifications about recommendations
// and trending books.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lepinkainen/bookmind/internal/book"
)

// DefaultTitle is used when a message is sent without a title.
const DefaultTitle = "BookMind Notification"

// maxTrendingLines is how many trending books are listed before the summary line.
const maxTrendingLines = 5

// Notifier sends a message and reports whether it was delivered.
type Notifier interface {
	Send(ctx context.Context, title, message string) bool
}

// Message is a ready-to-send notification.
type Message struct {
	Title string
	Body  string
}

// Deliver sends m through n. A nil notifier delivers nothing.
func (m Message) Deliver(ctx context.Context, n Notifier) bool {
	if n == nil {
		return false
	}
	return n.Send(ctx, m.Title, m.Body)
}

// RecommendationMessage describes a single recommendation.
func RecommendationMessage(rec book.Recommendation) Message {
	b := rec.Book
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s by %s\n\n", b.Title, b.Author)
	fmt.Fprintf(&sb, "Reasoning: %s\n\n", rec.Reasoning)
	if b.SourceURL != "" {
		fmt.Fprintf(&sb, "View on Goodreads: %s", b.SourceURL)
	}
	return Message{
		Title: "Book Recommendation: " + b.Title,
		Body:  sb.String(),
	}
}

// TrendingMessage lists the first few trending books. ok is false when
// there is nothing to announce.
func TrendingMessage(books []book.Book, genre string) (msg Message, ok bool) {
	if len(books) == 0 {
		return Message{}, false
	}

	suffix := ""
	if genre != "" {
		suffix = " in " + genre
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Check out these trending books%s:\n\n", suffix)
	for i, b := range books {
		if i == maxTrendingLines {
			break
		}
		fmt.Fprintf(&sb, "%d. %s by %s\n", i+1, b.Title, b.Author)
	}
	if len(books) > maxTrendingLines {
		fmt.Fprintf(&sb, "\n...and %d more.", len(books)-maxTrendingLines)
	}

	return Message{Title: "Trending Books" + suffix, Body: sb.String()}, true
}
