package trending

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/errors"
)

const goodreadsShelfURL = "https://www.goodreads.com/shelf/show/%s.rss"

// GeneralShelves are the shelves consulted when no genre is requested.
var GeneralShelves = []string{"currently-reading", "popular", "new-releases"}

// GenreShelves maps genre names to their Goodreads shelves.
var GenreShelves = map[string]string{
	"fantasy":         "fantasy",
	"science_fiction": "science-fiction",
	"mystery":         "mystery",
	"romance":         "romance",
	"historical":      "historical-fiction",
	"biography":       "biography",
	"self_help":       "self-help",
	"horror":          "horror",
}

var (
	urlISBNPattern  = regexp.MustCompile(`\b([0-9]{13}|[0-9]{10})\b`)
	descISBNPattern = regexp.MustCompile(`ISBN[-: ]?([0-9]{13}|[0-9]{10})\b`)
	htmlTagPattern  = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|img|ul|ol|li|h[1-6]|blockquote)[\s>/]`)
	mdImagePattern  = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

// GoodreadsFeed reads books from a Goodreads shelf RSS feed.
type GoodreadsFeed struct {
	name   string
	url    string
	genre  string
	client HTTPDoer
}

var _ Source = (*GoodreadsFeed)(nil)

// NewGoodreadsFeed creates a feed source for url. Books from a genre feed
// carry that genre.
func NewGoodreadsFeed(name, url, genre string, client HTTPDoer) *GoodreadsFeed {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoodreadsFeed{name: name, url: url, genre: genre, client: client}
}

// ShelfFeed creates the feed for a Goodreads shelf slug.
func ShelfFeed(shelf, genre string, client HTTPDoer) *GoodreadsFeed {
	return NewGoodreadsFeed("goodreads:"+shelf, fmt.Sprintf(goodreadsShelfURL, shelf), genre, client)
}

// Name identifies the feed in logs.
func (g *GoodreadsFeed) Name() string {
	return g.name
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title           string `xml:"title"`
	Link            string `xml:"link"`
	Description     string `xml:"description"`
	AuthorName      string `xml:"author_name"`
	ISBN            string `xml:"isbn"`
	BookDescription string `xml:"book_description"`
	NumPages        string `xml:"num_pages"`
	ImageURL        string `xml:"book_large_image_url"`
	Published       string `xml:"book_published"`
}

// Fetch downloads the feed and converts up to limit items to books.
func (g *GoodreadsFeed) Fetch(ctx context.Context, limit int) ([]book.Book, error) {
	if limit <= 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderUnavailableError(g.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewRateLimitError(g.name + " rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderUnavailableError(g.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.NewProviderUnavailableError(g.name, err)
	}
	return ParseGoodreadsRSS(body, g.genre, limit)
}

// ParseGoodreadsRSS converts up to limit RSS items to books.
func ParseGoodreadsRSS(data []byte, genre string, limit int) ([]book.Book, error) {
	var doc rssDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewMalformedResponseError("invalid RSS: " + err.Error())
	}

	books := make([]book.Book, 0, min(limit, len(doc.Channel.Items)))
	for _, item := range doc.Channel.Items {
		if len(books) >= limit {
			break
		}
		if b, ok := item.toBook(genre); ok {
			books = append(books, b)
		}
	}
	return books, nil
}

func (item rssItem) toBook(genre string) (book.Book, bool) {
	title, author := splitTitleAuthor(strings.TrimSpace(item.Title))
	if author == "" {
		author = strings.TrimSpace(item.AuthorName)
	}
	if author == "" {
		author = book.UnknownAuthor
	}
	if title == "" {
		return book.Book{}, false
	}

	rawDesc := item.BookDescription
	if strings.TrimSpace(rawDesc) == "" {
		rawDesc = item.Description
	}
	description := cleanDescription(rawDesc)

	link := strings.TrimSpace(item.Link)
	isbn := strings.TrimSpace(item.ISBN)
	if isbn == "" && strings.Contains(link, "goodreads.com") {
		if m := urlISBNPattern.FindStringSubmatch(link); m != nil {
			isbn = m[1]
		}
	}
	if isbn == "" {
		if m := descISBNPattern.FindStringSubmatch(item.Description); m != nil {
			isbn = m[1]
		}
	}

	b := book.Book{
		Title:       title,
		Author:      author,
		Description: description,
		ISBN:        isbn,
		Genres:      []string{},
		SourceURL:   link,
		CoverURL:    strings.TrimSpace(item.ImageURL),
	}
	if genre != "" {
		b.Genres = []string{genre}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(item.NumPages)); err == nil && n > 0 {
		b.Pages = n
	}
	if y, err := strconv.Atoi(strings.TrimSpace(item.Published)); err == nil && y > 0 {
		b.PublishedYear = y
	}
	return b, true
}

// splitTitleAuthor splits "Title by Author" at the last " by ".
func splitTitleAuthor(s string) (string, string) {
	idx := strings.LastIndex(s, " by ")
	if idx < 0 {
		return s, ""
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+len(" by "):])
}

// cleanDescription turns feed HTML into plain readable text.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	md = mdImagePattern.ReplaceAllString(md, "")
	md = mdLinkPattern.ReplaceAllString(md, "$1")
	return strings.Join(strings.Fields(md), " ")
}
