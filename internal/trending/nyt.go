package trending

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/errors"
)

const (
	defaultNYTEndpoint = "https://api.nytimes.com/svc/books/v3/lists/current/hardcover-fiction.json"
	// BestsellerGenre is attached to every bestseller.
	BestsellerGenre = "bestseller"
)

// NYTBestsellers reads the current New York Times hardcover fiction list.
type NYTBestsellers struct {
	apiKey   string
	endpoint string
	client   HTTPDoer
}

var (
	_ Source = (*NYTBestsellers)(nil)
	_ Toggle = (*NYTBestsellers)(nil)
)

// NewNYTBestsellers creates the bestseller source. An empty endpoint selects
// the public API.
func NewNYTBestsellers(apiKey, endpoint string, client HTTPDoer) *NYTBestsellers {
	if endpoint == "" {
		endpoint = defaultNYTEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &NYTBestsellers{apiKey: apiKey, endpoint: endpoint, client: client}
}

// Name identifies the source in logs.
func (n *NYTBestsellers) Name() string {
	return "nyt-bestsellers"
}

// Enabled reports whether an API key is configured.
func (n *NYTBestsellers) Enabled() bool {
	return strings.TrimSpace(n.apiKey) != ""
}

type nytResponse struct {
	Results struct {
		Books []struct {
			Title         string `json:"title"`
			Author        string `json:"author"`
			Description   string `json:"description"`
			PrimaryISBN13 string `json:"primary_isbn13"`
			BookImage     string `json:"book_image"`
			AmazonURL     string `json:"amazon_product_url"`
		} `json:"books"`
	} `json:"results"`
}

// Fetch returns up to limit bestsellers.
func (n *NYTBestsellers) Fetch(ctx context.Context, limit int) ([]book.Book, error) {
	if !n.Enabled() {
		return nil, errors.NewConfigurationMissingError("NYT_API_KEY")
	}
	if limit <= 0 {
		return nil, nil
	}

	u, err := url.Parse(n.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("api-key", n.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderUnavailableError(n.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewRateLimitError("NYT API rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderUnavailableError(n.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var data nytResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.NewMalformedResponseError("decoding bestsellers: " + err.Error())
	}

	books := make([]book.Book, 0, min(limit, len(data.Results.Books)))
	for _, item := range data.Results.Books {
		if len(books) >= limit {
			break
		}
		b := book.Book{
			Title:       strings.TrimSpace(item.Title),
			Author:      strings.TrimSpace(item.Author),
			Description: item.Description,
			ISBN:        item.PrimaryISBN13,
			Genres:      []string{BestsellerGenre},
			CoverURL:    item.BookImage,
			SourceURL:   item.AmazonURL,
		}
		if b.Title == "" {
			b.Title = book.UnknownTitle
		}
		if b.Author == "" {
			b.Author = book.UnknownAuthor
		}
		books = append(books, b)
	}
	return books, nil
}
