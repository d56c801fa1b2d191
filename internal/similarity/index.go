// Package similarity is a SQLite-backed vector index of books supporting
// nearest-neighbour lookups by cosine distance.
package similarity

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/embedding"
)

const schema = `
CREATE TABLE IF NOT EXISTS book_vectors (
	identity_key TEXT PRIMARY KEY NOT NULL,
	vector BLOB NOT NULL,
	metadata TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Match is a search hit with its cosine distance to the query.
type Match struct {
	Book     book.Book `json:"book"`
	Distance float64   `json:"distance"`
}

// Index stores one embedding per book identity.
type Index struct {
	db       *sql.DB
	embedder embedding.Embedder
	mu       sync.RWMutex
}

// busyTimeoutMillis bounds how long a connection waits on a locked database.
const busyTimeoutMillis = 5000

// Open opens (or creates) the index database at dbPath.
func Open(dbPath string, embedder embedding.Embedder) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("similarity index requires an embedder")
	}

	db, err := sql.Open("sqlite", withBusyTimeout(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(4)

	if _, err := db.Exec(schema); err != nil {
		return nil, stdErrors.Join(fmt.Errorf("failed to create index table: %w", err), db.Close())
	}

	return &Index{db: db, embedder: embedder}, nil
}

func withBusyTimeout(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dbPath, sep, busyTimeoutMillis)
}

// Close closes the database connection.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.db.Close()
}

// Text is the string embedded for b.
func Text(b book.Book) string {
	return fmt.Sprintf("%s by %s. %s", b.Title, b.Author, b.Description)
}

// Upsert embeds b and stores it under its identity key, replacing any
// previous entry for the same identity.
func (i *Index) Upsert(ctx context.Context, b book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	vec, err := i.embedder.Embed(ctx, Text(b))
	if err != nil {
		return fmt.Errorf("embedding %q: %w", b.Title, err)
	}
	meta, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	_, err = i.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO book_vectors (identity_key, vector, metadata, updated_at)
		VALUES (?, ?, ?, ?)
	`, b.IdentityKey(), encodeVector(vec), string(meta), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}

	slog.Debug("Indexed book", "key", b.IdentityKey(), "title", b.Title)
	return nil
}

// QuerySimilar returns up to k books nearest to b, nearest first, never
// including b itself (by identity key or by title and author).
func (i *Index) QuerySimilar(ctx context.Context, b book.Book, k int) ([]book.Book, error) {
	if k <= 0 {
		return nil, nil
	}

	vec, err := i.embedder.Embed(ctx, Text(b))
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", b.Title, err)
	}

	matches, err := i.nearest(ctx, vec, k+1)
	if err != nil {
		return nil, err
	}

	self, selfName := b.IdentityKey(), b.TitleAuthorKey()
	similar := make([]book.Book, 0, k)
	for _, m := range matches {
		if m.Book.IdentityKey() == self || m.Book.TitleAuthorKey() == selfName {
			continue
		}
		similar = append(similar, m.Book)
		if len(similar) == k {
			break
		}
	}
	return similar, nil
}

// Search returns up to k books nearest to free text.
func (i *Index) Search(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return i.nearest(ctx, vec, k)
}

// GetByIdentity returns the stored book for key, or nil when absent.
func (i *Index) GetByIdentity(ctx context.Context, key string) (*book.Book, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var meta string
	err := i.db.QueryRowContext(ctx, `SELECT metadata FROM book_vectors WHERE identity_key = ?`, key).Scan(&meta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	var b book.Book
	if err := json.Unmarshal([]byte(meta), &b); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s: %w", key, err)
	}
	return &b, nil
}

// Count returns the number of indexed books.
func (i *Index) Count(ctx context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index: %w", err)
	}
	return n, nil
}

func (i *Index) nearest(ctx context.Context, query []float32, limit int) ([]Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	rows, err := i.db.QueryContext(ctx, `SELECT identity_key, vector, metadata FROM book_vectors`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var key, meta string
		var blob []byte
		if err := rows.Scan(&key, &blob, &meta); err != nil {
			return nil, fmt.Errorf("failed to read index row: %w", err)
		}

		vec, err := decodeVector(blob)
		if err != nil {
			slog.Warn("Skipping corrupt vector", "key", key, "error", err)
			continue
		}
		if len(vec) != len(query) {
			slog.Debug("Skipping vector with different dimensions", "key", key, "dims", len(vec), "want", len(query))
			continue
		}

		var b book.Book
		if err := json.Unmarshal([]byte(meta), &b); err != nil {
			slog.Warn("Skipping corrupt metadata", "key", key, "error", err)
			continue
		}
		matches = append(matches, Match{Book: b, Distance: cosineDistance(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index: %w", err)
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
