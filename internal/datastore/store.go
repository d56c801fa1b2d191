// Package datastore exports recommendation history to SQLite, either a
// local database file or a remote Datasette instance.
package datastore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lepinkainen/bookmind/internal/book"
)

// DatabaseName is the Datasette database recommendations are written to.
const DatabaseName = "bookmind"

// RecommendationsTable holds exported recommendations.
const RecommendationsTable = "recommendations"

// RecommendationsSchema creates the export table.
const RecommendationsSchema = `CREATE TABLE IF NOT EXISTS recommendations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	isbn TEXT,
	genres TEXT,
	description TEXT,
	pages INTEGER,
	published_year INTEGER,
	source_url TEXT,
	relevance_score REAL,
	reasoning TEXT,
	created_at TEXT
)`

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a destination for exported rows.
type Store interface {
	// Connect establishes a connection to the data store
	Connect() error

	// CreateTable creates a new table with the given schema if it doesn't exist
	CreateTable(schema string) error

	// BatchInsert writes records into table, replacing rows with the same key
	BatchInsert(ctx context.Context, table string, records []map[string]any) error

	// Close closes the connection to the data store
	Close() error
}

// RecommendationRecord flattens a recommendation into an export row.
func RecommendationRecord(rec book.Recommendation) map[string]any {
	b := rec.Book
	return map[string]any{
		"id":              rec.ID,
		"title":           b.Title,
		"author":          b.Author,
		"isbn":            b.ISBN,
		"genres":          strings.Join(b.Genres, ","),
		"description":     b.Description,
		"pages":           b.Pages,
		"published_year":  b.PublishedYear,
		"source_url":      b.SourceURL,
		"relevance_score": rec.RelevanceScore,
		"reasoning":       rec.Reasoning,
		"created_at":      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ExportRecommendations writes recs to s. Recommendations without an ID
// are skipped since the ID is the row key.
func ExportRecommendations(ctx context.Context, s Store, recs []book.Recommendation) (int, error) {
	if err := s.CreateTable(RecommendationsSchema); err != nil {
		return 0, err
	}

	records := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			continue
		}
		records = append(records, RecommendationRecord(rec))
	}
	if err := s.BatchInsert(ctx, RecommendationsTable, records); err != nil {
		return 0, fmt.Errorf("exporting recommendations: %w", err)
	}
	return len(records), nil
}

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}
