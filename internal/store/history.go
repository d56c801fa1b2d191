// Package store holds the JSON-file repositories: the recommendation
// history and the reading lists. Each store owns its file and serializes
// its own writes; files are replaced atomically.
package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/fileutil"
)

// History is an append-only list of every recommendation handed out.
type History struct {
	path string
	mu   sync.Mutex
}

// NewHistory returns a history stored at path. The file is created on the
// first append.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Path returns the backing file.
func (h *History) Path() string {
	return h.path
}

// Append adds recs to the end of the history.
func (h *History) Append(recs []book.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	existing, err := h.load()
	if err != nil {
		return err
	}
	existing = append(existing, recs...)
	if err := fileutil.WriteJSONFile(existing, h.path); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	slog.Debug("History updated", "path", h.path, "added", len(recs), "total", len(existing))
	return nil
}

// All returns every stored recommendation, oldest first.
func (h *History) All() ([]book.Recommendation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Recent returns at most n of the newest recommendations, oldest first.
func (h *History) Recent(n int) ([]book.Recommendation, error) {
	all, err := h.All()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (h *History) load() ([]book.Recommendation, error) {
	var recs []book.Recommendation
	found, err := fileutil.ReadJSONFile(h.path, &recs)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if !found || recs == nil {
		return []book.Recommendation{}, nil
	}
	return recs, nil
}
