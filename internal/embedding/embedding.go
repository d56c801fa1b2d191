// Package embedding turns book text into vectors for the similarity index.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/lepinkainen/bookmind/internal/cache"
)

// Embedder maps text to a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	// Model names the embedding model; vectors from different models are
	// never interchangeable.
	Model() string
}

// New builds the embedder named by provider ("hash" or "ollama").
func New(provider, model, baseURL string, dims int) (Embedder, error) {
	switch provider {
	case "", "hash":
		return NewHashEmbedder(dims), nil
	case "ollama":
		return NewOllamaEmbedder(baseURL, model, dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// Cached stores embeddings in the content-addressed embedding cache, keyed
// by the embedder's model and dimensions and the SHA-256 of the embedded text.
type Cached struct {
	next  Embedder
	cache *cache.CacheDB
}

var _ Embedder = (*Cached)(nil)

// NewCached wraps next with db. A nil db disables caching.
func NewCached(next Embedder, db *cache.CacheDB) *Cached {
	return &Cached{next: next, cache: db}
}

// Embed returns the cached vector for text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	key := c.next.Model() + ":" + strconv.Itoa(c.next.Dimensions()) + ":" + hex.EncodeToString(sum[:])

	vec, _, err := cache.GetOrFetchWithPolicy(c.cache, cache.EmbeddingTable, key, func() ([]float32, error) {
		return c.next.Embed(ctx, text)
	}, func(v []float32) bool {
		return len(v) > 0
	})
	return vec, err
}

// Model reports the wrapped embedder's model.
func (c *Cached) Model() string {
	return c.next.Model()
}

// Dimensions reports the wrapped embedder's dimensions.
func (c *Cached) Dimensions() int {
	return c.next.Dimensions()
}
