package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/davidbz/kodama/internal/domain"
	"github.com/davidbz/kodama/internal/observability"
)

// CachedEmbedder decorates an EmbeddingGenerator with a bounded TTL cache
// so each unique text costs exactly one provider call until expiry or
// eviction. Keys are the SHA-256 of the full text; callers must not assume
// any other key shape.
type CachedEmbedder struct {
	inner domain.EmbeddingGenerator
	cache *Cache[[]float64]
}

// NewCachedEmbedder wraps gen with an embedding cache of the given bounds.
func NewCachedEmbedder(gen domain.EmbeddingGenerator, maxSize int, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: gen,
		cache: New[[]float64](maxSize, ttl),
	}
}

// Generate returns the cached vector for text, calling the inner generator
// on miss. Generator failures propagate; nothing is cached for them.
func (e *CachedEmbedder) Generate(ctx context.Context, text string) ([]float64, error) {
	key := embeddingKey(text)

	if vector, ok := e.cache.Get(key); ok {
		return vector, nil
	}

	vector, err := e.inner.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	e.cache.Set(key, vector)

	observability.FromContext(ctx).Debug("embedding cached",
		observability.String("key", key),
		observability.Int("dimension", len(vector)))

	return vector, nil
}

// Dimension returns the inner generator's vector dimension.
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}

// Stats exposes the underlying cache counters.
func (e *CachedEmbedder) Stats() Stats {
	return e.cache.Stats()
}

func embeddingKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "embed:" + hex.EncodeToString(hash[:])
}
