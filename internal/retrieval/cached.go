package retrieval

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkozlov/claimcheck/internal/cache"
)

// CachedEmbedder memoizes dense embeddings by text. Claim raw text recurs
// across the verification and YoY queries of a batch run, so caching cuts
// embedding round-trips roughly in half.
type CachedEmbedder struct {
	inner DenseEmbedder
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedEmbedder wraps a dense embedder with a cache.
func NewCachedEmbedder(inner DenseEmbedder, c cache.Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, ttl: ttl}
}

// Embed returns the cached vector when present, otherwise embeds and stores.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(text)
	if data, ok := e.cache.Get(key); ok {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
		// Corrupt entry, drop it and re-embed.
		_ = e.cache.Delete(key)
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(vec); err == nil {
		_ = e.cache.Set(key, data, e.ttl)
	}
	return vec, nil
}
