package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// Index is the consumed chunk-index interface: nearest-neighbor search in
// either embedding space under metadata filters. Execution is opaque to
// callers.
type Index interface {
	DenseSearch(ctx context.Context, vector []float32, filter store.ChunkFilter, k int) ([]model.Chunk, error)
	SparseSearch(ctx context.Context, weights map[int]float32, filter store.ChunkFilter, k int) ([]model.Chunk, error)
}

// ChunkSource is the read side of chunk persistence.
type ChunkSource interface {
	ChunksMatching(ctx context.Context, f store.ChunkFilter) ([]model.Chunk, error)
}

// StoreIndex ranks persisted chunks in memory: cosine similarity for the
// dense space, weighted term overlap for the sparse space. Fine at the
// per-company scale this system indexes.
type StoreIndex struct {
	chunks ChunkSource
}

// NewStoreIndex creates an index over the chunk store.
func NewStoreIndex(chunks ChunkSource) *StoreIndex {
	return &StoreIndex{chunks: chunks}
}

// DenseSearch returns the k nearest chunks by cosine similarity.
func (ix *StoreIndex) DenseSearch(ctx context.Context, vector []float32, filter store.ChunkFilter, k int) ([]model.Chunk, error) {
	return ix.search(ctx, filter, k, func(c model.Chunk) float64 {
		return cosineSimilarity(vector, c.Dense)
	})
}

// SparseSearch returns the k nearest chunks by sparse dot product.
func (ix *StoreIndex) SparseSearch(ctx context.Context, weights map[int]float32, filter store.ChunkFilter, k int) ([]model.Chunk, error) {
	return ix.search(ctx, filter, k, func(c model.Chunk) float64 {
		return sparseDot(weights, c.Sparse)
	})
}

func (ix *StoreIndex) search(ctx context.Context, filter store.ChunkFilter, k int, score func(model.Chunk) float64) ([]model.Chunk, error) {
	candidates, err := ix.chunks.ChunksMatching(ctx, filter)
	if err != nil {
		return nil, err
	}

	type scored struct {
		chunk model.Chunk
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := score(c)
		if s <= 0 {
			continue
		}
		ranked = append(ranked, scored{chunk: c, score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].chunk.ID < ranked[j].chunk.ID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	out := make([]model.Chunk, len(ranked))
	for i, r := range ranked {
		out[i] = r.chunk
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sparseDot(a, b map[int]float32) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		if w2, ok := b[idx]; ok {
			dot += float64(w) * float64(w2)
		}
	}
	return dot
}
