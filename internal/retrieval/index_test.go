package retrieval

import (
	"context"
	"testing"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

type staticChunks struct {
	chunks []model.Chunk
}

func (s *staticChunks) ChunksMatching(ctx context.Context, f store.ChunkFilter) ([]model.Chunk, error) {
	return s.chunks, nil
}

func TestStoreIndex_DenseSearchRanksBySimilarity(t *testing.T) {
	near := chunk("near", "")
	near.Dense = []float32{1, 0.1}
	far := chunk("far", "")
	far.Dense = []float32{0.1, 1}
	opposite := chunk("opp", "")
	opposite.Dense = []float32{-1, 0}

	ix := NewStoreIndex(&staticChunks{chunks: []model.Chunk{far, opposite, near}})
	got, err := ix.DenseSearch(context.Background(), []float32{1, 0}, store.ChunkFilter{}, 10)
	if err != nil {
		t.Fatalf("DenseSearch failed: %v", err)
	}
	// Negative similarity is filtered out entirely.
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "far" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestStoreIndex_SparseSearchOverlap(t *testing.T) {
	hit := chunk("hit", "")
	hit.Sparse = map[int]float32{1: 2}
	miss := chunk("miss", "")
	miss.Sparse = map[int]float32{9: 2}

	ix := NewStoreIndex(&staticChunks{chunks: []model.Chunk{miss, hit}})
	got, err := ix.SparseSearch(context.Background(), map[int]float32{1: 1}, store.ChunkFilter{}, 10)
	if err != nil {
		t.Fatalf("SparseSearch failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "hit" {
		t.Errorf("expected only overlapping chunk, got %v", got)
	}
}

func TestStoreIndex_TruncatesToK(t *testing.T) {
	var chunks []model.Chunk
	for _, id := range []string{"a", "b", "c"} {
		c := chunk(id, "")
		c.Dense = []float32{1, 0}
		chunks = append(chunks, c)
	}
	ix := NewStoreIndex(&staticChunks{chunks: chunks})

	got, err := ix.DenseSearch(context.Background(), []float32{1, 0}, store.ChunkFilter{}, 2)
	if err != nil {
		t.Fatalf("DenseSearch failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected top-2, got %d", len(got))
	}
	// Equal scores fall back to ID order.
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
