package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// rrfConstant dampens the contribution of lower ranks in reciprocal-rank
// fusion; 60 is the value from the original RRF paper.
const rrfConstant = 60

// Candidate is a retrieved chunk with its fused (and later re-ranked) score.
type Candidate struct {
	Chunk       model.Chunk
	Score       float64 // RRF score from hybrid search
	RerankScore float64 // Cross-encoder score, set by the context builder
	IsGold      bool    // Deterministic fact, bypasses retrieval uncertainty
	Text        string  // Display text; equals Chunk.Text for retrieved chunks
}

// Retriever runs dense and sparse top-k searches under identical filters and
// fuses the rankings with RRF, avoiding any calibration between the two
// incomparable distance scales. Either ranking may be empty or noisy without
// breaking the fusion.
type Retriever struct {
	index  Index
	dense  DenseEmbedder
	sparse SparseEmbedder
}

// NewRetriever creates a hybrid retriever.
func NewRetriever(index Index, dense DenseEmbedder, sparse SparseEmbedder) *Retriever {
	return &Retriever{index: index, dense: dense, sparse: sparse}
}

// Search embeds the query in both spaces, ranks top-k in each, and returns
// the fused top-k.
func (r *Retriever) Search(ctx context.Context, query string, filter store.ChunkFilter, k int) ([]Candidate, error) {
	vector, err := r.dense.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	denseRanked, err := r.index.DenseSearch(ctx, vector, filter, k)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	sparseRanked, err := r.index.SparseSearch(ctx, r.sparse.Embed(query), filter, k)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}

	return FuseRankings(denseRanked, sparseRanked, k), nil
}

// FuseRankings merges two rankings by Reciprocal Rank Fusion:
// score = Σ 1/(60+rank), with rank k+1 standing in for rankings a chunk is
// absent from. Returns the top-k by fused score.
func FuseRankings(denseRanked, sparseRanked []model.Chunk, k int) []Candidate {
	absent := 1.0 / float64(rrfConstant+k+1)

	byID := make(map[string]model.Chunk)
	denseRank := make(map[string]int)
	for i, c := range denseRanked {
		byID[c.ID] = c
		denseRank[c.ID] = i + 1
	}
	sparseRank := make(map[string]int)
	for i, c := range sparseRanked {
		byID[c.ID] = c
		sparseRank[c.ID] = i + 1
	}

	contribution := func(ranks map[string]int, id string) float64 {
		if rank, ok := ranks[id]; ok {
			return 1.0 / float64(rrfConstant+rank)
		}
		return absent
	}

	fused := make([]Candidate, 0, len(byID))
	for id, chunk := range byID {
		score := contribution(denseRank, id) + contribution(sparseRank, id)
		fused = append(fused, Candidate{Chunk: chunk, Score: score, Text: chunk.Text})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Chunk.ID < fused[j].Chunk.ID
	})
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused
}
