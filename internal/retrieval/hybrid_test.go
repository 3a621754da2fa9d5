package retrieval

import (
	"math"
	"testing"

	"github.com/pkozlov/claimcheck/internal/model"
)

func chunk(id, text string) model.Chunk {
	return model.Chunk{ID: id, Ticker: "AAPL", Year: 2024, Quarter: 4, Text: text}
}

func TestFuseRankings_BothListsBeatsSingleList(t *testing.T) {
	// "b" is mid-ranked in both lists; "a" and "c" each top one list only.
	dense := []model.Chunk{chunk("a", ""), chunk("b", "")}
	sparse := []model.Chunk{chunk("c", ""), chunk("b", "")}

	fused := FuseRankings(dense, sparse, 10)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	if fused[0].Chunk.ID != "b" {
		t.Errorf("expected chunk present in both rankings first, got %s", fused[0].Chunk.ID)
	}
}

func TestFuseRankings_Scores(t *testing.T) {
	dense := []model.Chunk{chunk("a", "")}
	sparse := []model.Chunk{chunk("b", "")}

	fused := FuseRankings(dense, sparse, 10)
	// Rank 1 in one list, absent (rank k+1) in the other.
	want := 1.0/61 + 1.0/71
	for _, c := range fused {
		if math.Abs(c.Score-want) > 1e-12 {
			t.Errorf("chunk %s score = %v, want %v", c.Chunk.ID, c.Score, want)
		}
	}
}

func TestFuseRankings_TieBreaksByID(t *testing.T) {
	dense := []model.Chunk{chunk("z", ""), chunk("a", "")}
	sparse := []model.Chunk{chunk("a", ""), chunk("z", "")}

	fused := FuseRankings(dense, sparse, 10)
	// Identical fused scores: deterministic order by ID.
	if fused[0].Chunk.ID != "a" || fused[1].Chunk.ID != "z" {
		t.Errorf("expected tie broken by ID, got %s then %s", fused[0].Chunk.ID, fused[1].Chunk.ID)
	}
}

func TestFuseRankings_TruncatesToK(t *testing.T) {
	dense := []model.Chunk{chunk("a", ""), chunk("b", ""), chunk("c", "")}

	fused := FuseRankings(dense, nil, 2)
	if len(fused) != 2 {
		t.Errorf("expected top-2, got %d", len(fused))
	}
	if fused[0].Chunk.ID != "a" {
		t.Errorf("expected dense order preserved, got %s first", fused[0].Chunk.ID)
	}
}
