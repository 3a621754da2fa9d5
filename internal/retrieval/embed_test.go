package retrieval

import (
	"math"
	"testing"
)

func TestLexicalEmbedder_Weights(t *testing.T) {
	weights := LexicalEmbedder{}.Embed("revenue revenue grew")

	if len(weights) != 2 {
		t.Fatalf("expected 2 distinct terms, got %d", len(weights))
	}
	var got []float64
	for _, w := range weights {
		got = append(got, float64(w))
	}
	wantDouble := math.Log1p(2)
	wantSingle := math.Log1p(1)
	found := 0
	for _, w := range got {
		if math.Abs(w-wantDouble) < 1e-6 || math.Abs(w-wantSingle) < 1e-6 {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected log1p term frequencies, got %v", got)
	}
}

func TestLexicalEmbedder_DropsShortTokens(t *testing.T) {
	weights := LexicalEmbedder{}.Embed("a I revenue")
	if len(weights) != 1 {
		t.Errorf("single-char tokens must be dropped, got %d terms", len(weights))
	}
}

func TestLexicalEmbedder_CaseAndPunctuation(t *testing.T) {
	a := LexicalEmbedder{}.Embed("Revenue grew 15%")
	b := LexicalEmbedder{}.Embed("revenue grew 15")
	if len(a) != len(b) {
		t.Fatalf("tokenization differs: %d vs %d terms", len(a), len(b))
	}
	for idx, w := range a {
		if b[idx] != w {
			t.Errorf("term %d weight %v != %v", idx, w, b[idx])
		}
	}
}

func TestTermIndexInVocabRange(t *testing.T) {
	for _, tok := range []string{"revenue", "eps", "guidance", "q4"} {
		idx := termIndex(tok)
		if idx < 0 || idx >= LexicalVocabSize {
			t.Errorf("termIndex(%q) = %d out of range", tok, idx)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSparseDot(t *testing.T) {
	a := map[int]float32{1: 2, 2: 3}
	b := map[int]float32{2: 4, 3: 5}
	if got := sparseDot(a, b); got != 12 {
		t.Errorf("sparseDot = %v, want 12", got)
	}
	if got := sparseDot(b, a); got != 12 {
		t.Errorf("sparseDot must be symmetric, got %v", got)
	}
	if got := sparseDot(a, map[int]float32{}); got != 0 {
		t.Errorf("empty overlap = %v, want 0", got)
	}
}
