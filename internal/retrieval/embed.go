// Package retrieval implements hybrid dense+sparse chunk search with
// reciprocal-rank fusion, cross-encoder re-ranking, and verification
// context assembly.
package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/sashabaranov/go-openai"

	"github.com/pkozlov/claimcheck/internal/model"
)

// DenseEmbedder produces semantic embedding vectors for text.
type DenseEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SparseEmbedder produces lexical weight maps for text. Purely local, so
// no context or error.
type SparseEmbedder interface {
	Embed(text string) map[int]float32
}

// OpenAIEmbedder produces dense vectors via an OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIEmbedder creates a dense embedder from config.
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// Embed returns the embedding vector for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctxWithTimeout, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

// LexicalVocabSize is the sparse dimension; term indices hash into this
// space.
const LexicalVocabSize = 30522

// LexicalEmbedder maps text to sparse term-weight vectors: each distinct
// token hashes to an index and carries log-scaled frequency weight.
type LexicalEmbedder struct{}

// Embed returns the sparse weight map for text.
func (LexicalEmbedder) Embed(text string) map[int]float32 {
	counts := make(map[int]int)
	for _, tok := range lexTokens(text) {
		counts[termIndex(tok)]++
	}
	weights := make(map[int]float32, len(counts))
	for idx, n := range counts {
		weights[idx] = float32(math.Log1p(float64(n)))
	}
	return weights
}

func lexTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var toks []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		toks = append(toks, f)
	}
	return toks
}

func termIndex(tok string) int {
	h := fnv.New32a()
	h.Write([]byte(tok))
	return int(h.Sum32() % LexicalVocabSize)
}
