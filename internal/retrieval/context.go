package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// FactSource is the read side of the fact store, used for gold evidence.
type FactSource interface {
	GetFact(ctx context.Context, ticker, metric string, year, quarter int) (*model.Fact, error)
}

// ContextBuilder assembles the evidence set for a claim: deterministic gold
// facts first, then hybrid-retrieved chunks re-ranked by a cross-encoder.
type ContextBuilder struct {
	facts     FactSource
	retriever *Retriever
	reranker  Reranker
	topK      int // Per-query hybrid search depth
	topN      int // Final evidence set size
}

// NewContextBuilder wires the evidence pipeline.
func NewContextBuilder(facts FactSource, retriever *Retriever, reranker Reranker, cfg model.RetrievalConfig) *ContextBuilder {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 30
	}
	topN := cfg.ContextTop
	if topN <= 0 {
		topN = 10
	}
	return &ContextBuilder{facts: facts, retriever: retriever, reranker: reranker, topK: topK, topN: topN}
}

// BuildForClaim returns the ranked evidence set for a claim. Gold facts
// exactly matching the claim's (ticker, metric, year, quarter) are always
// first, regardless of re-rank score.
func (b *ContextBuilder) BuildForClaim(ctx context.Context, claim model.Claim) ([]Candidate, error) {
	var gold []Candidate

	metric := strings.ToLower(claim.Metric)
	fact, err := b.facts.GetFact(ctx, claim.Ticker, metric, claim.Year, claim.Quarter)
	if err != nil && !errors.Is(err, store.ErrNoFact) {
		return nil, fmt.Errorf("gold fact lookup: %w", err)
	}
	if fact != nil {
		gold = append(gold, Candidate{
			IsGold: true,
			Score:  2.0,
			Text: fmt.Sprintf("GOLD SOURCE | Company: %s | Period: Q%d %d | Source: %s\n%s: %s %s",
				fact.Ticker, fact.Quarter, fact.Year, fact.Source, fact.Metric, formatValue(fact.Value), fact.Unit),
		})
	}

	// Query the claim's own period, plus the prior-year-same-period when the
	// source text signals a year-over-year comparison.
	type periodQuery struct {
		text string
		year int
	}
	queries := []periodQuery{
		{text: fmt.Sprintf("%s for %s in Q%d %d", metric, claim.Ticker, claim.Quarter, claim.Year), year: claim.Year},
	}
	raw := strings.ToLower(claim.RawText)
	if strings.Contains(raw, "year-over-year") || strings.Contains(raw, "yoy") {
		queries = append(queries, periodQuery{
			text: fmt.Sprintf("%s for %s in Q%d %d", metric, claim.Ticker, claim.Quarter, claim.Year-1),
			year: claim.Year - 1,
		})
	}

	var candidates []Candidate
	for _, q := range queries {
		year, quarter := q.year, claim.Quarter
		results, err := b.retriever.Search(ctx, q.text, store.ChunkFilter{
			Ticker:  claim.Ticker,
			Year:    &year,
			Quarter: &quarter,
		}, b.topK)
		if err != nil {
			return nil, fmt.Errorf("hybrid search: %w", err)
		}
		candidates = append(candidates, results...)
	}

	// Dedup across the period queries.
	seen := make(map[string]bool)
	unique := candidates[:0]
	for _, c := range candidates {
		if seen[c.Chunk.ID] {
			continue
		}
		seen[c.Chunk.ID] = true
		unique = append(unique, c)
	}

	if len(unique) > 0 {
		texts := make([]string, len(unique))
		for i, c := range unique {
			texts[i] = c.Text
		}
		scores, err := b.reranker.Score(ctx, claim.RawText, texts)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		for i := range unique {
			unique[i].RerankScore = scores[i]
		}
		sort.SliceStable(unique, func(i, j int) bool {
			return unique[i].RerankScore > unique[j].RerankScore
		})
	}

	out := gold
	for _, c := range unique {
		if len(out) >= b.topN {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

// Render formats the evidence set for the generative verifier's prompt.
func Render(items []Candidate) string {
	if len(items) == 0 {
		return "No relevant context found."
	}
	blocks := make([]string, len(items))
	for i, item := range items {
		marker := fmt.Sprintf("[Source %d]", i+1)
		if item.IsGold {
			marker = "[GOLD SOURCE]"
		}
		blocks[i] = marker + " " + item.Text
	}
	return strings.Join(blocks, "\n\n")
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("$%d", int64(v))
	}
	return fmt.Sprintf("$%.2f", v)
}
