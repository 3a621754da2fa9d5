package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkozlov/claimcheck/internal/llm"
	"github.com/pkozlov/claimcheck/internal/store"
)

// Answer is a synthesized response plus the retrieval that produced it.
type Answer struct {
	Text      string
	Retrieval *Result
}

// Answerer turns a ranked retrieval into a natural-language answer.
type Answerer struct {
	engine   *Engine
	provider llm.Provider
}

// NewAnswerer wires the query engine to a completion provider.
func NewAnswerer(engine *Engine, provider llm.Provider) *Answerer {
	return &Answerer{engine: engine, provider: provider}
}

// Ask retrieves relevant claims and asks the model to answer from them.
func (a *Answerer) Ask(ctx context.Context, ticker, question string) (*Answer, error) {
	result, err := a.engine.Retrieve(ctx, ticker, question)
	if err != nil {
		return nil, fmt.Errorf("retrieve claims: %w", err)
	}
	if len(result.Claims) == 0 {
		return &Answer{
			Text:      fmt.Sprintf("No claims found for %s matching the question. Load and verify earnings data first.", strings.ToUpper(ticker)),
			Retrieval: result,
		}, nil
	}

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		System:      result.PromptHint,
		Prompt:      fmt.Sprintf("%s\n\nQuestion: %s", FormatClaims(result.Claims), question),
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	return &Answer{Text: resp.Text, Retrieval: result}, nil
}

// FormatClaims renders claims and their verdicts as numbered context blocks.
func FormatClaims(rows []store.ClaimWithVerdict) string {
	var b strings.Builder
	b.WriteString("VERIFIED CLAIMS CONTEXT:\n")
	for i, row := range rows {
		c := row.Claim
		fmt.Fprintf(&b, "\n[Claim %d] %s, Q%d %d", i+1, c.Ticker, c.Quarter, c.Year)
		if c.Speaker != "" {
			fmt.Fprintf(&b, " (%s)", c.Speaker)
		}
		fmt.Fprintf(&b, "\nStatement: %s\n", c.RawText)
		fmt.Fprintf(&b, "Metric: %s = %v %s\n", c.Metric, c.Value, c.Unit)
		if row.Verdict == nil {
			b.WriteString("Verdict: not yet verified\n")
			continue
		}
		v := row.Verdict
		fmt.Fprintf(&b, "Verdict: %s (confidence %.1f)\n", v.Label, v.Confidence)
		if v.ActualValue != nil {
			fmt.Fprintf(&b, "Actual value: %v\n", *v.ActualValue)
		}
		if v.Explanation != "" {
			fmt.Fprintf(&b, "Reasoning: %s\n", v.Explanation)
		}
		if len(v.MisleadingFlags) > 0 {
			fmt.Fprintf(&b, "Misleading flags: %s\n", strings.Join(v.MisleadingFlags, "; "))
		}
		for _, ev := range v.Evidence {
			fmt.Fprintf(&b, "Evidence: %q\n", ev)
		}
	}
	return b.String()
}
