package query

import (
	"context"
	"strings"
	"testing"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// fakeClaims serves canned rows and records which pre-filters ran.
type fakeClaims struct {
	byLabel   []store.ClaimWithVerdict
	notLabel  []store.ClaimWithVerdict
	byQuarter []store.ClaimWithVerdict
	byMetric  []store.ClaimWithVerdict
	byKeyword map[string][]store.ClaimWithVerdict
	recent    []store.ClaimWithVerdict

	metricPatterns []string
	keywordCalls   []string
}

func (f *fakeClaims) ClaimsByLabel(ctx context.Context, ticker string, label model.Label) ([]store.ClaimWithVerdict, error) {
	return f.byLabel, nil
}

func (f *fakeClaims) ClaimsNotLabel(ctx context.Context, ticker string, label model.Label, limit int) ([]store.ClaimWithVerdict, error) {
	return f.notLabel, nil
}

func (f *fakeClaims) ClaimsByQuarters(ctx context.Context, ticker string, quarters [][2]int) ([]store.ClaimWithVerdict, error) {
	return f.byQuarter, nil
}

func (f *fakeClaims) ClaimsByMetricPattern(ctx context.Context, ticker string, patterns []string) ([]store.ClaimWithVerdict, error) {
	f.metricPatterns = patterns
	return f.byMetric, nil
}

func (f *fakeClaims) ClaimsByKeyword(ctx context.Context, ticker, keyword string) ([]store.ClaimWithVerdict, error) {
	f.keywordCalls = append(f.keywordCalls, keyword)
	return f.byKeyword[keyword], nil
}

func (f *fakeClaims) RecentClaims(ctx context.Context, ticker string, limit int) ([]store.ClaimWithVerdict, error) {
	return f.recent, nil
}

func row(id string, year, quarter int, metric, text string, label model.Label) store.ClaimWithVerdict {
	cv := store.ClaimWithVerdict{Claim: model.Claim{
		ID: id, Ticker: "AAPL", Year: year, Quarter: quarter,
		Metric: metric, RawText: text,
	}}
	if label != "" {
		cv.Verdict = &model.Verdict{
			ClaimID:     id,
			Label:       label,
			Explanation: "checked against filings",
			Evidence:    []string{"10-Q"},
		}
	}
	return cv
}

func TestEngine_VerdictFilterRanksMatchesFirst(t *testing.T) {
	st := &fakeClaims{
		byLabel: []store.ClaimWithVerdict{
			row("f1", 2024, 4, "revenue", "revenue grew 15 percent", model.LabelFalse),
		},
		notLabel: []store.ClaimWithVerdict{
			row("v1", 2024, 4, "eps", "eps was 1.46", model.LabelVerified),
			row("v2", 2024, 3, "revenue", "revenue grew 12 percent", model.LabelVerified),
		},
	}
	e := NewEngine(st, nil)

	res, err := e.Retrieve(context.Background(), "aapl", "which revenue claims were false?")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if res.Intent != IntentVerdictFilter {
		t.Fatalf("expected VERDICT_FILTER intent, got %s", res.Intent)
	}
	if len(res.Claims) != 3 {
		t.Fatalf("expected all 3 candidates under the floor, got %d", len(res.Claims))
	}
	if res.Claims[0].Claim.ID != "f1" {
		t.Errorf("expected FALSE claim ranked first, got %s", res.Claims[0].Claim.ID)
	}
	if !strings.Contains(res.PromptHint, "FALSE claims") {
		t.Errorf("prompt hint missing verdict focus: %q", res.PromptHint)
	}
}

func TestEngine_QuarterFilterDedupes(t *testing.T) {
	shared := row("c1", 2024, 4, "revenue", "revenue grew", model.LabelVerified)
	st := &fakeClaims{
		byQuarter: []store.ClaimWithVerdict{shared},
		recent: []store.ClaimWithVerdict{
			shared,
			row("c2", 2024, 3, "eps", "eps was 1.40", model.LabelVerified),
		},
	}
	e := NewEngine(st, nil)

	res, err := e.Retrieve(context.Background(), "AAPL", "how was Q4 2024?")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(res.Claims) != 2 {
		t.Fatalf("expected 2 unique claims, got %d", len(res.Claims))
	}
	if res.Claims[0].Claim.ID != "c1" {
		t.Errorf("expected quarter match ranked first, got %s", res.Claims[0].Claim.ID)
	}
}

func TestEngine_MetricLookupBuildsLikePatterns(t *testing.T) {
	st := &fakeClaims{
		byMetric: []store.ClaimWithVerdict{
			row("m1", 2024, 4, "free_cash_flow", "FCF hit a record", model.LabelVerified),
		},
		byKeyword: map[string][]store.ClaimWithVerdict{},
	}
	e := NewEngine(st, nil)

	res, err := e.Retrieve(context.Background(), "AAPL", "what happened with free cash flow margins?")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if res.Intent != IntentMetricLookup {
		t.Fatalf("expected METRIC_LOOKUP intent, got %s", res.Intent)
	}
	found := false
	for _, p := range st.metricPatterns {
		if p == "%free%cash%flow%" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LIKE pattern for free cash flow, got %v", st.metricPatterns)
	}
	if len(st.keywordCalls) > 3 {
		t.Errorf("keyword pre-filter capped at 3, got %v", st.keywordCalls)
	}
	if len(res.Claims) != 1 {
		t.Errorf("expected 1 result, got %d", len(res.Claims))
	}
}

func TestEngine_GeneralFallbackUsesKeywordsAndRecent(t *testing.T) {
	st := &fakeClaims{
		byKeyword: map[string][]store.ClaimWithVerdict{
			"highlights": {row("k1", 2024, 4, "", "key highlights of the call", model.LabelVerified)},
		},
		recent: []store.ClaimWithVerdict{
			row("r1", 2024, 4, "revenue", "revenue grew", model.LabelVerified),
		},
	}
	e := NewEngine(st, nil)

	res, err := e.Retrieve(context.Background(), "AAPL", "summarize the highlights")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if res.Intent != IntentGeneral {
		t.Fatalf("expected GENERAL intent, got %s", res.Intent)
	}
	if len(res.Claims) != 2 {
		t.Errorf("expected keyword hit plus recent claim, got %d", len(res.Claims))
	}
}

func TestEngine_EmptyStoreReturnsEmptyResult(t *testing.T) {
	e := NewEngine(&fakeClaims{byKeyword: map[string][]store.ClaimWithVerdict{}}, nil)

	res, err := e.Retrieve(context.Background(), "AAPL", "summarize the highlights")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(res.Claims) != 0 {
		t.Errorf("expected no claims, got %d", len(res.Claims))
	}
	if res.PromptHint == "" {
		t.Error("prompt hint must be set even with no claims")
	}
}

func TestEngine_AdaptiveSizing(t *testing.T) {
	tests := []struct {
		intent Intent
		want   int
	}{
		{IntentVerdictFilter, 20},
		{IntentMetricLookup, 8},
		{IntentComparison, 15},
		{IntentSpeakerFilter, 12},
		{IntentGeneral, 12},
	}
	for _, tt := range tests {
		if got := maxResults(tt.intent); got != tt.want {
			t.Errorf("maxResults(%s) = %d, want %d", tt.intent, got, tt.want)
		}
	}
}

func TestScoreClaim_RecencyDecay(t *testing.T) {
	d := Decompose("summarize the highlights")

	newest := row("n", 2024, 4, "", "nothing relevant", "")
	older := row("o", 2024, 1, "", "nothing relevant", "")

	sNew := scoreClaim(newest, d, 2024, 4)
	sOld := scoreClaim(older, d, 2024, 4)
	if sNew <= sOld {
		t.Errorf("newer claim must outscore older: %v vs %v", sNew, sOld)
	}
	// Three quarters of distance at 0.15 each, weighted 0.10.
	if diff := sNew - sOld; diff < 0.044 || diff > 0.046 {
		t.Errorf("expected decay of 0.045, got %v", diff)
	}
}

func TestScoreClaim_EvidenceQuality(t *testing.T) {
	d := Decompose("summarize the highlights")

	bare := row("b", 2024, 4, "", "text", "")
	full := row("f", 2024, 4, "", "text", model.LabelVerified)

	sBare := scoreClaim(bare, d, 2024, 4)
	sFull := scoreClaim(full, d, 2024, 4)
	// Verdict 0.5 + explanation 0.2 + evidence 0.3, weighted 0.15.
	if diff := sFull - sBare; diff < 0.149 || diff > 0.151 {
		t.Errorf("expected evidence bonus of 0.15, got %v", diff)
	}
}
