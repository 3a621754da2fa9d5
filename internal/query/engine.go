package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// Intent classifies what kind of answer a question is after.
type Intent string

const (
	IntentVerdictFilter Intent = "VERDICT_FILTER"
	IntentComparison    Intent = "COMPARISON"
	IntentSpeakerFilter Intent = "SPEAKER_FILTER"
	IntentMetricLookup  Intent = "METRIC_LOOKUP"
	IntentGeneral       Intent = "GENERAL"
)

// Decomposition is the structured form of a free-text question.
type Decomposition struct {
	Intent     Intent
	Verdict    model.Label // zero when no verdict family matched
	HasVerdict bool
	Metrics    []string
	Quarters   [][2]int // (year, quarter)
	Speaker    string
	Comparison bool
	Keywords   []string
}

// Decompose extracts every signal from the question, then classifies the
// intent by priority: verdict beats comparison, comparison (with at least
// two periods) beats speaker, speaker beats metric lookup.
func Decompose(question string) Decomposition {
	d := Decomposition{
		Metrics:    detectMetrics(question),
		Quarters:   detectQuarters(question),
		Speaker:    detectSpeaker(question),
		Comparison: isComparison(question),
		Keywords:   extractKeywords(question),
	}
	d.Verdict, d.HasVerdict = detectVerdict(question)

	switch {
	case d.HasVerdict:
		d.Intent = IntentVerdictFilter
	case d.Comparison && len(d.Quarters) >= 2:
		d.Intent = IntentComparison
	case d.Speaker != "":
		d.Intent = IntentSpeakerFilter
	case len(d.Metrics) > 0:
		d.Intent = IntentMetricLookup
	default:
		d.Intent = IntentGeneral
	}
	return d
}

// claimSource is the slice of the store the engine pre-filters through.
type claimSource interface {
	ClaimsByLabel(ctx context.Context, ticker string, label model.Label) ([]store.ClaimWithVerdict, error)
	ClaimsNotLabel(ctx context.Context, ticker string, label model.Label, limit int) ([]store.ClaimWithVerdict, error)
	ClaimsByQuarters(ctx context.Context, ticker string, quarters [][2]int) ([]store.ClaimWithVerdict, error)
	ClaimsByMetricPattern(ctx context.Context, ticker string, patterns []string) ([]store.ClaimWithVerdict, error)
	ClaimsByKeyword(ctx context.Context, ticker, keyword string) ([]store.ClaimWithVerdict, error)
	RecentClaims(ctx context.Context, ticker string, limit int) ([]store.ClaimWithVerdict, error)
}

// Result carries ranked claims plus the intent-specific prompt hint for
// the answering model.
type Result struct {
	Claims     []store.ClaimWithVerdict
	Intent     Intent
	Filters    Decomposition
	PromptHint string
}

// Engine retrieves and ranks claims for a question.
type Engine struct {
	store  claimSource
	logger *slog.Logger
}

// NewEngine creates a query engine over the claim store.
func NewEngine(st claimSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// Retrieve decomposes the question, pre-filters candidates at the store
// level for strong intents, scores them, and returns an adaptively sized
// ranked slice.
func (e *Engine) Retrieve(ctx context.Context, ticker, question string) (*Result, error) {
	ticker = strings.ToUpper(ticker)
	d := Decompose(question)

	e.logger.Info("smart retrieval",
		"ticker", ticker, "intent", d.Intent,
		"metrics", d.Metrics, "quarters", d.Quarters,
		"speaker", d.Speaker, "keywords", len(d.Keywords))

	candidates, err := e.candidates(ctx, ticker, d)
	if err != nil {
		return nil, err
	}
	unique := dedupe(candidates)

	result := &Result{
		Intent:     d.Intent,
		Filters:    d,
		PromptHint: promptHint(d),
	}
	if len(unique) == 0 {
		return result, nil
	}

	maxYear, maxQuarter := newestPeriod(unique)

	type scored struct {
		row   store.ClaimWithVerdict
		score float64
	}
	ranked := make([]scored, len(unique))
	for i, row := range unique {
		ranked[i] = scored{row, scoreClaim(row, d, maxYear, maxQuarter)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	// Adaptive sizing with a floor: never return an empty answer set when
	// candidates exist.
	const minScore = 0.05
	limit := maxResults(d.Intent)
	if limit > len(ranked) {
		limit = len(ranked)
	}
	for _, rc := range ranked[:limit] {
		if rc.score >= minScore || len(result.Claims) < 5 {
			result.Claims = append(result.Claims, rc.row)
		}
	}

	e.logger.Info("smart retrieval ranked",
		"candidates", len(unique), "results", len(result.Claims),
		"intent", d.Intent, "top_score", ranked[0].score)
	return result, nil
}

// candidates pre-filters at the store level so scoring only touches rows
// the intent plausibly wants, plus a contextual sample of others.
func (e *Engine) candidates(ctx context.Context, ticker string, d Decomposition) ([]store.ClaimWithVerdict, error) {
	switch {
	case d.HasVerdict:
		matches, err := e.store.ClaimsByLabel(ctx, ticker, d.Verdict)
		if err != nil {
			return nil, fmt.Errorf("verdict filter: %w", err)
		}
		others, err := e.store.ClaimsNotLabel(ctx, ticker, d.Verdict, 20)
		if err != nil {
			return nil, fmt.Errorf("verdict context sample: %w", err)
		}
		return append(matches, others...), nil

	case len(d.Quarters) > 0:
		matches, err := e.store.ClaimsByQuarters(ctx, ticker, d.Quarters)
		if err != nil {
			return nil, fmt.Errorf("quarter filter: %w", err)
		}
		others, err := e.store.RecentClaims(ctx, ticker, 30)
		if err != nil {
			return nil, fmt.Errorf("quarter context sample: %w", err)
		}
		return append(matches, others...), nil

	case len(d.Metrics) > 0 && len(d.Keywords) > 0:
		var patterns []string
		for _, canonical := range d.Metrics {
			for _, syn := range metricSynonyms {
				if syn.canonical != canonical {
					continue
				}
				for _, raw := range syn.raw {
					patterns = append(patterns, likePattern(raw))
				}
			}
		}
		out, err := e.store.ClaimsByMetricPattern(ctx, ticker, patterns)
		if err != nil {
			return nil, fmt.Errorf("metric filter: %w", err)
		}
		for _, kw := range head(d.Keywords, 3) {
			rows, err := e.store.ClaimsByKeyword(ctx, ticker, kw)
			if err != nil {
				return nil, fmt.Errorf("keyword filter: %w", err)
			}
			out = append(out, rows...)
		}
		return out, nil

	default:
		var out []store.ClaimWithVerdict
		for _, kw := range head(d.Keywords, 5) {
			rows, err := e.store.ClaimsByKeyword(ctx, ticker, kw)
			if err != nil {
				return nil, fmt.Errorf("keyword filter: %w", err)
			}
			out = append(out, rows...)
		}
		recent, err := e.store.RecentClaims(ctx, ticker, 20)
		if err != nil {
			return nil, fmt.Errorf("recent fallback: %w", err)
		}
		return append(out, recent...), nil
	}
}

// scoreClaim is the composite relevance score: keyword density, metric
// match, verdict match, temporal proximity, and evidence quality.
func scoreClaim(row store.ClaimWithVerdict, d Decomposition, maxYear, maxQuarter int) float64 {
	claim, verdict := row.Claim, row.Verdict

	searchable := claim.RawText
	if claim.Metric != "" {
		searchable += " " + claim.Metric
	}
	if verdict != nil && verdict.Explanation != "" {
		searchable += " " + verdict.Explanation
	}
	kwScore := keywordScore(d.Keywords, searchable)

	mScore := metricMatchScore(claim.Metric, d.Metrics)

	vScore := 0.0
	if d.HasVerdict && verdict != nil && verdict.Label == d.Verdict {
		vScore = 1.0
	}

	qScore := 0.0
	if len(d.Quarters) > 0 {
		for _, q := range d.Quarters {
			if claim.Year == q[0] && claim.Quarter == q[1] {
				qScore = 1.0
				break
			}
		}
	} else {
		// Recency decay: each quarter of distance from the newest stored
		// period costs 0.15.
		dist := (maxYear-claim.Year)*4 + (maxQuarter - claim.Quarter)
		qScore = 1.0 - float64(dist)*0.15
		if qScore < 0 {
			qScore = 0
		}
	}

	eq := 0.0
	if verdict != nil {
		eq += 0.5
		if verdict.Explanation != "" {
			eq += 0.2
		}
		if len(verdict.Evidence) > 0 {
			eq += 0.3
		}
	}

	return 0.30*kwScore + 0.25*mScore + 0.20*vScore + 0.10*qScore + 0.15*eq
}

// keywordScore is the fraction of keywords present in the text.
func keywordScore(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// metricMatchScore is 1 when the claim's metric matches any detected
// canonical metric's synonym set.
func metricMatchScore(claimMetric string, detected []string) float64 {
	if len(detected) == 0 || claimMetric == "" {
		return 0
	}
	cm := strings.ToLower(claimMetric)
	for _, canonical := range detected {
		for _, syn := range metricSynonyms {
			if syn.canonical != canonical {
				continue
			}
			for _, pat := range syn.patterns {
				if pat.MatchString(cm) {
					return 1.0
				}
			}
		}
	}
	return 0
}

func maxResults(intent Intent) int {
	switch intent {
	case IntentVerdictFilter:
		return 20
	case IntentMetricLookup:
		return 8
	case IntentComparison:
		return 15
	default:
		return 12
	}
}

func promptHint(d Decomposition) string {
	base := "You are a financial analysis assistant. Answer the user's question " +
		"using ONLY the provided verified claims and evidence below. " +
		"If the answer cannot be derived from the provided context, say so clearly. " +
		"Do not fabricate data. Be specific: cite exact numbers, quarters, and verdicts.\n\n"

	switch d.Intent {
	case IntentVerdictFilter:
		vt := string(d.Verdict)
		return base + fmt.Sprintf(
			"IMPORTANT: The user is asking specifically about %s claims. "+
				"List each %s claim, its metric, the claimed vs actual value, "+
				"and the verification reasoning. If there are no %s claims in the "+
				"context, say so explicitly.", vt, vt, vt)
	case IntentMetricLookup:
		return base + fmt.Sprintf(
			"The user is asking about specific financial metric(s): %s. "+
				"Provide the exact values, which quarter they are from, who stated them, "+
				"and their verification status (verified/false/etc).",
			strings.Join(d.Metrics, ", "))
	case IntentComparison:
		return base +
			"The user wants to compare data across time periods. " +
			"Organize your answer by quarter. Highlight changes and trends. " +
			"Use exact numbers from the claims."
	case IntentSpeakerFilter:
		return base + fmt.Sprintf(
			"The user is asking about what the %s said. "+
				"Focus on claims attributed to that speaker and their verification status.", d.Speaker)
	default:
		return base +
			"Provide a comprehensive answer by synthesizing all the relevant " +
			"verified claims. Group related claims together and note their " +
			"verification status."
	}
}

func dedupe(rows []store.ClaimWithVerdict) []store.ClaimWithVerdict {
	seen := make(map[string]bool, len(rows))
	var out []store.ClaimWithVerdict
	for _, row := range rows {
		if !seen[row.Claim.ID] {
			seen[row.Claim.ID] = true
			out = append(out, row)
		}
	}
	return out
}

func newestPeriod(rows []store.ClaimWithVerdict) (year, quarter int) {
	for _, row := range rows {
		if row.Claim.Year > year {
			year = row.Claim.Year
			quarter = row.Claim.Quarter
		} else if row.Claim.Year == year && row.Claim.Quarter > quarter {
			quarter = row.Claim.Quarter
		}
	}
	return year, quarter
}

func head(ss []string, n int) []string {
	if len(ss) <= n {
		return ss
	}
	return ss[:n]
}
