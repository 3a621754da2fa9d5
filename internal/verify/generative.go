package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkozlov/claimcheck/internal/llm"
	"github.com/pkozlov/claimcheck/internal/model"
)

// GenerativeVerifier is the fallback tier: a structured analyst prompt
// against a generative completion service, with the retry policy expressed
// as data and executed under the caller's context. Exhaustion produces a
// terminal UNVERIFIABLE verdict, never an error, so one bad claim cannot
// abort a batch.
type GenerativeVerifier struct {
	provider llm.Provider
	schedule model.RetrySchedule
	logger   *slog.Logger

	// sleep is injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerativeVerifier creates the fallback tier.
func NewGenerativeVerifier(provider llm.Provider, schedule model.RetrySchedule, logger *slog.Logger) *GenerativeVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerativeVerifier{
		provider: provider,
		schedule: schedule,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// generativeResponse is the JSON contract the prompt demands.
type generativeResponse struct {
	Verdict         string   `json:"verdict"`
	ActualValue     *float64 `json:"actual_value"`
	ClaimedValue    *float64 `json:"claimed_value"`
	Difference      *float64 `json:"difference"`
	Explanation     string   `json:"explanation"`
	MisleadingFlags []string `json:"misleading_flags"`
	Confidence      string   `json:"confidence"`
	DataSources     []string `json:"data_sources_used"`
	Evidence        []string `json:"evidence"`
}

// Verify runs the retry loop for one claim against the given evidence
// context. The returned verdict is always one of the five labels.
func (g *GenerativeVerifier) Verify(ctx context.Context, claim model.Claim, evidence string) model.Verdict {
	prompt := buildVerificationPrompt(claim, evidence)
	attempts := g.schedule.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		g.logger.Info("generative verification attempt",
			"claim_id", claim.ID, "attempt", attempt+1, "provider", g.provider.Name())

		verdict, err := g.attempt(ctx, claim, prompt)
		if err == nil {
			return *verdict
		}
		lastErr = err

		var wait time.Duration
		switch {
		case attempt == attempts-1:
			// Extended cooldown after the final failure before giving up,
			// so an immediate follow-up claim starts with a reset window.
			wait = g.schedule.FinalCooldown
		case llm.IsRateLimit(err):
			wait = g.schedule.RateLimitDelay(attempt)
			g.logger.Warn("rate limit hit", "claim_id", claim.ID, "wait", wait)
		default:
			wait = g.schedule.TransientWait
			g.logger.Warn("generative attempt failed", "claim_id", claim.ID, "error", err)
		}
		if err := g.sleep(ctx, wait); err != nil {
			lastErr = fmt.Errorf("%w (after: %v)", err, lastErr)
			break
		}
	}

	g.logger.Error("generative verification exhausted",
		"claim_id", claim.ID, "attempts", attempts, "error", lastErr)
	return model.Verdict{
		ClaimID:      claim.ID,
		Label:        model.LabelUnverifiable,
		ClaimedValue: claim.Value,
		Explanation:  fmt.Sprintf("Generative verification failed after %d attempts. Last error: %v", attempts, lastErr),
		Confidence:   0,
	}
}

func (g *GenerativeVerifier) attempt(ctx context.Context, claim model.Claim, prompt string) (*model.Verdict, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	return parseVerdict(claim, resp.Text)
}

// parseVerdict extracts the JSON verdict from model output, tolerating
// markdown fencing and surrounding prose. Any parse or label failure is a
// retryable error, never a verdict.
func parseVerdict(claim model.Claim, content string) (*model.Verdict, error) {
	var resp generativeResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &resp); err != nil {
		return nil, fmt.Errorf("malformed model output: %w", err)
	}

	label, err := model.ParseLabel(resp.Verdict)
	if err != nil {
		// Out-of-set labels are a contract violation, not a new label.
		return nil, fmt.Errorf("model output violates verdict contract: %w", err)
	}

	claimed := claim.Value
	if resp.ClaimedValue != nil {
		claimed = *resp.ClaimedValue
	}
	confidence := 0.5
	if resp.Confidence == "high" {
		confidence = 1.0
	}

	return &model.Verdict{
		ClaimID:         claim.ID,
		Label:           label,
		ActualValue:     resp.ActualValue,
		ClaimedValue:    claimed,
		Difference:      resp.Difference,
		Explanation:     resp.Explanation,
		MisleadingFlags: resp.MisleadingFlags,
		Confidence:      confidence,
		DataSources:     resp.DataSources,
		Evidence:        resp.Evidence,
	}, nil
}

// extractJSON strips markdown fences, then falls back to the outermost
// brace span for responses wrapped in prose.
func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return trimmed
}

func buildVerificationPrompt(claim model.Claim, evidence string) string {
	hedging := "none"
	if claim.Hedged {
		hedging = "present"
	}
	return fmt.Sprintf(`You are a senior financial analyst verifying earnings call claims against official financial data.

CLAIM TO VERIFY:
- Text: %q
- Speaker: %s
- Company: %s, Q%d %d
- Metric: %s
- Claimed Value: %v %s
- Period: %s
- GAAP: %t
- Hedging Language: %s

OFFICIAL FINANCIAL DATA AND CONTEXT:
%s

INSTRUCTIONS: Follow these steps exactly.

STEP 1 - IDENTIFY: What exact financial metric is being claimed? Map it to the official data fields.
STEP 2 - RETRIEVE: Find exact numbers from official data for all relevant periods. Quote them.
STEP 3 - COMPUTE: Calculate the actual value. Show your math.
STEP 4 - COMPARE: Compare claimed vs actual. State the difference.
STEP 5 - TOLERANCE: Apply tolerance (hedging: ±2%%/±5%%; precise: ±0.5%%/±1%%).
STEP 6 - MISLEADING CHECK: Evaluate framing:
  - Cherry-picking (positive highlighted, negative hidden)?
  - GAAP vs Non-GAAP divergence?
  - Period-shopping (YoY because QoQ looks bad)?
  - Base-effect (huge %% off tiny base)?
  - Omission (acquisition growth as organic)?
STEP 7 - VERDICT: VERIFIED | APPROXIMATELY_TRUE | FALSE | MISLEADING | UNVERIFIABLE
STEP 8 - EVIDENCE: List exact strings/numbers from the context that support your verdict.

Respond with ONLY valid JSON:
{
  "verdict": "...",
  "actual_value": 123.45,
  "claimed_value": 123.45,
  "difference": 0.0,
  "explanation": "Step-by-step reasoning...",
  "misleading_flags": [],
  "confidence": "high|medium|low",
  "data_sources_used": [],
  "evidence": ["exact quote 1", "exact quote 2"]
}`,
		claim.RawText, claim.Speaker, claim.Ticker, claim.Quarter, claim.Year,
		claim.Metric, claim.Value, claim.Unit, claim.Period, claim.IsGAAP, hedging,
		evidence)
}

// sleepCtx waits for d or until the context is cancelled, whichever comes
// first, so batch aborts never block through a backoff.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
