// Package verify implements the tiered claim-verification engine:
// deterministic numeric checks, misleading-framing detection, the
// generative fallback tier, and the per-claim orchestration state machine.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pkozlov/claimcheck/internal/metrics"
	"github.com/pkozlov/claimcheck/internal/model"
)

// errAbstain signals the orchestrator to fall back to the generative tier.
// Ordinary control flow, never surfaced to callers.
var errAbstain = errors.New("deterministic verification abstained")

// deterministicSource tags verdicts produced from stored facts alone.
const deterministicSource = "fact-store (deterministic)"

// DeterministicVerifier checks claims against resolved facts under the
// tolerance policy. It abstains whenever a required value is unresolvable;
// when it does produce a verdict, that verdict is authoritative.
type DeterministicVerifier struct {
	resolver *metrics.Resolver
	tol      model.ToleranceConfig
}

// NewDeterministicVerifier creates the deterministic tier.
func NewDeterministicVerifier(resolver *metrics.Resolver, tol model.ToleranceConfig) *DeterministicVerifier {
	return &DeterministicVerifier{resolver: resolver, tol: tol}
}

// Verify checks one claim. Returns errAbstain when the current or base
// value is unresolvable, or when a relative-change base is exactly zero
// (indeterminate growth, never silently 0).
func (d *DeterministicVerifier) Verify(ctx context.Context, claim model.Claim) (*model.Verdict, error) {
	metric := strings.ToLower(claim.Metric)

	current, err := d.resolver.Resolve(ctx, claim.Ticker, metric, claim.Year, claim.Quarter)
	if err != nil {
		if errors.Is(err, metrics.ErrUnresolved) {
			return nil, fmt.Errorf("current value for %s: %w", metric, errAbstain)
		}
		return nil, err
	}

	if claim.Period.IsRelative() || strings.Contains(claim.Unit, "%") {
		return d.verifyRelative(ctx, claim, metric, current)
	}
	return d.verifyAbsolute(claim, metric, current), nil
}

// verifyRelative handles growth claims: resolve the base period, compute
// the actual change, and compare against the normalized claimed magnitude.
func (d *DeterministicVerifier) verifyRelative(ctx context.Context, claim model.Claim, metric string, current float64) (*model.Verdict, error) {
	baseYear, baseQuarter := relativeBase(claim)

	base, err := d.resolver.Resolve(ctx, claim.Ticker, metric, baseYear, baseQuarter)
	if err != nil {
		if errors.Is(err, metrics.ErrUnresolved) {
			return nil, fmt.Errorf("base value for %s in %dQ%d: %w", metric, baseYear, baseQuarter, errAbstain)
		}
		return nil, err
	}
	if base == 0 {
		// Indeterminate: growth off a zero base has no defined magnitude.
		return nil, fmt.Errorf("zero base value for %s in %dQ%d: %w", metric, baseYear, baseQuarter, errAbstain)
	}

	actual := (current - base) / base
	claimed := normalizeClaimed(claim)
	diff := math.Abs(actual - claimed)

	threshold := d.tol.RelativePrecise
	if claim.Hedged {
		threshold = d.tol.RelativeHedged
	}
	// Hedging widens the approximate band only; the exact-match bound stays
	// at one-fifth of the precise threshold.
	label := classify(diff, d.tol.RelativePrecise/5, threshold)

	v := buildVerdict(claim, actual, diff, label)
	v.Explanation = fmt.Sprintf("Calculated %s %s growth: %.2f%%. Claimed: %.2f%%.",
		claim.Period, metric, actual*100, claimed*100)
	v.Evidence = []string{
		fmt.Sprintf("%s (%dQ%d): %v", metric, claim.Year, claim.Quarter, current),
		fmt.Sprintf("%s (%dQ%d): %v", metric, baseYear, baseQuarter, base),
	}
	return v, nil
}

// verifyAbsolute handles level claims: EPS gets a fixed dollar band, other
// metrics a band proportional to the actual value.
func (d *DeterministicVerifier) verifyAbsolute(claim model.Claim, metric string, actual float64) *model.Verdict {
	diff := math.Abs(actual - claim.Value)

	var label model.Label
	var explanation string
	if metric == "eps" {
		label = classify(diff, d.tol.EPSAbsolute/5, d.tol.EPSAbsolute)
		explanation = fmt.Sprintf("Actual EPS: $%.2f. Claimed: $%.2f.", actual, claim.Value)
	} else {
		threshold := d.tol.AbsolutePrecise
		if claim.Hedged {
			threshold = d.tol.AbsoluteHedged
		}
		scale := math.Abs(actual)
		label = classify(diff, d.tol.AbsolutePrecise/5*scale, threshold*scale)
		explanation = fmt.Sprintf("Actual %s: %v. Claimed: %v.", metric, actual, claim.Value)
	}

	v := buildVerdict(claim, actual, diff, label)
	v.Explanation = explanation
	v.Evidence = []string{fmt.Sprintf("%s (%dQ%d): %v", metric, claim.Year, claim.Quarter, actual)}
	return v
}

// relativeBase returns the comparison period: same quarter prior year for
// YoY, immediately preceding quarter otherwise (covers QoQ and %-unit
// claims with no stated period), Q1 wrapping to Q4 of the prior year.
func relativeBase(claim model.Claim) (year, quarter int) {
	if claim.Period == model.PeriodYoY {
		return claim.Year - 1, claim.Quarter
	}
	if claim.Quarter == 1 {
		return claim.Year - 1, 4
	}
	return claim.Year, claim.Quarter - 1
}

// normalizeClaimed maps the claimed magnitude to a fraction. Values stated
// in percent units, or with magnitude above 1, are taken as percentage
// points. Whole-number percentages between 1 and 100 remain ambiguous at
// extraction time; this heuristic resolves them as percentage points.
func normalizeClaimed(claim model.Claim) float64 {
	if strings.Contains(claim.Unit, "%") || math.Abs(claim.Value) > 1.0 {
		return claim.Value / 100
	}
	return claim.Value
}

// classify applies the verdict bands: within the exact bound VERIFIED,
// within the tolerance APPROXIMATELY_TRUE, else FALSE.
func classify(diff, exactBound, threshold float64) model.Label {
	switch {
	case diff <= exactBound:
		return model.LabelVerified
	case diff <= threshold:
		return model.LabelApproxTrue
	default:
		return model.LabelFalse
	}
}

func buildVerdict(claim model.Claim, actual, diff float64, label model.Label) *model.Verdict {
	return &model.Verdict{
		ClaimID:      claim.ID,
		Label:        label,
		ActualValue:  &actual,
		ClaimedValue: claim.Value,
		Difference:   &diff,
		Confidence:   1.0, // Authoritative when the data exists
		DataSources:  []string{deterministicSource},
	}
}
