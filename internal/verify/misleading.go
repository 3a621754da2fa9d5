package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkozlov/claimcheck/internal/metrics"
	"github.com/pkozlov/claimcheck/internal/model"
)

// MisleadingDetector applies cross-metric and cross-period divergence
// heuristics to the metric a claim highlights. Each heuristic is evaluated
// independently; all matching flags are attached. Resolution gaps simply
// skip a heuristic: the detector is best-effort and never blocks a verdict.
type MisleadingDetector struct {
	resolver *metrics.Resolver
}

// NewMisleadingDetector creates the detector.
func NewMisleadingDetector(resolver *metrics.Resolver) *MisleadingDetector {
	return &MisleadingDetector{resolver: resolver}
}

// Detect returns the misleading-framing flags for a highlighted metric in
// the given period.
func (m *MisleadingDetector) Detect(ctx context.Context, ticker string, year, quarter int, metric string) []string {
	metric = strings.ToLower(metric)
	var flags []string

	// Revenue-vs-profit divergence: growth headline hiding a profit decline.
	if metric == "revenue" {
		revCurr, ok1 := m.resolve(ctx, ticker, "revenue", year, quarter)
		revPrev, ok2 := m.resolve(ctx, ticker, "revenue", year-1, quarter)
		niCurr, ok3 := m.resolve(ctx, ticker, "net_income", year, quarter)
		niPrev, ok4 := m.resolve(ctx, ticker, "net_income", year-1, quarter)
		if ok1 && ok2 && ok3 && ok4 {
			if growth(revCurr, revPrev) > 0 && growth(niCurr, niPrev) < 0 {
				flags = append(flags, "Revenue is growing YoY, but net income is declining.")
			}
		}
	}

	// Period-shopping: citing YoY growth while the metric is falling QoQ.
	prevYear, prevQuarter := year, quarter-1
	if prevQuarter == 0 {
		prevYear, prevQuarter = year-1, 4
	}
	curr, ok1 := m.resolve(ctx, ticker, metric, year, quarter)
	yoyPrev, ok2 := m.resolve(ctx, ticker, metric, year-1, quarter)
	qoqPrev, ok3 := m.resolve(ctx, ticker, metric, prevYear, prevQuarter)
	if ok1 && ok2 && ok3 {
		if growth(curr, yoyPrev) > 0 && growth(curr, qoqPrev) < -0.05 {
			flags = append(flags, fmt.Sprintf(
				"%s shows YoY growth, but has declined significantly (>5%%) QoQ.", capitalize(metric)))
		}
	}

	return flags
}

// Apply attaches new flags to a verdict and reclassifies an otherwise
// positive label to MISLEADING.
func (m *MisleadingDetector) Apply(v *model.Verdict, flags []string) {
	var added []string
	for _, f := range flags {
		if !containsString(v.MisleadingFlags, f) {
			v.MisleadingFlags = append(v.MisleadingFlags, f)
			added = append(added, f)
		}
	}
	if len(added) == 0 {
		return
	}
	if v.Label == model.LabelVerified || v.Label == model.LabelApproxTrue {
		v.Label = model.LabelMisleading
		v.Explanation = strings.TrimSpace(v.Explanation + " " + strings.Join(added, " "))
	}
}

func (m *MisleadingDetector) resolve(ctx context.Context, ticker, metric string, year, quarter int) (float64, bool) {
	v, err := m.resolver.Resolve(ctx, ticker, metric, year, quarter)
	if err != nil {
		return 0, false
	}
	return v, true
}

// growth returns the fractional change from prev, 0 when prev is 0 (the
// heuristics compare signs, so an indeterminate base just never fires).
func growth(curr, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
