package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pkozlov/claimcheck/internal/metrics"
	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// stubFacts keys values by "ticker|metric|year|quarter"
type stubFacts struct {
	values map[string]float64
}

func stubKey(ticker, metric string, year, quarter int) string {
	return fmt.Sprintf("%s|%s|%d|%d", ticker, metric, year, quarter)
}

func (s *stubFacts) GetFact(ctx context.Context, ticker, metric string, year, quarter int) (*model.Fact, error) {
	if v, ok := s.values[stubKey(ticker, metric, year, quarter)]; ok {
		return &model.Fact{Ticker: ticker, Metric: metric, Year: year, Quarter: quarter, Value: v}, nil
	}
	return nil, store.ErrNoFact
}

func newTestVerifier(values map[string]float64) *DeterministicVerifier {
	resolver := metrics.NewResolver(&stubFacts{values: values})
	return NewDeterministicVerifier(resolver, model.DefaultConfig().Tolerance)
}

func growthClaim(value float64, hedged bool) model.Claim {
	return model.Claim{
		ID:      "c1",
		Ticker:  "AAPL",
		Year:    2024,
		Quarter: 4,
		Metric:  "revenue",
		Value:   value,
		Unit:    "%",
		Period:  model.PeriodYoY,
		Hedged:  hedged,
		RawText: "Revenue grew year-over-year",
	}
}

func TestDeterministic_RelativeVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		claimed float64
		hedged  bool
		want    model.Label
	}{
		{"exact growth verified", 115_000_000, 15, false, model.LabelVerified},
		{"hedged near miss approximately true", 114_800_000, 15, true, model.LabelApproxTrue},
		{"precise large miss false", 110_200_000, 15, false, model.LabelFalse},
		{"precise near miss approximately true", 114_800_000, 15, false, model.LabelApproxTrue},
		{"hedged large miss false", 112_000_000, 15, true, model.LabelFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestVerifier(map[string]float64{
				stubKey("AAPL", "revenue", 2024, 4): tt.current,
				stubKey("AAPL", "revenue", 2023, 4): 100_000_000,
			})

			v, err := d.Verify(context.Background(), growthClaim(tt.claimed, tt.hedged))
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if v.Label != tt.want {
				t.Errorf("expected %s, got %s (diff %v)", tt.want, v.Label, *v.Difference)
			}
			if v.Confidence != 1.0 {
				t.Errorf("deterministic verdicts carry confidence 1.0, got %v", v.Confidence)
			}
			if len(v.Evidence) != 2 {
				t.Errorf("expected current and base evidence, got %v", v.Evidence)
			}
		})
	}
}

func TestDeterministic_FractionalClaimedValue(t *testing.T) {
	// Claimed as 0.15 without a percent magnitude above 1: taken as fraction.
	d := newTestVerifier(map[string]float64{
		stubKey("AAPL", "revenue", 2024, 4): 115_000_000,
		stubKey("AAPL", "revenue", 2023, 4): 100_000_000,
	})

	claim := growthClaim(0.15, false)
	claim.Unit = ""
	v, err := d.Verify(context.Background(), claim)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v.Label != model.LabelVerified {
		t.Errorf("expected VERIFIED for 0.15 fraction, got %s", v.Label)
	}
}

func TestDeterministic_ZeroBaseAbstains(t *testing.T) {
	d := newTestVerifier(map[string]float64{
		stubKey("AAPL", "revenue", 2024, 4): 115_000_000,
		stubKey("AAPL", "revenue", 2023, 4): 0,
	})

	_, err := d.Verify(context.Background(), growthClaim(15, false))
	if !errors.Is(err, errAbstain) {
		t.Errorf("expected abstain on zero base, got %v", err)
	}
}

func TestDeterministic_MissingFactsAbstain(t *testing.T) {
	t.Run("missing current", func(t *testing.T) {
		d := newTestVerifier(map[string]float64{})
		_, err := d.Verify(context.Background(), growthClaim(15, false))
		if !errors.Is(err, errAbstain) {
			t.Errorf("expected abstain, got %v", err)
		}
	})

	t.Run("missing base", func(t *testing.T) {
		d := newTestVerifier(map[string]float64{
			stubKey("AAPL", "revenue", 2024, 4): 115_000_000,
		})
		_, err := d.Verify(context.Background(), growthClaim(15, false))
		if !errors.Is(err, errAbstain) {
			t.Errorf("expected abstain, got %v", err)
		}
	})
}

func TestDeterministic_QoQBase(t *testing.T) {
	// QoQ compares against the immediately preceding quarter, and Q1 wraps
	// to Q4 of the prior year.
	d := newTestVerifier(map[string]float64{
		stubKey("AAPL", "revenue", 2024, 1): 105_000_000,
		stubKey("AAPL", "revenue", 2023, 4): 100_000_000,
	})

	claim := growthClaim(5, false)
	claim.Year, claim.Quarter = 2024, 1
	claim.Period = model.PeriodQoQ

	v, err := d.Verify(context.Background(), claim)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v.Label != model.LabelVerified {
		t.Errorf("expected VERIFIED, got %s", v.Label)
	}
}

func TestDeterministic_EPSAbsolute(t *testing.T) {
	tests := []struct {
		name    string
		claimed float64
		want    model.Label
	}{
		{"exact eps verified", 1.46, model.LabelVerified},
		{"penny off approximately true", 1.47, model.LabelApproxTrue},
		{"four cents off false", 1.50, model.LabelFalse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestVerifier(map[string]float64{
				stubKey("AAPL", "EarningsPerShareDiluted", 2024, 4): 1.46,
			})

			claim := model.Claim{
				ID:      "c2",
				Ticker:  "AAPL",
				Year:    2024,
				Quarter: 4,
				Metric:  "eps",
				Value:   tt.claimed,
				Unit:    "USD",
				Period:  model.PeriodQuarterly,
			}
			v, err := d.Verify(context.Background(), claim)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if v.Label != tt.want {
				t.Errorf("expected %s, got %s", tt.want, v.Label)
			}
		})
	}
}

func TestDeterministic_AbsoluteLevelClaim(t *testing.T) {
	// Non-EPS level claims use a band proportional to the actual value:
	// 0.5% off is inside the 1% precise band but outside the exact bound.
	d := newTestVerifier(map[string]float64{
		stubKey("AAPL", "revenue", 2024, 4): 100e9,
	})

	claim := model.Claim{
		ID:      "c3",
		Ticker:  "AAPL",
		Year:    2024,
		Quarter: 4,
		Metric:  "revenue",
		Value:   100.5e9,
		Unit:    "USD",
		Period:  model.PeriodQuarterly,
	}
	v, err := d.Verify(context.Background(), claim)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if v.Label != model.LabelApproxTrue {
		t.Errorf("expected APPROXIMATELY_TRUE, got %s", v.Label)
	}
}
