// Package metrics resolves canonical metric names to authoritative values,
// following alias chains into raw filing tags and computing derived metrics
// recursively from their base tags.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
)

// ErrUnresolved means no stored fact, alias, or formula can produce the
// metric for the requested period. A normal outcome, not a failure.
var ErrUnresolved = errors.New("metric unresolved")

// FactSource is the read side of the fact store.
type FactSource interface {
	GetFact(ctx context.Context, ticker, metric string, year, quarter int) (*model.Fact, error)
}

// aliases maps canonical metric names to the filing tags that may carry
// them, first hit wins.
var aliases = map[string][]string{
	"revenue":            {"Revenues", "RevenueFromContractWithCustomerExcludingAssessedTax", "SalesRevenueNet"},
	"net_income":         {"NetIncomeLoss", "ProfitLoss"},
	"eps":                {"EarningsPerShareDiluted", "EarningsPerShareBasic"},
	"gross_profit":       {"GrossProfit"},
	"operating_income":   {"OperatingIncomeLoss"},
	"operating_cashflow": {"NetCashProvidedByUsedInOperatingActivities"},
	"capex":              {"PaymentsToAcquirePropertyPlantAndEquipment"},
}

// formula computes a derived metric from already-resolved base metrics.
type formula struct {
	bases   []string
	combine func(vals map[string]float64) (float64, error)
}

// Derived formulas reference base tags only, so recursion cannot loop; the
// visited set still bounds depth explicitly.
var derived = map[string]formula{
	"free_cash_flow": {
		bases: []string{"operating_cashflow", "capex"},
		combine: func(vals map[string]float64) (float64, error) {
			return vals["operating_cashflow"] - vals["capex"], nil
		},
	},
	"operating_margin": {
		bases: []string{"operating_income", "revenue"},
		combine: func(vals map[string]float64) (float64, error) {
			if vals["revenue"] == 0 {
				return 0, fmt.Errorf("operating_margin: zero revenue: %w", ErrUnresolved)
			}
			return vals["operating_income"] / vals["revenue"], nil
		},
	},
}

const cacheTTL = 10 * time.Minute

// Resolver resolves metric values with a short-lived memoization cache so a
// batch run does not re-query the store for every claim against the same
// period.
type Resolver struct {
	facts FactSource
	cache *gocache.Cache
}

// NewResolver creates a resolver backed by the given fact source.
func NewResolver(facts FactSource) *Resolver {
	return &Resolver{
		facts: facts,
		cache: gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Resolve returns the value for (ticker, metric, year, quarter). Resolution
// order: direct fact under the canonical name, then alias tags, then derived
// formulas. Returns ErrUnresolved when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, ticker, metric string, year, quarter int) (float64, error) {
	visited := make(map[string]bool)
	return r.resolve(ctx, ticker, metric, year, quarter, visited)
}

func (r *Resolver) resolve(ctx context.Context, ticker, metric string, year, quarter int, visited map[string]bool) (float64, error) {
	if visited[metric] {
		return 0, fmt.Errorf("cyclic metric reference %q: %w", metric, ErrUnresolved)
	}
	visited[metric] = true

	key := fmt.Sprintf("%s|%s|%d|%d", ticker, metric, year, quarter)
	if v, found := r.cache.Get(key); found {
		return v.(float64), nil
	}

	// Direct fact under the canonical name.
	if v, err := r.lookup(ctx, ticker, metric, year, quarter); err == nil {
		r.cache.SetDefault(key, v)
		return v, nil
	} else if !errors.Is(err, store.ErrNoFact) {
		return 0, err
	}

	// Alias tags, first hit wins.
	for _, tag := range aliases[metric] {
		v, err := r.lookup(ctx, ticker, tag, year, quarter)
		if err == nil {
			r.cache.SetDefault(key, v)
			return v, nil
		}
		if !errors.Is(err, store.ErrNoFact) {
			return 0, err
		}
	}

	// Derived formulas over base metrics.
	if f, ok := derived[metric]; ok {
		vals := make(map[string]float64, len(f.bases))
		for _, base := range f.bases {
			v, err := r.resolve(ctx, ticker, base, year, quarter, visited)
			if err != nil {
				return 0, err
			}
			vals[base] = v
		}
		v, err := f.combine(vals)
		if err != nil {
			return 0, err
		}
		r.cache.SetDefault(key, v)
		return v, nil
	}

	return 0, fmt.Errorf("%s %s %dQ%d: %w", ticker, metric, year, quarter, ErrUnresolved)
}

func (r *Resolver) lookup(ctx context.Context, ticker, tag string, year, quarter int) (float64, error) {
	f, err := r.facts.GetFact(ctx, ticker, tag, year, quarter)
	if err != nil {
		return 0, err
	}
	return f.Value, nil
}
