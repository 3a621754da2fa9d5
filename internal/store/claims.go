package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
)

// ClaimWithVerdict pairs a claim with its verdict, if one exists.
type ClaimWithVerdict struct {
	Claim   model.Claim
	Verdict *model.Verdict
}

// InsertClaims stores claims, skipping IDs that already exist
// (claims are immutable once extracted).
func (s *Store) InsertClaims(ctx context.Context, claims []model.Claim) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO claims (id, ticker, year, quarter, speaker, metric, value, unit, period,
				is_gaap, is_forward_looking, hedged, raw_text, extraction_method, confidence, context)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range claims {
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.Ticker, c.Year, c.Quarter, c.Speaker, c.Metric, c.Value, c.Unit, string(c.Period),
				c.IsGAAP, c.IsForwardLooking, c.Hedged, c.RawText, c.ExtractionMethod, c.Confidence, c.Context,
			); err != nil {
				return fmt.Errorf("insert claim %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

const claimVerdictSelect = `
	SELECT c.id, c.ticker, c.year, c.quarter, c.speaker, c.metric, c.value, c.unit, c.period,
		c.is_gaap, c.is_forward_looking, c.hedged, c.raw_text, c.extraction_method, c.confidence, c.context,
		v.claim_id, v.label, v.actual_value, v.claimed_value, v.difference, v.explanation,
		v.misleading_flags, v.confidence, v.data_sources, v.evidence
	FROM claims c
	LEFT JOIN verdicts v ON v.claim_id = c.id
	WHERE c.ticker = ?`

// ClaimsForQuarter returns claims (with verdicts if present) for one period.
func (s *Store) ClaimsForQuarter(ctx context.Context, ticker string, year, quarter int) ([]ClaimWithVerdict, error) {
	return s.queryClaims(ctx, claimVerdictSelect+` AND c.year = ? AND c.quarter = ?`, ticker, year, quarter)
}

// ClaimsByLabel returns claims whose verdict carries the given label.
func (s *Store) ClaimsByLabel(ctx context.Context, ticker string, label model.Label) ([]ClaimWithVerdict, error) {
	return s.queryClaims(ctx, claimVerdictSelect+` AND v.label = ?`, ticker, string(label))
}

// ClaimsNotLabel returns up to limit claims whose verdict is absent or
// differs from label; used as contextual samples around a verdict filter.
func (s *Store) ClaimsNotLabel(ctx context.Context, ticker string, label model.Label, limit int) ([]ClaimWithVerdict, error) {
	return s.queryClaims(ctx,
		claimVerdictSelect+` AND (v.label IS NULL OR v.label != ?) LIMIT ?`,
		ticker, string(label), limit)
}

// ClaimsByQuarters returns claims from any of the named (year, quarter) pairs.
func (s *Store) ClaimsByQuarters(ctx context.Context, ticker string, quarters [][2]int) ([]ClaimWithVerdict, error) {
	if len(quarters) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(quarters))
	args := []any{ticker}
	for _, q := range quarters {
		conds = append(conds, "(c.year = ? AND c.quarter = ?)")
		args = append(args, q[0], q[1])
	}
	return s.queryClaims(ctx, claimVerdictSelect+` AND (`+strings.Join(conds, " OR ")+`)`, args...)
}

// ClaimsByMetricPattern returns claims whose metric field matches any of
// the SQL LIKE patterns.
func (s *Store) ClaimsByMetricPattern(ctx context.Context, ticker string, patterns []string) ([]ClaimWithVerdict, error) {
	var out []ClaimWithVerdict
	for _, pat := range patterns {
		rows, err := s.queryClaims(ctx, claimVerdictSelect+` AND c.metric LIKE ?`, ticker, pat)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// ClaimsByKeyword returns claims whose raw text, metric, or verdict
// explanation contains the keyword (case-insensitive via LIKE).
func (s *Store) ClaimsByKeyword(ctx context.Context, ticker, keyword string) ([]ClaimWithVerdict, error) {
	pat := "%" + keyword + "%"
	return s.queryClaims(ctx,
		claimVerdictSelect+` AND (c.raw_text LIKE ? OR c.metric LIKE ? OR v.explanation LIKE ?)`,
		ticker, pat, pat, pat)
}

// RecentClaims returns up to limit claims ordered most-recent period first.
func (s *Store) RecentClaims(ctx context.Context, ticker string, limit int) ([]ClaimWithVerdict, error) {
	return s.queryClaims(ctx,
		claimVerdictSelect+` ORDER BY c.year DESC, c.quarter DESC LIMIT ?`,
		ticker, limit)
}

func (s *Store) queryClaims(ctx context.Context, query string, args ...any) ([]ClaimWithVerdict, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []ClaimWithVerdict
	for rows.Next() {
		var c model.Claim
		var period string
		var vClaimID, vLabel, vExplanation, vFlags, vSources, vEvidence sql.NullString
		var vActual, vClaimed, vDiff, vConfidence sql.NullFloat64

		if err := rows.Scan(
			&c.ID, &c.Ticker, &c.Year, &c.Quarter, &c.Speaker, &c.Metric, &c.Value, &c.Unit, &period,
			&c.IsGAAP, &c.IsForwardLooking, &c.Hedged, &c.RawText, &c.ExtractionMethod, &c.Confidence, &c.Context,
			&vClaimID, &vLabel, &vActual, &vClaimed, &vDiff, &vExplanation,
			&vFlags, &vConfidence, &vSources, &vEvidence,
		); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.Period = model.PeriodType(period)

		cv := ClaimWithVerdict{Claim: c}
		if vClaimID.Valid {
			v := model.Verdict{
				ClaimID:         vClaimID.String,
				Label:           model.Label(vLabel.String),
				ClaimedValue:    vClaimed.Float64,
				Explanation:     vExplanation.String,
				MisleadingFlags: decodeStrings(vFlags.String),
				Confidence:      vConfidence.Float64,
				DataSources:     decodeStrings(vSources.String),
				Evidence:        decodeStrings(vEvidence.String),
			}
			if vActual.Valid {
				v.ActualValue = &vActual.Float64
			}
			if vDiff.Valid {
				v.Difference = &vDiff.Float64
			}
			cv.Verdict = &v
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
