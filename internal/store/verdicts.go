package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
)

// UpsertVerdict writes the verdict for its claim, replacing any prior one.
// The claim_id primary key enforces at-most-one-verdict; the write is a
// single statement, so a verdict is persisted completely or not at all.
func (s *Store) UpsertVerdict(ctx context.Context, v model.Verdict) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts (claim_id, label, actual_value, claimed_value, difference,
			explanation, misleading_flags, confidence, data_sources, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (claim_id) DO UPDATE SET
			label = excluded.label,
			actual_value = excluded.actual_value,
			claimed_value = excluded.claimed_value,
			difference = excluded.difference,
			explanation = excluded.explanation,
			misleading_flags = excluded.misleading_flags,
			confidence = excluded.confidence,
			data_sources = excluded.data_sources,
			evidence = excluded.evidence,
			created_at = CURRENT_TIMESTAMP`,
		v.ClaimID, string(v.Label), nullFloat(v.ActualValue), v.ClaimedValue, nullFloat(v.Difference),
		v.Explanation, encodeStrings(v.MisleadingFlags), v.Confidence,
		encodeStrings(v.DataSources), encodeStrings(v.Evidence))
	if err != nil {
		return fmt.Errorf("upsert verdict for %s: %w", v.ClaimID, err)
	}
	return nil
}

// DeleteVerdicts removes verdicts for the given claim IDs. Used by explicit
// re-runs, which must clear prior verdicts before re-verifying.
func (s *Store) DeleteVerdicts(ctx context.Context, claimIDs []string) error {
	if len(claimIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(claimIDs)), ",")
	args := make([]any, len(claimIDs))
	for i, id := range claimIDs {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM verdicts WHERE claim_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete verdicts: %w", err)
	}
	return nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func encodeStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
