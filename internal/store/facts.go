package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkozlov/claimcheck/internal/model"
)

// ErrNoFact means no authoritative figure exists for the requested key.
// This is a legitimate outcome, not a failure.
var ErrNoFact = errors.New("no fact found")

// InsertFacts stores facts, silently skipping natural-key duplicates
// (facts are immutable once ingested). Returns the number inserted.
func (s *Store) InsertFacts(ctx context.Context, facts []model.Fact) (int, error) {
	inserted := 0
	err := s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO facts (ticker, metric, year, quarter, value, unit, source, is_gaap, filing_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (ticker, metric, year, quarter, is_gaap) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range facts {
			res, err := stmt.ExecContext(ctx,
				f.Ticker, f.Metric, f.Year, f.Quarter, f.Value, f.Unit, f.Source, f.IsGAAP, f.FilingDate)
			if err != nil {
				return fmt.Errorf("insert fact %s/%s %dQ%d: %w", f.Ticker, f.Metric, f.Year, f.Quarter, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

// GetFact returns the stored figure for (ticker, metric, year, quarter),
// or ErrNoFact. GAAP and non-GAAP rows share the key space; the GAAP row
// wins when both exist.
func (s *Store) GetFact(ctx context.Context, ticker, metric string, year, quarter int) (*model.Fact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticker, metric, year, quarter, value, unit, source, is_gaap
		FROM facts
		WHERE ticker = ? AND metric = ? AND year = ? AND quarter = ?
		ORDER BY is_gaap DESC
		LIMIT 1`,
		ticker, metric, year, quarter)

	var f model.Fact
	err := row.Scan(&f.Ticker, &f.Metric, &f.Year, &f.Quarter, &f.Value, &f.Unit, &f.Source, &f.IsGAAP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFact
	}
	if err != nil {
		return nil, fmt.Errorf("get fact: %w", err)
	}
	return &f, nil
}
