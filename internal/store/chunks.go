package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkozlov/claimcheck/internal/model"
)

// InsertChunks appends indexed chunks. Chunk IDs are caller-assigned;
// duplicates are rejected since the index is append-only.
func (s *Store) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, ticker, year, quarter, chunk_type, metric_type, source_type,
				is_gaap, text, sequence_index, is_analyst_question, dense_embedding, sparse_embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range chunks {
			dense, err := json.Marshal(c.Dense)
			if err != nil {
				return fmt.Errorf("encode dense embedding: %w", err)
			}
			sparse, err := json.Marshal(c.Sparse)
			if err != nil {
				return fmt.Errorf("encode sparse embedding: %w", err)
			}
			var gaap any
			if c.IsGAAP != nil {
				gaap = *c.IsGAAP
			}
			if _, err := stmt.ExecContext(ctx,
				c.ID, c.Ticker, c.Year, c.Quarter, string(c.ChunkType), c.MetricType, c.SourceType,
				gaap, c.Text, c.SequenceIndex, c.IsAnalystQuestion, string(dense), string(sparse),
			); err != nil {
				return fmt.Errorf("insert chunk %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// ChunkFilter narrows a chunk scan by metadata. Nil fields match everything.
type ChunkFilter struct {
	Ticker  string
	Year    *int
	Quarter *int
}

// ChunksMatching returns all chunks passing the metadata filter, embeddings
// included. The hybrid retriever ranks these in memory.
func (s *Store) ChunksMatching(ctx context.Context, f ChunkFilter) ([]model.Chunk, error) {
	query := `
		SELECT id, ticker, year, quarter, chunk_type, metric_type, source_type,
			is_gaap, text, sequence_index, is_analyst_question, dense_embedding, sparse_embedding
		FROM chunks WHERE 1=1`
	var args []any
	if f.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, f.Ticker)
	}
	if f.Year != nil {
		query += " AND year = ?"
		args = append(args, *f.Year)
	}
	if f.Quarter != nil {
		query += " AND quarter = ?"
		args = append(args, *f.Quarter)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var chunkType, dense, sparse string
		var gaap sql.NullBool
		if err := rows.Scan(&c.ID, &c.Ticker, &c.Year, &c.Quarter, &chunkType, &c.MetricType,
			&c.SourceType, &gaap, &c.Text, &c.SequenceIndex, &c.IsAnalystQuestion, &dense, &sparse,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.ChunkType = model.ChunkType(chunkType)
		if gaap.Valid {
			v := gaap.Bool
			c.IsGAAP = &v
		}
		if err := json.Unmarshal([]byte(dense), &c.Dense); err != nil {
			return nil, fmt.Errorf("decode dense embedding for %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(sparse), &c.Sparse); err != nil {
			return nil, fmt.Errorf("decode sparse embedding for %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// HasChunks reports whether any chunks are indexed for the ticker.
func (s *Store) HasChunks(ctx context.Context, ticker string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE ticker = ?`, ticker).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count chunks: %w", err)
	}
	return n > 0, nil
}
