package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/retrieval"
	"github.com/pkozlov/claimcheck/internal/store"
)

var (
	loadTimeout time.Duration
	loadNoIndex bool
)

// bundle is the ingest file format: facts, extracted claims, and transcript
// segments for one or more companies.
type bundle struct {
	Facts       []model.Fact    `yaml:"facts" json:"facts"`
	Claims      []model.Claim   `yaml:"claims" json:"claims"`
	Transcripts []transcriptDoc `yaml:"transcripts" json:"transcripts"`
}

type transcriptDoc struct {
	Ticker            string `yaml:"ticker" json:"ticker"`
	Year              int    `yaml:"year" json:"year"`
	Quarter           int    `yaml:"quarter" json:"quarter"`
	Speaker           string `yaml:"speaker,omitempty" json:"speaker,omitempty"`
	IsAnalystQuestion bool   `yaml:"is_analyst_question,omitempty" json:"is_analyst_question,omitempty"`
	Text              string `yaml:"text" json:"text"`
}

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <bundle.yaml|bundle.json>",
	Short: "Load facts, claims, and transcripts into the database",
	Long: `Load ingests a data bundle:
- facts: official financial data points (ticker, metric, period, value)
- claims: extracted earnings-call claims, ready for verification
- transcripts: call segments, split and indexed for hybrid retrieval

Transcript segments and facts are embedded and indexed unless --no-index
is set. Facts and claims are insert-only: existing rows are never
overwritten.

Example:
  claimcheck load aapl-2024q4.yaml
  claimcheck load bundle.json --no-index`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().DurationVar(&loadTimeout, "timeout", 15*time.Minute, "overall load timeout (embedding can be slow)")
	loadCmd.Flags().BoolVar(&loadNoIndex, "no-index", false, "skip embedding and chunk indexing")
}

func runLoad(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	logger := newLogger()
	cfg := loadConfig()

	b, err := readBundle(path)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	inserted, err := st.InsertFacts(ctx, b.Facts)
	if err != nil {
		return fmt.Errorf("load facts: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Facts: %d new (%d in bundle)\n", inserted, len(b.Facts))

	for i := range b.Claims {
		if b.Claims[i].ID == "" {
			b.Claims[i].ID = uuid.NewString()
		}
		b.Claims[i].Ticker = strings.ToUpper(b.Claims[i].Ticker)
	}
	if err := st.InsertClaims(ctx, b.Claims); err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Claims: %d in bundle\n", len(b.Claims))

	if loadNoIndex {
		return nil
	}

	chunks, err := buildChunks(ctx, cfg, b, logger.With("stage", "index"))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := st.InsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Indexed %d chunks\n", len(chunks))
	return nil
}

func readBundle(path string) (*bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var b bundle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse JSON bundle: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("parse YAML bundle: %w", err)
		}
	}
	for i := range b.Facts {
		b.Facts[i].Ticker = strings.ToUpper(b.Facts[i].Ticker)
	}
	return &b, nil
}

// buildChunks splits transcripts, renders facts as text, and embeds both
// for the hybrid index. Dense embedding requires an embedding API key;
// without one only the sparse lexical side is populated.
func buildChunks(ctx context.Context, cfg model.Config, b *bundle, logger *slog.Logger) ([]model.Chunk, error) {
	var dense *retrieval.OpenAIEmbedder
	if d, err := retrieval.NewOpenAIEmbedder(cfg.Embedding); err != nil {
		logger.Warn("dense embedder unavailable, indexing lexical-only", "error", err)
	} else {
		dense = d
	}
	sparse := retrieval.LexicalEmbedder{}

	var chunks []model.Chunk

	for _, doc := range b.Transcripts {
		for seq, text := range model.SplitText(doc.Text, cfg.Embedding.MaxWords) {
			prefix := ""
			if doc.Speaker != "" {
				prefix = doc.Speaker + ": "
			}
			chunks = append(chunks, model.Chunk{
				ID:                uuid.NewString(),
				Ticker:            strings.ToUpper(doc.Ticker),
				Year:              doc.Year,
				Quarter:           doc.Quarter,
				ChunkType:         model.ChunkTranscript,
				SourceType:        "earnings_call",
				Text:              prefix + text,
				SequenceIndex:     seq,
				IsAnalystQuestion: doc.IsAnalystQuestion,
			})
		}
	}

	for _, f := range b.Facts {
		basis := "non-GAAP"
		if f.IsGAAP {
			basis = "GAAP"
		}
		chunks = append(chunks, model.Chunk{
			ID:         uuid.NewString(),
			Ticker:     f.Ticker,
			Year:       f.Year,
			Quarter:    f.Quarter,
			ChunkType:  model.ChunkFinancial,
			MetricType: f.Metric,
			SourceType: f.Source,
			IsGAAP:     &f.IsGAAP,
			Text: fmt.Sprintf("%s Q%d %d %s (%s): %v %s",
				f.Ticker, f.Quarter, f.Year, f.Metric, basis, f.Value, f.Unit),
		})
	}

	for i := range chunks {
		chunks[i].Sparse = sparse.Embed(chunks[i].Text)
		if dense == nil {
			continue
		}
		vec, err := dense.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks[i].Dense = vec
	}
	return chunks, nil
}
