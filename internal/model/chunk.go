package model

import "strings"

// ChunkType classifies the origin of an indexed text unit
type ChunkType string

const (
	ChunkFinancial  ChunkType = "financial"  // Tabular metric rendered as text
	ChunkTranscript ChunkType = "transcript" // Earnings-call segment
)

// Chunk is an indexed text unit carrying both a dense embedding and a
// sparse lexical-weight embedding. Chunks are append-only; their text must
// never exceed the embedding model's token window (oversized source text is
// split before indexing).
type Chunk struct {
	ID                string            `json:"id" yaml:"id"`
	Ticker            string            `json:"ticker" yaml:"ticker"`
	Year              int               `json:"year" yaml:"year"`
	Quarter           int               `json:"quarter" yaml:"quarter"`
	ChunkType         ChunkType         `json:"chunk_type" yaml:"chunk_type"`
	MetricType        string            `json:"metric_type,omitempty" yaml:"metric_type,omitempty"`
	SourceType        string            `json:"source_type,omitempty" yaml:"source_type,omitempty"`
	IsGAAP            *bool             `json:"is_gaap,omitempty" yaml:"is_gaap,omitempty"`
	Text              string            `json:"text" yaml:"text"`
	SequenceIndex     int               `json:"sequence_index" yaml:"sequence_index"`
	IsAnalystQuestion bool              `json:"is_analyst_question,omitempty" yaml:"is_analyst_question,omitempty"`
	Dense             []float32         `json:"-" yaml:"-"`
	Sparse            map[int]float32   `json:"-" yaml:"-"`
}

// SplitText splits text into pieces of at most maxWords words, breaking on
// whitespace. Approximating the embedding window in words keeps the bound
// conservative without a tokenizer dependency.
func SplitText(text string, maxWords int) []string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		if len(words) == 0 {
			return nil
		}
		return []string{strings.Join(words, " ")}
	}
	var parts []string
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[start:end], " "))
	}
	return parts
}
