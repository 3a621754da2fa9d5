package model

import "time"

// Config holds the full application configuration. Values come from
// ~/.claimcheck/config.yaml, CLAIMCHECK_* environment variables, or flags,
// in ascending priority.
type Config struct {
	DatabasePath string          `yaml:"database_path" mapstructure:"database_path"`
	LLM          LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Reranker     RerankerConfig  `yaml:"reranker" mapstructure:"reranker"`
	Retrieval    RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Tolerance    ToleranceConfig `yaml:"tolerance" mapstructure:"tolerance"`
	Retry        RetrySchedule   `yaml:"retry" mapstructure:"retry"`
	Batch        BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// LLMConfig configures the generative completion service.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "ollama"
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds per attempt
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmbeddingConfig configures the dense embedding service.
type EmbeddingConfig struct {
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	MaxWords  int    `yaml:"max_words" mapstructure:"max_words"` // Chunk split bound
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"`     // seconds
}

// RerankerConfig configures the cross-encoder scoring service.
type RerankerConfig struct {
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Model   string `yaml:"model,omitempty" mapstructure:"model"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// RetrievalConfig tunes hybrid search and context building.
type RetrievalConfig struct {
	TopK       int `yaml:"top_k" mapstructure:"top_k"`             // Per-ranking depth before fusion
	ContextTop int `yaml:"context_top" mapstructure:"context_top"` // Final evidence set size
}

// ToleranceConfig holds the deterministic comparison bands. Relative values
// are fractions (0.005 = 0.5%); EPSAbsolute is dollars.
type ToleranceConfig struct {
	RelativePrecise float64 `yaml:"relative_precise" mapstructure:"relative_precise"`
	RelativeHedged  float64 `yaml:"relative_hedged" mapstructure:"relative_hedged"`
	AbsolutePrecise float64 `yaml:"absolute_precise" mapstructure:"absolute_precise"` // Fraction of actual
	AbsoluteHedged  float64 `yaml:"absolute_hedged" mapstructure:"absolute_hedged"`   // Fraction of actual
	EPSAbsolute     float64 `yaml:"eps_absolute" mapstructure:"eps_absolute"`
}

// RetrySchedule expresses the generative tier's retry policy as data so the
// loop can run under a cancellation context instead of bare sleeps.
type RetrySchedule struct {
	MaxAttempts   int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RateLimitBase time.Duration `yaml:"rate_limit_base" mapstructure:"rate_limit_base"` // Doubled per attempt, +RateLimitStep
	RateLimitStep time.Duration `yaml:"rate_limit_step" mapstructure:"rate_limit_step"`
	TransientWait time.Duration `yaml:"transient_wait" mapstructure:"transient_wait"`
	FinalCooldown time.Duration `yaml:"final_cooldown" mapstructure:"final_cooldown"`
}

// RateLimitDelay returns the backoff before retry attempt+1 after a
// rate-limit error on 0-based attempt.
func (r RetrySchedule) RateLimitDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return r.RateLimitBase*time.Duration(1<<uint(attempt)) + r.RateLimitStep
}

// BatchConfig throttles batch verification runs.
type BatchConfig struct {
	ClaimsPerSecond float64 `yaml:"claims_per_second" mapstructure:"claims_per_second"`
	Burst           int     `yaml:"burst" mapstructure:"burst"`
	CompanyWorkers  int     `yaml:"company_workers" mapstructure:"company_workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		DatabasePath: "claimcheck.db",
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   300,
			MaxTokens: 1500,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			MaxWords:  350,
			Timeout:   30,
		},
		Reranker: RerankerConfig{
			Timeout: 30,
		},
		Retrieval: RetrievalConfig{
			TopK:       30,
			ContextTop: 10,
		},
		Tolerance: ToleranceConfig{
			RelativePrecise: 0.005,
			RelativeHedged:  0.02,
			AbsolutePrecise: 0.01,
			AbsoluteHedged:  0.05,
			EPSAbsolute:     0.011,
		},
		Retry: RetrySchedule{
			MaxAttempts:   5,
			RateLimitBase: 2 * time.Second,
			RateLimitStep: 2 * time.Second,
			TransientWait: 5 * time.Second,
			FinalCooldown: 60 * time.Second,
		},
		Batch: BatchConfig{
			ClaimsPerSecond: 1.0,
			Burst:           1,
			CompanyWorkers:  2,
		},
	}
}
