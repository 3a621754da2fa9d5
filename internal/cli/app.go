package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/pkozlov/claimcheck/internal/cache"
	"github.com/pkozlov/claimcheck/internal/llm"
	"github.com/pkozlov/claimcheck/internal/metrics"
	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/retrieval"
	"github.com/pkozlov/claimcheck/internal/store"
	"github.com/pkozlov/claimcheck/internal/verify"
	"github.com/pkozlov/claimcheck/internal/worker"
)

// loadConfig merges defaults, the config file, and environment variables.
// API keys always come from the environment when set there.
func loadConfig() model.Config {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file ignored: %v\n", err)
		cfg = model.DefaultConfig()
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if cfg.LLM.Provider == "openai" {
			cfg.LLM.APIKey = key
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && (cfg.LLM.Provider == "anthropic" || cfg.LLM.Provider == "claude") {
		cfg.LLM.APIKey = key
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = url
	}
	return cfg
}

// buildProvider creates the generative provider, failing early on missing keys.
func buildProvider(cfg model.Config) (llm.Provider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	}
	return llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
}

// buildContextBuilder assembles the evidence retrieval pipeline. Returns nil
// when no dense embedder can be configured; verification then falls back to
// the generative tier without retrieved context.
func buildContextBuilder(st *store.Store, cfg model.Config, logger *slog.Logger) *retrieval.ContextBuilder {
	base, err := retrieval.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		logger.Warn("dense embedder unavailable, evidence retrieval disabled", "error", err)
		return nil
	}
	dense := retrieval.NewCachedEmbedder(base,
		cache.NewMemoryCache(30*time.Minute, time.Hour), 30*time.Minute)

	var reranker retrieval.Reranker = retrieval.NoopReranker{}
	if cfg.Reranker.BaseURL != "" {
		hr, err := retrieval.NewHTTPReranker(cfg.Reranker)
		if err != nil {
			logger.Warn("reranker unavailable, using retrieval order", "error", err)
		} else {
			reranker = hr
		}
	}

	index := retrieval.NewStoreIndex(st)
	retriever := retrieval.NewRetriever(index, dense, retrieval.LexicalEmbedder{})
	return retrieval.NewContextBuilder(st, retriever, reranker, cfg.Retrieval)
}

// buildOrchestrator wires the full verification stack over an open store.
func buildOrchestrator(st *store.Store, cfg model.Config, logger *slog.Logger) (*verify.Orchestrator, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	resolver := metrics.NewResolver(st)
	det := verify.NewDeterministicVerifier(resolver, cfg.Tolerance)
	gen := verify.NewGenerativeVerifier(provider, cfg.Retry, logger)
	detector := verify.NewMisleadingDetector(resolver)
	var contexts verify.EvidenceSource
	if cb := buildContextBuilder(st, cfg, logger); cb != nil {
		contexts = cb
	}
	limiter := worker.NewLimiter(cfg.Batch.ClaimsPerSecond, cfg.Batch.Burst)

	return verify.NewOrchestrator(st, det, gen, detector, contexts, limiter, logger), nil
}
