package cli

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkozlov/claimcheck/internal/model"
	"github.com/pkozlov/claimcheck/internal/store"
	"github.com/pkozlov/claimcheck/internal/worker"
)

var (
	verifyQuarters string
	verifyForce    bool
	verifyFile     string
	verifyWorkers  int
	verifyTimeout  time.Duration
	llmProvider    string
	llmModel       string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [ticker...]",
	Short: "Verify stored claims against official financial data",
	Long: `Verify runs every stored claim for the given companies through the
tiered verification engine:
- Deterministic numeric check against the fact store
- Hybrid retrieval + generative analyst when the numbers cannot decide
- Misleading-framing detection on every verdict

Verdicts already on file are reused; pass --force to re-verify.

Example:
  claimcheck verify AAPL
  claimcheck verify AAPL MSFT --quarters 2024Q3,2024Q4
  claimcheck verify --file tickers.txt --workers 4
  claimcheck verify AAPL --force --llm-provider ollama --llm-model llama3`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyQuarters, "quarters", "", "comma-separated periods, e.g. 2024Q3,2024Q4 (default: all stored)")
	verifyCmd.Flags().BoolVar(&verifyForce, "force", false, "re-verify claims that already have verdicts")
	verifyCmd.Flags().StringVar(&verifyFile, "file", "", "read tickers from file (one per line)")
	verifyCmd.Flags().IntVar(&verifyWorkers, "workers", 0, "concurrent companies (default: config)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Minute, "overall run timeout")
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider override (openai, anthropic, ollama)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model override")
}

var quarterArg = regexp.MustCompile(`^(\d{4})[Qq](\d)$`)

// parseQuarters turns "2024Q3,2024Q4" into (year, quarter) pairs.
func parseQuarters(s string) ([][2]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out [][2]int
	for _, part := range strings.Split(s, ",") {
		m := quarterArg.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, fmt.Errorf("invalid quarter %q (expected e.g. 2024Q3)", part)
		}
		year, _ := strconv.Atoi(m[1])
		quarter, _ := strconv.Atoi(m[2])
		if quarter < 1 || quarter > 4 {
			return nil, fmt.Errorf("invalid quarter %q: quarter must be 1-4", part)
		}
		out = append(out, [2]int{year, quarter})
	}
	return out, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	tickers := make([]string, 0, len(args))
	for _, a := range args {
		tickers = append(tickers, strings.ToUpper(a))
	}
	if verifyFile != "" {
		fromFile, err := worker.ReadTickersFromFile(verifyFile)
		if err != nil {
			return err
		}
		tickers = append(tickers, fromFile...)
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers given: pass them as arguments or via --file")
	}

	quarters, err := parseQuarters(verifyQuarters)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	logger := newLogger()
	cfg := loadConfig()
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	// Default to every stored period when none requested.
	if len(quarters) == 0 {
		quarters, err = allStoredQuarters(ctx, st, tickers)
		if err != nil {
			return err
		}
		if len(quarters) == 0 {
			return fmt.Errorf("no stored claims for %s: run 'claimcheck load' first", strings.Join(tickers, ", "))
		}
	}

	orch, err := buildOrchestrator(st, cfg, logger)
	if err != nil {
		return err
	}

	workers := verifyWorkers
	if workers <= 0 {
		workers = cfg.Batch.CompanyWorkers
	}

	fmt.Fprintf(os.Stderr, "Verifying %d compan(y/ies), %d worker(s), provider %s/%s\n\n",
		len(tickers), workers, cfg.LLM.Provider, cfg.LLM.Model)

	processor := worker.NewBatchProcessor(orch.Runner(quarters, verifyForce), workers)
	results := processor.ProcessTickers(ctx, tickers)

	failures := 0
	for _, res := range results {
		if res.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.Ticker, res.Error)
			continue
		}
		printSummary(res.Batch)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d companies failed", failures, len(results))
	}
	return nil
}

// allStoredQuarters collects the distinct periods present for the tickers.
func allStoredQuarters(ctx context.Context, st *store.Store, tickers []string) ([][2]int, error) {
	seen := make(map[[2]int]bool)
	var out [][2]int
	for _, ticker := range tickers {
		rows, err := st.RecentClaims(ctx, ticker, 10000)
		if err != nil {
			return nil, fmt.Errorf("list claims for %s: %w", ticker, err)
		}
		for _, row := range rows {
			key := [2]int{row.Claim.Year, row.Claim.Quarter}
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	return out, nil
}

func printSummary(b *model.BatchResult) {
	s := b.Summary
	fmt.Printf("%s: %d claims\n", b.Company, s.TotalClaims)
	fmt.Printf("  VERIFIED            %d\n", s.Verified)
	fmt.Printf("  APPROXIMATELY_TRUE  %d\n", s.ApproxTrue)
	fmt.Printf("  FALSE               %d\n", s.False)
	fmt.Printf("  MISLEADING          %d\n", s.Misleading)
	fmt.Printf("  UNVERIFIABLE        %d\n", s.Unverifiable)
	fmt.Printf("  accuracy            %.0f%%\n\n", s.AccuracyScore*100)
}
