package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkozlov/claimcheck/internal/query"
	"github.com/pkozlov/claimcheck/internal/store"
)

var (
	askTimeout  time.Duration
	askShowOnly bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <ticker> <question>",
	Short: "Ask a question about a company's verified claims",
	Long: `Ask answers natural-language questions from the verified claim store.

The question is decomposed into intent signals (verdict family, metrics,
quarters, speaker role, comparison phrasing), relevant claims are
pre-filtered and ranked, and a generative model synthesizes the answer
strictly from those claims.

Example:
  claimcheck ask AAPL "What false claims did the CEO make?"
  claimcheck ask MSFT "Compare cloud revenue Q3 2024 vs Q4 2024"
  claimcheck ask NVDA "Was the data center growth claim accurate?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().DurationVar(&askTimeout, "timeout", 5*time.Minute, "overall timeout")
	askCmd.Flags().BoolVar(&askShowOnly, "retrieve-only", false, "print matched claims without asking the model")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(args[0])
	question := strings.Join(args[1:], " ")

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	logger := newLogger()
	cfg := loadConfig()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = st.Close() }()

	engine := query.NewEngine(st, logger)

	if askShowOnly {
		result, err := engine.Retrieve(ctx, ticker, question)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Intent: %s, %d claims matched\n\n", result.Intent, len(result.Claims))
		fmt.Println(query.FormatClaims(result.Claims))
		return nil
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	answer, err := query.NewAnswerer(engine, provider).Ask(ctx, ticker, question)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Intent: %s, %d claims used\n\n",
			answer.Retrieval.Intent, len(answer.Retrieval.Claims))
	}
	fmt.Println(answer.Text)
	return nil
}
