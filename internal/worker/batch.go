package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
)

// Verifier runs the full verification pipeline for one company.
type Verifier interface {
	VerifyCompany(ctx context.Context, ticker string) (*model.BatchResult, error)
}

// VerifyJob verifies all claims for a single ticker
type VerifyJob struct {
	Ticker   string
	Verifier Verifier
}

// Execute executes the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	result, err := j.Verifier.VerifyCompany(ctx, j.Ticker)
	return &VerifyResult{
		Ticker: j.Ticker,
		Batch:  result,
		Error:  err,
	}
}

// VerifyResult represents the result of a company verification job
type VerifyResult struct {
	Ticker string
	Batch  *model.BatchResult
	Error  error
}

// GetError returns the error from the verification result
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies multiple companies concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(verifier Verifier, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// ProcessTickers verifies multiple companies concurrently
func (b *BatchProcessor) ProcessTickers(ctx context.Context, tickers []string) []*VerifyResult {
	if len(tickers) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for _, ticker := range tickers {
		job := &VerifyJob{Ticker: ticker, Verifier: b.verifier}
		if err := pool.Submit(ctx, job); err != nil {
			break
		}
	}

	results := pool.Wait()

	verifyResults := make([]*VerifyResult, len(results))
	for i, result := range results {
		verifyResults[i] = result.(*VerifyResult)
	}

	return verifyResults
}

// ProcessFile reads tickers from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	tickers, err := ReadTickersFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read tickers: %w", err)
	}

	return b.ProcessTickers(ctx, tickers), nil
}

// ReadTickersFromFile reads ticker symbols from a file (one per line)
func ReadTickersFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var tickers []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ticker := strings.ToUpper(line)
		if !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return tickers, nil
}
