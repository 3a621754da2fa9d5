package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pkozlov/claimcheck/internal/model"
)

// MockVerifier implements Verifier interface
type MockVerifier struct {
	ShouldError bool
}

func (m *MockVerifier) VerifyCompany(ctx context.Context, ticker string) (*model.BatchResult, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, errors.New("verify error")
	}
	return &model.BatchResult{
		Company: ticker,
		Summary: model.Summary{TotalClaims: 2, Verified: 2, AccuracyScore: 1.0},
	}, nil
}

func TestBatchProcessor_ProcessTickers(t *testing.T) {
	verifier := &MockVerifier{}
	processor := NewBatchProcessor(verifier, 2)

	tickers := []string{"AAPL", "MSFT", "NVDA"}
	ctx := context.Background()

	results := processor.ProcessTickers(ctx, tickers)

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}

	successCount := 0
	for _, res := range results {
		if res.Error == nil {
			successCount++
			if res.Batch == nil {
				t.Error("expected batch result for successful verification")
			}
		} else {
			t.Errorf("unexpected error for %s: %v", res.Ticker, res.Error)
		}
	}

	if successCount != 3 {
		t.Errorf("expected 3 successes, got %d", successCount)
	}
}

func TestBatchProcessor_ProcessTickers_Error(t *testing.T) {
	verifier := &MockVerifier{ShouldError: true}
	processor := NewBatchProcessor(verifier, 2)

	results := processor.ProcessTickers(context.Background(), []string{"AAPL"})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Batch != nil {
		t.Error("expected nil batch on error")
	}
}

func TestBatchProcessor_ProcessTickers_Empty(t *testing.T) {
	verifier := &MockVerifier{}
	processor := NewBatchProcessor(verifier, 2)

	results := processor.ProcessTickers(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadTickersFromFile(t *testing.T) {
	content := `aapl
# comment
MSFT

nvda   `

	tmpfile, err := os.CreateTemp("", "tickers")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	tickers, err := ReadTickersFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("ReadTickersFromFile failed: %v", err)
	}

	expected := []string{"AAPL", "MSFT", "NVDA"}
	if len(tickers) != len(expected) {
		t.Fatalf("expected %d tickers, got %d", len(expected), len(tickers))
	}

	for i, ticker := range tickers {
		if ticker != expected[i] {
			t.Errorf("expected ticker %s at index %d, got %s", expected[i], i, ticker)
		}
	}
}

func TestReadTickersFromFile_NonExistent(t *testing.T) {
	_, err := ReadTickersFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestVerifyResult_GetError(t *testing.T) {
	r1 := &VerifyResult{Ticker: "AAPL", Error: nil}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("verify failed")
	r2 := &VerifyResult{Ticker: "AAPL", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	content := "AAPL\nMSFT\n# comment\n\nNVDA\n"

	tmpfile, err := os.CreateTemp("", "batch_tickers")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	verifier := &MockVerifier{}
	processor := NewBatchProcessor(verifier, 2)

	results, err := processor.ProcessFile(context.Background(), tmpfile.Name())
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	verifier := &MockVerifier{}
	processor := NewBatchProcessor(verifier, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "empty_tickers")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	verifier := &MockVerifier{}
	processor := NewBatchProcessor(verifier, 2)

	results, err := processor.ProcessFile(context.Background(), tmpfile.Name())
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}

func TestReadTickersFromFile_Deduplication(t *testing.T) {
	content := `AAPL
aapl`

	tmpfile, err := os.CreateTemp("", "tickers_dedup")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	tickers, err := ReadTickersFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("ReadTickersFromFile failed: %v", err)
	}

	if len(tickers) != 1 {
		t.Errorf("expected 1 ticker after case-insensitive deduplication, got %d", len(tickers))
	}
}
