package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestReadBundleYAML(t *testing.T) {
	path := writeTemp(t, "bundle.yaml", `
facts:
  - ticker: aapl
    metric: revenue
    year: 2024
    quarter: 4
    value: 119575000000
    unit: USD
    source: 10-Q
    is_gaap: true
claims:
  - id: c1
    ticker: AAPL
    year: 2024
    quarter: 4
    metric: revenue
    value: 15
    unit: "%"
    period: YoY
    raw_text: Revenue grew 15% year-over-year
transcripts:
  - ticker: AAPL
    year: 2024
    quarter: 4
    speaker: CFO
    text: Revenue came in at an all-time record.
`)

	b, err := readBundle(path)
	if err != nil {
		t.Fatalf("readBundle failed: %v", err)
	}
	if len(b.Facts) != 1 || len(b.Claims) != 1 || len(b.Transcripts) != 1 {
		t.Fatalf("unexpected bundle sizes: %d/%d/%d", len(b.Facts), len(b.Claims), len(b.Transcripts))
	}
	if b.Facts[0].Ticker != "AAPL" {
		t.Errorf("fact tickers must be uppercased, got %q", b.Facts[0].Ticker)
	}
	if b.Facts[0].Value != 119575000000 {
		t.Errorf("fact value = %v", b.Facts[0].Value)
	}
	if b.Claims[0].Period != "YoY" {
		t.Errorf("claim period = %q", b.Claims[0].Period)
	}
}

func TestReadBundleJSON(t *testing.T) {
	path := writeTemp(t, "bundle.json", `{
		"facts": [{"ticker": "msft", "metric": "eps", "year": 2024, "quarter": 2, "value": 2.93, "is_gaap": true}],
		"claims": [],
		"transcripts": []
	}`)

	b, err := readBundle(path)
	if err != nil {
		t.Fatalf("readBundle failed: %v", err)
	}
	if len(b.Facts) != 1 || b.Facts[0].Ticker != "MSFT" || b.Facts[0].Value != 2.93 {
		t.Errorf("unexpected facts: %+v", b.Facts)
	}
}

func TestReadBundleErrors(t *testing.T) {
	if _, err := readBundle(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must error")
	}

	bad := writeTemp(t, "bad.json", `{"facts": [`)
	if _, err := readBundle(bad); err == nil {
		t.Error("malformed JSON must error")
	}

	badYAML := writeTemp(t, "bad.yaml", "facts: [\nbroken: :")
	if _, err := readBundle(badYAML); err == nil {
		t.Error("malformed YAML must error")
	}
}
