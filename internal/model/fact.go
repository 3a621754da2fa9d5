package model

import "time"

// Fact is an authoritative point-in-time financial figure from a filing.
// Facts are immutable and deduplicated by natural key
// (ticker, metric, year, quarter, is_gaap).
type Fact struct {
	Ticker     string    `json:"ticker" yaml:"ticker"`
	Metric     string    `json:"metric" yaml:"metric"` // Canonical tag or raw XBRL concept
	Year       int       `json:"year" yaml:"year"`
	Quarter    int       `json:"quarter" yaml:"quarter"`
	Value      float64   `json:"value" yaml:"value"`
	Unit       string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"` // "10-Q", "10-K", ...
	IsGAAP     bool      `json:"is_gaap" yaml:"is_gaap"`
	FilingDate time.Time `json:"filing_date,omitempty" yaml:"filing_date,omitempty"`
}
