package model

// PeriodType categorizes the time basis of a quantitative claim
type PeriodType string

const (
	PeriodYoY         PeriodType = "YoY"         // Year-over-year comparison
	PeriodQoQ         PeriodType = "QoQ"         // Quarter-over-quarter comparison
	PeriodAnnual      PeriodType = "annual"      // Full fiscal year figure
	PeriodQuarterly   PeriodType = "quarterly"   // Single-quarter figure
	PeriodUnspecified PeriodType = "unspecified" // No period stated in the source text
)

// IsRelative reports whether the period implies a change comparison
// against a base period rather than an absolute figure.
func (p PeriodType) IsRelative() bool {
	return p == PeriodYoY || p == PeriodQoQ
}

// Claim represents a quantitative assertion extracted from a corporate
// disclosure. Claims are produced upstream and are immutable here.
type Claim struct {
	ID               string     `json:"id" yaml:"id"`
	Ticker           string     `json:"ticker" yaml:"ticker"`
	Year             int        `json:"year" yaml:"year"`
	Quarter          int        `json:"quarter" yaml:"quarter"`
	Speaker          string     `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Metric           string     `json:"metric" yaml:"metric"`
	Value            float64    `json:"value" yaml:"value"`
	Unit             string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Period           PeriodType `json:"period" yaml:"period"`
	IsGAAP           bool       `json:"is_gaap" yaml:"is_gaap"`
	IsForwardLooking bool       `json:"is_forward_looking" yaml:"is_forward_looking"`
	Hedged           bool       `json:"hedged" yaml:"hedged"` // Approximating language widens tolerance
	RawText          string     `json:"raw_text" yaml:"raw_text"`
	ExtractionMethod string     `json:"extraction_method,omitempty" yaml:"extraction_method,omitempty"`
	Confidence       float64    `json:"confidence" yaml:"confidence"`
	Context          string     `json:"context,omitempty" yaml:"context,omitempty"`
}

// BasePeriod returns the comparison period for a relative-change claim:
// YoY is the same quarter one year earlier, QoQ the immediately preceding
// quarter with Q1 wrapping to Q4 of the prior year. For non-relative
// periods it returns the claim's own period.
func (c Claim) BasePeriod() (year, quarter int) {
	switch c.Period {
	case PeriodYoY:
		return c.Year - 1, c.Quarter
	case PeriodQoQ:
		if c.Quarter == 1 {
			return c.Year - 1, 4
		}
		return c.Year, c.Quarter - 1
	default:
		return c.Year, c.Quarter
	}
}
