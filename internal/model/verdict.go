package model

import "fmt"

// Label is the outcome of checking a claim against ground truth.
// The set is closed: any other value coming back from a generative
// response is a contract violation, not a new label.
type Label string

const (
	LabelVerified     Label = "VERIFIED"
	LabelApproxTrue   Label = "APPROXIMATELY_TRUE"
	LabelFalse        Label = "FALSE"
	LabelMisleading   Label = "MISLEADING"
	LabelUnverifiable Label = "UNVERIFIABLE"
)

// ParseLabel validates a label string against the closed verdict set.
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelVerified, LabelApproxTrue, LabelFalse, LabelMisleading, LabelUnverifiable:
		return Label(s), nil
	}
	return "", fmt.Errorf("unknown verdict label %q", s)
}

// Verdict is the result of verifying a single claim. At most one verdict
// exists per claim; re-verification replaces the prior one atomically.
type Verdict struct {
	ClaimID         string   `json:"claim_id"`
	Label           Label    `json:"verdict"`
	ActualValue     *float64 `json:"actual_value,omitempty"`
	ClaimedValue    float64  `json:"claimed_value"`
	Difference      *float64 `json:"difference,omitempty"`
	Explanation     string   `json:"explanation"`
	MisleadingFlags []string `json:"misleading_flags,omitempty"`
	Confidence      float64  `json:"confidence"`
	DataSources     []string `json:"data_sources,omitempty"`
	Evidence        []string `json:"evidence,omitempty"` // Exact quotes from source context
}

// Summary aggregates per-label counts for a batch run.
type Summary struct {
	TotalClaims   int     `json:"total_claims"`
	Verified      int     `json:"verified_count"`
	ApproxTrue    int     `json:"approx_true_count"`
	False         int     `json:"false_count"`
	Misleading    int     `json:"misleading_count"`
	Unverifiable  int     `json:"unverifiable_count"`
	AccuracyScore float64 `json:"accuracy_score"` // (verified + approx) / total
}

// Summarize computes per-label counts over a verdict set.
func Summarize(verdicts []Verdict) Summary {
	s := Summary{TotalClaims: len(verdicts)}
	for _, v := range verdicts {
		switch v.Label {
		case LabelVerified:
			s.Verified++
		case LabelApproxTrue:
			s.ApproxTrue++
		case LabelFalse:
			s.False++
		case LabelMisleading:
			s.Misleading++
		case LabelUnverifiable:
			s.Unverifiable++
		}
	}
	if s.TotalClaims > 0 {
		s.AccuracyScore = float64(s.Verified+s.ApproxTrue) / float64(s.TotalClaims)
	}
	return s
}

// BatchResult is the outcome of verifying a company across quarters.
type BatchResult struct {
	Company  string    `json:"company"`
	Quarter  string    `json:"quarter"` // First requested quarter, e.g. "2024Q2"
	Claims   []Claim   `json:"claims"`
	Verdicts []Verdict `json:"verdicts"`
	Summary  Summary   `json:"summary_stats"`
}
