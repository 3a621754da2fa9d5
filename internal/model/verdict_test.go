package model

import "testing"

func TestParseLabel(t *testing.T) {
	for _, valid := range []string{"VERIFIED", "APPROXIMATELY_TRUE", "FALSE", "MISLEADING", "UNVERIFIABLE"} {
		if _, err := ParseLabel(valid); err != nil {
			t.Errorf("ParseLabel(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "verified", "TRUE", "MOSTLY_TRUE", "PARTIALLY_FALSE"} {
		if _, err := ParseLabel(invalid); err == nil {
			t.Errorf("ParseLabel(%q) must reject out-of-set labels", invalid)
		}
	}
}

func TestSummarize(t *testing.T) {
	verdicts := []Verdict{
		{Label: LabelVerified},
		{Label: LabelVerified},
		{Label: LabelApproxTrue},
		{Label: LabelFalse},
		{Label: LabelMisleading},
		{Label: LabelUnverifiable},
	}

	s := Summarize(verdicts)
	if s.TotalClaims != 6 {
		t.Errorf("TotalClaims = %d, want 6", s.TotalClaims)
	}
	if s.Verified != 2 || s.ApproxTrue != 1 || s.False != 1 || s.Misleading != 1 || s.Unverifiable != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.AccuracyScore != 0.5 {
		t.Errorf("AccuracyScore = %v, want 0.5", s.AccuracyScore)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalClaims != 0 || s.AccuracyScore != 0 {
		t.Errorf("empty summary must be zero-valued: %+v", s)
	}
}
