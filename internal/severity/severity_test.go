package severity

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		score float64
		want  Level
	}{
		{0.0, Low},
		{0.49999, Low},
		{0.5, Moderate}, // thresholds are inclusive
		{0.7999, Moderate},
		{0.8, High},
		{0.95, High},
		{1.0, High},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if High.String() != "HIGH" || Moderate.String() != "MODERATE" || Low.String() != "LOW" {
		t.Errorf("unexpected level names: %v %v %v", High, Moderate, Low)
	}
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.0, "0.00%"},
		{0.87349, "87.35%"},
		{0.5, "50.00%"},
		{1.0, "100.00%"},
	}
	for _, tc := range cases {
		if got := FormatScore(tc.score); got != tc.want {
			t.Errorf("FormatScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestAdvice(t *testing.T) {
	if Low.Advice() != "" {
		t.Errorf("Low advice should be empty, got %q", Low.Advice())
	}
	if High.Advice() == "" || Moderate.Advice() == "" {
		t.Error("High and Moderate tiers must carry advice")
	}
}
