package commands

import (
	"strings"
	"testing"

	"go-harmony/markov"
)

func TestOrderTable(t *testing.T) {
	rep := markov.Report{
		Best:      2,
		BestMerit: 0.8,
		Orders: []markov.OrderResult{
			{Order: 1, Merit: 0.25, Scores: markov.Scores{Exact: 0.1, Edit: 0.2}, TooRandom: true},
			{Order: 2, Merit: 0.8, Scores: markov.Scores{Exact: 0.45, Edit: 0.5}},
		},
	}
	got := orderTable(rep)
	for _, want := range []string{"order", "merit", "verdict", "0.250", "too random", "0.800", "0.450", "ok"} {
		if !strings.Contains(got, want) {
			t.Errorf("table lacks %q:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n") + 1; lines < 5 {
		t.Fatalf("table has %d lines:\n%s", lines, got)
	}
}
