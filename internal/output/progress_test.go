package output

import (
	"strings"
	"testing"

	"github.com/blackwell-systems/fieldcoach/internal/crm"
)

func TestScoreBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		score  int
		filled int
		label  string
	}{
		{80, 8, "80/100"},
		{0, 0, "0/100"},
		{100, 10, "100/100"},
		{150, 10, "150/100"},
		{-5, 0, "-5/100"},
	}

	for _, tc := range tests {
		got := ScoreBar(tc.score, 10)
		if n := strings.Count(got, "█"); n != tc.filled {
			t.Errorf("ScoreBar(%d) filled = %d, want %d", tc.score, n, tc.filled)
		}
		if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 10 {
			t.Errorf("ScoreBar(%d) bar width = %d, want 10", tc.score, n)
		}
		if !strings.HasSuffix(got, tc.label) {
			t.Errorf("ScoreBar(%d) = %q, want suffix %q", tc.score, got, tc.label)
		}
	}
}

func TestScoreBar_DefaultWidth(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	got := ScoreBar(50, 0)
	if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 20 {
		t.Errorf("default width = %d, want 20", n)
	}
}

func TestTrendArrow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := TrendArrow(12); got != "▲ +12" {
		t.Errorf("TrendArrow(12) = %q", got)
	}
	if got := TrendArrow(-7); got != "▼ -7" {
		t.Errorf("TrendArrow(-7) = %q", got)
	}
	if got := TrendArrow(0); got != "─" {
		t.Errorf("TrendArrow(0) = %q", got)
	}
}

func TestWeight(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := Weight(0.456); got != "0.46" {
		t.Errorf("Weight(0.456) = %q", got)
	}
	if got := Weight(0); got != "0.00" {
		t.Errorf("Weight(0) = %q", got)
	}
}

func TestSection(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	got := Section("Metrics")
	if !strings.Contains(got, "Metrics") || !strings.Contains(got, "─") {
		t.Errorf("unexpected section %q", got)
	}
}

func TestPriorityStyle(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	for _, p := range []crm.Priority{crm.PriorityHigh, crm.PriorityMedium, crm.PriorityLow} {
		if got := PriorityStyle(p).Render(string(p)); got != string(p) {
			t.Errorf("PriorityStyle(%s) rendered %q", p, got)
		}
	}
}
