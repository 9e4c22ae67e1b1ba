package fidelity

import "testing"

func TestSelect_Saturating(t *testing.T) {
	// Sustained pressure saturates at the end of the scale and stays there.
	level := Full
	for i := 0; i < 10; i++ {
		level = Select(level, 180000, 200000, DefaultThresholds)
	}
	if level != Compact {
		t.Fatalf("sustained overload: level = %s, want compact", level)
	}

	for i := 0; i < 10; i++ {
		level = Select(level, 10000, 200000, DefaultThresholds)
	}
	if level != Full {
		t.Fatalf("sustained underload: level = %s, want full", level)
	}
}

func TestSelect_Steps(t *testing.T) {
	tests := []struct {
		name   string
		def    Level
		tokens int
		want   Level
	}{
		{"overloaded_steps_down", SummaryHigh, 140000, Compact},
		{"underloaded_steps_up", SummaryHigh, 50000, SummaryMedium},
		{"in_band_unchanged", SummaryHigh, 100000, SummaryHigh},
		{"at_downgrade_boundary_unchanged", SummaryHigh, 120000, SummaryHigh},
		{"truncate_down", Truncate, 140000, SummaryLow},
		{"truncate_up", Truncate, 50000, Full},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.def, tt.tokens, 200000, DefaultThresholds)
			if got != tt.want {
				t.Fatalf("Select(%s, %d) = %s, want %s", tt.def, tt.tokens, got, tt.want)
			}
		})
	}
}

func TestSelect_DegenerateInputs(t *testing.T) {
	for _, tokens := range []int{0, -5} {
		if got := Select(SummaryLow, tokens, 200000, DefaultThresholds); got != SummaryLow {
			t.Fatalf("tokens=%d: got %s, want unchanged", tokens, got)
		}
	}
	if got := Select(SummaryLow, 1000, 0, DefaultThresholds); got != SummaryLow {
		t.Fatalf("zero window: got %s, want unchanged", got)
	}
	if got := Select(Level("bogus"), 1000, 200000, DefaultThresholds); got != Level("bogus") {
		t.Fatalf("invalid level: got %s, want passthrough", got)
	}
}

func TestTransitions_TotalAndMonotonic(t *testing.T) {
	if Compact.Downgrade() != Compact {
		t.Fatal("compact must saturate downward")
	}
	if Full.Upgrade() != Full {
		t.Fatal("full must saturate upward")
	}
	// Walking down then up traverses the whole scale.
	l := Full
	for _, want := range []Level{Truncate, SummaryLow, SummaryMedium, SummaryHigh, Compact} {
		l = l.Downgrade()
		if l != want {
			t.Fatalf("downgrade chain: got %s, want %s", l, want)
		}
	}
	for _, want := range []Level{SummaryHigh, SummaryMedium, SummaryLow, Truncate, Full} {
		l = l.Upgrade()
		if l != want {
			t.Fatalf("upgrade chain: got %s, want %s", l, want)
		}
	}
}
