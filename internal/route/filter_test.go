package route

import (
	"fmt"
	"testing"

	"github.com/example/anvil/internal/config"
)

func TestTierFilter_ConcreteResolvesImmediately(t *testing.T) {
	calls := 0
	scope := func() (int, error) { calls++; return 5, nil }

	f := NewTierFilter(TierQuick, TierStandard, scope, nil, nil)
	if !f.Allows(config.PhaseImplement) {
		t.Fatal("quick tier should run implement")
	}
	if f.Allows(config.PhaseGenerateDocs) {
		t.Fatal("quick tier should skip generate-docs")
	}
	if calls != 0 {
		t.Fatalf("scope estimate consulted %d times for a concrete tier", calls)
	}
}

// Auto resolution is lazy and happens exactly once.
func TestTierFilter_AutoResolvesOnce(t *testing.T) {
	calls := 0
	scope := func() (int, error) { calls++; return 2, nil }

	f := NewTierFilter(TierAuto, TierStandard, scope, nil, nil)
	for i := 0; i < 5; i++ {
		f.Allows(config.PhaseImplement)
	}
	if calls != 1 {
		t.Fatalf("scope estimate consulted %d times, want 1", calls)
	}
	if f.Resolved() != TierQuick {
		t.Fatalf("Resolved() = %s, want quick", f.Resolved())
	}
}

func TestTierFilter_AutoFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		scope ScopeFunc
	}{
		{"missing", func() (int, error) { return 0, fmt.Errorf("no estimate") }},
		{"out_of_range", func() (int, error) { return 9, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warned := 0
			f := NewTierFilter(TierAuto, TierStandard, tt.scope, nil, func(string, ...any) { warned++ })
			if got := f.Resolved(); got != TierStandard {
				t.Fatalf("Resolved() = %s, want the standard fallback", got)
			}
			if warned != 1 {
				t.Fatalf("warned %d times, want 1", warned)
			}
		})
	}
}

func TestTierFilter_Label(t *testing.T) {
	f := NewTierFilter(TierAuto, TierStandard, func() (int, error) { return 3, nil }, nil, nil)
	if got := f.Label(); got != "auto" {
		t.Fatalf("Label() before resolution = %q, want auto", got)
	}
	f.Resolved()
	if got := f.Label(); got != "lite" {
		t.Fatalf("Label() after resolution = %q, want lite", got)
	}
}
