// Package fidelity decides how much prior-phase context is carried into a
// new invocation, based on estimated context-window utilization.
package fidelity

// Level is the amount of prior context carried forward, ordered from least
// (Compact) to most (Full).
type Level string

const (
	Compact       Level = "compact"
	SummaryHigh   Level = "summary:high"
	SummaryMedium Level = "summary:medium"
	SummaryLow    Level = "summary:low"
	Truncate      Level = "truncate"
	Full          Level = "full"
)

// ordered lists levels from least to most context. The transition table is
// total: stepping past either end saturates.
var ordered = []Level{Compact, SummaryHigh, SummaryMedium, SummaryLow, Truncate, Full}

func rank(l Level) int {
	for i, o := range ordered {
		if o == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return rank(l) >= 0
}

// Downgrade steps one notch toward Compact, saturating at Compact.
func (l Level) Downgrade() Level {
	r := rank(l)
	if r <= 0 {
		return Compact
	}
	return ordered[r-1]
}

// Upgrade steps one notch toward Full, saturating at Full.
func (l Level) Upgrade() Level {
	r := rank(l)
	if r < 0 {
		return l
	}
	if r >= len(ordered)-1 {
		return Full
	}
	return ordered[r+1]
}

// Thresholds are utilization percentages bounding the adjustment band.
type Thresholds struct {
	DowngradePct int // above this, step toward compact
	UpgradePct   int // below this, step toward full
}

// DefaultThresholds leave a wide band where the level is unchanged.
var DefaultThresholds = Thresholds{DowngradePct: 60, UpgradePct: 30}

// Select adjusts a level by context utilization. With no token estimate the
// level is returned unchanged. Above the downgrade threshold the level steps
// one notch toward Compact; below the upgrade threshold, one notch toward
// Full. Unknown input levels pass through untouched so the result is always
// well-defined.
func Select(def Level, estimatedTokens, windowSize int, t Thresholds) Level {
	if estimatedTokens <= 0 || windowSize <= 0 || !def.Valid() {
		return def
	}
	utilization := estimatedTokens * 100 / windowSize
	switch {
	case utilization > t.DowngradePct:
		return def.Downgrade()
	case utilization < t.UpgradePct:
		return def.Upgrade()
	}
	return def
}
