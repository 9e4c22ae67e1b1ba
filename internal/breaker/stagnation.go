package breaker

import (
	"crypto/sha256"
	"os"
	"strings"

	"github.com/example/anvil/internal/runlog"
)

// Directive is appended to the next attempt's prompt once stagnation is
// detected.
const Directive = "STAGNATION DETECTED: previous attempts produced near-identical " +
	"errors. Use a fundamentally different approach — do not repeat the prior fix."

// DefaultChangedLinePct is the minimum fraction of changed lines between
// consecutive attempts for them to count as real movement.
const DefaultChangedLinePct = 10

// Stagnation compares consecutive attempts' diagnostic logs for a
// retry-capable phase.
type Stagnation struct {
	Dir runlog.Dir
	// ChangedLinePct is the changed-line percentage below which two
	// differing logs are still considered stagnant. Zero means default.
	ChangedLinePct int
}

// Check reports whether attempt n for the phase stagnated against attempt
// n-1. Identical content (by checksum) is always stagnant; otherwise the
// logs are stagnant when fewer than the threshold percentage of lines
// changed. Missing or empty logs never flag.
func (s Stagnation) Check(phase string, attempt int) bool {
	if attempt <= 1 {
		return false
	}
	prev, err1 := os.ReadFile(s.Dir.LogPath(runlog.AttemptName(phase, attempt-1)))
	curr, err2 := os.ReadFile(s.Dir.LogPath(runlog.AttemptName(phase, attempt)))
	if err1 != nil || err2 != nil || len(prev) == 0 || len(curr) == 0 {
		return false
	}

	if sha256.Sum256(prev) == sha256.Sum256(curr) {
		return true
	}

	pct := s.ChangedLinePct
	if pct <= 0 {
		pct = DefaultChangedLinePct
	}
	return changedLinePct(string(prev), string(curr)) < pct
}

// changedLinePct returns the percentage of lines in the larger log that
// have no counterpart in the other log. Line multiset intersection stands
// in for a full diff: it is order-insensitive, which suits agent logs where
// identical errors often reorder between runs.
func changedLinePct(prev, curr string) int {
	prevLines := strings.Split(prev, "\n")
	currLines := strings.Split(curr, "\n")

	counts := make(map[string]int, len(prevLines))
	for _, l := range prevLines {
		counts[l]++
	}
	common := 0
	for _, l := range currLines {
		if counts[l] > 0 {
			counts[l]--
			common++
		}
	}

	total := len(currLines)
	if len(prevLines) > total {
		total = len(prevLines)
	}
	if total == 0 {
		return 0
	}
	changed := total - common
	return changed * 100 / total
}
