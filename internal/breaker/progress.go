package breaker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultMaxNoProgress is how many consecutive no-change implementation
// phases are tolerated before declaring a stall.
const DefaultMaxNoProgress = 3

// HeadFunc returns an identifier for the repository's current content head.
// The default implementation shells out to git; tests substitute their own.
type HeadFunc func(ctx context.Context) string

// GitHead reads the current commit hash, or "none" when unavailable.
func GitHead(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "none"
	}
	return strings.TrimSpace(string(out))
}

// Progress detects an agent that reports success without producing any
// durable change: the repository head is snapshotted around every
// implementation or remediation phase, and too many consecutive unchanged
// snapshots abort the run.
type Progress struct {
	Head HeadFunc
	Max  int

	last  string
	count int
}

// NewProgress returns a tracker using git as the content head source.
func NewProgress(max int) *Progress {
	if max <= 0 {
		max = DefaultMaxNoProgress
	}
	return &Progress{Head: GitHead, Max: max}
}

// Tracked categories. Only phases that are supposed to mutate the
// repository participate; review and gate phases legitimately change
// nothing.
func tracked(category string) bool {
	return category == "implementation" || category == "remediation"
}

// Check records the head after a phase and returns ErrStalled once the head
// has not moved across Max consecutive tracked phases.
func (p *Progress) Check(ctx context.Context, phaseName, category string) error {
	current := p.Head(ctx)
	defer func() { p.last = current }()

	if !tracked(category) {
		return nil
	}
	if p.last != "" && current == p.last {
		p.count++
		if p.count >= p.Max {
			return fmt.Errorf("%w: head unchanged across %d consecutive phases (last: %s)",
				ErrStalled, p.count, phaseName)
		}
		return nil
	}
	p.count = 0
	return nil
}

// ConsecutiveStalls reports the current no-progress streak, for display.
func (p *Progress) ConsecutiveStalls() int { return p.count }
