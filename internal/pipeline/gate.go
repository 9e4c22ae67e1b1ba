package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/review"
	"github.com/example/anvil/internal/route"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
	"github.com/example/anvil/internal/verdict"
)

// runGate evaluates a review gate and returns the next phase name. Terminal
// outcomes (needs-human, blocked, holdout failure) come back as ExitErrors
// with the checkpoint already written.
func (c *Controller) runGate(ctx context.Context, phase *config.Phase) (string, error) {
	gate := phase.Name
	name := c.invocationName(gate)

	v, found := c.storedVerdict(name)
	if found {
		ux.PhaseSkip(name, "already recorded")
	} else {
		caps := c.Config.Caps(phase.Category)
		ux.PhaseHeader(name, c.Config.Model(phase), caps.MaxBudgetUSD)
		c.Timing.AddStart(name)
		evaluated, err := c.Review.Evaluate(ctx, review.Request{
			Gate:         name,
			Prompt:       c.buildPrompt(phase, ""),
			Category:     phase.Category,
			Model:        c.Config.Model(phase),
			AltModel:     c.Config.Models.Overrides["review-alt"],
			MaxTurns:     caps.MaxTurns,
			MaxBudgetUSD: caps.MaxBudgetUSD,
			Timeout:      c.timeout(phase),
			DualPass:     c.dualPass(),
		})
		c.Timing.AddEnd(name)
		c.flushTiming()
		if err != nil {
			// Breaker sentinels from the between-pass check map to their
			// own statuses in terminal.
			return "", err
		}
		v = evaluated
	}

	if v == verdict.NeedsHuman {
		return "", c.fail(checkpoint.StatusNeedsHuman, ExitNeedsHuman, gate,
			fmt.Errorf("gate %s: verdict NEEDS_HUMAN", gate))
	}

	next := c.Router.Route(gate, v, c.gateFails[gate])
	ux.Verdict(gate, string(v), next)

	if next == route.Blocked {
		c.writeBlockReport(gate, fmt.Sprintf("gate verdict %s has no route; run cannot continue", v))
		return "", c.gateBlocked(gate, v)
	}

	if !v.IsPass() {
		c.gateFails[gate]++
		if c.gateFails[gate] > c.Config.MaxRetries {
			c.writeBlockReport(gate, fmt.Sprintf("gate rejected %d times; retry ceiling is %d", c.gateFails[gate], c.Config.MaxRetries))
			return "", c.gateBlocked(gate, v)
		}
		// The producer gets the rejecting report folded into its next
		// prompt, and a fresh attempt-suffixed name — but only if it ran
		// before; a first-ever downstream phase keeps its plain name.
		if report := c.gateReport(name); report != "" {
			c.writeFeedback(next, gate, report)
		}
		if c.producerRan(next) {
			c.revisits[next]++
		}
		c.revisits[gate]++
		ux.Retry(next, c.revisits[next]+1, c.Config.MaxRetries)
	}
	return next, nil
}

// gateReport loads the review text behind a gate's verdict, whichever pass
// layout produced it.
func (c *Controller) gateReport(name string) string {
	if res, err := agent.LoadResult(c.Dir, name); err == nil && res.Text != "" {
		return res.Text
	}
	var parts []string
	for pass := 1; pass <= 2; pass++ {
		if res, err := agent.LoadResult(c.Dir, runlog.PassName(name, pass)); err == nil && res.Text != "" {
			parts = append(parts, res.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// gateBlocked distinguishes the post-completion quality gates, whose
// failure has its own exit code, from an ordinary block.
func (c *Controller) gateBlocked(gate string, v verdict.Verdict) error {
	if gate == config.PhaseHoldoutVal {
		return c.fail(checkpoint.StatusHoldoutFailed, ExitHoldoutFailed, gate,
			fmt.Errorf("holdout validation failed with verdict %s", v))
	}
	return c.fail(checkpoint.StatusBlocked, ExitBlocked, gate,
		fmt.Errorf("gate %s blocked with verdict %s", gate, v))
}

// storedVerdict recovers a gate verdict from artifacts written by a prior
// run. The external validator signal is not replayed; the recorded passes
// alone decide.
func (c *Controller) storedVerdict(name string) (verdict.Verdict, bool) {
	if c.completedOK(name) {
		res, err := agent.LoadResult(c.Dir, name)
		if err == nil {
			return verdict.Parse(res.Text), true
		}
	}
	p1, p2 := runlog.PassName(name, 1), runlog.PassName(name, 2)
	if c.completedOK(p1) && c.completedOK(p2) {
		r1, err1 := agent.LoadResult(c.Dir, p1)
		r2, err2 := agent.LoadResult(c.Dir, p2)
		if err1 == nil && err2 == nil {
			return verdict.Reconcile(verdict.Parse(r1.Text), verdict.Parse(r2.Text)), true
		}
	}
	return verdict.Unknown, false
}

// dualPass reports whether gates run the bias-mitigated two-pass protocol.
// The thorough tiers pay for it; the fast tiers take a single opinion.
func (c *Controller) dualPass() bool {
	switch c.Filter.Resolved() {
	case route.TierStandard, route.TierFull:
		return true
	}
	return false
}
