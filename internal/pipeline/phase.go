package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/fidelity"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
)

// runPhase executes a plain (non-gate) phase, retrying transient agent
// failures up to the retry ceiling, then promoting to blocked.
func (c *Controller) runPhase(ctx context.Context, phase *config.Phase) error {
	base := c.invocationName(phase.Name)
	if c.completedOK(base) {
		ux.PhaseSkip(base, "already recorded")
		return nil
	}

	name := base
	for attempt := 1; ; attempt++ {
		if err := c.preflight(phase.Name); err != nil {
			return err
		}
		res, err := c.invoke(ctx, phase, name, c.readFeedback(phase.Name))
		if err != nil {
			return err
		}
		if !res.Failed() {
			break
		}
		if attempt >= c.Config.MaxRetries {
			c.writeBlockReport(base, fmt.Sprintf("phase failed %d consecutive attempts; last status: %s", attempt, res.Status))
			return c.fail(checkpoint.StatusBlocked, ExitBlocked, phase.Name,
				fmt.Errorf("phase %s failed after %d attempts", phase.Name, attempt))
		}
		name = runlog.AttemptName(base, attempt+1)
		ux.Retry(base, attempt+1, c.Config.MaxRetries)
	}

	if err := c.trackProgress(ctx, phase.Name, phase.Category); err != nil {
		return c.fail(checkpoint.StatusStalled, ExitBlocked, phase.Name, err)
	}
	return nil
}

// invoke runs one metered invocation with timing bookkeeping. Agent-level
// failure comes back in the Result; the error return means infrastructure
// broke and the run cannot continue.
func (c *Controller) invoke(ctx context.Context, phase *config.Phase, name, extra string) (*agent.Result, error) {
	caps := c.Config.Caps(phase.Category)
	ux.PhaseHeader(name, c.Config.Model(phase), caps.MaxBudgetUSD)

	c.Timing.AddStart(name)
	res, err := c.Exec.Run(ctx, agent.Spec{
		Name:         name,
		Category:     phase.Category,
		Prompt:       c.buildPrompt(phase, extra),
		Model:        c.Config.Model(phase),
		MaxTurns:     caps.MaxTurns,
		MaxBudgetUSD: caps.MaxBudgetUSD,
		Timeout:      c.timeout(phase),
	})
	c.Timing.AddEnd(name)
	c.flushTiming()
	if err != nil {
		return nil, c.fail(checkpoint.StatusFailed, ExitFailed, name, err)
	}
	ux.PhaseResult(name, res.Failed(), res.CostUSD, res.Turns, res.Duration)
	return res, nil
}

// buildPrompt renders the phase prompt: template (or the declared
// description when no template exists), ticket, caller extras, then prior
// phase context condensed to the selected fidelity level.
func (c *Controller) buildPrompt(phase *config.Phase, extra string) string {
	body := phase.Description
	if p := config.PromptPath(c.ProjectRoot, phase); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			ux.Warn("prompt template for %s: %v", phase.Name, err)
		} else {
			body = string(data)
		}
	}

	var b strings.Builder
	b.WriteString(body)
	fmt.Fprintf(&b, "\n\nTicket: %s\n", c.Ticket)
	if extra != "" {
		b.WriteString("\n" + extra + "\n")
	}

	prior := c.priorPhases(phase.Name)
	if len(prior) == 0 {
		return b.String()
	}
	def := fidelity.Level(c.Config.Fidelity.DefaultLevel)
	th := fidelity.Thresholds{
		DowngradePct: c.Config.Fidelity.DowngradePct,
		UpgradePct:   c.Config.Fidelity.UpgradePct,
	}
	ctxt := c.Assembler.Assemble(def, prior)
	est := fidelity.EstimateTokens(b.String()) + fidelity.EstimateTokens(ctxt)
	if level := fidelity.Select(def, est, c.Config.Fidelity.WindowSize, th); level != def {
		ctxt = c.Assembler.Assemble(level, prior)
	}
	if ctxt != "" {
		b.WriteString("\n" + ctxt)
	}
	return b.String()
}

// priorPhases lists the declared phases before this one that actually
// recorded a result, in declared order.
func (c *Controller) priorPhases(name string) []string {
	var prior []string
	for _, p := range c.Config.PhaseOrder() {
		if p == name {
			break
		}
		if c.Ledger.Completed(p) {
			prior = append(prior, p)
		}
	}
	return prior
}
