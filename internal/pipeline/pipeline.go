// Package pipeline drives the phase graph: declared order, gate routing,
// breaker checks at every boundary, and the nested implement/verify loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/breaker"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/fidelity"
	"github.com/example/anvil/internal/ledger"
	"github.com/example/anvil/internal/review"
	"github.com/example/anvil/internal/route"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
)

// Controller owns one run. All mutable run state — ledger, checkpoint,
// revisit counts, the progress tracker — lives here; nothing is global.
type Controller struct {
	Config      *config.Config
	Dir         runlog.Dir
	Ticket      string
	ProjectRoot string

	Ledger     *ledger.Ledger
	Timing     *ledger.Timing
	Checkpoint *checkpoint.Manager
	Exec       *agent.Executor
	Review     *review.Orchestrator
	Router     *route.Engine
	Filter     *route.TierFilter
	Assembler  fidelity.Assembler

	Kill       breaker.KillSwitch
	Ceiling    breaker.CostCeiling
	Stagnation breaker.Stagnation
	Progress   *breaker.Progress

	// SkipBefore marks phases strictly before the resume point; they are
	// skipped unconditionally, everything else re-enters normal evaluation.
	SkipBefore map[string]bool

	revisits  map[string]int
	gateFails map[string]int
}

// New assembles a controller for the run directory. tier overrides the
// configured tier when non-empty; resumePhase is the checkpointed phase on
// resume, empty for a fresh run.
func New(cfg *config.Config, dir runlog.Dir, ticket, projectRoot, tier, resumePhase string, inv agent.Invoker) (*Controller, error) {
	ldg, err := ledger.Load(dir)
	if err != nil {
		return nil, err
	}
	timing, err := ledger.LoadTiming(dir)
	if err != nil {
		return nil, err
	}

	if tier == "" {
		tier = cfg.Tier
	}
	declared, err := route.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	fallback, err := route.ParseTier(cfg.AutoFallbackTier)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		Config:      cfg,
		Dir:         dir,
		Ticket:      ticket,
		ProjectRoot: projectRoot,
		Ledger:      ldg,
		Timing:      timing,
		Checkpoint:  checkpoint.NewManager(dir),
		Exec:        &agent.Executor{Invoker: inv, Dir: dir, Ledger: ldg},
		Router:      route.NewEngine(cfg.MaxRetries, ux.Warn),
		Assembler:   fidelity.Assembler{Dir: dir},
		Kill:        breaker.KillSwitch{Path: filepath.Join(projectRoot, cfg.KillSwitchFile)},
		Ceiling:     breaker.CostCeiling{MaxUSD: cfg.MaxPipelineCostUSD},
		Stagnation:  breaker.Stagnation{Dir: dir, ChangedLinePct: cfg.StagnationPct},
		Progress:    breaker.NewProgress(cfg.MaxNoProgress),
		SkipBefore:  checkpoint.SkipBeforeResume(cfg.PhaseOrder(), resumePhase),
		revisits:    make(map[string]int),
		gateFails:   make(map[string]int),
	}
	c.Filter = route.NewTierFilter(declared, fallback, c.scopeEstimate, cfg.TierSkips, ux.Warn)
	c.Review = &review.Orchestrator{
		Runner:    c.Exec,
		Validator: cfg.ReviewValidatorCommand,
		Warn:      ux.Warn,
		Preflight: c.checkBreakers,
	}
	return c, nil
}

// Run executes the pipeline to completion or a terminal abort. The returned
// error, when non-nil, is always an *ExitError with the checkpoint already
// written.
func (c *Controller) Run(ctx context.Context) error {
	order := c.Config.PhaseOrder()
	index := make(map[string]int, len(order))
	for i, n := range order {
		index[n] = i
	}

	i := 0
	for i < len(order) {
		phase := &c.Config.Phases[i]
		name := phase.Name

		if ctx.Err() != nil {
			return c.fail(checkpoint.StatusFailed, ExitFailed, name, ctx.Err())
		}
		if c.SkipBefore[name] {
			ux.PhaseSkip(name, "before resume point")
			i++
			continue
		}
		// The scan phase always runs: under the auto tier it produces the
		// scope estimate that resolution depends on.
		if phase.Category != config.CategoryRouting && !c.Filter.Allows(name) {
			ux.PhaseSkip(name, fmt.Sprintf("tier %s", c.Filter.Resolved()))
			i++
			continue
		}
		if err := c.preflight(name); err != nil {
			return err
		}
		if c.Config.IsHumanGate(name) && !c.Dir.Approved(name) {
			ux.HumanGate(name, c.Dir.ApprovalPath(name))
			return c.fail(checkpoint.StatusNeedsHuman, ExitNeedsHuman, name,
				fmt.Errorf("phase %s awaits human approval", name))
		}

		c.save(checkpoint.StatusRunning, name)

		switch {
		case name == config.PhaseImplement:
			// Consumes both implement and verify: the work-item loop
			// alternates them per item.
			if err := c.runImplementStage(ctx); err != nil {
				return c.terminal(name, err)
			}
			if j, ok := index[config.PhaseVerify]; ok && j > i {
				i = j + 1
			} else {
				i++
			}

		case name == config.PhaseVerify:
			// Reached directly only when implement was skipped; nothing to
			// verify then.
			ux.PhaseSkip(name, "no implementation ran")
			i++

		case name == config.PhaseGenerateDocs:
			if err := c.runDocsStage(ctx, phase); err != nil {
				return c.terminal(name, err)
			}
			i++

		case c.isGate(name):
			next, err := c.runGate(ctx, phase)
			if err != nil {
				return c.terminal(name, err)
			}
			j, ok := index[next]
			if !ok {
				return c.fail(checkpoint.StatusFailed, ExitFailed, name,
					fmt.Errorf("gate %s routed to undeclared phase %q", name, next))
			}
			i = j

		default:
			if err := c.runPhase(ctx, phase); err != nil {
				return c.terminal(name, err)
			}
			i++
		}
	}

	c.save(checkpoint.StatusCompleted, "")
	if err := c.Ledger.SetStatus("completed"); err != nil {
		ux.Warn("saving ledger status: %v", err)
	}
	c.flushTiming()
	ux.Success(len(c.Ledger.Records), c.Ledger.Total)
	return nil
}

// preflight runs the boundary breakers: kill switch first, then the cost
// ceiling against the current ledger total. Both abort before any call.
func (c *Controller) preflight(phase string) error {
	if err := c.Kill.Check(); err != nil {
		return c.fail(checkpoint.StatusKilled, ExitFailed, phase, err)
	}
	if err := c.Ceiling.Check(c.Ledger.Total); err != nil {
		return c.fail(checkpoint.StatusCostExceeded, ExitFailed, phase, err)
	}
	return nil
}

// checkBreakers is the preflight without terminal bookkeeping, for call
// sites that sit between the invocations of one logical step (the second
// review pass, a worker retry). The raw sentinel travels up to terminal.
func (c *Controller) checkBreakers() error {
	if err := c.Kill.Check(); err != nil {
		return err
	}
	return c.Ceiling.Check(c.Ledger.Total)
}

// trackProgress runs the no-progress breaker after a mutating phase and
// surfaces a still-tolerated streak to the operator.
func (c *Controller) trackProgress(ctx context.Context, name, category string) error {
	if err := c.Progress.Check(ctx, name, category); err != nil {
		return err
	}
	if n := c.Progress.ConsecutiveStalls(); n > 0 {
		ux.Warn("%s left the repository unchanged (%d consecutive)", name, n)
	}
	return nil
}

// terminal maps an error from a stage into a terminal ExitError, unless it
// already is one.
func (c *Controller) terminal(phase string, err error) error {
	var xe *ExitError
	if errors.As(err, &xe) {
		return err
	}
	switch {
	case errors.Is(err, breaker.ErrKilled):
		return c.fail(checkpoint.StatusKilled, ExitFailed, phase, err)
	case errors.Is(err, breaker.ErrCostExceeded):
		return c.fail(checkpoint.StatusCostExceeded, ExitFailed, phase, err)
	case errors.Is(err, breaker.ErrStalled):
		return c.fail(checkpoint.StatusStalled, ExitBlocked, phase, err)
	}
	return c.fail(checkpoint.StatusFailed, ExitFailed, phase, err)
}

// fail writes the terminal checkpoint and ledger status, flushes timing,
// prints the outcome, and returns the ExitError for cmd/anvil.
func (c *Controller) fail(status string, code int, phase string, err error) error {
	c.save(status, phase)
	if serr := c.Ledger.SetStatus(status); serr != nil {
		ux.Warn("saving ledger status: %v", serr)
	}
	c.flushTiming()
	ux.Fatal(status, err)
	ux.ResumeHint(c.Ticket, c.Dir.String())
	return &ExitError{Code: code, Status: status, Err: err}
}

func (c *Controller) save(status, phase string) {
	err := c.Checkpoint.Save(checkpoint.Checkpoint{
		Status:       status,
		CurrentPhase: phase,
		Ticket:       c.Ticket,
		Tier:         c.Filter.Label(),
		TotalCost:    c.Ledger.Total,
	})
	if err != nil {
		ux.Warn("saving checkpoint: %v", err)
	}
}

func (c *Controller) flushTiming() {
	if err := c.Timing.Flush(c.Dir); err != nil {
		ux.Warn("flushing timing: %v", err)
	}
}

// isGate reports whether the phase's result is a verdict consumed by the
// router. Verify is gate-shaped too, but the implement stage owns it.
func (c *Controller) isGate(name string) bool {
	switch name {
	case config.PhaseInterrogation, config.PhaseDocReview,
		config.PhaseHoldoutVal, config.PhaseSecurityAudit:
		return true
	}
	return false
}

// invocationName suffixes re-entered phases so every invocation keeps its
// own artifacts and ledger record.
func (c *Controller) invocationName(phase string) string {
	if n := c.revisits[phase]; n > 0 {
		return runlog.AttemptName(phase, n+1)
	}
	return phase
}

// completedOK reports whether a prior run already recorded a successful
// invocation under this name. Failed invocations are recorded too (their
// cost is real) but do not count as done.
func (c *Controller) completedOK(name string) bool {
	if !c.Ledger.Completed(name) {
		return false
	}
	res, err := agent.LoadResult(c.Dir, name)
	return err == nil && !res.Failed()
}

// producerRan reports whether any invocation of a phase — under any
// attempt, item, or worker suffix — has been recorded. Gates use it to
// decide whether a loop-back re-enters the producer or starts it.
func (c *Controller) producerRan(phase string) bool {
	for _, r := range c.Ledger.Records {
		if r.Name == phase || strings.HasPrefix(r.Name, phase+"-") {
			return true
		}
	}
	return false
}

// writeFeedback records a rejecting gate's report for the phase it routed
// back to. Overwritten on every loop-back; only the latest rejection
// matters to the producer.
func (c *Controller) writeFeedback(phase, gate, report string) {
	body := fmt.Sprintf("Feedback from %s:\n\n%s\n", gate, report)
	if err := os.WriteFile(c.Dir.FeedbackPath(phase), []byte(body), 0644); err != nil {
		ux.Warn("writing feedback for %s: %v", phase, err)
	}
}

func (c *Controller) readFeedback(phase string) string {
	data, err := os.ReadFile(c.Dir.FeedbackPath(phase))
	if err != nil {
		return ""
	}
	return string(data)
}

var scopeRe = regexp.MustCompile(`SCOPE:\s*(\d+)`)

// scopeEstimate reads the 1–5 scope estimate from the scan phase's result.
// The tier filter calls this at most once.
func (c *Controller) scopeEstimate() (int, error) {
	res, err := agent.LoadResult(c.Dir, config.PhaseContextScan)
	if err != nil {
		return 0, fmt.Errorf("scan result unavailable: %w", err)
	}
	m := scopeRe.FindAllStringSubmatch(res.Text, -1)
	if len(m) == 0 {
		return 0, fmt.Errorf("no SCOPE marker in scan output")
	}
	return strconv.Atoi(m[len(m)-1][1])
}

// writeBlockReport leaves a legible abort trail next to the ledger.
func (c *Controller) writeBlockReport(item, detail string) {
	report := fmt.Sprintf("Blocked: %s\n\nTicket: %s\nTier: %s\nSpend: $%.2f\n\n%s\n",
		item, c.Ticket, c.Filter.Label(), c.Ledger.Total, detail)
	if err := os.WriteFile(c.Dir.BlockReportPath(item), []byte(report), 0644); err != nil {
		ux.Warn("writing block report for %s: %v", item, err)
	}
}

func (c *Controller) timeout(phase *config.Phase) time.Duration {
	return time.Duration(c.Config.TimeoutSecs(phase.Name, phase.Category)) * time.Second
}
