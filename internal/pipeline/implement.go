package pipeline

import (
	"context"
	"fmt"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/breaker"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/plan"
	"github.com/example/anvil/internal/route"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
	"github.com/example/anvil/internal/verdict"
)

const (
	cheapCheckDirective = "This is an early-attempt check: run the fast signal only — " +
		"build the project and run the tests nearest the change. " +
		"End your report with a line 'VERDICT: PASS' or 'VERDICT: FAIL'."
	exhaustiveCheckDirective = "This is the final attempt: run the exhaustive checks — " +
		"the full test suite, linters, and a careful review of the complete diff. " +
		"End your report with a line 'VERDICT: PASS' or 'VERDICT: FAIL'."
)

// runImplementStage drives the nested work-item loop: for each planned item,
// implement then verify, up to the retry ceiling. A single item exhausting
// its retries aborts the whole pipeline, not just the item.
func (c *Controller) runImplementStage(ctx context.Context) error {
	implPhase := c.Config.PhaseByName(config.PhaseImplement)
	if implPhase == nil {
		return fmt.Errorf("no %s phase declared", config.PhaseImplement)
	}
	verifyPhase := c.Config.PhaseByName(config.PhaseVerify)
	verifyActive := verifyPhase != nil && c.Filter.Allows(config.PhaseVerify)

	// A downstream gate looping back opens a fresh round: item state from
	// earlier rounds no longer counts as done, and the gate's report rides
	// along in every item prompt.
	round := c.revisits[config.PhaseImplement]
	feedback := ""
	if round > 0 {
		feedback = c.readFeedback(config.PhaseImplement)
	}

	items := c.workItems()
	for n, item := range items {
		ux.Item(n+1, len(items), item.Title)
		if err := c.runItem(ctx, implPhase, verifyPhase, verifyActive, item, round, feedback); err != nil {
			return err
		}
	}
	return nil
}

// workItems pulls the ordered item list from the planning phase's recorded
// output, capped, with a single synthetic item when planning yielded none.
func (c *Controller) workItems() []plan.Item {
	if res, err := agent.LoadResult(c.Dir, config.PhaseWriteSpecs); err == nil {
		if items := plan.Parse(res.Text, c.Config.WorkItemCap); items != nil {
			return items
		}
	}
	ux.Warn("planning produced no work items, falling back to a single item")
	return []plan.Item{plan.Fallback(c.Ticket)}
}

func (c *Controller) runItem(ctx context.Context, implPhase, verifyPhase *config.Phase, verifyActive bool, item plan.Item, round int, feedback string) error {
	implBase := config.PhaseImplement + "-" + item.ID
	verBase := config.PhaseVerify + "-" + item.ID
	if round > 0 {
		implBase = fmt.Sprintf("%s-round-%d", implBase, round+1)
		verBase = fmt.Sprintf("%s-round-%d", verBase, round+1)
	}

	if done, attempt := c.itemDone(verBase); done {
		ux.PhaseSkip(implBase, fmt.Sprintf("passed verification on attempt %d in a prior run", attempt))
		return nil
	}

	itemBrief := fmt.Sprintf("Work item %s: %s\n%s", item.ID, item.Title, item.Description)
	if feedback != "" {
		itemBrief += "\n\n" + feedback
	}
	stagnationNote := ""

	for attempt := 1; attempt <= c.Config.MaxRetries; attempt++ {
		if err := c.preflight(config.PhaseImplement); err != nil {
			return err
		}

		implName := runlog.AttemptName(implBase, attempt)
		if !c.completedOK(implName) {
			extra := itemBrief
			if stagnationNote != "" {
				extra += "\n\n" + stagnationNote
			}
			res, err := c.invoke(ctx, implPhase, implName, extra)
			if err != nil {
				return err
			}
			if res.Failed() && attempt >= c.Config.MaxRetries {
				c.writeBlockReport(item.ID, fmt.Sprintf("implementation failed on final attempt %d (status %s)", attempt, res.Status))
				return c.fail(checkpoint.StatusBlocked, ExitBlocked, implName,
					fmt.Errorf("item %s: implementation failed after %d attempts", item.ID, attempt))
			}
		}

		if err := c.trackProgress(ctx, implName, implPhase.Category); err != nil {
			c.writeBlockReport(item.ID, err.Error())
			return c.fail(checkpoint.StatusStalled, ExitBlocked, implName, err)
		}

		if !verifyActive {
			return nil
		}

		v, err := c.verifyAttempt(ctx, verifyPhase, verBase, attempt)
		if err != nil {
			return err
		}
		if v == verdict.NeedsHuman {
			return c.fail(checkpoint.StatusNeedsHuman, ExitNeedsHuman, verBase,
				fmt.Errorf("item %s: verification demands human review", item.ID))
		}
		if v.IsPass() {
			next := c.Router.Route(config.PhaseVerify, v, attempt-1)
			ux.Verdict(verBase, string(v), next)
			return nil
		}

		next := c.Router.Route(config.PhaseVerify, v, attempt)
		ux.Verdict(verBase, string(v), next)
		if next == route.Blocked {
			c.writeBlockReport(item.ID, fmt.Sprintf("verification rejected all %d attempts; last verdict %s", attempt, v))
			return c.fail(checkpoint.StatusBlocked, ExitBlocked, verBase,
				fmt.Errorf("item %s: blocked after %d attempts", item.ID, attempt))
		}

		stagnationNote = ""
		if c.Stagnation.Check(verBase, attempt) {
			stagnationNote = breaker.Directive
			ux.Warn("item %s: attempts %d and %d look the same, injecting course-change directive", item.ID, attempt-1, attempt)
		}
		ux.Retry(item.ID, attempt+1, c.Config.MaxRetries)
	}

	// The route table bounds the loop above; reaching here means the retry
	// ceiling config and table disagree.
	c.writeBlockReport(item.ID, "retry ceiling exhausted")
	return c.fail(checkpoint.StatusBlocked, ExitBlocked, implBase,
		fmt.Errorf("item %s: retry ceiling exhausted", item.ID))
}

// verifyAttempt runs (or recovers) one verification and parses its verdict.
// Early attempts get the cheap check, the final attempt the exhaustive one.
func (c *Controller) verifyAttempt(ctx context.Context, verifyPhase *config.Phase, verBase string, attempt int) (verdict.Verdict, error) {
	name := runlog.AttemptName(verBase, attempt)
	if c.completedOK(name) {
		res, err := agent.LoadResult(c.Dir, name)
		if err == nil {
			ux.PhaseSkip(name, "already recorded")
			return verdict.Parse(res.Text), nil
		}
	}

	directive := cheapCheckDirective
	if attempt >= c.Config.MaxRetries {
		directive = exhaustiveCheckDirective
	}
	res, err := c.invoke(ctx, verifyPhase, name, directive)
	if err != nil {
		return verdict.Unknown, err
	}
	if res.Failed() {
		return verdict.Fail, nil
	}
	return verdict.Parse(res.Text), nil
}

// itemDone looks for a passing verification from a prior run.
func (c *Controller) itemDone(verBase string) (bool, int) {
	for attempt := 1; attempt <= c.Config.MaxRetries; attempt++ {
		name := runlog.AttemptName(verBase, attempt)
		if !c.completedOK(name) {
			continue
		}
		res, err := agent.LoadResult(c.Dir, name)
		if err == nil && verdict.Parse(res.Text).IsPass() {
			return true, attempt
		}
	}
	return false, 0
}
