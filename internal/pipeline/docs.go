package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
)

type docAttempt struct {
	name string
	res  *agent.Result
}

type docOutcome struct {
	attempts []docAttempt
	err      error
}

func (o docOutcome) failed() bool {
	if len(o.attempts) == 0 {
		return false
	}
	last := o.attempts[len(o.attempts)-1]
	return last.res == nil || last.res.Failed()
}

// runDocsStage generates documentation. With one worker it is an ordinary
// phase; with more, the document list is split by position across workers
// with static, non-overlapping assignment, so the workers share nothing and
// need no locks. Workers only invoke; every artifact and ledger write stays
// with the controller, after wait-all.
func (c *Controller) runDocsStage(ctx context.Context, phase *config.Phase) error {
	workers := c.Config.DocWorkers
	if workers <= 1 {
		return c.runPhase(ctx, phase)
	}

	caps := c.Config.Caps(phase.Category)
	results := make([]docOutcome, workers)
	var wg sync.WaitGroup

	// The base carries the revisit suffix so a gate looping back gets a
	// fresh set of worker invocations instead of recorded no-ops.
	base := c.invocationName(phase.Name)
	feedback := c.readFeedback(phase.Name)
	for k := 0; k < workers; k++ {
		name := fmt.Sprintf("%s-worker-%d", base, k+1)
		if c.completedOK(name) {
			ux.PhaseSkip(name, "already recorded")
			continue
		}

		assignment := fmt.Sprintf(
			"You are document writer %d of %d. From the numbered document list in the prior phase output, "+
				"produce only the documents at positions p where (p-1) mod %d == %d. "+
				"Do not create or modify any other document.",
			k+1, workers, workers, k)
		if feedback != "" {
			assignment += "\n\n" + feedback
		}
		spec := agent.Spec{
			Name:         name,
			Category:     phase.Category,
			Prompt:       c.buildPrompt(phase, assignment),
			Model:        c.Config.Model(phase),
			MaxTurns:     caps.MaxTurns,
			MaxBudgetUSD: caps.MaxBudgetUSD,
			Timeout:      c.timeout(phase),
		}
		ux.PhaseHeader(name, spec.Model, spec.MaxBudgetUSD)

		wg.Add(1)
		go func(k int, spec agent.Spec) {
			defer wg.Done()
			res, err := c.Exec.Invoker.Invoke(ctx, spec)
			o := docOutcome{err: err}
			if res != nil {
				o.attempts = append(o.attempts, docAttempt{spec.Name, res})
			}
			if err == nil && res.Failed() {
				// One retry, for this worker's slice only. The breakers
				// hold between the attempts; total is stable while the
				// controller waits on the group.
				if berr := c.checkBreakers(); berr != nil {
					o.err = berr
					results[k] = o
					return
				}
				retry := spec
				retry.Name = runlog.AttemptName(spec.Name, 2)
				res2, err2 := c.Exec.Invoker.Invoke(ctx, retry)
				o.err = err2
				if res2 != nil {
					o.attempts = append(o.attempts, docAttempt{retry.Name, res2})
				}
			}
			results[k] = o
		}(k, spec)
	}
	wg.Wait()

	var failed []string
	for _, o := range results {
		for _, a := range o.attempts {
			if err := c.Exec.Record(a.name, a.res); err != nil {
				return c.fail(checkpoint.StatusFailed, ExitFailed, phase.Name, err)
			}
			ux.PhaseResult(a.name, a.res.Failed(), a.res.CostUSD, a.res.Turns, a.res.Duration)
		}
		if o.err != nil {
			// terminal maps breaker sentinels from the between-attempt
			// check to their own statuses.
			return c.terminal(phase.Name, o.err)
		}
		if o.failed() {
			failed = append(failed, o.attempts[len(o.attempts)-1].name)
		}
	}
	if len(failed) > 0 {
		c.writeBlockReport(phase.Name, fmt.Sprintf("document workers failed after retry: %v", failed))
		return c.fail(checkpoint.StatusBlocked, ExitBlocked, phase.Name,
			fmt.Errorf("%d of %d document workers failed", len(failed), workers))
	}
	return nil
}
