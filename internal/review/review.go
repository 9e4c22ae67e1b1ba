// Package review runs gate evaluations and reconciles their verdicts.
package review

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/verdict"
)

// reversePassDirective is appended to the second pass so the two reviews do
// not share the same position bias over the material under review.
const reversePassDirective = "\n\nIMPORTANT: evaluate the items under review in REVERSE order, " +
	"starting from the last and ending with the first. Form your judgement of each " +
	"item before moving to the previous one."

const validatorTimeout = 120 * time.Second

// Runner is the slice of the executor the orchestrator needs.
type Runner interface {
	Run(ctx context.Context, spec agent.Spec) (*agent.Result, error)
}

// Request describes one gate evaluation.
type Request struct {
	Gate         string
	Prompt       string
	Category     string
	Model        string
	AltModel     string // second-pass model; empty reuses Model
	MaxTurns     int
	MaxBudgetUSD float64
	Timeout      time.Duration
	DualPass     bool
}

// Orchestrator evaluates review gates. High-stakes gates get a second pass
// in reverse order, optionally on a different model, plus an optional
// deterministic external validator over the first pass's output.
type Orchestrator struct {
	Runner    Runner
	Validator string // shell command; empty disables the third signal
	Warn      func(format string, args ...any)

	// Preflight runs between the passes of a dual evaluation, so the kill
	// switch and cost ceiling hold before every invocation, not just at
	// phase boundaries. Nil skips the check.
	Preflight func() error
}

func (o *Orchestrator) warn(format string, args ...any) {
	if o.Warn != nil {
		o.Warn(format, args...)
	}
}

// Evaluate runs the gate and returns the reconciled verdict.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (verdict.Verdict, error) {
	if !req.DualPass {
		res, err := o.runPass(ctx, req, req.Gate, req.Prompt, req.Model)
		if err != nil {
			return verdict.Unknown, err
		}
		return verdict.Parse(res.Text), nil
	}

	pass1, err := o.runPass(ctx, req, runlog.PassName(req.Gate, 1), req.Prompt, req.Model)
	if err != nil {
		return verdict.Unknown, err
	}

	if o.Preflight != nil {
		if err := o.Preflight(); err != nil {
			return verdict.Unknown, err
		}
	}

	model2 := req.AltModel
	if model2 == "" {
		model2 = req.Model
	}
	pass2, err := o.runPass(ctx, req, runlog.PassName(req.Gate, 2), req.Prompt+reversePassDirective, model2)
	if err != nil {
		return verdict.Unknown, err
	}

	verdicts := []verdict.Verdict{
		verdict.Parse(pass1.Text),
		verdict.Parse(pass2.Text),
	}
	if o.Validator != "" {
		if v, ok := o.validate(ctx, pass1.Text); ok {
			verdicts = append(verdicts, v)
		}
	}
	return verdict.Reconcile(verdicts...), nil
}

func (o *Orchestrator) runPass(ctx context.Context, req Request, name, prompt, model string) (*agent.Result, error) {
	return o.Runner.Run(ctx, agent.Spec{
		Name:         name,
		Category:     req.Category,
		Prompt:       prompt,
		Model:        model,
		MaxTurns:     req.MaxTurns,
		MaxBudgetUSD: req.MaxBudgetUSD,
		Timeout:      req.Timeout,
	})
}

// validate pipes the first pass's report through the external validator
// command and parses a verdict from its stdout. Any failure drops the
// signal with a warning rather than failing the gate.
func (o *Orchestrator) validate(ctx context.Context, report string) (verdict.Verdict, bool) {
	vctx, cancel := context.WithTimeout(ctx, validatorTimeout)
	defer cancel()

	cmd := exec.CommandContext(vctx, "sh", "-c", o.Validator)
	cmd.Stdin = strings.NewReader(report)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		o.warn("review validator failed: %v", err)
		return verdict.Unknown, false
	}
	v := verdict.Parse(out.String())
	if v == verdict.Unknown {
		o.warn("review validator emitted no verdict")
		return verdict.Unknown, false
	}
	return v, true
}
