package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// cliOutput is the JSON envelope emitted by `claude -p --output-format json`.
type cliOutput struct {
	Result       string  `json:"result"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	SessionID    string  `json:"session_id"`
	IsError      bool    `json:"is_error"`
	NumTurns     int     `json:"num_turns"`
}

// CLIInvoker runs the agent as a subprocess.
type CLIInvoker struct {
	Command string // agent binary, e.g. "claude"
	WorkDir string
}

// Invoke runs one agent call under a hard wall-clock timeout. A timeout
// never surfaces as a raw process signal: it is synthesized into a sentinel
// TIMEOUT result so downstream verdict parsing always receives well-formed
// input. The process group is killed on cancellation so nothing is left
// running when control returns.
func (c *CLIInvoker) Invoke(ctx context.Context, spec Spec) (*Result, error) {
	start := time.Now()

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	args := []string{
		"-p", spec.Prompt,
		"--output-format", "json",
		"--max-turns", fmt.Sprintf("%d", spec.MaxTurns),
		"--max-budget-usd", fmt.Sprintf("%.2f", spec.MaxBudgetUSD),
		"--model", spec.Model,
	}
	args = append(args, spec.ExtraArgs...)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = c.WorkDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return &Result{
			Name:     spec.Name,
			Text:     fmt.Sprintf("TIMEOUT after %s", spec.Timeout),
			IsError:  true,
			Status:   StatusTimeout,
			ExitCode: 124,
			Duration: duration,
			Log:      stderr.String(),
		}, nil
	}

	code := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			// Spawn failure (binary missing, bad workdir): this is an
			// infrastructure fault, not an agent outcome.
			return nil, fmt.Errorf("invoking %s: %w", c.Command, runErr)
		}
	}

	var out cliOutput
	// Malformed envelopes are tolerated; the zero value reads as an
	// unmetered, empty result.
	_ = json.Unmarshal(stdout.Bytes(), &out)

	status := StatusOK
	if code != 0 || out.IsError {
		status = StatusError
	}
	return &Result{
		Name:      spec.Name,
		CostUSD:   out.TotalCostUSD,
		Turns:     out.NumTurns,
		SessionID: out.SessionID,
		Text:      out.Result,
		IsError:   out.IsError || code != 0,
		Status:    status,
		ExitCode:  code,
		Duration:  duration,
		Log:       stderr.String(),
	}, nil
}
