// Package agent wraps the external task executor. The pipeline never talks
// to the agent binary directly: it hands an invocation spec to an Invoker
// and gets back a metered result, with timeouts and process cleanup handled
// here.
package agent

import (
	"context"
	"time"
)

// Status classifies how an invocation ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Spec describes one agent invocation. Category travels with the name from
// the scheduling point so nothing downstream needs to parse suffixes back
// out of the phase name.
type Spec struct {
	Name         string
	Category     string
	Prompt       string
	Model        string
	MaxTurns     int
	MaxBudgetUSD float64
	Timeout      time.Duration
	ExtraArgs    []string
}

// Result is the metered outcome of one invocation. A failed call is data,
// not a Go error: IsError and Status carry the failure, and the caller
// decides whether to retry or abort.
type Result struct {
	Name      string        `json:"name"`
	CostUSD   float64       `json:"cost_usd"`
	Turns     int           `json:"num_turns"`
	SessionID string        `json:"session_id,omitempty"`
	Text      string        `json:"result"`
	IsError   bool          `json:"is_error"`
	Status    Status        `json:"exit_status"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"-"`

	// Log is the diagnostic stream (stderr) captured alongside the result.
	// It feeds the stagnation detector and is written to the run dir.
	Log string `json:"-"`
}

// Failed reports whether the invocation must be treated as unsuccessful.
func (r *Result) Failed() bool {
	return r.IsError || r.Status != StatusOK || r.ExitCode != 0
}

// Invoker is the opaque agent boundary: synchronous, metered, and free to
// produce side effects the pipeline does not inspect. Tests substitute a
// spy.
type Invoker interface {
	Invoke(ctx context.Context, spec Spec) (*Result, error)
}
