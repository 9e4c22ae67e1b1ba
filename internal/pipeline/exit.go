package pipeline

import "fmt"

// Process exit codes. Every terminal outcome maps to exactly one.
const (
	ExitOK            = 0
	ExitFailed        = 1 // generic failure, kill switch, cost ceiling
	ExitNeedsHuman    = 2
	ExitBlocked       = 3 // blocked after retries, or stalled
	ExitHoldoutFailed = 4 // quality gate failed after an otherwise complete run
)

// ExitError carries the terminal checkpoint status and process exit code
// out of the controller. cmd/anvil unwraps it exactly once.
type ExitError struct {
	Code   int
	Status string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline %s: %v", e.Status, e.Err)
	}
	return "pipeline " + e.Status
}

func (e *ExitError) Unwrap() error { return e.Err }
