// Package breaker implements the pre-invocation circuit breakers: kill
// switch, cost ceiling, stagnation detection, and cross-phase progress
// tracking. Each breaker is independent; the controller consults them at
// phase boundaries, never mid-invocation.
package breaker

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for the hard-abort classes. The controller maps each to a
// terminal checkpoint status and exit code.
var (
	ErrKilled       = errors.New("kill switch active")
	ErrCostExceeded = errors.New("cost ceiling reached")
	ErrStalled      = errors.New("no durable progress")
)

// KillSwitch aborts the run when a sentinel marker file exists. It is
// checked before every invocation, including retries, so an operator can
// stop a runaway pipeline between phases without signaling the process.
type KillSwitch struct {
	Path string
}

// Check returns ErrKilled if the marker file is present.
func (k KillSwitch) Check() error {
	if k.Path == "" {
		return nil
	}
	if _, err := os.Stat(k.Path); err == nil {
		return fmt.Errorf("%w: %s", ErrKilled, k.Path)
	}
	return nil
}

// CostCeiling refuses the next invocation once spend has reached the
// ceiling. The check runs before the call, never after: an in-flight call
// cannot be bounded, so the ledger total may exceed the ceiling by at most
// one call's worst case.
type CostCeiling struct {
	MaxUSD float64
}

// Check returns ErrCostExceeded when total has reached the ceiling.
func (c CostCeiling) Check(totalUSD float64) error {
	if c.MaxUSD <= 0 {
		return nil
	}
	if totalUSD >= c.MaxUSD {
		return fmt.Errorf("%w: $%.2f >= $%.2f", ErrCostExceeded, totalUSD, c.MaxUSD)
	}
	return nil
}
