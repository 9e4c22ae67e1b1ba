package route

import (
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/verdict"
)

// Blocked is the terminal routing result: no next phase exists for this
// gate outcome.
const Blocked = "BLOCKED"

// Edge keys the routing table.
type Edge struct {
	Gate    string
	Verdict verdict.Verdict
}

// retryRule marks a retry-capable gate: failing verdicts loop back to the
// producing phase until the retry ceiling, then route to Blocked regardless
// of verdict.
type retryRule struct {
	Producer string
	Max      int
}

// Engine is the static gate→phase router. Pairs absent from the table
// default to Blocked — fail closed, never fail open.
type Engine struct {
	table map[Edge]string
	retry map[string]retryRule
	warn  func(format string, args ...any)
}

// NewEngine builds the default routing table. maxRetries bounds the
// retry-capable gates; warn receives fail-closed notices (nil discards).
func NewEngine(maxRetries int, warn func(format string, args ...any)) *Engine {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	e := &Engine{
		table: make(map[Edge]string),
		retry: map[string]retryRule{
			config.PhaseVerify: {Producer: config.PhaseImplement, Max: maxRetries},
		},
		warn: warn,
	}

	passes := []verdict.Verdict{verdict.AutoPass, verdict.Pass, verdict.PassWithNotes}

	for _, v := range passes {
		e.table[Edge{config.PhaseInterrogation, v}] = config.PhaseGenerateDocs
		e.table[Edge{config.PhaseDocReview, v}] = config.PhaseWriteSpecs
		e.table[Edge{config.PhaseVerify, v}] = config.PhaseHoldoutVal
		e.table[Edge{config.PhaseHoldoutVal, v}] = config.PhaseSecurityAudit
		e.table[Edge{config.PhaseSecurityAudit, v}] = config.PhaseShip
	}
	e.table[Edge{config.PhaseInterrogation, verdict.Iterate}] = config.PhaseInterrogate
	e.table[Edge{config.PhaseDocReview, verdict.Iterate}] = config.PhaseGenerateDocs
	e.table[Edge{config.PhaseHoldoutVal, verdict.Fail}] = config.PhaseImplement
	e.table[Edge{config.PhaseSecurityAudit, verdict.Fail}] = config.PhaseSecurityFix

	return e
}

// Route returns the next phase for a gate verdict, or Blocked. Retry-capable
// gates consult retryCount: at or above the ceiling every verdict routes to
// Blocked; below it, FAIL and ITERATE route back to the producing phase.
func (e *Engine) Route(gate string, v verdict.Verdict, retryCount int) string {
	if rule, ok := e.retry[gate]; ok {
		if retryCount >= rule.Max {
			e.warn("gate %s: retry ceiling reached (%d), routing to BLOCKED", gate, retryCount)
			return Blocked
		}
		if v == verdict.Fail || v == verdict.Iterate {
			return rule.Producer
		}
	}
	if next, ok := e.table[Edge{gate, v}]; ok {
		return next
	}
	e.warn("gate %s: no route for verdict %s, routing to BLOCKED", gate, v)
	return Blocked
}
