// Package ux renders pipeline progress for the terminal.
package ux

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// out is where progress rendering goes. Serve mode points it at stderr so
// stdout stays a clean protocol channel.
var out io.Writer = color.Output

// SetWriter redirects progress output.
func SetWriter(w io.Writer) { out = w }

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func stamp() {
	dim.Fprintf(out, "[%s] ", timestamp())
}

// Banner prints the run header.
func Banner(ticket, tier, logDir string) {
	fmt.Fprintln(out)
	bold.Fprint(out, "anvil")
	fmt.Fprintln(out, " — pipeline runner")
	fmt.Fprintf(out, "  Ticket: %s\n", ticket)
	fmt.Fprintf(out, "  Tier:   %s\n", tier)
	fmt.Fprintf(out, "  Logs:   %s\n", logDir)
	fmt.Fprintln(out)
}

// PhaseHeader announces a phase invocation.
func PhaseHeader(name, model string, budgetUSD float64) {
	fmt.Fprintln(out)
	stamp()
	cyan.Fprintln(out, "══════════════════════════════════════")
	stamp()
	bold.Fprintf(out, " %s", name)
	dim.Fprintf(out, "  (%s, budget $%.2f)\n", model, budgetUSD)
	stamp()
	cyan.Fprintln(out, "══════════════════════════════════════")
}

// PhaseResult prints one invocation's metered outcome.
func PhaseResult(name string, failed bool, costUSD float64, turns int, d time.Duration) {
	stamp()
	if failed {
		red.Fprint(out, " ✗ ")
	} else {
		green.Fprint(out, " ✓ ")
	}
	fmt.Fprintf(out, "%s | $%.2f | %dt | %s\n", name, costUSD, turns, formatDuration(d))
}

// PhaseSkip explains why a phase did not run.
func PhaseSkip(name, reason string) {
	stamp()
	dim.Fprintf(out, " – %s skipped (%s)\n", name, reason)
}

// Item announces the next work item in the implementation loop.
func Item(n, total int, title string) {
	fmt.Fprintln(out)
	stamp()
	bold.Fprintf(out, " Work item %d/%d", n, total)
	dim.Fprintf(out, "  %s\n", title)
}

// Retry announces a loop-back attempt.
func Retry(item string, attempt, max int) {
	stamp()
	yellow.Fprintf(out, " ↺ %s failed verification, retrying (attempt %d/%d)\n", item, attempt, max)
}

// Verdict prints a gate outcome.
func Verdict(gate, v, next string) {
	stamp()
	fmt.Fprintf(out, " %s → %s", gate, v)
	dim.Fprintf(out, " (next: %s)\n", next)
}

// Warn prints a warning line to stderr.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n",
		yellow.Sprint("warning:"), fmt.Sprintf(format, args...))
}

// Fatal prints a terminal failure line.
func Fatal(status string, err error) {
	fmt.Fprintln(out)
	red.Add(color.Bold).Fprintf(out, "Pipeline %s", status)
	if err != nil {
		fmt.Fprintf(out, ": %v", err)
	}
	fmt.Fprintln(out)
}

// Success prints the final completion banner.
func Success(phases int, totalUSD float64) {
	fmt.Fprintln(out)
	green.Add(color.Bold).Fprint(out, "Pipeline complete")
	fmt.Fprintf(out, " — %d invocations, $%.2f total\n", phases, totalUSD)
}

// CostSummary prints the per-phase spend breakdown.
func CostSummary(rows [][2]string) {
	fmt.Fprintln(out, "  Cost breakdown:")
	for _, r := range rows {
		fmt.Fprintf(out, "    %-36s %s\n", r[0], r[1])
	}
}

// ResumeHint tells the operator how to continue a stopped run.
func ResumeHint(ticket, logDir string) {
	fmt.Fprintln(out)
	yellow.Fprint(out, "Resume:")
	fmt.Fprintf(out, " anvil run %s --resume %s\n", ticket, logDir)
}

// HumanGate explains how to approve a human-gated phase.
func HumanGate(phase, approvalPath string) {
	fmt.Fprintln(out)
	yellow.Fprintf(out, "Human gate: %s requires approval.\n", phase)
	fmt.Fprintf(out, "  Review the run artifacts, then: touch %s\n", approvalPath)
}

func formatDuration(d time.Duration) string {
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", m, s)
}
