// Package doctor asks the agent to diagnose a failed run from its artifact
// trail: checkpoint, ledger, the failed phase's diagnostic log, and any
// block reports.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/checkpoint"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/ledger"
	"github.com/example/anvil/internal/runlog"
	"github.com/example/anvil/internal/ux"
)

const maxLogLines = 200

const diagPrompt = `You are diagnosing a failed pipeline run. Analyze the context below and provide a concise diagnosis.

## Run State
%s

## Spend
%s

## Failed Phase Log (last %d lines)
%s
%s
Instructions:
1. Identify what went wrong from the log output.
2. Classify this as a PIPELINE problem (config, budgets, routing) or a CODE problem (the task the agent was working on).
3. Suggest specific fixes.
4. Recommend the next command: 'anvil run --resume %s' after fixing the underlying issue, or a fresh run if the artifacts are unusable.

Be direct and concise. Focus on actionable advice.`

// Run gathers failure context from the run directory and sends it through
// the agent boundary for diagnosis.
func Run(ctx context.Context, inv agent.Invoker, cfg *config.Config, dir runlog.Dir) error {
	cp, err := checkpoint.NewManager(dir).Load()
	if err != nil {
		return err
	}
	if cp.Status == checkpoint.StatusRunning || cp.Status == checkpoint.StatusCompleted {
		fmt.Println("No failed run to diagnose.")
		return nil
	}

	ldg, err := ledger.Load(dir)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf(diagPrompt,
		gatherState(cp),
		gatherSpend(ldg),
		maxLogLines,
		gatherLog(dir, ldg, cp),
		gatherBlockReports(dir),
		dir.String())

	fmt.Printf("\nDoctor: diagnosing run %s (status %s)\n\n", dir, cp.Status)

	res, err := inv.Invoke(ctx, agent.Spec{
		Name:         "doctor",
		Category:     config.CategoryRouting,
		Prompt:       prompt,
		Model:        cfg.Models.Default,
		MaxTurns:     5,
		MaxBudgetUSD: 1,
		Timeout:      5 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("running diagnosis: %w", err)
	}
	fmt.Println(res.Text)
	fmt.Println()
	ux.ResumeHint(cp.Ticket, dir.String())
	return nil
}

func gatherState(cp *checkpoint.Checkpoint) string {
	return strings.Join([]string{
		fmt.Sprintf("Status: %s", cp.Status),
		fmt.Sprintf("Phase: %s", cp.CurrentPhase),
		fmt.Sprintf("Ticket: %s", cp.Ticket),
		fmt.Sprintf("Tier: %s", cp.Tier),
		fmt.Sprintf("Updated: %s", cp.Timestamp.Format(time.RFC3339)),
	}, "\n")
}

func gatherSpend(ldg *ledger.Ledger) string {
	var parts []string
	for _, r := range ldg.Records {
		parts = append(parts, fmt.Sprintf("%s: $%.2f (%d turns)", r.Name, r.Cost, r.Turns))
	}
	parts = append(parts, fmt.Sprintf("Total: $%.2f", ldg.Total))
	return strings.Join(parts, "\n")
}

// gatherLog finds the diagnostic log of the last recorded invocation for
// the checkpointed phase, falling back to the newest record overall.
func gatherLog(dir runlog.Dir, ldg *ledger.Ledger, cp *checkpoint.Checkpoint) string {
	name := ""
	for _, r := range ldg.Records {
		if r.Name == cp.CurrentPhase || strings.HasPrefix(r.Name, cp.CurrentPhase+"-") {
			name = r.Name
		}
	}
	if name == "" && len(ldg.Records) > 0 {
		name = ldg.Records[len(ldg.Records)-1].Name
	}
	if name == "" {
		return "(no invocations recorded)"
	}
	data, err := os.ReadFile(dir.LogPath(name))
	if err != nil {
		return "(no log file found)"
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
		return fmt.Sprintf("... (truncated to last %d lines)\n%s", maxLogLines, strings.Join(lines, "\n"))
	}
	return string(data)
}

func gatherBlockReports(dir runlog.Dir) string {
	matches, err := filepath.Glob(filepath.Join(dir.String(), "blocked-*.txt"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	var parts []string
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", filepath.Base(m), string(data)))
	}
	return fmt.Sprintf("\n## Block Reports\n%s\n", strings.Join(parts, "\n"))
}
