package ux

import (
	"fmt"

	"github.com/fatih/color"
)

// RunStatus is everything the status command renders about one run.
type RunStatus struct {
	Dir          string
	Status       string
	CurrentPhase string
	Ticket       string
	Tier         string
	TotalUSD     float64
	Timestamp    string
	Phases       []PhaseStatus
}

// PhaseStatus is one ledger row.
type PhaseStatus struct {
	Name    string
	CostUSD float64
	Turns   int
}

func statusColor(s string) *color.Color {
	switch s {
	case "completed":
		return green
	case "running":
		return cyan
	case "needs_human":
		return yellow
	default:
		return red
	}
}

// RenderStatus prints a run summary.
func RenderStatus(rs RunStatus) {
	fmt.Fprintln(out)
	bold.Fprintf(out, "%s", rs.Ticket)
	dim.Fprintf(out, "  (%s)\n", rs.Dir)
	fmt.Fprint(out, "  Status:  ")
	statusColor(rs.Status).Fprintln(out, rs.Status)
	fmt.Fprintf(out, "  Tier:    %s\n", rs.Tier)
	if rs.CurrentPhase != "" {
		fmt.Fprintf(out, "  Phase:   %s\n", rs.CurrentPhase)
	}
	fmt.Fprintf(out, "  Updated: %s\n", rs.Timestamp)
	fmt.Fprintf(out, "  Spend:   $%.2f\n", rs.TotalUSD)
	if len(rs.Phases) == 0 {
		return
	}
	rows := make([][2]string, len(rs.Phases))
	for i, p := range rs.Phases {
		rows[i] = [2]string{p.Name, fmt.Sprintf("$%-7.2f %dt", p.CostUSD, p.Turns)}
	}
	CostSummary(rows)
}
