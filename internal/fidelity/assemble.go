package fidelity

import (
	"fmt"
	"strings"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/runlog"
)

// Per-phase byte budgets for the lossy levels.
const (
	truncateBytes      = 16 * 1024
	summaryLowBytes    = 8 * 1024
	summaryMediumBytes = 4 * 1024
	summaryHighBytes   = 2 * 1024
)

// Assembler renders prior-phase output as a prompt section, condensed
// according to the active fidelity level.
type Assembler struct {
	Dir runlog.Dir
}

// EstimateTokens approximates the token count of a prompt body.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Assemble loads each named phase's result artifact and renders it at the
// given level. Phases with no artifact on disk are silently omitted.
func (a Assembler) Assemble(level Level, phases []string) string {
	var buf strings.Builder
	for _, name := range phases {
		res, err := agent.LoadResult(a.Dir, name)
		if err != nil || res.Text == "" {
			continue
		}
		if buf.Len() == 0 {
			buf.WriteString("## Prior Phase Output\n")
		}
		buf.WriteString(fmt.Sprintf("\n### %s\n\n```\n%s\n```\n", name, condense(level, res.Text)))
	}
	return buf.String()
}

func condense(level Level, text string) string {
	switch level {
	case Full:
		return text
	case Truncate:
		return clip(text, truncateBytes)
	case SummaryLow:
		return clip(salient(text), summaryLowBytes)
	case SummaryMedium:
		return clip(salient(text), summaryMediumBytes)
	case SummaryHigh:
		return clip(salient(text), summaryHighBytes)
	case Compact:
		return compactLines(text)
	default:
		return clip(salient(text), summaryHighBytes)
	}
}

func clip(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "\n... (truncated)"
}

// salient keeps the structural skeleton of a report: headings, list items,
// and verdict lines. Plain prose is dropped.
func salient(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(trimmed, "- "),
			strings.HasPrefix(trimmed, "* "),
			strings.Contains(trimmed, "VERDICT:"):
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return clip(text, summaryHighBytes)
	}
	return strings.Join(out, "\n")
}

// compactLines reduces a report to its opening line plus any verdict line.
func compactLines(text string) string {
	var first, verdict string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if first == "" {
			first = trimmed
		}
		if strings.Contains(trimmed, "VERDICT:") {
			verdict = trimmed
		}
	}
	if verdict != "" && verdict != first {
		return first + "\n" + verdict
	}
	return first
}
