package fidelity

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/runlog"
)

const sampleReport = `# Findings

The requirements break down into three areas.

- area one: parsing
- area two: storage
- area three: transport

Long prose paragraph that a summary level should drop entirely because it
carries no structure worth forwarding to the next phase.

VERDICT: PASS
`

func writeResult(t *testing.T, dir runlog.Dir, name, text string) {
	t.Helper()
	data, err := json.Marshal(agent.Result{Name: name, Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir.ResultPath(name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func assembleDir(t *testing.T) runlog.Dir {
	t.Helper()
	dir, err := runlog.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAssemble_FullCarriesEverything(t *testing.T) {
	dir := assembleDir(t)
	writeResult(t, dir, "interrogate", sampleReport)

	out := Assembler{Dir: dir}.Assemble(Full, []string{"interrogate"})
	if !strings.Contains(out, "### interrogate") {
		t.Fatalf("missing phase heading:\n%s", out)
	}
	if !strings.Contains(out, "Long prose paragraph") {
		t.Fatal("full level must keep prose")
	}
}

func TestAssemble_SummaryKeepsStructureDropsProse(t *testing.T) {
	dir := assembleDir(t)
	writeResult(t, dir, "interrogate", sampleReport)

	out := Assembler{Dir: dir}.Assemble(SummaryHigh, []string{"interrogate"})
	for _, want := range []string{"# Findings", "- area one: parsing", "VERDICT: PASS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Long prose paragraph") {
		t.Fatal("summary level must drop prose")
	}
}

func TestAssemble_CompactIsOpeningPlusVerdict(t *testing.T) {
	dir := assembleDir(t)
	writeResult(t, dir, "interrogate", sampleReport)

	out := Assembler{Dir: dir}.Assemble(Compact, []string{"interrogate"})
	if !strings.Contains(out, "# Findings") || !strings.Contains(out, "VERDICT: PASS") {
		t.Fatalf("compact rendering wrong:\n%s", out)
	}
	if strings.Contains(out, "area two") {
		t.Fatal("compact must drop the body")
	}
}

func TestAssemble_MissingPhasesOmitted(t *testing.T) {
	dir := assembleDir(t)
	writeResult(t, dir, "interrogate", sampleReport)

	out := Assembler{Dir: dir}.Assemble(Full, []string{"context-scan", "interrogate", "generate-docs"})
	if strings.Count(out, "### ") != 1 {
		t.Fatalf("only recorded phases should appear:\n%s", out)
	}
	if out := (Assembler{Dir: dir}).Assemble(Full, []string{"nothing"}); out != "" {
		t.Fatalf("no artifacts should render empty, got %q", out)
	}
}

func TestAssemble_TruncateClipsLongReports(t *testing.T) {
	dir := assembleDir(t)
	writeResult(t, dir, "generate-docs", strings.Repeat("x", 40*1024))

	out := Assembler{Dir: dir}.Assemble(Truncate, []string{"generate-docs"})
	if !strings.Contains(out, "... (truncated)") {
		t.Fatal("oversized report should be clipped")
	}
	if len(out) > 20*1024 {
		t.Fatalf("clipped output still %d bytes", len(out))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Fatalf("EstimateTokens = %d, want 100", got)
	}
}
