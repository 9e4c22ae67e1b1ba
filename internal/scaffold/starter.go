package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/anvil/internal/config"
	"gopkg.in/yaml.v3"
)

// phasePromptStubs seed one template per canonical phase. They are starting
// points; projects are expected to rewrite them.
var phasePromptStubs = map[string]string{
	config.PhaseContextScan: `Survey the project: directory layout, build system, test setup, recent history.
Estimate how large this ticket is on a 1-5 scale and end your report with a line:
SCOPE: <n>
`,
	config.PhaseInterrogate: `Interrogate the ticket: enumerate requirements, constraints, unknowns, and edge
cases. Write your findings as a structured report with headings and bullets.
`,
	config.PhaseInterrogation: `Review the requirements report above. Score each section for completeness and
correctness. End with a line 'VERDICT: PASS', 'VERDICT: ITERATE', or 'VERDICT: NEEDS_HUMAN'.
`,
	config.PhaseGenerateDocs: `Produce the planning documents for this ticket as a numbered list: design notes,
interface sketches, and a test strategy. Write each document to the repository.
`,
	config.PhaseDocReview: `Review the planning documents for gaps and contradictions.
End with a line 'VERDICT: PASS', 'VERDICT: ITERATE', or 'VERDICT: NEEDS_HUMAN'.
`,
	config.PhaseWriteSpecs: `Break the work into an ordered list of independent work items and write failing
executable specs for each. Output the items as a JSON array of objects with
"id", "title" and "description" fields.
`,
	config.PhaseHoldoutGen: `Write adversarial holdout scenarios the implementation will later be validated
against. Keep them out of the implementation's sight: do not reference them elsewhere.
`,
	config.PhaseImplement: `Implement the work item described below. Follow existing project conventions,
commit your work, and stop when the item's specs pass locally.
`,
	config.PhaseVerify: `Check the work item's implementation as instructed below.
End your report with a line 'VERDICT: PASS' or 'VERDICT: FAIL'.
`,
	config.PhaseHoldoutVal: `Validate the implementation against the holdout scenarios.
End with a line 'VERDICT: PASS' or 'VERDICT: FAIL'.
`,
	config.PhaseSecurityAudit: `Audit the changes for security blockers: injection, path traversal, secret
handling, unsafe deserialization. End with 'VERDICT: PASS' or 'VERDICT: FAIL'.
`,
	config.PhaseSecurityFix: `Fix every blocker-severity finding from the security audit above. Commit the fixes.
`,
	config.PhaseShip: `Finalize the work: update the changelog, squash fixups, and prepare the branch
for review.
`,
}

// writeStarter writes the static starter configuration: the default
// pipeline serialized to YAML, prompt stubs, and a .gitignore for run
// artifacts.
func writeStarter(targetDir string) error {
	cfg := config.Default()
	for i := range cfg.Phases {
		cfg.Phases[i].Prompt = filepath.Join(".anvil", "prompts", cfg.Phases[i].Name+".md")
	}

	promptsDir := filepath.Join(targetDir, ".anvil", "prompts")
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", promptsDir, err)
	}

	var written []string
	for name, stub := range phasePromptStubs {
		rel := filepath.Join(".anvil", "prompts", name+".md")
		if err := os.WriteFile(filepath.Join(targetDir, rel), []byte(stub), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
		written = append(written, rel)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("rendering starter config: %w", err)
	}
	configRel := filepath.Join(".anvil", "pipeline.yaml")
	if err := os.WriteFile(filepath.Join(targetDir, configRel), data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", configRel, err)
	}
	written = append(written, configRel)

	ignoreRel := filepath.Join(".anvil", ".gitignore")
	if err := os.WriteFile(filepath.Join(targetDir, ignoreRel), []byte("runs/\nkill\n"), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", ignoreRel, err)
	}
	written = append(written, ignoreRel)

	printSuccess("starter template", written)
	return nil
}
