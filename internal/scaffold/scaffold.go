// Package scaffold seeds a project with a .anvil/ directory: the pipeline
// config plus one prompt template per phase. It first asks the agent to
// tailor the files to the project; if that fails, a static starter
// configuration is written instead.
package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/example/anvil/internal/agent"
	"github.com/example/anvil/internal/config"
	"github.com/example/anvil/internal/fileblocks"
	"github.com/example/anvil/internal/ux"
)

// Init creates the .anvil/ directory in targetDir.
func Init(ctx context.Context, targetDir string) error {
	anvilDir := filepath.Join(targetDir, ".anvil")
	if _, err := os.Stat(anvilDir); err == nil {
		return fmt.Errorf(".anvil directory already exists in %s", targetDir)
	}

	if err := generate(ctx, targetDir); err != nil {
		ux.Warn("tailored init failed (%v), writing the starter template", err)
		return writeStarter(targetDir)
	}
	return nil
}

// generate asks the agent for a project-tailored config and prompt set,
// emitted as file-annotated fenced blocks.
func generate(ctx context.Context, targetDir string) error {
	inv := &agent.CLIInvoker{Command: "claude", WorkDir: targetDir}
	res, err := inv.Invoke(ctx, agent.Spec{
		Name:         "init",
		Category:     config.CategoryRouting,
		Prompt:       initPrompt(targetDir),
		Model:        "sonnet",
		MaxTurns:     10,
		MaxBudgetUSD: 1,
		Timeout:      3 * time.Minute,
	})
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("agent exited with status %s", res.Status)
	}

	blocks := fileblocks.Parse(res.Text)
	var written []string
	for _, b := range blocks {
		clean := filepath.Clean(b.Path)
		if filepath.IsAbs(clean) || !strings.HasPrefix(clean, ".anvil"+string(filepath.Separator)) {
			return fmt.Errorf("refusing generated path outside .anvil/: %s", b.Path)
		}
		full := filepath.Join(targetDir, clean)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(b.Content+"\n"), 0644); err != nil {
			return err
		}
		written = append(written, clean)
	}
	if len(written) == 0 {
		return fmt.Errorf("agent produced no file blocks")
	}

	// The generated config must actually load before we accept it.
	if _, err := config.Load(filepath.Join(targetDir, ".anvil", "pipeline.yaml"), targetDir); err != nil {
		for _, w := range written {
			os.Remove(filepath.Join(targetDir, w))
		}
		return fmt.Errorf("generated config does not validate: %w", err)
	}

	printSuccess("tailored to this project", written)
	return nil
}

// initPrompt describes the wanted output and includes a light project
// snapshot so the generated prompts reference real files.
func initPrompt(targetDir string) string {
	var b strings.Builder
	b.WriteString(`You are generating configuration for anvil, a budget-governed agent pipeline runner.

Produce a .anvil/pipeline.yaml and one prompt file per agent phase, each as a fenced block annotated with the target path:

`)
	b.WriteString("```yaml file=.anvil/pipeline.yaml\n...\n```\n")
	b.WriteString("```markdown file=.anvil/prompts/context-scan.md\n...\n```\n\n")
	b.WriteString("The config declares phases in execution order, each with name, category (routing|generation|review|specification|holdout|implementation|verification|remediation|security|ship), description, and prompt path. Keep the canonical phase names: ")
	b.WriteString(strings.Join(config.Default().PhaseOrder(), ", "))
	b.WriteString(".\n\n## Project snapshot\n\n```\n")
	b.WriteString(snapshot(targetDir))
	b.WriteString("```\n")
	return b.String()
}

// snapshot lists the project two levels deep, skipping the usual noise.
func snapshot(root string) string {
	skip := map[string]bool{
		".git": true, "node_modules": true, "vendor": true,
		".venv": true, "__pycache__": true, ".anvil": true,
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return "(unable to read directory)\n"
	}
	var b strings.Builder
	for _, e := range entries {
		if skip[e.Name()] {
			continue
		}
		if !e.IsDir() {
			b.WriteString(e.Name() + "\n")
			continue
		}
		b.WriteString(e.Name() + "/\n")
		sub, err := os.ReadDir(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		for _, se := range sub {
			b.WriteString("  " + se.Name() + "\n")
		}
	}
	return b.String()
}

func printSuccess(how string, written []string) {
	sort.Strings(written)
	fmt.Printf("\nInitialized .anvil/ (%s):\n", how)
	for _, w := range written {
		fmt.Printf("  %s\n", w)
	}
	fmt.Println("\nNext: anvil run <ticket>")
}
