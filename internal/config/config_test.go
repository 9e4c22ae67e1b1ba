package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
name: demo
phases:
  - name: scan
    category: routing
  - name: build
    category: implementation
  - name: check
    category: review
`

func loadYAML(t *testing.T, text string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg := loadYAML(t, minimalYAML)

	if cfg.AgentCommand != "claude" {
		t.Fatalf("agent-command = %q", cfg.AgentCommand)
	}
	if cfg.MaxPipelineCostUSD != 50 || cfg.MaxRetries != 3 || cfg.MaxNoProgress != 3 {
		t.Fatalf("limits = %v %v %v", cfg.MaxPipelineCostUSD, cfg.MaxRetries, cfg.MaxNoProgress)
	}
	if cfg.StagnationPct != 10 {
		t.Fatalf("stagnation pct = %d", cfg.StagnationPct)
	}
	if cfg.Tier != "full" || cfg.AutoFallbackTier != "standard" {
		t.Fatalf("tiers = %q %q", cfg.Tier, cfg.AutoFallbackTier)
	}
	if cfg.Fidelity.DefaultLevel != "summary:high" || cfg.Fidelity.DowngradePct != 60 || cfg.Fidelity.UpgradePct != 30 {
		t.Fatalf("fidelity = %+v", cfg.Fidelity)
	}
	if cfg.Models.Default != "sonnet" {
		t.Fatalf("default model = %q", cfg.Models.Default)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "phases: [{name: a, category: routing}]", "'name' is required"},
		{"no phases", "name: x", "at least one phase"},
		{"bad category", "name: x\nphases: [{name: a, category: bogus}]", "unknown category"},
		{"missing category", "name: x\nphases: [{name: a}]", "'category' is required"},
		{"dup phase", "name: x\nphases: [{name: a, category: routing}, {name: a, category: review}]", "duplicate phase"},
		{"bad tier", "name: x\ntier: mega\nphases: [{name: a, category: routing}]", "unknown tier"},
		{"auto fallback", "name: x\nauto-fallback-tier: auto\nphases: [{name: a, category: routing}]", "concrete tier"},
		{"gate unknown", "name: x\nhuman-gates: [ship]\nphases: [{name: a, category: routing}]", "unknown phase"},
		{"prompt escape", "name: x\nphases: [{name: a, category: routing, prompt: ../../etc/passwd}]", "must not contain '..'"},
		{"prompt missing", "name: x\nphases: [{name: a, category: routing, prompt: .anvil/prompts/a.md}]", "not found"},
		{"fidelity order", "name: x\nfidelity: {downgrade-pct: 30, upgrade-pct: 60}\nphases: [{name: a, category: routing}]", "must be below"},
		{"tier-skips auto", "name: x\ntier-skips: {auto: [a]}\nphases: [{name: a, category: routing}]", "concrete tier"},
		{"override key", "name: x\nmodels: {overrides: {speedy: opus}}\nphases: [{name: a, category: routing}]", "unknown category"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "pipeline.yaml")
			if err := os.WriteFile(path, []byte(tc.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path, dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoad_ReviewAltOverride(t *testing.T) {
	cfg := loadYAML(t, minimalYAML+"models:\n  overrides: {review-alt: opus}\n")
	if cfg.Models.Overrides["review-alt"] != "opus" {
		t.Fatal("review-alt override should be accepted")
	}
}

func TestLoad_PromptFileResolved(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".anvil", "prompts"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".anvil", "prompts", "scan.md"), []byte("scan"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "pipeline.yaml")
	yaml := "name: x\nphases: [{name: scan, category: routing, prompt: .anvil/prompts/scan.md}]"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, ".anvil", "prompts", "scan.md")
	if got := PromptPath(dir, cfg.PhaseByName("scan")); got != want {
		t.Fatalf("PromptPath = %q, want %q", got, want)
	}
}

func TestTimeoutSecs_Precedence(t *testing.T) {
	cfg := loadYAML(t, minimalYAML+`
default-timeout: 100
categories:
  implementation: {max-turns: 40, max-budget-usd: 8, timeout: 200}
phase-timeouts:
  build: 300
`)
	if got := cfg.TimeoutSecs("build", "implementation"); got != 300 {
		t.Fatalf("phase override = %d, want 300", got)
	}
	if got := cfg.TimeoutSecs("other", "implementation"); got != 200 {
		t.Fatalf("category timeout = %d, want 200", got)
	}
	if got := cfg.TimeoutSecs("other", "review"); got != 100 {
		t.Fatalf("default timeout = %d, want 100", got)
	}
}

func TestModel_Resolution(t *testing.T) {
	cfg := loadYAML(t, minimalYAML+`
models:
  default: sonnet
  overrides: {implementation: opus}
`)
	cfg.Phases[1].Model = "haiku"
	if got := cfg.Model(&cfg.Phases[1]); got != "haiku" {
		t.Fatalf("phase model = %q", got)
	}
	cfg.Phases[1].Model = ""
	if got := cfg.Model(&cfg.Phases[1]); got != "opus" {
		t.Fatalf("category override = %q", got)
	}
	if got := cfg.Model(&cfg.Phases[2]); got != "sonnet" {
		t.Fatalf("default model = %q", got)
	}
}

func TestValidateTicket(t *testing.T) {
	cases := []struct {
		pattern, ticket string
		ok              bool
	}{
		{"", "anything goes", true},
		{`[A-Z]+-\d+`, "PROJ-123", true},
		{`[A-Z]+-\d+`, "proj-123", false},
		{`[A-Z]+-\d+`, "PROJ-123 trailing", false}, // pattern is anchored
		{`^\w+$`, "word", true},
	}
	for _, tc := range cases {
		err := ValidateTicket(tc.pattern, tc.ticket)
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateTicket(%q, %q) = %v", tc.pattern, tc.ticket, err)
		}
	}
	if err := ValidateTicket("([", "x"); err == nil {
		t.Fatal("invalid pattern should error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	order := cfg.PhaseOrder()
	if len(order) != 13 {
		t.Fatalf("phase count = %d, want 13", len(order))
	}
	if order[0] != PhaseContextScan || order[len(order)-1] != PhaseShip {
		t.Fatalf("order = %v", order)
	}
	for _, p := range cfg.Phases {
		if cfg.Model(&p) == "" {
			t.Fatalf("phase %q has no model", p.Name)
		}
	}
	if cfg.IsHumanGate("nonexistent") {
		t.Fatal("no human gates by default")
	}
}

func TestCaps_UnknownCategoryFallback(t *testing.T) {
	cfg := loadYAML(t, minimalYAML)
	caps := cfg.Caps("ship")
	if caps.MaxTurns != 25 || caps.MaxBudgetUSD != 5 {
		t.Fatalf("fallback caps = %+v", caps)
	}
}
