// Package config loads and validates the pipeline configuration. Everything
// the controller needs — phase order, per-category caps, timeouts, ceilings,
// thresholds, tier mappings — is supplied here; nothing is hardcoded in the
// driver.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Canonical phase names for the default pipeline.
const (
	PhaseContextScan   = "context-scan"
	PhaseInterrogate   = "interrogate"
	PhaseInterrogation = "interrogation-review"
	PhaseGenerateDocs  = "generate-docs"
	PhaseDocReview     = "doc-review"
	PhaseWriteSpecs    = "write-specs"
	PhaseHoldoutGen    = "holdout-generate"
	PhaseImplement     = "implement"
	PhaseVerify        = "verify"
	PhaseHoldoutVal    = "holdout-validate"
	PhaseSecurityAudit = "security-audit"
	PhaseSecurityFix   = "security-fix"
	PhaseShip          = "ship"
)

// Phase categories. A phase's category — carried explicitly, never derived
// from its name — selects its turn/budget caps, timeout, model, and whether
// the progress tracker watches it.
const (
	CategoryRouting        = "routing"
	CategoryGeneration     = "generation"
	CategoryReview         = "review"
	CategorySpecification  = "specification"
	CategoryHoldout        = "holdout"
	CategoryImplementation = "implementation"
	CategoryVerification   = "verification"
	CategoryRemediation    = "remediation"
	CategorySecurity       = "security"
	CategoryShip           = "ship"
)

// CategoryCaps bounds one category of agent invocations.
type CategoryCaps struct {
	MaxTurns     int     `yaml:"max-turns"`
	MaxBudgetUSD float64 `yaml:"max-budget-usd"`
	TimeoutSecs  int     `yaml:"timeout"`
}

// Phase describes one declared pipeline phase. Order in the config file is
// the declared execution order.
type Phase struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"` // prompt template path, project-relative
	Model       string `yaml:"model"`  // overrides the category model
}

// Models maps categories to model ids.
type Models struct {
	Default   string            `yaml:"default"`
	Overrides map[string]string `yaml:"overrides"`
}

// ForCategory resolves the model id for a category.
func (m Models) ForCategory(category string) string {
	if id, ok := m.Overrides[category]; ok && id != "" {
		return id
	}
	return m.Default
}

// Fidelity configures the context-volume selector.
type Fidelity struct {
	DefaultLevel string `yaml:"default-level"`
	DowngradePct int    `yaml:"downgrade-pct"`
	UpgradePct   int    `yaml:"upgrade-pct"`
	WindowSize   int    `yaml:"window-size"`
}

// Config is the full externally-supplied pipeline configuration.
type Config struct {
	Name          string `yaml:"name"`
	TicketPattern string `yaml:"ticket-pattern"`

	AgentCommand   string `yaml:"agent-command"`
	LogBaseDir     string `yaml:"log-base-dir"`
	KillSwitchFile string `yaml:"kill-switch-file"`

	MaxPipelineCostUSD float64 `yaml:"max-pipeline-cost"`
	MaxRetries         int     `yaml:"max-retries"`
	MaxNoProgress      int     `yaml:"max-no-progress"`
	StagnationPct      int     `yaml:"stagnation-changed-line-pct"`
	WorkItemCap        int     `yaml:"work-item-cap"`
	DocWorkers         int     `yaml:"doc-workers"`
	DefaultTimeoutSecs int     `yaml:"default-timeout"`

	Tier             string `yaml:"tier"`
	AutoFallbackTier string `yaml:"auto-fallback-tier"`

	ReviewValidatorCommand string   `yaml:"review-validator-command"`
	HumanGates             []string `yaml:"human-gates"`

	Models     Models                  `yaml:"models"`
	Categories map[string]CategoryCaps `yaml:"categories"`
	Fidelity   Fidelity                `yaml:"fidelity"`

	// TierSkips overrides the built-in tier → skipped-phase mapping.
	TierSkips map[string][]string `yaml:"tier-skips"`

	// PhaseTimeouts overrides the category timeout for individual phases.
	PhaseTimeouts map[string]int `yaml:"phase-timeouts"`

	Phases []Phase `yaml:"phases"`
}

// Load reads a YAML config file and returns a validated Config with
// defaults applied.
func Load(path, projectRoot string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg, projectRoot); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PhaseOrder returns the declared phase names in order.
func (c *Config) PhaseOrder() []string {
	names := make([]string, len(c.Phases))
	for i, p := range c.Phases {
		names[i] = p.Name
	}
	return names
}

// PhaseByName returns the declared phase, or nil.
func (c *Config) PhaseByName(name string) *Phase {
	for i := range c.Phases {
		if c.Phases[i].Name == name {
			return &c.Phases[i]
		}
	}
	return nil
}

// Caps resolves the turn/budget caps for a category.
func (c *Config) Caps(category string) CategoryCaps {
	if caps, ok := c.Categories[category]; ok {
		return caps
	}
	return CategoryCaps{MaxTurns: 25, MaxBudgetUSD: 5, TimeoutSecs: c.DefaultTimeoutSecs}
}

// TimeoutSecs resolves the hard wall-clock timeout for a phase: per-phase
// override first, then category, then the pipeline default.
func (c *Config) TimeoutSecs(phaseName, category string) int {
	if t, ok := c.PhaseTimeouts[phaseName]; ok && t > 0 {
		return t
	}
	if caps, ok := c.Categories[category]; ok && caps.TimeoutSecs > 0 {
		return caps.TimeoutSecs
	}
	return c.DefaultTimeoutSecs
}

// Model resolves the model id for a phase.
func (c *Config) Model(p *Phase) string {
	if p.Model != "" {
		return p.Model
	}
	return c.Models.ForCategory(p.Category)
}

// IsHumanGate reports whether a phase requires a human-approval marker.
func (c *Config) IsHumanGate(phase string) bool {
	for _, g := range c.HumanGates {
		if g == phase {
			return true
		}
	}
	return false
}

// PromptPath returns the absolute path of a phase's prompt template.
func PromptPath(projectRoot string, p *Phase) string {
	if p.Prompt == "" {
		return ""
	}
	return filepath.Join(projectRoot, p.Prompt)
}
