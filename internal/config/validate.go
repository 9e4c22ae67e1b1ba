package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var validCategories = map[string]bool{
	CategoryRouting:        true,
	CategoryGeneration:     true,
	CategoryReview:         true,
	CategorySpecification:  true,
	CategoryHoldout:        true,
	CategoryImplementation: true,
	CategoryVerification:   true,
	CategoryRemediation:    true,
	CategorySecurity:       true,
	CategoryShip:           true,
}

var validTiers = map[string]bool{
	"guard": true, "nano": true, "quick": true, "lite": true,
	"standard": true, "full": true, "auto": true,
}

var validFidelityLevels = map[string]bool{
	"compact": true, "summary:high": true, "summary:medium": true,
	"summary:low": true, "truncate": true, "full": true,
}

// Validate checks the config for errors and sets defaults.
func Validate(cfg *Config, projectRoot string) error {
	if cfg.Name == "" {
		return fmt.Errorf("config: 'name' is required")
	}
	if len(cfg.Phases) == 0 {
		return fmt.Errorf("config: at least one phase is required")
	}

	if cfg.AgentCommand == "" {
		cfg.AgentCommand = "claude"
	}
	if cfg.LogBaseDir == "" {
		cfg.LogBaseDir = ".anvil/runs"
	}
	if cfg.KillSwitchFile == "" {
		cfg.KillSwitchFile = ".anvil/kill"
	}
	if cfg.MaxPipelineCostUSD <= 0 {
		cfg.MaxPipelineCostUSD = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxNoProgress <= 0 {
		cfg.MaxNoProgress = 3
	}
	if cfg.StagnationPct <= 0 {
		cfg.StagnationPct = 10
	}
	if cfg.StagnationPct >= 100 {
		return fmt.Errorf("config: stagnation-changed-line-pct must be below 100")
	}
	if cfg.WorkItemCap <= 0 {
		cfg.WorkItemCap = 12
	}
	if cfg.DocWorkers <= 0 {
		cfg.DocWorkers = 1
	}
	if cfg.DefaultTimeoutSecs <= 0 {
		cfg.DefaultTimeoutSecs = 600
	}

	if cfg.Tier == "" {
		cfg.Tier = "full"
	}
	if !validTiers[cfg.Tier] {
		return fmt.Errorf("config: unknown tier %q", cfg.Tier)
	}
	if cfg.AutoFallbackTier == "" {
		cfg.AutoFallbackTier = "standard"
	}
	if !validTiers[cfg.AutoFallbackTier] || cfg.AutoFallbackTier == "auto" {
		return fmt.Errorf("config: auto-fallback-tier %q must be a concrete tier", cfg.AutoFallbackTier)
	}

	if cfg.Models.Default == "" {
		cfg.Models.Default = "sonnet"
	}
	for cat := range cfg.Models.Overrides {
		// "review-alt" is the second review pass's model, not a category.
		if !validCategories[cat] && cat != "review-alt" {
			return fmt.Errorf("config: models.overrides: unknown category %q", cat)
		}
	}
	for cat, caps := range cfg.Categories {
		if !validCategories[cat] {
			return fmt.Errorf("config: categories: unknown category %q", cat)
		}
		if caps.MaxTurns < 0 || caps.MaxBudgetUSD < 0 || caps.TimeoutSecs < 0 {
			return fmt.Errorf("config: categories: %q has negative caps", cat)
		}
	}

	if cfg.Fidelity.DefaultLevel == "" {
		cfg.Fidelity.DefaultLevel = "summary:high"
	}
	if !validFidelityLevels[cfg.Fidelity.DefaultLevel] {
		return fmt.Errorf("config: fidelity.default-level %q is not a known level", cfg.Fidelity.DefaultLevel)
	}
	if cfg.Fidelity.DowngradePct == 0 {
		cfg.Fidelity.DowngradePct = 60
	}
	if cfg.Fidelity.UpgradePct == 0 {
		cfg.Fidelity.UpgradePct = 30
	}
	if cfg.Fidelity.UpgradePct >= cfg.Fidelity.DowngradePct {
		return fmt.Errorf("config: fidelity upgrade-pct (%d) must be below downgrade-pct (%d)",
			cfg.Fidelity.UpgradePct, cfg.Fidelity.DowngradePct)
	}
	if cfg.Fidelity.WindowSize <= 0 {
		cfg.Fidelity.WindowSize = 200000
	}

	seen := make(map[string]bool)
	for i := range cfg.Phases {
		p := &cfg.Phases[i]
		if p.Name == "" {
			return fmt.Errorf("config: phase %d: 'name' is required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate phase name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Category == "" {
			return fmt.Errorf("config: phase %q: 'category' is required", p.Name)
		}
		if !validCategories[p.Category] {
			return fmt.Errorf("config: phase %q: unknown category %q", p.Name, p.Category)
		}
		if p.Prompt != "" {
			if strings.Contains(p.Prompt, "..") {
				return fmt.Errorf("config: phase %q: prompt path must not contain '..'", p.Name)
			}
			if _, err := os.Stat(PromptPath(projectRoot, p)); err != nil {
				return fmt.Errorf("config: phase %q: prompt file %q not found", p.Name, p.Prompt)
			}
		}
	}

	for _, g := range cfg.HumanGates {
		if !seen[g] {
			return fmt.Errorf("config: human-gates: unknown phase %q", g)
		}
	}
	for t, skips := range cfg.TierSkips {
		if !validTiers[t] || t == "auto" {
			return fmt.Errorf("config: tier-skips: %q must be a concrete tier", t)
		}
		for _, s := range skips {
			if !seen[s] {
				return fmt.Errorf("config: tier-skips: tier %q skips unknown phase %q", t, s)
			}
		}
	}
	for name := range cfg.PhaseTimeouts {
		if !seen[name] {
			return fmt.Errorf("config: phase-timeouts: unknown phase %q", name)
		}
	}

	return nil
}

// ValidateTicket checks the ticket string against the configured pattern.
// An empty pattern accepts any ticket.
func ValidateTicket(pattern, ticket string) error {
	if pattern == "" {
		return nil
	}
	anchored := pattern
	if !strings.HasPrefix(anchored, "^") {
		anchored = "^(?:" + anchored + ")$"
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return fmt.Errorf("config: invalid ticket-pattern %q: %w", pattern, err)
	}
	if !re.MatchString(ticket) {
		return fmt.Errorf("ticket %q does not match pattern %q", ticket, pattern)
	}
	return nil
}
