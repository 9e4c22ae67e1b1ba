package config

// Default returns the built-in pipeline configuration: the canonical phase
// order with per-category caps mirroring the scaffolded config. Prompt
// paths are left empty so the result validates without a project on disk.
func Default() *Config {
	cfg := &Config{
		Name: "default",
		Phases: []Phase{
			{Name: PhaseContextScan, Category: CategoryRouting, Description: "Scan the project and estimate scope"},
			{Name: PhaseInterrogate, Category: CategoryGeneration, Description: "Interrogate requirements"},
			{Name: PhaseInterrogation, Category: CategoryReview, Description: "Review interrogation output"},
			{Name: PhaseGenerateDocs, Category: CategoryGeneration, Description: "Generate planning documents"},
			{Name: PhaseDocReview, Category: CategoryReview, Description: "Review generated documents"},
			{Name: PhaseWriteSpecs, Category: CategorySpecification, Description: "Write failing executable specs"},
			{Name: PhaseHoldoutGen, Category: CategoryHoldout, Description: "Generate adversarial holdout scenarios"},
			{Name: PhaseImplement, Category: CategoryImplementation, Description: "Implement plan work items"},
			{Name: PhaseVerify, Category: CategoryVerification, Description: "Verify the implementation"},
			{Name: PhaseHoldoutVal, Category: CategoryHoldout, Description: "Validate against holdout scenarios"},
			{Name: PhaseSecurityAudit, Category: CategorySecurity, Description: "Audit for security blockers"},
			{Name: PhaseSecurityFix, Category: CategoryRemediation, Description: "Fix blocker-severity findings"},
			{Name: PhaseShip, Category: CategoryShip, Description: "Finalize and ship"},
		},
		Categories: map[string]CategoryCaps{
			CategoryRouting:        {MaxTurns: 15, MaxBudgetUSD: 2, TimeoutSecs: 180},
			CategoryGeneration:     {MaxTurns: 50, MaxBudgetUSD: 10, TimeoutSecs: 300},
			CategoryReview:         {MaxTurns: 20, MaxBudgetUSD: 3, TimeoutSecs: 180},
			CategorySpecification:  {MaxTurns: 30, MaxBudgetUSD: 5, TimeoutSecs: 300},
			CategoryHoldout:        {MaxTurns: 25, MaxBudgetUSD: 5, TimeoutSecs: 180},
			CategoryImplementation: {MaxTurns: 40, MaxBudgetUSD: 8, TimeoutSecs: 600},
			CategoryVerification:   {MaxTurns: 15, MaxBudgetUSD: 3, TimeoutSecs: 300},
			CategoryRemediation:    {MaxTurns: 40, MaxBudgetUSD: 8, TimeoutSecs: 600},
			CategorySecurity:       {MaxTurns: 20, MaxBudgetUSD: 3, TimeoutSecs: 180},
			CategoryShip:           {MaxTurns: 20, MaxBudgetUSD: 5, TimeoutSecs: 180},
		},
		Models: Models{
			Default: "sonnet",
			Overrides: map[string]string{
				CategoryGeneration:     "opus",
				CategoryImplementation: "opus",
				CategoryRemediation:    "opus",
				CategoryHoldout:        "opus",
			},
		},
	}
	// Validate applies the remaining defaults; the built-in config never
	// fails validation.
	if err := Validate(cfg, ""); err != nil {
		panic("config: built-in default invalid: " + err.Error())
	}
	return cfg
}
