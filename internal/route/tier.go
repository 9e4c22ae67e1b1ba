// Package route decides which phase runs next: a static gate/verdict lookup
// table that fails closed, plus the tier filter that skips phases outside
// the active thoroughness profile.
package route

import (
	"fmt"
	"strings"

	"github.com/example/anvil/internal/config"
)

// Tier selects which phases run, trading thoroughness against cost.
type Tier string

const (
	TierGuard    Tier = "guard"
	TierNano     Tier = "nano"
	TierQuick    Tier = "quick"
	TierLite     Tier = "lite"
	TierStandard Tier = "standard"
	TierFull     Tier = "full"
	TierAuto     Tier = "auto"
)

// ParseTier converts a string to a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(s))
	switch t {
	case TierGuard, TierNano, TierQuick, TierLite, TierStandard, TierFull, TierAuto:
		return t, nil
	}
	return "", fmt.Errorf("unknown tier: %s", s)
}

// Concrete reports whether the tier is resolved (anything but auto).
func (t Tier) Concrete() bool { return t != TierAuto && t != "" }

func (t Tier) String() string { return string(t) }

// defaultSkips is the built-in tier → skipped-phase mapping, from the
// smallest profile (guard: scan, audit, ship only) up to full.
var defaultSkips = map[Tier][]string{
	TierGuard: {
		config.PhaseInterrogate, config.PhaseInterrogation,
		config.PhaseGenerateDocs, config.PhaseDocReview,
		config.PhaseWriteSpecs, config.PhaseHoldoutGen,
		config.PhaseImplement, config.PhaseVerify, config.PhaseHoldoutVal,
	},
	TierNano: {
		config.PhaseInterrogate, config.PhaseInterrogation,
		config.PhaseGenerateDocs, config.PhaseDocReview,
		config.PhaseWriteSpecs, config.PhaseHoldoutGen,
		config.PhaseHoldoutVal, config.PhaseSecurityAudit, config.PhaseSecurityFix,
	},
	TierQuick: {
		config.PhaseInterrogation, config.PhaseGenerateDocs,
		config.PhaseDocReview, config.PhaseHoldoutGen,
		config.PhaseHoldoutVal, config.PhaseSecurityAudit, config.PhaseSecurityFix,
	},
	TierLite: {
		config.PhaseInterrogation, config.PhaseGenerateDocs,
		config.PhaseDocReview, config.PhaseSecurityAudit, config.PhaseSecurityFix,
	},
	TierStandard: {config.PhaseSecurityAudit, config.PhaseSecurityFix},
	TierFull:     {},
}

// Skips returns the phases a concrete tier excludes, with config overrides
// taking precedence over the built-in mapping.
func Skips(t Tier, overrides map[string][]string) map[string]bool {
	var list []string
	if o, ok := overrides[string(t)]; ok {
		list = o
	} else {
		list = defaultSkips[t]
	}
	skip := make(map[string]bool, len(list))
	for _, p := range list {
		skip[p] = true
	}
	return skip
}

// ScopeToTier maps a 1–5 scope estimate to a concrete tier.
func ScopeToTier(scope int) (Tier, bool) {
	switch scope {
	case 1:
		return TierNano, true
	case 2:
		return TierQuick, true
	case 3:
		return TierLite, true
	case 4:
		return TierStandard, true
	case 5:
		return TierFull, true
	}
	return "", false
}
