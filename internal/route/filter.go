package route

// ScopeFunc reads the 1–5 scope estimate produced by the scan phase. It is
// only called once the estimate can exist; errors mean the estimate is
// missing or malformed.
type ScopeFunc func() (int, error)

// TierFilter answers "does the active tier run this phase". For the auto
// tier, resolution is lazy and memoized: the first Allows call after the
// scan phase resolves the scope estimate into a concrete tier exactly once,
// and every later call reuses it.
type TierFilter struct {
	declared  Tier
	fallback  Tier
	scope     ScopeFunc
	overrides map[string][]string
	warn      func(format string, args ...any)

	resolved Tier
	skips    map[string]bool
}

// NewTierFilter builds a filter for the declared tier. fallback is used
// when the auto scope estimate is missing or malformed.
func NewTierFilter(declared, fallback Tier, scope ScopeFunc, overrides map[string][]string, warn func(format string, args ...any)) *TierFilter {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	f := &TierFilter{
		declared:  declared,
		fallback:  fallback,
		scope:     scope,
		overrides: overrides,
		warn:      warn,
	}
	if declared.Concrete() {
		f.resolve(declared)
	}
	return f
}

func (f *TierFilter) resolve(t Tier) {
	f.resolved = t
	f.skips = Skips(t, f.overrides)
}

// Resolved returns the concrete tier, resolving auto on first use. A
// missing or out-of-range scope estimate resolves to the configured
// fallback — an explicit decision, not a silent default.
func (f *TierFilter) Resolved() Tier {
	if f.resolved.Concrete() {
		return f.resolved
	}
	scope, err := f.scope()
	if err != nil {
		f.warn("auto tier: scope estimate unavailable (%v), falling back to %s", err, f.fallback)
		f.resolve(f.fallback)
		return f.resolved
	}
	t, ok := ScopeToTier(scope)
	if !ok {
		f.warn("auto tier: scope %d out of range, falling back to %s", scope, f.fallback)
		f.resolve(f.fallback)
		return f.resolved
	}
	f.resolve(t)
	return f.resolved
}

// Label names the tier for display without forcing resolution: before the
// scope estimate exists, the declared tier ("auto") is the honest answer.
func (f *TierFilter) Label() string {
	if f.resolved.Concrete() {
		return f.resolved.String()
	}
	return f.declared.String()
}

// Allows reports whether the active tier runs the phase.
func (f *TierFilter) Allows(phase string) bool {
	f.Resolved()
	return !f.skips[phase]
}
