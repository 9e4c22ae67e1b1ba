// Package verdict defines gate verdicts and the parser that extracts them
// from agent output.
package verdict

import "strings"

// Verdict is the outcome of a gate or review phase.
type Verdict string

const (
	AutoPass      Verdict = "AUTO_PASS"
	Pass          Verdict = "PASS"
	PassWithNotes Verdict = "PASS_WITH_NOTES"
	Iterate       Verdict = "ITERATE"
	Fail          Verdict = "FAIL"
	NeedsHuman    Verdict = "NEEDS_HUMAN"
	Block         Verdict = "BLOCK"
	Unknown       Verdict = "UNKNOWN"
)

// Marker is the token a gate phase must emit on its last verdict line.
const Marker = "VERDICT:"

var known = map[Verdict]bool{
	AutoPass:      true,
	Pass:          true,
	PassWithNotes: true,
	Iterate:       true,
	Fail:          true,
	NeedsHuman:    true,
	Block:         true,
	Unknown:       true,
}

// Valid reports whether v is a member of the closed verdict set.
func (v Verdict) Valid() bool {
	return known[v]
}

// IsPass reports whether v is any of the passing verdicts.
func (v Verdict) IsPass() bool {
	switch v {
	case AutoPass, Pass, PassWithNotes:
		return true
	}
	return false
}

// Parse extracts a verdict from agent output. The last line containing the
// marker wins; the token after the marker must name a known verdict.
// Anything else, including missing markers, yields Unknown — never an error,
// so callers always receive a well-formed value.
func Parse(text string) Verdict {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		idx := strings.LastIndex(lines[i], Marker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lines[i][idx+len(Marker):])
		if rest == "" {
			return Unknown
		}
		token := strings.Fields(rest)[0]
		token = strings.Trim(token, ".,;:!*`")
		v := Verdict(strings.ToUpper(token))
		if v.Valid() {
			return v
		}
		return Unknown
	}
	return Unknown
}

// severity orders verdicts from strictest to most lenient for reconciliation.
// Lower is stricter.
var severity = map[Verdict]int{
	Fail:          0,
	Block:         1,
	Iterate:       2,
	NeedsHuman:    3,
	PassWithNotes: 4,
	Pass:          5,
	AutoPass:      6,
}

// Reconcile resolves multiple review passes to a single verdict. Unknown
// entries are discarded. Unanimous agreement returns that verdict; any
// disagreement resolves immediately to the strictest member — no further
// passes are ever requested.
func Reconcile(verdicts ...Verdict) Verdict {
	var kept []Verdict
	for _, v := range verdicts {
		if v != Unknown && v.Valid() && v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return Unknown
	}
	strictest := kept[0]
	unanimous := true
	for _, v := range kept[1:] {
		if v != kept[0] {
			unanimous = false
		}
		if severity[v] < severity[strictest] {
			strictest = v
		}
	}
	if unanimous {
		return kept[0]
	}
	return strictest
}
