// Package gate rejects uses of unstable language constructs unless the
// project manifest opts in. It runs over the same tree as the lifetime
// pass but shares no data with it.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"rill/internal/ast"
	"rill/internal/diag"
)

// knownFeatures is the closed set of gateable constructs the front end
// may mark. Names outside this set point at a front-end/toolchain version
// skew and get their own diagnostic.
var knownFeatures = map[string]struct{}{
	"ref_patterns": {},
	"raw_unions":   {},
	"match_guards": {},
}

// KnownFeatures returns the gateable feature names, sorted.
func KnownFeatures() []string {
	out := make([]string, 0, len(knownFeatures))
	for name := range knownFeatures {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsKnown reports whether name is a gateable feature.
func IsKnown(name string) bool {
	_, ok := knownFeatures[name]
	return ok
}

// Check validates every gate use in the given units against the enabled
// allow-list and reports violations. The pass never fails hard: a bad
// feature name is a diagnostic, not a malformed tree.
func Check(b *ast.Builder, units []ast.UnitID, enabled []string, r diag.Reporter) {
	allow := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		allow[name] = struct{}{}
	}

	for _, unitID := range units {
		unit := b.Units.Get(unitID)
		if unit == nil {
			continue
		}
		for _, use := range unit.Gates {
			name := b.Strings.MustLookup(use.Feature)
			if !IsKnown(name) {
				diag.ReportError(r, diag.GateUnknownFeature, use.Span,
					fmt.Sprintf("unknown feature `%s`", name)).
					WithNote(use.Span, "known features: "+strings.Join(KnownFeatures(), ", ")).
					Emit()
				continue
			}
			if _, ok := allow[name]; ok {
				continue
			}
			diag.ReportError(r, diag.GateFeatureDisabled, use.Span,
				fmt.Sprintf("use of unstable feature `%s`", name)).
				WithFix(fmt.Sprintf("add `%s` to [features].enable in rill.toml", name)).
				Emit()
		}
	}
}
