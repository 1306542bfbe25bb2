// Package lifetime detects borrows of temporaries that outlive their
// referent. The pass runs per unit in five forward stages: scope tree,
// temporary registry, scope-extension resolution, borrow-use collection,
// validity check. Each stage's output is immutable; malformed input fails
// the whole pass with no partial results.
package lifetime

import (
	"rill/internal/ast"
	"rill/internal/scope"
)

// Result carries one unit's analysis output alongside the intermediate
// structures, which callers may inspect for reporting or tests.
type Result struct {
	Unit      ast.UnitID
	Tree      *scope.Tree
	Registry  *Registry
	Conflicts []Conflict
}

// AnalyzeUnit runs the full pass over one unit. The analysis is pure and
// deterministic: running it twice on the same tree yields an identical,
// order-stable conflict list.
func AnalyzeUnit(b *ast.Builder, unitID ast.UnitID) (*Result, error) {
	tree, err := scope.Build(b, unitID)
	if err != nil {
		return nil, err
	}
	reg, err := BuildRegistry(b, tree, unitID)
	if err != nil {
		return nil, err
	}
	NewResolver(b, tree, reg).Resolve()
	col, err := Collect(b, tree, reg, unitID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Unit:      unitID,
		Tree:      tree,
		Registry:  reg,
		Conflicts: Check(b, tree, reg, col),
	}, nil
}
