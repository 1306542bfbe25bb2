package lifetime

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/ast"
	"rill/internal/scope"
	"rill/internal/types"
)

// TempID identifies a registered temporary inside one analysis.
type TempID uint32

// NoTempID marks the absence of a temporary.
const NoTempID TempID = 0

func (id TempID) IsValid() bool { return id != NoTempID }

// State tracks a temporary through the pass. Terminal state is
// StateChecked; no temporary is revisited after that.
type State uint8

const (
	StateRegistered State = iota
	StateResolved
	StateChecked
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateChecked:
		return "checked"
	default:
		return "registered"
	}
}

// Temp is one registered temporary: a value-producing expression with no
// stable name whose type runs a destructor when discarded.
type Temp struct {
	Expr ast.ExprID
	Type types.TypeID

	// Natural is the innermost statement scope enclosing the expression;
	// the baseline lifetime is "to the end of the enclosing statement".
	Natural scope.ScopeID
	// Drop is assigned by the resolver: always an ancestor-or-self of
	// Natural.
	Drop scope.ScopeID

	State       State
	Conflicting bool
}

// Registry holds the temporaries of one unit in evaluation order.
type Registry struct {
	temps  []Temp
	byExpr map[ast.ExprID]TempID
}

// Get returns the temporary for id, nil for NoTempID.
func (r *Registry) Get(id TempID) *Temp {
	if id == NoTempID || int(id) > len(r.temps) {
		return nil
	}
	return &r.temps[id-1]
}

// ByExpr returns the temporary registered for the expression.
func (r *Registry) ByExpr(id ast.ExprID) (TempID, bool) {
	t, ok := r.byExpr[id]
	return t, ok
}

// Len reports the number of registered temporaries.
func (r *Registry) Len() int { return len(r.temps) }

// Temps exposes the backing storage in registration order. READONLY.
func (r *Registry) Temps() []Temp { return r.temps }

func (r *Registry) add(t Temp) TempID {
	n, err := safecast.Conv[uint32](len(r.temps) + 1)
	if err != nil {
		panic(fmt.Errorf("temporary count overflow: %w", err))
	}
	r.temps = append(r.temps, t)
	id := TempID(n)
	r.byExpr[t.Expr] = id
	return id
}

// isTemporaryKind reports whether the kind produces a fresh value. A
// projection or an identifier names storage that already exists, so it
// never materializes a value of its own.
func isTemporaryKind(k ast.ExprKind) bool {
	switch k {
	case ast.ExprCall, ast.ExprTuple, ast.ExprArray, ast.ExprStructLit,
		ast.ExprIf, ast.ExprMatch, ast.ExprLit:
		return true
	default:
		return false
	}
}

// BuildRegistry walks the unit in evaluation order and records every
// temporary: a non-place expression whose type needs drop and whose value
// is not moved straight into a plain `let` binding.
func BuildRegistry(b *ast.Builder, tree *scope.Tree, unitID ast.UnitID) (*Registry, error) {
	unit := b.Units.Get(unitID)
	if unit == nil {
		return nil, fmt.Errorf("lifetime: unknown unit %d", unitID)
	}
	reg := &Registry{byExpr: make(map[ast.ExprID]TempID, 16)}
	if !unit.Body.IsValid() {
		return reg, nil
	}
	if err := registerExprs(b, tree, reg, unit.Body); err != nil {
		return nil, err
	}
	return reg, nil
}

func registerExprs(b *ast.Builder, tree *scope.Tree, reg *Registry, id ast.ExprID) error {
	expr := b.Exprs.Get(id)
	if expr == nil {
		return fmt.Errorf("lifetime: dangling expr %d", id)
	}

	if isTemporaryKind(expr.Kind) && b.Types.NeedsDrop(expr.Type) &&
		positionOf(b, tree, id) != PosLetInit {
		reg.add(Temp{
			Expr:    id,
			Type:    expr.Type,
			Natural: naturalScope(tree, id),
			State:   StateRegistered,
		})
	}

	if expr.Kind == ast.ExprBlock {
		for _, stmtID := range expr.Stmts {
			stmt := b.Stmts.Get(stmtID)
			if stmt == nil {
				return fmt.Errorf("lifetime: dangling stmt %d", stmtID)
			}
			if stmt.X.IsValid() {
				if err := registerExprs(b, tree, reg, stmt.X); err != nil {
					return err
				}
			}
		}
		if expr.X.IsValid() {
			return registerExprs(b, tree, reg, expr.X)
		}
		return nil
	}

	for _, sub := range []ast.ExprID{expr.X, expr.Y} {
		if sub.IsValid() {
			if err := registerExprs(b, tree, reg, sub); err != nil {
				return err
			}
		}
	}
	for _, sub := range expr.List {
		if err := registerExprs(b, tree, reg, sub); err != nil {
			return err
		}
	}
	return nil
}

// naturalScope is the innermost statement scope enclosing the expression,
// falling back to the innermost scope itself at the unit's top level.
func naturalScope(tree *scope.Tree, id ast.ExprID) scope.ScopeID {
	sc := tree.ExprScope(id)
	if ss := tree.StmtAncestor(sc); ss.IsValid() {
		return ss
	}
	return sc
}
