package lifetime

import (
	"rill/internal/ast"
	"rill/internal/scope"
)

// Resolver assigns every registered temporary its drop scope by applying
// the extension rule table to the temporary's syntactic position.
type Resolver struct {
	b    *ast.Builder
	tree *scope.Tree
	reg  *Registry
}

func NewResolver(b *ast.Builder, tree *scope.Tree, reg *Registry) *Resolver {
	return &Resolver{b: b, tree: tree, reg: reg}
}

// Resolve moves every temporary from Registered to Resolved. Extension
// only ever lengthens a lifetime; a target that would not enclose the
// natural scope falls back to it.
func (r *Resolver) Resolve() {
	for i := range r.reg.temps {
		t := &r.reg.temps[i]
		drop := r.extendedScope(t.Expr)
		if !r.tree.IsAncestorOrSelf(drop, t.Natural) {
			drop = t.Natural
		}
		t.Drop = drop
		t.State = StateResolved
	}
}

// extendedScope runs the rule table upward from the temporary. Forwarding
// rows move to the parent expression and re-classify; terminal rows
// produce the scope. The walk strictly ascends the expression tree, so it
// terminates in depth-of-tree steps.
func (r *Resolver) extendedScope(temp ast.ExprID) scope.ScopeID {
	cur := temp
	for {
		pos := positionOf(r.b, r.tree, cur)
		switch ruleTable[pos] {
		case extendBinding:
			stmtID, ok := r.tree.ParentStmt(cur)
			if !ok {
				return naturalScope(r.tree, temp)
			}
			return r.bindingScope(stmtID)
		case extendForward:
			parent, ok := r.tree.ParentExpr(cur)
			if !ok {
				return naturalScope(r.tree, temp)
			}
			cur = parent
		case extendValueHome:
			parent, ok := r.tree.ParentExpr(cur)
			if !ok {
				return naturalScope(r.tree, temp)
			}
			return r.valueHome(parent)
		default:
			return naturalScope(r.tree, temp)
		}
	}
}

// valueHome finds the scope in which the value of e comes to rest: through
// nested tail positions and aggregate moves up to a `let` binding, or the
// enclosing statement when the value is consumed or discarded there.
func (r *Resolver) valueHome(e ast.ExprID) scope.ScopeID {
	for {
		switch positionOf(r.b, r.tree, e) {
		case PosTailOfBlock, PosAggregateElem:
			parent, ok := r.tree.ParentExpr(e)
			if !ok {
				return naturalScope(r.tree, e)
			}
			e = parent
		case PosLetInit, PosLetRefInit:
			stmtID, ok := r.tree.ParentStmt(e)
			if !ok {
				return naturalScope(r.tree, e)
			}
			return r.bindingScope(stmtID)
		case PosRefOperand:
			// The value is borrowed in place: it materializes as a
			// temporary right here, so its rest scope is that
			// temporary's extension target.
			return r.extendedScope(e)
		default:
			return naturalScope(r.tree, e)
		}
	}
}

// bindingScope is where a `let` binding lives: the block enclosing the
// statement.
func (r *Resolver) bindingScope(stmtID ast.StmtID) scope.ScopeID {
	ss := r.tree.StmtScope(stmtID)
	if sc := r.tree.Get(ss); sc != nil && sc.Parent.IsValid() {
		return sc.Parent
	}
	return ss
}
