// Package scope builds per-unit scope trees: the drop-order skeleton the
// lifetime pass resolves temporaries and borrows against.
package scope

import (
	"rill/internal/ast"
	"rill/internal/source"
)

// ScopeID identifies a scope inside one tree.
type ScopeID uint32

// NoScopeID marks the absence of a scope.
const NoScopeID ScopeID = 0

func (id ScopeID) IsValid() bool { return id != NoScopeID }

// Kind enumerates scope granularities. Statement scopes are where
// non-extended temporaries die; block scopes are where extended ones do.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFunction
	KindBlock
	KindStmt
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	case KindStmt:
		return "stmt"
	default:
		return "invalid"
	}
}

// Scope is one node of the tree. Enter and Exit are positions in the
// unit-wide visit sequence; a child's interval nests strictly inside its
// parent's, so ancestry checks are two comparisons.
type Scope struct {
	Kind   Kind
	Parent ScopeID
	Span   source.Span

	// OwnerStmt is set for statement scopes; OwnerExpr for block and
	// function scopes and for the scope wrapping a block's tail
	// expression.
	OwnerStmt ast.StmtID
	OwnerExpr ast.ExprID

	Enter uint32
	Exit  uint32

	Children []ScopeID
}

type parentRef struct {
	expr ast.ExprID
	stmt ast.StmtID
}

// Tree holds the scopes of one unit plus the maps from tree nodes back
// into it.
type Tree struct {
	scopes *ast.Arena[Scope]
	root   ScopeID

	exprScope  map[ast.ExprID]ScopeID
	stmtScope  map[ast.StmtID]ScopeID
	exprSeq    map[ast.ExprID]uint32
	exprParent map[ast.ExprID]parentRef
}

func newTree(capHint uint) *Tree {
	return &Tree{
		scopes:     ast.NewArena[Scope](capHint),
		exprScope:  make(map[ast.ExprID]ScopeID, capHint*2),
		stmtScope:  make(map[ast.StmtID]ScopeID, capHint),
		exprSeq:    make(map[ast.ExprID]uint32, capHint*2),
		exprParent: make(map[ast.ExprID]parentRef, capHint*2),
	}
}

// Root returns the function scope.
func (t *Tree) Root() ScopeID { return t.root }

// Get returns the scope for id, nil for NoScopeID.
func (t *Tree) Get(id ScopeID) *Scope {
	return t.scopes.Get(uint32(id))
}

// Len reports the number of scopes in the tree.
func (t *Tree) Len() uint32 { return t.scopes.Len() }

// ExprScope returns the innermost scope containing the expression.
func (t *Tree) ExprScope(id ast.ExprID) ScopeID {
	return t.exprScope[id]
}

// StmtScope returns the statement scope created for the statement.
func (t *Tree) StmtScope(id ast.StmtID) ScopeID {
	return t.stmtScope[id]
}

// ExprSeq returns the expression's position in the unit-wide visit
// sequence; ok is false for expressions outside this tree.
func (t *Tree) ExprSeq(id ast.ExprID) (uint32, bool) {
	seq, ok := t.exprSeq[id]
	return seq, ok
}

// ParentExpr returns the parent expression of id, if its direct parent
// is an expression.
func (t *Tree) ParentExpr(id ast.ExprID) (ast.ExprID, bool) {
	ref, ok := t.exprParent[id]
	if !ok || !ref.expr.IsValid() {
		return ast.NoExprID, false
	}
	return ref.expr, true
}

// ParentStmt returns the statement directly containing id, if id is a
// statement's top-level expression.
func (t *Tree) ParentStmt(id ast.ExprID) (ast.StmtID, bool) {
	ref, ok := t.exprParent[id]
	if !ok || !ref.stmt.IsValid() {
		return ast.NoStmtID, false
	}
	return ref.stmt, true
}

// IsAncestorOrSelf reports whether anc encloses desc (or is desc).
// Intervals nest, so containment is equivalent to ancestry.
func (t *Tree) IsAncestorOrSelf(anc, desc ScopeID) bool {
	a, d := t.Get(anc), t.Get(desc)
	if a == nil || d == nil {
		return false
	}
	return a.Enter <= d.Enter && d.Exit <= a.Exit
}

// StmtAncestor walks outward from id to the nearest statement scope,
// returning id itself when it already is one. NoScopeID when none
// encloses it.
func (t *Tree) StmtAncestor(id ScopeID) ScopeID {
	for cur := id; cur.IsValid(); cur = t.Get(cur).Parent {
		if t.Get(cur).Kind == KindStmt {
			return cur
		}
	}
	return NoScopeID
}
