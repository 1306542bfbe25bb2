package ast

import (
	"rill/internal/source"
)

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtLet
	StmtExpr
	StmtReturn
)

func (k StmtKind) String() string {
	switch k {
	case StmtLet:
		return "let"
	case StmtExpr:
		return "expr"
	case StmtReturn:
		return "return"
	default:
		return "invalid"
	}
}

// Stmt is one statement node.
type Stmt struct {
	Kind StmtKind
	Span source.Span
	// Name: let binding name.
	Name source.StringID
	// Ref: the let pattern binds a reference to the whole initializer
	// value instead of taking ownership (`let ref r = ...`).
	Ref bool
	// X: let initializer / statement expression / return value.
	X ExprID
}

type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts(capHint uint) *Stmts {
	return &Stmts{
		Arena: NewArena[Stmt](capHint),
	}
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

// NewLet binds init to name; ref marks a by-reference pattern.
func (s *Stmts) NewLet(span source.Span, name source.StringID, init ExprID, ref bool) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: StmtLet, Span: span, Name: name, X: init, Ref: ref}))
}

// NewExpr wraps an expression evaluated for effect.
func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: StmtExpr, Span: span, X: expr}))
}

// NewReturn leaves the unit; value may be NoExprID.
func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: StmtReturn, Span: span, X: value}))
}
