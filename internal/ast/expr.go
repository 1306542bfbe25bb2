package ast

import (
	"rill/internal/source"
	"rill/internal/types"
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIdent
	ExprLit
	ExprCall
	ExprBorrow // &operand
	ExprDeref  // *operand
	ExprField
	ExprIndex
	ExprTuple
	ExprArray
	ExprStructLit
	ExprBlock // { stmts; tail }
	ExprIf
	ExprMatch
	ExprAssign
)

func (k ExprKind) String() string {
	switch k {
	case ExprIdent:
		return "ident"
	case ExprLit:
		return "lit"
	case ExprCall:
		return "call"
	case ExprBorrow:
		return "borrow"
	case ExprDeref:
		return "deref"
	case ExprField:
		return "field"
	case ExprIndex:
		return "index"
	case ExprTuple:
		return "tuple"
	case ExprArray:
		return "array"
	case ExprStructLit:
		return "struct"
	case ExprBlock:
		return "block"
	case ExprIf:
		return "if"
	case ExprMatch:
		return "match"
	case ExprAssign:
		return "assign"
	default:
		return "invalid"
	}
}

// Expr is one typed expression node. Operand slots are shared across
// kinds; constructors document the layout per kind.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Type types.TypeID

	// X: borrow/deref operand, callee, field/index base, block tail,
	// if condition, match scrutinee, assign target.
	X ExprID
	// Y: index expression, assign value.
	Y ExprID
	// List: call arguments, aggregate elements, if branches, match arm
	// bodies.
	List []ExprID
	// Stmts: block statements (ExprBlock only).
	Stmts []StmtID
	// Name: ident, field name, struct literal type name.
	Name source.StringID
}

type Exprs struct {
	Arena *Arena[Expr]
}

func NewExprs(capHint uint) *Exprs {
	return &Exprs{
		Arena: NewArena[Expr](capHint),
	}
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) new(expr Expr) ExprID {
	return ExprID(e.Arena.Allocate(expr))
}

// NewIdent references a named binding.
func (e *Exprs) NewIdent(span source.Span, name source.StringID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprIdent, Span: span, Name: name, Type: typ})
}

// NewLit produces a literal value.
func (e *Exprs) NewLit(span source.Span, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprLit, Span: span, Type: typ})
}

// NewCall invokes callee with args; the call result carries typ.
func (e *Exprs) NewCall(span source.Span, callee ExprID, args []ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprCall, Span: span, X: callee, List: args, Type: typ})
}

// NewBorrow takes a reference to operand.
func (e *Exprs) NewBorrow(span source.Span, operand ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprBorrow, Span: span, X: operand, Type: typ})
}

// NewDeref dereferences operand.
func (e *Exprs) NewDeref(span source.Span, operand ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprDeref, Span: span, X: operand, Type: typ})
}

// NewField projects a named field out of base.
func (e *Exprs) NewField(span source.Span, base ExprID, name source.StringID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprField, Span: span, X: base, Name: name, Type: typ})
}

// NewIndex projects an element out of base.
func (e *Exprs) NewIndex(span source.Span, base, index ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprIndex, Span: span, X: base, Y: index, Type: typ})
}

// NewTuple builds a tuple literal.
func (e *Exprs) NewTuple(span source.Span, elems []ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprTuple, Span: span, List: elems, Type: typ})
}

// NewArray builds an array literal.
func (e *Exprs) NewArray(span source.Span, elems []ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprArray, Span: span, List: elems, Type: typ})
}

// NewStructLit builds a struct literal; elems follow field order.
func (e *Exprs) NewStructLit(span source.Span, name source.StringID, elems []ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprStructLit, Span: span, Name: name, List: elems, Type: typ})
}

// NewBlock builds a block expression; tail may be NoExprID.
func (e *Exprs) NewBlock(span source.Span, stmts []StmtID, tail ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprBlock, Span: span, Stmts: stmts, X: tail, Type: typ})
}

// NewIf builds a conditional; elseBlock may be NoExprID.
func (e *Exprs) NewIf(span source.Span, cond, thenBlock, elseBlock ExprID, typ types.TypeID) ExprID {
	list := []ExprID{thenBlock}
	if elseBlock.IsValid() {
		list = append(list, elseBlock)
	}
	return e.new(Expr{Kind: ExprIf, Span: span, X: cond, List: list, Type: typ})
}

// NewMatch builds a match over scrutinee; arms are the arm body blocks in
// textual order.
func (e *Exprs) NewMatch(span source.Span, scrutinee ExprID, arms []ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprMatch, Span: span, X: scrutinee, List: arms, Type: typ})
}

// NewAssign stores value into target.
func (e *Exprs) NewAssign(span source.Span, target, value ExprID, typ types.TypeID) ExprID {
	return e.new(Expr{Kind: ExprAssign, Span: span, X: target, Y: value, Type: typ})
}
