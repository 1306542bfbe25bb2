package lifetime

import (
	"rill/internal/ast"
	"rill/internal/scope"
)

// PositionKind classifies an expression by its syntactic role relative to
// its direct parent. The extension rule table is keyed on this closed set;
// adding an extension rule means adding a tag here and a row there, not
// touching the traversal.
type PositionKind uint8

const (
	PosOther PositionKind = iota
	PosTailOfBlock
	PosLetInit    // initializer of a plain `let`; the value is moved into the binding
	PosLetRefInit // initializer of a `let` whose pattern borrows the whole value
	PosRefOperand
	PosAggregateElem
	PosCallArg
	PosCondition
)

func (p PositionKind) String() string {
	switch p {
	case PosTailOfBlock:
		return "tail-of-block"
	case PosLetInit:
		return "let-init"
	case PosLetRefInit:
		return "let-ref-init"
	case PosRefOperand:
		return "ref-operand"
	case PosAggregateElem:
		return "aggregate-elem"
	case PosCallArg:
		return "call-arg"
	case PosCondition:
		return "condition"
	default:
		return "other"
	}
}

// behavior is one row of the extension rule table.
type behavior uint8

const (
	// extendNone keeps the natural scope: the temporary dies at the end
	// of its enclosing statement.
	extendNone behavior = iota
	// extendBinding lengthens the drop scope to the scope of the `let`
	// binding, the enclosing block.
	extendBinding
	// extendForward re-classifies the parent expression and applies its
	// row; this is how `&(&temp)` chains propagate.
	extendForward
	// extendValueHome lengthens the drop scope to wherever the enclosing
	// block's result value comes to rest.
	extendValueHome
)

// ruleTable maps syntactic position to extension behavior. Call
// arguments, conditions and plain `let` initializers never extend: only
// the temporary's own role governs its scope, and the chain stops at the
// first non-extending boundary.
var ruleTable = [...]behavior{
	PosOther:         extendNone,
	PosTailOfBlock:   extendValueHome,
	PosLetInit:       extendNone,
	PosLetRefInit:    extendBinding,
	PosRefOperand:    extendForward,
	PosAggregateElem: extendForward,
	PosCallArg:       extendNone,
	PosCondition:     extendNone,
}

// positionOf classifies id against its direct parent in the tree.
func positionOf(b *ast.Builder, tree *scope.Tree, id ast.ExprID) PositionKind {
	if stmtID, ok := tree.ParentStmt(id); ok {
		stmt := b.Stmts.Get(stmtID)
		if stmt.Kind == ast.StmtLet {
			if stmt.Ref {
				return PosLetRefInit
			}
			return PosLetInit
		}
		return PosOther
	}
	parentID, ok := tree.ParentExpr(id)
	if !ok {
		return PosOther
	}
	parent := b.Exprs.Get(parentID)
	switch parent.Kind {
	case ast.ExprBlock:
		if parent.X == id {
			return PosTailOfBlock
		}
	case ast.ExprBorrow:
		return PosRefOperand
	case ast.ExprTuple, ast.ExprArray, ast.ExprStructLit:
		return PosAggregateElem
	case ast.ExprCall:
		if parent.X != id {
			return PosCallArg
		}
	case ast.ExprIf, ast.ExprMatch:
		if parent.X == id {
			return PosCondition
		}
	}
	return PosOther
}
