package scope

import (
	"fmt"

	"rill/internal/ast"
	"rill/internal/source"
)

// Build constructs the scope tree for one unit. The walk follows
// evaluation order, numbering every expression and every scope boundary
// from a single counter.
//
// Dangling node IDs are hard errors: a tree that references nodes it does
// not contain yields no result at all.
func Build(b *ast.Builder, unitID ast.UnitID) (*Tree, error) {
	unit := b.Units.Get(unitID)
	if unit == nil {
		return nil, fmt.Errorf("scope: unknown unit %d", unitID)
	}

	w := &walker{b: b, tree: newTree(uint(b.Stmts.Arena.Len()) + 2)}
	root := w.open(KindFunction, unit.Span, NoScopeID)
	w.tree.Get(root).OwnerExpr = unit.Body
	w.tree.root = root

	if unit.Body.IsValid() {
		body := b.Exprs.Get(unit.Body)
		if body == nil {
			return nil, fmt.Errorf("scope: unit %d: dangling body expr %d", unitID, unit.Body)
		}
		if body.Kind != ast.ExprBlock {
			return nil, fmt.Errorf("scope: unit %d: body is %s, want block", unitID, body.Kind)
		}
		if err := w.walkExpr(unit.Body, root, parentRef{}); err != nil {
			return nil, err
		}
	}
	w.close(root)
	return w.tree, nil
}

type walker struct {
	b    *ast.Builder
	tree *Tree
	seq  uint32
}

func (w *walker) next() uint32 {
	w.seq++
	return w.seq
}

func (w *walker) open(kind Kind, span source.Span, parent ScopeID) ScopeID {
	id := ScopeID(w.tree.scopes.Allocate(Scope{
		Kind:   kind,
		Parent: parent,
		Span:   span,
		Enter:  w.next(),
	}))
	if parent.IsValid() {
		p := w.tree.Get(parent)
		p.Children = append(p.Children, id)
	}
	return id
}

func (w *walker) close(id ScopeID) {
	w.tree.Get(id).Exit = w.next()
}

func (w *walker) walkBlock(blockID ast.ExprID, parent ScopeID) error {
	block := w.b.Exprs.Get(blockID)
	sc := w.open(KindBlock, block.Span, parent)
	w.tree.Get(sc).OwnerExpr = blockID

	for _, stmtID := range block.Stmts {
		stmt := w.b.Stmts.Get(stmtID)
		if stmt == nil {
			return fmt.Errorf("scope: dangling stmt %d in block %d", stmtID, blockID)
		}
		ss := w.open(KindStmt, stmt.Span, sc)
		w.tree.Get(ss).OwnerStmt = stmtID
		w.tree.stmtScope[stmtID] = ss
		if stmt.X.IsValid() {
			if err := w.walkExpr(stmt.X, ss, parentRef{stmt: stmtID}); err != nil {
				return err
			}
		}
		w.close(ss)
	}

	// The tail expression gets its own statement scope: its non-extended
	// temporaries die when the tail finishes, before the block's bindings.
	if block.X.IsValid() {
		ts := w.open(KindStmt, w.spanOf(block.X), sc)
		w.tree.Get(ts).OwnerExpr = block.X
		if err := w.walkExpr(block.X, ts, parentRef{expr: blockID}); err != nil {
			return err
		}
		w.close(ts)
	}

	w.close(sc)
	return nil
}

func (w *walker) spanOf(id ast.ExprID) source.Span {
	if e := w.b.Exprs.Get(id); e != nil {
		return e.Span
	}
	return source.Span{}
}

func (w *walker) walkExpr(id ast.ExprID, sc ScopeID, parent parentRef) error {
	expr := w.b.Exprs.Get(id)
	if expr == nil {
		return fmt.Errorf("scope: dangling expr %d", id)
	}
	w.tree.exprScope[id] = sc
	w.tree.exprSeq[id] = w.next()
	w.tree.exprParent[id] = parent

	if expr.Kind == ast.ExprBlock {
		return w.walkBlock(id, sc)
	}

	child := parentRef{expr: id}
	if expr.X.IsValid() {
		if err := w.walkExpr(expr.X, sc, child); err != nil {
			return err
		}
	}
	if expr.Y.IsValid() {
		if err := w.walkExpr(expr.Y, sc, child); err != nil {
			return err
		}
	}
	for _, sub := range expr.List {
		if err := w.walkExpr(sub, sc, child); err != nil {
			return err
		}
	}
	return nil
}
