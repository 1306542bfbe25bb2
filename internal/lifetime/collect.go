package lifetime

import (
	"fmt"

	"fortio.org/safecast"

	"rill/internal/ast"
	"rill/internal/scope"
	"rill/internal/source"
)

// BorrowID identifies one reference-taking expression.
type BorrowID uint32

// NoBorrowID marks the absence of a borrow.
const NoBorrowID BorrowID = 0

func (id BorrowID) IsValid() bool { return id != NoBorrowID }

// Borrow is a reference rooted in a temporary. References to named
// bindings have no root and are outside this pass's contract.
type Borrow struct {
	Expr ast.ExprID
	Span source.Span
	Root TempID
}

// Use is one later read of a borrow's value, positioned in the unit-wide
// visit sequence so it can be ordered against scope exits.
type Use struct {
	Borrow BorrowID
	Span   source.Span
	Seq    uint32
}

// Collection is the output of the borrow-use walk, in evaluation order.
type Collection struct {
	Borrows []Borrow
	Uses    []Use
}

// Get returns the borrow for id, nil for NoBorrowID.
func (c *Collection) Get(id BorrowID) *Borrow {
	if id == NoBorrowID || int(id) > len(c.Borrows) {
		return nil
	}
	return &c.Borrows[id-1]
}

// UsesOf returns the uses of one borrow in sequence order.
func (c *Collection) UsesOf(id BorrowID) []Use {
	var out []Use
	for _, u := range c.Uses {
		if u.Borrow == id {
			out = append(out, u)
		}
	}
	return out
}

// Collect walks the unit, creating a Borrow for every reference-taking
// expression rooted in a registered temporary and a Use for every later
// read of a binding that holds such a reference.
func Collect(b *ast.Builder, tree *scope.Tree, reg *Registry, unitID ast.UnitID) (*Collection, error) {
	unit := b.Units.Get(unitID)
	if unit == nil {
		return nil, fmt.Errorf("lifetime: unknown unit %d", unitID)
	}
	c := &collector{
		b:        b,
		tree:     tree,
		reg:      reg,
		out:      &Collection{},
		byExpr:   make(map[ast.ExprID]BorrowID, 8),
		bindings: []map[source.StringID]BorrowID{{}},
	}
	if unit.Body.IsValid() {
		if err := c.walkExpr(unit.Body); err != nil {
			return nil, err
		}
	}
	return c.out, nil
}

type collector struct {
	b    *ast.Builder
	tree *scope.Tree
	reg  *Registry
	out  *Collection

	byExpr map[ast.ExprID]BorrowID
	// bindings is a stack of per-block frames mapping binding names to
	// the borrow their value carries; inner frames shadow outer ones.
	bindings []map[source.StringID]BorrowID
}

func (c *collector) push() { c.bindings = append(c.bindings, map[source.StringID]BorrowID{}) }
func (c *collector) pop()  { c.bindings = c.bindings[:len(c.bindings)-1] }

func (c *collector) bind(name source.StringID, borrow BorrowID) {
	c.bindings[len(c.bindings)-1][name] = borrow
}

// rebind updates the frame that declared name; an assignment never
// introduces a new binding. When the assigned value carries no borrow the
// old one is dropped from tracking.
func (c *collector) rebind(name source.StringID, borrow BorrowID, ok bool) {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if _, exists := c.bindings[i][name]; exists {
			if ok {
				c.bindings[i][name] = borrow
			} else {
				delete(c.bindings[i], name)
			}
			return
		}
	}
	if ok {
		c.bind(name, borrow)
	}
}

func (c *collector) lookup(name source.StringID) (BorrowID, bool) {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if id, ok := c.bindings[i][name]; ok {
			return id, true
		}
	}
	return NoBorrowID, false
}

func (c *collector) walkExpr(id ast.ExprID) error {
	expr := c.b.Exprs.Get(id)
	if expr == nil {
		return fmt.Errorf("lifetime: dangling expr %d", id)
	}

	switch expr.Kind {
	case ast.ExprBlock:
		return c.walkBlock(expr)

	case ast.ExprIdent:
		if borrow, ok := c.lookup(expr.Name); ok {
			seq, _ := c.tree.ExprSeq(id)
			c.out.Uses = append(c.out.Uses, Use{Borrow: borrow, Span: expr.Span, Seq: seq})
		}
		return nil

	case ast.ExprBorrow:
		if err := c.walkExpr(expr.X); err != nil {
			return err
		}
		root := c.rootTemp(expr.X)
		if root.IsValid() {
			n, err := safecast.Conv[uint32](len(c.out.Borrows) + 1)
			if err != nil {
				return fmt.Errorf("borrow count overflow: %w", err)
			}
			c.out.Borrows = append(c.out.Borrows, Borrow{Expr: id, Span: expr.Span, Root: root})
			c.byExpr[id] = BorrowID(n)
		}
		return nil

	case ast.ExprAssign:
		if err := c.walkExpr(expr.Y); err != nil {
			return err
		}
		// A bare ident target is a pure write: it does not read the
		// borrow it held before, it replaces it with whatever the value
		// carries.
		if target := c.b.Exprs.Get(expr.X); target != nil && target.Kind == ast.ExprIdent {
			borrow, ok := c.valueBorrow(expr.Y)
			c.rebind(target.Name, borrow, ok)
			return nil
		}
		// Projection targets (*p = v, a.b = v) still read their base.
		return c.walkExpr(expr.X)
	}

	for _, sub := range []ast.ExprID{expr.X, expr.Y} {
		if sub.IsValid() {
			if err := c.walkExpr(sub); err != nil {
				return err
			}
		}
	}
	for _, sub := range expr.List {
		if err := c.walkExpr(sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) walkBlock(block *ast.Expr) error {
	c.push()
	defer c.pop()
	for _, stmtID := range block.Stmts {
		stmt := c.b.Stmts.Get(stmtID)
		if stmt == nil {
			return fmt.Errorf("lifetime: dangling stmt %d", stmtID)
		}
		if stmt.X.IsValid() {
			if err := c.walkExpr(stmt.X); err != nil {
				return err
			}
		}
		// Bind after the initializer has been walked: the new name is
		// not in scope inside its own initializer.
		if stmt.Kind == ast.StmtLet {
			if borrow, ok := c.valueBorrow(stmt.X); ok {
				c.bind(stmt.Name, borrow)
			}
		}
	}
	if block.X.IsValid() {
		return c.walkExpr(block.X)
	}
	return nil
}

// rootTemp resolves the ultimate temporary a borrow operand is rooted in,
// following projections, nested references and bindings that hold
// references. NoTempID when the chain bottoms out in a named value.
func (c *collector) rootTemp(e ast.ExprID) TempID {
	for e.IsValid() {
		if t, ok := c.reg.ByExpr(e); ok {
			return t
		}
		expr := c.b.Exprs.Get(e)
		if expr == nil {
			return NoTempID
		}
		switch expr.Kind {
		case ast.ExprField, ast.ExprIndex, ast.ExprDeref, ast.ExprBorrow, ast.ExprBlock:
			e = expr.X
		case ast.ExprIdent:
			if borrow, ok := c.lookup(expr.Name); ok {
				return c.out.Borrows[borrow-1].Root
			}
			return NoTempID
		default:
			return NoTempID
		}
	}
	return NoTempID
}

// valueBorrow reports the borrow an expression evaluates to, looking
// through blocks, branches and bindings.
func (c *collector) valueBorrow(e ast.ExprID) (BorrowID, bool) {
	if !e.IsValid() {
		return NoBorrowID, false
	}
	expr := c.b.Exprs.Get(e)
	if expr == nil {
		return NoBorrowID, false
	}
	switch expr.Kind {
	case ast.ExprBorrow:
		id, ok := c.byExpr[e]
		return id, ok
	case ast.ExprIdent:
		return c.lookup(expr.Name)
	case ast.ExprBlock:
		return c.valueBorrow(expr.X)
	case ast.ExprIf, ast.ExprMatch:
		// Branches may yield different borrows; track the first one that
		// resolves, which is enough to order a first escaping use.
		for _, arm := range expr.List {
			if id, ok := c.valueBorrow(arm); ok {
				return id, true
			}
		}
	}
	return NoBorrowID, false
}
