package lifetime

import (
	"rill/internal/ast"
	"rill/internal/scope"
)

// Check decides validity for every borrow: a use escapes when it comes
// after the rooted temporary's drop scope has closed. Only the first
// escaping use per borrow is reported, so one root cause yields one
// conflict. Borrows with no escaping use are valid and stay silent.
func Check(b *ast.Builder, tree *scope.Tree, reg *Registry, col *Collection) []Conflict {
	var conflicts []Conflict

	for i := range col.Borrows {
		borrow := &col.Borrows[i]
		id := BorrowID(i + 1)
		temp := reg.Get(borrow.Root)
		if temp == nil || !temp.Drop.IsValid() {
			continue
		}
		drop := tree.Get(temp.Drop)

		for _, use := range col.UsesOf(id) {
			if use.Seq <= drop.Exit {
				continue
			}
			expr := b.Exprs.Get(temp.Expr)
			conflicts = append(conflicts, Conflict{
				Temp:    borrow.Root,
				Borrow:  id,
				Created: expr.Span,
				Freed:   drop.Span.CollapseToEnd(),
				Used:    use.Span,
			})
			temp.Conflicting = true
			break
		}
	}

	for i := range reg.temps {
		reg.temps[i].State = StateChecked
	}
	return conflicts
}
