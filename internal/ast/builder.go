package ast

import (
	"rill/internal/source"
	"rill/internal/types"
)

type Hints struct{ Units, Stmts, Exprs uint }

// Builder owns the arenas for one decoded tree plus the shared interners.
type Builder struct {
	Units *Units
	Stmts *Stmts
	Exprs *Exprs

	Strings *source.Interner
	Types   *types.Interner
}

func NewBuilder(hints Hints, strings *source.Interner, typeInterner *types.Interner) *Builder {
	if hints.Units == 0 {
		hints.Units = 1 << 5
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	if typeInterner == nil {
		typeInterner = types.NewInterner()
	}
	return &Builder{
		Units:   NewUnits(hints.Units),
		Stmts:   NewStmts(hints.Stmts),
		Exprs:   NewExprs(hints.Exprs),
		Strings: strings,
		Types:   typeInterner,
	}
}

// Intern is a convenience shortcut to the string interner.
func (b *Builder) Intern(s string) source.StringID {
	return b.Strings.Intern(s)
}
