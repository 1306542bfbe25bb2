package ast

import (
	"testing"

	"rill/internal/source"
	"rill/internal/types"
)

func span(file source.FileID, start, end uint32) source.Span {
	return source.Span{File: file, Start: start, End: end}
}

func TestArenaIDsAreOneBased(t *testing.T) {
	a := NewArena[int](4)
	if got := a.Get(0); got != nil {
		t.Fatalf("Get(0) = %v, want nil", got)
	}
	first := a.Allocate(10)
	second := a.Allocate(20)
	if first != 1 || second != 2 {
		t.Fatalf("allocate ids = %d, %d, want 1, 2", first, second)
	}
	if got := *a.Get(second); got != 20 {
		t.Fatalf("Get(%d) = %d, want 20", second, got)
	}
	if got := a.Get(3); got != nil {
		t.Fatalf("Get(3) = %v, want nil", got)
	}
}

func TestBuilderConstructsUnit(t *testing.T) {
	b := NewBuilder(Hints{}, nil, nil)
	file := source.FileID(1)

	builtins := b.Types.Builtins()
	callee := b.Exprs.NewIdent(span(file, 0, 9), b.Intern("make_temp"), builtins.Invalid)
	call := b.Exprs.NewCall(span(file, 0, 11), callee, nil, builtins.String)
	refType := b.Types.MakeRef(builtins.String)
	borrow := b.Exprs.NewBorrow(span(file, 0, 12), call, refType)
	let := b.Stmts.NewLet(span(file, 0, 20), b.Intern("r"), borrow, false)
	body := b.Exprs.NewBlock(span(file, 0, 22), []StmtID{let}, NoExprID, builtins.Unit)
	unit := b.Units.New(b.Intern("f"), span(file, 0, 22), file, body)

	u := b.Units.Get(unit)
	if u == nil {
		t.Fatal("unit not found")
	}
	blk := b.Exprs.Get(u.Body)
	if blk == nil || blk.Kind != ExprBlock {
		t.Fatalf("body kind = %v, want block", blk)
	}
	if len(blk.Stmts) != 1 || blk.Stmts[0] != let {
		t.Fatalf("block stmts = %v, want [%d]", blk.Stmts, let)
	}
	init := b.Exprs.Get(b.Stmts.Get(let).X)
	if init.Kind != ExprBorrow || init.X != call {
		t.Fatalf("let init = %+v, want borrow of %d", init, call)
	}
	if got := b.Types.MustLookup(init.Type).Kind; got != types.KindRef {
		t.Fatalf("borrow type kind = %v, want ref", got)
	}
}

func TestGateUsesAttachToUnit(t *testing.T) {
	b := NewBuilder(Hints{Units: 1}, nil, nil)
	file := source.FileID(1)
	unit := b.Units.New(b.Intern("f"), span(file, 0, 4), file, NoExprID)
	b.Units.AddGate(unit, b.Intern("match_guards"), span(file, 1, 3))

	gates := b.Units.Get(unit).Gates
	if len(gates) != 1 {
		t.Fatalf("gates = %v, want one entry", gates)
	}
	if got := b.Strings.MustLookup(gates[0].Feature); got != "match_guards" {
		t.Fatalf("feature = %q, want match_guards", got)
	}
}
