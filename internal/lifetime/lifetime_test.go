package lifetime

import (
	"reflect"
	"testing"

	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/source"
	"rill/internal/types"
)

func sp(start, end uint32) source.Span {
	return source.Span{File: 1, Start: start, End: end}
}

type fixture struct {
	b   *ast.Builder
	bt  types.Builtins
	buf types.TypeID // destructor-bearing struct
	ref types.TypeID // &Buf
}

func newFixture() *fixture {
	b := ast.NewBuilder(ast.Hints{}, nil, nil)
	f := &fixture{b: b, bt: b.Types.Builtins()}
	f.buf = b.Types.MakeStruct(b.Intern("Buf"), true)
	f.ref = b.Types.MakeRef(f.buf)
	return f
}

// call builds `name(args...)` returning typ.
func (f *fixture) call(name string, lo, hi uint32, typ types.TypeID, args ...ast.ExprID) ast.ExprID {
	callee := f.b.Exprs.NewIdent(sp(lo, lo+1), f.b.Intern(name), f.bt.Invalid)
	return f.b.Exprs.NewCall(sp(lo, hi), callee, args, typ)
}

// use builds the statement `use(name);` with the argument ident at
// [lo+4, lo+5).
func (f *fixture) use(name string, lo uint32, argType types.TypeID) (ast.StmtID, source.Span) {
	argSpan := sp(lo+4, lo+5)
	arg := f.b.Exprs.NewIdent(argSpan, f.b.Intern(name), argType)
	c := f.call("use", lo, lo+6, f.bt.Unit, arg)
	return f.b.Stmts.NewExpr(sp(lo, lo+7), c), argSpan
}

func (f *fixture) unit(body ast.ExprID) ast.UnitID {
	e := f.b.Exprs.Get(body)
	return f.b.Units.New(f.b.Intern("f"), e.Span, 1, body)
}

func analyze(t *testing.T, f *fixture, unit ast.UnitID) *Result {
	t.Helper()
	res, err := AnalyzeUnit(f.b, unit)
	if err != nil {
		t.Fatalf("AnalyzeUnit: %v", err)
	}
	return res
}

// { let r = &make_temp(); use(r); }
func simpleEscape(f *fixture) (ast.UnitID, ast.ExprID, source.Span, source.Span) {
	temp := f.call("make_temp", 12, 23, f.buf)
	borrow := f.b.Exprs.NewBorrow(sp(11, 23), temp, f.ref)
	let := f.b.Stmts.NewLet(sp(4, 24), f.b.Intern("r"), borrow, false)
	use, useSpan := f.use("r", 29, f.ref)
	body := f.b.Exprs.NewBlock(sp(0, 40), []ast.StmtID{let, use}, ast.NoExprID, f.bt.Unit)
	return f.unit(body), temp, sp(4, 24), useSpan
}

func TestSimpleEscapeReportsOneConflict(t *testing.T) {
	f := newFixture()
	unit, temp, letSpan, useSpan := simpleEscape(f)

	res := analyze(t, f, unit)
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(res.Conflicts))
	}
	c := res.Conflicts[0]
	if c.Created != f.b.Exprs.Get(temp).Span {
		t.Errorf("created = %v, want %v", c.Created, f.b.Exprs.Get(temp).Span)
	}
	if want := letSpan.CollapseToEnd(); c.Freed != want {
		t.Errorf("freed = %v, want end of let statement %v", c.Freed, want)
	}
	if c.Used != useSpan {
		t.Errorf("used = %v, want %v", c.Used, useSpan)
	}
}

// { let x = &(make_temp(),); use(x); }: the reference is the plain
// initializer, not a tail expression, so the tuple dies with the let
// statement.
func TestTupleBorrowEscapes(t *testing.T) {
	f := newFixture()
	tupleT := f.b.Types.MakeTuple([]types.TypeID{f.buf})
	temp := f.call("make_temp", 13, 24, f.buf)
	tuple := f.b.Exprs.NewTuple(sp(12, 27), []ast.ExprID{temp}, tupleT)
	borrow := f.b.Exprs.NewBorrow(sp(11, 27), tuple, f.b.Types.MakeRef(tupleT))
	let := f.b.Stmts.NewLet(sp(4, 28), f.b.Intern("x"), borrow, false)
	use, useSpan := f.use("x", 33, f.b.Types.MakeRef(tupleT))
	body := f.b.Exprs.NewBlock(sp(0, 44), []ast.StmtID{let, use}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(res.Conflicts))
	}
	c := res.Conflicts[0]
	if want := sp(12, 27); c.Created != want {
		t.Errorf("created = %v, want the tuple expression %v", c.Created, want)
	}
	if want := sp(28, 28); c.Freed != want {
		t.Errorf("freed = %v, want end of let statement %v", c.Freed, want)
	}
	if c.Used != useSpan {
		t.Errorf("used = %v, want %v", c.Used, useSpan)
	}
}

// { let x = { &make_temp() }; use(x); }: tail position extends the
// temporary to the scope of x.
func TestTailExtensionSuppressesConflict(t *testing.T) {
	f := newFixture()
	temp := f.call("make_temp", 14, 25, f.buf)
	borrow := f.b.Exprs.NewBorrow(sp(13, 25), temp, f.ref)
	inner := f.b.Exprs.NewBlock(sp(11, 27), nil, borrow, f.ref)
	let := f.b.Stmts.NewLet(sp(4, 28), f.b.Intern("x"), inner, false)
	use, _ := f.use("x", 33, f.ref)
	body := f.b.Exprs.NewBlock(sp(0, 44), []ast.StmtID{let, use}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 0 {
		t.Fatalf("conflicts = %v, want none", res.Conflicts)
	}

	// The drop scope must be the block that owns the binding.
	tempID, ok := res.Registry.ByExpr(temp)
	if !ok {
		t.Fatal("temporary not registered")
	}
	outerBlock := res.Tree.Get(res.Tree.Root()).Children[0]
	if got := res.Registry.Get(tempID).Drop; got != outerBlock {
		t.Errorf("drop scope = %d, want enclosing block %d", got, outerBlock)
	}
}

// { let x = { &&make_temp() }; use(x); } extends through both reference
// levels; dropping the block (plain `let x = &&make_temp();`) must still
// reject.
func TestChainedExtension(t *testing.T) {
	build := func(f *fixture, viaBlock bool) ast.UnitID {
		refRef := f.b.Types.MakeRef(f.ref)
		temp := f.call("make_temp", 15, 26, f.buf)
		innerB := f.b.Exprs.NewBorrow(sp(14, 26), temp, f.ref)
		outerB := f.b.Exprs.NewBorrow(sp(13, 26), innerB, refRef)
		init := outerB
		if viaBlock {
			init = f.b.Exprs.NewBlock(sp(11, 28), nil, outerB, refRef)
		}
		let := f.b.Stmts.NewLet(sp(4, 29), f.b.Intern("x"), init, false)
		use, _ := f.use("x", 34, refRef)
		body := f.b.Exprs.NewBlock(sp(0, 45), []ast.StmtID{let, use}, ast.NoExprID, f.bt.Unit)
		return f.unit(body)
	}

	f := newFixture()
	res := analyze(t, f, build(f, true))
	if len(res.Conflicts) != 0 {
		t.Fatalf("tail chain: conflicts = %v, want none", res.Conflicts)
	}

	f = newFixture()
	res = analyze(t, f, build(f, false))
	if len(res.Conflicts) != 1 {
		t.Fatalf("broken chain: conflicts = %d, want 1", len(res.Conflicts))
	}
}

// A temporary borrowed as a call argument is never extended, even when
// the call itself sits in tail position.
func TestCallArgumentIsNotExtended(t *testing.T) {
	f := newFixture()
	temp := f.call("make_temp", 9, 20, f.buf)
	borrow := f.b.Exprs.NewBorrow(sp(8, 20), temp, f.ref)
	wrap := f.call("wrap", 2, 22, f.bt.Int, borrow)
	body := f.b.Exprs.NewBlock(sp(0, 24), nil, wrap, f.bt.Int)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 0 {
		t.Fatalf("conflicts = %v, want none (no later use)", res.Conflicts)
	}
	tempID, ok := res.Registry.ByExpr(temp)
	if !ok {
		t.Fatal("temporary not registered")
	}
	tt := res.Registry.Get(tempID)
	if tt.Drop != tt.Natural {
		t.Errorf("drop = %d, natural = %d, want no extension", tt.Drop, tt.Natural)
	}
}

// The borrow held in r is used as a call argument in a later statement;
// that use escapes r's referent.
func TestBorrowUsedAsLaterArgumentIsFlagged(t *testing.T) {
	f := newFixture()
	temp := f.call("make_temp", 12, 23, f.buf)
	borrow := f.b.Exprs.NewBorrow(sp(11, 23), temp, f.ref)
	let := f.b.Stmts.NewLet(sp(4, 24), f.b.Intern("r"), borrow, false)
	use, useSpan := f.use("r", 29, f.ref)
	body := f.b.Exprs.NewBlock(sp(0, 40), []ast.StmtID{let, use}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 1 || res.Conflicts[0].Used != useSpan {
		t.Fatalf("conflicts = %v, want one at %v", res.Conflicts, useSpan)
	}
}

// `let ref r = make_temp();` binds a reference to the whole value: the
// temporary lives as long as the binding.
func TestLetRefInitializerExtends(t *testing.T) {
	f := newFixture()
	temp := f.call("make_temp", 16, 27, f.buf)
	let := f.b.Stmts.NewLet(sp(4, 28), f.b.Intern("r"), temp, true)
	body := f.b.Exprs.NewBlock(sp(0, 30), []ast.StmtID{let}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	tempID, ok := res.Registry.ByExpr(temp)
	if !ok {
		t.Fatal("temporary not registered")
	}
	block := res.Tree.Get(res.Tree.Root()).Children[0]
	if got := res.Registry.Get(tempID).Drop; got != block {
		t.Errorf("drop scope = %d, want binding block %d", got, block)
	}
}

// A destructor-bearing union constructed and discarded without any borrow
// yields no conflict: there is nothing to check, only something to drop.
func TestDiscardedUnionIsNotFlagged(t *testing.T) {
	f := newFixture()
	unionT := f.b.Types.MakeUnion(f.b.Intern("Packet"), true)
	payload := f.b.Exprs.NewLit(sp(12, 14), f.bt.Int)
	lit := f.b.Exprs.NewStructLit(sp(4, 15), f.b.Intern("Packet"), []ast.ExprID{payload}, unionT)
	stmt := f.b.Stmts.NewExpr(sp(4, 16), lit)
	body := f.b.Exprs.NewBlock(sp(0, 18), []ast.StmtID{stmt}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 0 {
		t.Fatalf("conflicts = %v, want none", res.Conflicts)
	}
	if res.Registry.Len() != 1 {
		t.Fatalf("registered temps = %d, want the union literal only", res.Registry.Len())
	}
	temp := res.Registry.Temps()[0]
	if temp.State != StateChecked || temp.Conflicting {
		t.Errorf("temp = %+v, want checked and valid", temp)
	}
}

// { let x = &first(); x = &make_temp(); use(x); }: the assignment
// replaces the borrow x carries, so the use escapes the second
// temporary's drop point, and only that one.
func TestAssignRebindsBorrow(t *testing.T) {
	f := newFixture()
	first := f.call("first", 12, 19, f.buf)
	borrow1 := f.b.Exprs.NewBorrow(sp(11, 19), first, f.ref)
	let := f.b.Stmts.NewLet(sp(4, 20), f.b.Intern("x"), borrow1, false)

	target := f.b.Exprs.NewIdent(sp(21, 22), f.b.Intern("x"), f.ref)
	temp := f.call("make_temp", 26, 37, f.buf)
	borrow2 := f.b.Exprs.NewBorrow(sp(25, 37), temp, f.ref)
	assign := f.b.Exprs.NewAssign(sp(21, 37), target, borrow2, f.bt.Unit)
	assignStmt := f.b.Stmts.NewExpr(sp(21, 38), assign)

	use, useSpan := f.use("x", 40, f.ref)
	body := f.b.Exprs.NewBlock(sp(0, 50), []ast.StmtID{let, assignStmt, use}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %v, want exactly one", res.Conflicts)
	}
	c := res.Conflicts[0]
	if want := sp(26, 37); c.Created != want {
		t.Errorf("created = %v, want the reassigned temporary %v", c.Created, want)
	}
	if want := sp(38, 38); c.Freed != want {
		t.Errorf("freed = %v, want end of assignment statement %v", c.Freed, want)
	}
	if c.Used != useSpan {
		t.Errorf("used = %v, want %v", c.Used, useSpan)
	}
}

// { let x = &make_temp(); x = other; use(x); }: overwriting with a value
// that carries no borrow drops the old one from tracking, and the write
// target itself is not a read.
func TestAssignClearsBorrow(t *testing.T) {
	f := newFixture()
	temp := f.call("make_temp", 12, 23, f.buf)
	borrow := f.b.Exprs.NewBorrow(sp(11, 23), temp, f.ref)
	let := f.b.Stmts.NewLet(sp(4, 24), f.b.Intern("x"), borrow, false)

	target := f.b.Exprs.NewIdent(sp(25, 26), f.b.Intern("x"), f.ref)
	other := f.b.Exprs.NewIdent(sp(29, 34), f.b.Intern("other"), f.ref)
	assign := f.b.Exprs.NewAssign(sp(25, 34), target, other, f.bt.Unit)
	assignStmt := f.b.Stmts.NewExpr(sp(25, 35), assign)

	use, _ := f.use("x", 37, f.ref)
	body := f.b.Exprs.NewBlock(sp(0, 48), []ast.StmtID{let, assignStmt, use}, ast.NoExprID, f.bt.Unit)

	res := analyze(t, f, f.unit(body))
	if len(res.Conflicts) != 0 {
		t.Fatalf("conflicts = %v, want none", res.Conflicts)
	}
}

func TestAnalysisIsIdempotent(t *testing.T) {
	f := newFixture()
	unit, _, _, _ := simpleEscape(f)

	first := analyze(t, f, unit)
	second := analyze(t, f, unit)
	if !reflect.DeepEqual(first.Conflicts, second.Conflicts) {
		t.Fatalf("conflict lists differ:\n%v\n%v", first.Conflicts, second.Conflicts)
	}
	for i := range first.Conflicts {
		if first.Conflicts[i].Fingerprint() != second.Conflicts[i].Fingerprint() {
			t.Fatal("fingerprints differ across runs")
		}
	}
}

func TestFingerprintDistinguishesConflicts(t *testing.T) {
	a := Conflict{Created: sp(1, 5), Freed: sp(9, 9), Used: sp(12, 13)}
	b := Conflict{Created: sp(1, 5), Freed: sp(9, 9), Used: sp(20, 21)}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("different conflicts share a fingerprint")
	}
	if a.Fingerprint() != a.Fingerprint() {
		t.Fatal("fingerprint is unstable")
	}
}

func TestEmitRendersThreeSpansAndFix(t *testing.T) {
	f := newFixture()
	unit, _, _, _ := simpleEscape(f)
	res := analyze(t, f, unit)

	bag := diag.NewBag(10)
	Emit(res.Conflicts, diag.BagReporter{Bag: bag})

	items := bag.Items()
	if len(items) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(items))
	}
	d := items[0]
	if d.Code != diag.LifTempDropped || d.Severity != diag.SevError {
		t.Errorf("code/severity = %v/%v", d.Code, d.Severity)
	}
	if d.Message != "temporary value dropped while borrowed" {
		t.Errorf("message = %q", d.Message)
	}
	if len(d.Notes) != 2 {
		t.Fatalf("notes = %d, want freed + used", len(d.Notes))
	}
	if d.Notes[0].Msg != "temporary value is freed at the end of this statement" ||
		d.Notes[1].Msg != "borrow later used here" {
		t.Errorf("note labels = %q, %q", d.Notes[0].Msg, d.Notes[1].Msg)
	}
	if len(d.Fixes) != 1 || d.Fixes[0].Title != "consider using a `let` binding to create a longer lived value" {
		t.Errorf("fixes = %v", d.Fixes)
	}
}
