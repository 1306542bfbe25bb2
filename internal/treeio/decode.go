package treeio

import (
	"encoding/json"
	"fmt"
	"os"

	"fortio.org/safecast"

	"rill/internal/ast"
	"rill/internal/diag"
	"rill/internal/source"
	"rill/internal/types"
)

// Module is one decoded dump: a fresh builder plus the units it carries.
type Module struct {
	Builder *ast.Builder
	Units   []ast.UnitID
	File    source.FileID
}

// DecodeFile reads and decodes one dump from disk.
func DecodeFile(path string, files *source.FileSet, r diag.Reporter) (*Module, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		diag.ReportError(r, diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot read %s: %v", path, err)).Emit()
		return nil, err
	}
	return Decode(data, files, r)
}

// Decode parses a dump and rebuilds the typed tree. Any structural defect
// is a hard failure: no partial module is returned, because downstream
// passes must not trust a tree the producer got wrong.
func Decode(data []byte, files *source.FileSet, r diag.Reporter) (*Module, error) {
	var dump dumpFile
	if err := json.Unmarshal(data, &dump); err != nil {
		diag.ReportError(r, diag.TreeMalformed, source.Span{},
			fmt.Sprintf("invalid dump: %v", err)).Emit()
		return nil, fmt.Errorf("treeio: %w", err)
	}
	if dump.Version != dumpVersion {
		return nil, fail(r, diag.TreeMalformed, source.Span{},
			"unsupported dump version %d, want %d", dump.Version, dumpVersion)
	}

	fileID := files.AddVirtual(dump.Path, []byte(dump.Source))
	d := &decoder{
		dump: &dump,
		b: ast.NewBuilder(ast.Hints{
			Units: uint(len(dump.Units)) + 1,
			Stmts: uint(len(dump.Stmts)) + 1,
			Exprs: uint(len(dump.Exprs)) + 1,
		}, nil, nil),
		file:     fileID,
		srcLen:   uint32(len(dump.Source)),
		reporter: r,
	}
	units, err := d.run()
	if err != nil {
		return nil, err
	}
	return &Module{Builder: d.b, Units: units, File: fileID}, nil
}

func fail(r diag.Reporter, code diag.Code, sp source.Span, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	diag.ReportError(r, code, sp, msg).Emit()
	return fmt.Errorf("treeio: %s", msg)
}

type decoder struct {
	dump     *dumpFile
	b        *ast.Builder
	file     source.FileID
	srcLen   uint32
	reporter diag.Reporter

	typeIDs []types.TypeID // dump type id -> interned id
}

func (d *decoder) run() ([]ast.UnitID, error) {
	if err := d.decodeTypes(); err != nil {
		return nil, err
	}
	if err := d.decodeStmts(); err != nil {
		return nil, err
	}
	if err := d.decodeExprs(); err != nil {
		return nil, err
	}
	return d.decodeUnits()
}

func (d *decoder) span(sp dumpSpan) (source.Span, error) {
	if sp[0] > sp[1] || sp[1] > d.srcLen {
		return source.Span{}, fail(d.reporter, diag.TreeMalformed, source.Span{File: d.file},
			"span [%d,%d) outside source of length %d", sp[0], sp[1], d.srcLen)
	}
	return source.Span{File: d.file, Start: sp[0], End: sp[1]}, nil
}

func (d *decoder) typeRef(raw uint32) (types.TypeID, error) {
	if raw == 0 {
		return types.NoTypeID, nil
	}
	if int(raw) > len(d.typeIDs) {
		return types.NoTypeID, fail(d.reporter, diag.TreeDanglingNode, source.Span{File: d.file},
			"dangling type id %d", raw)
	}
	return d.typeIDs[raw-1], nil
}

func (d *decoder) decodeTypes() error {
	d.typeIDs = make([]types.TypeID, 0, len(d.dump.Types))
	for i, dt := range d.dump.Types {
		wantID, err := safecast.Conv[uint32](i + 1)
		if err != nil {
			return fmt.Errorf("treeio: type table overflow: %w", err)
		}
		if dt.ID != wantID {
			return fail(d.reporter, diag.TreeMalformed, source.Span{File: d.file},
				"type id %d at position %d, ids must be dense", dt.ID, wantID)
		}

		var id types.TypeID
		bt := d.b.Types.Builtins()
		switch dt.Kind {
		case "unit":
			id = bt.Unit
		case "bool":
			id = bt.Bool
		case "int":
			id = bt.Int
		case "str":
			id = bt.String
		case "ref":
			elem, err := d.typeRef(dt.Elem)
			if err != nil {
				return err
			}
			id = d.b.Types.MakeRef(elem)
		case "tuple":
			elems := make([]types.TypeID, 0, len(dt.Elems))
			for _, raw := range dt.Elems {
				elem, err := d.typeRef(raw)
				if err != nil {
					return err
				}
				elems = append(elems, elem)
			}
			id = d.b.Types.MakeTuple(elems)
		case "array":
			elem, err := d.typeRef(dt.Elem)
			if err != nil {
				return err
			}
			id = d.b.Types.MakeArray(elem, dt.Count)
		case "struct":
			id = d.b.Types.MakeStruct(d.b.Intern(dt.Name), dt.Drop)
		case "union":
			id = d.b.Types.MakeUnion(d.b.Intern(dt.Name), dt.Drop)
		default:
			return fail(d.reporter, diag.TreeUnknownKind, source.Span{File: d.file},
				"unknown type kind %q", dt.Kind)
		}
		d.typeIDs = append(d.typeIDs, id)
	}
	return nil
}

func (d *decoder) exprRef(raw uint32, required bool) (ast.ExprID, error) {
	if raw == 0 {
		if required {
			return ast.NoExprID, fail(d.reporter, diag.TreeMalformed, source.Span{File: d.file},
				"missing required expr reference")
		}
		return ast.NoExprID, nil
	}
	if int(raw) > len(d.dump.Exprs) {
		return ast.NoExprID, fail(d.reporter, diag.TreeDanglingNode, source.Span{File: d.file},
			"dangling expr id %d", raw)
	}
	return ast.ExprID(raw), nil
}

func (d *decoder) stmtRef(raw uint32) (ast.StmtID, error) {
	if raw == 0 || int(raw) > len(d.dump.Stmts) {
		return ast.NoStmtID, fail(d.reporter, diag.TreeDanglingNode, source.Span{File: d.file},
			"dangling stmt id %d", raw)
	}
	return ast.StmtID(raw), nil
}

func (d *decoder) decodeStmts() error {
	for i, ds := range d.dump.Stmts {
		if ds.ID != uint32(i+1) {
			return fail(d.reporter, diag.TreeMalformed, source.Span{File: d.file},
				"stmt id %d at position %d, ids must be dense", ds.ID, i+1)
		}
		sp, err := d.span(ds.Span)
		if err != nil {
			return err
		}

		switch ds.Kind {
		case "let":
			init, err := d.exprRef(ds.X, true)
			if err != nil {
				return err
			}
			d.b.Stmts.NewLet(sp, d.b.Intern(ds.Name), init, ds.Ref)
		case "expr":
			e, err := d.exprRef(ds.X, true)
			if err != nil {
				return err
			}
			d.b.Stmts.NewExpr(sp, e)
		case "return":
			e, err := d.exprRef(ds.X, false)
			if err != nil {
				return err
			}
			d.b.Stmts.NewReturn(sp, e)
		default:
			return fail(d.reporter, diag.TreeUnknownKind, sp, "unknown stmt kind %q", ds.Kind)
		}
	}
	return nil
}

func (d *decoder) decodeExprs() error {
	for i, de := range d.dump.Exprs {
		if de.ID != uint32(i+1) {
			return fail(d.reporter, diag.TreeMalformed, source.Span{File: d.file},
				"expr id %d at position %d, ids must be dense", de.ID, i+1)
		}
		sp, err := d.span(de.Span)
		if err != nil {
			return err
		}
		typ, err := d.typeRef(de.Type)
		if err != nil {
			return err
		}
		if err := d.decodeExpr(de, sp, typ); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodeExpr(de dumpExpr, sp source.Span, typ types.TypeID) error {
	list := func() ([]ast.ExprID, error) {
		out := make([]ast.ExprID, 0, len(de.List))
		for _, raw := range de.List {
			e, err := d.exprRef(raw, true)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}

	switch de.Kind {
	case "ident":
		d.b.Exprs.NewIdent(sp, d.b.Intern(de.Name), typ)
	case "lit":
		d.b.Exprs.NewLit(sp, typ)
	case "call":
		callee, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		args, err := list()
		if err != nil {
			return err
		}
		d.b.Exprs.NewCall(sp, callee, args, typ)
	case "borrow":
		operand, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		d.b.Exprs.NewBorrow(sp, operand, typ)
	case "deref":
		operand, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		d.b.Exprs.NewDeref(sp, operand, typ)
	case "field":
		base, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		d.b.Exprs.NewField(sp, base, d.b.Intern(de.Name), typ)
	case "index":
		base, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		idx, err := d.exprRef(de.Y, true)
		if err != nil {
			return err
		}
		d.b.Exprs.NewIndex(sp, base, idx, typ)
	case "tuple":
		elems, err := list()
		if err != nil {
			return err
		}
		d.b.Exprs.NewTuple(sp, elems, typ)
	case "array":
		elems, err := list()
		if err != nil {
			return err
		}
		d.b.Exprs.NewArray(sp, elems, typ)
	case "struct":
		elems, err := list()
		if err != nil {
			return err
		}
		d.b.Exprs.NewStructLit(sp, d.b.Intern(de.Name), elems, typ)
	case "block":
		stmts := make([]ast.StmtID, 0, len(de.Stmts))
		for _, raw := range de.Stmts {
			s, err := d.stmtRef(raw)
			if err != nil {
				return err
			}
			stmts = append(stmts, s)
		}
		tail, err := d.exprRef(de.X, false)
		if err != nil {
			return err
		}
		d.b.Exprs.NewBlock(sp, stmts, tail, typ)
	case "if":
		cond, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		branches, err := list()
		if err != nil {
			return err
		}
		if len(branches) == 0 || len(branches) > 2 {
			return fail(d.reporter, diag.TreeMalformed, sp,
				"if expr wants 1 or 2 branches, got %d", len(branches))
		}
		elseBlock := ast.NoExprID
		if len(branches) == 2 {
			elseBlock = branches[1]
		}
		d.b.Exprs.NewIf(sp, cond, branches[0], elseBlock, typ)
	case "match":
		scrutinee, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		arms, err := list()
		if err != nil {
			return err
		}
		d.b.Exprs.NewMatch(sp, scrutinee, arms, typ)
	case "assign":
		target, err := d.exprRef(de.X, true)
		if err != nil {
			return err
		}
		value, err := d.exprRef(de.Y, true)
		if err != nil {
			return err
		}
		d.b.Exprs.NewAssign(sp, target, value, typ)
	default:
		return fail(d.reporter, diag.TreeUnknownKind, sp, "unknown expr kind %q", de.Kind)
	}
	return nil
}

func (d *decoder) decodeUnits() ([]ast.UnitID, error) {
	units := make([]ast.UnitID, 0, len(d.dump.Units))
	for _, du := range d.dump.Units {
		sp, err := d.span(du.Span)
		if err != nil {
			return nil, err
		}
		body, err := d.exprRef(du.Body, false)
		if err != nil {
			return nil, err
		}
		id := d.b.Units.New(d.b.Intern(du.Name), sp, d.file, body)
		for _, g := range du.Gates {
			gsp, err := d.span(g.Span)
			if err != nil {
				return nil, err
			}
			d.b.Units.AddGate(id, d.b.Intern(g.Feature), gsp)
		}
		units = append(units, id)
	}
	return units, nil
}
