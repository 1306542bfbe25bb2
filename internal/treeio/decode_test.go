package treeio

import (
	"strings"
	"testing"

	"rill/internal/diag"
	"rill/internal/lifetime"
	"rill/internal/source"
)

// simpleDump encodes `fn f() { let r = &make_temp(); use(r); }`.
const simpleDump = `{
  "version": 1,
  "path": "src/main.rl",
  "source": "fn f() { let r = &make_temp(); use(r); }",
  "types": [
    {"id": 1, "kind": "struct", "name": "Buf", "drop": true},
    {"id": 2, "kind": "ref", "elem": 1}
  ],
  "exprs": [
    {"id": 1, "kind": "ident", "name": "make_temp", "span": [18, 27]},
    {"id": 2, "kind": "call", "x": 1, "span": [18, 29], "type": 1},
    {"id": 3, "kind": "borrow", "x": 2, "span": [17, 29], "type": 2},
    {"id": 4, "kind": "ident", "name": "use", "span": [31, 34]},
    {"id": 5, "kind": "ident", "name": "r", "span": [35, 36], "type": 2},
    {"id": 6, "kind": "call", "x": 4, "list": [5], "span": [31, 37]},
    {"id": 7, "kind": "block", "stmts": [1, 2], "span": [7, 40]}
  ],
  "stmts": [
    {"id": 1, "kind": "let", "name": "r", "x": 3, "span": [9, 30]},
    {"id": 2, "kind": "expr", "x": 6, "span": [31, 38]}
  ],
  "units": [
    {"name": "f", "span": [0, 40], "body": 7,
     "gates": [{"feature": "borrow_temp", "span": [0, 2]}]}
  ]
}`

func decode(t *testing.T, data string) (*Module, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(16)
	mod, err := Decode([]byte(data), source.NewFileSet(), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Decode: %v (diags: %v)", err, bag.Items())
	}
	return mod, bag
}

func TestDecodeRoundTripsThroughAnalysis(t *testing.T) {
	files := source.NewFileSet()
	bag := diag.NewBag(16)
	mod, err := Decode([]byte(simpleDump), files, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(mod.Units) != 1 {
		t.Fatalf("units = %d, want 1", len(mod.Units))
	}
	if got := files.Get(mod.File).Path; got != "src/main.rl" {
		t.Errorf("path = %q", got)
	}

	unit := mod.Builder.Units.Get(mod.Units[0])
	if got := mod.Builder.Strings.MustLookup(unit.Name); got != "f" {
		t.Errorf("unit name = %q", got)
	}
	if len(unit.Gates) != 1 {
		t.Fatalf("gates = %d, want 1", len(unit.Gates))
	}

	res, err := lifetime.AnalyzeUnit(mod.Builder, mod.Units[0])
	if err != nil {
		t.Fatalf("AnalyzeUnit: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(res.Conflicts))
	}
	c := res.Conflicts[0]
	if c.Created != (source.Span{File: mod.File, Start: 18, End: 29}) {
		t.Errorf("created = %v", c.Created)
	}
	if c.Freed != (source.Span{File: mod.File, Start: 30, End: 30}) {
		t.Errorf("freed = %v", c.Freed)
	}
	if c.Used != (source.Span{File: mod.File, Start: 35, End: 36}) {
		t.Errorf("used = %v", c.Used)
	}
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		mangle  func(string) string
		code    diag.Code
	}{
		{
			name:   "wrong version",
			mangle: func(s string) string { return strings.Replace(s, `"version": 1`, `"version": 2`, 1) },
			code:   diag.TreeMalformed,
		},
		{
			name:   "unknown expr kind",
			mangle: func(s string) string { return strings.Replace(s, `"kind": "borrow"`, `"kind": "warp"`, 1) },
			code:   diag.TreeUnknownKind,
		},
		{
			name:   "dangling expr ref",
			mangle: func(s string) string { return strings.Replace(s, `"x": 3, "span": [9, 30]`, `"x": 99, "span": [9, 30]`, 1) },
			code:   diag.TreeDanglingNode,
		},
		{
			name:   "sparse ids",
			mangle: func(s string) string { return strings.Replace(s, `{"id": 2, "kind": "call"`, `{"id": 5, "kind": "call"`, 1) },
			code:   diag.TreeMalformed,
		},
		{
			name:   "span outside source",
			mangle: func(s string) string { return strings.Replace(s, `"span": [18, 27]`, `"span": [18, 4096]`, 1) },
			code:   diag.TreeMalformed,
		},
		{
			name:   "not json",
			mangle: func(string) string { return "}{" },
			code:   diag.TreeMalformed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bag := diag.NewBag(16)
			mod, err := Decode([]byte(tc.mangle(simpleDump)), source.NewFileSet(), diag.BagReporter{Bag: bag})
			if err == nil {
				t.Fatal("Decode accepted malformed input")
			}
			if mod != nil {
				t.Fatal("Decode returned a partial module on failure")
			}
			items := bag.Items()
			if len(items) == 0 || items[0].Code != tc.code {
				t.Fatalf("diagnostics = %v, want code %v", items, tc.code)
			}
		})
	}
}

func TestDecodeFileReportsMissingFile(t *testing.T) {
	bag := diag.NewBag(4)
	_, err := DecodeFile("no/such/dump.ast.json", source.NewFileSet(), diag.BagReporter{Bag: bag})
	if err == nil {
		t.Fatal("DecodeFile accepted a missing file")
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.IOLoadFileError {
		t.Fatalf("diagnostics = %v, want IOLoadFileError", items)
	}
}
