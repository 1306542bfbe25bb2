package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"rill/internal/diag"
	"rill/internal/source"
)

const fixtureSource = "fn f() { let r = &make_temp(); use(r); }"

func fixtureBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("src/main.rl", []byte(fixtureSource))
	span := func(start, end uint32) source.Span {
		return source.Span{File: id, Start: start, End: end}
	}

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.LifTempDropped,
		Message:  "temporary value dropped while borrowed",
		Primary:  span(18, 29),
		Notes: []diag.Note{
			{Span: span(30, 30), Msg: "temporary value is freed at the end of this statement"},
			{Span: span(35, 36), Msg: "borrow later used here"},
		},
		Fixes: []diag.Fix{
			{Title: "consider using a `let` binding to create a longer lived value"},
		},
	})
	return bag, fs
}

func TestPrettyLayout(t *testing.T) {
	bag, fs := fixtureBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true, ShowFixes: true})

	lines := strings.Split(buf.String(), "\n")
	want := []string{
		"src/main.rl:1:19: error LIF3001: temporary value dropped while borrowed",
		"    " + fixtureSource,
		"    " + strings.Repeat(" ", 18) + "^" + strings.Repeat("~", 10),
		"src/main.rl:1:31: note LIF3001: temporary value is freed at the end of this statement",
		"    " + fixtureSource,
		"    " + strings.Repeat(" ", 30) + "^",
		"src/main.rl:1:36: note LIF3001: borrow later used here",
		"    " + fixtureSource,
		"    " + strings.Repeat(" ", 35) + "^",
		"    help: consider using a `let` binding to create a longer lived value",
		"",
	}
	if len(lines) != len(want)+1 {
		t.Fatalf("line count = %d, want %d:\n%s", len(lines), len(want)+1, buf.String())
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d:\n got %q\nwant %q", i, lines[i], w)
		}
	}
}

func TestPrettyWithoutNotesAndFixes(t *testing.T) {
	bag, fs := fixtureBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})

	out := buf.String()
	if strings.Contains(out, "note") || strings.Contains(out, "help:") {
		t.Fatalf("notes and fixes must be off by default:\n%s", out)
	}
	if !strings.Contains(out, "error LIF3001") {
		t.Fatalf("missing header:\n%s", out)
	}
}

func TestPrettyUnresolvableSpan(t *testing.T) {
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.IOLoadFileError,
		Message:  "cannot read dump",
	})

	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{})

	got := strings.TrimRight(buf.String(), "\n")
	if got != "error IO4001: cannot read dump" {
		t.Fatalf("output = %q", got)
	}
}

func TestPrettyColorEmitsANSI(t *testing.T) {
	bag, fs := fixtureBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true})

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatal("expected ANSI escapes with color enabled")
	}
}

func TestPrettyWidthTruncates(t *testing.T) {
	bag, fs := fixtureBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Width: 20})

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "    ") && len(line) > 4+20 {
			t.Fatalf("context line exceeds width: %q", line)
		}
	}
}
