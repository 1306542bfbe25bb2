package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"rill/internal/diag"
	"rill/internal/source"
)

func TestJSONOutput(t *testing.T) {
	bag, fs := fixtureBag(t)
	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, IncludeNotes: true, IncludeFixes: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", out.Count, len(out.Diagnostics))
	}

	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "LIF3001" {
		t.Errorf("header = %s %s", d.Severity, d.Code)
	}
	loc := d.Location
	if loc.File != "src/main.rl" || loc.StartByte != 18 || loc.EndByte != 29 {
		t.Errorf("location = %+v", loc)
	}
	if loc.StartLine != 1 || loc.StartCol != 19 || loc.EndCol != 30 {
		t.Errorf("positions = %+v", loc)
	}
	if len(d.Notes) != 2 {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if d.Notes[0].Location.StartByte != 30 || d.Notes[1].Location.StartByte != 35 {
		t.Errorf("note locations = %+v", d.Notes)
	}
	if len(d.Fixes) != 1 || d.Fixes[0].Title == "" {
		t.Errorf("fixes = %+v", d.Fixes)
	}
}

func TestJSONDefaultsOmitDetails(t *testing.T) {
	bag, fs := fixtureBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{})

	d := out.Diagnostics[0]
	if d.Notes != nil || d.Fixes != nil {
		t.Errorf("details must be opt-in: %+v", d)
	}
	if d.Location.StartLine != 0 {
		t.Errorf("positions must be opt-in: %+v", d.Location)
	}
}

func TestJSONMaxTruncatesOutput(t *testing.T) {
	bag, fs := fixtureBag(t)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.GateUnknownFeature,
		Message:  "unknown feature `raw_union`",
	})

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("output = %+v", out)
	}
	if bag.Len() != 2 {
		t.Fatalf("bag must stay untouched, len = %d", bag.Len())
	}
}

func TestJSONUnresolvableLocation(t *testing.T) {
	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.IOLoadFileError, Message: "cannot read dump"})

	out := BuildDiagnosticsOutput(bag, source.NewFileSet(), JSONOpts{IncludePositions: true})
	if got := out.Diagnostics[0].Location.File; got != "<none>" {
		t.Fatalf("file = %q", got)
	}
}
