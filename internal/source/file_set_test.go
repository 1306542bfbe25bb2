package source

import "testing"

func TestFileSetAddAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("unit.rl", []byte("let a = 1;\nlet b = 2;\n"))

	f := fs.Get(id)
	if f.Flags&FileVirtual == 0 {
		t.Fatal("expected FileVirtual flag")
	}

	// "b" sits on line 2 at byte offset 15.
	start, _ := fs.Resolve(Span{File: id, Start: 15, End: 16})
	if start.Line != 2 || start.Col != 5 {
		t.Errorf("Resolve() start = %+v, want line 2 col 5", start)
	}
}

func TestFileSetGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("unit.rl", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	tests := []struct {
		line uint32
		want string
	}{
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
		{0, ""},
	}
	for _, tt := range tests {
		if got := f.GetLine(tt.line); got != tt.want {
			t.Errorf("GetLine(%d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFileSetLatestWins(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("unit.rl", []byte("old"))
	second := fs.AddVirtual("unit.rl", []byte("new"))

	id, ok := fs.GetLatest("unit.rl")
	if !ok || id != second {
		t.Fatalf("GetLatest() = %v, %v; want %v, true", id, ok, second)
	}
}
