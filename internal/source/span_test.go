package source

import "testing"

func TestSpanCover(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Span
		want  Span
	}{
		{
			name: "disjoint",
			a:    Span{File: 1, Start: 10, End: 12},
			b:    Span{File: 1, Start: 20, End: 25},
			want: Span{File: 1, Start: 10, End: 25},
		},
		{
			name: "contained",
			a:    Span{File: 1, Start: 10, End: 30},
			b:    Span{File: 1, Start: 15, End: 20},
			want: Span{File: 1, Start: 10, End: 30},
		},
		{
			name: "different files",
			a:    Span{File: 1, Start: 10, End: 12},
			b:    Span{File: 2, Start: 0, End: 5},
			want: Span{File: 1, Start: 10, End: 12},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.want {
				t.Errorf("Cover() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanCollapseToEnd(t *testing.T) {
	s := Span{File: 3, Start: 4, End: 9}
	got := s.CollapseToEnd()
	if !got.Empty() || got.Start != 9 || got.File != 3 {
		t.Errorf("CollapseToEnd() = %v, want zero-width at 9", got)
	}
}

func TestSpanContains(t *testing.T) {
	outer := Span{File: 1, Start: 5, End: 20}
	if !outer.Contains(Span{File: 1, Start: 5, End: 20}) {
		t.Error("span must contain itself")
	}
	if !outer.Contains(Span{File: 1, Start: 7, End: 10}) {
		t.Error("expected inner span to be contained")
	}
	if outer.Contains(Span{File: 1, Start: 4, End: 10}) {
		t.Error("span starting before outer must not be contained")
	}
	if outer.Contains(Span{File: 2, Start: 7, End: 10}) {
		t.Error("different file must not be contained")
	}
}
