package source

import "testing"

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}

	got := a.Cover(b)
	if got.Start != 5 || got.End != 20 {
		t.Fatalf("Cover = %v, want 1:5-20", got)
	}

	other := Span{File: 2, Start: 0, End: 100}
	got = a.Cover(other)
	if got != a {
		t.Fatalf("Cover across files must not change the span, got %v", got)
	}
}

func TestSpanEmptyLen(t *testing.T) {
	s := Span{File: 0, Start: 7, End: 7}
	if !s.Empty() {
		t.Errorf("expected empty span")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}

	s.End = 12
	if s.Empty() {
		t.Errorf("expected non-empty span")
	}
	if s.Len() != 5 {
		t.Errorf("Len = %d, want 5", s.Len())
	}
}

func TestSpanContains(t *testing.T) {
	s := Span{File: 0, Start: 3, End: 6}
	for _, off := range []uint32{3, 4, 5} {
		if !s.Contains(off) {
			t.Errorf("Contains(%d) = false, want true", off)
		}
	}
	for _, off := range []uint32{2, 6, 100} {
		if s.Contains(off) {
			t.Errorf("Contains(%d) = true, want false", off)
		}
	}
}
