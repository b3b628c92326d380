package source

import "testing"

func TestAddVirtualAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.py", []byte("def f():\n    return 1\n"))

	f := fs.Get(id)
	if f.Flags&FileVirtual == 0 {
		t.Fatalf("virtual flag not set")
	}

	// "return" starts at byte 13 (line 2, col 5).
	start, _ := fs.Resolve(Span{File: id, Start: 13, End: 19})
	if start.Line != 2 || start.Col != 5 {
		t.Fatalf("Resolve = %+v, want line 2 col 5", start)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.py", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	cases := []struct {
		line uint32
		want string
	}{
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
		{0, ""},
	}
	for _, c := range cases {
		if got := f.GetLine(c.line); got != c.want {
			t.Errorf("GetLine(%d) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestLoadNormalizesCRLF(t *testing.T) {
	content, changed := normalizeCRLF([]byte("a\r\nb\rc\r\n"))
	if !changed {
		t.Fatalf("expected CRLF normalization")
	}
	if string(content) != "a\nb\rc\n" {
		t.Fatalf("normalizeCRLF = %q", content)
	}
}

func TestRemoveBOM(t *testing.T) {
	content, had := removeBOM([]byte{0xEF, 0xBB, 0xBF, 'x'})
	if !had || string(content) != "x" {
		t.Fatalf("removeBOM = %q, had=%v", content, had)
	}
	content, had = removeBOM([]byte("plain"))
	if had || string(content) != "plain" {
		t.Fatalf("removeBOM changed plain content")
	}
}

func TestGetLatestTracksNewestVersion(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("dup.py", []byte("one"))
	second := fs.AddVirtual("dup.py", []byte("two"))

	if first == second {
		t.Fatalf("expected distinct file IDs")
	}
	id, ok := fs.GetLatest("dup.py")
	if !ok || id != second {
		t.Fatalf("GetLatest = %d ok=%v, want %d", id, ok, second)
	}
}

func TestToLineColSingleLine(t *testing.T) {
	lc := toLineCol(nil, 4)
	if lc.Line != 1 || lc.Col != 5 {
		t.Fatalf("toLineCol = %+v, want line 1 col 5", lc)
	}
}

func TestToLineColMultiLine(t *testing.T) {
	// "def g(xs):\n    xs.append(0)\n" — newlines at 10 and 27.
	idx := buildLineIndex([]byte("def g(xs):\n    xs.append(0)\n"))

	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{9, LineCol{Line: 1, Col: 10}},
		{10, LineCol{Line: 1, Col: 11}}, // the newline ends line 1
		{11, LineCol{Line: 2, Col: 1}},
		{15, LineCol{Line: 2, Col: 5}}, // "xs.append" starts here
		{27, LineCol{Line: 2, Col: 17}},
		{28, LineCol{Line: 3, Col: 1}},
	}
	for _, c := range cases {
		if got := toLineCol(idx, c.off); got != c.want {
			t.Errorf("toLineCol(%d) = %+v, want %+v", c.off, got, c.want)
		}
	}
}
