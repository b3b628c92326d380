package diag

import (
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("sample.py", []byte("import nothing\n"))

	diags := []Diagnostic{
		NewWarning(MapUnresolvedImport, source.Span{File: id, Start: 7, End: 14}, "no Rust mapping for 'nothing'"),
	}
	got := FormatShortDiagnostics(diags, fs, false)
	want := "warning MAP3001 sample.py:1:8 no Rust mapping for 'nothing'"
	if got != want {
		t.Fatalf("FormatShortDiagnostics = %q, want %q", got, want)
	}
}

func TestFormatGoldenSkipsCachePaths(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	real := fs.AddVirtual("app.py", []byte("x\n"))
	cached := fs.AddVirtual(".depyler-cache/app.py", []byte("x\n"))

	diags := []Diagnostic{
		NewError(SynParseError, source.Span{File: real, Start: 0, End: 1}, "kept"),
		NewError(SynParseError, source.Span{File: cached, Start: 0, End: 1}, "dropped"),
	}
	got := FormatGoldenDiagnostics(diags, fs, false)
	if strings.Contains(got, "dropped") {
		t.Fatalf("cache path not filtered: %q", got)
	}
	if !strings.Contains(got, "kept") {
		t.Fatalf("real path missing: %q", got)
	}
}

func TestGoldenIncludesNotes(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("m.py", []byte("def f(xs):\n    xs.append(1)\n"))

	d := NewError(BorSignatureConflict, source.Span{File: id, Start: 6, End: 8}, "cannot borrow xs mutably").
		WithNote(source.Span{File: id, Start: 15, End: 27}, "mutated via append here")
	got := FormatGoldenDiagnostics([]Diagnostic{d}, fs, true)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[1], "note BOR5001") {
		t.Fatalf("note line = %q", lines[1])
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{File: 0, Start: 1, End: 2}

	r.Report(TypInferenceUnknown, SevWarning, sp, "same", nil, nil)
	r.Report(TypInferenceUnknown, SevWarning, sp, "same", nil, nil)
	r.Report(TypInferenceUnknown, SevWarning, sp, "different message", nil, nil)

	if bag.Len() != 2 {
		t.Fatalf("Len = %d, want 2", bag.Len())
	}
}
