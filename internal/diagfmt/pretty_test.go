package diagfmt

import (
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

func okBagWithOneError(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("bad.py", []byte("def f(:\n    pass\n"))
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SynParseError, source.Span{File: id, Start: 6, End: 7}, "unexpected ':'"))
	return bag, fs
}

func TestPrettyLayout(t *testing.T) {
	bag, fs := okBagWithOneError(t)

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{Color: false, PathMode: PathModeBasename})
	out := sb.String()

	if !strings.Contains(out, "bad.py:1:7: ERROR SYN1001: unexpected ':'") {
		t.Fatalf("header missing, got:\n%s", out)
	}
	if !strings.Contains(out, "def f(:") {
		t.Fatalf("source excerpt missing, got:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("caret missing, got:\n%s", out)
	}
}

func TestPrettyCaretColumn(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("pos.py", []byte("x = yield\n"))
	bag := diag.NewBag(1)
	// "yield" occupies bytes 4..9.
	bag.Add(diag.NewError(diag.LowUnsupported, source.Span{File: id, Start: 4, End: 9}, "yield"))

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(sb.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected 3 lines, got %q", sb.String())
	}
	// Two-space gutter plus four source bytes puts the caret at column 6.
	if !strings.HasPrefix(lines[2], "      ^~~~~") {
		t.Fatalf("caret line = %q", lines[2])
	}
}

func TestPrettyShowsNotes(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("n.py", []byte("def g(xs):\n    xs.append(0)\n"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.BorSignatureConflict, source.Span{File: id, Start: 6, End: 8}, "conflict").
		WithNote(source.Span{File: id, Start: 15, End: 27}, "mutated here"))

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	if !strings.Contains(sb.String(), "note: n.py:2:5: mutated here") {
		t.Fatalf("note missing:\n%s", sb.String())
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs := okBagWithOneError(t)

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename})
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("unexpected output shape: %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "SYN1001" || d.Severity != "ERROR" {
		t.Errorf("code/severity = %s/%s", d.Code, d.Severity)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 7 {
		t.Errorf("location = %+v", d.Location)
	}
}

func TestJSONMaxTruncates(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	fs.AddVirtual("t.py", []byte("pass\n"))
	bag := diag.NewBag(10)
	for range 5 {
		bag.Add(diag.NewWarning(diag.TypInferenceUnknown, source.Span{}, "w"))
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if len(out.Diagnostics) != 2 {
		t.Fatalf("len = %d, want 2", len(out.Diagnostics))
	}
	if out.Count != 5 {
		t.Fatalf("Count = %d, want full bag size 5", out.Count)
	}
}

func TestSarifDocument(t *testing.T) {
	bag, fs := okBagWithOneError(t)

	var sb strings.Builder
	err := Sarif(&sb, bag, fs, SarifRunMeta{ToolName: "depyler", ToolVersion: "0.1.0"})
	if err != nil {
		t.Fatalf("Sarif: %v", err)
	}
	out := sb.String()
	for _, want := range []string{`"version": "2.1.0"`, `"ruleId": "SYN1001"`, `"level": "error"`, `"name": "depyler"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in:\n%s", want, out)
		}
	}
}
