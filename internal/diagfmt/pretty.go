package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan, color.Bold)
	posColor  = color.New(color.FgWhite, color.Bold)
	noteColor = color.New(color.FgBlue)
	fixColor  = color.New(color.FgGreen)
)

// Pretty renders diagnostics in a human-readable layout. It walks bag.Items()
// in order (call bag.Sort() first). For each diagnostic it prints
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	  <source line>
//	  <caret underline>
//
// followed by notes and fix titles when enabled.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	for _, d := range bag.Items() {
		prettyOne(w, &d, fs, opts)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	path, start := locate(fs, d.Primary, opts.PathMode)

	sev := d.Severity.String()
	if opts.Color {
		sev = severityColor(d.Severity).Sprint(sev)
	}
	pos := fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
	if opts.Color {
		pos = posColor.Sprint(pos)
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n", pos, sev, d.Code.ID(), d.Message)

	writeExcerpt(w, fs, d.Primary, opts)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			npath, nstart := locate(fs, n.Span, opts.PathMode)
			label := "note"
			if opts.Color {
				label = noteColor.Sprint(label)
			}
			fmt.Fprintf(w, "  %s: %s:%d:%d: %s\n", label, npath, nstart.Line, nstart.Col, n.Msg)
		}
	}
	if opts.ShowFixes {
		for _, f := range d.Fixes {
			label := "fix"
			if opts.Color {
				label = fixColor.Sprint(label)
			}
			fmt.Fprintf(w, "  %s: %s\n", label, f.Title)
		}
	}
}

// writeExcerpt prints the primary source line with a width-aware caret
// underline. Tabs and wide runes in the prefix shift the caret by their
// display width, not their byte count.
func writeExcerpt(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts) {
	if sp.Empty() && sp.Start == 0 {
		return
	}
	defer func() {
		// Spans from merged bags can outlive their FileSet in tests.
		_ = recover()
	}()

	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	if line == "" {
		return
	}

	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(line, "\t", "    "))

	prefix := line
	if int(start.Col-1) <= len(line) {
		prefix = line[:start.Col-1]
	}
	pad := runewidth.StringWidth(strings.ReplaceAll(prefix, "\t", "    "))

	span := line
	if start.Line == end.Line && int(end.Col-1) <= len(line) && end.Col > start.Col {
		span = line[start.Col-1 : end.Col-1]
	} else if int(start.Col-1) < len(line) {
		span = line[start.Col-1:]
	}
	width := max(runewidth.StringWidth(span), 1)

	marker := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		marker = errColor.Sprint(marker)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", pad), marker)
}

func locate(fs *source.FileSet, sp source.Span, mode PathMode) (string, source.LineCol) {
	defer func() { _ = recover() }()
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	return f.FormatPath(mode.String(), fs.BaseDir()), start
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}
