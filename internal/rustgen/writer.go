package rustgen

import "fmt"

// writer accumulates Rust source text with brace-driven indentation.
// Indentation is four spaces per level, matching rustfmt defaults, and
// is applied lazily when the first byte of a line arrives.
type writer struct {
	buf         []byte
	indentLevel int
	atLineStart bool
}

func newWriter() *writer {
	return &writer{atLineStart: true}
}

func (w *writer) writeIndent() {
	for i := 0; i < w.indentLevel; i++ {
		w.buf = append(w.buf, "    "...)
	}
	w.atLineStart = false
}

// WriteString appends s to the current line, indenting first when the
// line is still empty.
func (w *writer) WriteString(s string) {
	if s == "" {
		return
	}
	if w.atLineStart {
		w.writeIndent()
	}
	w.buf = append(w.buf, s...)
}

// Newline terminates the current line.
func (w *writer) Newline() {
	w.buf = append(w.buf, '\n')
	w.atLineStart = true
}

// Line writes s as a complete line.
func (w *writer) Line(s string) {
	w.WriteString(s)
	w.Newline()
}

// Linef formats and writes a complete line.
func (w *writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Blank emits one empty separator line, collapsing runs of them.
func (w *writer) Blank() {
	if !w.atLineStart {
		w.Newline()
	}
	if len(w.buf) >= 2 && w.buf[len(w.buf)-2] == '\n' {
		return
	}
	if len(w.buf) == 0 {
		return
	}
	w.buf = append(w.buf, '\n')
}

// Open writes head as a line and indents what follows. head normally
// ends with "{".
func (w *writer) Open(head string) {
	w.Line(head)
	w.indentLevel++
}

// Openf formats head and opens a block.
func (w *writer) Openf(format string, args ...any) {
	w.Open(fmt.Sprintf(format, args...))
}

// Close dedents and writes tail, usually "}".
func (w *writer) Close(tail string) {
	if w.indentLevel > 0 {
		w.indentLevel--
	}
	w.Line(tail)
}

// Dedent drops one level without writing anything, for continuation
// lines like `} else {` that reopen at the outer level.
func (w *writer) Dedent() {
	if w.indentLevel > 0 {
		w.indentLevel--
	}
}

// String returns the accumulated source.
func (w *writer) String() string { return string(w.buf) }
