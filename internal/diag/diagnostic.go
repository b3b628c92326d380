package diag

import (
	"github.com/paiml/depyler/internal/source"
)

// Note attaches secondary context to a diagnostic, e.g. "parameter declared
// here" or one step of a borrow-reason chain.
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit is a single text replacement in source coordinates.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested correction: a short title plus concrete edits.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is one finding produced by a transpiler phase.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
