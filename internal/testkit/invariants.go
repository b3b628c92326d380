// Package testkit holds invariant checks shared by parser-facing tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a cleanly
// parsed module:
// 1) the module span stays within file content bounds
// 2) every top-level statement span is non-empty, inside the module span,
// and statements appear in source order
// 3) the module span covers the union of statement spans (if any exist)
//
// The checks assume an error-free parse; error recovery may legitimately
// produce gaps the invariants would reject.
func CheckSpanInvariants(mod *pyast.Module, sf *source.File) error {
	if mod == nil || sf == nil {
		return fmt.Errorf("nil module or file")
	}

	// 1) module span sanity
	ms := mod.Span()
	if ms.File != sf.ID {
		return fmt.Errorf("module span points to different file id: got=%d want=%d", ms.File, sf.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if ms.End > lenContent {
		return fmt.Errorf("module span end beyond content: %d > %d", ms.End, lenContent)
	}

	// 2) statement spans within the module span, in order; 3) module
	// covers union
	var union source.Span
	var haveStmt bool
	var prevStart uint32
	for i, st := range mod.Body {
		sp := st.Span()
		if sp.End <= sp.Start {
			return fmt.Errorf("empty statement span at index %d: %v", i, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("statement span file mismatch: got=%d want=%d", sp.File, sf.ID)
		}
		if sp.Start < ms.Start || sp.End > ms.End {
			return fmt.Errorf("statement span %v is outside module span %v", sp, ms)
		}
		if sp.Start < prevStart {
			return fmt.Errorf("statement span %v starts before its predecessor", sp)
		}
		prevStart = sp.Start
		if !haveStmt {
			union = sp
			haveStmt = true
		} else {
			union = union.Cover(sp)
		}
	}

	if haveStmt {
		if union.Start < ms.Start || union.End > ms.End {
			return fmt.Errorf("module span %v does not cover union of statements %v", ms, union)
		}
	}
	return nil
}
