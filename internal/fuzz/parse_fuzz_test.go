package fuzztests

import (
	"context"
	"testing"
	"time"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/testkit"
)

const maxFuzzInput = 1 << 16 // 64 KiB

// parseTimeout is the maximum time allowed for parsing a single input.
// Longer indicates a potential infinite loop.
const parseTimeout = 5 * time.Second

func FuzzParseModule(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.py", input)
		file := fs.Get(fileID)

		bag := diag.NewBag(128)
		reporter := diag.BagReporter{Bag: bag}

		mod, err := pyast.Parse(context.Background(), file, reporter)
		if err != nil || mod == nil {
			return
		}
		// Span invariants hold whenever the parse is error-free.
		if !bag.HasErrors() {
			if invErr := testkit.CheckSpanInvariants(mod, file); invErr != nil {
				t.Fatalf("span invariants violated: %v\ninput (%d bytes): %q",
					invErr, len(input), truncateForLog(input, 200))
			}
		}
	})
}

// FuzzParseNoHang tests that the parser adapter terminates on any input.
// A timeout catches infinite loops in error recovery paths.
func FuzzParseNoHang(f *testing.F) {
	addCorpusSeeds(f)

	// Shapes that stress error recovery
	f.Add([]byte("def f(\n"))                        // unclosed parameter list
	f.Add([]byte("if x:\nelse:\n"))                  // dangling else
	f.Add([]byte("((((((((((((((((((((\n"))          // deep nesting
	f.Add([]byte("def f():\n    return ((((((((\n")) // unclosed in a body
	f.Add([]byte("\"unterminated\n"))                // open string
	f.Add([]byte("class C(:\n    pass\n"))           // malformed base list

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		ctx, cancel := context.WithTimeout(context.Background(), parseTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)

			fs := source.NewFileSet()
			fileID := fs.AddVirtual("fuzz.py", input)
			file := fs.Get(fileID)

			bag := diag.NewBag(128)
			_, _ = pyast.Parse(ctx, file, diag.BagReporter{Bag: bag})
		}()

		select {
		case <-done:
		case <-ctx.Done():
			t.Fatalf("parser hang detected: parsing took longer than %v\ninput (%d bytes): %q",
				parseTimeout, len(input), truncateForLog(input, 200))
		}
	})
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}

// truncateForLog truncates input for failure messages.
func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen], []byte("...")...)
}
