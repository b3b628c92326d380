package fuzztests

import (
	"context"
	"testing"

	"github.com/paiml/depyler/internal/driver"
)

// FuzzTranspileModule drives the whole pipeline on arbitrary sources:
// parse, lower, solve, generate. Malformed input must surface as
// diagnostics, never as a panic.
func FuzzTranspileModule(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		res, err := driver.Transpile(context.Background(), "fuzz.py", input, driver.Options{})
		if err != nil {
			// Infrastructure failure, not a property violation.
			return
		}
		if res == nil || res.Bag == nil {
			t.Fatal("nil result from pipeline")
		}
	})
}
