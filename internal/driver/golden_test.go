package driver_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/driver"
)

// TestTranspileGolden translates every testdata/golden/transpile/*.py
// and compares the emitted Rust byte for byte with its .rs sibling.
func TestTranspileGolden(t *testing.T) {
	dir := filepath.Join("..", "..", "testdata", "golden", "transpile")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read golden dir: %v", err)
	}

	ran := 0
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".py") {
			continue
		}
		ran++
		name := strings.TrimSuffix(ent.Name(), ".py")
		t.Run(name, func(t *testing.T) {
			res, err := driver.TranspileFile(context.Background(), filepath.Join(dir, name+".py"), driver.Options{})
			if err != nil {
				t.Fatalf("transpile %s: %v", name, err)
			}
			if res.Bag.HasErrors() {
				t.Fatalf("unexpected errors:\n%s", diagnosticLines(res))
			}

			want, err := os.ReadFile(filepath.Join(dir, name+".rs"))
			if err != nil {
				t.Fatalf("read %s.rs: %v", name, err)
			}
			if res.Rust != string(want) {
				t.Fatalf("output mismatch:\nwant:\n%s\n\ngot:\n%s", want, res.Rust)
			}
		})
	}
	if ran == 0 {
		t.Fatalf("no golden inputs under %s", dir)
	}
}

func diagnosticLines(res *driver.TranspileResult) string {
	var b strings.Builder
	for _, d := range res.Bag.Items() {
		fmt.Fprintf(&b, "[%s] %s\n", d.Code.ID(), d.Message)
	}
	return b.String()
}
