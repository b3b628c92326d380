package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/telemetry"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return dir
}

func TestTranspileDirOrderAndOutputs(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"b.py":     "def twice(n: int) -> int:\n    return n * 2\n",
		"a.py":     "def once(n: int) -> int:\n    return n\n",
		"sub/c.py": "def thrice(n: int) -> int:\n    return n * 3\n",
	})

	results, err := driver.TranspileDir(context.Background(), dir,
		driver.Options{Telemetry: telemetry.Nop}, driver.BatchOptions{})
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}

	want := []string{"a.py", "b.py", filepath.Join("sub", "c.py")}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, fr := range results {
		if fr.Path != filepath.Join(dir, want[i]) {
			t.Errorf("results[%d].Path = %q, want suffix %q", i, fr.Path, want[i])
		}
		if fr.Err != nil {
			t.Errorf("results[%d].Err = %v", i, fr.Err)
		}
		if fr.Result == nil || !strings.Contains(fr.Result.Rust, "pub fn") {
			t.Errorf("results[%d] has no emitted function", i)
		}
	}
}

func TestTranspileDirSkipsHiddenAndPycache(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"keep.py":           "def keep() -> int:\n    return 1\n",
		".venv/skip.py":     "def skip() -> int:\n    return 2\n",
		"__pycache__/no.py": "def no() -> int:\n    return 3\n",
	})

	results, err := driver.TranspileDir(context.Background(), dir,
		driver.Options{Telemetry: telemetry.Nop}, driver.BatchOptions{})
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(results), results)
	}
	if filepath.Base(results[0].Path) != "keep.py" {
		t.Fatalf("kept %q, want keep.py", results[0].Path)
	}
}

func TestTranspileDirProgress(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.py": "def a() -> int:\n    return 1\n",
		"b.py": "def b() -> int:\n    return 2\n",
	})

	// Buffered so workers never block; the driver closes the channel,
	// so draining after return sees every event.
	ch := make(chan driver.Progress, 2)
	_, err := driver.TranspileDir(context.Background(), dir,
		driver.Options{Telemetry: telemetry.Nop}, driver.BatchOptions{Progress: ch})
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}

	seen := map[string]bool{}
	for ev := range ch {
		if ev.Total != 2 {
			t.Errorf("Total = %d, want 2", ev.Total)
		}
		if ev.Failed {
			t.Errorf("%s reported failed", ev.Path)
		}
		seen[filepath.Base(ev.Path)] = true
	}
	if !seen["a.py"] || !seen["b.py"] {
		t.Fatalf("progress events missing: %v", seen)
	}
}

func TestTranspileDirEmpty(t *testing.T) {
	dir := writeTree(t, map[string]string{"notes.txt": "not python"})

	results, err := driver.TranspileDir(context.Background(), dir,
		driver.Options{Telemetry: telemetry.Nop}, driver.BatchOptions{})
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}
	if results != nil {
		t.Fatalf("got %d results for an empty tree", len(results))
	}
}

func TestTranspileDirSharedCache(t *testing.T) {
	src := "def same(n: int) -> int:\n    return n\n"
	dir := writeTree(t, map[string]string{"a.py": src, "b.py": src})

	cache, err := driver.NewCache(0, nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	// One worker keeps execution in sorted order, so the identical
	// second file must hit what the first stored.
	results, err := driver.TranspileDir(context.Background(), dir,
		driver.Options{Cache: cache, Telemetry: telemetry.Nop},
		driver.BatchOptions{Jobs: 1})
	if err != nil {
		t.Fatalf("TranspileDir: %v", err)
	}
	if results[0].Result.CacheHit {
		t.Fatal("first file reported a cache hit")
	}
	if !results[1].Result.CacheHit {
		t.Fatal("identical second file missed the cache")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		src, outDir, want string
	}{
		{"a/b/foo.py", "", "a/b/foo.rs"},
		{"foo.py", "", "foo.rs"},
		{"a/b/foo.py", "out", filepath.Join("out", "foo.rs")},
	}
	for _, tt := range tests {
		if got := driver.OutputPath(tt.src, tt.outDir); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.src, tt.outDir, got, tt.want)
		}
	}
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen", "out.rs")

	if err := driver.WriteOutput(path, "fn main() {}\n", false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := driver.WriteOutput(path, "other\n", false); !errors.Is(err, os.ErrExist) {
		t.Fatalf("overwrite error = %v, want ErrExist", err)
	}
	if err := driver.WriteOutput(path, "fn main() { run() }\n", true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(got), "run()") {
		t.Fatalf("forced write did not replace content: %q", got)
	}
}
