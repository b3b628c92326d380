package driver_test

import (
	"context"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/telemetry"
)

const addSource = `def add(a: int, b: int) -> int:
    return a + b
`

func transpile(t *testing.T, src string, opts driver.Options) *driver.TranspileResult {
	t.Helper()
	res, err := driver.Transpile(context.Background(), "test.py", []byte(src), opts)
	if err != nil {
		t.Fatalf("Transpile: %v", err)
	}
	return res
}

func TestTranspileProducesRust(t *testing.T) {
	res := transpile(t, addSource, driver.Options{Telemetry: telemetry.Nop})

	if res.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Bag.Items())
	}
	if !strings.Contains(res.Rust, "pub fn add(a: i64, b: i64) -> i64 {") {
		t.Fatalf("missing signature in output:\n%s", res.Rust)
	}
	if res.HIR == nil || res.HIR.Function("add") == nil {
		t.Fatal("lowered module not attached to result")
	}
	if res.Signatures == nil || res.Signatures.Function("add") == nil {
		t.Fatal("signature registry not attached to result")
	}
}

func TestTranspileCollectsSyntaxErrors(t *testing.T) {
	res := transpile(t, "def broken(:\n    pass\n", driver.Options{Telemetry: telemetry.Nop})

	if !res.Bag.HasErrors() {
		t.Fatal("syntax error did not reach the bag")
	}
}

func TestWildcardFallbackRecordsTelemetry(t *testing.T) {
	rec := telemetry.NewRecorder()
	res := transpile(t, "def identity(x):\n    return x\n", driver.Options{Telemetry: rec})

	if !strings.Contains(res.Rust, "serde_json::Value") {
		t.Fatalf("untyped parameter did not fall back:\n%s", res.Rust)
	}
	if rec.Len() == 0 {
		t.Fatal("no telemetry event for the wildcard fallback")
	}
	if ev := rec.Snapshot()[0]; ev.FallbackUsed != "serde_json::Value" {
		t.Fatalf("event fallback = %q, want serde_json::Value", ev.FallbackUsed)
	}
}

func TestNasaModeAvoidsExternalTypes(t *testing.T) {
	res := transpile(t, "def identity(x):\n    return x\n", driver.Options{
		NasaMode:  true,
		Telemetry: telemetry.Nop,
	})

	if strings.Contains(res.Rust, "serde_json") {
		t.Fatalf("NASA mode leaked an external crate type:\n%s", res.Rust)
	}
}

func TestHashStrategyDefaultApplies(t *testing.T) {
	src := "def first_key(d: dict[str, int]) -> int:\n    return len(d)\n"
	res := transpile(t, src, driver.Options{
		HashStrategy: annotations.HashFnv,
		Telemetry:    telemetry.Nop,
	})

	if !strings.Contains(res.Rust, "FnvHashMap") {
		t.Fatalf("hash strategy default not applied:\n%s", res.Rust)
	}
}

func TestEnableMetrics(t *testing.T) {
	res := transpile(t, addSource, driver.Options{
		EnableMetrics: true,
		Telemetry:     telemetry.Nop,
	})

	m := res.Metrics
	if m == nil {
		t.Fatal("metrics not populated")
	}
	if m.Functions != 1 || m.Classes != 0 {
		t.Fatalf("counts = %d functions, %d classes; want 1, 0", m.Functions, m.Classes)
	}
	if m.Coverage != 1.0 {
		t.Fatalf("coverage = %v for a fully annotated function, want 1.0", m.Coverage)
	}
	if m.TypeFallbacks != 0 {
		t.Fatalf("fallbacks = %d, want 0", m.TypeFallbacks)
	}
}

func TestMemoryCacheHit(t *testing.T) {
	cache, err := driver.NewCache(0, nil)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	opts := driver.Options{Cache: cache, Telemetry: telemetry.Nop}

	first := transpile(t, addSource, opts)
	if first.CacheHit {
		t.Fatal("first run reported a cache hit")
	}
	second := transpile(t, addSource, opts)
	if !second.CacheHit {
		t.Fatal("second run missed the cache")
	}
	if second.Rust != first.Rust {
		t.Fatal("cached text differs from the original")
	}

	// Option changes key separately.
	nasa := opts
	nasa.NasaMode = true
	if res := transpile(t, "def f(a: int) -> int:\n    return a\n", nasa); res.CacheHit {
		t.Fatal("different options hit the same cache slot")
	}
}

func TestDiskCacheSurvivesProcessRestart(t *testing.T) {
	disk, err := driver.OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}

	warm, err := driver.NewCache(4, disk)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	first := transpile(t, addSource, driver.Options{Cache: warm, Telemetry: telemetry.Nop})

	// A fresh in-process layer over the same directory stands in for a
	// new process.
	cold, err := driver.NewCache(4, disk)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	second := transpile(t, addSource, driver.Options{Cache: cold, Telemetry: telemetry.Nop})
	if !second.CacheHit {
		t.Fatal("disk layer did not serve the repeat run")
	}
	if second.Rust != first.Rust {
		t.Fatal("disk cached text differs from the original")
	}
}

func TestTimerAppendsTimingDiagnostic(t *testing.T) {
	res := transpile(t, addSource, driver.Options{
		Timer:     observ.NewTimer(),
		Telemetry: telemetry.Nop,
	})

	found := false
	for _, d := range res.Bag.Items() {
		if d.Code == diag.PrjTimings {
			found = true
			if !strings.Contains(d.Message, "timings (transpile)") {
				t.Fatalf("timing message = %q", d.Message)
			}
			if len(d.Notes) == 0 || !strings.Contains(d.Notes[0].Msg, "\"phases\"") {
				t.Fatal("timing diagnostic carries no JSON payload")
			}
		}
	}
	if !found {
		t.Fatal("no timing diagnostic in the bag")
	}
}

func TestParseToHIR(t *testing.T) {
	mod, bag, err := driver.ParseToHIR(context.Background(), "test.py", []byte(addSource), driver.Options{})
	if err != nil {
		t.Fatalf("ParseToHIR: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if mod.Function("add") == nil {
		t.Fatal("lowered module misses the function")
	}
}

func TestAnalyzeToTypedHIR(t *testing.T) {
	src := `def push(items: list[int]) -> None:
    items.append(1)
`
	typed, err := driver.AnalyzeToTypedHIR(context.Background(), "test.py", []byte(src), driver.Options{})
	if err != nil {
		t.Fatalf("AnalyzeToTypedHIR: %v", err)
	}
	if typed.Bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", typed.Bag.Items())
	}

	facts, ok := typed.Functions["push"]
	if !ok {
		t.Fatal("analysis facts missing for push")
	}
	if !facts.IsDeepMutated("items") {
		t.Fatal("append not seen as a mutation")
	}

	sig := typed.Signatures.Function("push")
	if sig == nil {
		t.Fatal("signature missing for push")
	}
	if p := sig.Param("items"); p == nil || p.Kind != borrows.ExclusiveBorrow {
		t.Fatalf("items solved as %+v, want exclusive borrow", p)
	}
}

func TestOptLevelParsing(t *testing.T) {
	tests := []struct {
		in   string
		want driver.OptimizationLevel
		ok   bool
	}{
		{"", driver.OptDebug, true},
		{"debug", driver.OptDebug, true},
		{"Release", driver.OptRelease, true},
		{"size", driver.OptSize, true},
		{"fast", driver.OptDebug, false},
	}
	for _, tt := range tests {
		got, err := driver.ParseOptLevel(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseOptLevel(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseOptLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
