package telemetry_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/telemetry"
)

func TestRecorderAppendsInOrder(t *testing.T) {
	r := telemetry.NewRecorder()
	r.Record(telemetry.Event{Variable: "a", FallbackUsed: "serde_json::Value"})
	r.Record(telemetry.Event{Variable: "b", FallbackUsed: "serde_json::Value"})
	r.Record(telemetry.Event{Variable: "c", Site: source.Span{Start: 10, End: 14}, FallbackUsed: "String"})

	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	evs := r.Snapshot()
	names := make([]string, len(evs))
	for i, ev := range evs {
		names[i] = ev.Variable
	}
	if got := strings.Join(names, ","); got != "a,b,c" {
		t.Fatalf("snapshot order = %q, want %q", got, "a,b,c")
	}
	if evs[2].Site.Start != 10 || evs[2].FallbackUsed != "String" {
		t.Fatalf("third event = %+v, want site 10 and String fallback", evs[2])
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	r := telemetry.NewRecorder()
	r.Record(telemetry.Event{Variable: "x"})

	evs := r.Snapshot()
	evs[0].Variable = "clobbered"

	if got := r.Snapshot()[0].Variable; got != "x" {
		t.Fatalf("recorder event = %q after snapshot mutation, want %q", got, "x")
	}
}

func TestResetDropsEvents(t *testing.T) {
	r := telemetry.NewRecorder()
	r.Record(telemetry.Event{Variable: "x"})
	r.Reset()
	if got := r.Len(); got != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", got)
	}
}

func TestPackageRecordUsesDefault(t *testing.T) {
	old := telemetry.Default
	defer func() { telemetry.Default = old }()

	r := telemetry.NewRecorder()
	telemetry.Default = r

	telemetry.Record(telemetry.Event{Variable: "y"})
	if got := r.Len(); got != 1 {
		t.Fatalf("default recorder Len() = %d, want 1", got)
	}
}

func TestNopRecorder(t *testing.T) {
	telemetry.Nop.Record(telemetry.Event{Variable: "x"})
	if telemetry.Nop.Len() != 0 || telemetry.Nop.Snapshot() != nil {
		t.Fatal("nop recorder retained an event")
	}
	if telemetry.Nop.Enabled() {
		t.Fatal("nop recorder reports enabled")
	}
}

func TestMemoryStoreAssignsID(t *testing.T) {
	s := telemetry.NewMemoryStore()
	if err := s.Put(telemetry.Pattern{SourcePattern: "d.items()", TargetOutput: ".iter()"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	id := telemetry.PatternID("d.items()", ".iter()")
	p, ok := s.Get(id)
	if !ok {
		t.Fatalf("Get(%q) missing", id)
	}
	if p.ID != id || p.TargetOutput != ".iter()" {
		t.Fatalf("stored pattern = %+v, want id %q", p, id)
	}
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestStoreAllOrderedByID(t *testing.T) {
	s := telemetry.NewMemoryStore()
	for _, p := range []telemetry.Pattern{
		{ID: "cc", SourcePattern: "c"},
		{ID: "aa", SourcePattern: "a"},
		{ID: "bb", SourcePattern: "b"},
	} {
		if err := s.Put(p); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	var ids []string
	for _, p := range s.All() {
		ids = append(ids, p.ID)
	}
	if got := strings.Join(ids, ","); got != "aa,bb,cc" {
		t.Fatalf("All() order = %q, want %q", got, "aa,bb,cc")
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store", "patterns.mp")

	s, err := telemetry.OpenDiskStore(path)
	if err != nil {
		t.Fatalf("OpenDiskStore: %v", err)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("fresh store Len() = %d, want 0", got)
	}

	first := telemetry.Pattern{
		SourcePattern:  "d.items()",
		TargetOutput:   ".iter()",
		Confidence:     0.97,
		UsageCount:     412,
		SuccessRate:    0.996,
		ErrorPrevented: "E0599",
	}
	if err := s.Put(first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(telemetry.Pattern{SourcePattern: "s.title()", TargetOutput: "title-case chain"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := telemetry.OpenDiskStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Len(); got != 2 {
		t.Fatalf("reopened Len() = %d, want 2", got)
	}
	p, ok := reopened.Get(telemetry.PatternID("d.items()", ".iter()"))
	if !ok {
		t.Fatal("pattern lost across reopen")
	}
	if p.UsageCount != 412 || p.Confidence != 0.97 || p.ErrorPrevented != "E0599" {
		t.Fatalf("reloaded pattern = %+v, want the stored statistics", p)
	}
}

func TestDistillThresholds(t *testing.T) {
	s := telemetry.NewMemoryStore()
	for _, p := range []telemetry.Pattern{
		{ID: "keep-big", Confidence: 0.99, UsageCount: 900, SuccessRate: 1.0},
		{ID: "keep-edge", Confidence: 0.95, UsageCount: 50, SuccessRate: 0.99},
		{ID: "low-confidence", Confidence: 0.94, UsageCount: 900, SuccessRate: 1.0},
		{ID: "low-usage", Confidence: 0.99, UsageCount: 49, SuccessRate: 1.0},
		{ID: "low-success", Confidence: 0.99, UsageCount: 900, SuccessRate: 0.98},
	} {
		if err := s.Put(p); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got := telemetry.Distill(s, telemetry.DefaultThresholds())
	if len(got) != 2 {
		t.Fatalf("Distill kept %d patterns, want 2: %+v", len(got), got)
	}
	if got[0].ID != "keep-big" || got[1].ID != "keep-edge" {
		t.Fatalf("Distill order = %q, %q; want most used first", got[0].ID, got[1].ID)
	}
}

func TestRenderStubs(t *testing.T) {
	ps := []telemetry.Pattern{{
		ID:             "ab12cd34ef56",
		SourcePattern:  "d.items()",
		TargetOutput:   ".iter()",
		Confidence:     0.97,
		UsageCount:     412,
		SuccessRate:    0.996,
		ErrorPrevented: "E0599",
	}}

	out := telemetry.RenderStubs(ps, telemetry.DefaultThresholds())
	for _, want := range []string{
		"1 candidate rules",
		"confidence >= 0.95, usage >= 50, success >= 0.99",
		"// ab12cd34ef56: confidence 0.970, 412 uses, success 0.996",
		"// prevents E0599",
		"case \"d.items()\":",
		"\treturn \".iter()\", true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stub output missing %q:\n%s", want, out)
		}
	}
}
