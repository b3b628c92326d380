package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"off":    LevelOff,
		"error":  LevelError,
		"phase":  LevelPhase,
		"detail": LevelDetail,
		"debug":  LevelDebug,
		"PHASE":  LevelPhase,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Errorf("ParseLevel should reject unknown names")
	}
}

func TestLevelGating(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeDriver, true},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeFile, false},
		{LevelDetail, ScopeFile, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%v.ShouldEmit(%v) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestRingTracerKeepsTail(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	for i := 0; i < 6; i++ {
		ring.Emit(&Event{
			Time:  time.Now(),
			Kind:  KindPoint,
			Scope: ScopeDriver,
			Name:  fmt.Sprintf("ev%d", i),
		})
	}

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("snapshot length = %d, want 4", len(events))
	}
	for i, ev := range events {
		want := fmt.Sprintf("ev%d", i+2)
		if ev.Name != want {
			t.Errorf("events[%d].Name = %q, want %q", i, ev.Name, want)
		}
	}
}

func TestRingDumpChromeEnvelope(t *testing.T) {
	ring := NewRingTracer(8, LevelDebug)
	ring.Emit(&Event{Time: time.Now(), Kind: KindSpanBegin, Scope: ScopePass, Name: "parse"})
	ring.Emit(&Event{Time: time.Now(), Kind: KindSpanEnd, Scope: ScopePass, Name: "parse"})

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatChrome); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	var payload struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("chrome dump is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(payload.TraceEvents) != 2 {
		t.Fatalf("traceEvents length = %d, want 2", len(payload.TraceEvents))
	}
}

func TestRingDumpOnClose(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(8, LevelDebug)
	ring.DumpOnClose(&buf, FormatNDJSON)
	ring.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: ScopeDriver, Name: "late"})

	if err := ring.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(buf.String(), `"name":"late"`) {
		t.Fatalf("buffered event missing from close dump:\n%s", buf.String())
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	st.Emit(&Event{Time: time.Now(), Kind: KindSpanBegin, Scope: ScopePass, Name: "parse"})
	st.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: ScopeFile, Name: "file:a.py"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("line count = %d, want 1 (file scope gated at phase level)\n%s", len(lines), buf.String())
	}
	var ev struct {
		Name  string `json:"name"`
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if ev.Name != "parse" || ev.Scope != "pass" {
		t.Errorf("event = %+v, want parse/pass", ev)
	}
}

func TestHeartbeatBypassesGating(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelError, FormatText)
	st.Emit(&Event{Time: time.Now(), Kind: KindHeartbeat, Scope: ScopeDriver, Name: "heartbeat"})
	st.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: ScopeDriver, Name: "skipped"})

	out := buf.String()
	if !strings.Contains(out, "heartbeat") {
		t.Errorf("heartbeat should bypass the level gate:\n%s", out)
	}
	if strings.Contains(out, "skipped") {
		t.Errorf("point event should be gated at error level:\n%s", out)
	}
}

func TestStreamChromeArray(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	st.Emit(&Event{Time: time.Now(), Kind: KindSpanBegin, Scope: ScopeDriver, Name: "transpile_dir"})
	st.Emit(&Event{Time: time.Now(), Kind: KindSpanEnd, Scope: ScopeDriver, Name: "transpile_dir"})
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var payload struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("stream output is not a chrome trace: %v\n%s", err, buf.String())
	}
	if len(payload.TraceEvents) != 2 {
		t.Fatalf("traceEvents length = %d, want 2", len(payload.TraceEvents))
	}
}

func TestSpanParentChain(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)

	batch := Begin(st, ScopeDriver, "transpile_dir", 0)
	file := Begin(st, ScopeFile, "file:a.py", batch.ID())
	file.End("")
	batch.End("")

	type line struct {
		Kind     string `json:"kind"`
		Name     string `json:"name"`
		SpanID   uint64 `json:"span_id"`
		ParentID uint64 `json:"parent_id"`
	}
	var beginFile *line
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var l line
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			t.Fatalf("bad line %q: %v", raw, err)
		}
		if l.Kind == "begin" && l.Name == "file:a.py" {
			beginFile = &l
		}
	}
	if beginFile == nil {
		t.Fatalf("file span begin event missing:\n%s", buf.String())
	}
	if beginFile.ParentID != batch.ID() {
		t.Errorf("file span parent = %d, want %d", beginFile.ParentID, batch.ID())
	}
}

func TestBeginWithDisabledTracer(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "noop", 0)
	if span.ID() != 0 {
		t.Errorf("disabled span should have zero ID")
	}
	if d := span.End("done"); d != 0 {
		t.Errorf("disabled span End = %v, want 0", d)
	}

	var nilSpan *Span
	if nilSpan.ID() != 0 {
		t.Errorf("nil span ID should be 0")
	}
	nilSpan.End("")
}

func TestMultiTracerFansOut(t *testing.T) {
	a := NewRingTracer(4, LevelDebug)
	b := NewRingTracer(4, LevelDebug)
	mt := NewMultiTracer(LevelDebug, a, b)
	mt.Emit(&Event{Time: time.Now(), Kind: KindPoint, Scope: ScopeDriver, Name: "both"})

	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("fan-out missed a tracer: a=%d b=%d", len(a.Snapshot()), len(b.Snapshot()))
	}
}

func TestContextPropagation(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(t.Context(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Errorf("tracer lost in context round trip")
	}

	ctx = WithSpanContext(ctx, SpanContext{SpanID: 7})
	if got := CurrentSpan(ctx).SpanID; got != 7 {
		t.Errorf("span context = %d, want 7", got)
	}
	if FromContext(t.Context()) != Nop {
		t.Errorf("empty context should yield the nop tracer")
	}
}
