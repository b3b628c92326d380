package driver

import (
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/trace"
)

// phaseMark pairs the timing and tracing records around one pipeline
// phase. Either side may be off: a nil timer skips the report entry and
// a disabled tracer emits nothing.
type phaseMark struct {
	timer *observ.Timer
	idx   int
	span  *trace.Span
}

func beginPhase(timer *observ.Timer, tracer trace.Tracer, parent uint64, name string) phaseMark {
	p := phaseMark{timer: timer}
	if timer != nil {
		p.idx = timer.Begin(name)
	}
	p.span = trace.Begin(tracer, trace.ScopePass, name, parent)
	return p
}

func (p phaseMark) end(note string) {
	p.span.End(note)
	if p.timer != nil {
		p.timer.End(p.idx, note)
	}
}
