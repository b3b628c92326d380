// Package telemetry accumulates evidence about constructs the translator
// could not type: every wildcard emission is an event, and reviewed
// rewrites distilled from those events come back as candidate direct rules.
// The recorder is append-only and process-wide behind a mutex; it is the
// one piece of state that outlives a single translation job.
package telemetry

import (
	"sync"

	"github.com/paiml/depyler/internal/source"
)

// Event is one wildcard emission.
type Event struct {
	// Variable is the name bound at the site, empty when the fallback
	// happened under an anonymous expression.
	Variable string

	// Site locates the construct in the original source.
	Site source.Span

	// FallbackUsed is the type text emitted in place of a real type.
	FallbackUsed string
}

// Recorder accumulates events. Implementations must be goroutine-safe;
// operations are short and never touch IO.
type Recorder interface {
	// Record appends one event.
	Record(ev Event)

	// Snapshot returns a copy of everything recorded so far, in order.
	Snapshot() []Event

	// Len reports how many events have been recorded.
	Len() int

	// Enabled reports whether recording has any effect.
	Enabled() bool
}

// MemoryRecorder is the standard append-only recorder.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends one event.
func (r *MemoryRecorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Snapshot returns a copy of the recorded events in arrival order.
func (r *MemoryRecorder) Snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len reports the number of recorded events.
func (r *MemoryRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Enabled always returns true.
func (r *MemoryRecorder) Enabled() bool { return true }

// Reset drops everything recorded so far.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}

// Default is the process-wide recorder. Pipelines share it across
// goroutines; everything else they allocate is scoped to one invocation.
var Default Recorder = NewRecorder()

// Record appends an event to the process-wide recorder.
func Record(ev Event) {
	Default.Record(ev)
}
