package telemetry

// nopRecorder drops events for callers that run with telemetry off.
type nopRecorder struct{}

// Record does nothing.
func (nopRecorder) Record(Event) {}

// Snapshot returns nothing.
func (nopRecorder) Snapshot() []Event { return nil }

// Len returns zero.
func (nopRecorder) Len() int { return 0 }

// Enabled always returns false.
func (nopRecorder) Enabled() bool { return false }

// Nop is the package-level singleton no-op recorder.
var Nop Recorder = nopRecorder{}

// nopStore discards patterns.
type nopStore struct{}

// Put does nothing.
func (nopStore) Put(Pattern) error { return nil }

// Get always misses.
func (nopStore) Get(string) (Pattern, bool) { return Pattern{}, false }

// All returns nothing.
func (nopStore) All() []Pattern { return nil }

// Len returns zero.
func (nopStore) Len() int { return 0 }

// NopStore is the package-level singleton no-op pattern store.
var NopStore PatternStore = nopStore{}
