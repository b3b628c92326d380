// Package trace records what the transpiler is doing while it runs, to
// diagnose slow batches and hangs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	depyler transpile --trace=- --trace-level=phase src/
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer holding the most recent events
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelPhase: driver and pipeline phase boundaries
//   - LevelDetail: per-file events
//   - LevelDebug: everything
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: top-level CLI operations and batch runs
//   - ScopePass: pipeline phases (parse, lower, solve, generate)
//   - ScopeFile: one source file's translation
//   - ScopeNode: HIR node level (unused today)
//
// # Context Propagation
//
// Tracers travel through the pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "parse", parentID)
//	defer span.End("")
package trace
