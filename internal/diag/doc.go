// Package diag defines the diagnostic model shared by all transpiler phases.
//
// Diagnostic is the central record: severity, a stable numeric code (see
// codes.go), a message, the primary source span, optional notes and fix
// suggestions. Phases emit through a Reporter so they stay decoupled from
// storage; BagReporter aggregates into a Bag, which supports sorting,
// deduplication and merging.
//
// The taxonomy follows the pipeline: SYN (parse), LOW (lowering and
// unsupported constructs), MAP (import mapping), TYP (type inference and
// annotations), BOR (ownership analysis), EMI (emission), IO and PRJ
// (project/config). Non-fatal kinds accumulate in the bag; fatal kinds make
// the driver short-circuit.
//
// Rendering lives in internal/diagfmt. Keep this package free of IO and
// formatting so diagnostics stay serialisable for caching and golden tests.
package diag
