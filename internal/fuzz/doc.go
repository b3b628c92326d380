// Package fuzztests houses Go fuzz harnesses that exercise the front of
// the translation pipeline (source -> parser adapter -> lowering). Its
// goal is to smoke test robustness and guard against panics or hangs on
// arbitrary inputs.
//
// The harnesses never write files or run the CLI; everything happens on
// virtual sources.
package fuzztests
