// Package driver runs the translation pipeline end to end: parse, lower,
// solve, generate. This file holds the single-file entry points and the
// staged variants; batch.go adds the parallel directory mode and cache.go
// the content-addressed caches in front of it.
package driver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/modmap"
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/rustgen"
	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/telemetry"
	"github.com/paiml/depyler/internal/trace"
	"github.com/paiml/depyler/internal/types"
)

// DefaultMaxDiagnostics caps the bag when Options leaves it zero.
const DefaultMaxDiagnostics = 100

// OptimizationLevel selects the build profile the emitted crate targets.
type OptimizationLevel uint8

const (
	OptDebug OptimizationLevel = iota
	OptRelease
	OptSize
)

// String returns the string representation of OptimizationLevel.
func (l OptimizationLevel) String() string {
	switch l {
	case OptRelease:
		return "release"
	case OptSize:
		return "size"
	default:
		return "debug"
	}
}

// ParseOptLevel converts a flag string to OptimizationLevel.
func ParseOptLevel(s string) (OptimizationLevel, error) {
	switch strings.ToLower(s) {
	case "", "debug":
		return OptDebug, nil
	case "release":
		return OptRelease, nil
	case "size":
		return OptSize, nil
	}
	return OptDebug, fmt.Errorf("unknown optimization level %q", s)
}

// Options configures one pipeline invocation. The zero value translates
// with i64 integers, owned strings, the std hasher, no caching and the
// process-wide telemetry recorder.
type Options struct {
	// EnableVerification reserves the property-checking hook. Nothing
	// ships behind it yet; the flag participates in the cache key so a
	// future hookup invalidates cached output cleanly.
	EnableVerification bool

	// EnableMetrics fills TranspileResult.Metrics.
	EnableMetrics bool

	// OptimizationLevel seeds per-function optimization annotations:
	// Release turns on the aggressive profile, Size the conservative
	// one. Explicit source annotations win.
	OptimizationLevel OptimizationLevel

	// NasaMode restricts emission to the Rust standard library.
	NasaMode bool

	// StringStrategy is the module-wide default for string types.
	StringStrategy types.StringMode

	// HashStrategy overrides the map hasher for functions without their
	// own annotation.
	HashStrategy annotations.HashStrategy

	// OwnershipModel overrides ownership for functions without their
	// own annotation.
	OwnershipModel annotations.Ownership

	// IntWidth selects the Rust integer type for source ints.
	IntWidth types.IntWidth

	// MapperConfigPath points at a TOML module-mapping overlay.
	MapperConfigPath string

	// EmitTests appends the doctest-derived test module.
	EmitTests bool

	// MaxDiagnostics caps collected diagnostics per file.
	MaxDiagnostics int

	// Cache, when set, short-circuits repeat translations by content
	// hash. One Cache may serve every batch worker.
	Cache *Cache

	// Telemetry receives wildcard-type events. Nil uses the process-wide
	// recorder; telemetry.Nop silences them.
	Telemetry telemetry.Recorder

	// Timer, when set, collects phase timings and appends a timing
	// diagnostic to the bag.
	Timer *observ.Timer
}

func (o Options) maxDiag() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

// fingerprint serializes every emission-affecting option for cache keys.
func (o Options) fingerprint() []byte {
	return []byte{
		byte(o.OptimizationLevel),
		byte(o.IntWidth),
		byte(o.StringStrategy),
		byte(o.HashStrategy),
		byte(o.OwnershipModel),
		boolByte(o.NasaMode),
		boolByte(o.EmitTests),
		boolByte(o.EnableVerification),
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Metrics summarizes translation quality for one file.
type Metrics struct {
	Functions int
	Classes   int

	// TypeFallbacks counts wildcard emissions during this run.
	TypeFallbacks int

	// Coverage is the share of parameter and return positions carrying
	// a known type before emission.
	Coverage float64

	// ExternalCrates is the number of third-party dependencies the
	// imports require.
	ExternalCrates int
}

// TranspileResult is the outcome of one file. Pipeline problems land in
// Bag, not in the error return; an erroring bag means the output is
// partial or unusable, but the text is still returned for inspection.
type TranspileResult struct {
	// Rust is the emitted file text.
	Rust string

	// Bag carries every diagnostic the pipeline produced.
	Bag *diag.Bag

	// FileSet resolves the spans in Bag.
	FileSet *source.FileSet

	// HIR is the lowered module.
	HIR *hir.Module

	// Signatures is the solved parameter registry.
	Signatures *borrows.Result

	// Dependencies lists the external crates the imports require.
	Dependencies []modmap.Dependency

	// Metrics is set when Options.EnableMetrics.
	Metrics *Metrics

	// CacheHit reports that Rust came from the cache. Stage artifacts
	// are nil on a hit.
	CacheHit bool
}

// Transpile translates one Python source held in memory. name seeds the
// module name and the span table; empty means "main.py". The error return
// reports infrastructure failures only.
func Transpile(ctx context.Context, name string, src []byte, opts Options) (*TranspileResult, error) {
	if name == "" {
		name = "main.py"
	}
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	return run(ctx, fs, id, opts)
}

// TranspileFile loads path from disk and translates it.
func TranspileFile(ctx context.Context, path string, opts Options) (*TranspileResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	return run(ctx, fs, id, opts)
}

// run drives the phase sequence for one already-loaded file.
func run(ctx context.Context, fs *source.FileSet, id source.FileID, opts Options) (*TranspileResult, error) {
	file := fs.Get(id)
	bag := diag.NewBag(opts.maxDiag())
	reporter := &diag.BagReporter{Bag: bag}
	res := &TranspileResult{Bag: bag, FileSet: fs}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFile, "file:"+file.Path, trace.CurrentSpan(ctx).SpanID)
	defer func() {
		switch {
		case res.CacheHit:
			span.End("cache hit")
		case bag.HasErrors():
			span.End(fmt.Sprintf("errors=%d", bag.Len()))
		default:
			span.End("")
		}
	}()

	key, cacheable := cacheKey(file, opts)
	if cacheable {
		if text, ok := opts.Cache.Get(key); ok {
			res.Rust = text
			res.CacheHit = true
			return res, nil
		}
	}

	recorder := opts.Telemetry
	if recorder == nil {
		recorder = telemetry.Default
	}
	timer := opts.Timer

	ph := beginPhase(timer, tracer, span.ID(), "parse")
	pmod, err := pyast.Parse(ctx, file, reporter)
	ph.end("")
	if err != nil {
		return res, err
	}

	ph = beginPhase(timer, tracer, span.ID(), "lower")
	mod := hir.Lower(pmod, file, reporter)
	ph.end("")
	applyDefaults(mod, opts)

	modules := modmap.New()
	modules.SetNasaMode(opts.NasaMode)
	if opts.MapperConfigPath != "" {
		if err := modules.LoadConfig(opts.MapperConfigPath, reporter); err != nil {
			return res, err
		}
	}

	wildcard := "serde_json::Value"
	if opts.NasaMode {
		wildcard = "String"
	}
	fallbacks := 0
	mapper := &types.Mapper{
		Width:   opts.IntWidth,
		Strings: opts.StringStrategy,
		Nasa:    opts.NasaMode,
		OnFallback: func() {
			fallbacks++
			recorder.Record(telemetry.Event{
				Site:         source.Span{File: id},
				FallbackUsed: wildcard,
			})
		},
	}

	ph = beginPhase(timer, tracer, span.ID(), "solve")
	sigs := borrows.Solve(mod, reporter)
	ph.end("")

	ph = beginPhase(timer, tracer, span.ID(), "generate")
	text, err := rustgen.Generate(mod, sigs, reporter, rustgen.Options{
		Types:     mapper,
		Modules:   modules,
		EmitTests: opts.EmitTests,
	})
	ph.end(fmt.Sprintf("%d fallbacks", fallbacks))
	if err != nil {
		return res, err
	}

	res.Rust = text
	res.HIR = mod
	res.Signatures = sigs
	res.Dependencies = modules.Dependencies(mod.Imports)
	if opts.EnableMetrics {
		res.Metrics = measure(mod, fallbacks, len(res.Dependencies))
	}

	// Only diagnostic-free results are cached: a hit replays no
	// warnings, so nothing may be lost.
	store := cacheable && bag.Len() == 0
	if timer != nil {
		report := timer.Report()
		appendTimingDiagnostic(bag, timingPayload{
			Kind:   "transpile",
			Path:   file.Path,
			Total:  report.TotalMS,
			Phases: report.Phases,
		})
	}
	if store {
		opts.Cache.Put(key, file.Path, text)
	}
	return res, nil
}

// cacheKey derives the lookup digest for a file under the current options.
// A mapper config overlay folds its file content in, so editing the
// overlay invalidates entries; an unreadable overlay disables caching and
// surfaces later through LoadConfig.
func cacheKey(file *source.File, opts Options) (Digest, bool) {
	if opts.Cache == nil {
		return Digest{}, false
	}
	extras := [][]byte{opts.fingerprint()}
	if opts.MapperConfigPath != "" {
		cfg, err := os.ReadFile(opts.MapperConfigPath)
		if err != nil {
			return Digest{}, false
		}
		extras = append(extras, cfg)
	}
	return combineDigest(Digest(file.Hash), extras...), true
}

// applyDefaults seeds per-function annotations from module-wide options.
// Only zero-valued slots are touched, so source annotations keep the last
// word.
func applyDefaults(mod *hir.Module, opts Options) {
	level := annotations.OptStandard
	switch opts.OptimizationLevel {
	case OptRelease:
		level = annotations.OptAggressive
	case OptSize:
		level = annotations.OptConservative
	}
	seed := func(fn *hir.Function) {
		if fn.Annotations.HashStrategy == annotations.HashStandard {
			fn.Annotations.HashStrategy = opts.HashStrategy
		}
		if fn.Annotations.Ownership == annotations.OwnershipOwned {
			fn.Annotations.Ownership = opts.OwnershipModel
		}
		if fn.Annotations.OptimizationLevel == annotations.OptStandard {
			fn.Annotations.OptimizationLevel = level
		}
	}
	for _, fn := range mod.Functions {
		seed(fn)
	}
	for _, cl := range mod.Classes {
		for _, m := range cl.Methods {
			seed(m)
		}
	}
}

// measure computes the quality summary for a lowered module.
func measure(mod *hir.Module, fallbacks, crates int) *Metrics {
	m := &Metrics{
		Functions:      len(mod.Functions),
		Classes:        len(mod.Classes),
		TypeFallbacks:  fallbacks,
		ExternalCrates: crates,
	}
	total, known := 0, 0
	count := func(fn *hir.Function) {
		for i := range fn.Params {
			total++
			if !fn.Params[i].Type.IsUnknown() {
				known++
			}
		}
		total++
		if !fn.Ret.IsUnknown() {
			known++
		}
	}
	for _, fn := range mod.Functions {
		count(fn)
	}
	for _, cl := range mod.Classes {
		m.Functions += len(cl.Methods)
		for _, meth := range cl.Methods {
			count(meth)
		}
	}
	if total > 0 {
		m.Coverage = float64(known) / float64(total)
	} else {
		m.Coverage = 1
	}
	return m
}

// ParseToHIR stops the pipeline after lowering: the staged variant for
// inspection tooling.
func ParseToHIR(ctx context.Context, name string, src []byte, opts Options) (*hir.Module, *diag.Bag, error) {
	if name == "" {
		name = "main.py"
	}
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual(name, src))

	bag := diag.NewBag(opts.maxDiag())
	reporter := &diag.BagReporter{Bag: bag}

	pmod, err := pyast.Parse(ctx, file, reporter)
	if err != nil {
		return nil, bag, err
	}
	return hir.Lower(pmod, file, reporter), bag, nil
}

// TypedHIR is the lowered module with analysis facts and solved
// signatures attached. Methods key as "Class.method".
type TypedHIR struct {
	Module     *hir.Module
	Returns    map[string]*hir.Type
	Functions  map[string]*analyze.FunctionAnalysis
	Signatures *borrows.Result
	Bag        *diag.Bag
}

// AnalyzeToTypedHIR stops the pipeline after the solver: lowered HIR plus
// per-function facts and the signature registry, without emission.
func AnalyzeToTypedHIR(ctx context.Context, name string, src []byte, opts Options) (*TypedHIR, error) {
	mod, bag, err := ParseToHIR(ctx, name, src, opts)
	if err != nil {
		return &TypedHIR{Bag: bag}, err
	}
	applyDefaults(mod, opts)

	reporter := &diag.BagReporter{Bag: bag}
	returns := analyze.ModuleReturns(mod)
	facts := make(map[string]*analyze.FunctionAnalysis, len(mod.Functions))
	for _, fn := range mod.Functions {
		facts[fn.Name] = analyze.AnalyzeWith(fn, returns)
	}
	for _, cl := range mod.Classes {
		for _, m := range cl.Methods {
			facts[cl.Name+"."+m.Name] = analyze.AnalyzeWith(m, returns)
		}
	}

	return &TypedHIR{
		Module:     mod,
		Returns:    returns,
		Functions:  facts,
		Signatures: borrows.Solve(mod, reporter),
		Bag:        bag,
	}, nil
}
