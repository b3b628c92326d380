package annotations

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

// Parser extracts directive blocks from the comment lines directly above a
// definition and applies them to a Set.
type Parser struct {
	pattern *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		pattern: regexp.MustCompile(`#\s*@depyler:\s*(\w+)\s*=\s*(.+)`),
	}
}

type directive struct {
	key   string
	value string
	span  source.Span
}

// ForDefinition parses the directive block above defLine (1-based) in file.
// Unknown keys and invalid values degrade to warnings; the rest of the block
// still applies.
func (p *Parser) ForDefinition(file *source.File, defLine uint32, reporter diag.Reporter) Set {
	set := Default()
	if file == nil || defLine == 0 {
		return set
	}
	for _, d := range p.collect(file, defLine) {
		p.apply(&set, d, reporter)
	}
	return set
}

// collect walks upward from the definition while lines stay blank or
// comments, gathering directives in source order.
func (p *Parser) collect(file *source.File, defLine uint32) []directive {
	lines := splitLines(file.Content)
	if int(defLine)-1 > len(lines) {
		return nil
	}
	var collected []directive
	for i := int(defLine) - 2; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i].text)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		m := p.pattern.FindStringSubmatchIndex(lines[i].text)
		if m == nil {
			continue
		}
		key := lines[i].text[m[2]:m[3]]
		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(lines[i].text[m[4]:m[5]]), `"`))
		collected = append(collected, directive{
			key:   key,
			value: value,
			span: source.Span{
				File:  file.ID,
				Start: lines[i].start + uint32(m[0]),
				End:   lines[i].start + uint32(m[1]),
			},
		})
	}
	// Walked bottom-up; restore top-down order so later lines win.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

type line struct {
	text  string
	start uint32
}

func splitLines(content []byte) []line {
	var out []line
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			out = append(out, line{text: string(content[start:i]), start: uint32(start)})
			start = i + 1
		}
	}
	if start < len(content) {
		out = append(out, line{text: string(content[start:]), start: uint32(start)})
	}
	return out
}

func (p *Parser) apply(set *Set, d directive, reporter diag.Reporter) {
	ok := true
	switch d.key {
	case "type_strategy":
		ok = applyEnum(d.value, &set.TypeStrategy, map[string]TypeStrategy{
			"conservative": TypeConservative, "aggressive": TypeAggressive,
			"zero_copy": TypeZeroCopy, "always_owned": TypeAlwaysOwned,
		})
	case "ownership":
		ok = applyEnum(d.value, &set.Ownership, map[string]Ownership{
			"owned": OwnershipOwned, "borrowed": OwnershipBorrowed, "shared": OwnershipShared,
		})
	case "safety_level":
		ok = applyEnum(d.value, &set.SafetyLevel, map[string]SafetyLevel{
			"safe": SafetySafe, "unsafe_allowed": SafetyUnsafeAllowed,
		})
	case "fallback":
		ok = applyEnum(d.value, &set.Fallback, map[string]FallbackStrategy{
			"error": FallbackError, "manual": FallbackManual, "mcp": FallbackMcp,
		})
	case "bounds_checking":
		ok = applyEnum(d.value, &set.BoundsChecking, map[string]BoundsChecking{
			"explicit": BoundsExplicit, "implicit": BoundsImplicit, "disabled": BoundsDisabled,
		})
	case "optimization_level":
		ok = applyEnum(d.value, &set.OptimizationLevel, map[string]OptimizationLevel{
			"standard": OptStandard, "aggressive": OptAggressive, "conservative": OptConservative,
		})
	case "thread_safety":
		ok = applyEnum(d.value, &set.ThreadSafety, map[string]ThreadSafety{
			"required": ThreadRequired, "not_required": ThreadNotRequired,
		})
	case "interior_mutability":
		ok = applyEnum(d.value, &set.InteriorMutability, map[string]InteriorMutability{
			"none": MutNone, "cell": MutCell, "ref_cell": MutRefCell, "arc_mutex": MutArcMutex,
		})
	case "string_strategy":
		ok = applyEnum(d.value, &set.StringStrategy, map[string]StringStrategy{
			"conservative": StringConservative, "always_owned": StringAlwaysOwned, "zero_copy": StringZeroCopy,
		})
	case "hash_strategy":
		ok = applyEnum(d.value, &set.HashStrategy, map[string]HashStrategy{
			"standard": HashStandard, "fnv": HashFnv, "ahash": HashAHash,
		})
	case "panic_behavior":
		ok = applyEnum(d.value, &set.PanicBehavior, map[string]PanicBehavior{
			"propagate": PanicPropagate, "return_error": PanicReturnError, "abort": PanicAbort,
		})
	case "error_strategy":
		ok = applyEnum(d.value, &set.ErrorStrategy, map[string]ErrorStrategy{
			"panic": ErrorPanic, "result_type": ErrorResultType, "option_type": ErrorOptionType,
		})
	case "global_strategy":
		ok = applyEnum(d.value, &set.GlobalStrategy, map[string]GlobalStrategy{
			"none": GlobalNone, "lazy_static": GlobalLazyStatic, "once_cell": GlobalOnceCell,
		})
	case "service_type":
		ok = applyEnum(d.value, &set.ServiceType, map[string]ServiceType{
			"web_api": ServiceWebAPI, "cli": ServiceCli, "library": ServiceLibrary,
		})
	case "termination":
		ok = applyTermination(d.value, &set.Termination)
	case "invariant":
		set.Invariants = append(set.Invariants, d.value)
	case "verify_bounds":
		ok = applyBool(d.value, &set.VerifyBounds)
	case "pattern":
		set.Pattern = d.value
	case "custom_attribute":
		set.CustomAttributes = append(set.CustomAttributes, d.value)
	case "performance_critical":
		ok = applyBoolHint(set, d.value, PerfCritical)
	case "vectorize":
		ok = applyBoolHint(set, d.value, PerfVectorize)
	case "unroll_loops":
		ok = applyBoolHint(set, d.value, PerfUnrollLoops)
	case "optimization_hint":
		switch d.value {
		case "latency":
			set.addHint(PerfLatency)
		case "throughput":
			set.addHint(PerfThroughput)
		case "vectorize":
			set.addHint(PerfVectorize)
		case "async_ready":
			set.addHint(PerfAsyncReady)
		default:
			ok = false
		}
	default:
		diag.ReportWarning(reporter, diag.TypAnnotationUnknownKey, d.span,
			"unknown annotation key "+strconv.Quote(d.key)).Emit()
		return
	}
	if !ok {
		diag.ReportWarning(reporter, diag.TypAnnotationInvalidValue, d.span,
			"invalid value "+strconv.Quote(d.value)+" for "+d.key).Emit()
	}
}

func applyEnum[T any](value string, dst *T, table map[string]T) bool {
	v, ok := table[value]
	if !ok {
		return false
	}
	*dst = v
	return true
}

func applyBool(value string, dst *bool) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	*dst = b
	return true
}

func applyBoolHint(set *Set, value string, hint PerfHint) bool {
	var on bool
	if !applyBool(value, &on) {
		return false
	}
	if on {
		set.addHint(hint)
	}
	return true
}

func applyTermination(value string, dst *Termination) bool {
	switch value {
	case "unknown":
		*dst = Termination{}
		return true
	case "proven":
		*dst = Termination{Proven: true}
		return true
	}
	if rest, found := strings.CutPrefix(value, "bounded_"); found {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return false
		}
		*dst = Termination{Proven: true, Bound: uint32(n)}
		return true
	}
	return false
}
