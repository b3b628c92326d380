// Package annotations parses `# @depyler: key = value` comment directives
// that tune transpilation per function or class.
package annotations

import "fmt"

type TypeStrategy uint8

const (
	TypeConservative TypeStrategy = iota
	TypeAggressive
	TypeZeroCopy
	TypeAlwaysOwned
)

func (s TypeStrategy) String() string {
	switch s {
	case TypeAggressive:
		return "aggressive"
	case TypeZeroCopy:
		return "zero_copy"
	case TypeAlwaysOwned:
		return "always_owned"
	default:
		return "conservative"
	}
}

type Ownership uint8

const (
	OwnershipOwned Ownership = iota
	OwnershipBorrowed
	OwnershipShared
)

func (o Ownership) String() string {
	switch o {
	case OwnershipBorrowed:
		return "borrowed"
	case OwnershipShared:
		return "shared"
	default:
		return "owned"
	}
}

// ParseOwnership converts a flag or config string to Ownership.
func ParseOwnership(s string) (Ownership, error) {
	switch s {
	case "", "owned":
		return OwnershipOwned, nil
	case "borrowed":
		return OwnershipBorrowed, nil
	case "shared":
		return OwnershipShared, nil
	}
	return OwnershipOwned, fmt.Errorf("unknown ownership model %q", s)
}

type SafetyLevel uint8

const (
	SafetySafe SafetyLevel = iota
	SafetyUnsafeAllowed
)

type FallbackStrategy uint8

const (
	FallbackError FallbackStrategy = iota
	FallbackManual
	FallbackMcp
)

type BoundsChecking uint8

const (
	BoundsExplicit BoundsChecking = iota
	BoundsImplicit
	BoundsDisabled
)

type OptimizationLevel uint8

const (
	OptStandard OptimizationLevel = iota
	OptAggressive
	OptConservative
)

type ThreadSafety uint8

const (
	ThreadNotRequired ThreadSafety = iota
	ThreadRequired
)

type InteriorMutability uint8

const (
	MutNone InteriorMutability = iota
	MutCell
	MutRefCell
	MutArcMutex
)

type StringStrategy uint8

const (
	StringConservative StringStrategy = iota
	StringAlwaysOwned
	StringZeroCopy
)

type HashStrategy uint8

const (
	HashStandard HashStrategy = iota
	HashFnv
	HashAHash
)

// ParseHashStrategy converts a flag or config string to HashStrategy.
func ParseHashStrategy(s string) (HashStrategy, error) {
	switch s {
	case "", "standard":
		return HashStandard, nil
	case "fnv":
		return HashFnv, nil
	case "ahash":
		return HashAHash, nil
	}
	return HashStandard, fmt.Errorf("unknown hash strategy %q", s)
}

type PanicBehavior uint8

const (
	PanicPropagate PanicBehavior = iota
	PanicReturnError
	PanicAbort
)

type ErrorStrategy uint8

const (
	ErrorPanic ErrorStrategy = iota
	ErrorResultType
	ErrorOptionType
)

type GlobalStrategy uint8

const (
	GlobalNone GlobalStrategy = iota
	GlobalLazyStatic
	GlobalOnceCell
)

type ServiceType uint8

const (
	ServiceNone ServiceType = iota
	ServiceWebAPI
	ServiceCli
	ServiceLibrary
)

type PerfHint uint8

const (
	PerfCritical PerfHint = iota
	PerfVectorize
	PerfUnrollLoops
	PerfLatency
	PerfThroughput
	PerfAsyncReady
)

// Termination states whether a function is known to halt. Bound > 0 means a
// proven loop bound.
type Termination struct {
	Proven bool
	Bound  uint32
}

func (t Termination) String() string {
	switch {
	case t.Bound > 0:
		return fmt.Sprintf("bounded_%d", t.Bound)
	case t.Proven:
		return "proven"
	default:
		return "unknown"
	}
}

// Set carries every directive that applies to one function or class.
// Zero value is the default configuration.
type Set struct {
	TypeStrategy       TypeStrategy
	Ownership          Ownership
	SafetyLevel        SafetyLevel
	Fallback           FallbackStrategy
	BoundsChecking     BoundsChecking
	OptimizationLevel  OptimizationLevel
	ThreadSafety       ThreadSafety
	InteriorMutability InteriorMutability
	StringStrategy     StringStrategy
	HashStrategy       HashStrategy
	PanicBehavior      PanicBehavior
	ErrorStrategy      ErrorStrategy
	GlobalStrategy     GlobalStrategy
	Termination        Termination
	ServiceType        ServiceType
	PerfHints          []PerfHint
	Invariants         []string
	VerifyBounds       bool
	Pattern            string
	CustomAttributes   []string
}

// Default returns the configuration used when no directives are present.
func Default() Set {
	return Set{}
}

func (s *Set) hasHint(h PerfHint) bool {
	for _, got := range s.PerfHints {
		if got == h {
			return true
		}
	}
	return false
}

func (s *Set) addHint(h PerfHint) {
	if !s.hasHint(h) {
		s.PerfHints = append(s.PerfHints, h)
	}
}

// Validate reports combinations that cannot be honored together.
func (s *Set) Validate() []string {
	var problems []string
	if s.StringStrategy == StringZeroCopy && s.Ownership == OwnershipOwned {
		problems = append(problems, "zero_copy string strategy conflicts with owned ownership")
	}
	if s.ThreadSafety == ThreadRequired && s.InteriorMutability == MutRefCell {
		problems = append(problems, "RefCell is not thread-safe, use arc_mutex instead")
	}
	if s.PanicBehavior == PanicReturnError && s.ErrorStrategy == ErrorPanic {
		problems = append(problems, "panic_behavior = return_error conflicts with error_strategy = panic")
	}
	if s.OptimizationLevel == OptAggressive && s.BoundsChecking == BoundsExplicit {
		problems = append(problems, "aggressive optimization conflicts with explicit bounds checking")
	}
	return problems
}
