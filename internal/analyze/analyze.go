// Package analyze computes per-function facts consumed by the borrow solver
// and the code generator: mutation and read sites, call sites with argument
// provenance, the declared-name set, type flow to the function exit,
// hoisting requirements at branch joins, exception scopes and fallible
// operations.
package analyze

import (
	"sort"

	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/source"
)

// MutationKind classifies how a root variable was written.
type MutationKind uint8

const (
	// MutationIndexAssign is v[k] = x.
	MutationIndexAssign MutationKind = iota
	// MutationFieldWrite is v.f = x.
	MutationFieldWrite
	// MutationMethod is a call to a known mutating method.
	MutationMethod
	// MutationAugAssign is v op= x and its indexed/field forms.
	MutationAugAssign
	// MutationRebind is a plain reassignment of an existing binding.
	MutationRebind
)

func (k MutationKind) String() string {
	switch k {
	case MutationIndexAssign:
		return "index assignment"
	case MutationFieldWrite:
		return "field write"
	case MutationMethod:
		return "mutating method call"
	case MutationAugAssign:
		return "augmented assignment"
	default:
		return "reassignment"
	}
}

// Mutation is one write through a root variable.
type Mutation struct {
	Span   source.Span
	Kind   MutationKind
	Method string // set for MutationMethod
}

// ReadContext tells where a read happened; the borrow solver treats returns
// and call arguments specially.
type ReadContext uint8

const (
	ReadExpression ReadContext = iota
	ReadReturn
	ReadCondition
	ReadCall
)

// Read is one read site of a variable.
type Read struct {
	Span    source.Span
	Context ReadContext
}

// PassKind classifies how a variable reaches a call argument.
type PassKind uint8

const (
	// PassWhole passes the variable itself.
	PassWhole PassKind = iota
	// PassField passes an attribute or element of the variable.
	PassField
	// PassExpression passes a computed value that merely mentions it.
	PassExpression
)

// Arg is one argument of a recorded call site.
type Arg struct {
	Position int
	// Name is set for keyword arguments.
	Name string
	// Var is the root variable feeding the argument, empty when none.
	Var  string
	Pass PassKind
	Span source.Span
}

// CallSite is one call to a named function inside the body.
type CallSite struct {
	Callee string
	Args   []Arg
	Span   source.Span
}

// MethodCallSite records one method call. The receiver class is not known
// here; consumers resolve Method against the flow type of Recv.Var.
type MethodCallSite struct {
	Recv   Arg
	Method string
	Args   []Arg
	Span   source.Span
}

// EscapeKind records how a parameter outlives the call.
type EscapeKind uint8

const (
	EscapeNone EscapeKind = iota
	// EscapeReturned flows out through a return value.
	EscapeReturned
	// EscapeStored is written into a structure that outlives the call.
	EscapeStored
)

// Hoist is a variable assigned inside a branch or loop body and used after
// the join; emission must declare it mutable in the enclosing scope.
type Hoist struct {
	Name string
	Type *hir.Type
	Span source.Span
}

// ExceptionScope summarizes one try statement.
type ExceptionScope struct {
	Span source.Span
	// Bindings are handler `as` names, live only inside their handler.
	Bindings []string
	// Caught lists handled exception class names.
	Caught []string
	// CatchesAll is set for a bare except or an Exception handler.
	CatchesAll bool
	HasFinally bool
}

// FallibleKind classifies operations that can fail at runtime.
type FallibleKind uint8

const (
	// FallibleIndex can panic or miss.
	FallibleIndex FallibleKind = iota
	// FallibleDivision divides by a non-constant divisor.
	FallibleDivision
	// FallibleParse converts text to a number.
	FallibleParse
)

// FallibleOp is one possibly-failing site.
type FallibleOp struct {
	Span source.Span
	Kind FallibleKind
}

// FunctionAnalysis is the full per-function fact set.
type FunctionAnalysis struct {
	Name string
	// Params lists parameter names in order, receiver first when present.
	Params []string

	Mutations map[string][]Mutation
	Reads     map[string][]Read
	Calls     []CallSite
	// MethodCalls keeps every obj.method(...) site for interprocedural
	// receiver tracking.
	MethodCalls []MethodCallSite

	// Declared holds every name bound anywhere in the body plus the
	// parameters.
	Declared map[string]bool
	// TypesAtExit is the flow-typed environment at function exit.
	TypesAtExit map[string]*hir.Type
	// LastUse maps each read variable to its final read site.
	LastUse map[string]source.Span

	Hoists    []Hoist
	Escapes   map[string]EscapeKind
	TryScopes []ExceptionScope
	Fallible  []FallibleOp
	// Raises is set when a raise can leave the function uncaught.
	Raises bool
}

// IsMutated reports whether the variable has any write site. Plain
// rebinding counts; the caller filters by kind when it matters.
func (a *FunctionAnalysis) IsMutated(name string) bool {
	return len(a.Mutations[name]) > 0
}

// IsDeepMutated reports writes through the variable (index, field, method),
// which is what forces an exclusive borrow; rebinding alone does not.
func (a *FunctionAnalysis) IsDeepMutated(name string) bool {
	for _, m := range a.Mutations[name] {
		if m.Kind != MutationRebind {
			return true
		}
	}
	return false
}

// IsRead reports whether the variable has any read site.
func (a *FunctionAnalysis) IsRead(name string) bool {
	return len(a.Reads[name]) > 0
}

// MutatedRoots returns the sorted set of variables with non-rebind writes.
func (a *FunctionAnalysis) MutatedRoots() []string {
	var roots []string
	for name := range a.Mutations {
		if a.IsDeepMutated(name) {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// CanFail reports whether the function needs a fallible signature.
func (a *FunctionAnalysis) CanFail() bool {
	return a.Raises || len(a.Fallible) > 0
}

// mutatingMethods is the closed list of receiver methods that write through
// the receiver: list, dict, set, deque, file-like, csv writer and hash
// digest operations.
var mutatingMethods = map[string]bool{
	"append": true, "extend": true, "insert": true, "remove": true,
	"pop": true, "clear": true, "reverse": true, "sort": true,
	"update": true, "setdefault": true, "popitem": true,
	"add": true, "discard": true,
	"difference_update": true, "intersection_update": true,
	"symmetric_difference_update": true, "union_update": true,
	"appendleft": true, "popleft": true, "extendleft": true, "rotate": true,
	"write": true, "writelines": true, "seek": true, "truncate": true,
	"writerow": true, "writerows": true,
}

// IsMutatingMethod reports whether a method name writes through its
// receiver.
func IsMutatingMethod(name string) bool { return mutatingMethods[name] }

// Analyze runs every intra-procedural pass over one function.
func Analyze(fn *hir.Function) *FunctionAnalysis {
	return AnalyzeWith(fn, nil)
}

// AnalyzeWith additionally consults a table of sibling function return
// types, so calls into the same module type-flow instead of degrading to
// Unknown.
func AnalyzeWith(fn *hir.Function, returns map[string]*hir.Type) *FunctionAnalysis {
	a := &FunctionAnalysis{
		Name:        fn.Name,
		Mutations:   make(map[string][]Mutation),
		Reads:       make(map[string][]Read),
		Declared:    make(map[string]bool),
		TypesAtExit: make(map[string]*hir.Type),
		LastUse:     make(map[string]source.Span),
		Escapes:     make(map[string]EscapeKind),
	}
	if fn.Receiver != "" {
		a.Params = append(a.Params, fn.Receiver)
		a.Declared[fn.Receiver] = true
	}
	for _, p := range fn.Params {
		a.Params = append(a.Params, p.Name)
		a.Declared[p.Name] = true
	}

	w := &walker{
		a:      a,
		params: make(map[string]bool, len(a.Params)),
		bound:  make(map[string]bool, len(a.Params)),
	}
	for _, p := range a.Params {
		w.params[p] = true
		w.bound[p] = true
	}
	w.walkBody(fn.Body)

	flowFunction(fn, a, returns)
	findHoists(fn.Body, a)
	return a
}

// ModuleReturns builds the sibling return-type table for AnalyzeWith from
// lowered module functions: free functions, methods under their bare
// names, and class names as the instance type their constructor yields.
func ModuleReturns(mod *hir.Module) map[string]*hir.Type {
	returns := make(map[string]*hir.Type)
	for _, fn := range mod.Functions {
		if fn.Ret != nil {
			returns[fn.Name] = fn.Ret
		}
	}
	for _, cls := range mod.Classes {
		returns[cls.Name] = hir.Custom(cls.Name)
		for _, m := range cls.Methods {
			if m.Ret != nil {
				returns[m.Name] = m.Ret
			}
		}
	}
	return returns
}
