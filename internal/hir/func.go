package hir

import (
	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/source"
)

// MethodKind classifies how a function is bound when it lives in a class.
type MethodKind uint8

const (
	// MethodFree is a module-level function.
	MethodFree MethodKind = iota
	// MethodInstance takes the receiver as first parameter.
	MethodInstance
	// MethodStatic has no receiver.
	MethodStatic
	// MethodClass receives the class object; lowered like static with the
	// type substituted for cls.
	MethodClass
	// MethodProperty is a @property getter.
	MethodProperty
	// MethodSetter is a @x.setter.
	MethodSetter
)

func (k MethodKind) String() string {
	switch k {
	case MethodInstance:
		return "instance"
	case MethodStatic:
		return "static"
	case MethodClass:
		return "class"
	case MethodProperty:
		return "property"
	case MethodSetter:
		return "setter"
	default:
		return "free"
	}
}

// Param is one formal parameter.
type Param struct {
	Name     string
	Type     *Type
	Default  *Expr // nil when required
	Variadic bool  // *args
	KwOnly   bool
	// MutableDefault marks list/dict/set literal defaults that must be
	// materialized per call instead of shared.
	MutableDefault bool
	Span           source.Span
}

// Properties records facts derived by the analyzers. Zero value means
// nothing proven yet.
type Properties struct {
	IsPure    bool
	PanicFree bool
	// MutatesParams holds indices into Params that the function writes
	// through.
	MutatesParams map[int]bool
	Terminates    bool
	// CanFail marks functions whose body can raise, making the Rust
	// signature a Result.
	CanFail bool
}

// Function is the HIR of one function or method.
type Function struct {
	Name        string
	Params      []Param
	Ret         *Type
	Body        []Stmt
	Docstring   string
	Annotations annotations.Set
	Props       Properties
	Span        source.Span
	IsAsync     bool
	Method      MethodKind
	// Receiver is the source name of the self/cls parameter; empty for
	// free and static functions.
	Receiver string
}

// ParamIndex returns the position of a named parameter, or -1.
func (f *Function) ParamIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// IsDunder reports a __name__-style special method.
func (f *Function) IsDunder() bool {
	n := f.Name
	return len(n) > 4 && n[:2] == "__" && n[len(n)-2:] == "__"
}
