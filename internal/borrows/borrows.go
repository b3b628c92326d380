// Package borrows derives a borrow kind for every function parameter by
// iterating local mutation facts across the call graph to a fixpoint.
// Callers learn exclusivity from their callees: passing a parameter, or a
// field of one, to a function that needs exclusive access makes the
// caller's parameter exclusive too.
package borrows

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/paiml/depyler/internal/source"
)

// Kind is the ownership classification of one parameter.
type Kind uint8

const (
	// SharedBorrow is a read-only reference.
	SharedBorrow Kind = iota
	// Owned moves the value into the function.
	Owned
	// ExclusiveBorrow is a mutable reference.
	ExclusiveBorrow
	// Conditional depends on a generic instantiation; If and Else on the
	// parameter hold the alternatives.
	Conditional
)

func (k Kind) String() string {
	switch k {
	case Owned:
		return "owned"
	case ExclusiveBorrow:
		return "exclusive borrow"
	case Conditional:
		return "conditional"
	default:
		return "shared borrow"
	}
}

// MarshalJSON emits the display name so dumps read without the ordinal
// table.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// Reason is one step of the explanation chain behind a classification.
type Reason struct {
	Detail string
	Span   source.Span
}

func (r Reason) String() string { return r.Detail }

// ParamSignature is the solved classification of one parameter.
type ParamSignature struct {
	Name string
	Kind Kind
	// If and Else are the alternatives when Kind is Conditional.
	If, Else Kind
	// Mutated is set when the body writes the parameter; Owned parameters
	// with this flag bind as `mut`.
	Mutated bool
	Reasons []Reason
}

// FunctionSignature is the solved signature of one function.
type FunctionSignature struct {
	// Name is the bare function name, or Class.method for methods.
	Name   string
	Params []ParamSignature
	// Fallible marks functions that can raise, trip a fallible operation,
	// or call something that does.
	Fallible bool
}

// Param looks a parameter up by name.
func (s *FunctionSignature) Param(name string) *ParamSignature {
	for i := range s.Params {
		if s.Params[i].Name == name {
			return &s.Params[i]
		}
	}
	return nil
}

// Result holds every solved signature of a module.
type Result struct {
	functions map[string]*FunctionSignature
	methods   map[string]*FunctionSignature
}

// Function returns the signature of a free function or a class
// constructor reachable under the given call name.
func (r *Result) Function(name string) *FunctionSignature {
	return r.functions[name]
}

// Method returns the signature of a class method.
func (r *Result) Method(class, method string) *FunctionSignature {
	return r.methods[class+"."+method]
}

// All returns every signature in deterministic order.
func (r *Result) All() []*FunctionSignature {
	seen := make(map[*FunctionSignature]bool)
	var out []*FunctionSignature
	for _, s := range r.functions {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range r.methods {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func reasonf(sp source.Span, format string, args ...any) Reason {
	return Reason{Detail: fmt.Sprintf(format, args...), Span: sp}
}
