// Package types maps source-level HIR types onto Rust type descriptors.
// The descriptors are a tree the code generator renders verbatim; mapping
// policy (integer width, string strategy, hasher choice, NASA mode) lives
// in the Mapper.
package types

import "strings"

// Primitive enumerates Rust scalar types.
type Primitive uint8

const (
	PrimBool Primitive = iota
	PrimI32
	PrimI64
	PrimISize
	PrimU8
	PrimU32
	PrimU64
	PrimUSize
	PrimF64
)

func (p Primitive) String() string {
	switch p {
	case PrimBool:
		return "bool"
	case PrimI32:
		return "i32"
	case PrimI64:
		return "i64"
	case PrimISize:
		return "isize"
	case PrimU8:
		return "u8"
	case PrimU32:
		return "u32"
	case PrimU64:
		return "u64"
	case PrimUSize:
		return "usize"
	default:
		return "f64"
	}
}

// RustKind discriminates RustType nodes.
type RustKind uint8

const (
	RustUnit RustKind = iota
	RustPrimitive
	// RustString is owned String.
	RustString
	// RustStr is a &str view, optionally with an explicit lifetime.
	RustStr
	// RustCow is Cow<lifetime, str>.
	RustCow
	RustVec
	RustMap
	RustSet
	RustDeque
	RustOption
	RustResult
	// RustRef is a & or &mut reference.
	RustRef
	RustTuple
	// RustArray is a fixed-size [T; N].
	RustArray
	// RustCustom carries an opaque spelling: user structs, chrono types,
	// impl-trait forms.
	RustCustom
	// RustGeneric is Base<Args...> for user generics.
	RustGeneric
	// RustParam is a bare type parameter.
	RustParam
	// RustEnum is a generated sum type for non-optional unions.
	RustEnum
	// RustUnsupported renders as a comment; emission around it degrades.
	RustUnsupported
)

// Variant is one arm of a generated union enum.
type Variant struct {
	Name string
	Type *RustType
}

// RustType is a tree-shaped Rust type descriptor. Args carries element
// types: one for Vec/Set/Deque/Option/Ref, two for Map (key, value) and
// Result (ok, err), n for Tuple and Generic parameters.
type RustType struct {
	Kind RustKind
	Prim Primitive
	// Name holds the Custom spelling, Generic base, Param or Enum name,
	// the Unsupported reason, and for Map an alternative map type
	// (FnvHashMap, AHashMap); empty means HashMap.
	Name     string
	Args     []*RustType
	Lifetime string // Str, Cow, Ref
	Mut      bool   // Ref
	Size     string // Array length, literal or const parameter
	Variants []Variant
}

var (
	Unit    = &RustType{Kind: RustUnit}
	Bool    = &RustType{Kind: RustPrimitive, Prim: PrimBool}
	I32     = &RustType{Kind: RustPrimitive, Prim: PrimI32}
	I64     = &RustType{Kind: RustPrimitive, Prim: PrimI64}
	F64     = &RustType{Kind: RustPrimitive, Prim: PrimF64}
	U8      = &RustType{Kind: RustPrimitive, Prim: PrimU8}
	StringT = &RustType{Kind: RustString}
)

func Prim(p Primitive) *RustType { return &RustType{Kind: RustPrimitive, Prim: p} }

func StrRef(lifetime string) *RustType { return &RustType{Kind: RustStr, Lifetime: lifetime} }

func CowOf(lifetime string) *RustType { return &RustType{Kind: RustCow, Lifetime: lifetime} }

func VecOf(elem *RustType) *RustType { return &RustType{Kind: RustVec, Args: []*RustType{elem}} }

func MapOf(key, value *RustType) *RustType {
	return &RustType{Kind: RustMap, Args: []*RustType{key, value}}
}

func SetOf(elem *RustType) *RustType { return &RustType{Kind: RustSet, Args: []*RustType{elem}} }

func DequeOf(elem *RustType) *RustType { return &RustType{Kind: RustDeque, Args: []*RustType{elem}} }

func OptionOf(inner *RustType) *RustType {
	return &RustType{Kind: RustOption, Args: []*RustType{inner}}
}

func ResultOf(ok, err *RustType) *RustType {
	return &RustType{Kind: RustResult, Args: []*RustType{ok, err}}
}

func RefTo(inner *RustType, mutable bool) *RustType {
	return &RustType{Kind: RustRef, Mut: mutable, Args: []*RustType{inner}}
}

func RefWithLifetime(inner *RustType, lifetime string, mutable bool) *RustType {
	return &RustType{Kind: RustRef, Lifetime: lifetime, Mut: mutable, Args: []*RustType{inner}}
}

func TupleOf(items ...*RustType) *RustType { return &RustType{Kind: RustTuple, Args: items} }

func ArrayOf(elem *RustType, size string) *RustType {
	return &RustType{Kind: RustArray, Args: []*RustType{elem}, Size: size}
}

func Named(name string) *RustType { return &RustType{Kind: RustCustom, Name: name} }

func GenericOf(base string, params ...*RustType) *RustType {
	return &RustType{Kind: RustGeneric, Name: base, Args: params}
}

func Param(name string) *RustType { return &RustType{Kind: RustParam, Name: name} }

func EnumOf(name string, variants ...Variant) *RustType {
	return &RustType{Kind: RustEnum, Name: name, Variants: variants}
}

func Unsupported(reason string) *RustType {
	return &RustType{Kind: RustUnsupported, Name: reason}
}

// Elem returns the single wrapped type of Vec/Set/Deque/Option/Ref/Array.
func (t *RustType) Elem() *RustType {
	if t == nil || len(t.Args) == 0 {
		return Unit
	}
	return t.Args[0]
}

// Render spells the descriptor as Rust source.
func (t *RustType) Render() string {
	if t == nil {
		return "()"
	}
	switch t.Kind {
	case RustUnit:
		return "()"
	case RustPrimitive:
		return t.Prim.String()
	case RustString:
		return "String"
	case RustStr:
		if t.Lifetime != "" {
			return "&" + t.Lifetime + " str"
		}
		return "&str"
	case RustCow:
		return "Cow<" + t.Lifetime + ", str>"
	case RustVec:
		return "Vec<" + t.Elem().Render() + ">"
	case RustMap:
		name := t.Name
		if name == "" {
			name = "HashMap"
		}
		return name + "<" + t.Args[0].Render() + ", " + t.Args[1].Render() + ">"
	case RustSet:
		return "HashSet<" + t.Elem().Render() + ">"
	case RustDeque:
		return "VecDeque<" + t.Elem().Render() + ">"
	case RustOption:
		return "Option<" + t.Elem().Render() + ">"
	case RustResult:
		return "Result<" + t.Args[0].Render() + ", " + t.Args[1].Render() + ">"
	case RustRef:
		b := strings.Builder{}
		b.WriteByte('&')
		if t.Lifetime != "" {
			b.WriteString(t.Lifetime)
			b.WriteByte(' ')
		}
		if t.Mut {
			b.WriteString("mut ")
		}
		b.WriteString(t.Elem().Render())
		return b.String()
	case RustTuple:
		if len(t.Args) == 0 {
			return "()"
		}
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.Render()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case RustArray:
		return "[" + t.Elem().Render() + "; " + t.Size + "]"
	case RustCustom:
		return t.Name
	case RustGeneric:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.Render()
		}
		return t.Name + "<" + strings.Join(parts, ", ") + ">"
	case RustParam:
		return t.Name
	case RustEnum:
		return t.Name
	case RustUnsupported:
		return "/* unsupported: " + t.Name + " */"
	default:
		return "()"
	}
}

// CanCopy reports whether the type is Copy and cheap to pass by value.
func (t *RustType) CanCopy() bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case RustUnit, RustPrimitive, RustStr:
		return true
	case RustTuple:
		for _, a := range t.Args {
			if !a.CanCopy() {
				return false
			}
		}
		return true
	case RustArray:
		n := 0
		for _, r := range t.Size {
			if r < '0' || r > '9' {
				return false
			}
			n = n*10 + int(r-'0')
		}
		return n <= 32 && t.Elem().CanCopy()
	default:
		return false
	}
}

// NeedsBorrow reports whether a read-only parameter of this type should be
// taken by reference rather than by value.
func (t *RustType) NeedsBorrow() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case RustVec, RustMap, RustSet, RustDeque, RustString, RustArray:
		return true
	default:
		return false
	}
}

// HasLifetime reports whether the rendered type names a lifetime parameter,
// which the signature must then declare.
func (t *RustType) HasLifetime() bool {
	if t == nil {
		return false
	}
	if t.Lifetime != "" && t.Lifetime != "'static" {
		return true
	}
	for _, a := range t.Args {
		if a.HasLifetime() {
			return true
		}
	}
	return false
}
