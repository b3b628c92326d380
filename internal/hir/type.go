package hir

import "strings"

// TypeKind enumerates source-level (Python) types carried through HIR.
// Mapping to Rust descriptors happens later in the type mapper.
type TypeKind uint8

const (
	// TypeUnknown marks a type the bridge could not resolve yet.
	TypeUnknown TypeKind = iota
	// TypeNone is the unit type of `None`.
	TypeNone
	TypeInt
	TypeFloat
	TypeBool
	TypeStr
	TypeBytes
	// TypeList is a growable ordered sequence.
	TypeList
	// TypeDict is a hash mapping.
	TypeDict
	// TypeSet is a hash set.
	TypeSet
	// TypeFrozenSet is an immutable hash set.
	TypeFrozenSet
	// TypeTuple is a fixed-arity product.
	TypeTuple
	// TypeOptional wraps a nullable value.
	TypeOptional
	// TypeUnion is a PEP 604 / typing.Union sum.
	TypeUnion
	// TypeCallable is a function value.
	TypeCallable
	// TypeCustom names a user class or an unrecognized named type.
	TypeCustom
	// TypeVarRef is a generic type parameter (single uppercase letter or
	// declared TypeVar).
	TypeVarRef
	// TypeAny is typing.Any, kept distinct from Unknown: Any is declared,
	// Unknown is unresolved.
	TypeAny
)

// Type is a tree-shaped source type. Args carries the element types: one for
// List/Set/FrozenSet/Optional, two for Dict (key, value), n for Tuple and
// Union, parameter types for Callable (return in Ret), generic arguments for
// Custom.
type Type struct {
	Kind TypeKind
	Name string  // Custom, TypeVarRef
	Args []*Type // element / parameter types
	Ret  *Type   // Callable return
}

var (
	Unknown = &Type{Kind: TypeUnknown}
	NoneT   = &Type{Kind: TypeNone}
	IntT    = &Type{Kind: TypeInt}
	FloatT  = &Type{Kind: TypeFloat}
	BoolT   = &Type{Kind: TypeBool}
	StrT    = &Type{Kind: TypeStr}
	BytesT  = &Type{Kind: TypeBytes}
	AnyT    = &Type{Kind: TypeAny}
)

func ListOf(elem *Type) *Type      { return &Type{Kind: TypeList, Args: []*Type{elem}} }
func SetOf(elem *Type) *Type       { return &Type{Kind: TypeSet, Args: []*Type{elem}} }
func FrozenSetOf(elem *Type) *Type { return &Type{Kind: TypeFrozenSet, Args: []*Type{elem}} }
func DictOf(key, value *Type) *Type {
	return &Type{Kind: TypeDict, Args: []*Type{key, value}}
}
func TupleOf(items ...*Type) *Type { return &Type{Kind: TypeTuple, Args: items} }
func OptionalOf(inner *Type) *Type {
	if inner != nil && inner.Kind == TypeOptional {
		return inner
	}
	return &Type{Kind: TypeOptional, Args: []*Type{inner}}
}
func UnionOf(options ...*Type) *Type { return &Type{Kind: TypeUnion, Args: options} }
func CallableOf(params []*Type, ret *Type) *Type {
	return &Type{Kind: TypeCallable, Args: params, Ret: ret}
}
func Custom(name string, args ...*Type) *Type {
	return &Type{Kind: TypeCustom, Name: name, Args: args}
}
func TypeVar(name string) *Type { return &Type{Kind: TypeVarRef, Name: name} }

// Elem returns the single element type of List/Set/FrozenSet/Optional.
func (t *Type) Elem() *Type {
	if t == nil || len(t.Args) == 0 {
		return Unknown
	}
	return t.Args[0]
}

// Key returns the Dict key type.
func (t *Type) Key() *Type {
	if t == nil || t.Kind != TypeDict || len(t.Args) < 1 {
		return Unknown
	}
	return t.Args[0]
}

// Value returns the Dict value type.
func (t *Type) Value() *Type {
	if t == nil || t.Kind != TypeDict || len(t.Args) < 2 {
		return Unknown
	}
	return t.Args[1]
}

func (t *Type) IsUnknown() bool { return t == nil || t.Kind == TypeUnknown }

// IsNumeric reports int or float.
func (t *Type) IsNumeric() bool {
	return t != nil && (t.Kind == TypeInt || t.Kind == TypeFloat)
}

// Equal compares structurally.
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind || t.Name != other.Name || len(t.Args) != len(other.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	if (t.Ret == nil) != (other.Ret == nil) {
		return false
	}
	if t.Ret != nil && !t.Ret.Equal(other.Ret) {
		return false
	}
	return true
}

// Unify merges two flow types at a control-flow join. Equal types keep
// themselves, Unknown yields to the other side, int and float widen to
// float, None against T wraps Optional(T). Anything else degrades to
// Unknown rather than guessing.
func Unify(a, b *Type) *Type {
	switch {
	case a.IsUnknown():
		return b
	case b.IsUnknown():
		return a
	case a.Equal(b):
		return a
	case a.IsNumeric() && b.IsNumeric():
		return FloatT
	case a.Kind == TypeNone:
		return OptionalOf(b)
	case b.Kind == TypeNone:
		return OptionalOf(a)
	case a.Kind == TypeOptional && a.Elem().Equal(b):
		return a
	case b.Kind == TypeOptional && b.Elem().Equal(a):
		return b
	default:
		return Unknown
	}
}

// String renders the Python spelling, used by diagnostics and dumps.
func (t *Type) String() string {
	if t == nil {
		return "Unknown"
	}
	switch t.Kind {
	case TypeNone:
		return "None"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeStr:
		return "str"
	case TypeBytes:
		return "bytes"
	case TypeAny:
		return "Any"
	case TypeList:
		return "list[" + t.Elem().String() + "]"
	case TypeSet:
		return "set[" + t.Elem().String() + "]"
	case TypeFrozenSet:
		return "frozenset[" + t.Elem().String() + "]"
	case TypeDict:
		return "dict[" + t.Key().String() + ", " + t.Value().String() + "]"
	case TypeTuple:
		return "tuple[" + joinTypes(t.Args) + "]"
	case TypeOptional:
		return "Optional[" + t.Elem().String() + "]"
	case TypeUnion:
		return "Union[" + joinTypes(t.Args) + "]"
	case TypeCallable:
		ret := "None"
		if t.Ret != nil {
			ret = t.Ret.String()
		}
		return "Callable[[" + joinTypes(t.Args) + "], " + ret + "]"
	case TypeCustom:
		if len(t.Args) == 0 {
			return t.Name
		}
		return t.Name + "[" + joinTypes(t.Args) + "]"
	case TypeVarRef:
		return t.Name
	default:
		return "Unknown"
	}
}

func joinTypes(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
