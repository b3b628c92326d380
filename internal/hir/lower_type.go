package hir

import (
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
)

// lowerTypeExpr resolves a source type annotation. nil and unparsable
// annotations come back Unknown; parsing problems warn instead of failing
// the function.
func (lw *lowerer) lowerTypeExpr(e pyast.Expr) *Type {
	if e == nil {
		return Unknown
	}
	switch v := e.(type) {
	case *pyast.Name:
		return lw.lowerNamedType(v.ID)
	case *pyast.Literal:
		switch v.Kind {
		case pyast.LitNone:
			return NoneT
		case pyast.LitString:
			// Forward reference: "ClassName".
			if v.Text != "" {
				return Custom(v.Text)
			}
		}
		lw.warnf(diag.TypUnparsableAnnotation, e.Span(), "unparsable type annotation")
		return Unknown
	case *pyast.Attribute:
		// typing.List and friends resolve by their terminal name.
		return lw.lowerNamedType(v.Attr)
	case *pyast.Subscript:
		return lw.lowerGenericType(v)
	case *pyast.BinOp:
		// PEP 604: X | Y, with X | None folding to Optional.
		if v.Op == pyast.OpBitOr {
			left := lw.lowerTypeExpr(v.Left)
			right := lw.lowerTypeExpr(v.Right)
			return mergeUnion(left, right)
		}
		lw.warnf(diag.TypUnparsableAnnotation, e.Span(), "unparsable type annotation")
		return Unknown
	case *pyast.TupleExpr:
		items := make([]*Type, 0, len(v.Elts))
		for _, elt := range v.Elts {
			items = append(items, lw.lowerTypeExpr(elt))
		}
		return TupleOf(items...)
	default:
		lw.warnf(diag.TypUnparsableAnnotation, e.Span(), "unparsable type annotation")
		return Unknown
	}
}

func (lw *lowerer) lowerNamedType(name string) *Type {
	switch name {
	case "int":
		return IntT
	case "float":
		return FloatT
	case "str":
		return StrT
	case "bool":
		return BoolT
	case "bytes", "bytearray":
		return BytesT
	case "None", "NoneType":
		return NoneT
	case "Any", "object":
		return AnyT
	case "list", "List":
		return ListOf(Unknown)
	case "dict", "Dict":
		return DictOf(Unknown, Unknown)
	case "set", "Set":
		return SetOf(Unknown)
	case "frozenset", "FrozenSet":
		return FrozenSetOf(Unknown)
	case "tuple", "Tuple":
		return TupleOf()
	case "Optional":
		return OptionalOf(Unknown)
	case "Callable":
		return CallableOf(nil, Unknown)
	}
	// A single uppercase letter reads as a generic parameter.
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z' {
		return TypeVar(name)
	}
	return Custom(name)
}

func (lw *lowerer) lowerGenericType(v *pyast.Subscript) *Type {
	base := ""
	switch b := v.Value.(type) {
	case *pyast.Name:
		base = b.ID
	case *pyast.Attribute:
		base = b.Attr
	default:
		lw.warnf(diag.TypUnparsableAnnotation, v.Span(), "unparsable type annotation")
		return Unknown
	}

	args := lw.typeArgs(v.Index)
	arg := func(i int) *Type {
		if i < len(args) {
			return args[i]
		}
		return Unknown
	}

	switch base {
	case "list", "List", "Sequence", "Iterable", "Iterator":
		return ListOf(arg(0))
	case "dict", "Dict", "Mapping", "MutableMapping", "DefaultDict", "defaultdict", "OrderedDict", "Counter":
		return DictOf(arg(0), arg(1))
	case "set", "Set", "MutableSet":
		return SetOf(arg(0))
	case "frozenset", "FrozenSet":
		return FrozenSetOf(arg(0))
	case "tuple", "Tuple":
		// tuple[int, ...] means homogeneous; keep it a list-like product of
		// one element type.
		if len(args) == 2 && args[1] == ellipsisMarker {
			return TupleOf(args[0])
		}
		return TupleOf(stripEllipsis(args)...)
	case "Optional":
		return OptionalOf(arg(0))
	case "Union":
		return foldUnion(args)
	case "Callable":
		return lw.lowerCallableType(v)
	case "type", "Type":
		return Custom("type", arg(0))
	}
	return Custom(base, args...)
}

// ellipsisMarker flags `...` inside subscript arguments.
var ellipsisMarker = &Type{Kind: TypeUnknown, Name: "..."}

func (lw *lowerer) typeArgs(index pyast.Expr) []*Type {
	switch v := index.(type) {
	case nil:
		return nil
	case *pyast.TupleExpr:
		out := make([]*Type, 0, len(v.Elts))
		for _, elt := range v.Elts {
			out = append(out, lw.typeArg(elt))
		}
		return out
	default:
		return []*Type{lw.typeArg(index)}
	}
}

func (lw *lowerer) typeArg(e pyast.Expr) *Type {
	if lit, ok := e.(*pyast.Literal); ok && lit.Kind == pyast.LitEllipsis {
		return ellipsisMarker
	}
	return lw.lowerTypeExpr(e)
}

func stripEllipsis(args []*Type) []*Type {
	out := args[:0]
	for _, a := range args {
		if a != ellipsisMarker {
			out = append(out, a)
		}
	}
	return out
}

// lowerCallableType handles Callable[[A, B], R] and Callable[..., R].
func (lw *lowerer) lowerCallableType(v *pyast.Subscript) *Type {
	tup, ok := v.Index.(*pyast.TupleExpr)
	if !ok || len(tup.Elts) != 2 {
		lw.warnf(diag.TypCallableUnsupported, v.Span(), "Callable annotation needs [params], return")
		return CallableOf(nil, Unknown)
	}
	ret := lw.lowerTypeExpr(tup.Elts[1])
	switch params := tup.Elts[0].(type) {
	case *pyast.ListExpr:
		ps := make([]*Type, 0, len(params.Elts))
		for _, p := range params.Elts {
			ps = append(ps, lw.lowerTypeExpr(p))
		}
		return CallableOf(ps, ret)
	case *pyast.Literal:
		if params.Kind == pyast.LitEllipsis {
			return CallableOf(nil, ret)
		}
	}
	lw.warnf(diag.TypCallableUnsupported, v.Span(), "Callable annotation needs [params], return")
	return CallableOf(nil, ret)
}

// mergeUnion folds X | Y annotations, collapsing None into Optional.
func mergeUnion(a, b *Type) *Type {
	if a.Kind == TypeNone {
		return OptionalOf(b)
	}
	if b.Kind == TypeNone {
		return OptionalOf(a)
	}
	if a.Kind == TypeUnion {
		return UnionOf(append(append([]*Type{}, a.Args...), b)...)
	}
	return UnionOf(a, b)
}

func foldUnion(args []*Type) *Type {
	var rest []*Type
	sawNone := false
	for _, a := range args {
		if a.Kind == TypeNone {
			sawNone = true
			continue
		}
		rest = append(rest, a)
	}
	var merged *Type
	switch len(rest) {
	case 0:
		return NoneT
	case 1:
		merged = rest[0]
	default:
		merged = UnionOf(rest...)
	}
	if sawNone {
		return OptionalOf(merged)
	}
	return merged
}
