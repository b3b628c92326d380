package types

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/hir"
)

// IntWidth selects the Rust integer type a source int maps to.
type IntWidth uint8

const (
	WidthI64 IntWidth = iota
	WidthI32
	WidthISize
)

// ParseIntWidth converts a flag or config string to IntWidth.
func ParseIntWidth(s string) (IntWidth, error) {
	switch s {
	case "", "i64":
		return WidthI64, nil
	case "i32":
		return WidthI32, nil
	case "isize":
		return WidthISize, nil
	}
	return WidthI64, fmt.Errorf("unknown int width %q", s)
}

// StringMode is the module-level default for string types. Per-function
// annotations override it.
type StringMode uint8

const (
	StringAlwaysOwned StringMode = iota
	StringInferBorrowing
	StringCowByDefault
)

// ParseStringMode converts a flag or config string to StringMode.
func ParseStringMode(s string) (StringMode, error) {
	switch s {
	case "", "always_owned":
		return StringAlwaysOwned, nil
	case "infer_borrowing":
		return StringInferBorrowing, nil
	case "cow":
		return StringCowByDefault, nil
	}
	return StringAlwaysOwned, fmt.Errorf("unknown string strategy %q", s)
}

// Mapper resolves HIR types to Rust descriptors. The zero value maps int to
// i64, strings to owned String, and unknowns to serde_json::Value.
type Mapper struct {
	Width   IntWidth
	Strings StringMode
	// Nasa restricts output to std-only types: chrono degrades to
	// std::time, the wildcard fallback to String.
	Nasa bool
	// OnFallback fires once per type that degraded to the wildcard value
	// type. The driver wires it to telemetry.
	OnFallback func()
}

func NewMapper() *Mapper { return &Mapper{} }

// Map resolves a type under the default annotation set.
func (m *Mapper) Map(t *hir.Type) *RustType {
	return m.MapWith(t, annotations.Default())
}

// MapWith resolves a type under one function's annotations.
func (m *Mapper) MapWith(t *hir.Type, ann annotations.Set) *RustType {
	if t == nil {
		return m.wildcard()
	}
	switch t.Kind {
	case hir.TypeUnknown:
		return m.wildcard()
	case hir.TypeAny:
		// Declared dynamic is not an inference failure.
		return m.anyType()
	case hir.TypeNone:
		return Unit
	case hir.TypeInt:
		return m.intType()
	case hir.TypeFloat:
		return F64
	case hir.TypeBool:
		return Bool
	case hir.TypeStr:
		return m.stringType(ann)
	case hir.TypeBytes:
		return VecOf(U8)
	case hir.TypeList:
		return m.applyOwnership(VecOf(m.MapWith(t.Elem(), ann)), ann)
	case hir.TypeDict:
		return m.dictType(t, ann)
	case hir.TypeSet, hir.TypeFrozenSet:
		return m.setType(t, ann)
	case hir.TypeTuple:
		items := make([]*RustType, len(t.Args))
		for i, a := range t.Args {
			items[i] = m.MapWith(a, ann)
		}
		return TupleOf(items...)
	case hir.TypeOptional:
		return m.optionalType(t, ann)
	case hir.TypeUnion:
		return m.unionType(t, ann)
	case hir.TypeCallable:
		return m.callableType(t, ann)
	case hir.TypeVarRef:
		return Param(t.Name)
	case hir.TypeCustom:
		return m.customType(t, ann)
	default:
		return m.wildcard()
	}
}

// MapReturn resolves a return annotation. Functions without one implicitly
// return None; an error-strategy annotation wraps the value in Result.
func (m *Mapper) MapReturn(t *hir.Type, ann annotations.Set) *RustType {
	var mapped *RustType
	if t == nil || t.IsUnknown() || t.Kind == hir.TypeNone {
		mapped = Unit
	} else {
		mapped = m.MapWith(t, ann)
	}
	if ann.ErrorStrategy == annotations.ErrorResultType && mapped.Kind != RustResult {
		return ResultOf(mapped, Named("Box<dyn std::error::Error>"))
	}
	return mapped
}

func (m *Mapper) intType() *RustType {
	switch m.Width {
	case WidthI32:
		return I32
	case WidthISize:
		return Prim(PrimISize)
	default:
		return I64
	}
}

// wildcard is the stand-in for types inference could not resolve; every use
// is a telemetry event.
func (m *Mapper) wildcard() *RustType {
	if m.OnFallback != nil {
		m.OnFallback()
	}
	return m.anyType()
}

func (m *Mapper) anyType() *RustType {
	if m.Nasa {
		return StringT
	}
	return Named("serde_json::Value")
}

func (m *Mapper) stringType(ann annotations.Set) *RustType {
	switch ann.StringStrategy {
	case annotations.StringAlwaysOwned:
		return StringT
	case annotations.StringZeroCopy:
		if ann.Ownership == annotations.OwnershipBorrowed {
			return StrRef("'a")
		}
		return StringT
	default:
		if ann.Ownership == annotations.OwnershipBorrowed {
			return StrRef("'a")
		}
		if m.Strings == StringCowByDefault {
			return CowOf("'static")
		}
		return StringT
	}
}

func (m *Mapper) dictType(t *hir.Type, ann annotations.Set) *RustType {
	var key *RustType
	if t.Key().IsUnknown() {
		// Map keys must hash; the wildcard value type does not.
		key = StringT
	} else {
		key = m.MapWith(t.Key(), ann)
	}
	mp := MapOf(key, m.MapWith(t.Value(), ann))
	if !m.Nasa {
		switch ann.HashStrategy {
		case annotations.HashFnv:
			mp.Name = "FnvHashMap"
		case annotations.HashAHash:
			mp.Name = "AHashMap"
		}
	}
	return m.applyOwnership(mp, ann)
}

func (m *Mapper) setType(t *hir.Type, ann annotations.Set) *RustType {
	if t.Elem().IsUnknown() {
		// Same hashing constraint as map keys.
		return SetOf(StringT)
	}
	return SetOf(m.MapWith(t.Elem(), ann))
}

func (m *Mapper) optionalType(t *hir.Type, ann annotations.Set) *RustType {
	inner := m.MapWith(t.Elem(), ann)
	if ann.ErrorStrategy == annotations.ErrorResultType {
		return ResultOf(inner, Named("Box<dyn std::error::Error>"))
	}
	return OptionOf(inner)
}

func (m *Mapper) unionType(t *hir.Type, ann annotations.Set) *RustType {
	variants := make([]Variant, 0, len(t.Args))
	for i, opt := range t.Args {
		var name string
		switch opt.Kind {
		case hir.TypeInt:
			name = "Integer"
		case hir.TypeFloat:
			name = "Float"
		case hir.TypeStr:
			name = "Text"
		case hir.TypeBool:
			name = "Boolean"
		case hir.TypeNone:
			name = "None"
		case hir.TypeCustom:
			name = opt.Name
		default:
			name = fmt.Sprintf("Variant%d", i)
		}
		variants = append(variants, Variant{Name: name, Type: m.MapWith(opt, ann)})
	}
	// Codegen renames the enum after the first site that needs it.
	return EnumOf("UnionType", variants...)
}

func (m *Mapper) callableType(t *hir.Type, ann annotations.Set) *RustType {
	retStr := ""
	if t.Ret != nil && !t.Ret.IsUnknown() && t.Ret.Kind != hir.TypeNone {
		if ret := m.MapWith(t.Ret, ann); ret.Kind != RustUnit {
			retStr = " -> " + ret.Render()
		}
	}
	if t.Args == nil {
		// Arity unknown: boxed trait object.
		return Named("Box<dyn Fn()" + retStr + ">")
	}
	params := make([]string, len(t.Args))
	nested := strings.Contains(retStr, "impl Fn")
	for i, p := range t.Args {
		params[i] = m.MapWith(p, ann).Render()
		if strings.Contains(params[i], "impl Fn") {
			nested = true
		}
	}
	head := "impl Fn"
	if nested {
		// impl Fn cannot nest inside impl Fn; fall back to &dyn at every
		// level.
		head = "&dyn Fn"
		for i := range params {
			params[i] = strings.ReplaceAll(params[i], "impl Fn", "&dyn Fn")
		}
		retStr = strings.ReplaceAll(retStr, "impl Fn", "&dyn Fn")
	}
	return Named(head + "(" + strings.Join(params, ", ") + ")" + retStr)
}

func (m *Mapper) customType(t *hir.Type, ann annotations.Set) *RustType {
	if len(t.Args) > 0 {
		return m.genericNamed(t, ann)
	}
	switch t.Name {
	case "deque", "Deque":
		return DequeOf(m.anyType())
	case "Counter":
		return MapOf(StringT, m.intType())
	case "Namespace":
		// argparse.Namespace becomes the generated clap Args struct.
		return Named("Args")
	case "File", "IO", "TextIO", "BinaryIO", "TextIOWrapper":
		return RefTo(Named("impl std::io::Write"), true)
	case "Iterator", "Iterable", "Sequence", "MutableSequence":
		return VecOf(m.anyType())
	case "date":
		if m.Nasa {
			return TupleOf(Prim(PrimU32), Prim(PrimU32), Prim(PrimU32))
		}
		return Named("chrono::NaiveDate")
	case "datetime":
		if m.Nasa {
			return Named("std::time::SystemTime")
		}
		return Named("chrono::NaiveDateTime")
	case "time":
		if m.Nasa {
			return TupleOf(Prim(PrimU32), Prim(PrimU32), Prim(PrimU32))
		}
		return Named("chrono::NaiveTime")
	case "timedelta":
		if m.Nasa {
			return Named("std::time::Duration")
		}
		return Named("chrono::Duration")
	case "Path", "PurePath":
		return Named("std::path::PathBuf")
	case "Decimal":
		if m.Nasa {
			return F64
		}
		return Named("rust_decimal::Decimal")
	case "OSError", "IOError", "FileNotFoundError", "PermissionError":
		return Named("std::io::Error")
	case "Exception", "BaseException", "ValueError", "TypeError", "KeyError",
		"IndexError", "RuntimeError", "AttributeError", "NotImplementedError",
		"AssertionError", "StopIteration", "ZeroDivisionError", "OverflowError",
		"ArithmeticError":
		return Named("Box<dyn std::error::Error>")
	}
	return Named(t.Name)
}

func (m *Mapper) genericNamed(t *hir.Type, ann annotations.Set) *RustType {
	args := make([]*RustType, len(t.Args))
	for i, a := range t.Args {
		args[i] = m.MapWith(a, ann)
	}
	switch t.Name {
	case "deque", "Deque":
		return DequeOf(args[0])
	case "Generator", "AsyncGenerator":
		return Named("impl Iterator<Item = " + args[0].Render() + ">")
	case "type", "Type":
		return Named("std::marker::PhantomData<" + args[0].Render() + ">")
	}
	return GenericOf(t.Name, args...)
}

func (m *Mapper) applyOwnership(base *RustType, ann annotations.Set) *RustType {
	switch ann.Ownership {
	case annotations.OwnershipBorrowed:
		return RefWithLifetime(base, "'a", false)
	case annotations.OwnershipShared:
		if ann.ThreadSafety == annotations.ThreadRequired {
			return GenericOf("Arc", base)
		}
		return GenericOf("Rc", base)
	default:
		return base
	}
}
