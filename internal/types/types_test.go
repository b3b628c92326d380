package types_test

import (
	"testing"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/types"
)

func TestMapDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   *hir.Type
		want string
	}{
		{"int", hir.IntT, "i64"},
		{"float", hir.FloatT, "f64"},
		{"bool", hir.BoolT, "bool"},
		{"none", hir.NoneT, "()"},
		{"str", hir.StrT, "String"},
		{"bytes", hir.BytesT, "Vec<u8>"},
		{"list", hir.ListOf(hir.IntT), "Vec<i64>"},
		{"nested list", hir.ListOf(hir.ListOf(hir.FloatT)), "Vec<Vec<f64>>"},
		{"dict", hir.DictOf(hir.StrT, hir.IntT), "HashMap<String, i64>"},
		{"set", hir.SetOf(hir.StrT), "HashSet<String>"},
		{"frozenset", hir.FrozenSetOf(hir.IntT), "HashSet<i64>"},
		{"tuple", hir.TupleOf(hir.IntT, hir.StrT), "(i64, String)"},
		{"empty tuple", hir.TupleOf(), "()"},
		{"optional", hir.OptionalOf(hir.IntT), "Option<i64>"},
		{"type param", hir.TypeVar("T"), "T"},
		{"user class", hir.Custom("Point"), "Point"},
		{"any", hir.AnyT, "serde_json::Value"},
		{"path", hir.Custom("Path"), "std::path::PathBuf"},
		{"os error", hir.Custom("OSError"), "std::io::Error"},
		{"value error", hir.Custom("ValueError"), "Box<dyn std::error::Error>"},
		{"datetime", hir.Custom("datetime"), "chrono::NaiveDateTime"},
		{"timedelta", hir.Custom("timedelta"), "chrono::Duration"},
		{"deque", hir.Custom("deque", hir.IntT), "VecDeque<i64>"},
		{"generator", hir.Custom("Generator", hir.IntT, hir.NoneT, hir.NoneT), "impl Iterator<Item = i64>"},
		{"namespace", hir.Custom("Namespace"), "Args"},
		{"user generic", hir.Custom("Grid", hir.FloatT), "Grid<f64>"},
	}
	m := types.NewMapper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.in).Render(); got != tt.want {
				t.Fatalf("Map(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntWidth(t *testing.T) {
	for _, tt := range []struct {
		width types.IntWidth
		want  string
	}{
		{types.WidthI64, "i64"},
		{types.WidthI32, "i32"},
		{types.WidthISize, "isize"},
	} {
		m := &types.Mapper{Width: tt.width}
		if got := m.Map(hir.IntT).Render(); got != tt.want {
			t.Fatalf("width %d: Map(int) = %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestUnknownFallsBackWithTelemetry(t *testing.T) {
	fallbacks := 0
	m := types.NewMapper()
	m.OnFallback = func() { fallbacks++ }

	if got := m.Map(hir.Unknown).Render(); got != "serde_json::Value" {
		t.Fatalf("Map(Unknown) = %q", got)
	}
	if fallbacks != 1 {
		t.Fatalf("fallback count = %d, want 1", fallbacks)
	}

	// Declared Any produces the same spelling but no event.
	if got := m.Map(hir.AnyT).Render(); got != "serde_json::Value" {
		t.Fatalf("Map(Any) = %q", got)
	}
	if fallbacks != 1 {
		t.Fatalf("Any must not count as a fallback, count = %d", fallbacks)
	}

	// Unknown container elements count too.
	if got := m.Map(hir.ListOf(hir.Unknown)).Render(); got != "Vec<serde_json::Value>" {
		t.Fatalf("Map(list) = %q", got)
	}
	if fallbacks != 2 {
		t.Fatalf("fallback count = %d, want 2", fallbacks)
	}
}

func TestUnknownDictKeysStayHashable(t *testing.T) {
	m := types.NewMapper()
	if got := m.Map(hir.DictOf(hir.Unknown, hir.Unknown)).Render(); got != "HashMap<String, serde_json::Value>" {
		t.Fatalf("Map(dict) = %q", got)
	}
	if got := m.Map(hir.SetOf(hir.Unknown)).Render(); got != "HashSet<String>" {
		t.Fatalf("Map(set) = %q", got)
	}
}

func TestNasaMode(t *testing.T) {
	m := &types.Mapper{Nasa: true}
	tests := []struct {
		name string
		in   *hir.Type
		want string
	}{
		{"unknown", hir.Unknown, "String"},
		{"datetime", hir.Custom("datetime"), "std::time::SystemTime"},
		{"date", hir.Custom("date"), "(u32, u32, u32)"},
		{"timedelta", hir.Custom("timedelta"), "std::time::Duration"},
		{"decimal", hir.Custom("Decimal"), "f64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.in).Render(); got != tt.want {
				t.Fatalf("Map = %q, want %q", got, tt.want)
			}
		})
	}

	// Alternative hashers need external crates; NASA keeps std HashMap.
	ann := annotations.Set{HashStrategy: annotations.HashFnv}
	if got := m.MapWith(hir.DictOf(hir.StrT, hir.IntT), ann).Render(); got != "HashMap<String, i64>" {
		t.Fatalf("NASA hash strategy = %q", got)
	}
}

func TestStringStrategies(t *testing.T) {
	m := types.NewMapper()

	owned := annotations.Set{StringStrategy: annotations.StringAlwaysOwned}
	if got := m.MapWith(hir.StrT, owned).Render(); got != "String" {
		t.Fatalf("always owned = %q", got)
	}

	zero := annotations.Set{
		StringStrategy: annotations.StringZeroCopy,
		Ownership:      annotations.OwnershipBorrowed,
	}
	if got := m.MapWith(hir.StrT, zero).Render(); got != "&'a str" {
		t.Fatalf("zero copy borrowed = %q", got)
	}

	// Zero copy without borrowed ownership cannot hold a reference.
	zeroOwned := annotations.Set{StringStrategy: annotations.StringZeroCopy}
	if got := m.MapWith(hir.StrT, zeroOwned).Render(); got != "String" {
		t.Fatalf("zero copy owned = %q", got)
	}

	cow := &types.Mapper{Strings: types.StringCowByDefault}
	if got := cow.Map(hir.StrT).Render(); got != "Cow<'static, str>" {
		t.Fatalf("cow default = %q", got)
	}
}

func TestHashStrategies(t *testing.T) {
	m := types.NewMapper()
	dict := hir.DictOf(hir.StrT, hir.IntT)

	fnv := annotations.Set{HashStrategy: annotations.HashFnv}
	if got := m.MapWith(dict, fnv).Render(); got != "FnvHashMap<String, i64>" {
		t.Fatalf("fnv = %q", got)
	}
	ahash := annotations.Set{HashStrategy: annotations.HashAHash}
	if got := m.MapWith(dict, ahash).Render(); got != "AHashMap<String, i64>" {
		t.Fatalf("ahash = %q", got)
	}
}

func TestOwnershipModels(t *testing.T) {
	m := types.NewMapper()
	list := hir.ListOf(hir.IntT)

	borrowed := annotations.Set{Ownership: annotations.OwnershipBorrowed}
	if got := m.MapWith(list, borrowed).Render(); got != "&'a Vec<i64>" {
		t.Fatalf("borrowed = %q", got)
	}

	shared := annotations.Set{Ownership: annotations.OwnershipShared}
	if got := m.MapWith(list, shared).Render(); got != "Rc<Vec<i64>>" {
		t.Fatalf("shared = %q", got)
	}

	sharedSync := annotations.Set{
		Ownership:    annotations.OwnershipShared,
		ThreadSafety: annotations.ThreadRequired,
	}
	if got := m.MapWith(list, sharedSync).Render(); got != "Arc<Vec<i64>>" {
		t.Fatalf("shared thread-safe = %q", got)
	}
}

func TestCallableTypes(t *testing.T) {
	m := types.NewMapper()

	known := hir.CallableOf([]*hir.Type{hir.IntT}, hir.IntT)
	if got := m.Map(known).Render(); got != "impl Fn(i64) -> i64" {
		t.Fatalf("known arity = %q", got)
	}

	void := hir.CallableOf([]*hir.Type{hir.StrT}, hir.NoneT)
	if got := m.Map(void).Render(); got != "impl Fn(String)" {
		t.Fatalf("void return = %q", got)
	}

	bare := hir.CallableOf(nil, hir.Unknown)
	if got := m.Map(bare).Render(); got != "Box<dyn Fn()>" {
		t.Fatalf("bare callable = %q", got)
	}

	nested := hir.CallableOf([]*hir.Type{known}, hir.IntT)
	if got := m.Map(nested).Render(); got != "&dyn Fn(&dyn Fn(i64) -> i64) -> i64" {
		t.Fatalf("nested callable = %q", got)
	}
}

func TestUnionBecomesEnum(t *testing.T) {
	m := types.NewMapper()
	got := m.Map(hir.UnionOf(hir.IntT, hir.StrT, hir.Custom("Point")))
	if got.Kind != types.RustEnum {
		t.Fatalf("union kind = %v", got.Kind)
	}
	if len(got.Variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(got.Variants))
	}
	names := []string{got.Variants[0].Name, got.Variants[1].Name, got.Variants[2].Name}
	want := []string{"Integer", "Text", "Point"}
	for i := range names {
		if names[i] != want[i] {
			t.Fatalf("variant names = %v, want %v", names, want)
		}
	}
	if got.Variants[0].Type.Render() != "i64" {
		t.Fatalf("Integer variant type = %q", got.Variants[0].Type.Render())
	}
}

func TestMapReturn(t *testing.T) {
	m := types.NewMapper()
	none := annotations.Default()

	if got := m.MapReturn(nil, none).Render(); got != "()" {
		t.Fatalf("missing annotation = %q", got)
	}
	if got := m.MapReturn(hir.NoneT, none).Render(); got != "()" {
		t.Fatalf("None return = %q", got)
	}
	if got := m.MapReturn(hir.IntT, none).Render(); got != "i64" {
		t.Fatalf("int return = %q", got)
	}

	res := annotations.Set{ErrorStrategy: annotations.ErrorResultType}
	if got := m.MapReturn(hir.NoneT, res).Render(); got != "Result<(), Box<dyn std::error::Error>>" {
		t.Fatalf("result unit = %q", got)
	}
	if got := m.MapReturn(hir.IntT, res).Render(); got != "Result<i64, Box<dyn std::error::Error>>" {
		t.Fatalf("result int = %q", got)
	}
}

func TestRenderForms(t *testing.T) {
	tests := []struct {
		name string
		in   *types.RustType
		want string
	}{
		{"ref", types.RefTo(types.I64, false), "&i64"},
		{"mut ref", types.RefTo(types.VecOf(types.I64), true), "&mut Vec<i64>"},
		{"lifetime ref", types.RefWithLifetime(types.StringT, "'a", false), "&'a String"},
		{"array", types.ArrayOf(types.U8, "32"), "[u8; 32]"},
		{"const array", types.ArrayOf(types.F64, "N"), "[f64; N]"},
		{"result", types.ResultOf(types.Unit, types.Named("std::io::Error")), "Result<(), std::io::Error>"},
		{"deque", types.DequeOf(types.Bool), "VecDeque<bool>"},
		{"unsupported", types.Unsupported("yield"), "/* unsupported: yield */"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Render(); got != tt.want {
				t.Fatalf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypePredicates(t *testing.T) {
	if !types.I64.CanCopy() {
		t.Fatalf("i64 must be Copy")
	}
	if types.VecOf(types.I64).CanCopy() {
		t.Fatalf("Vec must not be Copy")
	}
	if !types.TupleOf(types.I64, types.Bool).CanCopy() {
		t.Fatalf("scalar tuple must be Copy")
	}
	if !types.ArrayOf(types.U8, "32").CanCopy() {
		t.Fatalf("[u8; 32] must be Copy")
	}
	if types.ArrayOf(types.U8, "64").CanCopy() {
		t.Fatalf("large arrays are not treated as Copy")
	}
	if types.ArrayOf(types.U8, "N").CanCopy() {
		t.Fatalf("const-parameter arrays are not treated as Copy")
	}

	if !types.VecOf(types.I64).NeedsBorrow() {
		t.Fatalf("Vec parameters borrow")
	}
	if types.I64.NeedsBorrow() {
		t.Fatalf("i64 parameters pass by value")
	}
	if !types.StringT.NeedsBorrow() {
		t.Fatalf("String parameters borrow")
	}

	if !types.StrRef("'a").HasLifetime() {
		t.Fatalf("&'a str carries a lifetime")
	}
	if types.CowOf("'static").HasLifetime() {
		t.Fatalf("'static needs no declaration")
	}
	if !types.RefWithLifetime(types.VecOf(types.I64), "'a", false).HasLifetime() {
		t.Fatalf("&'a Vec carries a lifetime")
	}
}
