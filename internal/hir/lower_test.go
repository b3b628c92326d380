package hir_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

func diagnosticsSummary(bag *diag.Bag) string {
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func lowerSource(t *testing.T, src string) (*hir.Module, *diag.Bag) {
	t.Helper()

	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.py", []byte(src))
	file := fs.Get(fileID)

	bag := diag.NewBag(100)
	reporter := diag.BagReporter{Bag: bag}
	pmod, err := pyast.Parse(context.Background(), file, reporter)
	if err != nil {
		t.Fatalf("Parse failed: %v (diags: %s)", err, diagnosticsSummary(bag))
	}
	return hir.Lower(pmod, file, reporter), bag
}

func lowerClean(t *testing.T, src string) *hir.Module {
	t.Helper()
	mod, bag := lowerSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	return mod
}

func onlyFunc(t *testing.T, mod *hir.Module, name string) *hir.Function {
	t.Helper()
	fn := mod.Function(name)
	if fn == nil {
		t.Fatalf("function %s not lowered", name)
	}
	return fn
}

func TestLowerSimpleFunction(t *testing.T) {
	mod := lowerClean(t, `
def add(a: int, b: int) -> int:
    return a + b
`)
	if len(mod.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(mod.Functions))
	}
	fn := mod.Functions[0]
	if fn.Name != "add" {
		t.Errorf("expected name add, got %q", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0].Type.Kind != hir.TypeInt {
		t.Fatalf("unexpected params: %+v", fn.Params)
	}
	if fn.Ret.Kind != hir.TypeInt {
		t.Errorf("expected int return, got %s", fn.Ret)
	}
	if len(fn.Body) != 1 || fn.Body[0].Kind != hir.StmtReturn {
		t.Fatalf("expected single return, got %+v", fn.Body)
	}

	out := hir.DumpString(mod)
	if !strings.Contains(out, "fn add") {
		t.Errorf("dump should contain fn add:\n%s", out)
	}
}

func TestLowerForElseDesugar(t *testing.T) {
	mod := lowerClean(t, `
def scan(xs: list[int]) -> int:
    for x in xs:
        if x > 10:
            break
    else:
        return -1
    return 0
`)
	fn := onlyFunc(t, mod, "scan")
	if len(fn.Body) != 4 {
		t.Fatalf("expected flag assign, loop, completion check, return; got %d statements", len(fn.Body))
	}
	if fn.Body[0].Kind != hir.StmtAssign {
		t.Errorf("expected flag assignment first, got %s", fn.Body[0].Kind)
	}
	if fn.Body[1].Kind != hir.StmtFor {
		t.Errorf("expected loop second, got %s", fn.Body[1].Kind)
	}
	check := fn.Body[2]
	if check.Kind != hir.StmtIf {
		t.Fatalf("expected completion check third, got %s", check.Kind)
	}

	// break inside the loop must clear the flag first
	loop := fn.Body[1].Data.(hir.ForData)
	inner := loop.Body[0].Data.(hir.IfData)
	if len(inner.Then) != 2 || inner.Then[0].Kind != hir.StmtAssign || inner.Then[1].Kind != hir.StmtBreak {
		t.Fatalf("expected flag clear before break, got %+v", inner.Then)
	}
}

func TestLowerChainedComparison(t *testing.T) {
	mod := lowerClean(t, `
def within(a: int, b: int, c: int) -> bool:
    return a < b < c
`)
	fn := onlyFunc(t, mod, "within")
	ret := fn.Body[0].Data.(hir.ReturnData)
	and, ok := ret.Value.Data.(hir.BinaryData)
	if !ok || and.Op != hir.OpAnd {
		t.Fatalf("expected and of pairs, got %+v", ret.Value.Data)
	}
	left := and.Left.Data.(hir.BinaryData)
	right := and.Right.Data.(hir.BinaryData)
	if left.Op != hir.OpLt || right.Op != hir.OpLt {
		t.Errorf("expected < pairs, got %s and %s", left.Op, right.Op)
	}
	if name, _ := left.Right.AsVar(); name != "b" {
		t.Errorf("expected shared middle operand b, got %q", name)
	}
	if name, _ := right.Left.AsVar(); name != "b" {
		t.Errorf("expected shared middle operand b, got %q", name)
	}
}

func TestLowerClassConstructorFields(t *testing.T) {
	mod := lowerClean(t, `
class Point:
    """A 2D point."""

    def __init__(self, x: int, y: int):
        self.x = x
        self.y = y
        self.label = "origin"

    def norm(self) -> int:
        return self.x + self.y

    @staticmethod
    def zero() -> "Point":
        return Point(0, 0)
`)
	if len(mod.Classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(mod.Classes))
	}
	cls := mod.Classes[0]
	if cls.Docstring != "A 2D point." {
		t.Errorf("docstring not captured: %q", cls.Docstring)
	}
	if len(cls.Fields) != 3 {
		t.Fatalf("expected 3 discovered fields, got %+v", cls.Fields)
	}
	if f := cls.FieldByName("x"); f == nil || f.Type.Kind != hir.TypeInt {
		t.Errorf("field x should take the parameter type, got %+v", f)
	}
	if f := cls.FieldByName("label"); f == nil || f.Type.Kind != hir.TypeStr {
		t.Errorf("field label should take the literal type, got %+v", f)
	}

	norm := cls.Method("norm")
	if norm == nil || norm.Method != hir.MethodInstance {
		t.Fatalf("norm should be an instance method, got %+v", norm)
	}
	if norm.Receiver != "self" || len(norm.Params) != 0 {
		t.Errorf("receiver not split off: recv=%q params=%+v", norm.Receiver, norm.Params)
	}

	zero := cls.Method("zero")
	if zero == nil || zero.Method != hir.MethodStatic || zero.Receiver != "" {
		t.Fatalf("zero should be static without receiver, got %+v", zero)
	}
	if zero.Ret.Kind != hir.TypeCustom || zero.Ret.Name != "Point" {
		t.Errorf("forward reference return should resolve to Point, got %s", zero.Ret)
	}
}

func TestLowerDataclass(t *testing.T) {
	mod := lowerClean(t, `
@dataclass
class Config:
    host: str
    port: int = 8080
    DEFAULT_TIMEOUT: ClassVar[int] = 30
`)
	cls := mod.Classes[0]
	if !cls.IsDataclass {
		t.Fatal("dataclass decorator not recognized")
	}
	if len(cls.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %+v", cls.Fields)
	}
	port := cls.FieldByName("port")
	if port == nil || port.Default == nil {
		t.Fatalf("port default missing: %+v", port)
	}
	if len(cls.Constants) != 1 || cls.Constants[0].Name != "DEFAULT_TIMEOUT" {
		t.Fatalf("ClassVar should become a constant, got %+v", cls.Constants)
	}
	if cls.Constants[0].Type.Kind != hir.TypeInt {
		t.Errorf("constant type should unwrap ClassVar, got %s", cls.Constants[0].Type)
	}
}

func TestLowerMainGuard(t *testing.T) {
	mod := lowerClean(t, `
def run() -> None:
    pass

if __name__ == "__main__":
    run()
`)
	main := mod.Function("main")
	if main == nil {
		t.Fatal("main guard should synthesize a main function")
	}
	if main.Ret.Kind != hir.TypeNone {
		t.Errorf("synthesized main should return None, got %s", main.Ret)
	}
	if len(main.Body) != 1 || main.Body[0].Kind != hir.StmtExpr {
		t.Fatalf("guard body not carried over: %+v", main.Body)
	}
}

func TestLowerTypeAlias(t *testing.T) {
	mod := lowerClean(t, `
Vector = list[float]

def scale(v: Vector, k: float) -> Vector:
    return [x * k for x in v]
`)
	if len(mod.Aliases) != 1 || mod.Aliases[0].Name != "Vector" {
		t.Fatalf("alias not captured: %+v", mod.Aliases)
	}
	if mod.Aliases[0].Type.Kind != hir.TypeList {
		t.Errorf("alias should resolve to list[float], got %s", mod.Aliases[0].Type)
	}
	if len(mod.TopLevel) != 0 {
		t.Errorf("alias must not leak into top-level statements: %+v", mod.TopLevel)
	}
}

func TestLowerUnsupportedSkipsFunction(t *testing.T) {
	mod, bag := lowerSource(t, `
def bad(x: int) -> None:
    del x

def good(x: int) -> int:
    return x
`)
	if !bag.HasErrors() {
		t.Fatal("expected an error diagnostic for del")
	}
	if mod.Function("bad") != nil {
		t.Error("function with unsupported statement must be skipped")
	}
	if mod.Function("good") == nil {
		t.Error("remaining functions must still lower")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.LowDeleteStatement {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LOW%d, got %s", int(diag.LowDeleteStatement), diagnosticsSummary(bag))
	}
}

func TestLowerAnnotationBlock(t *testing.T) {
	mod := lowerClean(t, `
# @depyler: type_strategy = "aggressive"
# @depyler: termination = "proven"
def hot(x: int) -> int:
    return x * 2
`)
	fn := onlyFunc(t, mod, "hot")
	if fn.Annotations.TypeStrategy != annotations.TypeAggressive {
		t.Errorf("type_strategy not applied: %v", fn.Annotations.TypeStrategy)
	}
	if !fn.Annotations.Termination.Proven {
		t.Error("termination not applied")
	}
	if !fn.Props.Terminates {
		t.Error("proven termination should seed function properties")
	}
}

func TestLowerUnknownDecoratorKept(t *testing.T) {
	mod := lowerClean(t, `
@functools.cache
def fib(n: int) -> int:
    return n
`)
	fn := onlyFunc(t, mod, "fib")
	if len(fn.Annotations.CustomAttributes) != 1 || fn.Annotations.CustomAttributes[0] != "functools.cache" {
		t.Fatalf("decorator should be preserved as annotation, got %+v", fn.Annotations.CustomAttributes)
	}
}

func TestLowerMatchStatement(t *testing.T) {
	mod := lowerClean(t, `
def describe(code: int) -> str:
    match code:
        case 200:
            return "ok"
        case 404:
            return "missing"
        case _:
            return "other"
`)
	fn := onlyFunc(t, mod, "describe")
	if len(fn.Body) != 1 || fn.Body[0].Kind != hir.StmtIf {
		t.Fatalf("match should lower to an if chain, got %+v", fn.Body)
	}
	top := fn.Body[0].Data.(hir.IfData)
	cond := top.Cond.Data.(hir.BinaryData)
	if cond.Op != hir.OpEq {
		t.Errorf("case literal should compare with ==, got %s", cond.Op)
	}
	if len(top.Else) != 1 || top.Else[0].Kind != hir.StmtIf {
		t.Fatalf("second case should chain in else, got %+v", top.Else)
	}
	second := top.Else[0].Data.(hir.IfData)
	if len(second.Else) != 1 || second.Else[0].Kind != hir.StmtReturn {
		t.Fatalf("wildcard should become the trailing else, got %+v", second.Else)
	}
}

func TestLowerMatchGuardUnsupported(t *testing.T) {
	_, bag := lowerSource(t, `
def pick(x: int) -> int:
    match x:
        case n if n > 10:
            return n
        case _:
            return 0
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.LowComplexMatchGuard {
			found = true
		}
	}
	if !found {
		t.Fatalf("capture with guard should report LOW%d: %s", int(diag.LowComplexMatchGuard), diagnosticsSummary(bag))
	}
}

func TestLowerWithStatement(t *testing.T) {
	mod := lowerClean(t, `
def read(path: str) -> str:
    with open(path) as f:
        return f.read()
`)
	fn := onlyFunc(t, mod, "read")
	w := fn.Body[0].Data.(hir.WithData)
	if w.Binding != "f" {
		t.Errorf("expected binding f, got %q", w.Binding)
	}
	call := w.Context.Data.(hir.CallData)
	if call.Func != "open" {
		t.Errorf("expected open call context, got %+v", w.Context.Data)
	}
}

func TestLowerMultiItemWithNests(t *testing.T) {
	mod := lowerClean(t, `
def copy(a: str, b: str) -> None:
    with open(a) as src, open(b) as dst:
        dst.write(src.read())
`)
	fn := onlyFunc(t, mod, "copy")
	outer := fn.Body[0].Data.(hir.WithData)
	if outer.Binding != "src" {
		t.Fatalf("expected outer binding src, got %q", outer.Binding)
	}
	if len(outer.Body) != 1 || outer.Body[0].Kind != hir.StmtWith {
		t.Fatalf("expected nested with, got %+v", outer.Body)
	}
	inner := outer.Body[0].Data.(hir.WithData)
	if inner.Binding != "dst" {
		t.Errorf("expected inner binding dst, got %q", inner.Binding)
	}
}

func TestLowerAugAssignSubscript(t *testing.T) {
	mod := lowerClean(t, `
def bump(counts: dict[str, int], key: str) -> None:
    counts[key] += 1
`)
	fn := onlyFunc(t, mod, "bump")
	aug := fn.Body[0].Data.(hir.AugAssignData)
	if aug.Op != hir.OpAdd {
		t.Errorf("expected +=, got %s", aug.Op)
	}
	if aug.Target.Kind != hir.TargetIndex {
		t.Fatalf("expected subscript target, got %s", aug.Target.Kind)
	}
	if root, ok := aug.Target.Base.AsVar(); !ok || root != "counts" {
		t.Errorf("expected counts base, got %+v", aug.Target.Base)
	}
}

func TestLowerImports(t *testing.T) {
	mod := lowerClean(t, `
import json
import numpy as np
from os.path import join, exists as there
`)
	if len(mod.Imports) != 3 {
		t.Fatalf("expected 3 imports, got %+v", mod.Imports)
	}
	if mod.Imports[0].Module != "json" || mod.Imports[0].IsFrom {
		t.Errorf("plain import mangled: %+v", mod.Imports[0])
	}
	if mod.Imports[1].Alias != "np" {
		t.Errorf("alias lost: %+v", mod.Imports[1])
	}
	from := mod.Imports[2]
	if !from.IsFrom || from.Module != "os.path" || len(from.Items) != 2 {
		t.Fatalf("from-import mangled: %+v", from)
	}
	if from.Items[1].Name != "exists" || from.Items[1].Alias != "there" {
		t.Errorf("item alias lost: %+v", from.Items[1])
	}
}

func TestLowerDefaultParameters(t *testing.T) {
	mod, bag := lowerSource(t, `
def greet(name: str = "world", tags: list[str] = []) -> str:
    return name
`)
	fn := mod.Function("greet")
	if fn == nil {
		t.Fatalf("mutable default must not reject the function: %s", diagnosticsSummary(bag))
	}
	if !fn.Params[1].MutableDefault {
		t.Error("list default should be flagged as mutable")
	}
	if fn.Params[0].MutableDefault {
		t.Error("string default is not mutable")
	}

	_, bag = lowerSource(t, `
def bad(ts = time.time()):
    return ts
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.LowNonConstantDefault {
			found = true
		}
	}
	if !found {
		t.Errorf("call default should report LOW%d: %s", int(diag.LowNonConstantDefault), diagnosticsSummary(bag))
	}
}

func TestLowerComprehensionChain(t *testing.T) {
	mod := lowerClean(t, `
def pairs(xs: list[int], ys: list[int]) -> list[int]:
    return [x * y for x in xs for y in ys if x != y]
`)
	fn := onlyFunc(t, mod, "pairs")
	ret := fn.Body[0].Data.(hir.ReturnData)
	comp := ret.Value.Data.(hir.CompData)
	if comp.Kind != hir.CompList {
		t.Errorf("expected list comprehension, got %s", comp.Kind)
	}
	if len(comp.Clauses) != 2 {
		t.Fatalf("expected 2 for clauses, got %d", len(comp.Clauses))
	}
	if len(comp.Clauses[1].Conds) != 1 {
		t.Errorf("filter should attach to its clause, got %+v", comp.Clauses[1].Conds)
	}
}

func TestLowerClassConstant(t *testing.T) {
	mod := lowerClean(t, `
class Limits:
    MAX_RETRIES = 5
    BACKOFF = 1.5
`)
	cls := mod.Classes[0]
	if len(cls.Constants) != 2 {
		t.Fatalf("expected 2 constants, got %+v", cls.Constants)
	}
	if cls.Constants[0].Type.Kind != hir.TypeInt || cls.Constants[1].Type.Kind != hir.TypeFloat {
		t.Errorf("constant types misinferred: %s, %s", cls.Constants[0].Type, cls.Constants[1].Type)
	}
}

func TestLowerMetaclassRejected(t *testing.T) {
	mod, bag := lowerSource(t, `
class Meta(type):
    pass

class Odd(metaclass=Meta):
    pass
`)
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.LowMetaclass {
			found = true
		}
	}
	if !found {
		t.Fatalf("metaclass should report LOW%d: %s", int(diag.LowMetaclass), diagnosticsSummary(bag))
	}
	for _, cls := range mod.Classes {
		if cls.Name == "Odd" {
			t.Error("metaclass user must be skipped")
		}
	}
}

func TestLowerPropertyAndSetter(t *testing.T) {
	mod := lowerClean(t, `
class Gauge:
    def __init__(self, value: float):
        self._value = value

    @property
    def value(self) -> float:
        return self._value

    @value.setter
    def value(self, v: float) -> None:
        self._value = v
`)
	cls := mod.Classes[0]
	var kinds []hir.MethodKind
	for _, m := range cls.Methods {
		if m.Name == "value" {
			kinds = append(kinds, m.Method)
		}
	}
	if len(kinds) != 2 || kinds[0] != hir.MethodProperty || kinds[1] != hir.MethodSetter {
		t.Fatalf("property pair misclassified: %+v", kinds)
	}
}
