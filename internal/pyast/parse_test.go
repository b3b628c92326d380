package pyast

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
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

func parseSource(t *testing.T, src string) (*Module, *diag.Bag) {
	t.Helper()

	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.py", []byte(src))
	file := fs.Get(fileID)

	bag := diag.NewBag(100)
	mod, err := Parse(context.Background(), file, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Parse failed: %v (diags: %s)", err, diagnosticsSummary(bag))
	}
	return mod, bag
}

func parseClean(t *testing.T, src string) *Module {
	t.Helper()
	mod, bag := parseSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %s", diagnosticsSummary(bag))
	}
	return mod
}

func onlyFunc(t *testing.T, mod *Module) *FunctionDef {
	t.Helper()
	for _, s := range mod.Body {
		if fn, ok := s.(*FunctionDef); ok {
			return fn
		}
	}
	t.Fatalf("no function definition in module")
	return nil
}

func TestParseFunctionSignature(t *testing.T) {
	mod := parseClean(t, `
def add(a: int, b: int = 10) -> int:
    return a + b
`)
	fn := onlyFunc(t, mod)
	if fn.Name != "add" {
		t.Fatalf("expected name add, got %q", fn.Name)
	}
	if len(fn.Args.Args) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Args.Args))
	}
	a, b := fn.Args.Args[0], fn.Args.Args[1]
	if a.Name != "a" || a.Annotation == nil || a.Default != nil {
		t.Fatalf("param a parsed wrong: %+v", a)
	}
	if b.Name != "b" || b.Annotation == nil || b.Default == nil {
		t.Fatalf("param b parsed wrong: %+v", b)
	}
	if ret, ok := fn.Returns.(*Name); !ok || ret.ID != "int" {
		t.Fatalf("expected return annotation int, got %#v", fn.Returns)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body))
	}
	retStmt, ok := fn.Body[0].(*Return)
	if !ok {
		t.Fatalf("expected return statement, got %T", fn.Body[0])
	}
	bin, ok := retStmt.Value.(*BinOp)
	if !ok || bin.Op != OpAdd {
		t.Fatalf("expected a + b, got %#v", retStmt.Value)
	}
}

func TestParseParameterKinds(t *testing.T) {
	mod := parseClean(t, `
def f(a, b, /, c, *args, d, e=1, **kwargs):
    pass
`)
	fn := onlyFunc(t, mod)
	if got := len(fn.Args.PosOnly); got != 2 {
		t.Fatalf("expected 2 positional-only params, got %d", got)
	}
	if got := len(fn.Args.Args); got != 1 || fn.Args.Args[0].Name != "c" {
		t.Fatalf("expected regular params [c], got %+v", fn.Args.Args)
	}
	if fn.Args.VarArg == nil || fn.Args.VarArg.Name != "args" {
		t.Fatalf("expected *args, got %+v", fn.Args.VarArg)
	}
	if got := len(fn.Args.KwOnly); got != 2 {
		t.Fatalf("expected 2 keyword-only params, got %d", got)
	}
	if fn.Args.KwOnly[1].Name != "e" || fn.Args.KwOnly[1].Default == nil {
		t.Fatalf("expected e=1 keyword-only, got %+v", fn.Args.KwOnly[1])
	}
	if fn.Args.KwArg == nil || fn.Args.KwArg.Name != "kwargs" {
		t.Fatalf("expected **kwargs, got %+v", fn.Args.KwArg)
	}
}

func TestParseDocstringSplit(t *testing.T) {
	mod := parseClean(t, `
def f():
    """Docs here."""
    return 1
`)
	fn := onlyFunc(t, mod)
	if fn.Docstring != "Docs here." {
		t.Fatalf("expected docstring, got %q", fn.Docstring)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("docstring should be split from body, body=%d", len(fn.Body))
	}
}

func TestParseDecorators(t *testing.T) {
	mod := parseClean(t, `
@staticmethod
@app.route("/x")
def f():
    pass
`)
	fn := onlyFunc(t, mod)
	if len(fn.Decorators) != 2 {
		t.Fatalf("expected 2 decorators, got %d", len(fn.Decorators))
	}
	if name, ok := fn.Decorators[0].(*Name); !ok || name.ID != "staticmethod" {
		t.Fatalf("expected staticmethod first, got %#v", fn.Decorators[0])
	}
	if _, ok := fn.Decorators[1].(*Call); !ok {
		t.Fatalf("expected call decorator second, got %#v", fn.Decorators[1])
	}
}

func TestParseClassDef(t *testing.T) {
	mod := parseClean(t, `
class Point(Base, metaclass=Meta):
    """A point."""

    def __init__(self, x: int):
        self.x = x
`)
	cls, ok := mod.Body[0].(*ClassDef)
	if !ok {
		t.Fatalf("expected class, got %T", mod.Body[0])
	}
	if cls.Name != "Point" || cls.Docstring != "A point." {
		t.Fatalf("class header parsed wrong: name=%q doc=%q", cls.Name, cls.Docstring)
	}
	if len(cls.Bases) != 1 {
		t.Fatalf("expected 1 base, got %d", len(cls.Bases))
	}
	if len(cls.Keywords) != 1 || cls.Keywords[0].Arg != "metaclass" {
		t.Fatalf("expected metaclass keyword, got %+v", cls.Keywords)
	}
	if len(cls.Body) != 1 {
		t.Fatalf("expected 1 method, got %d", len(cls.Body))
	}
}

func TestParseElifChain(t *testing.T) {
	mod := parseClean(t, `
if a:
    x = 1
elif b:
    x = 2
else:
    x = 3
`)
	top, ok := mod.Body[0].(*If)
	if !ok {
		t.Fatalf("expected if, got %T", mod.Body[0])
	}
	if len(top.Orelse) != 1 {
		t.Fatalf("elif should nest as single orelse, got %d", len(top.Orelse))
	}
	elif, ok := top.Orelse[0].(*If)
	if !ok {
		t.Fatalf("expected nested if for elif, got %T", top.Orelse[0])
	}
	if len(elif.Orelse) != 1 {
		t.Fatalf("expected final else body, got %d statements", len(elif.Orelse))
	}
}

func TestParseChainedAssignment(t *testing.T) {
	mod := parseClean(t, "a = b = c = 42\n")
	asn, ok := mod.Body[0].(*Assign)
	if !ok {
		t.Fatalf("expected assign, got %T", mod.Body[0])
	}
	if len(asn.Targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(asn.Targets))
	}
	if lit, ok := asn.Value.(*Literal); !ok || lit.Text != "42" {
		t.Fatalf("expected literal 42, got %#v", asn.Value)
	}
}

func TestParseAnnotatedAndAugmented(t *testing.T) {
	mod := parseClean(t, "x: int = 0\nx += 2\n")
	ann, ok := mod.Body[0].(*AnnAssign)
	if !ok {
		t.Fatalf("expected annotated assign, got %T", mod.Body[0])
	}
	if name, ok := ann.Annotation.(*Name); !ok || name.ID != "int" {
		t.Fatalf("expected int annotation, got %#v", ann.Annotation)
	}
	aug, ok := mod.Body[1].(*AugAssign)
	if !ok {
		t.Fatalf("expected augmented assign, got %T", mod.Body[1])
	}
	if aug.Op != OpAdd {
		t.Fatalf("expected +=, got %v", aug.Op)
	}
}

func TestParseImports(t *testing.T) {
	mod := parseClean(t, `
import os
import numpy as np
from typing import List, Optional as Opt
from . import sibling
from ..pkg import thing
from os import *
`)
	imp := mod.Body[0].(*Import)
	if len(imp.Names) != 1 || imp.Names[0].Name != "os" || imp.Names[0].Alias != "" {
		t.Fatalf("plain import parsed wrong: %+v", imp.Names)
	}
	imp = mod.Body[1].(*Import)
	if imp.Names[0].Name != "numpy" || imp.Names[0].Alias != "np" {
		t.Fatalf("aliased import parsed wrong: %+v", imp.Names)
	}
	from := mod.Body[2].(*ImportFrom)
	if from.Module != "typing" || len(from.Names) != 2 {
		t.Fatalf("from import parsed wrong: %+v", from)
	}
	if from.Names[1].Name != "Optional" || from.Names[1].Alias != "Opt" {
		t.Fatalf("aliased member parsed wrong: %+v", from.Names[1])
	}
	rel := mod.Body[3].(*ImportFrom)
	if rel.Level != 1 || rel.Module != "" {
		t.Fatalf("relative import parsed wrong: level=%d module=%q", rel.Level, rel.Module)
	}
	rel2 := mod.Body[4].(*ImportFrom)
	if rel2.Level != 2 || rel2.Module != "pkg" {
		t.Fatalf("dotted relative import parsed wrong: level=%d module=%q", rel2.Level, rel2.Module)
	}
	star := mod.Body[5].(*ImportFrom)
	if !star.Wildcard {
		t.Fatalf("expected wildcard import flag")
	}
}

func TestParseForWhileElse(t *testing.T) {
	mod := parseClean(t, `
for i in range(10):
    total += i
else:
    done = True

while x:
    x -= 1
`)
	loop, ok := mod.Body[0].(*For)
	if !ok {
		t.Fatalf("expected for, got %T", mod.Body[0])
	}
	if len(loop.Orelse) != 1 {
		t.Fatalf("expected for-else body, got %d", len(loop.Orelse))
	}
	if call, ok := loop.Iter.(*Call); !ok {
		t.Fatalf("expected range call, got %#v", loop.Iter)
	} else if fn, ok := call.Func.(*Name); !ok || fn.ID != "range" {
		t.Fatalf("expected range, got %#v", call.Func)
	}
	wh, ok := mod.Body[1].(*While)
	if !ok {
		t.Fatalf("expected while, got %T", mod.Body[1])
	}
	if len(wh.Orelse) != 0 {
		t.Fatalf("unexpected while-else: %d", len(wh.Orelse))
	}
}

func TestParseTryExceptFinally(t *testing.T) {
	mod := parseClean(t, `
try:
    risky()
except ValueError as e:
    handle(e)
except Exception:
    pass
else:
    ok()
finally:
    cleanup()
`)
	try, ok := mod.Body[0].(*Try)
	if !ok {
		t.Fatalf("expected try, got %T", mod.Body[0])
	}
	if len(try.Handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(try.Handlers))
	}
	h := try.Handlers[0]
	if h.Name != "e" {
		t.Fatalf("expected bound name e, got %q", h.Name)
	}
	if typ, ok := h.Type.(*Name); !ok || typ.ID != "ValueError" {
		t.Fatalf("expected ValueError, got %#v", h.Type)
	}
	if try.Handlers[1].Name != "" {
		t.Fatalf("second handler should be unbound, got %q", try.Handlers[1].Name)
	}
	if len(try.Orelse) != 1 || len(try.Final) != 1 {
		t.Fatalf("expected else and finally bodies, got %d/%d", len(try.Orelse), len(try.Final))
	}
}

func TestParseWithStatement(t *testing.T) {
	mod := parseClean(t, `
with open(path) as f, lock:
    f.read()
`)
	ws, ok := mod.Body[0].(*With)
	if !ok {
		t.Fatalf("expected with, got %T", mod.Body[0])
	}
	if len(ws.Items) != 2 {
		t.Fatalf("expected 2 with items, got %d", len(ws.Items))
	}
	if tgt, ok := ws.Items[0].Target.(*Name); !ok || tgt.ID != "f" {
		t.Fatalf("expected target f, got %#v", ws.Items[0].Target)
	}
	if ws.Items[1].Target != nil {
		t.Fatalf("second item should have no target")
	}
}

func TestParseComparisonChain(t *testing.T) {
	mod := parseClean(t, "r = 0 <= x < 10\ns = a not in b\nt = a is not None\n")
	cmp := mod.Body[0].(*Assign).Value.(*Compare)
	if len(cmp.Ops) != 2 || cmp.Ops[0] != CmpLtE || cmp.Ops[1] != CmpLt {
		t.Fatalf("chained comparison parsed wrong: %v", cmp.Ops)
	}
	if len(cmp.Comparators) != 2 {
		t.Fatalf("expected 2 comparators, got %d", len(cmp.Comparators))
	}
	notIn := mod.Body[1].(*Assign).Value.(*Compare)
	if len(notIn.Ops) != 1 || notIn.Ops[0] != CmpNotIn {
		t.Fatalf("expected not-in, got %v", notIn.Ops)
	}
	isNot := mod.Body[2].(*Assign).Value.(*Compare)
	if len(isNot.Ops) != 1 || isNot.Ops[0] != CmpIsNot {
		t.Fatalf("expected is-not, got %v", isNot.Ops)
	}
}

func TestParseBooleanFlattening(t *testing.T) {
	mod := parseClean(t, "r = a and b and c\n")
	b := mod.Body[0].(*Assign).Value.(*BoolOp)
	if b.Op != OpAnd || len(b.Values) != 3 {
		t.Fatalf("expected 3-way and, got op=%v n=%d", b.Op, len(b.Values))
	}
}

func TestParseCallArguments(t *testing.T) {
	mod := parseClean(t, "f(1, x, key=2, *rest, **extra)\n")
	call := mod.Body[0].(*ExprStmt).Value.(*Call)
	if len(call.Args) != 3 {
		t.Fatalf("expected 3 positional args, got %d", len(call.Args))
	}
	if _, ok := call.Args[2].(*Starred); !ok {
		t.Fatalf("expected *rest as starred, got %#v", call.Args[2])
	}
	if len(call.Keywords) != 2 {
		t.Fatalf("expected 2 keywords, got %d", len(call.Keywords))
	}
	if call.Keywords[0].Arg != "key" {
		t.Fatalf("expected key=, got %q", call.Keywords[0].Arg)
	}
	if call.Keywords[1].Arg != "" {
		t.Fatalf("**extra should have empty Arg, got %q", call.Keywords[1].Arg)
	}
}

func TestParseSubscriptAndSlice(t *testing.T) {
	mod := parseClean(t, "a = xs[1]\nb = xs[1:n]\nc = xs[::2]\nd = m[i, j]\n")
	sub := mod.Body[0].(*Assign).Value.(*Subscript)
	if _, ok := sub.Index.(*Literal); !ok {
		t.Fatalf("expected literal index, got %#v", sub.Index)
	}
	sl := mod.Body[1].(*Assign).Value.(*Subscript).Index.(*Slice)
	if sl.Lower == nil || sl.Upper == nil || sl.Step != nil {
		t.Fatalf("slice 1:n parsed wrong: %+v", sl)
	}
	sl2 := mod.Body[2].(*Assign).Value.(*Subscript).Index.(*Slice)
	if sl2.Lower != nil || sl2.Upper != nil || sl2.Step == nil {
		t.Fatalf("slice ::2 parsed wrong: %+v", sl2)
	}
	tup := mod.Body[3].(*Assign).Value.(*Subscript).Index.(*TupleExpr)
	if len(tup.Elts) != 2 {
		t.Fatalf("expected 2-element tuple index, got %d", len(tup.Elts))
	}
}

func TestParseTypeAnnotations(t *testing.T) {
	mod := parseClean(t, `
def f(xs: list[int], pair: tuple[int, str], flag: int | None) -> typing.Optional[str]:
    return None
`)
	fn := mod.Body[0].(*FunctionDef)
	xs := fn.Args.Args[0].Annotation.(*Subscript)
	if base, ok := xs.Value.(*Name); !ok || base.ID != "list" {
		t.Fatalf("list[int] should parse as a subscript of list, got %#v", xs.Value)
	}
	if elem, ok := xs.Index.(*Name); !ok || elem.ID != "int" {
		t.Fatalf("list[int] index = %#v, want int", xs.Index)
	}
	pair := fn.Args.Args[1].Annotation.(*Subscript)
	tup, ok := pair.Index.(*TupleExpr)
	if !ok || len(tup.Elts) != 2 {
		t.Fatalf("tuple[int, str] index = %#v, want 2-element tuple", pair.Index)
	}
	flag, ok := fn.Args.Args[2].Annotation.(*BinOp)
	if !ok || flag.Op != OpBitOr {
		t.Fatalf("int | None should parse as a | binop, got %#v", fn.Args.Args[2].Annotation)
	}
	ret, ok := fn.Returns.(*Subscript)
	if !ok {
		t.Fatalf("typing.Optional[str] should parse as a subscript, got %#v", fn.Returns)
	}
	attr, ok := ret.Value.(*Attribute)
	if !ok || attr.Attr != "Optional" {
		t.Fatalf("typing.Optional value = %#v, want attribute", ret.Value)
	}
}

func TestParseComprehensions(t *testing.T) {
	mod := parseClean(t, `
a = [x * 2 for x in xs if x > 0]
b = {k: v for k, v in items}
c = {x for x in xs}
d = (x for x in xs)
`)
	lc := mod.Body[0].(*Assign).Value.(*CompExpr)
	if lc.Kind != CompList || len(lc.Generators) != 1 || len(lc.Generators[0].Ifs) != 1 {
		t.Fatalf("list comp parsed wrong: kind=%v gens=%d", lc.Kind, len(lc.Generators))
	}
	dc := mod.Body[1].(*Assign).Value.(*CompExpr)
	if dc.Kind != CompDict || dc.Value == nil {
		t.Fatalf("dict comp parsed wrong: %+v", dc)
	}
	if _, ok := dc.Generators[0].Target.(*TupleExpr); !ok {
		t.Fatalf("expected tuple target in dict comp, got %#v", dc.Generators[0].Target)
	}
	sc := mod.Body[2].(*Assign).Value.(*CompExpr)
	if sc.Kind != CompSet {
		t.Fatalf("expected set comp, got %v", sc.Kind)
	}
	gc := mod.Body[3].(*Assign).Value.(*CompExpr)
	if gc.Kind != CompGenerator {
		t.Fatalf("expected generator, got %v", gc.Kind)
	}
}

func TestParseFString(t *testing.T) {
	mod := parseClean(t, "s = f\"count={n} avg={avg:.2f}!\"\n")
	fstr := mod.Body[0].(*Assign).Value.(*FString)
	if len(fstr.Parts) != 5 {
		t.Fatalf("expected 5 parts, got %d: %+v", len(fstr.Parts), fstr.Parts)
	}
	if fstr.Parts[0].Text != "count=" || fstr.Parts[0].Expr != nil {
		t.Fatalf("part 0 wrong: %+v", fstr.Parts[0])
	}
	if fstr.Parts[1].Expr == nil {
		t.Fatalf("part 1 should be interpolation")
	}
	if fstr.Parts[3].Format != ".2f" {
		t.Fatalf("expected format .2f, got %q", fstr.Parts[3].Format)
	}
	if fstr.Parts[4].Text != "!" {
		t.Fatalf("tail text wrong: %+v", fstr.Parts[4])
	}
}

func TestParseStringEscapes(t *testing.T) {
	mod := parseClean(t, `s = "line\n\ttab"` + "\n" + `r = r"raw\n"` + "\n" + `b = b"\x41"` + "\n")
	lit := mod.Body[0].(*Assign).Value.(*Literal)
	if lit.Text != "line\n\ttab" {
		t.Fatalf("escapes not decoded: %q", lit.Text)
	}
	raw := mod.Body[1].(*Assign).Value.(*Literal)
	if raw.Text != `raw\n` {
		t.Fatalf("raw string should keep backslash: %q", raw.Text)
	}
	by := mod.Body[2].(*Assign).Value.(*Literal)
	if by.Kind != LitBytes || by.Text != "A" {
		t.Fatalf("bytes literal parsed wrong: kind=%v text=%q", by.Kind, by.Text)
	}
}

func TestParseLambdaAndConditional(t *testing.T) {
	mod := parseClean(t, "f = lambda x, y=1: x + y\nv = a if cond else b\n")
	lam := mod.Body[0].(*Assign).Value.(*Lambda)
	if len(lam.Args.Args) != 2 || lam.Args.Args[1].Default == nil {
		t.Fatalf("lambda params parsed wrong: %+v", lam.Args)
	}
	if _, ok := lam.Body.(*BinOp); !ok {
		t.Fatalf("lambda body wrong: %#v", lam.Body)
	}
	ife := mod.Body[1].(*Assign).Value.(*IfExpr)
	if ife.Body == nil || ife.Cond == nil || ife.Orelse == nil {
		t.Fatalf("conditional expression incomplete: %+v", ife)
	}
}

func TestParseSyntaxErrorReported(t *testing.T) {
	_, bag := parseSource(t, "def broken(:\n    pass\n")
	if !bag.HasErrors() {
		t.Fatalf("expected syntax diagnostics, got none")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SynParseError || d.Code == diag.SynMissingNode {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parse error code, got: %s", diagnosticsSummary(bag))
	}
}

func TestParseSpansCoverSource(t *testing.T) {
	src := "x = 1\n"
	mod := parseClean(t, src)
	asn := mod.Body[0].(*Assign)
	sp := asn.Span()
	if sp.Start != 0 || int(sp.End) > len(src) {
		t.Fatalf("span out of range: %+v", sp)
	}
	if sp.Len() == 0 {
		t.Fatalf("statement span should not be empty")
	}
}

func TestParseMatchStatement(t *testing.T) {
	mod := parseClean(t, `
match cmd:
    case "start":
        run()
    case _:
        stop()
`)
	m, ok := mod.Body[0].(*Match)
	if !ok {
		t.Fatalf("expected match, got %T", mod.Body[0])
	}
	if len(m.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(m.Cases))
	}
	if len(m.Cases[0].Body) != 1 {
		t.Fatalf("case body missing")
	}
}
