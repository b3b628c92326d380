package rustgen_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/rustgen"
	"github.com/paiml/depyler/internal/source"
)

func gen(t *testing.T, src string, opts rustgen.Options) (string, *diag.Bag) {
	t.Helper()

	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.py", []byte(src))
	file := fs.Get(fileID)

	bag := diag.NewBag(100)
	reporter := diag.BagReporter{Bag: bag}
	pmod, err := pyast.Parse(context.Background(), file, reporter)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	mod := hir.Lower(pmod, file, reporter)
	if bag.HasErrors() {
		var lines []string
		for _, d := range bag.Items() {
			lines = append(lines, fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message))
		}
		t.Fatalf("unexpected lowering diagnostics: %s", strings.Join(lines, "; "))
	}
	sigs := borrows.Solve(mod, reporter)
	out, err := rustgen.Generate(mod, sigs, reporter, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out, bag
}

func emit(t *testing.T, src string) string {
	t.Helper()
	out, _ := gen(t, src, rustgen.Options{})
	return out
}

func wantContains(t *testing.T, out string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(out, sub) {
			t.Errorf("output missing %q\noutput:\n%s", sub, out)
		}
	}
}

func wantAbsent(t *testing.T, out string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if strings.Contains(out, sub) {
			t.Errorf("output should not contain %q\noutput:\n%s", sub, out)
		}
	}
}

func TestIntParamsByValue(t *testing.T) {
	out := emit(t, `
def add(a: int, b: int) -> int:
    return a + b
`)
	wantContains(t, out,
		"pub fn add(a: i64, b: i64) -> i64 {",
		"a + b",
	)
	wantAbsent(t, out, "&a", "&b")
}

func TestExclusiveBorrowSignatureAndCallSite(t *testing.T) {
	out := emit(t, `
def push(items: list[int]) -> None:
    items.append(1)

def fill() -> int:
    xs = [1, 2]
    push(xs)
    return len(xs)
`)
	wantContains(t, out,
		"pub fn push(items: &mut Vec<i64>)",
		"items.push(1);",
		"let mut xs = vec![1, 2];",
		"push(&mut xs);",
	)
}

func TestBranchAssignSingleDeclaration(t *testing.T) {
	out := emit(t, `
def label(flag1: bool, flag2: bool) -> str:
    if flag1:
        x = "a"
    elif flag2:
        x = "b"
    else:
        x = "c"
    return x
`)
	if got := strings.Count(out, "let mut x"); got != 1 {
		t.Errorf("want exactly one declaration of x, got %d\noutput:\n%s", got, out)
	}
	wantContains(t, out,
		`x = "a".to_string();`,
		`x = "b".to_string();`,
		`x = "c".to_string();`,
	)
}

func TestJsonLoads(t *testing.T) {
	out := emit(t, `
import json

def parse(s: str):
    return json.loads(s)
`)
	wantContains(t, out,
		"use serde_json;",
		"serde_json::from_str::<serde_json::Value>(s)",
	)
}

func TestZeroDivisionGuard(t *testing.T) {
	out := emit(t, `
def safe_div(a: int, b: int) -> float:
    try:
        return a / b
    except ZeroDivisionError:
        return 0.0
`)
	wantContains(t, out,
		"if b == 0 {",
		"return 0.0;",
		"(a) as f64 / (b) as f64",
	)
	wantAbsent(t, out, "unwrap")
}

func TestFinallyRunsBeforeReturn(t *testing.T) {
	out := emit(t, `
def read_one(log: list[int]) -> int:
    try:
        return 1
    finally:
        log.append(0)
`)
	wantContains(t, out,
		"let _try_flow = (|| -> Result<Option<i64>, Box<dyn std::error::Error>> {",
		"return Ok(Some(1));",
		"log.push(0);",
		"Ok(Some(value)) => return value,",
	)
	cleanup := strings.Index(out, "log.push(0);")
	dispatch := strings.Index(out, "Ok(Some(value))")
	if cleanup == -1 || dispatch == -1 || cleanup > dispatch {
		t.Errorf("cleanup must run before the captured return value leaves:\n%s", out)
	}
}

func TestExceptClausesDispatchByKind(t *testing.T) {
	out := emit(t, `
def classify(values: dict[str, int], items: list[int]) -> int:
    try:
        return values["a"] + items[0]
    except KeyError:
        return 1
    except IndexError:
        return 2
`)
	wantContains(t, out,
		"let err_text = err.to_string();",
		`if err_text.starts_with("KeyError") {`,
		`} else if err_text.starts_with("IndexError") {`,
		"return 1;",
		"return 2;",
	)
}

func TestDivmodFloors(t *testing.T) {
	out := emit(t, `
def split_units(total: int, size: int) -> tuple[int, int]:
    return divmod(total, size)
`)
	wantContains(t, out,
		"let q = a / b;",
		"let r = a % b;",
		"if r != 0 && (a < 0) != (b < 0) { (q - 1, r + b) } else { (q, r) }",
	)
}

func TestSearchBecomesIfLet(t *testing.T) {
	out := emit(t, `
import re

def first_match(pattern: str, text: str) -> str:
    m = re.search(pattern, text)
    if m:
        return m.group(0)
    return ""
`)
	wantContains(t, out,
		"if let Some(m) = regex::Regex::new(pattern).unwrap().find(text) {",
		"return m.as_str().to_string();",
	)
	wantAbsent(t, out, "unwrap_or_default", "is_some")
}

func TestDictGetFusesIntoIfLet(t *testing.T) {
	out := emit(t, `
def pick(d: dict[str, int], k: str) -> int:
    v = d.get(k)
    if v is not None:
        return v
    return -1
`)
	wantContains(t, out,
		"if let Some(v) = d.get(k).cloned() {",
		"return v;",
	)
}

func TestOptionUsedAfterIfStaysWrapped(t *testing.T) {
	out := emit(t, `
def count(d: dict[str, int], k: str) -> int:
    v = d.get(k)
    if v is not None:
        print("hit")
    if v is None:
        return 0
    return 1
`)
	// v outlives the first branch, so the wrapper cannot be opened.
	wantContains(t, out, "v.is_some()", "v.is_none()")
	wantAbsent(t, out, "if let Some(v)")
}

func TestFloorDivRoundsTowardNegativeInfinity(t *testing.T) {
	out := emit(t, `
def half(a: int, b: int) -> int:
    return a // b
`)
	wantContains(t, out, "if r != 0 && (a < 0) != (b < 0) { q - 1 } else { q }")
}

func TestModuloTakesDivisorSign(t *testing.T) {
	out := emit(t, `
def wrap(a: int, n: int) -> int:
    return a % n
`)
	wantContains(t, out, "if r != 0 && (r < 0) != (b < 0) { r + b } else { r }")
}

func TestPowUsesCheckedPow(t *testing.T) {
	out := emit(t, `
def cube(n: int) -> int:
    return n ** 3
`)
	wantContains(t, out, "checked_pow", `expect("Power operation overflowed")`)
}

func TestKeywordNamesGetRawIdents(t *testing.T) {
	out := emit(t, `
def match(value: int) -> int:
    type = value + 1
    return type
`)
	wantContains(t, out, "pub fn r#match(", "r#type")
}

func TestStrParamBorrowed(t *testing.T) {
	out := emit(t, `
def shout(name: str) -> str:
    return name.upper()
`)
	wantContains(t, out, "name: &str", "name.to_uppercase()")
}

func TestListComprehension(t *testing.T) {
	out := emit(t, `
def doubled(items: list[int]) -> list[int]:
    return [x * 2 for x in items]
`)
	wantContains(t, out, ".map(|x| x * 2)", ".collect::<Vec<_>>()")
}

func TestFStringBecomesFormat(t *testing.T) {
	out := emit(t, `
def greet(name: str) -> str:
    return f"Hello, {name}!"
`)
	wantContains(t, out, `format!("Hello, {}!"`)
}

func TestRaiseBecomesErr(t *testing.T) {
	out := emit(t, `
def check(n: int) -> int:
    if n < 0:
        raise ValueError("negative")
    return n
`)
	wantContains(t, out,
		"Result<i64, Box<dyn std::error::Error>>",
		`return Err("ValueError: negative".into());`,
		"Ok(n)",
	)
}

func TestClassEmission(t *testing.T) {
	out := emit(t, `
class Counter:
    def __init__(self, start: int):
        self.count = start

    def __len__(self) -> int:
        return self.count

    def incr(self) -> None:
        self.count += 1
`)
	wantContains(t, out,
		"#[derive(Debug, Clone)]",
		"pub struct Counter {",
		"pub count: i64,",
		"impl Counter {",
		"pub fn new(start: i64) -> Self {",
		"count: start,",
		"pub fn len(&self) -> i64 {",
		"pub fn incr(&mut self)",
		"self.count += 1;",
	)
	wantAbsent(t, out, "__len__", "__init__")
}

func TestMethodCallMakesReceiverMutable(t *testing.T) {
	out := emit(t, `
class Counter:
    def __init__(self):
        self.count = 0

    def incr(self) -> None:
        self.count += 1

def bump() -> None:
    c = Counter()
    c.incr()
`)
	wantContains(t, out, "let mut c = Counter::new();", "c.incr();")
}

func TestModuleConstants(t *testing.T) {
	out := emit(t, `
MAX_SIZE = 100
GREETING = "hello"
SIZES = [1, 2, 3]
`)
	wantContains(t, out,
		"pub const MAX_SIZE: i64 = 100;",
		`pub const GREETING: &str = "hello";`,
		"pub static SIZES: LazyLock<Vec<i64>> = LazyLock::new(|| vec![1, 2, 3]);",
		"use std::sync::LazyLock;",
	)
}

func TestMainGuard(t *testing.T) {
	out := emit(t, `
def greet() -> None:
    print("hi")

if __name__ == "__main__":
    greet()
`)
	wantContains(t, out, "pub fn main()", "greet();")
	wantAbsent(t, out, "__name__")
}

func TestDoctestsBecomeTestModule(t *testing.T) {
	out, _ := gen(t, `
def add(a: int, b: int) -> int:
    """Add two integers.

    >>> add(2, 3)
    5
    """
    return a + b
`, rustgen.Options{EmitTests: true})
	wantContains(t, out,
		"#[cfg(test)]",
		"mod tests {",
		"use super::*;",
		"#[test]",
		"fn test_add_examples() {",
		"assert_eq!(add(2, 3), 5);",
	)
}

func TestDocstringsBecomeDocComments(t *testing.T) {
	out := emit(t, `
def area(w: float, h: float) -> float:
    """Rectangle area."""
    return w * h
`)
	wantContains(t, out, "/// Rectangle area.")
}

func TestForRange(t *testing.T) {
	out := emit(t, `
def total(n: int) -> int:
    s = 0
    for i in range(n):
        s += i
    return s
`)
	wantContains(t, out, "for i in 0..n {", "s += i;", "let mut s = 0;")
}

func TestWhileTrueBecomesLoop(t *testing.T) {
	out := emit(t, `
def spin(n: int) -> int:
    while True:
        n -= 1
        if n == 0:
            break
    return n
`)
	wantContains(t, out, "loop {", "break;")
}

func TestAllowPrologue(t *testing.T) {
	out := emit(t, `
def id(x: int) -> int:
    return x
`)
	wantContains(t, out,
		"#![allow(unused_imports)]",
		"#![allow(dead_code)]",
	)
}
