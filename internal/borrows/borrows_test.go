package borrows_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

func solve(t *testing.T, src string) (*borrows.Result, *diag.Bag) {
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
	return borrows.Solve(mod, reporter), bag
}

func param(t *testing.T, res *borrows.Result, fn, name string) *borrows.ParamSignature {
	t.Helper()
	sig := res.Function(fn)
	if sig == nil {
		t.Fatalf("no signature for %s", fn)
	}
	p := sig.Param(name)
	if p == nil {
		t.Fatalf("%s has no parameter %s", fn, name)
	}
	return p
}

func hasReason(p *borrows.ParamSignature, substr string) bool {
	for _, r := range p.Reasons {
		if strings.Contains(r.Detail, substr) {
			return true
		}
	}
	return false
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestDirectMutation(t *testing.T) {
	res, _ := solve(t, `
def add_item(items: list[int], value: int) -> None:
    items.append(value)
`)
	items := param(t, res, "add_item", "items")
	if items.Kind != borrows.ExclusiveBorrow {
		t.Errorf("items = %v, want exclusive borrow", items.Kind)
	}
	if !items.Mutated {
		t.Error("items should carry the mutated flag")
	}
	if !hasReason(items, "append") {
		t.Errorf("items reasons %v should name the mutating method", items.Reasons)
	}
	if value := param(t, res, "add_item", "value"); value.Kind != borrows.Owned {
		t.Errorf("value = %v, want owned", value.Kind)
	}
}

func TestReadOnlyParam(t *testing.T) {
	res, _ := solve(t, `
def total(values: list[int]) -> int:
    result = 0
    for v in values:
        result += v
    return result
`)
	values := param(t, res, "total", "values")
	if values.Kind != borrows.SharedBorrow {
		t.Errorf("values = %v, want shared borrow", values.Kind)
	}
	if values.Mutated {
		t.Error("values is never written")
	}
	if !hasReason(values, "only read") {
		t.Errorf("values reasons %v should say only read", values.Reasons)
	}
}

func TestReturnedParamBorrows(t *testing.T) {
	res, _ := solve(t, `
def pick(items: list[str], fallback: list[str]) -> list[str]:
    if len(items) > 0:
        return items
    return fallback
`)
	for _, name := range []string{"items", "fallback"} {
		p := param(t, res, "pick", name)
		if p.Kind != borrows.SharedBorrow {
			t.Errorf("%s = %v, want shared borrow", name, p.Kind)
		}
		if !hasReason(p, "returned to the caller") {
			t.Errorf("%s reasons %v should mention the return", name, p.Reasons)
		}
	}
}

func TestStoredParamsOwned(t *testing.T) {
	res, _ := solve(t, `
def register(registry: dict[str, str], key: str, value: str) -> None:
    registry[key] = value
`)
	if registry := param(t, res, "register", "registry"); registry.Kind != borrows.ExclusiveBorrow {
		t.Errorf("registry = %v, want exclusive borrow", registry.Kind)
	}
	for _, name := range []string{"key", "value"} {
		p := param(t, res, "register", name)
		if p.Kind != borrows.Owned {
			t.Errorf("%s = %v, want owned", name, p.Kind)
		}
		if !hasReason(p, "stored beyond the call") {
			t.Errorf("%s reasons %v should mention the store", name, p.Reasons)
		}
	}
}

func TestTransitiveUpgrade(t *testing.T) {
	res, _ := solve(t, `
def deepest(out: list[int], n: int) -> None:
    out.append(n)

def middle(buf: list[int], n: int) -> None:
    deepest(buf, n)

def top(acc: list[int]) -> None:
    middle(acc, 7)
`)
	buf := param(t, res, "middle", "buf")
	if buf.Kind != borrows.ExclusiveBorrow {
		t.Errorf("buf = %v, want exclusive borrow", buf.Kind)
	}
	if !hasReason(buf, "deepest") {
		t.Errorf("buf reasons %v should name the callee", buf.Reasons)
	}
	acc := param(t, res, "top", "acc")
	if acc.Kind != borrows.ExclusiveBorrow {
		t.Errorf("acc = %v, want exclusive borrow through two hops", acc.Kind)
	}
	if !hasReason(acc, "exclusive access") {
		t.Errorf("acc reasons %v should explain the upgrade", acc.Reasons)
	}
}

func TestFieldPassUpgradesRoot(t *testing.T) {
	res, _ := solve(t, `
def fill(items: list[int]) -> None:
    items.append(1)

def load(box) -> None:
    fill(box.items)
`)
	box := param(t, res, "load", "box")
	if box.Kind != borrows.ExclusiveBorrow {
		t.Errorf("box = %v, want exclusive borrow via its field", box.Kind)
	}
}

func TestMethodReceivers(t *testing.T) {
	res, _ := solve(t, `
class Counter:
    def __init__(self) -> None:
        self.total = 0

    def bump(self, amount: int) -> None:
        self.total += amount

    def restart(self) -> None:
        self.bump(1)

    def peek(self) -> int:
        return self.total

def tick(c: Counter) -> None:
    c.bump(2)
`)
	bump := res.Method("Counter", "bump")
	if bump == nil {
		t.Fatal("Counter.bump not solved")
	}
	if p := bump.Param("self"); p.Kind != borrows.ExclusiveBorrow {
		t.Errorf("bump self = %v, want exclusive borrow", p.Kind)
	}

	restart := res.Method("Counter", "restart")
	if p := restart.Param("self"); p.Kind != borrows.ExclusiveBorrow {
		t.Errorf("restart self = %v, want exclusive via self.bump()", p.Kind)
	}

	peek := res.Method("Counter", "peek")
	if p := peek.Param("self"); p.Kind != borrows.SharedBorrow {
		t.Errorf("peek self = %v, want shared borrow", p.Kind)
	}

	ctor := res.Function("Counter")
	if ctor == nil {
		t.Fatal("constructor not reachable under the class name")
	}
	if p := ctor.Param("self"); p.Kind != borrows.ExclusiveBorrow {
		t.Errorf("__init__ self = %v, want exclusive borrow", p.Kind)
	}

	c := param(t, res, "tick", "c")
	if c.Kind != borrows.ExclusiveBorrow {
		t.Errorf("c = %v, want exclusive borrow through the method call", c.Kind)
	}
}

func TestCopyPrimitivesOwned(t *testing.T) {
	res, _ := solve(t, `
def scale(factor: float, offset: int, flag: bool) -> float:
    if flag:
        return factor + offset
    return factor
`)
	for _, name := range []string{"factor", "offset", "flag"} {
		if p := param(t, res, "scale", name); p.Kind != borrows.Owned {
			t.Errorf("%s = %v, want owned", name, p.Kind)
		}
	}
}

func TestGenericConditional(t *testing.T) {
	res, _ := solve(t, `
def first(items: list[T], default: T) -> T:
    if len(items) > 0:
        return items[0]
    return default
`)
	for _, name := range []string{"items", "default"} {
		p := param(t, res, "first", name)
		if p.Kind != borrows.Conditional {
			t.Fatalf("%s = %v, want conditional", name, p.Kind)
		}
		if p.If != borrows.SharedBorrow || p.Else != borrows.Owned {
			t.Errorf("%s alternatives = %v/%v, want shared/owned", name, p.If, p.Else)
		}
	}
}

func TestUnknownCalleeAssumesOwnership(t *testing.T) {
	res, bag := solve(t, `
def send(payload: dict) -> None:
    transmit(payload)
`)
	payload := param(t, res, "send", "payload")
	if payload.Kind != borrows.Owned {
		t.Errorf("payload = %v, want owned under the unknown-callee policy", payload.Kind)
	}
	if !hasReason(payload, "transmit") {
		t.Errorf("payload reasons %v should name the unknown callee", payload.Reasons)
	}
	if !hasCode(bag, diag.BorUnknownCallee) {
		t.Error("expected an unknown-callee note in the bag")
	}
	if bag.HasErrors() {
		t.Error("the unknown-callee note must not be an error")
	}
}

func TestBuiltinCalleeStaysQuiet(t *testing.T) {
	res, bag := solve(t, `
def show(values: list[int]) -> None:
    print(values)
`)
	if hasCode(bag, diag.BorUnknownCallee) {
		t.Error("builtins must not trip the unknown-callee policy")
	}
	if p := param(t, res, "show", "values"); p.Kind != borrows.SharedBorrow {
		t.Errorf("values = %v, want shared borrow", p.Kind)
	}
}

func TestAliasConflict(t *testing.T) {
	t.Run("function call", func(t *testing.T) {
		_, bag := solve(t, `
def merge(dst: list[int], src: list[int]) -> None:
    for v in src:
        dst.append(v)

def double_up(xs: list[int]) -> None:
    merge(xs, xs)
`)
		if !hasCode(bag, diag.BorSignatureConflict) {
			t.Fatal("aliased exclusive argument should be rejected")
		}
		if !bag.HasErrors() {
			t.Error("the conflict must be an error")
		}
	})

	t.Run("method receiver", func(t *testing.T) {
		_, bag := solve(t, `
class Pool:
    def __init__(self) -> None:
        self.items = []

    def absorb(self, other) -> None:
        self.items.extend(other.items)

def squash(p: Pool) -> None:
    p.absorb(p)
`)
		if !hasCode(bag, diag.BorSignatureConflict) {
			t.Fatal("receiver aliased with an argument should be rejected")
		}
	})

	t.Run("shared aliasing is fine", func(t *testing.T) {
		_, bag := solve(t, `
def longest(a: list[int], b: list[int]) -> int:
    return max(len(a), len(b))

def same(xs: list[int]) -> int:
    return longest(xs, xs)
`)
		if hasCode(bag, diag.BorSignatureConflict) {
			t.Error("read-only aliasing is legal")
		}
	})
}

func TestRecursionConverges(t *testing.T) {
	res, _ := solve(t, `
def drain(stack: list[int], out: list[int]) -> None:
    if len(stack) > 0:
        out.append(stack.pop())
        drain(stack, out)
`)
	for _, name := range []string{"stack", "out"} {
		if p := param(t, res, "drain", name); p.Kind != borrows.ExclusiveBorrow {
			t.Errorf("%s = %v, want exclusive borrow", name, p.Kind)
		}
	}
}

func TestRebindsBindAsMut(t *testing.T) {
	t.Run("reassigned string", func(t *testing.T) {
		res, _ := solve(t, `
def clean(text: str) -> str:
    text = text.strip()
    return text
`)
		p := param(t, res, "clean", "text")
		if p.Kind != borrows.Owned {
			t.Errorf("text = %v, want owned", p.Kind)
		}
		if !p.Mutated {
			t.Error("reassigned parameter needs a mut binding")
		}
	})

	t.Run("augmented int rebinds", func(t *testing.T) {
		res, _ := solve(t, `
def bump_count(n: int) -> int:
    n += 1
    return n
`)
		p := param(t, res, "bump_count", "n")
		if p.Kind == borrows.ExclusiveBorrow {
			t.Error("+= on an int must not force a mutable reference")
		}
		if p.Kind != borrows.Owned || !p.Mutated {
			t.Errorf("n = %v mutated=%v, want owned mut", p.Kind, p.Mutated)
		}
	})

	t.Run("augmented list mutates", func(t *testing.T) {
		res, _ := solve(t, `
def grow(xs: list[int]) -> None:
    xs += [1]
`)
		if p := param(t, res, "grow", "xs"); p.Kind != borrows.ExclusiveBorrow {
			t.Errorf("xs = %v, want exclusive borrow for list +=", p.Kind)
		}
	})
}

func TestFalliblePropagates(t *testing.T) {
	res, _ := solve(t, `
def head(xs: list[int]) -> int:
    return xs[0]

def safe_head(xs: list[int]) -> int:
    return head(xs)

def label(xs: list[int]) -> str:
    return "ok"
`)
	if !res.Function("head").Fallible {
		t.Error("indexing makes head fallible")
	}
	if !res.Function("safe_head").Fallible {
		t.Error("fallibility must flow to callers")
	}
	if res.Function("label").Fallible {
		t.Error("label cannot fail")
	}
}

func TestUnusedParamReason(t *testing.T) {
	res, _ := solve(t, `
def ignore(keep: int, extra: list[str]) -> int:
    return keep
`)
	extra := param(t, res, "ignore", "extra")
	if extra.Kind != borrows.SharedBorrow {
		t.Errorf("extra = %v, want shared borrow", extra.Kind)
	}
	if !hasReason(extra, "unused") {
		t.Errorf("extra reasons %v should flag it unused", extra.Reasons)
	}
}

func TestAllSignaturesSorted(t *testing.T) {
	res, _ := solve(t, `
def zeta(x: int) -> int:
    return x

def alpha(x: int) -> int:
    return zeta(x)

class Mid:
    def __init__(self) -> None:
        self.v = 0
`)
	all := res.All()
	if len(all) != 3 {
		t.Fatalf("got %d signatures, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name >= all[i].Name {
			t.Fatalf("signatures out of order: %s before %s", all[i-1].Name, all[i].Name)
		}
	}
}
