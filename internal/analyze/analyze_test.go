package analyze_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

func lowerModule(t *testing.T, src string) *hir.Module {
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
		t.Fatalf("unexpected diagnostics: %s", strings.Join(lines, "; "))
	}
	return mod
}

func analyzeFunc(t *testing.T, src, name string) *analyze.FunctionAnalysis {
	t.Helper()
	mod := lowerModule(t, src)
	fn := mod.Function(name)
	if fn == nil {
		t.Fatalf("function %s not lowered", name)
	}
	return analyze.AnalyzeWith(fn, analyze.ModuleReturns(mod))
}

func findCall(t *testing.T, a *analyze.FunctionAnalysis, callee string) analyze.CallSite {
	t.Helper()
	for _, c := range a.Calls {
		if c.Callee == callee {
			return c
		}
	}
	t.Fatalf("no call site for %s in %+v", callee, a.Calls)
	return analyze.CallSite{}
}

func TestMutationDetection(t *testing.T) {
	a := analyzeFunc(t, `
def update(items: list[int], config: dict[str, int], point, n: int) -> None:
    items.append(n)
    config["count"] = n
    point.x = n
    n = n + 1
`, "update")

	for _, name := range []string{"items", "config", "point"} {
		if !a.IsDeepMutated(name) {
			t.Errorf("%s should be deep-mutated", name)
		}
	}
	if a.IsDeepMutated("n") {
		t.Error("rebinding n is not a deep mutation")
	}
	if !a.IsMutated("n") {
		t.Error("rebinding n still counts as a write")
	}

	roots := a.MutatedRoots()
	want := []string{"config", "items", "point"}
	if len(roots) != len(want) {
		t.Fatalf("mutated roots = %v, want %v", roots, want)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Errorf("root[%d] = %s, want %s", i, roots[i], want[i])
		}
	}

	m := a.Mutations["items"][0]
	if m.Kind != analyze.MutationMethod || m.Method != "append" {
		t.Errorf("items mutation = %+v, want append method call", m)
	}
	if a.Mutations["config"][0].Kind != analyze.MutationIndexAssign {
		t.Errorf("config mutation kind = %v, want index assignment", a.Mutations["config"][0].Kind)
	}
	if a.Mutations["point"][0].Kind != analyze.MutationFieldWrite {
		t.Errorf("point mutation kind = %v, want field write", a.Mutations["point"][0].Kind)
	}
}

func TestAugAssignReadsAndWrites(t *testing.T) {
	a := analyzeFunc(t, `
def bump(counts: dict[str, int], key: str) -> None:
    counts[key] += 1
`, "bump")

	if !a.IsDeepMutated("counts") {
		t.Error("augmented index assignment should mutate counts")
	}
	if !a.IsRead("counts") {
		t.Error("augmented assignment also reads counts")
	}
	if !a.IsRead("key") {
		t.Error("key is read as the index")
	}
}

func TestCallSites(t *testing.T) {
	a := analyzeFunc(t, `
def process(data: list[int], config: dict[str, int]) -> int:
    total = compute(data, scale=config["factor"])
    helper(config, total + 1)
    return total
`, "process")

	compute := findCall(t, a, "compute")
	if len(compute.Args) != 2 {
		t.Fatalf("compute has %d args, want 2", len(compute.Args))
	}
	if compute.Args[0].Var != "data" || compute.Args[0].Pass != analyze.PassWhole {
		t.Errorf("arg 0 = %+v, want data passed whole", compute.Args[0])
	}
	if compute.Args[1].Name != "scale" || compute.Args[1].Var != "config" ||
		compute.Args[1].Pass != analyze.PassField {
		t.Errorf("arg 1 = %+v, want scale=config[...] as field", compute.Args[1])
	}

	helper := findCall(t, a, "helper")
	if helper.Args[0].Pass != analyze.PassWhole {
		t.Errorf("helper arg 0 = %+v, want whole", helper.Args[0])
	}
	if helper.Args[1].Var != "" || helper.Args[1].Pass != analyze.PassExpression {
		t.Errorf("helper arg 1 = %+v, want rootless expression", helper.Args[1])
	}
}

func TestNestedCallsAllRecorded(t *testing.T) {
	a := analyzeFunc(t, `
def wrap(x: int) -> int:
    return outer(inner(x))
`, "wrap")

	if len(a.Calls) != 2 {
		t.Fatalf("expected 2 call sites, got %+v", a.Calls)
	}
	inner := findCall(t, a, "inner")
	if inner.Args[0].Var != "x" {
		t.Errorf("inner arg = %+v, want x", inner.Args[0])
	}
	outer := findCall(t, a, "outer")
	if outer.Args[0].Pass != analyze.PassExpression {
		t.Errorf("outer arg = %+v, want expression", outer.Args[0])
	}
}

func TestEscapes(t *testing.T) {
	t.Run("returned", func(t *testing.T) {
		a := analyzeFunc(t, `
def pick(items: list[int], fallback: list[int]) -> list[int]:
    if len(items) > 0:
        return items
    return fallback
`, "pick")
		if a.Escapes["items"] != analyze.EscapeReturned {
			t.Errorf("items escape = %v, want returned", a.Escapes["items"])
		}
		if a.Escapes["fallback"] != analyze.EscapeReturned {
			t.Errorf("fallback escape = %v, want returned", a.Escapes["fallback"])
		}
	})

	t.Run("stored in container", func(t *testing.T) {
		a := analyzeFunc(t, `
def stash(registry: dict[str, int], key: str, value: int) -> None:
    registry[key] = value
`, "stash")
		if a.Escapes["value"] != analyze.EscapeStored {
			t.Errorf("value escape = %v, want stored", a.Escapes["value"])
		}
		if a.Escapes["key"] != analyze.EscapeStored {
			t.Errorf("key escape = %v, want stored", a.Escapes["key"])
		}
		if a.Escapes["registry"] != analyze.EscapeNone {
			t.Errorf("registry should not escape, got %v", a.Escapes["registry"])
		}
	})

	t.Run("appended", func(t *testing.T) {
		a := analyzeFunc(t, `
def collect(bucket: list[str], name: str) -> None:
    bucket.append(name)
`, "collect")
		if a.Escapes["name"] != analyze.EscapeStored {
			t.Errorf("name escape = %v, want stored", a.Escapes["name"])
		}
	})

	t.Run("returned field", func(t *testing.T) {
		a := analyzeFunc(t, `
def head(pair: tuple[int, int]) -> int:
    return pair[0]
`, "head")
		if a.Escapes["pair"] != analyze.EscapeReturned {
			t.Errorf("pair escape = %v, want returned", a.Escapes["pair"])
		}
	})

	t.Run("read only", func(t *testing.T) {
		a := analyzeFunc(t, `
def total(xs: list[int]) -> int:
    return len(xs)
`, "total")
		if a.Escapes["xs"] != analyze.EscapeNone {
			t.Errorf("xs should not escape, got %v", a.Escapes["xs"])
		}
	})
}

func TestDeclaredSet(t *testing.T) {
	a := analyzeFunc(t, `
def run(path: str) -> int:
    count = 0
    for line in open(path):
        count = count + 1
    with open(path) as fh:
        data = fh.read()
    try:
        n = int(data)
    except ValueError as err:
        n = 0
    return n + count
`, "run")

	for _, name := range []string{"path", "count", "line", "fh", "data", "n", "err"} {
		if !a.Declared[name] {
			t.Errorf("%s missing from declared set", name)
		}
	}
}

func TestTypesAtExit(t *testing.T) {
	t.Run("branch join widens numerics", func(t *testing.T) {
		a := analyzeFunc(t, `
def pick(flag: bool) -> float:
    if flag:
        x = 1
    else:
        x = 2.5
    return x
`, "pick")
		if got := a.TypesAtExit["x"]; got.Kind != hir.TypeFloat {
			t.Errorf("x at exit = %s, want float", got)
		}
	})

	t.Run("conflicting branches degrade", func(t *testing.T) {
		a := analyzeFunc(t, `
def confused(flag: bool):
    if flag:
        x = 1
    else:
        x = "one"
    return x
`, "confused")
		if got := a.TypesAtExit["x"]; !got.IsUnknown() {
			t.Errorf("x at exit = %s, want Unknown", got)
		}
	})

	t.Run("loop target takes element type", func(t *testing.T) {
		a := analyzeFunc(t, `
def total(values: list[float]) -> float:
    acc = 0.0
    for v in values:
        acc = acc + v
    return acc
`, "total")
		if got := a.TypesAtExit["v"]; got.Kind != hir.TypeFloat {
			t.Errorf("v at exit = %s, want float", got)
		}
		if got := a.TypesAtExit["acc"]; got.Kind != hir.TypeFloat {
			t.Errorf("acc at exit = %s, want float", got)
		}
	})

	t.Run("sibling returns propagate", func(t *testing.T) {
		a := analyzeFunc(t, `
def helper() -> list[int]:
    return []

def use() -> int:
    data = helper()
    return len(data)
`, "use")
		got := a.TypesAtExit["data"]
		if got == nil || got.Kind != hir.TypeList || got.Elem().Kind != hir.TypeInt {
			t.Errorf("data at exit = %s, want list[int]", got)
		}
	})

	t.Run("tuple destructuring", func(t *testing.T) {
		a := analyzeFunc(t, `
def split(pair: tuple[int, str]) -> None:
    num, text = pair
`, "split")
		if got := a.TypesAtExit["num"]; got.Kind != hir.TypeInt {
			t.Errorf("num = %s, want int", got)
		}
		if got := a.TypesAtExit["text"]; got.Kind != hir.TypeStr {
			t.Errorf("text = %s, want str", got)
		}
	})

	t.Run("empty list pinned by append", func(t *testing.T) {
		a := analyzeFunc(t, `
def build() -> None:
    items = []
    items.append(42)
`, "build")
		got := a.TypesAtExit["items"]
		if got == nil || got.Kind != hir.TypeList || got.Elem().Kind != hir.TypeInt {
			t.Errorf("items at exit = %s, want list[int]", got)
		}
	})

	t.Run("range iteration yields int", func(t *testing.T) {
		a := analyzeFunc(t, `
def count(n: int) -> int:
    total = 0
    for i in range(n):
        total = total + i
    return total
`, "count")
		if got := a.TypesAtExit["i"]; got.Kind != hir.TypeInt {
			t.Errorf("i at exit = %s, want int", got)
		}
	})

	t.Run("subscript takes element type", func(t *testing.T) {
		a := analyzeFunc(t, `
def pluck(values: list[str], ages: dict[str, int], pair: tuple[int, str]) -> None:
    head = values[0]
    age = ages["bob"]
    label = pair[1]
`, "pluck")
		if got := a.TypesAtExit["head"]; got.Kind != hir.TypeStr {
			t.Errorf("head = %s, want str", got)
		}
		if got := a.TypesAtExit["age"]; got.Kind != hir.TypeInt {
			t.Errorf("age = %s, want int", got)
		}
		if got := a.TypesAtExit["label"]; got.Kind != hir.TypeStr {
			t.Errorf("label = %s, want str", got)
		}
	})

	t.Run("dict iteration yields keys", func(t *testing.T) {
		a := analyzeFunc(t, `
def names(ages: dict[str, int]) -> None:
    for name in ages:
        print(name)
`, "names")
		if got := a.TypesAtExit["name"]; got.Kind != hir.TypeStr {
			t.Errorf("name at exit = %s, want str", got)
		}
	})
}

func TestParamUsageInference(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		param string
		check func(*hir.Type) bool
		want  string
	}{
		{
			name:  "string methods",
			src:   "def shout(msg):\n    return msg.upper()\n",
			param: "msg",
			check: func(t *hir.Type) bool { return t.Kind == hir.TypeStr },
			want:  "str",
		},
		{
			name:  "division forces float",
			src:   "def half(n):\n    return n / 2\n",
			param: "n",
			check: func(t *hir.Type) bool { return t.Kind == hir.TypeFloat },
			want:  "float",
		},
		{
			name:  "subtraction stays int",
			src:   "def dec(n):\n    return n - 1\n",
			param: "n",
			check: func(t *hir.Type) bool { return t.Kind == hir.TypeInt },
			want:  "int",
		},
		{
			name:  "iteration implies sequence",
			src:   "def total(xs):\n    s = 0\n    for x in xs:\n        s = s + x\n    return s\n",
			param: "xs",
			check: func(t *hir.Type) bool { return t.Kind == hir.TypeList },
			want:  "list",
		},
		{
			name:  "string key implies mapping",
			src:   "def lookup(cfg):\n    return cfg[\"name\"]\n",
			param: "cfg",
			check: func(t *hir.Type) bool {
				return t.Kind == hir.TypeDict && t.Key().Kind == hir.TypeStr
			},
			want: "dict[str, ?]",
		},
		{
			name:  "no evidence stays unknown",
			src:   "def ident(x):\n    return x\n",
			param: "x",
			check: func(t *hir.Type) bool { return t.IsUnknown() },
			want:  "Unknown",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := analyzeFunc(t, tc.src, strings.SplitN(strings.TrimPrefix(tc.src, "def "), "(", 2)[0])
			got := a.TypesAtExit[tc.param]
			if !tc.check(got) {
				t.Errorf("%s inferred as %s, want %s", tc.param, got, tc.want)
			}
		})
	}
}

func TestHoists(t *testing.T) {
	t.Run("branch assignment read after join", func(t *testing.T) {
		a := analyzeFunc(t, `
def describe(n: int) -> str:
    if n > 0:
        label = "positive"
    else:
        label = "other"
    return label
`, "describe")
		if len(a.Hoists) != 1 || a.Hoists[0].Name != "label" {
			t.Fatalf("hoists = %+v, want single label", a.Hoists)
		}
		if a.Hoists[0].Type.Kind != hir.TypeStr {
			t.Errorf("label hoist type = %s, want str", a.Hoists[0].Type)
		}
	})

	t.Run("pre-declared name needs no hoist", func(t *testing.T) {
		a := analyzeFunc(t, `
def clamp(n: int) -> int:
    result = 0
    if n > 0:
        result = n
    return result
`, "clamp")
		if len(a.Hoists) != 0 {
			t.Errorf("no hoists expected, got %+v", a.Hoists)
		}
	})

	t.Run("loop variable read after loop", func(t *testing.T) {
		a := analyzeFunc(t, `
def last(items: list[int]) -> int:
    for x in items:
        pass
    return x
`, "last")
		if len(a.Hoists) != 1 || a.Hoists[0].Name != "x" {
			t.Fatalf("hoists = %+v, want x", a.Hoists)
		}
	})

	t.Run("branch name unused after join", func(t *testing.T) {
		a := analyzeFunc(t, `
def note(n: int) -> int:
    if n > 0:
        tmp = n
        print(tmp)
    return n
`, "note")
		if len(a.Hoists) != 0 {
			t.Errorf("tmp never escapes its branch, got %+v", a.Hoists)
		}
	})

	t.Run("comprehension shadow does not count as use", func(t *testing.T) {
		a := analyzeFunc(t, `
def shadows(flag: bool, items: list[int]) -> list[int]:
    if flag:
        v = 1
        print(v)
    return [v for v in items]
`, "shadows")
		if len(a.Hoists) != 0 {
			t.Errorf("comprehension binds its own v, got %+v", a.Hoists)
		}
	})

	t.Run("hoisted once across branches", func(t *testing.T) {
		a := analyzeFunc(t, `
def twice(n: int) -> int:
    if n > 0:
        value = n
    if n > 10:
        value = n * 2
    return value
`, "twice")
		if len(a.Hoists) != 1 || a.Hoists[0].Name != "value" {
			t.Fatalf("hoists = %+v, want value once", a.Hoists)
		}
	})
}

func TestExceptionScopes(t *testing.T) {
	a := analyzeFunc(t, `
def load(path: str) -> str:
    try:
        fh = open(path)
        return fh.read()
    except OSError as err:
        print(err)
        return ""
    finally:
        print("done")
`, "load")

	if len(a.TryScopes) != 1 {
		t.Fatalf("expected 1 try scope, got %+v", a.TryScopes)
	}
	scope := a.TryScopes[0]
	if len(scope.Bindings) != 1 || scope.Bindings[0] != "err" {
		t.Errorf("bindings = %v, want [err]", scope.Bindings)
	}
	if len(scope.Caught) != 1 || scope.Caught[0] != "OSError" {
		t.Errorf("caught = %v, want [OSError]", scope.Caught)
	}
	if scope.CatchesAll {
		t.Error("OSError handler is not catch-all")
	}
	if !scope.HasFinally {
		t.Error("finally block not recorded")
	}
	if a.Raises {
		t.Error("no uncaught raise in this function")
	}
}

func TestRaises(t *testing.T) {
	t.Run("uncaught", func(t *testing.T) {
		a := analyzeFunc(t, `
def fail(msg: str) -> None:
    raise ValueError(msg)
`, "fail")
		if !a.Raises || !a.CanFail() {
			t.Error("uncaught raise should mark the function fallible")
		}
	})

	t.Run("caught", func(t *testing.T) {
		a := analyzeFunc(t, `
def safe(x: int) -> int:
    try:
        raise ValueError("boom")
    except ValueError:
        return 0
`, "safe")
		if a.Raises {
			t.Error("handled raise should not leak")
		}
	})

	t.Run("raise inside handler leaks", func(t *testing.T) {
		a := analyzeFunc(t, `
def rethrow(x: int) -> int:
    try:
        return x
    except ValueError:
        raise RuntimeError("bad")
`, "rethrow")
		if !a.Raises {
			t.Error("raise in a handler is not caught by its own try")
		}
	})
}

func TestFallibleOps(t *testing.T) {
	a := analyzeFunc(t, `
def risky(values: list[int], divisor: int, text: str) -> int:
    first = values[0]
    ratio = first // divisor
    parsed = int(text)
    halved = first // 2
    return ratio + parsed + halved
`, "risky")

	counts := map[analyze.FallibleKind]int{}
	for _, op := range a.Fallible {
		counts[op.Kind]++
	}
	if counts[analyze.FallibleIndex] != 1 {
		t.Errorf("index ops = %d, want 1", counts[analyze.FallibleIndex])
	}
	if counts[analyze.FallibleDivision] != 1 {
		t.Errorf("division ops = %d, want 1 (literal divisor is exempt)", counts[analyze.FallibleDivision])
	}
	if counts[analyze.FallibleParse] != 1 {
		t.Errorf("parse ops = %d, want 1", counts[analyze.FallibleParse])
	}
	if !a.CanFail() {
		t.Error("fallible ops should mark the function fallible")
	}
}

func TestLastUseOrdering(t *testing.T) {
	a := analyzeFunc(t, `
def track(a: int) -> int:
    b = a + 1
    c = a + b
    return c
`, "track")

	if len(a.Reads["a"]) != 2 {
		t.Fatalf("a read %d times, want 2", len(a.Reads["a"]))
	}
	if a.LastUse["c"].Start <= a.LastUse["a"].Start {
		t.Errorf("c is used after a: c=%d a=%d", a.LastUse["c"].Start, a.LastUse["a"].Start)
	}
}

func TestReceiverTracking(t *testing.T) {
	mod := lowerModule(t, `
class Counter:
    def __init__(self) -> None:
        self.total = 0

    def bump(self, amount: int) -> None:
        self.total += amount
`)
	cls := mod.Class("Counter")
	if cls == nil {
		t.Fatal("Counter not lowered")
	}
	a := analyze.Analyze(cls.Method("bump"))

	if a.Params[0] != "self" {
		t.Fatalf("receiver should lead the param list, got %v", a.Params)
	}
	if !a.IsDeepMutated("self") {
		t.Error("writing self.total mutates the receiver")
	}
}
