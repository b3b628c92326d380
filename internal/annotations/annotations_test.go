package annotations

import (
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

func parseAbove(t *testing.T, src string, defLine uint32) (Set, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.py", []byte(src)))
	bag := diag.NewBag(50)
	set := NewParser().ForDefinition(file, defLine, diag.BagReporter{Bag: bag})
	return set, bag
}

func TestDefaultsWhenNoDirectives(t *testing.T) {
	set, bag := parseAbove(t, "def f():\n    pass\n", 1)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	if set.TypeStrategy != TypeConservative || set.Ownership != OwnershipOwned {
		t.Fatalf("zero value should be the default set: %+v", set)
	}
	if set.HashStrategy != HashStandard || set.ErrorStrategy != ErrorPanic {
		t.Fatalf("zero value should be the default set: %+v", set)
	}
}

func TestParseDirectiveBlock(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: type_strategy = "aggressive"`,
		`# @depyler: ownership = "borrowed"`,
		`# @depyler: hash_strategy = "fnv"`,
		`# @depyler: string_strategy = "zero_copy"`,
		`# @depyler: verify_bounds = true`,
		`def f():`,
		`    pass`,
	}, "\n")
	set, bag := parseAbove(t, src, 6)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	if set.TypeStrategy != TypeAggressive {
		t.Fatalf("type_strategy not applied: %v", set.TypeStrategy)
	}
	if set.Ownership != OwnershipBorrowed {
		t.Fatalf("ownership not applied: %v", set.Ownership)
	}
	if set.HashStrategy != HashFnv || set.StringStrategy != StringZeroCopy {
		t.Fatalf("strategies not applied: %+v", set)
	}
	if !set.VerifyBounds {
		t.Fatalf("verify_bounds not applied")
	}
}

func TestUnknownKeyWarnsAndContinues(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: no_such_key = "x"`,
		`# @depyler: ownership = "shared"`,
		`def f():`,
	}, "\n")
	set, bag := parseAbove(t, src, 3)
	if set.Ownership != OwnershipShared {
		t.Fatalf("valid directive should still apply: %v", set.Ownership)
	}
	if bag.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.TypAnnotationUnknownKey || d.Severity != diag.SevWarning {
		t.Fatalf("wrong diagnostic: code=%v sev=%v", d.Code, d.Severity)
	}
}

func TestInvalidValueWarnsKeepsDefault(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: panic_behavior = "explode"`,
		`def f():`,
	}, "\n")
	set, bag := parseAbove(t, src, 2)
	if set.PanicBehavior != PanicPropagate {
		t.Fatalf("invalid value must keep default, got %v", set.PanicBehavior)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.TypAnnotationInvalidValue {
		t.Fatalf("expected invalid-value warning, got %d diags", bag.Len())
	}
}

func TestAccumulatingKeys(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: invariant = "n >= 0"`,
		`# @depyler: invariant = "len(xs) > 0"`,
		`# @depyler: custom_attribute = "inline(always)"`,
		`# @depyler: custom_attribute = "must_use"`,
		`def f():`,
	}, "\n")
	set, _ := parseAbove(t, src, 5)
	if len(set.Invariants) != 2 {
		t.Fatalf("expected 2 invariants, got %v", set.Invariants)
	}
	if len(set.CustomAttributes) != 2 || set.CustomAttributes[0] != "inline(always)" {
		t.Fatalf("custom attributes wrong: %v", set.CustomAttributes)
	}
}

func TestTerminationForms(t *testing.T) {
	cases := []struct {
		value  string
		proven bool
		bound  uint32
	}{
		{"unknown", false, 0},
		{"proven", true, 0},
		{"bounded_100", true, 100},
	}
	for _, tc := range cases {
		src := "# @depyler: termination = \"" + tc.value + "\"\ndef f():\n"
		set, bag := parseAbove(t, src, 2)
		if bag.Len() != 0 {
			t.Fatalf("%s: unexpected diagnostics", tc.value)
		}
		if set.Termination.Proven != tc.proven || set.Termination.Bound != tc.bound {
			t.Fatalf("%s parsed wrong: %+v", tc.value, set.Termination)
		}
		if set.Termination.String() != tc.value {
			t.Fatalf("round trip wrong: %q", set.Termination.String())
		}
	}
}

func TestBlockStopsAtCode(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: ownership = "shared"`,
		`x = 1`,
		`# @depyler: ownership = "borrowed"`,
		``,
		`def f():`,
	}, "\n")
	set, _ := parseAbove(t, src, 5)
	if set.Ownership != OwnershipBorrowed {
		t.Fatalf("only the adjacent block should apply, got %v", set.Ownership)
	}
}

func TestPerformanceHints(t *testing.T) {
	src := strings.Join([]string{
		`# @depyler: performance_critical = "true"`,
		`# @depyler: optimization_hint = "latency"`,
		`def f():`,
	}, "\n")
	set, bag := parseAbove(t, src, 3)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	if !set.hasHint(PerfCritical) || !set.hasHint(PerfLatency) {
		t.Fatalf("hints missing: %v", set.PerfHints)
	}
}

func TestValidateConflicts(t *testing.T) {
	set := Default()
	set.StringStrategy = StringZeroCopy
	set.Ownership = OwnershipOwned
	set.ThreadSafety = ThreadRequired
	set.InteriorMutability = MutRefCell
	problems := set.Validate()
	if len(problems) != 2 {
		t.Fatalf("expected 2 conflicts, got %v", problems)
	}
}
