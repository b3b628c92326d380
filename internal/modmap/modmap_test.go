package modmap_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/modmap"
)

func newBag() (*diag.Bag, diag.BagReporter) {
	bag := diag.NewBag(64)
	return bag, diag.BagReporter{Bag: bag}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func fromImport(module string, names ...string) hir.Import {
	imp := hir.Import{Module: module, IsFrom: true}
	for _, n := range names {
		imp.Items = append(imp.Items, hir.ImportItem{Name: n})
	}
	return imp
}

func TestLookup(t *testing.T) {
	m := modmap.New()
	mapping, ok := m.Lookup("json")
	if !ok {
		t.Fatalf("json must be in the default table")
	}
	if mapping.RustPath != "serde_json" || !mapping.External || mapping.Version != "1.0" {
		t.Fatalf("json mapping = %+v", mapping)
	}
	if _, ok := m.Lookup("requests"); ok {
		t.Fatalf("requests must not be in the default table")
	}
}

func TestMapWholeModule(t *testing.T) {
	tests := []struct {
		name      string
		imp       hir.Import
		wantNone  bool
		wantPath  string
		wantAlias string
	}{
		{name: "json", imp: hir.Import{Module: "json"}, wantPath: "serde_json"},
		{name: "numpy aliased", imp: hir.Import{Module: "numpy", Alias: "np"}, wantPath: "trueno", wantAlias: "np"},
		{name: "os inline", imp: hir.Import{Module: "os"}, wantNone: true},
		{name: "sys inline", imp: hir.Import{Module: "sys"}, wantNone: true},
		{name: "typing absorbed", imp: hir.Import{Module: "typing"}, wantNone: true},
		{name: "argparse derive", imp: hir.Import{Module: "argparse"}, wantPath: "clap::Parser"},
	}
	m := modmap.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag, reporter := newBag()
			got := m.MapImport(tt.imp, reporter)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
			if tt.wantNone {
				if len(got) != 0 {
					t.Fatalf("MapImport = %+v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("MapImport returned %d imports, want 1", len(got))
			}
			if got[0].Path != tt.wantPath || got[0].Alias != tt.wantAlias {
				t.Fatalf("MapImport = %q as %q, want %q as %q", got[0].Path, got[0].Alias, tt.wantPath, tt.wantAlias)
			}
		})
	}
}

func TestMapFromImportItems(t *testing.T) {
	tests := []struct {
		name     string
		imp      hir.Import
		want     []string
		wantInfo bool
	}{
		{name: "method path truncates to type", imp: fromImport("os.path", "join"), want: []string{"std::path::Path"}},
		{name: "regex compile", imp: fromImport("re", "compile"), want: []string{"regex::Regex"}},
		{name: "free function", imp: fromImport("json", "loads"), want: []string{"serde_json::from_str"}},
		{name: "enum variant kept whole", imp: fromImport("logging", "DEBUG"), want: []string{"log::Level::Debug"}},
		{name: "const path kept whole", imp: fromImport("math", "pi"), want: []string{"std::f64::consts::PI"}},
		{name: "inline flag skipped", imp: fromImport("re", "IGNORECASE"), want: nil},
		{name: "defaultdict", imp: fromImport("collections", "defaultdict"), want: []string{"std::collections::HashMap"}},
		{name: "unknown item by name", imp: fromImport("json", "JSONDecoder"), want: []string{"serde_json::JSONDecoder"}, wantInfo: true},
	}
	m := modmap.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag, reporter := newBag()
			got := m.MapImport(tt.imp, reporter)
			var paths []string
			for _, ri := range got {
				paths = append(paths, ri.Path)
			}
			if len(paths) != len(tt.want) {
				t.Fatalf("MapImport = %v, want %v", paths, tt.want)
			}
			for i := range paths {
				if paths[i] != tt.want[i] {
					t.Fatalf("MapImport = %v, want %v", paths, tt.want)
				}
			}
			if tt.wantInfo != hasCode(bag, diag.MapUnknownItem) {
				t.Fatalf("unknown item diagnostic presence = %v, want %v", !tt.wantInfo, tt.wantInfo)
			}
		})
	}
}

func TestMapFromImportDropsAliasOnTruncation(t *testing.T) {
	m := modmap.New()
	_, reporter := newBag()
	imp := hir.Import{
		Module: "os.path",
		IsFrom: true,
		Items:  []hir.ImportItem{{Name: "exists", Alias: "there"}},
	}
	got := m.MapImport(imp, reporter)
	if len(got) != 1 {
		t.Fatalf("MapImport returned %d imports, want 1", len(got))
	}
	if got[0].Path != "std::path::Path" || got[0].Alias != "" {
		t.Fatalf("MapImport = %q as %q, want std::path::Path without alias", got[0].Path, got[0].Alias)
	}
}

func TestMapImportUnknownModule(t *testing.T) {
	m := modmap.New()
	bag, reporter := newBag()
	got := m.MapImport(hir.Import{Module: "requests"}, reporter)
	if len(got) != 1 || !got[0].Placeholder {
		t.Fatalf("unknown module must map to a placeholder, got %+v", got)
	}
	if got[0].Module != "requests" || !strings.Contains(got[0].Path, "requests") {
		t.Fatalf("placeholder = %+v", got[0])
	}
	if !hasCode(bag, diag.MapUnresolvedImport) {
		t.Fatalf("expected unresolved import diagnostic, bag: %v", bag.Items())
	}
}

func TestMapImportRelativeAndWildcard(t *testing.T) {
	m := modmap.New()

	bag, reporter := newBag()
	rel := hir.Import{Module: "helpers", IsFrom: true, Level: 1, Items: []hir.ImportItem{{Name: "f"}}}
	if got := m.MapImport(rel, reporter); len(got) != 1 || !got[0].Placeholder {
		t.Fatalf("relative import = %+v, want placeholder", got)
	}
	if !hasCode(bag, diag.MapRelativeImport) {
		t.Fatalf("expected relative import diagnostic, bag: %v", bag.Items())
	}

	bag, reporter = newBag()
	wild := hir.Import{Module: "math", IsFrom: true, Wildcard: true}
	if got := m.MapImport(wild, reporter); len(got) != 1 || !got[0].Placeholder {
		t.Fatalf("wildcard import = %+v, want placeholder", got)
	}
	if !hasCode(bag, diag.MapWildcardImport) {
		t.Fatalf("expected wildcard import diagnostic, bag: %v", bag.Items())
	}
}

func TestNasaMode(t *testing.T) {
	m := modmap.New()
	m.SetNasaMode(true)

	bag, reporter := newBag()
	got := m.MapImport(hir.Import{Module: "json"}, reporter)
	if len(got) != 1 || !got[0].Placeholder {
		t.Fatalf("external crate in NASA mode = %+v, want placeholder", got)
	}
	if !hasCode(bag, diag.MapNasaSuppressed) {
		t.Fatalf("expected NASA suppression diagnostic, bag: %v", bag.Items())
	}

	// std mappings keep working.
	bag, reporter = newBag()
	got = m.MapImport(fromImport("os.path", "join"), reporter)
	if len(got) != 1 || got[0].Path != "std::path::Path" {
		t.Fatalf("std mapping in NASA mode = %+v", got)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	if deps := m.Dependencies([]hir.Import{{Module: "json"}}); deps != nil {
		t.Fatalf("Dependencies in NASA mode = %+v, want none", deps)
	}
}

func TestDependencies(t *testing.T) {
	m := modmap.New()
	imports := []hir.Import{
		{Module: "json"},
		fromImport("re", "compile"),
		fromImport("json", "loads"),
		{Module: "numpy", Alias: "np"},
		fromImport("numpy.linalg", "norm"),
		{Module: "math"},
		{Module: "requests"},
	}
	deps := m.Dependencies(imports)
	want := []modmap.Dependency{
		{Crate: "regex", Version: "1.10"},
		{Crate: "serde", Version: "1.0", Features: []string{"derive"}},
		{Crate: "serde_json", Version: "1.0"},
		{Crate: "trueno", Version: "0.7"},
	}
	if len(deps) != len(want) {
		t.Fatalf("Dependencies = %+v, want %+v", deps, want)
	}
	for i := range deps {
		if deps[i].Crate != want[i].Crate || deps[i].Version != want[i].Version {
			t.Fatalf("Dependencies[%d] = %+v, want %+v", i, deps[i], want[i])
		}
	}
	if len(deps[1].Features) != 1 || deps[1].Features[0] != "derive" {
		t.Fatalf("serde features = %v, want [derive]", deps[1].Features)
	}
}

func TestDependenciesClapFeatures(t *testing.T) {
	m := modmap.New()
	deps := m.Dependencies([]hir.Import{{Module: "argparse"}})
	if len(deps) != 1 || deps[0].Crate != "clap" || deps[0].Version != "4.5" {
		t.Fatalf("Dependencies = %+v", deps)
	}
	if len(deps[0].Features) != 1 || deps[0].Features[0] != "derive" {
		t.Fatalf("clap features = %v, want [derive]", deps[0].Features)
	}
}

func TestDependencyString(t *testing.T) {
	simple := modmap.Dependency{Crate: "serde_json", Version: "1.0"}
	if got := simple.String(); got != `serde_json = "1.0"` {
		t.Fatalf("String = %s", got)
	}
	featured := modmap.Dependency{Crate: "clap", Version: "4.5", Features: []string{"derive"}}
	if got := featured.String(); got != `clap = { version = "4.5", features = ["derive"] }` {
		t.Fatalf("String = %s", got)
	}
}

func TestCargoManifest(t *testing.T) {
	deps := []modmap.Dependency{
		{Crate: "serde_json", Version: "1.0"},
		{Crate: "clap", Version: "4.5", Features: []string{"derive"}},
	}
	manifest, err := modmap.CargoManifest("fib", "fib.rs", deps)
	if err != nil {
		t.Fatalf("CargoManifest returned error: %v", err)
	}
	for _, frag := range []string{
		`name = "fib"`,
		`version = "0.1.0"`,
		`edition = "2021"`,
		"[[bin]]",
		`path = "fib.rs"`,
		`serde_json = "1.0"`,
		"[dependencies.clap]",
		`features = ["derive"]`,
	} {
		if !strings.Contains(manifest, frag) {
			t.Fatalf("manifest missing %q:\n%s", frag, manifest)
		}
	}
}

func TestConstructorFor(t *testing.T) {
	m := modmap.New()
	c, ok := m.ConstructorFor("Regex")
	if !ok || c.Pattern != modmap.ConstructMethod || c.Method != "new" {
		t.Fatalf("ConstructorFor(Regex) = %+v, %v", c, ok)
	}
	c, ok = m.ConstructorFor("BufReader")
	if !ok || c.Pattern != modmap.ConstructNew {
		t.Fatalf("ConstructorFor(BufReader) = %+v, %v", c, ok)
	}
	if _, ok := m.ConstructorFor("NoSuchType"); ok {
		t.Fatalf("ConstructorFor must miss unknown items")
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.toml")
	content := `
[modules."requests"]
target_path = "reqwest"
is_external = true
version = "0.11"

[modules."requests".item_map]
get = "blocking::get"

[modules."broken"]
target_path = "nope"
is_external = true
version = "not a version"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := modmap.New()
	bag, reporter := newBag()
	if err := m.LoadConfig(path, reporter); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	mapping, ok := m.Lookup("requests")
	if !ok {
		t.Fatalf("requests must resolve after overlay")
	}
	if mapping.RustPath != "reqwest" || !mapping.External || mapping.Version != "0.11" {
		t.Fatalf("requests mapping = %+v", mapping)
	}
	if mapping.Items["get"] != "blocking::get" {
		t.Fatalf("item_map not applied: %+v", mapping.Items)
	}

	if _, ok := m.Lookup("broken"); ok {
		t.Fatalf("entry with invalid version must be skipped")
	}
	if !hasCode(bag, diag.MapVersionInvalid) {
		t.Fatalf("expected invalid version diagnostic, bag: %v", bag.Items())
	}

	got := m.MapImport(fromImport("requests", "get"), reporter)
	if len(got) != 1 || got[0].Path != "reqwest::blocking::get" {
		t.Fatalf("overlaid item = %+v", got)
	}
}

func TestLoadConfigParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.toml")
	if err := os.WriteFile(path, []byte("[modules\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	m := modmap.New()
	bag, reporter := newBag()
	if err := m.LoadConfig(path, reporter); err == nil {
		t.Fatalf("expected parse error")
	}
	if !hasCode(bag, diag.MapConfigError) {
		t.Fatalf("expected config diagnostic, bag: %v", bag.Items())
	}
}
