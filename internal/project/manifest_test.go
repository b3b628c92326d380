package project_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/project"
	"github.com/paiml/depyler/internal/types"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, project.ManifestName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFullManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[project]
name = "calc"
source_dir = "src"
output_dir = "rust"

[transpile]
nasa_mode = true
optimization_level = "release"
string_strategy = "cow"
hash_strategy = "fnv"
ownership = "borrowed"
int_width = "i32"
emit_tests = true
max_diagnostics = 40

[mapper]
config = "mappings.toml"
`)

	m, err := project.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Root != dir {
		t.Errorf("Root = %q, want %q", m.Root, dir)
	}
	if m.Config.Project.Name != "calc" {
		t.Errorf("Name = %q", m.Config.Project.Name)
	}
	if got := m.SourceDir(); got != filepath.Join(dir, "src") {
		t.Errorf("SourceDir = %q", got)
	}
	if got := m.OutputDir(); got != filepath.Join(dir, "rust") {
		t.Errorf("OutputDir = %q", got)
	}
	if got := m.MapperConfigPath(); got != filepath.Join(dir, "mappings.toml") {
		t.Errorf("MapperConfigPath = %q", got)
	}

	opts, err := m.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if !opts.NasaMode || !opts.EmitTests {
		t.Error("bool fields not carried over")
	}
	if opts.OptimizationLevel != driver.OptRelease {
		t.Errorf("OptimizationLevel = %v", opts.OptimizationLevel)
	}
	if opts.StringStrategy != types.StringCowByDefault {
		t.Errorf("StringStrategy = %v", opts.StringStrategy)
	}
	if opts.HashStrategy != annotations.HashFnv {
		t.Errorf("HashStrategy = %v", opts.HashStrategy)
	}
	if opts.OwnershipModel != annotations.OwnershipBorrowed {
		t.Errorf("OwnershipModel = %v", opts.OwnershipModel)
	}
	if opts.IntWidth != types.WidthI32 {
		t.Errorf("IntWidth = %v", opts.IntWidth)
	}
	if opts.MaxDiagnostics != 40 {
		t.Errorf("MaxDiagnostics = %d", opts.MaxDiagnostics)
	}
}

func TestLoadMinimalManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[project]\nname = \"mini\"\n")

	m, err := project.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.SourceDir(); got != dir {
		t.Errorf("SourceDir = %q, want manifest dir", got)
	}
	if got := m.OutputDir(); got != "" {
		t.Errorf("OutputDir = %q, want empty", got)
	}
	if got := m.MapperConfigPath(); got != "" {
		t.Errorf("MapperConfigPath = %q, want empty", got)
	}

	opts, err := m.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.NasaMode || opts.EmitTests {
		t.Error("defaults should leave modes off")
	}
	if opts.IntWidth != types.WidthI64 {
		t.Errorf("IntWidth = %v, want i64", opts.IntWidth)
	}
}

func TestLoadRejectsBadManifests(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no project section", "[transpile]\nnasa_mode = true\n", "missing [project]"},
		{"no name", "[project]\nsource_dir = \"src\"\n", "missing [project].name"},
		{"blank name", "[project]\nname = \"  \"\n", "missing [project].name"},
		{"bad enum", "[project]\nname = \"x\"\n[transpile]\nhash_strategy = \"md5\"\n", "unknown hash strategy"},
		{"bad width", "[project]\nname = \"x\"\n[transpile]\nint_width = \"i128\"\n", "unknown int width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := project.Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walk\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	path, ok, err := project.Find(nested)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !ok {
		t.Fatal("manifest not found from nested dir")
	}
	if path != filepath.Join(root, project.ManifestName) {
		t.Errorf("path = %q", path)
	}

	gotRoot, ok, err := project.FindRoot(nested)
	if err != nil || !ok {
		t.Fatalf("FindRoot: ok=%v err=%v", ok, err)
	}
	if gotRoot != root {
		t.Errorf("root = %q, want %q", gotRoot, root)
	}
}

func TestFindReportsMissing(t *testing.T) {
	_, ok, err := project.Find(t.TempDir())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if ok {
		t.Fatal("found a manifest in an empty temp dir")
	}
}

func TestLoadFrom(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"from\"\n")

	m, ok, err := project.LoadFrom(root)
	if err != nil || !ok {
		t.Fatalf("LoadFrom: ok=%v err=%v", ok, err)
	}
	if m.Config.Project.Name != "from" {
		t.Errorf("Name = %q", m.Config.Project.Name)
	}
}

func TestDefaultManifestRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, project.DefaultManifest("fresh"))

	m, err := project.Load(path)
	if err != nil {
		t.Fatalf("scaffold does not load: %v", err)
	}
	if m.Config.Project.Name != "fresh" {
		t.Errorf("Name = %q", m.Config.Project.Name)
	}
	if _, err := m.Options(); err != nil {
		t.Errorf("scaffold options: %v", err)
	}
}
