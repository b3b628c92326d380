// Package project locates and loads depyler.toml, the per-project
// manifest that fixes translation options, source and output layout, and
// the module-mapping overlay for a whole tree.
package project

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/types"
)

// Config is the decoded manifest.
type Config struct {
	Project   ProjectConfig   `toml:"project"`
	Transpile TranspileConfig `toml:"transpile"`
	Mapper    MapperConfig    `toml:"mapper"`
}

// ProjectConfig is the [project] section.
type ProjectConfig struct {
	Name string `toml:"name"`
	// SourceDir holds the Python tree, relative to the manifest. Empty
	// means the manifest directory itself.
	SourceDir string `toml:"source_dir"`
	// OutputDir receives the Rust files. Empty writes next to each
	// source.
	OutputDir string `toml:"output_dir"`
}

// TranspileConfig is the [transpile] section. Enum fields carry the same
// vocabulary as the corresponding annotation directives.
type TranspileConfig struct {
	NasaMode          bool   `toml:"nasa_mode"`
	OptimizationLevel string `toml:"optimization_level"`
	StringStrategy    string `toml:"string_strategy"`
	HashStrategy      string `toml:"hash_strategy"`
	Ownership         string `toml:"ownership"`
	IntWidth          string `toml:"int_width"`
	EmitTests         bool   `toml:"emit_tests"`
	MaxDiagnostics    int    `toml:"max_diagnostics"`
}

// MapperConfig is the [mapper] section.
type MapperConfig struct {
	// Config points at a module-mapping overlay, relative to the
	// manifest.
	Config string `toml:"config"`
}

// Manifest is a loaded depyler.toml with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Load reads and validates one manifest file.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return nil, fmt.Errorf("%s: missing [project]", path)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return nil, fmt.Errorf("%s: missing [project].name", path)
	}
	m := &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}
	// Reject bad enum spellings at load time, not first use.
	if _, err := m.Options(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadFrom finds and loads the manifest governing startDir. ok is false
// when no manifest exists anywhere up the tree.
func LoadFrom(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// SourceDir resolves the Python tree the manifest governs.
func (m *Manifest) SourceDir() string {
	if m.Config.Project.SourceDir == "" {
		return m.Root
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Project.SourceDir))
}

// OutputDir resolves the output directory; empty keeps outputs next to
// their sources.
func (m *Manifest) OutputDir() string {
	if m.Config.Project.OutputDir == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Project.OutputDir))
}

// MapperConfigPath resolves the module-mapping overlay, empty when none
// is configured.
func (m *Manifest) MapperConfigPath() string {
	if m.Config.Mapper.Config == "" {
		return ""
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Mapper.Config))
}

// Options converts the [transpile] section to driver options. Flags
// layered on top by the caller win over manifest values.
func (m *Manifest) Options() (driver.Options, error) {
	t := m.Config.Transpile

	level, err := driver.ParseOptLevel(t.OptimizationLevel)
	if err != nil {
		return driver.Options{}, err
	}
	strMode, err := types.ParseStringMode(t.StringStrategy)
	if err != nil {
		return driver.Options{}, err
	}
	hash, err := annotations.ParseHashStrategy(t.HashStrategy)
	if err != nil {
		return driver.Options{}, err
	}
	owner, err := annotations.ParseOwnership(t.Ownership)
	if err != nil {
		return driver.Options{}, err
	}
	width, err := types.ParseIntWidth(t.IntWidth)
	if err != nil {
		return driver.Options{}, err
	}

	return driver.Options{
		OptimizationLevel: level,
		NasaMode:          t.NasaMode,
		StringStrategy:    strMode,
		HashStrategy:      hash,
		OwnershipModel:    owner,
		IntWidth:          width,
		MapperConfigPath:  m.MapperConfigPath(),
		EmitTests:         t.EmitTests,
		MaxDiagnostics:    t.MaxDiagnostics,
	}, nil
}

// DefaultManifest renders the scaffold init writes.
func DefaultManifest(name string) string {
	return fmt.Sprintf(`[project]
name = %q
source_dir = "."
output_dir = "rust"

[transpile]
nasa_mode = false
optimization_level = "debug"
string_strategy = "always_owned"
hash_strategy = "standard"
int_width = "i64"
emit_tests = false
`, name)
}
