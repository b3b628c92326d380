package modmap

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

// fileConfig mirrors the mapper TOML file. Each [modules."name"] section
// replaces the built-in entry for that module wholesale.
type fileConfig struct {
	Modules map[string]moduleSpec `toml:"modules"`
}

type moduleSpec struct {
	TargetPath string            `toml:"target_path"`
	IsExternal bool              `toml:"is_external"`
	Version    string            `toml:"version"`
	ItemMap    map[string]string `toml:"item_map"`
}

// LoadConfig overlays module mappings from a TOML file. A parse failure
// rejects the whole file; an invalid version requirement rejects only its
// entry, and the rest still applies.
func (m *Mapper) LoadConfig(path string, reporter diag.Reporter) error {
	var cfg fileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		diag.ReportError(reporter, diag.MapConfigError, source.Span{},
			fmt.Sprintf("%s: %v", path, err)).Emit()
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	for name, spec := range cfg.Modules {
		if spec.Version != "" {
			if _, err := semver.NewConstraint(spec.Version); err != nil {
				diag.ReportWarning(reporter, diag.MapVersionInvalid, source.Span{},
					fmt.Sprintf("module %s: version %q: %v", name, spec.Version, err)).Emit()
				continue
			}
		}
		m.Register(name, Mapping{
			RustPath: spec.TargetPath,
			External: spec.IsExternal,
			Version:  spec.Version,
			Items:    spec.ItemMap,
		})
	}
	return nil
}

// Register installs or replaces a module mapping.
func (m *Mapper) Register(module string, mapping Mapping) {
	m.modules[module] = mapping
}
