package modmap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// crateFeatures lists cargo features a crate needs before generated code
// compiles. clap derives its parser from a struct; tokio needs the full
// runtime for spawn and the join/select macros.
var crateFeatures = map[string][]string{
	"clap":  {"derive"},
	"tokio": {"full"},
}

// companions maps a crate to a second crate that must ride along in
// Cargo.toml. serde_json deserializes into types that carry serde derives.
var companions = map[string]Dependency{
	"serde_json": {Crate: "serde", Version: "1.0", Features: []string{"derive"}},
}

func appendCompanions(deps []Dependency) []Dependency {
	have := make(map[string]bool, len(deps))
	for _, d := range deps {
		have[d.Crate] = true
	}
	for _, d := range deps {
		comp, ok := companions[d.Crate]
		if ok && !have[comp.Crate] {
			deps = append(deps, comp)
			have[comp.Crate] = true
		}
	}
	return deps
}

// String renders the requirement as a single Cargo.toml line.
func (d Dependency) String() string {
	if len(d.Features) == 0 {
		return fmt.Sprintf("%s = %q", d.Crate, d.Version)
	}
	quoted := make([]string, len(d.Features))
	for i, f := range d.Features {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("%s = { version = %q, features = [%s] }", d.Crate, d.Version, strings.Join(quoted, ", "))
}

type cargoPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Edition string `toml:"edition"`
}

type cargoBin struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

type cargoDetail struct {
	Version  string   `toml:"version"`
	Features []string `toml:"features"`
}

type cargoManifest struct {
	Package      cargoPackage   `toml:"package"`
	Bin          []cargoBin     `toml:"bin"`
	Dependencies map[string]any `toml:"dependencies,omitempty"`
}

// CargoManifest renders a complete Cargo.toml for one transpiled binary.
// The [[bin]] section points cargo at the generated source so the manifest
// builds without manual editing.
func CargoManifest(packageName, sourcePath string, deps []Dependency) (string, error) {
	manifest := cargoManifest{
		Package: cargoPackage{Name: packageName, Version: "0.1.0", Edition: "2021"},
		Bin:     []cargoBin{{Name: packageName, Path: sourcePath}},
	}
	if len(deps) > 0 {
		manifest.Dependencies = make(map[string]any, len(deps))
		for _, d := range deps {
			if len(d.Features) == 0 {
				manifest.Dependencies[d.Crate] = d.Version
			} else {
				manifest.Dependencies[d.Crate] = cargoDetail{Version: d.Version, Features: d.Features}
			}
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(manifest); err != nil {
		return "", fmt.Errorf("failed to render Cargo.toml: %w", err)
	}
	return buf.String(), nil
}
