// Package modmap resolves Python imports to Rust crate paths. A static
// table covers the supported stdlib and ecosystem modules; a project TOML
// file can extend or override it. Unknown modules degrade to placeholder
// comments so the rest of the module still emits.
package modmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
)

// Constructor describes how a mapped type is instantiated in Rust.
type Constructor struct {
	Pattern ConstructorPattern
	// Method is set for ConstructMethod, e.g. "new" for Regex::new.
	Method string
}

type ConstructorPattern uint8

const (
	// ConstructNew emits Type::new(args).
	ConstructNew ConstructorPattern = iota
	// ConstructFunction emits a plain function call.
	ConstructFunction
	// ConstructMethod emits Type::<method>(args).
	ConstructMethod
)

func (p ConstructorPattern) String() string {
	switch p {
	case ConstructNew:
		return "new"
	case ConstructFunction:
		return "function"
	case ConstructMethod:
		return "method"
	default:
		return "?"
	}
}

// Mapping is one source-module entry of the resolution table.
type Mapping struct {
	// RustPath is the crate or module path; empty means the module needs no
	// use statement at all (typing, unittest, contextlib).
	RustPath string
	// External marks crates that must land in Cargo.toml.
	External bool
	// Version is the crate requirement for external mappings.
	Version string
	// Items maps Python item names to their Rust spelling. An empty value
	// means the item is dispatched inline and needs no import.
	Items map[string]string
	// Constructors records instantiation patterns for items that are types.
	Constructors map[string]Constructor
}

// RustImport is one resolved use statement.
type RustImport struct {
	Path     string
	Alias    string
	External bool
	// Module is the originating Python module, kept for deduplication.
	Module string
	// Placeholder marks a comment line standing in for an unmapped module.
	// The emitter drops it when a real import for the same module exists.
	Placeholder bool
}

// Dependency is an external crate requirement destined for Cargo.toml.
type Dependency struct {
	Crate    string
	Version  string
	Features []string
}

// Mapper resolves imports against the table.
type Mapper struct {
	modules map[string]Mapping
	nasa    bool
}

// New builds a mapper with the default table.
func New() *Mapper {
	return &Mapper{modules: defaultTable()}
}

// SetNasaMode restricts resolution to non-external mappings. External
// modules resolve to placeholders and report a diagnostic.
func (m *Mapper) SetNasaMode(on bool) { m.nasa = on }

// Lookup returns the mapping for a module name.
func (m *Mapper) Lookup(module string) (Mapping, bool) {
	mp, ok := m.modules[module]
	return mp, ok
}

// ConstructorFor returns the instantiation pattern registered for a Rust
// item name, searching every module entry.
func (m *Mapper) ConstructorFor(item string) (Constructor, bool) {
	for _, mapping := range m.modules {
		if c, ok := mapping.Constructors[item]; ok {
			return c, true
		}
	}
	return Constructor{}, false
}

// inlineModules are whole-module imports whose member calls are dispatched
// inline by codegen; their aliases must not surface as use statements.
var inlineModules = map[string]bool{
	"os":      true,
	"os.path": true,
	"sys":     true,
}

// crateDispatched are whole-module imports whose member calls codegen
// rewrites to full crate paths. The use statement keeps the crate
// visible but an alias would bind an unused name.
var crateDispatched = map[string]bool{
	"json":     true,
	"re":       true,
	"random":   true,
	"datetime": true,
	"hashlib":  true,
	"base64":   true,
	"csv":      true,
}

// MapImport resolves one import to zero or more use statements.
func (m *Mapper) MapImport(imp hir.Import, reporter diag.Reporter) []RustImport {
	if imp.Level > 0 {
		diag.ReportWarning(reporter, diag.MapRelativeImport, imp.Span,
			"relative import cannot be mapped to a crate path").Emit()
		return []RustImport{placeholder(imp.Module)}
	}
	if imp.Wildcard {
		diag.ReportWarning(reporter, diag.MapWildcardImport, imp.Span,
			fmt.Sprintf("wildcard import from %s cannot be mapped", imp.Module)).Emit()
		return []RustImport{placeholder(imp.Module)}
	}

	mapping, ok := m.modules[imp.Module]
	if !ok {
		diag.ReportWarning(reporter, diag.MapUnresolvedImport, imp.Span,
			fmt.Sprintf("no Rust mapping for module %q", imp.Module)).Emit()
		return []RustImport{placeholder(imp.Module)}
	}
	if m.nasa && mapping.External {
		diag.ReportWarning(reporter, diag.MapNasaSuppressed, imp.Span,
			fmt.Sprintf("external crate %s suppressed in NASA mode", mapping.RustPath)).Emit()
		return []RustImport{placeholder(imp.Module)}
	}

	// Modules without a Rust path are absorbed elsewhere: typing by the
	// type mapper, unittest by test attributes, contextlib by RAII.
	if mapping.RustPath == "" {
		return nil
	}
	if !imp.IsFrom {
		return m.mapWholeModule(imp, mapping)
	}
	return m.mapItems(imp, mapping, reporter)
}

func (m *Mapper) mapWholeModule(imp hir.Import, mapping Mapping) []RustImport {
	if inlineModules[imp.Module] {
		return nil
	}
	// argparse pulls the derive trait rather than a module alias.
	if imp.Module == "argparse" {
		return []RustImport{{
			Path:     mapping.RustPath + "::Parser",
			External: mapping.External,
			Module:   imp.Module,
		}}
	}
	alias := imp.Alias
	if alias == "" {
		alias = imp.Module
	}
	if crateDispatched[imp.Module] {
		alias = ""
	}
	return []RustImport{{
		Path:     mapping.RustPath,
		Alias:    alias,
		External: mapping.External,
		Module:   imp.Module,
	}}
}

func (m *Mapper) mapItems(imp hir.Import, mapping Mapping, reporter diag.Reporter) []RustImport {
	var out []RustImport
	for _, item := range imp.Items {
		target, known := mapping.Items[item.Name]
		if !known {
			diag.ReportInfo(reporter, diag.MapUnknownItem, imp.Span,
				fmt.Sprintf("item %s.%s mapped by name", imp.Module, item.Name)).Emit()
			target = item.Name
		}
		target = strings.TrimSuffix(target, "!")
		if target == "" || !isPathIdent(target) {
			// Dispatched inline (inline flags, macros handled by codegen).
			continue
		}
		full := target
		if !strings.HasPrefix(target, "std::") && !strings.HasPrefix(target, mapping.RustPath+"::") {
			full = mapping.RustPath + "::" + target
		}
		path := truncToType(full)
		alias := item.Alias
		if path != full {
			// The use statement names the type, not the method the Python
			// item mapped to; an alias would rename the wrong symbol.
			alias = ""
		}
		out = append(out, RustImport{
			Path:     path,
			Alias:    alias,
			External: mapping.External,
			Module:   imp.Module,
		})
	}
	return out
}

// isPathIdent reports whether s is a plain Rust path, letters, digits,
// underscores and :: separators only.
func isPathIdent(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
		default:
			return false
		}
	}
	return len(s) > 0
}

// truncToType cuts a method path at its type segment: std::path::Path::join
// imports std::path::Path. Paths without a type segment pass through.
func truncToType(path string) string {
	segs := strings.Split(path, "::")
	for i, seg := range segs {
		if seg == "" {
			continue
		}
		c := seg[0]
		if c >= 'A' && c <= 'Z' && i < len(segs)-1 {
			// Keep enum variant paths like log::Level::Debug intact.
			next := segs[i+1]
			if next != "" && next[0] >= 'A' && next[0] <= 'Z' {
				continue
			}
			return strings.Join(segs[:i+1], "::")
		}
	}
	return path
}

// Dependencies extracts the deduplicated external crate requirements for a
// set of imports. NASA mode yields none.
func (m *Mapper) Dependencies(imports []hir.Import) []Dependency {
	if m.nasa {
		return nil
	}
	seen := make(map[string]bool)
	var deps []Dependency
	for _, imp := range imports {
		mapping, ok := m.modules[imp.Module]
		if !ok || !mapping.External || mapping.Version == "" {
			continue
		}
		// numpy.linalg maps to trueno::linalg; the crate is still trueno.
		crate, _, _ := strings.Cut(mapping.RustPath, "::")
		if seen[crate] {
			continue
		}
		seen[crate] = true
		deps = append(deps, Dependency{Crate: crate, Version: mapping.Version, Features: crateFeatures[crate]})
	}
	deps = appendCompanions(deps)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Crate < deps[j].Crate })
	return deps
}

func placeholder(module string) RustImport {
	return RustImport{
		Path:        fmt.Sprintf("// unmapped Python module: %s", module),
		Module:      module,
		Placeholder: true,
	}
}
