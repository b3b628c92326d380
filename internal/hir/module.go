// Package hir defines the high-level intermediate representation bridging
// the Python syntax tree and Rust code generation, plus the lowering pass
// that builds it.
package hir

import "github.com/paiml/depyler/internal/source"

// ImportItem is one imported name with its optional alias.
type ImportItem struct {
	Name  string
	Alias string
}

// Import is one import statement, either whole-module or from-import.
type Import struct {
	// Module is the dotted source module path, empty for bare relative
	// imports.
	Module string
	// Items lists imported names for from-imports; empty for whole-module
	// imports unless aliased (then one item with the alias).
	Items []ImportItem
	// Alias renames a whole-module import.
	Alias  string
	IsFrom bool
	// Level counts leading dots of a relative import.
	Level    int
	Wildcard bool
	Span     source.Span
}

// TypeAlias is a module-level `Name = type-expression` binding.
type TypeAlias struct {
	Name string
	Type *Type
	Span source.Span
}

// Module is the HIR of one Python source file.
type Module struct {
	// Name is the module name derived from the file stem.
	Name      string
	File      source.FileID
	Docstring string
	Imports   []Import
	Functions []*Function
	Classes   []*Class
	Aliases   []TypeAlias
	// TopLevel holds module-level constant assignments surviving outside
	// any definition.
	TopLevel []Stmt
}

// Function looks a module-level function up by name.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Class looks a class up by name.
func (m *Module) Class(name string) *Class {
	for _, c := range m.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AllFunctions yields module functions followed by every method, the order
// used for interprocedural passes.
func (m *Module) AllFunctions() []*Function {
	out := make([]*Function, 0, len(m.Functions))
	out = append(out, m.Functions...)
	for _, c := range m.Classes {
		out = append(out, c.Methods...)
	}
	return out
}
