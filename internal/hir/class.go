package hir

import (
	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/source"
)

// Field is one struct field, discovered from constructor self-assignments
// or dataclass-style class-level annotations.
type Field struct {
	Name    string
	Type    *Type
	Default *Expr // nil when required at construction
	Span    source.Span
}

// Constant is a class-level name bound to a constant expression.
type Constant struct {
	Name  string
	Type  *Type
	Value *Expr
	Span  source.Span
}

// Class is the HIR of one class definition.
type Class struct {
	Name        string
	Bases       []string
	Fields      []Field
	Methods     []*Function
	Constants   []Constant
	Docstring   string
	Annotations annotations.Set
	IsDataclass bool
	Span        source.Span
}

// Constructor returns the lowered __init__ method, if present.
func (c *Class) Constructor() *Function {
	return c.Method("__init__")
}

// Method looks a method up by source name.
func (c *Class) Method(name string) *Function {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// FieldByName looks a field up by name.
func (c *Class) FieldByName(name string) *Field {
	for i := range c.Fields {
		if c.Fields[i].Name == name {
			return &c.Fields[i]
		}
	}
	return nil
}
