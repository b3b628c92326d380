package rustgen

import (
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/hir"
)

// dunderName maps Python special methods to their conventional Rust
// spellings. Anything unlisted keeps its name, double underscores are
// legal in Rust identifiers.
func dunderName(name string) string {
	switch name {
	case "__len__":
		return "len"
	case "__str__":
		return "to_string"
	case "__repr__":
		return "fmt"
	case "__getitem__":
		return "index"
	case "__setitem__":
		return "index_mut"
	case "__contains__":
		return "contains"
	case "__iter__":
		return "iter"
	case "__next__":
		return "next"
	case "__eq__":
		return "eq"
	case "__ne__":
		return "ne"
	case "__lt__":
		return "lt"
	case "__le__":
		return "le"
	case "__gt__":
		return "gt"
	case "__ge__":
		return "ge"
	case "__add__":
		return "add"
	case "__sub__":
		return "sub"
	case "__mul__":
		return "mul"
	case "__truediv__":
		return "div"
	case "__neg__":
		return "neg"
	case "__hash__":
		return "hash"
	}
	return name
}

// classDef emits the struct declaration for cl.
func (g *generator) classDef(w *writer, cl *hir.Class) {
	if cl.Docstring != "" {
		for _, line := range strings.Split(strings.TrimSpace(cl.Docstring), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				w.Line("///")
				continue
			}
			w.Line("/// " + line)
		}
	}
	if cl.IsDataclass {
		w.Line("#[derive(Debug, Clone, PartialEq)]")
	} else {
		w.Line("#[derive(Debug, Clone)]")
	}
	if len(cl.Fields) == 0 {
		w.Linef("pub struct %s;", sanitizeIdent(cl.Name))
		return
	}
	w.Openf("pub struct %s {", sanitizeIdent(cl.Name))
	for i := range cl.Fields {
		f := &cl.Fields[i]
		w.Linef("pub %s: %s,", sanitizeIdent(f.Name), g.typeText(f.Type, cl.Annotations))
	}
	w.Close("}")
}

// classImpl emits the impl block: constants, the constructor, then
// methods in declaration order.
func (g *generator) classImpl(w *writer, cl *hir.Class) {
	w.Openf("impl %s {", sanitizeIdent(cl.Name))
	for i := range cl.Constants {
		g.classConstant(w, cl, &cl.Constants[i])
	}
	if init := cl.Constructor(); init != nil {
		g.constructor(w, init, cl)
	}
	for _, m := range cl.Methods {
		if m.Name == "__init__" {
			continue
		}
		g.function(w, m, cl)
	}
	w.Close("}")
}

func (g *generator) classConstant(w *writer, cl *hir.Class, k *hir.Constant) {
	c := g.constCtx()
	t := k.Type
	if t == nil || t.IsUnknown() {
		t = c.exprType(k.Value)
	}
	ty := g.typeText(t, cl.Annotations)
	val := c.valueText(k.Value, t)
	if isStrType(t) {
		// const position takes the borrowed form.
		ty = "&str"
		val = c.exprText(k.Value)
	}
	w.Linef("pub const %s: %s = %s;", sanitizeIdent(k.Name), ty, val)
}

// constCtx is a minimal emission context for initializers that live
// outside any function.
func (g *generator) constCtx() *fnCtx {
	fn := &hir.Function{Name: "<const>"}
	return &fnCtx{
		gen:            g,
		fn:             fn,
		analysis:       analyze.AnalyzeWith(fn, g.returns),
		declared:       make(map[string]bool),
		narrowed:       make(map[string]*hir.Type),
		strParams:      make(map[string]bool),
		borrowedParams: make(map[string]bool),
	}
}
