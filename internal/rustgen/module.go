package rustgen

import (
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/modmap"
)

// file renders the module in the fixed section order. Bodies are
// emitted first into side buffers because they discover the std
// imports and union enums the prologue has to declare.
func (g *generator) file() string {
	g.computeFallible()

	aliases := newWriter()
	for _, al := range g.mod.Aliases {
		aliases.Linef("pub type %s = %s;", sanitizeIdent(al.Name), g.typeText(al.Type, annotations.Set{}))
	}

	consts := newWriter()
	var mainStmts []hir.Stmt
	for i := range g.mod.TopLevel {
		s := &g.mod.TopLevel[i]
		if body, ok := mainGuardBody(s); ok {
			mainStmts = append(mainStmts, body...)
			continue
		}
		if g.moduleConstant(consts, s) {
			continue
		}
		mainStmts = append(mainStmts, *s)
	}

	structs := newWriter()
	impls := newWriter()
	for _, cl := range g.mod.Classes {
		structs.Blank()
		g.classDef(structs, cl)
		impls.Blank()
		g.classImpl(impls, cl)
	}

	fns := newWriter()
	for _, fn := range g.mod.Functions {
		fns.Blank()
		g.function(fns, fn, nil)
	}

	main := newWriter()
	if len(mainStmts) > 0 {
		g.emitMain(main, mainStmts)
	}

	tests := newWriter()
	if g.emitTests {
		g.doctestModule(tests)
	}

	out := newWriter()
	g.prologue(out)
	for _, section := range []*writer{aliases, consts} {
		if len(section.buf) > 0 {
			out.Blank()
			out.WriteString(section.String())
		}
	}
	g.unionEnums(out)
	for _, section := range []*writer{structs, impls, fns, main, tests} {
		if len(section.buf) > 0 {
			out.Blank()
			out.WriteString(section.String())
		}
	}
	return out.String()
}

// computeFallible decides, before any body renders, which functions get
// a Result signature. The solver's flag already includes transitive
// fallibility; without a solver the per-function facts stand alone. An
// explicit result_type directive forces the fallible shape either way.
func (g *generator) computeFallible() {
	mark := func(fn *hir.Function, class string) {
		fallible := fn.Annotations.ErrorStrategy == annotations.ErrorResultType
		if !fallible {
			var s *borrows.FunctionSignature
			if g.sigs != nil {
				if class != "" {
					s = g.sigs.Method(class, fn.Name)
				} else {
					s = g.sigs.Function(fn.Name)
				}
			}
			if s != nil {
				fallible = s.Fallible
			} else {
				fallible = analyze.AnalyzeWith(fn, g.returns).CanFail()
			}
		}
		if fallible {
			g.fallibleFns[fn.Name] = true
		}
	}
	for _, fn := range g.mod.Functions {
		mark(fn, "")
	}
	for _, cl := range g.mod.Classes {
		for _, m := range cl.Methods {
			mark(m, cl.Name)
		}
	}
}

// mainGuardBody unwraps `if __name__ == "__main__":`.
func mainGuardBody(s *hir.Stmt) ([]hir.Stmt, bool) {
	d, ok := s.Data.(hir.IfData)
	if !ok || len(d.Else) > 0 {
		return nil, false
	}
	bin, ok := d.Cond.Data.(hir.BinaryData)
	if !ok || bin.Op != hir.OpEq {
		return nil, false
	}
	v, ok := bin.Left.Data.(hir.VarData)
	if !ok || v.Name != "__name__" {
		return nil, false
	}
	lit, ok := bin.Right.Data.(hir.LiteralData)
	if !ok || lit.Kind != hir.LitStr || lit.Str != "__main__" {
		return nil, false
	}
	return d.Then, true
}

// moduleConstant emits a top-level assignment as a const or a lazy
// static and reports whether it consumed the statement.
func (g *generator) moduleConstant(w *writer, s *hir.Stmt) bool {
	d, ok := s.Data.(hir.AssignData)
	if !ok || d.Target.Kind != hir.TargetSymbol {
		return false
	}
	c := g.constCtx()
	t := d.Declared
	if t == nil || t.IsUnknown() {
		t = c.exprType(d.Value)
	}
	name := sanitizeIdent(d.Target.Name)
	if lit, isLit := d.Value.Data.(hir.LiteralData); isLit {
		if lit.Kind == hir.LitStr {
			w.Linef("pub const %s: &str = %s;", name, rustQuote(lit.Str))
			return true
		}
		w.Linef("pub const %s: %s = %s;", name, g.typeText(t, annotations.Set{}), c.valueText(d.Value, t))
		return true
	}
	// Anything needing running code initializes on first touch.
	g.need(needLazyLock)
	w.Linef("pub static %s: LazyLock<%s> = LazyLock::new(|| %s);",
		name, g.typeText(t, annotations.Set{}), c.valueText(d.Value, t))
	return true
}

// emitMain wraps the __main__ guard body (and any loose top-level
// statements) in fn main, fallible when anything inside can fail.
func (g *generator) emitMain(w *writer, body []hir.Stmt) {
	fn := &hir.Function{Name: "main", Body: body}
	a := analyze.AnalyzeWith(fn, g.returns)
	fallible := a.CanFail()
	if !fallible {
		hir.WalkStmts(body, func(st *hir.Stmt) {
			hir.StmtExprs(st, func(e *hir.Expr) {
				switch d := e.Data.(type) {
				case hir.CallData:
					if g.fallibleFns[d.Func] {
						fallible = true
					}
				case hir.MethodCallData:
					if g.fallibleFns[d.Method] {
						fallible = true
					}
				}
			})
		})
	}
	g.fallibleFns["main"] = fallible
	g.function(w, fn, nil)
}

// unionEnums declares the synthesized sum types in first-use order.
func (g *generator) unionEnums(w *writer) {
	for _, name := range g.unionOrder {
		u := g.unions[name]
		w.Blank()
		w.Line("#[derive(Debug, Clone, PartialEq)]")
		w.Openf("pub enum %s {", u.name)
		for _, v := range u.variants {
			if v.Type == nil {
				w.Linef("%s,", v.Name)
				continue
			}
			w.Linef("%s(%s),", v.Name, v.Type.Render())
		}
		w.Close("}")
	}
}

// prologue writes the lint caps and the deduplicated use block:
// external crate uses first, std and trait uses after, unresolved
// module placeholders last. A placeholder drops out as soon as any real
// use for the same Python module exists.
func (g *generator) prologue(w *writer) {
	if g.mod.Docstring != "" {
		for _, line := range strings.Split(strings.TrimSpace(g.mod.Docstring), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				w.Line("//!")
				continue
			}
			w.Line("//! " + line)
		}
	}
	w.Line("#![allow(unused_imports)]")
	w.Line("#![allow(unused_mut)]")
	w.Line("#![allow(unused_variables)]")
	w.Line("#![allow(unreachable_patterns)]")
	w.Line("#![allow(unused_assignments)]")
	w.Line("#![allow(dead_code)]")

	var resolved []modmap.RustImport
	covered := make(map[string]bool)
	for _, imp := range g.mod.Imports {
		for _, ri := range g.modules.MapImport(imp, g.reporter) {
			resolved = append(resolved, ri)
			if !ri.Placeholder {
				covered[ri.Module] = true
			}
		}
	}

	var external, std, placeholders []string
	seen := make(map[string]bool)
	add := func(list *[]string, line string) {
		if !seen[line] {
			seen[line] = true
			*list = append(*list, line)
		}
	}
	for _, ri := range resolved {
		if ri.Placeholder {
			if !covered[ri.Module] {
				add(&placeholders, ri.Path)
			}
			continue
		}
		line := "use " + ri.Path + ";"
		if ri.Alias != "" && ri.Alias != lastSegment(ri.Path) {
			line = "use " + ri.Path + " as " + sanitizeIdent(ri.Alias) + ";"
		}
		if ri.External {
			add(&external, line)
		} else {
			add(&std, line)
		}
	}
	for n := need(0); n < needCount; n++ {
		if !g.needs[n] {
			continue
		}
		if n.external() {
			add(&external, needUse[n])
		} else {
			add(&std, needUse[n])
		}
	}
	for _, line := range external {
		w.Line(line)
	}
	for _, line := range std {
		w.Line(line)
	}
	for _, line := range placeholders {
		w.Line(line)
	}
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}
