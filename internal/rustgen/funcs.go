package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/hir"
)

// newFnCtx builds the emission state for one function body.
func (g *generator) newFnCtx(fn *hir.Function, cl *hir.Class) *fnCtx {
	var sig *borrows.FunctionSignature
	if g.sigs != nil {
		if cl != nil {
			sig = g.sigs.Method(cl.Name, fn.Name)
		} else {
			sig = g.sigs.Function(fn.Name)
		}
	}
	c := &fnCtx{
		gen:            g,
		fn:             fn,
		class:          cl,
		sig:            sig,
		analysis:       analyze.AnalyzeWith(fn, g.returns),
		ann:            fn.Annotations,
		fallible:       g.fallibleFns[fn.Name],
		declared:       make(map[string]bool),
		narrowed:       make(map[string]*hir.Type),
		strParams:      make(map[string]bool),
		borrowedParams: make(map[string]bool),
	}
	c.retType = g.rustType(fn.Ret, c.ann)
	for i := range fn.Params {
		p := &fn.Params[i]
		kind := c.paramKind(p)
		switch kind {
		case borrows.SharedBorrow, borrows.ExclusiveBorrow:
			if p.Type != nil && p.Type.Kind == hir.TypeStr && kind == borrows.SharedBorrow {
				c.strParams[p.Name] = true
			} else if !g.rustType(p.Type, c.ann).CanCopy() {
				c.borrowedParams[p.Name] = true
			}
		}
	}
	return c
}

// paramKind resolves the ownership class of a parameter, defaulting to
// owned when the solver has nothing to say. Conditional parameters
// render as shared borrows so call sites never lose their argument.
func (c *fnCtx) paramKind(p *hir.Param) borrows.Kind {
	if c.sig == nil {
		return borrows.Owned
	}
	ps := c.sig.Param(p.Name)
	if ps == nil {
		return borrows.Owned
	}
	if ps.Kind == borrows.Conditional {
		if c.gen.rustType(p.Type, c.ann).NeedsBorrow() {
			return borrows.SharedBorrow
		}
		return borrows.Owned
	}
	return ps.Kind
}

// function emits one function or method into w.
func (g *generator) function(w *writer, fn *hir.Function, cl *hir.Class) {
	c := g.newFnCtx(fn, cl)
	c.docComment(w)
	w.Open(c.signatureText() + " {")
	c.declareWalrusNames(w, fn.Body)
	c.body(w, fn.Body)
	w.Close("}")
}

func (c *fnCtx) docComment(w *writer) {
	if c.fn.Docstring == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(c.fn.Docstring), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			w.Line("///")
			continue
		}
		w.Line("/// " + line)
	}
}

// emitName is the Rust spelling of the function's name. Dunder methods
// land on their conventional Rust names, setters gain the set_ prefix.
func (c *fnCtx) emitName() string {
	if c.class == nil {
		return sanitizeIdent(c.fn.Name)
	}
	if c.fn.Method == hir.MethodSetter {
		return "set_" + sanitizeIdent(c.fn.Name)
	}
	return sanitizeIdent(dunderName(c.fn.Name))
}

// takesSelf reports whether the method gets a self receiver. Class
// methods compile as associated functions, the same as statics.
func (c *fnCtx) takesSelf() bool {
	if c.class == nil {
		return false
	}
	switch c.fn.Method {
	case hir.MethodInstance, hir.MethodProperty, hir.MethodSetter:
		return true
	}
	return false
}

func (c *fnCtx) signatureText() string {
	var b strings.Builder
	b.WriteString("pub ")
	if c.fn.IsAsync {
		b.WriteString("async ")
	}
	b.WriteString("fn ")
	b.WriteString(c.emitName())
	b.WriteString("(")

	var parts []string
	if c.takesSelf() {
		if c.analysis.IsMutated(c.fn.Receiver) || c.mutatedViaCalls(c.fn.Receiver) ||
			c.fn.Method == hir.MethodSetter {
			parts = append(parts, "&mut self")
		} else {
			parts = append(parts, "&self")
		}
	}
	for i := range c.fn.Params {
		parts = append(parts, c.paramText(&c.fn.Params[i]))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")

	if ret := c.returnTypeText(); ret != "" {
		b.WriteString(" -> ")
		b.WriteString(ret)
	}
	return b.String()
}

func (c *fnCtx) paramText(p *hir.Param) string {
	name := sanitizeIdent(p.Name)
	if p.Variadic {
		elem := c.gen.rustType(p.Type, c.ann)
		return fmt.Sprintf("%s: Vec<%s>", name, elem.Render())
	}
	rt := c.gen.rustType(p.Type, c.ann)
	switch c.paramKind(p) {
	case borrows.SharedBorrow:
		if c.strParams[p.Name] {
			return name + ": &str"
		}
		if rt.CanCopy() {
			return fmt.Sprintf("%s: %s", name, rt.Render())
		}
		return fmt.Sprintf("%s: &%s", name, rt.Render())
	case borrows.ExclusiveBorrow:
		return fmt.Sprintf("%s: &mut %s", name, rt.Render())
	default:
		if c.analysis.IsMutated(p.Name) || c.mutatedViaCalls(p.Name) {
			return fmt.Sprintf("mut %s: %s", name, rt.Render())
		}
		return fmt.Sprintf("%s: %s", name, rt.Render())
	}
}

func (c *fnCtx) returnTypeText() string {
	inner := "()"
	if c.fn.Ret != nil && c.fn.Ret.Kind != hir.TypeNone && !c.fn.Ret.IsUnknown() {
		inner = c.retType.Render()
	}
	if c.fallible {
		return fmt.Sprintf("Result<%s, Box<dyn std::error::Error>>", inner)
	}
	if inner == "()" {
		return ""
	}
	return inner
}

// body emits the statements with the closing conventions: a trailing
// return becomes the tail expression, and fallible functions that fall
// off the end yield Ok(()).
func (c *fnCtx) body(w *writer, stmts []hir.Stmt) {
	last := len(stmts) - 1
	for i := 0; i <= last; i++ {
		s := &stmts[i]
		if i == last && s.Kind == hir.StmtReturn {
			d := s.Data.(hir.ReturnData)
			if c.tailReturn(w, d) {
				return
			}
		}
		if i < last && c.fuseIfLet(w, s, &stmts[i+1]) {
			i++
			continue
		}
		c.stmt(w, s)
	}
	if c.fallible && !endsControl(stmts) {
		w.Line("Ok(())")
	}
}

// tailReturn writes the final return as an expression when possible.
func (c *fnCtx) tailReturn(w *writer, d hir.ReturnData) bool {
	if d.Value == nil {
		if c.fallible {
			w.Line("Ok(())")
			return true
		}
		// A bare trailing return adds nothing.
		return true
	}
	if d.Value.IsNoneLiteral() && !c.returnsOptional() {
		if c.fallible {
			w.Line("Ok(())")
		}
		return true
	}
	text := c.valueText(d.Value, c.fn.Ret)
	if c.fallible {
		w.Linef("Ok(%s)", text)
		return true
	}
	w.Line(text)
	return true
}

// endsControl reports whether the emitted form of the block leaves the
// function on every path, so nothing after it is reachable.
func endsControl(stmts []hir.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	last := &stmts[len(stmts)-1]
	switch last.Kind {
	case hir.StmtReturn, hir.StmtRaise:
		return true
	case hir.StmtIf:
		d := last.Data.(hir.IfData)
		return len(d.Else) > 0 && endsControl(d.Then) && endsControl(d.Else)
	case hir.StmtTry:
		d := last.Data.(hir.TryData)
		if len(d.Finally) > 0 && endsControl(d.Finally) {
			return true
		}
		if !endsControl(d.Body) {
			return false
		}
		for _, h := range d.Handlers {
			if !endsControl(h.Body) {
				return false
			}
		}
		return true
	}
	return false
}

// constructor emits __init__ as an associated new returning Self.
func (g *generator) constructor(w *writer, fn *hir.Function, cl *hir.Class) {
	c := g.newFnCtx(fn, cl)
	c.docComment(w)

	var parts []string
	for i := range fn.Params {
		parts = append(parts, c.paramText(&fn.Params[i]))
	}
	ret := "Self"
	if c.fallible {
		ret = "Result<Self, Box<dyn std::error::Error>>"
	}
	w.Openf("pub fn new(%s) -> %s {", strings.Join(parts, ", "), ret)
	c.declareWalrusNames(w, fn.Body)

	fields := c.initFieldValues(fn.Body)
	for i := range fn.Body {
		s := &fn.Body[i]
		if isSelfFieldAssign(s) != "" {
			continue
		}
		c.stmt(w, s)
	}
	self := "Self {"
	if c.fallible {
		self = "Ok(Self {"
	}
	w.Open(self)
	for _, f := range cl.Fields {
		if v, ok := fields[f.Name]; ok {
			w.Linef("%s: %s,", sanitizeIdent(f.Name), v)
			continue
		}
		if f.Default != nil {
			w.Linef("%s: %s,", sanitizeIdent(f.Name), c.valueText(f.Default, f.Type))
			continue
		}
		w.Linef("%s: Default::default(),", sanitizeIdent(f.Name))
	}
	if c.fallible {
		w.Close("})")
	} else {
		w.Close("}")
	}
	w.Close("}")
}

// initFieldValues reads the field initializers out of __init__'s
// self.x = ... statements.
func (c *fnCtx) initFieldValues(body []hir.Stmt) map[string]string {
	fields := make(map[string]string)
	for i := range body {
		s := &body[i]
		name := isSelfFieldAssign(s)
		if name == "" {
			continue
		}
		d := s.Data.(hir.AssignData)
		var want *hir.Type
		if c.class != nil {
			for fi := range c.class.Fields {
				if c.class.Fields[fi].Name == name {
					want = c.class.Fields[fi].Type
				}
			}
		}
		fields[name] = c.valueText(d.Value, want)
	}
	return fields
}

// isSelfFieldAssign reports the field name when s is `self.<field> = v`
// at the top level of a constructor.
func isSelfFieldAssign(s *hir.Stmt) string {
	d, ok := s.Data.(hir.AssignData)
	if !ok || d.Target.Kind != hir.TargetAttribute {
		return ""
	}
	if root, ok := d.Target.RootVar(); !ok || root != "self" {
		return ""
	}
	if _, ok := d.Target.Base.Data.(hir.VarData); !ok {
		return ""
	}
	return d.Target.Attr
}
