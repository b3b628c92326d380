package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/hir"
)

func (c *fnCtx) stmts(w *writer, body []hir.Stmt) {
	for i := 0; i < len(body); i++ {
		if i+1 < len(body) && c.fuseIfLet(w, &body[i], &body[i+1]) {
			i++
			continue
		}
		c.stmt(w, &body[i])
	}
}

// fuseIfLet folds an Option-producing assignment immediately tested by
// an if into a single if-let, so the branch works with the payload
// instead of poking methods through the wrapper. The fold is only legal
// when the binding cannot be observed outside the statement.
func (c *fnCtx) fuseIfLet(w *writer, s, next *hir.Stmt) bool {
	ad, ok := s.Data.(hir.AssignData)
	if !ok || ad.Target.Kind != hir.TargetSymbol || ad.Value == nil {
		return false
	}
	name := ad.Target.Name
	if c.declared[name] {
		return false
	}
	ifd, ok := next.Data.(hir.IfData)
	if !ok {
		return false
	}
	if cv, ok := condVarName(ifd.Cond); !ok || cv != name {
		return false
	}
	if !c.bindingLocal(next, name, ifd) {
		return false
	}
	scrutinee, elem, ok := c.optionScrutinee(ad.Value)
	if !ok {
		return false
	}
	c.hoistsFor(w, next)
	c.ifLet(w, name, scrutinee, elem, ifd)
	return true
}

// optionScrutinee renders an Option-producing expression for an if-let,
// preferring the raw match handle for regex searches so the branch can
// read capture text without an intermediate String.
func (c *fnCtx) optionScrutinee(e *hir.Expr) (string, *hir.Type, bool) {
	if text, ok := c.rawSearchText(e); ok {
		return text, hir.Custom(regexMatchType), true
	}
	t := c.exprType(e)
	if t == nil || t.Kind != hir.TypeOptional {
		return "", nil, false
	}
	return c.exprText(e), t.Elem(), true
}

// bindingLocal reports whether narrowing name inside the if statement
// stays unobservable: the value is dead afterwards, never escapes into
// a closure, is not reassigned in the branch, and the else arm does not
// touch the moved wrapper.
func (c *fnCtx) bindingLocal(s *hir.Stmt, name string, d hir.IfData) bool {
	if c.analysis.Escapes[name] != analyze.EscapeNone {
		return false
	}
	if lu, ok := c.analysis.LastUse[name]; ok && lu.End > s.Span.End {
		return false
	}
	return !reassignsVar(d.Then, name) && !mentionsVar(d.Else, name)
}

func (c *fnCtx) ifLet(w *writer, name, scrutinee string, elem *hir.Type, d hir.IfData) {
	bind := sanitizeIdent(name)
	if c.analysis.IsMutated(name) || c.analysis.IsDeepMutated(name) {
		bind = "mut " + bind
	}
	w.Openf("if let Some(%s) = %s {", bind, scrutinee)
	prev, had := c.narrowed[name]
	c.narrowed[name] = elem
	c.stmts(w, d.Then)
	if had {
		c.narrowed[name] = prev
	} else {
		delete(c.narrowed, name)
	}
	c.closeElse(w, d.Else)
}

func reassignsVar(body []hir.Stmt, name string) bool {
	found := false
	hir.WalkStmts(body, func(s *hir.Stmt) {
		d, ok := s.Data.(hir.AssignData)
		if !ok {
			return
		}
		for _, n := range d.Target.BoundNames() {
			if n == name {
				found = true
			}
		}
	})
	return found
}

func mentionsVar(body []hir.Stmt, name string) bool {
	found := false
	hir.WalkStmts(body, func(s *hir.Stmt) {
		hir.StmtExprs(s, func(e *hir.Expr) {
			if v, ok := e.Data.(hir.VarData); ok && v.Name == name {
				found = true
			}
		})
	})
	return found
}

func (c *fnCtx) stmt(w *writer, s *hir.Stmt) {
	switch d := s.Data.(type) {
	case hir.AssignData:
		c.assignStmt(w, s, d)
	case hir.AugAssignData:
		c.augAssignStmt(w, d)
	case hir.ExprStmtData:
		c.exprStmt(w, d)
	case hir.ReturnData:
		c.returnStmt(w, d)
	case hir.IfData:
		c.hoistsFor(w, s)
		c.ifStmt(w, s, d)
	case hir.WhileData:
		c.hoistsFor(w, s)
		if isTrueLiteral(d.Cond) {
			w.Open("loop {")
		} else {
			w.Openf("while %s {", c.condText(d.Cond))
		}
		c.stmts(w, d.Body)
		w.Close("}")
	case hir.ForData:
		c.hoistsFor(w, s)
		c.forStmt(w, d)
	case hir.RaiseData:
		c.raiseStmt(w, s, d)
	case hir.TryData:
		c.tryStmt(w, s, d)
	case hir.WithData:
		c.withStmt(w, d)
	case hir.AssertData:
		if d.Msg != nil {
			if lit, ok := d.Msg.Data.(hir.LiteralData); ok && lit.Kind == hir.LitStr {
				w.Linef("assert!(%s, %s);", c.condText(d.Test), rustQuote(lit.Str))
				return
			}
			w.Linef("assert!(%s, \"{}\", %s);", c.condText(d.Test), c.exprText(d.Msg))
			return
		}
		w.Linef("assert!(%s);", c.condText(d.Test))
	default:
		switch s.Kind {
		case hir.StmtBreak:
			w.Line("break;")
		case hir.StmtContinue:
			w.Line("continue;")
		case hir.StmtPass:
			// Nothing to emit.
		default:
			c.gen.internal(s.Span, "statement %s has no payload", s.Kind)
		}
	}
}

// hoistsFor declares variables that are first assigned inside the
// statement's branches but used after the join. The declaration happens
// exactly once, before the branching statement.
func (c *fnCtx) hoistsFor(w *writer, s *hir.Stmt) {
	for _, h := range c.analysis.Hoists {
		if h.Span != s.Span || c.declared[h.Name] {
			continue
		}
		name := sanitizeIdent(h.Name)
		if h.Type != nil && !h.Type.IsUnknown() {
			w.Linef("let mut %s: %s = Default::default();", name, c.typeText(h.Type))
		} else {
			// Both arms assign, so inference picks the type up.
			w.Linef("let mut %s;", name)
		}
		c.declared[h.Name] = true
	}
}

func (c *fnCtx) assignStmt(w *writer, s *hir.Stmt, d hir.AssignData) {
	switch d.Target.Kind {
	case hir.TargetSymbol:
		c.symbolAssign(w, d)
	case hir.TargetIndex:
		c.indexAssign(w, d.Target, d.Value)
	case hir.TargetAttribute:
		c.attrAssign(w, d)
	case hir.TargetTuple:
		c.tupleAssign(w, d)
	default:
		c.gen.internal(s.Span, "assignment to unsupported target")
	}
}

func (c *fnCtx) symbolAssign(w *writer, d hir.AssignData) {
	name := d.Target.Name
	text := sanitizeIdent(name)
	want := d.Declared
	if want == nil {
		want = c.varType(name)
	}
	if c.declared[name] || c.isParam(name) {
		w.Linef("%s = %s;", text, c.valueText(d.Value, want))
		return
	}
	c.declared[name] = true
	mut := ""
	if c.analysis.IsMutated(name) || c.mutatedViaCalls(name) {
		mut = "mut "
	}
	if ann := c.declAnnotation(d); ann != "" {
		w.Linef("let %s%s: %s = %s;", mut, text, ann, c.valueText(d.Value, want))
		return
	}
	w.Linef("let %s%s = %s;", mut, text, c.valueText(d.Value, want))
}

func (c *fnCtx) isParam(name string) bool {
	for i := range c.fn.Params {
		if c.fn.Params[i].Name == name {
			return true
		}
	}
	return name == c.fn.Receiver
}

// declAnnotation decides whether a let binding needs an explicit type.
// Source annotations always carry over; empty collection literals need
// one for inference to land.
func (c *fnCtx) declAnnotation(d hir.AssignData) string {
	if d.Declared != nil && !d.Declared.IsUnknown() {
		return c.typeText(d.Declared)
	}
	if !isEmptyCollection(d.Value) {
		return ""
	}
	t := c.varType(d.Target.Name)
	if t.IsUnknown() {
		return ""
	}
	if elem := t.Elem(); elem != nil && elem.IsUnknown() {
		return ""
	}
	return c.typeText(t)
}

func isEmptyCollection(e *hir.Expr) bool {
	switch v := e.Data.(type) {
	case hir.ListData:
		return len(v.Elems) == 0
	case hir.SetData:
		return len(v.Elems) == 0
	case hir.DictData:
		return len(v.Keys) == 0
	}
	return false
}

// indexAssign writes through a subscript: maps insert, sequences index.
func (c *fnCtx) indexAssign(w *writer, t hir.Target, value *hir.Expr) {
	bt := c.exprType(t.Base)
	base := c.postfixText(t.Base)
	if isDictType(bt) || (bt.IsUnknown() && c.strShaped(t.Index)) {
		var want *hir.Type
		var keyWant *hir.Type
		if isDictType(bt) {
			keyWant, want = bt.Key(), bt.Value()
		}
		w.Linef("%s.insert(%s, %s);", base, c.valueText(t.Index, keyWant), c.valueText(value, want))
		return
	}
	if nested, ok := t.Base.Data.(hir.IndexData); ok && isDictType(c.exprType(nested.Base)) {
		w.Linef("%s.get_mut(%s).map(|inner| inner[(%s) as usize] = %s);",
			c.postfixText(nested.Base), c.lookupKeyText(nested.Index),
			c.exprText(t.Index), c.exprText(value))
		return
	}
	var want *hir.Type
	if bt.Kind == hir.TypeList {
		want = bt.Elem()
	}
	w.Linef("%s[(%s) as usize] = %s;", base, c.exprText(t.Index), c.valueText(value, want))
}

// tupleAssign destructures. Fresh names bind in one let; assignments to
// existing names go through a temporary so swaps work.
func (c *fnCtx) tupleAssign(w *writer, d hir.AssignData) {
	fresh := true
	for _, el := range d.Target.Elems {
		if el.Kind != hir.TargetSymbol || c.declared[el.Name] || c.isParam(el.Name) {
			fresh = false
			break
		}
	}
	if fresh {
		pats := make([]string, len(d.Target.Elems))
		for i, el := range d.Target.Elems {
			c.declared[el.Name] = true
			pats[i] = sanitizeIdent(el.Name)
			if c.analysis.IsMutated(el.Name) || c.mutatedViaCalls(el.Name) {
				pats[i] = "mut " + pats[i]
			}
		}
		w.Linef("let (%s) = %s;", strings.Join(pats, ", "), c.exprText(d.Value))
		return
	}
	w.Open("{")
	w.Linef("let tmp = %s;", c.exprText(d.Value))
	for i, el := range d.Target.Elems {
		switch el.Kind {
		case hir.TargetSymbol:
			if !c.declared[el.Name] && !c.isParam(el.Name) {
				c.declared[el.Name] = true
				w.Linef("let mut %s = tmp.%d;", sanitizeIdent(el.Name), i)
			} else {
				w.Linef("%s = tmp.%d;", sanitizeIdent(el.Name), i)
			}
		case hir.TargetIndex:
			w.Linef("%s[(%s) as usize] = tmp.%d;", c.postfixText(el.Base), c.exprText(el.Index), i)
		case hir.TargetAttribute:
			w.Linef("%s.%s = tmp.%d;", c.postfixText(el.Base), sanitizeIdent(el.Attr), i)
		}
	}
	w.Close("}")
}

// attrAssign writes `base.attr = v`, going through the generated setter
// when attr is a property on the receiver's class.
func (c *fnCtx) attrAssign(w *writer, d hir.AssignData) {
	if bt := c.exprType(d.Target.Base); bt != nil && bt.Kind == hir.TypeCustom {
		if cl, ok := c.gen.classes[bt.Name]; ok {
			if m := cl.Method(d.Target.Attr); m != nil && m.Method == hir.MethodSetter {
				var want *hir.Type
				if len(m.Params) > 0 {
					want = m.Params[0].Type
				}
				w.Linef("%s.set_%s(%s);", c.postfixText(d.Target.Base),
					sanitizeIdent(d.Target.Attr), c.valueText(d.Value, want))
				return
			}
		}
	}
	w.Linef("%s.%s = %s;", c.postfixText(d.Target.Base), sanitizeIdent(d.Target.Attr),
		c.valueText(d.Value, c.attrTargetType(d.Target)))
}

func (c *fnCtx) attrTargetType(t hir.Target) *hir.Type {
	bt := c.exprType(t.Base)
	if bt.Kind != hir.TypeCustom {
		return hir.Unknown
	}
	cl, ok := c.gen.classes[bt.Name]
	if !ok {
		return hir.Unknown
	}
	for i := range cl.Fields {
		if cl.Fields[i].Name == t.Attr {
			return cl.Fields[i].Type
		}
	}
	return hir.Unknown
}

func (c *fnCtx) augAssignStmt(w *writer, d hir.AugAssignData) {
	target := c.augTargetText(d.Target)
	tt := c.augTargetType(d.Target)

	// String and list growth map to their push forms.
	if d.Op == hir.OpAdd && isStrType(tt) {
		if isStrLit(d.Value) || c.isBorrowedStr(d.Value) {
			w.Linef("%s.push_str(%s);", target, c.exprText(d.Value))
		} else {
			w.Linef("%s.push_str(&%s);", target, c.postfixText(d.Value))
		}
		return
	}
	if d.Op == hir.OpAdd && isListType(tt) {
		w.Linef("%s.extend(%s);", target, c.iterArgChain(d.Value))
		return
	}

	var tok string
	switch d.Op {
	case hir.OpAdd:
		tok = "+="
	case hir.OpSub:
		tok = "-="
	case hir.OpMul:
		tok = "*="
	case hir.OpDiv:
		if tt.Kind == hir.TypeFloat {
			tok = "/="
		}
	case hir.OpBitAnd:
		tok = "&="
	case hir.OpBitOr:
		tok = "|="
	case hir.OpBitXor:
		tok = "^="
	case hir.OpLShift:
		tok = "<<="
	case hir.OpRShift:
		tok = ">>="
	}
	if tok != "" {
		w.Linef("%s %s %s;", target, tok, c.floatAdjust(d.Value, tt))
		return
	}

	// Floor division, modulo and the rest expand through the full
	// binary emission so their sign rules hold.
	lhs := &hir.Expr{Kind: hir.ExprVar, Data: hir.VarData{Name: d.Target.Name}}
	if d.Target.Kind != hir.TargetSymbol {
		lhs = c.augTargetExpr(d.Target)
	}
	w.Linef("%s = %s;", target, c.binaryText(lhs, hir.BinaryData{Op: d.Op, Left: lhs, Right: d.Value}))
}

func (c *fnCtx) augTargetText(t hir.Target) string {
	switch t.Kind {
	case hir.TargetSymbol:
		return sanitizeIdent(t.Name)
	case hir.TargetAttribute:
		return fmt.Sprintf("%s.%s", c.postfixText(t.Base), sanitizeIdent(t.Attr))
	case hir.TargetIndex:
		bt := c.exprType(t.Base)
		if isDictType(bt) || (bt.IsUnknown() && c.strShaped(t.Index)) {
			return fmt.Sprintf("*%s.entry(%s).or_insert_with(Default::default)",
				c.postfixText(t.Base), c.valueText(t.Index, bt.Key()))
		}
		return fmt.Sprintf("%s[(%s) as usize]", c.postfixText(t.Base), c.exprText(t.Index))
	}
	return "_"
}

func (c *fnCtx) augTargetType(t hir.Target) *hir.Type {
	switch t.Kind {
	case hir.TargetSymbol:
		return c.varType(t.Name)
	case hir.TargetAttribute:
		return c.attrTargetType(t)
	case hir.TargetIndex:
		bt := c.exprType(t.Base)
		switch bt.Kind {
		case hir.TypeDict:
			return bt.Value()
		case hir.TypeList:
			return bt.Elem()
		}
	}
	return hir.Unknown
}

func (c *fnCtx) augTargetExpr(t hir.Target) *hir.Expr {
	switch t.Kind {
	case hir.TargetAttribute:
		return &hir.Expr{Kind: hir.ExprAttribute, Data: hir.AttributeData{Value: t.Base, Attr: t.Attr}}
	case hir.TargetIndex:
		return &hir.Expr{Kind: hir.ExprIndex, Data: hir.IndexData{Base: t.Base, Index: t.Index}}
	}
	return &hir.Expr{Kind: hir.ExprVar, Data: hir.VarData{Name: t.Name}}
}

func (c *fnCtx) exprStmt(w *writer, d hir.ExprStmtData) {
	if d.Expr == nil {
		return
	}
	// A bare string expression is an inline docstring; nothing to emit.
	if lit, ok := d.Expr.Data.(hir.LiteralData); ok && lit.Kind == hir.LitStr {
		return
	}
	text := c.exprText(d.Expr)
	if strings.HasSuffix(text, "}") && strings.HasPrefix(text, "{") {
		w.Line(text)
		return
	}
	w.Line(text + ";")
}

func (c *fnCtx) returnStmt(w *writer, d hir.ReturnData) {
	if c.tryDepth > 0 && c.tryWrap {
		if d.Value == nil || (d.Value.IsNoneLiteral() && !c.returnsOptional()) {
			w.Line("return Ok(Some(Default::default()));")
			return
		}
		w.Linef("return Ok(Some(%s));", c.valueText(d.Value, c.fn.Ret))
		return
	}
	if c.fallible {
		if d.Value == nil || (d.Value.IsNoneLiteral() && !c.returnsOptional()) {
			w.Line("return Ok(());")
			return
		}
		w.Linef("return Ok(%s);", c.valueText(d.Value, c.fn.Ret))
		return
	}
	if d.Value == nil || (d.Value.IsNoneLiteral() && !c.returnsOptional()) {
		w.Line("return;")
		return
	}
	w.Linef("return %s;", c.valueText(d.Value, c.fn.Ret))
}

func (c *fnCtx) returnsOptional() bool {
	return c.fn.Ret != nil && c.fn.Ret.Kind == hir.TypeOptional
}

// declareWalrusNames pre-declares every name a := binding introduces in
// the body. The binding sites assign; declaring up front keeps the
// names alive past the expressions that produced them.
func (c *fnCtx) declareWalrusNames(w *writer, body []hir.Stmt) {
	hir.WalkStmts(body, func(s *hir.Stmt) {
		hir.StmtExprs(s, func(x *hir.Expr) {
			n, ok := x.Data.(hir.NamedData)
			if !ok || c.declared[n.Name] || c.isParam(n.Name) {
				return
			}
			c.declared[n.Name] = true
			if t := c.varType(n.Name); !t.IsUnknown() {
				w.Linef("let mut %s: %s;", sanitizeIdent(n.Name), c.typeText(t))
			} else {
				w.Linef("let mut %s;", sanitizeIdent(n.Name))
			}
		})
	})
}

func (c *fnCtx) ifStmt(w *writer, s *hir.Stmt, d hir.IfData) {
	if name, ok := c.narrowableCond(d.Cond); ok && c.bindingLocal(s, name, d) {
		c.ifLet(w, name, sanitizeIdent(name), c.varType(name).Elem(), d)
		return
	}
	w.Openf("if %s {", c.condText(d.Cond))
	c.stmts(w, d.Then)
	c.closeElse(w, d.Else)
}

// narrowableCond recognizes a presence test on an Option variable.
func (c *fnCtx) narrowableCond(e *hir.Expr) (string, bool) {
	name, ok := condVarName(e)
	if !ok {
		return "", false
	}
	if c.class != nil && name == c.fn.Receiver {
		return "", false
	}
	if t := c.varType(name); t == nil || t.Kind != hir.TypeOptional {
		return "", false
	}
	return name, true
}

// condVarName extracts the variable a presence test examines: the bare
// truthiness form or an explicit `is not None`.
func condVarName(e *hir.Expr) (string, bool) {
	switch d := e.Data.(type) {
	case hir.VarData:
		return d.Name, true
	case hir.BinaryData:
		if d.Op != hir.OpIsNot || !d.Right.IsNoneLiteral() {
			return "", false
		}
		if v, ok := d.Left.Data.(hir.VarData); ok {
			return v.Name, true
		}
	}
	return "", false
}

func (c *fnCtx) closeElse(w *writer, els []hir.Stmt) {
	if len(els) == 0 {
		w.Close("}")
		return
	}
	if len(els) == 1 && els[0].Kind == hir.StmtIf {
		next := els[0].Data.(hir.IfData)
		w.Dedent()
		w.Openf("} else if %s {", c.condText(next.Cond))
		c.stmts(w, next.Then)
		c.closeElse(w, next.Else)
		return
	}
	w.Dedent()
	w.Open("} else {")
	c.stmts(w, els)
	w.Close("}")
}

func isTrueLiteral(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LitBool && lit.Bool
}
