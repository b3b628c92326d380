package hir

import (
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

func (lw *lowerer) lowerBody(body []pyast.Stmt) []Stmt {
	out := make([]Stmt, 0, len(body))
	for _, s := range body {
		lw.lowerStmtInto(s, &out)
	}
	return out
}

func (lw *lowerer) lowerStmtInto(s pyast.Stmt, out *[]Stmt) {
	sp := s.Span()
	switch v := s.(type) {
	case *pyast.Assign:
		lw.lowerAssign(v, out)
	case *pyast.AnnAssign:
		target := lw.lowerTarget(v.Target)
		data := AssignData{Target: target, Declared: lw.lowerTypeExpr(v.Annotation)}
		if v.Value != nil {
			data.Value = lw.lowerExpr(v.Value)
		}
		*out = append(*out, Stmt{Kind: StmtAssign, Span: sp, Data: data})
	case *pyast.AugAssign:
		*out = append(*out, Stmt{Kind: StmtAugAssign, Span: sp, Data: AugAssignData{
			Target: lw.lowerTarget(v.Target),
			Op:     lowerBinOpKind(v.Op),
			Value:  lw.lowerExpr(v.Value),
		}})
	case *pyast.ExprStmt:
		*out = append(*out, Stmt{Kind: StmtExpr, Span: sp, Data: ExprStmtData{
			Expr: lw.lowerExpr(v.Value),
		}})
	case *pyast.Return:
		data := ReturnData{}
		if v.Value != nil {
			data.Value = lw.lowerExpr(v.Value)
		}
		*out = append(*out, Stmt{Kind: StmtReturn, Span: sp, Data: data})
	case *pyast.If:
		*out = append(*out, Stmt{Kind: StmtIf, Span: sp, Data: IfData{
			Cond: lw.lowerExpr(v.Cond),
			Then: lw.lowerBody(v.Body),
			Else: lw.lowerBody(v.Orelse),
		}})
	case *pyast.While:
		lw.lowerWhile(v, out)
	case *pyast.For:
		lw.lowerFor(v, out)
	case *pyast.Break:
		*out = append(*out, Stmt{Kind: StmtBreak, Span: sp, Data: BreakData{}})
	case *pyast.Continue:
		*out = append(*out, Stmt{Kind: StmtContinue, Span: sp, Data: ContinueData{}})
	case *pyast.Pass:
		*out = append(*out, Stmt{Kind: StmtPass, Span: sp, Data: PassData{}})
	case *pyast.Raise:
		data := RaiseData{}
		if v.Exc != nil {
			data.Exc = lw.lowerExpr(v.Exc)
		}
		if v.Cause != nil {
			data.Cause = lw.lowerExpr(v.Cause)
		}
		*out = append(*out, Stmt{Kind: StmtRaise, Span: sp, Data: data})
	case *pyast.Try:
		*out = append(*out, lw.lowerTry(v))
	case *pyast.With:
		lw.lowerWith(v, out)
	case *pyast.Assert:
		data := AssertData{Test: lw.lowerExpr(v.Test)}
		if v.Msg != nil {
			data.Msg = lw.lowerExpr(v.Msg)
		}
		*out = append(*out, Stmt{Kind: StmtAssert, Span: sp, Data: data})
	case *pyast.Match:
		lw.lowerMatch(v, out)
	case *pyast.FunctionDef:
		lw.errorf(diag.LowUnsupported, sp, "nested function definitions are not supported")
	case *pyast.ClassDef:
		lw.errorf(diag.LowUnsupported, sp, "nested class definitions are not supported")
	case *pyast.Global:
		lw.errorf(diag.LowGlobalStatement, sp, "global statement is not supported")
	case *pyast.Nonlocal:
		lw.errorf(diag.LowNonlocalStatement, sp, "nonlocal statement is not supported")
	case *pyast.Delete:
		lw.errorf(diag.LowDeleteStatement, sp, "del statement is not supported")
	default:
		lw.errorf(diag.LowUnsupported, sp, "unsupported statement")
	}
}

func (lw *lowerer) lowerAssign(v *pyast.Assign, out *[]Stmt) {
	sp := v.Span()
	value := lw.lowerExpr(v.Value)
	first := lw.lowerTarget(v.Targets[0])
	*out = append(*out, Stmt{Kind: StmtAssign, Span: sp, Data: AssignData{
		Target: first, Value: value,
	}})
	// a = b = expr: later targets read back the first binding so the value
	// expression evaluates once.
	if len(v.Targets) > 1 {
		src, ok := first.RootVar()
		for _, t := range v.Targets[1:] {
			data := AssignData{Target: lw.lowerTarget(t)}
			if ok && first.Kind == TargetSymbol {
				data.Value = NewVar(sp, src)
			} else {
				data.Value = value
			}
			*out = append(*out, Stmt{Kind: StmtAssign, Span: sp, Data: data})
		}
	}
}

func (lw *lowerer) lowerTarget(e pyast.Expr) Target {
	switch v := e.(type) {
	case *pyast.Name:
		return Symbol(v.ID)
	case *pyast.Subscript:
		return Target{
			Kind:  TargetIndex,
			Base:  lw.lowerExpr(v.Value),
			Index: lw.lowerExpr(v.Index),
		}
	case *pyast.Attribute:
		return Target{
			Kind: TargetAttribute,
			Base: lw.lowerExpr(v.Value),
			Attr: v.Attr,
		}
	case *pyast.TupleExpr:
		return lw.lowerTupleTarget(v.Elts)
	case *pyast.ListExpr:
		return lw.lowerTupleTarget(v.Elts)
	case *pyast.Starred:
		lw.errorf(diag.LowStarExpression, e.Span(), "starred expression outside a call is not supported")
		return Symbol("_")
	default:
		lw.errorf(diag.LowUnsupported, e.Span(), "unsupported assignment target")
		return Symbol("_")
	}
}

func (lw *lowerer) lowerTupleTarget(elts []pyast.Expr) Target {
	t := Target{Kind: TargetTuple}
	for _, elt := range elts {
		t.Elems = append(t.Elems, lw.lowerTarget(elt))
	}
	return t
}

func (lw *lowerer) lowerWhile(v *pyast.While, out *[]Stmt) {
	sp := v.Span()
	body := lw.lowerBody(v.Body)
	if len(v.Orelse) == 0 {
		*out = append(*out, Stmt{Kind: StmtWhile, Span: sp, Data: WhileData{
			Cond: lw.lowerExpr(v.Cond),
			Body: body,
		}})
		return
	}
	flag := lw.fresh("_completed")
	*out = append(*out, lw.loopElse(sp, flag, Stmt{Kind: StmtWhile, Span: sp, Data: WhileData{
		Cond: lw.lowerExpr(v.Cond),
		Body: rewriteBreaks(body, flag, sp),
	}}, lw.lowerBody(v.Orelse))...)
}

func (lw *lowerer) lowerFor(v *pyast.For, out *[]Stmt) {
	sp := v.Span()
	if v.IsAsync {
		lw.errorf(diag.LowAsyncFor, sp, "async for is not supported")
		return
	}
	body := lw.lowerBody(v.Body)
	loop := Stmt{Kind: StmtFor, Span: sp, Data: ForData{
		Target: lw.lowerTarget(v.Target),
		Iter:   lw.lowerExpr(v.Iter),
		Body:   body,
	}}
	if len(v.Orelse) == 0 {
		*out = append(*out, loop)
		return
	}
	flag := lw.fresh("_completed")
	data := loop.Data.(ForData)
	data.Body = rewriteBreaks(body, flag, sp)
	loop.Data = data
	*out = append(*out, lw.loopElse(sp, flag, loop, lw.lowerBody(v.Orelse))...)
}

// loopElse desugars a loop else clause into a completion flag: the flag
// starts true, every break flips it, and the else body runs only when it
// survived.
func (lw *lowerer) loopElse(sp source.Span, flag string, loop Stmt, elseBody []Stmt) []Stmt {
	return []Stmt{
		{Kind: StmtAssign, Span: sp, Data: AssignData{
			Target:   Symbol(flag),
			Value:    NewLiteral(sp, LiteralData{Kind: LitBool, Bool: true, Raw: "True"}),
			Declared: BoolT,
		}},
		loop,
		{Kind: StmtIf, Span: sp, Data: IfData{
			Cond: NewVar(sp, flag),
			Then: elseBody,
		}},
	}
}

// rewriteBreaks prefixes every break belonging to this loop with a flag
// reset. Nested loops keep their own breaks.
func rewriteBreaks(body []Stmt, flag string, sp source.Span) []Stmt {
	out := make([]Stmt, 0, len(body))
	for _, s := range body {
		switch s.Kind {
		case StmtBreak:
			out = append(out, Stmt{Kind: StmtAssign, Span: s.Span, Data: AssignData{
				Target: Symbol(flag),
				Value:  NewLiteral(sp, LiteralData{Kind: LitBool, Bool: false, Raw: "False"}),
			}})
			out = append(out, s)
		case StmtIf:
			data := s.Data.(IfData)
			data.Then = rewriteBreaks(data.Then, flag, sp)
			data.Else = rewriteBreaks(data.Else, flag, sp)
			out = append(out, Stmt{Kind: s.Kind, Span: s.Span, Data: data})
		case StmtTry:
			data := s.Data.(TryData)
			data.Body = rewriteBreaks(data.Body, flag, sp)
			for i := range data.Handlers {
				data.Handlers[i].Body = rewriteBreaks(data.Handlers[i].Body, flag, sp)
			}
			data.Else = rewriteBreaks(data.Else, flag, sp)
			data.Finally = rewriteBreaks(data.Finally, flag, sp)
			out = append(out, Stmt{Kind: s.Kind, Span: s.Span, Data: data})
		case StmtWith:
			data := s.Data.(WithData)
			data.Body = rewriteBreaks(data.Body, flag, sp)
			out = append(out, Stmt{Kind: s.Kind, Span: s.Span, Data: data})
		default:
			out = append(out, s)
		}
	}
	return out
}

func (lw *lowerer) lowerTry(v *pyast.Try) Stmt {
	data := TryData{
		Body:    lw.lowerBody(v.Body),
		Else:    lw.lowerBody(v.Orelse),
		Finally: lw.lowerBody(v.Final),
	}
	for _, h := range v.Handlers {
		handler := ExceptHandler{
			Binding: h.Name,
			Body:    lw.lowerBody(h.Body),
			Span:    h.Span(),
		}
		handler.Types = lw.exceptionTypes(h.Type)
		data.Handlers = append(data.Handlers, handler)
	}
	return Stmt{Kind: StmtTry, Span: v.Span(), Data: data}
}

// exceptionTypes flattens `except A` and `except (A, B)` clause types into
// class names. nil stays empty (bare except).
func (lw *lowerer) exceptionTypes(e pyast.Expr) []string {
	switch v := e.(type) {
	case nil:
		return nil
	case *pyast.Name:
		return []string{v.ID}
	case *pyast.Attribute:
		return []string{v.Attr}
	case *pyast.TupleExpr:
		var out []string
		for _, elt := range v.Elts {
			out = append(out, lw.exceptionTypes(elt)...)
		}
		return out
	default:
		lw.errorf(diag.LowUnsupported, e.Span(), "unsupported exception clause")
		return nil
	}
}

func (lw *lowerer) lowerWith(v *pyast.With, out *[]Stmt) {
	if v.IsAsync {
		lw.errorf(diag.LowUnsupported, v.Span(), "async with is not supported")
		return
	}
	body := lw.lowerBody(v.Body)
	// Multi-item with statements nest inside out.
	for i := len(v.Items) - 1; i >= 0; i-- {
		item := v.Items[i]
		data := WithData{
			Context: lw.lowerExpr(item.Context),
			Body:    body,
		}
		if name, ok := item.Target.(*pyast.Name); ok {
			data.Binding = name.ID
		} else if item.Target != nil {
			lw.errorf(diag.LowUnsupported, item.Target.Span(), "with target must be a plain name")
		}
		body = []Stmt{{Kind: StmtWith, Span: v.Span(), Data: data}}
	}
	*out = append(*out, body...)
}

// lowerMatch compiles a match statement into an if/elif chain. The
// supported subset is literal patterns with optional guards, plus a
// trailing wildcard or capture case.
func (lw *lowerer) lowerMatch(v *pyast.Match, out *[]Stmt) {
	sp := v.Span()
	subject := lw.lowerExpr(v.Subject)
	subjectVar, isVar := subject.AsVar()
	var pre []Stmt
	if !isVar {
		subjectVar = lw.fresh("_match_subject")
		pre = append(pre, Stmt{Kind: StmtAssign, Span: sp, Data: AssignData{
			Target: Symbol(subjectVar),
			Value:  subject,
		}})
	}

	chain := []Stmt(nil)
	for i := len(v.Cases) - 1; i >= 0; i-- {
		mc := v.Cases[i]
		body := lw.lowerBody(mc.Body)
		switch pat := mc.Pattern.(type) {
		case *pyast.Name:
			if mc.Guard != nil {
				lw.errorf(diag.LowComplexMatchGuard, mc.Span(),
					"guard on a capture pattern is beyond the supported subset")
				return
			}
			if pat.ID == "_" {
				chain = body
				continue
			}
			// Capture pattern: bind and fall into the body.
			chain = append([]Stmt{{Kind: StmtAssign, Span: mc.Span(), Data: AssignData{
				Target: Symbol(pat.ID),
				Value:  NewVar(mc.Span(), subjectVar),
			}}}, body...)
		case *pyast.Literal:
			cond := NewBinary(mc.Span(), OpEq,
				NewVar(mc.Span(), subjectVar),
				lw.lowerExpr(pat))
			if mc.Guard != nil {
				cond = NewBinary(mc.Span(), OpAnd, cond, lw.lowerExpr(mc.Guard))
			}
			chain = []Stmt{{Kind: StmtIf, Span: mc.Span(), Data: IfData{
				Cond: cond,
				Then: body,
				Else: chain,
			}}}
		default:
			lw.errorf(diag.LowComplexMatchGuard, mc.Span(),
				"match pattern beyond the supported subset")
			return
		}
	}
	*out = append(*out, pre...)
	*out = append(*out, chain...)
}
