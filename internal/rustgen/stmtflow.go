package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/hir"
)

func (c *fnCtx) forStmt(w *writer, d hir.ForData) {
	pat := c.forPattern(d.Target)
	for _, name := range d.Target.BoundNames() {
		c.declared[name] = true
	}
	w.Openf("for %s in %s {", pat, c.forIterText(d.Iter))
	c.stmts(w, d.Body)
	w.Close("}")
}

// forPattern renders the loop binding. Names never read take an
// underscore prefix; names rebound in the body bind mutable.
func (c *fnCtx) forPattern(t hir.Target) string {
	switch t.Kind {
	case hir.TargetSymbol:
		name := sanitizeIdent(t.Name)
		if !c.analysis.IsRead(t.Name) {
			return "_" + name
		}
		if c.analysis.IsMutated(t.Name) {
			return "mut " + name
		}
		return name
	case hir.TargetTuple:
		parts := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			parts[i] = c.forPattern(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "_"
}

// forIterText picks the iteration form for a loop source. Builtin
// iterator producers pass through; receivers get the chain their shape
// calls for; a few well-known names select line or record readers.
func (c *fnCtx) forIterText(iter *hir.Expr) string {
	switch d := iter.Data.(type) {
	case hir.CallData:
		return c.exprText(iter)
	case hir.CompData:
		return c.compChain(d)
	case hir.MethodCallData:
		if _, isModule := c.gen.moduleFor(d.Object); !isModule {
			if isDictType(c.exprType(d.Object)) || c.dictShaped(d.Object) {
				obj := c.postfixText(d.Object)
				switch d.Method {
				case "items":
					return obj + ".iter().map(|(k, v)| (k.clone(), v.clone()))"
				case "keys":
					return obj + ".keys().cloned()"
				case "values":
					return obj + ".values().cloned()"
				}
			}
		}
		return c.exprText(iter)
	case hir.AttributeData:
		if mod, ok := c.gen.moduleFor(d.Value); ok && mod == "sys" && d.Attr == "stdin" {
			return "std::io::stdin().lines().map(|l| l.unwrap_or_default())"
		}
	case hir.VarData:
		t := c.varType(d.Name)
		if t.IsUnknown() {
			name := strings.ToLower(d.Name)
			if isFileLikeName(name) {
				c.gen.need(needBufRead)
				return fmt.Sprintf("std::io::BufReader::new(%s).lines().map(|l| l.unwrap_or_default())",
					c.postfixText(iter))
			}
			if isRecordReaderName(name) {
				return fmt.Sprintf("%s.records().map(|r| r.unwrap_or_default())", c.postfixText(iter))
			}
		}
	}
	return c.iterChain(iter)
}

func isFileLikeName(name string) bool {
	switch name {
	case "f", "fh", "fp", "file", "infile", "outfile", "input", "output":
		return true
	}
	return strings.HasSuffix(name, "_file") || strings.HasPrefix(name, "file_")
}

func isRecordReaderName(name string) bool {
	switch name {
	case "reader", "rdr", "csv_reader":
		return true
	}
	return strings.HasSuffix(name, "_reader")
}

// raiseStmt renders raise. Inside a try closure or a fallible function
// the exception becomes an Err value; anywhere else it panics with the
// same message shape the exception would have carried.
func (c *fnCtx) raiseStmt(w *writer, s *hir.Stmt, d hir.RaiseData) {
	if d.Exc == nil {
		if c.canPropagate() {
			w.Line(`return Err("Exception raised".into());`)
		} else {
			w.Line(`panic!("Exception raised");`)
		}
		return
	}
	if call, ok := d.Exc.Data.(hir.CallData); ok && call.Func != "" {
		name := call.Func
		var msg string
		if len(call.Args) > 0 {
			if lit, isLit := call.Args[0].Data.(hir.LiteralData); isLit && lit.Kind == hir.LitStr {
				msg = escapeBraces(lit.Str)
			} else {
				msg = "{}"
			}
		}
		switch {
		case msg == "":
			if c.canPropagate() {
				w.Linef("return Err(%s.into());", rustQuote(name))
			} else {
				w.Linef("panic!(%s);", rustQuote(name))
			}
		case msg == "{}":
			if c.canPropagate() {
				w.Linef("return Err(format!(\"%s: {}\", %s).into());", name, c.exprText(call.Args[0]))
			} else {
				w.Linef("panic!(\"%s: {}\", %s);", name, c.exprText(call.Args[0]))
			}
		default:
			if c.canPropagate() {
				w.Linef("return Err(%s.into());", rustQuote(name+": "+msg))
			} else {
				w.Linef("panic!(%s);", rustQuote(name+": "+msg))
			}
		}
		return
	}
	// Re-raising a bound exception value.
	if c.canPropagate() {
		w.Linef("return Err(format!(\"{}\", %s).into());", c.exprText(d.Exc))
	} else {
		w.Linef("panic!(\"{}\", %s);", c.exprText(d.Exc))
	}
}

func (c *fnCtx) tryStmt(w *writer, s *hir.Stmt, d hir.TryData) {
	if len(d.Finally) == 0 {
		if len(d.Handlers) == 0 {
			c.stmts(w, d.Body)
			return
		}
		c.hoistsFor(w, s)
		if c.zeroDivTry(w, d) {
			return
		}
		if c.parseTry(w, d) {
			return
		}
		c.closureTry(w, d)
		return
	}
	if len(d.Handlers) == 0 && !blockExits(d.Body) {
		// Nothing can leave the block early; the finally body simply runs
		// after it.
		c.stmts(w, d.Body)
		c.stmts(w, d.Finally)
		return
	}
	c.hoistsFor(w, s)
	c.finallyTry(w, d)
}

// blockExits reports whether any statement in the block can leave the
// enclosing function: a return, or a raise.
func blockExits(body []hir.Stmt) bool {
	exits := false
	hir.WalkStmts(body, func(s *hir.Stmt) {
		switch s.Kind {
		case hir.StmtReturn, hir.StmtRaise:
			exits = true
		}
	})
	return exits
}

// zeroDivTry rewrites a try whose only handler catches
// ZeroDivisionError into a guard on the divisor. No closure, no
// unwinding: the division either proceeds or the handler runs.
func (c *fnCtx) zeroDivTry(w *writer, d hir.TryData) bool {
	if len(d.Handlers) != 1 || len(d.Else) != 0 {
		return false
	}
	h := d.Handlers[0]
	if len(h.Types) != 1 || h.Types[0] != "ZeroDivisionError" || h.Binding != "" {
		return false
	}
	divisor := firstDivisor(d.Body)
	if divisor == nil {
		return false
	}
	zero := "0"
	if c.exprType(divisor).Kind == hir.TypeFloat {
		zero = "0.0"
	}
	w.Openf("if %s == %s {", c.operandText(divisor), zero)
	c.stmts(w, h.Body)
	w.Dedent()
	w.Open("} else {")
	c.stmts(w, d.Body)
	w.Close("}")
	return true
}

func firstDivisor(body []hir.Stmt) *hir.Expr {
	var divisor *hir.Expr
	hir.WalkStmts(body, func(s *hir.Stmt) {
		hir.StmtExprs(s, func(e *hir.Expr) {
			if divisor != nil {
				return
			}
			if b, ok := e.Data.(hir.BinaryData); ok {
				switch b.Op {
				case hir.OpDiv, hir.OpFloorDiv, hir.OpMod:
					divisor = b.Right
				}
			}
		})
	})
	return divisor
}

// parseTry rewrites a try whose body leads with an int()/float() parse
// and whose handler catches ValueError into a match on parse.
func (c *fnCtx) parseTry(w *writer, d hir.TryData) bool {
	if len(d.Handlers) != 1 || len(d.Else) != 0 || len(d.Body) == 0 {
		return false
	}
	h := d.Handlers[0]
	if !catchesOnly(h, "ValueError") {
		return false
	}
	first := &d.Body[0]
	assign, ok := first.Data.(hir.AssignData)
	if !ok || assign.Target.Kind != hir.TargetSymbol {
		return false
	}
	call, ok := assign.Value.Data.(hir.CallData)
	if !ok || (call.Func != "int" && call.Func != "float") || len(call.Args) != 1 {
		return false
	}
	if !isStrType(c.exprType(call.Args[0])) {
		return false
	}
	target := call.Args[0]
	rustTy := "f64"
	if call.Func == "int" {
		rustTy = c.gen.intTypeText()
	}
	w.Openf("match %s.trim().parse::<%s>() {", c.postfixText(target), rustTy)
	w.Open("Ok(parsed) => {")
	name := assign.Target.Name
	if c.declared[name] || c.isParam(name) {
		w.Linef("%s = parsed;", sanitizeIdent(name))
	} else {
		c.declared[name] = true
		if c.analysis.IsMutated(name) {
			w.Linef("let mut %s = parsed;", sanitizeIdent(name))
		} else {
			w.Linef("let %s = parsed;", sanitizeIdent(name))
		}
	}
	c.stmts(w, d.Body[1:])
	w.Close("}")
	if h.Binding != "" {
		w.Openf("Err(%s) => {", sanitizeIdent(h.Binding))
		c.declared[h.Binding] = true
	} else {
		w.Open("Err(_) => {")
	}
	c.stmts(w, h.Body)
	delete(c.declared, h.Binding)
	w.Close("}")
	w.Close("}")
	return true
}

func catchesOnly(h hir.ExceptHandler, name string) bool {
	if len(h.Types) == 0 {
		return false
	}
	for _, t := range h.Types {
		if t != name {
			return false
		}
	}
	return true
}

// closureTry is the general strategy: the protected block runs inside
// an immediately-invoked closure returning Result, errors land in the
// match's Err arm. When the block can return from the function the
// closure yields an Option so the outer match can forward the value.
func (c *fnCtx) closureTry(w *writer, d hir.TryData) {
	returns := bodyReturns(d.Body)

	retTy := "()"
	okPat := "Ok(())"
	if returns {
		inner := "()"
		if c.retType != nil {
			inner = c.retType.Render()
		}
		retTy = fmt.Sprintf("Option<%s>", inner)
		okPat = "Ok(None)"
	}
	w.Openf("match (|| -> Result<%s, Box<dyn std::error::Error>> {", retTy)

	c.tryDepth++
	savedWrap := c.tryWrap
	c.tryWrap = returns
	c.stmts(w, d.Body)
	c.tryWrap = savedWrap
	c.tryDepth--

	if returns {
		w.Line("Ok(None)")
	} else {
		w.Line("Ok(())")
	}
	w.Dedent()
	w.Open("})() {")

	if returns {
		if c.fallible {
			w.Line("Ok(Some(value)) => return Ok(value),")
		} else {
			w.Line("Ok(Some(value)) => return value,")
		}
	}
	switch {
	case len(d.Else) > 0:
		w.Openf("%s => {", okPat)
		c.stmts(w, d.Else)
		w.Close("}")
	case endsControl(d.Body):
		// The body leaves on every path, so the success arm never runs.
		w.Linef("%s => unreachable!(),", okPat)
	default:
		w.Linef("%s => {}", okPat)
	}

	c.handlerArms(w, d.Handlers)
	w.Close("}")
}

// finallyTry handles try statements that carry a finally clause and can
// leave the block early. Body, handlers and else all run inside one
// closure so every return and every unhandled error is captured; the
// finally body runs on the captured value before it leaves the function.
func (c *fnCtx) finallyTry(w *writer, d hir.TryData) {
	returns := bodyReturns(d.Body) || bodyReturns(d.Else)
	for _, h := range d.Handlers {
		returns = returns || bodyReturns(h.Body)
	}

	retTy := "()"
	okPat := "Ok(())"
	if returns {
		inner := "()"
		if c.retType != nil {
			inner = c.retType.Render()
		}
		retTy = fmt.Sprintf("Option<%s>", inner)
		okPat = "Ok(None)"
	}
	sig := fmt.Sprintf("Result<%s, Box<dyn std::error::Error>>", retTy)

	w.Openf("let _try_flow = (|| -> %s {", sig)
	c.tryDepth++
	savedWrap := c.tryWrap
	c.tryWrap = returns

	if len(d.Handlers) == 0 && len(d.Else) == 0 {
		// Returns wrap, errors propagate to _try_flow directly.
		c.stmts(w, d.Body)
	} else {
		w.Openf("match (|| -> %s {", sig)
		c.stmts(w, d.Body)
		if returns {
			w.Line("Ok(None)")
		} else {
			w.Line("Ok(())")
		}
		w.Dedent()
		w.Open("})() {")
		if returns {
			w.Line("Ok(Some(value)) => return Ok(Some(value)),")
		}
		switch {
		case len(d.Else) > 0:
			w.Openf("%s => {", okPat)
			c.stmts(w, d.Else)
			w.Close("}")
		case endsControl(d.Body):
			w.Linef("%s => unreachable!(),", okPat)
		default:
			w.Linef("%s => {}", okPat)
		}
		c.handlerArms(w, d.Handlers)
		w.Close("}")
	}

	if returns {
		w.Line("Ok(None)")
	} else {
		w.Line("Ok(())")
	}
	c.tryWrap = savedWrap
	c.tryDepth--
	w.Dedent()
	w.Line("})();")

	c.stmts(w, d.Finally)

	covered := endsControl(d.Body)
	for _, h := range d.Handlers {
		covered = covered && endsControl(h.Body)
	}
	w.Open("match _try_flow {")
	if returns {
		if c.fallible {
			w.Line("Ok(Some(value)) => return Ok(value),")
		} else {
			w.Line("Ok(Some(value)) => return value,")
		}
	}
	if c.canPropagate() {
		w.Line("Err(e) => return Err(e),")
	} else {
		w.Line("Err(e) => panic!(\"{}\", e),")
	}
	if covered {
		w.Line("_ => unreachable!(),")
	} else {
		w.Line("_ => {}")
	}
	w.Close("}")
}

func bodyReturns(body []hir.Stmt) bool {
	returns := false
	hir.WalkStmts(body, func(s *hir.Stmt) {
		if s.Kind == hir.StmtReturn {
			returns = true
		}
	})
	return returns
}

// handlerArms renders the Err arm of a try match. A single handler
// catches everything, the way a lone except does once the typed fast
// paths have declined. Multiple handlers dispatch on the exception-name
// prefix every raise and fallible operation writes into its message;
// kinds no handler names are re-raised.
func (c *fnCtx) handlerArms(w *writer, handlers []hir.ExceptHandler) {
	if len(handlers) == 0 {
		if c.canPropagate() {
			w.Line("Err(e) => return Err(e),")
		} else {
			w.Line("Err(e) => panic!(\"{}\", e),")
		}
		return
	}
	if len(handlers) == 1 {
		h := handlers[0]
		if h.Binding != "" {
			w.Openf("Err(%s) => {", sanitizeIdent(h.Binding))
			c.declared[h.Binding] = true
		} else {
			w.Open("Err(_) => {")
		}
		c.stmts(w, h.Body)
		delete(c.declared, h.Binding)
		w.Close("}")
		return
	}

	w.Open("Err(err) => {")
	w.Line("let err_text = err.to_string();")
	var catchAll *hir.ExceptHandler
	started := false
	for i := range handlers {
		h := &handlers[i]
		if isCatchAllHandler(*h) {
			catchAll = h
			break
		}
		if !started {
			w.Openf("if %s {", errKindCond(h.Types))
			started = true
		} else {
			w.Dedent()
			w.Openf("} else if %s {", errKindCond(h.Types))
		}
		c.bindHandlerErr(w, *h, "err")
		c.stmts(w, h.Body)
		if h.Binding != "" {
			delete(c.declared, h.Binding)
		}
	}
	if !started {
		// The first handler already catches everything.
		c.bindHandlerErr(w, *catchAll, "err")
		c.stmts(w, catchAll.Body)
		if catchAll.Binding != "" {
			delete(c.declared, catchAll.Binding)
		}
		w.Close("}")
		return
	}
	w.Dedent()
	w.Open("} else {")
	if catchAll != nil {
		c.bindHandlerErr(w, *catchAll, "err")
		c.stmts(w, catchAll.Body)
		if catchAll.Binding != "" {
			delete(c.declared, catchAll.Binding)
		}
	} else if c.canPropagate() {
		w.Line("return Err(err);")
	} else {
		w.Line("panic!(\"{}\", err);")
	}
	w.Close("}")
	w.Close("}")
}

func isCatchAllHandler(h hir.ExceptHandler) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, t := range h.Types {
		if t == "Exception" || t == "BaseException" {
			return true
		}
	}
	return false
}

// errKindCond tests the message prefix the emitter stamps on every
// error it constructs ("KeyError: ...", "ValueError: ...").
func errKindCond(types []string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("err_text.starts_with(%s)", rustQuote(t))
	}
	return strings.Join(parts, " || ")
}

func (c *fnCtx) bindHandlerErr(w *writer, h hir.ExceptHandler, errName string) {
	if h.Binding == "" {
		return
	}
	c.declared[h.Binding] = true
	w.Linef("let %s = %s;", sanitizeIdent(h.Binding), errName)
}

// withStmt lowers context managers to RAII. Resources from mapped
// modules drop at scope end on their own; transpiled classes go through
// their __enter__ method.
func (c *fnCtx) withStmt(w *writer, d hir.WithData) {
	t := c.exprType(d.Context)
	if t.Kind == hir.TypeCustom {
		if _, ok := c.gen.classes[t.Name]; ok {
			w.Linef("let mut _context = %s;", c.exprText(d.Context))
			if d.Binding != "" {
				c.declared[d.Binding] = true
				w.Linef("let mut %s = _context.__enter__();", sanitizeIdent(d.Binding))
			}
			c.stmts(w, d.Body)
			return
		}
	}
	if d.Binding != "" {
		c.declared[d.Binding] = true
		w.Linef("let mut %s = %s;", sanitizeIdent(d.Binding), c.exprText(d.Context))
	} else {
		w.Linef("let mut _context = %s;", c.exprText(d.Context))
	}
	c.stmts(w, d.Body)
}
