package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/source"
)

// callText renders a free-function call. Resolution order: from-imports
// route to their module translation, class names construct, builtins
// take their concrete forms, user functions get borrow-aware argument
// rendering, and anything left passes through by name.
func (c *fnCtx) callText(e *hir.Expr, d hir.CallData) string {
	if d.Func == "" {
		if d.FuncExpr == nil {
			c.gen.internal(e.Span, "call without callee")
			return "()"
		}
		return fmt.Sprintf("%s(%s)", c.postfixText(d.FuncExpr), c.plainArgs(d.Args))
	}
	if mod, ok := c.gen.importedItems[d.Func]; ok {
		item := c.gen.itemNames[d.Func]
		return c.moduleCallText(e, mod, item, d)
	}
	if cl, ok := c.gen.classes[d.Func]; ok {
		return c.constructText(e, cl, d)
	}
	if text, ok := c.builtinText(e, d); ok {
		return text
	}
	if fn := c.gen.mod.Function(d.Func); fn != nil {
		return c.userCallText(e, d, fn)
	}
	return fmt.Sprintf("%s(%s)", sanitizeIdent(d.Func), c.plainArgs(d.Args))
}

func (c *fnCtx) plainArgs(args []*hir.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = c.exprText(a)
	}
	return strings.Join(parts, ", ")
}

// constructText renders ClassName(args) as ClassName::new(args), with
// the same argument policy as a user call against __init__.
func (c *fnCtx) constructText(e *hir.Expr, cl *hir.Class, d hir.CallData) string {
	init := cl.Method("__init__")
	if init == nil {
		// Dataclass-style construction fills fields positionally.
		parts := make([]string, 0, len(d.Args))
		for i, a := range d.Args {
			var want *hir.Type
			if i < len(cl.Fields) {
				want = cl.Fields[i].Type
			}
			parts = append(parts, c.valueText(a, want))
		}
		for _, kw := range d.Kwargs {
			for fi := range cl.Fields {
				if cl.Fields[fi].Name == kw.Name {
					parts = append(parts, c.valueText(kw.Value, cl.Fields[fi].Type))
				}
			}
		}
		return fmt.Sprintf("%s::new(%s)", cl.Name, strings.Join(parts, ", "))
	}
	var sig *borrows.FunctionSignature
	if c.gen.sigs != nil {
		sig = c.gen.sigs.Method(cl.Name, "__init__")
	}
	args := c.callArgs(e, init, sig, d.Args, d.Kwargs)
	return fmt.Sprintf("%s::new(%s)", cl.Name, args)
}

// userCallText renders a call to a module-level function, inserting the
// borrows the callee's signature expects and propagating or unwrapping
// its Result.
func (c *fnCtx) userCallText(e *hir.Expr, d hir.CallData, fn *hir.Function) string {
	var sig *borrows.FunctionSignature
	if c.gen.sigs != nil {
		sig = c.gen.sigs.Function(d.Func)
	}
	call := fmt.Sprintf("%s(%s)", sanitizeIdent(d.Func),
		c.callArgs(e, fn, sig, d.Args, d.Kwargs))
	if c.gen.calleeFallible(d.Func) {
		if c.canPropagate() {
			return call + "?"
		}
		return call + ".unwrap()"
	}
	return call
}

// callArgs renders the argument list for fn: positional args first,
// keyword args matched by name, defaults materialized for what's left.
// The receiver never appears here, lowering moves it aside.
func (c *fnCtx) callArgs(e *hir.Expr, fn *hir.Function, sig *borrows.FunctionSignature,
	args []*hir.Expr, kwargs []hir.Kwarg) string {
	params := fn.Params
	var parts []string
	used := 0
	for i := range params {
		p := &params[i]
		if p.Variadic {
			var rest []string
			for _, a := range args[min(used, len(args)):] {
				rest = append(rest, c.exprText(a))
			}
			used = len(args)
			parts = append(parts, "vec!["+strings.Join(rest, ", ")+"]")
			continue
		}
		var arg *hir.Expr
		if kw := kwargByName(kwargs, p.Name); kw != nil {
			arg = kw
		} else if used < len(args) {
			arg = args[used]
			used++
		}
		if arg == nil {
			if p.Default != nil {
				// Defaults materialize at each call, so mutable ones
				// never share state across calls.
				parts = append(parts, c.valueText(p.Default, p.Type))
				continue
			}
			diag.ReportWarning(c.gen.reporter, diag.EmiInfo, e.Span,
				fmt.Sprintf("call to %s missing argument %s", fn.Name, p.Name)).Emit()
			parts = append(parts, "Default::default()")
			continue
		}
		parts = append(parts, c.argForParam(arg, p, sig, e.Span))
	}
	return strings.Join(parts, ", ")
}

func kwargByName(kwargs []hir.Kwarg, name string) *hir.Expr {
	for _, kw := range kwargs {
		if kw.Name == name {
			return kw.Value
		}
	}
	return nil
}

// argForParam renders one argument under the callee's ownership
// classification for that parameter.
func (c *fnCtx) argForParam(arg *hir.Expr, p *hir.Param, sig *borrows.FunctionSignature, callSpan source.Span) string {
	kind := borrows.Owned
	if sig != nil {
		if ps := sig.Param(p.Name); ps != nil {
			kind = ps.Kind
			if kind == borrows.Conditional {
				kind = c.resolveConditional(arg, ps)
			}
		}
	}
	switch kind {
	case borrows.SharedBorrow:
		return c.sharedArg(arg, p.Type)
	case borrows.ExclusiveBorrow:
		return "&mut " + c.postfixText(arg)
	default:
		return c.ownedArg(arg, p.Type, callSpan)
	}
}

// resolveConditional picks the concrete classification of a generic
// parameter from the argument's shape: containers and strings take the
// borrow branch, scalars the owned one.
func (c *fnCtx) resolveConditional(arg *hir.Expr, ps *borrows.ParamSignature) borrows.Kind {
	t := c.exprType(arg)
	if c.gen.rustType(t, c.ann).NeedsBorrow() {
		return ps.If
	}
	return ps.Else
}

// sharedArg lends an argument to a callee that only reads it. Copy
// types pass by value, string literals satisfy &str directly.
func (c *fnCtx) sharedArg(e *hir.Expr, want *hir.Type) string {
	if want != nil && want.Kind == hir.TypeStr {
		if isStrLit(e) || c.isBorrowedStr(e) {
			return c.exprText(e)
		}
		return "&" + c.postfixText(e)
	}
	rt := c.gen.rustType(want, c.ann)
	if want != nil && rt.CanCopy() {
		return c.valueText(e, want)
	}
	if t := c.exprType(e); want == nil && !c.gen.rustType(t, c.ann).NeedsBorrow() {
		return c.valueText(e, want)
	}
	switch e.Kind {
	case hir.ExprVar, hir.ExprAttribute:
		return "&" + c.exprText(e)
	default:
		return "&(" + c.exprText(e) + ")"
	}
}

// ownedArg renders an argument the callee consumes. Variables still
// needed afterwards are cloned; borrowed parameters cannot move and
// clone as well.
func (c *fnCtx) ownedArg(e *hir.Expr, want *hir.Type, callSpan source.Span) string {
	if v, ok := e.Data.(hir.VarData); ok {
		name := c.varText(v.Name)
		if c.strParams[v.Name] {
			return name + ".to_string()"
		}
		if c.gen.rustType(c.varType(v.Name), c.ann).CanCopy() {
			return name
		}
		if c.borrowedParams[v.Name] {
			return name + ".clone()"
		}
		if lu, ok := c.analysis.LastUse[v.Name]; ok && lu.Start >= callSpan.End {
			return name + ".clone()"
		}
		return name
	}
	if e.Kind == hir.ExprAttribute {
		if _, isModule := c.gen.moduleFor(e); !isModule {
			return c.exprText(e) + ".clone()"
		}
	}
	return c.valueText(e, want)
}

// builtinText renders the builtins with concrete translations. The
// second result reports whether the name was a handled builtin.
func (c *fnCtx) builtinText(e *hir.Expr, d hir.CallData) (string, bool) {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	it := c.gen.intTypeText()

	switch d.Func {
	case "print":
		return c.printText(d), true

	case "len":
		return fmt.Sprintf("%s.len() as %s", c.postfixText(arg(0)), it), true

	case "range":
		return c.rangeText(d), true

	case "str":
		if len(d.Args) == 0 {
			return "String::new()", true
		}
		return fmt.Sprintf("%s.to_string()", c.postfixText(arg(0))), true

	case "int":
		return c.intCastText(d, it), true

	case "float":
		return c.floatCastText(d), true

	case "bool":
		if len(d.Args) == 0 {
			return "false", true
		}
		return c.condText(arg(0)), true

	case "list":
		if len(d.Args) == 0 {
			return "vec![]", true
		}
		return c.iterArgChain(arg(0)) + ".collect::<Vec<_>>()", true

	case "set":
		c.gen.need(needHashSet)
		if len(d.Args) == 0 {
			return "HashSet::new()", true
		}
		return c.iterArgChain(arg(0)) + ".collect::<HashSet<_>>()", true

	case "dict":
		c.gen.need(needHashMap)
		if len(d.Args) == 0 && len(d.Kwargs) == 0 {
			return "HashMap::new()", true
		}
		if len(d.Args) == 1 {
			return c.iterArgChain(arg(0)) + ".collect::<HashMap<_, _>>()", true
		}
		parts := make([]string, len(d.Kwargs))
		for i, kw := range d.Kwargs {
			parts[i] = fmt.Sprintf("(%s.to_string(), %s)", rustQuote(kw.Name), c.exprText(kw.Value))
		}
		return "HashMap::from([" + strings.Join(parts, ", ") + "])", true

	case "tuple":
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, e.Span,
			"tuple() over a runtime iterable has no fixed-arity form").Emit()
		return "()", true

	case "sum":
		chain := c.iterArgChain(arg(0))
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.fold(%s, |acc, x| acc + x)", chain, c.exprText(arg(1))), true
		}
		elem := elemOf(c.exprType(arg(0)))
		switch elem.Kind {
		case hir.TypeFloat:
			return chain + ".sum::<f64>()", true
		case hir.TypeInt:
			return fmt.Sprintf("%s.sum::<%s>()", chain, it), true
		default:
			return chain + ".sum()", true
		}

	case "min", "max":
		return c.minMaxText(d), true

	case "abs":
		return fmt.Sprintf("(%s).abs()", c.exprText(arg(0))), true

	case "round":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("{ let m = 10f64.powi((%s) as i32); ((%s) * m).round() / m }",
				c.exprText(arg(1)), c.exprText(arg(0))), true
		}
		return fmt.Sprintf("((%s) as f64).round() as %s", c.exprText(arg(0)), it), true

	case "divmod":
		// Floor quotient and divisor-signed remainder, as // and % emit.
		return fmt.Sprintf("{ let a = %s; let b = %s; let q = a / b; let r = a %% b; "+
			"if r != 0 && (a < 0) != (b < 0) { (q - 1, r + b) } else { (q, r) } }",
			c.exprText(arg(0)), c.exprText(arg(1))), true

	case "pow":
		if len(d.Args) >= 2 {
			bin := hir.BinaryData{Op: hir.OpPow, Left: arg(0), Right: arg(1)}
			return c.powText(bin, c.exprType(arg(0)), c.exprType(arg(1))), true
		}

	case "all":
		return c.iterArgChain(arg(0)) + ".all(|x| x)", true

	case "any":
		return c.iterArgChain(arg(0)) + ".any(|x| x)", true

	case "sorted":
		return c.sortedText(d), true

	case "reversed":
		return c.iterArgChain(arg(0)) + ".rev()", true

	case "enumerate":
		chain := fmt.Sprintf("%s.enumerate()", c.iterArgChain(arg(0)))
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.map(|(i, x)| ((i as %s) + %s, x))", chain, it, c.exprText(arg(1))), true
		}
		return fmt.Sprintf("%s.map(|(i, x)| (i as %s, x))", chain, it), true

	case "zip":
		out := c.iterArgChain(arg(0))
		for i := 1; i < len(d.Args); i++ {
			out += fmt.Sprintf(".zip(%s)", c.iterArgChain(d.Args[i]))
		}
		return out, true

	case "map":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.map(%s).collect::<Vec<_>>()",
				c.iterArgChain(arg(1)), c.callableText(arg(0))), true
		}

	case "filter":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.filter(|x| { let x = x.clone(); %s }).collect::<Vec<_>>()",
				c.iterArgChain(arg(1)), c.predicateText(arg(0), "x")), true
		}

	case "chr":
		return fmt.Sprintf("char::from_u32((%s) as u32).expect(\"invalid character code\").to_string()",
			c.exprText(arg(0))), true

	case "ord":
		return fmt.Sprintf("%s.chars().next().expect(\"ord() expected a character\") as %s",
			c.postfixText(arg(0)), it), true

	case "hex":
		return fmt.Sprintf("format!(\"0x{:x}\", %s)", c.exprText(arg(0))), true

	case "bin":
		return fmt.Sprintf("format!(\"0b{:b}\", %s)", c.exprText(arg(0))), true

	case "oct":
		return fmt.Sprintf("format!(\"0o{:o}\", %s)", c.exprText(arg(0))), true

	case "repr":
		return fmt.Sprintf("format!(\"{:?}\", %s)", c.exprText(arg(0))), true

	case "isinstance", "issubclass":
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, e.Span,
			fmt.Sprintf("%s collapses to true under static typing", d.Func)).Emit()
		return "true", true

	case "input":
		return c.inputText(d), true

	case "open":
		return c.openText(e, d), true

	case "next":
		if c.canPropagate() {
			return fmt.Sprintf("%s.next().ok_or(\"StopIteration\")?", c.postfixText(arg(0))), true
		}
		return fmt.Sprintf("%s.next().unwrap_or_default()", c.postfixText(arg(0))), true

	case "exit", "quit":
		code := "0"
		if len(d.Args) > 0 {
			code = fmt.Sprintf("(%s) as i32", c.exprText(arg(0)))
		}
		return fmt.Sprintf("std::process::exit(%s)", code), true

	case "id", "hash", "callable", "globals", "locals", "vars", "eval", "exec":
		diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
			fmt.Sprintf("builtin %s has no Rust translation", d.Func)).Emit()
		return "Default::default()", true
	}
	return "", false
}

func elemOf(t *hir.Type) *hir.Type {
	if t == nil {
		return hir.Unknown
	}
	switch t.Kind {
	case hir.TypeList, hir.TypeSet, hir.TypeFrozenSet:
		return t.Elem()
	case hir.TypeDict:
		return t.Key()
	}
	return hir.Unknown
}

func (c *fnCtx) printText(d hir.CallData) string {
	macro := "println!"
	sep := " "
	for _, kw := range d.Kwargs {
		lit, ok := kw.Value.Data.(hir.LiteralData)
		if !ok || lit.Kind != hir.LitStr {
			continue
		}
		switch kw.Name {
		case "end":
			if lit.Str == "" {
				macro = "print!"
			}
		case "sep":
			sep = lit.Str
		}
	}
	if len(d.Args) == 0 {
		return "println!()"
	}
	var tmpl []string
	var args []string
	for _, a := range d.Args {
		switch v := a.Data.(type) {
		case hir.FStringData:
			t, fargs := c.fstringParts(v)
			tmpl = append(tmpl, t)
			args = append(args, fargs...)
		case hir.LiteralData:
			if v.Kind == hir.LitStr {
				tmpl = append(tmpl, escapeBraces(v.Str))
				continue
			}
			tmpl = append(tmpl, "{}")
			args = append(args, c.exprText(a))
		default:
			tmpl = append(tmpl, "{}")
			args = append(args, c.exprText(a))
		}
	}
	joined := rustQuote(strings.Join(tmpl, escapeBraces(sep)))
	if len(args) == 0 {
		return fmt.Sprintf("%s(%s)", macro, joined)
	}
	return fmt.Sprintf("%s(%s, %s)", macro, joined, strings.Join(args, ", "))
}

func (c *fnCtx) rangeText(d hir.CallData) string {
	switch len(d.Args) {
	case 1:
		return fmt.Sprintf("0..%s", c.operandText(d.Args[0]))
	case 2:
		return fmt.Sprintf("%s..%s", c.operandText(d.Args[0]), c.operandText(d.Args[1]))
	case 3:
		if n, neg := negIntLit(d.Args[2]); neg {
			out := fmt.Sprintf("(%s + 1..%s + 1).rev()",
				c.operandText(d.Args[1]), c.operandText(d.Args[0]))
			if n > 1 {
				out += fmt.Sprintf(".step_by(%d)", n)
			}
			return out
		}
		return fmt.Sprintf("(%s..%s).step_by((%s) as usize)",
			c.operandText(d.Args[0]), c.operandText(d.Args[1]), c.exprText(d.Args[2]))
	}
	return "0..0"
}

func (c *fnCtx) intCastText(d hir.CallData, it string) string {
	if len(d.Args) == 0 {
		return "0"
	}
	arg := d.Args[0]
	if isStrType(c.exprType(arg)) {
		if c.canPropagate() {
			return fmt.Sprintf("%s.trim().parse::<%s>()?", c.postfixText(arg), it)
		}
		return fmt.Sprintf("%s.trim().parse::<%s>().unwrap_or_default()", c.postfixText(arg), it)
	}
	return fmt.Sprintf("(%s) as %s", c.exprText(arg), it)
}

func (c *fnCtx) floatCastText(d hir.CallData) string {
	if len(d.Args) == 0 {
		return "0.0"
	}
	arg := d.Args[0]
	if isStrType(c.exprType(arg)) {
		if c.canPropagate() {
			return fmt.Sprintf("%s.trim().parse::<f64>()?", c.postfixText(arg))
		}
		return fmt.Sprintf("%s.trim().parse::<f64>().unwrap_or_default()", c.postfixText(arg))
	}
	return fmt.Sprintf("(%s) as f64", c.exprText(arg))
}

func (c *fnCtx) minMaxText(d hir.CallData) string {
	name := d.Func
	if len(d.Args) == 1 {
		chain := c.iterArgChain(d.Args[0])
		elem := elemOf(c.exprType(d.Args[0]))
		msg := fmt.Sprintf("\"%s() arg is an empty sequence\"", name)
		if elem.Kind == hir.TypeFloat {
			method := "min_by"
			if name == "max" {
				method = "max_by"
			}
			return fmt.Sprintf("%s.%s(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal)).expect(%s)",
				chain, method, msg)
		}
		return fmt.Sprintf("%s.%s().expect(%s)", chain, name, msg)
	}
	// Scalar form folds pairwise.
	if c.exprType(d.Args[0]).Kind == hir.TypeFloat || c.exprType(d.Args[1]).Kind == hir.TypeFloat {
		out := c.postfixText(d.Args[0])
		for _, a := range d.Args[1:] {
			out = fmt.Sprintf("%s.%s(%s)", out, name, c.floatAdjust(a, hir.FloatT))
		}
		return out
	}
	out := c.exprText(d.Args[0])
	for _, a := range d.Args[1:] {
		out = fmt.Sprintf("std::cmp::%s(%s, %s)", name, out, c.exprText(a))
	}
	return out
}

func (c *fnCtx) sortedText(d hir.CallData) string {
	var b strings.Builder
	b.WriteString("{ let mut sorted_vec = ")
	b.WriteString(c.iterArgChain(d.Args[0]))
	b.WriteString(".collect::<Vec<_>>(); ")
	if key := kwargByName(d.Kwargs, "key"); key != nil {
		b.WriteString(fmt.Sprintf("sorted_vec.sort_by_key(%s); ", c.sortKeyText(key)))
	} else {
		b.WriteString("sorted_vec.sort_by(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal)); ")
	}
	if rev := kwargByName(d.Kwargs, "reverse"); rev != nil {
		if lit, ok := rev.Data.(hir.LiteralData); ok && lit.Kind == hir.LitBool && lit.Bool {
			b.WriteString("sorted_vec.reverse(); ")
		}
	}
	b.WriteString("sorted_vec }")
	return b.String()
}

// sortKeyText renders a key= argument as a sort_by_key closure, cloning
// the element so the key expression owns its input.
func (c *fnCtx) sortKeyText(key *hir.Expr) string {
	if lam, ok := key.Data.(hir.LambdaData); ok && len(lam.Params) == 1 {
		p := sanitizeIdent(lam.Params[0].Name)
		c.closureDepth++
		body := c.exprText(lam.Body)
		c.closureDepth--
		return fmt.Sprintf("|%s| { let %s = %s.clone(); %s }", p, p, p, body)
	}
	return fmt.Sprintf("|k| %s(k.clone())", c.exprText(key))
}

// callableText renders a function-valued argument for map-style
// consumers.
func (c *fnCtx) callableText(f *hir.Expr) string {
	if lam, ok := f.Data.(hir.LambdaData); ok {
		return c.lambdaText(lam)
	}
	return c.exprText(f)
}

// predicateText renders a predicate application over the binding name.
func (c *fnCtx) predicateText(f *hir.Expr, binding string) string {
	if lam, ok := f.Data.(hir.LambdaData); ok && len(lam.Params) == 1 {
		c.closureDepth++
		defer func() { c.closureDepth-- }()
		if p := sanitizeIdent(lam.Params[0].Name); p != binding {
			return fmt.Sprintf("{ let %s = %s; %s }", p, binding, c.condText(lam.Body))
		}
		return c.condText(lam.Body)
	}
	return fmt.Sprintf("%s(%s.clone())", c.exprText(f), binding)
}

func (c *fnCtx) inputText(d hir.CallData) string {
	var b strings.Builder
	b.WriteString("{ ")
	if len(d.Args) > 0 {
		c.gen.need(needIoWrite)
		b.WriteString(fmt.Sprintf("print!(\"{}\", %s); ", c.exprText(d.Args[0])))
		b.WriteString("std::io::stdout().flush().ok(); ")
	}
	b.WriteString("let mut line = String::new(); ")
	b.WriteString("std::io::stdin().read_line(&mut line).unwrap_or_default(); ")
	b.WriteString("line.trim_end().to_string() }")
	return b.String()
}

// openText renders open() by mode: read opens, write creates, append
// uses OpenOptions. The handle is fallible; outside a Result context it
// unwraps with a message.
func (c *fnCtx) openText(e *hir.Expr, d hir.CallData) string {
	if len(d.Args) == 0 {
		c.gen.internal(e.Span, "open() without a path")
		return "()"
	}
	path := c.lookupKeyText(d.Args[0])
	mode := "r"
	if len(d.Args) >= 2 {
		if lit, ok := d.Args[1].Data.(hir.LiteralData); ok && lit.Kind == hir.LitStr {
			mode = lit.Str
		}
	} else if kw := kwargByName(d.Kwargs, "mode"); kw != nil {
		if lit, ok := kw.Data.(hir.LiteralData); ok && lit.Kind == hir.LitStr {
			mode = lit.Str
		}
	}
	var call string
	switch {
	case strings.Contains(mode, "a"):
		call = fmt.Sprintf("std::fs::OpenOptions::new().append(true).create(true).open(%s)", path)
	case strings.Contains(mode, "w"):
		call = fmt.Sprintf("std::fs::File::create(%s)", path)
	default:
		call = fmt.Sprintf("std::fs::File::open(%s)", path)
	}
	if c.canPropagate() {
		return call + "?"
	}
	return call + ".expect(\"failed to open file\")"
}

// iterArgChain renders a call argument as an iterator chain; generator
// comprehensions pass through uncollected.
func (c *fnCtx) iterArgChain(e *hir.Expr) string {
	if comp, ok := e.Data.(hir.CompData); ok {
		return c.compChain(comp)
	}
	return c.iterChain(e)
}
