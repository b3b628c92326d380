package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/hir"
)

// methodCallText renders obj.method(args). Module receivers route to
// the module dispatch, class-name receivers to associated functions,
// and value receivers through the typed method tables. A receiver of
// unknown type falls back to name-based dispatch, which resolves the
// common Python vocabulary unambiguously often enough to be useful.
func (c *fnCtx) methodCallText(e *hir.Expr, d hir.MethodCallData) string {
	if mod, ok := c.gen.moduleFor(d.Object); ok {
		return c.moduleCallText(e, mod, d.Method, hir.CallData{Func: d.Method, Args: d.Args, Kwargs: d.Kwargs})
	}
	if attr, ok := d.Object.Data.(hir.AttributeData); ok {
		if mod, ok := c.gen.moduleFor(attr.Value); ok {
			return c.moduleTypeMethodText(e, mod, attr.Attr, d)
		}
	}
	if v, ok := d.Object.Data.(hir.VarData); ok && c.varType(v.Name).IsUnknown() {
		if mod, ok := c.gen.importedItems[v.Name]; ok {
			return c.moduleTypeMethodText(e, mod, c.gen.itemNames[v.Name], d)
		}
		if cl, ok := c.gen.classes[v.Name]; ok {
			return c.staticCallText(e, cl, d)
		}
	}

	recv := c.postfixText(d.Object)
	ot := c.exprType(d.Object)
	switch {
	case isStrType(ot):
		if text, ok := c.strMethodText(recv, d, true); ok {
			return text
		}
	case isListType(ot):
		if text, ok := c.listMethodText(recv, d, ot.Elem(), true); ok {
			return text
		}
	case isDictType(ot):
		if text, ok := c.dictMethodText(recv, d, ot, true); ok {
			return text
		}
	case isSetType(ot):
		if text, ok := c.setMethodText(recv, d, ot.Elem(), true); ok {
			return text
		}
	case ot.Kind == hir.TypeCustom:
		if cl, ok := c.gen.classes[ot.Name]; ok {
			return c.userMethodCallText(e, cl, d)
		}
		if ot.Name == "deque" {
			if text, ok := c.dequeMethodText(recv, d); ok {
				return text
			}
		}
	}

	if text, ok := c.namedMethodText(recv, d); ok {
		return text
	}
	return fmt.Sprintf("%s.%s(%s)", recv, sanitizeIdent(d.Method), c.plainArgs(d.Args))
}

// namedMethodText dispatches on the method name alone. The overlapping
// names (index, count, pop, update) disambiguate on argument types.
func (c *fnCtx) namedMethodText(recv string, d hir.MethodCallData) (string, bool) {
	if text, ok := c.strMethodText(recv, d, false); ok {
		return text, true
	}
	if text, ok := c.listMethodText(recv, d, hir.Unknown, false); ok {
		return text, true
	}
	if text, ok := c.dictMethodText(recv, d, hir.DictOf(hir.Unknown, hir.Unknown), false); ok {
		return text, true
	}
	if text, ok := c.setMethodText(recv, d, hir.Unknown, false); ok {
		return text, true
	}
	if text, ok := c.dequeMethodText(recv, d); ok {
		return text, true
	}
	if text, ok := c.hasherMethodText(recv, d); ok {
		return text, true
	}
	if text, ok := c.fileMethodText(recv, d); ok {
		return text, true
	}
	if text, ok := c.regexObjectMethodText(recv, d); ok {
		return text, true
	}
	if text, ok := c.chronoMethodText(recv, d); ok {
		return text, true
	}
	switch d.Method {
	case "group":
		if len(d.Args) == 0 || isIntLit(argAt(d.Args, 0)) {
			t := c.exprType(d.Object)
			switch {
			case t != nil && t.Kind == hir.TypeCustom && t.Name == regexMatchType:
				return recv + ".as_str().to_string()", true
			case t != nil && t.Kind == hir.TypeStr:
				// Narrowed inside an if-let, the text itself.
				return recv + ".clone()", true
			}
			// A stored search result is Option<String>; group() unwraps it.
			return fmt.Sprintf("%s.clone().unwrap_or_default()", recv), true
		}
	case "copy":
		return recv + ".clone()", true
	case "clear":
		return recv + ".clear()", true
	}
	return "", false
}

func argAt(args []*hir.Expr, i int) *hir.Expr {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// userMethodCallText renders a call against a known class with the
// callee's borrow signature applied to the arguments.
func (c *fnCtx) userMethodCallText(e *hir.Expr, cl *hir.Class, d hir.MethodCallData) string {
	m := cl.Method(d.Method)
	if m == nil {
		return fmt.Sprintf("%s.%s(%s)", c.postfixText(d.Object),
			sanitizeIdent(dunderName(d.Method)), c.plainArgs(d.Args))
	}
	var sig *borrows.FunctionSignature
	if c.gen.sigs != nil {
		sig = c.gen.sigs.Method(cl.Name, d.Method)
	}
	call := fmt.Sprintf("%s.%s(%s)", c.postfixText(d.Object), sanitizeIdent(dunderName(d.Method)),
		c.callArgs(e, m, sig, d.Args, d.Kwargs))
	if c.gen.calleeFallible(d.Method) {
		if c.canPropagate() {
			return call + "?"
		}
		return call + ".unwrap()"
	}
	return call
}

// staticCallText renders ClassName.method(args) as an associated call.
func (c *fnCtx) staticCallText(e *hir.Expr, cl *hir.Class, d hir.MethodCallData) string {
	m := cl.Method(d.Method)
	if m == nil {
		return fmt.Sprintf("%s::%s(%s)", sanitizeIdent(cl.Name), sanitizeIdent(d.Method), c.plainArgs(d.Args))
	}
	var sig *borrows.FunctionSignature
	if c.gen.sigs != nil {
		sig = c.gen.sigs.Method(cl.Name, d.Method)
	}
	call := fmt.Sprintf("%s::%s(%s)", sanitizeIdent(cl.Name), sanitizeIdent(d.Method),
		c.callArgs(e, m, sig, d.Args, d.Kwargs))
	if c.gen.calleeFallible(d.Method) {
		if c.canPropagate() {
			return call + "?"
		}
		return call + ".unwrap()"
	}
	return call
}

// moduleTypeMethodText renders Type.method(...) for types that live in
// mapped modules, datetime.datetime.now() being the canonical case.
func (c *fnCtx) moduleTypeMethodText(e *hir.Expr, module, item string, d hir.MethodCallData) string {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	switch module {
	case "datetime":
		switch item + "." + d.Method {
		case "datetime.now":
			return "chrono::Local::now().naive_local()"
		case "datetime.utcnow":
			return "chrono::Utc::now().naive_utc()"
		case "date.today":
			return "chrono::Local::now().date_naive()"
		case "datetime.fromisoformat":
			return fmt.Sprintf("chrono::NaiveDateTime::parse_from_str(%s, \"%%Y-%%m-%%dT%%H:%%M:%%S\").expect(\"invalid datetime\")",
				c.patternArg(arg(0)))
		case "date.fromisoformat":
			return fmt.Sprintf("chrono::NaiveDate::parse_from_str(%s, \"%%Y-%%m-%%d\").expect(\"invalid date\")",
				c.patternArg(arg(0)))
		case "datetime.strptime":
			return fmt.Sprintf("chrono::NaiveDateTime::parse_from_str(%s, %s).expect(\"invalid datetime\")",
				c.patternArg(arg(0)), c.patternText(arg(1)))
		}
		// datetime.date(...) and friends construct.
		return c.moduleCallText(e, module, item, hir.CallData{Func: item, Args: d.Args, Kwargs: d.Kwargs})
	}
	mapping, ok := c.gen.modules.Lookup(module)
	if ok {
		if target, known := mapping.Items[item]; known && target != "" {
			path := target
			if mapping.RustPath != "" && !strings.HasPrefix(target, "std::") {
				path = mapping.RustPath + "::" + target
			}
			return fmt.Sprintf("%s::%s(%s)", path, sanitizeIdent(d.Method), c.plainArgs(d.Args))
		}
	}
	return c.genericModuleCall(e, module, item+"."+d.Method, hir.CallData{Args: d.Args, Kwargs: d.Kwargs})
}

// hasherMethodText covers the sha2 digest protocol.
func (c *fnCtx) hasherMethodText(recv string, d hir.MethodCallData) (string, bool) {
	switch d.Method {
	case "hexdigest":
		c.gen.need(needSha2Digest)
		return fmt.Sprintf("format!(\"{:x}\", %s.finalize())", recv), true
	case "digest":
		c.gen.need(needSha2Digest)
		return fmt.Sprintf("%s.finalize().to_vec()", recv), true
	}
	return "", false
}

func (c *fnCtx) fileMethodText(recv string, d hir.MethodCallData) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	switch d.Method {
	case "read":
		c.gen.need(needIoRead)
		if c.canPropagate() {
			return fmt.Sprintf("{ let mut contents = String::new(); %s.read_to_string(&mut contents)?; contents }", recv), true
		}
		return fmt.Sprintf("{ let mut contents = String::new(); %s.read_to_string(&mut contents).unwrap_or_default(); contents }", recv), true
	case "readlines":
		c.gen.need(needBufRead)
		return fmt.Sprintf("std::io::BufReader::new(%s).lines().map(|l| l.unwrap_or_default()).collect::<Vec<_>>()", recv), true
	case "readline":
		c.gen.need(needBufRead)
		return fmt.Sprintf("{ let mut line = String::new(); std::io::BufReader::new(&mut %s).read_line(&mut line).unwrap_or_default(); line }", recv), true
	case "write":
		c.gen.need(needIoWrite)
		call := fmt.Sprintf("%s.write_all(%s.as_bytes())", recv, c.postfixText(arg(0)))
		if c.canPropagate() {
			return call + "?", true
		}
		return call + ".ok()", true
	case "writelines":
		c.gen.need(needIoWrite)
		return fmt.Sprintf("{ for line in %s.iter() { %s.write_all(line.as_bytes()).ok(); } }",
			c.postfixText(arg(0)), recv), true
	case "flush":
		c.gen.need(needIoWrite)
		return recv + ".flush().ok()", true
	case "close":
		return fmt.Sprintf("drop(%s)", recv), true
	case "writerow":
		return fmt.Sprintf("%s.write_record(&%s).ok()", recv, c.postfixText(arg(0))), true
	case "writerows":
		return fmt.Sprintf("{ for row in %s.iter() { %s.write_record(row).ok(); } }",
			c.postfixText(arg(0)), recv), true
	}
	return "", false
}

// regexMatchType marks an if-let binding that holds a regex::Match.
// The double colon keeps it clear of any user class name.
const regexMatchType = "regex::Match"

// regexObjectMethodText covers compiled patterns. split stays out: on
// an untyped receiver it belongs to strings.
func (c *fnCtx) regexObjectMethodText(recv string, d hir.MethodCallData) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	switch d.Method {
	case "search":
		return fmt.Sprintf("%s.find(%s).map(|m| m.as_str().to_string())", recv, c.patternArg(arg(0))), true
	case "match", "fullmatch":
		return fmt.Sprintf("%s.is_match(%s)", recv, c.patternArg(arg(0))), true
	case "findall", "finditer":
		return fmt.Sprintf("%s.find_iter(%s).map(|m| m.as_str().to_string()).collect::<Vec<_>>()",
			recv, c.patternArg(arg(0))), true
	case "sub":
		return fmt.Sprintf("%s.replace_all(%s, %s).to_string()",
			recv, c.patternArg(arg(1)), c.patternText(arg(0))), true
	}
	return "", false
}

// chronoMethodText covers instance methods on mapped datetime values.
func (c *fnCtx) chronoMethodText(recv string, d hir.MethodCallData) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	switch d.Method {
	case "isoformat":
		return fmt.Sprintf("%s.format(\"%%Y-%%m-%%dT%%H:%%M:%%S\").to_string()", recv), true
	case "strftime":
		// chrono shares the strftime specifier vocabulary.
		return fmt.Sprintf("%s.format(%s).to_string()", recv, c.patternText(arg(0))), true
	case "total_seconds":
		return fmt.Sprintf("%s.num_seconds() as f64", recv), true
	case "weekday":
		return fmt.Sprintf("%s.weekday().num_days_from_monday() as %s", recv, c.gen.intTypeText()), true
	}
	return "", false
}
