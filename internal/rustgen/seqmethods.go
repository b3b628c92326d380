package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
)

// strMethodText renders the string method vocabulary. With typed false
// the receiver's type is unknown and the ambiguous names (index, count)
// only claim string-shaped arguments.
func (c *fnCtx) strMethodText(recv string, d hir.MethodCallData, typed bool) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	it := c.gen.intTypeText()

	switch d.Method {
	case "upper":
		return recv + ".to_uppercase()", true
	case "lower", "casefold":
		return recv + ".to_lowercase()", true

	case "strip":
		if len(d.Args) > 0 {
			return fmt.Sprintf("%s.trim_matches(|ch: char| %s.contains(ch)).to_string()",
				recv, c.postfixText(arg(0))), true
		}
		return recv + ".trim().to_string()", true
	case "lstrip":
		if len(d.Args) > 0 {
			return fmt.Sprintf("%s.trim_start_matches(|ch: char| %s.contains(ch)).to_string()",
				recv, c.postfixText(arg(0))), true
		}
		return recv + ".trim_start().to_string()", true
	case "rstrip":
		if len(d.Args) > 0 {
			return fmt.Sprintf("%s.trim_end_matches(|ch: char| %s.contains(ch)).to_string()",
				recv, c.postfixText(arg(0))), true
		}
		return recv + ".trim_end().to_string()", true

	case "split":
		if len(d.Args) == 0 || arg(0).IsNoneLiteral() {
			return recv + ".split_whitespace().map(|s| s.to_string()).collect::<Vec<_>>()", true
		}
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.splitn((%s) + 1, %s).map(|s| s.to_string()).collect::<Vec<_>>()",
				recv, c.exprText(arg(1)), c.patternText(arg(0))), true
		}
		return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<_>>()",
			recv, c.patternText(arg(0))), true
	case "rsplit":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("{ let mut parts = %s.rsplitn((%s) + 1, %s).map(|s| s.to_string()).collect::<Vec<_>>(); parts.reverse(); parts }",
				recv, c.exprText(arg(1)), c.patternText(arg(0))), true
		}
		if len(d.Args) == 1 {
			return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<_>>()",
				recv, c.patternText(arg(0))), true
		}
		return recv + ".split_whitespace().map(|s| s.to_string()).collect::<Vec<_>>()", true
	case "splitlines":
		return recv + ".lines().map(|s| s.to_string()).collect::<Vec<_>>()", true
	case "partition":
		return fmt.Sprintf("{ let sep = %s; match %s.find(sep) { Some(i) => (%s[..i].to_string(), sep.to_string(), %s[i + sep.len()..].to_string()), None => (%s.to_string(), String::new(), String::new()) } }",
			c.patternText(arg(0)), recv, recv, recv, recv), true

	case "join":
		return c.joinText(recv, arg(0)), true

	case "replace":
		if len(d.Args) >= 3 {
			return fmt.Sprintf("%s.replacen(%s, %s, (%s) as usize)",
				recv, c.patternText(arg(0)), c.patternText(arg(1)), c.exprText(arg(2))), true
		}
		return fmt.Sprintf("%s.replace(%s, %s)",
			recv, c.patternText(arg(0)), c.patternText(arg(1))), true

	case "startswith":
		return fmt.Sprintf("%s.starts_with(%s)", recv, c.patternText(arg(0))), true
	case "endswith":
		return fmt.Sprintf("%s.ends_with(%s)", recv, c.patternText(arg(0))), true

	case "find":
		return fmt.Sprintf("%s.find(%s).map(|i| i as %s).unwrap_or(-1)",
			recv, c.patternText(arg(0)), it), true
	case "rfind":
		return fmt.Sprintf("%s.rfind(%s).map(|i| i as %s).unwrap_or(-1)",
			recv, c.patternText(arg(0)), it), true

	case "index", "rindex":
		if !typed && !c.strShaped(arg(0)) {
			break
		}
		finder := "find"
		if d.Method == "rindex" {
			finder = "rfind"
		}
		return fmt.Sprintf("%s.%s(%s).map(|i| i as %s).expect(\"ValueError: substring not found\")",
			recv, finder, c.patternText(arg(0)), it), true

	case "count":
		if !typed && !c.strShaped(arg(0)) {
			break
		}
		return fmt.Sprintf("%s.matches(%s).count() as %s", recv, c.patternText(arg(0)), it), true

	case "format":
		return c.strFormatText(recv, d), true

	case "title":
		return fmt.Sprintf("%s.split_whitespace().map(|word| { let mut chars = word.chars(); match chars.next() { Some(first) => first.to_uppercase().collect::<String>() + &chars.as_str().to_lowercase(), None => String::new() } }).collect::<Vec<_>>().join(\" \")", recv), true
	case "capitalize":
		return fmt.Sprintf("{ let mut chars = %s.chars(); match chars.next() { Some(first) => first.to_uppercase().collect::<String>() + &chars.as_str().to_lowercase(), None => String::new() } }", recv), true
	case "swapcase":
		return fmt.Sprintf("%s.chars().map(|ch| if ch.is_uppercase() { ch.to_lowercase().to_string() } else { ch.to_uppercase().to_string() }).collect::<String>()", recv), true

	case "zfill":
		return fmt.Sprintf("format!(\"{:0>width$}\", %s, width = (%s) as usize)", recv, c.exprText(arg(0))), true
	case "ljust":
		return fmt.Sprintf("format!(\"{:<width$}\", %s, width = (%s) as usize)", recv, c.exprText(arg(0))), true
	case "rjust":
		return fmt.Sprintf("format!(\"{:>width$}\", %s, width = (%s) as usize)", recv, c.exprText(arg(0))), true
	case "center":
		return fmt.Sprintf("format!(\"{:^width$}\", %s, width = (%s) as usize)", recv, c.exprText(arg(0))), true

	case "isdigit", "isdecimal":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|ch| ch.is_ascii_digit())", recv, recv), true
	case "isnumeric":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|ch| ch.is_numeric())", recv, recv), true
	case "isalpha":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|ch| ch.is_alphabetic())", recv, recv), true
	case "isalnum":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|ch| ch.is_alphanumeric())", recv, recv), true
	case "isspace":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().all(|ch| ch.is_whitespace())", recv, recv), true
	case "isupper":
		return fmt.Sprintf("%s.chars().any(|ch| ch.is_uppercase()) && !%s.chars().any(|ch| ch.is_lowercase())", recv, recv), true
	case "islower":
		return fmt.Sprintf("%s.chars().any(|ch| ch.is_lowercase()) && !%s.chars().any(|ch| ch.is_uppercase())", recv, recv), true
	case "isidentifier":
		return fmt.Sprintf("!%s.is_empty() && %s.chars().enumerate().all(|(i, ch)| if i == 0 { ch.is_alphabetic() || ch == '_' } else { ch.is_alphanumeric() || ch == '_' })", recv, recv), true
	case "istitle":
		return fmt.Sprintf("!%s.is_empty() && %s.split_whitespace().all(|word| word.chars().next().map(|ch| ch.is_uppercase()).unwrap_or(false))", recv, recv), true

	case "encode":
		return recv + ".as_bytes().to_vec()", true
	case "expandtabs":
		return fmt.Sprintf("%s.replace('\\t', \"        \")", recv), true
	}
	return "", false
}

// strShaped reports whether an argument looks like a string, used to
// pick the string interpretation of an ambiguous method name.
func (c *fnCtx) strShaped(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	return isStrLit(e) || isStrType(c.exprType(e))
}

// joinText renders sep.join(xs), swapping receiver and argument. A
// collected iterable joins directly; anything lazy collects first.
func (c *fnCtx) joinText(sep string, items *hir.Expr) string {
	sepArg := sep
	if !strings.HasPrefix(sep, "\"") {
		sepArg = "&" + sep
	}
	if items == nil {
		return "String::new()"
	}
	if _, ok := items.Data.(hir.CompData); ok {
		return fmt.Sprintf("%s.collect::<Vec<_>>().join(%s)", c.compChain(items.Data.(hir.CompData)), sepArg)
	}
	if isListType(c.exprType(items)) {
		return fmt.Sprintf("%s.join(%s)", c.postfixText(items), sepArg)
	}
	return fmt.Sprintf("%s.collect::<Vec<String>>().join(%s)", c.iterChain(items), sepArg)
}

// strFormatText renders "...".format(args). Python's {} placeholders
// carry over to format! directly; keyword arguments become named ones.
func (c *fnCtx) strFormatText(recv string, d hir.MethodCallData) string {
	if !strings.HasPrefix(recv, "\"") {
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, d.Object.Span,
			"format() with a non-literal template degrades to the template itself").Emit()
		return recv + ".to_string()"
	}
	parts := make([]string, 0, len(d.Args)+len(d.Kwargs))
	for _, a := range d.Args {
		parts = append(parts, c.exprText(a))
	}
	for _, kw := range d.Kwargs {
		parts = append(parts, fmt.Sprintf("%s = %s", sanitizeIdent(kw.Name), c.exprText(kw.Value)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("format!(%s)", recv)
	}
	return fmt.Sprintf("format!(%s, %s)", recv, strings.Join(parts, ", "))
}

// listMethodText renders the list method vocabulary against a Vec.
func (c *fnCtx) listMethodText(recv string, d hir.MethodCallData, elem *hir.Type, typed bool) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	it := c.gen.intTypeText()

	switch d.Method {
	case "append":
		return fmt.Sprintf("%s.push(%s)", recv, c.valueText(arg(0), elem)), true
	case "extend":
		return fmt.Sprintf("%s.extend(%s)", recv, c.iterArgChain(arg(0))), true
	case "insert":
		return fmt.Sprintf("%s.insert((%s) as usize, %s)",
			recv, c.exprText(arg(0)), c.valueText(arg(1), elem)), true

	case "pop":
		if len(d.Args) == 0 {
			return fmt.Sprintf("%s.pop().unwrap_or_default()", recv), true
		}
		if !typed && c.strShaped(arg(0)) {
			// String-keyed pop belongs to dicts.
			break
		}
		return fmt.Sprintf("%s.remove((%s) as usize)", recv, c.exprText(arg(0))), true

	case "remove":
		needle := c.valueText(arg(0), elem)
		return fmt.Sprintf("{ if let Some(pos) = %s.iter().position(|item| *item == %s) { %s.remove(pos); } else { panic!(\"ValueError: list.remove(x): x not in list\"); } }",
			recv, needle, recv), true

	case "index":
		return fmt.Sprintf("%s.iter().position(|item| *item == %s).map(|i| i as %s).expect(\"ValueError: value is not in list\")",
			recv, c.valueText(arg(0), elem), it), true
	case "count":
		return fmt.Sprintf("%s.iter().filter(|item| **item == %s).count() as %s",
			recv, c.valueText(arg(0), elem), it), true

	case "sort":
		var steps []string
		if key := kwargByName(d.Kwargs, "key"); key != nil {
			steps = append(steps, fmt.Sprintf("%s.sort_by_key(%s);", recv, c.sortKeyText(key)))
		} else {
			steps = append(steps, fmt.Sprintf("%s.sort_by(|a, b| a.partial_cmp(b).unwrap_or(std::cmp::Ordering::Equal));", recv))
		}
		if rev := kwargByName(d.Kwargs, "reverse"); rev != nil {
			if lit, ok := rev.Data.(hir.LiteralData); ok && lit.Kind == hir.LitBool && lit.Bool {
				steps = append(steps, fmt.Sprintf("%s.reverse();", recv))
			}
		}
		if len(steps) == 1 {
			return strings.TrimSuffix(steps[0], ";"), true
		}
		return "{ " + strings.Join(steps, " ") + " }", true

	case "reverse":
		return recv + ".reverse()", true
	}
	return "", false
}

// dictMethodText renders the dict method vocabulary against a HashMap.
func (c *fnCtx) dictMethodText(recv string, d hir.MethodCallData, dt *hir.Type, typed bool) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	key, val := dt.Key(), dt.Value()

	switch d.Method {
	case "get":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.get(%s).cloned().unwrap_or(%s)",
				recv, c.lookupKeyText(arg(0)), c.valueText(arg(1), val)), true
		}
		return fmt.Sprintf("%s.get(%s).cloned()", recv, c.lookupKeyText(arg(0))), true

	case "keys":
		return fmt.Sprintf("%s.keys().cloned().collect::<Vec<_>>()", recv), true
	case "values":
		return fmt.Sprintf("%s.values().cloned().collect::<Vec<_>>()", recv), true
	case "items":
		return fmt.Sprintf("%s.iter().map(|(k, v)| (k.clone(), v.clone())).collect::<Vec<_>>()", recv), true

	case "pop":
		if len(d.Args) == 0 {
			break
		}
		if !typed && !c.strShaped(arg(0)) {
			break
		}
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.remove(%s).unwrap_or(%s)",
				recv, c.lookupKeyText(arg(0)), c.valueText(arg(1), val)), true
		}
		if c.canPropagate() {
			return fmt.Sprintf("%s.remove(%s).ok_or(\"KeyError: key not found\")?", recv, c.lookupKeyText(arg(0))), true
		}
		return fmt.Sprintf("%s.remove(%s).expect(\"KeyError: key not found\")", recv, c.lookupKeyText(arg(0))), true

	case "setdefault":
		return fmt.Sprintf("%s.entry(%s).or_insert(%s).clone()",
			recv, c.valueText(arg(0), key), c.valueText(arg(1), val)), true

	case "update":
		if !typed && !c.dictShaped(arg(0)) {
			// An untyped update with a bytes-like argument is the sha2
			// digest protocol.
			if c.strShaped(arg(0)) || c.bytesShaped(arg(0)) {
				c.gen.need(needSha2Digest)
				return fmt.Sprintf("%s.update(%s)", recv, c.lookupKeyText(arg(0))), true
			}
		}
		return fmt.Sprintf("{ for (k, v) in %s.iter() { %s.insert(k.clone(), v.clone()); } }",
			c.postfixText(arg(0)), recv), true

	case "most_common":
		out := fmt.Sprintf("{ let mut pairs = %s.iter().map(|(k, v)| (k.clone(), v.clone())).collect::<Vec<_>>(); pairs.sort_by(|a, b| b.1.cmp(&a.1));", recv)
		if len(d.Args) > 0 {
			out += fmt.Sprintf(" pairs.truncate((%s) as usize);", c.exprText(arg(0)))
		}
		return out + " pairs }", true
	}
	return "", false
}

func (c *fnCtx) dictShaped(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	if _, ok := e.Data.(hir.DictData); ok {
		return true
	}
	return isDictType(c.exprType(e))
}

func (c *fnCtx) bytesShaped(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	if lit, ok := e.Data.(hir.LiteralData); ok && lit.Kind == hir.LitBytes {
		return true
	}
	return c.exprType(e).Kind == hir.TypeBytes
}

// setMethodText renders the set method vocabulary against a HashSet.
func (c *fnCtx) setMethodText(recv string, d hir.MethodCallData, elem *hir.Type, typed bool) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	other := func() string { return c.postfixText(arg(0)) }

	switch d.Method {
	case "add":
		return fmt.Sprintf("%s.insert(%s)", recv, c.valueText(arg(0), elem)), true
	case "discard":
		return fmt.Sprintf("%s.remove(%s)", recv, c.lookupKeyText(arg(0))), true

	case "remove":
		if !typed {
			break
		}
		return fmt.Sprintf("{ if !%s.remove(%s) { panic!(\"KeyError: element not in set\"); } }",
			recv, c.lookupKeyText(arg(0))), true

	case "union":
		c.gen.need(needHashSet)
		return fmt.Sprintf("%s.union(&%s).cloned().collect::<HashSet<_>>()", recv, other()), true
	case "intersection":
		c.gen.need(needHashSet)
		return fmt.Sprintf("%s.intersection(&%s).cloned().collect::<HashSet<_>>()", recv, other()), true
	case "difference":
		c.gen.need(needHashSet)
		return fmt.Sprintf("%s.difference(&%s).cloned().collect::<HashSet<_>>()", recv, other()), true
	case "symmetric_difference":
		c.gen.need(needHashSet)
		return fmt.Sprintf("%s.symmetric_difference(&%s).cloned().collect::<HashSet<_>>()", recv, other()), true

	case "issubset":
		return fmt.Sprintf("%s.is_subset(&%s)", recv, other()), true
	case "issuperset":
		return fmt.Sprintf("%s.is_superset(&%s)", recv, other()), true
	case "isdisjoint":
		return fmt.Sprintf("%s.is_disjoint(&%s)", recv, other()), true

	case "pop":
		if !typed || len(d.Args) > 0 {
			break
		}
		return fmt.Sprintf("{ let item = %s.iter().next().cloned().expect(\"KeyError: pop from an empty set\"); %s.remove(&item); item }",
			recv, recv), true
	}
	return "", false
}

// dequeMethodText renders the deque vocabulary against a VecDeque. The
// left-end names are deque-only; append and pop are claimed here only
// when the receiver is known to be a deque, since the list table wins
// the name-based chain.
func (c *fnCtx) dequeMethodText(recv string, d hir.MethodCallData) (string, bool) {
	arg := func(i int) *hir.Expr { return argAt(d.Args, i) }
	switch d.Method {
	case "popleft":
		return fmt.Sprintf("%s.pop_front().unwrap_or_default()", recv), true
	case "appendleft":
		return fmt.Sprintf("%s.push_front(%s)", recv, c.exprText(arg(0))), true
	case "extendleft":
		return fmt.Sprintf("{ for item in %s { %s.push_front(item); } }",
			c.iterArgChain(arg(0)), recv), true
	case "append":
		return fmt.Sprintf("%s.push_back(%s)", recv, c.exprText(arg(0))), true
	case "pop":
		if len(d.Args) > 0 {
			break
		}
		return fmt.Sprintf("%s.pop_back().unwrap_or_default()", recv), true
	}
	return "", false
}
