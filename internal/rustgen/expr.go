package rustgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
)

// exprText renders one expression as Rust source.
func (c *fnCtx) exprText(e *hir.Expr) string {
	if e == nil {
		return "()"
	}
	switch d := e.Data.(type) {
	case hir.LiteralData:
		return literalText(d)
	case hir.VarData:
		return c.varText(d.Name)
	case hir.BinaryData:
		return c.binaryText(e, d)
	case hir.UnaryData:
		return c.unaryText(d)
	case hir.CallData:
		return c.callText(e, d)
	case hir.MethodCallData:
		return c.methodCallText(e, d)
	case hir.AttributeData:
		return c.attributeText(e, d)
	case hir.IndexData:
		return c.indexText(d)
	case hir.SliceData:
		return c.sliceText(d)
	case hir.ListData:
		return c.listText(d)
	case hir.TupleData:
		return c.tupleText(d)
	case hir.SetData:
		return c.setText(d.Elems)
	case hir.FrozenSetData:
		return c.setText(d.Elems)
	case hir.DictData:
		return c.dictText(d)
	case hir.CompData:
		return c.compText(d)
	case hir.LambdaData:
		return c.lambdaText(d)
	case hir.NamedData:
		return c.namedText(d)
	case hir.IfExpData:
		return fmt.Sprintf("if %s { %s } else { %s }",
			c.condText(d.Cond), c.exprText(d.Then), c.exprText(d.Else))
	case hir.FStringData:
		return c.fstringText(d)
	case hir.BorrowData:
		if d.Mut {
			return "&mut " + c.exprText(d.Expr)
		}
		return "&" + c.exprText(d.Expr)
	case hir.AwaitData:
		return c.postfixText(d.Value) + ".await"
	case hir.StarredData:
		return c.exprText(d.Value)
	}
	c.gen.internal(e.Span, "expression %s has no payload", e.Kind)
	return "()"
}

func (c *fnCtx) varText(name string) string {
	if c.class != nil && name == c.fn.Receiver {
		return "self"
	}
	return sanitizeIdent(name)
}

// literalText renders a constant. Raw spellings are preserved where
// Rust shares the form: hex, octal, binary, underscored digits and
// exponent floats all pass through.
func literalText(lit hir.LiteralData) string {
	switch lit.Kind {
	case hir.LitInt:
		if lit.Raw != "" {
			return lit.Raw
		}
		return strconv.FormatInt(lit.Int, 10)
	case hir.LitFloat:
		if lit.Raw != "" && strings.ContainsAny(lit.Raw, ".eE") {
			return lit.Raw
		}
		s := strconv.FormatFloat(lit.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case hir.LitStr:
		return rustQuote(lit.Str)
	case hir.LitBytes:
		return rustByteQuote(lit.Str)
	case hir.LitBool:
		if lit.Bool {
			return "true"
		}
		return "false"
	default:
		return "()"
	}
}

// valueText renders e coerced toward the wanted source type: bare
// string literals become owned, integer literals take float spelling,
// bare values in Optional position wrap in Some.
func (c *fnCtx) valueText(e *hir.Expr, want *hir.Type) string {
	if e == nil {
		return "()"
	}
	if want == nil || want.IsUnknown() {
		return c.exprText(e)
	}
	switch want.Kind {
	case hir.TypeStr:
		if isStrLit(e) || c.isBorrowedStr(e) {
			return c.exprText(e) + ".to_string()"
		}
	case hir.TypeFloat:
		if lit, ok := e.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt {
			return fmt.Sprintf("%d.0", lit.Int)
		}
	case hir.TypeOptional:
		if e.IsNoneLiteral() {
			return "None"
		}
		if t := c.exprType(e); t.Kind != hir.TypeOptional {
			return "Some(" + c.valueText(e, want.Elem()) + ")"
		}
	}
	return c.exprText(e)
}

func (c *fnCtx) attributeText(e *hir.Expr, d hir.AttributeData) string {
	// Module members resolve through the import table: math.pi lands on
	// std::f64::consts::PI.
	if mod, ok := c.gen.moduleFor(d.Value); ok {
		return c.moduleAttrText(e, mod, d.Attr)
	}
	// Class constants read through the type: Config.MAX -> Config::MAX.
	if v, ok := d.Value.Data.(hir.VarData); ok {
		if cl, isClass := c.gen.classes[v.Name]; isClass && c.varType(v.Name).IsUnknown() {
			for i := range cl.Constants {
				if cl.Constants[i].Name == d.Attr {
					return sanitizeIdent(cl.Name) + "::" + sanitizeIdent(d.Attr)
				}
			}
		}
	}
	// Properties are methods on the Rust side.
	if t := c.exprType(d.Value); t != nil && t.Kind == hir.TypeCustom {
		if cl, ok := c.gen.classes[t.Name]; ok {
			if m := cl.Method(d.Attr); m != nil && m.Method == hir.MethodProperty {
				return c.postfixText(d.Value) + "." + sanitizeIdent(d.Attr) + "()"
			}
		}
	}
	return c.postfixText(d.Value) + "." + sanitizeIdent(d.Attr)
}

// moduleAttrText renders module.attr outside call position.
func (c *fnCtx) moduleAttrText(e *hir.Expr, mod, attr string) string {
	mapping, ok := c.gen.modules.Lookup(mod)
	if !ok {
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, e.Span,
			fmt.Sprintf("no mapping for %s.%s", mod, attr)).Emit()
		return "()"
	}
	target, known := mapping.Items[attr]
	if !known || target == "" {
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, e.Span,
			fmt.Sprintf("no mapping for %s.%s", mod, attr)).Emit()
		return "()"
	}
	path := target
	if mapping.RustPath != "" && !strings.HasPrefix(target, "std::") {
		path = mapping.RustPath + "::" + target
	}
	// Stream handles are nullary calls, not statics; argv and environ
	// collect so that indexing and lookups work.
	switch attr {
	case "stdin", "stdout", "stderr":
		return path + "()"
	case "argv":
		return path + "().collect::<Vec<String>>()"
	case "environ":
		c.gen.need(needHashMap)
		return path + "().collect::<HashMap<String, String>>()"
	}
	return path
}

func (c *fnCtx) indexText(d hir.IndexData) string {
	bt := c.exprType(d.Base)
	base := c.postfixText(d.Base)

	// Keyed lookups: dict receivers, or string-typed keys over unknown
	// receivers.
	if isDictType(bt) || (bt.IsUnknown() && isStrType(c.exprType(d.Index))) {
		key := c.lookupKeyText(d.Index)
		if c.canPropagate() {
			return fmt.Sprintf("%s.get(%s).cloned().ok_or(\"KeyError: key not found\")?", base, key)
		}
		return fmt.Sprintf("%s.get(%s).cloned().unwrap_or_default()", base, key)
	}

	if isStrType(bt) {
		return c.strIndexText(base, d.Index)
	}

	if bt.Kind == hir.TypeTuple {
		if lit, ok := d.Index.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt && lit.Int >= 0 {
			return fmt.Sprintf("%s.%d", base, lit.Int)
		}
	}

	// Sequence access. Negative literals count from the end.
	if n, neg := negIntLit(d.Index); neg {
		expr := fmt.Sprintf("{ let base = &%s; base.get(base.len().saturating_sub(%d)).cloned()", c.exprText(d.Base), n)
		if c.canPropagate() {
			return expr + ".ok_or(\"IndexError: list index out of range\")? }"
		}
		return expr + ".unwrap_or_default() }"
	}
	if c.canPropagate() {
		return fmt.Sprintf("%s.get((%s) as usize).cloned().ok_or(\"IndexError: list index out of range\")?",
			base, c.exprText(d.Index))
	}
	return fmt.Sprintf("%s.get((%s) as usize).cloned().unwrap_or_default()", base, c.exprText(d.Index))
}

// strIndexText renders single-character access on a string, producing
// an owned one-character string as the source semantics require.
func (c *fnCtx) strIndexText(base string, index *hir.Expr) string {
	if n, neg := negIntLit(index); neg {
		return fmt.Sprintf("{ let i = %s.len().saturating_sub(%d); %s.get(i..=i).unwrap_or(\"\").to_string() }",
			base, n, base)
	}
	if lit, ok := index.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt {
		return fmt.Sprintf("%s.get(%d..=%d).unwrap_or(\"\").to_string()", base, lit.Int, lit.Int)
	}
	return fmt.Sprintf("{ let i = (%s) as usize; %s.get(i..=i).unwrap_or(\"\").to_string() }",
		c.exprText(index), base)
}

// negIntLit matches a negative integer literal, lowered either as a
// negative constant or as unary negation of one.
func negIntLit(e *hir.Expr) (int64, bool) {
	if u, ok := e.Data.(hir.UnaryData); ok && u.Op == hir.OpNeg {
		if lit, ok := u.Operand.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt {
			return lit.Int, true
		}
	}
	if lit, ok := e.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt && lit.Int < 0 {
		return -lit.Int, true
	}
	return 0, false
}

func (c *fnCtx) sliceText(d hir.SliceData) string {
	bt := c.exprType(d.Base)
	base := c.postfixText(d.Base)

	// Full reversal spelled [::-1].
	if d.Start == nil && d.Stop == nil && d.Step != nil {
		if n, neg := negIntLit(d.Step); neg && n == 1 {
			if isStrType(bt) {
				return fmt.Sprintf("%s.chars().rev().collect::<String>()", base)
			}
			return fmt.Sprintf("%s.iter().rev().cloned().collect::<Vec<_>>()", base)
		}
	}

	if isStrType(bt) {
		return c.strSliceText(base, d)
	}
	return c.seqSliceText(base, d)
}

func (c *fnCtx) strSliceText(base string, d hir.SliceData) string {
	if simpleBound(d.Start) && simpleBound(d.Stop) && d.Step == nil {
		return fmt.Sprintf("%s.get(%s..%s).unwrap_or(\"\").to_string()",
			base, c.boundText(d.Start), c.boundText(d.Stop))
	}
	return fmt.Sprintf("{ let s: Vec<char> = %s.chars().collect(); %s.collect::<String>() }",
		base, charRange(c, d))
}

func (c *fnCtx) seqSliceText(base string, d hir.SliceData) string {
	if simpleBound(d.Start) && simpleBound(d.Stop) && d.Step == nil {
		return fmt.Sprintf("%s[%s..%s].to_vec()", base, c.boundText(d.Start), c.boundText(d.Stop))
	}
	step := ""
	if d.Step != nil {
		if lit, ok := d.Step.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt && lit.Int > 1 {
			step = fmt.Sprintf(".step_by(%d)", lit.Int)
		}
	}
	return fmt.Sprintf("{ let b = &%s; let n = b.len() as i64; "+
		"let mut s = %s; let mut e = %s; if s < 0 { s += n; } if e < 0 { e += n; } "+
		"let s = s.clamp(0, n) as usize; let e = e.clamp(0, n) as usize; "+
		"if s < e { b[s..e].iter()%s.cloned().collect::<Vec<_>>() } else { Vec::new() } }",
		c.exprText(d.Base), c.lowBoundText(d.Start), c.highBoundText(d.Stop), step)
}

// charRange builds the index expression over a collected char vector
// for the general string-slice block; s is the local char vec.
func charRange(c *fnCtx, d hir.SliceData) string {
	step := ""
	if d.Step != nil {
		if lit, ok := d.Step.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt && lit.Int > 1 {
			step = fmt.Sprintf(".step_by(%d)", lit.Int)
		}
	}
	return fmt.Sprintf("{ let n = s.len() as i64; let mut lo = %s; let mut hi = %s; "+
		"if lo < 0 { lo += n; } if hi < 0 { hi += n; } "+
		"let lo = lo.clamp(0, n) as usize; let hi = hi.clamp(0, n) as usize; "+
		"if lo < hi { s[lo..hi].to_vec() } else { Vec::new() } }.into_iter()%s", // consumed by collect
		c.lowBoundText(d.Start), c.highBoundText(d.Stop), step)
}

// simpleBound accepts bounds usable directly in a range expression:
// absent, or a non-negative integer literal.
func simpleBound(e *hir.Expr) bool {
	if e == nil {
		return true
	}
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LitInt && lit.Int >= 0
}

func (c *fnCtx) boundText(e *hir.Expr) string {
	if e == nil {
		return ""
	}
	return c.exprText(e)
}

func (c *fnCtx) lowBoundText(e *hir.Expr) string {
	if e == nil {
		return "0"
	}
	return fmt.Sprintf("(%s) as i64", c.exprText(e))
}

func (c *fnCtx) highBoundText(e *hir.Expr) string {
	if e == nil {
		return "n"
	}
	return fmt.Sprintf("(%s) as i64", c.exprText(e))
}

func (c *fnCtx) listText(d hir.ListData) string {
	if len(d.Elems) == 0 {
		return "vec![]"
	}
	elem := c.unifyElems(d.Elems)
	parts := make([]string, len(d.Elems))
	for i, el := range d.Elems {
		parts[i] = c.valueText(el, elem)
	}
	return "vec![" + strings.Join(parts, ", ") + "]"
}

func (c *fnCtx) tupleText(d hir.TupleData) string {
	parts := make([]string, len(d.Elems))
	for i, el := range d.Elems {
		parts[i] = c.exprText(el)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c *fnCtx) setText(elems []*hir.Expr) string {
	c.gen.need(needHashSet)
	if len(elems) == 0 {
		return "HashSet::new()"
	}
	elem := c.unifyElems(elems)
	parts := make([]string, len(elems))
	for i, el := range elems {
		parts[i] = c.valueText(el, elem)
	}
	return "HashSet::from([" + strings.Join(parts, ", ") + "])"
}

func (c *fnCtx) dictText(d hir.DictData) string {
	c.gen.need(needHashMap)
	if len(d.Keys) == 0 {
		return "HashMap::new()"
	}
	keyT, valT := hir.Unknown, hir.Unknown
	splat := false
	for i, k := range d.Keys {
		if k == nil {
			splat = true
			continue
		}
		keyT = hir.Unify(keyT, c.exprType(k))
		valT = hir.Unify(valT, c.exprType(d.Values[i]))
	}
	if !splat {
		parts := make([]string, len(d.Keys))
		for i, k := range d.Keys {
			parts[i] = fmt.Sprintf("(%s, %s)", c.valueText(k, keyT), c.valueText(d.Values[i], valT))
		}
		return "HashMap::from([" + strings.Join(parts, ", ") + "])"
	}
	// Splatted entries merge in order, later keys overriding.
	var b strings.Builder
	b.WriteString("{ let mut map = HashMap::new(); ")
	for i, k := range d.Keys {
		if k == nil {
			b.WriteString(fmt.Sprintf("map.extend(%s.iter().map(|(k, v)| (k.clone(), v.clone()))); ",
				c.postfixText(d.Values[i])))
			continue
		}
		b.WriteString(fmt.Sprintf("map.insert(%s, %s); ", c.valueText(k, keyT), c.valueText(d.Values[i], valT)))
	}
	b.WriteString("map }")
	return b.String()
}

func (c *fnCtx) lambdaText(d hir.LambdaData) string {
	params := make([]string, len(d.Params))
	for i := range d.Params {
		params[i] = sanitizeIdent(d.Params[i].Name)
	}
	c.closureDepth++
	body := c.exprText(d.Body)
	c.closureDepth--
	return fmt.Sprintf("|%s| %s", strings.Join(params, ", "), body)
}

// namedText renders a walrus binding. The name is pre-declared at
// function top; the site assigns and yields the value.
func (c *fnCtx) namedText(d hir.NamedData) string {
	name := sanitizeIdent(d.Name)
	return fmt.Sprintf("{ %s = %s; %s.clone() }", name, c.exprText(d.Value), name)
}

func (c *fnCtx) fstringText(d hir.FStringData) string {
	tmpl, args := c.fstringParts(d)
	if len(args) == 0 {
		return rustQuote(tmpl) + ".to_string()"
	}
	return fmt.Sprintf("format!(%s, %s)", rustQuote(tmpl), strings.Join(args, ", "))
}

// fstringParts splits an interpolation into its format! template and
// argument list, so println-style consumers can splice it directly.
func (c *fnCtx) fstringParts(d hir.FStringData) (string, []string) {
	var tmpl strings.Builder
	var args []string
	for _, p := range d.Parts {
		if p.Expr == nil {
			tmpl.WriteString(escapeBraces(p.Text))
			continue
		}
		tmpl.WriteString("{" + convertFormatSpec(p.Format) + "}")
		args = append(args, c.exprText(p.Expr))
	}
	return tmpl.String(), args
}

func escapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// convertFormatSpec translates a format mini-language spec to the
// format! equivalent: ".2f" becomes ":.2", "05d" becomes ":05",
// alignment and fill pass through. Specs with no translation drop.
func convertFormatSpec(spec string) string {
	if spec == "" {
		return ""
	}
	out := spec
	switch out[len(out)-1] {
	case 'f':
		out = out[:len(out)-1]
		if !strings.Contains(out, ".") {
			out += ".6"
		}
	case 'd':
		out = out[:len(out)-1]
	case 'x', 'X', 'o', 'b', 'e':
		// Shared with format!.
	}
	if out == "" {
		return ""
	}
	return ":" + out
}

// rustQuote renders s as a double-quoted Rust string literal.
func rustQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, "\\u{%x}", r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// rustByteQuote renders bytes content as a b"..." literal.
func rustByteQuote(s string) string {
	var b strings.Builder
	b.WriteString("b\"")
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"':
			b.WriteString("\\\"")
		case ch == '\\':
			b.WriteString("\\\\")
		case ch == '\n':
			b.WriteString("\\n")
		case ch == '\t':
			b.WriteString("\\t")
		case ch == '\r':
			b.WriteString("\\r")
		case ch >= 0x20 && ch < 0x7f:
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "\\x%02x", ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
