package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func (c *converter) convertExpr(n *sitter.Node) Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			return c.convertExpr(n.NamedChild(0))
		}
		return nil
	case "identifier":
		return &Name{node: At(c.span(n)), ID: c.text(n)}
	case "integer":
		return &Literal{node: At(c.span(n)), Kind: LitInt, Text: c.text(n)}
	case "float":
		return &Literal{node: At(c.span(n)), Kind: LitFloat, Text: c.text(n)}
	case "true":
		return &Literal{node: At(c.span(n)), Kind: LitBool, Bool: true}
	case "false":
		return &Literal{node: At(c.span(n)), Kind: LitBool, Bool: false}
	case "none":
		return &Literal{node: At(c.span(n)), Kind: LitNone}
	case "ellipsis":
		return &Literal{node: At(c.span(n)), Kind: LitEllipsis}
	case "string":
		return c.convertString(n)
	case "concatenated_string":
		return c.convertConcatenated(n)
	case "binary_operator":
		return c.convertBinary(n)
	case "boolean_operator":
		return c.convertBoolean(n)
	case "not_operator":
		return &UnaryOp{
			node:    At(c.span(n)),
			Op:      OpNot,
			Operand: c.convertExpr(c.firstNamed(n)),
		}
	case "unary_operator":
		return c.convertUnary(n)
	case "comparison_operator":
		return c.convertComparison(n)
	case "call":
		return c.convertCall(n)
	case "attribute":
		a := &Attribute{node: At(c.span(n))}
		a.Value = c.convertExpr(n.ChildByFieldName("object"))
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			a.Attr = c.text(attr)
		}
		return a
	case "subscript":
		return c.convertSubscript(n)
	case "slice":
		return c.convertSlice(n)
	case "list", "list_pattern":
		return &ListExpr{node: At(c.span(n)), Elts: c.namedExprs(n)}
	case "tuple", "tuple_pattern", "expression_list", "pattern_list":
		return &TupleExpr{node: At(c.span(n)), Elts: c.namedExprs(n)}
	case "set":
		return &SetExpr{node: At(c.span(n)), Elts: c.namedExprs(n)}
	case "dictionary":
		return c.convertDict(n)
	case "list_comprehension":
		return c.convertComprehension(n, CompList)
	case "set_comprehension":
		return c.convertComprehension(n, CompSet)
	case "dictionary_comprehension":
		return c.convertComprehension(n, CompDict)
	case "generator_expression":
		return c.convertComprehension(n, CompGenerator)
	case "lambda":
		l := &Lambda{node: At(c.span(n))}
		if params := n.ChildByFieldName("parameters"); params != nil {
			l.Args = c.convertParameters(params)
		}
		l.Body = c.convertExpr(n.ChildByFieldName("body"))
		return l
	case "conditional_expression":
		// a if cond else b: three named children in source order.
		e := &IfExpr{node: At(c.span(n))}
		if n.NamedChildCount() >= 3 {
			e.Body = c.convertExpr(n.NamedChild(0))
			e.Cond = c.convertExpr(n.NamedChild(1))
			e.Orelse = c.convertExpr(n.NamedChild(2))
		}
		return e
	case "named_expression":
		e := &NamedExpr{node: At(c.span(n))}
		e.Target = c.convertExpr(n.ChildByFieldName("name"))
		e.Value = c.convertExpr(n.ChildByFieldName("value"))
		return e
	case "await":
		return &Await{node: At(c.span(n)), Value: c.convertExpr(c.firstNamed(n))}
	case "yield":
		y := &Yield{node: At(c.span(n))}
		y.IsFrom = c.hasKeywordChild(n, "from")
		y.Value = c.convertExpr(c.firstNamed(n))
		return y
	case "list_splat", "list_splat_pattern":
		return &Starred{node: At(c.span(n)), Value: c.convertExpr(c.firstNamed(n))}
	case "keyword_separator", "positional_separator":
		return nil
	case "type":
		return c.convertExpr(c.unwrapType(n))
	case "generic_type":
		return c.convertGenericType(n)
	case "union_type":
		// PEP 604 in annotation position: X | Y.
		b := &BinOp{node: At(c.span(n)), Op: OpBitOr}
		if n.NamedChildCount() >= 2 {
			b.Left = c.convertExpr(c.unwrapType(n.NamedChild(0)))
			b.Right = c.convertExpr(c.unwrapType(n.NamedChild(1)))
		}
		return b
	case "member_type":
		a := &Attribute{node: At(c.span(n))}
		if n.NamedChildCount() >= 2 {
			a.Value = c.convertExpr(c.unwrapType(n.NamedChild(0)))
			a.Attr = c.text(n.NamedChild(1))
		}
		return a
	case "constrained_type":
		return c.convertExpr(c.unwrapType(c.firstNamed(n)))
	default:
		if n.NamedChildCount() == 1 {
			return c.convertExpr(n.NamedChild(0))
		}
		return nil
	}
}

// convertGenericType turns the grammar's annotation shape for list[int],
// dict[str, int] and friends into the same Subscript the runtime spelling
// produces, so annotation lowering sees one form.
func (c *converter) convertGenericType(n *sitter.Node) Expr {
	s := &Subscript{node: At(c.span(n))}
	if n.NamedChildCount() > 0 {
		s.Value = c.convertExpr(n.NamedChild(0))
	}
	var params []Expr
	for i := 1; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch.Type() != "type_parameter" {
			continue
		}
		for j := 0; j < int(ch.NamedChildCount()); j++ {
			if e := c.convertExpr(c.unwrapType(ch.NamedChild(j))); e != nil {
				params = append(params, e)
			}
		}
	}
	switch len(params) {
	case 0:
	case 1:
		s.Index = params[0]
	default:
		s.Index = &TupleExpr{node: At(c.span(n)), Elts: params}
	}
	return s
}

func (c *converter) firstNamed(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return nil
}

func (c *converter) namedExprs(n *sitter.Node) []Expr {
	out := make([]Expr, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if e := c.convertExpr(n.NamedChild(i)); e != nil {
			out = append(out, e)
		}
	}
	return out
}

var binOps = map[string]BinOpKind{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv,
	"//": OpFloorDiv, "%": OpMod, "**": OpPow, "@": OpMatMul,
	"<<": OpLShift, ">>": OpRShift, "|": OpBitOr, "^": OpBitXor, "&": OpBitAnd,
}

func (c *converter) convertBinary(n *sitter.Node) Expr {
	b := &BinOp{node: At(c.span(n))}
	b.Left = c.convertExpr(n.ChildByFieldName("left"))
	b.Right = c.convertExpr(n.ChildByFieldName("right"))
	if opN := n.ChildByFieldName("operator"); opN != nil {
		b.Op = binOps[c.text(opN)]
	}
	return b
}

func (c *converter) convertBoolean(n *sitter.Node) Expr {
	op := OpAnd
	if opN := n.ChildByFieldName("operator"); opN != nil && c.text(opN) == "or" {
		op = OpOr
	}
	left := c.convertExpr(n.ChildByFieldName("left"))
	right := c.convertExpr(n.ChildByFieldName("right"))

	// Flatten chains of the same operator: a and b and c.
	values := make([]Expr, 0, 2)
	if lb, ok := left.(*BoolOp); ok && lb.Op == op {
		values = append(values, lb.Values...)
	} else {
		values = append(values, left)
	}
	if rb, ok := right.(*BoolOp); ok && rb.Op == op {
		values = append(values, rb.Values...)
	} else {
		values = append(values, right)
	}
	return &BoolOp{node: At(c.span(n)), Op: op, Values: values}
}

func (c *converter) convertUnary(n *sitter.Node) Expr {
	u := &UnaryOp{node: At(c.span(n))}
	if opN := n.ChildByFieldName("operator"); opN != nil {
		switch c.text(opN) {
		case "-":
			u.Op = OpNeg
		case "+":
			u.Op = OpUAdd
		case "~":
			u.Op = OpInvert
		}
	}
	u.Operand = c.convertExpr(n.ChildByFieldName("argument"))
	return u
}

func (c *converter) convertComparison(n *sitter.Node) Expr {
	cmp := &Compare{node: At(c.span(n))}
	var pendingNot, pendingIs bool
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if ch.IsNamed() {
			e := c.convertExpr(ch)
			if cmp.Left == nil {
				cmp.Left = e
			} else {
				cmp.Comparators = append(cmp.Comparators, e)
			}
			continue
		}
		switch ch.Type() {
		case "==":
			cmp.Ops = append(cmp.Ops, CmpEq)
		case "!=", "<>":
			cmp.Ops = append(cmp.Ops, CmpNotEq)
		case "<":
			cmp.Ops = append(cmp.Ops, CmpLt)
		case "<=":
			cmp.Ops = append(cmp.Ops, CmpLtE)
		case ">":
			cmp.Ops = append(cmp.Ops, CmpGt)
		case ">=":
			cmp.Ops = append(cmp.Ops, CmpGtE)
		case "not in":
			cmp.Ops = append(cmp.Ops, CmpNotIn)
		case "is not":
			cmp.Ops = append(cmp.Ops, CmpIsNot)
		case "in":
			if pendingNot {
				cmp.Ops = append(cmp.Ops, CmpNotIn)
				pendingNot = false
			} else {
				cmp.Ops = append(cmp.Ops, CmpIn)
			}
		case "not":
			if pendingIs {
				// `is not`: replace the CmpIs pushed for `is`.
				if len(cmp.Ops) > 0 && cmp.Ops[len(cmp.Ops)-1] == CmpIs {
					cmp.Ops[len(cmp.Ops)-1] = CmpIsNot
				}
				pendingIs = false
			} else {
				pendingNot = true
			}
		case "is":
			cmp.Ops = append(cmp.Ops, CmpIs)
			pendingIs = true
		}
	}
	return cmp
}

func (c *converter) convertCall(n *sitter.Node) Expr {
	call := &Call{node: At(c.span(n))}
	call.Func = c.convertExpr(n.ChildByFieldName("function"))
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	// generator_expression as sole argument arrives without an argument_list.
	if args.Type() == "generator_expression" {
		call.Args = append(call.Args, c.convertExpr(args))
		return call
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "keyword_argument":
			kw := Keyword{node: At(c.span(arg))}
			if nameN := arg.ChildByFieldName("name"); nameN != nil {
				kw.Arg = c.text(nameN)
			}
			kw.Value = c.convertExpr(arg.ChildByFieldName("value"))
			call.Keywords = append(call.Keywords, kw)
		case "dictionary_splat":
			kw := Keyword{node: At(c.span(arg))}
			kw.Value = c.convertExpr(c.firstNamed(arg))
			call.Keywords = append(call.Keywords, kw)
		case "comment":
		default:
			if e := c.convertExpr(arg); e != nil {
				call.Args = append(call.Args, e)
			}
		}
	}
	return call
}

func (c *converter) convertSubscript(n *sitter.Node) Expr {
	s := &Subscript{node: At(c.span(n))}
	s.Value = c.convertExpr(n.ChildByFieldName("value"))

	// Multiple subscripts (a[i, j]) fold into a tuple index.
	var indices []Expr
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if v := n.ChildByFieldName("value"); v != nil && child.Equal(v) {
			continue
		}
		if e := c.convertExpr(child); e != nil {
			indices = append(indices, e)
		}
	}
	switch len(indices) {
	case 0:
	case 1:
		s.Index = indices[0]
	default:
		s.Index = &TupleExpr{node: At(c.span(n)), Elts: indices}
	}
	return s
}

// convertSlice walks `lower : upper [: step]`, tracking colon positions.
func (c *converter) convertSlice(n *sitter.Node) Expr {
	s := &Slice{node: At(c.span(n))}
	colons := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if !ch.IsNamed() {
			if ch.Type() == ":" {
				colons++
			}
			continue
		}
		e := c.convertExpr(ch)
		switch colons {
		case 0:
			s.Lower = e
		case 1:
			s.Upper = e
		default:
			s.Step = e
		}
	}
	return s
}

func (c *converter) convertDict(n *sitter.Node) Expr {
	d := &DictExpr{node: At(c.span(n))}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "pair":
			d.Keys = append(d.Keys, c.convertExpr(child.ChildByFieldName("key")))
			d.Values = append(d.Values, c.convertExpr(child.ChildByFieldName("value")))
		case "dictionary_splat":
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, c.convertExpr(c.firstNamed(child)))
		}
	}
	return d
}

func (c *converter) convertComprehension(n *sitter.Node, kind CompKind) Expr {
	comp := &CompExpr{node: At(c.span(n)), Kind: kind}
	if body := n.ChildByFieldName("body"); body != nil {
		if kind == CompDict && body.Type() == "pair" {
			comp.Elt = c.convertExpr(body.ChildByFieldName("key"))
			comp.Value = c.convertExpr(body.ChildByFieldName("value"))
		} else {
			comp.Elt = c.convertExpr(body)
		}
	}
	var cur *Comprehension
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "for_in_clause":
			comp.Generators = append(comp.Generators, Comprehension{
				node:    At(c.span(child)),
				Target:  c.convertExpr(child.ChildByFieldName("left")),
				Iter:    c.convertExpr(child.ChildByFieldName("right")),
				IsAsync: c.hasKeywordChild(child, "async"),
			})
			cur = &comp.Generators[len(comp.Generators)-1]
		case "if_clause":
			if cur != nil && child.NamedChildCount() > 0 {
				cur.Ifs = append(cur.Ifs, c.convertExpr(child.NamedChild(0)))
			}
		}
	}
	return comp
}

func (c *converter) convertParameters(n *sitter.Node) Arguments {
	var args Arguments
	kwOnly := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier":
			args.push(Param{node: At(c.span(child)), Name: c.text(child)}, kwOnly)
		case "typed_parameter":
			p := Param{node: At(c.span(child))}
			if child.NamedChildCount() > 0 {
				inner := child.NamedChild(0)
				switch inner.Type() {
				case "list_splat_pattern":
					sp := c.splatParam(child, inner)
					args.VarArg = &sp
					kwOnly = true
					continue
				case "dictionary_splat_pattern":
					sp := c.splatParam(child, inner)
					args.KwArg = &sp
					continue
				default:
					p.Name = c.text(inner)
				}
			}
			if typeN := child.ChildByFieldName("type"); typeN != nil {
				p.Annotation = c.convertExpr(c.unwrapType(typeN))
			}
			args.push(p, kwOnly)
		case "default_parameter":
			p := Param{node: At(c.span(child))}
			if nameN := child.ChildByFieldName("name"); nameN != nil {
				p.Name = c.text(nameN)
			}
			p.Default = c.convertExpr(child.ChildByFieldName("value"))
			args.push(p, kwOnly)
		case "typed_default_parameter":
			p := Param{node: At(c.span(child))}
			if nameN := child.ChildByFieldName("name"); nameN != nil {
				p.Name = c.text(nameN)
			}
			if typeN := child.ChildByFieldName("type"); typeN != nil {
				p.Annotation = c.convertExpr(c.unwrapType(typeN))
			}
			p.Default = c.convertExpr(child.ChildByFieldName("value"))
			args.push(p, kwOnly)
		case "list_splat_pattern":
			sp := c.splatParam(child, child)
			args.VarArg = &sp
			kwOnly = true
		case "dictionary_splat_pattern":
			sp := c.splatParam(child, child)
			args.KwArg = &sp
		case "keyword_separator":
			kwOnly = true
		case "positional_separator":
			args.PosOnly = args.Args
			args.Args = nil
		}
	}
	return args
}

func (a *Arguments) push(p Param, kwOnly bool) {
	if kwOnly {
		a.KwOnly = append(a.KwOnly, p)
	} else {
		a.Args = append(a.Args, p)
	}
}

func (c *converter) splatParam(outer, pattern *sitter.Node) Param {
	p := Param{node: At(c.span(outer))}
	if pattern.NamedChildCount() > 0 {
		p.Name = c.text(pattern.NamedChild(0))
	}
	if typeN := outer.ChildByFieldName("type"); typeN != nil {
		p.Annotation = c.convertExpr(c.unwrapType(typeN))
	}
	return p
}

// convertString handles plain, raw, byte and f-strings. The literal text is
// fully unescaped; the code generator re-escapes for Rust.
func (c *converter) convertString(n *sitter.Node) Expr {
	raw := c.text(n)
	prefix := stringPrefix(raw)
	isF := strings.ContainsAny(prefix, "fF")
	isBytes := strings.ContainsAny(prefix, "bB")
	isRaw := strings.ContainsAny(prefix, "rR")

	if !isF {
		body := stringBody(raw)
		text := body
		if !isRaw {
			text = unescapePython(body)
		}
		kind := LitString
		if isBytes {
			kind = LitBytes
		}
		return &Literal{node: At(c.span(n)), Kind: kind, Text: text}
	}

	// f-string: literal fragments interleaved with interpolations.
	fs := &FString{node: At(c.span(n))}
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			fs.Parts = append(fs.Parts, FStringPart{Text: sb.String()})
			sb.Reset()
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		switch ch.Type() {
		case "string_content":
			if isRaw {
				sb.WriteString(c.text(ch))
			} else {
				sb.WriteString(unescapePython(c.text(ch)))
			}
		case "escape_sequence":
			sb.WriteString(unescapePython(c.text(ch)))
		case "interpolation":
			flush()
			part := FStringPart{}
			if ch.NamedChildCount() > 0 {
				part.Expr = c.convertExpr(ch.NamedChild(0))
			}
			if spec := ch.ChildByFieldName("format_specifier"); spec != nil {
				part.Format = strings.TrimPrefix(c.text(spec), ":")
			}
			fs.Parts = append(fs.Parts, part)
		}
	}
	flush()
	return fs
}

func (c *converter) convertConcatenated(n *sitter.Node) Expr {
	// Adjacent literals merge; any f-string part makes the whole thing one.
	var parts []FStringPart
	anyF := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		e := c.convertExpr(n.NamedChild(i))
		switch v := e.(type) {
		case *Literal:
			parts = append(parts, FStringPart{Text: v.Text})
		case *FString:
			anyF = true
			parts = append(parts, v.Parts...)
		}
	}
	if !anyF {
		var sb strings.Builder
		for _, p := range parts {
			sb.WriteString(p.Text)
		}
		return &Literal{node: At(c.span(n)), Kind: LitString, Text: sb.String()}
	}
	return &FString{node: At(c.span(n)), Parts: parts}
}

func stringPrefix(raw string) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '"' || raw[i] == '\'' {
			return raw[:i]
		}
	}
	return ""
}

// stringBody strips the prefix and the surrounding quote characters,
// including triple quotes.
func stringBody(raw string) string {
	s := raw[len(stringPrefix(raw)):]
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// unescapePython decodes the escape sequences shared by Python string
// literals. Unknown escapes keep the backslash, matching CPython.
func unescapePython(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case '\'':
			sb.WriteByte('\'')
		case '"':
			sb.WriteByte('"')
		case '0':
			sb.WriteByte(0)
		case 'a':
			sb.WriteByte(7)
		case 'b':
			sb.WriteByte(8)
		case 'f':
			sb.WriteByte(12)
		case 'v':
			sb.WriteByte(11)
		case 'x':
			if i+2 < len(s) {
				if b, ok := hexByte(s[i+1], s[i+2]); ok {
					sb.WriteByte(b)
					i += 2
					continue
				}
			}
			sb.WriteString("\\x")
		case '\n':
			// Line continuation inside a literal: swallow.
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexVal(hi)
	l, ok2 := hexVal(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
