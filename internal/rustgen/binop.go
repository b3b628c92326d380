package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
)

// binaryText renders one binary operation. Operator selection follows
// the operand flow types: logic applies truthiness, containment picks
// the receiver's lookup method, integer floor-division and modulo take
// the sign-adjusting forms.
func (c *fnCtx) binaryText(e *hir.Expr, d hir.BinaryData) string {
	switch d.Op {
	case hir.OpAnd:
		return fmt.Sprintf("%s && %s", c.condOperand(d.Left), c.condOperand(d.Right))
	case hir.OpOr:
		return fmt.Sprintf("%s || %s", c.condOperand(d.Left), c.condOperand(d.Right))
	case hir.OpIn:
		return c.containsText(d.Left, d.Right, false)
	case hir.OpNotIn:
		return c.containsText(d.Left, d.Right, true)
	case hir.OpIs:
		return c.identityText(d, false)
	case hir.OpIsNot:
		return c.identityText(d, true)
	}

	lt, rt := c.exprType(d.Left), c.exprType(d.Right)
	if d.Op.IsComparison() {
		return c.comparisonText(d, lt, rt)
	}
	switch d.Op {
	case hir.OpAdd:
		return c.addText(e, d, lt, rt)
	case hir.OpSub:
		if isSetType(lt) && isSetType(rt) {
			return c.setOpText(d, "difference")
		}
		return c.arithText(d, lt, rt, "-")
	case hir.OpMul:
		return c.mulText(d, lt, rt)
	case hir.OpDiv:
		return c.divText(d, lt, rt)
	case hir.OpFloorDiv:
		return c.floorDivText(d, lt, rt)
	case hir.OpMod:
		return c.modText(d, lt, rt)
	case hir.OpPow:
		return c.powText(d, lt, rt)
	case hir.OpMatMul:
		return fmt.Sprintf("%s.matmul(&%s)", c.postfixText(d.Left), c.exprText(d.Right))
	case hir.OpLShift:
		return fmt.Sprintf("%s << %s", c.operandText(d.Left), c.operandText(d.Right))
	case hir.OpRShift:
		return fmt.Sprintf("%s >> %s", c.operandText(d.Left), c.operandText(d.Right))
	case hir.OpBitAnd:
		if isSetType(lt) && isSetType(rt) {
			return c.setOpText(d, "intersection")
		}
		return fmt.Sprintf("%s & %s", c.operandText(d.Left), c.operandText(d.Right))
	case hir.OpBitOr:
		if isSetType(lt) && isSetType(rt) {
			return c.setOpText(d, "union")
		}
		return fmt.Sprintf("%s | %s", c.operandText(d.Left), c.operandText(d.Right))
	case hir.OpBitXor:
		if isSetType(lt) && isSetType(rt) {
			return c.setOpText(d, "symmetric_difference")
		}
		return fmt.Sprintf("%s ^ %s", c.operandText(d.Left), c.operandText(d.Right))
	}
	c.gen.internal(e.Span, "unhandled binary operator %s", d.Op)
	return "()"
}

func (c *fnCtx) comparisonText(d hir.BinaryData, lt, rt *hir.Type) string {
	// Comparisons against None collapse to Option queries.
	if d.Right.IsNoneLiteral() {
		return c.optionQuery(d.Left, d.Op)
	}
	if d.Left.IsNoneLiteral() {
		return c.optionQuery(d.Right, d.Op)
	}
	return fmt.Sprintf("%s %s %s",
		c.floatAdjust(d.Left, rt), comparisonToken(d.Op), c.floatAdjust(d.Right, lt))
}

func (c *fnCtx) optionQuery(e *hir.Expr, op hir.BinOp) string {
	if op == hir.OpNotEq {
		return fmt.Sprintf("%s.is_some()", c.postfixText(e))
	}
	return fmt.Sprintf("%s.is_none()", c.postfixText(e))
}

func comparisonToken(op hir.BinOp) string {
	switch op {
	case hir.OpEq:
		return "=="
	case hir.OpNotEq:
		return "!="
	case hir.OpLt:
		return "<"
	case hir.OpLtE:
		return "<="
	case hir.OpGt:
		return ">"
	default:
		return ">="
	}
}

func (c *fnCtx) identityText(d hir.BinaryData, negate bool) string {
	if d.Right.IsNoneLiteral() {
		if negate {
			return fmt.Sprintf("%s.is_some()", c.postfixText(d.Left))
		}
		return fmt.Sprintf("%s.is_none()", c.postfixText(d.Left))
	}
	// Identity between values degrades to equality.
	tok := "=="
	if negate {
		tok = "!="
	}
	return fmt.Sprintf("%s %s %s", c.operandText(d.Left), tok, c.operandText(d.Right))
}

func (c *fnCtx) containsText(item, container *hir.Expr, negate bool) string {
	ct := c.exprType(container)
	recv := c.postfixText(container)
	var expr string
	switch {
	case isDictType(ct):
		expr = fmt.Sprintf("%s.contains_key(%s)", recv, c.lookupKeyText(item))
	case isSetType(ct):
		expr = fmt.Sprintf("%s.contains(%s)", recv, c.lookupKeyText(item))
	case isStrType(ct):
		expr = fmt.Sprintf("%s.contains(%s)", recv, c.patternText(item))
	default:
		needle := c.exprText(item)
		if isListType(ct) && isStrType(ct.Elem()) && isStrLit(item) {
			needle += ".to_string()"
		}
		expr = fmt.Sprintf("%s.contains(&%s)", recv, needle)
	}
	if negate {
		return "!" + expr
	}
	return expr
}

// lookupKeyText renders the key argument of a Borrow-based lookup.
// String literals satisfy the &str borrow directly; everything else is
// passed by reference.
func (c *fnCtx) lookupKeyText(e *hir.Expr) string {
	if isStrLit(e) {
		return c.exprText(e)
	}
	if e.Kind == hir.ExprVar || e.Kind == hir.ExprAttribute {
		return "&" + c.exprText(e)
	}
	return "&(" + c.exprText(e) + ")"
}

// patternText renders a str::contains / starts_with argument. Literals
// satisfy the Pattern trait bare; owned strings are lent.
func (c *fnCtx) patternText(e *hir.Expr) string {
	if isStrLit(e) {
		return c.exprText(e)
	}
	if isStrType(c.exprType(e)) && !c.isBorrowedStr(e) {
		return "&" + c.postfixText(e)
	}
	return c.postfixText(e)
}

// isBorrowedStr reports expressions already usable as &str: parameters
// received as &str need no extra borrow.
func (c *fnCtx) isBorrowedStr(e *hir.Expr) bool {
	v, ok := e.Data.(hir.VarData)
	return ok && c.strParams[v.Name]
}

func (c *fnCtx) addText(e *hir.Expr, d hir.BinaryData, lt, rt *hir.Type) string {
	switch {
	case isStrType(lt) && isStrType(rt):
		return fmt.Sprintf("format!(\"{}{}\", %s, %s)", c.exprText(d.Left), c.exprText(d.Right))
	case isListType(lt) && isListType(rt):
		return fmt.Sprintf("[%s, %s].concat()", c.ownedOperand(d.Left), c.ownedOperand(d.Right))
	case lt.Kind == hir.TypeTuple && rt.Kind == hir.TypeTuple:
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, e.Span,
			"tuple concatenation has no direct Rust form").Emit()
		return "(/* tuple concatenation */)"
	default:
		return c.arithText(d, lt, rt, "+")
	}
}

func (c *fnCtx) mulText(d hir.BinaryData, lt, rt *hir.Type) string {
	// String and list repetition swap into repeat calls.
	if isStrType(lt) && rt.Kind == hir.TypeInt {
		return fmt.Sprintf("%s.repeat((%s) as usize)", c.strRecvText(d.Left), c.exprText(d.Right))
	}
	if isStrType(rt) && lt.Kind == hir.TypeInt {
		return fmt.Sprintf("%s.repeat((%s) as usize)", c.strRecvText(d.Right), c.exprText(d.Left))
	}
	if isListType(lt) && rt.Kind == hir.TypeInt {
		if ld, ok := d.Left.Data.(hir.ListData); ok && len(ld.Elems) == 1 {
			return fmt.Sprintf("vec![%s; (%s) as usize]", c.exprText(ld.Elems[0]), c.exprText(d.Right))
		}
		return fmt.Sprintf("%s.repeat((%s) as usize)", c.postfixText(d.Left), c.exprText(d.Right))
	}
	if isListType(rt) && lt.Kind == hir.TypeInt {
		if ld, ok := d.Right.Data.(hir.ListData); ok && len(ld.Elems) == 1 {
			return fmt.Sprintf("vec![%s; (%s) as usize]", c.exprText(ld.Elems[0]), c.exprText(d.Left))
		}
		return fmt.Sprintf("%s.repeat((%s) as usize)", c.postfixText(d.Right), c.exprText(d.Left))
	}
	return c.arithText(d, lt, rt, "*")
}

func (c *fnCtx) divText(d hir.BinaryData, lt, rt *hir.Type) string {
	// True division always yields a float.
	if lt.Kind == hir.TypeInt && rt.Kind == hir.TypeInt {
		return fmt.Sprintf("(%s) as f64 / (%s) as f64", c.exprText(d.Left), c.exprText(d.Right))
	}
	return fmt.Sprintf("%s / %s", c.floatAdjust(d.Left, rt), c.floatAdjust(d.Right, lt))
}

// floorDivText emits round-toward-negative-infinity division. Rust's /
// truncates toward zero, so mixed-sign integer operands need the
// quotient stepped back by one when a remainder exists.
func (c *fnCtx) floorDivText(d hir.BinaryData, lt, rt *hir.Type) string {
	if lt.Kind == hir.TypeFloat || rt.Kind == hir.TypeFloat {
		return fmt.Sprintf("(%s / %s).floor()", c.floatAdjust(d.Left, rt), c.floatAdjust(d.Right, lt))
	}
	return fmt.Sprintf("{ let a = %s; let b = %s; let q = a / b; let r = a %% b; "+
		"if r != 0 && (a < 0) != (b < 0) { q - 1 } else { q } }",
		c.exprText(d.Left), c.exprText(d.Right))
}

// modText emits Python modulo, whose result takes the divisor's sign,
// and routes printf-style string formatting to format!.
func (c *fnCtx) modText(d hir.BinaryData, lt, rt *hir.Type) string {
	if isStrType(lt) {
		if lit, ok := d.Left.Data.(hir.LiteralData); ok && lit.Kind == hir.LitStr {
			return c.percentFormat(lit.Str, d.Right)
		}
		diag.ReportInfo(c.gen.reporter, diag.EmiInfo, d.Left.Span,
			"% formatting on a non-literal template is not translated").Emit()
		return fmt.Sprintf("format!(\"{}\", %s)", c.exprText(d.Left))
	}
	if lt.Kind == hir.TypeFloat || rt.Kind == hir.TypeFloat {
		return fmt.Sprintf("%s %% %s", c.floatAdjust(d.Left, rt), c.floatAdjust(d.Right, lt))
	}
	return fmt.Sprintf("{ let a = %s; let b = %s; let r = a %% b; "+
		"if r != 0 && (r < 0) != (b < 0) { r + b } else { r } }",
		c.exprText(d.Left), c.exprText(d.Right))
}

func (c *fnCtx) powText(d hir.BinaryData, lt, rt *hir.Type) string {
	if lt.Kind == hir.TypeFloat || rt.Kind == hir.TypeFloat || isNegativeLit(d.Right) {
		return fmt.Sprintf("((%s) as f64).powf((%s) as f64)", c.exprText(d.Left), c.exprText(d.Right))
	}
	return fmt.Sprintf("((%s) as %s).checked_pow((%s) as u32).expect(\"Power operation overflowed\")",
		c.exprText(d.Left), c.gen.intTypeText(), c.exprText(d.Right))
}

func (c *fnCtx) arithText(d hir.BinaryData, lt, rt *hir.Type, tok string) string {
	return fmt.Sprintf("%s %s %s", c.floatAdjust(d.Left, rt), tok, c.floatAdjust(d.Right, lt))
}

func (c *fnCtx) setOpText(d hir.BinaryData, method string) string {
	return fmt.Sprintf("%s.%s(&%s).cloned().collect::<HashSet<_>>()",
		c.postfixText(d.Left), method, c.exprText(d.Right))
}

// unaryText renders not, negation and bitwise inversion.
func (c *fnCtx) unaryText(d hir.UnaryData) string {
	switch d.Op {
	case hir.OpNot:
		return "!" + c.condOperand(d.Operand)
	case hir.OpNeg:
		return "-" + c.operandText(d.Operand)
	case hir.OpPos:
		return c.operandText(d.Operand)
	default:
		return "!" + c.operandText(d.Operand)
	}
}

// condText renders an expression in boolean position, applying the
// truthiness conversion for its flow type: containers test emptiness,
// Options test presence, numbers test against zero.
func (c *fnCtx) condText(e *hir.Expr) string {
	t := c.exprType(e)
	switch {
	case isStrType(t), isListType(t), isDictType(t), isSetType(t):
		return fmt.Sprintf("!%s.is_empty()", c.postfixText(e))
	case t.Kind == hir.TypeOptional:
		return fmt.Sprintf("%s.is_some()", c.postfixText(e))
	case t.Kind == hir.TypeInt:
		return fmt.Sprintf("%s != 0", c.operandText(e))
	case t.Kind == hir.TypeFloat:
		return fmt.Sprintf("%s != 0.0", c.operandText(e))
	default:
		return c.exprText(e)
	}
}

// condOperand is condText with parentheses around operator forms, for
// use inside && / || / ! compositions.
func (c *fnCtx) condOperand(e *hir.Expr) string {
	s := c.condText(e)
	switch e.Kind {
	case hir.ExprBinary, hir.ExprIfExp, hir.ExprNamed, hir.ExprLambda:
		return "(" + s + ")"
	}
	if strings.HasPrefix(s, "!") {
		// Already negated; grouping keeps a following ! readable.
		return "(" + s + ")"
	}
	return s
}

// operandText parenthesizes compound sub-expressions so the emitted
// operator tree matches the source tree.
func (c *fnCtx) operandText(e *hir.Expr) string {
	s := c.exprText(e)
	switch e.Kind {
	case hir.ExprBinary, hir.ExprIfExp, hir.ExprLambda, hir.ExprNamed, hir.ExprUnary:
		return "(" + s + ")"
	}
	return s
}

// postfixText renders e as a method receiver, parenthesizing operator
// expressions.
func (c *fnCtx) postfixText(e *hir.Expr) string {
	s := c.exprText(e)
	switch e.Kind {
	case hir.ExprBinary, hir.ExprUnary, hir.ExprIfExp, hir.ExprLambda, hir.ExprNamed, hir.ExprBorrow:
		return "(" + s + ")"
	}
	return s
}

// ownedOperand renders e where an owned value is consumed, cloning
// variables and fields.
func (c *fnCtx) ownedOperand(e *hir.Expr) string {
	s := c.operandText(e)
	switch e.Kind {
	case hir.ExprVar, hir.ExprAttribute:
		return s + ".clone()"
	}
	return s
}

// floatAdjust renders e, promoting an integer literal to float spelling
// when the opposite operand is float-typed.
func (c *fnCtx) floatAdjust(e *hir.Expr, other *hir.Type) string {
	if lit, ok := e.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt &&
		other != nil && other.Kind == hir.TypeFloat {
		return fmt.Sprintf("%d.0", lit.Int)
	}
	return c.operandText(e)
}

// strRecvText renders a string expression receiving repeat or similar,
// keeping literals bare.
func (c *fnCtx) strRecvText(e *hir.Expr) string {
	return c.postfixText(e)
}

func isStrLit(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LitStr
}

func isIntLit(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LitInt
}

func isNegativeLit(e *hir.Expr) bool {
	if u, ok := e.Data.(hir.UnaryData); ok && u.Op == hir.OpNeg {
		return isIntLit(u.Operand) || isFloatLit(u.Operand)
	}
	lit, ok := e.Data.(hir.LiteralData)
	return ok && (lit.Kind == hir.LitInt && lit.Int < 0 ||
		lit.Kind == hir.LitFloat && lit.Float < 0)
}

func isFloatLit(e *hir.Expr) bool {
	lit, ok := e.Data.(hir.LiteralData)
	return ok && lit.Kind == hir.LitFloat
}

// percentFormat rewrites a printf-style template literal into format!.
// Unrecognized directives pass through verbatim.
func (c *fnCtx) percentFormat(template string, right *hir.Expr) string {
	var b strings.Builder
	i := 0
	for i < len(template) {
		ch := template[i]
		if ch == '{' {
			b.WriteString("{{")
			i++
			continue
		}
		if ch == '}' {
			b.WriteString("}}")
			i++
			continue
		}
		if ch != '%' || i+1 >= len(template) {
			b.WriteByte(ch)
			i++
			continue
		}
		j := i + 1
		// Optional precision, as in %.2f.
		prec := ""
		if template[j] == '.' {
			k := j + 1
			for k < len(template) && template[k] >= '0' && template[k] <= '9' {
				k++
			}
			prec = template[j+1 : k]
			j = k
		}
		if j >= len(template) {
			b.WriteByte(ch)
			i++
			continue
		}
		switch template[j] {
		case 's', 'd', 'i':
			b.WriteString("{}")
		case 'f':
			if prec == "" {
				prec = "6"
			}
			b.WriteString("{:." + prec + "}")
		case 'x':
			b.WriteString("{:x}")
		case 'X':
			b.WriteString("{:X}")
		case 'o':
			b.WriteString("{:o}")
		case '%':
			b.WriteByte('%')
		default:
			b.WriteString(template[i : j+1])
		}
		i = j + 1
	}
	args := []string{}
	if tup, ok := right.Data.(hir.TupleData); ok {
		for _, el := range tup.Elems {
			args = append(args, c.exprText(el))
		}
	} else {
		args = append(args, c.exprText(right))
	}
	return fmt.Sprintf("format!(%s, %s)", rustQuote(b.String()), strings.Join(args, ", "))
}
