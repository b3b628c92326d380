package rustgen

import (
	"strconv"
	"strings"

	"github.com/paiml/depyler/internal/hir"
)

// docExample is one `>>> f(args)` line paired with its expected value.
type docExample struct {
	call     *hir.Expr
	expected *hir.Expr
}

// doctestModule renders a #[cfg(test)] module from docstring examples.
// Only calls of the documented function with literal arguments and a
// literal expected value become assertions; prose and setup lines are
// skipped.
func (g *generator) doctestModule(w *writer) {
	type fnTests struct {
		fn       *hir.Function
		examples []docExample
	}
	var all []fnTests
	for _, fn := range g.mod.Functions {
		if exs := docExamples(fn); len(exs) > 0 {
			all = append(all, fnTests{fn, exs})
		}
	}
	if len(all) == 0 {
		return
	}
	w.Blank()
	w.Line("#[cfg(test)]")
	w.Open("mod tests {")
	w.Line("use super::*;")
	c := g.constCtx()
	for _, ft := range all {
		w.Blank()
		w.Line("#[test]")
		w.Openf("fn test_%s_examples() {", sanitizeIdent(ft.fn.Name))
		for _, ex := range ft.examples {
			w.Linef("assert_eq!(%s, %s);", c.exprText(ex.call), c.valueText(ex.expected, ft.fn.Ret))
		}
		w.Close("}")
	}
	w.Close("}")
}

// docExamples extracts the examples a docstring carries for fn.
func docExamples(fn *hir.Function) []docExample {
	if fn.Docstring == "" || !strings.Contains(fn.Docstring, ">>>") {
		return nil
	}
	lines := strings.Split(fn.Docstring, "\n")
	var out []docExample
	for i := 0; i+1 < len(lines); i++ {
		src, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), ">>> ")
		if !ok {
			continue
		}
		want := strings.TrimSpace(lines[i+1])
		if want == "" || strings.HasPrefix(want, ">>>") {
			continue
		}
		call, ok := parseDocCall(src, fn.Name)
		if !ok {
			continue
		}
		expected, ok := parseDocLiteral(want)
		if !ok {
			continue
		}
		out = append(out, docExample{call: call, expected: expected})
	}
	return out
}

// parseDocCall accepts `name(lit, lit, ...)` and nothing else.
func parseDocCall(s, name string) (*hir.Expr, bool) {
	rest, ok := strings.CutPrefix(s, name)
	if !ok {
		return nil, false
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return nil, false
	}
	var args []*hir.Expr
	for _, part := range splitTopLevel(rest[1 : len(rest)-1]) {
		arg, ok := parseDocLiteral(part)
		if !ok {
			return nil, false
		}
		args = append(args, arg)
	}
	return &hir.Expr{
		Kind: hir.ExprCall,
		Data: hir.CallData{Func: name, Args: args},
	}, true
}

// parseDocLiteral parses the Python literal subset that appears in
// doctest lines: scalars, strings, and flat lists or tuples of them.
func parseDocLiteral(s string) (*hir.Expr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	switch s {
	case "None":
		return litExpr(hir.LiteralData{Kind: hir.LitNone}), true
	case "True":
		return litExpr(hir.LiteralData{Kind: hir.LitBool, Bool: true}), true
	case "False":
		return litExpr(hir.LiteralData{Kind: hir.LitBool}), true
	}
	if len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elems, ok := parseDocElems(s[1 : len(s)-1])
		if !ok {
			return nil, false
		}
		return &hir.Expr{Kind: hir.ExprList, Data: hir.ListData{Elems: elems}}, true
	}
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		elems, ok := parseDocElems(s[1 : len(s)-1])
		if !ok || len(elems) < 2 {
			return nil, false
		}
		return &hir.Expr{Kind: hir.ExprTuple, Data: hir.TupleData{Elems: elems}}, true
	}
	if q := s[0]; (q == '\'' || q == '"') && len(s) >= 2 && s[len(s)-1] == q {
		return litExpr(hir.LiteralData{Kind: hir.LitStr, Str: unescapeDoc(s[1 : len(s)-1])}), true
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return litExpr(hir.LiteralData{Kind: hir.LitInt, Int: v}), true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") {
		return litExpr(hir.LiteralData{Kind: hir.LitFloat, Float: v, Raw: s}), true
	}
	return nil, false
}

func parseDocElems(inner string) ([]*hir.Expr, bool) {
	if strings.TrimSpace(inner) == "" {
		return nil, true
	}
	var elems []*hir.Expr
	for _, part := range splitTopLevel(inner) {
		e, ok := parseDocLiteral(part)
		if !ok {
			return nil, false
		}
		elems = append(elems, e)
	}
	return elems, true
}

func litExpr(d hir.LiteralData) *hir.Expr {
	return &hir.Expr{Kind: hir.ExprLiteral, Data: d}
}

// splitTopLevel splits on commas outside brackets and quotes.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}

func unescapeDoc(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
