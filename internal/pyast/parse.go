package pyast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/source"
)

// tree-sitter parsers are not safe for concurrent use; the pool hands one
// instance per goroutine during batch runs.
var parserPool = sync.Pool{
	New: func() any {
		p := sitter.NewParser()
		p.SetLanguage(python.GetLanguage())
		return p
	},
}

// Parse converts Python source into a pyast.Module. Syntax problems are
// reported through the reporter; the returned module covers whatever parsed.
func Parse(ctx context.Context, file *source.File, reporter diag.Reporter) (*Module, error) {
	if !utf8.Valid(file.Content) {
		sp := source.Span{File: file.ID, Start: 0, End: 0}
		diag.ReportError(reporter, diag.SynInvalidEncoding, sp, "source is not valid UTF-8").Emit()
		return nil, fmt.Errorf("parse %s: invalid UTF-8", file.Path)
	}

	parser := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, file.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	defer tree.Close()

	conv := &converter{
		file:     file,
		src:      file.Content,
		reporter: reporter,
	}

	root := tree.RootNode()
	if root.HasError() {
		conv.reportSyntaxErrors(root)
	}
	return conv.convertModule(root), nil
}

type converter struct {
	file     *source.File
	src      []byte
	reporter diag.Reporter
	errCount int
}

const maxSyntaxErrors = 20

func (c *converter) span(n *sitter.Node) source.Span {
	return source.Span{File: c.file.ID, Start: n.StartByte(), End: n.EndByte()}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

// reportSyntaxErrors walks the tree for ERROR and missing nodes.
func (c *converter) reportSyntaxErrors(n *sitter.Node) {
	if c.errCount >= maxSyntaxErrors {
		return
	}
	switch {
	case n.IsMissing():
		c.errCount++
		diag.ReportError(c.reporter, diag.SynMissingNode, c.span(n),
			fmt.Sprintf("missing %s", n.Type())).Emit()
		return
	case n.Type() == "ERROR":
		c.errCount++
		excerpt := c.text(n)
		if len(excerpt) > 40 {
			excerpt = excerpt[:40] + "..."
		}
		diag.ReportError(c.reporter, diag.SynParseError, c.span(n),
			fmt.Sprintf("invalid syntax near %q", excerpt)).Emit()
		// Do not descend: nested ERROR nodes repeat the same problem.
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c.reportSyntaxErrors(n.Child(i))
	}
}

func (c *converter) convertModule(root *sitter.Node) *Module {
	mod := &Module{node: At(c.span(root))}
	mod.Body = c.convertBody(root)
	return mod
}

// convertBody converts the statement children of a module or block node.
func (c *converter) convertBody(n *sitter.Node) []Stmt {
	out := make([]Stmt, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if stmt := c.convertStmt(child); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) convertStmt(n *sitter.Node) Stmt {
	switch n.Type() {
	case "comment":
		return nil
	case "function_definition":
		return c.convertFunction(n, nil)
	case "decorated_definition":
		return c.convertDecorated(n)
	case "class_definition":
		return c.convertClass(n, nil)
	case "import_statement", "future_import_statement":
		return c.convertImport(n)
	case "import_from_statement":
		return c.convertImportFrom(n)
	case "expression_statement":
		return c.convertExprStatement(n)
	case "return_statement":
		ret := &Return{node: At(c.span(n))}
		if v := c.statementExpressions(n); v != nil {
			ret.Value = v
		}
		return ret
	case "if_statement":
		return c.convertIf(n)
	case "while_statement":
		w := &While{node: At(c.span(n))}
		w.Cond = c.convertExpr(n.ChildByFieldName("condition"))
		w.Body = c.convertSuite(n.ChildByFieldName("body"))
		w.Orelse = c.convertElse(n)
		return w
	case "for_statement":
		f := &For{node: At(c.span(n))}
		f.Target = c.convertExpr(n.ChildByFieldName("left"))
		f.Iter = c.convertExpr(n.ChildByFieldName("right"))
		f.Body = c.convertSuite(n.ChildByFieldName("body"))
		f.Orelse = c.convertElse(n)
		f.IsAsync = c.hasKeywordChild(n, "async")
		return f
	case "try_statement":
		return c.convertTry(n)
	case "with_statement":
		return c.convertWith(n)
	case "raise_statement":
		r := &Raise{node: At(c.span(n))}
		r.Exc = c.statementExpressions(n)
		if cause := n.ChildByFieldName("cause"); cause != nil {
			r.Cause = c.convertExpr(cause)
		}
		return r
	case "assert_statement":
		a := &Assert{node: At(c.span(n))}
		if n.NamedChildCount() > 0 {
			a.Test = c.convertExpr(n.NamedChild(0))
		}
		if n.NamedChildCount() > 1 {
			a.Msg = c.convertExpr(n.NamedChild(1))
		}
		return a
	case "pass_statement":
		return &Pass{node: At(c.span(n))}
	case "break_statement":
		return &Break{node: At(c.span(n))}
	case "continue_statement":
		return &Continue{node: At(c.span(n))}
	case "global_statement":
		return &Global{node: At(c.span(n)), Names: c.identifierList(n)}
	case "nonlocal_statement":
		return &Nonlocal{node: At(c.span(n)), Names: c.identifierList(n)}
	case "delete_statement":
		d := &Delete{node: At(c.span(n))}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			d.Targets = append(d.Targets, c.convertExpr(n.NamedChild(i)))
		}
		return d
	case "match_statement":
		return c.convertMatch(n)
	case "ERROR":
		return nil
	default:
		// Unknown statements degrade to an expression statement when they
		// carry a single expression child, otherwise they are dropped here
		// and surface as gaps during lowering.
		if n.NamedChildCount() == 1 {
			if e := c.convertExpr(n.NamedChild(0)); e != nil {
				return &ExprStmt{node: At(c.span(n)), Value: e}
			}
		}
		return nil
	}
}

func (c *converter) hasKeywordChild(n *sitter.Node, kw string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if !ch.IsNamed() && ch.Type() == kw {
			return true
		}
	}
	return false
}

// statementExpressions handles the optional expression payload of return and
// raise statements, joining comma lists into a tuple.
func (c *converter) statementExpressions(n *sitter.Node) Expr {
	exprs := make([]Expr, 0, 1)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if n.ChildByFieldName("cause") != nil && child.Equal(n.ChildByFieldName("cause")) {
			continue
		}
		if child.Type() == "expression_list" {
			for j := 0; j < int(child.NamedChildCount()); j++ {
				exprs = append(exprs, c.convertExpr(child.NamedChild(j)))
			}
			continue
		}
		exprs = append(exprs, c.convertExpr(child))
	}
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return &TupleExpr{node: At(c.span(n)), Elts: exprs}
	}
}

func (c *converter) identifierList(n *sitter.Node) []string {
	names := make([]string, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		names = append(names, c.text(n.NamedChild(i)))
	}
	return names
}

func (c *converter) convertDecorated(n *sitter.Node) Stmt {
	decorators := make([]Expr, 0, 1)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" {
			if child.NamedChildCount() > 0 {
				decorators = append(decorators, c.convertExpr(child.NamedChild(0)))
			}
			continue
		}
		switch child.Type() {
		case "function_definition":
			return c.convertFunction(child, decorators)
		case "class_definition":
			return c.convertClass(child, decorators)
		}
	}
	return nil
}

func (c *converter) convertFunction(n *sitter.Node, decorators []Expr) Stmt {
	fn := &FunctionDef{
		node:       At(c.span(n)),
		Decorators: decorators,
		IsAsync:    c.hasKeywordChild(n, "async"),
		DefLine:    n.StartPoint().Row + 1,
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Args = c.convertParameters(params)
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		fn.Returns = c.convertExpr(c.unwrapType(ret))
	}
	body := c.convertSuite(n.ChildByFieldName("body"))
	fn.Docstring, fn.Body = splitDocstring(body)
	return fn
}

func (c *converter) convertClass(n *sitter.Node, decorators []Expr) Stmt {
	cls := &ClassDef{
		node:       At(c.span(n)),
		Decorators: decorators,
		DefLine:    n.StartPoint().Row + 1,
	}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.Name = c.text(name)
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				kw := Keyword{node: At(c.span(arg))}
				if nameN := arg.ChildByFieldName("name"); nameN != nil {
					kw.Arg = c.text(nameN)
				}
				kw.Value = c.convertExpr(arg.ChildByFieldName("value"))
				cls.Keywords = append(cls.Keywords, kw)
				continue
			}
			cls.Bases = append(cls.Bases, c.convertExpr(arg))
		}
	}
	body := c.convertSuite(n.ChildByFieldName("body"))
	cls.Docstring, cls.Body = splitDocstring(body)
	return cls
}

// splitDocstring peels a leading string expression statement off a body.
func splitDocstring(body []Stmt) (string, []Stmt) {
	if len(body) == 0 {
		return "", body
	}
	es, ok := body[0].(*ExprStmt)
	if !ok {
		return "", body
	}
	lit, ok := es.Value.(*Literal)
	if !ok || lit.Kind != LitString {
		return "", body
	}
	return lit.Text, body[1:]
}

func (c *converter) convertSuite(n *sitter.Node) []Stmt {
	if n == nil {
		return nil
	}
	return c.convertBody(n)
}

func (c *converter) convertElse(n *sitter.Node) []Stmt {
	if alt := n.ChildByFieldName("alternative"); alt != nil && alt.Type() == "else_clause" {
		return c.convertSuite(alt.ChildByFieldName("body"))
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "else_clause" {
			return c.convertSuite(child.ChildByFieldName("body"))
		}
	}
	return nil
}

func (c *converter) convertIf(n *sitter.Node) Stmt {
	out := &If{node: At(c.span(n))}
	out.Cond = c.convertExpr(n.ChildByFieldName("condition"))
	out.Body = c.convertSuite(n.ChildByFieldName("consequence"))

	// elif chains become a nested If in Orelse, matching the textual shape.
	var elifs []*sitter.Node
	var elseBody []Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			elifs = append(elifs, child)
		case "else_clause":
			elseBody = c.convertSuite(child.ChildByFieldName("body"))
		}
	}
	cur := out
	for _, e := range elifs {
		next := &If{node: At(c.span(e))}
		next.Cond = c.convertExpr(e.ChildByFieldName("condition"))
		next.Body = c.convertSuite(e.ChildByFieldName("consequence"))
		cur.Orelse = []Stmt{next}
		cur = next
	}
	cur.Orelse = elseBody
	return out
}

func (c *converter) convertTry(n *sitter.Node) Stmt {
	t := &Try{node: At(c.span(n))}
	t.Body = c.convertSuite(n.ChildByFieldName("body"))
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "except_clause":
			t.Handlers = append(t.Handlers, c.convertExcept(child))
		case "else_clause":
			t.Orelse = c.convertSuite(child.ChildByFieldName("body"))
		case "finally_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "block" {
					t.Final = c.convertSuite(child.NamedChild(j))
				}
			}
		}
	}
	return t
}

func (c *converter) convertExcept(n *sitter.Node) ExceptHandler {
	h := ExceptHandler{node: At(c.span(n))}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "block":
			h.Body = c.convertSuite(child)
		case "as_pattern":
			h.Type = c.convertExpr(child.NamedChild(0))
			if alias := child.ChildByFieldName("alias"); alias != nil {
				h.Name = c.text(alias)
			}
		case "identifier":
			if h.Type == nil {
				h.Type = c.convertExpr(child)
			} else {
				h.Name = c.text(child)
			}
		default:
			if h.Type == nil {
				h.Type = c.convertExpr(child)
			}
		}
	}
	return h
}

func (c *converter) convertWith(n *sitter.Node) Stmt {
	w := &With{node: At(c.span(n)), IsAsync: c.hasKeywordChild(n, "async")}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "with_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if child.NamedChild(j).Type() == "with_item" {
					w.Items = append(w.Items, c.convertWithItem(child.NamedChild(j)))
				}
			}
		case "block":
			w.Body = c.convertSuite(child)
		}
	}
	if w.Body == nil {
		w.Body = c.convertSuite(n.ChildByFieldName("body"))
	}
	return w
}

func (c *converter) convertWithItem(n *sitter.Node) WithItem {
	item := WithItem{node: At(c.span(n))}
	value := n.ChildByFieldName("value")
	if value == nil && n.NamedChildCount() > 0 {
		value = n.NamedChild(0)
	}
	if value != nil && value.Type() == "as_pattern" {
		item.Context = c.convertExpr(value.NamedChild(0))
		if alias := value.ChildByFieldName("alias"); alias != nil {
			item.Target = &Name{node: At(c.span(alias)), ID: c.text(alias)}
		}
		return item
	}
	item.Context = c.convertExpr(value)
	return item
}

func (c *converter) convertMatch(n *sitter.Node) Stmt {
	m := &Match{node: At(c.span(n))}
	if subject := n.ChildByFieldName("subject"); subject != nil {
		m.Subject = c.convertExpr(subject)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return m
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		clause := body.NamedChild(i)
		if clause.Type() != "case_clause" {
			continue
		}
		mc := MatchCase{node: At(c.span(clause))}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			part := clause.NamedChild(j)
			switch part.Type() {
			case "case_pattern":
				if mc.Pattern == nil {
					mc.Pattern = c.convertCasePattern(part)
				}
			case "if_clause":
				if part.NamedChildCount() > 0 {
					mc.Guard = c.convertExpr(part.NamedChild(0))
				}
			case "block":
				mc.Body = c.convertSuite(part)
			}
		}
		m.Cases = append(m.Cases, mc)
	}
	return m
}

// convertCasePattern maps the grammar's pattern nodes back onto plain
// expressions. The wildcard is a bare token with no named children, and
// capture names arrive wrapped in dotted_name.
func (c *converter) convertCasePattern(n *sitter.Node) Expr {
	if n.NamedChildCount() == 0 {
		return &Name{node: At(c.span(n)), ID: c.text(n)}
	}
	child := n.NamedChild(0)
	if child.Type() == "dotted_name" {
		if child.NamedChildCount() == 1 {
			return c.convertExpr(child.NamedChild(0))
		}
		var expr Expr
		for i := 0; i < int(child.NamedChildCount()); i++ {
			part := child.NamedChild(i)
			if expr == nil {
				expr = c.convertExpr(part)
				continue
			}
			expr = &Attribute{node: At(c.span(part)), Value: expr, Attr: c.text(part)}
		}
		return expr
	}
	return c.convertExpr(child)
}

func (c *converter) convertImport(n *sitter.Node) Stmt {
	imp := &Import{node: At(c.span(n))}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name", "identifier":
			imp.Names = append(imp.Names, ImportAlias{
				node: At(c.span(child)),
				Name: c.text(child),
			})
		case "aliased_import":
			alias := ImportAlias{node: At(c.span(child))}
			if nameN := child.ChildByFieldName("name"); nameN != nil {
				alias.Name = c.text(nameN)
			}
			if aliasN := child.ChildByFieldName("alias"); aliasN != nil {
				alias.Alias = c.text(aliasN)
			}
			imp.Names = append(imp.Names, alias)
		}
	}
	return imp
}

func (c *converter) convertImportFrom(n *sitter.Node) Stmt {
	imp := &ImportFrom{node: At(c.span(n))}
	if moduleName := n.ChildByFieldName("module_name"); moduleName != nil {
		if moduleName.Type() == "relative_import" {
			raw := c.text(moduleName)
			imp.Level = len(raw) - len(strings.TrimLeft(raw, "."))
			imp.Module = strings.TrimLeft(raw, ".")
		} else {
			imp.Module = c.text(moduleName)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if mod := n.ChildByFieldName("module_name"); mod != nil && child.Equal(mod) {
			continue
		}
		switch child.Type() {
		case "wildcard_import":
			imp.Wildcard = true
		case "dotted_name", "identifier":
			imp.Names = append(imp.Names, ImportAlias{
				node: At(c.span(child)),
				Name: c.text(child),
			})
		case "aliased_import":
			alias := ImportAlias{node: At(c.span(child))}
			if nameN := child.ChildByFieldName("name"); nameN != nil {
				alias.Name = c.text(nameN)
			}
			if aliasN := child.ChildByFieldName("alias"); aliasN != nil {
				alias.Alias = c.text(aliasN)
			}
			imp.Names = append(imp.Names, alias)
		}
	}
	return imp
}

func (c *converter) convertExprStatement(n *sitter.Node) Stmt {
	if n.NamedChildCount() == 0 {
		return nil
	}
	child := n.NamedChild(0)
	switch child.Type() {
	case "assignment":
		return c.convertAssignment(child)
	case "augmented_assignment":
		return c.convertAugAssign(child)
	default:
		if e := c.convertExpr(child); e != nil {
			return &ExprStmt{node: At(c.span(n)), Value: e}
		}
	}
	return nil
}

func (c *converter) convertAssignment(n *sitter.Node) Stmt {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	typeN := n.ChildByFieldName("type")

	if typeN != nil {
		out := &AnnAssign{node: At(c.span(n))}
		out.Target = c.convertExpr(left)
		out.Annotation = c.convertExpr(c.unwrapType(typeN))
		if right != nil {
			out.Value = c.convertExpr(right)
		}
		return out
	}

	out := &Assign{node: At(c.span(n))}
	out.Targets = append(out.Targets, c.convertExpr(left))
	// Chained `a = b = expr` nests on the right.
	for right != nil && right.Type() == "assignment" && right.ChildByFieldName("type") == nil {
		out.Targets = append(out.Targets, c.convertExpr(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	if right != nil {
		out.Value = c.convertExpr(right)
	}
	return out
}

var augOps = map[string]BinOpKind{
	"+=": OpAdd, "-=": OpSub, "*=": OpMul, "/=": OpDiv,
	"//=": OpFloorDiv, "%=": OpMod, "**=": OpPow, "@=": OpMatMul,
	"<<=": OpLShift, ">>=": OpRShift, "|=": OpBitOr, "^=": OpBitXor, "&=": OpBitAnd,
}

func (c *converter) convertAugAssign(n *sitter.Node) Stmt {
	out := &AugAssign{node: At(c.span(n))}
	out.Target = c.convertExpr(n.ChildByFieldName("left"))
	if opN := n.ChildByFieldName("operator"); opN != nil {
		out.Op = augOps[c.text(opN)]
	}
	out.Value = c.convertExpr(n.ChildByFieldName("right"))
	return out
}

// unwrapType peels the `type` wrapper node the grammar places around
// annotation expressions.
func (c *converter) unwrapType(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "type" && n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return n
}
