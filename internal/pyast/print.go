package pyast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented node tree of the module, one node per line, for
// the inspect command and for parser tests.
func Dump(w io.Writer, m *Module) {
	d := &dumper{w: w}
	d.line("Module")
	d.indent++
	for _, s := range m.Body {
		d.stmt(s)
	}
}

// DumpString renders the module tree to a string.
func DumpString(m *Module) string {
	var sb strings.Builder
	Dump(&sb, m)
	return sb.String()
}

type dumper struct {
	w      io.Writer
	indent int
}

func (d *dumper) line(format string, args ...any) {
	fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("  ", d.indent), fmt.Sprintf(format, args...))
}

func (d *dumper) block(header string, fn func()) {
	d.line("%s", header)
	d.indent++
	fn()
	d.indent--
}

func (d *dumper) body(label string, body []Stmt) {
	if len(body) == 0 {
		return
	}
	d.block(label, func() {
		for _, s := range body {
			d.stmt(s)
		}
	})
}

func (d *dumper) stmt(s Stmt) {
	switch n := s.(type) {
	case *FunctionDef:
		header := fmt.Sprintf("FunctionDef name=%s", n.Name)
		if n.IsAsync {
			header += " async"
		}
		d.block(header, func() {
			d.args(n.Args)
			if n.Returns != nil {
				d.block("returns", func() { d.expr(n.Returns) })
			}
			for _, dec := range n.Decorators {
				d.block("decorator", func() { d.expr(dec) })
			}
			d.body("body", n.Body)
		})
	case *ClassDef:
		d.block(fmt.Sprintf("ClassDef name=%s", n.Name), func() {
			for _, b := range n.Bases {
				d.block("base", func() { d.expr(b) })
			}
			for _, kw := range n.Keywords {
				d.block(fmt.Sprintf("keyword %s", kw.Arg), func() { d.expr(kw.Value) })
			}
			d.body("body", n.Body)
		})
	case *Return:
		if n.Value == nil {
			d.line("Return")
			return
		}
		d.block("Return", func() { d.expr(n.Value) })
	case *Assign:
		d.block("Assign", func() {
			for _, t := range n.Targets {
				d.block("target", func() { d.expr(t) })
			}
			d.block("value", func() { d.expr(n.Value) })
		})
	case *AnnAssign:
		d.block("AnnAssign", func() {
			d.block("target", func() { d.expr(n.Target) })
			d.block("annotation", func() { d.expr(n.Annotation) })
			if n.Value != nil {
				d.block("value", func() { d.expr(n.Value) })
			}
		})
	case *AugAssign:
		d.block(fmt.Sprintf("AugAssign op=%s", n.Op), func() {
			d.block("target", func() { d.expr(n.Target) })
			d.block("value", func() { d.expr(n.Value) })
		})
	case *If:
		d.block("If", func() {
			d.block("cond", func() { d.expr(n.Cond) })
			d.body("body", n.Body)
			d.body("orelse", n.Orelse)
		})
	case *While:
		d.block("While", func() {
			d.block("cond", func() { d.expr(n.Cond) })
			d.body("body", n.Body)
			d.body("orelse", n.Orelse)
		})
	case *For:
		header := "For"
		if n.IsAsync {
			header = "For async"
		}
		d.block(header, func() {
			d.block("target", func() { d.expr(n.Target) })
			d.block("iter", func() { d.expr(n.Iter) })
			d.body("body", n.Body)
			d.body("orelse", n.Orelse)
		})
	case *With:
		d.block("With", func() {
			for _, item := range n.Items {
				d.block("item", func() {
					d.expr(item.Context)
					if item.Target != nil {
						d.block("as", func() { d.expr(item.Target) })
					}
				})
			}
			d.body("body", n.Body)
		})
	case *Raise:
		if n.Exc == nil {
			d.line("Raise")
			return
		}
		d.block("Raise", func() {
			d.expr(n.Exc)
			if n.Cause != nil {
				d.block("from", func() { d.expr(n.Cause) })
			}
		})
	case *Try:
		d.block("Try", func() {
			d.body("body", n.Body)
			for _, h := range n.Handlers {
				header := "except"
				if h.Name != "" {
					header = fmt.Sprintf("except as=%s", h.Name)
				}
				d.block(header, func() {
					if h.Type != nil {
						d.block("type", func() { d.expr(h.Type) })
					}
					d.body("body", h.Body)
				})
			}
			d.body("orelse", n.Orelse)
			d.body("finally", n.Final)
		})
	case *Assert:
		d.block("Assert", func() {
			d.expr(n.Test)
			if n.Msg != nil {
				d.block("msg", func() { d.expr(n.Msg) })
			}
		})
	case *Import:
		d.line("Import %s", aliasList(n.Names))
	case *ImportFrom:
		from := strings.Repeat(".", n.Level) + n.Module
		if n.Wildcard {
			d.line("ImportFrom %s *", from)
			return
		}
		d.line("ImportFrom %s %s", from, aliasList(n.Names))
	case *Global:
		d.line("Global %s", strings.Join(n.Names, ", "))
	case *Nonlocal:
		d.line("Nonlocal %s", strings.Join(n.Names, ", "))
	case *ExprStmt:
		d.block("ExprStmt", func() { d.expr(n.Value) })
	case *Pass:
		d.line("Pass")
	case *Break:
		d.line("Break")
	case *Continue:
		d.line("Continue")
	case *Delete:
		d.block("Delete", func() {
			for _, t := range n.Targets {
				d.expr(t)
			}
		})
	case *Match:
		d.block("Match", func() {
			d.block("subject", func() { d.expr(n.Subject) })
			for _, c := range n.Cases {
				d.block("case", func() {
					d.block("pattern", func() { d.expr(c.Pattern) })
					if c.Guard != nil {
						d.block("guard", func() { d.expr(c.Guard) })
					}
					d.body("body", c.Body)
				})
			}
		})
	default:
		d.line("%T", s)
	}
}

func (d *dumper) args(a Arguments) {
	named := func(label string, params []Param) {
		for _, p := range params {
			d.param(label, p)
		}
	}
	named("posonly", a.PosOnly)
	named("arg", a.Args)
	if a.VarArg != nil {
		d.param("vararg", *a.VarArg)
	}
	named("kwonly", a.KwOnly)
	if a.KwArg != nil {
		d.param("kwarg", *a.KwArg)
	}
}

func (d *dumper) param(label string, p Param) {
	d.block(fmt.Sprintf("%s %s", label, p.Name), func() {
		if p.Annotation != nil {
			d.block("annotation", func() { d.expr(p.Annotation) })
		}
		if p.Default != nil {
			d.block("default", func() { d.expr(p.Default) })
		}
	})
}

func (d *dumper) expr(e Expr) {
	if e == nil {
		d.line("<nil>")
		return
	}
	switch n := e.(type) {
	case *Literal:
		d.line("Literal %s", literalText(n))
	case *Name:
		d.line("Name %s", n.ID)
	case *BinOp:
		d.block(fmt.Sprintf("BinOp op=%s", n.Op), func() {
			d.expr(n.Left)
			d.expr(n.Right)
		})
	case *BoolOp:
		op := "and"
		if n.Op == OpOr {
			op = "or"
		}
		d.block(fmt.Sprintf("BoolOp op=%s", op), func() {
			for _, v := range n.Values {
				d.expr(v)
			}
		})
	case *UnaryOp:
		d.block(fmt.Sprintf("UnaryOp op=%s", unaryText(n.Op)), func() { d.expr(n.Operand) })
	case *Compare:
		ops := make([]string, len(n.Ops))
		for i, op := range n.Ops {
			ops[i] = op.String()
		}
		d.block(fmt.Sprintf("Compare ops=[%s]", strings.Join(ops, " ")), func() {
			d.expr(n.Left)
			for _, c := range n.Comparators {
				d.expr(c)
			}
		})
	case *Call:
		d.block("Call", func() {
			d.block("func", func() { d.expr(n.Func) })
			for _, a := range n.Args {
				d.block("arg", func() { d.expr(a) })
			}
			for _, kw := range n.Keywords {
				label := "kwarg " + kw.Arg
				if kw.Arg == "" {
					label = "kwsplat"
				}
				d.block(label, func() { d.expr(kw.Value) })
			}
		})
	case *Attribute:
		d.block(fmt.Sprintf("Attribute attr=%s", n.Attr), func() { d.expr(n.Value) })
	case *Subscript:
		d.block("Subscript", func() {
			d.expr(n.Value)
			d.block("index", func() { d.expr(n.Index) })
		})
	case *Slice:
		d.block("Slice", func() {
			if n.Lower != nil {
				d.block("lower", func() { d.expr(n.Lower) })
			}
			if n.Upper != nil {
				d.block("upper", func() { d.expr(n.Upper) })
			}
			if n.Step != nil {
				d.block("step", func() { d.expr(n.Step) })
			}
		})
	case *ListExpr:
		d.elems("List", n.Elts)
	case *TupleExpr:
		d.elems("Tuple", n.Elts)
	case *SetExpr:
		d.elems("Set", n.Elts)
	case *DictExpr:
		d.block("Dict", func() {
			for i := range n.Values {
				if n.Keys[i] == nil {
					d.block("splat", func() { d.expr(n.Values[i]) })
					continue
				}
				d.block("entry", func() {
					d.expr(n.Keys[i])
					d.expr(n.Values[i])
				})
			}
		})
	case *CompExpr:
		kinds := map[CompKind]string{
			CompList: "list", CompSet: "set", CompDict: "dict", CompGenerator: "generator",
		}
		d.block(fmt.Sprintf("Comp kind=%s", kinds[n.Kind]), func() {
			d.block("elt", func() { d.expr(n.Elt) })
			if n.Value != nil {
				d.block("value", func() { d.expr(n.Value) })
			}
			for _, g := range n.Generators {
				d.block("for", func() {
					d.block("target", func() { d.expr(g.Target) })
					d.block("iter", func() { d.expr(g.Iter) })
					for _, cond := range g.Ifs {
						d.block("if", func() { d.expr(cond) })
					}
				})
			}
		})
	case *Lambda:
		d.block("Lambda", func() {
			d.args(n.Args)
			d.block("body", func() { d.expr(n.Body) })
		})
	case *IfExpr:
		d.block("IfExpr", func() {
			d.block("cond", func() { d.expr(n.Cond) })
			d.block("then", func() { d.expr(n.Body) })
			d.block("else", func() { d.expr(n.Orelse) })
		})
	case *NamedExpr:
		d.block("NamedExpr", func() {
			d.block("target", func() { d.expr(n.Target) })
			d.block("value", func() { d.expr(n.Value) })
		})
	case *FString:
		d.block("FString", func() {
			for _, part := range n.Parts {
				if part.Expr == nil {
					d.line("text %q", part.Text)
					continue
				}
				header := "interp"
				if part.Format != "" {
					header = fmt.Sprintf("interp format=%s", part.Format)
				}
				d.block(header, func() { d.expr(part.Expr) })
			}
		})
	case *Await:
		d.block("Await", func() { d.expr(n.Value) })
	case *Yield:
		header := "Yield"
		if n.IsFrom {
			header = "YieldFrom"
		}
		if n.Value == nil {
			d.line("%s", header)
			return
		}
		d.block(header, func() { d.expr(n.Value) })
	case *Starred:
		d.block("Starred", func() { d.expr(n.Value) })
	default:
		d.line("%T", e)
	}
}

func (d *dumper) elems(kind string, elts []Expr) {
	if len(elts) == 0 {
		d.line("%s empty", kind)
		return
	}
	d.block(kind, func() {
		for _, e := range elts {
			d.expr(e)
		}
	})
}

func literalText(n *Literal) string {
	switch n.Kind {
	case LitString:
		return fmt.Sprintf("%q", n.Text)
	case LitBytes:
		return fmt.Sprintf("b%q", n.Text)
	case LitBool:
		if n.Bool {
			return "True"
		}
		return "False"
	case LitNone:
		return "None"
	case LitEllipsis:
		return "..."
	default:
		return n.Text
	}
}

func unaryText(k UnaryOpKind) string {
	switch k {
	case OpNot:
		return "not"
	case OpNeg:
		return "-"
	case OpUAdd:
		return "+"
	default:
		return "~"
	}
}

func aliasList(names []ImportAlias) string {
	parts := make([]string, len(names))
	for i, a := range names {
		if a.Alias != "" {
			parts[i] = a.Name + " as " + a.Alias
		} else {
			parts[i] = a.Name
		}
	}
	return strings.Join(parts, ", ")
}
