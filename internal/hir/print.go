package hir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Printer dumps HIR to a readable text form for the inspect command and for
// golden tests.
type Printer struct {
	w      io.Writer
	indent int
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Dump writes the module to w.
func Dump(w io.Writer, m *Module) {
	NewPrinter(w).PrintModule(m)
}

// DumpString renders the module to a string.
func DumpString(m *Module) string {
	var sb strings.Builder
	Dump(&sb, m)
	return sb.String()
}

func (p *Printer) PrintModule(m *Module) {
	p.printf("module %s\n", m.Name)
	for _, imp := range m.Imports {
		p.printImport(imp)
	}
	for _, alias := range m.Aliases {
		p.printf("type %s = %s\n", alias.Name, alias.Type)
	}
	for i := range m.TopLevel {
		p.printStmt(&m.TopLevel[i])
	}
	for _, cls := range m.Classes {
		p.printf("\n")
		p.PrintClass(cls)
	}
	for _, fn := range m.Functions {
		p.printf("\n")
		p.PrintFunc(fn)
	}
}

func (p *Printer) printImport(imp Import) {
	if imp.IsFrom {
		if imp.Wildcard {
			p.printf("from %s import *\n", imp.Module)
			return
		}
		items := make([]string, len(imp.Items))
		for i, it := range imp.Items {
			items[i] = it.Name
			if it.Alias != "" {
				items[i] += " as " + it.Alias
			}
		}
		p.printf("from %s import %s\n", imp.Module, strings.Join(items, ", "))
		return
	}
	if imp.Alias != "" {
		p.printf("import %s as %s\n", imp.Module, imp.Alias)
		return
	}
	p.printf("import %s\n", imp.Module)
}

func (p *Printer) PrintClass(cls *Class) {
	p.printf("class %s", cls.Name)
	if len(cls.Bases) > 0 {
		p.printf("(%s)", strings.Join(cls.Bases, ", "))
	}
	if cls.IsDataclass {
		p.printf(" [dataclass]")
	}
	p.printf(" {\n")
	p.indent++
	for _, c := range cls.Constants {
		p.printIndent()
		p.printf("const %s: %s = ", c.Name, c.Type)
		p.printExpr(c.Value)
		p.printf("\n")
	}
	for _, f := range cls.Fields {
		p.printIndent()
		p.printf("field %s: %s", f.Name, f.Type)
		if f.Default != nil {
			p.printf(" = ")
			p.printExpr(f.Default)
		}
		p.printf("\n")
	}
	for _, m := range cls.Methods {
		p.printIndent()
		p.PrintFunc(m)
	}
	p.indent--
	p.printIndent()
	p.printf("}\n")
}

func (p *Printer) PrintFunc(fn *Function) {
	if fn.IsAsync {
		p.printf("async ")
	}
	p.printf("fn %s", fn.Name)
	if fn.Method != MethodFree {
		p.printf(" [%s", fn.Method)
		if fn.Receiver != "" {
			p.printf(" %s", fn.Receiver)
		}
		p.printf("]")
	}
	p.printf("(")
	for i, param := range fn.Params {
		if i > 0 {
			p.printf(", ")
		}
		if param.Variadic {
			p.printf("*")
		}
		p.printf("%s: %s", param.Name, param.Type)
		if param.Default != nil {
			p.printf(" = ")
			p.printExpr(param.Default)
		}
	}
	p.printf(") -> %s {\n", fn.Ret)
	p.indent++
	p.printBody(fn.Body)
	p.indent--
	p.printIndent()
	p.printf("}\n")
}

func (p *Printer) printBody(body []Stmt) {
	for i := range body {
		p.printStmt(&body[i])
	}
}

func (p *Printer) printStmt(s *Stmt) {
	p.printIndent()
	switch d := s.Data.(type) {
	case AssignData:
		p.printTarget(d.Target)
		if !d.Declared.IsUnknown() {
			p.printf(": %s", d.Declared)
		}
		p.printf(" = ")
		p.printExpr(d.Value)
		p.printf("\n")
	case AugAssignData:
		p.printTarget(d.Target)
		p.printf(" %s= ", d.Op)
		p.printExpr(d.Value)
		p.printf("\n")
	case ExprStmtData:
		p.printExpr(d.Expr)
		p.printf("\n")
	case ReturnData:
		p.printf("return")
		if d.Value != nil {
			p.printf(" ")
			p.printExpr(d.Value)
		}
		p.printf("\n")
	case IfData:
		p.printf("if ")
		p.printExpr(d.Cond)
		p.printf(" {\n")
		p.indent++
		p.printBody(d.Then)
		p.indent--
		if len(d.Else) > 0 {
			p.printIndent()
			p.printf("} else {\n")
			p.indent++
			p.printBody(d.Else)
			p.indent--
		}
		p.printIndent()
		p.printf("}\n")
	case WhileData:
		p.printf("while ")
		p.printExpr(d.Cond)
		p.printf(" {\n")
		p.indent++
		p.printBody(d.Body)
		p.indent--
		p.printIndent()
		p.printf("}\n")
	case ForData:
		p.printf("for ")
		p.printTarget(d.Target)
		p.printf(" in ")
		p.printExpr(d.Iter)
		p.printf(" {\n")
		p.indent++
		p.printBody(d.Body)
		p.indent--
		p.printIndent()
		p.printf("}\n")
	case BreakData:
		p.printf("break\n")
	case ContinueData:
		p.printf("continue\n")
	case RaiseData:
		p.printf("raise")
		if d.Exc != nil {
			p.printf(" ")
			p.printExpr(d.Exc)
		}
		if d.Cause != nil {
			p.printf(" from ")
			p.printExpr(d.Cause)
		}
		p.printf("\n")
	case TryData:
		p.printf("try {\n")
		p.indent++
		p.printBody(d.Body)
		p.indent--
		for _, h := range d.Handlers {
			p.printIndent()
			p.printf("} except")
			if len(h.Types) > 0 {
				p.printf(" %s", strings.Join(h.Types, " | "))
			}
			if h.Binding != "" {
				p.printf(" as %s", h.Binding)
			}
			p.printf(" {\n")
			p.indent++
			p.printBody(h.Body)
			p.indent--
		}
		if len(d.Else) > 0 {
			p.printIndent()
			p.printf("} else {\n")
			p.indent++
			p.printBody(d.Else)
			p.indent--
		}
		if len(d.Finally) > 0 {
			p.printIndent()
			p.printf("} finally {\n")
			p.indent++
			p.printBody(d.Finally)
			p.indent--
		}
		p.printIndent()
		p.printf("}\n")
	case WithData:
		p.printf("with ")
		p.printExpr(d.Context)
		if d.Binding != "" {
			p.printf(" as %s", d.Binding)
		}
		p.printf(" {\n")
		p.indent++
		p.printBody(d.Body)
		p.indent--
		p.printIndent()
		p.printf("}\n")
	case AssertData:
		p.printf("assert ")
		p.printExpr(d.Test)
		if d.Msg != nil {
			p.printf(", ")
			p.printExpr(d.Msg)
		}
		p.printf("\n")
	case PassData:
		p.printf("pass\n")
	default:
		p.printf("<%s>\n", s.Kind)
	}
}

func (p *Printer) printTarget(t Target) {
	switch t.Kind {
	case TargetSymbol:
		p.printf("%s", t.Name)
	case TargetIndex:
		p.printExpr(t.Base)
		p.printf("[")
		p.printExpr(t.Index)
		p.printf("]")
	case TargetAttribute:
		p.printExpr(t.Base)
		p.printf(".%s", t.Attr)
	case TargetTuple:
		p.printf("(")
		for i, el := range t.Elems {
			if i > 0 {
				p.printf(", ")
			}
			p.printTarget(el)
		}
		p.printf(")")
	}
}

func (p *Printer) printExpr(e *Expr) {
	if e == nil {
		p.printf("<nil>")
		return
	}
	switch d := e.Data.(type) {
	case LiteralData:
		p.printLiteral(d)
	case VarData:
		p.printf("%s", d.Name)
	case BinaryData:
		p.printf("(")
		p.printExpr(d.Left)
		p.printf(" %s ", d.Op)
		p.printExpr(d.Right)
		p.printf(")")
	case UnaryData:
		p.printf("(%s ", d.Op)
		p.printExpr(d.Operand)
		p.printf(")")
	case CallData:
		if d.FuncExpr != nil {
			p.printExpr(d.FuncExpr)
		} else {
			p.printf("%s", d.Func)
		}
		p.printArgs(d.Args, d.Kwargs)
	case MethodCallData:
		p.printExpr(d.Object)
		p.printf(".%s", d.Method)
		p.printArgs(d.Args, d.Kwargs)
	case AttributeData:
		p.printExpr(d.Value)
		p.printf(".%s", d.Attr)
	case IndexData:
		p.printExpr(d.Base)
		p.printf("[")
		p.printExpr(d.Index)
		p.printf("]")
	case SliceData:
		p.printExpr(d.Base)
		p.printf("[")
		if d.Start != nil {
			p.printExpr(d.Start)
		}
		p.printf(":")
		if d.Stop != nil {
			p.printExpr(d.Stop)
		}
		if d.Step != nil {
			p.printf(":")
			p.printExpr(d.Step)
		}
		p.printf("]")
	case ListData:
		p.printElems("[", d.Elems, "]")
	case TupleData:
		p.printElems("(", d.Elems, ")")
	case SetData:
		p.printElems("{", d.Elems, "}")
	case FrozenSetData:
		p.printf("frozenset(")
		p.printElems("{", d.Elems, "}")
		p.printf(")")
	case DictData:
		p.printf("{")
		for i := range d.Values {
			if i > 0 {
				p.printf(", ")
			}
			if d.Keys[i] == nil {
				p.printf("**")
				p.printExpr(d.Values[i])
				continue
			}
			p.printExpr(d.Keys[i])
			p.printf(": ")
			p.printExpr(d.Values[i])
		}
		p.printf("}")
	case CompData:
		p.printf("<%s-comp ", d.Kind)
		p.printExpr(d.Elt)
		if d.Value != nil {
			p.printf(": ")
			p.printExpr(d.Value)
		}
		for _, cl := range d.Clauses {
			p.printf(" for ")
			p.printTarget(cl.Target)
			p.printf(" in ")
			p.printExpr(cl.Iter)
			for _, c := range cl.Conds {
				p.printf(" if ")
				p.printExpr(c)
			}
		}
		p.printf(">")
	case LambdaData:
		p.printf("lambda (")
		for i, param := range d.Params {
			if i > 0 {
				p.printf(", ")
			}
			p.printf("%s", param.Name)
		}
		p.printf(") ")
		p.printExpr(d.Body)
	case NamedData:
		p.printf("(%s := ", d.Name)
		p.printExpr(d.Value)
		p.printf(")")
	case IfExpData:
		p.printf("(")
		p.printExpr(d.Then)
		p.printf(" if ")
		p.printExpr(d.Cond)
		p.printf(" else ")
		p.printExpr(d.Else)
		p.printf(")")
	case FStringData:
		p.printf("f\"")
		for _, part := range d.Parts {
			if part.Expr == nil {
				p.printf("%s", part.Text)
				continue
			}
			p.printf("{")
			p.printExpr(part.Expr)
			if part.Format != "" {
				p.printf(":%s", part.Format)
			}
			p.printf("}")
		}
		p.printf("\"")
	case BorrowData:
		if d.Mut {
			p.printf("&mut ")
		} else {
			p.printf("&")
		}
		p.printExpr(d.Expr)
	case AwaitData:
		p.printf("await ")
		p.printExpr(d.Value)
	case StarredData:
		p.printf("*")
		p.printExpr(d.Value)
	default:
		p.printf("<%s>", e.Kind)
	}
}

func (p *Printer) printLiteral(lit LiteralData) {
	switch lit.Kind {
	case LitInt, LitFloat:
		if lit.Raw != "" {
			p.printf("%s", lit.Raw)
		} else if lit.Kind == LitInt {
			p.printf("%d", lit.Int)
		} else {
			p.printf("%g", lit.Float)
		}
	case LitStr:
		p.printf("%q", lit.Str)
	case LitBytes:
		p.printf("b%q", lit.Str)
	case LitBool:
		if lit.Bool {
			p.printf("True")
		} else {
			p.printf("False")
		}
	case LitNone:
		p.printf("None")
	}
}

func (p *Printer) printArgs(args []*Expr, kwargs []Kwarg) {
	p.printf("(")
	for i, a := range args {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(a)
	}
	for i, kw := range kwargs {
		if i > 0 || len(args) > 0 {
			p.printf(", ")
		}
		if kw.Name == "" {
			p.printf("**")
			p.printExpr(kw.Value)
			continue
		}
		p.printf("%s=", kw.Name)
		p.printExpr(kw.Value)
	}
	p.printf(")")
}

func (p *Printer) printElems(open string, elems []*Expr, shut string) {
	p.printf("%s", open)
	for i, e := range elems {
		if i > 0 {
			p.printf(", ")
		}
		p.printExpr(e)
	}
	p.printf("%s", shut)
}

func (p *Printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.printf("  ")
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// JSON tags for the kind enums, so a marshalled module reads by name
// instead of by ordinal.

func (k StmtKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

func (k ExprKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

func (op BinOp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(op.String())), nil
}

func (k MethodKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

func (k CompKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// MarshalJSON renders a type as its display form: the nested Kind/Args
// tree is noise in a dump.
func (t *Type) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}
