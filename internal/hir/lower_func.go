package hir

import (
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
)

// lowerFunction lowers one def. Returns nil when the body used an
// unsupported construct; the diagnostic is already reported.
func (lw *lowerer) lowerFunction(fn *pyast.FunctionDef, kind MethodKind) *Function {
	outer := lw.unsupported
	lw.unsupported = false
	defer func() { lw.unsupported = outer }()

	out := &Function{
		Name:        fn.Name,
		Docstring:   fn.Docstring,
		Span:        fn.Span(),
		IsAsync:     fn.IsAsync,
		Method:      kind,
		Annotations: lw.ann.ForDefinition(lw.file, fn.DefLine, lw.reporter),
	}
	lw.applyDecorators(out, fn.Decorators)
	out.Params = lw.lowerParams(fn.Args)
	out.Ret = lw.lowerTypeExpr(fn.Returns)
	if out.Ret.IsUnknown() && fn.Name == "__init__" {
		out.Ret = NoneT
	}
	if out.Annotations.Termination.Proven {
		out.Props.Terminates = true
	}
	out.Body = lw.lowerBody(fn.Body)
	if lw.unsupported {
		return nil
	}
	return out
}

// applyDecorators classifies the recognized binding decorators and keeps
// the rest as custom attributes.
func (lw *lowerer) applyDecorators(fn *Function, decorators []pyast.Expr) {
	for _, dec := range decorators {
		switch d := dec.(type) {
		case *pyast.Name:
			switch d.ID {
			case "staticmethod":
				fn.Method = MethodStatic
				continue
			case "classmethod":
				fn.Method = MethodClass
				continue
			case "property":
				fn.Method = MethodProperty
				continue
			}
		case *pyast.Attribute:
			if d.Attr == "setter" {
				fn.Method = MethodSetter
				continue
			}
		}
		text := lw.exprText(dec)
		fn.Annotations.CustomAttributes = append(fn.Annotations.CustomAttributes, text)
		lw.infof(diag.LowUnknownDecorator, dec.Span(), "decorator @%s kept as annotation", text)
	}
}

// exprText slices the original source for an expression, used to preserve
// decorators verbatim.
func (lw *lowerer) exprText(e pyast.Expr) string {
	sp := e.Span()
	if int(sp.End) <= len(lw.file.Content) && sp.Start <= sp.End {
		return string(lw.file.Content[sp.Start:sp.End])
	}
	return ""
}

func (lw *lowerer) lowerParams(args pyast.Arguments) []Param {
	out := make([]Param, 0, len(args.PosOnly)+len(args.Args)+len(args.KwOnly)+1)
	seen := make(map[string]bool)

	add := func(p pyast.Param, kwOnly, variadic bool) {
		if seen[p.Name] {
			lw.errorf(diag.LowDuplicateParam, p.Span(), "duplicate parameter %q", p.Name)
			return
		}
		seen[p.Name] = true
		param := Param{
			Name:     p.Name,
			Type:     lw.lowerTypeExpr(p.Annotation),
			KwOnly:   kwOnly,
			Variadic: variadic,
			Span:     p.Span(),
		}
		if p.Default != nil {
			param.Default = lw.lowerExpr(p.Default)
			switch {
			case isMutableLiteral(param.Default):
				param.MutableDefault = true
				lw.infof(diag.LowMutableDefault, p.Span(),
					"mutable default for %q is materialized per call", p.Name)
			case !isConstExpr(param.Default):
				lw.errorf(diag.LowNonConstantDefault, p.Span(),
					"default for %q is not a constant expression", p.Name)
			}
		}
		out = append(out, param)
	}

	for _, p := range args.PosOnly {
		add(p, false, false)
	}
	for _, p := range args.Args {
		add(p, false, false)
	}
	if args.VarArg != nil {
		add(*args.VarArg, false, true)
	}
	for _, p := range args.KwOnly {
		add(p, true, false)
	}
	if args.KwArg != nil {
		lw.errorf(diag.LowUnsupported, args.KwArg.Span(), "**%s is not supported", args.KwArg.Name)
	}
	return out
}

// isMutableLiteral reports list/dict/set literal defaults.
func isMutableLiteral(e *Expr) bool {
	switch e.Kind {
	case ExprList, ExprDict, ExprSet:
		return true
	case ExprCall:
		d := e.Data.(CallData)
		return len(d.Args) == 0 && (d.Func == "list" || d.Func == "dict" || d.Func == "set")
	default:
		return false
	}
}

// isConstExpr reports whether a default is constant-foldable at the
// definition site.
func isConstExpr(e *Expr) bool {
	switch d := e.Data.(type) {
	case LiteralData:
		return true
	case UnaryData:
		return (d.Op == OpNeg || d.Op == OpPos) && isConstExpr(d.Operand)
	case TupleData:
		return allConst(d.Elems)
	case ListData:
		return allConst(d.Elems)
	case SetData:
		return allConst(d.Elems)
	case FrozenSetData:
		return allConst(d.Elems)
	case DictData:
		for i := range d.Values {
			if d.Keys[i] == nil || !isConstExpr(d.Keys[i]) || !isConstExpr(d.Values[i]) {
				return false
			}
		}
		return true
	case CallData:
		return len(d.Args) == 0 && len(d.Kwargs) == 0 &&
			(d.Func == "list" || d.Func == "dict" || d.Func == "set")
	default:
		return false
	}
}

func allConst(elems []*Expr) bool {
	for _, e := range elems {
		if !isConstExpr(e) {
			return false
		}
	}
	return true
}
