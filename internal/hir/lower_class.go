package hir

import (
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
)

// lowerClass lowers one class statement. A metaclass declaration rejects the
// whole class; a failing member only skips that member.
func (lw *lowerer) lowerClass(cls *pyast.ClassDef) *Class {
	outer := lw.unsupported
	lw.unsupported = false
	defer func() { lw.unsupported = outer }()

	out := &Class{
		Name:        cls.Name,
		Docstring:   cls.Docstring,
		Span:        cls.Span(),
		Annotations: lw.ann.ForDefinition(lw.file, cls.DefLine, lw.reporter),
	}
	lw.applyClassDecorators(out, cls.Decorators)

	for _, kw := range cls.Keywords {
		if kw.Arg == "metaclass" {
			lw.errorf(diag.LowMetaclass, kw.Span(), "metaclass declarations are not supported")
		} else {
			lw.warnf(diag.LowUnsupported, kw.Span(), "class keyword %q is ignored", kw.Arg)
		}
	}
	for _, base := range cls.Bases {
		switch b := base.(type) {
		case *pyast.Name:
			out.Bases = append(out.Bases, b.ID)
		case *pyast.Attribute:
			out.Bases = append(out.Bases, b.Attr)
		default:
			lw.warnf(diag.LowUnsupported, base.Span(), "unsupported base class expression")
		}
	}
	if len(out.Bases) > 1 {
		lw.warnf(diag.LowDiamondInheritance, cls.Span(),
			"multiple bases on %s lower to composition over %s", cls.Name, out.Bases[0])
	}
	if lw.unsupported {
		return nil
	}

	for _, stmt := range cls.Body {
		switch s := stmt.(type) {
		case *pyast.FunctionDef:
			if m := lw.lowerMethod(out, s); m != nil {
				out.Methods = append(out.Methods, m)
			}
		case *pyast.AnnAssign:
			lw.lowerClassField(out, s)
		case *pyast.Assign:
			lw.lowerClassConstant(out, s)
		case *pyast.Pass:
		case *pyast.ExprStmt:
			// Stray strings and ellipsis bodies carry nothing.
		case *pyast.ClassDef:
			lw.warnf(diag.LowUnsupported, stmt.Span(), "nested class %s is not lowered", s.Name)
		default:
			lw.warnf(diag.LowUnsupported, stmt.Span(), "unsupported statement in class body")
		}
	}

	collectInitFields(out)
	return out
}

func (lw *lowerer) applyClassDecorators(cls *Class, decorators []pyast.Expr) {
	for _, dec := range decorators {
		switch d := dec.(type) {
		case *pyast.Name:
			if d.ID == "dataclass" {
				cls.IsDataclass = true
				continue
			}
		case *pyast.Call:
			if name, ok := d.Func.(*pyast.Name); ok && name.ID == "dataclass" {
				cls.IsDataclass = true
				continue
			}
		}
		text := lw.exprText(dec)
		cls.Annotations.CustomAttributes = append(cls.Annotations.CustomAttributes, text)
		lw.infof(diag.LowUnknownDecorator, dec.Span(), "decorator @%s kept as annotation", text)
	}
}

// lowerMethod lowers a def inside a class body and splits off the receiver.
func (lw *lowerer) lowerMethod(cls *Class, def *pyast.FunctionDef) *Function {
	fn := lw.lowerFunction(def, MethodInstance)
	if fn == nil {
		return nil
	}
	switch fn.Method {
	case MethodStatic:
	case MethodClass:
		if len(fn.Params) > 0 && !fn.Params[0].Variadic {
			fn.Receiver = fn.Params[0].Name
			fn.Params = fn.Params[1:]
		} else {
			lw.warnf(diag.LowReceiverMissing, fn.Span,
				"classmethod %s.%s has no receiver parameter", cls.Name, fn.Name)
		}
	default:
		if len(fn.Params) > 0 && !fn.Params[0].Variadic {
			fn.Receiver = fn.Params[0].Name
			fn.Params = fn.Params[1:]
		} else {
			lw.warnf(diag.LowReceiverMissing, fn.Span,
				"method %s.%s has no receiver parameter, treating as static", cls.Name, fn.Name)
			fn.Method = MethodStatic
		}
	}
	return fn
}

// lowerClassField handles a class-level annotated assignment. ClassVar
// annotations become constants; everything else is a declared field.
func (lw *lowerer) lowerClassField(cls *Class, s *pyast.AnnAssign) {
	name, ok := s.Target.(*pyast.Name)
	if !ok {
		lw.warnf(diag.LowUnsupported, s.Span(), "unsupported class attribute target")
		return
	}
	ann := s.Annotation
	classVar := false
	if sub, ok := ann.(*pyast.Subscript); ok {
		if base, ok := sub.Value.(*pyast.Name); ok && base.ID == "ClassVar" {
			classVar = true
			ann = sub.Index
		}
	}
	typ := lw.lowerTypeExpr(ann)
	var value *Expr
	if s.Value != nil {
		value = lw.lowerExpr(s.Value)
	}
	if classVar {
		if value == nil {
			lw.warnf(diag.LowUnsupported, s.Span(), "class variable %s has no value", name.ID)
			return
		}
		cls.Constants = append(cls.Constants, Constant{
			Name: name.ID, Type: typ, Value: value, Span: s.Span(),
		})
		return
	}
	cls.Fields = append(cls.Fields, Field{
		Name: name.ID, Type: typ, Default: value, Span: s.Span(),
	})
}

// lowerClassConstant handles a bare class-level assignment, which only
// supports constant values.
func (lw *lowerer) lowerClassConstant(cls *Class, s *pyast.Assign) {
	if len(s.Targets) != 1 {
		lw.warnf(diag.LowUnsupported, s.Span(), "chained class attribute assignment is ignored")
		return
	}
	name, ok := s.Targets[0].(*pyast.Name)
	if !ok {
		lw.warnf(diag.LowUnsupported, s.Span(), "unsupported class attribute target")
		return
	}
	value := lw.lowerExpr(s.Value)
	if !isConstExpr(value) {
		lw.warnf(diag.LowUnsupported, s.Span(),
			"class attribute %s requires a constant value", name.ID)
		return
	}
	cls.Constants = append(cls.Constants, Constant{
		Name: name.ID, Type: constType(value), Value: value, Span: s.Span(),
	})
}

// collectInitFields derives struct layout from `self.x = ...` assignments in
// the constructor. Declared annotations win, then parameter types, then
// constant value types.
func collectInitFields(cls *Class) {
	init := cls.Constructor()
	if init == nil {
		return
	}
	recv := init.Receiver
	if recv == "" {
		recv = "self"
	}
	WalkStmts(init.Body, func(st *Stmt) {
		as, ok := st.Data.(AssignData)
		if !ok || as.Target.Kind != TargetAttribute {
			return
		}
		base, ok := as.Target.Base.AsVar()
		if !ok || base != recv {
			return
		}
		typ := as.Declared
		if typ.IsUnknown() {
			typ = initFieldType(init, as.Value)
		}
		if f := cls.FieldByName(as.Target.Attr); f != nil {
			if f.Type.IsUnknown() && !typ.IsUnknown() {
				f.Type = typ
			}
			return
		}
		cls.Fields = append(cls.Fields, Field{
			Name: as.Target.Attr, Type: typ, Span: st.Span,
		})
	})
}

func initFieldType(init *Function, value *Expr) *Type {
	if name, ok := value.AsVar(); ok {
		if i := init.ParamIndex(name); i >= 0 {
			return init.Params[i].Type
		}
		return Unknown
	}
	return constType(value)
}

// constType infers the type of a constant expression, Unknown when the
// shape is not a recognized literal.
func constType(e *Expr) *Type {
	switch d := e.Data.(type) {
	case LiteralData:
		switch d.Kind {
		case LitInt:
			return IntT
		case LitFloat:
			return FloatT
		case LitStr:
			return StrT
		case LitBytes:
			return BytesT
		case LitBool:
			return BoolT
		case LitNone:
			return NoneT
		}
	case UnaryData:
		return constType(d.Operand)
	case ListData:
		return ListOf(elemsType(d.Elems))
	case TupleData:
		items := make([]*Type, len(d.Elems))
		for i, el := range d.Elems {
			items[i] = constType(el)
		}
		return TupleOf(items...)
	case SetData:
		return SetOf(elemsType(d.Elems))
	case FrozenSetData:
		return FrozenSetOf(elemsType(d.Elems))
	case DictData:
		key, value := Unknown, Unknown
		for i := range d.Values {
			if d.Keys[i] == nil {
				continue
			}
			key = Unify(key, constType(d.Keys[i]))
			value = Unify(value, constType(d.Values[i]))
		}
		return DictOf(key, value)
	}
	return Unknown
}

func elemsType(elems []*Expr) *Type {
	t := Unknown
	for _, e := range elems {
		t = Unify(t, constType(e))
	}
	return t
}
