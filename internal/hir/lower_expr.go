package hir

import (
	"math"
	"strconv"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
)

func (lw *lowerer) lowerExpr(e pyast.Expr) *Expr {
	if e == nil {
		return nil
	}
	sp := e.Span()
	switch v := e.(type) {
	case *pyast.Literal:
		return lw.lowerLiteral(v)
	case *pyast.Name:
		return NewVar(sp, v.ID)
	case *pyast.BinOp:
		return NewBinary(sp, lowerBinOpKind(v.Op), lw.lowerExpr(v.Left), lw.lowerExpr(v.Right))
	case *pyast.BoolOp:
		return lw.lowerBoolOp(v)
	case *pyast.UnaryOp:
		return &Expr{Kind: ExprUnary, Span: sp, Data: UnaryData{
			Op:      lowerUnaryOpKind(v.Op),
			Operand: lw.lowerExpr(v.Operand),
		}}
	case *pyast.Compare:
		return lw.lowerCompare(v)
	case *pyast.Call:
		return lw.lowerCall(v)
	case *pyast.Attribute:
		return &Expr{Kind: ExprAttribute, Span: sp, Data: AttributeData{
			Value: lw.lowerExpr(v.Value),
			Attr:  v.Attr,
		}}
	case *pyast.Subscript:
		if slice, ok := v.Index.(*pyast.Slice); ok {
			return &Expr{Kind: ExprSlice, Span: sp, Data: SliceData{
				Base:  lw.lowerExpr(v.Value),
				Start: lw.lowerExpr(slice.Lower),
				Stop:  lw.lowerExpr(slice.Upper),
				Step:  lw.lowerExpr(slice.Step),
			}}
		}
		return &Expr{Kind: ExprIndex, Span: sp, Data: IndexData{
			Base:  lw.lowerExpr(v.Value),
			Index: lw.lowerExpr(v.Index),
		}}
	case *pyast.ListExpr:
		return &Expr{Kind: ExprList, Span: sp, Data: ListData{Elems: lw.lowerExprs(v.Elts)}}
	case *pyast.TupleExpr:
		return &Expr{Kind: ExprTuple, Span: sp, Data: TupleData{Elems: lw.lowerExprs(v.Elts)}}
	case *pyast.SetExpr:
		return &Expr{Kind: ExprSet, Span: sp, Data: SetData{Elems: lw.lowerExprs(v.Elts)}}
	case *pyast.DictExpr:
		data := DictData{}
		for i := range v.Values {
			var key *Expr
			if v.Keys[i] != nil {
				key = lw.lowerExpr(v.Keys[i])
			}
			data.Keys = append(data.Keys, key)
			data.Values = append(data.Values, lw.lowerExpr(v.Values[i]))
		}
		return &Expr{Kind: ExprDict, Span: sp, Data: data}
	case *pyast.CompExpr:
		return lw.lowerComp(v)
	case *pyast.Lambda:
		return lw.lowerLambda(v)
	case *pyast.IfExpr:
		return &Expr{Kind: ExprIfExp, Span: sp, Data: IfExpData{
			Cond: lw.lowerExpr(v.Cond),
			Then: lw.lowerExpr(v.Body),
			Else: lw.lowerExpr(v.Orelse),
		}}
	case *pyast.NamedExpr:
		name, ok := v.Target.(*pyast.Name)
		if !ok {
			lw.errorf(diag.LowUnsupported, sp, "walrus target must be a plain name")
			return NewVar(sp, "_")
		}
		return &Expr{Kind: ExprNamed, Span: sp, Data: NamedData{
			Name:  name.ID,
			Value: lw.lowerExpr(v.Value),
		}}
	case *pyast.FString:
		data := FStringData{}
		for _, part := range v.Parts {
			p := FStringPart{Text: part.Text, Format: part.Format}
			if part.Expr != nil {
				p.Expr = lw.lowerExpr(part.Expr)
			}
			data.Parts = append(data.Parts, p)
		}
		return &Expr{Kind: ExprFString, Span: sp, Data: data}
	case *pyast.Await:
		return &Expr{Kind: ExprAwait, Span: sp, Data: AwaitData{Value: lw.lowerExpr(v.Value)}}
	case *pyast.Starred:
		lw.errorf(diag.LowStarExpression, sp, "starred expression outside a call is not supported")
		return NewVar(sp, "_")
	case *pyast.Yield:
		if v.IsFrom {
			lw.errorf(diag.LowYieldFrom, sp, "yield from is not supported")
		} else {
			lw.errorf(diag.LowUnsupported, sp, "generator functions are not supported")
		}
		return NewVar(sp, "_")
	default:
		lw.errorf(diag.LowUnsupported, sp, "unsupported expression")
		return NewVar(sp, "_")
	}
}

func (lw *lowerer) lowerExprs(elts []pyast.Expr) []*Expr {
	out := make([]*Expr, 0, len(elts))
	for _, e := range elts {
		out = append(out, lw.lowerExpr(e))
	}
	return out
}

func (lw *lowerer) lowerLiteral(v *pyast.Literal) *Expr {
	sp := v.Span()
	switch v.Kind {
	case pyast.LitInt:
		text := strings.ReplaceAll(v.Text, "_", "")
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			lw.errorf(diag.LowUnsupported, sp, "integer literal %s does not fit 64 bits", v.Text)
			n = math.MaxInt64
		}
		return NewLiteral(sp, LiteralData{Kind: LitInt, Int: n, Raw: v.Text})
	case pyast.LitFloat:
		text := strings.ReplaceAll(v.Text, "_", "")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			lw.errorf(diag.LowUnsupported, sp, "malformed float literal %s", v.Text)
		}
		return NewLiteral(sp, LiteralData{Kind: LitFloat, Float: f, Raw: v.Text})
	case pyast.LitString:
		return NewLiteral(sp, LiteralData{Kind: LitStr, Str: v.Text, Raw: v.Text})
	case pyast.LitBytes:
		return NewLiteral(sp, LiteralData{Kind: LitBytes, Str: v.Text, Raw: v.Text})
	case pyast.LitBool:
		raw := "False"
		if v.Bool {
			raw = "True"
		}
		return NewLiteral(sp, LiteralData{Kind: LitBool, Bool: v.Bool, Raw: raw})
	case pyast.LitNone:
		return NewLiteral(sp, LiteralData{Kind: LitNone, Raw: "None"})
	case pyast.LitEllipsis:
		lw.errorf(diag.LowUnsupported, sp, "ellipsis literal is not supported")
		return NewLiteral(sp, LiteralData{Kind: LitNone, Raw: "None"})
	default:
		lw.errorf(diag.LowUnsupported, sp, "unsupported literal")
		return NewLiteral(sp, LiteralData{Kind: LitNone, Raw: "None"})
	}
}

var binOpTable = [...]BinOp{
	pyast.OpAdd:      OpAdd,
	pyast.OpSub:      OpSub,
	pyast.OpMul:      OpMul,
	pyast.OpDiv:      OpDiv,
	pyast.OpFloorDiv: OpFloorDiv,
	pyast.OpMod:      OpMod,
	pyast.OpPow:      OpPow,
	pyast.OpMatMul:   OpMatMul,
	pyast.OpLShift:   OpLShift,
	pyast.OpRShift:   OpRShift,
	pyast.OpBitOr:    OpBitOr,
	pyast.OpBitXor:   OpBitXor,
	pyast.OpBitAnd:   OpBitAnd,
}

func lowerBinOpKind(op pyast.BinOpKind) BinOp {
	if int(op) < len(binOpTable) {
		return binOpTable[op]
	}
	return OpAdd
}

var cmpOpTable = [...]BinOp{
	pyast.CmpEq:    OpEq,
	pyast.CmpNotEq: OpNotEq,
	pyast.CmpLt:    OpLt,
	pyast.CmpLtE:   OpLtE,
	pyast.CmpGt:    OpGt,
	pyast.CmpGtE:   OpGtE,
	pyast.CmpIn:    OpIn,
	pyast.CmpNotIn: OpNotIn,
	pyast.CmpIs:    OpIs,
	pyast.CmpIsNot: OpIsNot,
}

func lowerUnaryOpKind(op pyast.UnaryOpKind) UnOp {
	switch op {
	case pyast.OpNeg:
		return OpNeg
	case pyast.OpUAdd:
		return OpPos
	case pyast.OpInvert:
		return OpBitNot
	default:
		return OpNot
	}
}

// lowerBoolOp folds `a and b and c` into left-associated binary nodes.
func (lw *lowerer) lowerBoolOp(v *pyast.BoolOp) *Expr {
	op := OpAnd
	if v.Op == pyast.OpOr {
		op = OpOr
	}
	if len(v.Values) == 0 {
		return NewLiteral(v.Span(), LiteralData{Kind: LitBool, Bool: op == OpAnd, Raw: "True"})
	}
	acc := lw.lowerExpr(v.Values[0])
	for _, next := range v.Values[1:] {
		acc = NewBinary(v.Span(), op, acc, lw.lowerExpr(next))
	}
	return acc
}

// lowerCompare splits chained comparisons: a < b < c becomes
// a < b and b < c, re-evaluating the shared operand.
func (lw *lowerer) lowerCompare(v *pyast.Compare) *Expr {
	sp := v.Span()
	if len(v.Ops) == 0 || len(v.Comparators) != len(v.Ops) {
		return lw.lowerExpr(v.Left)
	}
	operands := make([]*Expr, 0, len(v.Comparators)+1)
	operands = append(operands, lw.lowerExpr(v.Left))
	for _, c := range v.Comparators {
		operands = append(operands, lw.lowerExpr(c))
	}
	// The shared middle operands appear in two comparisons; clone by
	// re-lowering so each node stays single-parent.
	pair := func(i int) *Expr {
		left := operands[i]
		if i > 0 {
			left = lw.lowerExpr(v.Comparators[i-1])
		}
		return NewBinary(sp, cmpOpTable[v.Ops[i]], left, operands[i+1])
	}
	acc := pair(0)
	for i := 1; i < len(v.Ops); i++ {
		acc = NewBinary(sp, OpAnd, acc, pair(i))
	}
	return acc
}

func (lw *lowerer) lowerCall(v *pyast.Call) *Expr {
	sp := v.Span()
	args := make([]*Expr, 0, len(v.Args))
	for _, a := range v.Args {
		if starred, ok := a.(*pyast.Starred); ok {
			args = append(args, &Expr{Kind: ExprStarred, Span: a.Span(), Data: StarredData{
				Value: lw.lowerExpr(starred.Value),
			}})
			continue
		}
		args = append(args, lw.lowerExpr(a))
	}
	kwargs := make([]Kwarg, 0, len(v.Keywords))
	for _, kw := range v.Keywords {
		kwargs = append(kwargs, Kwarg{Name: kw.Arg, Value: lw.lowerExpr(kw.Value)})
	}

	switch fn := v.Func.(type) {
	case *pyast.Name:
		if fn.ID == "frozenset" && len(args) == 1 && len(kwargs) == 0 {
			if inner := args[0]; inner.Kind == ExprList || inner.Kind == ExprSet || inner.Kind == ExprTuple {
				return &Expr{Kind: ExprFrozenSet, Span: sp, Data: FrozenSetData{Elems: literalElems(inner)}}
			}
		}
		return &Expr{Kind: ExprCall, Span: sp, Data: CallData{
			Func: fn.ID, Args: args, Kwargs: kwargs,
		}}
	case *pyast.Attribute:
		return &Expr{Kind: ExprMethodCall, Span: sp, Data: MethodCallData{
			Object: lw.lowerExpr(fn.Value),
			Method: fn.Attr,
			Args:   args,
			Kwargs: kwargs,
		}}
	default:
		return &Expr{Kind: ExprCall, Span: sp, Data: CallData{
			FuncExpr: lw.lowerExpr(v.Func), Args: args, Kwargs: kwargs,
		}}
	}
}

func literalElems(e *Expr) []*Expr {
	switch d := e.Data.(type) {
	case ListData:
		return d.Elems
	case SetData:
		return d.Elems
	case TupleData:
		return d.Elems
	default:
		return nil
	}
}

func (lw *lowerer) lowerComp(v *pyast.CompExpr) *Expr {
	sp := v.Span()
	data := CompData{Kind: lowerCompKind(v.Kind)}
	data.Elt = lw.lowerExpr(v.Elt)
	if v.Kind == pyast.CompDict {
		data.Value = lw.lowerExpr(v.Value)
	}
	for _, gen := range v.Generators {
		if gen.IsAsync {
			lw.errorf(diag.LowAsyncFor, sp, "async comprehension is not supported")
			continue
		}
		clause := CompClause{
			Target: lw.lowerTarget(gen.Target),
			Iter:   lw.lowerExpr(gen.Iter),
		}
		for _, cond := range gen.Ifs {
			clause.Conds = append(clause.Conds, lw.lowerExpr(cond))
		}
		data.Clauses = append(data.Clauses, clause)
	}
	return &Expr{Kind: ExprComp, Span: sp, Data: data}
}

func lowerCompKind(k pyast.CompKind) CompKind {
	switch k {
	case pyast.CompSet:
		return CompSet
	case pyast.CompDict:
		return CompDict
	case pyast.CompGenerator:
		return CompGenerator
	default:
		return CompList
	}
}

func (lw *lowerer) lowerLambda(v *pyast.Lambda) *Expr {
	sp := v.Span()
	data := LambdaData{Body: lw.lowerExpr(v.Body)}
	for _, p := range v.Args.Args {
		param := Param{Name: p.Name, Type: Unknown, Span: p.Span()}
		if p.Default != nil {
			param.Default = lw.lowerExpr(p.Default)
		}
		data.Params = append(data.Params, param)
	}
	if v.Args.VarArg != nil || v.Args.KwArg != nil || len(v.Args.KwOnly) > 0 {
		lw.errorf(diag.LowUnsupported, sp, "lambda parameter form is not supported")
	}
	return &Expr{Kind: ExprLambda, Span: sp, Data: data}
}
