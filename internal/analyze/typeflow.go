package analyze

import (
	"github.com/paiml/depyler/internal/hir"
)

// env is the flow-typed variable environment at one program point.
type env map[string]*hir.Type

func (e env) clone() env {
	out := make(env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// merge joins another branch into e. Shared names unify; names bound on
// only one path keep that path's type, the hoist pass decides whether they
// need a declaration.
func (e env) merge(other env) {
	for k, v := range other {
		if cur, ok := e[k]; ok {
			e[k] = hir.Unify(cur, v)
		} else {
			e[k] = v
		}
	}
}

// flow runs forward type propagation over a function body.
type flow struct {
	// returns maps sibling function names to their declared return types,
	// when the caller supplied a module signature table.
	returns map[string]*hir.Type
}

func flowFunction(fn *hir.Function, a *FunctionAnalysis, returns map[string]*hir.Type) {
	e := make(env)
	if fn.Receiver != "" {
		e[fn.Receiver] = hir.Custom("Self")
	}
	for _, p := range fn.Params {
		t := p.Type
		if t.IsUnknown() {
			t = inferParamUsage(fn, p.Name)
		}
		e[p.Name] = t
	}
	f := &flow{returns: returns}
	f.body(fn.Body, e)
	a.TypesAtExit = e
}

func (f *flow) body(body []hir.Stmt, e env) {
	for i := range body {
		f.stmt(&body[i], e)
	}
}

func (f *flow) stmt(st *hir.Stmt, e env) {
	switch st.Kind {
	case hir.StmtAssign:
		d := st.Data.(hir.AssignData)
		t := f.expr(d.Value, e)
		if !d.Declared.IsUnknown() {
			t = d.Declared
		}
		f.bindTarget(d.Target, t, e)

	case hir.StmtAugAssign:
		d := st.Data.(hir.AugAssignData)
		vt := f.expr(d.Value, e)
		if d.Target.Kind == hir.TargetSymbol {
			e[d.Target.Name] = BinaryResultType(d.Op, e[d.Target.Name], vt)
		}

	case hir.StmtExpr:
		f.expr(st.Data.(hir.ExprStmtData).Expr, e)

	case hir.StmtReturn:
		f.expr(st.Data.(hir.ReturnData).Value, e)

	case hir.StmtIf:
		d := st.Data.(hir.IfData)
		f.expr(d.Cond, e)
		thenEnv := e.clone()
		elseEnv := e.clone()
		f.body(d.Then, thenEnv)
		f.body(d.Else, elseEnv)
		for k := range e {
			delete(e, k)
		}
		for k, v := range thenEnv {
			e[k] = v
		}
		e.merge(elseEnv)

	case hir.StmtWhile:
		d := st.Data.(hir.WhileData)
		f.expr(d.Cond, e)
		f.body(d.Body, e)

	case hir.StmtFor:
		d := st.Data.(hir.ForData)
		it := f.expr(d.Iter, e)
		f.bindTarget(d.Target, elemType(it), e)
		f.body(d.Body, e)

	case hir.StmtTry:
		d := st.Data.(hir.TryData)
		f.body(d.Body, e)
		for _, h := range d.Handlers {
			henv := e.clone()
			if h.Binding != "" {
				henv[h.Binding] = handlerType(h.Types)
			}
			f.body(h.Body, henv)
			// The binding dies with its handler.
			delete(henv, h.Binding)
			e.merge(henv)
		}
		f.body(d.Else, e)
		f.body(d.Finally, e)

	case hir.StmtWith:
		d := st.Data.(hir.WithData)
		ct := f.expr(d.Context, e)
		if d.Binding != "" {
			e[d.Binding] = ct
		}
		f.body(d.Body, e)

	case hir.StmtRaise:
		d := st.Data.(hir.RaiseData)
		f.expr(d.Exc, e)
		f.expr(d.Cause, e)

	case hir.StmtAssert:
		d := st.Data.(hir.AssertData)
		f.expr(d.Test, e)
		f.expr(d.Msg, e)
	}
}

func (f *flow) bindTarget(t hir.Target, typ *hir.Type, e env) {
	switch t.Kind {
	case hir.TargetSymbol:
		e[t.Name] = typ
	case hir.TargetTuple:
		if typ != nil && typ.Kind == hir.TypeTuple && len(typ.Args) == len(t.Elems) {
			for i, el := range t.Elems {
				f.bindTarget(el, typ.Args[i], e)
			}
			return
		}
		el := elemType(typ)
		for _, sub := range t.Elems {
			f.bindTarget(sub, el, e)
		}
	case hir.TargetIndex:
		// v[k] = x refines an unknown container element.
		if root, ok := t.Base.Root(); ok {
			f.refineContainer(root, f.expr(t.Index, e), typ, e)
		}
	case hir.TargetAttribute:
		// Field types belong to the class, nothing to bind here.
	}
}

// refineContainer narrows list[Unknown] and dict[?, Unknown] bindings once
// a concrete element is seen.
func (f *flow) refineContainer(root string, keyT, valT *hir.Type, e env) {
	cur, ok := e[root]
	if !ok || cur == nil {
		return
	}
	switch cur.Kind {
	case hir.TypeList:
		if cur.Elem().IsUnknown() && !valT.IsUnknown() {
			e[root] = hir.ListOf(valT)
		}
	case hir.TypeDict:
		k, v := cur.Key(), cur.Value()
		if k.IsUnknown() && !keyT.IsUnknown() {
			k = keyT
		}
		if v.IsUnknown() && !valT.IsUnknown() {
			v = valT
		}
		e[root] = hir.DictOf(k, v)
	}
}

func (f *flow) expr(ex *hir.Expr, e env) *hir.Type {
	if ex == nil {
		return hir.Unknown
	}
	switch ex.Kind {
	case hir.ExprLiteral:
		return LiteralType(ex.Data.(hir.LiteralData))

	case hir.ExprVar:
		if t, ok := e[ex.Data.(hir.VarData).Name]; ok {
			return t
		}
		return hir.Unknown

	case hir.ExprBinary:
		d := ex.Data.(hir.BinaryData)
		return BinaryResultType(d.Op, f.expr(d.Left, e), f.expr(d.Right, e))

	case hir.ExprUnary:
		d := ex.Data.(hir.UnaryData)
		ot := f.expr(d.Operand, e)
		switch d.Op {
		case hir.OpNot:
			return hir.BoolT
		case hir.OpBitNot:
			return hir.IntT
		default:
			return ot
		}

	case hir.ExprCall:
		return f.callType(ex.Data.(hir.CallData), e)

	case hir.ExprMethodCall:
		return f.methodType(ex, e)

	case hir.ExprAttribute:
		d := ex.Data.(hir.AttributeData)
		f.expr(d.Value, e)
		return hir.Unknown

	case hir.ExprIndex:
		d := ex.Data.(hir.IndexData)
		bt := f.expr(d.Base, e)
		it := f.expr(d.Index, e)
		return indexType(bt, it, d.Index)

	case hir.ExprSlice:
		d := ex.Data.(hir.SliceData)
		bt := f.expr(d.Base, e)
		f.expr(d.Start, e)
		f.expr(d.Stop, e)
		f.expr(d.Step, e)
		return bt

	case hir.ExprList:
		d := ex.Data.(hir.ListData)
		return hir.ListOf(f.unifyAll(d.Elems, e))
	case hir.ExprSet:
		d := ex.Data.(hir.SetData)
		return hir.SetOf(f.unifyAll(d.Elems, e))
	case hir.ExprFrozenSet:
		d := ex.Data.(hir.FrozenSetData)
		return hir.FrozenSetOf(f.unifyAll(d.Elems, e))

	case hir.ExprTuple:
		d := ex.Data.(hir.TupleData)
		args := make([]*hir.Type, len(d.Elems))
		for i, el := range d.Elems {
			args[i] = f.expr(el, e)
		}
		return hir.TupleOf(args...)

	case hir.ExprDict:
		d := ex.Data.(hir.DictData)
		key, val := hir.Unknown, hir.Unknown
		for i := range d.Keys {
			if d.Keys[i] == nil {
				// **splat merges another dict in.
				spread := f.expr(d.Values[i], e)
				key = hir.Unify(key, spread.Key())
				val = hir.Unify(val, spread.Value())
				continue
			}
			key = hir.Unify(key, f.expr(d.Keys[i], e))
			val = hir.Unify(val, f.expr(d.Values[i], e))
		}
		return hir.DictOf(key, val)

	case hir.ExprComp:
		return f.compType(ex.Data.(hir.CompData), e)

	case hir.ExprLambda:
		d := ex.Data.(hir.LambdaData)
		inner := e.clone()
		params := make([]*hir.Type, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.Type
			inner[p.Name] = p.Type
		}
		return hir.CallableOf(params, f.expr(d.Body, inner))

	case hir.ExprNamed:
		d := ex.Data.(hir.NamedData)
		t := f.expr(d.Value, e)
		e[d.Name] = t
		return t

	case hir.ExprIfExp:
		d := ex.Data.(hir.IfExpData)
		f.expr(d.Cond, e)
		return hir.Unify(f.expr(d.Then, e), f.expr(d.Else, e))

	case hir.ExprFString:
		for _, part := range ex.Data.(hir.FStringData).Parts {
			f.expr(part.Expr, e)
		}
		return hir.StrT

	case hir.ExprBorrow:
		return f.expr(ex.Data.(hir.BorrowData).Expr, e)
	case hir.ExprAwait:
		return f.expr(ex.Data.(hir.AwaitData).Value, e)
	case hir.ExprStarred:
		return elemType(f.expr(ex.Data.(hir.StarredData).Value, e))
	}
	return hir.Unknown
}

func (f *flow) unifyAll(elems []*hir.Expr, e env) *hir.Type {
	t := hir.Unknown
	for _, el := range elems {
		t = hir.Unify(t, f.expr(el, e))
	}
	return t
}

func (f *flow) compType(d hir.CompData, e env) *hir.Type {
	inner := e.clone()
	for _, cl := range d.Clauses {
		it := f.expr(cl.Iter, inner)
		f.bindTarget(cl.Target, elemType(it), inner)
		for _, c := range cl.Conds {
			f.expr(c, inner)
		}
	}
	switch d.Kind {
	case hir.CompDict:
		return hir.DictOf(f.expr(d.Elt, inner), f.expr(d.Value, inner))
	case hir.CompSet:
		return hir.SetOf(f.expr(d.Elt, inner))
	default:
		return hir.ListOf(f.expr(d.Elt, inner))
	}
}

func (f *flow) callType(d hir.CallData, e env) *hir.Type {
	var argTs []*hir.Type
	for _, arg := range d.Args {
		argTs = append(argTs, f.expr(arg, e))
	}
	for _, kw := range d.Kwargs {
		f.expr(kw.Value, e)
	}
	f.expr(d.FuncExpr, e)

	if d.Func == "" {
		return hir.Unknown
	}
	if t := BuiltinCallType(d.Func, argTs); t != nil {
		return t
	}
	if ret, ok := f.returns[d.Func]; ok {
		return ret
	}
	return hir.Unknown
}

// KnownBuiltin reports whether the name is a builtin with a native
// translation; calls to these never feed the interprocedural solver.
func KnownBuiltin(name string) bool {
	return BuiltinCallType(name, nil) != nil
}

// BuiltinCallType types the builtins the code generator has concrete
// translations for. Returns nil for anything else.
func BuiltinCallType(name string, args []*hir.Type) *hir.Type {
	arg := func(i int) *hir.Type {
		if i < len(args) {
			return args[i]
		}
		return hir.Unknown
	}
	switch name {
	case "len", "ord", "id", "hash":
		return hir.IntT
	case "range":
		return hir.Custom("range")
	case "abs":
		if arg(0).IsNumeric() {
			return arg(0)
		}
		return hir.Unknown
	case "min", "max":
		if len(args) == 1 {
			return elemType(arg(0))
		}
		t := hir.Unknown
		for _, a := range args {
			t = hir.Unify(t, a)
		}
		return t
	case "sum":
		el := elemType(arg(0))
		if el.IsUnknown() {
			return hir.IntT
		}
		return el
	case "sorted":
		return hir.ListOf(elemType(arg(0)))
	case "reversed":
		return hir.ListOf(elemType(arg(0)))
	case "enumerate":
		return hir.ListOf(hir.TupleOf(hir.IntT, elemType(arg(0))))
	case "zip":
		pair := make([]*hir.Type, len(args))
		for i, a := range args {
			pair[i] = elemType(a)
		}
		return hir.ListOf(hir.TupleOf(pair...))
	case "str", "repr", "chr", "input", "format", "hex", "oct", "bin":
		return hir.StrT
	case "int", "round":
		return hir.IntT
	case "float":
		return hir.FloatT
	case "bool", "isinstance", "issubclass", "callable", "hasattr",
		"any", "all":
		return hir.BoolT
	case "bytes", "bytearray":
		return hir.BytesT
	case "list", "map", "filter":
		if name == "list" {
			return hir.ListOf(elemType(arg(0)))
		}
		return hir.ListOf(hir.Unknown)
	case "set":
		return hir.SetOf(elemType(arg(0)))
	case "frozenset":
		return hir.FrozenSetOf(elemType(arg(0)))
	case "dict":
		return hir.DictOf(hir.Unknown, hir.Unknown)
	case "divmod":
		return hir.TupleOf(hir.IntT, hir.IntT)
	case "pow":
		if arg(0).Kind == hir.TypeFloat || arg(1).Kind == hir.TypeFloat {
			return hir.FloatT
		}
		return hir.IntT
	case "open":
		return hir.Custom("File")
	case "print":
		return hir.NoneT
	}
	return nil
}

func (f *flow) methodType(ex *hir.Expr, e env) *hir.Type {
	d := ex.Data.(hir.MethodCallData)
	objT := f.expr(d.Object, e)
	var argTs []*hir.Type
	for _, arg := range d.Args {
		argTs = append(argTs, f.expr(arg, e))
	}
	for _, kw := range d.Kwargs {
		f.expr(kw.Value, e)
	}

	// x.append(v) on list[Unknown] pins the element type.
	if root, ok := d.Object.Root(); ok {
		switch d.Method {
		case "append", "add", "appendleft":
			if len(argTs) == 1 {
				f.refineContainer(root, hir.Unknown, argTs[0], e)
			}
		case "setdefault":
			if len(argTs) == 2 {
				f.refineContainer(root, argTs[0], argTs[1], e)
			}
		}
	}
	return MethodReturnType(objT, d.Method, argTs)
}

// MethodReturnType types the method calls with known result shapes,
// keyed by method name with the receiver type breaking ties. Returns
// Unknown for anything unrecognized.
func MethodReturnType(obj *hir.Type, method string, args []*hir.Type) *hir.Type {
	switch method {
	case "upper", "lower", "strip", "lstrip", "rstrip", "title",
		"capitalize", "casefold", "replace", "join", "format", "zfill",
		"ljust", "rjust", "swapcase", "expandtabs", "decode", "hexdigest",
		"read", "readline", "getvalue":
		return hir.StrT
	case "split", "rsplit", "splitlines", "readlines":
		return hir.ListOf(hir.StrT)
	case "startswith", "endswith", "isdigit", "isalpha", "isalnum",
		"isnumeric", "isspace", "isupper", "islower", "istitle",
		"isidentifier", "isdecimal", "issubset", "issuperset", "isdisjoint":
		return hir.BoolT
	case "find", "rfind", "index", "rindex", "count", "tell":
		return hir.IntT
	case "search":
		// A regex search yields the matched text when there is one.
		return hir.OptionalOf(hir.StrT)
	case "group":
		return hir.StrT
	case "encode", "digest":
		return hir.BytesT
	case "copy":
		return obj
	case "keys":
		return hir.ListOf(obj.Key())
	case "values":
		return hir.ListOf(obj.Value())
	case "items":
		return hir.ListOf(hir.TupleOf(obj.Key(), obj.Value()))
	case "get":
		if obj != nil && obj.Kind == hir.TypeDict {
			if len(args) >= 2 {
				return hir.Unify(obj.Value(), args[1])
			}
			return hir.OptionalOf(obj.Value())
		}
		return hir.Unknown
	case "pop", "popleft":
		switch {
		case obj == nil:
			return hir.Unknown
		case obj.Kind == hir.TypeDict:
			return obj.Value()
		case obj.Kind == hir.TypeList, obj.Kind == hir.TypeSet:
			return obj.Elem()
		}
		return hir.Unknown
	case "union", "intersection", "difference", "symmetric_difference":
		return obj
	case "most_common":
		return hir.ListOf(hir.TupleOf(hir.StrT, hir.IntT))
	case "append", "extend", "insert", "remove", "clear", "reverse",
		"sort", "update", "add", "discard", "write", "writelines",
		"writerow", "writerows":
		return hir.NoneT
	}
	return hir.Unknown
}

// LiteralType maps a literal to its source type.
func LiteralType(lit hir.LiteralData) *hir.Type {
	switch lit.Kind {
	case hir.LitInt:
		return hir.IntT
	case hir.LitFloat:
		return hir.FloatT
	case hir.LitStr:
		return hir.StrT
	case hir.LitBytes:
		return hir.BytesT
	case hir.LitBool:
		return hir.BoolT
	default:
		return hir.NoneT
	}
}

// BinaryResultType types a binary operation from its operand types.
func BinaryResultType(op hir.BinOp, l, r *hir.Type) *hir.Type {
	if op.IsComparison() || op == hir.OpIn || op == hir.OpNotIn ||
		op == hir.OpIs || op == hir.OpIsNot {
		return hir.BoolT
	}
	switch op {
	case hir.OpAnd, hir.OpOr:
		if l.Equal(r) {
			return l
		}
		return hir.BoolT
	case hir.OpDiv:
		if l.IsNumeric() && r.IsNumeric() {
			return hir.FloatT
		}
		return hir.Unknown
	case hir.OpFloorDiv, hir.OpMod:
		if l.Kind == hir.TypeInt && r.Kind == hir.TypeInt {
			return hir.IntT
		}
		if l.IsNumeric() && r.IsNumeric() {
			return hir.FloatT
		}
		if op == hir.OpMod && l.Kind == hir.TypeStr {
			// printf-style formatting.
			return hir.StrT
		}
		return hir.Unknown
	case hir.OpAdd:
		switch {
		case l.Kind == hir.TypeStr && r.Kind == hir.TypeStr:
			return hir.StrT
		case l.Kind == hir.TypeList && r.Kind == hir.TypeList:
			return hir.Unify(l, r)
		case l.Kind == hir.TypeTuple && r.Kind == hir.TypeTuple:
			return hir.Unknown
		}
		return arithType(l, r)
	case hir.OpMul:
		if l.Kind == hir.TypeStr && r.Kind == hir.TypeInt {
			return hir.StrT
		}
		if l.Kind == hir.TypeInt && r.Kind == hir.TypeStr {
			return hir.StrT
		}
		if l.Kind == hir.TypeList && r.Kind == hir.TypeInt {
			return l
		}
		return arithType(l, r)
	case hir.OpSub, hir.OpPow:
		return arithType(l, r)
	case hir.OpBitAnd, hir.OpBitOr, hir.OpBitXor, hir.OpLShift, hir.OpRShift:
		if l.Kind == hir.TypeInt && r.Kind == hir.TypeInt {
			return hir.IntT
		}
		if l.Kind == hir.TypeSet && r.Kind == hir.TypeSet {
			return hir.Unify(l, r)
		}
		return hir.Unknown
	}
	return hir.Unknown
}

func arithType(l, r *hir.Type) *hir.Type {
	switch {
	case l.Kind == hir.TypeFloat || r.Kind == hir.TypeFloat:
		if l.IsNumeric() && r.IsNumeric() {
			return hir.FloatT
		}
		return hir.Unknown
	case l.Kind == hir.TypeInt && r.Kind == hir.TypeInt:
		return hir.IntT
	case l.Kind == hir.TypeBool && r.Kind == hir.TypeBool:
		return hir.IntT
	default:
		return hir.Unknown
	}
}

// elemType is the type produced by iterating the argument, which for dicts
// is the key.
func elemType(t *hir.Type) *hir.Type {
	if t == nil {
		return hir.Unknown
	}
	switch t.Kind {
	case hir.TypeList, hir.TypeSet, hir.TypeFrozenSet:
		return t.Elem()
	case hir.TypeDict:
		return t.Key()
	case hir.TypeStr:
		return hir.StrT
	case hir.TypeBytes:
		return hir.IntT
	case hir.TypeTuple:
		u := hir.Unknown
		for _, a := range t.Args {
			u = hir.Unify(u, a)
		}
		return u
	case hir.TypeCustom:
		if t.Name == "range" {
			return hir.IntT
		}
	case hir.TypeOptional:
		return elemType(t.Elem())
	}
	return hir.Unknown
}

// indexType is the type produced by subscripting a base of type bt with an
// index of type it. Tuples resolve positionally when the index is a
// constant; otherwise the elements unify.
func indexType(bt, it *hir.Type, idx *hir.Expr) *hir.Type {
	if bt == nil {
		return hir.Unknown
	}
	switch bt.Kind {
	case hir.TypeList, hir.TypeSet, hir.TypeFrozenSet:
		return bt.Elem()
	case hir.TypeDict:
		return bt.Value()
	case hir.TypeStr:
		return hir.StrT
	case hir.TypeBytes:
		return hir.IntT
	case hir.TypeTuple:
		if idx != nil && idx.Kind == hir.ExprLiteral {
			lit := idx.Data.(hir.LiteralData)
			if lit.Kind == hir.LitInt {
				i := lit.Int
				if i < 0 {
					i += int64(len(bt.Args))
				}
				if i >= 0 && int(i) < len(bt.Args) {
					return bt.Args[i]
				}
			}
		}
		u := hir.Unknown
		for _, a := range bt.Args {
			u = hir.Unify(u, a)
		}
		return u
	case hir.TypeOptional:
		return indexType(bt.Elem(), it, idx)
	case hir.TypeCustom:
		if bt.Name == "range" && it.Kind == hir.TypeInt {
			return hir.IntT
		}
	}
	return hir.Unknown
}

func handlerType(types []string) *hir.Type {
	if len(types) == 1 {
		return hir.Custom(types[0])
	}
	return hir.Custom("Exception")
}
