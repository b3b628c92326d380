package hir

// WalkStmts calls fn for every statement in body, descending into nested
// blocks in source order.
func WalkStmts(body []Stmt, fn func(*Stmt)) {
	for i := range body {
		st := &body[i]
		fn(st)
		switch d := st.Data.(type) {
		case IfData:
			WalkStmts(d.Then, fn)
			WalkStmts(d.Else, fn)
		case WhileData:
			WalkStmts(d.Body, fn)
		case ForData:
			WalkStmts(d.Body, fn)
		case TryData:
			WalkStmts(d.Body, fn)
			for _, h := range d.Handlers {
				WalkStmts(h.Body, fn)
			}
			WalkStmts(d.Else, fn)
			WalkStmts(d.Finally, fn)
		case WithData:
			WalkStmts(d.Body, fn)
		}
	}
}

// WalkExprs calls fn for e and every reachable sub-expression, outermost
// first. It does not descend into nested statements; combine with WalkStmts
// for whole-body traversal.
func WalkExprs(e *Expr, fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch d := e.Data.(type) {
	case BinaryData:
		WalkExprs(d.Left, fn)
		WalkExprs(d.Right, fn)
	case UnaryData:
		WalkExprs(d.Operand, fn)
	case CallData:
		WalkExprs(d.FuncExpr, fn)
		for _, a := range d.Args {
			WalkExprs(a, fn)
		}
		for _, kw := range d.Kwargs {
			WalkExprs(kw.Value, fn)
		}
	case MethodCallData:
		WalkExprs(d.Object, fn)
		for _, a := range d.Args {
			WalkExprs(a, fn)
		}
		for _, kw := range d.Kwargs {
			WalkExprs(kw.Value, fn)
		}
	case AttributeData:
		WalkExprs(d.Value, fn)
	case IndexData:
		WalkExprs(d.Base, fn)
		WalkExprs(d.Index, fn)
	case SliceData:
		WalkExprs(d.Base, fn)
		WalkExprs(d.Start, fn)
		WalkExprs(d.Stop, fn)
		WalkExprs(d.Step, fn)
	case ListData:
		walkAll(d.Elems, fn)
	case TupleData:
		walkAll(d.Elems, fn)
	case SetData:
		walkAll(d.Elems, fn)
	case FrozenSetData:
		walkAll(d.Elems, fn)
	case DictData:
		for i := range d.Values {
			if d.Keys[i] != nil {
				WalkExprs(d.Keys[i], fn)
			}
			WalkExprs(d.Values[i], fn)
		}
	case CompData:
		WalkExprs(d.Elt, fn)
		WalkExprs(d.Value, fn)
		for _, cl := range d.Clauses {
			walkTarget(cl.Target, fn)
			WalkExprs(cl.Iter, fn)
			walkAll(cl.Conds, fn)
		}
	case LambdaData:
		WalkExprs(d.Body, fn)
	case NamedData:
		WalkExprs(d.Value, fn)
	case IfExpData:
		WalkExprs(d.Cond, fn)
		WalkExprs(d.Then, fn)
		WalkExprs(d.Else, fn)
	case FStringData:
		for _, p := range d.Parts {
			WalkExprs(p.Expr, fn)
		}
	case BorrowData:
		WalkExprs(d.Expr, fn)
	case AwaitData:
		WalkExprs(d.Value, fn)
	case StarredData:
		WalkExprs(d.Value, fn)
	}
}

func walkAll(elems []*Expr, fn func(*Expr)) {
	for _, e := range elems {
		WalkExprs(e, fn)
	}
}

func walkTarget(t Target, fn func(*Expr)) {
	switch t.Kind {
	case TargetIndex:
		WalkExprs(t.Base, fn)
		WalkExprs(t.Index, fn)
	case TargetAttribute:
		WalkExprs(t.Base, fn)
	case TargetTuple:
		for _, el := range t.Elems {
			walkTarget(el, fn)
		}
	}
}

// StmtExprs calls fn for every expression owned directly by st, including
// sub-expressions, skipping nested statement blocks.
func StmtExprs(st *Stmt, fn func(*Expr)) {
	switch d := st.Data.(type) {
	case AssignData:
		walkTarget(d.Target, fn)
		WalkExprs(d.Value, fn)
	case AugAssignData:
		walkTarget(d.Target, fn)
		WalkExprs(d.Value, fn)
	case ExprStmtData:
		WalkExprs(d.Expr, fn)
	case ReturnData:
		WalkExprs(d.Value, fn)
	case IfData:
		WalkExprs(d.Cond, fn)
	case WhileData:
		WalkExprs(d.Cond, fn)
	case ForData:
		walkTarget(d.Target, fn)
		WalkExprs(d.Iter, fn)
	case RaiseData:
		WalkExprs(d.Exc, fn)
		WalkExprs(d.Cause, fn)
	case WithData:
		WalkExprs(d.Context, fn)
	case AssertData:
		WalkExprs(d.Test, fn)
		WalkExprs(d.Msg, fn)
	}
}
