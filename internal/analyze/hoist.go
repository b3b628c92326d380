package analyze

import (
	"sort"

	"github.com/paiml/depyler/internal/hir"
)

// findHoists locates names first bound inside a branch or loop body and
// read after the join. Emission must pre-declare these mutable at the
// enclosing level; a name is hoisted at most once.
func findHoists(body []hir.Stmt, a *FunctionAnalysis) {
	declared := make(map[string]bool, len(a.Params))
	for _, p := range a.Params {
		declared[p] = true
	}
	hoistScan(body, declared, a)
}

func hoistScan(body []hir.Stmt, declared map[string]bool, a *FunctionAnalysis) {
	for i := range body {
		st := &body[i]
		switch st.Kind {
		case hir.StmtIf, hir.StmtWhile, hir.StmtFor, hir.StmtTry, hir.StmtWith:
			for _, name := range boundInside(st) {
				if declared[name] {
					continue
				}
				if readAfter(body[i+1:], name) {
					a.Hoists = append(a.Hoists, Hoist{
						Name: name,
						Type: a.TypesAtExit[name],
						Span: st.Span,
					})
					declared[name] = true
				}
			}
			for _, blk := range nestedBlocks(st) {
				inner := make(map[string]bool, len(declared))
				for k := range declared {
					inner[k] = true
				}
				hoistScan(blk, inner, a)
			}
		default:
			if st.Kind == hir.StmtAssign {
				for _, name := range st.Data.(hir.AssignData).Target.BoundNames() {
					declared[name] = true
				}
			}
		}
		// Walrus bindings take effect at the statement that contains them.
		hir.StmtExprs(st, func(e *hir.Expr) {
			if e.Kind == hir.ExprNamed {
				declared[e.Data.(hir.NamedData).Name] = true
			}
		})
	}
}

func nestedBlocks(st *hir.Stmt) [][]hir.Stmt {
	switch d := st.Data.(type) {
	case hir.IfData:
		return [][]hir.Stmt{d.Then, d.Else}
	case hir.WhileData:
		return [][]hir.Stmt{d.Body}
	case hir.ForData:
		return [][]hir.Stmt{d.Body}
	case hir.WithData:
		return [][]hir.Stmt{d.Body}
	case hir.TryData:
		blocks := [][]hir.Stmt{d.Body}
		for _, h := range d.Handlers {
			blocks = append(blocks, h.Body)
		}
		blocks = append(blocks, d.Else, d.Finally)
		return blocks
	}
	return nil
}

// boundInside collects every name the compound statement binds, in sorted
// order. Handler bindings stay out: they die with their handler and cannot
// be hoisted.
func boundInside(st *hir.Stmt) []string {
	bound := make(map[string]bool)
	handlerBound := make(map[string]bool)
	hir.WalkStmts([]hir.Stmt{*st}, func(s *hir.Stmt) {
		switch d := s.Data.(type) {
		case hir.AssignData:
			for _, name := range d.Target.BoundNames() {
				bound[name] = true
			}
		case hir.ForData:
			for _, name := range d.Target.BoundNames() {
				bound[name] = true
			}
		case hir.WithData:
			if d.Binding != "" {
				bound[d.Binding] = true
			}
		case hir.TryData:
			for _, h := range d.Handlers {
				if h.Binding != "" {
					handlerBound[h.Binding] = true
				}
			}
		}
		hir.StmtExprs(s, func(e *hir.Expr) {
			if e.Kind == hir.ExprNamed {
				bound[e.Data.(hir.NamedData).Name] = true
			}
		})
	})
	var names []string
	for name := range bound {
		if !handlerBound[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// readAfter reports whether the name is read anywhere in the remaining
// statements, descending into nested blocks.
func readAfter(rest []hir.Stmt, name string) bool {
	found := false
	hir.WalkStmts(rest, func(st *hir.Stmt) {
		if found {
			return
		}
		for _, e := range stmtOwnExprs(st) {
			if readsName(e, name) {
				found = true
				return
			}
		}
	})
	return found
}

// stmtOwnExprs lists the expressions a statement evaluates directly,
// excluding nested blocks, which WalkStmts visits separately.
func stmtOwnExprs(st *hir.Stmt) []*hir.Expr {
	switch d := st.Data.(type) {
	case hir.AssignData:
		return append(targetReadExprs(d.Target), d.Value)
	case hir.AugAssignData:
		// The target of x += v is read as well as written.
		exprs := targetReadExprs(d.Target)
		if d.Target.Kind == hir.TargetSymbol {
			exprs = append(exprs, hir.NewVar(st.Span, d.Target.Name))
		}
		return append(exprs, d.Value)
	case hir.ExprStmtData:
		return []*hir.Expr{d.Expr}
	case hir.ReturnData:
		return []*hir.Expr{d.Value}
	case hir.IfData:
		return []*hir.Expr{d.Cond}
	case hir.WhileData:
		return []*hir.Expr{d.Cond}
	case hir.ForData:
		return append(targetReadExprs(d.Target), d.Iter)
	case hir.RaiseData:
		return []*hir.Expr{d.Exc, d.Cause}
	case hir.WithData:
		return []*hir.Expr{d.Context}
	case hir.AssertData:
		return []*hir.Expr{d.Test, d.Msg}
	}
	return nil
}

func targetReadExprs(t hir.Target) []*hir.Expr {
	switch t.Kind {
	case hir.TargetIndex:
		return []*hir.Expr{t.Base, t.Index}
	case hir.TargetAttribute:
		return []*hir.Expr{t.Base}
	case hir.TargetTuple:
		var out []*hir.Expr
		for _, el := range t.Elems {
			out = append(out, targetReadExprs(el)...)
		}
		return out
	}
	return nil
}

// readsName reports whether the expression reads the variable, respecting
// comprehension and lambda scopes that shadow it.
func readsName(e *hir.Expr, name string) bool {
	if e == nil {
		return false
	}
	any := func(exprs ...*hir.Expr) bool {
		for _, sub := range exprs {
			if readsName(sub, name) {
				return true
			}
		}
		return false
	}
	switch d := e.Data.(type) {
	case hir.VarData:
		return d.Name == name
	case hir.LiteralData:
		return false
	case hir.BinaryData:
		return any(d.Left, d.Right)
	case hir.UnaryData:
		return any(d.Operand)
	case hir.CallData:
		if any(d.FuncExpr) || any(d.Args...) {
			return true
		}
		for _, kw := range d.Kwargs {
			if any(kw.Value) {
				return true
			}
		}
		return false
	case hir.MethodCallData:
		if any(d.Object) || any(d.Args...) {
			return true
		}
		for _, kw := range d.Kwargs {
			if any(kw.Value) {
				return true
			}
		}
		return false
	case hir.AttributeData:
		return any(d.Value)
	case hir.IndexData:
		return any(d.Base, d.Index)
	case hir.SliceData:
		return any(d.Base, d.Start, d.Stop, d.Step)
	case hir.ListData:
		return any(d.Elems...)
	case hir.TupleData:
		return any(d.Elems...)
	case hir.SetData:
		return any(d.Elems...)
	case hir.FrozenSetData:
		return any(d.Elems...)
	case hir.DictData:
		return any(d.Keys...) || any(d.Values...)
	case hir.CompData:
		for _, cl := range d.Clauses {
			for _, bound := range cl.Target.BoundNames() {
				if bound == name {
					// The first iterable evaluates in the enclosing scope
					// before the clause shadows the name.
					return any(d.Clauses[0].Iter)
				}
			}
		}
		if any(d.Elt, d.Value) {
			return true
		}
		for _, cl := range d.Clauses {
			if any(cl.Iter) || any(cl.Conds...) {
				return true
			}
		}
		return false
	case hir.LambdaData:
		for _, p := range d.Params {
			if p.Name == name {
				return false
			}
		}
		return any(d.Body)
	case hir.NamedData:
		return any(d.Value)
	case hir.IfExpData:
		return any(d.Cond, d.Then, d.Else)
	case hir.FStringData:
		for _, part := range d.Parts {
			if any(part.Expr) {
				return true
			}
		}
		return false
	case hir.BorrowData:
		return any(d.Expr)
	case hir.AwaitData:
		return any(d.Value)
	case hir.StarredData:
		return any(d.Value)
	}
	return false
}
