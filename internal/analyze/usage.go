package analyze

import (
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/source"
)

// walker collects mutation, read, call, escape and exception facts in one
// pass over the body.
type walker struct {
	a      *FunctionAnalysis
	params map[string]bool
	// bound tracks names visible at the current point; assigning a bound
	// name is a rebind, assigning a fresh one is a declaration.
	bound map[string]bool
	// tryDepth counts enclosing try bodies that have at least one handler.
	tryDepth int
	// tryCatch stacks the exception kinds each enclosing try handles, so
	// fallible sites a handler covers do not force a Result signature.
	tryCatch []catchSet
}

// catchSet is the set of exception classes one try's handlers name.
type catchSet struct {
	all   bool
	names map[string]bool
}

func (s catchSet) catches(kind FallibleKind) bool {
	if s.all {
		return true
	}
	switch kind {
	case FallibleDivision:
		return s.names["ZeroDivisionError"] || s.names["ArithmeticError"]
	case FallibleIndex:
		return s.names["IndexError"] || s.names["KeyError"] || s.names["LookupError"]
	case FallibleParse:
		return s.names["ValueError"]
	}
	return false
}

func (w *walker) cloneBound() map[string]bool {
	out := make(map[string]bool, len(w.bound))
	for k := range w.bound {
		out[k] = true
	}
	return out
}

// bind records a plain assignment: a write when the name exists, a fresh
// declaration otherwise.
func (w *walker) bind(name string, span source.Span) {
	if w.bound[name] {
		w.mutate(name, Mutation{Span: span, Kind: MutationRebind})
		return
	}
	w.bound[name] = true
}

func (w *walker) walkBody(body []hir.Stmt) {
	for i := range body {
		w.walkStmt(&body[i])
	}
}

func (w *walker) walkStmt(st *hir.Stmt) {
	switch st.Kind {
	case hir.StmtAssign:
		d := st.Data.(hir.AssignData)
		w.walkExpr(d.Value, ReadExpression)
		w.writeTarget(d.Target, st.Span, MutationRebind)
		w.storeEscape(d.Target, d.Value)
		for _, name := range d.Target.BoundNames() {
			w.a.Declared[name] = true
		}

	case hir.StmtAugAssign:
		d := st.Data.(hir.AugAssignData)
		w.walkExpr(d.Value, ReadExpression)
		// x += v both reads and writes x.
		if root, ok := d.Target.RootVar(); ok {
			w.read(root, st.Span, ReadExpression)
		}
		w.writeTarget(d.Target, st.Span, MutationAugAssign)

	case hir.StmtExpr:
		w.walkExpr(st.Data.(hir.ExprStmtData).Expr, ReadExpression)

	case hir.StmtReturn:
		d := st.Data.(hir.ReturnData)
		if d.Value != nil {
			w.walkExpr(d.Value, ReadReturn)
			w.returnEscape(d.Value)
		}

	case hir.StmtIf:
		// Each branch sees only the names bound before the split; after
		// the join the union is visible.
		d := st.Data.(hir.IfData)
		w.walkExpr(d.Cond, ReadCondition)
		base := w.cloneBound()
		w.walkBody(d.Then)
		thenBound := w.bound
		w.bound = base
		w.walkBody(d.Else)
		for k := range thenBound {
			w.bound[k] = true
		}

	case hir.StmtWhile:
		d := st.Data.(hir.WhileData)
		w.walkExpr(d.Cond, ReadCondition)
		w.walkBody(d.Body)

	case hir.StmtFor:
		d := st.Data.(hir.ForData)
		w.walkExpr(d.Iter, ReadExpression)
		// The loop target is a fresh per-iteration binding, not a write.
		for _, name := range d.Target.BoundNames() {
			w.a.Declared[name] = true
			w.bound[name] = true
		}
		w.walkBody(d.Body)

	case hir.StmtRaise:
		d := st.Data.(hir.RaiseData)
		w.walkExpr(d.Exc, ReadExpression)
		w.walkExpr(d.Cause, ReadExpression)
		if w.tryDepth == 0 {
			w.a.Raises = true
		}

	case hir.StmtTry:
		w.walkTry(st)

	case hir.StmtWith:
		d := st.Data.(hir.WithData)
		w.walkExpr(d.Context, ReadExpression)
		if d.Binding != "" {
			w.a.Declared[d.Binding] = true
			w.bound[d.Binding] = true
		}
		w.walkBody(d.Body)

	case hir.StmtAssert:
		d := st.Data.(hir.AssertData)
		w.walkExpr(d.Test, ReadCondition)
		w.walkExpr(d.Msg, ReadExpression)
	}
}

func (w *walker) walkTry(st *hir.Stmt) {
	d := st.Data.(hir.TryData)
	scope := ExceptionScope{Span: st.Span, HasFinally: len(d.Finally) > 0}
	for _, h := range d.Handlers {
		if h.Binding != "" {
			scope.Bindings = append(scope.Bindings, h.Binding)
			w.a.Declared[h.Binding] = true
		}
		if len(h.Types) == 0 {
			scope.CatchesAll = true
		}
		for _, t := range h.Types {
			scope.Caught = append(scope.Caught, t)
			if t == "Exception" || t == "BaseException" {
				scope.CatchesAll = true
			}
		}
	}
	w.a.TryScopes = append(w.a.TryScopes, scope)

	if len(d.Handlers) > 0 {
		w.tryDepth++
		cs := catchSet{all: scope.CatchesAll, names: make(map[string]bool, len(scope.Caught))}
		for _, name := range scope.Caught {
			cs.names[name] = true
		}
		w.tryCatch = append(w.tryCatch, cs)
	}
	w.walkBody(d.Body)
	if len(d.Handlers) > 0 {
		w.tryDepth--
		w.tryCatch = w.tryCatch[:len(w.tryCatch)-1]
	}
	// Raises inside a handler, the else block or finally are not caught by
	// this try.
	for _, h := range d.Handlers {
		w.walkBody(h.Body)
	}
	w.walkBody(d.Else)
	w.walkBody(d.Finally)
}

// writeTarget records the mutation implied by an assignment target. A plain
// symbol is a rebind; an indexed or attribute target writes through the
// root. Tuple targets recurse.
func (w *walker) writeTarget(t hir.Target, span source.Span, plain MutationKind) {
	switch t.Kind {
	case hir.TargetSymbol:
		if plain == MutationRebind {
			w.bind(t.Name, span)
		} else {
			w.mutate(t.Name, Mutation{Span: span, Kind: plain})
		}
	case hir.TargetIndex:
		w.walkExpr(t.Base, ReadExpression)
		w.walkExpr(t.Index, ReadExpression)
		if root, ok := t.Base.Root(); ok {
			kind := MutationIndexAssign
			if plain == MutationAugAssign {
				kind = MutationAugAssign
			}
			w.mutate(root, Mutation{Span: span, Kind: kind})
		}
	case hir.TargetAttribute:
		w.walkExpr(t.Base, ReadExpression)
		if root, ok := t.Base.Root(); ok {
			kind := MutationFieldWrite
			if plain == MutationAugAssign {
				kind = MutationAugAssign
			}
			w.mutate(root, Mutation{Span: span, Kind: kind})
		}
	case hir.TargetTuple:
		for _, el := range t.Elems {
			w.writeTarget(el, span, plain)
		}
	}
}

func (w *walker) mutate(name string, m Mutation) {
	w.a.Mutations[name] = append(w.a.Mutations[name], m)
}

func (w *walker) read(name string, span source.Span, ctx ReadContext) {
	w.a.Reads[name] = append(w.a.Reads[name], Read{Span: span, Context: ctx})
	if last, ok := w.a.LastUse[name]; !ok || span.Start >= last.Start {
		w.a.LastUse[name] = span
	}
}

func (w *walker) walkExpr(e *hir.Expr, ctx ReadContext) {
	if e == nil {
		return
	}
	switch e.Kind {
	case hir.ExprVar:
		w.read(e.Data.(hir.VarData).Name, e.Span, ctx)

	case hir.ExprBinary:
		d := e.Data.(hir.BinaryData)
		w.walkExpr(d.Left, ctx)
		w.walkExpr(d.Right, ctx)
		if isDivision(d.Op) && !isNonZeroLiteral(d.Right) {
			w.fallible(e.Span, FallibleDivision)
		}

	case hir.ExprUnary:
		w.walkExpr(e.Data.(hir.UnaryData).Operand, ctx)

	case hir.ExprCall:
		w.walkCall(e)

	case hir.ExprMethodCall:
		w.walkMethodCall(e)

	case hir.ExprAttribute:
		w.walkExpr(e.Data.(hir.AttributeData).Value, ctx)

	case hir.ExprIndex:
		d := e.Data.(hir.IndexData)
		w.walkExpr(d.Base, ctx)
		w.walkExpr(d.Index, ReadExpression)
		w.fallible(e.Span, FallibleIndex)

	case hir.ExprSlice:
		d := e.Data.(hir.SliceData)
		w.walkExpr(d.Base, ctx)
		w.walkExpr(d.Start, ReadExpression)
		w.walkExpr(d.Stop, ReadExpression)
		w.walkExpr(d.Step, ReadExpression)

	case hir.ExprList:
		for _, el := range e.Data.(hir.ListData).Elems {
			w.walkExpr(el, ctx)
		}
	case hir.ExprTuple:
		for _, el := range e.Data.(hir.TupleData).Elems {
			w.walkExpr(el, ctx)
		}
	case hir.ExprSet:
		for _, el := range e.Data.(hir.SetData).Elems {
			w.walkExpr(el, ctx)
		}
	case hir.ExprFrozenSet:
		for _, el := range e.Data.(hir.FrozenSetData).Elems {
			w.walkExpr(el, ctx)
		}

	case hir.ExprDict:
		d := e.Data.(hir.DictData)
		for i := range d.Keys {
			w.walkExpr(d.Keys[i], ctx)
			w.walkExpr(d.Values[i], ctx)
		}

	case hir.ExprComp:
		d := e.Data.(hir.CompData)
		for _, cl := range d.Clauses {
			w.walkExpr(cl.Iter, ReadExpression)
			for _, c := range cl.Conds {
				w.walkExpr(c, ReadCondition)
			}
		}
		w.walkExpr(d.Elt, ReadExpression)
		w.walkExpr(d.Value, ReadExpression)

	case hir.ExprLambda:
		w.walkExpr(e.Data.(hir.LambdaData).Body, ReadExpression)

	case hir.ExprNamed:
		d := e.Data.(hir.NamedData)
		w.walkExpr(d.Value, ctx)
		w.a.Declared[d.Name] = true
		w.bind(d.Name, e.Span)

	case hir.ExprIfExp:
		d := e.Data.(hir.IfExpData)
		w.walkExpr(d.Cond, ReadCondition)
		w.walkExpr(d.Then, ctx)
		w.walkExpr(d.Else, ctx)

	case hir.ExprFString:
		for _, part := range e.Data.(hir.FStringData).Parts {
			w.walkExpr(part.Expr, ReadExpression)
		}

	case hir.ExprBorrow:
		w.walkExpr(e.Data.(hir.BorrowData).Expr, ctx)
	case hir.ExprAwait:
		w.walkExpr(e.Data.(hir.AwaitData).Value, ctx)
	case hir.ExprStarred:
		w.walkExpr(e.Data.(hir.StarredData).Value, ctx)
	}
}

func (w *walker) walkCall(e *hir.Expr) {
	d := e.Data.(hir.CallData)
	w.walkExpr(d.FuncExpr, ReadExpression)

	site := CallSite{Callee: d.Func, Span: e.Span}
	for i, arg := range d.Args {
		root, pass := argSource(arg)
		site.Args = append(site.Args, Arg{Position: i, Var: root, Pass: pass, Span: arg.Span})
		w.walkExpr(arg, ReadCall)
	}
	for i, kw := range d.Kwargs {
		root, pass := argSource(kw.Value)
		site.Args = append(site.Args, Arg{
			Position: len(d.Args) + i,
			Name:     kw.Name,
			Var:      root,
			Pass:     pass,
			Span:     kw.Value.Span,
		})
		w.walkExpr(kw.Value, ReadCall)
	}
	if d.Func != "" {
		w.a.Calls = append(w.a.Calls, site)
	}

	if d.Func == "int" || d.Func == "float" {
		if len(d.Args) == 1 && !isNumericLiteral(d.Args[0]) {
			w.fallible(e.Span, FallibleParse)
		}
	}
}

func (w *walker) walkMethodCall(e *hir.Expr) {
	d := e.Data.(hir.MethodCallData)
	if IsMutatingMethod(d.Method) {
		if root, ok := d.Object.Root(); ok {
			w.mutate(root, Mutation{Span: e.Span, Kind: MutationMethod, Method: d.Method})
			// items.append(p) stores p inside items for the rest of its
			// life.
			if storesArgument(d.Method) {
				for _, arg := range d.Args {
					if name, ok := arg.AsVar(); ok && w.params[name] && name != root {
						w.escape(name, EscapeStored)
					}
				}
			}
		}
	}

	site := MethodCallSite{Method: d.Method, Span: e.Span}
	recvVar, recvPass := argSource(d.Object)
	site.Recv = Arg{Var: recvVar, Pass: recvPass, Span: d.Object.Span}
	w.walkExpr(d.Object, ReadExpression)
	for i, arg := range d.Args {
		name, pass := argSource(arg)
		site.Args = append(site.Args, Arg{Position: i, Var: name, Pass: pass, Span: arg.Span})
		w.walkExpr(arg, ReadCall)
	}
	for i, kw := range d.Kwargs {
		name, pass := argSource(kw.Value)
		site.Args = append(site.Args, Arg{
			Position: len(d.Args) + i,
			Name:     kw.Name,
			Var:      name,
			Pass:     pass,
			Span:     kw.Value.Span,
		})
		w.walkExpr(kw.Value, ReadCall)
	}
	w.a.MethodCalls = append(w.a.MethodCalls, site)
}

// storeEscape marks parameters written whole into an indexed or attribute
// slot of another variable.
func (w *walker) storeEscape(t hir.Target, value *hir.Expr) {
	if t.Kind != hir.TargetIndex && t.Kind != hir.TargetAttribute {
		return
	}
	root, ok := t.Base.Root()
	if !ok {
		return
	}
	for _, name := range wholeVars(value) {
		if w.params[name] && name != root {
			w.escape(name, EscapeStored)
		}
	}
	// A map insertion keeps the key too.
	if t.Kind == hir.TargetIndex {
		for _, name := range wholeVars(t.Index) {
			if w.params[name] && name != root {
				w.escape(name, EscapeStored)
			}
		}
	}
}

// returnEscape marks parameters that flow out through the return value,
// whole or as a field projection.
func (w *walker) returnEscape(e *hir.Expr) {
	if e == nil {
		return
	}
	switch e.Kind {
	case hir.ExprVar, hir.ExprAttribute, hir.ExprIndex, hir.ExprSlice:
		if root, ok := e.Root(); ok && w.params[root] {
			w.escape(root, EscapeReturned)
		}
	case hir.ExprTuple:
		for _, el := range e.Data.(hir.TupleData).Elems {
			w.returnEscape(el)
		}
	case hir.ExprList:
		for _, el := range e.Data.(hir.ListData).Elems {
			w.returnEscape(el)
		}
	case hir.ExprIfExp:
		d := e.Data.(hir.IfExpData)
		w.returnEscape(d.Then)
		w.returnEscape(d.Else)
	case hir.ExprBorrow:
		w.returnEscape(e.Data.(hir.BorrowData).Expr)
	}
}

func (w *walker) escape(name string, kind EscapeKind) {
	// Returned wins over stored when both happen.
	if kind > w.a.Escapes[name] {
		w.a.Escapes[name] = kind
	}
}

func (w *walker) fallible(span source.Span, kind FallibleKind) {
	for _, s := range w.tryCatch {
		if s.catches(kind) {
			return
		}
	}
	w.a.Fallible = append(w.a.Fallible, FallibleOp{Span: span, Kind: kind})
}

// argSource resolves how an argument expression reaches its root variable.
func argSource(e *hir.Expr) (string, PassKind) {
	switch e.Kind {
	case hir.ExprVar:
		return e.Data.(hir.VarData).Name, PassWhole
	case hir.ExprAttribute, hir.ExprIndex, hir.ExprSlice:
		if root, ok := e.Root(); ok {
			return root, PassField
		}
	case hir.ExprBorrow:
		return argSource(e.Data.(hir.BorrowData).Expr)
	}
	if root, ok := e.Root(); ok {
		return root, PassExpression
	}
	return "", PassExpression
}

// wholeVars lists variables appearing as direct elements of the value, as
// opposed to being consumed inside a larger computation.
func wholeVars(e *hir.Expr) []string {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case hir.ExprVar:
		return []string{e.Data.(hir.VarData).Name}
	case hir.ExprTuple:
		var out []string
		for _, el := range e.Data.(hir.TupleData).Elems {
			out = append(out, wholeVars(el)...)
		}
		return out
	case hir.ExprList:
		var out []string
		for _, el := range e.Data.(hir.ListData).Elems {
			out = append(out, wholeVars(el)...)
		}
		return out
	case hir.ExprBorrow:
		return wholeVars(e.Data.(hir.BorrowData).Expr)
	}
	return nil
}

// storesArgument reports whether the mutating method keeps its argument
// alive inside the receiver.
func storesArgument(method string) bool {
	switch method {
	case "append", "extend", "insert", "add", "appendleft", "extendleft",
		"update", "setdefault", "push":
		return true
	}
	return false
}

func isDivision(op hir.BinOp) bool {
	return op == hir.OpDiv || op == hir.OpFloorDiv || op == hir.OpMod
}

func isNonZeroLiteral(e *hir.Expr) bool {
	if e == nil || e.Kind != hir.ExprLiteral {
		return false
	}
	lit := e.Data.(hir.LiteralData)
	switch lit.Kind {
	case hir.LitInt:
		return lit.Int != 0
	case hir.LitFloat:
		return lit.Float != 0
	}
	return false
}

func isNumericLiteral(e *hir.Expr) bool {
	if e == nil || e.Kind != hir.ExprLiteral {
		return false
	}
	switch e.Data.(hir.LiteralData).Kind {
	case hir.LitInt, hir.LitFloat, hir.LitBool:
		return true
	}
	return false
}
