package borrows

import (
	"fmt"
	"slices"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/source"
)

// record accumulates per-parameter facts; every field only moves from
// false to true, which is what makes the fixpoint terminate.
type record struct {
	mutated         bool
	passedAsMutable bool
	escapes         bool
	stored          bool
	rebound         bool
	reasons         []Reason
}

func (r *record) exclusive() bool { return r.mutated || r.passedAsMutable }

type funcState struct {
	id       FuncID
	name     string
	class    string
	callName string
	fn       *hir.Function
	analysis *analyze.FunctionAnalysis
	types    []*hir.Type
	recs     []*record
	index    map[string]int
	// argOffset skips the receiver when mapping positional arguments of a
	// constructor call.
	argOffset int
	variadic  bool
	fallible  bool
}

// paramFor maps a recorded call argument to the callee's parameter record.
func (s *funcState) paramFor(arg analyze.Arg) *record {
	if arg.Name != "" {
		if i, ok := s.index[arg.Name]; ok {
			return s.recs[i]
		}
		return nil
	}
	pos := arg.Position + s.argOffset
	if pos >= len(s.recs) {
		if s.variadic && len(s.recs) > 0 {
			pos = len(s.recs) - 1
		} else {
			return nil
		}
	}
	return s.recs[pos]
}

// typeAt prefers the declared parameter type and falls back to the
// flow-inferred one.
func (s *funcState) typeAt(i int) *hir.Type {
	if t := s.types[i]; !t.IsUnknown() {
		return t
	}
	return s.analysis.TypesAtExit[s.analysis.Params[i]]
}

type solver struct {
	states   []*funcState
	byCall   map[string]*funcState
	byMethod map[string]*funcState
	reporter diag.Reporter
}

// Solve analyzes every function of the module and runs the
// interprocedural fixpoint over the call graph.
func Solve(mod *hir.Module, reporter diag.Reporter) *Result {
	s := &solver{
		byCall:   make(map[string]*funcState),
		byMethod: make(map[string]*funcState),
		reporter: reporter,
	}
	returns := analyze.ModuleReturns(mod)

	for _, fn := range mod.Functions {
		s.add(fn, "", fn.Name, returns)
	}
	for _, cls := range mod.Classes {
		for _, m := range cls.Methods {
			call := ""
			if m.Name == "__init__" {
				// Constructor calls use the class name.
				call = cls.Name
			}
			s.add(m, cls.Name, call, returns)
		}
	}

	s.seed()
	g := s.buildGraph()
	t := g.toposort()

	// Callees-first warm start resolves the acyclic part in one sweep;
	// recursion iterates until the lattice stops moving.
	for _, id := range t.order {
		s.pass(s.states[id])
	}
	for changed := true; changed; {
		changed = false
		for _, st := range s.states {
			if s.pass(st) {
				changed = true
			}
		}
	}

	s.checkAliasing()
	return s.classify()
}

func (s *solver) add(fn *hir.Function, class, callName string, returns map[string]*hir.Type) {
	st := &funcState{
		id:       FuncID(len(s.states)),
		name:     fn.Name,
		class:    class,
		callName: callName,
		fn:       fn,
		analysis: analyze.AnalyzeWith(fn, returns),
		index:    make(map[string]int),
	}
	if class != "" {
		st.name = class + "." + fn.Name
	}
	if fn.Receiver != "" {
		st.types = append(st.types, hir.Custom(class))
		st.argOffset = 1
	}
	for _, p := range fn.Params {
		st.types = append(st.types, p.Type)
		if p.Variadic {
			st.variadic = true
		}
	}
	for i, name := range st.analysis.Params {
		st.index[name] = i
		st.recs = append(st.recs, &record{})
	}
	st.fallible = st.analysis.CanFail()
	s.states = append(s.states, st)
	if callName != "" {
		if _, dup := s.byCall[callName]; !dup {
			s.byCall[callName] = st
		}
	}
	if class != "" {
		s.byMethod[st.name] = st
	}
}

// resolveMethod finds the state for obj.method(...) through the flow type
// of the receiver variable. Unresolvable receivers are skipped; module
// attribute calls are handled by the stdlib mapping instead.
func (s *solver) resolveMethod(st *funcState, mc analyze.MethodCallSite) *funcState {
	if mc.Recv.Var == "" || mc.Recv.Pass != analyze.PassWhole {
		return nil
	}
	class := ""
	if st.fn.Receiver != "" && mc.Recv.Var == st.fn.Receiver {
		class = st.class
	} else if t := st.analysis.TypesAtExit[mc.Recv.Var]; t != nil && t.Kind == hir.TypeCustom {
		class = t.Name
		if class == "Self" {
			class = st.class
		}
	}
	if class == "" {
		return nil
	}
	return s.byMethod[class+"."+mc.Method]
}

func (s *solver) seed() {
	for _, st := range s.states {
		a := st.analysis
		for i, name := range a.Params {
			rec := st.recs[i]
			for _, m := range a.Mutations[name] {
				switch {
				case m.Kind == analyze.MutationRebind:
					if !rec.rebound {
						rec.rebound = true
						rec.reasons = append(rec.reasons, reasonf(m.Span, "reassigned"))
					}
				case m.Kind == analyze.MutationAugAssign && isImmutableAug(st.typeAt(i)):
					// += on an int or a str rebinds rather than mutating
					// in place.
					if !rec.rebound {
						rec.rebound = true
						rec.reasons = append(rec.reasons, reasonf(m.Span, "reassigned"))
					}
				case m.Kind == analyze.MutationMethod:
					rec.mutated = true
					rec.reasons = append(rec.reasons, reasonf(m.Span, "mutating call to %s", m.Method))
				default:
					rec.mutated = true
					rec.reasons = append(rec.reasons, reasonf(m.Span, "%s", m.Kind))
				}
			}
			switch a.Escapes[name] {
			case analyze.EscapeStored:
				rec.escapes, rec.stored = true, true
				rec.reasons = append(rec.reasons, reasonf(a.LastUse[name], "stored beyond the call"))
			case analyze.EscapeReturned:
				rec.escapes = true
				rec.reasons = append(rec.reasons, reasonf(a.LastUse[name], "returned to the caller"))
			}
		}
	}
}

// buildGraph wires influence edges and applies the unknown-callee policy:
// an unresolved call is assumed to take ownership of whole-variable
// arguments.
func (s *solver) buildGraph() *callGraph {
	g := newCallGraph(len(s.states))
	reported := make(map[string]bool)
	for _, st := range s.states {
		for _, c := range st.analysis.Calls {
			callee, ok := s.byCall[c.Callee]
			if ok {
				g.addEdge(callee.id, st.id)
				continue
			}
			if analyze.KnownBuiltin(c.Callee) {
				continue
			}
			if !reported[c.Callee] {
				reported[c.Callee] = true
				diag.ReportInfo(s.reporter, diag.BorUnknownCallee, c.Span,
					fmt.Sprintf("no signature for %s, assuming it takes ownership of its arguments", c.Callee)).Emit()
			}
			for _, arg := range c.Args {
				if arg.Pass != analyze.PassWhole {
					continue
				}
				if i, isParam := st.index[arg.Var]; isParam {
					rec := st.recs[i]
					if !rec.stored {
						rec.escapes, rec.stored = true, true
						rec.reasons = append(rec.reasons, reasonf(arg.Span, "moved into %s", c.Callee))
					}
				}
			}
		}
		for _, mc := range st.analysis.MethodCalls {
			if callee := s.resolveMethod(st, mc); callee != nil {
				g.addEdge(callee.id, st.id)
			}
		}
	}
	return g
}

func (s *solver) pass(st *funcState) bool {
	changed := false
	for _, c := range st.analysis.Calls {
		callee, ok := s.byCall[c.Callee]
		if !ok {
			continue
		}
		for _, arg := range c.Args {
			if s.propagate(st, callee, arg, callee.paramFor(arg)) {
				changed = true
			}
		}
		if callee.fallible && !st.fallible {
			st.fallible = true
			changed = true
		}
	}
	for _, mc := range st.analysis.MethodCalls {
		callee := s.resolveMethod(st, mc)
		if callee == nil {
			continue
		}
		if callee.argOffset == 1 {
			if s.propagate(st, callee, mc.Recv, callee.recs[0]) {
				changed = true
			}
		}
		for _, arg := range mc.Args {
			if s.propagate(st, callee, arg, callee.paramFor(arg)) {
				changed = true
			}
		}
		if callee.fallible && !st.fallible {
			st.fallible = true
			changed = true
		}
	}
	return changed
}

// propagate lifts one callee parameter requirement onto the caller's
// argument variable. Returns true when a flag flipped.
func (s *solver) propagate(st *funcState, callee *funcState, arg analyze.Arg, cp *record) bool {
	if arg.Var == "" || cp == nil {
		return false
	}
	pi, isParam := st.index[arg.Var]
	if !isParam {
		return false
	}
	rec := st.recs[pi]
	changed := false
	if cp.exclusive() && !rec.passedAsMutable &&
		(arg.Pass == analyze.PassWhole || arg.Pass == analyze.PassField) {
		rec.passedAsMutable = true
		rec.reasons = append(rec.reasons,
			reasonf(arg.Span, "passed to %s, which needs exclusive access", callee.name))
		changed = true
	}
	if cp.stored && arg.Pass == analyze.PassWhole && !rec.stored {
		rec.escapes, rec.stored = true, true
		rec.reasons = append(rec.reasons, reasonf(arg.Span, "moved into %s", callee.name))
		changed = true
	}
	return changed
}

// aliasedUse pairs one argument with the callee parameter it binds.
type aliasedUse struct {
	arg analyze.Arg
	cp  *record
}

// checkAliasing rejects calls that pass one variable to several parameters
// when any of them needs exclusive access; no borrow arrangement can
// satisfy that.
func (s *solver) checkAliasing() {
	for _, st := range s.states {
		for _, c := range st.analysis.Calls {
			if callee, ok := s.byCall[c.Callee]; ok {
				var uses []aliasedUse
				for _, arg := range c.Args {
					uses = append(uses, aliasedUse{arg, callee.paramFor(arg)})
				}
				s.reportAliased(callee, c.Span, uses)
			}
		}
		for _, mc := range st.analysis.MethodCalls {
			callee := s.resolveMethod(st, mc)
			if callee == nil {
				continue
			}
			var uses []aliasedUse
			if callee.argOffset == 1 {
				uses = append(uses, aliasedUse{mc.Recv, callee.recs[0]})
			}
			for _, arg := range mc.Args {
				uses = append(uses, aliasedUse{arg, callee.paramFor(arg)})
			}
			s.reportAliased(callee, mc.Span, uses)
		}
	}
}

func (s *solver) reportAliased(callee *funcState, span source.Span, uses []aliasedUse) {
	byVar := make(map[string][]aliasedUse)
	for _, u := range uses {
		if u.arg.Var == "" || u.arg.Pass == analyze.PassExpression {
			continue
		}
		byVar[u.arg.Var] = append(byVar[u.arg.Var], u)
	}
	names := make([]string, 0, len(byVar))
	for name := range byVar {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		group := byVar[name]
		if len(group) < 2 {
			continue
		}
		needsExclusive := false
		for _, u := range group {
			if u.cp != nil && u.cp.exclusive() {
				needsExclusive = true
			}
		}
		if !needsExclusive {
			continue
		}
		b := diag.ReportError(s.reporter, diag.BorSignatureConflict, span,
			fmt.Sprintf("%s is passed more than once to %s and one use needs exclusive access", name, callee.name))
		for _, u := range group {
			b.WithNote(u.arg.Span, "aliased argument here")
		}
		b.Emit()
	}
}

func (s *solver) classify() *Result {
	res := &Result{
		functions: make(map[string]*FunctionSignature),
		methods:   make(map[string]*FunctionSignature),
	}
	for _, st := range s.states {
		sig := &FunctionSignature{Name: st.name, Fallible: st.fallible}
		a := st.analysis
		for i, name := range a.Params {
			rec := st.recs[i]
			p := ParamSignature{
				Name:    name,
				Mutated: rec.mutated || rec.rebound,
				Reasons: rec.reasons,
			}
			switch {
			case rec.exclusive() && rec.stored:
				// Mutated and then kept: the function must own the value.
				p.Kind = Owned
			case rec.exclusive():
				p.Kind = ExclusiveBorrow
			case rec.stored:
				p.Kind = Owned
			case rec.rebound:
				// Reassignment needs an owned mut binding.
				p.Kind = Owned
			case isCopyPrimitive(st.typeAt(i)):
				p.Kind = Owned
			case typeHasVar(st.types[i]):
				p.Kind = Conditional
				p.If, p.Else = SharedBorrow, Owned
			default:
				// Covers the read-only case and parameters returned
				// without modification, which borrow with the result
				// lifetime.
				p.Kind = SharedBorrow
			}
			if len(p.Reasons) == 0 {
				if reads := a.Reads[name]; len(reads) > 0 {
					p.Reasons = []Reason{reasonf(reads[0].Span, "only read")}
				} else {
					p.Reasons = []Reason{reasonf(st.fn.Span, "unused")}
				}
			}
			sig.Params = append(sig.Params, p)
		}

		if st.class != "" {
			res.methods[st.name] = sig
		}
		if st.callName != "" {
			res.functions[st.callName] = sig
		}
	}
	return res
}

func isCopyPrimitive(t *hir.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case hir.TypeInt, hir.TypeFloat, hir.TypeBool, hir.TypeNone:
		return true
	}
	return false
}

func typeHasVar(t *hir.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind == hir.TypeVarRef {
		return true
	}
	for _, a := range t.Args {
		if typeHasVar(a) {
			return true
		}
	}
	return typeHasVar(t.Ret)
}

func isImmutableAug(t *hir.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case hir.TypeInt, hir.TypeFloat, hir.TypeBool, hir.TypeStr,
		hir.TypeBytes, hir.TypeTuple:
		return true
	}
	return false
}
