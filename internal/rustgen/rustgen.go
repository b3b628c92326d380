package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/analyze"
	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/modmap"
	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/types"
)

// Options configures one generation run.
type Options struct {
	// Types maps source types to Rust spellings. Nil uses a default
	// mapper.
	Types *types.Mapper
	// Modules resolves imports and stdlib calls. Nil uses the default
	// table.
	Modules *modmap.Mapper
	// EmitTests appends a #[cfg(test)] module distilled from docstring
	// examples.
	EmitTests bool
}

// Generate renders mod as a complete Rust source file. sigs carries the
// borrow solver's parameter classifications and may be nil, in which
// case every parameter is treated as owned. Internal inconsistencies
// are reported through reporter and surface as the returned error;
// emission continues with placeholders so later diagnostics still
// accumulate.
func Generate(mod *hir.Module, sigs *borrows.Result, reporter diag.Reporter, opts Options) (string, error) {
	if mod == nil {
		return "", fmt.Errorf("rustgen: nil module")
	}
	tm := opts.Types
	if tm == nil {
		tm = types.NewMapper()
	}
	mm := opts.Modules
	if mm == nil {
		mm = modmap.New()
	}
	g := &generator{
		mod:           mod,
		sigs:          sigs,
		reporter:      reporter,
		types:         tm,
		modules:       mm,
		emitTests:     opts.EmitTests,
		returns:       analyze.ModuleReturns(mod),
		needs:         make(map[need]bool),
		moduleAliases: make(map[string]string),
		importedItems: make(map[string]string),
		itemNames:     make(map[string]string),
		unions:        make(map[string]*unionEnum),
		classes:       make(map[string]*hir.Class),
		recvMut:       make(map[string]bool),
		fallibleFns:   make(map[string]bool),
	}
	for _, cl := range mod.Classes {
		g.classes[cl.Name] = cl
	}
	g.indexImports()
	out := g.file()
	if g.err != nil {
		return "", g.err
	}
	return out, nil
}

// need is a std import or trait requirement discovered while emitting
// bodies. Declaration order is emission order.
type need uint8

const (
	needHashMap need = iota
	needHashSet
	needVecDeque
	needLazyLock
	needIoRead
	needIoWrite
	needBufRead
	needSha2Digest
	needRandRng
	needRandSlice
	needItertools
	needCount
)

// needUse holds the use line for each requirement.
var needUse = [needCount]string{
	needHashMap:    "use std::collections::HashMap;",
	needHashSet:    "use std::collections::HashSet;",
	needVecDeque:   "use std::collections::VecDeque;",
	needLazyLock:   "use std::sync::LazyLock;",
	needIoRead:     "use std::io::Read;",
	needIoWrite:    "use std::io::Write;",
	needBufRead:    "use std::io::BufRead;",
	needSha2Digest: "use sha2::Digest;",
	needRandRng:    "use rand::Rng;",
	needRandSlice:  "use rand::seq::SliceRandom;",
	needItertools:  "use itertools::Itertools;",
}

// external marks requirements that belong with the crate uses rather
// than the std block.
func (n need) external() bool {
	switch n {
	case needSha2Digest, needRandRng, needRandSlice, needItertools:
		return true
	}
	return false
}

type generator struct {
	mod       *hir.Module
	sigs      *borrows.Result
	reporter  diag.Reporter
	types     *types.Mapper
	modules   *modmap.Mapper
	emitTests bool

	// returns maps function and bare method names to declared return
	// types for call-site flow.
	returns map[string]*hir.Type

	needs map[need]bool

	// moduleAliases maps local names of whole-module imports to source
	// module paths, aliases included: "np" -> "numpy".
	moduleAliases map[string]string
	// importedItems maps from-imported local names to their module.
	importedItems map[string]string
	// itemNames maps from-imported local names back to the original
	// item when aliased.
	itemNames map[string]string

	// unions dedupes synthesized union enums by derived name.
	unions     map[string]*unionEnum
	unionOrder []string

	classes map[string]*hir.Class

	// recvMut caches whether Class.method writes through its receiver,
	// directly or through further methods on self.
	recvMut map[string]bool

	// fallibleFns marks functions and methods (bare names) whose Rust
	// signature returns Result, computed before bodies are emitted so
	// call sites agree with definitions.
	fallibleFns map[string]bool

	// err holds the first internal failure.
	err error
}

// calleeFallible reports whether a named callee returns Result.
func (g *generator) calleeFallible(name string) bool {
	return g.fallibleFns[name]
}

// unionEnum is one synthesized sum type backing a non-optional union.
type unionEnum struct {
	name     string
	variants []types.Variant
}

func (g *generator) indexImports() {
	for _, imp := range g.mod.Imports {
		if imp.IsFrom {
			for _, item := range imp.Items {
				local := item.Alias
				if local == "" {
					local = item.Name
				}
				g.importedItems[local] = imp.Module
				g.itemNames[local] = item.Name
			}
			continue
		}
		local := imp.Alias
		if local == "" {
			local = imp.Module
		}
		g.moduleAliases[local] = imp.Module
	}
}

func (g *generator) need(n need) { g.needs[n] = true }

// internal records a malformed-HIR failure. Emission keeps going with
// placeholder text so one bad node does not hide the rest of the
// report.
func (g *generator) internal(sp source.Span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	diag.ReportError(g.reporter, diag.EmiInternal, sp, msg).Emit()
	if g.err == nil {
		g.err = fmt.Errorf("rustgen: %s", msg)
	}
}

// rustType maps t under ann and resolves synthesized unions to named
// module-level enums.
func (g *generator) rustType(t *hir.Type, ann annotations.Set) *types.RustType {
	return g.resolveUnions(g.types.MapWith(t, ann))
}

func (g *generator) typeText(t *hir.Type, ann annotations.Set) string {
	return g.rustType(t, ann).Render()
}

// resolveUnions rewrites every generated "UnionType" enum in the tree
// to a custom type named after its variants, registering the enum
// declaration for the assembly phase. The name derives from the
// variant list, so equal unions share one declaration.
func (g *generator) resolveUnions(rt *types.RustType) *types.RustType {
	if rt == nil {
		return nil
	}
	if rt.Kind == types.RustEnum && rt.Name == "UnionType" {
		name := unionName(rt.Variants)
		if _, ok := g.unions[name]; !ok {
			vs := make([]types.Variant, len(rt.Variants))
			for i, v := range rt.Variants {
				vs[i] = types.Variant{Name: v.Name, Type: g.resolveUnions(v.Type)}
			}
			g.unions[name] = &unionEnum{name: name, variants: vs}
			g.unionOrder = append(g.unionOrder, name)
		}
		return &types.RustType{Kind: types.RustCustom, Name: name}
	}
	if len(rt.Args) == 0 {
		return rt
	}
	out := *rt
	out.Args = make([]*types.RustType, len(rt.Args))
	for i, a := range rt.Args {
		out.Args[i] = g.resolveUnions(a)
	}
	return &out
}

// intTypeText is the configured integer spelling, i64 by default.
func (g *generator) intTypeText() string {
	return g.types.Map(hir.IntT).Render()
}

// canPropagate reports whether the current position may use the ?
// operator: the enclosing function or try closure returns Result, and
// no comprehension closure intervenes.
func (c *fnCtx) canPropagate() bool {
	return c.closureDepth == 0 && (c.fallible || c.tryDepth > 0)
}

func unionName(vs []types.Variant) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Name
	}
	return strings.Join(parts, "Or")
}

// dottedName flattens a Var / Attribute chain to its dotted spelling:
// os.path renders "os.path". Reports false for anything else.
func dottedName(e *hir.Expr) (string, bool) {
	switch d := e.Data.(type) {
	case hir.VarData:
		return d.Name, true
	case hir.AttributeData:
		base, ok := dottedName(d.Value)
		if !ok {
			return "", false
		}
		return base + "." + d.Attr, true
	}
	return "", false
}

// moduleFor resolves a receiver expression to the Python module it
// names, following import aliases: with `import numpy as np`, np
// resolves to numpy.
func (g *generator) moduleFor(e *hir.Expr) (string, bool) {
	name, ok := dottedName(e)
	if !ok {
		return "", false
	}
	if mod, ok := g.moduleAliases[name]; ok {
		return mod, true
	}
	// import os binds os; os.path reaches the submodule through it.
	if i := strings.IndexByte(name, '.'); i > 0 {
		if root, ok := g.moduleAliases[name[:i]]; ok {
			full := root + name[i:]
			if _, known := g.modules.Lookup(full); known {
				return full, true
			}
		}
	}
	return "", false
}

// fnCtx carries the emission state for one function body.
type fnCtx struct {
	gen      *generator
	fn       *hir.Function
	class    *hir.Class
	sig      *borrows.FunctionSignature
	analysis *analyze.FunctionAnalysis
	ann      annotations.Set
	// retType is the mapped return type before Result wrapping.
	retType *types.RustType
	// fallible functions return Result and may use the ? operator.
	fallible bool

	// declared tracks names already bound in scope, hoists included.
	declared map[string]bool
	// narrowed overrides variable types inside if-let branches, where
	// the binding shadows an Option with its payload.
	narrowed map[string]*hir.Type
	// strParams are parameters rendered as &str.
	strParams map[string]bool
	// borrowedParams are parameters received by reference.
	borrowedParams map[string]bool
	// tryDepth is positive inside a try closure, where ? jumps to the
	// handler instead of the caller.
	tryDepth int
	// tryWrap is set inside a try closure whose body returns; return
	// statements then yield Ok(Some(v)) so the match can forward them.
	tryWrap bool
	// closureDepth is positive inside comprehension and lambda bodies,
	// which return plain values and cannot host the ? operator.
	closureDepth int
}

func (c *fnCtx) typeText(t *hir.Type) string {
	return c.gen.typeText(t, c.ann)
}

// varType is the best known type for a variable: the parameter
// annotation when present, otherwise the flow type at function exit.
func (c *fnCtx) varType(name string) *hir.Type {
	if t, ok := c.narrowed[name]; ok {
		return t
	}
	if c.class != nil && name == c.fn.Receiver {
		return hir.Custom(c.class.Name)
	}
	for i := range c.fn.Params {
		if c.fn.Params[i].Name == name {
			if c.fn.Params[i].Type != nil && !c.fn.Params[i].Type.IsUnknown() {
				return c.fn.Params[i].Type
			}
			break
		}
	}
	if t, ok := c.analysis.TypesAtExit[name]; ok && t != nil {
		return t
	}
	return hir.Unknown
}

// mutatedViaCalls reports whether some call hands the variable to an
// exclusive-borrow parameter or to a receiver position the method
// mutates. The local binding must then be mutable even without a
// direct write in this body.
func (c *fnCtx) mutatedViaCalls(name string) bool {
	if c.gen.sigs != nil {
		for _, site := range c.analysis.Calls {
			sig := c.gen.sigs.Function(site.Callee)
			if sig == nil {
				if cl, ok := c.gen.classes[site.Callee]; ok {
					sig = c.gen.sigs.Method(cl.Name, "__init__")
				}
			}
			if sigTakesMut(sig, site.Args, name) {
				return true
			}
		}
	}
	for _, site := range c.analysis.MethodCalls {
		if site.Recv.Var == "" {
			continue
		}
		t := c.varType(site.Recv.Var)
		if t == nil || t.Kind != hir.TypeCustom {
			continue
		}
		cl, ok := c.gen.classes[t.Name]
		if !ok {
			continue
		}
		if site.Recv.Var == name && c.gen.receiverMutated(cl, site.Method) {
			return true
		}
		if c.gen.sigs != nil && sigTakesMut(c.gen.sigs.Method(cl.Name, site.Method), site.Args, name) {
			return true
		}
	}
	return false
}

func sigTakesMut(sig *borrows.FunctionSignature, args []analyze.Arg, name string) bool {
	if sig == nil {
		return false
	}
	for _, a := range args {
		if a.Var != name {
			continue
		}
		var ps *borrows.ParamSignature
		if a.Name != "" {
			ps = sig.Param(a.Name)
		} else if a.Position < len(sig.Params) {
			ps = &sig.Params[a.Position]
		}
		if ps != nil && ps.Kind == borrows.ExclusiveBorrow {
			return true
		}
	}
	return false
}

// receiverMutated reports whether the class method writes through self,
// directly or by calling further methods on it. The map entry doubles
// as the cycle cut for mutually recursive methods.
func (g *generator) receiverMutated(cl *hir.Class, method string) bool {
	key := cl.Name + "." + method
	if v, ok := g.recvMut[key]; ok {
		return v
	}
	g.recvMut[key] = false
	m := cl.Method(method)
	if m == nil || m.Receiver == "" {
		return false
	}
	a := analyze.AnalyzeWith(m, g.returns)
	v := a.IsMutated(m.Receiver)
	if !v {
		for _, site := range a.MethodCalls {
			if site.Recv.Var == m.Receiver && g.receiverMutated(cl, site.Method) {
				v = true
				break
			}
		}
	}
	g.recvMut[key] = v
	return v
}

// exprType statically types an expression for dispatch decisions,
// reusing the flow-analysis tables.
func (c *fnCtx) exprType(e *hir.Expr) *hir.Type {
	if e == nil {
		return hir.Unknown
	}
	switch d := e.Data.(type) {
	case hir.LiteralData:
		return analyze.LiteralType(d)
	case hir.VarData:
		return c.varType(d.Name)
	case hir.BinaryData:
		return analyze.BinaryResultType(d.Op, c.exprType(d.Left), c.exprType(d.Right))
	case hir.UnaryData:
		if d.Op == hir.OpNot {
			return hir.BoolT
		}
		return c.exprType(d.Operand)
	case hir.CallData:
		return c.callResultType(d)
	case hir.MethodCallData:
		args := make([]*hir.Type, len(d.Args))
		for i, a := range d.Args {
			args[i] = c.exprType(a)
		}
		if t := analyze.MethodReturnType(c.exprType(d.Object), d.Method, args); !t.IsUnknown() {
			return t
		}
		// User methods are keyed by bare name; ambiguity across classes
		// is acceptable for dispatch purposes.
		if ret, ok := c.gen.returns[d.Method]; ok && ret != nil {
			return ret
		}
		return hir.Unknown
	case hir.AttributeData:
		return c.attrType(d)
	case hir.IndexData:
		base := c.exprType(d.Base)
		switch base.Kind {
		case hir.TypeList, hir.TypeSet, hir.TypeFrozenSet:
			return base.Elem()
		case hir.TypeDict:
			return base.Value()
		case hir.TypeStr:
			return hir.StrT
		case hir.TypeTuple:
			if lit, ok := d.Index.Data.(hir.LiteralData); ok && lit.Kind == hir.LitInt {
				if n := int(lit.Int); n >= 0 && n < len(base.Args) {
					return base.Args[n]
				}
			}
		}
		return hir.Unknown
	case hir.SliceData:
		return c.exprType(d.Base)
	case hir.ListData:
		return hir.ListOf(c.unifyElems(d.Elems))
	case hir.TupleData:
		items := make([]*hir.Type, len(d.Elems))
		for i, el := range d.Elems {
			items[i] = c.exprType(el)
		}
		return hir.TupleOf(items...)
	case hir.SetData:
		return hir.SetOf(c.unifyElems(d.Elems))
	case hir.FrozenSetData:
		return hir.FrozenSetOf(c.unifyElems(d.Elems))
	case hir.DictData:
		kt, vt := hir.Unknown, hir.Unknown
		for i, k := range d.Keys {
			if k == nil {
				continue
			}
			kt = hir.Unify(kt, c.exprType(k))
			vt = hir.Unify(vt, c.exprType(d.Values[i]))
		}
		return hir.DictOf(kt, vt)
	case hir.CompData:
		switch d.Kind {
		case hir.CompDict:
			return hir.DictOf(hir.Unknown, hir.Unknown)
		case hir.CompSet:
			return hir.SetOf(hir.Unknown)
		default:
			return hir.ListOf(hir.Unknown)
		}
	case hir.NamedData:
		return c.exprType(d.Value)
	case hir.IfExpData:
		if t := c.exprType(d.Then); !t.IsUnknown() {
			return t
		}
		return c.exprType(d.Else)
	case hir.FStringData:
		return hir.StrT
	case hir.BorrowData:
		return c.exprType(d.Expr)
	case hir.AwaitData:
		return c.exprType(d.Value)
	case hir.StarredData:
		return c.exprType(d.Value)
	}
	return hir.Unknown
}

func (c *fnCtx) callResultType(d hir.CallData) *hir.Type {
	if d.Func == "" {
		return hir.Unknown
	}
	if _, ok := c.gen.classes[d.Func]; ok {
		return hir.Custom(d.Func)
	}
	if c.gen.importedItems[d.Func] == "collections" && c.gen.itemNames[d.Func] == "deque" {
		return hir.Custom("deque")
	}
	if ret, ok := c.gen.returns[d.Func]; ok && ret != nil {
		return ret
	}
	args := make([]*hir.Type, len(d.Args))
	for i, a := range d.Args {
		args[i] = c.exprType(a)
	}
	if t := analyze.BuiltinCallType(d.Func, args); t != nil {
		return t
	}
	return hir.Unknown
}

func (c *fnCtx) attrType(d hir.AttributeData) *hir.Type {
	base := c.exprType(d.Value)
	if base != nil && base.Kind == hir.TypeCustom {
		if cl, ok := c.gen.classes[base.Name]; ok {
			for i := range cl.Fields {
				if cl.Fields[i].Name == d.Attr {
					return cl.Fields[i].Type
				}
			}
			if m := cl.Method(d.Attr); m != nil && m.Method == hir.MethodProperty {
				return m.Ret
			}
		}
	}
	if v, ok := d.Value.Data.(hir.VarData); ok {
		if cl, isClass := c.gen.classes[v.Name]; isClass {
			for i := range cl.Constants {
				if cl.Constants[i].Name == d.Attr {
					return cl.Constants[i].Type
				}
			}
		}
	}
	return hir.Unknown
}

func (c *fnCtx) unifyElems(elems []*hir.Expr) *hir.Type {
	t := hir.Unknown
	for _, el := range elems {
		t = hir.Unify(t, c.exprType(el))
	}
	return t
}

func isStrType(t *hir.Type) bool  { return t != nil && t.Kind == hir.TypeStr }
func isListType(t *hir.Type) bool { return t != nil && t.Kind == hir.TypeList }
func isDictType(t *hir.Type) bool { return t != nil && t.Kind == hir.TypeDict }
func isSetType(t *hir.Type) bool {
	return t != nil && (t.Kind == hir.TypeSet || t.Kind == hir.TypeFrozenSet)
}
