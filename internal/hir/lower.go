package hir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

// Lower bridges a parsed Python module into HIR. Unsupported constructs are
// reported through the reporter; a function containing one is skipped while
// the rest of the module lowers normally.
func Lower(pmod *pyast.Module, file *source.File, reporter diag.Reporter) *Module {
	lw := &lowerer{
		file:     file,
		reporter: reporter,
		ann:      annotations.NewParser(),
	}
	return lw.lowerModule(pmod)
}

type lowerer struct {
	file     *source.File
	reporter diag.Reporter
	ann      *annotations.Parser

	// unsupported marks the function currently lowering as skipped.
	unsupported bool
	tmp         int
}

func (lw *lowerer) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	lw.unsupported = true
	diag.ReportError(lw.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (lw *lowerer) warnf(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportWarning(lw.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (lw *lowerer) infof(code diag.Code, sp source.Span, format string, args ...any) {
	diag.ReportInfo(lw.reporter, code, sp, fmt.Sprintf(format, args...)).Emit()
}

// fresh synthesizes a collision-free helper name.
func (lw *lowerer) fresh(base string) string {
	lw.tmp++
	if lw.tmp == 1 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, lw.tmp)
}

func moduleName(path string) string {
	stem := filepath.Base(path)
	return strings.TrimSuffix(stem, filepath.Ext(stem))
}

func (lw *lowerer) lowerModule(pmod *pyast.Module) *Module {
	mod := &Module{
		Name: moduleName(lw.file.Path),
		File: lw.file.ID,
	}

	body := pmod.Body
	if doc, rest := moduleDocstring(body); doc != "" {
		mod.Docstring = doc
		body = rest
	}

	var mainBody []pyast.Stmt
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *pyast.Import:
			mod.Imports = append(mod.Imports, lw.lowerImport(s)...)
		case *pyast.ImportFrom:
			mod.Imports = append(mod.Imports, lw.lowerImportFrom(s))
		case *pyast.FunctionDef:
			if fn := lw.lowerFunction(s, MethodFree); fn != nil {
				mod.Functions = append(mod.Functions, fn)
			}
		case *pyast.ClassDef:
			if cls := lw.lowerClass(s); cls != nil {
				mod.Classes = append(mod.Classes, cls)
			}
		case *pyast.Assign:
			if alias, ok := lw.asTypeAlias(s); ok {
				mod.Aliases = append(mod.Aliases, alias)
				continue
			}
			lw.unsupported = false
			if lowered := lw.lowerBody([]pyast.Stmt{stmt}); !lw.unsupported {
				mod.TopLevel = append(mod.TopLevel, lowered...)
			}
		case *pyast.AnnAssign:
			lw.unsupported = false
			if lowered := lw.lowerBody([]pyast.Stmt{stmt}); !lw.unsupported {
				mod.TopLevel = append(mod.TopLevel, lowered...)
			}
		case *pyast.If:
			if isMainGuard(s) {
				mainBody = append(mainBody, s.Body...)
				continue
			}
			lw.warnf(diag.LowUnsupported, stmt.Span(),
				"module-level statement outside a definition is not emitted")
		case *pyast.ExprStmt:
			// Bare docstrings and repl-style expressions carry no effect in
			// the emitted module.
			lw.infof(diag.LowInfo, stmt.Span(), "module-level expression has no effect and is dropped")
		default:
			lw.warnf(diag.LowUnsupported, stmt.Span(),
				"module-level statement outside a definition is not emitted")
		}
	}

	if len(mainBody) > 0 && mod.Function("main") == nil {
		guard := &pyast.FunctionDef{Name: "main", Body: mainBody}
		if fn := lw.lowerFunction(guard, MethodFree); fn != nil {
			fn.Span = mainBody[0].Span()
			fn.Ret = NoneT
			mod.Functions = append(mod.Functions, fn)
		}
	}
	return mod
}

func moduleDocstring(body []pyast.Stmt) (string, []pyast.Stmt) {
	if len(body) == 0 {
		return "", body
	}
	es, ok := body[0].(*pyast.ExprStmt)
	if !ok {
		return "", body
	}
	lit, ok := es.Value.(*pyast.Literal)
	if !ok || lit.Kind != pyast.LitString {
		return "", body
	}
	return lit.Text, body[1:]
}

// isMainGuard recognizes `if __name__ == "__main__":`.
func isMainGuard(s *pyast.If) bool {
	cmp, ok := s.Cond.(*pyast.Compare)
	if !ok || len(cmp.Ops) != 1 || len(cmp.Comparators) != 1 || cmp.Ops[0] != pyast.CmpEq {
		return false
	}
	name, okL := cmp.Left.(*pyast.Name)
	lit, okR := cmp.Comparators[0].(*pyast.Literal)
	if !okL || !okR {
		// Accept the reversed spelling too.
		lit, okR = cmp.Left.(*pyast.Literal)
		name, okL = cmp.Comparators[0].(*pyast.Name)
		if !okL || !okR {
			return false
		}
	}
	return name.ID == "__name__" && lit.Kind == pyast.LitString && lit.Text == "__main__"
}

func (lw *lowerer) lowerImport(s *pyast.Import) []Import {
	out := make([]Import, 0, len(s.Names))
	for _, alias := range s.Names {
		out = append(out, Import{
			Module: alias.Name,
			Alias:  alias.Alias,
			Span:   s.Span(),
		})
	}
	return out
}

func (lw *lowerer) lowerImportFrom(s *pyast.ImportFrom) Import {
	imp := Import{
		Module:   s.Module,
		IsFrom:   true,
		Level:    s.Level,
		Wildcard: s.Wildcard,
		Span:     s.Span(),
	}
	for _, alias := range s.Names {
		imp.Items = append(imp.Items, ImportItem{Name: alias.Name, Alias: alias.Alias})
	}
	return imp
}

// asTypeAlias recognizes module-level `Name = <type expression>` bindings.
func (lw *lowerer) asTypeAlias(s *pyast.Assign) (TypeAlias, bool) {
	if len(s.Targets) != 1 {
		return TypeAlias{}, false
	}
	name, ok := s.Targets[0].(*pyast.Name)
	if !ok || !isTypeExpr(s.Value) {
		return TypeAlias{}, false
	}
	t := lw.lowerTypeExpr(s.Value)
	if t.IsUnknown() {
		return TypeAlias{}, false
	}
	return TypeAlias{Name: name.ID, Type: t, Span: s.Span()}, true
}

// isTypeExpr is the syntactic filter for alias right-hand sides: a typing
// generic subscript, or a union of type expressions.
func isTypeExpr(e pyast.Expr) bool {
	switch v := e.(type) {
	case *pyast.Subscript:
		base, ok := v.Value.(*pyast.Name)
		if !ok {
			if attr, okA := v.Value.(*pyast.Attribute); okA {
				return attr.Attr != "" && isTypingContainer(attr.Attr)
			}
			return false
		}
		return isTypingContainer(base.ID)
	case *pyast.BinOp:
		return v.Op == pyast.OpBitOr && isTypeExpr(v.Left) && isTypeExpr(v.Right)
	default:
		return false
	}
}

func isTypingContainer(name string) bool {
	switch name {
	case "List", "Dict", "Set", "FrozenSet", "Tuple", "Optional", "Union", "Callable",
		"list", "dict", "set", "frozenset", "tuple", "type":
		return true
	}
	return false
}
