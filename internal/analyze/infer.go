package analyze

import (
	"github.com/paiml/depyler/internal/hir"
)

var stringEvidence = map[string]bool{
	"upper": true, "lower": true, "strip": true, "lstrip": true,
	"rstrip": true, "split": true, "rsplit": true, "splitlines": true,
	"startswith": true, "endswith": true, "replace": true, "join": true,
	"format": true, "title": true, "capitalize": true, "casefold": true,
	"encode": true, "find": true, "rfind": true, "zfill": true,
	"isdigit": true, "isalpha": true, "isalnum": true, "isspace": true,
	"isupper": true, "islower": true,
}

var dictEvidence = map[string]bool{
	"keys": true, "values": true, "items": true, "get": true,
	"setdefault": true, "popitem": true,
}

var listEvidence = map[string]bool{
	"append": true, "extend": true, "insert": true, "sort": true,
	"reverse": true,
}

// inferParamUsage guesses a type for an unannotated parameter from how the
// body uses it: string methods force str, string-literal indexing forces a
// mapping, list methods or iteration force a sequence, arithmetic forces a
// number. The guess stays Unknown when nothing decisive appears, and the
// type mapper degrades it to the dynamic fallback.
func inferParamUsage(fn *hir.Function, name string) *hir.Type {
	var numeric, floaty, stringy, listy, dicty, iterated bool
	var dictKey *hir.Type = hir.Unknown

	hir.WalkStmts(fn.Body, func(st *hir.Stmt) {
		if st.Kind == hir.StmtFor {
			d := st.Data.(hir.ForData)
			if v, ok := d.Iter.AsVar(); ok && v == name {
				iterated = true
			}
		}
		hir.StmtExprs(st, func(e *hir.Expr) {
			switch d := e.Data.(type) {
			case hir.BinaryData:
				lv, _ := d.Left.AsVar()
				rv, _ := d.Right.AsVar()
				if lv != name && rv != name {
					return
				}
				other := d.Left
				if lv == name {
					other = d.Right
				}
				switch d.Op {
				case hir.OpSub, hir.OpMul, hir.OpPow:
					numeric = true
					floaty = floaty || isFloatExpr(other)
				case hir.OpAdd:
					// Plus concatenates too; only a numeric partner makes
					// it arithmetic.
					if isNumericExpr(other) {
						numeric = true
						floaty = floaty || isFloatExpr(other)
					}
				case hir.OpDiv:
					numeric = true
					floaty = true
				case hir.OpFloorDiv, hir.OpMod:
					numeric = true
				case hir.OpLt, hir.OpLtE, hir.OpGt, hir.OpGtE:
					if isNumericExpr(other) {
						numeric = true
						floaty = floaty || isFloatExpr(other)
					}
				}

			case hir.MethodCallData:
				v, ok := d.Object.AsVar()
				if !ok || v != name {
					return
				}
				switch {
				case stringEvidence[d.Method]:
					stringy = true
				case dictEvidence[d.Method]:
					dicty = true
				case listEvidence[d.Method]:
					listy = true
				}

			case hir.IndexData:
				v, ok := d.Base.AsVar()
				if !ok || v != name {
					return
				}
				if isStrLiteral(d.Index) {
					dicty = true
					dictKey = hir.StrT
				} else if isNumericExpr(d.Index) {
					listy = true
				}
			}
		})
	})

	switch {
	case stringy:
		return hir.StrT
	case dicty:
		return hir.DictOf(dictKey, hir.Unknown)
	case listy, iterated:
		return hir.ListOf(hir.Unknown)
	case numeric && floaty:
		return hir.FloatT
	case numeric:
		return hir.IntT
	}
	return hir.Unknown
}

func isFloatExpr(e *hir.Expr) bool {
	if e == nil || e.Kind != hir.ExprLiteral {
		return false
	}
	return e.Data.(hir.LiteralData).Kind == hir.LitFloat
}

func isNumericExpr(e *hir.Expr) bool {
	if e == nil {
		return false
	}
	if e.Kind == hir.ExprLiteral {
		switch e.Data.(hir.LiteralData).Kind {
		case hir.LitInt, hir.LitFloat:
			return true
		}
		return false
	}
	if e.Kind == hir.ExprUnary {
		d := e.Data.(hir.UnaryData)
		return (d.Op == hir.OpNeg || d.Op == hir.OpPos) && isNumericExpr(d.Operand)
	}
	return false
}

func isStrLiteral(e *hir.Expr) bool {
	if e == nil || e.Kind != hir.ExprLiteral {
		return false
	}
	return e.Data.(hir.LiteralData).Kind == hir.LitStr
}
