package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/hir"
)

// compText renders a comprehension as an iterator pipeline with a
// collect matching its kind. Generator expressions stay uncollected for
// their consumer to drive.
func (c *fnCtx) compText(d hir.CompData) string {
	chain := c.compChain(d)
	switch d.Kind {
	case hir.CompDict:
		c.gen.need(needHashMap)
		return chain + ".collect::<HashMap<_, _>>()"
	case hir.CompSet:
		c.gen.need(needHashSet)
		return chain + ".collect::<HashSet<_>>()"
	case hir.CompGenerator:
		return chain
	default:
		return chain + ".collect::<Vec<_>>()"
	}
}

// compChain builds the pipeline without the trailing collect: source,
// one filter per condition, then map. Nested clauses flatten through
// flat_map with the innermost map capturing by move.
func (c *fnCtx) compChain(d hir.CompData) string {
	c.closureDepth++
	defer func() { c.closureDepth-- }()
	return c.clauseChain(d, 0)
}

func (c *fnCtx) clauseChain(d hir.CompData, i int) string {
	cl := d.Clauses[i]
	pat := targetPattern(cl.Target)
	chain := c.iterChain(cl.Iter)
	for _, cond := range cl.Conds {
		chain += c.filterStage(pat, cond)
	}
	if i < len(d.Clauses)-1 {
		return chain + fmt.Sprintf(".flat_map(|%s| %s)", pat, c.clauseChain(d, i+1))
	}
	mv := ""
	if i > 0 {
		mv = "move "
	}
	return chain + fmt.Sprintf(".map(%s|%s| %s)", mv, pat, c.eltText(d))
}

// filterStage clones the binding into the predicate so conditions can
// use the element by value.
func (c *fnCtx) filterStage(pat string, cond *hir.Expr) string {
	if strings.HasPrefix(pat, "(") {
		return fmt.Sprintf(".filter(|item| { let %s = item.clone(); %s })", pat, c.condText(cond))
	}
	return fmt.Sprintf(".filter(|%s| { let %s = %s.clone(); %s })", pat, pat, pat, c.condText(cond))
}

func (c *fnCtx) eltText(d hir.CompData) string {
	if d.Kind == hir.CompDict {
		return fmt.Sprintf("(%s, %s)", c.exprText(d.Elt), c.exprText(d.Value))
	}
	return c.exprText(d.Elt)
}

// iterChain renders an iterable expression as an element producer.
// Named collections lend clones of their elements; strings iterate
// chars; dicts iterate keys; everything else is consumed in place.
func (c *fnCtx) iterChain(iter *hir.Expr) string {
	t := c.exprType(iter)
	if iter.Kind == hir.ExprVar || iter.Kind == hir.ExprAttribute {
		recv := c.exprText(iter)
		switch {
		case isStrType(t):
			return recv + ".chars()"
		case isDictType(t):
			return recv + ".keys().cloned()"
		default:
			return recv + ".iter().cloned()"
		}
	}
	return "(" + c.exprText(iter) + ").into_iter()"
}

// targetPattern renders a binder as a closure pattern.
func targetPattern(t hir.Target) string {
	if t.Kind == hir.TargetTuple {
		parts := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			parts[i] = targetPattern(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return sanitizeIdent(t.Name)
}
