package borrows

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// FuncID indexes a function in the solver's dense tables.
type FuncID uint32

// callGraph stores influence edges: callee -> caller, so a caller is
// revisited whenever a callee's requirements strengthen.
type callGraph struct {
	edges [][]FuncID
	indeg []int
}

func newCallGraph(n int) *callGraph {
	return &callGraph{
		edges: make([][]FuncID, n),
		indeg: make([]int, n),
	}
}

func (g *callGraph) addEdge(callee, caller FuncID) {
	for _, to := range g.edges[callee] {
		if to == caller {
			return
		}
	}
	g.edges[callee] = append(g.edges[callee], caller)
	g.indeg[caller]++
}

// topo is a Kahn ordering over the influence edges. Order lists functions
// callees-first; cyclic holds the recursive remainder, which the solver
// iterates until stable.
type topo struct {
	order  []FuncID
	cyclic []FuncID
}

func (g *callGraph) toposort() topo {
	nodeCount := len(g.edges)
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	t := topo{order: make([]FuncID, 0, nodeCount)}

	current := make([]FuncID, 0, nodeCount)
	for i := range nodeCount {
		if indeg[i] == 0 {
			id, err := safecast.Conv[FuncID](i)
			if err != nil {
				panic(fmt.Errorf("function id overflow: %w", err))
			}
			current = append(current, id)
		}
	}
	slices.Sort(current)

	for len(current) > 0 {
		next := make([]FuncID, 0)
		for _, id := range current {
			t.order = append(t.order, id)
			for _, to := range g.edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(t.order) != nodeCount {
		for i := range nodeCount {
			if indeg[i] > 0 {
				id, err := safecast.Conv[FuncID](i)
				if err != nil {
					panic(fmt.Errorf("function id overflow: %w", err))
				}
				t.cyclic = append(t.cyclic, id)
			}
		}
		slices.Sort(t.cyclic)
	}

	return t
}
