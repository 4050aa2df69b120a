package dom

import "sort"

// BackEdge is a CFG edge tail->head where head dominates tail -- the
// defining property of a natural loop.
type BackEdge struct {
	Tail, Head int
}

// BackEdges returns every back edge in the function, discovered by
// scanning each reachable block's successors and testing dominance.
func (t *Tree) BackEdges() []BackEdge {
	var edges []BackEdge
	for _, tail := range t.rpo {
		block := t.fn.Block(tail)
		for _, head := range block.Succs {
			if !t.Reachable(head) {
				continue
			}
			if t.Dominates(head, tail) {
				edges = append(edges, BackEdge{Tail: tail, Head: head})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Head != edges[j].Head {
			return edges[i].Head < edges[j].Head
		}
		return edges[i].Tail < edges[j].Tail
	})
	return edges
}

// NaturalLoop is the set of blocks belonging to the loop with the
// given back edge, found by the standard reverse reachability walk:
// start from the tail and walk predecessors backward until the header
// is reached, without crossing through the header itself.
func (t *Tree) NaturalLoop(edge BackEdge) []int {
	inLoop := map[int]bool{edge.Head: true, edge.Tail: true}
	if edge.Head == edge.Tail {
		return []int{edge.Head}
	}
	stack := []int{edge.Tail}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		block := t.fn.Block(b)
		for _, pred := range block.Preds {
			if !inLoop[pred] {
				inLoop[pred] = true
				stack = append(stack, pred)
			}
		}
	}
	out := make([]int, 0, len(inLoop))
	for id := range inLoop {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// IsReducible reports whether fn's CFG is reducible: every retreating
// edge found while walking the DFS tree that computed Tree's postorder
// must be a back edge (its head dominates its tail). This is the real
// verification cfg.Build's conservative default defers to (spec's Open
// Question, see DESIGN.md) -- it runs after dominators exist because
// the test is defined in terms of dominance, not just DFS edge
// classification.
func (t *Tree) IsReducible() bool {
	visiting := make(map[int]bool)
	visited := make(map[int]bool)

	var walk func(id int) bool
	walk = func(id int) bool {
		visiting[id] = true
		visited[id] = true
		block := t.fn.Block(id)
		for _, succ := range block.Succs {
			if visiting[succ] {
				// Retreating edge: must be a genuine back edge.
				if !t.Dominates(succ, id) {
					return false
				}
				continue
			}
			if visited[succ] {
				continue // forward/cross edge, irrelevant to reducibility
			}
			if !walk(succ) {
				return false
			}
		}
		visiting[id] = false
		return true
	}

	if t.fn.Block(t.fn.EntryID) == nil {
		return true
	}
	return walk(t.fn.EntryID)
}
