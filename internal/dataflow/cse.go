package dataflow

import "raster/internal/il"

// CSECandidate records one redundant computation found by block-local
// CSE (spec 4.6/4.9): Key is the redundant instruction's result, and
// ReplaceWith is the earlier, still-available register holding the
// same value.
type CSECandidate struct {
	Key         string
	ReplaceWith string
}

// CSEResult lists every candidate found during the dominator-tree
// walk, keyed by the redundant instruction's own result key for O(1)
// lookup.
type CSEResult struct {
	Candidates map[string]CSECandidate
}

// domChildren is the minimal shape CSE needs from a dominator tree: a
// preorder DFS driven by Preorder()/IDom(), avoiding a hard
// dependency on *dom.Tree's concrete type so dataflow doesn't import
// dom purely for this one pass's traversal order.
type domChildren interface {
	Preorder() []int
	IDom(id int) (int, bool)
}

// CSE runs the teacher's block-local common subexpression elimination
// -- generalized from its original "just sender() calls" scope to
// every pure, canonicalizable instruction -- as a scoped hash table
// over a dominator-tree DFS: entering a block pushes a save point,
// leaving it (backtracking to visit the next dominator-tree child)
// restores the table to that save point. This is exactly spec 4.6's
// "control flow is a barrier: CSE state is saved and restored around
// branches," applied per dominator-tree edge rather than per
// structured if/while/for/match node, since the IL no longer carries
// that structure once it reaches this layer. Function calls and
// variable stores are never cached as available expressions.
func CSE(fn *il.Function, tree domChildren) CSEResult {
	available := make(map[string]string) // signature -> register key
	result := CSEResult{Candidates: make(map[string]CSECandidate)}

	// scope stack: for each dominator-tree node visited, the set of
	// signatures it inserted, so they can be removed again once that
	// subtree's processing finishes.
	inserted := make(map[int][]string)

	order := tree.Preorder()
	children := make(map[int][]int)
	for _, id := range order {
		if parent, ok := tree.IDom(id); ok {
			children[parent] = append(children[parent], id)
		}
	}

	numberOf := func(v il.Value) string {
		return v.Key()
	}

	var visit func(id int)
	visit = func(id int) {
		b := fn.Block(id)
		if b == nil {
			return
		}
		for _, inst := range b.Instructions {
			switch inst.(type) {
			case *il.CallInst, *il.StoreVarInst:
				continue
			}
			if !isPure(inst) {
				continue
			}
			res, ok := inst.Result()
			if !ok {
				continue
			}
			sig := signature(inst, numberOf)
			if sig == "" {
				continue
			}
			if existing, ok := available[sig]; ok {
				result.Candidates[res.Key()] = CSECandidate{Key: res.Key(), ReplaceWith: existing}
				continue
			}
			available[sig] = res.Key()
			inserted[id] = append(inserted[id], sig)
		}

		for _, child := range children[id] {
			visit(child)
		}

		for _, sig := range inserted[id] {
			delete(available, sig)
		}
		delete(inserted, id)
	}
	visit(fn.EntryID)

	return result
}
