// Package dataflow implements spec section 4.6: reaching definitions,
// liveness with an interference graph, constant propagation, alias
// analysis, purity classification, escape analysis, global value
// numbering and block-local common subexpression elimination, and
// natural-loop/induction-variable analysis.
//
// Reaching definitions and liveness are classical gen/kill/IN/OUT
// worklists over github.com/willf/bitset.BitSet per block, grounded on
// the gen/kill/build() split in the godoctor dataflow builder found in
// the retrieval pack (other_examples' godoctor/extras/cfg/df.go.go:
// reachingBuilder/liveVarBuilder). Constant propagation folds the same
// binary-op table the teacher's own ConstantFolding pass folds in
// ir/optimizations.go, retargeted from pre-SSA rewriting to a lattice
// computed over SSA values. GVN is the teacher's own optimizations.go
// header comment ("Global value numbering (GVN) ... needs SSA value
// numbering + lightweight congruence classes") implemented for real.
// CSE generalizes the teacher's existing (sender()-only) block-local
// CommonSubexpressionElimination pass to full commutative-operator
// canonicalization with branches as save/restore barriers.
package dataflow

import "time"

// Budget bounds a fixed-point worklist: an iteration cap (default 100
// per spec section 5) and an optional wall-time ceiling. Exceeding
// either converts to a warning with partial results rather than an
// error (spec section 5's "Budgets" policy).
type Budget struct {
	MaxIterations int
	WallTime      time.Duration // zero means unbounded
}

// DefaultBudget is the spec's default iteration cap with no wall-time
// ceiling.
func DefaultBudget() Budget { return Budget{MaxIterations: 100} }

func (b Budget) iterCap() int {
	if b.MaxIterations <= 0 {
		return 100
	}
	return b.MaxIterations
}

// Exceeded reports whether the worklist has run for dur and iters
// iterations against this budget.
func (b Budget) Exceeded(iters int, dur time.Duration) bool {
	if iters > b.iterCap() {
		return true
	}
	if b.WallTime > 0 && dur > b.WallTime {
		return true
	}
	return false
}
